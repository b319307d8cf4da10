package storage

import (
	"context"
	"testing"

	"github.com/local/manualrebuild/internal/config"
)

func TestPageBaseKey(t *testing.T) {
	tests := []struct {
		prefix, pageRange, want string
	}{
		{"manuals/", "15-17", "manuals/page-15-17"},
		{"manuals", "3", "manuals/page-3"},
		{"", " 4 / 5 ", "page-4___5"},
		{"m/", "", "m/page-unknown"},
	}
	for _, tt := range tests {
		if got := PageBaseKey(tt.prefix, tt.pageRange); got != tt.want {
			t.Errorf("PageBaseKey(%q, %q) = %q, want %q", tt.prefix, tt.pageRange, got, tt.want)
		}
	}
}

func TestNextVersion(t *testing.T) {
	base := "manuals/page-15-17"
	keys := []string{
		base + "_v1.html",
		base + "_v3.html",
		base + "_vX.html",
		"manuals/page-15-170_v9.html",
	}
	if got := nextVersion(base, keys); got != 4 {
		t.Errorf("nextVersion() = %d, want 4", got)
	}
	if got := nextVersion(base, nil); got != 1 {
		t.Errorf("nextVersion(nil) = %d, want 1", got)
	}
	if got := VersionedKey(base, 4); got != base+"_v4.html" {
		t.Errorf("VersionedKey() = %q", got)
	}
}

func TestNewS3Client_RequiresBucket(t *testing.T) {
	if _, err := NewS3Client(context.Background(), config.StorageConfig{Region: "auto"}); err == nil {
		t.Error("expected error without bucket")
	}
}
