package store

import (
	"strconv"
	"testing"
	"time"
)

func TestEntryEncodeDecode(t *testing.T) {
	start := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	end := start.Add(1500 * time.Millisecond)
	in := Entry{
		Outcome:    "upstream",
		StatusCode: 429,
		Message:    "quota exceeded",
		PageRange:  "15-17",
		MIMEType:   "image/png",
		Model:      "gemini-1.5-flash",
		Route:      "gateway",
		BaseURL:    "https://gateway.ai.cloudflare.com/v1/a/g/google-ai-studio",
		Start:      &start,
		End:        &end,
	}

	// Redis hands every field back as a string.
	raw := map[string]string{}
	for k, v := range encodeEntry(in) {
		switch x := v.(type) {
		case string:
			raw[k] = x
		case int:
			raw[k] = strconv.Itoa(x)
		default:
			t.Fatalf("unexpected field type %T for %s", v, k)
		}
	}

	out := decodeEntry(raw)
	if out.Outcome != in.Outcome || out.StatusCode != 429 || out.Message != in.Message || out.PageRange != in.PageRange {
		t.Errorf("decoded entry = %+v", out)
	}
	if out.Start == nil || !out.Start.Equal(start) || out.End == nil || !out.End.Equal(end) {
		t.Errorf("times = %v / %v", out.Start, out.End)
	}
}

func TestDecodeEntry_TolerantOfMissingFields(t *testing.T) {
	out := decodeEntry(map[string]string{"outcome": "success", "status_code": "x", "start": "yesterday"})
	if out.Outcome != "success" || out.StatusCode != 0 || out.Start != nil {
		t.Errorf("decoded entry = %+v", out)
	}
}

func TestKeyAndDefaultTTL(t *testing.T) {
	s := newRedisAudit(nil, 0)
	if got := s.key("abc"); got != "reconstruct:abc:audit" {
		t.Errorf("key() = %q", got)
	}
	if s.ttl != 24*time.Hour {
		t.Errorf("ttl = %v", s.ttl)
	}
}
