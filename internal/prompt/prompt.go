package prompt

import (
	_ "embed"
	"fmt"
	"os"
	"strings"
)

//go:embed system.tmpl
var systemPrompt string

// Default returns the embedded reconstruction prompt.
func Default() string {
	return systemPrompt
}

// Load returns the prompt stored at path, or the embedded prompt when path is empty.
func Load(path string) (string, error) {
	if path == "" {
		return systemPrompt, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read prompt file: %w", err)
	}
	text := string(data)
	if strings.TrimSpace(text) == "" {
		return "", fmt.Errorf("prompt file %s is empty", path)
	}
	return text, nil
}

// PageInstruction is the short per-request instruction naming the page range.
func PageInstruction(pageRange string) string {
	return fmt.Sprintf("Reconstruct Page %s. Strictly follow the CSS for COMPACT WIREFRAME images and single-page fit. Ensure the content is dense enough to fit on one A4 page.", pageRange)
}
