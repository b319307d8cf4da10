package client

import (
	_ "embed"
	"strings"
)

//go:embed upload_script.html
var uploadScript string

const bodyClose = "</body>"

// UploadScript returns the interactive figure-box upload script.
func UploadScript() string {
	return uploadScript
}

// CleanHTML removes markdown code fences and surrounding whitespace.
// Applying it twice gives the same result as applying it once.
func CleanHTML(text string) string {
	text = strings.ReplaceAll(text, "```html", "")
	text = strings.ReplaceAll(text, "```", "")
	return strings.TrimSpace(text)
}

// InjectScript puts script right before the first </body>, or appends it
// when the document has no closing body tag.
func InjectScript(html, script string) string {
	if strings.Contains(html, bodyClose) {
		return strings.Replace(html, bodyClose, script+bodyClose, 1)
	}
	return html + script
}
