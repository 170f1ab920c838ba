// Package textx provides small text utilities used across the project.
package textx

import (
	"strings"

	"github.com/gabriel-vasile/mimetype"
)

const bom = "\uFEFF"

// SanitizeText removes control characters except tab/newline/CR and trims spaces.
func SanitizeText(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if r == '\n' || r == '\r' || r == '\t' || (r >= 32 && r != 127) {
			b.WriteRune(r)
		}
	}
	return strings.TrimSpace(b.String())
}

// StripBOM drops a leading UTF-8 byte order mark.
func StripBOM(s string) string {
	return strings.TrimPrefix(s, bom)
}

// ContainsAnyFold reports whether s contains any keyword, ignoring case.
func ContainsAnyFold(s string, keywords []string) bool {
	lower := strings.ToLower(s)
	for _, k := range keywords {
		if strings.Contains(lower, strings.ToLower(k)) {
			return true
		}
	}
	return false
}

// FilterContaining keeps the items that mention any keyword, preserving order.
func FilterContaining(items, keywords []string) []string {
	out := make([]string, 0, len(items))
	for _, it := range items {
		if ContainsAnyFold(it, keywords) {
			out = append(out, it)
		}
	}
	return out
}

// IsPlainText sniffs b and reports whether it is a text document (plain text,
// markdown, JSON, YAML and similar). Binary uploads such as PDFs or images are rejected.
func IsPlainText(b []byte) bool {
	if len(b) == 0 {
		return true
	}
	for m := mimetype.Detect(b); m != nil; m = m.Parent() {
		if m.Is("text/plain") {
			return true
		}
	}
	return false
}
