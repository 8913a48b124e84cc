package http

import (
	"strings"
)

// sanitizeInput removes control characters except tab, newline and
// carriage return, and trims whitespace.
func sanitizeInput(s string) string {
	s = strings.TrimSpace(s)
	return strings.Map(func(r rune) rune {
		if r < 32 && r != 9 && r != 10 && r != 13 {
			return -1
		}
		return r
	}, s)
}

// attachmentName builds a Content-Disposition value for a download.
func attachmentName(filename string) string {
	return `attachment; filename="` + filename + `"`
}
