package util

import "strings"

// TruncateForLog caps a string at limit runes for log previews, marking the
// cut with an ellipsis. Advisor prompts and responses can be long; logs get
// the head only.
func TruncateForLog(s string, limit int) string {
	s = strings.TrimSpace(s)
	if limit <= 0 {
		return ""
	}
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit]) + "..."
}
