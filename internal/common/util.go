package common

import "strings"

// MaskSecret renders at most the first 8 characters of a secret followed by
// an ellipsis. It is used wherever a token is logged.
func MaskSecret(s string) string {
	if s == "" {
		return ""
	}
	if len(s) <= 8 {
		return strings.Repeat("*", len(s))
	}
	return s[:8] + "..."
}
