// Package security holds helpers for turning untrusted strings, such as
// parameter values read from result files, into safe file names.
package security

import "strings"

// maxFilenameLen bounds one sanitized name component.
const maxFilenameLen = 128

// SanitizeFilename maps s to a single path component made of ASCII letters,
// digits, dot, underscore and dash. Runs of any other characters become one
// underscore; leading and trailing dots and underscores are trimmed. An
// empty result is returned as "unknown".
func SanitizeFilename(s string) string {
	var b strings.Builder
	pending := false
	for _, r := range s {
		if b.Len() >= maxFilenameLen {
			break
		}
		if isFilenameRune(r) {
			if pending && b.Len() > 0 {
				b.WriteByte('_')
			}
			pending = false
			b.WriteRune(r)
			continue
		}
		pending = true
	}
	out := strings.Trim(b.String(), "._")
	if out == "" {
		return "unknown"
	}
	return out
}

func isFilenameRune(r rune) bool {
	switch {
	case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
		return true
	case r == '.' || r == '_' || r == '-':
		return true
	}
	return false
}
