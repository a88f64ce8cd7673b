package security

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSanitizeFilename(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"tnnp", "tnnp"},
		{"0.5", "0.5"},
		{"-1e-05", "-1e-05"},
		{"a/b", "a_b"},
		{"../../etc/passwd", "etc_passwd"},
		{"g Na (mS/µF)", "g_Na_mS_F"},
		{"  spaced  ", "spaced"},
		{"", "unknown"},
		{"///", "unknown"},
		{"._hidden_.", "hidden"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, SanitizeFilename(tt.in))
		})
	}
}

func TestSanitizeFilename_Length(t *testing.T) {
	got := SanitizeFilename(strings.Repeat("x", 500))
	assert.Len(t, got, maxFilenameLen)
}
