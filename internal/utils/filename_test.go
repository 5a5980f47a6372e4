package utils

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

func TestSanitize(t *testing.T) {
	fs := NewFilenameSanitizer(zap.NewNop())

	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"plain", "report.pdf", "report.pdf"},
		{"spaces", "My cool movie.mov", "My_cool_movie.mov"},
		{"traversal", "../../../etc/passwd", "etc_passwd"},
		{"windows path", `C:\Users\bob\invoice.exe`, "C_Users_bob_invoice.exe"},
		{"accents", "résumé.docx", "resume.docx"},
		{"non latin", "файл.txt", "txt"},
		{"leading dots", "...hidden.locked", "hidden.locked"},
		{"trailing underscore", "name_.", "name"},
		{"shell chars", "a;rm -rf $(x).sh", "arm_-rf_x.sh"},
		{"device name", "con.txt", "_con.txt"},
		{"device name bare", "NUL", "_NUL"},
		{"not a device", "console.log", "console.log"},
		{"empty", "", ""},
		{"only unsafe", "../..", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, fs.Sanitize(tt.input))
		})
	}
}

func TestSanitizeOrDefault(t *testing.T) {
	fs := NewFilenameSanitizer(zap.NewNop())

	assert.Equal(t, "sample.exe", fs.SanitizeOrDefault("sample.exe"))
	assert.Equal(t, FallbackFilename, fs.SanitizeOrDefault("///"))
	assert.Equal(t, FallbackFilename, fs.SanitizeOrDefault(""))
}

func TestTruncateFilename(t *testing.T) {
	fs := NewFilenameSanitizer(zap.NewNop())

	assert.Equal(t, "short.txt", fs.TruncateFilename("short.txt", 20))
	assert.Equal(t, "abcdefghij", fs.TruncateFilename("abcdefghij", 0))
	assert.Equal(t, "abc.txt", fs.TruncateFilename("abcdefghij.txt", 7))
	assert.Equal(t, "abcde", fs.TruncateFilename("abcdefghij", 5))

	long := strings.Repeat("a", 300) + ".exe"
	sanitized := fs.Sanitize(long)
	assert.Len(t, sanitized, MaxFilenameLength)
	assert.True(t, strings.HasSuffix(sanitized, ".exe"))
}
