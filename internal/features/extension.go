package features

import (
	"path/filepath"
	"strings"
)

// Extension returns the normalized extension of filename. Leading dots of
// the base name are ignored so ".bashrc" has no extension.
func Extension(filename string) string {
	base := filepath.Base(strings.ReplaceAll(filename, "\\", "/"))
	return NormalizeExtension(filepath.Ext(strings.TrimLeft(base, ".")))
}

// NormalizeExtension lowercases ext and strips its leading dot
func NormalizeExtension(ext string) string {
	return strings.ToLower(strings.TrimPrefix(strings.TrimSpace(ext), "."))
}
