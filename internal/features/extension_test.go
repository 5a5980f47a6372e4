package features

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExtension(t *testing.T) {
	tests := []struct {
		filename string
		expected string
	}{
		{"invoice.PDF", "pdf"},
		{"archive.tar.gz", "gz"},
		{"README", ""},
		{".bashrc", ""},
		{"..hidden.txt", "txt"},
		{"dir/setup.exe", "exe"},
		{`C:\Users\me\payload.Dll`, "dll"},
		{"trailing.", ""},
	}

	for _, tt := range tests {
		t.Run(tt.filename, func(t *testing.T) {
			assert.Equal(t, tt.expected, Extension(tt.filename))
		})
	}
}

func TestNormalizeExtension(t *testing.T) {
	assert.Equal(t, "exe", NormalizeExtension(".EXE"))
	assert.Equal(t, "exe", NormalizeExtension(" exe "))
	assert.Equal(t, "", NormalizeExtension(""))
}
