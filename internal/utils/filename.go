package utils

import (
	"path/filepath"
	"regexp"
	"strings"
	"unicode"

	"go.uber.org/zap"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// MaxFilenameLength is the longest name, in bytes, the sanitizer returns
const MaxFilenameLength = 255

// FallbackFilename replaces names that sanitize to nothing
const FallbackFilename = "unnamed"

var unsafeFilenameChars = regexp.MustCompile(`[^A-Za-z0-9_.-]`)

var windowsDeviceNames = map[string]struct{}{
	"CON": {}, "PRN": {}, "AUX": {}, "NUL": {},
	"COM1": {}, "COM2": {}, "COM3": {}, "COM4": {}, "COM5": {},
	"COM6": {}, "COM7": {}, "COM8": {}, "COM9": {},
	"LPT1": {}, "LPT2": {}, "LPT3": {}, "LPT4": {}, "LPT5": {},
	"LPT6": {}, "LPT7": {}, "LPT8": {}, "LPT9": {},
}

// FilenameSanitizer turns client supplied names into safe ASCII filenames
type FilenameSanitizer struct {
	logger *zap.Logger
}

// NewFilenameSanitizer creates a new FilenameSanitizer
func NewFilenameSanitizer(logger *zap.Logger) *FilenameSanitizer {
	return &FilenameSanitizer{
		logger: logger,
	}
}

// Sanitize returns a filename that contains only ASCII letters, digits,
// '_', '.' and '-', never starts or ends with '.' or '_', and cannot be
// used for path traversal. It returns "" when nothing usable remains.
func (fs *FilenameSanitizer) Sanitize(name string) string {
	// Decompose accented characters, then drop everything outside ASCII
	t := transform.Chain(norm.NFKD, runes.Remove(runes.Predicate(func(r rune) bool {
		return r > unicode.MaxASCII
	})))
	ascii, _, err := transform.String(t, name)
	if err != nil {
		fs.logger.Debug("Failed to normalize filename", zap.String("filename", name), zap.Error(err))
		ascii = ""
	}

	ascii = strings.NewReplacer("/", " ", "\\", " ").Replace(ascii)
	ascii = strings.Join(strings.Fields(ascii), "_")
	ascii = unsafeFilenameChars.ReplaceAllString(ascii, "")
	ascii = strings.Trim(ascii, "._")

	if ascii != "" {
		base := strings.ToUpper(strings.SplitN(ascii, ".", 2)[0])
		if _, reserved := windowsDeviceNames[base]; reserved {
			ascii = "_" + ascii
		}
	}

	ascii = fs.TruncateFilename(ascii, MaxFilenameLength)

	if ascii != name {
		fs.logger.Debug("Filename sanitized",
			zap.String("original", name),
			zap.String("sanitized", ascii))
	}

	return ascii
}

// SanitizeOrDefault sanitizes name and falls back to FallbackFilename
func (fs *FilenameSanitizer) SanitizeOrDefault(name string) string {
	if sanitized := fs.Sanitize(name); sanitized != "" {
		return sanitized
	}
	return FallbackFilename
}

// TruncateFilename shortens an ASCII filename to maxSize bytes, keeping its
// extension where the extension itself fits
func (fs *FilenameSanitizer) TruncateFilename(name string, maxSize int) string {
	if maxSize <= 0 || len(name) <= maxSize {
		return name
	}

	ext := filepath.Ext(name)
	if len(ext) >= maxSize {
		ext = ""
	}
	truncated := name[:maxSize-len(ext)] + ext

	fs.logger.Debug("Filename truncated",
		zap.Int("original_size", len(name)),
		zap.Int("truncated_size", len(truncated)),
		zap.Int("max_size", maxSize))

	return truncated
}
