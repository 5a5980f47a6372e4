package core

import (
	"errors"
	"fmt"

	"github.com/mikey/ransomware-scanner/internal/features"
)

var (
	// ErrExtractionFailed is returned when the file could not be read or measured
	ErrExtractionFailed = errors.New("extraction failed")
	// ErrFileTooLarge is returned when a file exceeds the configured scan size
	ErrFileTooLarge = errors.New("file exceeds maximum scan size")
	// ErrSchemaMismatch is returned when features do not match the model schema
	ErrSchemaMismatch = features.ErrSchemaMismatch
	// ErrModelUnavailable is returned when no usable model is loaded
	ErrModelUnavailable = errors.New("model unavailable")
	// ErrPredictionFailed is returned when a loaded model fails to classify
	ErrPredictionFailed = errors.New("prediction failed")
	// ErrPersistenceFailed is recorded when a result could not be appended to the scan log
	ErrPersistenceFailed = errors.New("persistence failed")
	// ErrSinkUnavailable is returned by a scan log that could not be reached
	ErrSinkUnavailable = errors.New("scan log unavailable")
)

// ScanError describes a failed scan: the stage that failed, the error kind
// from the taxonomy above and the underlying cause.
type ScanError struct {
	Stage Stage
	Kind  error
	Err   error
}

func newScanError(stage Stage, kind, err error) *ScanError {
	return &ScanError{Stage: stage, Kind: kind, Err: err}
}

// Error implements error
func (e *ScanError) Error() string {
	if errors.Is(e.Err, e.Kind) {
		return fmt.Sprintf("%s: %v", e.Stage, e.Err)
	}
	return fmt.Sprintf("%s: %v: %v", e.Stage, e.Kind, e.Err)
}

// Unwrap exposes both the kind and the cause to errors.Is and errors.As
func (e *ScanError) Unwrap() []error {
	return []error{e.Kind, e.Err}
}
