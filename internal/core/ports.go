package core

import (
	"context"

	"github.com/mikey/ransomware-scanner/internal/features"
)

// Classifier defines the interface of a pre-trained file classifier.
// Implementations are immutable once constructed and safe for concurrent use.
type Classifier interface {
	// Schema returns the ordered features the model was trained on
	Schema() features.Schema

	// EncodeExtension maps a normalized file extension to its category code
	EncodeExtension(ext string) int

	// Predict classifies a vector laid out according to Schema
	Predict(vector []float64) (Label, error)

	// Version identifies the training run that produced the model
	Version() string

	// Available reports whether a model is loaded
	Available() bool
}

// ScanLogRepository defines the interface of the append-only scan log
type ScanLogRepository interface {
	// Append records a scan result
	Append(ctx context.Context, result *ScanResult) error

	// ListAll returns every recorded result in insertion order
	ListAll(ctx context.Context) ([]*ScanResult, error)
}
