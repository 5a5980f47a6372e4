package ports

import (
	"context"

	"github.com/mikey/ransomware-scanner/internal/core"
)

// ScanFrontend defines the interface for the surfaces that accept files for scanning
type ScanFrontend interface {
	// ProcessFile scans a file and returns the result
	ProcessFile(ctx context.Context, file core.RawFile) (*core.ScanResult, error)

	// Start starts the frontend
	Start() error

	// Stop stops the frontend
	Stop() error
}
