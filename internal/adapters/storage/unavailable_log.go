package storage

import (
	"context"
	"fmt"

	"github.com/mikey/ransomware-scanner/internal/core"
)

// UnavailableLog stands in for a scan log that could not be reached.
// Appends fail and the history is always empty, so scans keep running.
type UnavailableLog struct {
	cause error
}

// NewUnavailableLog creates a degraded scan log for the given failure
func NewUnavailableLog(cause error) *UnavailableLog {
	return &UnavailableLog{cause: cause}
}

// Append always fails with core.ErrSinkUnavailable
func (l *UnavailableLog) Append(ctx context.Context, result *core.ScanResult) error {
	return fmt.Errorf("%w: %v", core.ErrSinkUnavailable, l.cause)
}

// ListAll always returns an empty history
func (l *UnavailableLog) ListAll(ctx context.Context) ([]*core.ScanResult, error) {
	return []*core.ScanResult{}, nil
}
