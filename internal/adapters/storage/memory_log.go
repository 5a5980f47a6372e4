package storage

import (
	"context"
	"errors"
	"sync"

	"github.com/mikey/ransomware-scanner/internal/core"
	"go.uber.org/zap"
)

// MemoryLog is an in-memory implementation of the ScanLogRepository interface.
// Its contents are lost on restart.
type MemoryLog struct {
	entries []core.ScanResult
	mu      sync.RWMutex
	logger  *zap.Logger
}

// NewMemoryLog creates a new in-memory scan log
func NewMemoryLog(logger *zap.Logger) *MemoryLog {
	return &MemoryLog{
		entries: make([]core.ScanResult, 0),
		logger:  logger,
	}
}

// Append stores a copy of result
func (l *MemoryLog) Append(ctx context.Context, result *core.ScanResult) error {
	if result == nil {
		return errors.New("scan result is nil")
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	entry := *result
	entry.Persisted = true
	l.entries = append(l.entries, entry)

	l.logger.Debug("Recorded scan result in memory",
		zap.String("scan_id", result.ID),
		zap.Int("entries", len(l.entries)))
	return nil
}

// ListAll returns copies of all results in insertion order
func (l *MemoryLog) ListAll(ctx context.Context) ([]*core.ScanResult, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	results := make([]*core.ScanResult, len(l.entries))
	for i := range l.entries {
		entry := l.entries[i]
		results[i] = &entry
	}
	return results, nil
}
