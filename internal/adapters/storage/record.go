package storage

import (
	"encoding/json"
	"fmt"

	"github.com/mikey/ransomware-scanner/internal/core"
)

// encodeRecord returns the canonical JSON form stored by the SQL and Redis logs
func encodeRecord(result *core.ScanResult) ([]byte, error) {
	data, err := json.Marshal(result)
	if err != nil {
		return nil, fmt.Errorf("failed to encode scan result: %w", err)
	}
	return data, nil
}

// decodeRecord restores a stored result. Anything read back from a log has
// been persisted by definition.
func decodeRecord(data []byte) (*core.ScanResult, error) {
	var result core.ScanResult
	if err := json.Unmarshal(data, &result); err != nil {
		return nil, fmt.Errorf("failed to decode scan result: %w", err)
	}
	result.Persisted = true
	return &result, nil
}
