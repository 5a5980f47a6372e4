package core

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/mikey/ransomware-scanner/internal/features"
)

// TimestampFormat is the canonical ISO-8601 UTC layout of persisted timestamps
const TimestampFormat = "2006-01-02T15:04:05.000000Z"

// RawFile represents an uploaded file
type RawFile struct {
	Name string
	Data []byte
}

// Label is the binary decision of the classifier
type Label int

const (
	// LabelBenign means the file was not flagged
	LabelBenign Label = 0
	// LabelRansomware means the file looks ransomware-like
	LabelRansomware Label = 1
)

// Verdict returns the human readable text for the label
func (l Label) Verdict() string {
	if l == LabelRansomware {
		return "Ransomware Detected!"
	}
	return "File is Safe."
}

// Valid reports whether l is one of the two known labels
func (l Label) Valid() bool {
	return l == LabelBenign || l == LabelRansomware
}

// Stage is a step of the scan pipeline
type Stage string

const (
	StageReceived    Stage = "received"
	StageExtracting  Stage = "extracting"
	StageVectorizing Stage = "vectorizing"
	StageClassifying Stage = "classifying"
	StagePersisting  Stage = "persisting"
	StageCompleted   Stage = "completed"
	StageFailed      Stage = "failed"
)

// ScanResult represents the outcome of a single scan. It is not modified
// once the service has returned it.
type ScanResult struct {
	ID           string
	Filename     string
	SHA256       string
	Features     features.FeatureSet
	Prediction   Label
	Verdict      string
	ModelVersion string
	Timestamp    time.Time
	Persisted    bool
}

// scanRecord is the canonical serialized form of a ScanResult
type scanRecord struct {
	ID           string              `json:"id"`
	Filename     string              `json:"filename"`
	SHA256       string              `json:"sha256"`
	Features     features.FeatureSet `json:"features"`
	Prediction   int                 `json:"prediction"`
	Verdict      string              `json:"verdict"`
	ModelVersion string              `json:"model_version"`
	Timestamp    string              `json:"timestamp"`
	Persisted    bool                `json:"persisted"`
}

// MarshalJSON implements json.Marshaler
func (r ScanResult) MarshalJSON() ([]byte, error) {
	return json.Marshal(scanRecord{
		ID:           r.ID,
		Filename:     r.Filename,
		SHA256:       r.SHA256,
		Features:     r.Features,
		Prediction:   int(r.Prediction),
		Verdict:      r.Verdict,
		ModelVersion: r.ModelVersion,
		Timestamp:    r.Timestamp.UTC().Format(TimestampFormat),
		Persisted:    r.Persisted,
	})
}

// UnmarshalJSON implements json.Unmarshaler
func (r *ScanResult) UnmarshalJSON(data []byte) error {
	var rec scanRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return err
	}

	ts, err := time.Parse(TimestampFormat, rec.Timestamp)
	if err != nil {
		// Accept any RFC 3339 timestamp written by other producers
		ts, err = time.Parse(time.RFC3339Nano, rec.Timestamp)
		if err != nil {
			return fmt.Errorf("invalid scan timestamp %q: %w", rec.Timestamp, err)
		}
	}

	label := Label(rec.Prediction)
	if !label.Valid() {
		return fmt.Errorf("invalid prediction %d", rec.Prediction)
	}

	*r = ScanResult{
		ID:           rec.ID,
		Filename:     rec.Filename,
		SHA256:       rec.SHA256,
		Features:     rec.Features,
		Prediction:   label,
		Verdict:      rec.Verdict,
		ModelVersion: rec.ModelVersion,
		Timestamp:    ts.UTC(),
		Persisted:    rec.Persisted,
	}
	return nil
}
