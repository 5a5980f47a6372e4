package classifier

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/mikey/ransomware-scanner/internal/core"
	"github.com/mikey/ransomware-scanner/internal/features"
)

// ArtifactFormat tags the on-disk layout of model and encoder blobs
const ArtifactFormat = "decision-forest/v1"

// ErrArtifactMismatch is returned when the model and encoder blobs come from
// different training runs
var ErrArtifactMismatch = errors.New("model and encoders were not trained together")

// ModelArtifact is the persisted decision forest together with the schema
// it was trained on
type ModelArtifact struct {
	Format     string          `json:"format"`
	TrainingID string          `json:"training_id"`
	TrainedAt  time.Time       `json:"trained_at"`
	Schema     features.Schema `json:"schema"`
	Forest     Forest          `json:"forest"`
	Metrics    *Metrics        `json:"metrics,omitempty"`
}

// EncoderArtifact is the persisted set of categorical encoders of a training run
type EncoderArtifact struct {
	Format        string                      `json:"format"`
	TrainingID    string                      `json:"training_id"`
	SchemaVersion string                      `json:"schema_version"`
	Encoders      map[string]*CategoryEncoder `json:"encoders"`
}

// checkPair verifies that a model and its encoders can be served together
func checkPair(model *ModelArtifact, enc *EncoderArtifact) error {
	if model.Format != ArtifactFormat {
		return fmt.Errorf("unsupported model format %q", model.Format)
	}
	if enc.Format != ArtifactFormat {
		return fmt.Errorf("unsupported encoder format %q", enc.Format)
	}
	if model.TrainingID == "" {
		return errors.New("model has no training id")
	}
	if model.TrainingID != enc.TrainingID {
		return fmt.Errorf("%w: model %s, encoders %s", ErrArtifactMismatch, model.TrainingID, enc.TrainingID)
	}
	if model.Schema.Version != enc.SchemaVersion {
		return fmt.Errorf("%w: model schema %s, encoders schema %s", ErrArtifactMismatch, model.Schema.Version, enc.SchemaVersion)
	}
	if err := model.Schema.Validate(); err != nil {
		return err
	}
	if model.Forest.NumFeatures != len(model.Schema.Fields) {
		return fmt.Errorf("%w: forest expects %d features, schema declares %d",
			features.ErrSchemaMismatch, model.Forest.NumFeatures, len(model.Schema.Fields))
	}
	return model.Forest.Validate()
}

// Load reads the model and encoder blobs and returns a ready classifier.
// Any failure is reported as core.ErrModelUnavailable.
func Load(modelPath, encodersPath string) (*ForestClassifier, error) {
	var model ModelArtifact
	if err := readJSON(modelPath, &model); err != nil {
		return nil, fmt.Errorf("%w: failed to load model: %w", core.ErrModelUnavailable, err)
	}

	var enc EncoderArtifact
	if err := readJSON(encodersPath, &enc); err != nil {
		return nil, fmt.Errorf("%w: failed to load encoders: %w", core.ErrModelUnavailable, err)
	}

	classifier, err := New(&model, &enc)
	if err != nil {
		return nil, err
	}
	return classifier, nil
}

// Save writes the model and encoder blobs. Each file is replaced atomically.
func Save(modelPath, encodersPath string, model *ModelArtifact, enc *EncoderArtifact) error {
	if err := checkPair(model, enc); err != nil {
		return fmt.Errorf("refusing to save inconsistent artifacts: %w", err)
	}
	if err := writeJSON(modelPath, model); err != nil {
		return fmt.Errorf("failed to save model: %w", err)
	}
	if err := writeJSON(encodersPath, enc); err != nil {
		return fmt.Errorf("failed to save encoders: %w", err)
	}
	return nil
}

func readJSON(path string, v interface{}) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("corrupt artifact %s: %w", path, err)
	}
	return nil
}

func writeJSON(path string, v interface{}) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".tmp-*")
	if err != nil {
		return err
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return err
	}
	return os.Rename(tmp.Name(), path)
}
