package classifier

import (
	"errors"
	"fmt"
	"time"

	"github.com/mikey/ransomware-scanner/internal/core"
	"github.com/mikey/ransomware-scanner/internal/features"
)

// ForestClassifier is an implementation of the Classifier interface backed by
// a decision forest. It is never mutated after New returns.
type ForestClassifier struct {
	schema     features.Schema
	forest     Forest
	extensions *CategoryEncoder
	version    string
	trainedAt  time.Time
}

// New builds a classifier from a model and the encoders of the same training run
func New(model *ModelArtifact, enc *EncoderArtifact) (*ForestClassifier, error) {
	if err := checkPair(model, enc); err != nil {
		return nil, fmt.Errorf("%w: %w", core.ErrModelUnavailable, err)
	}

	return &ForestClassifier{
		schema:     features.NewSchema(model.Schema.Fields...),
		forest:     model.Forest,
		extensions: enc.Encoders[ExtensionEncoder],
		version:    model.TrainingID,
		trainedAt:  model.TrainedAt,
	}, nil
}

// Schema returns a copy of the training schema
func (c *ForestClassifier) Schema() features.Schema {
	return features.NewSchema(c.schema.Fields...)
}

// EncodeExtension maps ext through the fitted extension encoder. Extensions
// never seen in training map to UnknownCategory.
func (c *ForestClassifier) EncodeExtension(ext string) int {
	return c.extensions.Encode(features.NormalizeExtension(ext))
}

// Predict classifies vector by majority vote of the forest
func (c *ForestClassifier) Predict(vector []float64) (core.Label, error) {
	if len(vector) != len(c.schema.Fields) {
		return core.LabelBenign, fmt.Errorf("%w: vector has %d values, schema %s declares %d",
			core.ErrSchemaMismatch, len(vector), c.schema.Version, len(c.schema.Fields))
	}

	label, err := c.forest.Predict(vector)
	if err != nil {
		return core.LabelBenign, fmt.Errorf("%w: %w", core.ErrPredictionFailed, err)
	}
	return core.Label(label), nil
}

// Version returns the training id of the loaded artifacts
func (c *ForestClassifier) Version() string {
	return c.version
}

// TrainedAt returns when the model was trained
func (c *ForestClassifier) TrainedAt() time.Time {
	return c.trainedAt
}

// Available always reports true for a loaded forest
func (c *ForestClassifier) Available() bool {
	return true
}

// Unavailable stands in for a model that failed to load. Every prediction
// fails with core.ErrModelUnavailable.
type Unavailable struct {
	cause error
}

// NewUnavailable creates a placeholder classifier for a load failure
func NewUnavailable(cause error) *Unavailable {
	return &Unavailable{cause: cause}
}

// Schema returns the default schema so extraction still validates
func (u *Unavailable) Schema() features.Schema {
	return features.DefaultSchema()
}

// EncodeExtension always returns UnknownCategory
func (u *Unavailable) EncodeExtension(string) int {
	return UnknownCategory
}

// Predict always fails
func (u *Unavailable) Predict([]float64) (core.Label, error) {
	if errors.Is(u.cause, core.ErrModelUnavailable) {
		return core.LabelBenign, u.cause
	}
	return core.LabelBenign, fmt.Errorf("%w: %v", core.ErrModelUnavailable, u.cause)
}

// Version reports that no model is loaded
func (u *Unavailable) Version() string {
	return "unavailable"
}

// Available always reports false
func (u *Unavailable) Available() bool {
	return false
}
