package features

import (
	"errors"
	"fmt"
)

// SchemaVersion tags the feature definitions implemented by this package.
// Bump it whenever a feature's meaning changes.
const SchemaVersion = "byte-stats/v1"

// ErrSchemaMismatch is returned when a feature source does not satisfy a schema
var ErrSchemaMismatch = errors.New("feature schema mismatch")

// Schema is the ordered list of features a classifier was trained on
type Schema struct {
	Version string   `json:"version"`
	Fields  []string `json:"fields"`
}

// DefaultSchema returns the schema of the shipped model
func DefaultSchema() Schema {
	return NewSchema(ModelFeatures...)
}

// NewSchema creates a schema for the current feature version
func NewSchema(fields ...string) Schema {
	return Schema{
		Version: SchemaVersion,
		Fields:  append([]string(nil), fields...),
	}
}

// Validate checks that the schema can be served by this build
func (s Schema) Validate() error {
	if s.Version != SchemaVersion {
		return fmt.Errorf("%w: schema version %q, extractor provides %q", ErrSchemaMismatch, s.Version, SchemaVersion)
	}
	if len(s.Fields) == 0 {
		return fmt.Errorf("%w: schema declares no fields", ErrSchemaMismatch)
	}

	seen := make(map[string]struct{}, len(s.Fields))
	for _, field := range s.Fields {
		if !IsKnown(field) {
			return fmt.Errorf("%w: unknown feature %q", ErrSchemaMismatch, field)
		}
		if _, dup := seen[field]; dup {
			return fmt.Errorf("%w: duplicate feature %q", ErrSchemaMismatch, field)
		}
		seen[field] = struct{}{}
	}
	return nil
}

// Vectorize projects src onto the schema's field order
func (s Schema) Vectorize(src Source) ([]float64, error) {
	vector := make([]float64, len(s.Fields))
	for i, field := range s.Fields {
		v, ok := src.Value(field)
		if !ok {
			return nil, fmt.Errorf("%w: missing feature %q", ErrSchemaMismatch, field)
		}
		vector[i] = v
	}
	return vector, nil
}
