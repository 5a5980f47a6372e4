package features

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleFeatureSet() FeatureSet {
	return FeatureSet{
		FileSize:       2048,
		Entropy:        7.5,
		NumStrings:     12,
		NonASCIIRatio:  0.4,
		PrintableRatio: 0.55,
		IsPE:           true,
		ExtensionCode:  4,
	}
}

func TestDefaultSchemaOrder(t *testing.T) {
	schema := DefaultSchema()

	require.NoError(t, schema.Validate())
	assert.Equal(t, []string{"file_size", "entropy", "num_strings", "non_ascii_ratio", "is_pe"}, schema.Fields)
	assert.NotContains(t, schema.Fields, PrintableRatio)
	assert.NotContains(t, schema.Fields, ExtensionCode)
}

func TestVectorizeFollowsSchemaOrder(t *testing.T) {
	vector, err := DefaultSchema().Vectorize(sampleFeatureSet())
	require.NoError(t, err)
	assert.Equal(t, []float64{2048, 7.5, 12, 0.4, 1}, vector)

	reordered := NewSchema(IsPE, ExtensionCode, EntropyBits)
	vector, err = reordered.Vectorize(sampleFeatureSet())
	require.NoError(t, err)
	assert.Equal(t, []float64{1, 4, 7.5}, vector)
}

func TestVectorizeIsIdempotent(t *testing.T) {
	schema := NewSchema(ComputedFeatures...)
	fs := sampleFeatureSet()

	first, err := schema.Vectorize(fs)
	require.NoError(t, err)
	second, err := schema.Vectorize(fs)
	require.NoError(t, err)

	assert.Equal(t, first, second)
}

func TestVectorizeMissingFeature(t *testing.T) {
	// A source built by a reduced extractor that never computed non_ascii_ratio
	reduced := Row{
		FileSize:    100,
		EntropyBits: 3.2,
		NumStrings:  1,
		IsPE:        0,
	}

	vector, err := DefaultSchema().Vectorize(reduced)
	assert.Nil(t, vector)
	assert.ErrorIs(t, err, ErrSchemaMismatch)
	assert.Contains(t, err.Error(), NonASCIIRatio)
}

func TestSchemaValidate(t *testing.T) {
	tests := []struct {
		name   string
		schema Schema
		ok     bool
	}{
		{name: "default", schema: DefaultSchema(), ok: true},
		{name: "all computed", schema: NewSchema(ComputedFeatures...), ok: true},
		{name: "empty", schema: NewSchema(), ok: false},
		{name: "unknown field", schema: NewSchema(FileSize, "section_count"), ok: false},
		{name: "duplicate field", schema: NewSchema(FileSize, FileSize), ok: false},
		{name: "other version", schema: Schema{Version: "byte-stats/v0", Fields: ModelFeatures}, ok: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.schema.Validate()
			if tt.ok {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, ErrSchemaMismatch)
			}
		})
	}
}

func TestNewSchemaCopiesFields(t *testing.T) {
	fields := []string{FileSize, EntropyBits}
	schema := NewSchema(fields...)
	fields[0] = IsPE

	assert.Equal(t, FileSize, schema.Fields[0])
}
