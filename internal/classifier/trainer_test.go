package classifier

import (
	"math/rand"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mikey/ransomware-scanner/internal/features"
)

// syntheticDataset builds rows where encrypted-looking files are ransomware
func syntheticDataset(n int, seed int64) *Dataset {
	rng := rand.New(rand.NewSource(seed))
	ds := &Dataset{Columns: append([]string{LabelColumn}, features.ModelFeatures...)}

	for i := 0; i < n; i++ {
		label := i % 2
		row := features.Row{}
		if label == 1 {
			row[features.FileSize] = float64(50000 + rng.Intn(500000))
			row[features.EntropyBits] = 7.6 + rng.Float64()*0.4
			row[features.NumStrings] = float64(rng.Intn(40))
			row[features.NonASCIIRatio] = 0.45 + rng.Float64()*0.1
			row[features.IsPE] = float64(rng.Intn(2))
		} else {
			row[features.FileSize] = float64(1000 + rng.Intn(500000))
			row[features.EntropyBits] = 3 + rng.Float64()*3
			row[features.NumStrings] = float64(100 + rng.Intn(2000))
			row[features.NonASCIIRatio] = rng.Float64() * 0.2
			row[features.IsPE] = float64(rng.Intn(2))
		}
		ds.Rows = append(ds.Rows, row)
		ds.Labels = append(ds.Labels, label)
	}
	return ds
}

func smallOptions() TrainOptions {
	opts := DefaultTrainOptions()
	opts.NumTrees = 15
	return opts
}

func TestTrainSeparatesClasses(t *testing.T) {
	result, err := Train(syntheticDataset(400, 1), smallOptions(), nil)
	require.NoError(t, err)

	assert.GreaterOrEqual(t, result.Metrics.Accuracy, 0.95)
	assert.Equal(t, 80, result.Metrics.TestSamples)
	assert.Equal(t, 320, result.Metrics.TrainSamples)
	assert.Equal(t, 40, result.Metrics.Classes["1"].Support)

	c, err := New(result.Model, result.Encoders)
	require.NoError(t, err)

	label, err := c.Predict([]float64{200000, 7.95, 5, 0.5, 0})
	require.NoError(t, err)
	assert.EqualValues(t, 1, label)

	label, err = c.Predict([]float64{20000, 4.5, 900, 0.05, 1})
	require.NoError(t, err)
	assert.EqualValues(t, 0, label)
}

func TestTrainIsReproducible(t *testing.T) {
	first, err := Train(syntheticDataset(200, 3), smallOptions(), nil)
	require.NoError(t, err)
	second, err := Train(syntheticDataset(200, 3), smallOptions(), nil)
	require.NoError(t, err)

	assert.Equal(t, first.Model.Forest, second.Model.Forest)
	assert.NotEqual(t, first.Model.TrainingID, second.Model.TrainingID)
}

func TestTrainArtifactsAreCoVersioned(t *testing.T) {
	result, err := Train(syntheticDataset(100, 5), smallOptions(), nil)
	require.NoError(t, err)

	assert.Equal(t, result.Model.TrainingID, result.Encoders.TrainingID)
	assert.Equal(t, result.Model.Schema.Version, result.Encoders.SchemaVersion)
	assert.Equal(t, features.DefaultSchema(), result.Model.Schema)
	assert.Len(t, result.Model.Forest.Trees, 15)
	assert.NoError(t, result.Model.Forest.Validate())
}

func TestTrainMissingSchemaColumn(t *testing.T) {
	ds := syntheticDataset(50, 9)
	for _, row := range ds.Rows {
		delete(row, features.NonASCIIRatio)
	}

	_, err := Train(ds, smallOptions(), nil)
	assert.ErrorIs(t, err, features.ErrSchemaMismatch)
}

func TestTrainRequiresBothClasses(t *testing.T) {
	ds := syntheticDataset(10, 11)
	for i := range ds.Labels {
		ds.Labels[i] = 0
	}

	_, err := Train(ds, smallOptions(), nil)
	assert.Error(t, err)
}

func TestTrainRejectsInvalidTestSize(t *testing.T) {
	opts := smallOptions()
	opts.TestSize = 1
	_, err := Train(syntheticDataset(10, 1), opts, nil)
	assert.Error(t, err)
}

func TestTrainMaxDepth(t *testing.T) {
	opts := smallOptions()
	opts.MaxDepth = 1
	result, err := Train(syntheticDataset(100, 2), opts, nil)
	require.NoError(t, err)

	for _, tree := range result.Model.Forest.Trees {
		assert.LessOrEqual(t, len(tree.Nodes), 3)
	}
}

func TestStratifiedSplit(t *testing.T) {
	labels := make([]int, 100)
	for i := 0; i < 30; i++ {
		labels[i] = 1
	}

	train, test := stratifiedSplit(labels, 0.2, rand.New(rand.NewSource(42)))
	assert.Len(t, test, 20)
	assert.Len(t, train, 80)

	flagged := 0
	for _, i := range test {
		flagged += labels[i]
	}
	assert.Equal(t, 6, flagged)
}

func TestTrainWithExtensionCode(t *testing.T) {
	csv := "file_size,entropy,num_strings,non_ascii_ratio,is_pe,extension,label\n"
	rows := []string{
		"1200,4.1,80,0.02,0,txt,0",
		"5400,4.8,150,0.05,1,exe,0",
		"9000,3.9,400,0.01,0,doc,0",
		"7000,5.2,90,0.1,1,dll,0",
		"80000,7.9,3,0.5,0,locked,1",
		"64000,7.95,1,0.49,0,enc,1",
		"91000,7.88,6,0.51,1,locked,1",
		"70000,7.97,2,0.5,0,crypt,1",
	}
	ds, err := LoadCSV(strings.NewReader(csv + strings.Join(rows, "\n")))
	require.NoError(t, err)

	opts := smallOptions()
	opts.TestSize = 0
	opts.Schema = features.NewSchema(append(append([]string{}, features.ModelFeatures...), features.ExtensionCode)...)

	result, err := Train(ds, opts, nil)
	require.NoError(t, err)
	assert.Equal(t, 0, result.Metrics.TestSamples)
	assert.Equal(t, []string{"crypt", "dll", "doc", "enc", "exe", "locked", "txt"},
		result.Encoders.Encoders[ExtensionEncoder].Classes())

	c, err := New(result.Model, result.Encoders)
	require.NoError(t, err)
	assert.Equal(t, 5, c.EncodeExtension("locked"))
	assert.Equal(t, UnknownCategory, c.EncodeExtension("pdf"))
}
