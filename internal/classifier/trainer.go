package classifier

import (
	"errors"
	"fmt"
	"math"
	"math/rand"
	"runtime"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/mikey/ransomware-scanner/internal/features"
)

// TrainOptions configures forest training
type TrainOptions struct {
	// Schema is the ordered feature list the model will consume
	Schema features.Schema
	// NumTrees is the number of trees in the forest
	NumTrees int
	// MaxDepth limits tree depth. Zero grows trees until leaves are pure.
	MaxDepth int
	// MinSamplesSplit is the smallest node that may be split
	MinSamplesSplit int
	// MaxFeatures is the number of features sampled per split. Zero means sqrt(n).
	MaxFeatures int
	// TestSize is the stratified fraction of rows held out for evaluation
	TestSize float64
	// Seed makes training reproducible
	Seed int64
	// Workers is the number of trees fitted concurrently. Zero means GOMAXPROCS.
	Workers int
}

// DefaultTrainOptions returns the options used for the shipped model
func DefaultTrainOptions() TrainOptions {
	return TrainOptions{
		Schema:          features.DefaultSchema(),
		NumTrees:        200,
		MinSamplesSplit: 2,
		TestSize:        0.2,
		Seed:            42,
	}
}

// ClassReport holds the evaluation figures of one class
type ClassReport struct {
	Precision float64 `json:"precision"`
	Recall    float64 `json:"recall"`
	F1        float64 `json:"f1"`
	Support   int     `json:"support"`
}

// Metrics summarizes a training run
type Metrics struct {
	Accuracy     float64                `json:"accuracy"`
	TrainSamples int                    `json:"train_samples"`
	TestSamples  int                    `json:"test_samples"`
	Classes      map[string]ClassReport `json:"classes,omitempty"`
}

// TrainResult holds the co-versioned artifacts of a training run
type TrainResult struct {
	Model    *ModelArtifact
	Encoders *EncoderArtifact
	Metrics  Metrics
}

// Train fits a decision forest on ds. Every row is projected through the same
// Schema.Vectorize used at inference time, so a dataset lacking a schema
// column fails with features.ErrSchemaMismatch.
func Train(ds *Dataset, opts TrainOptions, logger *zap.Logger) (*TrainResult, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if err := opts.Schema.Validate(); err != nil {
		return nil, err
	}
	if opts.TestSize < 0 || opts.TestSize >= 1 {
		return nil, fmt.Errorf("test size must be in [0, 1), got %v", opts.TestSize)
	}
	opts = opts.withDefaults()

	X := make([][]float64, len(ds.Rows))
	for i, row := range ds.Rows {
		v, err := opts.Schema.Vectorize(row)
		if err != nil {
			return nil, fmt.Errorf("dataset row %d: %w", i+1, err)
		}
		X[i] = v
	}

	benign, ransomware := ds.ClassCounts()
	if benign == 0 || ransomware == 0 {
		return nil, errors.New("dataset must contain both benign and ransomware rows")
	}

	rng := rand.New(rand.NewSource(opts.Seed))
	trainIdx, testIdx := stratifiedSplit(ds.Labels, opts.TestSize, rng)

	logger.Info("Training decision forest",
		zap.Int("trees", opts.NumTrees),
		zap.Strings("features", opts.Schema.Fields),
		zap.Int("train_samples", len(trainIdx)),
		zap.Int("test_samples", len(testIdx)),
		zap.Int64("seed", opts.Seed))

	start := time.Now()
	forest := fitForest(X, ds.Labels, trainIdx, opts, rng)
	logger.Info("Training complete", zap.Duration("duration", time.Since(start)))

	metrics := evaluate(forest, X, ds.Labels, testIdx)
	metrics.TrainSamples = len(trainIdx)

	trainingID := uuid.NewString()
	encoders := map[string]*CategoryEncoder{}
	if ds.Extensions != nil {
		encoders[ExtensionEncoder] = ds.Extensions
	}

	return &TrainResult{
		Model: &ModelArtifact{
			Format:     ArtifactFormat,
			TrainingID: trainingID,
			TrainedAt:  time.Now().UTC(),
			Schema:     features.NewSchema(opts.Schema.Fields...),
			Forest:     *forest,
			Metrics:    &metrics,
		},
		Encoders: &EncoderArtifact{
			Format:        ArtifactFormat,
			TrainingID:    trainingID,
			SchemaVersion: opts.Schema.Version,
			Encoders:      encoders,
		},
		Metrics: metrics,
	}, nil
}

func (o TrainOptions) withDefaults() TrainOptions {
	n := len(o.Schema.Fields)
	if o.NumTrees <= 0 {
		o.NumTrees = 200
	}
	if o.MinSamplesSplit < 2 {
		o.MinSamplesSplit = 2
	}
	if o.MaxFeatures <= 0 || o.MaxFeatures > n {
		o.MaxFeatures = int(math.Sqrt(float64(n)))
		if o.MaxFeatures < 1 {
			o.MaxFeatures = 1
		}
	}
	if o.Workers <= 0 {
		o.Workers = runtime.GOMAXPROCS(0)
	}
	return o
}

// stratifiedSplit holds out testSize of each class, keeping at least one
// row of each class for training
func stratifiedSplit(labels []int, testSize float64, rng *rand.Rand) (train, test []int) {
	byClass := map[int][]int{}
	for i, l := range labels {
		byClass[l] = append(byClass[l], i)
	}

	for _, class := range []int{0, 1} {
		idx := byClass[class]
		rng.Shuffle(len(idx), func(i, j int) { idx[i], idx[j] = idx[j], idx[i] })

		nTest := int(math.Round(float64(len(idx)) * testSize))
		if testSize > 0 && nTest == 0 && len(idx) > 1 {
			nTest = 1
		}
		if nTest > len(idx)-1 {
			nTest = len(idx) - 1
		}

		test = append(test, idx[:nTest]...)
		train = append(train, idx[nTest:]...)
	}
	sort.Ints(train)
	sort.Ints(test)
	return train, test
}

func fitForest(X [][]float64, y []int, trainIdx []int, opts TrainOptions, rng *rand.Rand) *Forest {
	// Seeds are drawn up front so the result does not depend on scheduling
	seeds := make([]int64, opts.NumTrees)
	for i := range seeds {
		seeds[i] = rng.Int63()
	}

	trees := make([]Tree, opts.NumTrees)
	jobs := make(chan int)
	var wg sync.WaitGroup
	for w := 0; w < opts.Workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				trees[i] = fitTree(X, y, trainIdx, opts, rand.New(rand.NewSource(seeds[i])))
			}
		}()
	}
	for i := range trees {
		jobs <- i
	}
	close(jobs)
	wg.Wait()

	return &Forest{
		NumFeatures: len(opts.Schema.Fields),
		Trees:       trees,
	}
}

func fitTree(X [][]float64, y []int, trainIdx []int, opts TrainOptions, rng *rand.Rand) Tree {
	sample := make([]int, len(trainIdx))
	for i := range sample {
		sample[i] = trainIdx[rng.Intn(len(trainIdx))]
	}

	b := &treeBuilder{
		X:    X,
		y:    y,
		opts: opts,
		rng:  rng,
	}
	b.build(sample, 0)
	return Tree{Nodes: b.nodes}
}

// treeBuilder grows a CART tree with Gini impurity
type treeBuilder struct {
	X     [][]float64
	y     []int
	opts  TrainOptions
	rng   *rand.Rand
	nodes []Node
}

func (b *treeBuilder) build(idx []int, depth int) int {
	pos := 0
	for _, i := range idx {
		pos += b.y[i]
	}

	nodeIndex := len(b.nodes)
	label := 0
	if 2*pos > len(idx) {
		label = 1
	}
	b.nodes = append(b.nodes, Node{Feature: leafFeature, Label: label})

	if pos == 0 || pos == len(idx) || len(idx) < b.opts.MinSamplesSplit {
		return nodeIndex
	}
	if b.opts.MaxDepth > 0 && depth >= b.opts.MaxDepth {
		return nodeIndex
	}

	feature, threshold, ok := b.bestSplit(idx, pos)
	if !ok {
		return nodeIndex
	}

	var left, right []int
	for _, i := range idx {
		if b.X[i][feature] <= threshold {
			left = append(left, i)
		} else {
			right = append(right, i)
		}
	}

	l := b.build(left, depth+1)
	r := b.build(right, depth+1)
	b.nodes[nodeIndex] = Node{
		Feature:   feature,
		Threshold: threshold,
		Left:      l,
		Right:     r,
	}
	return nodeIndex
}

// bestSplit samples MaxFeatures features and returns the split with the
// lowest weighted Gini impurity. Like common CART implementations it keeps
// looking past MaxFeatures until at least one valid split is found.
func (b *treeBuilder) bestSplit(idx []int, totalPos int) (feature int, threshold float64, ok bool) {
	n := len(idx)
	best := math.Inf(1)
	sorted := make([]int, n)
	evaluated := 0

	for _, f := range b.rng.Perm(len(b.opts.Schema.Fields)) {
		if ok && evaluated >= b.opts.MaxFeatures {
			break
		}

		copy(sorted, idx)
		sort.Slice(sorted, func(i, j int) bool {
			return b.X[sorted[i]][f] < b.X[sorted[j]][f]
		})
		if b.X[sorted[0]][f] == b.X[sorted[n-1]][f] {
			continue
		}
		evaluated++

		leftPos := 0
		for i := 0; i < n-1; i++ {
			leftPos += b.y[sorted[i]]
			lo, hi := b.X[sorted[i]][f], b.X[sorted[i+1]][f]
			if lo == hi {
				continue
			}

			nl, nr := i+1, n-i-1
			impurity := (float64(nl)*gini(leftPos, nl) + float64(nr)*gini(totalPos-leftPos, nr)) / float64(n)
			if impurity < best {
				best = impurity
				feature = f
				threshold = lo + (hi-lo)/2
				if threshold >= hi {
					threshold = lo
				}
				ok = true
			}
		}
	}
	return feature, threshold, ok
}

func gini(pos, n int) float64 {
	p := float64(pos) / float64(n)
	q := 1 - p
	return 1 - p*p - q*q
}

func evaluate(forest *Forest, X [][]float64, y []int, testIdx []int) Metrics {
	metrics := Metrics{TestSamples: len(testIdx)}
	if len(testIdx) == 0 {
		return metrics
	}

	// confusion[actual][predicted]
	var confusion [2][2]int
	for _, i := range testIdx {
		pred, _ := forest.Predict(X[i])
		confusion[y[i]][pred]++
	}

	metrics.Accuracy = float64(confusion[0][0]+confusion[1][1]) / float64(len(testIdx))
	metrics.Classes = make(map[string]ClassReport, 2)
	for class := 0; class < 2; class++ {
		other := 1 - class
		tp := confusion[class][class]
		fp := confusion[other][class]
		fn := confusion[class][other]

		report := ClassReport{Support: tp + fn}
		if tp+fp > 0 {
			report.Precision = float64(tp) / float64(tp+fp)
		}
		if tp+fn > 0 {
			report.Recall = float64(tp) / float64(tp+fn)
		}
		if report.Precision+report.Recall > 0 {
			report.F1 = 2 * report.Precision * report.Recall / (report.Precision + report.Recall)
		}
		metrics.Classes[strconv.Itoa(class)] = report
	}
	return metrics
}
