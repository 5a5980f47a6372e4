package main

import (
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/mikey/ransomware-scanner/internal/classifier"
	"github.com/mikey/ransomware-scanner/internal/features"
	"github.com/mikey/ransomware-scanner/internal/logging"
	"go.uber.org/zap"
)

var (
	// Input and output flags
	dataFile    = flag.String("data", "", "Training dataset (CSV with a label column)")
	modelOut    = flag.String("model-out", "./models/model.json", "Where to write the model artifact")
	encodersOut = flag.String("encoders-out", "./models/encoders.json", "Where to write the encoders artifact")

	// Forest flags
	numTrees        = flag.Int("trees", 200, "Number of trees in the forest")
	maxDepth        = flag.Int("max-depth", 0, "Maximum tree depth (0 for unlimited)")
	minSamplesSplit = flag.Int("min-samples-split", 2, "Smallest node that may be split")
	maxFeatures     = flag.Int("max-features", 0, "Features sampled per split (0 for sqrt of the feature count)")
	testSize        = flag.Float64("test-size", 0.2, "Fraction of rows held out for evaluation")
	seed            = flag.Int64("seed", 42, "Random seed")
	workers         = flag.Int("workers", 0, "Trees fitted concurrently (0 for GOMAXPROCS)")
	featureList     = flag.String("features", strings.Join(features.ModelFeatures, ","), "Comma-separated model features, in order")

	// Logging flags
	verbose = flag.Bool("verbose", false, "Enable verbose logging")
	jsonLog = flag.Bool("json-log", false, "Output logs in JSON format")
)

func main() {
	flag.Parse()

	logger, err := logging.InitConsoleLogger(*verbose, *jsonLog)
	if err != nil {
		fmt.Printf("Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	if *dataFile == "" {
		fmt.Fprintln(os.Stderr, "-data is required")
		flag.Usage()
		os.Exit(1)
	}

	opts := classifier.DefaultTrainOptions()
	opts.Schema = features.NewSchema(splitFeatures(*featureList)...)
	opts.NumTrees = *numTrees
	opts.MaxDepth = *maxDepth
	opts.MinSamplesSplit = *minSamplesSplit
	opts.MaxFeatures = *maxFeatures
	opts.TestSize = *testSize
	opts.Seed = *seed
	opts.Workers = *workers

	ds, err := classifier.LoadCSVFile(*dataFile)
	if err != nil {
		logger.Fatal("Failed to load dataset", zap.Error(err), zap.String("file", *dataFile))
	}
	benign, ransomware := ds.ClassCounts()
	logger.Info("Loaded dataset",
		zap.String("file", *dataFile),
		zap.Int("rows", len(ds.Rows)),
		zap.Int("benign", benign),
		zap.Int("ransomware", ransomware),
		zap.Strings("columns", ds.Columns))

	result, err := classifier.Train(ds, opts, logger)
	if err != nil {
		logger.Fatal("Training failed", zap.Error(err))
	}

	for _, path := range []string{*modelOut, *encodersOut} {
		if err := ensureDir(path); err != nil {
			logger.Fatal("Failed to create output directory", zap.Error(err), zap.String("path", path))
		}
	}
	if err := classifier.Save(*modelOut, *encodersOut, result.Model, result.Encoders); err != nil {
		logger.Fatal("Failed to save artifacts", zap.Error(err))
	}
	logger.Info("Saved artifacts",
		zap.String("training_id", result.Model.TrainingID),
		zap.String("model", *modelOut),
		zap.String("encoders", *encodersOut))

	printReport(os.Stdout, result)
}

func splitFeatures(list string) []string {
	var fields []string
	for _, field := range strings.Split(list, ",") {
		if field = strings.TrimSpace(field); field != "" {
			fields = append(fields, field)
		}
	}
	return fields
}

func ensureDir(path string) error {
	return os.MkdirAll(filepath.Dir(path), 0755)
}

func printReport(w io.Writer, result *classifier.TrainResult) {
	m := result.Metrics

	fmt.Fprintf(w, "\n=== Training Report ===\n")
	fmt.Fprintf(w, "Training ID: %s\n", result.Model.TrainingID)
	fmt.Fprintf(w, "Features: %s\n", strings.Join(result.Model.Schema.Fields, ", "))
	fmt.Fprintf(w, "Trees: %d\n", len(result.Model.Forest.Trees))
	fmt.Fprintf(w, "Train samples: %d\n", m.TrainSamples)
	fmt.Fprintf(w, "Test samples: %d\n", m.TestSamples)
	fmt.Fprintf(w, "Accuracy: %.4f\n", m.Accuracy)

	if len(m.Classes) == 0 {
		return
	}

	classes := make([]string, 0, len(m.Classes))
	for class := range m.Classes {
		classes = append(classes, class)
	}
	sort.Strings(classes)

	fmt.Fprintf(w, "\n%-8s %10s %10s %10s %10s\n", "class", "precision", "recall", "f1", "support")
	for _, class := range classes {
		r := m.Classes[class]
		fmt.Fprintf(w, "%-8s %10.4f %10.4f %10.4f %10d\n", class, r.Precision, r.Recall, r.F1, r.Support)
	}
}
