package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/mikey/ransomware-scanner/internal/core"
	"github.com/mikey/ransomware-scanner/internal/features"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
	"go.uber.org/zap"
)

// MongoOptions holds configuration for connecting to MongoDB
type MongoOptions struct {
	URI        string
	Database   string
	Collection string
}

// MongoLog is a MongoDB implementation of the ScanLogRepository interface
type MongoLog struct {
	client     *mongo.Client
	collection *mongo.Collection
	logger     *zap.Logger
}

// scanDocument is the stored shape of a scan result
type scanDocument struct {
	ID           string          `bson:"_id"`
	Filename     string          `bson:"filename"`
	SHA256       string          `bson:"sha256"`
	Features     featureDocument `bson:"features"`
	Prediction   int             `bson:"prediction"`
	Verdict      string          `bson:"verdict"`
	ModelVersion string          `bson:"model_version"`
	Timestamp    time.Time       `bson:"timestamp"`
}

type featureDocument struct {
	FileSize       int64   `bson:"file_size"`
	Entropy        float64 `bson:"entropy"`
	NumStrings     int     `bson:"num_strings"`
	NonASCIIRatio  float64 `bson:"non_ascii_ratio"`
	PrintableRatio float64 `bson:"printable_ratio"`
	IsPE           bool    `bson:"is_pe"`
	ExtensionCode  int     `bson:"extension_code"`
}

// NewMongoLog connects to MongoDB and verifies the connection
func NewMongoLog(opts MongoOptions, logger *zap.Logger, connectTimeout time.Duration) (*MongoLog, error) {
	ctx, cancel := context.WithTimeout(context.Background(), connectTimeout)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(opts.URI))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to MongoDB: %w", err)
	}

	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		client.Disconnect(context.Background())
		return nil, fmt.Errorf("failed to ping MongoDB: %w", err)
	}

	logger.Info("Opened MongoDB scan log",
		zap.String("database", opts.Database),
		zap.String("collection", opts.Collection))

	return &MongoLog{
		client:     client,
		collection: client.Database(opts.Database).Collection(opts.Collection),
		logger:     logger,
	}, nil
}

// Append stores a scan result
func (l *MongoLog) Append(ctx context.Context, result *core.ScanResult) error {
	if _, err := l.collection.InsertOne(ctx, newScanDocument(result)); err != nil {
		return fmt.Errorf("failed to insert scan result: %w", err)
	}
	return nil
}

// ListAll returns all scan results in insertion order
func (l *MongoLog) ListAll(ctx context.Context) ([]*core.ScanResult, error) {
	findOpts := options.Find().SetSort(bson.D{{Key: "$natural", Value: 1}})
	cursor, err := l.collection.Find(ctx, bson.D{}, findOpts)
	if err != nil {
		return nil, fmt.Errorf("failed to query scan logs: %w", err)
	}
	defer cursor.Close(ctx)

	results := make([]*core.ScanResult, 0)
	for cursor.Next(ctx) {
		var doc scanDocument
		if err := cursor.Decode(&doc); err != nil {
			l.logger.Warn("Skipping corrupt scan log document", zap.Error(err))
			continue
		}
		results = append(results, doc.toResult())
	}
	if err := cursor.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate scan logs: %w", err)
	}
	return results, nil
}

// Stop disconnects the MongoDB client
func (l *MongoLog) Stop() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := l.client.Disconnect(ctx); err != nil {
		l.logger.Error("Failed to disconnect from MongoDB", zap.Error(err))
	}
}

func newScanDocument(result *core.ScanResult) scanDocument {
	fs := result.Features
	return scanDocument{
		ID:       result.ID,
		Filename: result.Filename,
		SHA256:   result.SHA256,
		Features: featureDocument{
			FileSize:       fs.FileSize,
			Entropy:        fs.Entropy,
			NumStrings:     fs.NumStrings,
			NonASCIIRatio:  fs.NonASCIIRatio,
			PrintableRatio: fs.PrintableRatio,
			IsPE:           fs.IsPE,
			ExtensionCode:  fs.ExtensionCode,
		},
		Prediction:   int(result.Prediction),
		Verdict:      result.Verdict,
		ModelVersion: result.ModelVersion,
		Timestamp:    result.Timestamp.UTC(),
	}
}

func (d scanDocument) toResult() *core.ScanResult {
	return &core.ScanResult{
		ID:       d.ID,
		Filename: d.Filename,
		SHA256:   d.SHA256,
		Features: features.FeatureSet{
			FileSize:       d.Features.FileSize,
			Entropy:        d.Features.Entropy,
			NumStrings:     d.Features.NumStrings,
			NonASCIIRatio:  d.Features.NonASCIIRatio,
			PrintableRatio: d.Features.PrintableRatio,
			IsPE:           d.Features.IsPE,
			ExtensionCode:  d.Features.ExtensionCode,
		},
		Prediction:   core.Label(d.Prediction),
		Verdict:      d.Verdict,
		ModelVersion: d.ModelVersion,
		Timestamp:    d.Timestamp.UTC(),
		Persisted:    true,
	}
}
