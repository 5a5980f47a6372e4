package core

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/mikey/ransomware-scanner/internal/features"
)

// ScanOptions bounds the resources a single scan may use
type ScanOptions struct {
	// MaxFileSize is the largest file accepted, in bytes. Zero disables the cap.
	MaxFileSize int64
	// ReadTimeout bounds reading a file from a stream or path
	ReadTimeout time.Duration
	// WriteTimeout bounds appending a result to the scan log
	WriteTimeout time.Duration
}

// ModelInfo describes the classifier behind the service
type ModelInfo struct {
	Version   string          `json:"version"`
	Available bool            `json:"available"`
	Schema    features.Schema `json:"schema"`
}

// ScanService is the core service for file classification
type ScanService struct {
	classifier Classifier
	scanLog    ScanLogRepository
	logger     *zap.Logger
	opts       ScanOptions
	now        func() time.Time
}

// NewScanService creates a new scan service. scanLog may be nil, in which
// case results are returned but never recorded.
func NewScanService(
	classifier Classifier,
	scanLog ScanLogRepository,
	logger *zap.Logger,
	opts ScanOptions,
) *ScanService {
	return &ScanService{
		classifier: classifier,
		scanLog:    scanLog,
		logger:     logger,
		opts:       opts,
		now:        time.Now,
	}
}

// Model returns information about the loaded classifier
func (s *ScanService) Model() ModelInfo {
	return ModelInfo{
		Version:   s.classifier.Version(),
		Available: s.classifier.Available(),
		Schema:    s.classifier.Schema(),
	}
}

// Scan classifies an in-memory file
func (s *ScanService) Scan(ctx context.Context, file RawFile) (*ScanResult, error) {
	logger := s.logger.With(zap.String("filename", file.Name))
	logger.Debug("Scan received",
		zap.String("stage", string(StageReceived)),
		zap.Int("size", len(file.Data)))

	// Extracting
	if s.opts.MaxFileSize > 0 && int64(len(file.Data)) > s.opts.MaxFileSize {
		return nil, s.fail(logger, newScanError(StageExtracting, ErrExtractionFailed,
			fmt.Errorf("%w: %d bytes, limit %d", ErrFileTooLarge, len(file.Data), s.opts.MaxFileSize)))
	}
	stats := features.ExtractByteStats(file.Data)
	digest := sha256.Sum256(file.Data)
	code := s.classifier.EncodeExtension(features.Extension(file.Name))
	featureSet := features.NewFeatureSet(int64(len(file.Data)), stats, code)
	logger.Debug("Features extracted",
		zap.Float64("entropy", featureSet.Entropy),
		zap.Int("num_strings", featureSet.NumStrings),
		zap.Bool("is_pe", featureSet.IsPE),
		zap.Int("extension_code", featureSet.ExtensionCode))

	// Vectorizing
	schema := s.classifier.Schema()
	vector, err := schema.Vectorize(featureSet)
	if err != nil {
		return nil, s.fail(logger, newScanError(StageVectorizing, ErrSchemaMismatch, err))
	}

	// Classifying
	label, err := s.classifier.Predict(vector)
	if err != nil {
		return nil, s.fail(logger, newScanError(StageClassifying, classifyKind(err), err))
	}

	result := &ScanResult{
		ID:           uuid.NewString(),
		Filename:     file.Name,
		SHA256:       hex.EncodeToString(digest[:]),
		Features:     featureSet,
		Prediction:   label,
		Verdict:      label.Verdict(),
		ModelVersion: s.classifier.Version(),
		Timestamp:    s.now().UTC(),
	}

	// Persisting
	result.Persisted = s.persist(ctx, logger, result)

	logger.Info("Scanned file",
		zap.String("scan_id", result.ID),
		zap.Int("prediction", int(result.Prediction)),
		zap.String("verdict", result.Verdict),
		zap.Bool("persisted", result.Persisted),
		zap.String("stage", string(StageCompleted)))

	return result, nil
}

// ScanReader reads a file from r, bounded by the configured size and read
// timeout, and classifies it
func (s *ScanService) ScanReader(ctx context.Context, name string, r io.Reader) (*ScanResult, error) {
	readCtx := ctx
	if s.opts.ReadTimeout > 0 {
		var cancel context.CancelFunc
		readCtx, cancel = context.WithTimeout(ctx, s.opts.ReadTimeout)
		defer cancel()
	}

	src := io.Reader(newContextReader(readCtx, r))
	if s.opts.MaxFileSize > 0 {
		// One extra byte tells an exact-size file from an oversized one
		src = io.LimitReader(src, s.opts.MaxFileSize+1)
	}

	data, err := io.ReadAll(src)
	if err != nil {
		return nil, s.fail(s.logger.With(zap.String("filename", name)),
			newScanError(StageExtracting, ErrExtractionFailed, fmt.Errorf("failed to read file: %w", err)))
	}

	return s.Scan(ctx, RawFile{Name: name, Data: data})
}

// ScanPath classifies a file on the local filesystem
func (s *ScanService) ScanPath(ctx context.Context, path string) (*ScanResult, error) {
	name := filepath.Base(path)
	logger := s.logger.With(zap.String("filename", name))

	info, err := os.Stat(path)
	if err != nil {
		return nil, s.fail(logger, newScanError(StageExtracting, ErrExtractionFailed, fmt.Errorf("failed to stat file: %w", err)))
	}
	if info.IsDir() {
		return nil, s.fail(logger, newScanError(StageExtracting, ErrExtractionFailed, fmt.Errorf("%s is a directory", path)))
	}
	if s.opts.MaxFileSize > 0 && info.Size() > s.opts.MaxFileSize {
		return nil, s.fail(logger, newScanError(StageExtracting, ErrExtractionFailed,
			fmt.Errorf("%w: %d bytes, limit %d", ErrFileTooLarge, info.Size(), s.opts.MaxFileSize)))
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, s.fail(logger, newScanError(StageExtracting, ErrExtractionFailed, fmt.Errorf("failed to open file: %w", err)))
	}
	defer f.Close()

	return s.ScanReader(ctx, name, f)
}

// History returns every recorded scan. An unreachable scan log yields an
// empty history rather than an error.
func (s *ScanService) History(ctx context.Context) []*ScanResult {
	if s.scanLog == nil {
		return []*ScanResult{}
	}

	results, err := s.scanLog.ListAll(ctx)
	if err != nil {
		s.logger.Warn("Failed to list scan history", zap.Error(err))
		return []*ScanResult{}
	}
	if results == nil {
		return []*ScanResult{}
	}
	return results
}

// persist appends result to the scan log and reports whether it was recorded
func (s *ScanService) persist(ctx context.Context, logger *zap.Logger, result *ScanResult) bool {
	if s.scanLog == nil {
		logger.Debug("Scan log disabled, result not recorded", zap.String("scan_id", result.ID))
		return false
	}

	writeCtx := ctx
	if s.opts.WriteTimeout > 0 {
		var cancel context.CancelFunc
		writeCtx, cancel = context.WithTimeout(ctx, s.opts.WriteTimeout)
		defer cancel()
	}

	if err := s.scanLog.Append(writeCtx, result); err != nil {
		logger.Warn("Failed to record scan result",
			zap.String("scan_id", result.ID),
			zap.String("stage", string(StagePersisting)),
			zap.Error(fmt.Errorf("%w: %w", ErrPersistenceFailed, err)))
		return false
	}
	return true
}

// fail logs a scan failure at a severity matching its kind
func (s *ScanService) fail(logger *zap.Logger, scanErr *ScanError) error {
	fields := []zap.Field{
		zap.String("stage", string(scanErr.Stage)),
		zap.String("state", string(StageFailed)),
		zap.Error(scanErr.Err),
	}

	switch {
	case errors.Is(scanErr, ErrSchemaMismatch):
		logger.Error("Feature schema mismatch between model and extractor", fields...)
	case errors.Is(scanErr, ErrModelUnavailable):
		logger.Error("Model unavailable", fields...)
	default:
		logger.Warn("Scan failed", fields...)
	}
	return scanErr
}

func classifyKind(err error) error {
	switch {
	case errors.Is(err, ErrModelUnavailable):
		return ErrModelUnavailable
	case errors.Is(err, ErrSchemaMismatch):
		return ErrSchemaMismatch
	default:
		return ErrPredictionFailed
	}
}

// readChunkSize is the size of a single read from the wrapped reader
const readChunkSize = 32 * 1024

// readResult is the outcome of one read on the wrapped reader
type readResult struct {
	n   int
	err error
}

// contextReader returns ctx.Err() as soon as its context is done, even while
// the wrapped reader is blocked. Reads run in a goroutine into a private
// buffer; a read abandoned on cancellation is never waited for again.
type contextReader struct {
	ctx     context.Context
	r       io.Reader
	buf     []byte
	pending []byte
	err     error
}

func newContextReader(ctx context.Context, r io.Reader) *contextReader {
	return &contextReader{ctx: ctx, r: r}
}

func (c *contextReader) Read(p []byte) (int, error) {
	if len(p) == 0 {
		return 0, nil
	}
	if len(c.pending) > 0 {
		n := copy(p, c.pending)
		c.pending = c.pending[n:]
		return n, nil
	}
	if c.err != nil {
		return 0, c.err
	}
	if err := c.ctx.Err(); err != nil {
		return 0, err
	}

	if c.buf == nil {
		c.buf = make([]byte, readChunkSize)
	}
	done := make(chan readResult, 1)
	go func(buf []byte) {
		n, err := c.r.Read(buf)
		done <- readResult{n: n, err: err}
	}(c.buf)

	select {
	case <-c.ctx.Done():
		// The goroutine may still write into buf
		c.buf = nil
		c.err = c.ctx.Err()
		return 0, c.err
	case res := <-done:
		n := copy(p, c.buf[:res.n])
		c.pending = c.buf[n:res.n]
		if len(c.pending) > 0 {
			c.err = res.err
			return n, nil
		}
		return n, res.err
	}
}
