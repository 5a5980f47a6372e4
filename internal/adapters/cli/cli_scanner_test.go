package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/mikey/ransomware-scanner/internal/adapters/storage"
	"github.com/mikey/ransomware-scanner/internal/classifier"
	"github.com/mikey/ransomware-scanner/internal/core"
	"github.com/mikey/ransomware-scanner/internal/features"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// peClassifier flags every file carrying a PE header
type peClassifier struct{}

func (peClassifier) Schema() features.Schema { return features.DefaultSchema() }

func (peClassifier) EncodeExtension(string) int { return classifier.UnknownCategory }

func (peClassifier) Predict(vector []float64) (core.Label, error) {
	// is_pe is the last field of the default schema
	if vector[len(vector)-1] == 1 {
		return core.LabelRansomware, nil
	}
	return core.LabelBenign, nil
}

func (peClassifier) Version() string { return "pe-1" }

func (peClassifier) Available() bool { return true }

func newTestScanner(t *testing.T, c core.Classifier, verbose, jsonOutput bool) (*Scanner, *bytes.Buffer) {
	t.Helper()
	logger := zap.NewNop()
	service := core.NewScanService(c, storage.NewMemoryLog(logger), logger, core.ScanOptions{MaxFileSize: 1024})
	scanner, err := NewScanner(service, logger, verbose, jsonOutput)
	require.NoError(t, err)

	out := &bytes.Buffer{}
	scanner.SetOutput(out)
	return scanner, out
}

func TestProcessFile(t *testing.T) {
	scanner, out := newTestScanner(t, peClassifier{}, false, false)

	result, err := scanner.ProcessFile(context.Background(), core.RawFile{Name: "setup.exe", Data: []byte("MZ\x90\x00")})
	require.NoError(t, err)
	assert.Equal(t, core.LabelRansomware, result.Prediction)

	report := out.String()
	assert.Contains(t, report, "File: setup.exe")
	assert.Contains(t, report, "Model: pe-1 (available: true)")
	assert.Contains(t, report, "Verdict: Ransomware Detected!")
	assert.Contains(t, report, "Recorded: true")
	assert.NotContains(t, report, "=== Features ===")
}

func TestScanPathVerbose(t *testing.T) {
	scanner, out := newTestScanner(t, peClassifier{}, true, false)

	path := filepath.Join(t.TempDir(), "notes.txt")
	require.NoError(t, os.WriteFile(path, []byte("plain text notes"), 0o644))

	result, err := scanner.ScanPath(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, "notes.txt", result.Filename)
	assert.Equal(t, core.LabelBenign, result.Prediction)

	report := out.String()
	assert.Contains(t, report, "Verdict: File is Safe.")
	assert.Contains(t, report, "=== Features ===")
	assert.Contains(t, report, "File size: 16 bytes")
	assert.Contains(t, report, "Extension code: -1")
}

func TestScanReaderJSON(t *testing.T) {
	scanner, out := newTestScanner(t, peClassifier{}, false, true)

	_, err := scanner.ScanReader(context.Background(), "stdin.bin", strings.NewReader("MZ payload"))
	require.NoError(t, err)

	var result core.ScanResult
	require.NoError(t, json.Unmarshal(out.Bytes(), &result))
	assert.Equal(t, "stdin.bin", result.Filename)
	assert.True(t, result.Features.IsPE)
	assert.Equal(t, "pe-1", result.ModelVersion)
}

func TestScanPathMissing(t *testing.T) {
	scanner, out := newTestScanner(t, peClassifier{}, false, false)

	_, err := scanner.ScanPath(context.Background(), filepath.Join(t.TempDir(), "missing.bin"))
	require.Error(t, err)
	assert.ErrorIs(t, err, core.ErrExtractionFailed)
	assert.Contains(t, out.String(), "Error:")
}

func TestProcessFileModelUnavailable(t *testing.T) {
	scanner, out := newTestScanner(t, classifier.NewUnavailable(errors.New("no artifacts")), false, false)

	_, err := scanner.ProcessFile(context.Background(), core.RawFile{Name: "a.bin", Data: []byte("x")})
	require.Error(t, err)
	assert.ErrorIs(t, err, core.ErrModelUnavailable)
	assert.Contains(t, out.String(), "available: false")
}

func TestStartStop(t *testing.T) {
	scanner, _ := newTestScanner(t, peClassifier{}, false, false)
	assert.NoError(t, scanner.Start())
	assert.NoError(t, scanner.Stop())
}
