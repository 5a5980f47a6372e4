package storage

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/mikey/ransomware-scanner/internal/core"
	"github.com/mikey/ransomware-scanner/internal/features"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func sampleResult(id, name string, label core.Label) *core.ScanResult {
	return &core.ScanResult{
		ID:       id,
		Filename: name,
		SHA256:   "e3b0c44298fc1c149afbf4c8996fb92427ae41e4649b934ca495991b7852b855",
		Features: features.FeatureSet{
			FileSize:       10,
			Entropy:        1.5,
			NumStrings:     2,
			NonASCIIRatio:  0.25,
			PrintableRatio: 0.75,
			IsPE:           true,
			ExtensionCode:  3,
		},
		Prediction:   label,
		Verdict:      label.Verdict(),
		ModelVersion: "run-1",
		Timestamp:    time.Date(2024, 5, 1, 12, 30, 0, 123456000, time.UTC),
	}
}

func TestMemoryLogKeepsInsertionOrder(t *testing.T) {
	log := NewMemoryLog(zap.NewNop())
	ctx := context.Background()

	require.NoError(t, log.Append(ctx, sampleResult("a", "a.txt", core.LabelBenign)))
	require.NoError(t, log.Append(ctx, sampleResult("b", "b.exe", core.LabelRansomware)))
	require.NoError(t, log.Append(ctx, sampleResult("c", "c.dll", core.LabelBenign)))

	results, err := log.ListAll(ctx)
	require.NoError(t, err)
	require.Len(t, results, 3)
	assert.Equal(t, "a", results[0].ID)
	assert.Equal(t, "b", results[1].ID)
	assert.Equal(t, "c", results[2].ID)
	for _, r := range results {
		assert.True(t, r.Persisted)
	}
}

func TestMemoryLogStoresCopies(t *testing.T) {
	log := NewMemoryLog(zap.NewNop())
	ctx := context.Background()

	original := sampleResult("a", "a.txt", core.LabelBenign)
	require.NoError(t, log.Append(ctx, original))
	original.Filename = "changed.txt"
	assert.False(t, original.Persisted)

	results, err := log.ListAll(ctx)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "a.txt", results[0].Filename)

	results[0].Filename = "mutated.txt"
	again, err := log.ListAll(ctx)
	require.NoError(t, err)
	assert.Equal(t, "a.txt", again[0].Filename)
}

func TestMemoryLogEmpty(t *testing.T) {
	log := NewMemoryLog(zap.NewNop())
	results, err := log.ListAll(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, results)
	assert.Empty(t, results)
}

func TestMemoryLogRejectsNil(t *testing.T) {
	log := NewMemoryLog(zap.NewNop())
	assert.Error(t, log.Append(context.Background(), nil))
}

func TestMemoryLogCancelledContext(t *testing.T) {
	log := NewMemoryLog(zap.NewNop())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := log.Append(ctx, sampleResult("a", "a.txt", core.LabelBenign))
	assert.ErrorIs(t, err, context.Canceled)
}

func TestUnavailableLog(t *testing.T) {
	cause := errors.New("connection refused")
	log := NewUnavailableLog(cause)
	ctx := context.Background()

	err := log.Append(ctx, sampleResult("a", "a.txt", core.LabelBenign))
	require.Error(t, err)
	assert.ErrorIs(t, err, core.ErrSinkUnavailable)
	assert.Contains(t, err.Error(), "connection refused")

	results, err := log.ListAll(ctx)
	require.NoError(t, err)
	assert.NotNil(t, results)
	assert.Empty(t, results)
}

func TestSQLiteLogRoundTrip(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "scans.db")
	log, err := NewSQLiteLog(dbPath, zap.NewNop())
	require.NoError(t, err)
	defer log.Stop()

	ctx := context.Background()
	first := sampleResult("11111111-1111-1111-1111-111111111111", "first.exe", core.LabelRansomware)
	second := sampleResult("22222222-2222-2222-2222-222222222222", "second.txt", core.LabelBenign)
	require.NoError(t, log.Append(ctx, first))
	require.NoError(t, log.Append(ctx, second))

	results, err := log.ListAll(ctx)
	require.NoError(t, err)
	require.Len(t, results, 2)

	assert.Equal(t, first.ID, results[0].ID)
	assert.Equal(t, second.ID, results[1].ID)
	assert.Equal(t, first.Features, results[0].Features)
	assert.Equal(t, core.LabelRansomware, results[0].Prediction)
	assert.Equal(t, "Ransomware Detected!", results[0].Verdict)
	assert.True(t, first.Timestamp.Equal(results[0].Timestamp))
	assert.True(t, results[0].Persisted)
}

func TestSQLiteLogReopen(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "scans.db")
	ctx := context.Background()

	log, err := NewSQLiteLog(dbPath, zap.NewNop())
	require.NoError(t, err)
	require.NoError(t, log.Append(ctx, sampleResult("a", "a.txt", core.LabelBenign)))
	log.Stop()

	reopened, err := NewSQLiteLog(dbPath, zap.NewNop())
	require.NoError(t, err)
	defer reopened.Stop()

	results, err := reopened.ListAll(ctx)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "a", results[0].ID)
}

func TestSQLiteLogDuplicateID(t *testing.T) {
	log, err := NewSQLiteLog(filepath.Join(t.TempDir(), "scans.db"), zap.NewNop())
	require.NoError(t, err)
	defer log.Stop()

	ctx := context.Background()
	require.NoError(t, log.Append(ctx, sampleResult("a", "a.txt", core.LabelBenign)))
	assert.Error(t, log.Append(ctx, sampleResult("a", "again.txt", core.LabelBenign)))
}

func TestSQLiteLogSkipsCorruptRecords(t *testing.T) {
	log, err := NewSQLiteLog(filepath.Join(t.TempDir(), "scans.db"), zap.NewNop())
	require.NoError(t, err)
	defer log.Stop()

	ctx := context.Background()
	require.NoError(t, log.Append(ctx, sampleResult("a", "a.txt", core.LabelBenign)))
	_, err = log.db.Exec(`
		INSERT INTO scan_logs (id, filename, sha256, prediction, scanned_at, record)
		VALUES ('bad', 'bad.bin', '', 0, '', '{not json')
	`)
	require.NoError(t, err)

	results, err := log.ListAll(ctx)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "a", results[0].ID)
}

func TestScanDocumentConversion(t *testing.T) {
	original := sampleResult("a", "a.exe", core.LabelRansomware)
	doc := newScanDocument(original)

	assert.Equal(t, "a", doc.ID)
	assert.Equal(t, 1, doc.Prediction)
	assert.Equal(t, int64(10), doc.Features.FileSize)

	restored := doc.toResult()
	assert.Equal(t, original.Features, restored.Features)
	assert.Equal(t, original.Filename, restored.Filename)
	assert.Equal(t, original.Verdict, restored.Verdict)
	assert.True(t, original.Timestamp.Equal(restored.Timestamp))
	assert.True(t, restored.Persisted)
}

func TestRecordRoundTrip(t *testing.T) {
	original := sampleResult("a", "a.exe", core.LabelRansomware)
	data, err := encodeRecord(original)
	require.NoError(t, err)

	restored, err := decodeRecord(data)
	require.NoError(t, err)
	assert.Equal(t, original.ID, restored.ID)
	assert.True(t, restored.Persisted)

	_, err = decodeRecord([]byte(`{"prediction": 7, "timestamp": "2024-05-01T12:30:00.000000Z"}`))
	assert.Error(t, err)
}
