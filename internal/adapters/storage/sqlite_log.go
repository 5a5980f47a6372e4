package storage

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
	"github.com/mikey/ransomware-scanner/internal/core"
	"go.uber.org/zap"
)

// SQLiteLog is a SQLite implementation of the ScanLogRepository interface
type SQLiteLog struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewSQLiteLog opens (or creates) a SQLite scan log
func NewSQLiteLog(dbPath string, logger *zap.Logger) (*SQLiteLog, error) {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open SQLite database: %w", err)
	}

	// Create table if it doesn't exist
	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS scan_logs (
			seq INTEGER PRIMARY KEY AUTOINCREMENT,
			id TEXT NOT NULL UNIQUE,
			filename TEXT NOT NULL,
			sha256 TEXT NOT NULL,
			prediction INTEGER NOT NULL,
			scanned_at TEXT NOT NULL,
			record TEXT NOT NULL
		)
	`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create table: %w", err)
	}

	_, err = db.Exec(`
		CREATE INDEX IF NOT EXISTS idx_scan_logs_sha256 ON scan_logs(sha256)
	`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create index: %w", err)
	}

	return &SQLiteLog{
		db:     db,
		logger: logger,
	}, nil
}

// Append stores a scan result
func (l *SQLiteLog) Append(ctx context.Context, result *core.ScanResult) error {
	record, err := encodeRecord(result)
	if err != nil {
		return err
	}

	_, err = l.db.ExecContext(ctx, `
		INSERT INTO scan_logs (id, filename, sha256, prediction, scanned_at, record)
		VALUES (?, ?, ?, ?, ?, ?)
	`, result.ID, result.Filename, result.SHA256, int(result.Prediction),
		result.Timestamp.UTC().Format(core.TimestampFormat), string(record))
	if err != nil {
		return fmt.Errorf("failed to insert scan result: %w", err)
	}

	return nil
}

// ListAll returns all scan results in insertion order
func (l *SQLiteLog) ListAll(ctx context.Context) ([]*core.ScanResult, error) {
	rows, err := l.db.QueryContext(ctx, `
		SELECT id, record FROM scan_logs ORDER BY seq
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query scan logs: %w", err)
	}
	defer rows.Close()

	return scanRecords(rows, l.logger)
}

// Stop closes the database connection
func (l *SQLiteLog) Stop() {
	if err := l.db.Close(); err != nil {
		l.logger.Error("Failed to close SQLite database", zap.Error(err))
	}
}

// scanRecords decodes (id, record) rows. Undecodable records are logged and skipped.
func scanRecords(rows *sql.Rows, logger *zap.Logger) ([]*core.ScanResult, error) {
	results := make([]*core.ScanResult, 0)
	for rows.Next() {
		var id string
		var record []byte
		if err := rows.Scan(&id, &record); err != nil {
			return nil, fmt.Errorf("failed to read scan log row: %w", err)
		}

		result, err := decodeRecord(record)
		if err != nil {
			logger.Warn("Skipping corrupt scan log record", zap.String("scan_id", id), zap.Error(err))
			continue
		}
		results = append(results, result)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate scan logs: %w", err)
	}
	return results, nil
}
