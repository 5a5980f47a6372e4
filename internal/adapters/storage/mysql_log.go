package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/go-sql-driver/mysql"
	"github.com/mikey/ransomware-scanner/internal/core"
	"go.uber.org/zap"
)

const mysqlTimestampFormat = "2006-01-02 15:04:05.000000"

// MySQLLog is a MySQL implementation of the ScanLogRepository interface
type MySQLLog struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewMySQLLog connects to MySQL and prepares the scan log table
func NewMySQLLog(dsn string, logger *zap.Logger, connectTimeout time.Duration) (*MySQLLog, error) {
	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open MySQL database: %w", err)
	}

	// Test the connection
	ctx, cancel := context.WithTimeout(context.Background(), connectTimeout)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to MySQL database: %w", err)
	}

	// Create table if it doesn't exist
	_, err = db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS scan_logs (
			seq BIGINT AUTO_INCREMENT PRIMARY KEY,
			id CHAR(36) NOT NULL UNIQUE,
			filename VARCHAR(255) NOT NULL,
			sha256 CHAR(64) NOT NULL,
			prediction TINYINT NOT NULL,
			scanned_at DATETIME(6) NOT NULL,
			record JSON NOT NULL,
			INDEX idx_sha256 (sha256)
		)
	`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create table: %w", err)
	}

	return &MySQLLog{
		db:     db,
		logger: logger,
	}, nil
}

// Append stores a scan result
func (l *MySQLLog) Append(ctx context.Context, result *core.ScanResult) error {
	record, err := encodeRecord(result)
	if err != nil {
		return err
	}

	_, err = l.db.ExecContext(ctx, `
		INSERT INTO scan_logs (id, filename, sha256, prediction, scanned_at, record)
		VALUES (?, ?, ?, ?, ?, ?)
	`, result.ID, result.Filename, result.SHA256, int(result.Prediction),
		result.Timestamp.UTC().Format(mysqlTimestampFormat), string(record))
	if err != nil {
		return fmt.Errorf("failed to insert scan result: %w", err)
	}

	return nil
}

// ListAll returns all scan results in insertion order
func (l *MySQLLog) ListAll(ctx context.Context) ([]*core.ScanResult, error) {
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
func (l *MySQLLog) Stop() {
	if err := l.db.Close(); err != nil {
		l.logger.Error("Failed to close MySQL database", zap.Error(err))
	}
}
