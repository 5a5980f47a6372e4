package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/mikey/ransomware-scanner/internal/core"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// RedisOptions holds configuration for connecting to a Redis server
type RedisOptions struct {
	// Address is the host:port of the Redis server.
	Address string
	// Password is the password used to authenticate.
	Password string
	// DB is the database index to select.
	DB int
	// Key names the list holding the scan log.
	Key string
}

// DefaultRedisOptions returns options with localhost defaults
func DefaultRedisOptions() RedisOptions {
	return RedisOptions{
		Address: "localhost:6379",
		DB:      0,
		Key:     "ransomware-scanner:scan_logs",
	}
}

// RedisLog is a Redis implementation of the ScanLogRepository interface.
// Results are appended to a single list, which keeps insertion order.
type RedisLog struct {
	client *redis.Client
	key    string
	logger *zap.Logger
}

// NewRedisLog connects to Redis and verifies the connection
func NewRedisLog(opts RedisOptions, logger *zap.Logger, connectTimeout time.Duration) (*RedisLog, error) {
	if opts.Key == "" {
		opts.Key = DefaultRedisOptions().Key
	}

	client := redis.NewClient(&redis.Options{
		Addr:     opts.Address,
		Password: opts.Password,
		DB:       opts.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), connectTimeout)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to Redis at %s: %w", opts.Address, err)
	}

	logger.Info("Opened Redis scan log",
		zap.String("address", opts.Address),
		zap.Int("db", opts.DB),
		zap.String("key", opts.Key))

	return &RedisLog{
		client: client,
		key:    opts.Key,
		logger: logger,
	}, nil
}

// Append stores a scan result at the tail of the list
func (l *RedisLog) Append(ctx context.Context, result *core.ScanResult) error {
	record, err := encodeRecord(result)
	if err != nil {
		return err
	}

	if err := l.client.RPush(ctx, l.key, record).Err(); err != nil {
		return fmt.Errorf("failed to push scan result: %w", err)
	}
	return nil
}

// ListAll returns all scan results in insertion order
func (l *RedisLog) ListAll(ctx context.Context) ([]*core.ScanResult, error) {
	values, err := l.client.LRange(ctx, l.key, 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read scan logs: %w", err)
	}

	results := make([]*core.ScanResult, 0, len(values))
	for i, value := range values {
		result, err := decodeRecord([]byte(value))
		if err != nil {
			l.logger.Warn("Skipping corrupt scan log record", zap.Int("index", i), zap.Error(err))
			continue
		}
		results = append(results, result)
	}
	return results, nil
}

// Stop closes the Redis client
func (l *RedisLog) Stop() {
	if err := l.client.Close(); err != nil {
		l.logger.Error("Failed to close Redis client", zap.Error(err))
	}
}
