package factory

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/mikey/ransomware-scanner/internal/adapters/storage"
	"github.com/mikey/ransomware-scanner/internal/config"
	"github.com/mikey/ransomware-scanner/internal/core"
	"go.uber.org/zap"
)

// StorageFactory creates scan logs based on configuration
type StorageFactory struct {
	cfg    *config.Config
	logger *zap.Logger
}

// NewStorageFactory creates a new storage factory
func NewStorageFactory(cfg *config.Config, logger *zap.Logger) *StorageFactory {
	return &StorageFactory{
		cfg:    cfg,
		logger: logger,
	}
}

// CreateScanLog creates a scan log based on the configuration. A backend
// that cannot be reached is replaced by storage.UnavailableLog so scanning
// keeps working. Storage type "none" disables recording.
func (f *StorageFactory) CreateScanLog() (core.ScanLogRepository, error) {
	storageConfig, err := f.cfg.GetStorage()
	if err != nil {
		return nil, fmt.Errorf("invalid storage configuration: %w", err)
	}

	var scanLog core.ScanLogRepository
	switch storageConfig.Type {
	case "none":
		f.logger.Info("Scan log disabled")
		return nil, nil
	case "memory":
		return storage.NewMemoryLog(f.logger), nil
	case "sqlite":
		// Ensure directory exists
		if err = os.MkdirAll(filepath.Dir(storageConfig.SQLitePath), 0755); err == nil {
			scanLog, err = storage.NewSQLiteLog(storageConfig.SQLitePath, f.logger)
		}
	case "mysql":
		scanLog, err = storage.NewMySQLLog(storageConfig.MySQLDSN, f.logger, storageConfig.ConnectTimeout)
	case "redis":
		scanLog, err = storage.NewRedisLog(storage.RedisOptions{
			Address:  storageConfig.Redis.Address,
			Password: storageConfig.Redis.Password,
			DB:       storageConfig.Redis.DB,
			Key:      storageConfig.Redis.Key,
		}, f.logger, storageConfig.ConnectTimeout)
	case "mongodb":
		scanLog, err = storage.NewMongoLog(storage.MongoOptions{
			URI:        storageConfig.MongoDB.URI,
			Database:   storageConfig.MongoDB.Database,
			Collection: storageConfig.MongoDB.Collection,
		}, f.logger, storageConfig.ConnectTimeout)
	default:
		return nil, fmt.Errorf("unsupported storage type: %s", storageConfig.Type)
	}

	if err != nil {
		f.logger.Warn("Scan log unavailable, results will not be recorded",
			zap.String("type", storageConfig.Type),
			zap.Error(err))
		return storage.NewUnavailableLog(err), nil
	}

	f.logger.Info("Scan log ready", zap.String("type", storageConfig.Type))
	return scanLog, nil
}

// GetWriteTimeout returns the configured bound on scan log appends
func (f *StorageFactory) GetWriteTimeout() (time.Duration, error) {
	return f.cfg.GetDuration("storage.write_timeout")
}
