package config

import (
	"fmt"
	"time"
)

// ServerConfig represents the configuration for the scan frontend
type ServerConfig struct {
	Frontend      string
	ListenAddress string
	StaticDir     string
	ReadTimeout   time.Duration
	WriteTimeout  time.Duration
	CORSOrigins   []string
}

// ScannerConfig represents the per-scan resource limits
type ScannerConfig struct {
	MaxFileSize int64
	ReadTimeout time.Duration
}

// ModelConfig represents the location of the classifier artifacts
type ModelConfig struct {
	Path         string
	EncodersPath string
	Required     bool
}

// RedisConfig represents the configuration for the Redis scan log
type RedisConfig struct {
	Address  string
	Password string
	DB       int
	Key      string
}

// MongoDBConfig represents the configuration for the MongoDB scan log
type MongoDBConfig struct {
	URI        string
	Database   string
	Collection string
}

// StorageConfig represents the configuration for the scan log
type StorageConfig struct {
	Type           string
	WriteTimeout   time.Duration
	ConnectTimeout time.Duration
	SQLitePath     string
	MySQLDSN       string
	Redis          RedisConfig
	MongoDB        MongoDBConfig
}

// GetServer returns the server configuration
func (c *Config) GetServer() (ServerConfig, error) {
	readTimeout, err := c.GetDuration("server.read_timeout")
	if err != nil {
		return ServerConfig{}, err
	}
	writeTimeout, err := c.GetDuration("server.write_timeout")
	if err != nil {
		return ServerConfig{}, err
	}

	return ServerConfig{
		Frontend:      c.GetString("server.frontend"),
		ListenAddress: c.GetString("server.listen_address"),
		StaticDir:     c.GetString("server.static_dir"),
		ReadTimeout:   readTimeout,
		WriteTimeout:  writeTimeout,
		CORSOrigins:   c.GetStringSlice("server.cors_origins"),
	}, nil
}

// GetScanner returns the scanner configuration
func (c *Config) GetScanner() (ScannerConfig, error) {
	readTimeout, err := c.GetDuration("scanner.read_timeout")
	if err != nil {
		return ScannerConfig{}, err
	}

	maxFileSize := c.GetInt64("scanner.max_file_size")
	if maxFileSize < 0 {
		return ScannerConfig{}, fmt.Errorf("invalid scanner.max_file_size: %d", maxFileSize)
	}

	return ScannerConfig{
		MaxFileSize: maxFileSize,
		ReadTimeout: readTimeout,
	}, nil
}

// GetModel returns the model configuration
func (c *Config) GetModel() ModelConfig {
	return ModelConfig{
		Path:         c.GetString("model.path"),
		EncodersPath: c.GetString("model.encoders_path"),
		Required:     c.GetBool("model.required"),
	}
}

// GetStorage returns the storage configuration
func (c *Config) GetStorage() (StorageConfig, error) {
	writeTimeout, err := c.GetDuration("storage.write_timeout")
	if err != nil {
		return StorageConfig{}, err
	}
	connectTimeout, err := c.GetDuration("storage.connect_timeout")
	if err != nil {
		return StorageConfig{}, err
	}

	return StorageConfig{
		Type:           c.GetString("storage.type"),
		WriteTimeout:   writeTimeout,
		ConnectTimeout: connectTimeout,
		SQLitePath:     c.GetString("storage.sqlite_path"),
		MySQLDSN:       c.GetString("storage.mysql_dsn"),
		Redis: RedisConfig{
			Address:  c.GetString("storage.redis.address"),
			Password: c.GetString("storage.redis.password"),
			DB:       c.GetInt("storage.redis.db"),
			Key:      c.GetString("storage.redis.key"),
		},
		MongoDB: MongoDBConfig{
			URI:        c.GetString("storage.mongodb.uri"),
			Database:   c.GetString("storage.mongodb.database"),
			Collection: c.GetString("storage.mongodb.collection"),
		},
	}, nil
}
