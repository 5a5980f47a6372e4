package di

import (
	"go.uber.org/dig"
	"go.uber.org/zap"

	"github.com/mikey/ransomware-scanner/internal/config"
	"github.com/mikey/ransomware-scanner/internal/core"
	"github.com/mikey/ransomware-scanner/internal/factory"
	"github.com/mikey/ransomware-scanner/internal/logging"
	"github.com/mikey/ransomware-scanner/internal/ports"
	"github.com/mikey/ransomware-scanner/internal/utils"
)

// BuildContainer creates and configures a dependency injection container
func BuildContainer() (*dig.Container, error) {
	container := dig.New()

	// Register configuration
	if err := container.Provide(config.New); err != nil {
		return nil, err
	}

	// Register logger
	if err := container.Provide(logging.InitLogger); err != nil {
		return nil, err
	}

	if err := provideScanning(container); err != nil {
		return nil, err
	}

	// Register scan frontend
	if err := container.Provide(factory.NewFrontendFactory); err != nil {
		return nil, err
	}
	if err := container.Provide(func(f *factory.FrontendFactory) (ports.ScanFrontend, error) {
		return f.CreateScanFrontend()
	}); err != nil {
		return nil, err
	}

	return container, nil
}

// provideScanning registers everything needed to build a ScanService. The
// container must already provide *config.Config and *zap.Logger.
func provideScanning(container *dig.Container) error {
	// Register factories
	if err := container.Provide(factory.NewClassifierFactory); err != nil {
		return err
	}
	if err := container.Provide(factory.NewStorageFactory); err != nil {
		return err
	}
	if err := container.Provide(factory.NewSanitizerFactory); err != nil {
		return err
	}

	// Register classifier
	if err := container.Provide(func(f *factory.ClassifierFactory) (core.Classifier, error) {
		return f.CreateClassifier()
	}); err != nil {
		return err
	}

	// Register scan log
	if err := container.Provide(func(f *factory.StorageFactory) (core.ScanLogRepository, error) {
		return f.CreateScanLog()
	}); err != nil {
		return err
	}

	// Register scan limits
	if err := container.Provide(func(cfg *config.Config, f *factory.StorageFactory, logger *zap.Logger) (core.ScanOptions, error) {
		scannerConfig, err := cfg.GetScanner()
		if err != nil {
			return core.ScanOptions{}, err
		}
		writeTimeout, err := f.GetWriteTimeout()
		if err != nil {
			return core.ScanOptions{}, err
		}
		logger.Debug("Scan limits",
			zap.Int64("max_file_size", scannerConfig.MaxFileSize),
			zap.Duration("read_timeout", scannerConfig.ReadTimeout),
			zap.Duration("write_timeout", writeTimeout))
		return core.ScanOptions{
			MaxFileSize:  scannerConfig.MaxFileSize,
			ReadTimeout:  scannerConfig.ReadTimeout,
			WriteTimeout: writeTimeout,
		}, nil
	}); err != nil {
		return err
	}

	// Register filename sanitizer
	if err := container.Provide(func(f *factory.SanitizerFactory) *utils.FilenameSanitizer {
		return f.CreateSanitizer()
	}); err != nil {
		return err
	}

	// Register scan service
	return container.Provide(core.NewScanService)
}
