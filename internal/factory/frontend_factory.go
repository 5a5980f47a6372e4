package factory

import (
	"fmt"

	"github.com/mikey/ransomware-scanner/internal/adapters/cli"
	"github.com/mikey/ransomware-scanner/internal/adapters/web"
	"github.com/mikey/ransomware-scanner/internal/config"
	"github.com/mikey/ransomware-scanner/internal/core"
	"github.com/mikey/ransomware-scanner/internal/ports"
	"github.com/mikey/ransomware-scanner/internal/utils"
	"go.uber.org/zap"
)

// FrontendFactory creates scan frontends based on configuration
type FrontendFactory struct {
	cfg         *config.Config
	logger      *zap.Logger
	scanService *core.ScanService
	sanitizer   *utils.FilenameSanitizer
}

// NewFrontendFactory creates a new frontend factory
func NewFrontendFactory(
	cfg *config.Config,
	logger *zap.Logger,
	scanService *core.ScanService,
	sanitizer *utils.FilenameSanitizer,
) *FrontendFactory {
	return &FrontendFactory{
		cfg:         cfg,
		logger:      logger,
		scanService: scanService,
		sanitizer:   sanitizer,
	}
}

// CreateScanFrontend creates a scan frontend based on the configuration
func (f *FrontendFactory) CreateScanFrontend() (ports.ScanFrontend, error) {
	serverConfig, err := f.cfg.GetServer()
	if err != nil {
		return nil, fmt.Errorf("invalid server configuration: %w", err)
	}

	switch serverConfig.Frontend {
	case "http":
		scannerConfig, err := f.cfg.GetScanner()
		if err != nil {
			return nil, fmt.Errorf("invalid scanner configuration: %w", err)
		}
		return web.NewServer(f.scanService, f.sanitizer, f.logger, web.Config{
			ListenAddress: serverConfig.ListenAddress,
			StaticDir:     serverConfig.StaticDir,
			ReadTimeout:   serverConfig.ReadTimeout,
			WriteTimeout:  serverConfig.WriteTimeout,
			CORSOrigins:   serverConfig.CORSOrigins,
			MaxFileSize:   scannerConfig.MaxFileSize,
		}), nil
	case "cli":
		return cli.NewScanner(
			f.scanService,
			f.logger,
			f.cfg.GetBool("cli.verbose"),
			f.cfg.GetBool("cli.json"),
		)
	default:
		return nil, fmt.Errorf("unsupported frontend: %s", serverConfig.Frontend)
	}
}
