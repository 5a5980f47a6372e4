package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/mikey/ransomware-scanner/internal/config"
	"github.com/mikey/ransomware-scanner/internal/core"
	"github.com/mikey/ransomware-scanner/internal/di"
	"github.com/mikey/ransomware-scanner/internal/ports"
	"go.uber.org/zap"
)

func main() {
	// Build the dependency injection container
	container, err := di.BuildContainer()
	if err != nil {
		fmt.Printf("Failed to build dependency container: %v\n", err)
		os.Exit(1)
	}

	// Run the application
	if err := container.Invoke(run); err != nil {
		fmt.Printf("Application error: %v\n", err)
		os.Exit(1)
	}
}

// run is the main application function that gets all dependencies injected
func run(
	cfg *config.Config,
	logger *zap.Logger,
	frontend ports.ScanFrontend,
	service *core.ScanService,
	scanLog core.ScanLogRepository,
) error {
	defer logger.Sync()

	if cfg.GetString("logging.level") != "debug" {
		gin.SetMode(gin.ReleaseMode)
	}

	model := service.Model()
	logger.Info("Starting ransomware scanner",
		zap.String("config_file", cfg.GetViper().ConfigFileUsed()),
		zap.String("frontend", cfg.GetString("server.frontend")),
		zap.String("storage", cfg.GetString("storage.type")),
		zap.String("model_version", model.Version),
		zap.Bool("model_available", model.Available))

	// Start the frontend
	if err := frontend.Start(); err != nil {
		logger.Error("Failed to start frontend", zap.Error(err))
		return err
	}

	// Handle graceful shutdown
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	<-sigCh
	logger.Info("Shutting down...")

	// Stop the frontend
	if err := frontend.Stop(); err != nil {
		logger.Error("Failed to stop frontend", zap.Error(err))
	}

	// Stop the scan log if needed
	if stopper, ok := scanLog.(interface{ Stop() }); ok {
		stopper.Stop()
	}

	logger.Info("Shutdown complete")
	return nil
}
