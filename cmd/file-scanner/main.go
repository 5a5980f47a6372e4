package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/mikey/ransomware-scanner/internal/adapters/cli"
	"github.com/mikey/ransomware-scanner/internal/core"
	"github.com/mikey/ransomware-scanner/internal/di"
	"go.uber.org/zap"
)

func main() {
	flags := di.ParseFlags()

	container, err := di.BuildCLIContainer(flags)
	if err != nil {
		fmt.Printf("Failed to build dependency container: %v\n", err)
		os.Exit(exitError)
	}

	var code int
	err = container.Invoke(func(
		logger *zap.Logger,
		scanner *cli.Scanner,
		scanLog core.ScanLogRepository,
	) {
		defer logger.Sync()
		code = scan(logger, scanner, flags.Files)

		// Stop the scan log if needed
		if stopper, ok := scanLog.(interface{ Stop() }); ok {
			stopper.Stop()
		}
	})
	if err != nil {
		fmt.Printf("Application error: %v\n", err)
		os.Exit(exitError)
	}

	os.Exit(code)
}

// Exit codes. A detection outranks a failure: a batch where any file was
// flagged exits with exitRansomware even if other files could not be scanned.
const (
	exitSafe       = 0
	exitError      = 1
	exitRansomware = 2
)

// scan scans every path, or stdin when there are none, and returns the exit code
func scan(logger *zap.Logger, scanner *cli.Scanner, paths []string) int {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if len(paths) == 0 {
		logger.Info("Reading file from stdin")
		result, err := scanner.ScanReader(ctx, "stdin", os.Stdin)
		return exitStatus(err == nil && flagged(result), err != nil)
	}

	var anyFlagged, anyFailed bool
	for _, path := range paths {
		result, err := scanner.ScanPath(ctx, path)
		if err != nil {
			anyFailed = true
			continue
		}
		anyFlagged = anyFlagged || flagged(result)
	}
	return exitStatus(anyFlagged, anyFailed)
}

func flagged(result *core.ScanResult) bool {
	return result.Prediction == core.LabelRansomware
}

func exitStatus(anyFlagged, anyFailed bool) int {
	switch {
	case anyFlagged:
		return exitRansomware
	case anyFailed:
		return exitError
	default:
		return exitSafe
	}
}
