package di

import (
	"flag"
	"os"
	"time"

	"go.uber.org/dig"
	"go.uber.org/zap"

	"github.com/mikey/ransomware-scanner/internal/adapters/cli"
	"github.com/mikey/ransomware-scanner/internal/config"
	"github.com/mikey/ransomware-scanner/internal/core"
	"github.com/mikey/ransomware-scanner/internal/logging"
)

// CLIFlags contains all command line flags for the CLI application
type CLIFlags struct {
	// Model flags
	ModelPath    string
	EncodersPath string

	// Scan flags
	MaxFileSize int64
	ReadTimeout time.Duration
	StorageType string
	SQLitePath  string

	// Output flags
	Verbose    bool
	JSONLog    bool
	JSONOutput bool
	ConfigFile string

	// Files to scan; stdin when empty
	Files []string
}

// ParseFlags parses command line flags and returns a CLIFlags struct
func ParseFlags() *CLIFlags {
	return ParseFlagSet(flag.CommandLine, nil)
}

// ParseFlagSet registers the CLI flags on fs and parses args. A nil args
// slice parses the process arguments.
func ParseFlagSet(fs *flag.FlagSet, args []string) *CLIFlags {
	flags := &CLIFlags{}

	// Model flags
	fs.StringVar(&flags.ModelPath, "model", "./models/model.json", "Path to the model artifact")
	fs.StringVar(&flags.EncodersPath, "encoders", "./models/encoders.json", "Path to the encoders artifact")

	// Scan flags
	fs.Int64Var(&flags.MaxFileSize, "max-file-size", 50*1024*1024, "Largest file to scan in bytes (0 for no limit)")
	fs.DurationVar(&flags.ReadTimeout, "read-timeout", 30*time.Second, "Give up reading a file or stdin after this long (0 for no limit)")
	fs.StringVar(&flags.StorageType, "storage", "none", "Scan log to record results in (none, memory, sqlite)")
	fs.StringVar(&flags.SQLitePath, "sqlite-path", "./scan_logs.db", "SQLite scan log path")

	// Output flags
	fs.BoolVar(&flags.Verbose, "verbose", false, "Enable verbose logging and print all features")
	fs.BoolVar(&flags.JSONLog, "json-log", false, "Output logs in JSON format")
	fs.BoolVar(&flags.JSONOutput, "json", false, "Print results as JSON")
	fs.StringVar(&flags.ConfigFile, "config", "", "Path to config file (overrides command line flags)")

	if args == nil {
		args = os.Args[1:]
	}
	fs.Parse(args)
	flags.Files = fs.Args()
	return flags
}

// BuildCLIContainer creates and configures a dependency injection container for the CLI application
func BuildCLIContainer(flags *CLIFlags) (*dig.Container, error) {
	container := dig.New()

	// Register flags
	if err := container.Provide(func() *CLIFlags { return flags }); err != nil {
		return nil, err
	}

	// Register logger
	if err := container.Provide(func(flags *CLIFlags) (*zap.Logger, error) {
		return logging.InitConsoleLogger(flags.Verbose, flags.JSONLog)
	}); err != nil {
		return nil, err
	}

	// Register configuration
	if err := container.Provide(func(flags *CLIFlags, logger *zap.Logger) (*config.Config, error) {
		if flags.ConfigFile != "" {
			cfg, err := config.NewFromFile(flags.ConfigFile)
			if err != nil {
				return nil, err
			}
			logger.Info("Loaded configuration from file", zap.String("file", cfg.GetViper().ConfigFileUsed()))
			return cfg, nil
		}

		// Create config from command line flags
		return createConfigFromFlags(flags), nil
	}); err != nil {
		return nil, err
	}

	if err := provideScanning(container); err != nil {
		return nil, err
	}

	// Register CLI scanner
	if err := container.Provide(func(service *core.ScanService, logger *zap.Logger, cfg *config.Config) (*cli.Scanner, error) {
		return cli.NewScanner(service, logger, cfg.GetBool("cli.verbose"), cfg.GetBool("cli.json"))
	}); err != nil {
		return nil, err
	}

	return container, nil
}

// createConfigFromFlags creates a configuration from command line flags
func createConfigFromFlags(flags *CLIFlags) *config.Config {
	v := config.NewEmptyViper()

	// Set some cli specific settings
	v.Set("server.frontend", "cli")
	v.Set("cli.verbose", flags.Verbose)
	v.Set("cli.json", flags.JSONOutput)

	// A one-shot scan is useless without a model
	v.Set("model.path", flags.ModelPath)
	v.Set("model.encoders_path", flags.EncodersPath)
	v.Set("model.required", true)

	v.Set("scanner.max_file_size", flags.MaxFileSize)
	v.Set("scanner.read_timeout", flags.ReadTimeout.String())
	v.Set("storage.type", flags.StorageType)
	v.Set("storage.sqlite_path", flags.SQLitePath)

	return config.NewFromViper(v)
}
