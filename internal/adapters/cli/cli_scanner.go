package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/mikey/ransomware-scanner/internal/core"
	"go.uber.org/zap"
)

// Scanner implements a command-line interface for file scanning
type Scanner struct {
	service    *core.ScanService
	logger     *zap.Logger
	out        io.Writer
	verbose    bool
	jsonOutput bool
}

// NewScanner creates a new CLI scanner
func NewScanner(service *core.ScanService, logger *zap.Logger, verbose bool, jsonOutput bool) (*Scanner, error) {
	return &Scanner{
		service:    service,
		logger:     logger,
		out:        os.Stdout,
		verbose:    verbose,
		jsonOutput: jsonOutput,
	}, nil
}

// SetOutput redirects the report, which goes to stdout by default
func (s *Scanner) SetOutput(w io.Writer) {
	s.out = w
}

// ProcessFile scans an in-memory file and displays the results
func (s *Scanner) ProcessFile(ctx context.Context, file core.RawFile) (*core.ScanResult, error) {
	s.printSummary(file.Name, fmt.Sprintf("%d bytes", len(file.Data)))
	return s.report(func() (*core.ScanResult, error) {
		return s.service.Scan(ctx, file)
	})
}

// ScanPath scans a file on disk and displays the results
func (s *Scanner) ScanPath(ctx context.Context, path string) (*core.ScanResult, error) {
	s.printSummary(path, "read from disk")
	return s.report(func() (*core.ScanResult, error) {
		return s.service.ScanPath(ctx, path)
	})
}

// ScanReader scans a stream, such as stdin, and displays the results
func (s *Scanner) ScanReader(ctx context.Context, name string, r io.Reader) (*core.ScanResult, error) {
	s.printSummary(name, "read from stream")
	return s.report(func() (*core.ScanResult, error) {
		return s.service.ScanReader(ctx, name, r)
	})
}

// Start is a no-op for the CLI scanner
func (s *Scanner) Start() error {
	return nil
}

// Stop is a no-op for the CLI scanner
func (s *Scanner) Stop() error {
	return nil
}

func (s *Scanner) printSummary(name, source string) {
	if s.jsonOutput {
		return
	}

	model := s.service.Model()
	fmt.Fprintf(s.out, "\n=== File Summary ===\n")
	fmt.Fprintf(s.out, "File: %s\n", name)
	fmt.Fprintf(s.out, "Source: %s\n", source)
	fmt.Fprintf(s.out, "Model: %s (available: %t)\n", model.Version, model.Available)
	fmt.Fprintf(s.out, "\n")
}

func (s *Scanner) report(scan func() (*core.ScanResult, error)) (*core.ScanResult, error) {
	startTime := time.Now()
	result, err := scan()
	if err != nil {
		s.logger.Error("Failed to scan file", zap.Error(err))
		if !s.jsonOutput {
			fmt.Fprintf(s.out, "Error: %v\n", err)
		}
		return nil, err
	}
	duration := time.Since(startTime)

	if s.jsonOutput {
		enc := json.NewEncoder(s.out)
		enc.SetIndent("", "  ")
		if err := enc.Encode(result); err != nil {
			return nil, fmt.Errorf("failed to write result: %w", err)
		}
		return result, nil
	}

	fmt.Fprintf(s.out, "=== Results ===\n")
	fmt.Fprintf(s.out, "Verdict: %s\n", result.Verdict)
	fmt.Fprintf(s.out, "Prediction: %d\n", int(result.Prediction))
	fmt.Fprintf(s.out, "SHA-256: %s\n", result.SHA256)
	fmt.Fprintf(s.out, "Recorded: %t\n", result.Persisted)
	fmt.Fprintf(s.out, "Processing time: %v\n", duration)

	if s.verbose {
		fs := result.Features
		fmt.Fprintf(s.out, "\n=== Features ===\n")
		fmt.Fprintf(s.out, "File size: %d bytes\n", fs.FileSize)
		fmt.Fprintf(s.out, "Entropy: %.4f bits/byte\n", fs.Entropy)
		fmt.Fprintf(s.out, "Strings: %d\n", fs.NumStrings)
		fmt.Fprintf(s.out, "Non-ASCII ratio: %.4f\n", fs.NonASCIIRatio)
		fmt.Fprintf(s.out, "Printable ratio: %.4f\n", fs.PrintableRatio)
		fmt.Fprintf(s.out, "PE header: %t\n", fs.IsPE)
		fmt.Fprintf(s.out, "Extension code: %d\n", fs.ExtensionCode)
	}

	return result, nil
}
