package factory

import (
	"github.com/mikey/ransomware-scanner/internal/utils"
	"go.uber.org/zap"
)

// SanitizerFactory creates filename sanitizers
type SanitizerFactory struct {
	logger *zap.Logger
}

// NewSanitizerFactory creates a new SanitizerFactory
func NewSanitizerFactory(logger *zap.Logger) *SanitizerFactory {
	return &SanitizerFactory{
		logger: logger,
	}
}

// CreateSanitizer creates a new FilenameSanitizer
func (f *SanitizerFactory) CreateSanitizer() *utils.FilenameSanitizer {
	return utils.NewFilenameSanitizer(f.logger)
}
