package factory

import (
	"github.com/mikey/ransomware-scanner/internal/classifier"
	"github.com/mikey/ransomware-scanner/internal/config"
	"github.com/mikey/ransomware-scanner/internal/core"
	"go.uber.org/zap"
)

// ClassifierFactory loads the classifier from its artifacts
type ClassifierFactory struct {
	cfg    *config.Config
	logger *zap.Logger
}

// NewClassifierFactory creates a new classifier factory
func NewClassifierFactory(cfg *config.Config, logger *zap.Logger) *ClassifierFactory {
	return &ClassifierFactory{
		cfg:    cfg,
		logger: logger,
	}
}

// CreateClassifier loads the configured model. Unless model.required is
// set, a missing or broken model yields a placeholder whose predictions
// fail with core.ErrModelUnavailable, so the frontend still starts.
func (f *ClassifierFactory) CreateClassifier() (core.Classifier, error) {
	modelConfig := f.cfg.GetModel()

	c, err := classifier.Load(modelConfig.Path, modelConfig.EncodersPath)
	if err != nil {
		if modelConfig.Required {
			return nil, err
		}
		f.logger.Error("Model unavailable, scans will fail until it is installed",
			zap.String("model_path", modelConfig.Path),
			zap.String("encoders_path", modelConfig.EncodersPath),
			zap.Error(err))
		return classifier.NewUnavailable(err), nil
	}

	f.logger.Info("Loaded model",
		zap.String("version", c.Version()),
		zap.Time("trained_at", c.TrainedAt()),
		zap.Strings("features", c.Schema().Fields))
	return c, nil
}
