package prediction

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/yanqian/allergy-risk/internal/domain/alerts"
	"github.com/yanqian/allergy-risk/internal/domain/environment"
	"github.com/yanqian/allergy-risk/internal/domain/features"
	"github.com/yanqian/allergy-risk/internal/domain/risk"
	apperrors "github.com/yanqian/allergy-risk/pkg/errors"
)

// Service exposes allergy risk prediction capabilities.
type Service interface {
	Predict(ctx context.Context, req Request) (Prediction, error)
	Retrain(ctx context.Context, req RetrainRequest) (RetrainResponse, error)
	ModelStatus(ctx context.Context) risk.Status
}

// Scorer is the model-facing half of the pipeline.
type Scorer interface {
	Score(vec []float64) (risk.Assessment, error)
	Retrain(ctx context.Context, samples []risk.LabeledSample) (risk.TrainingMetrics, error)
	Status() risk.Status
}

// EnvironmentSource resolves a location to a live snapshot.
type EnvironmentSource interface {
	Lookup(ctx context.Context, loc environment.Location) (features.EnvironmentalSnapshot, error)
}

type service struct {
	extractor *features.Extractor
	scorer    Scorer
	composer  alerts.Composer
	env       EnvironmentSource
	logger    *slog.Logger
	now       func() time.Time
}

// NewService wires up the prediction pipeline. env may be nil.
func NewService(extractor *features.Extractor, scorer Scorer, composer alerts.Composer, env EnvironmentSource, logger *slog.Logger) Service {
	return &service{
		extractor: extractor,
		scorer:    scorer,
		composer:  composer,
		env:       env,
		logger:    logger.With("component", "prediction.service"),
		now:       time.Now,
	}
}

func (s *service) Predict(ctx context.Context, req Request) (Prediction, error) {
	snapshots := req.EnvironmentalData
	if len(snapshots) == 0 && req.Location != nil && s.env != nil {
		snapshot, err := s.env.Lookup(ctx, *req.Location)
		if err != nil {
			s.logger.Warn("environment lookup failed, using defaults", "error", err)
		} else {
			snapshots = []features.EnvironmentalSnapshot{snapshot}
		}
	}

	vec, aux := s.extractor.Extract(req.UserData, req.FoodLogs, snapshots)
	assessment, err := s.scorer.Score(vec.Slice())
	if err != nil {
		return Prediction{}, mapScoreError(err)
	}
	bundle := s.composer.Compose(assessment, aux)
	s.logger.Info("risk predicted",
		"risk_score", assessment.RiskScore,
		"priority", bundle.Priority,
		"model_version", assessment.ModelVersion,
	)

	return Prediction{
		RiskLevel:               assessment.RiskScore,
		Confidence:              assessment.Confidence,
		ContributingFactors:     assessment.ContributingFactors,
		ProbabilityDistribution: assessment.Distribution,
		FeatureImportance:       assessment.FeatureImportance,
		TailoredAlerts:          bundle,
		ModelVersion:            assessment.ModelVersion,
		Timestamp:               s.now().UTC(),
	}, nil
}

func (s *service) Retrain(ctx context.Context, req RetrainRequest) (RetrainResponse, error) {
	if len(req.Samples) == 0 {
		return RetrainResponse{}, apperrors.Wrap("invalid_input", "no training samples provided", nil)
	}
	samples := make([]risk.LabeledSample, len(req.Samples))
	for i, sample := range req.Samples {
		vec, _ := s.extractor.Extract(sample.Data.UserData, sample.Data.FoodLogs, sample.Data.EnvironmentalData)
		severity := float64(defaultSeverity)
		if sample.ActualSeverity != nil {
			severity = *sample.ActualSeverity
		}
		samples[i] = risk.LabeledSample{Features: vec.Slice(), Label: risk.LabelFromSeverity(severity)}
	}

	metrics, err := s.scorer.Retrain(ctx, samples)
	if err != nil {
		if errors.Is(err, risk.ErrInvalidFeatureVector) {
			return RetrainResponse{}, apperrors.Wrap("invalid_feature_vector", "training samples are malformed", err)
		}
		return RetrainResponse{}, apperrors.Wrap("training_failed", "model retraining failed", err)
	}
	return RetrainResponse{
		Metrics: metrics,
		Message: "model updated successfully",
	}, nil
}

func (s *service) ModelStatus(context.Context) risk.Status {
	return s.scorer.Status()
}

func mapScoreError(err error) error {
	switch {
	case errors.Is(err, risk.ErrModelNotTrained):
		return apperrors.Wrap("model_not_trained", "model has not been trained yet", err)
	case errors.Is(err, risk.ErrInvalidFeatureVector):
		return apperrors.Wrap("invalid_feature_vector", "feature vector is malformed", err)
	case errors.Is(err, risk.ErrModelCorrupt):
		return apperrors.Wrap("model_corrupt", "model artifact is corrupt", err)
	default:
		return apperrors.Wrap("prediction_failed", "risk scoring failed", err)
	}
}
