package prediction

import (
	"time"

	"github.com/yanqian/allergy-risk/internal/domain/alerts"
	"github.com/yanqian/allergy-risk/internal/domain/environment"
	"github.com/yanqian/allergy-risk/internal/domain/features"
	"github.com/yanqian/allergy-risk/internal/domain/risk"
)

// Request is the per-user input to a prediction. EnvironmentalData is
// most-recent-first; when it is empty and Location is set the snapshot is looked up.
type Request struct {
	UserData          features.UserProfile             `json:"userData"`
	FoodLogs          []features.FoodLogEntry          `json:"foodLogs"`
	EnvironmentalData []features.EnvironmentalSnapshot `json:"environmentalData"`
	Location          *environment.Location            `json:"location,omitempty"`
}

// Prediction is serialized back to API consumers.
type Prediction struct {
	RiskLevel               float64            `json:"risk_level"`
	Confidence              float64            `json:"confidence"`
	ContributingFactors     []string           `json:"contributing_factors"`
	ProbabilityDistribution risk.Distribution  `json:"probability_distribution"`
	FeatureImportance       map[string]float64 `json:"feature_importance"`
	TailoredAlerts          alerts.Bundle      `json:"tailored_alerts"`
	ModelVersion            string             `json:"model_version"`
	Timestamp               time.Time          `json:"timestamp"`
}

// TrainingSample is one piece of feedback: the inputs at the time and the
// severity the user actually experienced.
type TrainingSample struct {
	Data           Request  `json:"data"`
	ActualSeverity *float64 `json:"actual_severity"`
}

// RetrainRequest carries a feedback batch.
type RetrainRequest struct {
	Samples []TrainingSample `json:"samples"`
}

// RetrainResponse reports in-sample metrics for the new model.
type RetrainResponse struct {
	Metrics risk.TrainingMetrics `json:"metrics"`
	Message string               `json:"message"`
}

// defaultSeverity labels feedback that omitted the observed severity.
const defaultSeverity = 5
