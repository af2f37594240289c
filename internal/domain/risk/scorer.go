package risk

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/yanqian/allergy-risk/internal/domain/features"
)

// ArtifactStore persists encoded artifacts. Load reports found=false when nothing
// has been saved yet.
type ArtifactStore interface {
	Load(ctx context.Context) (data []byte, found bool, err error)
	Save(ctx context.Context, data []byte) error
}

// Config tunes the scorer.
type Config struct {
	FeatureNames          []string
	ContributingThreshold float64
	MaxFactors            int
	Synthetic             SyntheticConfig
	Fitter                Fitter
}

// DefaultConfig scores the canonical feature vector.
func DefaultConfig() Config {
	return Config{
		FeatureNames:          features.Names(),
		ContributingThreshold: 0.05,
		MaxFactors:            5,
		Synthetic:             DefaultSyntheticConfig(),
		Fitter:                DefaultLogisticFitter(),
	}
}

// Distribution is the per-class probability split.
type Distribution struct {
	LowRisk  float64 `json:"low_risk"`
	HighRisk float64 `json:"high_risk"`
}

// Assessment is the scored result for one feature vector.
type Assessment struct {
	RiskScore           float64            `json:"risk_score"`
	Confidence          float64            `json:"confidence"`
	Distribution        Distribution       `json:"probability_distribution"`
	ContributingFactors []string           `json:"contributing_factors"`
	FeatureImportance   map[string]float64 `json:"feature_importance"`
	ModelVersion        string             `json:"model_version"`
}

// LabeledSample is one row of retraining feedback.
type LabeledSample struct {
	Features []float64
	Label    int
}

// Status describes the installed artifact.
type Status struct {
	Loaded       bool      `json:"model_loaded"`
	Version      string    `json:"version,omitempty"`
	Source       Source    `json:"source,omitempty"`
	Restored     bool      `json:"restored"`
	TrainedAt    time.Time `json:"trained_at,omitempty"`
	FeatureNames []string  `json:"feature_names"`
}

// BootstrapOutcome tells the caller where the startup artifact came from.
type BootstrapOutcome string

const (
	BootstrapRestored        BootstrapOutcome = "restored"
	BootstrapSynthetic       BootstrapOutcome = "synthetic"
	BootstrapCorruptReplaced BootstrapOutcome = "corrupt_replaced"
)

type installed struct {
	artifact *Artifact
	restored bool
}

// Scorer serves predictions from the current artifact. Readers take a snapshot of
// the artifact pointer; retraining builds a complete replacement and swaps it in
// one store, so a reader never sees a half-updated model.
type Scorer struct {
	cfg     Config
	store   ArtifactStore
	logger  *slog.Logger
	now     func() time.Time
	current atomic.Pointer[installed]
	trainMu sync.Mutex
}

// NewScorer builds a scorer with no artifact installed. store may be nil.
func NewScorer(cfg Config, store ArtifactStore, logger *slog.Logger) *Scorer {
	defaults := DefaultConfig()
	if len(cfg.FeatureNames) == 0 {
		cfg.FeatureNames = defaults.FeatureNames
	}
	if cfg.ContributingThreshold <= 0 {
		cfg.ContributingThreshold = defaults.ContributingThreshold
	}
	if cfg.MaxFactors <= 0 {
		cfg.MaxFactors = defaults.MaxFactors
	}
	if cfg.Synthetic.Samples == 0 {
		cfg.Synthetic = defaults.Synthetic
	}
	if cfg.Synthetic.Weights == nil {
		cfg.Synthetic.Weights = defaults.Synthetic.Weights
	}
	if cfg.Fitter == nil {
		cfg.Fitter = defaults.Fitter
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Scorer{
		cfg:    cfg,
		store:  store,
		logger: logger.With("component", "risk.scorer"),
		now:    time.Now,
	}
}

// FeatureNames returns the vector order the scorer expects.
func (s *Scorer) FeatureNames() []string {
	return append([]string(nil), s.cfg.FeatureNames...)
}

// Score runs the installed classifier on one raw feature vector.
func (s *Scorer) Score(vec []float64) (Assessment, error) {
	current := s.current.Load()
	if current == nil {
		return Assessment{}, ErrModelNotTrained
	}
	if err := s.validateVector(vec); err != nil {
		return Assessment{}, err
	}
	artifact := current.artifact

	low, high := artifact.Model.Probabilities(artifact.Scaler.Transform(vec))
	importances := artifact.Model.Importances()
	importanceMap := make(map[string]float64, len(importances))
	for i, name := range artifact.FeatureNames {
		importanceMap[name] = importances[i]
	}

	return Assessment{
		RiskScore:           high * 10,
		Confidence:          math.Max(low, high),
		Distribution:        Distribution{LowRisk: low, HighRisk: high},
		ContributingFactors: s.rankFactors(artifact.FeatureNames, importances),
		FeatureImportance:   importanceMap,
		ModelVersion:        artifact.Version,
	}, nil
}

// rankFactors takes the top MaxFactors by importance (ties keep vector order) and
// then drops anything at or below the threshold.
func (s *Scorer) rankFactors(names []string, importances []float64) []string {
	order := make([]int, len(importances))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		return importances[order[a]] > importances[order[b]]
	})
	if len(order) > s.cfg.MaxFactors {
		order = order[:s.cfg.MaxFactors]
	}
	factors := make([]string, 0, len(order))
	for _, idx := range order {
		if importances[idx] > s.cfg.ContributingThreshold {
			factors = append(factors, features.LabelFor(names[idx]))
		}
	}
	return factors
}

func (s *Scorer) validateVector(vec []float64) error {
	if len(vec) != len(s.cfg.FeatureNames) {
		return fmt.Errorf("%w: got %d values, want %d", ErrInvalidFeatureVector, len(vec), len(s.cfg.FeatureNames))
	}
	for i, v := range vec {
		if !finite(v) {
			return fmt.Errorf("%w: %s is %v", ErrInvalidFeatureVector, s.cfg.FeatureNames[i], v)
		}
	}
	return nil
}

// Retrain refits scaler and classifier from scratch on the batch. The new artifact
// is persisted before it is swapped in; a failed save leaves the old one serving.
func (s *Scorer) Retrain(ctx context.Context, samples []LabeledSample) (TrainingMetrics, error) {
	if len(samples) == 0 {
		return TrainingMetrics{}, fmt.Errorf("%w: empty training batch", ErrInvalidFeatureVector)
	}
	rows := make([][]float64, len(samples))
	labels := make([]int, len(samples))
	for i, sample := range samples {
		if err := s.validateVector(sample.Features); err != nil {
			return TrainingMetrics{}, fmt.Errorf("sample %d: %w", i, err)
		}
		if sample.Label != 0 && sample.Label != 1 {
			return TrainingMetrics{}, fmt.Errorf("sample %d: label must be 0 or 1, got %d", i, sample.Label)
		}
		rows[i] = sample.Features
		labels[i] = sample.Label
	}

	s.trainMu.Lock()
	defer s.trainMu.Unlock()

	artifact, scaled, err := s.fit(rows, labels, SourceTrained)
	if err != nil {
		return TrainingMetrics{}, err
	}
	if err := s.persist(ctx, artifact); err != nil {
		return TrainingMetrics{}, err
	}
	s.current.Store(&installed{artifact: artifact})

	predicted := make([]int, len(scaled))
	for i, row := range scaled {
		if _, high := artifact.Model.Probabilities(row); high > 0.5 {
			predicted[i] = 1
		}
	}
	metrics := evaluate(labels, predicted)
	metrics.ModelVersion = artifact.Version
	s.logger.Info("model retrained",
		"version", artifact.Version,
		"samples", metrics.Samples,
		"accuracy", metrics.Accuracy,
		"precision", metrics.Precision,
		"recall", metrics.Recall,
	)
	return metrics, nil
}

// TrainSynthetic fits and installs the cold-start model without persisting it.
func (s *Scorer) TrainSynthetic() (*Artifact, error) {
	s.trainMu.Lock()
	defer s.trainMu.Unlock()
	return s.trainSyntheticLocked()
}

func (s *Scorer) trainSyntheticLocked() (*Artifact, error) {
	rows, labels, err := SyntheticDataset(s.cfg.Synthetic, s.cfg.FeatureNames)
	if err != nil {
		return nil, err
	}
	artifact, _, err := s.fit(rows, labels, SourceSynthetic)
	if err != nil {
		return nil, err
	}
	s.current.Store(&installed{artifact: artifact})
	s.logger.Info("synthetic model trained", "version", artifact.Version, "samples", len(rows))
	return artifact, nil
}

// Bootstrap installs the persisted artifact when there is a usable one and falls
// back to synthetic training otherwise. A missing or corrupt artifact is replaced
// in the store; a store that cannot be read is left untouched.
func (s *Scorer) Bootstrap(ctx context.Context) (BootstrapOutcome, error) {
	s.trainMu.Lock()
	defer s.trainMu.Unlock()

	if s.store == nil {
		if _, err := s.trainSyntheticLocked(); err != nil {
			return "", err
		}
		return BootstrapSynthetic, nil
	}

	data, found, err := s.store.Load(ctx)
	switch {
	case err != nil:
		s.logger.Warn("model store unavailable, serving synthetic model", "error", err)
		if _, err := s.trainSyntheticLocked(); err != nil {
			return "", err
		}
		return BootstrapSynthetic, nil
	case found:
		artifact, decodeErr := DecodeArtifact(data, s.cfg.FeatureNames)
		if decodeErr == nil {
			s.current.Store(&installed{artifact: artifact, restored: true})
			s.logger.Info("model restored", "version", artifact.Version, "source", artifact.Source)
			return BootstrapRestored, nil
		}
		s.logger.Error("persisted model is corrupt, retraining synthetic", "error", decodeErr)
	}

	artifact, err := s.trainSyntheticLocked()
	if err != nil {
		return "", err
	}
	if err := s.persist(ctx, artifact); err != nil {
		s.logger.Warn("synthetic model not persisted", "error", err)
	}
	if found {
		return BootstrapCorruptReplaced, nil
	}
	return BootstrapSynthetic, nil
}

// Install validates and swaps in a prepared artifact.
func (s *Scorer) Install(artifact *Artifact) error {
	if artifact == nil {
		return fmt.Errorf("%w: nil artifact", ErrModelCorrupt)
	}
	if err := artifact.check(s.cfg.FeatureNames); err != nil {
		return err
	}
	s.current.Store(&installed{artifact: artifact})
	return nil
}

// Current returns the installed artifact, or nil before training.
func (s *Scorer) Current() *Artifact {
	if current := s.current.Load(); current != nil {
		return current.artifact
	}
	return nil
}

// Status reports on the installed artifact.
func (s *Scorer) Status() Status {
	status := Status{FeatureNames: s.FeatureNames()}
	current := s.current.Load()
	if current == nil {
		return status
	}
	status.Loaded = true
	status.Version = current.artifact.Version
	status.Source = current.artifact.Source
	status.TrainedAt = current.artifact.TrainedAt
	status.Restored = current.restored
	return status
}

func (s *Scorer) fit(rows [][]float64, labels []int, source Source) (*Artifact, [][]float64, error) {
	scaler, err := FitScaler(rows)
	if err != nil {
		return nil, nil, err
	}
	scaled := make([][]float64, len(rows))
	for i, row := range rows {
		scaled[i] = scaler.Transform(row)
	}
	model, err := s.cfg.Fitter.Fit(scaled, labels)
	if err != nil {
		return nil, nil, fmt.Errorf("fit classifier: %w", err)
	}
	artifact := &Artifact{
		Version:      uuid.NewString(),
		Source:       source,
		TrainedAt:    s.now().UTC(),
		FeatureNames: append([]string(nil), s.cfg.FeatureNames...),
		Scaler:       scaler,
		Model:        model,
	}
	if err := artifact.check(s.cfg.FeatureNames); err != nil {
		return nil, nil, err
	}
	return artifact, scaled, nil
}

func (s *Scorer) persist(ctx context.Context, artifact *Artifact) error {
	if s.store == nil {
		return nil
	}
	data, err := EncodeArtifact(artifact)
	if err != nil {
		return err
	}
	if err := s.store.Save(ctx, data); err != nil {
		return fmt.Errorf("save model artifact: %w", err)
	}
	return nil
}

// IsTrainingInputError reports whether err came from a bad training batch rather
// than from fitting or persistence.
func IsTrainingInputError(err error) bool {
	return errors.Is(err, ErrInvalidFeatureVector)
}
