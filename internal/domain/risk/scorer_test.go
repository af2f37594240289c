package risk

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"math"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/yanqian/allergy-risk/internal/domain/features"
)

type memStore struct {
	data    []byte
	loadErr error
	saveErr error
	saves   int
}

func (m *memStore) Load(context.Context) ([]byte, bool, error) {
	if m.loadErr != nil {
		return nil, false, m.loadErr
	}
	if m.data == nil {
		return nil, false, nil
	}
	return append([]byte(nil), m.data...), true, nil
}

func (m *memStore) Save(_ context.Context, data []byte) error {
	if m.saveErr != nil {
		return m.saveErr
	}
	m.saves++
	m.data = append([]byte(nil), data...)
	return nil
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestScorer(store ArtifactStore) *Scorer {
	return NewScorer(DefaultConfig(), store, testLogger())
}

func sampleVector() []float64 {
	vec := make([]float64, features.Count)
	vec[features.AllergensCount] = 2
	vec[features.AvgHistoricalSeverity] = 7
	vec[features.RiskyFoodsCount] = 1
	vec[features.PollenLevel] = 80
	vec[features.AirQualityIndex] = 80
	vec[features.Humidity] = 60
	vec[features.Temperature] = 22
	vec[features.DaysSinceLastReaction] = 2
	vec[features.Month] = 4
	vec[features.HourOfDay] = 10
	vec[features.SeasonRiskFactor] = 0.85
	return vec
}

func TestScoreBeforeTrainingFails(t *testing.T) {
	_, err := newTestScorer(nil).Score(sampleVector())
	require.ErrorIs(t, err, ErrModelNotTrained)
}

func TestScoreRejectsMalformedVectors(t *testing.T) {
	scorer := newTestScorer(nil)
	_, err := scorer.TrainSynthetic()
	require.NoError(t, err)

	_, err = scorer.Score(make([]float64, features.Count-1))
	require.ErrorIs(t, err, ErrInvalidFeatureVector)

	vec := sampleVector()
	vec[features.Humidity] = math.NaN()
	_, err = scorer.Score(vec)
	require.ErrorIs(t, err, ErrInvalidFeatureVector)
}

func TestScoreDistributionIsConsistent(t *testing.T) {
	scorer := newTestScorer(nil)
	_, err := scorer.TrainSynthetic()
	require.NoError(t, err)

	vectors := [][]float64{sampleVector(), make([]float64, features.Count)}
	extreme := sampleVector()
	extreme[features.PollenLevel] = 1e6
	vectors = append(vectors, extreme)

	for _, vec := range vectors {
		got, err := scorer.Score(vec)
		require.NoError(t, err)
		require.InDelta(t, 1.0, got.Distribution.LowRisk+got.Distribution.HighRisk, 1e-6)
		require.Equal(t, math.Max(got.Distribution.LowRisk, got.Distribution.HighRisk), got.Confidence)
		require.InDelta(t, got.Distribution.HighRisk*10, got.RiskScore, 1e-12)
		require.GreaterOrEqual(t, got.RiskScore, 0.0)
		require.LessOrEqual(t, got.RiskScore, 10.0)
		require.LessOrEqual(t, len(got.ContributingFactors), 5)
		require.Len(t, got.FeatureImportance, features.Count)
	}
}

func TestSyntheticModelRanksDriverFeatures(t *testing.T) {
	scorer := newTestScorer(nil)
	_, err := scorer.TrainSynthetic()
	require.NoError(t, err)

	got, err := scorer.Score(sampleVector())
	require.NoError(t, err)
	require.Contains(t, got.ContributingFactors, "Number of allergens")
	require.Contains(t, got.ContributingFactors, "Historical severity")
	for _, label := range got.ContributingFactors {
		require.NotEqual(t, "Time of day", label)
	}
}

func TestSyntheticTrainingIsDeterministic(t *testing.T) {
	a := newTestScorer(nil)
	b := newTestScorer(nil)
	_, err := a.TrainSynthetic()
	require.NoError(t, err)
	_, err = b.TrainSynthetic()
	require.NoError(t, err)

	first, err := a.Score(sampleVector())
	require.NoError(t, err)
	second, err := b.Score(sampleVector())
	require.NoError(t, err)
	require.Equal(t, first.Distribution, second.Distribution)
}

func TestRetrainDegenerateLabels(t *testing.T) {
	for _, label := range []int{0, 1} {
		scorer := newTestScorer(nil)
		samples := make([]LabeledSample, 10)
		for i := range samples {
			vec := sampleVector()
			vec[features.PollenLevel] = float64(i * 10)
			samples[i] = LabeledSample{Features: vec, Label: label}
		}
		metrics, err := scorer.Retrain(context.Background(), samples)
		require.NoError(t, err)
		require.Equal(t, 1.0, metrics.Accuracy)

		vector := make([]float64, features.Count)
		vector[features.PollenLevel] = 999
		got, err := scorer.Score(vector)
		require.NoError(t, err)
		if label == 1 {
			require.GreaterOrEqual(t, got.Distribution.HighRisk, 0.5)
		} else {
			require.GreaterOrEqual(t, got.Distribution.LowRisk, 0.5)
		}
	}
}

func TestRetrainReportsMetricsAndSwaps(t *testing.T) {
	store := &memStore{}
	scorer := newTestScorer(store)
	_, err := scorer.TrainSynthetic()
	require.NoError(t, err)
	before := scorer.Status().Version

	var samples []LabeledSample
	for i := 0; i < 20; i++ {
		vec := sampleVector()
		vec[features.AvgHistoricalSeverity] = float64(i % 10)
		samples = append(samples, LabeledSample{Features: vec, Label: LabelFromSeverity(float64(i % 10))})
	}
	metrics, err := scorer.Retrain(context.Background(), samples)
	require.NoError(t, err)
	require.Equal(t, 20, metrics.Samples)
	require.GreaterOrEqual(t, metrics.Accuracy, 0.9)
	require.Greater(t, metrics.Precision, 0.0)
	require.LessOrEqual(t, metrics.Precision, 1.0)
	require.Greater(t, metrics.Recall, 0.0)

	status := scorer.Status()
	require.NotEqual(t, before, status.Version)
	require.Equal(t, metrics.ModelVersion, status.Version)
	require.Equal(t, SourceTrained, status.Source)
	require.Equal(t, 1, store.saves)
}

func TestRetrainKeepsOldModelWhenSaveFails(t *testing.T) {
	store := &memStore{saveErr: errors.New("disk full")}
	scorer := newTestScorer(store)
	_, err := scorer.TrainSynthetic()
	require.NoError(t, err)
	before := scorer.Status().Version

	_, err = scorer.Retrain(context.Background(), []LabeledSample{{Features: sampleVector(), Label: 1}})
	require.Error(t, err)
	require.Equal(t, before, scorer.Status().Version)
}

func TestRetrainRejectsBadSamples(t *testing.T) {
	scorer := newTestScorer(nil)
	_, err := scorer.Retrain(context.Background(), nil)
	require.ErrorIs(t, err, ErrInvalidFeatureVector)

	_, err = scorer.Retrain(context.Background(), []LabeledSample{{Features: []float64{1, 2}, Label: 1}})
	require.ErrorIs(t, err, ErrInvalidFeatureVector)
	require.False(t, scorer.Status().Loaded)
}

func TestSaveLoadRoundTripScoresIdentically(t *testing.T) {
	store := &memStore{}
	original := newTestScorer(store)
	outcome, err := original.Bootstrap(context.Background())
	require.NoError(t, err)
	require.Equal(t, BootstrapSynthetic, outcome)
	require.Equal(t, 1, store.saves)

	restored := newTestScorer(store)
	outcome, err = restored.Bootstrap(context.Background())
	require.NoError(t, err)
	require.Equal(t, BootstrapRestored, outcome)
	require.True(t, restored.Status().Restored)

	want, err := original.Score(sampleVector())
	require.NoError(t, err)
	first, err := restored.Score(sampleVector())
	require.NoError(t, err)
	second, err := restored.Score(sampleVector())
	require.NoError(t, err)
	require.Equal(t, want, first)
	require.Equal(t, first, second)
}

func TestBootstrapReplacesCorruptArtifact(t *testing.T) {
	store := &memStore{data: []byte(`{"model_kind":"logistic","feature_names":["a"]}`)}
	scorer := newTestScorer(store)

	outcome, err := scorer.Bootstrap(context.Background())
	require.NoError(t, err)
	require.Equal(t, BootstrapCorruptReplaced, outcome)
	require.Equal(t, SourceSynthetic, scorer.Status().Source)

	_, err = DecodeArtifact(store.data, features.Names())
	require.NoError(t, err)
}

func TestBootstrapWithUnreadableStoreDoesNotOverwrite(t *testing.T) {
	store := &memStore{loadErr: errors.New("connection refused")}
	scorer := newTestScorer(store)

	outcome, err := scorer.Bootstrap(context.Background())
	require.NoError(t, err)
	require.Equal(t, BootstrapSynthetic, outcome)
	require.Zero(t, store.saves)
	require.True(t, scorer.Status().Loaded)
}

func TestDecodeArtifactDetectsMismatch(t *testing.T) {
	scorer := newTestScorer(nil)
	artifact, err := scorer.TrainSynthetic()
	require.NoError(t, err)
	data, err := EncodeArtifact(artifact)
	require.NoError(t, err)

	_, err = DecodeArtifact(data, features.Names()[:features.Count-1])
	require.ErrorIs(t, err, ErrModelCorrupt)

	renamed := features.Names()
	renamed[0] = "allergen_total"
	_, err = DecodeArtifact(data, renamed)
	require.ErrorIs(t, err, ErrModelCorrupt)

	broken := *artifact
	broken.Scaler = StandardScaler{Mean: artifact.Scaler.Mean[:3], Scale: artifact.Scaler.Scale[:3]}
	_, err = EncodeArtifact(&broken)
	require.ErrorIs(t, err, ErrModelCorrupt)

	_, err = DecodeArtifact([]byte("not json"), features.Names())
	require.ErrorIs(t, err, ErrModelCorrupt)
}

func TestInstallValidatesArtifact(t *testing.T) {
	scorer := newTestScorer(nil)
	err := scorer.Install(&Artifact{FeatureNames: []string{"x"}, Model: &LogisticModel{Weights: []float64{1}}})
	require.ErrorIs(t, err, ErrModelCorrupt)
	require.Nil(t, scorer.Current())
}

func TestRankFactorsThresholdAndTies(t *testing.T) {
	scorer := newTestScorer(nil)
	names := features.Names()
	importances := make([]float64, features.Count)
	importances[features.PollenLevel] = 0.3
	importances[features.Humidity] = 0.3
	importances[features.AllergensCount] = 0.2
	importances[features.Month] = 0.05
	importances[features.WindSpeed] = 0.1
	importances[features.HourOfDay] = 0.05

	got := scorer.rankFactors(names, importances)
	require.Equal(t, []string{"Pollen count", "High humidity", "Number of allergens", "Wind conditions"}, got)
}

func TestEvaluateWeightedMetrics(t *testing.T) {
	labels := []int{1, 1, 1, 0}
	predicted := []int{1, 1, 1, 1}
	m := evaluate(labels, predicted)
	require.Equal(t, 0.75, m.Accuracy)
	require.InDelta(t, 0.75*0.75, m.Precision, 1e-12)
	require.InDelta(t, 0.75, m.Recall, 1e-12)
}

func TestLabelFromSeverity(t *testing.T) {
	require.Equal(t, 0, LabelFromSeverity(5))
	require.Equal(t, 1, LabelFromSeverity(5.5))
	require.Equal(t, 1, LabelFromSeverity(10))
	require.Equal(t, 0, LabelFromSeverity(0))
}
