package risk

import (
	"encoding/json"
	"fmt"
	"time"
)

// Source records how an artifact was produced.
type Source string

const (
	SourceSynthetic Source = "synthetic"
	SourceTrained   Source = "trained"
)

const logisticKind = "logistic"

// Artifact is the unit that is persisted and swapped: the classifier, its scaler
// and the feature names they were fit on. The three are only valid together.
type Artifact struct {
	Version      string
	Source       Source
	TrainedAt    time.Time
	FeatureNames []string
	Scaler       StandardScaler
	Model        Classifier
}

type artifactPayload struct {
	Version      string          `json:"version"`
	Source       Source          `json:"source"`
	TrainedAt    time.Time       `json:"trained_at"`
	FeatureNames []string        `json:"feature_names"`
	Scaler       StandardScaler  `json:"scaler"`
	ModelKind    string          `json:"model_kind"`
	Model        json.RawMessage `json:"model"`
}

// EncodeArtifact serializes an artifact. Only LogisticModel classifiers can be encoded.
func EncodeArtifact(a *Artifact) ([]byte, error) {
	if a == nil {
		return nil, fmt.Errorf("%w: nil artifact", ErrModelCorrupt)
	}
	lm, ok := a.Model.(*LogisticModel)
	if !ok {
		return nil, fmt.Errorf("unsupported classifier %T", a.Model)
	}
	if err := a.check(a.FeatureNames); err != nil {
		return nil, err
	}
	model, err := json.Marshal(lm)
	if err != nil {
		return nil, fmt.Errorf("encode classifier: %w", err)
	}
	return json.Marshal(artifactPayload{
		Version:      a.Version,
		Source:       a.Source,
		TrainedAt:    a.TrainedAt,
		FeatureNames: a.FeatureNames,
		Scaler:       a.Scaler,
		ModelKind:    logisticKind,
		Model:        model,
	})
}

// DecodeArtifact parses a persisted artifact and verifies that its parts agree
// with each other and with expectedNames. Any disagreement is ErrModelCorrupt.
func DecodeArtifact(data []byte, expectedNames []string) (*Artifact, error) {
	var payload artifactPayload
	if err := json.Unmarshal(data, &payload); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrModelCorrupt, err)
	}
	if payload.ModelKind != logisticKind {
		return nil, fmt.Errorf("%w: unknown model kind %q", ErrModelCorrupt, payload.ModelKind)
	}
	var lm LogisticModel
	if err := json.Unmarshal(payload.Model, &lm); err != nil {
		return nil, fmt.Errorf("%w: classifier: %v", ErrModelCorrupt, err)
	}
	a := &Artifact{
		Version:      payload.Version,
		Source:       payload.Source,
		TrainedAt:    payload.TrainedAt,
		FeatureNames: payload.FeatureNames,
		Scaler:       payload.Scaler,
		Model:        &lm,
	}
	if err := a.check(expectedNames); err != nil {
		return nil, err
	}
	return a, nil
}

func (a *Artifact) check(expectedNames []string) error {
	if a.Model == nil {
		return fmt.Errorf("%w: missing classifier", ErrModelCorrupt)
	}
	if len(a.FeatureNames) != len(expectedNames) {
		return fmt.Errorf("%w: artifact has %d features, want %d", ErrModelCorrupt, len(a.FeatureNames), len(expectedNames))
	}
	for i, name := range expectedNames {
		if a.FeatureNames[i] != name {
			return fmt.Errorf("%w: feature %d is %q, want %q", ErrModelCorrupt, i, a.FeatureNames[i], name)
		}
	}
	if err := a.Scaler.validate(); err != nil {
		return fmt.Errorf("%w: %v", ErrModelCorrupt, err)
	}
	if a.Scaler.Dim() != len(a.FeatureNames) {
		return fmt.Errorf("%w: scaler has %d columns for %d features", ErrModelCorrupt, a.Scaler.Dim(), len(a.FeatureNames))
	}
	if a.Model.NumFeatures() != len(a.FeatureNames) {
		return fmt.Errorf("%w: classifier has %d inputs for %d features", ErrModelCorrupt, a.Model.NumFeatures(), len(a.FeatureNames))
	}
	if lm, ok := a.Model.(*LogisticModel); ok {
		if err := lm.validate(); err != nil {
			return fmt.Errorf("%w: %v", ErrModelCorrupt, err)
		}
	}
	return nil
}
