package risk

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
)

// Classifier is a fitted binary classifier over standardized features.
type Classifier interface {
	// Probabilities returns P(low risk) and P(high risk); they sum to 1.
	Probabilities(x []float64) (low, high float64)
	// Importances returns one non-negative weight per feature, summing to 1 or all zero.
	Importances() []float64
	// NumFeatures is the input dimension the classifier was fit on.
	NumFeatures() int
}

// Fitter trains a Classifier from standardized rows and 0/1 labels.
type Fitter interface {
	Fit(x [][]float64, y []int) (Classifier, error)
}

// LogisticModel is an L2-regularized logistic regression.
type LogisticModel struct {
	Weights   []float64 `json:"weights"`
	Intercept float64   `json:"intercept"`
}

// Probabilities implements Classifier.
func (m *LogisticModel) Probabilities(x []float64) (low, high float64) {
	high = sigmoid(floats.Dot(m.Weights, x) + m.Intercept)
	return 1 - high, high
}

// Importances are the absolute weights normalized to sum to 1.
func (m *LogisticModel) Importances() []float64 {
	out := make([]float64, len(m.Weights))
	var total float64
	for i, w := range m.Weights {
		out[i] = math.Abs(w)
		total += out[i]
	}
	if total == 0 {
		return out
	}
	for i := range out {
		out[i] /= total
	}
	return out
}

// NumFeatures implements Classifier.
func (m *LogisticModel) NumFeatures() int {
	return len(m.Weights)
}

func (m *LogisticModel) validate() error {
	if !finite(m.Intercept) {
		return errors.New("intercept is not finite")
	}
	for i, w := range m.Weights {
		if !finite(w) {
			return fmt.Errorf("weight[%d] is not finite", i)
		}
	}
	return nil
}

// LogisticFitter runs full-batch gradient descent. It is deterministic: the same
// rows and labels always produce the same weights.
type LogisticFitter struct {
	Iterations   int
	LearningRate float64
	L2           float64
}

// DefaultLogisticFitter returns the settings used when config leaves them unset.
func DefaultLogisticFitter() LogisticFitter {
	return LogisticFitter{Iterations: 300, LearningRate: 0.5, L2: 1e-3}
}

// Fit implements Fitter.
func (f LogisticFitter) Fit(x [][]float64, y []int) (Classifier, error) {
	if len(x) == 0 {
		return nil, errors.New("no training rows")
	}
	if len(x) != len(y) {
		return nil, fmt.Errorf("%d rows but %d labels", len(x), len(y))
	}
	defaults := DefaultLogisticFitter()
	if f.Iterations <= 0 {
		f.Iterations = defaults.Iterations
	}
	if f.LearningRate <= 0 {
		f.LearningRate = defaults.LearningRate
	}
	if f.L2 < 0 {
		f.L2 = 0
	}

	n := float64(len(x))
	dim := len(x[0])
	positives := 0
	for _, label := range y {
		positives += label
	}
	// Laplace-smoothed prior keeps the intercept finite for single-class batches.
	prior := (float64(positives) + 1) / (n + 2)
	model := &LogisticModel{
		Weights:   make([]float64, dim),
		Intercept: math.Log(prior / (1 - prior)),
	}
	if positives == 0 || positives == len(y) {
		return model, nil
	}

	grad := make([]float64, dim)
	for iter := 0; iter < f.Iterations; iter++ {
		for j := range grad {
			grad[j] = 0
		}
		var gradIntercept float64
		for i, row := range x {
			_, p := model.Probabilities(row)
			residual := p - float64(y[i])
			floats.AddScaled(grad, residual, row)
			gradIntercept += residual
		}
		for j := range model.Weights {
			model.Weights[j] -= f.LearningRate * (grad[j]/n + f.L2*model.Weights[j])
		}
		model.Intercept -= f.LearningRate * gradIntercept / n
	}
	if err := model.validate(); err != nil {
		return nil, fmt.Errorf("training diverged: %w", err)
	}
	return model, nil
}

func sigmoid(z float64) float64 {
	if z >= 0 {
		return 1 / (1 + math.Exp(-z))
	}
	e := math.Exp(z)
	return e / (1 + e)
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
