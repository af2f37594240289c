package risk

import (
	"fmt"

	"gonum.org/v1/gonum/stat"
)

// StandardScaler maps raw features to zero mean and unit variance per column.
type StandardScaler struct {
	Mean  []float64 `json:"mean"`
	Scale []float64 `json:"scale"`
}

// FitScaler computes population mean and standard deviation per column.
// Constant columns get a scale of 1 so they transform to 0 instead of NaN.
func FitScaler(rows [][]float64) (StandardScaler, error) {
	if len(rows) == 0 {
		return StandardScaler{}, fmt.Errorf("%w: no rows to fit scaler", ErrInvalidFeatureVector)
	}
	dim := len(rows[0])
	scaler := StandardScaler{
		Mean:  make([]float64, dim),
		Scale: make([]float64, dim),
	}
	column := make([]float64, len(rows))
	for j := 0; j < dim; j++ {
		for i, row := range rows {
			column[i] = row[j]
		}
		mean, std := stat.PopMeanStdDev(column, nil)
		if len(rows) == 1 {
			mean, std = column[0], 0
		}
		if std == 0 {
			std = 1
		}
		scaler.Mean[j] = mean
		scaler.Scale[j] = std
	}
	return scaler, nil
}

// Dim is the number of columns the scaler was fit on.
func (s StandardScaler) Dim() int {
	return len(s.Mean)
}

// Transform standardizes x into a new slice.
func (s StandardScaler) Transform(x []float64) []float64 {
	out := make([]float64, len(x))
	for j, v := range x {
		out[j] = (v - s.Mean[j]) / s.Scale[j]
	}
	return out
}

func (s StandardScaler) validate() error {
	if len(s.Mean) != len(s.Scale) {
		return fmt.Errorf("scaler mean has %d entries, scale has %d", len(s.Mean), len(s.Scale))
	}
	for j, v := range s.Scale {
		if !finite(v) || v <= 0 {
			return fmt.Errorf("scaler scale[%d]=%v is not positive", j, v)
		}
		if !finite(s.Mean[j]) {
			return fmt.Errorf("scaler mean[%d] is not finite", j)
		}
	}
	return nil
}
