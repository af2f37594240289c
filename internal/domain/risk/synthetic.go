package risk

import (
	"fmt"
	"math/rand/v2"
	"sort"

	"github.com/yanqian/allergy-risk/internal/domain/features"
)

// SyntheticConfig shapes the cold-start dataset. The generated model is a
// placeholder so the service can answer before real feedback exists.
type SyntheticConfig struct {
	Samples int
	Seed    uint64
	Noise   float64
	// Weights maps feature names to their coefficient in the latent score.
	Weights map[string]float64
}

// DefaultSyntheticConfig mirrors the historical bootstrap recipe.
func DefaultSyntheticConfig() SyntheticConfig {
	return SyntheticConfig{
		Samples: 1000,
		Seed:    42,
		Noise:   0.3,
		Weights: map[string]float64{
			features.AllergensCount.String():        0.3,
			features.AvgHistoricalSeverity.String(): 0.25,
			features.RiskyFoodsCount.String():       0.2,
			features.PollenLevel.String():           0.15,
			features.AirQualityIndex.String():       0.1,
		},
	}
}

// SyntheticDataset draws standard-normal rows and labels each one by whether its
// latent score lies above the median. The same config always yields the same data.
func SyntheticDataset(cfg SyntheticConfig, featureNames []string) ([][]float64, []int, error) {
	if cfg.Samples < 2 {
		return nil, nil, fmt.Errorf("synthetic dataset needs at least 2 samples, got %d", cfg.Samples)
	}
	dim := len(featureNames)
	weights := make([]float64, dim)
	for name, w := range cfg.Weights {
		idx := indexOf(featureNames, name)
		if idx < 0 {
			return nil, nil, fmt.Errorf("synthetic weight for unknown feature %q", name)
		}
		weights[idx] = w
	}

	rng := rand.New(rand.NewPCG(cfg.Seed, cfg.Seed^0x9e3779b97f4a7c15))
	rows := make([][]float64, cfg.Samples)
	scores := make([]float64, cfg.Samples)
	for i := range rows {
		row := make([]float64, dim)
		for j := range row {
			row[j] = rng.NormFloat64()
		}
		var score float64
		for j, w := range weights {
			score += w * row[j]
		}
		scores[i] = score + cfg.Noise*rng.NormFloat64()
		rows[i] = row
	}

	threshold := median(scores)
	labels := make([]int, cfg.Samples)
	for i, s := range scores {
		if s > threshold {
			labels[i] = 1
		}
	}
	return rows, labels, nil
}

func median(values []float64) float64 {
	sorted := append([]float64(nil), values...)
	sort.Float64s(sorted)
	mid := len(sorted) / 2
	if len(sorted)%2 == 0 {
		return (sorted[mid-1] + sorted[mid]) / 2
	}
	return sorted[mid]
}

func indexOf(names []string, name string) int {
	for i, n := range names {
		if n == name {
			return i
		}
	}
	return -1
}
