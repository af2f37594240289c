package openweather

import (
	"context"

	"github.com/yanqian/allergy-risk/internal/domain/environment"
	"github.com/yanqian/allergy-risk/internal/domain/features"
)

// StaticPollen returns a fixed moderate tree-pollen reading. Pollen feeds are
// paid services; this keeps the snapshot shape complete until one is wired.
type StaticPollen struct{}

// NewStaticPollen constructs the provider.
func NewStaticPollen() StaticPollen {
	return StaticPollen{}
}

// Pollen implements environment.PollenProvider.
func (StaticPollen) Pollen(context.Context, float64, float64) (*features.Pollen, error) {
	return &features.Pollen{
		Tree:         features.Float(2),
		Grass:        features.Float(1),
		Weed:         features.Float(1),
		TotalCount:   features.Float(35),
		DominantType: "tree",
		RiskLevel:    "moderate",
	}, nil
}

var _ environment.PollenProvider = StaticPollen{}
