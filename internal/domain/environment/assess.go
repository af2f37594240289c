package environment

import (
	"time"

	"github.com/yanqian/allergy-risk/internal/domain/features"
)

// Level buckets the additive environmental score.
type Level string

const (
	LevelLow      Level = "low"
	LevelModerate Level = "moderate"
	LevelHigh     Level = "high"
	LevelVeryHigh Level = "very_high"
)

const (
	FactorPoorAirQuality = "Poor air quality"
	FactorHighPollen     = "High pollen count"
	FactorHighHumidity   = "High humidity"
	FactorStrongWinds    = "Strong winds (dispersing allergens)"
)

// Assessment is the rule-based reading of one snapshot.
type Assessment struct {
	RiskLevel           Level     `json:"risk_level"`
	RiskScore           int       `json:"risk_score"`
	ContributingFactors []string  `json:"contributing_factors"`
	Recommendations     []string  `json:"recommendations"`
	AssessedAt          time.Time `json:"assessment_time"`
}

type rule struct {
	factor string
	weight int
	fires  func(s features.EnvironmentalSnapshot) bool
}

var rules = []rule{
	{
		factor: FactorPoorAirQuality,
		weight: 2,
		fires: func(s features.EnvironmentalSnapshot) bool {
			aqi := 1
			if s.AirQuality != nil && s.AirQuality.AQI != nil {
				aqi = *s.AirQuality.AQI
			}
			return aqi >= 3
		},
	},
	{
		factor: FactorHighPollen,
		weight: 3,
		fires: func(s features.EnvironmentalSnapshot) bool {
			return s.Pollen != nil && orDefault(s.Pollen.TotalCount, 0) > 50
		},
	},
	{
		factor: FactorHighHumidity,
		weight: 1,
		fires: func(s features.EnvironmentalSnapshot) bool {
			return s.Weather != nil && orDefault(s.Weather.Humidity, 50) > 70
		},
	},
	{
		factor: FactorStrongWinds,
		weight: 1,
		fires: func(s features.EnvironmentalSnapshot) bool {
			return s.Weather != nil && orDefault(s.Weather.WindSpeed, 0) > 10
		},
	},
}

// factorAdvice is applied in this order, which differs from rule order.
var factorAdvice = []struct {
	factor string
	advice []string
}{
	{FactorHighPollen, []string{"Shower and change clothes after being outside", "Avoid outdoor activities like gardening"}},
	{FactorPoorAirQuality, []string{"Wear a mask if you must go outside", "Avoid outdoor exercise"}},
	{FactorHighHumidity, []string{"Use a dehumidifier indoors", "Check for mold and mildew growth"}},
}

var elevatedAdvice = []string{
	"Consider staying indoors during peak hours (10am-4pm)",
	"Keep windows closed and use air conditioning",
	"Take allergy medication as prescribed",
}

const favorableAdvice = "Conditions are favorable - enjoy outdoor activities!"

// Assess scores a snapshot with fixed additive rules. Absent parts never fire.
func Assess(snapshot features.EnvironmentalSnapshot, now time.Time) Assessment {
	var score int
	factors := []string{}
	fired := make(map[string]bool, len(rules))
	for _, r := range rules {
		if !r.fires(snapshot) {
			continue
		}
		score += r.weight
		factors = append(factors, r.factor)
		fired[r.factor] = true
	}

	level := levelFor(score)
	var recs []string
	if level == LevelHigh || level == LevelVeryHigh {
		recs = append(recs, elevatedAdvice...)
	}
	for _, fa := range factorAdvice {
		if fired[fa.factor] {
			recs = append(recs, fa.advice...)
		}
	}
	if len(recs) == 0 {
		recs = []string{favorableAdvice}
	}

	return Assessment{
		RiskLevel:           level,
		RiskScore:           score,
		ContributingFactors: factors,
		Recommendations:     recs,
		AssessedAt:          now,
	}
}

func levelFor(score int) Level {
	switch {
	case score <= 1:
		return LevelLow
	case score <= 3:
		return LevelModerate
	case score <= 5:
		return LevelHigh
	default:
		return LevelVeryHigh
	}
}

func orDefault(v *float64, fallback float64) float64 {
	if v == nil {
		return fallback
	}
	return *v
}
