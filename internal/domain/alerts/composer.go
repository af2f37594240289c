package alerts

import (
	"strings"

	"github.com/yanqian/allergy-risk/internal/domain/features"
	"github.com/yanqian/allergy-risk/internal/domain/risk"
)

// Priority is the discrete alert tier.
type Priority string

const (
	PriorityLow      Priority = "low"
	PriorityMedium   Priority = "medium"
	PriorityHigh     Priority = "high"
	PriorityCritical Priority = "critical"
)

var priorityRank = map[Priority]int{
	PriorityLow:      0,
	PriorityMedium:   1,
	PriorityHigh:     2,
	PriorityCritical: 3,
}

// Rank orders tiers from low (0) to critical (3).
func (p Priority) Rank() int {
	return priorityRank[p]
}

const (
	pollenAlertThreshold     = 50
	airQualityAlertThreshold = 100
)

const (
	MsgPreventiveMedication = "High risk detected - consider taking preventive medication"
	MsgAvoidPeakHours       = "Avoid outdoor activities during peak hours"
	MsgKeepWindowsClosed    = "Keep windows closed to minimize allergen exposure"
	MsgMonitorSymptoms      = "Elevated risk - monitor your symptoms closely"
	MsgMedicationAvailable  = "Have allergy medication readily available"
	MsgCheckPollenForecast  = "Check pollen forecasts before going outside"
	MsgHighPollen           = "High pollen count detected - extra caution advised"
	MsgPoorAirQuality       = "Poor air quality - wear a mask if going outdoors"
	MsgFavorable            = "Low risk conditions - normal precautions sufficient"
)

var tierGuidance = map[Priority][]string{
	PriorityCritical: {MsgPreventiveMedication, MsgAvoidPeakHours, MsgKeepWindowsClosed},
	PriorityHigh:     {MsgMonitorSymptoms, MsgMedicationAvailable, MsgCheckPollenForecast},
}

// Bundle is the user-facing alert derived from one assessment.
type Bundle struct {
	Priority        Priority `json:"priority"`
	RiskLevelText   string   `json:"risk_level_text"`
	Recommendations []string `json:"recommendations"`
	ConfidenceLevel float64  `json:"confidence_level"`
}

// Composer turns an assessment into a Bundle. It holds no state.
type Composer struct{}

// NewComposer returns a Composer.
func NewComposer() Composer {
	return Composer{}
}

// Compose derives the tier, text and recommendations.
func (Composer) Compose(assessment risk.Assessment, aux features.AuxiliaryScalars) Bundle {
	priority := PriorityFor(assessment.RiskScore, assessment.Distribution.HighRisk)

	var recs []string
	recs = append(recs, tierGuidance[priority]...)
	if aux.PollenLevel > pollenAlertThreshold {
		recs = append(recs, MsgHighPollen)
	}
	if aux.AirQualityIndex > airQualityAlertThreshold {
		recs = append(recs, MsgPoorAirQuality)
	}
	if len(recs) == 0 {
		recs = append(recs, MsgFavorable)
	}

	return Bundle{
		Priority:        priority,
		RiskLevelText:   RiskLevelText(assessment.RiskScore),
		Recommendations: dedupe(recs),
		ConfidenceLevel: assessment.Confidence,
	}
}

// PriorityFor applies the tier rules top-down.
func PriorityFor(riskScore, highRisk float64) Priority {
	switch {
	case riskScore > 7.5 && highRisk > 0.75:
		return PriorityCritical
	case riskScore > 5.5 && highRisk > 0.6:
		return PriorityHigh
	case riskScore > 3.5:
		return PriorityMedium
	default:
		return PriorityLow
	}
}

// RiskLevelText labels the score alone. It ignores the probability co-condition
// used by PriorityFor, so near a boundary the text can read one level above the
// tier (score 6 with P(high)=0.55 is "High Risk" at medium priority).
func RiskLevelText(riskScore float64) string {
	switch {
	case riskScore > 7.5:
		return "Very High Risk"
	case riskScore > 5.5:
		return "High Risk"
	case riskScore > 3.5:
		return "Moderate Risk"
	default:
		return "Low Risk"
	}
}

// dedupe drops exact repeats and keeps first-seen order.
func dedupe(items []string) []string {
	out := make([]string, 0, len(items))
	seen := make(map[string]struct{}, len(items))
	for _, item := range items {
		clean := strings.TrimSpace(item)
		if clean == "" {
			continue
		}
		if _, ok := seen[clean]; ok {
			continue
		}
		seen[clean] = struct{}{}
		out = append(out, clean)
	}
	return out
}
