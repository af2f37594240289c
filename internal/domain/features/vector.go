package features

// Feature indexes one slot of the model feature vector.
type Feature int

// The declaration order is the vector order. Scaler and classifier weights are
// positional, so never reorder or insert in the middle.
const (
	AllergensCount Feature = iota
	AvgHistoricalSeverity
	SeverityStd
	RiskyFoodsCount
	DaysSinceLastReaction
	PollenLevel
	Humidity
	Temperature
	AirQualityIndex
	WindSpeed
	Month
	HourOfDay
	SeasonRiskFactor
	featureCount
)

// Count is the fixed feature vector length.
const Count = int(featureCount)

var featureNames = [Count]string{
	"allergens_count",
	"avg_historical_severity",
	"severity_std",
	"risky_foods_count",
	"days_since_last_reaction",
	"pollen_level",
	"humidity",
	"temperature",
	"air_quality_index",
	"wind_speed",
	"month",
	"hour_of_day",
	"season_risk_factor",
}

// String returns the canonical feature name.
func (f Feature) String() string {
	if f < 0 || f >= featureCount {
		return "unknown"
	}
	return featureNames[f]
}

// Names returns the canonical feature order. The slice is a copy.
func Names() []string {
	out := make([]string, Count)
	copy(out, featureNames[:])
	return out
}

// Vector is the fixed-shape model input.
type Vector [Count]float64

// Get reads one feature.
func (v Vector) Get(f Feature) float64 {
	return v[f]
}

// Slice copies the vector into a fresh slice.
func (v Vector) Slice() []float64 {
	out := make([]float64, Count)
	copy(out, v[:])
	return out
}

// Map keys each value by feature name.
func (v Vector) Map() map[string]float64 {
	out := make(map[string]float64, Count)
	for i, name := range featureNames {
		out[name] = v[i]
	}
	return out
}

var featureLabels = [Count]string{
	"Number of allergens",
	"Historical severity",
	"Severity variability",
	"Recent allergen exposure",
	"Time since last reaction",
	"Pollen count",
	"High humidity",
	"Temperature",
	"Air quality",
	"Wind conditions",
	"Seasonal factors",
	"Time of day",
	"Seasonal patterns",
}

// Label is the user-facing description of a feature.
func (f Feature) Label() string {
	if f < 0 || f >= featureCount {
		return "unknown"
	}
	return featureLabels[f]
}

// LabelFor resolves a feature name to its label. Unknown names are returned as-is.
func LabelFor(name string) string {
	for i, n := range featureNames {
		if n == name {
			return featureLabels[i]
		}
	}
	return name
}
