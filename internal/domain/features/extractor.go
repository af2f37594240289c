package features

import (
	"math"
	"sort"
	"strings"
	"time"

	"gonum.org/v1/gonum/stat"
)

const (
	recentFoodWindow   = 5
	defaultDaysSince   = 30
	defaultHumidity    = 50
	defaultTemperature = 20
	defaultAQI         = 1
	aqiScale           = 20
	hoursPerDay        = 24
)

// Season buckets months for the seasonal risk prior.
type Season string

const (
	Spring Season = "spring"
	Summer Season = "summer"
	Fall   Season = "fall"
	Winter Season = "winter"
)

var seasonRisk = map[Season]float64{
	Spring: 0.85,
	Summer: 0.60,
	Fall:   0.75,
	Winter: 0.40,
}

// SeasonOf maps a calendar month (northern hemisphere) to its season.
func SeasonOf(month time.Month) Season {
	switch month {
	case time.March, time.April, time.May:
		return Spring
	case time.June, time.July, time.August:
		return Summer
	case time.September, time.October, time.November:
		return Fall
	default:
		return Winter
	}
}

// RiskFactor is the seasonal prior fed to the model.
func (s Season) RiskFactor() float64 {
	return seasonRisk[s]
}

// Extractor turns raw per-request records into the model feature vector.
// It performs no I/O and never fails: missing data degrades to defaults.
type Extractor struct {
	now func() time.Time
}

// NewExtractor builds an extractor that reads the wall clock.
func NewExtractor() *Extractor {
	return &Extractor{now: time.Now}
}

// NewExtractorWithClock pins the clock, mainly for tests and replays.
func NewExtractorWithClock(now func() time.Time) *Extractor {
	if now == nil {
		now = time.Now
	}
	return &Extractor{now: now}
}

// Extract derives every feature in vector order. snapshots are most-recent-first;
// only the first one is read.
func (e *Extractor) Extract(profile UserProfile, foodLogs []FoodLogEntry, snapshots []EnvironmentalSnapshot) (Vector, AuxiliaryScalars) {
	now := e.now()
	var vec Vector

	vec[AllergensCount] = float64(len(profile.Allergens))
	vec[AvgHistoricalSeverity], vec[SeverityStd] = severityStats(profile.SeverityHistory)
	vec[RiskyFoodsCount] = float64(countRiskyFoods(foodLogs, profile.Allergens, now))
	vec[DaysSinceLastReaction] = daysSinceLastReaction(profile.SeverityHistory, now)

	var snapshot EnvironmentalSnapshot
	if len(snapshots) > 0 {
		snapshot = snapshots[0]
	}
	env := environmentalFeatures(snapshot)
	vec[PollenLevel] = env.pollen
	vec[Humidity] = env.humidity
	vec[Temperature] = env.temperature
	vec[AirQualityIndex] = env.airQuality
	vec[WindSpeed] = env.windSpeed

	vec[Month] = float64(now.Month())
	vec[HourOfDay] = float64(now.Hour())
	vec[SeasonRiskFactor] = SeasonOf(now.Month()).RiskFactor()

	return vec, AuxiliaryScalars{
		PollenLevel:     env.pollen,
		AirQualityIndex: env.airQuality,
	}
}

func severityStats(history []SeverityReport) (mean, std float64) {
	if len(history) == 0 {
		return 0, 0
	}
	values := make([]float64, len(history))
	for i, report := range history {
		values[i] = report.Severity
	}
	if len(values) == 1 {
		return values[0], 0
	}
	return stat.PopMeanStdDev(values, nil)
}

func countRiskyFoods(logs []FoodLogEntry, allergens []string, now time.Time) int {
	needles := make([][]string, 0, len(allergens))
	for _, allergen := range allergens {
		clean := strings.ToLower(strings.TrimSpace(allergen))
		if clean != "" {
			needles = append(needles, allergenForms(clean))
		}
	}
	if len(needles) == 0 || len(logs) == 0 {
		return 0
	}

	count := 0
	for _, entry := range recentFoodLogs(logs, now) {
		for _, item := range entry.Items {
			if matchesAny(strings.ToLower(item), needles) {
				count++
			}
		}
	}
	return count
}

// allergenForms returns the allergen plus its singular spellings, so "peanuts"
// also matches "peanut butter".
func allergenForms(allergen string) []string {
	forms := []string{allergen}
	if len(allergen) > 3 && strings.HasSuffix(allergen, "s") && !strings.HasSuffix(allergen, "ss") {
		forms = append(forms, strings.TrimSuffix(allergen, "s"))
		if strings.HasSuffix(allergen, "oes") {
			forms = append(forms, strings.TrimSuffix(allergen, "es"))
		}
	}
	return forms
}

func matchesAny(food string, needles [][]string) bool {
	for _, forms := range needles {
		for _, form := range forms {
			if strings.Contains(food, form) {
				return true
			}
		}
	}
	return false
}

func recentFoodLogs(logs []FoodLogEntry, now time.Time) []FoodLogEntry {
	type stamped struct {
		at    time.Time
		entry FoodLogEntry
	}
	ordered := make([]stamped, len(logs))
	for i, entry := range logs {
		ordered[i] = stamped{at: NormalizeTimestamp(entry.Timestamp, now), entry: entry}
	}
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].at.Before(ordered[j].at)
	})
	if len(ordered) > recentFoodWindow {
		ordered = ordered[len(ordered)-recentFoodWindow:]
	}
	out := make([]FoodLogEntry, len(ordered))
	for i, s := range ordered {
		out[i] = s.entry
	}
	return out
}

func daysSinceLastReaction(history []SeverityReport, now time.Time) float64 {
	if len(history) == 0 {
		return defaultDaysSince
	}
	latest := NormalizeTimestamp(history[0].Timestamp, now)
	for _, report := range history[1:] {
		if ts := NormalizeTimestamp(report.Timestamp, now); ts.After(latest) {
			latest = ts
		}
	}
	days := math.Floor(now.Sub(latest).Hours() / hoursPerDay)
	if days < 0 {
		return 0
	}
	return days
}

type envValues struct {
	pollen      float64
	humidity    float64
	temperature float64
	airQuality  float64
	windSpeed   float64
}

func environmentalFeatures(snapshot EnvironmentalSnapshot) envValues {
	out := envValues{
		humidity:    defaultHumidity,
		temperature: defaultTemperature,
		airQuality:  defaultAQI * aqiScale,
	}
	if w := snapshot.Weather; w != nil {
		out.humidity = valueOr(w.Humidity, defaultHumidity)
		out.temperature = valueOr(w.Temperature, defaultTemperature)
		out.windSpeed = valueOr(w.WindSpeed, 0)
	}
	if aq := snapshot.AirQuality; aq != nil && aq.AQI != nil {
		out.airQuality = float64(*aq.AQI) * aqiScale
	}
	if p := snapshot.Pollen; p != nil {
		out.pollen = valueOr(p.TotalCount, 0)
	}
	return out
}

func valueOr(v *float64, fallback float64) float64 {
	if v == nil || math.IsNaN(*v) || math.IsInf(*v, 0) {
		return fallback
	}
	return *v
}
