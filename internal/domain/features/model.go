package features

import "encoding/json"

// UserProfile is the read-only snapshot of a user's allergy history handed in per request.
type UserProfile struct {
	Allergens       []string         `json:"allergens"`
	SeverityHistory []SeverityReport `json:"severity_history"`
}

// SeverityReport is a single self-reported reaction on a 0-10 scale.
type SeverityReport struct {
	Severity  float64      `json:"severity"`
	Symptoms  []string     `json:"symptoms,omitempty"`
	Notes     string       `json:"notes,omitempty"`
	Timestamp RawTimestamp `json:"timestamp"`
}

// UnmarshalJSON reads severity leniently; an unreadable severity counts as 0.
func (r *SeverityReport) UnmarshalJSON(data []byte) error {
	var wire struct {
		Severity  looseFloat   `json:"severity"`
		Symptoms  []string     `json:"symptoms"`
		Notes     string       `json:"notes"`
		Timestamp RawTimestamp `json:"timestamp"`
	}
	if err := json.Unmarshal(data, &wire); err != nil {
		return err
	}
	*r = SeverityReport{
		Severity:  valueOr(wire.Severity.value, 0),
		Symptoms:  wire.Symptoms,
		Notes:     wire.Notes,
		Timestamp: wire.Timestamp,
	}
	return nil
}

// FoodLogEntry lists what the user ate at one sitting.
type FoodLogEntry struct {
	Items     []string     `json:"items"`
	Timestamp RawTimestamp `json:"timestamp"`
	Notes     string       `json:"notes,omitempty"`
}

// EnvironmentalSnapshot is one observation of the user's surroundings.
// Every part may be nil when the upstream fetch failed.
type EnvironmentalSnapshot struct {
	Weather    *Weather     `json:"weather"`
	AirQuality *AirQuality  `json:"air_quality"`
	Pollen     *Pollen      `json:"pollen"`
	Timestamp  RawTimestamp `json:"timestamp"`
}

// Weather mirrors the metric-unit weather observation.
type Weather struct {
	Temperature   *float64 `json:"temperature,omitempty"`
	Humidity      *float64 `json:"humidity,omitempty"`
	Pressure      *float64 `json:"pressure,omitempty"`
	WindSpeed     *float64 `json:"wind_speed,omitempty"`
	WindDirection *float64 `json:"wind_direction,omitempty"`
	Condition     string   `json:"condition,omitempty"`
	Description   string   `json:"description,omitempty"`
	VisibilityKM  *float64 `json:"visibility_km,omitempty"`
}

// UnmarshalJSON also accepts the collector's weather_condition,
// weather_description and visibility keys.
func (w *Weather) UnmarshalJSON(data []byte) error {
	var wire struct {
		Temperature        looseFloat `json:"temperature"`
		Humidity           looseFloat `json:"humidity"`
		Pressure           looseFloat `json:"pressure"`
		WindSpeed          looseFloat `json:"wind_speed"`
		WindDirection      looseFloat `json:"wind_direction"`
		Condition          string     `json:"condition"`
		Description        string     `json:"description"`
		VisibilityKM       looseFloat `json:"visibility_km"`
		WeatherCondition   string     `json:"weather_condition"`
		WeatherDescription string     `json:"weather_description"`
		Visibility         looseFloat `json:"visibility"`
	}
	if err := json.Unmarshal(data, &wire); err != nil {
		return err
	}
	*w = Weather{
		Temperature:   wire.Temperature.value,
		Humidity:      wire.Humidity.value,
		Pressure:      wire.Pressure.value,
		WindSpeed:     wire.WindSpeed.value,
		WindDirection: wire.WindDirection.value,
		Condition:     firstNonEmpty(wire.Condition, wire.WeatherCondition),
		Description:   firstNonEmpty(wire.Description, wire.WeatherDescription),
		VisibilityKM:  firstNonNil(wire.VisibilityKM.value, wire.Visibility.value),
	}
	return nil
}

// AirQuality carries the ordinal AQI (1 good .. 5 very poor) and pollutant concentrations in µg/m³.
type AirQuality struct {
	AQI  *int     `json:"aqi,omitempty"`
	CO   *float64 `json:"co,omitempty"`
	NO2  *float64 `json:"no2,omitempty"`
	O3   *float64 `json:"o3,omitempty"`
	SO2  *float64 `json:"so2,omitempty"`
	PM25 *float64 `json:"pm2_5,omitempty"`
	PM10 *float64 `json:"pm10,omitempty"`
	NH3  *float64 `json:"nh3,omitempty"`
}

// UnmarshalJSON accepts integral floats such as 4.0 for the AQI and drops
// values that are not numbers.
func (a *AirQuality) UnmarshalJSON(data []byte) error {
	var wire struct {
		AQI  looseInt   `json:"aqi"`
		CO   looseFloat `json:"co"`
		NO2  looseFloat `json:"no2"`
		O3   looseFloat `json:"o3"`
		SO2  looseFloat `json:"so2"`
		PM25 looseFloat `json:"pm2_5"`
		PM10 looseFloat `json:"pm10"`
		NH3  looseFloat `json:"nh3"`
	}
	if err := json.Unmarshal(data, &wire); err != nil {
		return err
	}
	*a = AirQuality{
		AQI:  wire.AQI.value,
		CO:   wire.CO.value,
		NO2:  wire.NO2.value,
		O3:   wire.O3.value,
		SO2:  wire.SO2.value,
		PM25: wire.PM25.value,
		PM10: wire.PM10.value,
		NH3:  wire.NH3.value,
	}
	return nil
}

// Pollen summarizes pollen counts by type.
type Pollen struct {
	Tree         *float64 `json:"tree,omitempty"`
	Grass        *float64 `json:"grass,omitempty"`
	Weed         *float64 `json:"weed,omitempty"`
	TotalCount   *float64 `json:"total_count,omitempty"`
	DominantType string   `json:"dominant_type,omitempty"`
	RiskLevel    string   `json:"risk_level,omitempty"`
}

// UnmarshalJSON accepts both the current field names and the legacy
// *_pollen / total_pollen_count / dominant_pollen_type keys.
func (p *Pollen) UnmarshalJSON(data []byte) error {
	var wire struct {
		Tree             looseFloat `json:"tree"`
		Grass            looseFloat `json:"grass"`
		Weed             looseFloat `json:"weed"`
		TotalCount       looseFloat `json:"total_count"`
		DominantType     string     `json:"dominant_type"`
		RiskLevel        string     `json:"risk_level"`
		TreePollen       looseFloat `json:"tree_pollen"`
		GrassPollen      looseFloat `json:"grass_pollen"`
		WeedPollen       looseFloat `json:"weed_pollen"`
		TotalPollenCount looseFloat `json:"total_pollen_count"`
		DominantPollen   string     `json:"dominant_pollen_type"`
	}
	if err := json.Unmarshal(data, &wire); err != nil {
		return err
	}
	*p = Pollen{
		Tree:         firstNonNil(wire.Tree.value, wire.TreePollen.value),
		Grass:        firstNonNil(wire.Grass.value, wire.GrassPollen.value),
		Weed:         firstNonNil(wire.Weed.value, wire.WeedPollen.value),
		TotalCount:   firstNonNil(wire.TotalCount.value, wire.TotalPollenCount.value),
		DominantType: firstNonEmpty(wire.DominantType, wire.DominantPollen),
		RiskLevel:    wire.RiskLevel,
	}
	return nil
}

// AuxiliaryScalars are raw values passed past the model to the rule-based alert stage.
type AuxiliaryScalars struct {
	PollenLevel     float64 `json:"pollen_level"`
	AirQualityIndex float64 `json:"air_quality_index"`
}

// Float returns a pointer to v, handy when assembling snapshots by hand.
func Float(v float64) *float64 {
	return &v
}

// Int returns a pointer to v.
func Int(v int) *int {
	return &v
}

func firstNonNil(values ...*float64) *float64 {
	for _, v := range values {
		if v != nil {
			return v
		}
	}
	return nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
