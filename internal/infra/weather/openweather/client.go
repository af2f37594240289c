package openweather

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/yanqian/allergy-risk/internal/domain/environment"
	"github.com/yanqian/allergy-risk/internal/domain/features"
)

const (
	defaultBaseURL       = "http://api.openweathermap.org/data/2.5"
	defaultVisibilityM   = 10000
	metersPerKilometer   = 1000
	defaultClientTimeout = 15 * time.Second
)

// ErrMissingAPIKey is returned by every call when no key is configured.
var ErrMissingAPIKey = errors.New("openweather api key not configured")

// Client fetches current weather and air pollution from OpenWeatherMap.
type Client struct {
	apiKey        string
	baseURL       string
	airQualityURL string
	httpClient    *http.Client
}

// NewClient builds an API client. airQualityURL defaults to <baseURL>/air_pollution.
func NewClient(apiKey, baseURL, airQualityURL string, timeout time.Duration) *Client {
	base := strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if base == "" {
		base = defaultBaseURL
	}
	air := strings.TrimSpace(airQualityURL)
	if air == "" {
		air = base + "/air_pollution"
	}
	if timeout <= 0 {
		timeout = defaultClientTimeout
	}
	return &Client{
		apiKey:        strings.TrimSpace(apiKey),
		baseURL:       base,
		airQualityURL: air,
		httpClient:    &http.Client{Timeout: timeout},
	}
}

// Weather fetches current conditions in metric units.
func (c *Client) Weather(ctx context.Context, lat, lon float64) (*features.Weather, error) {
	var raw weatherResponse
	if err := c.get(ctx, c.baseURL+"/weather", lat, lon, map[string]string{"units": "metric"}, &raw); err != nil {
		return nil, fmt.Errorf("weather: %w", err)
	}
	visibility := float64(defaultVisibilityM)
	if raw.Visibility != nil {
		visibility = *raw.Visibility
	}
	w := &features.Weather{
		Temperature:   raw.Main.Temp,
		Humidity:      raw.Main.Humidity,
		Pressure:      raw.Main.Pressure,
		WindSpeed:     raw.Wind.Speed,
		WindDirection: features.Float(0),
		VisibilityKM:  features.Float(visibility / metersPerKilometer),
	}
	if raw.Wind.Deg != nil {
		w.WindDirection = raw.Wind.Deg
	}
	if len(raw.Weather) > 0 {
		w.Condition = raw.Weather[0].Main
		w.Description = raw.Weather[0].Description
	}
	return w, nil
}

// AirQuality fetches the current ordinal AQI and pollutant concentrations.
func (c *Client) AirQuality(ctx context.Context, lat, lon float64) (*features.AirQuality, error) {
	var raw airPollutionResponse
	if err := c.get(ctx, c.airQualityURL, lat, lon, nil, &raw); err != nil {
		return nil, fmt.Errorf("air quality: %w", err)
	}
	if len(raw.List) == 0 {
		return nil, errors.New("air quality: response has no readings")
	}
	item := raw.List[0]
	comp := item.Components
	return &features.AirQuality{
		AQI:  item.Main.AQI,
		CO:   zeroIfNil(comp.CO),
		NO2:  zeroIfNil(comp.NO2),
		O3:   zeroIfNil(comp.O3),
		SO2:  zeroIfNil(comp.SO2),
		PM25: zeroIfNil(comp.PM25),
		PM10: zeroIfNil(comp.PM10),
		NH3:  zeroIfNil(comp.NH3),
	}, nil
}

func (c *Client) get(ctx context.Context, endpoint string, lat, lon float64, extra map[string]string, out any) error {
	if c.apiKey == "" {
		return ErrMissingAPIKey
	}
	query := url.Values{}
	query.Set("lat", strconv.FormatFloat(lat, 'f', -1, 64))
	query.Set("lon", strconv.FormatFloat(lon, 'f', -1, 64))
	query.Set("appid", c.apiKey)
	for k, v := range extra {
		query.Set(k, v)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint+"?"+query.Encode(), nil)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		payload, _ := io.ReadAll(io.LimitReader(resp.Body, 4<<10))
		return fmt.Errorf("request error: status=%d body=%s", resp.StatusCode, string(payload))
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

type weatherResponse struct {
	Main struct {
		Temp     *float64 `json:"temp"`
		Humidity *float64 `json:"humidity"`
		Pressure *float64 `json:"pressure"`
	} `json:"main"`
	Wind struct {
		Speed *float64 `json:"speed"`
		Deg   *float64 `json:"deg"`
	} `json:"wind"`
	Weather []struct {
		Main        string `json:"main"`
		Description string `json:"description"`
	} `json:"weather"`
	Visibility *float64 `json:"visibility"`
}

type airPollutionResponse struct {
	List []struct {
		Main struct {
			AQI *int `json:"aqi"`
		} `json:"main"`
		Components struct {
			CO   *float64 `json:"co"`
			NO2  *float64 `json:"no2"`
			O3   *float64 `json:"o3"`
			SO2  *float64 `json:"so2"`
			PM25 *float64 `json:"pm2_5"`
			PM10 *float64 `json:"pm10"`
			NH3  *float64 `json:"nh3"`
		} `json:"components"`
	} `json:"list"`
}

func zeroIfNil(v *float64) *float64 {
	if v == nil {
		return features.Float(0)
	}
	return v
}

var _ environment.WeatherProvider = (*Client)(nil)
