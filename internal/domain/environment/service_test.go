package environment

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/yanqian/allergy-risk/internal/domain/features"
	apperrors "github.com/yanqian/allergy-risk/pkg/errors"
)

var assessedAt = time.Date(2024, time.May, 1, 9, 0, 0, 0, time.UTC)

func TestAssessFavorable(t *testing.T) {
	got := Assess(features.EnvironmentalSnapshot{}, assessedAt)

	require.Equal(t, LevelLow, got.RiskLevel)
	require.Zero(t, got.RiskScore)
	require.Empty(t, got.ContributingFactors)
	require.Equal(t, []string{favorableAdvice}, got.Recommendations)
	require.Equal(t, assessedAt, got.AssessedAt)
}

func TestAssessAllFactors(t *testing.T) {
	snapshot := features.EnvironmentalSnapshot{
		Weather:    &features.Weather{Humidity: features.Float(85), WindSpeed: features.Float(12)},
		AirQuality: &features.AirQuality{AQI: features.Int(4)},
		Pollen:     &features.Pollen{TotalCount: features.Float(90)},
	}
	got := Assess(snapshot, assessedAt)

	require.Equal(t, 7, got.RiskScore)
	require.Equal(t, LevelVeryHigh, got.RiskLevel)
	require.Equal(t, []string{FactorPoorAirQuality, FactorHighPollen, FactorHighHumidity, FactorStrongWinds}, got.ContributingFactors)
	require.Equal(t, []string{
		"Consider staying indoors during peak hours (10am-4pm)",
		"Keep windows closed and use air conditioning",
		"Take allergy medication as prescribed",
		"Shower and change clothes after being outside",
		"Avoid outdoor activities like gardening",
		"Wear a mask if you must go outside",
		"Avoid outdoor exercise",
		"Use a dehumidifier indoors",
		"Check for mold and mildew growth",
	}, got.Recommendations)
}

func TestAssessLevels(t *testing.T) {
	cases := []struct {
		name     string
		snapshot features.EnvironmentalSnapshot
		score    int
		level    Level
	}{
		{name: "wind only", snapshot: features.EnvironmentalSnapshot{Weather: &features.Weather{WindSpeed: features.Float(11)}}, score: 1, level: LevelLow},
		{name: "air quality", snapshot: features.EnvironmentalSnapshot{AirQuality: &features.AirQuality{AQI: features.Int(3)}}, score: 2, level: LevelModerate},
		{name: "pollen", snapshot: features.EnvironmentalSnapshot{Pollen: &features.Pollen{TotalCount: features.Float(51)}}, score: 3, level: LevelModerate},
		{name: "pollen and humidity", snapshot: features.EnvironmentalSnapshot{Pollen: &features.Pollen{TotalCount: features.Float(51)}, Weather: &features.Weather{Humidity: features.Float(71)}}, score: 4, level: LevelHigh},
		{name: "thresholds are exclusive", snapshot: features.EnvironmentalSnapshot{Pollen: &features.Pollen{TotalCount: features.Float(50)}, Weather: &features.Weather{Humidity: features.Float(70), WindSpeed: features.Float(10)}, AirQuality: &features.AirQuality{AQI: features.Int(2)}}, score: 0, level: LevelLow},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := Assess(tc.snapshot, assessedAt)
			require.Equal(t, tc.score, got.RiskScore)
			require.Equal(t, tc.level, got.RiskLevel)
		})
	}
}

type stubWeather struct {
	weatherErr error
	airErr     error
	calls      int
}

func (s *stubWeather) Weather(context.Context, float64, float64) (*features.Weather, error) {
	s.calls++
	if s.weatherErr != nil {
		return nil, s.weatherErr
	}
	return &features.Weather{Temperature: features.Float(24), Humidity: features.Float(80)}, nil
}

func (s *stubWeather) AirQuality(context.Context, float64, float64) (*features.AirQuality, error) {
	if s.airErr != nil {
		return nil, s.airErr
	}
	return &features.AirQuality{AQI: features.Int(2)}, nil
}

type stubPollen struct{ err error }

func (s stubPollen) Pollen(context.Context, float64, float64) (*features.Pollen, error) {
	if s.err != nil {
		return nil, s.err
	}
	return &features.Pollen{TotalCount: features.Float(35), DominantType: "tree"}, nil
}

type mapCache struct {
	mu    sync.Mutex
	items map[string]features.EnvironmentalSnapshot
}

func (c *mapCache) Get(_ context.Context, key string) (features.EnvironmentalSnapshot, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	s, ok := c.items[key]
	return s, ok, nil
}

func (c *mapCache) Set(_ context.Context, key string, snapshot features.EnvironmentalSnapshot, _ time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.items == nil {
		c.items = make(map[string]features.EnvironmentalSnapshot)
	}
	c.items[key] = snapshot
	return nil
}

func newTestService(weather WeatherProvider, pollen PollenProvider, cache Cache) Service {
	svc := NewService(Config{CacheTTL: time.Minute}, weather, pollen, cache, slog.New(slog.NewTextHandler(io.Discard, nil)))
	svc.(*service).now = func() time.Time { return assessedAt }
	return svc
}

func TestLookupCachesCompleteSnapshots(t *testing.T) {
	weather := &stubWeather{}
	cache := &mapCache{}
	svc := newTestService(weather, stubPollen{}, cache)

	first, err := svc.Lookup(context.Background(), Location{Latitude: 1.3521, Longitude: 103.8198})
	require.NoError(t, err)
	require.Equal(t, 24.0, *first.Weather.Temperature)
	require.Equal(t, 2, *first.AirQuality.AQI)
	require.Equal(t, 35.0, *first.Pollen.TotalCount)

	second, err := svc.Lookup(context.Background(), Location{Latitude: 1.3549, Longitude: 103.8203})
	require.NoError(t, err)
	require.Equal(t, first, second)
	require.Equal(t, 1, weather.calls)
	require.Contains(t, cache.items, "1.35:103.82")
}

func TestLookupDegradesOnPartialFailure(t *testing.T) {
	weather := &stubWeather{airErr: errors.New("timeout")}
	cache := &mapCache{}
	svc := newTestService(weather, stubPollen{}, cache)

	got, err := svc.Lookup(context.Background(), Location{Latitude: 10, Longitude: 10})
	require.NoError(t, err)
	require.NotNil(t, got.Weather)
	require.Nil(t, got.AirQuality)
	require.Empty(t, cache.items)
}

func TestLookupFailsWhenEverythingFails(t *testing.T) {
	weather := &stubWeather{weatherErr: errors.New("down"), airErr: errors.New("down")}
	svc := newTestService(weather, stubPollen{err: errors.New("down")}, nil)

	_, err := svc.Lookup(context.Background(), Location{Latitude: 10, Longitude: 10})
	require.True(t, apperrors.IsCode(err, "environment_unavailable"))
}

func TestLookupValidatesLocation(t *testing.T) {
	svc := newTestService(&stubWeather{}, stubPollen{}, nil)
	_, err := svc.Lookup(context.Background(), Location{Latitude: 91})
	require.True(t, apperrors.IsCode(err, "invalid_input"))
	_, err = svc.Lookup(context.Background(), Location{Longitude: -181})
	require.True(t, apperrors.IsCode(err, "invalid_input"))
}

func TestAssessRequest(t *testing.T) {
	svc := newTestService(&stubWeather{}, stubPollen{}, nil)

	res, err := svc.Assess(context.Background(), AssessmentRequest{Location: &Location{Latitude: 1, Longitude: 2}})
	require.NoError(t, err)
	require.Equal(t, []string{FactorHighHumidity}, res.Assessment.ContributingFactors)
	require.Equal(t, assessedAt, res.Assessment.AssessedAt)

	snapshot := features.EnvironmentalSnapshot{Pollen: &features.Pollen{TotalCount: features.Float(60)}}
	res, err = svc.Assess(context.Background(), AssessmentRequest{EnvironmentalData: &snapshot})
	require.NoError(t, err)
	require.Equal(t, []string{FactorHighPollen}, res.Assessment.ContributingFactors)

	_, err = svc.Assess(context.Background(), AssessmentRequest{})
	require.True(t, apperrors.IsCode(err, "invalid_input"))
}
