package environment

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/yanqian/allergy-risk/internal/domain/features"
	apperrors "github.com/yanqian/allergy-risk/pkg/errors"
)

// WeatherProvider fetches live weather and air quality for a coordinate.
type WeatherProvider interface {
	Weather(ctx context.Context, lat, lon float64) (*features.Weather, error)
	AirQuality(ctx context.Context, lat, lon float64) (*features.AirQuality, error)
}

// PollenProvider supplies pollen counts.
type PollenProvider interface {
	Pollen(ctx context.Context, lat, lon float64) (*features.Pollen, error)
}

// Cache keeps recent snapshots keyed by rounded coordinates.
type Cache interface {
	Get(ctx context.Context, key string) (features.EnvironmentalSnapshot, bool, error)
	Set(ctx context.Context, key string, snapshot features.EnvironmentalSnapshot, ttl time.Duration) error
}

// Location is a WGS84 coordinate.
type Location struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// Validate rejects coordinates outside the globe.
func (l Location) Validate() error {
	if math.IsNaN(l.Latitude) || l.Latitude < -90 || l.Latitude > 90 {
		return fmt.Errorf("latitude %v out of range", l.Latitude)
	}
	if math.IsNaN(l.Longitude) || l.Longitude < -180 || l.Longitude > 180 {
		return fmt.Errorf("longitude %v out of range", l.Longitude)
	}
	return nil
}

// Config tunes the lookup service.
type Config struct {
	CacheTTL time.Duration
}

// Service exposes environment lookups and the rule-based assessment.
type Service interface {
	Lookup(ctx context.Context, loc Location) (features.EnvironmentalSnapshot, error)
	Assess(ctx context.Context, req AssessmentRequest) (AssessmentResponse, error)
}

// AssessmentRequest carries either a snapshot or a location to look up.
type AssessmentRequest struct {
	EnvironmentalData *features.EnvironmentalSnapshot `json:"environmentalData"`
	Location          *Location                       `json:"location"`
}

// AssessmentResponse pairs the assessment with the snapshot it was computed from.
type AssessmentResponse struct {
	Assessment  Assessment                     `json:"assessment"`
	Environment features.EnvironmentalSnapshot `json:"environmental_data"`
}

type service struct {
	cfg     Config
	weather WeatherProvider
	pollen  PollenProvider
	cache   Cache
	logger  *slog.Logger
	now     func() time.Time
}

// NewService wires the environment domain. cache may be nil.
func NewService(cfg Config, weather WeatherProvider, pollen PollenProvider, cache Cache, logger *slog.Logger) Service {
	return &service{
		cfg:     cfg,
		weather: weather,
		pollen:  pollen,
		cache:   cache,
		logger:  logger.With("component", "environment.service"),
		now:     time.Now,
	}
}

// Lookup assembles a snapshot for loc. A failed part is left nil; only a lookup
// where every part failed is an error.
func (s *service) Lookup(ctx context.Context, loc Location) (features.EnvironmentalSnapshot, error) {
	if err := loc.Validate(); err != nil {
		return features.EnvironmentalSnapshot{}, apperrors.Wrap("invalid_input", "location is invalid", err)
	}
	key := cacheKey(loc)
	if s.cache != nil {
		snapshot, ok, err := s.cache.Get(ctx, key)
		if err != nil {
			s.logger.Warn("environment cache read failed", "key", key, "error", err)
		} else if ok {
			return snapshot, nil
		}
	}

	snapshot := features.EnvironmentalSnapshot{Timestamp: features.At(s.now().UTC())}
	var failures []error
	if s.weather != nil {
		weather, err := s.weather.Weather(ctx, loc.Latitude, loc.Longitude)
		if err != nil {
			s.logger.Warn("weather fetch failed", "lat", loc.Latitude, "lon", loc.Longitude, "error", err)
			failures = append(failures, err)
		}
		snapshot.Weather = weather

		air, err := s.weather.AirQuality(ctx, loc.Latitude, loc.Longitude)
		if err != nil {
			s.logger.Warn("air quality fetch failed", "lat", loc.Latitude, "lon", loc.Longitude, "error", err)
			failures = append(failures, err)
		}
		snapshot.AirQuality = air
	}
	if s.pollen != nil {
		pollen, err := s.pollen.Pollen(ctx, loc.Latitude, loc.Longitude)
		if err != nil {
			s.logger.Warn("pollen fetch failed", "lat", loc.Latitude, "lon", loc.Longitude, "error", err)
			failures = append(failures, err)
		}
		snapshot.Pollen = pollen
	}

	if snapshot.Weather == nil && snapshot.AirQuality == nil && snapshot.Pollen == nil {
		cause := errors.Join(failures...)
		if cause == nil {
			cause = errors.New("no environment providers configured")
		}
		return features.EnvironmentalSnapshot{}, apperrors.Wrap("environment_unavailable", "environmental data unavailable", cause)
	}

	if s.cache != nil && len(failures) == 0 {
		if err := s.cache.Set(ctx, key, snapshot, s.cfg.CacheTTL); err != nil {
			s.logger.Warn("environment cache write failed", "key", key, "error", err)
		}
	}
	return snapshot, nil
}

func (s *service) Assess(ctx context.Context, req AssessmentRequest) (AssessmentResponse, error) {
	var snapshot features.EnvironmentalSnapshot
	switch {
	case req.EnvironmentalData != nil:
		snapshot = *req.EnvironmentalData
	case req.Location != nil:
		fetched, err := s.Lookup(ctx, *req.Location)
		if err != nil {
			return AssessmentResponse{}, err
		}
		snapshot = fetched
	default:
		return AssessmentResponse{}, apperrors.Wrap("invalid_input", "environmentalData or location is required", nil)
	}
	return AssessmentResponse{
		Assessment:  Assess(snapshot, s.now().UTC()),
		Environment: snapshot,
	}, nil
}

// cacheKey rounds to two decimals, roughly 1 km.
func cacheKey(loc Location) string {
	return fmt.Sprintf("%.2f:%.2f", loc.Latitude, loc.Longitude)
}
