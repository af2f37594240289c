package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config aggregates runtime configuration used across the service.
type Config struct {
	HTTP        HTTPConfig        `yaml:"http"`
	Logging     LoggingConfig     `yaml:"logging"`
	Model       ModelConfig       `yaml:"model"`
	ModelStore  ModelStoreConfig  `yaml:"modelStore"`
	Environment EnvironmentConfig `yaml:"environment"`
}

// HTTPConfig controls server level behavior.
type HTTPConfig struct {
	Address      string          `yaml:"address"`
	ReadTimeout  time.Duration   `yaml:"readTimeout"`
	WriteTimeout time.Duration   `yaml:"writeTimeout"`
	RateLimit    RateLimitConfig `yaml:"rateLimit"`
	Retry        RetryConfig     `yaml:"retry"`
	CORS         CORSConfig      `yaml:"cors"`
}

// RateLimitConfig drives the request limiting middleware.
type RateLimitConfig struct {
	Enabled           bool `yaml:"enabled"`
	RequestsPerMinute int  `yaml:"requestsPerMinute"`
	Burst             int  `yaml:"burst"`
}

// RetryConfig configures best-effort retries for idempotent requests.
type RetryConfig struct {
	Enabled     bool          `yaml:"enabled"`
	MaxAttempts int           `yaml:"maxAttempts"`
	BaseBackoff time.Duration `yaml:"baseBackoff"`
	Exclude     []string      `yaml:"exclude"`
}

// CORSConfig lists browser origins allowed to call the API. "*" allows any.
type CORSConfig struct {
	AllowedOrigins []string `yaml:"allowedOrigins"`
}

// LoggingConfig selects the slog handler.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// ModelConfig tunes training and factor ranking.
type ModelConfig struct {
	Trainer               TrainerConfig   `yaml:"trainer"`
	Synthetic             SyntheticConfig `yaml:"synthetic"`
	ContributingThreshold float64         `yaml:"contributingThreshold"`
	MaxFactors            int             `yaml:"maxFactors"`
}

// TrainerConfig holds the gradient descent settings.
type TrainerConfig struct {
	Iterations   int     `yaml:"iterations"`
	LearningRate float64 `yaml:"learningRate"`
	L2           float64 `yaml:"l2"`
}

// SyntheticConfig shapes the cold-start dataset.
type SyntheticConfig struct {
	Samples int     `yaml:"samples"`
	Seed    uint64  `yaml:"seed"`
	Noise   float64 `yaml:"noise"`
}

// ModelStoreConfig picks where the trained artifact lives.
type ModelStoreConfig struct {
	Driver   string         `yaml:"driver"`
	File     FileConfig     `yaml:"file"`
	Postgres PostgresConfig `yaml:"postgres"`
	Valkey   ValkeyConfig   `yaml:"valkey"`
	S3       S3Config       `yaml:"s3"`
}

// Model store drivers.
const (
	DriverMemory   = "memory"
	DriverFile     = "file"
	DriverPostgres = "postgres"
	DriverValkey   = "valkey"
	DriverS3       = "s3"
)

// FileConfig points at the artifact on local disk.
type FileConfig struct {
	Path string `yaml:"path"`
}

// PostgresConfig contains DSN and pooling settings.
type PostgresConfig struct {
	DSN      string `yaml:"dsn"`
	MaxConns int32  `yaml:"maxConns"`
	MinConns int32  `yaml:"minConns"`
	Table    string `yaml:"table"`
}

// ValkeyConfig contains connection information for the artifact key.
type ValkeyConfig struct {
	Addr string `yaml:"addr"`
	Key  string `yaml:"key"`
}

// S3Config configures S3-compatible object storage.
type S3Config struct {
	Endpoint  string `yaml:"endpoint"`
	AccessKey string `yaml:"accessKey"`
	SecretKey string `yaml:"secretKey"`
	Bucket    string `yaml:"bucket"`
	Region    string `yaml:"region"`
	Object    string `yaml:"object"`
	UseSSL    bool   `yaml:"useSsl"`
}

// EnvironmentConfig controls live environmental lookups.
type EnvironmentConfig struct {
	OpenWeather OpenWeatherConfig `yaml:"openWeather"`
	Cache       CacheConfig       `yaml:"cache"`
}

// OpenWeatherConfig contains OpenWeatherMap settings. Lookups are disabled
// when APIKey is empty.
type OpenWeatherConfig struct {
	APIKey        string        `yaml:"apiKey"`
	BaseURL       string        `yaml:"baseUrl"`
	AirQualityURL string        `yaml:"airQualityUrl"`
	Timeout       time.Duration `yaml:"timeout"`
}

// CacheConfig controls the snapshot cache.
type CacheConfig struct {
	TTL    time.Duration `yaml:"ttl"`
	Valkey RedisConfig   `yaml:"valkey"`
}

// RedisConfig contains connection information for cache storage.
type RedisConfig struct {
	Enabled bool   `yaml:"enabled"`
	Addr    string `yaml:"addr"`
	Prefix  string `yaml:"prefix"`
}

// Load reads configuration from a YAML file and environment variables.
func Load() (*Config, error) {
	cfg := defaultConfig()

	if path := os.Getenv("CONFIG_PATH"); path != "" {
		if err := hydrateFromFile(cfg, path); err != nil {
			return nil, err
		}
	} else if _, err := os.Stat("configs/config.yaml"); err == nil {
		if err := hydrateFromFile(cfg, "configs/config.yaml"); err != nil {
			return nil, err
		}
	}

	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

func hydrateFromFile(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parse config file: %w", err)
	}
	return nil
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("HTTP_ADDRESS"); v != "" {
		cfg.HTTP.Address = v
	}
	if v := os.Getenv("PORT"); v != "" && os.Getenv("HTTP_ADDRESS") == "" {
		cfg.HTTP.Address = ":" + v
	}
	if v := os.Getenv("HTTP_RATE_LIMIT_ENABLED"); v != "" {
		cfg.HTTP.RateLimit.Enabled = parseBool(v)
	}
	if v := os.Getenv("HTTP_RATE_LIMIT_RPM"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			cfg.HTTP.RateLimit.RequestsPerMinute = parsed
		}
	}
	if v := os.Getenv("HTTP_RATE_LIMIT_BURST"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			cfg.HTTP.RateLimit.Burst = parsed
		}
	}
	if v := os.Getenv("HTTP_RETRY_ENABLED"); v != "" {
		cfg.HTTP.Retry.Enabled = parseBool(v)
	}
	if v := os.Getenv("HTTP_RETRY_MAX_ATTEMPTS"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			cfg.HTTP.Retry.MaxAttempts = parsed
		}
	}
	if v := os.Getenv("HTTP_RETRY_BASE_BACKOFF"); v != "" {
		if parsed, err := time.ParseDuration(v); err == nil {
			cfg.HTTP.Retry.BaseBackoff = parsed
		}
	}
	if v := os.Getenv("HTTP_CORS_ORIGINS"); v != "" {
		cfg.HTTP.CORS.AllowedOrigins = splitList(v)
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v := os.Getenv("LOG_FORMAT"); v != "" {
		cfg.Logging.Format = v
	}
	if v := os.Getenv("MODEL_TRAINER_ITERATIONS"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			cfg.Model.Trainer.Iterations = parsed
		}
	}
	if v := os.Getenv("MODEL_SYNTHETIC_SEED"); v != "" {
		if parsed, err := strconv.ParseUint(v, 10, 64); err == nil {
			cfg.Model.Synthetic.Seed = parsed
		}
	}
	if v := os.Getenv("MODEL_STORE_DRIVER"); v != "" {
		cfg.ModelStore.Driver = strings.ToLower(v)
	}
	if v := os.Getenv("MODEL_STORE_PATH"); v != "" {
		cfg.ModelStore.File.Path = v
	}
	if v := os.Getenv("MODEL_STORE_POSTGRES_DSN"); v != "" {
		cfg.ModelStore.Postgres.DSN = v
	}
	if v := os.Getenv("MODEL_STORE_POSTGRES_MAX_CONNS"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			cfg.ModelStore.Postgres.MaxConns = int32(parsed)
		}
	}
	if v := os.Getenv("MODEL_STORE_VALKEY_ADDR"); v != "" {
		cfg.ModelStore.Valkey.Addr = v
	}
	if v := os.Getenv("MODEL_STORE_S3_ENDPOINT"); v != "" {
		cfg.ModelStore.S3.Endpoint = v
	}
	if v := os.Getenv("MODEL_STORE_S3_ACCESS_KEY"); v != "" {
		cfg.ModelStore.S3.AccessKey = v
	}
	if v := os.Getenv("MODEL_STORE_S3_SECRET_KEY"); v != "" {
		cfg.ModelStore.S3.SecretKey = v
	}
	if v := os.Getenv("MODEL_STORE_S3_BUCKET"); v != "" {
		cfg.ModelStore.S3.Bucket = v
	}
	if v := os.Getenv("OPENWEATHER_API_KEY"); v != "" {
		cfg.Environment.OpenWeather.APIKey = v
	}
	if v := os.Getenv("OPENWEATHER_BASE_URL"); v != "" {
		cfg.Environment.OpenWeather.BaseURL = v
	}
	if v := os.Getenv("ENVIRONMENT_CACHE_TTL"); v != "" {
		if parsed, err := time.ParseDuration(v); err == nil {
			cfg.Environment.Cache.TTL = parsed
		}
	}
	if v := os.Getenv("ENVIRONMENT_VALKEY_ENABLED"); v != "" {
		cfg.Environment.Cache.Valkey.Enabled = parseBool(v)
	}
	if v := os.Getenv("ENVIRONMENT_VALKEY_ADDR"); v != "" {
		cfg.Environment.Cache.Valkey.Addr = v
	}
}

func defaultConfig() *Config {
	return &Config{
		HTTP: HTTPConfig{
			Address:      ":8080",
			ReadTimeout:  5 * time.Second,
			WriteTimeout: 20 * time.Second,
			RateLimit: RateLimitConfig{
				Enabled:           true,
				RequestsPerMinute: 120,
				Burst:             20,
			},
			Retry: RetryConfig{
				Enabled:     true,
				MaxAttempts: 3,
				BaseBackoff: 150 * time.Millisecond,
				Exclude: []string{
					"/api/v1/training/update",
				},
			},
			CORS: CORSConfig{
				AllowedOrigins: []string{"*"},
			},
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
		Model: ModelConfig{
			Trainer: TrainerConfig{
				Iterations:   300,
				LearningRate: 0.5,
				L2:           1e-3,
			},
			Synthetic: SyntheticConfig{
				Samples: 1000,
				Seed:    42,
				Noise:   0.3,
			},
			ContributingThreshold: 0.05,
			MaxFactors:            5,
		},
		ModelStore: ModelStoreConfig{
			Driver: DriverFile,
			File: FileConfig{
				Path: "data/model.json",
			},
			Postgres: PostgresConfig{
				MaxConns: 4,
				MinConns: 0,
				Table:    "model_artifacts",
			},
			Valkey: ValkeyConfig{
				Key: "allergy-risk:model",
			},
			S3: S3Config{
				Region: "auto",
				Object: "models/allergy-risk.json",
				UseSSL: true,
			},
		},
		Environment: EnvironmentConfig{
			OpenWeather: OpenWeatherConfig{
				BaseURL:       "http://api.openweathermap.org/data/2.5",
				AirQualityURL: "http://api.openweathermap.org/data/2.5/air_pollution",
				Timeout:       15 * time.Second,
			},
			Cache: CacheConfig{
				TTL: 15 * time.Minute,
				Valkey: RedisConfig{
					Prefix: "env",
				},
			},
		},
	}
}

// Validate ensures the configuration is safe to use.
func (c *Config) Validate() error {
	if c.HTTP.Address == "" {
		return errors.New("http.address cannot be empty")
	}
	if c.HTTP.RateLimit.Enabled {
		if c.HTTP.RateLimit.RequestsPerMinute <= 0 {
			return errors.New("http.rateLimit.requestsPerMinute must be positive")
		}
		if c.HTTP.RateLimit.Burst <= 0 {
			return errors.New("http.rateLimit.burst must be positive")
		}
	}
	if c.HTTP.Retry.Enabled {
		if c.HTTP.Retry.MaxAttempts <= 0 {
			return errors.New("http.retry.maxAttempts must be positive")
		}
		if c.HTTP.Retry.BaseBackoff <= 0 {
			return errors.New("http.retry.baseBackoff must be positive")
		}
	}
	switch strings.ToLower(c.Logging.Format) {
	case "", "json", "text":
	default:
		return fmt.Errorf("logging.format %q must be json or text", c.Logging.Format)
	}
	if c.Model.Trainer.Iterations < 0 {
		return errors.New("model.trainer.iterations cannot be negative")
	}
	if c.Model.Trainer.LearningRate < 0 {
		return errors.New("model.trainer.learningRate cannot be negative")
	}
	if c.Model.Trainer.L2 < 0 {
		return errors.New("model.trainer.l2 cannot be negative")
	}
	if c.Model.Synthetic.Samples < 2 {
		return errors.New("model.synthetic.samples must be at least 2")
	}
	if c.Model.ContributingThreshold < 0 || c.Model.ContributingThreshold >= 1 {
		return errors.New("model.contributingThreshold must be in [0, 1)")
	}
	if c.Model.MaxFactors <= 0 {
		return errors.New("model.maxFactors must be positive")
	}
	if err := c.ModelStore.validate(); err != nil {
		return err
	}
	if c.Environment.Cache.TTL < 0 {
		return errors.New("environment.cache.ttl cannot be negative")
	}
	if c.Environment.Cache.Valkey.Enabled && strings.TrimSpace(c.Environment.Cache.Valkey.Addr) == "" {
		return errors.New("environment.cache.valkey.addr cannot be empty when valkey cache is enabled")
	}
	if c.Environment.OpenWeather.APIKey != "" && c.Environment.OpenWeather.BaseURL == "" {
		return errors.New("environment.openWeather.baseUrl cannot be empty")
	}
	return nil
}

func (m ModelStoreConfig) validate() error {
	switch m.Driver {
	case DriverMemory:
	case DriverFile:
		if strings.TrimSpace(m.File.Path) == "" {
			return errors.New("modelStore.file.path cannot be empty")
		}
	case DriverPostgres:
		if strings.TrimSpace(m.Postgres.DSN) == "" {
			return errors.New("modelStore.postgres.dsn cannot be empty")
		}
		if !validIdentifier(m.Postgres.Table) {
			return fmt.Errorf("modelStore.postgres.table %q is not a plain identifier", m.Postgres.Table)
		}
	case DriverValkey:
		if strings.TrimSpace(m.Valkey.Addr) == "" {
			return errors.New("modelStore.valkey.addr cannot be empty")
		}
		if strings.TrimSpace(m.Valkey.Key) == "" {
			return errors.New("modelStore.valkey.key cannot be empty")
		}
	case DriverS3:
		if m.S3.Endpoint == "" || m.S3.Bucket == "" || m.S3.Object == "" {
			return errors.New("modelStore.s3 endpoint, bucket and object are required")
		}
	default:
		return fmt.Errorf("modelStore.driver %q is not supported", m.Driver)
	}
	return nil
}

func validIdentifier(name string) bool {
	if name == "" {
		return false
	}
	for i, r := range name {
		switch {
		case r == '_', r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z':
		case r >= '0' && r <= '9' && i > 0:
		default:
			return false
		}
	}
	return true
}

func parseBool(v string) bool {
	return v == "1" || strings.EqualFold(v, "true")
}

func splitList(v string) []string {
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if clean := strings.TrimSpace(p); clean != "" {
			out = append(out, clean)
		}
	}
	return out
}
