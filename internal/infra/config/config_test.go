package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("CONFIG_PATH", "")
	t.Chdir(t.TempDir())

	cfg, err := Load()
	require.NoError(t, err)
	require.Equal(t, ":8080", cfg.HTTP.Address)
	require.Equal(t, DriverFile, cfg.ModelStore.Driver)
	require.Equal(t, 1000, cfg.Model.Synthetic.Samples)
	require.Equal(t, uint64(42), cfg.Model.Synthetic.Seed)
	require.Equal(t, 0.05, cfg.Model.ContributingThreshold)
	require.Equal(t, 5, cfg.Model.MaxFactors)
	require.Equal(t, 15*time.Minute, cfg.Environment.Cache.TTL)
}

func TestLoadFileThenEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	yaml := `
http:
  address: ":9090"
logging:
  level: debug
  format: text
modelStore:
  driver: valkey
  valkey:
    addr: "localhost:6379"
    key: "models:current"
environment:
  cache:
    ttl: 5m
`
	require.NoError(t, os.WriteFile(path, []byte(yaml), 0o600))
	t.Setenv("CONFIG_PATH", path)
	t.Setenv("LOG_LEVEL", "warn")
	t.Setenv("OPENWEATHER_API_KEY", "secret")
	t.Setenv("HTTP_CORS_ORIGINS", "https://a.example, https://b.example")

	cfg, err := Load()
	require.NoError(t, err)
	require.Equal(t, ":9090", cfg.HTTP.Address)
	require.Equal(t, "warn", cfg.Logging.Level)
	require.Equal(t, "text", cfg.Logging.Format)
	require.Equal(t, DriverValkey, cfg.ModelStore.Driver)
	require.Equal(t, "models:current", cfg.ModelStore.Valkey.Key)
	require.Equal(t, 5*time.Minute, cfg.Environment.Cache.TTL)
	require.Equal(t, "secret", cfg.Environment.OpenWeather.APIKey)
	require.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.HTTP.CORS.AllowedOrigins)
	require.Equal(t, 42, int(cfg.Model.Synthetic.Seed), "unset keys keep their defaults")
}

func TestValidate(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(c *Config)
	}{
		{name: "empty address", mutate: func(c *Config) { c.HTTP.Address = "" }},
		{name: "unknown driver", mutate: func(c *Config) { c.ModelStore.Driver = "sqlite" }},
		{name: "postgres without dsn", mutate: func(c *Config) { c.ModelStore.Driver = DriverPostgres }},
		{name: "postgres bad table", mutate: func(c *Config) {
			c.ModelStore.Driver = DriverPostgres
			c.ModelStore.Postgres.DSN = "postgres://localhost/db"
			c.ModelStore.Postgres.Table = "models; drop table x"
		}},
		{name: "s3 without bucket", mutate: func(c *Config) {
			c.ModelStore.Driver = DriverS3
			c.ModelStore.S3.Endpoint = "minio:9000"
		}},
		{name: "valkey cache without addr", mutate: func(c *Config) { c.Environment.Cache.Valkey.Enabled = true }},
		{name: "threshold out of range", mutate: func(c *Config) { c.Model.ContributingThreshold = 1 }},
		{name: "too few synthetic samples", mutate: func(c *Config) { c.Model.Synthetic.Samples = 1 }},
		{name: "bad log format", mutate: func(c *Config) { c.Logging.Format = "xml" }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := defaultConfig()
			tc.mutate(cfg)
			require.Error(t, cfg.Validate())
		})
	}
	require.NoError(t, defaultConfig().Validate())
}
