package main

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/valkey-io/valkey-go"

	"github.com/yanqian/allergy-risk/internal/domain/environment"
	"github.com/yanqian/allergy-risk/internal/domain/prediction"
	"github.com/yanqian/allergy-risk/internal/domain/risk"
	"github.com/yanqian/allergy-risk/internal/infra/config"
	"github.com/yanqian/allergy-risk/internal/infra/envcache"
	"github.com/yanqian/allergy-risk/internal/infra/modelstore"
	"github.com/yanqian/allergy-risk/internal/infra/weather/openweather"
)

func provideRiskConfig(cfg *config.Config) risk.Config {
	riskCfg := risk.DefaultConfig()
	riskCfg.ContributingThreshold = cfg.Model.ContributingThreshold
	riskCfg.MaxFactors = cfg.Model.MaxFactors
	riskCfg.Synthetic.Samples = cfg.Model.Synthetic.Samples
	riskCfg.Synthetic.Seed = cfg.Model.Synthetic.Seed
	riskCfg.Synthetic.Noise = cfg.Model.Synthetic.Noise
	riskCfg.Fitter = risk.LogisticFitter{
		Iterations:   cfg.Model.Trainer.Iterations,
		LearningRate: cfg.Model.Trainer.LearningRate,
		L2:           cfg.Model.Trainer.L2,
	}
	return riskCfg
}

// provideModelStore opens the configured artifact store. A store that was
// asked for but cannot be reached is a startup error.
func provideModelStore(cfg *config.Config, logger *slog.Logger) (risk.ArtifactStore, func(), error) {
	storeCfg := cfg.ModelStore
	noop := func() {}
	switch storeCfg.Driver {
	case config.DriverMemory:
		logger.Warn("model store is in-memory, retrained models are lost on restart")
		return modelstore.NewMemoryStore(), noop, nil
	case config.DriverFile:
		logger.Info("model file store enabled", "path", storeCfg.File.Path)
		return modelstore.NewFileStore(storeCfg.File.Path), noop, nil
	case config.DriverPostgres:
		pool, err := openPostgresPool(storeCfg.Postgres)
		if err != nil {
			return nil, nil, err
		}
		store := modelstore.NewPostgresStore(pool, storeCfg.Postgres.Table)
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := store.EnsureSchema(ctx); err != nil {
			pool.Close()
			return nil, nil, err
		}
		logger.Info("model postgres store enabled", "table", storeCfg.Postgres.Table)
		return store, pool.Close, nil
	case config.DriverValkey:
		client, err := openValkey(storeCfg.Valkey.Addr)
		if err != nil {
			return nil, nil, fmt.Errorf("model valkey store: %w", err)
		}
		logger.Info("model valkey store enabled", "addr", storeCfg.Valkey.Addr)
		return modelstore.NewValkeyStore(client, storeCfg.Valkey.Key), client.Close, nil
	case config.DriverS3:
		s3 := storeCfg.S3
		store, err := modelstore.NewObjectStore(s3.Endpoint, s3.AccessKey, s3.SecretKey, s3.Bucket, s3.Region, s3.Object, s3.UseSSL, logger)
		if err != nil {
			return nil, nil, err
		}
		logger.Info("model object store enabled", "bucket", s3.Bucket, "object", s3.Object)
		return store, noop, nil
	default:
		return nil, nil, fmt.Errorf("unsupported model store driver %q", storeCfg.Driver)
	}
}

func openPostgresPool(cfg config.PostgresConfig) (*pgxpool.Pool, error) {
	poolConfig, err := pgxpool.ParseConfig(strings.TrimSpace(cfg.DSN))
	if err != nil {
		return nil, fmt.Errorf("invalid postgres dsn: %w", err)
	}
	if cfg.MaxConns > 0 {
		poolConfig.MaxConns = cfg.MaxConns
	}
	if cfg.MinConns > 0 {
		poolConfig.MinConns = cfg.MinConns
	}
	pool, err := pgxpool.NewWithConfig(context.Background(), poolConfig)
	if err != nil {
		return nil, fmt.Errorf("init postgres pool: %w", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("postgres ping: %w", err)
	}
	return pool, nil
}

func provideScorer(cfg risk.Config, store risk.ArtifactStore, logger *slog.Logger) *risk.Scorer {
	return risk.NewScorer(cfg, store, logger)
}

func provideEnvironmentConfig(cfg *config.Config) environment.Config {
	return environment.Config{CacheTTL: cfg.Environment.Cache.TTL}
}

// provideWeatherProvider returns nil when no API key is configured; lookups
// then fall back to the static pollen source alone.
func provideWeatherProvider(cfg *config.Config, logger *slog.Logger) environment.WeatherProvider {
	ow := cfg.Environment.OpenWeather
	if strings.TrimSpace(ow.APIKey) == "" {
		logger.Info("openweather api key not set, live weather lookups disabled")
		return nil
	}
	return openweather.NewClient(ow.APIKey, ow.BaseURL, ow.AirQualityURL, ow.Timeout)
}

func providePollenProvider() environment.PollenProvider {
	return openweather.NewStaticPollen()
}

func provideEnvironmentCache(cfg *config.Config, logger *slog.Logger) (environment.Cache, func()) {
	cacheCfg := cfg.Environment.Cache.Valkey
	if cacheCfg.Enabled {
		client, err := openValkey(cacheCfg.Addr)
		if err != nil {
			logger.Error("environment valkey cache unavailable, falling back to memory cache", "error", err)
		} else {
			logger.Info("environment valkey cache enabled", "addr", cacheCfg.Addr)
			return envcache.NewValkeyCache(client, cacheCfg.Prefix), client.Close
		}
	}
	return envcache.NewMemoryCache(), func() {}
}

func provideEnvironmentSource(svc environment.Service) prediction.EnvironmentSource {
	return svc
}

// openValkey connects and pings. addr may be host:port or a redis:// URL.
func openValkey(addr string) (valkey.Client, error) {
	opt, err := buildValkeyOptions(addr)
	if err != nil {
		return nil, err
	}
	client, err := valkey.NewClient(opt)
	if err != nil {
		return nil, err
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := client.Do(ctx, client.B().Ping().Build()).Error(); err != nil {
		client.Close()
		return nil, fmt.Errorf("valkey ping: %w", err)
	}
	return client, nil
}

func buildValkeyOptions(addr string) (valkey.ClientOption, error) {
	var (
		opt valkey.ClientOption
		err error
	)
	if strings.Contains(addr, "://") {
		opt, err = valkey.ParseURL(addr)
	} else {
		opt = valkey.ClientOption{InitAddress: []string{addr}}
	}
	if err != nil {
		return valkey.ClientOption{}, err
	}
	return opt, nil
}
