//go:build wireinject
// +build wireinject

package main

import (
	"github.com/google/wire"

	"github.com/yanqian/allergy-risk/internal/bootstrap"
	"github.com/yanqian/allergy-risk/internal/domain/alerts"
	"github.com/yanqian/allergy-risk/internal/domain/environment"
	"github.com/yanqian/allergy-risk/internal/domain/features"
	"github.com/yanqian/allergy-risk/internal/domain/prediction"
	"github.com/yanqian/allergy-risk/internal/domain/risk"
	"github.com/yanqian/allergy-risk/internal/infra/config"
	httpiface "github.com/yanqian/allergy-risk/internal/interface/http"
	"github.com/yanqian/allergy-risk/pkg/logger"
)

func initializeApp() (*bootstrap.App, func(), error) {
	wire.Build(
		config.Load,
		logger.New,
		provideRiskConfig,
		provideModelStore,
		provideScorer,
		provideEnvironmentConfig,
		provideWeatherProvider,
		providePollenProvider,
		provideEnvironmentCache,
		provideEnvironmentSource,
		features.NewExtractor,
		alerts.NewComposer,
		environment.NewService,
		prediction.NewService,
		wire.Bind(new(prediction.Scorer), new(*risk.Scorer)),
		wire.Bind(new(bootstrap.ModelLoader), new(*risk.Scorer)),
		httpiface.NewHandler,
		httpiface.NewRouter,
		bootstrap.NewApp,
	)
	return nil, nil, nil
}
