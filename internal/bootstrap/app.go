package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/yanqian/allergy-risk/internal/domain/risk"
	"github.com/yanqian/allergy-risk/internal/infra/config"
)

// ModelLoader installs a model before the server accepts traffic.
type ModelLoader interface {
	Bootstrap(ctx context.Context) (risk.BootstrapOutcome, error)
}

// App encapsulates the HTTP server lifecycle.
type App struct {
	cfg    *config.Config
	logger *slog.Logger
	server *http.Server
	model  ModelLoader
}

// NewApp is used by Wire to build the runnable app.
func NewApp(cfg *config.Config, logger *slog.Logger, server *http.Server, model ModelLoader) *App {
	return &App{cfg: cfg, logger: logger.With("component", "bootstrap"), server: server, model: model}
}

// Run loads the model, starts the HTTP server and blocks until shutdown.
func (a *App) Run(ctx context.Context) error {
	outcome, err := a.model.Bootstrap(ctx)
	if err != nil {
		return fmt.Errorf("bootstrap model: %w", err)
	}
	a.logger.Info("model ready", "outcome", outcome)

	errCh := make(chan error, 1)

	go func() {
		a.logger.Info("http server starting", "address", a.cfg.HTTP.Address)
		if err := a.server.ListenAndServe(); err != nil {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		a.logger.Info("shutdown signal received")
		if err := a.server.Shutdown(shutdownCtx); err != nil {
			return err
		}
		return nil
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}
