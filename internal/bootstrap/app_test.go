package bootstrap

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/yanqian/allergy-risk/internal/domain/risk"
	"github.com/yanqian/allergy-risk/internal/infra/config"
)

type stubLoader struct {
	outcome risk.BootstrapOutcome
	err     error
	calls   int
}

func (s *stubLoader) Bootstrap(context.Context) (risk.BootstrapOutcome, error) {
	s.calls++
	return s.outcome, s.err
}

func newTestApp(loader ModelLoader) *App {
	cfg := &config.Config{HTTP: config.HTTPConfig{Address: "127.0.0.1:0"}}
	server := &http.Server{Addr: cfg.HTTP.Address, Handler: http.NotFoundHandler()}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewApp(cfg, logger, server, loader)
}

func TestRunFailsWhenModelCannotLoad(t *testing.T) {
	loader := &stubLoader{err: errors.New("synthetic training failed")}

	err := newTestApp(loader).Run(context.Background())

	require.ErrorContains(t, err, "bootstrap model")
	require.Equal(t, 1, loader.calls)
}

func TestRunStopsOnContextCancel(t *testing.T) {
	loader := &stubLoader{outcome: risk.BootstrapSynthetic}
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() { done <- newTestApp(loader).Run(ctx) }()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("app did not shut down")
	}
	require.Equal(t, 1, loader.calls)
}
