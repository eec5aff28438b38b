package cli

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/dshills/csr/internal/cache"
	"github.com/dshills/csr/internal/config"
	"github.com/dshills/csr/internal/logging"
	"github.com/dshills/csr/internal/providers"
	"github.com/dshills/csr/internal/review"
	"github.com/dshills/csr/internal/standards"
	"github.com/dshills/csr/internal/telemetry"
)

// loadConfig resolves the effective config, layering the global flags and
// the command's own overrides on top of file and environment.
func loadConfig(overrides map[string]string) (config.Config, error) {
	m := map[string]string{
		"logLevel":  flagLogLevel,
		"logFormat": flagLogFormat,
	}
	for k, v := range overrides {
		m[k] = v
	}
	return config.Load(flagConfig, m)
}

// app holds the long-lived pieces a command needs to run reviews.
type app struct {
	cfg       config.Config
	logger    *zap.Logger
	telemetry *telemetry.Provider
	engine    *review.Engine
	probe     *authProbe
	genErr    error
}

// newApp builds the logger, telemetry, standards catalog and engine. A
// model backend that cannot be constructed is recorded in genErr and the
// engine runs without one.
func newApp(ctx context.Context, cfg config.Config) (*app, error) {
	logger, err := logging.New(cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		return nil, err
	}
	logger.Debug("effective config", zap.Any("config", cfg.Masked()))

	tp, err := telemetry.Setup(ctx, cfg.Telemetry, version, logger)
	if err != nil {
		return nil, err
	}

	catalog, err := loadCatalog(cfg, logger)
	if err != nil {
		_ = tp.Shutdown(ctx)
		return nil, err
	}

	a := &app{cfg: cfg, logger: logger, telemetry: tp}
	gen, err := buildGenerator(cfg, logger)
	if err != nil {
		a.genErr = err
		logger.Warn("model backend unavailable", zap.Error(err))
		a.engine = review.NewEngine(cfg, catalog, nil, logger, review.WithTelemetry(telemetry.Global()))
		return a, nil
	}
	a.probe = &authProbe{inner: gen}
	a.engine = review.NewEngine(cfg, catalog, a.probe, logger, review.WithTelemetry(telemetry.Global()))
	return a, nil
}

func (a *app) close() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := a.telemetry.Shutdown(ctx); err != nil {
		a.logger.Warn("telemetry shutdown", zap.Error(err))
	}
	_ = a.logger.Sync()
}

func loadCatalog(cfg config.Config, logger *zap.Logger) (*standards.Catalog, error) {
	sets, err := standards.LoadDir(cfg.Standards.Dir, logger)
	if err != nil {
		return nil, fmt.Errorf("loading standards: %w", err)
	}
	logger.Info("standards loaded", zap.String("dir", cfg.Standards.Dir), zap.Int("sets", len(sets)))
	return standards.NewCatalog(sets, cfg.Policy.Retrieval), nil
}

// buildGenerator creates the provider client and, when enabled, puts the
// reply cache in front of it.
func buildGenerator(cfg config.Config, logger *zap.Logger) (providers.Generator, error) {
	gen, err := providers.New(cfg.Model)
	if err != nil {
		return nil, err
	}
	store, err := cache.Open(cfg.Cache)
	if err != nil {
		logger.Warn("cache disabled", zap.Error(err))
		return gen, nil
	}
	return providers.NewCached(gen, store, cfg.Model.ID, logger), nil
}

// authProbe remembers whether any call was rejected for bad credentials so
// the review command can choose its exit code.
type authProbe struct {
	inner    providers.Generator
	rejected atomic.Bool
}

func (p *authProbe) Name() string { return p.inner.Name() }

func (p *authProbe) Generate(ctx context.Context, req providers.GenerateRequest) (providers.Completion, error) {
	c, err := p.inner.Generate(ctx, req)
	if providers.IsAuthError(err) {
		p.rejected.Store(true)
	}
	return c, err
}

func (p *authProbe) authFailed() bool {
	return p != nil && p.rejected.Load()
}
