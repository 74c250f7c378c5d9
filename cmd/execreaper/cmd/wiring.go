package cmd

import (
	"context"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/psantana5/execreaper/internal/config"
	"github.com/psantana5/execreaper/pkg/backend"
	"github.com/psantana5/execreaper/pkg/logging"
	"github.com/psantana5/execreaper/pkg/metrics"
	"github.com/psantana5/execreaper/pkg/reconcile"
	"github.com/psantana5/execreaper/pkg/store"
	"github.com/psantana5/execreaper/pkg/tracing"
)

// app holds the collaborators a command needs
type app struct {
	cfg      *config.Config
	logger   *logging.Logger
	client   backend.Client
	registry store.Store
	promReg  *prometheus.Registry
	metrics  *metrics.Reaper
	tracer   *tracing.Provider
}

// newApp wires logging, tracing, metrics, the backend client and, when
// withRegistry is set, the active-state registry.
func newApp(cfg *config.Config, withRegistry bool) (*app, error) {
	logger, err := logging.New(cfg.Log)
	if err != nil {
		return nil, fmt.Errorf("failed to create logger: %w", err)
	}

	client, err := backend.NewHTTPClient(cfg.Backend, logger)
	if err != nil {
		logger.Close()
		return nil, fmt.Errorf("failed to create backend client: %w", err)
	}

	tracer, err := tracing.InitTracer(cfg.Tracing, logger)
	if err != nil {
		logger.Close()
		return nil, fmt.Errorf("failed to initialize tracing: %w", err)
	}

	promReg := prometheus.NewRegistry()
	promReg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	a := &app{
		cfg:     cfg,
		logger:  logger,
		client:  client,
		promReg: promReg,
		metrics: metrics.NewReaper(promReg),
		tracer:  tracer,
	}

	if withRegistry {
		registry, err := store.NewStore(cfg.Registry)
		if err != nil {
			a.close(context.Background())
			return nil, fmt.Errorf("failed to open registry: %w", err)
		}
		a.registry = registry
		logger.Info("Registry opened", map[string]interface{}{"type": cfg.Registry.Type})
	}
	return a, nil
}

func (a *app) newRunner(opts reconcile.Options) *reconcile.Runner {
	return reconcile.NewRunner(a.registry, a.client, opts,
		reconcile.WithLogger(a.logger),
		reconcile.WithMetrics(a.metrics),
		reconcile.WithTracer(a.tracer),
	)
}

func (a *app) close(ctx context.Context) {
	if a.registry != nil {
		if err := a.registry.Close(); err != nil {
			a.logger.Warn("Failed to close registry", map[string]interface{}{"error": err})
		}
	}
	if err := a.tracer.Shutdown(ctx); err != nil {
		a.logger.Warn("Failed to shut down tracer", map[string]interface{}{"error": err})
	}
	a.logger.Close()
}
