package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"golang.org/x/time/rate"

	"github.com/c360/widgetflow/config"
	"github.com/c360/widgetflow/eventbus"
	"github.com/c360/widgetflow/health"
	"github.com/c360/widgetflow/manifest"
	"github.com/c360/widgetflow/metric"
	"github.com/c360/widgetflow/natsclient"
	"github.com/c360/widgetflow/pipeline"
	"github.com/c360/widgetflow/pipelinestore"
	"github.com/c360/widgetflow/service"
	"github.com/c360/widgetflow/wiring"
)

const apiPrefix = "/api/v1/"

// healthProbeCanvas is listed by the store check; it never holds pipelines
const healthProbeCanvas = "healthz"

// app is the wired service, ready to be served
type app struct {
	handler http.Handler
	monitor *health.Monitor
}

// newApp builds storage, events, the widget catalog and the HTTP surface
// from cfg. natsClient must be connected when cfg.NeedsNATS reports true.
func newApp(
	ctx context.Context,
	cfg *config.Config,
	natsClient *natsclient.Client,
	registry *metric.MetricsRegistry,
	logger *slog.Logger,
) (*app, error) {
	metrics := registry.CoreMetrics()
	a := &app{monitor: health.NewMonitor()}

	store, err := newStore(ctx, cfg, natsClient, logger)
	if err != nil {
		return nil, err
	}
	a.monitor.Register("store", storeCheck(store, cfg.Storage.Mode))

	bus, err := newBus(cfg, natsClient, logger, metrics)
	if err != nil {
		return nil, err
	}

	if natsClient != nil {
		a.monitor.Register("nats", natsCheck(natsClient, metrics))
	}

	catalog := manifest.NewRegistry(logger)
	if cfg.Manifests.Dir != "" {
		n, err := catalog.LoadDir(cfg.Manifests.Dir)
		if err != nil {
			return nil, fmt.Errorf("load widget manifests: %w", err)
		}
		logger.Info("Widget manifests loaded", "dir", cfg.Manifests.Dir, "count", n)
	}
	a.monitor.UpdateHealthy("manifests", fmt.Sprintf("%d widget definitions", len(catalog.IDs())))

	ids := pipeline.UUIDGenerator{}
	instrumented := pipelinestore.Instrumented(store, metrics)
	editor := wiring.NewEditor(instrumented, bus, ids, logger, metrics,
		wiring.WithDefaultPipelineName(cfg.Wiring.DefaultPipelineName))

	var limiter *rate.Limiter
	if cfg.HTTP.RateLimit > 0 {
		limiter = rate.NewLimiter(rate.Limit(cfg.HTTP.RateLimit), cfg.HTTP.RateBurst)
	}

	svc, err := service.NewPipelineService(service.Dependencies{
		Store:   instrumented,
		Bus:     bus,
		Editor:  editor,
		Catalog: catalog,
		IDs:     ids,
		Logger:  logger,
		Metrics: metrics,
		Limiter: limiter,
	})
	if err != nil {
		return nil, fmt.Errorf("create pipeline service: %w", err)
	}

	mux := http.NewServeMux()
	svc.RegisterHTTPHandlers(apiPrefix, mux)
	mux.Handle("GET /metrics", registry.Handler())
	mux.Handle("GET /healthz", a.monitor.Handler(appName))
	a.handler = mux

	return a, nil
}

func newStore(ctx context.Context, cfg *config.Config, natsClient *natsclient.Client, logger *slog.Logger) (pipelinestore.Gateway, error) {
	if cfg.Storage.Mode != config.StorageModeKV {
		logger.Warn("Using in-memory pipeline storage; pipelines are lost on restart")
		return pipelinestore.NewMemoryStore(), nil
	}
	store, err := pipelinestore.NewKVStore(ctx, natsClient, pipelinestore.KVConfig{
		Bucket:  cfg.Storage.Bucket,
		History: uint8(cfg.Storage.History),
	}, logger)
	if err != nil {
		return nil, fmt.Errorf("open pipeline store: %w", err)
	}
	return store, nil
}

func newBus(cfg *config.Config, natsClient *natsclient.Client, logger *slog.Logger, metrics *metric.Metrics) (eventbus.Bus, error) {
	if cfg.Events.Transport != config.EventsNATS {
		return eventbus.NewMemoryBus(metrics), nil
	}
	bus, err := eventbus.NewNATSBus(natsClient, cfg.Events.SubjectPrefix, logger, metrics)
	if err != nil {
		return nil, fmt.Errorf("create event bus: %w", err)
	}
	return bus, nil
}

func storeCheck(store pipelinestore.Gateway, mode string) health.Check {
	return func(ctx context.Context) health.Status {
		ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
		defer cancel()
		_, err := store.ListForCanvas(ctx, healthProbeCanvas)
		return health.FromError("store", err, mode+" storage reachable")
	}
}

func natsCheck(client *natsclient.Client, metrics *metric.Metrics) health.Check {
	return func(context.Context) health.Status {
		connected := client.IsHealthy()
		metrics.RecordNATSStatus(connected)
		if !connected {
			return health.NewUnhealthy("nats", client.Status().String())
		}
		return health.NewHealthy("nats", "connected")
	}
}
