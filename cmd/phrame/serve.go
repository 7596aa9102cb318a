package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/kbukum/phrame/acquisition"
	"github.com/kbukum/phrame/bootstrap"
	"github.com/kbukum/phrame/component"
	"github.com/kbukum/phrame/config"
	"github.com/kbukum/phrame/coordinator"
	"github.com/kbukum/phrame/database"
	"github.com/kbukum/phrame/inbox"
	"github.com/kbukum/phrame/logger"
	"github.com/kbukum/phrame/observability"
	"github.com/kbukum/phrame/provider"
	"github.com/kbukum/phrame/redis"
	"github.com/kbukum/phrame/resilience"
	"github.com/kbukum/phrame/server"
	"github.com/kbukum/phrame/sse"
	"github.com/kbukum/phrame/storage"
	_ "github.com/kbukum/phrame/storage/local"
	_ "github.com/kbukum/phrame/storage/s3"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API, the transcript trigger and the event stream",
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		app, err := newServeApp(cfg)
		if err != nil {
			return err
		}
		return app.Run(cmd.Context())
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

// telemetry owns the exporters started by observability.Setup.
type telemetry struct {
	cfg      observability.Config
	service  string
	metrics  *observability.Metrics
	shutdown observability.ShutdownFunc
}

func (t *telemetry) component() *component.Func {
	details := "disabled"
	if t.cfg.Enabled {
		details = t.cfg.Endpoint
	}
	return &component.Func{
		ComponentName: "observability",
		Info:          component.Description{Name: "OpenTelemetry", Type: "telemetry", Details: details},
		OnStart: func(ctx context.Context) error {
			m, shutdown, err := observability.Setup(ctx, t.cfg, t.service)
			if err != nil {
				return err
			}
			t.metrics, t.shutdown = m, shutdown
			return nil
		},
		OnStop: func(ctx context.Context) error {
			if t.shutdown == nil {
				return nil
			}
			return t.shutdown(ctx)
		},
	}
}

// newServeApp registers the infrastructure components and defers the
// pipeline wiring to a configure callback, which runs once the database,
// Redis and telemetry are up.
func newServeApp(cfg *config.AppConfig) (*bootstrap.App, error) {
	app, err := bootstrap.NewApp(cfg)
	if err != nil {
		return nil, err
	}
	log := app.Logger

	db := database.NewComponent(cfg.Database, log)
	if err := app.RegisterComponent(db); err != nil {
		return nil, err
	}
	var rc *redis.Component
	if cfg.Redis.Enabled {
		rc = redis.NewComponent(cfg.Redis, log)
		if err := app.RegisterComponent(rc); err != nil {
			return nil, err
		}
	}
	tel := &telemetry{cfg: cfg.Observability, service: cfg.Name}
	if err := app.RegisterComponent(tel.component()); err != nil {
		return nil, err
	}

	app.OnConfigure(func(ctx context.Context, app *bootstrap.App) error {
		return wirePipeline(ctx, app, db.DB(), rc, tel.metrics)
	})
	return app, nil
}

// wirePipeline builds the provider registry, the coordinator and its
// loops, the event fan-out and the HTTP server.
func wirePipeline(ctx context.Context, app *bootstrap.App, db *database.DB, rc *redis.Component, metrics *observability.Metrics) error {
	cfg, log := app.Cfg, app.Logger
	store := database.NewStore(db)

	images, err := storage.New(ctx, cfg.Storage, log)
	if err != nil {
		return err
	}

	hub := sse.NewHub(log)
	notifiers := coordinator.Notifiers{sse.NewNotifier(hub, nil)}
	var (
		stateBacking provider.Store[coordinator.RuntimeState]
		statusStore  provider.Store[provider.HealthStatus]
	)
	if rc != nil {
		client, prefix := rc.Client(), cfg.Redis.KeyPrefix
		stateBacking = redis.NewTypedStore[coordinator.RuntimeState](client, prefix)
		statusStore = redis.NewTypedStore[provider.HealthStatus](client, prefix+":provider-status")
		notifiers = append(notifiers, redis.NewPublisher(client))
	}

	att := resilience.NewAttempter(cfg.Retry, log)
	registry, err := buildRegistry(ctx, cfg, att, statusStore)
	if err != nil {
		return err
	}
	for _, name := range registry.Names() {
		p, _ := registry.Get(name)
		status := "configured"
		if p.IsAvailable(ctx) {
			status = "active"
		}
		app.Summary.TrackProvider(string(name), roles(p), status)
	}
	if len(registry.Names()) == 0 {
		log.Warn("no provider has credentials; cycles will produce nothing")
	}

	state := coordinator.NewStateStore(stateBacking)
	if err := state.Recover(ctx); err != nil {
		return fmt.Errorf("recover runtime state: %w", err)
	}

	persister := coordinator.NewPersister(store, notifiers, log)
	acquirer, err := acquisition.New(cfg.Acquisition, images, att,
		acquisition.WithSink(persister),
		acquisition.WithMetrics(metrics),
	)
	if err != nil {
		return err
	}
	coord := coordinator.New(cfg.CoordinatorConfig(), registry, store, att, acquirer,
		coordinator.WithNotifier(notifiers),
		coordinator.WithStateStore(state),
		coordinator.WithMetrics(metrics),
	)
	intake := coordinator.NewIntake(store, notifiers, log)

	loops := []component.Component{
		&component.Func{
			ComponentName: "sse-hub",
			Info:          component.Description{Name: "Event stream", Type: "sse", Details: "/api/events"},
			OnStart: func(context.Context) error {
				go hub.Run()
				return nil
			},
			OnStop: func(context.Context) error {
				hub.Stop()
				return nil
			},
		},
		component.NewRunner("trigger",
			fmt.Sprintf("every %s, %d transcript(s) in %d min", cfg.Transcript.Interval, cfg.Transcript.Minimum, cfg.Transcript.Minutes),
			coordinator.NewTrigger(cfg.TriggerConfig(), coord, store).Run),
	}
	if cfg.Autogen.Enabled {
		loops = append(loops, component.NewRunner("autogen",
			"every "+cfg.Autogen.Interval.String(),
			coordinator.NewAutogen(cfg.AutogenConfig(), coord).Run))
	}
	if cfg.Inbox.Enabled {
		w, err := inbox.New(cfg.Inbox, intake, log)
		if err != nil {
			return err
		}
		loops = append(loops, component.NewRunner("inbox", cfg.Inbox.Dir, w.Run))
	}
	for _, c := range loops {
		if err := app.RegisterComponent(c); err != nil {
			return err
		}
	}

	srv := server.New(cfg.Server, log, server.WithMetrics(metrics))
	api := server.NewAPI(server.Deps{
		ServiceName: cfg.Name,
		Coordinator: coord,
		Registry:    registry,
		Intake:      intake,
		Catalog:     store,
		Notifier:    notifiers,
		Hub:         hub,
		Storage:     images,
		ServeImages: servesImages(cfg.Storage),
		ImageOrder:  database.FeedOrder(cfg.Image.Order),
		Checkers:    app.Components.Checkers(),
	}, log)
	api.Register(srv.Engine(), cfg.Server.RateLimit)

	sc := server.NewComponent(srv)
	if err := app.RegisterComponent(sc); err != nil {
		return err
	}
	for _, r := range sc.Routes() {
		app.Summary.TrackRoute(r.Method, r.Path, r.Handler)
	}

	app.OnStop(
		func(ctx context.Context) error { return waitCycles(ctx, api, log) },
		registry.Close,
	)
	return nil
}

// servesImages reports whether /images serves the stored files. S3
// images are served by their public URL instead.
func servesImages(cfg storage.Config) bool {
	return cfg.Provider != storage.ProviderS3
}

// waitCycles waits for the cycles started through the API, bounded by ctx.
func waitCycles(ctx context.Context, api *server.API, log *logger.Logger) error {
	done := make(chan struct{})
	go func() {
		api.Wait()
		close(done)
	}()
	start := time.Now()
	select {
	case <-done:
		log.Debug("cycles drained", logger.Fields("waited", time.Since(start).String()))
		return nil
	case <-ctx.Done():
		return fmt.Errorf("waiting for running cycles: %w", ctx.Err())
	}
}
