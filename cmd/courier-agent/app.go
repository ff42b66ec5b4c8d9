// README: Wires config, infrastructure, the root store, the dispatch pipeline and every module service.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/nats-io/nats.go"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"courier/internal/config"
	"courier/internal/infra"
	"courier/internal/maps"
	"courier/internal/modules/api"
	"courier/internal/modules/driver"
	"courier/internal/modules/location"
	"courier/internal/modules/order"
	"courier/internal/modules/route"
	"courier/internal/modules/session"
	"courier/internal/modules/store"
	"courier/internal/modules/user"
	"courier/internal/types"
)

// app holds every long-lived component of one agent process.
type app struct {
	cfg    config.Config
	logger *slog.Logger

	store    *store.Store
	pipeline *api.Pipeline
	registry *prometheus.Registry

	session *session.Service
	drivers *driver.Service
	orders  *order.Service
	routes  *route.Service
	users   *user.Service

	locations   *location.Store
	runtime     *location.Runtime
	permission  *location.HostPermission
	coordinator *location.Coordinator

	db    *pgxpool.Pool
	redis *redis.Client
	nats  *nats.Conn
}

// dashboardLog stands in for on-device navigation: the selection itself
// reaches UI collaborators through the event mirror.
type dashboardLog struct {
	logger *slog.Logger
}

func (d dashboardLog) ShowDashboard(id types.ID) {
	d.logger.Info("driver dashboard selected", slog.String("driver_id", id.String()))
}

func newApp(ctx context.Context, cfg config.Config, logger *slog.Logger) (*app, error) {
	a := &app{cfg: cfg, logger: logger}
	if err := a.connect(ctx); err != nil {
		a.Close()
		return nil, err
	}

	a.store = store.New(cfg.StrictStore(), logger.With(slog.String("component", "store")))
	if a.nats != nil {
		mirror := store.NewMirror(a.nats, cfg.NATS.SubjectPrefix, logger)
		a.store.Subscribe(mirror.Listener())
	}

	a.registry = prometheus.NewRegistry()
	a.registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	pipeline, err := api.New(a.store, a.store, api.Options{
		BaseURL:    cfg.API.BaseURL,
		HTTPClient: &http.Client{Timeout: cfg.API.Timeout},
		Metrics:    api.NewMetrics(a.registry),
		Logger:     logger.With(slog.String("component", "pipeline")),
	})
	if err != nil {
		a.Close()
		return nil, err
	}
	a.pipeline = pipeline

	var secure session.SecureStore = session.NewMemoryStore()
	if a.redis != nil {
		secure = session.NewRedisStore(a.redis, cfg.Redis.SessionPrefix)
	}
	a.session = session.NewService(pipeline, a.store, a.store, secure,
		api.Credentials{Username: cfg.API.ClientID, Password: cfg.API.ClientSecret}, logger)
	pipeline.OnUnauthorized(func() {
		logger.Warn("dispatch service rejected the token; logging out")
		if err := a.session.Logout(context.Background()); err != nil {
			logger.Error("logout after 401", slog.Any("error", err))
		}
	})

	a.users = user.NewService(pipeline, logger)
	a.drivers = driver.NewService(pipeline, a.store, a.store, dashboardLog{logger: logger}, logger)
	a.orders = order.NewService(pipeline, a.store, logger)

	var eta route.Estimator
	if cfg.Maps.APIKey != "" {
		rs, err := maps.NewRouteService(cfg.Maps.APIKey, cfg.Maps.Language, cfg.Maps.Region)
		if err != nil {
			a.Close()
			return nil, err
		}
		eta = rs
	}
	a.routes = route.NewService(pipeline, a.store, a.orders, eta, logger)

	if err := a.wireLocation(ctx); err != nil {
		a.Close()
		return nil, err
	}
	return a, nil
}

// connect opens whichever backends are configured; all of them are
// optional.
func (a *app) connect(ctx context.Context) error {
	var err error
	if a.cfg.DB.DSN != "" {
		if a.db, err = infra.NewDB(ctx, a.cfg.DB.DSN); err != nil {
			return err
		}
	}
	if a.cfg.Redis.Addr != "" {
		if a.redis, err = infra.NewRedis(ctx, a.cfg.Redis.Addr); err != nil {
			return err
		}
	}
	if a.cfg.NATS.URL != "" {
		if a.nats, err = infra.NewNATS(a.cfg.NATS.URL, a.logger); err != nil {
			return err
		}
	}
	return nil
}

func (a *app) wireLocation(ctx context.Context) error {
	var recorder location.Recorder
	if a.cfg.Location.Record && (a.db != nil || a.redis != nil) {
		var db location.Execer
		if a.db != nil {
			db = a.db
		}
		var rdb redis.Cmdable
		if a.redis != nil {
			rdb = a.redis
		}
		ls := location.NewStore(db, rdb)
		if err := ls.EnsureSchema(ctx); err != nil {
			return fmt.Errorf("location schema: %w", err)
		}
		recorder = ls
		a.locations = ls
	}

	logger := a.logger.With(slog.String("component", "location"))
	svc := location.NewService(a.store, a.drivers, recorder, logger)
	a.runtime = location.NewRuntime(logger)
	a.runtime.Define(location.TaskName, svc.HandleFixes)
	a.permission = location.NewHostPermission(a.cfg.Location.PermissionGranted)
	a.coordinator = location.NewCoordinator(a.runtime, a.permission, a.store, location.TaskOptions{
		TimeInterval:     a.cfg.Location.TimeInterval,
		DistanceInterval: a.cfg.Location.DistanceInterval,
	}, logger)
	a.store.Subscribe(a.coordinator.Listener())
	return nil
}

func (a *app) metricsHandler() http.Handler {
	return promhttp.HandlerFor(a.registry, promhttp.HandlerOpts{})
}

func (a *app) Close() {
	if a.runtime != nil {
		a.runtime.Close()
	}
	if a.nats != nil {
		if err := a.nats.Drain(); err != nil {
			a.logger.Warn("drain nats", slog.Any("error", err))
		}
	}
	if a.redis != nil {
		_ = a.redis.Close()
	}
	if a.db != nil {
		a.db.Close()
	}
}
