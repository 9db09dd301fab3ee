package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	"github.com/angelmondragon/resellsync/api"
	"github.com/angelmondragon/resellsync/api/controllers"
	"github.com/angelmondragon/resellsync/api/routes"
	"github.com/angelmondragon/resellsync/internal/cron"
	"github.com/angelmondragon/resellsync/internal/listingcache"
	"github.com/angelmondragon/resellsync/internal/listings"
	"github.com/angelmondragon/resellsync/internal/marketplace"
	"github.com/angelmondragon/resellsync/internal/notify"
	"github.com/angelmondragon/resellsync/internal/platforms"
	"github.com/angelmondragon/resellsync/internal/reconcile"
	"github.com/angelmondragon/resellsync/internal/repricing"
	"github.com/angelmondragon/resellsync/internal/throttle"
	"github.com/angelmondragon/resellsync/pkg/config"
	"github.com/angelmondragon/resellsync/pkg/db"
	"github.com/angelmondragon/resellsync/pkg/instance"
	"github.com/angelmondragon/resellsync/pkg/logger"
	"github.com/angelmondragon/resellsync/pkg/metrics"
	"github.com/angelmondragon/resellsync/pkg/redis"
)

const (
	modeMonitor = "monitor"
	modeSync    = "sync"
	modeReprice = "reprice"

	retentionLoop = "throttle-retention"
)

type ServiceParams struct {
	Config   *config.Config
	Logger   *logger.Logger
	DB       *db.Client
	Redis    *redis.Client
	Notifier notify.Notifier
	Registry prometheus.Registerer
	Gatherer prometheus.Gatherer
}

// Service owns the three worker loops and the ops server.
type Service struct {
	cfg       *config.Config
	logg      *logger.Logger
	db        *db.Client
	redis     *redis.Client
	gatherer  prometheus.Gatherer
	sync      *cron.Service
	reprice   *cron.Service
	retention *cron.Service
}

func NewService(params ServiceParams) (*Service, error) {
	if params.Config == nil {
		return nil, errors.New("config is required")
	}
	if params.Logger == nil {
		return nil, errors.New("logger is required")
	}
	if params.DB == nil {
		return nil, errors.New("database client is required")
	}
	if params.Redis == nil {
		return nil, errors.New("redis client is required")
	}
	cfg := params.Config
	logg := params.Logger
	conn := params.DB.DB()

	platformSvc, err := platforms.NewService(platforms.ServiceParams{
		Logger:     logg,
		Repository: platforms.NewRepository(conn),
	})
	if err != nil {
		return nil, fmt.Errorf("platform service: %w", err)
	}

	listingRepo := listings.NewRepository(conn)
	historyRepo := listings.NewHistoryRepository(conn)
	cache, err := listingcache.New(listingRepo)
	if err != nil {
		return nil, fmt.Errorf("listing cache: %w", err)
	}

	reconciler, err := reconcile.NewEngine(reconcile.EngineParams{
		Logger:            logg,
		DB:                params.DB,
		Listings:          listingRepo,
		History:           historyRepo,
		Cache:             cache,
		Status:            platformSvc,
		Metrics:           metrics.NewSyncMetrics(params.Registry),
		ChunkSize:         cfg.Sync.ChunkSize,
		PartialFetchRatio: cfg.Sync.PartialFetchRatio,
	})
	if err != nil {
		return nil, fmt.Errorf("reconcile engine: %w", err)
	}
	runner, err := reconcile.NewRunner(logg, reconciler, platformSvc)
	if err != nil {
		return nil, fmt.Errorf("reconcile runner: %w", err)
	}

	client, err := marketplace.NewClient(cfg.Marketplace, logg)
	if err != nil {
		return nil, fmt.Errorf("marketplace client: %w", err)
	}
	source, err := marketplace.NewSource(client, cfg.Marketplace)
	if err != nil {
		return nil, fmt.Errorf("marketplace source: %w", err)
	}

	throttleSvc, err := throttle.NewService(throttle.ServiceParams{
		Logger:     logg,
		Repository: throttle.NewRepository(conn),
		Window:     cfg.Throttle.Window,
	})
	if err != nil {
		return nil, fmt.Errorf("throttle service: %w", err)
	}

	repricer, err := repricing.NewEngine(repricing.EngineParams{
		Logger:          logg,
		DB:              params.DB,
		Listings:        listingRepo,
		History:         historyRepo,
		Mutations:       repricing.NewMutationRepository(conn),
		Applier:         client,
		ValidateRef:     marketplace.ValidateRef,
		Throttle:        throttleSvc,
		Notifier:        params.Notifier,
		Metrics:         metrics.NewRepricerMetrics(params.Registry),
		DuplicateWindow: cfg.Repricer.DuplicateWindow,
		CallTimeout:     cfg.Repricer.CallTimeout,
	})
	if err != nil {
		return nil, fmt.Errorf("repricing engine: %w", err)
	}

	syncJob, err := cron.NewSyncJob(cron.SyncJobParams{
		Logger:  logg,
		Runner:  runner,
		Sources: []reconcile.SnapshotSource{source},
	})
	if err != nil {
		return nil, err
	}
	repriceJob, err := cron.NewRepriceJob(cron.RepriceJobParams{Logger: logg, Engine: repricer})
	if err != nil {
		return nil, err
	}
	retentionJob, err := cron.NewThrottleRetentionJob(cron.ThrottleRetentionJobParams{Logger: logg, Throttle: throttleSvc})
	if err != nil {
		return nil, err
	}

	cronMetrics := metrics.NewCronJobMetrics(params.Registry)
	svc := &Service{
		cfg:      cfg,
		logg:     logg,
		db:       params.DB,
		redis:    params.Redis,
		gatherer: params.Gatherer,
	}
	if svc.sync, err = svc.loop(modeSync, cfg.Sync.Interval, cfg.Sync.MinPause, cfg.Sync.LockTTL, cronMetrics, syncJob); err != nil {
		return nil, err
	}
	if svc.reprice, err = svc.loop(modeReprice, cfg.Repricer.Interval, cfg.Repricer.MinPause, cfg.Repricer.LockTTL, cronMetrics, repriceJob); err != nil {
		return nil, err
	}
	if svc.retention, err = svc.loop(retentionLoop, cfg.Throttle.RetentionInterval, 0, 0, cronMetrics, retentionJob); err != nil {
		return nil, err
	}
	return svc, nil
}

func (s *Service) loop(name string, interval, minPause, lockTTL time.Duration, m *metrics.CronJobMetrics, jobs ...cron.Job) (*cron.Service, error) {
	lock, err := cron.NewRedisLock(s.redis, s.redis.LockKey(name, s.cfg.App.Env), lockTTL, instance.GetID())
	if err != nil {
		return nil, fmt.Errorf("%s lock: %w", name, err)
	}
	svc, err := cron.NewService(cron.ServiceParams{
		Name:     name,
		Logger:   s.logg,
		Registry: cron.NewRegistry(jobs...),
		Lock:     lock,
		Metrics:  m,
		Interval: interval,
		MinPause: minPause,
	})
	if err != nil {
		return nil, fmt.Errorf("%s loop: %w", name, err)
	}
	return svc, nil
}

func (s *Service) ensureReadiness(ctx context.Context) error {
	if err := pingDependency(ctx, s.logg, "database", s.db.Ping); err != nil {
		return err
	}
	if err := pingDependency(ctx, s.logg, "redis", s.redis.Ping); err != nil {
		return err
	}
	s.logg.Info(ctx, "all worker dependencies are ready")
	return nil
}

func pingDependency(ctx context.Context, logg *logger.Logger, name string, fn func(context.Context) error) error {
	if err := fn(ctx); err != nil {
		logg.Error(ctx, fmt.Sprintf("%s ping failed", name), err)
		return fmt.Errorf("%s ping failed: %w", name, err)
	}
	return nil
}

// Run executes the requested mode. sync and reprice perform one pass and
// return; monitor runs every loop plus the ops server until ctx ends.
func (s *Service) Run(ctx context.Context, mode string) error {
	if ctx == nil {
		ctx = context.Background()
	}
	if err := s.ensureReadiness(ctx); err != nil {
		return err
	}

	switch mode {
	case modeSync:
		return s.sync.RunOnce(ctx)
	case modeReprice:
		return s.reprice.RunOnce(ctx)
	case modeMonitor:
		return s.monitor(ctx)
	default:
		return fmt.Errorf("unknown mode %q", mode)
	}
}

func (s *Service) monitor(ctx context.Context) error {
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return s.sync.Run(gctx) })
	if s.cfg.Repricer.Enabled {
		g.Go(func() error { return s.reprice.Run(gctx) })
	} else {
		s.logg.Warn(ctx, "repricer disabled; only reconciliation will run")
	}
	g.Go(func() error { return s.retention.Run(gctx) })
	g.Go(func() error { return api.Serve(gctx, s.logg, s.cfg.Ops.Addr, s.opsHandler()) })

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

func (s *Service) opsHandler() http.Handler {
	var metricsHandler http.Handler
	if s.gatherer != nil {
		metricsHandler = promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{})
	}
	return routes.NewRouter(s.cfg, s.logg, metricsHandler,
		controllers.Dependency{Name: "database", Pinger: s.db},
		controllers.Dependency{Name: "redis", Pinger: s.redis},
	)
}
