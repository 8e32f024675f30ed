package app

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"

	"github.com/Joshykins/stupid-neko-sub001/internal/data/repos"
	apphttp "github.com/Joshykins/stupid-neko-sub001/internal/http"
	"github.com/Joshykins/stupid-neko-sub001/internal/jobs/worker"
	"github.com/Joshykins/stupid-neko-sub001/internal/observability"
	"github.com/Joshykins/stupid-neko-sub001/internal/platform/logger"
	"github.com/Joshykins/stupid-neko-sub001/internal/temporalx"
	"github.com/Joshykins/stupid-neko-sub001/internal/temporalx/temporalworker"
)

type App struct {
	Log      *logger.Logger
	DB       *gorm.DB
	Cfg      Config
	Repos    repos.Set
	Clients  Clients
	Services Services
	Metrics  *observability.Metrics
	Server   *apphttp.Server

	closeDB      func() error
	otelShutdown func(context.Context) error
}

// New builds the whole object graph from the environment. Nothing listens or
// polls until Run.
func New(ctx context.Context) (*App, error) {
	LoadEnv()
	cfg := LoadConfig()
	log, err := logger.New(cfg.LogMode)
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}
	return NewWithConfig(ctx, log, cfg)
}

func NewWithConfig(ctx context.Context, log *logger.Logger, cfg Config) (*App, error) {
	if isProd(cfg.LogMode) {
		gin.SetMode(gin.ReleaseMode)
	}
	metrics := observability.Init(log)
	otelShutdown := observability.InitOTel(ctx, log,
		observability.LoadOtelConfig("stupid-neko-progression", cfg.Env, cfg.Version))

	theDB, closeDB, err := openStore(log, cfg)
	if err != nil {
		log.Sync()
		return nil, err
	}
	reposet := repos.NewSet(theDB, log)

	clients, err := wireClients(log, cfg)
	if err != nil {
		_ = closeDB()
		log.Sync()
		return nil, err
	}

	services, err := wireServices(log, cfg, theDB, reposet, clients, metrics)
	if err != nil {
		clients.Close()
		_ = closeDB()
		log.Sync()
		return nil, err
	}

	return &App{
		Log:          log,
		DB:           theDB,
		Cfg:          cfg,
		Repos:        reposet,
		Clients:      clients,
		Services:     services,
		Metrics:      metrics,
		Server:       wireServer(log, cfg, theDB, clients, services, metrics),
		closeDB:      closeDB,
		otelShutdown: otelShutdown,
	}, nil
}

// Run serves HTTP and drives the background sweeps until ctx is cancelled.
// Sweeps run on Temporal schedules when TEMPORAL_ADDRESS is set and on the
// in-process scheduler otherwise.
func (a *App) Run(ctx context.Context) error {
	if a == nil || a.Server == nil {
		return fmt.Errorf("app not initialized")
	}
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		a.Log.Info("Server listening", "port", a.Cfg.Port)
		return a.Server.Run(ctx, ":"+a.Cfg.Port)
	})

	if a.Cfg.MetricsAddr != "" {
		a.Metrics.StartServer(ctx, a.Log, a.Cfg.MetricsAddr)
	}

	intervals := a.Cfg.Intervals.ByType()
	switch {
	case a.Cfg.Temporal.Enabled():
		g.Go(func() error { return a.runTemporal(ctx, intervals) })
	case a.Cfg.SchedulerEnabled:
		sched := worker.NewScheduler(a.Log, a.Services.Jobs, a.Metrics, intervals)
		if err := sched.Start(ctx); err != nil {
			return err
		}
		g.Go(func() error {
			sched.Wait()
			return nil
		})
	default:
		a.Log.Warn("Background sweeps disabled (SCHEDULER_ENABLED=false, no Temporal)")
	}

	err := g.Wait()
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

func (a *App) runTemporal(ctx context.Context, intervals map[string]time.Duration) error {
	tc, err := temporalx.NewClient(ctx, a.Log, a.Cfg.Temporal)
	if err != nil {
		return err
	}
	defer tc.Close()
	runner, err := temporalworker.NewRunner(a.Log, a.Cfg.Temporal, tc, a.Services.Jobs, a.Metrics, intervals)
	if err != nil {
		return err
	}
	if err := runner.Start(ctx); err != nil {
		return err
	}
	<-ctx.Done()
	return nil
}

func (a *App) Close() {
	if a == nil {
		return
	}
	a.Clients.Close()
	if a.otelShutdown != nil {
		_ = a.otelShutdown(context.Background())
	}
	if a.closeDB != nil {
		_ = a.closeDB()
	}
	if a.Log != nil {
		a.Log.Sync()
	}
}

func isProd(mode string) bool {
	switch strings.ToLower(strings.TrimSpace(mode)) {
	case "prod", "production":
		return true
	}
	return false
}
