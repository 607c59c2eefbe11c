package app

import (
	"context"
	"fmt"
	"os"
	"time"

	"gorm.io/gorm"

	"github.com/yungbote/coursegen-backend/internal/data/db"
	apphttp "github.com/yungbote/coursegen-backend/internal/http"
	"github.com/yungbote/coursegen-backend/internal/observability"
	"github.com/yungbote/coursegen-backend/internal/platform/logger"
	"github.com/yungbote/coursegen-backend/internal/platform/redis"
)

type App struct {
	Log      *logger.Logger
	DB       *gorm.DB
	Cfg      Config
	Clients  Clients
	Repos    Repos
	Services Services
	Server   *apphttp.Server

	pg           *db.PostgresService
	otelShutdown func(context.Context) error
	cancel       context.CancelFunc
	serverErr    chan error
}

func New(ctx context.Context) (*App, error) {
	logMode := os.Getenv("LOG_MODE")
	if logMode == "" {
		logMode = "development"
	}
	log, err := logger.New(logMode)
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}

	log.Info("Loading environment variables...")
	cfg := LoadConfig()
	if cfg.ServesAPI() && cfg.JWTSecretKey == "" {
		log.Sync()
		return nil, fmt.Errorf("JWT_SECRET_KEY is required when RUN_MODE=%s", cfg.RunMode)
	}

	otelShutdown := observability.InitOTel(ctx, log, observability.LoadOtelConfig(cfg.ServiceName))

	pg, err := db.NewPostgresService(log)
	if err != nil {
		log.Sync()
		return nil, fmt.Errorf("init postgres: %w", err)
	}
	if err := db.AutoMigrateAll(pg.DB()); err != nil {
		_ = pg.Close()
		log.Sync()
		return nil, fmt.Errorf("postgres automigrate: %w", err)
	}

	clients, err := wireClients(ctx, log, cfg)
	if err != nil {
		_ = pg.Close()
		log.Sync()
		return nil, err
	}
	reposet := wireRepos(pg.DB(), log)
	serviceset, err := wireServices(pg.DB(), log, cfg, clients, reposet)
	if err != nil {
		clients.Close()
		_ = pg.Close()
		log.Sync()
		return nil, err
	}

	a := &App{
		Log:          log,
		DB:           pg.DB(),
		Cfg:          cfg,
		Clients:      clients,
		Repos:        reposet,
		Services:     serviceset,
		pg:           pg,
		otelShutdown: otelShutdown,
		serverErr:    make(chan error, 1),
	}
	if cfg.ServesAPI() {
		a.Server = wireServer(log, cfg, serviceset)
	}
	return a, nil
}

// Start launches every component the run mode asks for and returns
// immediately. Errors from the HTTP server arrive on Errors().
func (a *App) Start(ctx context.Context) error {
	if a == nil || a.cancel != nil {
		return nil
	}
	ctx, cancel := context.WithCancel(ctx)
	a.cancel = cancel

	if a.Cfg.RunsWorkers() {
		if a.Services.JobWorker != nil {
			a.Services.JobWorker.Start(ctx)
		}
		if a.Services.TemporalRunner != nil {
			if err := a.Services.TemporalRunner.Start(ctx); err != nil {
				return fmt.Errorf("start temporal worker: %w", err)
			}
		}
	}

	if a.Clients.JobBus != nil && a.Cfg.ServesAPI() {
		log := a.Log.With("component", "JobEventForwarder")
		if err := a.Clients.JobBus.StartForwarder(ctx, func(ev redis.JobEvent) {
			log.Debug("Job event", "type", ev.Type, "job_id", ev.JobID, "queue", ev.Queue, "owner_user_id", ev.OwnerUserID)
		}); err != nil {
			a.Log.Warn("Job event forwarder failed to start", "error", err)
		}
	}

	if a.Server != nil {
		a.Log.Info("Server listening", "port", a.Cfg.Port, "run_mode", a.Cfg.RunMode)
		go func() { a.serverErr <- a.Server.Run() }()
	}
	return nil
}

func (a *App) Errors() <-chan error { return a.serverErr }

// Close stops intake first, then drains workers and releases clients.
func (a *App) Close(ctx context.Context) {
	if a == nil {
		return
	}
	if a.Server != nil {
		shutdownCtx, cancel := context.WithTimeout(ctx, 15*time.Second)
		if err := a.Server.Shutdown(shutdownCtx); err != nil {
			a.Log.Warn("HTTP shutdown failed", "error", err)
		}
		cancel()
	}
	if a.cancel != nil {
		a.cancel()
		a.cancel = nil
	}
	if a.Services.JobWorker != nil {
		a.Services.JobWorker.Wait()
	}
	a.Clients.Close()
	if a.otelShutdown != nil {
		if err := a.otelShutdown(ctx); err != nil {
			a.Log.Warn("Tracer shutdown failed", "error", err)
		}
	}
	if a.pg != nil {
		_ = a.pg.Close()
	}
	a.Log.Sync()
}
