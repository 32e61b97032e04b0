package app

import (
	"context"
	"fmt"
	"os"

	"gorm.io/gorm"

	"github.com/revisify/backend/internal/config"
	"github.com/revisify/backend/internal/db"
	"github.com/revisify/backend/internal/graph"
	"github.com/revisify/backend/internal/jobs"
	"github.com/revisify/backend/internal/logger"
	"github.com/revisify/backend/internal/observability"
	"github.com/revisify/backend/internal/types"
	"github.com/revisify/backend/internal/utils"
	"github.com/revisify/backend/internal/vecindex"
)

// App wires the whole engine: storage, model clients, services, and the
// pipeline worker. Callers embed it behind whatever transport they run.
type App struct {
	Log      *logger.Logger
	DB       *gorm.DB
	Cfg      *config.Config
	Repos    Repos
	Services Services
	Worker   *jobs.Worker

	mirror       *graph.Mirror
	shutdownOTel func(context.Context) error
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

	log.Info("Loading configuration...")
	cfg, err := config.Load(log)
	if err != nil {
		log.Sync()
		return nil, fmt.Errorf("load config: %w", err)
	}

	shutdownOTel := observability.InitOTel(ctx, log, observability.OtelConfig{
		ServiceName: "revisify-engine",
		Environment: utils.GetEnv("APP_ENV", "development", log),
	})

	dbService, err := db.New(log)
	if err != nil {
		log.Sync()
		return nil, fmt.Errorf("init database: %w", err)
	}
	if err := dbService.AutoMigrateAll(); err != nil {
		log.Sync()
		return nil, fmt.Errorf("auto migrate: %w", err)
	}
	theDB := dbService.DB()

	mirror, err := graph.NewFromEnv(log)
	if err != nil {
		log.Warn("Graph mirror init failed, continuing without it", "error", err)
		mirror = nil
	}

	store := vecindex.NewStore(cfg.IndexDir, log)
	reposet := wireRepos(theDB, log)
	serviceset, err := wireServices(ctx, theDB, log, cfg, reposet, store, mirror)
	if err != nil {
		log.Sync()
		return nil, err
	}

	registry := jobs.NewRegistry()
	registry.Register(types.JobTypeDocumentIngest, jobs.HandlerFunc(serviceset.Pipeline.Run))
	worker := jobs.NewWorker(theDB, log, reposet.PipelineRun, registry)

	return &App{
		Log:          log,
		DB:           theDB,
		Cfg:          cfg,
		Repos:        reposet,
		Services:     serviceset,
		Worker:       worker,
		mirror:       mirror,
		shutdownOTel: shutdownOTel,
	}, nil
}

// Start launches the pipeline worker. It returns immediately; the worker
// stops when ctx is cancelled.
func (a *App) Start(ctx context.Context) {
	a.Worker.Start(ctx)
}

func (a *App) Shutdown(ctx context.Context) {
	if err := a.mirror.Close(ctx); err != nil {
		a.Log.Warn("Graph mirror close failed", "error", err)
	}
	if a.shutdownOTel != nil {
		if err := a.shutdownOTel(ctx); err != nil {
			a.Log.Warn("OTel shutdown failed", "error", err)
		}
	}
	a.Log.Sync()
}
