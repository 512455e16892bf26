package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	_ "github.com/jonp69/DL-Homework-Garden/api/swagger"
	"github.com/jonp69/DL-Homework-Garden/internal/classify"
	"github.com/jonp69/DL-Homework-Garden/internal/download"
	"github.com/jonp69/DL-Homework-Garden/internal/gallerydl"
	"github.com/jonp69/DL-Homework-Garden/internal/handler"
	"github.com/jonp69/DL-Homework-Garden/internal/ingest"
	"github.com/jonp69/DL-Homework-Garden/internal/repository"
	"github.com/jonp69/DL-Homework-Garden/internal/service"
	"github.com/jonp69/DL-Homework-Garden/internal/store"
	"github.com/jonp69/DL-Homework-Garden/pkg/cache"
	"github.com/jonp69/DL-Homework-Garden/pkg/config"
	"github.com/jonp69/DL-Homework-Garden/pkg/database"
	"github.com/jonp69/DL-Homework-Garden/pkg/jobs"
	"github.com/jonp69/DL-Homework-Garden/pkg/logger"
	"github.com/jonp69/DL-Homework-Garden/pkg/storage"
)

// @title DL Homework Garden API
// @version 0.1.0
// @description Link classification and gallery-dl dispatch service
// @BasePath /
// @schemes http
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logr, err := logger.New(cfg)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logr.Sync() //nolint:errcheck

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	rootCtx, rootCancel := context.WithCancel(context.Background())
	defer rootCancel()

	metricsService := service.NewMetricsService()

	snapshots, closeBackend, err := newSnapshotBackend(rootCtx, cfg)
	if err != nil {
		logr.Sugar().Fatalw("snapshot backend init failed", "backend", cfg.Store.Backend, "error", err)
	}
	defer closeBackend()

	st := store.New(store.Config{
		Snapshots: repository.NewInstrumentedSnapshots(snapshots, metricsService),
		Logger:    logr,
	})
	if err := st.Load(rootCtx); err != nil {
		logr.Sugar().Fatalw("store load failed", "error", err)
	}
	stats := st.Stats()
	metricsService.SetLinkCounts(stats)
	logr.Sugar().Infow("store loaded", "backend", cfg.Store.Backend,
		"links", stats.Total, "filters", len(st.Filters()), "batches", len(st.Batches()))

	cacheService := newCacheService(cfg, metricsService, logr)
	validate := validator.New()

	authorBroker := classify.NewBroker(logr)
	metricsService.RegisterDepthGauge("authoring_requests_pending",
		"Filter authoring requests waiting on the operator", authorBroker.PendingCount)
	classifier := classify.New(classify.Config{
		Store:       st,
		Author:      authorBroker,
		TrimClosers: cfg.Ingest.TrimTrailingClosers,
		Logger:      logr,
	})

	captures, err := storage.NewLocalStorage(cfg.Ingest.LinkFilesDir)
	if err != nil {
		logr.Sugar().Fatalw("link files directory init failed", "dir", cfg.Ingest.LinkFilesDir, "error", err)
	}
	ingestor := ingest.New(ingest.Config{Store: st, Classifier: classifier, Captures: captures, Logger: logr})

	ingestWorker := service.NewIngestWorker(ingestor, cacheService, logr)
	ingestQueue := jobs.NewQueue("ingest-files", ingestWorker.Handle, jobs.QueueConfig{
		Workers:    1,
		MaxRetries: cfg.Ingest.WorkerRetries,
		Logger:     logr,
	})
	ingestQueue.Start(rootCtx)
	defer ingestQueue.Stop()
	metricsService.RegisterDepthGauge("ingest_queue_depth",
		"Link file batches waiting in the ingest queue", ingestQueue.Depth)

	ingestService := service.NewIngestService(ingestor, st, ingestQueue, cacheService, cfg.Ingest.LinkFilesDir, validate, logr)

	var scheduler *service.ScanScheduler
	if cfg.Ingest.ScanEnabled {
		scheduler, err = service.NewScanScheduler(cfg.Ingest.ScanSchedule, ingestService, logr)
		if err != nil {
			logr.Sugar().Fatalw("scan scheduler init failed", "schedule", cfg.Ingest.ScanSchedule, "error", err)
		}
		scheduler.Start()
		defer scheduler.Stop()
	}

	executor := gallerydl.New(gallerydl.Config{
		Bin:       cfg.Download.Bin,
		ExtraArgs: cfg.Download.ExtraArgs,
		TargetDir: cfg.Download.TargetDir,
		Logger:    logr,
	})
	decisionBroker := download.NewDecisionBroker(logr)
	metricsService.RegisterDepthGauge("limit_decisions_pending",
		"Limit decisions waiting on the operator", decisionBroker.PendingCount)
	runner := download.NewRunner(download.Config{
		Store:    st,
		Executor: executor,
		Decider:  decisionBroker,
		Limits: download.Limits{
			MaxItems:  cfg.Limits.MaxItems,
			MaxTime:   cfg.Limits.MaxTime,
			MaxSizeMB: cfg.Limits.MaxSizeMB,
		},
		Slots:       cfg.Queue.Slots,
		MaxAttempts: cfg.Queue.MaxRetries,
		Logger:      logr,
	})
	overrides := download.NewOverrideRunner(download.OverrideConfig{
		Store:    st,
		Executor: executor,
		Workers:  cfg.Queue.OverrideSlots,
		Logger:   logr,
	})
	overrides.Start(rootCtx)
	defer overrides.Stop()

	if cfg.Queue.Autostart {
		if err := runner.Start(); err != nil {
			logr.Sugar().Warnw("download autostart failed", "error", err)
		}
	}

	authService := service.NewAuthService(validate, logr, service.AuthConfig{
		Username:     cfg.Operator.Username,
		PasswordHash: cfg.Operator.PasswordHash,
		Secret:       cfg.JWT.Secret,
		Expiration:   cfg.JWT.Expiration,
		Issuer:       "dl-homework-garden",
	})
	linkService := service.NewLinkService(st, cacheService, metricsService, validate, logr)
	filterService := service.NewFilterService(st, classifier, authorBroker, cacheService, validate, logr)
	downloadService := service.NewDownloadService(runner, decisionBroker, overrides, st, cacheService, validate, logr)

	var exportService *service.ExportService
	if cfg.Exports.Enabled {
		files, err := storage.NewLocalStorage(cfg.Exports.StorageDir)
		if err != nil {
			logr.Sugar().Fatalw("export storage init failed", "dir", cfg.Exports.StorageDir, "error", err)
		}
		signer := storage.NewSignedURLSigner(cfg.Exports.SignedURLSecret, cfg.Exports.SignedURLTTL)
		exportService = service.NewExportService(st, files, signer, service.ExportConfig{
			APIPrefix: cfg.APIPrefix,
			ResultTTL: cfg.Exports.SignedURLTTL,
		}, validate, logr)
	}

	r := handler.NewRouter(handler.Deps{
		Auth:           authService,
		Links:          linkService,
		Filters:        filterService,
		Ingest:         ingestService,
		Downloads:      downloadService,
		Exports:        exportService,
		Metrics:        metricsService,
		Logger:         logr,
		AllowedOrigins: cfg.CORS.AllowedOrigins,
	})

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	serverErrors := make(chan error, 1)
	go func() {
		logr.Sugar().Infow("server starting", "addr", srv.Addr, "env", cfg.Env)
		serverErrors <- srv.ListenAndServe()
	}()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		logr.Sugar().Fatalw("server failed", "error", err)
	case sig := <-shutdown:
		logr.Sugar().Infow("shutdown signal received", "signal", sig.String())
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Sugar().Errorw("http shutdown failed", "error", err)
	}

	// Stop claiming new downloads and return in-flight links to their tier,
	// then unblock anyone waiting on an authoring prompt.
	if err := runner.Stop(); err != nil {
		logr.Sugar().Errorw("download runner stop failed", "error", err)
	}
	if n := authorBroker.CancelAll(); n > 0 {
		logr.Sugar().Infow("authoring requests cancelled", "count", n)
	}
	logr.Sugar().Infow("server stopped")
}

// newSnapshotBackend picks the persistence layer for the link collection. The
// returned closer releases the backing handle, a no-op for plain files.
func newSnapshotBackend(ctx context.Context, cfg *config.Config) (repository.Snapshots, func(), error) {
	switch cfg.Store.Backend {
	case config.StoreBackendFile:
		snaps, err := repository.NewFileSnapshots(cfg.Store.DataDir)
		if err != nil {
			return nil, nil, err
		}
		return snaps, func() {}, nil
	case config.StoreBackendSQLite:
		db, err := database.NewSQLite(cfg.Store.SQLitePath)
		if err != nil {
			return nil, nil, err
		}
		snaps, err := repository.NewSQLiteSnapshots(db)
		if err != nil {
			_ = db.Close()
			return nil, nil, err
		}
		return snaps, func() { _ = db.Close() }, nil
	case config.StoreBackendPostgres:
		db, err := database.NewPostgres(cfg.Database)
		if err != nil {
			return nil, nil, err
		}
		snaps, err := repository.NewPostgresSnapshots(ctx, db)
		if err != nil {
			_ = db.Close()
			return nil, nil, err
		}
		return snaps, func() { _ = db.Close() }, nil
	default:
		return nil, nil, fmt.Errorf("unknown store backend %q", cfg.Store.Backend)
	}
}

// newCacheService returns a disabled cache when Redis is off or unreachable.
// The service degrades to direct store reads either way.
func newCacheService(cfg *config.Config, metrics *service.MetricsService, logr *zap.Logger) *service.CacheService {
	if !cfg.Cache.Enabled {
		return service.NewCacheService(nil, metrics, cfg.Cache.StatsTTL, logr, false)
	}
	client, err := cache.NewRedis(cfg.Redis)
	if err != nil {
		logr.Sugar().Warnw("cache disabled, redis unreachable", "error", err)
		return service.NewCacheService(nil, metrics, cfg.Cache.StatsTTL, logr, false)
	}
	repo := repository.NewCacheRepository(client, logr)
	return service.NewCacheService(repo, metrics, cfg.Cache.StatsTTL, logr, true)
}
