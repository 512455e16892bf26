package handler

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/jonp69/DL-Homework-Garden/internal/middleware"
	"github.com/jonp69/DL-Homework-Garden/internal/service"
	"github.com/jonp69/DL-Homework-Garden/pkg/logger"
	corsmiddleware "github.com/jonp69/DL-Homework-Garden/pkg/middleware/cors"
	reqidmiddleware "github.com/jonp69/DL-Homework-Garden/pkg/middleware/requestid"
)

// Deps carries the services the router wires to endpoints.
type Deps struct {
	Auth      *service.AuthService
	Links     *service.LinkService
	Filters   *service.FilterService
	Ingest    *service.IngestService
	Downloads *service.DownloadService
	Exports   *service.ExportService
	Metrics   *service.MetricsService

	Logger         *zap.Logger
	AllowedOrigins []string
}

// NewRouter assembles the HTTP surface. Everything under /api/v1 except the
// login and the signed export download requires a valid operator token.
func NewRouter(deps Deps) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	if deps.Logger != nil {
		r.Use(logger.GinMiddleware(deps.Logger))
	}
	r.Use(corsmiddleware.New(deps.AllowedOrigins))
	r.Use(middleware.Metrics(deps.Metrics))
	r.Use(middleware.WithResponseMeta())

	authHandler := NewAuthHandler(deps.Auth)
	linkHandler := NewLinkHandler(deps.Links)
	filterHandler := NewFilterHandler(deps.Filters)
	ingestHandler := NewIngestHandler(deps.Ingest)
	downloadHandler := NewDownloadHandler(deps.Downloads)
	exportHandler := NewExportHandler(deps.Exports)
	metricsHandler := NewMetricsHandler(deps.Metrics)

	r.GET("/health", metricsHandler.Health)
	r.GET("/ready", metricsHandler.Health)
	r.GET("/metrics", metricsHandler.Prometheus)

	v1 := r.Group("/api/v1")

	v1.POST("/auth/login", authHandler.Login)
	// The signed token is the credential here.
	v1.GET("/exports/download/:token", exportHandler.Download)

	protected := v1.Group("")
	protected.Use(middleware.JWT(deps.Auth))
	{
		protected.GET("/auth/me", authHandler.Me)

		protected.GET("/links", linkHandler.List)
		protected.GET("/links/detail", linkHandler.Get)
		protected.GET("/links/stats", linkHandler.Stats)
		protected.PUT("/links/status", linkHandler.SetStatus)
		protected.PATCH("/links/status", linkHandler.SetStatusBulk)
		protected.GET("/links/review", linkHandler.Review)

		protected.GET("/filters", filterHandler.List)
		protected.POST("/filters", filterHandler.Create)
		protected.POST("/filters/reprocess", filterHandler.Reprocess)
		protected.GET("/filters/authoring", filterHandler.PendingAuthoring)
		protected.POST("/filters/authoring/:id", filterHandler.ResolveAuthoring)
		protected.GET("/filters/:id", filterHandler.Get)
		protected.PUT("/filters/:id", filterHandler.Update)
		protected.DELETE("/filters/:id", filterHandler.Delete)
		protected.POST("/filters/:id/move", filterHandler.Move)
		protected.GET("/filters/:id/links", filterHandler.AffectedLinks)

		protected.POST("/ingest/files", ingestHandler.IngestFile)
		protected.POST("/ingest/clipboard", ingestHandler.Clipboard)
		protected.POST("/ingest/scan", ingestHandler.Scan)
		protected.POST("/ingest/resume", ingestHandler.Resume)
		protected.GET("/batches", ingestHandler.Batches)
		protected.GET("/batches/detail", ingestHandler.Batch)

		protected.POST("/downloads/start", downloadHandler.Start)
		protected.POST("/downloads/pause", downloadHandler.Pause)
		protected.POST("/downloads/resume", downloadHandler.Resume)
		protected.POST("/downloads/stop", downloadHandler.Stop)
		protected.POST("/downloads/skip", downloadHandler.Skip)
		protected.GET("/downloads/status", downloadHandler.Status)
		protected.GET("/downloads/decisions", downloadHandler.Decisions)
		protected.POST("/downloads/decisions/:id", downloadHandler.ResolveDecision)
		protected.POST("/downloads/override", downloadHandler.Override)

		protected.POST("/exports", exportHandler.Create)
		protected.GET("/system/metrics", metricsHandler.System)
	}

	return r
}
