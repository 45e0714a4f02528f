// Package server exposes the operator HTTP surface: sync triggers, sync
// status, and vendor credential management.
package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/AssetWorks-R-D/ai-spend-dashboard/internal/clock"
	"github.com/AssetWorks-R-D/ai-spend-dashboard/internal/config"
	"github.com/AssetWorks-R-D/ai-spend-dashboard/internal/observability/logger"
	"github.com/AssetWorks-R-D/ai-spend-dashboard/internal/observability/tracing"
	syncengine "github.com/AssetWorks-R-D/ai-spend-dashboard/internal/sync"
	"github.com/AssetWorks-R-D/ai-spend-dashboard/internal/vendorconfig"
)

// Params collects the server's dependencies.
type Params struct {
	fx.In

	Config        config.Config
	DB            *gorm.DB
	Log           *zap.Logger
	Clock         clock.Clock
	Node          *snowflake.Node
	Orchestrator  *syncengine.Orchestrator
	RunLog        *syncengine.RunLog
	VendorConfigs *vendorconfig.Service
}

// Server hosts the HTTP handlers.
type Server struct {
	cfg           config.Config
	db            *gorm.DB
	log           *zap.Logger
	clock         clock.Clock
	node          *snowflake.Node
	orchestrator  *syncengine.Orchestrator
	runLog        *syncengine.RunLog
	vendorConfigs *vendorconfig.Service
	engine        *gin.Engine
	triggerLimit  *rateLimiter
}

// NewEngine builds the gin engine with the shared middleware stack.
func NewEngine(cfg config.Config) *gin.Engine {
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
	engine := gin.New()
	engine.Use(logger.GinMiddleware(logger.MiddlewareConfig{}))
	engine.Use(tracing.GinMiddleware())
	engine.Use(gin.Recovery())
	return engine
}

// NewServer constructs the server.
func NewServer(p Params, engine *gin.Engine) *Server {
	return &Server{
		cfg:           p.Config,
		db:            p.DB,
		log:           p.Log.Named("server"),
		clock:         p.Clock,
		node:          p.Node,
		orchestrator:  p.Orchestrator,
		runLog:        p.RunLog,
		vendorConfigs: p.VendorConfigs,
		engine:        engine,
		// Sync triggers hit vendor APIs, so they are limited harder than
		// normal reads.
		triggerLimit: newRateLimiter(5, time.Minute),
	}
}

// RegisterAPIRoutes mounts all HTTP routes.
func (s *Server) RegisterAPIRoutes() {
	s.engine.GET("/healthz", s.Healthz)
	s.engine.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := s.engine.Group("/api")
	{
		api.POST("/sync/trigger", s.TriggerSync)
		api.POST("/sync/snapshot", s.CaptureSnapshot)
		api.GET("/sync/status", s.SyncStatus)
		api.GET("/sync/runs", s.ListSyncRuns)

		api.GET("/vendors", s.ListVendorConfigs)
		api.PUT("/vendors/:vendor/credentials", s.PutVendorCredentials)
	}

	if !s.cfg.IsProduction() {
		s.engine.POST("/api/test/cleanup", s.TestCleanup)
	}
}

// Healthz verifies database connectivity.
func (s *Server) Healthz(c *gin.Context) {
	sqlDB, err := s.db.DB()
	if err == nil {
		err = sqlDB.PingContext(c.Request.Context())
	}
	if err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unhealthy"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// RunHTTP starts the HTTP listener under the fx lifecycle.
func RunHTTP(lc fx.Lifecycle, engine *gin.Engine, cfg config.Config, log *zap.Logger) {
	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			log.Info("starting http server", zap.String("addr", cfg.HTTPAddr))
			go func() {
				if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					log.Error("http server stopped", zap.Error(err))
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			log.Info("shutting down http server")
			return srv.Shutdown(ctx)
		},
	})
}
