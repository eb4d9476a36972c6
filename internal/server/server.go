package server

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/bohenriksen2020/insolvency-scraper/internal/api"
	"github.com/bohenriksen2020/insolvency-scraper/internal/cache"
	"github.com/bohenriksen2020/insolvency-scraper/internal/config"
	"github.com/bohenriksen2020/insolvency-scraper/internal/gazette"
	"github.com/bohenriksen2020/insolvency-scraper/internal/ingest"
	"github.com/bohenriksen2020/insolvency-scraper/internal/lawyers"
	"github.com/bohenriksen2020/insolvency-scraper/internal/registry"
	"github.com/bohenriksen2020/insolvency-scraper/internal/store"
	"github.com/bohenriksen2020/insolvency-scraper/pkg/logger"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

type Server struct {
	cfg       *config.Config
	db        *gorm.DB
	cache     cache.Cache
	logger    *logger.Logger
	router    *gin.Engine
	ingest    *ingest.Service
	scheduler *ingest.Scheduler
}

func New(cfg *config.Config, db *gorm.DB, lookupCache cache.Cache, log *logger.Logger) (*Server, error) {
	if cfg.LogLevel == "debug" {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()

	router.Use(gin.Recovery())
	router.Use(loggingMiddleware(log))
	router.Use(corsMiddleware())

	gazetteClient := gazette.NewClient(cfg)
	fetcher := gazette.NewFetcher(gazetteClient, log, cfg.PageFetchDelay)
	registryClient := registry.NewClient(cfg, log)
	directoryClient := lawyers.NewClient(cfg, log)

	ingestService := ingest.NewService(
		cfg,
		fetcher,
		registryClient,
		directoryClient,
		store.New(db),
		lookupCache,
		log,
	)

	var scheduler *ingest.Scheduler
	if cfg.ScheduleEnabled {
		var err error
		scheduler, err = ingest.NewScheduler(cfg, ingestService, log)
		if err != nil {
			return nil, fmt.Errorf("failed to create scheduler: %w", err)
		}
	}

	server := &Server{
		cfg:       cfg,
		db:        db,
		cache:     lookupCache,
		logger:    log,
		router:    router,
		ingest:    ingestService,
		scheduler: scheduler,
	}

	api.SetupRoutes(router, db, lookupCache, ingestService, log, cfg)

	return server, nil
}

func (s *Server) Run() error {
	srv := &http.Server{
		Addr:         fmt.Sprintf("%s:%s", s.cfg.Host, s.cfg.Port),
		Handler:      s.router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			s.logger.Fatal("Failed to start server", "error", err)
		}
	}()

	s.logger.Info("Server started", "address", srv.Addr)

	if s.scheduler != nil {
		s.scheduler.Start()
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	s.logger.Info("Shutting down server...")

	if s.scheduler != nil {
		s.scheduler.Stop()
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		s.logger.Error("Server forced to shutdown", "error", err)
		return err
	}

	s.logger.Info("Server exited gracefully")
	return nil
}

func loggingMiddleware(logger *logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		raw := c.Request.URL.RawQuery

		c.Next()

		latency := time.Since(start)
		clientIP := c.ClientIP()
		method := c.Request.Method
		statusCode := c.Writer.Status()

		if raw != "" {
			path = path + "?" + raw
		}

		logger.Info("HTTP Request",
			"client_ip", clientIP,
			"method", method,
			"path", path,
			"status", statusCode,
			"latency", latency.String(),
			"user_agent", c.Request.UserAgent(),
		)
	}
}

func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, X-CSRF-Token, Authorization, accept, origin, Cache-Control, X-Requested-With")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS, GET, PUT, DELETE")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}

		c.Next()
	}
}
