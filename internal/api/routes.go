package api

import (
	"github.com/bohenriksen2020/insolvency-scraper/internal/cache"
	"github.com/bohenriksen2020/insolvency-scraper/internal/config"
	"github.com/bohenriksen2020/insolvency-scraper/internal/ingest"
	"github.com/bohenriksen2020/insolvency-scraper/pkg/logger"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// SetupRoutes configures all application routes
func SetupRoutes(router *gin.Engine, db *gorm.DB, cache cache.Cache, ingestService *ingest.Service, logger *logger.Logger, cfg *config.Config) {
	h := NewHandlers(db, cache, ingestService, logger, cfg)

	api := router.Group("/api")
	{
		// Health check
		api.GET("/health", h.HealthCheck)

		// Ingestion
		api.POST("/ingest/run", h.RunIngestion)
		api.GET("/ingest/logs", h.IngestionLogs)

		// Case endpoints
		api.GET("/insolvencies/recent", h.RecentCases)
		api.GET("/lawyers/:name/cases", h.LawyerCases)
		api.GET("/dashboard/summary", h.DashboardSummary)

		// Cache stats
		api.GET("/cache/stats", h.CacheStats)
	}
}
