package api

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/bohenriksen2020/insolvency-scraper/internal/cache"
	"github.com/bohenriksen2020/insolvency-scraper/internal/config"
	"github.com/bohenriksen2020/insolvency-scraper/internal/database"
	"github.com/bohenriksen2020/insolvency-scraper/internal/gazette"
	"github.com/bohenriksen2020/insolvency-scraper/internal/ingest"
	"github.com/bohenriksen2020/insolvency-scraper/pkg/logger"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// Handlers holds all HTTP handlers
type Handlers struct {
	db     *gorm.DB
	cache  cache.Cache
	ingest *ingest.Service
	logger *logger.Logger
	cfg    *config.Config
}

// NewHandlers creates a new handlers instance
func NewHandlers(db *gorm.DB, cache cache.Cache, ingestService *ingest.Service, logger *logger.Logger, cfg *config.Config) *Handlers {
	return &Handlers{
		db:     db,
		cache:  cache,
		ingest: ingestService,
		logger: logger,
		cfg:    cfg,
	}
}

// HealthCheck returns the health status
func (h *Handlers) HealthCheck(c *gin.Context) {
	var count int64
	dbHealthy := h.db.Model(&database.InsolvencyCase{}).Count(&count).Error == nil

	c.JSON(http.StatusOK, gin.H{
		"status":   "healthy",
		"database": dbHealthy,
		"cache":    h.cache.Stats(),
		"time":     time.Now().Unix(),
	})
}

// RunIngestion triggers an ingestion run for one date (default today)
func (h *Handlers) RunIngestion(c *gin.Context) {
	date := c.DefaultQuery("date", time.Now().Format("2006-01-02"))
	if _, err := time.Parse("2006-01-02", date); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error":   "Invalid date, expected YYYY-MM-DD",
		})
		return
	}

	summary, err := h.ingest.RunIngestion(context.Background(), date)
	if err != nil {
		switch {
		case errors.Is(err, ingest.ErrRunInProgress):
			c.JSON(http.StatusConflict, gin.H{
				"success": false,
				"error":   err.Error(),
			})
		case errors.Is(err, gazette.ErrUpstreamUnavailable):
			c.JSON(http.StatusBadGateway, gin.H{
				"success": false,
				"error":   err.Error(),
			})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{
				"success": false,
				"error":   err.Error(),
			})
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"summary": summary,
	})
}

// RecentCases returns the latest persisted cases with their company and
// lawyer records preloaded
func (h *Handlers) RecentCases(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	if limit < 1 || limit > 500 {
		limit = 50
	}

	var cases []database.InsolvencyCase
	h.db.Preload("Company").Preload("Lawyer").
		Order("publication_date DESC, created_at DESC").
		Limit(limit).
		Find(&cases)

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    cases,
	})
}

// LawyerCases returns every case handled by lawyers with the given name.
// One name can match several lawyers across firms.
func (h *Handlers) LawyerCases(c *gin.Context) {
	name := c.Param("name")
	if name == "" {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error":   "Name must not be empty",
		})
		return
	}

	var matched []database.Lawyer
	h.db.Where("LOWER(name) = LOWER(?)", name).Find(&matched)
	if len(matched) == 0 {
		c.JSON(http.StatusNotFound, gin.H{
			"success": false,
			"error":   "Lawyer not found",
		})
		return
	}

	ids := make([]uint, 0, len(matched))
	for _, lawyer := range matched {
		ids = append(ids, lawyer.ID)
	}

	var cases []database.InsolvencyCase
	h.db.Preload("Company").
		Where("lawyer_id IN ?", ids).
		Order("publication_date DESC").
		Find(&cases)

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"lawyers": matched,
		"cases":   cases,
	})
}

// DashboardSummary buckets case counts by publication date and by court
func (h *Handlers) DashboardSummary(c *gin.Context) {
	type bucket struct {
		Key   string `json:"key"`
		Count int64  `json:"count"`
	}

	var byDate []bucket
	h.db.Model(&database.InsolvencyCase{}).
		Select("DATE(publication_date) AS key, COUNT(*) AS count").
		Group("DATE(publication_date)").
		Order("key DESC").
		Scan(&byDate)

	var byCourt []bucket
	h.db.Model(&database.InsolvencyCase{}).
		Select("COALESCE(NULLIF(court, ''), 'Unknown') AS key, COUNT(*) AS count").
		Group("key").
		Order("count DESC").
		Scan(&byCourt)

	c.JSON(http.StatusOK, gin.H{
		"success":  true,
		"by_date":  byDate,
		"by_court": byCourt,
	})
}

// CacheStats returns cache statistics
func (h *Handlers) CacheStats(c *gin.Context) {
	stats := h.cache.Stats()
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"stats":   stats,
	})
}

// IngestionLogs returns the most recent run audit rows
func (h *Handlers) IngestionLogs(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
	if limit < 1 || limit > 200 {
		limit = 20
	}

	var logs []database.IngestionLog
	h.db.Order("created_at DESC").Limit(limit).Find(&logs)

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    logs,
	})
}
