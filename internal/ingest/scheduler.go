package ingest

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bohenriksen2020/insolvency-scraper/internal/config"
	"github.com/bohenriksen2020/insolvency-scraper/pkg/logger"
	"github.com/robfig/cron/v3"
)

// Scheduler triggers one ingestion run per day at a fixed wall-clock
// hour in the gazette's timezone
type Scheduler struct {
	cron   *cron.Cron
	logger *logger.Logger
}

// NewScheduler creates the daily trigger. The job shares the service's
// single-flight guard with manual triggers, so an overlapping tick is
// skipped rather than queued.
func NewScheduler(cfg *config.Config, service *Service, log *logger.Logger) (*Scheduler, error) {
	location, err := time.LoadLocation(cfg.ScheduleTimezone)
	if err != nil {
		return nil, fmt.Errorf("invalid schedule timezone %q: %w", cfg.ScheduleTimezone, err)
	}

	c := cron.New(cron.WithLocation(location))
	spec := fmt.Sprintf("0 %d * * *", cfg.ScheduleHour)

	_, err = c.AddFunc(spec, func() {
		date := time.Now().In(location).Format("2006-01-02")
		summary, err := service.RunIngestion(context.Background(), date)
		if errors.Is(err, ErrRunInProgress) {
			log.Warn("Skipping scheduled ingestion, a run is already in progress", "date", date)
			return
		}
		if err != nil {
			log.Error("Scheduled ingestion failed", "date", date, "error", err)
			return
		}
		log.Info("Scheduled ingestion finished",
			"date", date,
			"created", summary.CasesCreated,
			"updated", summary.CasesUpdated,
		)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to register ingestion job: %w", err)
	}

	return &Scheduler{cron: c, logger: log}, nil
}

// Start begins firing the daily job
func (s *Scheduler) Start() {
	s.cron.Start()
	s.logger.Info("Scheduler started")
}

// Stop halts the scheduler and waits for a running job to return
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
	s.logger.Info("Scheduler stopped")
}
