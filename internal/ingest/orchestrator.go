package ingest

import (
	"context"
	"encoding/json"
	"errors"
	"math/rand"
	"sync/atomic"
	"time"

	"github.com/bohenriksen2020/insolvency-scraper/internal/cache"
	"github.com/bohenriksen2020/insolvency-scraper/internal/config"
	"github.com/bohenriksen2020/insolvency-scraper/internal/database"
	"github.com/bohenriksen2020/insolvency-scraper/internal/gazette"
	"github.com/bohenriksen2020/insolvency-scraper/internal/lawyers"
	"github.com/bohenriksen2020/insolvency-scraper/internal/registry"
	"github.com/bohenriksen2020/insolvency-scraper/internal/store"
	"github.com/bohenriksen2020/insolvency-scraper/pkg/logger"
	"gorm.io/gorm"
)

// Notices outside this section/type pair are not insolvency decrees and
// are skipped before extraction
const (
	decreeSection = "Konkursboer"
	decreeType    = "Dekret"
)

// ErrRunInProgress is returned when a run is triggered while another run
// is still in flight
var ErrRunInProgress = errors.New("an ingestion run is already in progress")

// NoticeSource fetches gazette listings and notice documents
type NoticeSource interface {
	FetchDay(ctx context.Context, dateISO string) (*gazette.SearchResult, error)
	FetchDocument(ctx context.Context, messageNumber string) (*gazette.NoticeDocument, error)
}

// RegistryService is the company registry boundary
type RegistryService interface {
	FetchCompanyByName(ctx context.Context, name string) (*registry.CompanyPayload, error)
}

// LawyerDirectory is the lawyer directory boundary
type LawyerDirectory interface {
	FetchProfiles(ctx context.Context, name string) ([]lawyers.Profile, error)
}

// Summary is the caller-visible outcome of one ingestion run
type Summary struct {
	Date             string `json:"date"`
	NoticesFound     int    `json:"notices_found"`
	CasesCreated     int    `json:"cases_created"`
	CasesUpdated     int    `json:"cases_updated"`
	CasesSkipped     int    `json:"cases_skipped"`
	EnrichmentErrors int    `json:"enrichment_errors"`
}

// Service runs the ingestion-enrichment pipeline: fetch a day of
// notices, extract each into a normalized case, enrich it from the
// registry and lawyer directory, and upsert the results one case at a
// time. Failures below day level are contained per case.
type Service struct {
	cfg       *config.Config
	source    NoticeSource
	registry  RegistryService
	directory LawyerDirectory
	extractor *gazette.Extractor
	store     *store.Store
	cache     cache.Cache
	logger    *logger.Logger
	running   atomic.Bool
}

func NewService(
	cfg *config.Config,
	source NoticeSource,
	reg RegistryService,
	directory LawyerDirectory,
	st *store.Store,
	lookupCache cache.Cache,
	log *logger.Logger,
) *Service {
	return &Service{
		cfg:       cfg,
		source:    source,
		registry:  reg,
		directory: directory,
		extractor: gazette.NewExtractor(),
		store:     st,
		cache:     lookupCache,
		logger:    log,
	}
}

// RunIngestion processes one gazette day. It returns an error only when
// the day's listings cannot be fetched at all, or when a run is already
// in progress; every per-case failure is logged and contained.
func (s *Service) RunIngestion(ctx context.Context, dateISO string) (*Summary, error) {
	if !s.running.CompareAndSwap(false, true) {
		return nil, ErrRunInProgress
	}
	defer s.running.Store(false)

	started := time.Now()
	summary := &Summary{Date: dateISO}

	s.logger.Info("Starting ingestion run", "date", dateISO)

	search, err := s.source.FetchDay(ctx, dateISO)
	if err != nil {
		s.recordRun(summary, started, err)
		return nil, err
	}
	summary.NoticesFound = search.TotalCount

	for _, notice := range search.Results {
		if notice.SectionName != decreeSection || notice.MessageTypeName != decreeType {
			continue
		}
		if notice.MessageNumber == "" {
			summary.CasesSkipped++
			continue
		}

		s.processNotice(ctx, notice, summary)

		// Bound the aggregate request rate across the whole batch.
		time.Sleep(s.cfg.CaseDelay)
	}

	s.recordRun(summary, started, nil)
	s.logger.Info("Completed ingestion run",
		"date", dateISO,
		"notices", summary.NoticesFound,
		"created", summary.CasesCreated,
		"updated", summary.CasesUpdated,
		"skipped", summary.CasesSkipped,
		"enrichment_errors", summary.EnrichmentErrors,
	)
	return summary, nil
}

// processNotice fetches and extracts one notice, then hands the case to
// enrichment. A malformed or unfetchable document skips this case only.
func (s *Service) processNotice(ctx context.Context, notice gazette.RawNotice, summary *Summary) {
	doc, err := s.source.FetchDocument(ctx, notice.MessageNumber)
	if err != nil {
		s.logger.Warn("Skipping notice",
			"message_number", notice.MessageNumber,
			"error", err,
		)
		summary.CasesSkipped++
		return
	}

	c := s.extractor.Extract(doc)
	if c.MessageNumber == "" {
		c.MessageNumber = notice.MessageNumber
	}
	if c.PublicationDate == "" {
		c.PublicationDate = notice.PublicationDate
	}
	if c.CompanyName == "" {
		c.CompanyName = notice.Title
	}

	s.ProcessCase(ctx, c, doc.Raw, summary)
}

// ProcessCase enriches one normalized case and upserts it inside its own
// transaction. It never propagates an error to the caller.
func (s *Service) ProcessCase(ctx context.Context, c gazette.NormalizedCase, rawNotice string, summary *Summary) {
	company := s.fetchCompany(ctx, c, summary)
	profile := s.fetchLawyerProfile(ctx, c, summary)

	err := s.store.Transaction(func(tx *gorm.DB) error {
		return s.upsertCase(tx, c, rawNotice, company, profile, summary)
	})
	if err != nil {
		// A conflict rolls back this case only; the run continues.
		s.logger.Error("Case upsert failed",
			"message_number", c.MessageNumber,
			"error", err,
		)
		summary.CasesSkipped++
	}
}

// fetchCompany calls the registry boundary when the case has a company
// name; failures are logged and counted, never raised
func (s *Service) fetchCompany(ctx context.Context, c gazette.NormalizedCase, summary *Summary) *registry.CompanyPayload {
	if c.CompanyName == "" {
		return nil
	}

	key := cache.CompanyKey(c.CompanyName)
	if cached, found := s.cache.Get(key); found {
		if payload, ok := cached.(*registry.CompanyPayload); ok {
			return payload
		}
	}

	payload, err := s.registry.FetchCompanyByName(ctx, c.CompanyName)
	s.jitter()
	if err != nil {
		s.logger.Warn("Company enrichment failed",
			"message_number", c.MessageNumber,
			"company", c.CompanyName,
			"error", err,
		)
		summary.EnrichmentErrors++
		return nil
	}
	if payload != nil {
		s.cache.Set(key, payload)
	}
	return payload
}

// fetchLawyerProfile calls the lawyer directory when the case names a
// kurator and returns the first profile, if any
func (s *Service) fetchLawyerProfile(ctx context.Context, c gazette.NormalizedCase, summary *Summary) *lawyers.Profile {
	if c.LawyerName == "" {
		return nil
	}

	key := cache.LawyerKey(c.LawyerName)
	if cached, found := s.cache.Get(key); found {
		if profiles, ok := cached.([]lawyers.Profile); ok {
			return firstProfile(profiles)
		}
	}

	profiles, err := s.directory.FetchProfiles(ctx, c.LawyerName)
	s.jitter()
	if err != nil {
		s.logger.Warn("Lawyer enrichment failed",
			"message_number", c.MessageNumber,
			"lawyer", c.LawyerName,
			"error", err,
		)
		summary.EnrichmentErrors++
		return nil
	}
	if len(profiles) > 0 {
		s.cache.Set(key, profiles)
	}
	return firstProfile(profiles)
}

// upsertCase writes the lawyer, company and case rows for one case. The
// lawyer goes first so both other rows can link it.
func (s *Service) upsertCase(
	tx *gorm.DB,
	c gazette.NormalizedCase,
	rawNotice string,
	company *registry.CompanyPayload,
	profile *lawyers.Profile,
	summary *Summary,
) error {
	var lawyerID *uint
	if c.LawyerName != "" {
		record := &database.Lawyer{Name: c.LawyerName}
		if profile != nil {
			record.Firm = profile.Firm.Name
			record.City = profile.Firm.City
			record.Email = firstNonEmpty(profile.Email, profile.Firm.Email)
			record.Phone = profile.Firm.Phone
			record.RegistryID = profile.Firm.RegistryID
		}
		saved, err := s.store.UpsertLawyer(tx, record)
		if err != nil {
			return err
		}
		lawyerID = &saved.ID
	}

	var companyID *uint
	registryID := c.RegistryID
	if company != nil && company.RegistryID != "" {
		registryID = company.RegistryID
	}
	if registryID != "" {
		record := &database.Company{
			RegistryID: registryID,
			Name:       c.CompanyName,
			LawyerID:   lawyerID,
		}
		if company != nil {
			record.Name = firstNonEmpty(company.Name, c.CompanyName)
			record.Status = company.Status
			record.StreetName = company.StreetName
			record.PostalCode = company.PostalCode
			record.City = company.City
			record.EmployeeCount = company.EmployeeCount
			record.RawPayload = company.Raw
			if len(company.Assets) > 0 {
				if encoded, err := json.Marshal(company.Assets); err == nil {
					record.Assets = string(encoded)
				}
			}
		}
		saved, err := s.store.UpsertCompany(tx, record)
		if err != nil {
			return err
		}
		companyID = &saved.ID
	}

	caseRecord := &database.InsolvencyCase{
		MessageNumber:   c.MessageNumber,
		CompanyName:     c.CompanyName,
		Court:           c.Court,
		LawyerName:      c.LawyerName,
		PublicationDate: parseDate(c.PublicationDate),
		RawNotice:       rawNotice,
		CompanyID:       companyID,
		LawyerID:        lawyerID,
	}
	created, err := s.store.UpsertCase(tx, caseRecord)
	if err != nil {
		return err
	}
	if created {
		summary.CasesCreated++
	} else {
		summary.CasesUpdated++
	}
	return nil
}

// jitter sleeps a randomized interval between upstream calls to spread
// load on the rate-limited enrichment services
func (s *Service) jitter() {
	min := s.cfg.JitterMin
	max := s.cfg.JitterMax
	if max <= min {
		time.Sleep(min)
		return
	}
	time.Sleep(min + time.Duration(rand.Int63n(int64(max-min))))
}

func (s *Service) recordRun(summary *Summary, started time.Time, runErr error) {
	entry := &database.IngestionLog{
		RunDate:          summary.Date,
		NoticesFound:     summary.NoticesFound,
		CasesCreated:     summary.CasesCreated,
		CasesUpdated:     summary.CasesUpdated,
		CasesSkipped:     summary.CasesSkipped,
		EnrichmentErrors: summary.EnrichmentErrors,
		Success:          runErr == nil,
		StartedAt:        started,
		FinishedAt:       time.Now(),
	}
	if runErr != nil {
		entry.ErrorMessage = runErr.Error()
	}
	if err := s.store.RecordRun(entry); err != nil {
		s.logger.Error("Failed to record ingestion run", "error", err)
	}
}

func firstProfile(profiles []lawyers.Profile) *lawyers.Profile {
	if len(profiles) == 0 {
		return nil
	}
	return &profiles[0]
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

// parseDate handles the date formats the gazette uses for publication
// dates
func parseDate(value string) time.Time {
	formats := []string{
		time.RFC3339,
		"2006-01-02T15:04:05",
		"2006-01-02",
		"02-01-2006",
		"02/01/2006",
	}
	for _, format := range formats {
		if parsed, err := time.Parse(format, value); err == nil {
			return parsed
		}
	}
	return time.Time{}
}
