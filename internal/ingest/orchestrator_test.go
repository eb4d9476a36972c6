package ingest

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/bohenriksen2020/insolvency-scraper/internal/cache"
	"github.com/bohenriksen2020/insolvency-scraper/internal/config"
	"github.com/bohenriksen2020/insolvency-scraper/internal/database"
	"github.com/bohenriksen2020/insolvency-scraper/internal/gazette"
	"github.com/bohenriksen2020/insolvency-scraper/internal/lawyers"
	"github.com/bohenriksen2020/insolvency-scraper/internal/registry"
	"github.com/bohenriksen2020/insolvency-scraper/internal/store"
	"github.com/bohenriksen2020/insolvency-scraper/pkg/logger"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

type fakeSource struct {
	notices   []gazette.RawNotice
	documents map[string]*gazette.NoticeDocument
	dayErr    error

	released chan struct{}
	blocked  chan struct{}
}

func (f *fakeSource) FetchDay(ctx context.Context, dateISO string) (*gazette.SearchResult, error) {
	if f.blocked != nil {
		close(f.blocked)
		<-f.released
	}
	if f.dayErr != nil {
		return nil, f.dayErr
	}
	return &gazette.SearchResult{Results: f.notices, TotalCount: len(f.notices)}, nil
}

func (f *fakeSource) FetchDocument(ctx context.Context, messageNumber string) (*gazette.NoticeDocument, error) {
	doc, ok := f.documents[messageNumber]
	if !ok {
		return nil, gazette.ErrMalformedDocument
	}
	return doc, nil
}

type fakeRegistry struct {
	payloads map[string]*registry.CompanyPayload
	err      error
	calls    int
}

func (f *fakeRegistry) FetchCompanyByName(ctx context.Context, name string) (*registry.CompanyPayload, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.payloads[name], nil
}

type fakeDirectory struct {
	profiles map[string][]lawyers.Profile
	err      error
	calls    int
}

func (f *fakeDirectory) FetchProfiles(ctx context.Context, name string) ([]lawyers.Profile, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.profiles[name], nil
}

func decreeNotice(messageNumber, title string) gazette.RawNotice {
	return gazette.RawNotice{
		MessageNumber:   messageNumber,
		PublicationDate: "2025-10-23",
		SectionName:     "Konkursboer",
		MessageTypeName: "Dekret",
		Title:           title,
	}
}

func decreeDocument(messageNumber, company, cvr, court, lawyer string) *gazette.NoticeDocument {
	return &gazette.NoticeDocument{
		MessageNumber:   messageNumber,
		Title:           company,
		PublicationDate: "2025-10-23",
		FieldGroups: []gazette.FieldGroup{
			{
				Name: "Skifteretten",
				Fields: []gazette.Field{
					{Name: "Ret", Value: court},
				},
			},
			{
				Name: "Virksomhed",
				Fields: []gazette.Field{
					{Name: "CVR-nr.", Value: cvr},
				},
			},
			{
				Name: "Kurator",
				Fields: []gazette.Field{
					{Name: "Navn", Value: "Advokat " + lawyer},
				},
			},
		},
		Raw: "{}",
	}
}

func setupService(t *testing.T, source *fakeSource, reg *fakeRegistry, dir *fakeDirectory) (*Service, *gorm.DB) {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		t.Fatalf("Failed to open test database: %v", err)
	}
	if err := database.Migrate(db); err != nil {
		t.Fatalf("Failed to migrate test database: %v", err)
	}

	log, err := logger.NewLogger("error", "text")
	if err != nil {
		t.Fatalf("Failed to create logger: %v", err)
	}

	cfg := &config.Config{} // zero delays keep the tests fast
	svc := NewService(cfg, source, reg, dir, store.New(db), cache.NewCache(100, time.Minute), log)
	return svc, db
}

func TestRunIngestionEndToEnd(t *testing.T) {
	source := &fakeSource{
		notices: []gazette.RawNotice{
			decreeNotice("S1", "Byg & Bo ApS"),
			{
				MessageNumber:   "S2",
				SectionName:     "Gældssanering",
				MessageTypeName: "Indledning",
				Title:           "Privatperson",
			},
			decreeNotice("S3", "Nordisk Handel A/S"),
		},
		documents: map[string]*gazette.NoticeDocument{
			"S1": decreeDocument("S1", "Byg & Bo ApS", "11223344", "Skifteretten i Aarhus", "Jens Hansen"),
			"S3": decreeDocument("S3", "Nordisk Handel A/S", "55667788", "Skifteretten i København", "Mette Sørensen"),
		},
	}
	reg := &fakeRegistry{
		payloads: map[string]*registry.CompanyPayload{
			"Byg & Bo ApS": {
				RegistryID: "11223344",
				Name:       "Byg & Bo ApS",
				Status:     "UNDERKONKURS",
				City:       "Aarhus",
			},
			"Nordisk Handel A/S": {
				RegistryID: "55667788",
				Name:       "Nordisk Handel A/S",
				Status:     "UNDERKONKURS",
			},
		},
	}
	dir := &fakeDirectory{
		profiles: map[string][]lawyers.Profile{
			"Jens Hansen": {{
				Name:  "Jens Hansen",
				Email: "jh@nord.dk",
				Firm:  lawyers.Firm{Name: "Advokatfirmaet Nord", City: "Aalborg"},
			}},
		},
	}

	svc, db := setupService(t, source, reg, dir)

	summary, err := svc.RunIngestion(context.Background(), "2025-10-23")
	if err != nil {
		t.Fatalf("RunIngestion failed: %v", err)
	}

	if summary.NoticesFound != 3 {
		t.Errorf("Expected 3 notices found, got %d", summary.NoticesFound)
	}
	if summary.CasesCreated != 2 {
		t.Errorf("Expected 2 cases created, got %d", summary.CasesCreated)
	}
	if summary.EnrichmentErrors != 0 {
		t.Errorf("Expected no enrichment errors, got %d", summary.EnrichmentErrors)
	}

	var caseCount int64
	db.Model(&database.InsolvencyCase{}).Count(&caseCount)
	if caseCount != 2 {
		t.Errorf("Expected 2 case rows, the non-decree notice must be filtered, got %d", caseCount)
	}

	var stored database.InsolvencyCase
	if err := db.Preload("Company").Preload("Lawyer").Where("message_number = ?", "S1").First(&stored).Error; err != nil {
		t.Fatalf("Case S1 not found: %v", err)
	}
	if stored.Court != "Skifteretten i Aarhus" {
		t.Errorf("Court not extracted: %q", stored.Court)
	}
	if stored.Company == nil {
		t.Fatalf("Company not linked")
	}
	if stored.Company.RegistryID != "11223344" {
		t.Errorf("Company registry id wrong: %q", stored.Company.RegistryID)
	}
	if stored.Company.Status != "UNDERKONKURS" {
		t.Errorf("Registry status not persisted: %q", stored.Company.Status)
	}
	if stored.Lawyer == nil {
		t.Fatalf("Lawyer not linked")
	}
	if stored.Lawyer.Firm != "Advokatfirmaet Nord" {
		t.Errorf("Lawyer firm not persisted: %q", stored.Lawyer.Firm)
	}
	if stored.Lawyer.Name != "Jens Hansen" {
		t.Errorf("Lawyer title must be stripped: %q", stored.Lawyer.Name)
	}

	var logCount int64
	db.Model(&database.IngestionLog{}).Count(&logCount)
	if logCount != 1 {
		t.Errorf("Expected 1 ingestion log row, got %d", logCount)
	}
}

func TestRunIngestionIdempotent(t *testing.T) {
	source := &fakeSource{
		notices: []gazette.RawNotice{decreeNotice("S1", "Byg & Bo ApS")},
		documents: map[string]*gazette.NoticeDocument{
			"S1": decreeDocument("S1", "Byg & Bo ApS", "11223344", "Skifteretten i Aarhus", "Jens Hansen"),
		},
	}
	svc, db := setupService(t, source, &fakeRegistry{}, &fakeDirectory{})

	first, err := svc.RunIngestion(context.Background(), "2025-10-23")
	if err != nil {
		t.Fatalf("First run failed: %v", err)
	}
	second, err := svc.RunIngestion(context.Background(), "2025-10-23")
	if err != nil {
		t.Fatalf("Second run failed: %v", err)
	}

	if first.CasesCreated != 1 {
		t.Errorf("First run should create, got %+v", first)
	}
	if second.CasesCreated != 0 || second.CasesUpdated != 1 {
		t.Errorf("Second run should update in place, got %+v", second)
	}

	for _, model := range []interface{}{&database.InsolvencyCase{}, &database.Company{}, &database.Lawyer{}} {
		var count int64
		db.Model(model).Count(&count)
		if count != 1 {
			t.Errorf("Re-ingestion must not duplicate %T rows, got %d", model, count)
		}
	}
}

func TestRunIngestionPartialEnrichment(t *testing.T) {
	source := &fakeSource{
		notices: []gazette.RawNotice{decreeNotice("S1", "Byg & Bo ApS")},
		documents: map[string]*gazette.NoticeDocument{
			"S1": decreeDocument("S1", "Byg & Bo ApS", "11223344", "Skifteretten i Aarhus", "Jens Hansen"),
		},
	}
	reg := &fakeRegistry{err: errors.New("registry unavailable")}
	dir := &fakeDirectory{
		profiles: map[string][]lawyers.Profile{
			"Jens Hansen": {{
				Name: "Jens Hansen",
				Firm: lawyers.Firm{Name: "Advokatfirmaet Nord"},
			}},
		},
	}
	svc, db := setupService(t, source, reg, dir)

	summary, err := svc.RunIngestion(context.Background(), "2025-10-23")
	if err != nil {
		t.Fatalf("RunIngestion failed: %v", err)
	}

	if summary.CasesCreated != 1 {
		t.Errorf("Case must persist despite the registry failure, got %+v", summary)
	}
	if summary.EnrichmentErrors != 1 {
		t.Errorf("Expected exactly 1 enrichment error, got %d", summary.EnrichmentErrors)
	}

	var stored database.InsolvencyCase
	if err := db.Preload("Company").Preload("Lawyer").Where("message_number = ?", "S1").First(&stored).Error; err != nil {
		t.Fatalf("Case not found: %v", err)
	}
	if stored.Lawyer == nil || stored.Lawyer.Firm != "Advokatfirmaet Nord" {
		t.Errorf("Lawyer enrichment must still land: %+v", stored.Lawyer)
	}
	// The CVR from the notice itself is enough for a company row even
	// when the registry is down.
	if stored.Company == nil {
		t.Fatalf("Company row from notice data expected")
	}
	if stored.Company.RegistryID != "11223344" {
		t.Errorf("Company registry id wrong: %q", stored.Company.RegistryID)
	}
	if stored.Company.Status != "" {
		t.Errorf("No registry data, status must stay empty: %q", stored.Company.Status)
	}
}

func TestRunIngestionSkipsUnfetchableDocument(t *testing.T) {
	source := &fakeSource{
		notices: []gazette.RawNotice{
			decreeNotice("S1", "Byg & Bo ApS"),
			decreeNotice("S2", "Nordisk Handel A/S"),
		},
		documents: map[string]*gazette.NoticeDocument{
			"S2": decreeDocument("S2", "Nordisk Handel A/S", "55667788", "Skifteretten i København", "Mette Sørensen"),
		},
	}
	svc, db := setupService(t, source, &fakeRegistry{}, &fakeDirectory{})

	summary, err := svc.RunIngestion(context.Background(), "2025-10-23")
	if err != nil {
		t.Fatalf("RunIngestion failed: %v", err)
	}

	if summary.CasesSkipped != 1 {
		t.Errorf("Expected 1 skipped case, got %d", summary.CasesSkipped)
	}
	if summary.CasesCreated != 1 {
		t.Errorf("The healthy notice must still be processed, got %+v", summary)
	}

	var count int64
	db.Model(&database.InsolvencyCase{}).Count(&count)
	if count != 1 {
		t.Errorf("Expected 1 case row, got %d", count)
	}
}

func TestRunIngestionFailsWhenDayUnavailable(t *testing.T) {
	source := &fakeSource{dayErr: gazette.ErrUpstreamUnavailable}
	svc, db := setupService(t, source, &fakeRegistry{}, &fakeDirectory{})

	_, err := svc.RunIngestion(context.Background(), "2025-10-23")
	if !errors.Is(err, gazette.ErrUpstreamUnavailable) {
		t.Fatalf("Expected upstream error, got %v", err)
	}

	// The failed run still leaves an audit row.
	var entry database.IngestionLog
	if err := db.First(&entry).Error; err != nil {
		t.Fatalf("Ingestion log row expected: %v", err)
	}
	if entry.Success {
		t.Error("Failed run must be recorded as unsuccessful")
	}
	if entry.ErrorMessage == "" {
		t.Error("Failed run must record its error")
	}
}

func TestRunIngestionSingleFlight(t *testing.T) {
	source := &fakeSource{
		blocked:  make(chan struct{}),
		released: make(chan struct{}),
	}
	svc, _ := setupService(t, source, &fakeRegistry{}, &fakeDirectory{})

	done := make(chan error, 1)
	go func() {
		_, err := svc.RunIngestion(context.Background(), "2025-10-23")
		done <- err
	}()

	// Wait until the first run is inside FetchDay before triggering the
	// second one.
	<-source.blocked
	_, err := svc.RunIngestion(context.Background(), "2025-10-23")
	if !errors.Is(err, ErrRunInProgress) {
		t.Errorf("Expected ErrRunInProgress, got %v", err)
	}

	close(source.released)
	if err := <-done; err != nil {
		t.Errorf("First run should complete cleanly: %v", err)
	}

	// With the first run finished the guard must release.
	source.blocked = nil
	if _, err := svc.RunIngestion(context.Background(), "2025-10-23"); err != nil {
		t.Errorf("Run after completion should be allowed: %v", err)
	}
}
