package registry

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strings"

	"github.com/bohenriksen2020/insolvency-scraper/internal/config"
	"github.com/bohenriksen2020/insolvency-scraper/internal/xbrl"
	"github.com/bohenriksen2020/insolvency-scraper/pkg/logger"
)

// insolventStatuses are registry statuses indicating the company is in or
// after bankruptcy proceedings
var insolventStatuses = map[string]bool{
	"UNDERKONKURS":         true,
	"OPLØSTEFTERKONKURS":   true,
	"UNDERTVANGSOPLØSNING": true,
}

// CompanyPayload is the enrichment snapshot returned by the registry
// boundary
type CompanyPayload struct {
	RegistryID    string            `json:"registry_id"`
	Name          string            `json:"name"`
	Status        string            `json:"status"`
	StreetName    string            `json:"street_name"`
	PostalCode    string            `json:"postal_code"`
	City          string            `json:"city"`
	EmployeeCount int               `json:"employee_count"`
	Assets        []xbrl.AssetField `json:"assets"`
	Raw           string            `json:"-"`
}

// Client is an HTTP client for the company registry (CVR) gateway
type Client struct {
	baseURL   string
	userAgent string
	http      *http.Client
	logger    *logger.Logger
}

// NewClient creates a registry client from configuration
func NewClient(cfg *config.Config, log *logger.Logger) *Client {
	return &Client{
		baseURL:   cfg.RegistryBaseURL,
		userAgent: cfg.UserAgent,
		http:      &http.Client{Timeout: cfg.HTTPTimeout},
		logger:    log,
	}
}

type searchEntity struct {
	Cvr    json.Number `json:"cvr"`
	Name   string      `json:"senesteNavn"`
	Status string      `json:"status"`
}

type searchResponse struct {
	Entities []searchEntity `json:"enheder"`
}

type companyData struct {
	Metadata struct {
		Name      string `json:"navn"`
		Status    string `json:"status"`
		Employees int    `json:"antalAnsatte"`
	} `json:"virksomhedMetadata"`
	Address struct {
		Street     string      `json:"vejnavn"`
		PostalCode json.Number `json:"postnummer"`
		City       string      `json:"postBy"`
	} `json:"beliggenhedsadresse"`
	Statements []statementPeriod `json:"sammenhaengendeRegnskaber"`
}

type statementPeriod struct {
	PeriodTo string `json:"regnskabsperiodeTil"`
	Reports  []struct {
		DocumentRefs []struct {
			ContentType string `json:"indholdstype"`
			DocumentID  string `json:"dokumentId"`
		} `json:"dokumentreferencer"`
	} `json:"regnskaber"`
}

// FetchCompanyByName resolves a company name to its registry snapshot,
// including parsed assets from the newest financial statement. Returns
// (nil, nil) when no matching company is found.
func (c *Client) FetchCompanyByName(ctx context.Context, name string) (*CompanyPayload, error) {
	registryID, err := c.searchCompany(ctx, name)
	if err != nil {
		return nil, err
	}
	if registryID == "" {
		return nil, nil
	}

	raw, data, err := c.fetchCompanyData(ctx, registryID)
	if err != nil {
		return nil, err
	}

	payload := &CompanyPayload{
		RegistryID:    registryID,
		Name:          data.Metadata.Name,
		Status:        data.Metadata.Status,
		StreetName:    data.Address.Street,
		PostalCode:    data.Address.PostalCode.String(),
		City:          data.Address.City,
		EmployeeCount: data.Metadata.Employees,
		Raw:           string(raw),
	}

	statement := c.downloadLatestStatement(ctx, data.Statements, registryID)
	if statement != nil {
		assets, err := xbrl.ExtractAssets(statement)
		if err != nil {
			if errors.Is(err, xbrl.ErrMalformedDocument) {
				c.logger.Warn("Skipping malformed financial statement",
					"registry_id", registryID,
					"error", err,
				)
			} else {
				return nil, err
			}
		}
		payload.Assets = assets
	}

	return payload, nil
}

// searchCompany runs a free-text search and returns the registry id of
// the best hit: the first insolvency-flagged entity, falling back to the
// first entity that carries a registry id at all
func (c *Client) searchCompany(ctx context.Context, name string) (string, error) {
	body, err := json.Marshal(map[string]interface{}{
		"fritekstCommand": map[string]interface{}{
			"soegOrd":   name,
			"sideIndex": "0",
			"size":      []string{"10"},
		},
	})
	if err != nil {
		return "", fmt.Errorf("failed to build search body: %w", err)
	}

	endpoint := c.baseURL + "/gateway/soeg/fritekst"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("failed to build search request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", c.userAgent)

	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("registry search failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("registry search returned status %d", resp.StatusCode)
	}

	var parsed searchResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return "", fmt.Errorf("failed to decode registry search response: %w", err)
	}

	fallback := ""
	for _, entity := range parsed.Entities {
		id := entity.Cvr.String()
		if id == "" {
			continue
		}
		if insolventStatuses[strings.ToUpper(entity.Status)] {
			return id, nil
		}
		if fallback == "" {
			fallback = id
		}
	}
	return fallback, nil
}

// fetchCompanyData fetches the full company record for a registry id
func (c *Client) fetchCompanyData(ctx context.Context, registryID string) ([]byte, *companyData, error) {
	endpoint := fmt.Sprintf("%s/gateway/virksomhed/hentVirksomhed?cvrnummer=%s&locale=da", c.baseURL, registryID)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to build company request: %w", err)
	}
	req.Header.Set("User-Agent", c.userAgent)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, nil, fmt.Errorf("company fetch failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, nil, fmt.Errorf("company fetch returned status %d", resp.StatusCode)
	}

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read company response: %w", err)
	}

	var data companyData
	if err := json.Unmarshal(raw, &data); err != nil {
		return nil, nil, fmt.Errorf("failed to decode company response: %w", err)
	}
	return raw, &data, nil
}

// downloadLatestStatement locates the newest financial statement with an
// XML document reference and downloads it, trying the gateway URL first
// and the public document URL second. Returns nil when no statement is
// available or every download attempt fails.
func (c *Client) downloadLatestStatement(ctx context.Context, statements []statementPeriod, registryID string) []byte {
	if len(statements) == 0 {
		return nil
	}

	sorted := make([]statementPeriod, len(statements))
	copy(sorted, statements)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].PeriodTo > sorted[j].PeriodTo
	})

	latest := sorted[0]
	if len(latest.Reports) == 0 {
		return nil
	}

	for _, ref := range latest.Reports[0].DocumentRefs {
		if !strings.EqualFold(ref.ContentType, "XML") {
			continue
		}
		urls := []string{
			fmt.Sprintf("%s/gateway/dokument/downloadDokumentForVirksomhed?dokumentId=%s&cvrNummer=%s", c.baseURL, ref.DocumentID, registryID),
			fmt.Sprintf("%s/dokument/%s", c.baseURL, ref.DocumentID),
		}
		for _, u := range urls {
			content, err := c.downloadDocument(ctx, u)
			if err != nil {
				c.logger.Debug("Statement download attempt failed", "url", u, "error", err)
				continue
			}
			return content
		}
	}
	return nil
}

func (c *Client) downloadDocument(ctx context.Context, endpoint string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", c.userAgent)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("document returned status %d", resp.StatusCode)
	}
	if !strings.Contains(strings.ToLower(resp.Header.Get("Content-Type")), "xml") {
		return nil, fmt.Errorf("document content type %q is not xml", resp.Header.Get("Content-Type"))
	}
	return io.ReadAll(resp.Body)
}
