package lawyers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"

	"github.com/bohenriksen2020/insolvency-scraper/internal/config"
	"github.com/bohenriksen2020/insolvency-scraper/pkg/logger"
)

// Firm is the firm sub-object of a directory profile
type Firm struct {
	Name       string `json:"name"`
	City       string `json:"city"`
	Email      string `json:"email"`
	Phone      string `json:"phone"`
	RegistryID string `json:"cvr"`
}

// Profile is one lawyer-directory entry
type Profile struct {
	Name  string `json:"name"`
	Email string `json:"email"`
	Firm  Firm   `json:"firm"`
}

// Client is an HTTP client for the lawyer directory service
type Client struct {
	baseURL   string
	userAgent string
	http      *http.Client
	logger    *logger.Logger
}

// NewClient creates a lawyer directory client from configuration
func NewClient(cfg *config.Config, log *logger.Logger) *Client {
	return &Client{
		baseURL:   cfg.LawyerDirectoryURL,
		userAgent: cfg.UserAgent,
		http:      &http.Client{Timeout: cfg.HTTPTimeout},
		logger:    log,
	}
}

// FetchProfiles looks up directory profiles by lawyer name. An unknown
// name yields an empty slice, not an error.
func (c *Client) FetchProfiles(ctx context.Context, name string) ([]Profile, error) {
	if name == "" {
		return nil, nil
	}

	endpoint := fmt.Sprintf("%s/lawyers?name=%s", c.baseURL, url.QueryEscape(name))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build directory request: %w", err)
	}
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("directory request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, nil
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("directory returned status %d", resp.StatusCode)
	}

	var profiles []Profile
	if err := json.NewDecoder(resp.Body).Decode(&profiles); err != nil {
		return nil, fmt.Errorf("failed to decode directory response: %w", err)
	}
	return profiles, nil
}
