package gazette

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"

	"github.com/bohenriksen2020/insolvency-scraper/internal/config"
)

// RawNotice is one listing row from the gazette search endpoint
type RawNotice struct {
	MessageNumber   string `json:"messageNumber"`
	PublicationDate string `json:"publicationDate"`
	SectionName     string `json:"sectionName"`
	MessageTypeName string `json:"messageTypeName"`
	Title           string `json:"title"`
}

type searchResponse struct {
	PageCount int         `json:"pageCount"`
	Results   []RawNotice `json:"results"`
}

// StatusError reports a non-success HTTP status from the gazette API
type StatusError struct {
	StatusCode int
	URL        string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("gazette returned status %d for %s", e.StatusCode, e.URL)
}

// serverFault reports a server-side fault (5xx) which the fetcher treats
// as "abandon this strategy, try the next"
type serverFault struct {
	StatusCode int
}

func (e *serverFault) Error() string {
	return fmt.Sprintf("gazette server fault (status %d)", e.StatusCode)
}

// Client is an HTTP client for the gazette (Statstidende) API
type Client struct {
	baseURL   string
	userAgent string
	http      *http.Client
}

// NewClient creates a gazette client from configuration
func NewClient(cfg *config.Config) *Client {
	return &Client{
		baseURL:   cfg.GazetteBaseURL,
		userAgent: cfg.UserAgent,
		http:      &http.Client{Timeout: cfg.HTTPTimeout},
	}
}

func (c *Client) setHeaders(req *http.Request) {
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", "application/json, text/plain, */*")
	req.Header.Set("Accept-Language", "da-DK,da;q=0.9,en;q=0.8")
	req.Header.Set("Referer", c.baseURL+"/messages")
	req.Header.Set("X-Requested-With", "XMLHttpRequest")
}

// searchPage fetches one page of search results for a date using the
// given strategy's parameters
func (c *Client) searchPage(ctx context.Context, dateISO string, strategy Strategy, page int) (*searchResponse, error) {
	query := strategy.queryParams(dateISO, page)
	endpoint := fmt.Sprintf("%s/api/messagesearch?%s", c.baseURL, query.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build search request: %w", err)
	}
	c.setHeaders(req)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("search request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 500 {
		return nil, &serverFault{StatusCode: resp.StatusCode}
	}
	if resp.StatusCode != http.StatusOK {
		return nil, &StatusError{StatusCode: resp.StatusCode, URL: endpoint}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read search response: %w", err)
	}

	var parsed searchResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, fmt.Errorf("failed to decode search response: %w", err)
	}
	return &parsed, nil
}

// FetchDocument fetches and normalizes the full notice document for one
// message number
func (c *Client) FetchDocument(ctx context.Context, messageNumber string) (*NoticeDocument, error) {
	endpoint := fmt.Sprintf("%s/api/message/%s", c.baseURL, url.PathEscape(messageNumber))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build message request: %w", err)
	}
	c.setHeaders(req)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("message request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, &StatusError{StatusCode: resp.StatusCode, URL: endpoint}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read message response: %w", err)
	}

	return ParseNoticeDocument(body)
}
