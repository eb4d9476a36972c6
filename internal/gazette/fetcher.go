package gazette

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bohenriksen2020/insolvency-scraper/pkg/logger"
)

// ErrUpstreamUnavailable is returned by FetchDay when every search
// strategy has failed
var ErrUpstreamUnavailable = errors.New("gazette search unavailable for all strategies")

// SearchResult holds all listing rows for one day
type SearchResult struct {
	Results    []RawNotice `json:"results"`
	TotalCount int         `json:"totalCount"`
}

// Fetcher retrieves a full day of gazette listings, working through the
// strategy ladder until one strategy yields a complete page set
type Fetcher struct {
	client     *Client
	strategies []Strategy
	pageDelay  time.Duration
	logger     *logger.Logger
}

// NewFetcher creates a fetcher using the default strategy ladder
func NewFetcher(client *Client, log *logger.Logger, pageDelay time.Duration) *Fetcher {
	return &Fetcher{
		client:     client,
		strategies: DefaultStrategies(),
		pageDelay:  pageDelay,
		logger:     log,
	}
}

// FetchDay fetches every listing row published on the given ISO date.
// The first strategy whose pages all succeed wins; a server fault or a
// transport failure moves on to the next strategy, while any other
// non-success status is reported up immediately.
func (f *Fetcher) FetchDay(ctx context.Context, dateISO string) (*SearchResult, error) {
	var lastErr error

	for _, strategy := range f.strategies {
		result, err := f.drainStrategy(ctx, dateISO, strategy)
		if err == nil {
			f.logger.Info("Gazette search succeeded",
				"date", dateISO,
				"strategy", strategy.Name,
				"results", result.TotalCount,
			)
			return result, nil
		}

		var statusErr *StatusError
		if errors.As(err, &statusErr) {
			return nil, err
		}

		f.logger.Warn("Gazette search strategy failed",
			"date", dateISO,
			"strategy", strategy.Name,
			"error", err,
		)
		lastErr = err
	}

	return nil, fmt.Errorf("%w: %v", ErrUpstreamUnavailable, lastErr)
}

// FetchDocument retrieves the full notice document for one listing row
func (f *Fetcher) FetchDocument(ctx context.Context, messageNumber string) (*NoticeDocument, error) {
	return f.client.FetchDocument(ctx, messageNumber)
}

// drainStrategy fetches page 0 and then every remaining page reported by
// the first response, all with the same strategy
func (f *Fetcher) drainStrategy(ctx context.Context, dateISO string, strategy Strategy) (*SearchResult, error) {
	first, err := f.client.searchPage(ctx, dateISO, strategy, 0)
	if err != nil {
		return nil, err
	}

	pageCount := first.PageCount
	if pageCount < 1 {
		pageCount = 1
	}

	results := make([]RawNotice, 0, len(first.Results)*pageCount)
	results = append(results, first.Results...)

	for page := 1; page < pageCount; page++ {
		time.Sleep(f.pageDelay)

		next, err := f.client.searchPage(ctx, dateISO, strategy, page)
		if err != nil {
			return nil, err
		}
		results = append(results, next.Results...)
	}

	return &SearchResult{Results: results, TotalCount: len(results)}, nil
}
