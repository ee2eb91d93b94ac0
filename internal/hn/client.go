// Package hn is the feed source: a client for the Hacker News search
// API plus the normalizer that filters its hits into well-formed
// articles.
package hn

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"slices"
	"strings"
	"time"

	"hnwatch/internal/domain"

	"github.com/hashicorp/golang-lru/v2/expirable"
	jsoniter "github.com/json-iterator/go"
)

const (
	searchMaxAttempts    = 2
	queryCacheMaxEntries = 32
	queryCacheTTL        = 5 * time.Minute
)

// ErrNetwork marks transport-level failures, as opposed to the API
// answering with a non-2xx status.
var ErrNetwork = errors.New("network failure")

// StatusError is a non-2xx response from the search API.
type StatusError struct {
	Status int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("unexpected HTTP status %d", e.Status)
}

type searchResponse struct {
	Hits []jsoniter.RawMessage `json:"hits"`
}

type Client struct {
	baseURL    string
	httpClient *http.Client
	queryCache *expirable.LRU[string, []domain.Article]
	log        *slog.Logger
}

func NewClient(baseURL string, timeout time.Duration, log *slog.Logger) *Client {
	return &Client{
		baseURL:    strings.TrimRight(strings.TrimSpace(baseURL), "/"),
		httpClient: &http.Client{Timeout: timeout},
		queryCache: expirable.NewLRU[string, []domain.Article](
			queryCacheMaxEntries,
			nil,
			queryCacheTTL,
		),
		log: log,
	}
}

// SearchByDate fetches the newest articles matching query, normalized
// and in API order (descending by date). Results are served from a
// short-lived per-query cache when fresh; transient failures are
// retried up to searchMaxAttempts total attempts.
func (c *Client) SearchByDate(ctx context.Context, query string) ([]domain.Article, error) {
	query = strings.TrimSpace(query)

	if articles, ok := c.queryCache.Get(query); ok {
		return slices.Clone(articles), nil
	}

	var (
		articles []domain.Article
		err      error
	)

	for attempt := 1; attempt <= searchMaxAttempts; attempt++ {
		articles, err = c.searchByDate(ctx, query)
		if err == nil {
			break
		}

		if ctx.Err() != nil {
			break
		}

		c.log.WarnContext(ctx, "Search attempt failed",
			"error", err,
			"query", query,
			"attempt", attempt,
			"maxAttempts", searchMaxAttempts)
	}
	if err != nil {
		return nil, fmt.Errorf("search by date (query = %q): %w", query, err)
	}

	c.queryCache.Add(query, slices.Clone(articles))

	return articles, nil
}

// SearchByTopics issues one search per topic sequentially and merges
// the results: duplicates collapse to the first-seen instance and the
// merged set is sorted descending by creation time, ties keeping input
// order.
func (c *Client) SearchByTopics(ctx context.Context, topics []string) ([]domain.Article, error) {
	var merged []domain.Article
	seen := make(map[string]struct{})

	for _, topic := range topics {
		articles, err := c.SearchByDate(ctx, topic)
		if err != nil {
			return nil, fmt.Errorf("search topic %q: %w", topic, err)
		}

		for _, article := range articles {
			if _, ok := seen[article.ObjectID]; ok {
				continue
			}

			seen[article.ObjectID] = struct{}{}
			merged = append(merged, article)
		}
	}

	slices.SortStableFunc(merged, func(a, b domain.Article) int {
		return b.CreatedAt.Compare(a.CreatedAt)
	})

	return merged, nil
}

// Invalidate drops the cached result for query so the next search hits
// the network. Explicit refreshes use this to bypass the freshness
// window.
func (c *Client) Invalidate(query string) {
	c.queryCache.Remove(strings.TrimSpace(query))
}

func (c *Client) searchByDate(ctx context.Context, query string) ([]domain.Article, error) {
	searchURL := fmt.Sprintf("%s/search_by_date?query=%s", c.baseURL, url.QueryEscape(query))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, searchURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrNetwork, err)
	}
	defer func() {
		if closeErr := resp.Body.Close(); closeErr != nil {
			c.log.WarnContext(ctx, "Failed to close response body",
				"error", closeErr,
				"query", query)
		}
	}()

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return nil, &StatusError{Status: resp.StatusCode}
	}

	var envelope searchResponse
	if err = json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}

	return Normalize(envelope.Hits), nil
}
