// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package scopus is a client for the Elsevier Scopus Search API.
package scopus

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"strconv"
	"time"

	"golang.org/x/time/rate"

	"github.com/pdiddy/papersearch/internal/httputil"
	"github.com/pdiddy/papersearch/pkg/types"
)

// Scopus endpoints. Declared as vars so tests can substitute an httptest
// server.
var (
	searchBase   = "https://api.elsevier.com/content/search/scopus"
	abstractBase = "https://api.elsevier.com/content/abstract/scopus_id/"
)

const (
	// MaxPageSize is the largest count Scopus accepts per request.
	MaxPageSize = 25

	// DefaultSort orders results by citation count, descending.
	DefaultSort = "-citedby-count"

	// DefaultTimeout applies when the configuration sets none.
	DefaultTimeout = 30 * time.Second

	// APIKeyEnv is the environment variable consulted when no key is configured.
	APIKeyEnv = "SCOPUS_API_KEY"

	apiKeyHeader = "X-ELS-APIKey"
)

// ErrMissingAPIKey is returned by New when no API key is configured. It is a
// configuration error and is never retried.
var ErrMissingAPIKey = errors.New("Scopus API key is required: set " + APIKeyEnv + " or pass an API key")

// Entry is one raw search result, exactly as decoded from the response.
type Entry map[string]any

// Response is the decoded body of a search request.
type Response struct {
	SearchResults SearchResults `json:"search-results"`
}

// SearchResults holds the pagination counters and the page of entries.
// Scopus encodes the counters as strings.
type SearchResults struct {
	TotalResults string  `json:"opensearch:totalResults"`
	StartIndex   string  `json:"opensearch:startIndex"`
	ItemsPerPage string  `json:"opensearch:itemsPerPage"`
	Entries      []Entry `json:"entry"`
}

// Total returns the provider-reported total, or 0 if it is missing or
// malformed.
func (r *Response) Total() int {
	n, err := strconv.Atoi(r.SearchResults.TotalResults)
	if err != nil {
		return 0
	}
	return n
}

// Client issues search requests. It is not safe for concurrent use; the
// CLI drives it from a single goroutine.
type Client struct {
	http    *http.Client
	apiKey  string
	sort    string
	ua      string
	limiter *rate.Limiter
}

// New creates a Client. The API key comes from cfg.APIKey, falling back to
// the SCOPUS_API_KEY environment variable. A nil client gets a default one
// with the configured timeout.
func New(cfg types.SearchConfig, client *http.Client) (*Client, error) {
	key := cfg.APIKey
	if key == "" {
		key = os.Getenv(APIKeyEnv)
	}
	if key == "" {
		return nil, ErrMissingAPIKey
	}
	if client == nil {
		client = httputil.NewClient(cfg.HTTPConfig, DefaultTimeout)
	}

	sort := cfg.Sort
	if sort == "" {
		sort = DefaultSort
	}

	limit := rate.Inf
	if cfg.PageInterval > 0 {
		limit = rate.Every(cfg.PageInterval)
	}

	return &Client{
		http:    client,
		apiKey:  key,
		sort:    sort,
		ua:      cfg.UserAgent,
		limiter: rate.NewLimiter(limit, 1),
	}, nil
}

// Search fetches one page of results. count is clamped to MaxPageSize. An
// empty sort uses the client default. Any non-2xx status is returned as an
// *httputil.StatusError.
func (c *Client) Search(ctx context.Context, query string, count, start int, sort string) (*Response, error) {
	if count > MaxPageSize {
		count = MaxPageSize
	}
	if sort == "" {
		sort = c.sort
	}

	params := url.Values{
		"query": {query},
		"count": {strconv.Itoa(count)},
		"start": {strconv.Itoa(start)},
		"sort":  {sort},
		"view":  {"COMPLETE"},
	}

	var out Response
	if err := c.get(ctx, searchBase+"?"+params.Encode(), &out); err != nil {
		return nil, fmt.Errorf("Scopus search: %w", err)
	}
	return &out, nil
}

// SearchAll pages through results until total entries are collected, a
// page comes back empty, or the provider-reported total is reached. It
// returns at most total entries.
func (c *Client) SearchAll(ctx context.Context, query string, total int) ([]Entry, error) {
	var all []Entry
	start := 0

	for len(all) < total {
		count := min(MaxPageSize, total-len(all))

		resp, err := c.Search(ctx, query, count, start, "")
		if err != nil {
			return nil, err
		}

		entries := resp.SearchResults.Entries
		// The empty page is the backstop when totals are misreported.
		if len(entries) == 0 || isErrorEntry(entries) {
			break
		}

		all = append(all, entries...)
		start += len(entries)

		if start >= resp.Total() {
			break
		}
	}

	if len(all) > total {
		all = all[:total]
	}
	return all, nil
}

// isErrorEntry detects the single placeholder entry Scopus returns for a
// query with no matches: [{"error": "Result set was empty"}].
func isErrorEntry(entries []Entry) bool {
	if len(entries) != 1 {
		return false
	}
	_, ok := entries[0]["error"]
	return ok
}

// Abstract retrieves the full abstract record for a Scopus ID.
func (c *Client) Abstract(ctx context.Context, scopusID string) (map[string]any, error) {
	params := url.Values{"view": {"FULL"}}
	var out map[string]any
	if err := c.get(ctx, abstractBase+url.PathEscape(scopusID)+"?"+params.Encode(), &out); err != nil {
		return nil, fmt.Errorf("Scopus abstract %s: %w", scopusID, err)
	}
	return out, nil
}

func (c *Client) get(ctx context.Context, reqURL string, out any) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set(apiKeyHeader, c.apiKey)
	req.Header.Set("Accept", "application/json")
	if c.ua != "" {
		req.Header.Set("User-Agent", c.ua)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if err := httputil.CheckStatus(resp); err != nil {
		return err
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("parsing response: %w", err)
	}
	return nil
}
