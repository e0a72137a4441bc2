// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package scopus

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/papersearch/internal/httputil"
	"github.com/pdiddy/papersearch/pkg/types"
)

// pageServer serves pages of the given sizes in order, reporting total as
// opensearch:totalResults. It records every request's count parameter.
func pageServer(t *testing.T, total int, pages []int) (*httptest.Server, *[]int) {
	t.Helper()
	var calls int32
	var counts []int
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "test-key", r.Header.Get("X-ELS-APIKey"))
		assert.Equal(t, "application/json", r.Header.Get("Accept"))
		assert.Equal(t, "COMPLETE", r.URL.Query().Get("view"))

		n, _ := strconv.Atoi(r.URL.Query().Get("count"))
		counts = append(counts, n)

		i := int(atomic.AddInt32(&calls, 1)) - 1
		size := 0
		if i < len(pages) {
			size = pages[i]
		}
		start, _ := strconv.Atoi(r.URL.Query().Get("start"))
		entries := make([]Entry, size)
		for j := range entries {
			entries[j] = Entry{"dc:identifier": fmt.Sprintf("SCOPUS_ID:%d", start+j)}
		}
		json.NewEncoder(w).Encode(Response{SearchResults: SearchResults{
			TotalResults: strconv.Itoa(total),
			Entries:      entries,
		}})
	}))
	t.Cleanup(ts.Close)

	orig := searchBase
	searchBase = ts.URL
	t.Cleanup(func() { searchBase = orig })

	return ts, &counts
}

func newTestClient(t *testing.T, ts *httptest.Server) *Client {
	t.Helper()
	c, err := New(types.SearchConfig{APIKey: "test-key"}, ts.Client())
	require.NoError(t, err)
	return c
}

func TestSearchAllStopsOnEmptyPage(t *testing.T) {
	ts, counts := pageServer(t, 100, []int{25, 25, 10, 0})
	c := newTestClient(t, ts)

	got, err := c.SearchAll(context.Background(), "q", 100)
	require.NoError(t, err)

	assert.Len(t, got, 60)
	assert.Len(t, *counts, 4)
	assert.Equal(t, "SCOPUS_ID:59", got[59]["dc:identifier"])
}

func TestSearchAllStopsAtProviderTotal(t *testing.T) {
	ts, counts := pageServer(t, 30, []int{25, 5, 25})
	c := newTestClient(t, ts)

	got, err := c.SearchAll(context.Background(), "q", 100)
	require.NoError(t, err)

	assert.Len(t, got, 30)
	assert.Len(t, *counts, 2)
}

func TestSearchAllRequestsOnlyRemainder(t *testing.T) {
	ts, counts := pageServer(t, 1000, []int{25, 5})
	c := newTestClient(t, ts)

	got, err := c.SearchAll(context.Background(), "q", 30)
	require.NoError(t, err)

	assert.Len(t, got, 30)
	assert.Equal(t, []int{25, 5}, *counts)
}

func TestSearchAllTruncatesOversizedPage(t *testing.T) {
	ts, _ := pageServer(t, 1000, []int{25})
	c := newTestClient(t, ts)

	got, err := c.SearchAll(context.Background(), "q", 10)
	require.NoError(t, err)
	assert.Len(t, got, 10)
}

func TestSearchAllErrorEntry(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, `{"search-results":{"opensearch:totalResults":"0","entry":[{"@_fa":"true","error":"Result set was empty"}]}}`)
	}))
	defer ts.Close()
	orig := searchBase
	searchBase = ts.URL
	defer func() { searchBase = orig }()

	got, err := newTestClient(t, ts).SearchAll(context.Background(), "q", 10)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestSearchClampsCount(t *testing.T) {
	ts, counts := pageServer(t, 100, []int{25})
	c := newTestClient(t, ts)

	_, err := c.Search(context.Background(), "q", 100, 0, "")
	require.NoError(t, err)
	assert.Equal(t, []int{MaxPageSize}, *counts)
}

func TestSearchSortDefault(t *testing.T) {
	var sort string
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sort = r.URL.Query().Get("sort")
		fmt.Fprint(w, `{"search-results":{"opensearch:totalResults":"0","entry":[]}}`)
	}))
	defer ts.Close()
	orig := searchBase
	searchBase = ts.URL
	defer func() { searchBase = orig }()

	c := newTestClient(t, ts)
	_, err := c.Search(context.Background(), "q", 5, 0, "")
	require.NoError(t, err)
	assert.Equal(t, DefaultSort, sort)

	_, err = c.Search(context.Background(), "q", 5, 0, "pubyear")
	require.NoError(t, err)
	assert.Equal(t, "pubyear", sort)
}

func TestSearchHTTPError(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "quota exceeded", http.StatusTooManyRequests)
	}))
	defer ts.Close()
	orig := searchBase
	searchBase = ts.URL
	defer func() { searchBase = orig }()

	_, err := newTestClient(t, ts).SearchAll(context.Background(), "q", 10)
	require.Error(t, err)

	var se *httputil.StatusError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, http.StatusTooManyRequests, se.StatusCode)
}

func TestNewMissingAPIKey(t *testing.T) {
	t.Setenv(APIKeyEnv, "")
	_, err := New(types.SearchConfig{}, nil)
	assert.ErrorIs(t, err, ErrMissingAPIKey)
}

func TestNewAPIKeyFromEnv(t *testing.T) {
	t.Setenv(APIKeyEnv, "env-key")
	c, err := New(types.SearchConfig{}, nil)
	require.NoError(t, err)
	assert.Equal(t, "env-key", c.apiKey)
	assert.Equal(t, DefaultTimeout, c.http.Timeout)
}

func TestNewConfiguredTimeout(t *testing.T) {
	c, err := New(types.SearchConfig{
		APIKey:     "k",
		HTTPConfig: types.HTTPConfig{Timeout: 5 * time.Second},
	}, nil)
	require.NoError(t, err)
	assert.Equal(t, 5*time.Second, c.http.Timeout)
}

func TestAbstract(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/85012345678", r.URL.Path)
		assert.Equal(t, "FULL", r.URL.Query().Get("view"))
		fmt.Fprint(w, `{"abstracts-retrieval-response":{"coredata":{"dc:title":"T"}}}`)
	}))
	defer ts.Close()
	orig := abstractBase
	abstractBase = ts.URL + "/"
	defer func() { abstractBase = orig }()

	got, err := newTestClient(t, ts).Abstract(context.Background(), "85012345678")
	require.NoError(t, err)
	assert.Contains(t, got, "abstracts-retrieval-response")
}

func TestSearchRespectsCancelledContext(t *testing.T) {
	ts, _ := pageServer(t, 100, []int{25})
	c := newTestClient(t, ts)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := c.SearchAll(ctx, "q", 10)
	assert.Error(t, err)
}
