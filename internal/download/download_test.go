// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package download

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/papersearch/pkg/types"
)

func fakePDF(size int) []byte {
	b := bytes.Repeat([]byte("x"), size)
	copy(b, "%PDF-1.7\n")
	return b
}

func paper(title, doi string) types.Paper {
	return types.Paper{ID: "1", Title: title, DOI: types.StringPtr(doi), Keywords: []string{}}
}

func TestSanitizeFilename(t *testing.T) {
	tests := []struct {
		name  string
		title string
		max   int
		want  string
	}{
		{"plain", "Deep Learning", 100, "Deep_Learning"},
		{"illegal chars", `What? A "Survey": of <Graphs>/Trees|*`, 100, "What_A_Survey_of_GraphsTrees"},
		{"punctuation dropped", "Hello, World! (2024)", 100, "Hello_World_2024"},
		{"whitespace collapsed", "a \t\n  b", 100, "a_b"},
		{"dots and dashes kept", "v1.2 - state-of-the-art", 100, "v1.2_-_state-of-the-art"},
		{"unicode letters kept", "Über naïve Ansätze", 100, "Über_naïve_Ansätze"},
		{"truncated", strings.Repeat("a", 150), 100, strings.Repeat("a", 100)},
		{"trailing underscore trimmed", "abc  def", 4, "abc"},
		{"leading underscore trimmed", "  abc", 100, "abc"},
		{"all illegal", `???`, 100, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, SanitizeFilename(tt.title, tt.max))
		})
	}
}

func TestSanitizeFilenameDeterministic(t *testing.T) {
	title := "Graph Neural Networks: A Review of Methods and Applications"
	assert.Equal(t, SanitizeFilename(title, 100), SanitizeFilename(title, 100))
}

// pdfServer serves body with contentType at /pdf and counts requests.
func pdfServer(t *testing.T, contentType string, body []byte) (*httptest.Server, *int32) {
	t.Helper()
	var hits int32
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		atomic.AddInt32(&hits, 1)
		w.Header().Set("Content-Type", contentType)
		w.Write(body)
	}))
	t.Cleanup(ts.Close)
	return ts, &hits
}

func newTestDownloader(t *testing.T, sources ...Source) *Downloader {
	t.Helper()
	return New(types.DownloadConfig{OutputDir: t.TempDir()}, nil, sources, zerolog.Nop())
}

func dirEntries(t *testing.T, dir string) []string {
	t.Helper()
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	var names []string
	for _, e := range entries {
		names = append(names, e.Name())
	}
	return names
}

func TestDownloadPDFMagicOverridesContentType(t *testing.T) {
	ts, _ := pdfServer(t, "text/html", fakePDF(5000))
	d := newTestDownloader(t)
	dest := filepath.Join(d.dir, "a.pdf")

	require.NoError(t, d.DownloadPDF(context.Background(), Location{URL: ts.URL}, dest))

	data, err := os.ReadFile(dest)
	require.NoError(t, err)
	assert.Len(t, data, 5000)
	assert.True(t, bytes.HasPrefix(data, pdfMagic))
}

func TestDownloadPDFRejectsHTML(t *testing.T) {
	ts, _ := pdfServer(t, "text/html", []byte(strings.Repeat("<html>", 500)))
	d := newTestDownloader(t)
	dest := filepath.Join(d.dir, "a.pdf")

	err := d.DownloadPDF(context.Background(), Location{URL: ts.URL}, dest)
	assert.ErrorIs(t, err, ErrNotPDF)
	assert.NoFileExists(t, dest)
	assert.Empty(t, dirEntries(t, d.dir))
}

func TestDownloadPDFRejectsSmallFile(t *testing.T) {
	ts, _ := pdfServer(t, "application/pdf", fakePDF(999))
	d := newTestDownloader(t)
	dest := filepath.Join(d.dir, "a.pdf")

	err := d.DownloadPDF(context.Background(), Location{URL: ts.URL}, dest)
	assert.ErrorIs(t, err, ErrTooSmall)
	assert.NoFileExists(t, dest)
	assert.Empty(t, dirEntries(t, d.dir))
}

func TestDownloadPDFTrustsPDFContentType(t *testing.T) {
	ts, _ := pdfServer(t, "application/octet-stream", bytes.Repeat([]byte("z"), 2000))
	d := newTestDownloader(t)
	dest := filepath.Join(d.dir, "a.pdf")

	require.NoError(t, d.DownloadPDF(context.Background(), Location{URL: ts.URL}, dest))
	assert.FileExists(t, dest)
}

func TestDownloadPDFHTTPError(t *testing.T) {
	ts := httptest.NewServer(http.NotFoundHandler())
	defer ts.Close()
	d := newTestDownloader(t)
	dest := filepath.Join(d.dir, "a.pdf")

	assert.Error(t, d.DownloadPDF(context.Background(), Location{URL: ts.URL}, dest))
	assert.NoFileExists(t, dest)
}

func TestDownloadPDFSendsLocationHeaders(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "k", r.Header.Get("X-ELS-APIKey"))
		assert.Equal(t, "papersearch/test", r.Header.Get("User-Agent"))
		w.Header().Set("Content-Type", "application/pdf")
		w.Write(fakePDF(2000))
	}))
	defer ts.Close()

	d := New(types.DownloadConfig{
		OutputDir:  t.TempDir(),
		HTTPConfig: types.HTTPConfig{UserAgent: "papersearch/test"},
	}, nil, nil, zerolog.Nop())

	h := http.Header{}
	h.Set("X-ELS-APIKey", "k")
	require.NoError(t, d.DownloadPDF(context.Background(), Location{URL: ts.URL, Header: h}, filepath.Join(d.dir, "a.pdf")))
}

// staticSource always returns loc.
type staticSource struct {
	loc   *Location
	calls int
}

func (s *staticSource) Name() string { return "static" }

func (s *staticSource) Locate(context.Context, string) *Location {
	s.calls++
	return s.loc
}

func TestDownloadPaperNoDOI(t *testing.T) {
	src := &staticSource{}
	d := newTestDownloader(t, src)

	r := d.DownloadPaper(context.Background(), paper("Title", ""))
	assert.False(t, r.Success)
	assert.ErrorIs(t, r.Err, ErrNoDOI)
	assert.Equal(t, "No DOI available", r.Error)
	assert.Zero(t, src.calls)
}

func TestDownloadPaperCached(t *testing.T) {
	ts, hits := pdfServer(t, "application/pdf", fakePDF(4000))
	src := &staticSource{loc: &Location{URL: ts.URL, Tag: "unpaywall:repository"}}
	d := newTestDownloader(t, src)
	p := paper("Cached Paper", "10.1/x")

	first := d.DownloadPaper(context.Background(), p)
	require.True(t, first.Success)
	assert.Equal(t, "unpaywall:repository", first.Source)
	assert.Equal(t, filepath.Join(d.dir, "Cached_Paper.pdf"), first.Path)

	second := d.DownloadPaper(context.Background(), p)
	require.True(t, second.Success)
	assert.Equal(t, types.SourceCached, second.Source)
	assert.Equal(t, first.Path, second.Path)

	assert.EqualValues(t, 1, atomic.LoadInt32(hits))
	assert.Equal(t, 1, src.calls)
}

func TestDownloadPaperNotAvailable(t *testing.T) {
	ts, _ := pdfServer(t, "text/html", []byte("<html>paywall</html>"))
	tests := []struct {
		name string
		src  Source
	}{
		{"no location", &staticSource{}},
		{"download fails", &staticSource{loc: &Location{URL: ts.URL}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := newTestDownloader(t, tt.src)
			r := d.DownloadPaper(context.Background(), paper("T", "10.1/x"))
			assert.False(t, r.Success)
			assert.ErrorIs(t, r.Err, ErrNotAvailable)
			assert.Equal(t, "PDF not available via open access", r.Error)
			assert.Empty(t, dirEntries(t, d.dir))
		})
	}
}

func TestDownloadPaperFallsThroughSources(t *testing.T) {
	ts, _ := pdfServer(t, "application/pdf", fakePDF(2000))
	first := &staticSource{}
	second := &staticSource{loc: &Location{URL: ts.URL, Tag: "elsevier"}}
	d := newTestDownloader(t, first, second)

	r := d.DownloadPaper(context.Background(), paper("T", "10.1016/x"))
	require.True(t, r.Success)
	assert.Equal(t, "elsevier", r.Source)
	assert.Equal(t, 1, first.calls)
}

func TestPathFallsBackToDOI(t *testing.T) {
	d := newTestDownloader(t)
	p := paper("???", "10.1000/abc")
	assert.Equal(t, filepath.Join(d.dir, "10.1000_abc.pdf"), d.Path(p))
}

func TestDownloadPapersDelay(t *testing.T) {
	ts, _ := pdfServer(t, "application/pdf", fakePDF(2000))
	d := newTestDownloader(t, &staticSource{loc: &Location{URL: ts.URL, Tag: "unpaywall:publisher"}})

	cached := paper("Already Here", "10.1/a")
	require.NoError(t, os.WriteFile(d.Path(cached), fakePDF(2000), 0o644))

	var sleeps []time.Duration
	d.sleep = func(_ context.Context, dur time.Duration) error {
		sleeps = append(sleeps, dur)
		return nil
	}

	var progress []string
	papers := []types.Paper{cached, paper("Fresh One", "10.1/b"), paper("No DOI", ""), paper("Fresh Two", "10.1/c")}
	results := d.DownloadPapers(context.Background(), papers, 2*time.Second, func(cur, total int, r types.DownloadResult) {
		progress = append(progress, fmt.Sprintf("%d/%d %s", cur, total, r.Paper.Title))
	})

	require.Len(t, results, 4)
	assert.Equal(t, types.SourceCached, results[0].Source)
	assert.True(t, results[1].Success)
	assert.False(t, results[2].Success)
	assert.True(t, results[3].Success)

	// cached: no sleep; fresh and failed: sleep; last: no sleep.
	assert.Equal(t, []time.Duration{2 * time.Second, 2 * time.Second}, sleeps)
	assert.Equal(t, []string{"1/4 Already Here", "2/4 Fresh One", "3/4 No DOI", "4/4 Fresh Two"}, progress)
}

func TestDownloadPapersCancelled(t *testing.T) {
	d := newTestDownloader(t, &staticSource{})
	ctx, cancel := context.WithCancel(context.Background())
	d.sleep = func(context.Context, time.Duration) error {
		cancel()
		return context.Canceled
	}

	papers := []types.Paper{paper("A", "10.1/a"), paper("B", "10.1/b"), paper("C", "10.1/c")}
	results := d.DownloadPapers(ctx, papers, time.Second, nil)
	assert.Len(t, results, 1)
}

func TestStats(t *testing.T) {
	empty := Stats(nil)
	assert.Equal(t, 0, empty.Total)
	assert.Zero(t, empty.SuccessRate)

	results := []types.DownloadResult{
		{Success: true, Source: "unpaywall"},
		{Success: true, Source: "unpaywall"},
		{Success: true, Source: types.SourceCached},
		{Error: ErrNotAvailable.Error(), Err: ErrNotAvailable},
	}
	s := Stats(results)

	assert.Equal(t, 4, s.Total)
	assert.Equal(t, 3, s.Successful)
	assert.Equal(t, 1, s.Failed)
	assert.InDelta(t, 75.0, s.SuccessRate, 1e-9)
	assert.Equal(t, map[string]int{"unpaywall": 2, "cached": 1}, s.Sources)
	assert.Equal(t, map[string]int{"PDF not available via open access": 1}, s.Errors)
}

func TestStatsUnknownLabels(t *testing.T) {
	s := Stats([]types.DownloadResult{{Success: true}, {}})
	assert.Equal(t, map[string]int{"unknown": 1}, s.Sources)
	assert.Equal(t, map[string]int{"unknown": 1}, s.Errors)
}
