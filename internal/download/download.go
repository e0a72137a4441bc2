// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package download resolves open-access PDFs for papers by DOI and saves
// them under a download directory.
package download

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/pdiddy/papersearch/internal/httputil"
	"github.com/pdiddy/papersearch/pkg/types"
)

const (
	// MinPDFSize is the smallest file kept. Anything shorter is taken to be
	// an error page served with a PDF content type.
	MinPDFSize = 1000

	// MaxFilenameLength bounds sanitized titles, in runes.
	MaxFilenameLength = 100

	// DefaultTimeout applies when the configuration sets none.
	DefaultTimeout = 60 * time.Second
)

var pdfMagic = []byte("%PDF")

// Failure kinds. The Error strings double as the DownloadResult.Error
// messages shown in summaries.
var (
	ErrNoDOI        = errors.New("No DOI available")
	ErrNotAvailable = errors.New("PDF not available via open access")
	ErrNotPDF       = errors.New("response is not a PDF")
	ErrTooSmall     = errors.New("downloaded file too small to be a PDF")
)

var (
	illegalChars = regexp.MustCompile(`[<>:"/\\|?*]`)
	whitespace   = regexp.MustCompile(`[\s\p{Z}]+`)
	nonWord      = regexp.MustCompile(`[^\p{L}\p{N}_\-.]`)
)

// SanitizeFilename turns a title into a filename stem: characters illegal
// on common filesystems are removed, whitespace runs become underscores,
// any other non-word character is dropped, and the result is truncated to
// maxLen runes and trimmed of underscores. Distinct titles can map to the
// same stem.
func SanitizeFilename(title string, maxLen int) string {
	if maxLen <= 0 {
		maxLen = MaxFilenameLength
	}
	s := illegalChars.ReplaceAllString(title, "")
	s = whitespace.ReplaceAllString(s, "_")
	s = nonWord.ReplaceAllString(s, "")

	if r := []rune(s); len(r) > maxLen {
		s = string(r[:maxLen])
	}
	return strings.Trim(s, "_")
}

// ProgressFunc is called after each attempt in a batch with the 1-based
// position, the batch size, and the outcome.
type ProgressFunc func(current, total int, result types.DownloadResult)

// Downloader fetches PDFs into a directory. It is used from one goroutine.
type Downloader struct {
	client    *http.Client
	dir       string
	sources   []Source
	userAgent string
	log       zerolog.Logger

	// sleep is replaced in tests.
	sleep func(ctx context.Context, d time.Duration) error
}

// New creates a Downloader writing to cfg.OutputDir. A nil client gets a
// default one with the configured timeout.
func New(cfg types.DownloadConfig, client *http.Client, sources []Source, log zerolog.Logger) *Downloader {
	if client == nil {
		client = httputil.NewClient(cfg.HTTPConfig, DefaultTimeout)
	}
	return &Downloader{
		client:    client,
		dir:       cfg.OutputDir,
		sources:   sources,
		userAgent: cfg.UserAgent,
		log:       log,
		sleep:     httputil.Sleep,
	}
}

// Path returns where the PDF for p is stored.
func (d *Downloader) Path(p types.Paper) string {
	stem := SanitizeFilename(p.Title, MaxFilenameLength)
	if stem == "" {
		stem = SanitizeFilename(strings.ReplaceAll(p.DOIValue(), "/", "_"), MaxFilenameLength)
	}
	if stem == "" {
		stem = "scopus_" + SanitizeFilename(p.ID, MaxFilenameLength)
	}
	return filepath.Join(d.dir, stem+".pdf")
}

// DownloadPDF fetches loc into dest. The body is written to a temporary
// file in dest's directory and renamed into place only once it passes the
// checks, so dest never holds a partial or rejected file.
func (d *Downloader) DownloadPDF(ctx context.Context, loc Location, dest string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, loc.URL, nil)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	for k, v := range loc.Header {
		req.Header[k] = v
	}
	if d.userAgent != "" {
		req.Header.Set("User-Agent", d.userAgent)
	}

	resp, err := d.client.Do(req)
	if err != nil {
		return fmt.Errorf("HTTP request: %w", err)
	}
	defer resp.Body.Close()

	if err := httputil.CheckStatus(resp); err != nil {
		return err
	}

	body := bufio.NewReader(resp.Body)
	ct := strings.ToLower(resp.Header.Get("Content-Type"))
	if !strings.Contains(ct, "pdf") && !strings.Contains(ct, "octet-stream") {
		head, _ := body.Peek(len(pdfMagic))
		if !bytes.HasPrefix(head, pdfMagic) {
			return fmt.Errorf("%w (content type %q)", ErrNotPDF, ct)
		}
	}

	dir := filepath.Dir(dest)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating directory %s: %w", dir, err)
	}
	tmpFile, err := os.CreateTemp(dir, ".download-*.tmp")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	tmpPath := tmpFile.Name()

	n, copyErr := io.Copy(tmpFile, body)
	closeErr := tmpFile.Close()
	if copyErr != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("writing download: %w", copyErr)
	}
	if closeErr != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("closing temp file: %w", closeErr)
	}
	if n < MinPDFSize {
		os.Remove(tmpPath)
		return fmt.Errorf("%w (%d bytes)", ErrTooSmall, n)
	}

	if err := os.Rename(tmpPath, dest); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("renaming temp file: %w", err)
	}
	return nil
}

// DownloadPaper fetches the PDF for one paper. A file already at the
// target path counts as success with source "cached" and no request is
// made. Otherwise each source is tried in order; when none yields a PDF
// the result carries ErrNotAvailable whatever the underlying cause.
func (d *Downloader) DownloadPaper(ctx context.Context, p types.Paper) types.DownloadResult {
	if !p.HasDOI() {
		return failed(p, ErrNoDOI)
	}

	path := d.Path(p)
	if _, err := os.Stat(path); err == nil {
		return types.DownloadResult{Paper: p, Success: true, Path: path, Source: types.SourceCached}
	}

	doi := p.DOIValue()
	for _, src := range d.sources {
		loc := src.Locate(ctx, doi)
		if loc == nil {
			d.log.Debug().Str("source", src.Name()).Str("doi", doi).Msg("no PDF location")
			continue
		}
		if err := d.DownloadPDF(ctx, *loc, path); err != nil {
			d.log.Debug().Err(err).Str("source", src.Name()).Str("url", loc.URL).Msg("download failed")
			continue
		}
		return types.DownloadResult{Paper: p, Success: true, Path: path, Source: loc.Tag}
	}

	return failed(p, ErrNotAvailable)
}

func failed(p types.Paper, err error) types.DownloadResult {
	return types.DownloadResult{Paper: p, Error: err.Error(), Err: err}
}

// DownloadPapers downloads papers one at a time, calling onProgress after
// each attempt. It waits delay between attempts, except after a cached
// result and after the last paper. Cancelling ctx stops the batch; the
// results so far are returned.
func (d *Downloader) DownloadPapers(ctx context.Context, papers []types.Paper, delay time.Duration, onProgress ProgressFunc) []types.DownloadResult {
	results := make([]types.DownloadResult, 0, len(papers))
	total := len(papers)

	for i, p := range papers {
		if ctx.Err() != nil {
			break
		}

		r := d.DownloadPaper(ctx, p)
		results = append(results, r)

		if onProgress != nil {
			onProgress(i+1, total, r)
		}

		if r.Source != types.SourceCached && i < total-1 {
			if err := d.sleep(ctx, delay); err != nil {
				break
			}
		}
	}
	return results
}

// Stats summarizes a batch. SuccessRate is 0 for an empty batch.
func Stats(results []types.DownloadResult) types.DownloadStats {
	s := types.DownloadStats{
		Total:   len(results),
		Sources: map[string]int{},
		Errors:  map[string]int{},
	}
	for _, r := range results {
		if r.Success {
			s.Successful++
			s.Sources[orUnknown(r.Source)]++
			continue
		}
		s.Failed++
		s.Errors[orUnknown(r.Error)]++
	}
	if s.Total > 0 {
		s.SuccessRate = float64(s.Successful) / float64(s.Total) * 100
	}
	return s
}
