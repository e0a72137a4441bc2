// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package papers normalizes Scopus entries into Paper records and manages
// the JSON snapshot files they are saved to.
package papers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"

	"github.com/pdiddy/papersearch/internal/query"
	"github.com/pdiddy/papersearch/internal/scopus"
	"github.com/pdiddy/papersearch/pkg/types"
)

const (
	// SnapshotPattern matches snapshot files in a data directory.
	SnapshotPattern = "papers_*.json"

	snapshotLayout = "20060102_150405"

	// fetchedAtLayout is a local ISO-8601 timestamp without zone, the form
	// older snapshots were written in.
	fetchedAtLayout = "2006-01-02T15:04:05.999999"
)

// Searcher fetches raw entries for a query.
type Searcher interface {
	SearchAll(ctx context.Context, query string, total int) ([]scopus.Entry, error)
}

// Repository fetches papers and persists them as snapshots under Dir.
type Repository struct {
	searcher Searcher
	dir      string
	log      zerolog.Logger

	// now is replaced in tests.
	now func() time.Time
}

// NewRepository creates a Repository. searcher may be nil when the
// repository is only used to read snapshots.
func NewRepository(searcher Searcher, dir string, log zerolog.Logger) *Repository {
	return &Repository{searcher: searcher, dir: dir, log: log, now: time.Now}
}

// Dir returns the snapshot directory.
func (r *Repository) Dir() string { return r.dir }

// FetchPapers runs query, normalizes the entries, and saves a snapshot when
// save is set and at least one paper came back. It returns the snapshot
// path, or "" when nothing was saved.
func (r *Repository) FetchPapers(ctx context.Context, q string, count int, save bool) ([]types.Paper, string, error) {
	if r.searcher == nil {
		return nil, "", errors.New("repository has no searcher")
	}

	entries, err := r.searcher.SearchAll(ctx, q, count)
	if err != nil {
		return nil, "", err
	}

	papers := make([]types.Paper, len(entries))
	for i, e := range entries {
		papers[i] = FromEntry(e)
	}
	r.log.Debug().Int("entries", len(entries)).Str("query", q).Msg("fetched papers")

	if !save || len(papers) == 0 {
		return papers, "", nil
	}
	path, err := r.SaveSnapshot(q, papers)
	if err != nil {
		return papers, "", err
	}
	return papers, path, nil
}

// FetchByTopic builds a query from p and fetches it. It returns the query
// string alongside the FetchPapers results.
func (r *Repository) FetchByTopic(ctx context.Context, p query.TopicParams, count int, save bool) (string, []types.Paper, string, error) {
	q := query.FromTopic(p)
	papers, path, err := r.FetchPapers(ctx, q, count, save)
	return q, papers, path, err
}

// snapshotFile is the on-disk form of a SearchResultSet. fetched_at is kept
// as a string so files written without a zone still load.
type snapshotFile struct {
	Query     string        `json:"query"`
	FetchedAt string        `json:"fetched_at"`
	Count     int           `json:"count"`
	Papers    []types.Paper `json:"papers"`
}

// SaveSnapshot writes papers to a new papers_YYYYMMDD_HHMMSS.json file in
// the repository directory, creating it if needed. A second save within the
// same second gets a numeric suffix rather than overwriting.
func (r *Repository) SaveSnapshot(q string, papers []types.Paper) (string, error) {
	if err := os.MkdirAll(r.dir, 0o755); err != nil {
		return "", fmt.Errorf("creating data directory: %w", err)
	}

	now := r.now()
	data, err := encodeSnapshot(snapshotFile{
		Query:     q,
		FetchedAt: now.Format(fetchedAtLayout),
		Count:     len(papers),
		Papers:    papers,
	})
	if err != nil {
		return "", err
	}

	stem := "papers_" + now.Format(snapshotLayout)
	for n := 0; ; n++ {
		name := stem + ".json"
		if n > 0 {
			name = fmt.Sprintf("%s_%d.json", stem, n)
		}
		path := filepath.Join(r.dir, name)

		f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
		if errors.Is(err, fs.ErrExist) {
			continue
		}
		if err != nil {
			return "", fmt.Errorf("creating snapshot: %w", err)
		}
		if _, err := f.Write(data); err != nil {
			f.Close()
			os.Remove(path)
			return "", fmt.Errorf("writing snapshot: %w", err)
		}
		if err := f.Close(); err != nil {
			return "", fmt.Errorf("closing snapshot: %w", err)
		}
		r.log.Debug().Str("path", path).Int("count", len(papers)).Msg("saved snapshot")
		return path, nil
	}
}

func encodeSnapshot(s snapshotFile) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(s); err != nil {
		return nil, fmt.Errorf("encoding snapshot: %w", err)
	}
	return buf.Bytes(), nil
}

// LoadSnapshot reads a snapshot file. Optional paper fields may be absent;
// keywords and authors default to empty lists. An unparseable fetched_at
// leaves FetchedAt zero.
func LoadSnapshot(path string) (*types.SearchResultSet, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading snapshot: %w", err)
	}

	var f snapshotFile
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parsing snapshot %s: %w", path, err)
	}

	for i := range f.Papers {
		p := &f.Papers[i]
		if p.Keywords == nil {
			p.Keywords = []string{}
		}
		if p.Authors == nil {
			p.Authors = []string{}
		}
		if p.DOI != nil && *p.DOI == "" {
			p.DOI = nil
		}
		if p.URL != nil && *p.URL == "" {
			p.URL = nil
		}
	}

	return &types.SearchResultSet{
		Query:     f.Query,
		FetchedAt: parseFetchedAt(f.FetchedAt),
		Count:     f.Count,
		Papers:    f.Papers,
	}, nil
}

func parseFetchedAt(s string) time.Time {
	if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return t
	}
	if t, err := time.ParseInLocation(fetchedAtLayout, s, time.Local); err == nil {
		return t
	}
	return time.Time{}
}

// LatestSnapshot returns the snapshot in dir with the greatest modification
// time. It reports false, without error, when dir is absent or holds no
// snapshots.
func LatestSnapshot(dir string) (string, bool, error) {
	entries, err := os.ReadDir(dir)
	if errors.Is(err, fs.ErrNotExist) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("reading data directory: %w", err)
	}

	var latest string
	var latestMod time.Time
	for _, e := range entries {
		if e.IsDir() || !IsSnapshotName(e.Name()) {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		if latest == "" || info.ModTime().After(latestMod) {
			latest = filepath.Join(dir, e.Name())
			latestMod = info.ModTime()
		}
	}
	return latest, latest != "", nil
}

// IsSnapshotName reports whether name looks like a snapshot file.
func IsSnapshotName(name string) bool {
	ok, _ := filepath.Match(SnapshotPattern, filepath.Base(name))
	return ok
}
