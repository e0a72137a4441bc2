// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package catalog indexes snapshot files and download outcomes in a SQLite
// database so past searches can be listed without rereading every file.
// The snapshot files stay the source of truth; the catalog can be deleted
// and rebuilt with Sync.
package catalog

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/rs/zerolog"

	"github.com/pdiddy/papersearch/internal/papers"
	"github.com/pdiddy/papersearch/pkg/types"
)

// FileName is the catalog database name inside the data directory.
const FileName = "catalog.db"

// Catalog wraps the SQLite database.
type Catalog struct {
	db  *sql.DB
	log zerolog.Logger
}

// Open opens or creates dir/catalog.db and its schema.
func Open(dir string, log zerolog.Logger) (*Catalog, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}

	db, err := sql.Open("sqlite3", filepath.Join(dir, FileName)+"?_journal_mode=WAL&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("opening catalog: %w", err)
	}

	c := &Catalog{db: db, log: log}
	if err := c.createSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}
	return c, nil
}

// Close releases the database connection.
func (c *Catalog) Close() error {
	return c.db.Close()
}

func (c *Catalog) createSchema() error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS snapshots (
			path TEXT PRIMARY KEY,
			query TEXT NOT NULL,
			fetched_at TEXT,
			count INTEGER NOT NULL,
			file_mod_time TEXT
		)`,
		`CREATE TABLE IF NOT EXISTS snapshot_papers (
			snapshot_path TEXT NOT NULL REFERENCES snapshots(path) ON DELETE CASCADE,
			position INTEGER NOT NULL,
			scopus_id TEXT NOT NULL,
			doi TEXT,
			title TEXT,
			citation_count INTEGER,
			PRIMARY KEY (snapshot_path, position)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_snapshot_papers_doi ON snapshot_papers(doi)`,
		`CREATE TABLE IF NOT EXISTS downloads (
			doi TEXT PRIMARY KEY,
			path TEXT NOT NULL,
			source TEXT,
			downloaded_at TEXT NOT NULL
		)`,
	}
	for _, stmt := range statements {
		if _, err := c.db.Exec(stmt); err != nil {
			return fmt.Errorf("executing schema statement: %w", err)
		}
	}
	return nil
}

// Record stores or replaces the catalog rows for the snapshot at path.
func (c *Catalog) Record(ctx context.Context, path string, set *types.SearchResultSet) error {
	abs, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("resolving snapshot path: %w", err)
	}
	var modTime string
	if info, err := os.Stat(abs); err == nil {
		modTime = info.ModTime().UTC().Format(time.RFC3339Nano)
	}
	return c.record(ctx, abs, set, modTime)
}

func (c *Catalog) record(ctx context.Context, path string, set *types.SearchResultSet, modTime string) error {
	tx, err := c.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM snapshot_papers WHERE snapshot_path = ?`, path); err != nil {
		return fmt.Errorf("deleting old rows: %w", err)
	}

	var fetchedAt string
	if !set.FetchedAt.IsZero() {
		fetchedAt = set.FetchedAt.UTC().Format(time.RFC3339)
	}
	_, err = tx.ExecContext(ctx,
		`INSERT INTO snapshots (path, query, fetched_at, count, file_mod_time)
		 VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT(path) DO UPDATE SET
			query=excluded.query, fetched_at=excluded.fetched_at,
			count=excluded.count, file_mod_time=excluded.file_mod_time`,
		path, set.Query, fetchedAt, len(set.Papers), modTime,
	)
	if err != nil {
		return fmt.Errorf("upserting snapshot: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO snapshot_papers (snapshot_path, position, scopus_id, doi, title, citation_count)
		 VALUES (?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("preparing insert: %w", err)
	}
	defer stmt.Close()

	for i, p := range set.Papers {
		var doi sql.NullString
		if p.HasDOI() {
			doi = sql.NullString{String: p.DOIValue(), Valid: true}
		}
		if _, err := stmt.ExecContext(ctx, path, i, p.ID, doi, p.Title, p.CitationCount); err != nil {
			return fmt.Errorf("inserting paper %s: %w", p.ID, err)
		}
	}

	return tx.Commit()
}

// SyncSummary counts the outcome of a Sync.
type SyncSummary struct {
	Indexed int
	Updated int
	Skipped int
	Failed  int
	Removed int
}

// Sync brings the catalog in line with the snapshot files in dir.
// Unchanged files (same modification time) are skipped, and rows for
// files that no longer exist are removed.
func (c *Catalog) Sync(ctx context.Context, dir string) (SyncSummary, error) {
	var summary SyncSummary

	absDir, err := filepath.Abs(dir)
	if err != nil {
		return summary, fmt.Errorf("resolving data directory: %w", err)
	}
	matches, err := filepath.Glob(filepath.Join(absDir, papers.SnapshotPattern))
	if err != nil {
		return summary, fmt.Errorf("listing snapshots: %w", err)
	}

	known, err := c.modTimes(ctx)
	if err != nil {
		return summary, err
	}

	seen := make(map[string]bool, len(matches))
	for _, path := range matches {
		if err := ctx.Err(); err != nil {
			return summary, err
		}
		seen[path] = true

		info, err := os.Stat(path)
		if err != nil {
			c.log.Warn().Err(err).Str("path", path).Msg("cannot stat snapshot")
			summary.Failed++
			continue
		}
		modTime := info.ModTime().UTC().Format(time.RFC3339Nano)

		stored, exists := known[path]
		if exists && stored == modTime {
			summary.Skipped++
			continue
		}

		set, err := papers.LoadSnapshot(path)
		if err != nil {
			c.log.Warn().Err(err).Str("path", path).Msg("skipping unreadable snapshot")
			summary.Failed++
			continue
		}
		if err := c.record(ctx, path, set, modTime); err != nil {
			return summary, err
		}
		if exists {
			summary.Updated++
		} else {
			summary.Indexed++
		}
	}

	for path := range known {
		if filepath.Dir(path) != absDir || seen[path] {
			continue
		}
		if _, err := c.db.ExecContext(ctx, `DELETE FROM snapshots WHERE path = ?`, path); err != nil {
			return summary, fmt.Errorf("removing stale snapshot: %w", err)
		}
		summary.Removed++
	}

	c.log.Debug().
		Int("indexed", summary.Indexed).Int("updated", summary.Updated).
		Int("skipped", summary.Skipped).Int("failed", summary.Failed).
		Int("removed", summary.Removed).Msg("catalog synced")
	return summary, nil
}

func (c *Catalog) modTimes(ctx context.Context) (map[string]string, error) {
	rows, err := c.db.QueryContext(ctx, `SELECT path, COALESCE(file_mod_time, '') FROM snapshots`)
	if err != nil {
		return nil, fmt.Errorf("querying snapshots: %w", err)
	}
	defer rows.Close()

	out := map[string]string{}
	for rows.Next() {
		var path, mod string
		if err := rows.Scan(&path, &mod); err != nil {
			return nil, fmt.Errorf("scanning snapshot: %w", err)
		}
		out[path] = mod
	}
	return out, rows.Err()
}

// RecordDownloads stores successful, non-cached download results.
func (c *Catalog) RecordDownloads(ctx context.Context, results []types.DownloadResult, now time.Time) error {
	tx, err := c.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	for _, r := range results {
		if !r.Success || !r.Paper.HasDOI() {
			continue
		}
		_, err := tx.ExecContext(ctx,
			`INSERT INTO downloads (doi, path, source, downloaded_at) VALUES (?, ?, ?, ?)
			 ON CONFLICT(doi) DO UPDATE SET path=excluded.path,
				source=CASE WHEN excluded.source = 'cached' THEN downloads.source ELSE excluded.source END`,
			r.Paper.DOIValue(), r.Path, r.Source, now.UTC().Format(time.RFC3339),
		)
		if err != nil {
			return fmt.Errorf("recording download %s: %w", r.Paper.DOIValue(), err)
		}
	}
	return tx.Commit()
}

// Entry is one row of search history.
type Entry struct {
	Path       string
	Query      string
	FetchedAt  time.Time
	Count      int
	WithDOI    int
	Downloaded int
}

// List returns recorded snapshots, newest first. limit <= 0 means all.
func (c *Catalog) List(ctx context.Context, limit int) ([]Entry, error) {
	q := `SELECT s.path, s.query, COALESCE(s.fetched_at, ''), s.count,
			(SELECT count(*) FROM snapshot_papers p WHERE p.snapshot_path = s.path AND p.doi IS NOT NULL),
			(SELECT count(*) FROM snapshot_papers p JOIN downloads d ON d.doi = p.doi WHERE p.snapshot_path = s.path)
		FROM snapshots s
		ORDER BY s.fetched_at DESC, s.path DESC`
	args := []any{}
	if limit > 0 {
		q += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := c.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("querying history: %w", err)
	}
	defer rows.Close()

	var out []Entry
	for rows.Next() {
		var e Entry
		var fetched string
		if err := rows.Scan(&e.Path, &e.Query, &fetched, &e.Count, &e.WithDOI, &e.Downloaded); err != nil {
			return nil, fmt.Errorf("scanning history: %w", err)
		}
		if fetched != "" {
			e.FetchedAt, _ = time.Parse(time.RFC3339, fetched)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}
