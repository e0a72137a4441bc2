// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package catalog

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/papersearch/internal/papers"
	"github.com/pdiddy/papersearch/pkg/types"
)

func openTest(t *testing.T, dir string) *Catalog {
	t.Helper()
	c, err := Open(dir, zerolog.Nop())
	require.NoError(t, err)
	t.Cleanup(func() { c.Close() })
	return c
}

func testSet(query string, dois ...string) *types.SearchResultSet {
	set := &types.SearchResultSet{
		Query:     query,
		FetchedAt: time.Date(2026, 5, 1, 10, 0, 0, 0, time.UTC),
	}
	for i, d := range dois {
		set.Papers = append(set.Papers, types.Paper{
			ID:       string(rune('a' + i)),
			Title:    "Paper " + string(rune('A'+i)),
			DOI:      types.StringPtr(d),
			Keywords: []string{},
		})
	}
	set.Count = len(set.Papers)
	return set
}

func TestRecordAndList(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	c := openTest(t, dir)

	older := testSet("older", "10.1/a")
	older.FetchedAt = older.FetchedAt.Add(-24 * time.Hour)
	require.NoError(t, c.Record(ctx, filepath.Join(dir, "papers_1.json"), older))
	require.NoError(t, c.Record(ctx, filepath.Join(dir, "papers_2.json"), testSet("newer", "10.1/b", "", "10.1/c")))

	entries, err := c.List(ctx, 0)
	require.NoError(t, err)
	require.Len(t, entries, 2)

	assert.Equal(t, "newer", entries[0].Query)
	assert.Equal(t, 3, entries[0].Count)
	assert.Equal(t, 2, entries[0].WithDOI)
	assert.Equal(t, 0, entries[0].Downloaded)
	assert.Equal(t, "older", entries[1].Query)

	limited, err := c.List(ctx, 1)
	require.NoError(t, err)
	assert.Len(t, limited, 1)
}

func TestRecordReplaces(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	c := openTest(t, dir)
	path := filepath.Join(dir, "papers_1.json")

	require.NoError(t, c.Record(ctx, path, testSet("q", "10.1/a", "10.1/b")))
	require.NoError(t, c.Record(ctx, path, testSet("q2", "10.1/a")))

	entries, err := c.List(ctx, 0)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "q2", entries[0].Query)
	assert.Equal(t, 1, entries[0].WithDOI)
}

func TestRecordDownloads(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	c := openTest(t, dir)
	set := testSet("q", "10.1/a", "10.1/b")
	require.NoError(t, c.Record(ctx, filepath.Join(dir, "papers_1.json"), set))

	results := []types.DownloadResult{
		{Paper: set.Papers[0], Success: true, Path: "/pdfs/a.pdf", Source: "unpaywall:repository"},
		{Paper: set.Papers[1], Error: "PDF not available via open access"},
	}
	require.NoError(t, c.RecordDownloads(ctx, results, time.Now()))

	// A later cache hit keeps the original source.
	results[0].Source = types.SourceCached
	require.NoError(t, c.RecordDownloads(ctx, results[:1], time.Now()))

	var source string
	require.NoError(t, c.db.QueryRow(`SELECT source FROM downloads WHERE doi = ?`, "10.1/a").Scan(&source))
	assert.Equal(t, "unpaywall:repository", source)

	entries, err := c.List(ctx, 0)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, 1, entries[0].Downloaded)
}

func TestSync(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	repo := papers.NewRepository(nil, dir, zerolog.Nop())

	first, err := repo.SaveSnapshot("first", testSet("", "10.1/a").Papers)
	require.NoError(t, err)
	second, err := repo.SaveSnapshot("second", testSet("", "10.1/b", "10.1/c").Papers)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "papers_broken.json"), []byte("{"), 0o644))

	c := openTest(t, dir)

	s, err := c.Sync(ctx, dir)
	require.NoError(t, err)
	assert.Equal(t, SyncSummary{Indexed: 2, Failed: 1}, s)

	s, err = c.Sync(ctx, dir)
	require.NoError(t, err)
	assert.Equal(t, SyncSummary{Skipped: 2, Failed: 1}, s)

	later := time.Now().Add(time.Minute)
	require.NoError(t, os.Chtimes(second, later, later))
	require.NoError(t, os.Remove(first))

	s, err = c.Sync(ctx, dir)
	require.NoError(t, err)
	assert.Equal(t, SyncSummary{Updated: 1, Failed: 1, Removed: 1}, s)

	entries, err := c.List(ctx, 0)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "second", entries[0].Query)
	assert.Equal(t, 2, entries[0].Count)
}

func TestSyncMissingDir(t *testing.T) {
	c := openTest(t, t.TempDir())
	s, err := c.Sync(context.Background(), filepath.Join(t.TempDir(), "absent"))
	require.NoError(t, err)
	assert.Equal(t, SyncSummary{}, s)
}
