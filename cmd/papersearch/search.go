// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/pdiddy/papersearch/internal/catalog"
	"github.com/pdiddy/papersearch/internal/papers"
	"github.com/pdiddy/papersearch/internal/query"
	"github.com/pdiddy/papersearch/internal/scopus"
	"github.com/pdiddy/papersearch/pkg/types"
)

var searchCmd = &cobra.Command{
	Use:   "search",
	Short: "Search Scopus and save the results as a snapshot",
	Long: `Search queries Scopus, saves the results to data/papers/papers_<timestamp>.json,
and writes a Markdown review summary to stdout (or --output).

One of --topic, --query, or --load is required. --topic builds the query from
facet flags; --query passes a raw Scopus query through unchanged; --load
re-summarizes an existing snapshot without contacting Scopus.`,
	Example: `  papersearch search --topic "machine learning" --count 30
  papersearch search -t "deep learning" -a transformer,attention --year-from 2020
  papersearch search -q 'TITLE-ABS-KEY("neural network") AND PUBYEAR > 2019'
  papersearch search --load data/papers/papers_20241201_120000.json`,
	RunE: runSearch,
}

func init() {
	f := searchCmd.Flags()
	f.StringP("topic", "t", "", "research topic to search for")
	f.StringP("query", "q", "", "raw Scopus query string (advanced)")
	f.StringP("additional", "a", "", "additional search terms (comma-separated)")
	f.StringP("exclude", "e", "", "terms to exclude (comma-separated)")
	f.Int("year-from", 0, "first publication year (inclusive)")
	f.Int("year-to", 0, "last publication year (inclusive)")
	f.String("subject", "", "subject area codes, e.g. COMP,ENGI (comma-separated)")
	f.String("author", "", "author names (comma-separated)")
	f.String("title-term", "", "terms that must appear in the title (comma-separated)")
	f.IntP("count", "c", 30, "number of papers to fetch")
	f.String("sort", "", "Scopus sort order (default -citedby-count)")
	f.StringP("load", "l", "", "summarize an existing snapshot instead of searching")
	f.StringP("output", "o", "", "write the review summary to this file (default: stdout)")
	f.Bool("no-save", false, "do not save a snapshot")
	f.String("csl", "", "also write a CSL-YAML bibliography to this file")
	f.String("data-dir", "", "snapshot directory (default data/papers)")

	searchCmd.MarkFlagsMutuallyExclusive("topic", "query", "load")

	rootCmd.AddCommand(searchCmd)
}

// topicParams collects the facet flags.
func topicParams(cmd *cobra.Command) query.TopicParams {
	f := cmd.Flags()
	p := query.TopicParams{}
	p.Topic, _ = f.GetString("topic")

	s, _ := f.GetString("additional")
	p.Additional = splitList(s)
	s, _ = f.GetString("exclude")
	p.Exclude = splitList(s)
	s, _ = f.GetString("subject")
	p.SubjectAreas = splitList(s)
	s, _ = f.GetString("author")
	p.Authors = splitList(s)
	s, _ = f.GetString("title-term")
	p.TitleTerms = splitList(s)

	if f.Changed("year-from") {
		y, _ := f.GetInt("year-from")
		p.YearFrom = &y
	}
	if f.Changed("year-to") {
		y, _ := f.GetInt("year-to")
		p.YearTo = &y
	}
	return p
}

func runSearch(cmd *cobra.Command, _ []string) error {
	f := cmd.Flags()
	topic, _ := f.GetString("topic")
	raw, _ := f.GetString("query")
	load, _ := f.GetString("load")
	count, _ := f.GetInt("count")
	output, _ := f.GetString("output")
	noSave, _ := f.GetBool("no-save")
	cslPath, _ := f.GetString("csl")

	if topic == "" && raw == "" && load == "" {
		return fmt.Errorf("one of --topic, --query, or --load is required")
	}
	if count <= 0 {
		return fmt.Errorf("--count must be positive, got %d", count)
	}

	scfg := cfg.Search
	if f.Changed("data-dir") {
		scfg.DataDir, _ = f.GetString("data-dir")
	}
	if f.Changed("sort") {
		scfg.Sort, _ = f.GetString("sort")
	}

	stderr := cmd.ErrOrStderr()
	var (
		q      string
		result []types.Paper
		saved  string
	)

	if load != "" {
		fmt.Fprintf(stderr, "Loading papers from: %s\n", load)
		set, err := papers.LoadSnapshot(load)
		if err != nil {
			return withExit(ExitDataError, err)
		}
		q, result = set.Query, set.Papers
		if q == "" {
			q = "loaded from file"
		}
		fmt.Fprintf(stderr, "Loaded %d papers\n", len(result))
	} else {
		client, err := scopus.New(scfg, nil)
		if err != nil {
			return withExit(ExitConfigError, err)
		}
		repo := papers.NewRepository(client, scfg.DataDir, logger)

		if raw != "" {
			q = query.New().SetRawQuery(raw).Build()
			fmt.Fprintf(stderr, "Searching with query: %s\n", q)
			result, saved, err = repo.FetchPapers(cmd.Context(), q, count, !noSave)
		} else {
			q, result, saved, err = repo.FetchByTopic(cmd.Context(), topicParams(cmd), count, !noSave)
			fmt.Fprintf(stderr, "Generated query: %s\n", q)
		}
		if err != nil {
			return err
		}
		fmt.Fprintf(stderr, "Found %d papers\n", len(result))
		if saved != "" {
			fmt.Fprintf(stderr, "Saved snapshot: %s\n", saved)
			recordSnapshot(cmd, scfg.DataDir, saved)
		}
	}

	if cslPath != "" {
		if err := writeFile(cslPath, func(w io.Writer) error { return papers.WriteCSL(w, result) }); err != nil {
			return fmt.Errorf("writing CSL: %w", err)
		}
		fmt.Fprintf(stderr, "CSL bibliography written to: %s\n", cslPath)
	}

	now := time.Now()
	if output == "" {
		return papers.WriteReviewSummary(cmd.OutOrStdout(), result, q, now)
	}
	if err := writeFile(output, func(w io.Writer) error { return papers.WriteReviewSummary(w, result, q, now) }); err != nil {
		return fmt.Errorf("writing summary: %w", err)
	}
	fmt.Fprintf(stderr, "Summary written to: %s\n", output)
	return nil
}

// recordSnapshot adds a fresh snapshot to the catalog. The snapshot file is
// already on disk, so a catalog failure is only logged.
func recordSnapshot(cmd *cobra.Command, dataDir, path string) {
	set, err := papers.LoadSnapshot(path)
	if err != nil {
		logger.Warn().Err(err).Msg("catalog: rereading snapshot")
		return
	}
	c, err := catalog.Open(dataDir, logger)
	if err != nil {
		logger.Warn().Err(err).Msg("catalog unavailable")
		return
	}
	defer c.Close()
	if err := c.Record(cmd.Context(), path, set); err != nil {
		logger.Warn().Err(err).Msg("catalog: recording snapshot")
	}
}

func writeFile(path string, write func(io.Writer) error) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := write(f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
