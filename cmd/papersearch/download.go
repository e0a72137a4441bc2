// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/pdiddy/papersearch/internal/catalog"
	"github.com/pdiddy/papersearch/internal/download"
	"github.com/pdiddy/papersearch/internal/httputil"
	"github.com/pdiddy/papersearch/internal/papers"
	"github.com/pdiddy/papersearch/internal/selection"
	"github.com/pdiddy/papersearch/pkg/types"
)

var downloadCmd = &cobra.Command{
	Use:   "download",
	Short: "Download PDFs for papers in a saved snapshot",
	Long: `Download loads a snapshot, lets you choose papers, and fetches their PDFs
from Unpaywall and, for Elsevier DOIs, the ScienceDirect API.

Without --select or --all the paper list is shown and the selection is read
interactively. Only papers with a DOI are downloaded. The command exits 1
when any download fails.`,
	Example: `  papersearch download --load data/papers/papers_20241201_120000.json
  papersearch download --latest --select 1,3,5-10
  papersearch download --latest --all --output-dir ./my_pdfs`,
	RunE: runDownload,
}

func init() {
	f := downloadCmd.Flags()
	f.StringP("load", "l", "", "snapshot file to load")
	f.Bool("latest", false, "use the most recent snapshot")
	f.StringP("select", "s", "", "paper numbers to download, e.g. 1,3,5-10")
	f.BoolP("all", "a", false, "download every paper with a DOI")
	f.StringP("output-dir", "o", "", "directory for PDFs (default data/pdfs)")
	f.String("email", "", "contact email for Unpaywall (or UNPAYWALL_EMAIL)")
	f.Float64("delay", 1.0, "seconds to wait between downloads")
	f.Bool("no-unpaywall", false, "disable the Unpaywall lookup")
	f.Bool("no-elsevier", false, "disable the ScienceDirect API")
	f.Bool("landing-page", false, "also try the publisher landing page citation_pdf_url")
	f.Bool("list-only", false, "list the papers and exit")
	f.BoolP("yes", "y", false, "skip the confirmation prompt")
	f.String("data-dir", "", "snapshot directory used by --latest (default data/papers)")

	downloadCmd.MarkFlagsMutuallyExclusive("load", "latest")
	downloadCmd.MarkFlagsMutuallyExclusive("select", "all")

	rootCmd.AddCommand(downloadCmd)
}

// downloadConfig applies the command's flags over the loaded configuration.
func downloadConfig(cmd *cobra.Command) (types.DownloadConfig, error) {
	f := cmd.Flags()
	dcfg := cfg.Download

	if f.Changed("output-dir") {
		dcfg.OutputDir, _ = f.GetString("output-dir")
	}
	if f.Changed("email") {
		dcfg.Email, _ = f.GetString("email")
	}
	if f.Changed("delay") {
		secs, _ := f.GetFloat64("delay")
		if secs < 0 {
			return dcfg, fmt.Errorf("--delay must not be negative, got %g", secs)
		}
		dcfg.Delay = time.Duration(secs * float64(time.Second))
	}
	if v, _ := f.GetBool("no-unpaywall"); v {
		dcfg.EnableUnpaywall = false
	}
	if v, _ := f.GetBool("no-elsevier"); v {
		dcfg.EnableElsevier = false
	}
	if v, _ := f.GetBool("landing-page"); v {
		dcfg.EnableLandingPage = true
	}
	return dcfg, nil
}

// loadSnapshotFlag resolves --load or --latest to a snapshot.
func loadSnapshotFlag(cmd *cobra.Command) (*types.SearchResultSet, error) {
	f := cmd.Flags()
	load, _ := f.GetString("load")
	latest, _ := f.GetBool("latest")
	stderr := cmd.ErrOrStderr()

	if load == "" && !latest {
		return nil, fmt.Errorf("one of --load or --latest is required")
	}

	if latest {
		dir := cfg.Search.DataDir
		if f.Changed("data-dir") {
			dir, _ = f.GetString("data-dir")
		}
		path, ok, err := papers.LatestSnapshot(dir)
		if err != nil {
			return nil, withExit(ExitDataError, err)
		}
		if !ok {
			return nil, withExit(ExitDataError, fmt.Errorf("no saved papers found in %s", dir))
		}
		fmt.Fprintf(stderr, "Using latest file: %s\n", path)
		load = path
	} else {
		fmt.Fprintf(stderr, "Loading papers from: %s\n", load)
	}

	set, err := papers.LoadSnapshot(load)
	if err != nil {
		return nil, withExit(ExitDataError, err)
	}
	fmt.Fprintf(stderr, "Loaded %d papers\n", len(set.Papers))
	return set, nil
}

func runDownload(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	f := cmd.Flags()
	out, stderr := cmd.OutOrStdout(), cmd.ErrOrStderr()

	dcfg, err := downloadConfig(cmd)
	if err != nil {
		return err
	}
	set, err := loadSnapshotFlag(cmd)
	if err != nil {
		return err
	}
	all := set.Papers
	if len(all) == 0 {
		fmt.Fprintln(stderr, "No papers to process.")
		return nil
	}

	if listOnly, _ := f.GetBool("list-only"); listOnly {
		printPaperList(out, all)
		return nil
	}

	p := newPrompter(cmd.InOrStdin(), out)
	indices, err := chooseIndices(ctx, cmd, p, all)
	if err != nil || indices == nil {
		return err
	}

	chosen := selection.Pick(all, indices)
	var withDOI []types.Paper
	for _, paper := range chosen {
		if paper.HasDOI() {
			withDOI = append(withDOI, paper)
		}
	}
	fmt.Fprintf(out, "\nSelected %d papers:\n", len(chosen))
	fmt.Fprintf(out, "  - %d with DOI (downloadable)\n", len(withDOI))
	fmt.Fprintf(out, "  - %d without DOI (will be skipped)\n", len(chosen)-len(withDOI))

	if len(withDOI) == 0 {
		fmt.Fprintln(stderr, "\nNo papers with DOI to download.")
		return nil
	}

	if yes, _ := f.GetBool("yes"); !yes {
		if !p.confirm(ctx, fmt.Sprintf("\nProceed to download %d papers?", len(withDOI))) {
			fmt.Fprintln(out, "Download cancelled.")
			return nil
		}
	}

	client := httputil.NewClient(dcfg.HTTPConfig, download.DefaultTimeout)
	sources := download.NewSources(dcfg, cfg.Search.APIKey, client, logger)
	d := download.New(dcfg, client, sources, logger)

	printSources(out, dcfg, cfg.Search.APIKey)

	results := d.DownloadPapers(ctx, withDOI, dcfg.Delay, func(current, total int, r types.DownloadResult) {
		printProgress(out, current, total, r)
	})

	printSummary(out, download.Stats(results), dcfg.OutputDir)
	recordDownloads(ctx, results)

	if err := ctx.Err(); err != nil {
		return err
	}
	for _, r := range results {
		if !r.Success {
			return withExit(ExitError, errSilent)
		}
	}
	return nil
}

// chooseIndices applies --all, --select, or the interactive prompt. A nil
// slice with a nil error means there is nothing to do.
func chooseIndices(ctx context.Context, cmd *cobra.Command, p *prompter, all []types.Paper) ([]int, error) {
	f := cmd.Flags()
	stderr := cmd.ErrOrStderr()

	if v, _ := f.GetBool("all"); v {
		indices := selection.WithDOI(all)
		if len(indices) == 0 {
			fmt.Fprintln(stderr, "No papers have DOI available for download.")
			return nil, nil
		}
		return indices, nil
	}

	if expr, _ := f.GetString("select"); expr != "" {
		indices := selection.Parse(expr, len(all), logger)
		if len(indices) == 0 {
			return nil, errors.New("no valid paper indices selected")
		}
		return indices, nil
	}

	return interactiveSelect(ctx, p, all), nil
}

// interactiveSelect shows the list and reads selections until one parses,
// the user quits, or input ends.
func interactiveSelect(ctx context.Context, p *prompter, all []types.Paper) []int {
	printPaperList(p.out, all)
	fmt.Fprintln(p.out, "\nSelection Options:")
	fmt.Fprintln(p.out, "  - Enter paper numbers: 1,3,5 or 1-5,10,15-20")
	fmt.Fprintln(p.out, "  - Enter 'all' to download all papers with DOI")
	fmt.Fprintln(p.out, "  - Enter 'q' or 'quit' to cancel")
	fmt.Fprintln(p.out)

	for {
		answer, ok := p.ask(ctx, "Select papers to download: ")
		if !ok {
			fmt.Fprintln(p.out, "Cancelled.")
			return nil
		}
		answer = strings.ToLower(answer)
		switch {
		case selection.IsQuit(answer):
			fmt.Fprintln(p.out, "Download cancelled.")
			return nil
		case answer == selection.All:
			return selection.WithDOI(all)
		case answer == "":
			continue
		}
		if indices := selection.Parse(answer, len(all), logger); len(indices) > 0 {
			return indices
		}
		fmt.Fprintln(p.out, "No valid selections. Please try again.")
	}
}

func printSources(w io.Writer, dcfg types.DownloadConfig, apiKey string) {
	dir, err := filepath.Abs(dcfg.OutputDir)
	if err != nil {
		dir = dcfg.OutputDir
	}
	fmt.Fprintf(w, "\nDownloading to: %s\n", dir)
	fmt.Fprintln(w, "Download sources:")
	switch {
	case dcfg.EnableElsevier && apiKey != "":
		fmt.Fprintln(w, "  - Elsevier ScienceDirect API: ENABLED (using SCOPUS_API_KEY)")
	case dcfg.EnableElsevier:
		fmt.Fprintln(w, "  - Elsevier ScienceDirect API: DISABLED (no API key found)")
	default:
		fmt.Fprintln(w, "  - Elsevier ScienceDirect API: DISABLED")
	}
	fmt.Fprintf(w, "  - Unpaywall (open access): %s\n", enabled(dcfg.EnableUnpaywall))
	if dcfg.EnableLandingPage {
		fmt.Fprintln(w, "  - Publisher landing page: ENABLED")
	}
	fmt.Fprintln(w, strings.Repeat("-", 80))
}

func enabled(b bool) string {
	if b {
		return "ENABLED"
	}
	return "DISABLED"
}

// recordDownloads notes successful downloads in the catalog. Failures are
// only logged; the PDFs on disk are what matters.
func recordDownloads(ctx context.Context, results []types.DownloadResult) {
	c, err := catalog.Open(cfg.Search.DataDir, logger)
	if err != nil {
		logger.Warn().Err(err).Msg("catalog unavailable")
		return
	}
	defer c.Close()
	if err := c.RecordDownloads(context.WithoutCancel(ctx), results, time.Now()); err != nil {
		logger.Warn().Err(err).Msg("catalog: recording downloads")
	}
}
