// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"

	"github.com/spf13/cobra"

	"github.com/pdiddy/papersearch/internal/download"
	"github.com/pdiddy/papersearch/internal/pdfinfo"
	"github.com/pdiddy/papersearch/pkg/types"
)

var verifyCmd = &cobra.Command{
	Use:   "verify",
	Short: "Check downloaded PDFs against their snapshot DOIs",
	Long: `Verify looks up the PDF for each DOI-bearing paper in a snapshot and reports
whether it exists, parses, and mentions the expected DOI on its first pages.
Papers without a downloaded file are skipped unless --missing is set.`,
	Example: `  papersearch verify --latest
  papersearch verify --load data/papers/papers_20241201_120000.json --missing`,
	RunE: runVerify,
}

func init() {
	f := verifyCmd.Flags()
	f.StringP("load", "l", "", "snapshot file to load")
	f.Bool("latest", false, "use the most recent snapshot")
	f.StringP("output-dir", "o", "", "directory holding PDFs (default data/pdfs)")
	f.String("data-dir", "", "snapshot directory used by --latest (default data/papers)")
	f.Bool("missing", false, "also list papers with no downloaded PDF")
	verifyCmd.MarkFlagsMutuallyExclusive("load", "latest")
	rootCmd.AddCommand(verifyCmd)
}

type verifyResult struct {
	paper  types.Paper
	path   string
	info   pdfinfo.Info
	status pdfinfo.Status
}

func runVerify(cmd *cobra.Command, _ []string) error {
	set, err := loadSnapshotFlag(cmd)
	if err != nil {
		return err
	}
	dcfg := cfg.Download
	if cmd.Flags().Changed("output-dir") {
		dcfg.OutputDir, _ = cmd.Flags().GetString("output-dir")
	}
	showMissing, _ := cmd.Flags().GetBool("missing")

	results := verifyPapers(download.New(dcfg, nil, nil, logger), set.Papers)
	counts := printVerify(cmd.OutOrStdout(), results, showMissing)

	if counts[pdfinfo.StatusInvalid]+counts[pdfinfo.StatusMismatch] > 0 {
		return withExit(ExitError, errSilent)
	}
	return nil
}

// verifyPapers checks the expected PDF path of every paper with a DOI.
func verifyPapers(d *download.Downloader, papers []types.Paper) []verifyResult {
	var out []verifyResult
	for _, p := range papers {
		if !p.HasDOI() {
			continue
		}
		r := verifyResult{paper: p, path: d.Path(p)}
		if _, err := os.Stat(r.path); errors.Is(err, fs.ErrNotExist) {
			r.status = pdfinfo.StatusMissing
		} else {
			var err error
			r.info, r.status, err = pdfinfo.Check(r.path, p.DOIValue())
			if err != nil {
				logger.Debug().Err(err).Str("path", r.path).Msg("pdf check failed")
			}
		}
		out = append(out, r)
	}
	return out
}

func printVerify(w io.Writer, results []verifyResult, showMissing bool) map[pdfinfo.Status]int {
	counts := map[pdfinfo.Status]int{}
	for _, r := range results {
		counts[r.status]++
		if r.status == pdfinfo.StatusMissing && !showMissing {
			continue
		}
		detail := ""
		switch r.status {
		case pdfinfo.StatusMatch, pdfinfo.StatusNoDOI:
			detail = fmt.Sprintf(" (%d pages)", r.info.Pages)
		case pdfinfo.StatusMismatch:
			detail = fmt.Sprintf(" (found %s)", r.info.DOI)
		}
		fmt.Fprintf(w, "%-8s %s%s: %s\n", r.status, r.paper.DOIValue(), detail, truncate(r.paper.Title, 50))
	}
	fmt.Fprintf(w, "\nChecked %d papers: %d match, %d no DOI, %d mismatch, %d invalid, %d missing\n",
		len(results), counts[pdfinfo.StatusMatch], counts[pdfinfo.StatusNoDOI],
		counts[pdfinfo.StatusMismatch], counts[pdfinfo.StatusInvalid], counts[pdfinfo.StatusMissing])
	return counts
}
