// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"
	"io"
	"path/filepath"
	"slices"
	"strings"

	"github.com/pdiddy/papersearch/pkg/types"
)

var rule = strings.Repeat("=", 80)

// truncate shortens s to n runes, marking the cut with "...".
func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}

// splitList splits a comma-separated flag value, trimming blanks.
func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// printPaperList writes the numbered paper table used for selection.
func printPaperList(w io.Writer, papers []types.Paper) {
	fmt.Fprintf(w, "\n%s\nAvailable Papers\n%s\n", rule, rule)

	for i, p := range papers {
		status := "[No DOI]"
		if p.HasDOI() {
			status = "[DOI]"
		}

		authors := p.Authors
		more := ""
		if len(authors) > 3 {
			authors, more = authors[:3], "..."
		}

		fmt.Fprintf(w, "\n%3d. %s\n", i+1, truncate(p.Title, 60))
		fmt.Fprintf(w, "     Authors: %s%s\n", strings.Join(authors, ", "), more)
		fmt.Fprintf(w, "     %s (%s)\n", p.Venue, p.Year())
		fmt.Fprintf(w, "     Citations: %d %s\n", p.CitationCount, status)
	}

	fmt.Fprintf(w, "\n%s\n", rule)
}

// printProgress writes one line per finished download.
func printProgress(w io.Writer, current, total int, r types.DownloadResult) {
	title := truncate(r.Paper.Title, 50)
	if r.Success {
		source := ""
		if r.Source != "" {
			source = " (" + r.Source + ")"
		}
		fmt.Fprintf(w, "[%d/%d] OK%s: %s\n", current, total, source, title)
		return
	}
	reason := ""
	if r.Error != "" {
		reason = " - " + r.Error
	}
	fmt.Fprintf(w, "[%d/%d] FAILED%s: %s\n", current, total, reason, title)
}

// printSummary writes the batch statistics.
func printSummary(w io.Writer, s types.DownloadStats, dir string) {
	fmt.Fprintf(w, "\n%s\nDownload Summary\n%s\n", rule, rule)
	fmt.Fprintf(w, "Total requested: %d\n", s.Total)
	fmt.Fprintf(w, "Successfully downloaded: %d\n", s.Successful)
	fmt.Fprintf(w, "Failed: %d\n", s.Failed)
	fmt.Fprintf(w, "Success rate: %.1f%%\n", s.SuccessRate)

	if len(s.Sources) > 0 {
		fmt.Fprintln(w, "\nDownload sources:")
		printHistogram(w, s.Sources)
	}
	if len(s.Errors) > 0 {
		fmt.Fprintln(w, "\nFailure reasons:")
		printHistogram(w, s.Errors)
	}

	if abs, err := filepath.Abs(dir); err == nil {
		dir = abs
	}
	fmt.Fprintf(w, "\nDownload directory: %s\n%s\n", dir, rule)
}

func printHistogram(w io.Writer, m map[string]int) {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	for _, k := range keys {
		fmt.Fprintf(w, "  - %s: %d\n", k, m[k])
	}
}
