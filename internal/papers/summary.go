// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package papers

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/pdiddy/papersearch/pkg/types"
)

const (
	summaryAuthors  = 5
	summaryKeywords = 10
)

// WriteReviewSummary writes a Markdown summary of papers intended for
// reading through a result set before selecting downloads.
func WriteReviewSummary(w io.Writer, papers []types.Paper, q string, now time.Time) error {
	var b strings.Builder

	b.WriteString("# Paper Search Results for Review\n\n")
	fmt.Fprintf(&b, "**Search Query:** `%s`\n", q)
	fmt.Fprintf(&b, "**Total Papers:** %d\n", len(papers))
	fmt.Fprintf(&b, "**Generated:** %s\n\n---\n\n", now.Format(fetchedAtLayout))

	for i, p := range papers {
		fmt.Fprintf(&b, "## Paper %d: %s\n\n", i+1, p.Title)
		fmt.Fprintf(&b, "**Scopus ID:** %s\n", p.ID)

		authors := p.Authors
		more := ""
		if len(authors) > summaryAuthors {
			authors, more = authors[:summaryAuthors], "..."
		}
		fmt.Fprintf(&b, "**Authors:** %s%s\n", strings.Join(authors, ", "), more)
		fmt.Fprintf(&b, "**Publication:** %s\n", p.Venue)
		fmt.Fprintf(&b, "**Date:** %s\n", p.PublicationDate)
		fmt.Fprintf(&b, "**Citations:** %d\n", p.CitationCount)

		if p.HasDOI() {
			fmt.Fprintf(&b, "**DOI:** https://doi.org/%s\n", p.DOIValue())
		}
		if len(p.Keywords) > 0 {
			kw := p.Keywords
			if len(kw) > summaryKeywords {
				kw = kw[:summaryKeywords]
			}
			fmt.Fprintf(&b, "**Keywords:** %s\n", strings.Join(kw, ", "))
		}

		abstract := p.Abstract
		if abstract == "" {
			abstract = types.NoAbstract + "."
		}
		fmt.Fprintf(&b, "\n### Abstract\n\n%s\n\n---\n\n", abstract)
	}

	_, err := io.WriteString(w, b.String())
	return err
}
