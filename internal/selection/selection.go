// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package selection parses paper selection expressions such as "1,3,5-10".
package selection

import (
	"slices"
	"strconv"
	"strings"

	"github.com/rs/zerolog"

	"github.com/pdiddy/papersearch/pkg/types"
)

// All is the keyword selecting every paper that has a DOI.
const All = "all"

// Parse turns a 1-based selection expression into sorted, de-duplicated
// 0-based indices below count. Parts are comma-separated numbers or
// inclusive ranges; spaces are ignored. Malformed parts and out-of-range
// single numbers are skipped with a warning. Range members outside
// [1, count] are dropped silently.
func Parse(expr string, count int, log zerolog.Logger) []int {
	expr = strings.ReplaceAll(expr, " ", "")
	seen := map[int]bool{}

	for _, part := range strings.Split(expr, ",") {
		if part == "" {
			continue
		}

		if lo, hi, ok := strings.Cut(part, "-"); ok {
			start, err1 := strconv.Atoi(lo)
			end, err2 := strconv.Atoi(hi)
			if err1 != nil || err2 != nil {
				log.Warn().Str("part", part).Msg("invalid range, skipping")
				continue
			}
			for n := max(start, 1); n <= min(end, count); n++ {
				seen[n-1] = true
			}
			continue
		}

		n, err := strconv.Atoi(part)
		if err != nil {
			log.Warn().Str("part", part).Msg("invalid number, skipping")
			continue
		}
		if n < 1 || n > count {
			log.Warn().Int("number", n).Int("max", count).Msg("selection out of range, skipping")
			continue
		}
		seen[n-1] = true
	}

	out := make([]int, 0, len(seen))
	for i := range seen {
		out = append(out, i)
	}
	slices.Sort(out)
	return out
}

// WithDOI returns the indices of papers that can be downloaded.
func WithDOI(papers []types.Paper) []int {
	var out []int
	for i, p := range papers {
		if p.HasDOI() {
			out = append(out, i)
		}
	}
	return out
}

// IsQuit reports whether an interactive answer means cancel.
func IsQuit(input string) bool {
	switch strings.ToLower(strings.TrimSpace(input)) {
	case "q", "quit", "exit":
		return true
	}
	return false
}

// Pick returns the papers at indices, in the order given.
func Pick(papers []types.Paper, indices []int) []types.Paper {
	out := make([]types.Paper, 0, len(indices))
	for _, i := range indices {
		if i >= 0 && i < len(papers) {
			out = append(out, papers[i])
		}
	}
	return out
}
