// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package papers

import (
	"strings"

	"github.com/spf13/cast"

	"github.com/pdiddy/papersearch/internal/scopus"
	"github.com/pdiddy/papersearch/pkg/types"
)

const scopusIDPrefix = "SCOPUS_ID:"

// FromEntry normalizes a raw Scopus entry into a Paper. Missing title and
// abstract get sentinel values; numeric fields arrive as strings and are
// coerced, defaulting to 0.
func FromEntry(e scopus.Entry) types.Paper {
	p := types.Paper{
		ID:              strings.Replace(str(e, "dc:identifier", ""), scopusIDPrefix, "", 1),
		Title:           str(e, "dc:title", types.NoTitle),
		Abstract:        str(e, "dc:description", types.NoAbstract),
		Authors:         authors(e["author"]),
		Venue:           str(e, "prism:publicationName", types.Unknown),
		PublicationDate: str(e, "prism:coverDate", types.Unknown),
		CitationCount:   max(cast.ToInt(e["citedby-count"]), 0),
		DOI:             types.StringPtr(cast.ToString(e["prism:doi"])),
		Keywords:        keywords(cast.ToString(e["authkeywords"])),
		URL:             types.StringPtr(cast.ToString(e["prism:url"])),
	}
	return p
}

// str returns the string form of e[key], or def when the key is absent or
// null. A present but empty value is kept as is.
func str(e scopus.Entry, key, def string) string {
	v, ok := e[key]
	if !ok || v == nil {
		return def
	}
	return cast.ToString(v)
}

// authors collects authname values in provider order. Scopus sends a list
// of objects; anything else yields no authors.
func authors(v any) []string {
	list, ok := v.([]any)
	if !ok {
		return []string{}
	}
	out := make([]string, 0, len(list))
	for _, a := range list {
		m := cast.ToStringMap(a)
		if name := cast.ToString(m["authname"]); name != "" {
			out = append(out, name)
		}
	}
	return out
}

// keywords splits the pipe-delimited authkeywords field.
func keywords(s string) []string {
	if s == "" {
		return []string{}
	}
	parts := strings.Split(s, "|")
	out := make([]string, 0, len(parts))
	for _, k := range parts {
		if k = strings.TrimSpace(k); k != "" {
			out = append(out, k)
		}
	}
	return out
}
