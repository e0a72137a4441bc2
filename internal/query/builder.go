// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package query composes Scopus advanced-search query strings from
// structured facets.
//
// Scopus field codes used here:
//
//	TITLE-ABS-KEY(term)  title, abstract, and keywords
//	TITLE(term)          title only
//	AUTH(name)           author
//	SUBJAREA(code)       subject area (COMP, ENGI, MEDI, PHYS, ...)
//	PUBYEAR > n          publication year bound (strict)
//
// Terms are inserted inside double quotes without escaping. A term that
// itself contains a double quote produces an invalid query; callers must
// pass terms free of quote characters.
package query

import (
	"fmt"
	"strings"
)

// Builder accumulates query facets. The zero value is ready to use.
type Builder struct {
	terms        []string
	excludes     []string
	titleTerms   []string
	authors      []string
	subjectAreas []string
	yearFrom     *int
	yearTo       *int
	raw          string
}

// New returns an empty Builder.
func New() *Builder { return &Builder{} }

// AddTerm adds a free term matched against title, abstract, and keywords.
func (b *Builder) AddTerm(term string) *Builder {
	b.terms = append(b.terms, term)
	return b
}

// AddTerms adds several free terms.
func (b *Builder) AddTerms(terms ...string) *Builder {
	b.terms = append(b.terms, terms...)
	return b
}

// ExcludeTerm adds a term whose matches are removed from the results.
func (b *Builder) ExcludeTerm(term string) *Builder {
	b.excludes = append(b.excludes, term)
	return b
}

// AddTitleTerm adds a term that must appear in the title.
func (b *Builder) AddTitleTerm(term string) *Builder {
	b.titleTerms = append(b.titleTerms, term)
	return b
}

// AddAuthor adds an author filter. Author filters are OR-joined.
func (b *Builder) AddAuthor(author string) *Builder {
	b.authors = append(b.authors, author)
	return b
}

// AddSubjectArea adds a subject-area code. Subject areas are OR-joined.
func (b *Builder) AddSubjectArea(area string) *Builder {
	b.subjectAreas = append(b.subjectAreas, area)
	return b
}

// SetYearRange sets the inclusive publication-year range. A nil bound is
// left open.
func (b *Builder) SetYearRange(from, to *int) *Builder {
	b.yearFrom = from
	b.yearTo = to
	return b
}

// SetRawQuery sets a query string that replaces the whole composition.
func (b *Builder) SetRawQuery(q string) *Builder {
	b.raw = q
	return b
}

// Build returns the query string. An empty Builder yields "".
func (b *Builder) Build() string {
	if b.raw != "" {
		return b.raw
	}

	var groups []string
	if len(b.terms) > 0 {
		groups = append(groups, group(b.terms, `TITLE-ABS-KEY("%s")`, " AND "))
	}
	if len(b.titleTerms) > 0 {
		groups = append(groups, group(b.titleTerms, `TITLE("%s")`, " AND "))
	}
	if len(b.authors) > 0 {
		groups = append(groups, group(b.authors, `AUTH("%s")`, " OR "))
	}
	if len(b.subjectAreas) > 0 {
		groups = append(groups, group(b.subjectAreas, `SUBJAREA(%s)`, " OR "))
	}

	var sb strings.Builder
	sb.WriteString(strings.Join(groups, " AND "))

	// Inclusive bounds become strict inequalities one year outside.
	if b.yearFrom != nil {
		and(&sb, fmt.Sprintf("PUBYEAR > %d", *b.yearFrom-1))
	}
	if b.yearTo != nil {
		and(&sb, fmt.Sprintf("PUBYEAR < %d", *b.yearTo+1))
	}

	for _, t := range b.excludes {
		and(&sb, fmt.Sprintf(`NOT TITLE-ABS-KEY("%s")`, t))
	}

	return strings.TrimSpace(sb.String())
}

// and appends clause, joined with AND unless it is the first clause.
func and(sb *strings.Builder, clause string) {
	if sb.Len() > 0 {
		sb.WriteString(" AND ")
	}
	sb.WriteString(clause)
}

func group(values []string, format, sep string) string {
	parts := make([]string, len(values))
	for i, v := range values {
		parts[i] = fmt.Sprintf(format, v)
	}
	return "(" + strings.Join(parts, sep) + ")"
}

// TopicParams holds the inputs for FromTopic.
type TopicParams struct {
	Topic        string
	Additional   []string
	Exclude      []string
	YearFrom     *int
	YearTo       *int
	SubjectAreas []string
	Authors      []string
	TitleTerms   []string
}

// FromTopic builds a query whose first free term is the topic, followed by
// any additional terms and facets.
func FromTopic(p TopicParams) string {
	b := New().AddTerm(p.Topic).AddTerms(p.Additional...)
	for _, t := range p.Exclude {
		b.ExcludeTerm(t)
	}
	if p.YearFrom != nil || p.YearTo != nil {
		b.SetYearRange(p.YearFrom, p.YearTo)
	}
	for _, a := range p.SubjectAreas {
		b.AddSubjectArea(a)
	}
	for _, a := range p.Authors {
		b.AddAuthor(a)
	}
	for _, t := range p.TitleTerms {
		b.AddTitleTerm(t)
	}
	return b.Build()
}
