// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package papers

import (
	"io"
	"strconv"
	"strings"

	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/papersearch/pkg/types"
)

// CSLItem is a bibliographic entry in CSL-YAML form, readable by Pandoc
// and reference managers.
type CSLItem struct {
	ID             string    `yaml:"id"`
	Type           string    `yaml:"type"`
	Title          string    `yaml:"title"`
	Author         []CSLName `yaml:"author,omitempty"`
	ContainerTitle string    `yaml:"container-title,omitempty"`
	Abstract       string    `yaml:"abstract,omitempty"`
	Issued         *CSLDate  `yaml:"issued,omitempty"`
	DOI            string    `yaml:"DOI,omitempty"`
	URL            string    `yaml:"URL,omitempty"`
	Keyword        string    `yaml:"keyword,omitempty"`
}

// CSLName is a person's name. Scopus authnames are "Family I." so the split
// is on the first space.
type CSLName struct {
	Family  string `yaml:"family,omitempty"`
	Given   string `yaml:"given,omitempty"`
	Literal string `yaml:"literal,omitempty"`
}

// CSLDate holds date-parts.
type CSLDate struct {
	DateParts [][]int `yaml:"date-parts"`
}

// WriteCSL writes papers as a CSL-YAML list.
func WriteCSL(w io.Writer, papers []types.Paper) error {
	items := make([]CSLItem, len(papers))
	for i, p := range papers {
		items[i] = toCSLItem(p)
	}
	enc := yaml.NewEncoder(w)
	defer enc.Close()
	return enc.Encode(items)
}

func toCSLItem(p types.Paper) CSLItem {
	item := CSLItem{
		ID:       "scopus:" + p.ID,
		Type:     "article-journal",
		Title:    p.Title,
		DOI:      p.DOIValue(),
		URL:      p.URLValue(),
		Keyword:  strings.Join(p.Keywords, ", "),
		Issued:   parseCoverDate(p.PublicationDate),
		Abstract: p.Abstract,
	}
	if p.Abstract == types.NoAbstract {
		item.Abstract = ""
	}
	if p.Venue != types.Unknown {
		item.ContainerTitle = p.Venue
	}
	for _, a := range p.Authors {
		item.Author = append(item.Author, parseAuthorName(a))
	}
	return item
}

// parseCoverDate turns "YYYY-MM-DD" (or a prefix of it) into date-parts.
func parseCoverDate(s string) *CSLDate {
	var parts []int
	for _, f := range strings.SplitN(s, "-", 3) {
		n, err := strconv.Atoi(f)
		if err != nil {
			break
		}
		parts = append(parts, n)
	}
	if len(parts) == 0 {
		return nil
	}
	return &CSLDate{DateParts: [][]int{parts}}
}

func parseAuthorName(name string) CSLName {
	name = strings.TrimSpace(name)
	if name == "" {
		return CSLName{}
	}
	idx := strings.Index(name, " ")
	if idx < 0 {
		return CSLName{Literal: name}
	}
	return CSLName{
		Family: name[:idx],
		Given:  strings.TrimSpace(name[idx+1:]),
	}
}
