// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

// Sentinel values used when the provider omits a field.
const (
	NoTitle    = "No title"
	NoAbstract = "No abstract available"
	Unknown    = "Unknown"
)

// Paper holds the normalized metadata for one search hit. A Paper is built
// once from a provider entry (or a snapshot record) and not modified after.
type Paper struct {
	// ID is the provider identifier with its "SCOPUS_ID:" prefix removed.
	ID string `json:"scopus_id" yaml:"scopus_id"`

	// Title is the paper title, or NoTitle.
	Title string `json:"title" yaml:"title"`

	// Abstract is the paper abstract, or NoAbstract.
	Abstract string `json:"abstract" yaml:"abstract"`

	// Authors lists author names in provider order.
	Authors []string `json:"authors" yaml:"authors"`

	// Venue is the publication name (journal, proceedings).
	Venue string `json:"publication_name" yaml:"publication_name"`

	// PublicationDate is the provider cover date, usually YYYY-MM-DD.
	PublicationDate string `json:"publication_date" yaml:"publication_date"`

	// CitationCount is the provider cited-by count.
	CitationCount int `json:"citation_count" yaml:"citation_count"`

	// DOI gates download eligibility: a nil DOI means the paper cannot be
	// resolved to an open-access copy.
	DOI *string `json:"doi,omitempty" yaml:"doi,omitempty"`

	// Keywords are the author keywords, possibly empty but never nil.
	Keywords []string `json:"keywords" yaml:"keywords"`

	// URL is the provider record URL.
	URL *string `json:"url,omitempty" yaml:"url,omitempty"`
}

// HasDOI reports whether the paper can be downloaded.
func (p Paper) HasDOI() bool {
	return p.DOI != nil && *p.DOI != ""
}

// DOIValue returns the DOI or the empty string.
func (p Paper) DOIValue() string {
	if p.DOI == nil {
		return ""
	}
	return *p.DOI
}

// URLValue returns the record URL or the empty string.
func (p Paper) URLValue() string {
	if p.URL == nil {
		return ""
	}
	return *p.URL
}

// Year returns the leading year of PublicationDate, or the whole value when
// it is shorter than four characters.
func (p Paper) Year() string {
	if len(p.PublicationDate) < 4 {
		return p.PublicationDate
	}
	return p.PublicationDate[:4]
}

// StringPtr returns a pointer to s, or nil when s is empty.
func StringPtr(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
