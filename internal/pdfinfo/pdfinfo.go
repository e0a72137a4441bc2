// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package pdfinfo inspects downloaded PDFs: page count and the DOI printed
// on the first pages, used to check a download is the paper that was asked
// for.
package pdfinfo

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/ledongthuc/pdf"
)

// scanPages is how many leading pages are searched for a DOI.
const scanPages = 3

var doiPattern = regexp.MustCompile(`10\.\d{4,9}/[^\s<>"{}|\\^~\[\]` + "`" + `]+`)

// Info describes one PDF.
type Info struct {
	Pages int
	// DOI is the first DOI found in the text of the leading pages, or "".
	DOI string
}

// Inspect opens the PDF at path. Text extraction failures on a page are
// ignored; a file that cannot be parsed at all is an error.
func Inspect(path string) (info Info, err error) {
	// The parser panics on some malformed files.
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("parsing %s: %v", path, r)
		}
	}()

	f, r, err := pdf.Open(path)
	if err != nil {
		return Info{}, fmt.Errorf("opening %s: %w", path, err)
	}
	defer f.Close()

	info.Pages = r.NumPage()
	for i := 1; i <= min(scanPages, info.Pages); i++ {
		page := r.Page(i)
		if page.V.IsNull() {
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			continue
		}
		if doi := FindDOI(text); doi != "" {
			info.DOI = doi
			break
		}
	}
	return info, nil
}

// FindDOI returns the first plausible DOI in text, with trailing
// punctuation removed.
func FindDOI(text string) string {
	for _, m := range doiPattern.FindAllString(text, -1) {
		m = strings.TrimRight(m, ".,;:)")
		if valid(m) {
			return m
		}
	}
	return ""
}

func valid(doi string) bool {
	if len(doi) < 10 || !strings.HasPrefix(doi, "10.") {
		return false
	}
	slash := strings.Index(doi, "/")
	return slash != -1 && slash < len(doi)-1
}

// SameDOI compares DOIs case-insensitively, ignoring a resolver prefix.
func SameDOI(a, b string) bool {
	return strings.EqualFold(normalize(a), normalize(b))
}

func normalize(doi string) string {
	doi = strings.TrimSpace(doi)
	for _, prefix := range []string{"https://doi.org/", "http://doi.org/", "https://dx.doi.org/", "doi:"} {
		if len(doi) >= len(prefix) && strings.EqualFold(doi[:len(prefix)], prefix) {
			return doi[len(prefix):]
		}
	}
	return doi
}

// Status classifies a downloaded file against the DOI it was fetched for.
type Status string

const (
	StatusMatch    Status = "match"
	StatusMismatch Status = "mismatch"
	StatusNoDOI    Status = "no-doi"
	StatusInvalid  Status = "invalid"
	StatusMissing  Status = "missing"
)

// Check inspects path and compares its DOI with want.
func Check(path, want string) (Info, Status, error) {
	info, err := Inspect(path)
	if err != nil {
		return info, StatusInvalid, err
	}
	switch {
	case info.Pages == 0:
		return info, StatusInvalid, nil
	case info.DOI == "":
		return info, StatusNoDOI, nil
	case SameDOI(info.DOI, want):
		return info, StatusMatch, nil
	default:
		return info, StatusMismatch, nil
	}
}
