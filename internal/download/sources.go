// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package download

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/rs/zerolog"

	"github.com/pdiddy/papersearch/internal/httputil"
	"github.com/pdiddy/papersearch/pkg/types"
)

// Lookup endpoints. Declared as vars so tests can substitute an httptest
// server.
var (
	unpaywallAPIBase = "https://api.unpaywall.org/v2"
	elsevierAPIBase  = "https://api.elsevier.com/content/article/doi/"
	doiResolverBase  = "https://doi.org/"
)

// DefaultEmail is sent to Unpaywall when no contact address is configured.
const DefaultEmail = "user@example.com"

// elsevierPrefix is the DOI registrant prefix for Elsevier journals.
const elsevierPrefix = "10.1016/"

// Location is a resolved PDF URL plus any headers the fetch needs.
type Location struct {
	URL    string
	Header http.Header

	// Tag becomes the DownloadResult source, e.g. "unpaywall:repository".
	Tag string

	Version string
	License string
}

// Source resolves a DOI to a PDF location. Locate returns nil when the
// source has nothing for the DOI; lookup failures are reported the same
// way.
type Source interface {
	Name() string
	Locate(ctx context.Context, doi string) *Location
}

// NewSources builds the enabled sources in lookup order: Unpaywall,
// Elsevier, landing page. apiKey enables the Elsevier source.
func NewSources(cfg types.DownloadConfig, apiKey string, client *http.Client, log zerolog.Logger) []Source {
	var out []Source
	if cfg.EnableUnpaywall {
		out = append(out, &Unpaywall{Client: client, Email: cfg.Email, UserAgent: cfg.UserAgent, Log: log})
	}
	if cfg.EnableElsevier && apiKey != "" {
		out = append(out, &Elsevier{APIKey: apiKey})
	}
	if cfg.EnableLandingPage {
		out = append(out, &LandingPage{Client: client, UserAgent: cfg.UserAgent, Log: log})
	}
	return out
}

// Unpaywall looks up open-access copies by DOI.
type Unpaywall struct {
	Client    *http.Client
	Email     string
	UserAgent string
	Log       zerolog.Logger
}

type unpaywallResponse struct {
	BestOALocation *oaLocation  `json:"best_oa_location"`
	OALocations    []oaLocation `json:"oa_locations"`
}

type oaLocation struct {
	URLForPDF string `json:"url_for_pdf"`
	HostType  string `json:"host_type"`
	Version   string `json:"version"`
	License   string `json:"license"`
}

// Name returns the source identifier.
func (u *Unpaywall) Name() string { return "unpaywall" }

// Locate prefers best_oa_location's PDF URL, then the first OA location
// that has one. 404 and every other failure yield nil.
func (u *Unpaywall) Locate(ctx context.Context, doi string) *Location {
	loc, err := u.lookup(ctx, doi)
	if err != nil {
		if !httputil.IsNotFound(err) {
			u.Log.Debug().Err(err).Str("doi", doi).Msg("unpaywall lookup failed")
		}
		return nil
	}
	return loc
}

func (u *Unpaywall) lookup(ctx context.Context, doi string) (*Location, error) {
	email := u.Email
	if email == "" {
		email = DefaultEmail
	}
	apiURL := unpaywallAPIBase + "/" + doi + "?" + url.Values{"email": {email}}.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, apiURL, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	if u.UserAgent != "" {
		req.Header.Set("User-Agent", u.UserAgent)
	}

	resp, err := u.Client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if err := httputil.CheckStatus(resp); err != nil {
		return nil, err
	}

	var data unpaywallResponse
	if err := json.NewDecoder(resp.Body).Decode(&data); err != nil {
		return nil, fmt.Errorf("parsing Unpaywall response: %w", err)
	}

	if best := data.BestOALocation; best != nil && best.URLForPDF != "" {
		return best.location(), nil
	}
	for _, l := range data.OALocations {
		if l.URLForPDF != "" {
			return l.location(), nil
		}
	}
	return nil, nil
}

func (l oaLocation) location() *Location {
	return &Location{
		URL:     l.URLForPDF,
		Tag:     "unpaywall:" + orUnknown(l.HostType),
		Version: orUnknown(l.Version),
		License: orUnknown(l.License),
	}
}

func orUnknown(s string) string {
	if s == "" {
		return "unknown"
	}
	return s
}

// Elsevier fetches full text through the ScienceDirect article API. It
// only handles Elsevier DOIs and needs the same key as Scopus; the
// entitlement check happens on the download itself.
type Elsevier struct {
	APIKey string
}

// Name returns the source identifier.
func (e *Elsevier) Name() string { return "elsevier" }

// Locate returns the article endpoint for 10.1016/ DOIs.
func (e *Elsevier) Locate(_ context.Context, doi string) *Location {
	if e.APIKey == "" || !strings.HasPrefix(strings.ToLower(doi), elsevierPrefix) {
		return nil
	}
	h := http.Header{}
	h.Set("X-ELS-APIKey", e.APIKey)
	h.Set("Accept", "application/pdf")
	return &Location{
		URL:    elsevierAPIBase + doi,
		Header: h,
		Tag:    "elsevier",
	}
}

// LandingPage resolves the DOI to the publisher landing page and reads its
// citation_pdf_url meta tag, which most publishers emit for indexers.
type LandingPage struct {
	Client    *http.Client
	UserAgent string
	Log       zerolog.Logger
}

// Name returns the source identifier.
func (l *LandingPage) Name() string { return "landing" }

// Locate returns the citation_pdf_url of the landing page, resolved
// against the final page URL.
func (l *LandingPage) Locate(ctx context.Context, doi string) *Location {
	pdfURL, err := l.lookup(ctx, doi)
	if err != nil {
		l.Log.Debug().Err(err).Str("doi", doi).Msg("landing page lookup failed")
		return nil
	}
	if pdfURL == "" {
		return nil
	}
	return &Location{URL: pdfURL, Tag: "landing"}
}

func (l *LandingPage) lookup(ctx context.Context, doi string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, doiResolverBase+doi, nil)
	if err != nil {
		return "", fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Accept", "text/html")
	if l.UserAgent != "" {
		req.Header.Set("User-Agent", l.UserAgent)
	}

	resp, err := l.Client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if err := httputil.CheckStatus(resp); err != nil {
		return "", err
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return "", fmt.Errorf("parsing landing page: %w", err)
	}

	href, ok := doc.Find(`meta[name="citation_pdf_url"]`).First().Attr("content")
	href = strings.TrimSpace(href)
	if !ok || href == "" {
		return "", nil
	}

	ref, err := url.Parse(href)
	if err != nil {
		return "", fmt.Errorf("parsing citation_pdf_url: %w", err)
	}
	return resp.Request.URL.ResolveReference(ref).String(), nil
}
