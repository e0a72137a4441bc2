// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

// SourceCached marks a result satisfied by a file already on disk.
const SourceCached = "cached"

// DownloadResult is the outcome of one PDF download attempt. It is never
// persisted; batches are summarized into DownloadStats.
type DownloadResult struct {
	Paper   Paper
	Success bool

	// Path is where the PDF was written (or found, for cached results).
	Path string

	// Error is the human-readable failure reason. Empty on success.
	Error string

	// Source tags where the file came from, e.g. "unpaywall:repository",
	// "elsevier", or SourceCached.
	Source string

	// Err carries the failure kind for errors.Is checks.
	Err error `json:"-" yaml:"-"`
}

// DownloadStats aggregates a batch of DownloadResults.
type DownloadStats struct {
	Total      int `json:"total" yaml:"total"`
	Successful int `json:"successful" yaml:"successful"`
	Failed     int `json:"failed" yaml:"failed"`

	// SuccessRate is a percentage in [0, 100]; 0 for an empty batch.
	SuccessRate float64 `json:"success_rate" yaml:"success_rate"`

	// Sources counts successful results per source tag.
	Sources map[string]int `json:"sources" yaml:"sources"`

	// Errors counts failed results per error message.
	Errors map[string]int `json:"errors" yaml:"errors"`
}
