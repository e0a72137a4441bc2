// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import "time"

// HTTPConfig holds shared HTTP settings used by components that make
// network requests.
type HTTPConfig struct {
	// Timeout is the HTTP request timeout.
	Timeout time.Duration `json:"timeout" yaml:"timeout" mapstructure:"timeout"`

	// UserAgent is the User-Agent header sent with HTTP requests.
	UserAgent string `json:"user_agent" yaml:"user_agent" mapstructure:"user_agent"`
}

// SearchConfig holds settings for the Scopus search stage.
type SearchConfig struct {
	HTTPConfig `yaml:",inline" mapstructure:",squash"`

	// APIKey is the Elsevier/Scopus API key. Falls back to SCOPUS_API_KEY.
	APIKey string `json:"api_key,omitempty" yaml:"api_key,omitempty" mapstructure:"api_key"`

	// DataDir is where snapshots (papers_*.json) and the catalog live.
	DataDir string `json:"data_dir" yaml:"data_dir" mapstructure:"data_dir"`

	// Sort is the Scopus sort expression (default "-citedby-count").
	Sort string `json:"sort" yaml:"sort" mapstructure:"sort"`

	// PageInterval is the fixed minimum spacing between page requests.
	// Zero disables pacing.
	PageInterval time.Duration `json:"page_interval" yaml:"page_interval" mapstructure:"page_interval"`
}

// DownloadConfig holds settings for the PDF download stage.
type DownloadConfig struct {
	HTTPConfig `yaml:",inline" mapstructure:",squash"`

	// OutputDir is where PDFs are written.
	OutputDir string `json:"output_dir" yaml:"output_dir" mapstructure:"output_dir"`

	// Email is sent to Unpaywall, which requires a contact address.
	Email string `json:"email" yaml:"email" mapstructure:"email"`

	// Delay is the pause between consecutive download attempts.
	Delay time.Duration `json:"delay" yaml:"delay" mapstructure:"delay"`

	// EnableUnpaywall controls the Unpaywall open-access lookup.
	EnableUnpaywall bool `json:"enable_unpaywall" yaml:"enable_unpaywall" mapstructure:"enable_unpaywall"`

	// EnableElsevier controls the ScienceDirect full-text API (needs the
	// Scopus API key).
	EnableElsevier bool `json:"enable_elsevier" yaml:"enable_elsevier" mapstructure:"enable_elsevier"`

	// EnableLandingPage controls the citation_pdf_url landing-page lookup.
	EnableLandingPage bool `json:"enable_landing_page" yaml:"enable_landing_page" mapstructure:"enable_landing_page"`
}

// LoggingConfig configures the diagnostic logger.
type LoggingConfig struct {
	// Level is the minimum level: trace, debug, info, warn, error.
	Level string `json:"level" yaml:"level" mapstructure:"level"`

	// Format is console or json.
	Format string `json:"format" yaml:"format" mapstructure:"format"`
}

// Config groups all settings for the papersearch CLI.
type Config struct {
	Search   SearchConfig   `json:"search" yaml:"search" mapstructure:"search"`
	Download DownloadConfig `json:"download" yaml:"download" mapstructure:"download"`
	Log      LoggingConfig  `json:"log" yaml:"log" mapstructure:"log"`
}
