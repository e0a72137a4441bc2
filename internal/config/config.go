// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package config resolves CLI settings from defaults, a YAML config file,
// environment variables, the .secrets directory, and command-line flags.
//
// Precedence, highest first: flags, environment, config file, secrets,
// defaults. Secrets only fill values nothing else set.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/pdiddy/papersearch/internal/secrets"
	"github.com/pdiddy/papersearch/pkg/types"
)

const (
	// Name is the config file base name and the env prefix.
	Name = "papersearch"

	envPrefix = "PAPERSEARCH"
)

// Config keys shared with flag bindings.
const (
	KeySearchAPIKey    = "search.api_key"
	KeySearchDataDir   = "search.data_dir"
	KeySearchSort      = "search.sort"
	KeySearchTimeout   = "search.timeout"
	KeySearchUserAgent = "search.user_agent"
	KeyPageInterval    = "search.page_interval"
	KeyDownloadDir     = "download.output_dir"
	KeyDownloadEmail   = "download.email"
	KeyDownloadDelay   = "download.delay"
	KeyDownloadTimeout = "download.timeout"
	KeyDownloadAgent   = "download.user_agent"
	KeyEnableUnpaywall = "download.enable_unpaywall"
	KeyEnableElsevier  = "download.enable_elsevier"
	KeyEnableLanding   = "download.enable_landing_page"
	KeyLogLevel        = "log.level"
	KeyLogFormat       = "log.format"
)

// UserAgent returns the User-Agent sent with every request.
func UserAgent(version string) string {
	return fmt.Sprintf("papersearch/%s (Academic Research Tool)", version)
}

// SetDefaults registers the built-in defaults on v.
func SetDefaults(v *viper.Viper, version string) {
	ua := UserAgent(version)

	v.SetDefault(KeySearchAPIKey, "")
	v.SetDefault(KeySearchDataDir, filepath.Join("data", "papers"))
	v.SetDefault(KeySearchSort, "-citedby-count")
	v.SetDefault(KeySearchTimeout, 30*time.Second)
	v.SetDefault(KeySearchUserAgent, ua)
	v.SetDefault(KeyPageInterval, time.Duration(0))

	v.SetDefault(KeyDownloadDir, filepath.Join("data", "pdfs"))
	v.SetDefault(KeyDownloadEmail, "")
	v.SetDefault(KeyDownloadDelay, time.Second)
	v.SetDefault(KeyDownloadTimeout, 60*time.Second)
	v.SetDefault(KeyDownloadAgent, ua)
	v.SetDefault(KeyEnableUnpaywall, true)
	v.SetDefault(KeyEnableElsevier, true)
	v.SetDefault(KeyEnableLanding, false)

	v.SetDefault(KeyLogLevel, "info")
	v.SetDefault(KeyLogFormat, "console")
}

// Init wires v to the environment and reads the config file. cfgFile
// overrides the search path (./papersearch.yaml, then
// ~/.config/papersearch/config.yaml). A missing config file is not an
// error; it returns the path of the file used, or "".
func Init(v *viper.Viper, cfgFile string) (string, error) {
	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		v.SetConfigName(Name)
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(filepath.Join(home, ".config", Name))
		}
	}

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// The provider-conventional names are honored too.
	if err := v.BindEnv(KeySearchAPIKey, envPrefix+"_SEARCH_API_KEY", "SCOPUS_API_KEY"); err != nil {
		return "", err
	}
	if err := v.BindEnv(KeyDownloadEmail, envPrefix+"_DOWNLOAD_EMAIL", "UNPAYWALL_EMAIL"); err != nil {
		return "", err
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) || (cfgFile == "" && errors.Is(err, os.ErrNotExist)) {
			return "", nil
		}
		return "", fmt.Errorf("reading config: %w", err)
	}
	return v.ConfigFileUsed(), nil
}

// Load resolves the final configuration. Secrets fill the API key and
// email when no other layer provides them.
func Load(v *viper.Viper, s secrets.Secrets) (types.Config, error) {
	var cfg types.Config
	if err := v.Unmarshal(&cfg); err != nil {
		return cfg, fmt.Errorf("decoding config: %w", err)
	}

	if cfg.Search.APIKey == "" {
		cfg.Search.APIKey = s.Get(secrets.ScopusAPIKey)
	}
	if cfg.Download.Email == "" {
		cfg.Download.Email = s.Get(secrets.UnpaywallEmail)
	}

	if cfg.Download.Delay < 0 {
		return cfg, fmt.Errorf("download.delay must not be negative, got %s", cfg.Download.Delay)
	}
	if cfg.Search.PageInterval < 0 {
		return cfg, fmt.Errorf("search.page_interval must not be negative, got %s", cfg.Search.PageInterval)
	}
	return cfg, nil
}
