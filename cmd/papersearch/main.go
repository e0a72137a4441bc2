// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package main is the entry point for the papersearch CLI.
//
// papersearch searches Scopus, saves result sets as JSON snapshots, and
// downloads open-access PDFs for papers picked from a snapshot.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pdiddy/papersearch/internal/config"
	"github.com/pdiddy/papersearch/internal/logging"
	"github.com/pdiddy/papersearch/internal/secrets"
	"github.com/pdiddy/papersearch/pkg/types"
)

// version is set at build time via ldflags.
var version = "dev"

// Resolved at startup by setup.
var (
	cfg    types.Config
	logger = zerolog.Nop()
)

// rootCmd is the base command for the papersearch CLI.
var rootCmd = &cobra.Command{
	Use:   "papersearch",
	Short: "Search Scopus and download open-access PDFs",
	Long: `papersearch supports literature review in two steps. search queries Scopus
with a structured or raw query and saves the results as a timestamped JSON
snapshot alongside a Markdown review summary. download loads a snapshot, lets
you pick papers by number, and fetches open-access PDFs by DOI.

The Scopus API key is read from --config, SCOPUS_API_KEY (a .env file is
honored), or .secrets/scopus-api-key.`,
	SilenceUsage:      true,
	SilenceErrors:     true,
	PersistentPreRunE: setup,
}

func init() {
	rootCmd.PersistentFlags().String("config", "", "config file (default: ./papersearch.yaml or ~/.config/papersearch/config.yaml)")
	rootCmd.PersistentFlags().String("log-level", "", "log level: trace, debug, info, warn, error")
	rootCmd.PersistentFlags().String("log-format", "", "log format: console or json")

	viper.BindPFlag(config.KeyLogLevel, rootCmd.PersistentFlags().Lookup("log-level"))
	viper.BindPFlag(config.KeyLogFormat, rootCmd.PersistentFlags().Lookup("log-format"))
}

// setup loads .env, the config file, and .secrets, then builds the logger.
func setup(cmd *cobra.Command, _ []string) error {
	// A missing .env is normal.
	_ = godotenv.Load()

	logger = logging.New(types.LoggingConfig{}, cmd.ErrOrStderr())

	v := viper.GetViper()
	config.SetDefaults(v, version)

	cfgFile, _ := cmd.Flags().GetString("config")
	used, err := config.Init(v, cfgFile)
	if err != nil {
		return withExit(ExitConfigError, err)
	}

	s, err := secrets.Load(secrets.DefaultDir, logger)
	if err != nil {
		return withExit(ExitConfigError, err)
	}

	cfg, err = config.Load(v, s)
	if err != nil {
		return withExit(ExitConfigError, err)
	}

	logger = logging.New(cfg.Log, cmd.ErrOrStderr())
	if used != "" {
		logger.Debug().Str("file", used).Msg("using config file")
	}
	if len(s) > 0 {
		logger.Debug().Strs("keys", s.Keys()).Msg("loaded secrets")
	}
	return nil
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()

	code := exitCode(err)
	if err != nil && !errors.Is(err, errSilent) {
		fmt.Fprintln(os.Stderr, "Error:", err)
	}
	os.Exit(code)
}
