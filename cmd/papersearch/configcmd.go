// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"strings"

	"github.com/spf13/cobra"
	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/papersearch/pkg/types"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Print the resolved configuration as YAML",
	Long: `Config prints the configuration after defaults, the config file, environment
variables, and .secrets have been applied. The API key is masked.`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		enc := yaml.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent(2)
		if err := enc.Encode(masked(cfg)); err != nil {
			return err
		}
		return enc.Close()
	},
}

func init() {
	rootCmd.AddCommand(configCmd)
}

// masked returns c with the API key reduced to its last four characters.
func masked(c types.Config) types.Config {
	if k := c.Search.APIKey; k != "" {
		keep := min(4, len(k)/2)
		c.Search.APIKey = strings.Repeat("*", len(k)-keep) + k[len(k)-keep:]
	}
	return c
}
