// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/papersearch/internal/scopus"
)

var abstractCmd = &cobra.Command{
	Use:   "abstract SCOPUS_ID",
	Short: "Fetch the full Scopus abstract record for one paper",
	Args:  cobra.ExactArgs(1),
	RunE:  runAbstract,
}

func init() {
	abstractCmd.Flags().String("format", "json", "output format: json or yaml")
	rootCmd.AddCommand(abstractCmd)
}

func runAbstract(cmd *cobra.Command, args []string) error {
	format, _ := cmd.Flags().GetString("format")
	if format != "json" && format != "yaml" {
		return fmt.Errorf("unknown format %q (want json or yaml)", format)
	}

	client, err := scopus.New(cfg.Search, nil)
	if err != nil {
		return withExit(ExitConfigError, err)
	}
	record, err := client.Abstract(cmd.Context(), args[0])
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if format == "yaml" {
		enc := yaml.NewEncoder(out)
		enc.SetIndent(2)
		if err := enc.Encode(record); err != nil {
			return err
		}
		return enc.Close()
	}
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(record)
}
