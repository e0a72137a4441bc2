// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/pdiddy/papersearch/internal/catalog"
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List past searches recorded in the snapshot catalog",
	Long: `History syncs the catalog with the snapshot files in the data directory and
lists them newest first, with how many papers have a DOI and how many of
those have been downloaded.`,
	RunE: runHistory,
}

func init() {
	historyCmd.Flags().IntP("limit", "n", 20, "maximum number of entries (0 for all)")
	historyCmd.Flags().String("data-dir", "", "snapshot directory (default data/papers)")
	rootCmd.AddCommand(historyCmd)
}

func runHistory(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	limit, _ := cmd.Flags().GetInt("limit")
	dir := cfg.Search.DataDir
	if cmd.Flags().Changed("data-dir") {
		dir, _ = cmd.Flags().GetString("data-dir")
	}

	c, err := catalog.Open(dir, logger)
	if err != nil {
		return err
	}
	defer c.Close()

	s, err := c.Sync(ctx, dir)
	if err != nil {
		return err
	}
	if s.Failed > 0 {
		fmt.Fprintf(cmd.ErrOrStderr(), "Skipped %d unreadable snapshot(s)\n", s.Failed)
	}

	entries, err := c.List(ctx, limit)
	if err != nil {
		return err
	}
	printHistory(cmd.OutOrStdout(), entries)
	return nil
}

func printHistory(w io.Writer, entries []catalog.Entry) {
	if len(entries) == 0 {
		fmt.Fprintln(w, "No saved searches.")
		return
	}
	for _, e := range entries {
		fetched := "unknown"
		if !e.FetchedAt.IsZero() {
			fetched = e.FetchedAt.Local().Format("2006-01-02 15:04")
		}
		fmt.Fprintf(w, "%s  %3d papers  %3d DOI  %3d PDF  %s\n",
			fetched, e.Count, e.WithDOI, e.Downloaded, truncate(e.Query, 60))
		fmt.Fprintf(w, "    %s\n", e.Path)
	}
}
