// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pdiddy/paper-fetcher/internal/search"
)

var queryCmd = &cobra.Command{
	Use:   "query",
	Short: "Print the arXiv query the search flags compile to",
	Long: `Query validates the search flags and prints the search_query expression
fetch would send to arXiv, without touching the network.`,
	RunE: runQuery,
}

func init() {
	addSearchFlags(queryCmd)
	rootCmd.AddCommand(queryCmd)
}

func runQuery(cmd *cobra.Command, args []string) error {
	v := viper.GetViper()
	if err := bindFlags(v, cmd, searchFlagKeys); err != nil {
		return err
	}
	cfg, err := decodeConfig(v, loadedSecrets)
	if err != nil {
		return err
	}
	if err := cfg.Search.Validate(); err != nil {
		return err
	}

	w := cmd.OutOrStdout()
	fmt.Fprintln(w, search.Compile(cfg.Search))
	if cfg.Search.DateFrom != "" || cfg.Search.DateTo != "" {
		fmt.Fprintf(w, "date filter: %s .. %s (inclusive, applied to results)\n",
			orOpen(cfg.Search.DateFrom), orOpen(cfg.Search.DateTo))
	}
	fmt.Fprintf(w, "max results: %d\n", cfg.Search.MaxResults)
	return nil
}

func orOpen(s string) string {
	if s == "" {
		return "open"
	}
	return s
}
