// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"text/tabwriter"
	"unicode/utf8"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pdiddy/paper-fetcher/internal/artifact"
	"github.com/pdiddy/paper-fetcher/internal/ledger"
	"github.com/pdiddy/paper-fetcher/internal/run"
	"github.com/pdiddy/paper-fetcher/pkg/types"
)

var ledgerCmd = &cobra.Command{
	Use:   "ledger",
	Short: "Show the papers recorded in an output directory",
	Long: `Ledger prints the rows of <output>/metadata.csv as a table, or as JSON with
--json. With --db the rows come from the SQLite mirror instead, which keeps
every run; --run selects one by id (default: the newest).`,
	RunE: runLedger,
}

func init() {
	f := ledgerCmd.Flags()
	f.Bool("json", false, "output records as JSON")
	f.Bool("db", false, "read ledger.db instead of metadata.csv")
	f.String("run", "", "run id to show from ledger.db (default newest)")

	rootCmd.AddCommand(ledgerCmd)
}

func ledgerPathOf(dir string) string {
	return artifact.Layout{Root: dir}.LedgerPath()
}

// ledgerView is the JSON shape of the ledger command.
type ledgerView struct {
	Manifest *run.Manifest       `json:"manifest,omitempty"`
	Runs     []ledger.RunInfo    `json:"runs,omitempty"`
	Papers   []types.PaperRecord `json:"papers"`
}

func runLedger(cmd *cobra.Command, args []string) error {
	cfg, err := decodeConfig(viper.GetViper(), loadedSecrets)
	if err != nil {
		return err
	}
	asJSON, _ := cmd.Flags().GetBool("json")
	fromDB, _ := cmd.Flags().GetBool("db")
	runID, _ := cmd.Flags().GetString("run")

	layout := artifact.Layout{Root: cfg.Output.Dir}
	var view ledgerView
	if fromDB {
		view.Runs, view.Papers, err = ledger.ReadSQLite(layout.SQLitePath(), runID)
	} else {
		view.Papers, err = ledger.ReadCSV(layout.LedgerPath())
	}
	if err != nil {
		return err
	}
	if view.Papers == nil {
		view.Papers = []types.PaperRecord{}
	}
	if m, err := run.ReadManifest(layout.ManifestPath()); err == nil {
		view.Manifest = m
	} else if !errors.Is(err, fs.ErrNotExist) {
		fmt.Fprintf(cmd.ErrOrStderr(), "warning: %v\n", err)
	}

	w := cmd.OutOrStdout()
	if asJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(view)
	}
	writeLedgerTable(w, view)
	return nil
}

func writeLedgerTable(w io.Writer, view ledgerView) {
	if m := view.Manifest; m != nil {
		fmt.Fprintf(w, "Run %s (%s), query %s\n", m.RunID, m.Outcome, m.Query)
	}
	if len(view.Papers) == 0 {
		fmt.Fprintln(w, "No papers recorded.")
		return
	}
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tPUBLISHED\tPAGES\tENCRYPTED\tTEXT\tTITLE")
	for _, p := range view.Papers {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%t\t%s\n",
			p.Seq, p.Published, p.PagesString(), p.Encrypted, p.TextExtracted, clip(p.Title, 60))
	}
	tw.Flush()
	fmt.Fprintf(w, "\n%d papers\n", len(view.Papers))
}

func clip(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n-3]) + "..."
}
