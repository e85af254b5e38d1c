// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pdiddy/paper-fetcher/internal/artifact"
	"github.com/pdiddy/paper-fetcher/internal/pdftext"
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze",
	Short: "Report page counts and encryption of downloaded PDFs",
	Long: `Analyze inspects every PDF under <output>/pdfs and prints its page count
and encryption status, followed by totals. Files that cannot be parsed are
reported and counted but do not stop the batch.`,
	RunE: runAnalyze,
}

func init() {
	rootCmd.AddCommand(analyzeCmd)
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	cfg, err := decodeConfig(viper.GetViper(), loadedSecrets)
	if err != nil {
		return err
	}
	layout := artifact.Layout{Root: cfg.Output.Dir}

	report, err := pdftext.AnalyzeDir(pdftext.NewReader(), layout.PDFRoot(), cmd.OutOrStdout())
	if err != nil {
		return err
	}
	if report.Failed > 0 {
		return fmt.Errorf("%d PDF(s) could not be analyzed", report.Failed)
	}
	return nil
}
