package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/FranksOps/bizcrawl/internal/report"
	"github.com/FranksOps/bizcrawl/internal/storage"
)

var (
	reportRunID  string
	reportFormat string
	reportSince  time.Duration
)

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Summarize stored business records",
	RunE:  runReport,
}

func init() {
	f := reportCmd.Flags()
	f.StringVar(&reportRunID, "run-id", "", "only include records from this run")
	f.StringVar(&reportFormat, "format", "text", "output format: text, json, html")
	f.DurationVar(&reportSince, "since", 0, "only include records newer than this (e.g. 24h)")

	rootCmd.AddCommand(reportCmd)
}

func runReport(cmd *cobra.Command, args []string) error {
	if err := cfg.ValidateOutput(); err != nil {
		return err
	}

	switch reportFormat {
	case "text", "json", "html":
	default:
		return fmt.Errorf("unknown report format %q", reportFormat)
	}

	backend, err := openBackend(cmd.Context(), cfg.Output)
	if err != nil {
		return fmt.Errorf("open %s backend: %w", cfg.Output.Backend, err)
	}
	defer backend.Close()

	filter := storage.Filter{RunID: reportRunID}
	if reportSince > 0 {
		since := time.Now().Add(-reportSince)
		filter.Since = &since
	}

	records, err := backend.Query(cmd.Context(), filter)
	if err != nil {
		return fmt.Errorf("query records: %w", err)
	}

	summary := report.Summarize(records)
	out := cmd.OutOrStdout()

	switch reportFormat {
	case "text":
		return report.WriteText(out, summary)
	case "json":
		return report.WriteJSON(out, summary)
	default:
		return report.WriteHTML(out, summary)
	}
}
