package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	cliapi "tsa-volume-tracker/internal/cli"
)

var (
	runForce  bool
	runDryRun bool
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Trigger a report run on the server",
	Long: `Trigger a scrape-and-report cycle on the server, exactly as the
scheduler would run it: fetch the TSA year pages, merge the rows into
the stored series, render the chart, and send the report email.

A run started this way counts against the server's cooldown window
unless --force is given, which also bypasses the page cache. With
--dry-run the server scrapes, stores, and builds the report but skips
email delivery.`,
	Args: cobra.NoArgs,
	RunE: runReport,
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().BoolVar(&runForce, "force", false, "Bypass the run cooldown and page cache")
	runCmd.Flags().BoolVar(&runDryRun, "dry-run", false, "Build the report without emailing it")
}

func runReport(cmd *cobra.Command, args []string) error {
	cfg, formatter, client, err := initializeClient()
	if err != nil {
		return err
	}

	// A run scrapes every year page before responding, so show
	// progress unless the output is meant for machines.
	var spinner *cliapi.ProgressSpinner
	if !cfg.Quiet && cfg.Format == "table" {
		spinner = cliapi.NewProgressSpinner("Generating report", cfg.NoColor)
		spinner.Start()
	}

	result, err := client.TriggerRun(runForce, runDryRun)

	if spinner != nil {
		spinner.Stop()
	}

	if err != nil {
		formatter.PrintError(err)
		return err
	}

	if err := formatter.PrintRunResult(result); err != nil {
		return err
	}

	if !result.Success {
		return fmt.Errorf("report run failed: %s", result.Message)
	}
	return nil
}
