package cmd

import (
	"github.com/spf13/cobra"
)

var reportsLimit int

var reportsCmd = &cobra.Command{
	Use:     "reports",
	Aliases: []string{"runs"},
	Short:   "List recent report runs",
	Long: `List recent report runs, newest first, with their trigger source,
status, and whether the report email went out.`,
	Args: cobra.NoArgs,
	RunE: runReports,
}

var reportsLatestCmd = &cobra.Command{
	Use:   "latest",
	Short: "Show the most recent report run",
	Args:  cobra.NoArgs,
	RunE:  runReportsLatest,
}

func init() {
	rootCmd.AddCommand(reportsCmd)
	reportsCmd.AddCommand(reportsLatestCmd)

	reportsCmd.Flags().IntVar(&reportsLimit, "limit", 20, "Maximum number of runs to show")
}

func runReports(cmd *cobra.Command, args []string) error {
	_, formatter, client, err := initializeClient()
	if err != nil {
		return err
	}

	runs, err := client.GetReports(reportsLimit)
	if err != nil {
		formatter.PrintError(err)
		return err
	}

	return formatter.PrintReports(runs)
}

func runReportsLatest(cmd *cobra.Command, args []string) error {
	_, formatter, client, err := initializeClient()
	if err != nil {
		return err
	}

	run, err := client.GetLatestReport()
	if err != nil {
		formatter.PrintError(err)
		return err
	}

	return formatter.PrintReport(run)
}
