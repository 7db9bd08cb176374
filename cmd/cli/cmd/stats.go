package cmd

import (
	"github.com/spf13/cobra"
)

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show summary statistics",
	Long: `Show summary statistics over the stored series: latest volume,
year-over-year change, 30-day and year-to-date averages, and the
year-to-date comparison against the prior year.`,
	Args: cobra.NoArgs,
	RunE: runStats,
}

func init() {
	rootCmd.AddCommand(statsCmd)
}

func runStats(cmd *cobra.Command, args []string) error {
	_, formatter, client, err := initializeClient()
	if err != nil {
		return err
	}

	stats, err := client.GetStats()
	if err != nil {
		formatter.PrintError(err)
		return err
	}

	return formatter.PrintStats(stats)
}
