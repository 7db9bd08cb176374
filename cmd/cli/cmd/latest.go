package cmd

import (
	"github.com/spf13/cobra"
)

var latestCmd = &cobra.Command{
	Use:   "latest",
	Short: "Show the most recent day's volume",
	Long: `Show the most recent checkpoint volume on record, with the
year-over-year comparison when a prior-year observation exists.`,
	Args: cobra.NoArgs,
	RunE: runLatest,
}

func init() {
	rootCmd.AddCommand(latestCmd)
}

func runLatest(cmd *cobra.Command, args []string) error {
	_, formatter, client, err := initializeClient()
	if err != nil {
		return err
	}

	latest, err := client.GetLatestVolume()
	if err != nil {
		formatter.PrintError(err)
		return err
	}

	return formatter.PrintLatest(latest)
}
