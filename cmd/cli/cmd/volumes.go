package cmd

import (
	"os"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	cliapi "tsa-volume-tracker/internal/cli"
)

var volumesCmd = &cobra.Command{
	Use:     "volumes",
	Aliases: []string{"ls", "list"},
	Short:   "List stored daily volumes",
	Long: `List the stored daily checkpoint volumes. By default every stored day
is shown; narrow the listing with --year, --start/--end, or --limit.

On a terminal the listing opens as an interactive table unless --quiet,
--format json, or --interactive=false is given.`,
	RunE: runVolumes,
}

var (
	volumesYear        int
	volumesStart       string
	volumesEnd         string
	volumesLimit       int
	volumesInteractive bool
)

func init() {
	rootCmd.AddCommand(volumesCmd)

	volumesCmd.Flags().IntVar(&volumesYear, "year", 0, "Only volumes from this calendar year")
	volumesCmd.Flags().StringVar(&volumesStart, "start", "", "Range start (YYYY-MM-DD)")
	volumesCmd.Flags().StringVar(&volumesEnd, "end", "", "Range end (YYYY-MM-DD)")
	volumesCmd.Flags().IntVar(&volumesLimit, "limit", 0, "Keep only the newest N days")
	volumesCmd.Flags().BoolVarP(&volumesInteractive, "interactive", "i", false, "Browse in an interactive table")
}

func runVolumes(cmd *cobra.Command, args []string) error {
	cfg, formatter, client, err := initializeClient()
	if err != nil {
		return err
	}

	query := cliapi.VolumeQuery{
		Year:  volumesYear,
		Start: volumesStart,
		End:   volumesEnd,
		Limit: volumesLimit,
	}

	volumes, err := client.GetVolumes(query)
	if err != nil {
		formatter.PrintError(err)
		return err
	}

	interactive := volumesInteractive
	if !cmd.Flags().Changed("interactive") {
		interactive = shouldUseInteractiveMode(cfg, false, isatty.IsTerminal(os.Stdout.Fd()))
	}
	if interactive {
		return runInteractiveTable(volumes, query, client, cfg)
	}

	return formatter.PrintVolumes(volumes)
}

// shouldUseInteractiveMode decides whether the volumes listing opens the
// interactive table. An explicit --interactive always wins; otherwise the
// table only makes sense for human-readable output on a real terminal.
func shouldUseInteractiveMode(config *cliapi.Config, explicitFlag, isTTY bool) bool {
	if explicitFlag {
		return true
	}
	if config.Format != "table" || config.Quiet {
		return false
	}
	if os.Getenv("CI") != "" {
		return false
	}
	return isTTY
}
