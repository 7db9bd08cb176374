package cmd

import (
	"context"
	"os"

	"github.com/charmbracelet/fang"
	"github.com/spf13/cobra"

	cliapi "tsa-volume-tracker/internal/cli"
	"tsa-volume-tracker/internal/config"
)

var (
	serverURL string
	format    string
	quiet     bool
	noColor   bool
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "tsa-tracker",
	Short: "CLI client for the TSA volume tracker API",
	Long: `TSA Tracker CLI talks to the volume tracker server. You can list the
stored daily checkpoint volumes, show the latest observation with its
year-over-year change, trigger report runs, and inspect the scheduler.`,
	Version: "1.0.0",
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	fang.Execute(context.Background(), rootCmd)
}

func init() {
	// Global flags. Defaults stay empty so that TSA_SERVER and friends
	// from the environment are not shadowed by the flag defaults.
	rootCmd.PersistentFlags().StringVarP(&serverURL, "server", "s", "", "API server address (default http://localhost:8080)")
	rootCmd.PersistentFlags().StringVarP(&format, "format", "f", "", "Output format (table, json)")
	rootCmd.PersistentFlags().BoolVarP(&quiet, "quiet", "q", false, "Quiet mode (minimal output)")
	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "Disable color output")
}

// initializeClient sets up configuration, formatter, and API client
func initializeClient() (*cliapi.Config, *cliapi.OutputFormatter, *cliapi.Client, error) {
	cfg, err := config.LoadCLIConfig()
	if err != nil {
		return nil, nil, nil, err
	}

	// CLI flags override environment and config file
	if serverURL != "" {
		cfg.ServerURL = serverURL
	}
	if format != "" {
		cfg.Format = format
	}
	if quiet {
		cfg.Quiet = true
	}
	if noColor {
		cfg.NoColor = true
	}
	if err := cfg.Validate(); err != nil {
		return nil, nil, nil, err
	}

	formatter := cliapi.NewOutputFormatterWithColor(cfg.Format, cfg.Quiet, cfg.NoColor)
	client := cliapi.NewClientWithTimeout(cfg.ServerURL, cfg.RequestTimeout)
	if token := os.Getenv("TSA_ADMIN_TOKEN"); token != "" {
		client.SetAdminToken(token)
	}

	// Test connectivity
	if err := client.HealthCheck(); err != nil {
		formatter.PrintError(err)
		return nil, nil, nil, err
	}

	return cfg, formatter, client, nil
}
