package cmd

import (
	"github.com/spf13/cobra"
)

var schedulerCmd = &cobra.Command{
	Use:   "scheduler",
	Short: "Inspect and control the report scheduler",
	Long: `Inspect and control the server's report scheduler.

Pausing and resuming require the server's admin token; set
TSA_ADMIN_TOKEN to authenticate.`,
}

var schedulerStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the scheduler's schedule and next run",
	Args:  cobra.NoArgs,
	RunE:  runSchedulerStatus,
}

var schedulerPauseCmd = &cobra.Command{
	Use:   "pause",
	Short: "Pause scheduled report runs",
	Args:  cobra.NoArgs,
	RunE:  runSchedulerPause,
}

var schedulerResumeCmd = &cobra.Command{
	Use:   "resume",
	Short: "Resume scheduled report runs",
	Args:  cobra.NoArgs,
	RunE:  runSchedulerResume,
}

func init() {
	rootCmd.AddCommand(schedulerCmd)
	schedulerCmd.AddCommand(schedulerStatusCmd)
	schedulerCmd.AddCommand(schedulerPauseCmd)
	schedulerCmd.AddCommand(schedulerResumeCmd)
}

func runSchedulerStatus(cmd *cobra.Command, args []string) error {
	_, formatter, client, err := initializeClient()
	if err != nil {
		return err
	}

	status, err := client.GetSchedulerStatus()
	if err != nil {
		formatter.PrintError(err)
		return err
	}

	return formatter.PrintSchedulerStatus(status)
}

func runSchedulerPause(cmd *cobra.Command, args []string) error {
	_, formatter, client, err := initializeClient()
	if err != nil {
		return err
	}

	msg, err := client.PauseScheduler()
	if err != nil {
		formatter.PrintError(err)
		return err
	}

	formatter.PrintSuccess(msg.Message)
	return nil
}

func runSchedulerResume(cmd *cobra.Command, args []string) error {
	_, formatter, client, err := initializeClient()
	if err != nil {
		return err
	}

	msg, err := client.ResumeScheduler()
	if err != nil {
		formatter.PrintError(err)
		return err
	}

	formatter.PrintSuccess(msg.Message)
	return nil
}
