package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"
	"text/tabwriter"

	"tsa-volume-tracker/internal/database"
	"tsa-volume-tracker/internal/series"
)

// OutputFormatter handles different output formats
type OutputFormatter struct {
	format  string
	quiet   bool
	noColor bool
}

// NewOutputFormatter creates a new output formatter
func NewOutputFormatter(format string, quiet bool) *OutputFormatter {
	return NewOutputFormatterWithColor(format, quiet, false)
}

// NewOutputFormatterWithColor creates a formatter with explicit color control
func NewOutputFormatterWithColor(format string, quiet bool, noColor bool) *OutputFormatter {
	return &OutputFormatter{
		format:  format,
		quiet:   quiet,
		noColor: noColor,
	}
}

// PrintVolumes prints a list of daily volumes
func (f *OutputFormatter) PrintVolumes(volumes []database.DailyVolume) error {
	if f.quiet {
		for _, volume := range volumes {
			fmt.Printf("%s\t%d\n", volume.Date.Format("2006-01-02"), volume.Volume)
		}
		return nil
	}

	switch f.format {
	case "json":
		return json.NewEncoder(os.Stdout).Encode(volumes)
	case "table":
		return f.printVolumesTable(volumes)
	default:
		return fmt.Errorf("unsupported format: %s", f.format)
	}
}

// PrintLatest prints the newest observation with its YoY comparison
func (f *OutputFormatter) PrintLatest(latest *LatestVolume) error {
	if f.quiet {
		fmt.Printf("%d\n", latest.Volume)
		return nil
	}

	switch f.format {
	case "json":
		return json.NewEncoder(os.Stdout).Encode(latest)
	case "table":
		fmt.Printf("Date: %s (%s)\n", latest.Date.Format("2006-01-02"), latest.Date.Weekday())
		fmt.Printf("Volume: %s travelers\n", FormatCount(latest.Volume))
		fmt.Printf("Scraped: %s\n", latest.ScrapedAt.Format("2006-01-02 15:04:05"))
		if latest.YoY != nil {
			fmt.Printf("Prior year: %s, %s travelers\n",
				latest.YoY.PriorDate.Format("2006-01-02"),
				FormatCount(latest.YoY.PriorVolume))
			fmt.Printf("YoY change: %+.2f%%\n", latest.YoY.Pct)
		} else {
			fmt.Println("YoY change: n/a (no prior-year observation)")
		}
		return nil
	default:
		return fmt.Errorf("unsupported format: %s", f.format)
	}
}

// PrintStats prints the summary statistics
func (f *OutputFormatter) PrintStats(stats *series.Summary) error {
	if f.quiet {
		fmt.Printf("%d\n", stats.LatestVolume)
		return nil
	}

	switch f.format {
	case "json":
		return json.NewEncoder(os.Stdout).Encode(stats)
	case "table":
		fmt.Printf("First date: %s\n", stats.FirstDate.Format("2006-01-02"))
		fmt.Printf("Latest date: %s\n", stats.LatestDate.Format("2006-01-02"))
		fmt.Printf("Latest volume: %s\n", FormatCount(stats.LatestVolume))
		fmt.Printf("Latest YoY: %s\n", formatPct(stats.LatestYoYPct))
		fmt.Printf("30-day average: %s\n", FormatCount(stats.ThirtyDayAvg))
		fmt.Printf("YTD average: %s\n", FormatCount(stats.YTDAvg))
		fmt.Printf("Prior-year average: %s\n", FormatCount(stats.PriorYearAvg))
		fmt.Printf("YTD vs prior year: %s\n", formatPct(stats.YTDvsPriorPct))
		fmt.Printf("Days recorded: %d\n", stats.TotalDays)
		return nil
	default:
		return fmt.Errorf("unsupported format: %s", f.format)
	}
}

// PrintReports prints a list of report runs
func (f *OutputFormatter) PrintReports(runs []database.ReportRun) error {
	if f.quiet {
		for _, run := range runs {
			fmt.Printf("%d\n", run.ID)
		}
		return nil
	}

	switch f.format {
	case "json":
		return json.NewEncoder(os.Stdout).Encode(runs)
	case "table":
		return f.printReportsTable(runs)
	default:
		return fmt.Errorf("unsupported format: %s", f.format)
	}
}

// PrintReport prints a single report run
func (f *OutputFormatter) PrintReport(run *database.ReportRun) error {
	if f.quiet {
		fmt.Printf("%d\n", run.ID)
		return nil
	}

	switch f.format {
	case "json":
		return json.NewEncoder(os.Stdout).Encode(run)
	case "table":
		fmt.Printf("Run ID: %d\n", run.ID)
		fmt.Printf("Run at: %s\n", run.RunAt.Format("2006-01-02 15:04:05"))
		fmt.Printf("Triggered by: %s\n", run.TriggeredBy)
		fmt.Printf("Status: %s (%d)\n", runStatus(run.Success), run.StatusCode)
		fmt.Printf("Message: %s\n", run.Message)
		if run.LatestDataDate != nil {
			fmt.Printf("Latest data date: %s\n", run.LatestDataDate.Format("2006-01-02"))
		}
		fmt.Printf("Rows scraped: %d\n", run.RowsScraped)
		if run.ChartPath != "" {
			fmt.Printf("Chart: %s\n", run.ChartPath)
		}
		fmt.Printf("Emailed: %v\n", run.Emailed)
		return nil
	default:
		return fmt.Errorf("unsupported format: %s", f.format)
	}
}

// PrintRunResult prints the outcome of a triggered report run
func (f *OutputFormatter) PrintRunResult(result *RunResponse) error {
	if f.quiet {
		fmt.Printf("%d\n", result.StatusCode)
		return nil
	}

	if f.format == "json" {
		return json.NewEncoder(os.Stdout).Encode(result)
	}

	if result.Success {
		f.PrintSuccess(result.Message)
	} else {
		f.PrintError(fmt.Errorf("%s", result.Message))
	}
	if result.RowsScraped > 0 {
		f.PrintInfo(fmt.Sprintf("Rows scraped: %d", result.RowsScraped))
	}
	if result.LatestDataDate != nil {
		f.PrintInfo(fmt.Sprintf("Latest data date: %s", result.LatestDataDate.Format("2006-01-02")))
	}
	if result.ChartPath != "" {
		f.PrintInfo(fmt.Sprintf("Chart: %s", result.ChartPath))
	}
	if result.Emailed {
		f.PrintInfo("Report emailed")
	}
	return nil
}

// PrintSchedulerStatus prints the scheduler state
func (f *OutputFormatter) PrintSchedulerStatus(status *SchedulerStatus) error {
	if f.quiet {
		if status.Paused {
			fmt.Println("paused")
		} else {
			fmt.Println("running")
		}
		return nil
	}

	switch f.format {
	case "json":
		return json.NewEncoder(os.Stdout).Encode(status)
	case "table":
		fmt.Printf("Schedule: %s (%s)\n", status.Schedule, status.Timezone)
		fmt.Printf("Running: %v\n", status.Running)
		fmt.Printf("Paused: %v\n", status.Paused)
		fmt.Printf("Next run: %s\n", status.NextRun.Format("2006-01-02 15:04 MST"))
		return nil
	default:
		return fmt.Errorf("unsupported format: %s", f.format)
	}
}

// PrintSuccess prints a success message
func (f *OutputFormatter) PrintSuccess(message string) {
	if !f.quiet {
		fmt.Printf("✓ %s\n", message)
	}
}

// PrintError prints an error message
func (f *OutputFormatter) PrintError(err error) {
	if !f.quiet {
		fmt.Fprintf(os.Stderr, "✗ Error: %v\n", err)
	}
}

// PrintInfo prints an informational message
func (f *OutputFormatter) PrintInfo(message string) {
	if !f.quiet {
		fmt.Printf("ℹ %s\n", message)
	}
}

// printVolumesTable prints volumes in table format
func (f *OutputFormatter) printVolumesTable(volumes []database.DailyVolume) error {
	if len(volumes) == 0 {
		fmt.Println("No volume data found.")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	defer w.Flush()

	fmt.Fprintln(w, "DATE\tDAY\tVOLUME\tSOURCE\tSCRAPED")

	for _, volume := range volumes {
		fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%s\n",
			volume.Date.Format("2006-01-02"),
			volume.Date.Weekday().String()[:3],
			FormatCount(volume.Volume),
			volume.SourceYear,
			volume.ScrapedAt.Format("2006-01-02"))
	}

	return nil
}

// printReportsTable prints report runs in table format
func (f *OutputFormatter) printReportsTable(runs []database.ReportRun) error {
	if len(runs) == 0 {
		fmt.Println("No report runs recorded.")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	defer w.Flush()

	fmt.Fprintln(w, "ID\tRUN AT\tTRIGGER\tSTATUS\tROWS\tEMAILED\tMESSAGE")

	for _, run := range runs {
		fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%d\t%s\t%s\n",
			run.ID,
			run.RunAt.Format("2006-01-02 15:04"),
			run.TriggeredBy,
			runStatus(run.Success),
			run.RowsScraped,
			yesNo(run.Emailed),
			truncate(run.Message, 40))
	}

	return nil
}

func runStatus(success bool) string {
	if success {
		return "ok"
	}
	return "failed"
}

func yesNo(v bool) string {
	if v {
		return "Yes"
	}
	return "No"
}

// formatPct renders an optional percentage, n/a when absent
func formatPct(pct *float64) string {
	if pct == nil {
		return "n/a"
	}
	return fmt.Sprintf("%+.2f%%", *pct)
}

// FormatCount renders 2204000 as "2,204,000"
func FormatCount(n int64) string {
	s := strconv.FormatInt(n, 10)
	negative := strings.HasPrefix(s, "-")
	if negative {
		s = s[1:]
	}

	var b strings.Builder
	lead := len(s) % 3
	if lead > 0 {
		b.WriteString(s[:lead])
	}
	for i := lead; i < len(s); i += 3 {
		if b.Len() > 0 {
			b.WriteByte(',')
		}
		b.WriteString(s[i : i+3])
	}

	if negative {
		return "-" + b.String()
	}
	return b.String()
}

// truncate truncates a string to the specified length
func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen-3] + "..."
}
