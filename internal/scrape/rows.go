package scrape

import (
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"tsa-volume-tracker/internal/series"
)

// ParseVolumeDate parses the date formats the TSA pages have used:
// M/D/YYYY, M/D/YY (two-digit years are 20xx), and ISO YYYY-MM-DD.
func ParseVolumeDate(text string) (time.Time, error) {
	s := strings.TrimSpace(text)
	if s == "" {
		return time.Time{}, fmt.Errorf("empty date")
	}

	if parts := strings.Split(s, "/"); len(parts) == 3 {
		year := strings.TrimSpace(parts[2])
		if len(year) == 2 {
			year = "20" + year
		}
		s = strings.TrimSpace(parts[0]) + "/" + strings.TrimSpace(parts[1]) + "/" + year
		t, err := time.Parse("1/2/2006", s)
		if err != nil {
			return time.Time{}, fmt.Errorf("invalid date %q: %w", text, err)
		}
		return t, nil
	}

	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q: %w", text, err)
	}
	return t, nil
}

// ParseVolume parses a comma-grouped passenger count such as "2,203,329".
func ParseVolume(text string) (int64, error) {
	s := strings.ReplaceAll(strings.TrimSpace(text), ",", "")
	if s == "" {
		return 0, fmt.Errorf("empty volume")
	}
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid volume %q: %w", text, err)
	}
	if n <= 0 {
		return 0, fmt.Errorf("non-positive volume %d", n)
	}
	return n, nil
}

// Normalize converts raw table rows into dated observations. Rows that fail
// to parse (td-based header rows, footnotes, malformed cells) are dropped
// and logged rather than failing the whole page.
func Normalize(rows []Row, sourceYear int, logger *slog.Logger) []series.Observation {
	if logger == nil {
		logger = slog.Default()
	}

	obs := make([]series.Observation, 0, len(rows))
	for _, row := range rows {
		date, err := ParseVolumeDate(row.DateText)
		if err != nil {
			logger.Debug("dropping row with unparseable date",
				"year", sourceYear,
				"date_text", row.DateText)
			continue
		}
		volume, err := ParseVolume(row.VolumeText)
		if err != nil {
			logger.Warn("dropping row with invalid volume",
				"year", sourceYear,
				"date", date.Format("2006-01-02"),
				"volume_text", row.VolumeText)
			continue
		}
		obs = append(obs, series.Observation{
			Date:       date,
			Volume:     volume,
			SourceYear: sourceYear,
		})
	}
	return obs
}
