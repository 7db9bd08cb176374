package series

import (
	"errors"
	"math"
	"time"
)

// Summary aggregates the headline numbers for a report.
type Summary struct {
	FirstDate     time.Time `json:"first_date"`
	LatestDate    time.Time `json:"latest_date"`
	LatestVolume  int64     `json:"latest_volume"`
	LatestYoYPct  *float64  `json:"latest_yoy_pct,omitempty"`
	ThirtyDayAvg  int64     `json:"thirty_day_avg"`
	YTDAvg        int64     `json:"ytd_avg"`
	PriorYearAvg  int64     `json:"prior_year_avg"`
	YTDvsPriorPct *float64  `json:"ytd_vs_prior_pct,omitempty"`
	TotalDays     int       `json:"total_days"`
}

// ErrEmptySeries is returned when a summary is requested for a series
// with no observations.
var ErrEmptySeries = errors.New("series: no observations")

// Summarize computes headline statistics over the series: the latest
// day and its growth, the trailing 30-observation mean, and the mean of
// the latest year so far against the full prior-year mean.
func (s *Series) Summarize() (*Summary, error) {
	latest, ok := s.Latest()
	if !ok {
		return nil, ErrEmptySeries
	}

	sum := &Summary{
		FirstDate:    s.points[0].Date,
		LatestDate:   latest.Date,
		LatestVolume: latest.Volume,
		TotalDays:    len(s.points),
		ThirtyDayAvg: roundMean(s.Tail(30)),
	}

	if growth, ok := s.GrowthOn(latest.Date); ok {
		pct := growth.Pct
		sum.LatestYoYPct = &pct
	}

	byYear := s.ByYear()
	currentYear := latest.Date.Year()
	sum.YTDAvg = roundMean(byYear[currentYear])
	sum.PriorYearAvg = roundMean(byYear[currentYear-1])

	if sum.PriorYearAvg > 0 {
		pct := (float64(sum.YTDAvg)/float64(sum.PriorYearAvg) - 1) * 100
		sum.YTDvsPriorPct = &pct
	}

	return sum, nil
}

func roundMean(obs []Observation) int64 {
	if len(obs) == 0 {
		return 0
	}
	var total int64
	for _, o := range obs {
		total += o.Volume
	}
	return int64(math.Round(float64(total) / float64(len(obs))))
}
