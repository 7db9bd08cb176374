package report

import (
	"encoding/csv"
	"io"
	"strconv"

	"tsa-volume-tracker/internal/series"
)

const dateLayout = "2006-01-02"

// WriteVolumesCSV writes the daily series as date,volume rows.
func WriteVolumesCSV(w io.Writer, obs []series.Observation) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"date", "volume"}); err != nil {
		return err
	}
	for _, o := range obs {
		rec := []string{
			o.Date.Format(dateLayout),
			strconv.FormatInt(o.Volume, 10),
		}
		if err := cw.Write(rec); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteGrowthCSV writes the year-over-year join: each day, the
// prior-year day it was matched against, and the growth percentage.
func WriteGrowthCSV(w io.Writer, growth []series.GrowthPoint) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"date", "volume", "prior_date", "prior_volume", "pct"}); err != nil {
		return err
	}
	for _, g := range growth {
		rec := []string{
			g.Date.Format(dateLayout),
			strconv.FormatInt(g.Volume, 10),
			g.PriorDate.Format(dateLayout),
			strconv.FormatInt(g.PriorVolume, 10),
			strconv.FormatFloat(g.Pct, 'f', 2, 64),
		}
		if err := cw.Write(rec); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}
