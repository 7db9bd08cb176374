package series

import "time"

// GrowthPoint pairs a day's volume with the comparable day one year
// earlier and the resulting growth figures.
type GrowthPoint struct {
	Date        time.Time `json:"date"`
	Volume      int64     `json:"volume"`
	PriorDate   time.Time `json:"prior_date"`
	PriorVolume int64     `json:"prior_volume"`
	Ratio       float64   `json:"ratio"`
	Pct         float64   `json:"pct"`
}

// maxPriorOffset bounds the search for a comparable day when the exact
// 365-day-earlier date is missing from the series.
const maxPriorOffset = 3

// YearOverYear computes growth for every observation that has a usable
// counterpart one year earlier. The counterpart is the observation 365
// days back; when that date is absent (gaps, holidays), nearby dates up
// to maxPriorOffset days away are tried, closest first. Counterparts
// with non-positive volume are ignored.
func (s *Series) YearOverYear() []GrowthPoint {
	var out []GrowthPoint
	for _, p := range s.points {
		target := p.Date.AddDate(0, 0, -365)
		priorDate, priorVolume, ok := s.findPrior(target)
		if !ok {
			continue
		}
		ratio := float64(p.Volume) / float64(priorVolume)
		out = append(out, GrowthPoint{
			Date:        p.Date,
			Volume:      p.Volume,
			PriorDate:   priorDate,
			PriorVolume: priorVolume,
			Ratio:       ratio,
			Pct:         (ratio - 1) * 100,
		})
	}
	return out
}

// GrowthOn computes the growth point for a single date, if possible.
func (s *Series) GrowthOn(date time.Time) (GrowthPoint, bool) {
	volume, ok := s.VolumeOn(date)
	if !ok {
		return GrowthPoint{}, false
	}
	target := date.AddDate(0, 0, -365)
	priorDate, priorVolume, found := s.findPrior(target)
	if !found {
		return GrowthPoint{}, false
	}
	ratio := float64(volume) / float64(priorVolume)
	return GrowthPoint{
		Date:        date,
		Volume:      volume,
		PriorDate:   priorDate,
		PriorVolume: priorVolume,
		Ratio:       ratio,
		Pct:         (ratio - 1) * 100,
	}, true
}

func (s *Series) findPrior(target time.Time) (time.Time, int64, bool) {
	for offset := 0; offset <= maxPriorOffset; offset++ {
		for _, sign := range []int{1, -1} {
			if offset == 0 && sign == -1 {
				continue
			}
			candidate := target.AddDate(0, 0, offset*sign)
			if volume, ok := s.VolumeOn(candidate); ok && volume > 0 {
				return candidate, volume, true
			}
		}
	}
	return time.Time{}, 0, false
}
