package series

import (
	"sort"
	"time"
)

// Observation is a single day's checkpoint passenger count.
type Observation struct {
	Date       time.Time `json:"date"`
	Volume     int64     `json:"volume"`
	SourceYear int       `json:"source_year"`
}

// Series holds daily observations in ascending date order, one per date.
type Series struct {
	points []Observation
	index  map[string]int
}

const dateKeyLayout = "2006-01-02"

// Observations whose dates fall outside this window are treated as junk
// left over from malformed table rows.
var (
	minValidDate = time.Date(1990, 1, 1, 0, 0, 0, 0, time.UTC)
)

func maxValidDate() time.Time {
	return time.Now().UTC().AddDate(1, 0, 0)
}

// Merge combines per-year row batches into a single ascending series,
// deduplicating by calendar date. When two batches supply the same date,
// the observation whose SourceYear matches the date's own year wins; a
// year's own page is authoritative for that year. Observations with
// out-of-window dates are returned as rejected rather than merged.
func Merge(batches ...[]Observation) (*Series, []Observation) {
	byDate := make(map[string]Observation)
	var rejected []Observation

	maxDate := maxValidDate()
	for _, batch := range batches {
		for _, obs := range batch {
			if obs.Date.Before(minValidDate) || obs.Date.After(maxDate) {
				rejected = append(rejected, obs)
				continue
			}
			key := obs.Date.Format(dateKeyLayout)
			existing, ok := byDate[key]
			if !ok {
				byDate[key] = obs
				continue
			}
			// Prefer the row scraped from its own year's page.
			if obs.SourceYear == obs.Date.Year() && existing.SourceYear != existing.Date.Year() {
				byDate[key] = obs
			}
		}
	}

	points := make([]Observation, 0, len(byDate))
	for _, obs := range byDate {
		points = append(points, obs)
	}
	sort.Slice(points, func(i, j int) bool {
		return points[i].Date.Before(points[j].Date)
	})

	return newSeries(points), rejected
}

// FromObservations builds a series from rows already known to be unique
// and valid, such as rows read back from the database. Duplicates keep
// the last occurrence.
func FromObservations(obs []Observation) *Series {
	s, _ := Merge(obs)
	return s
}

func newSeries(points []Observation) *Series {
	index := make(map[string]int, len(points))
	for i, p := range points {
		index[p.Date.Format(dateKeyLayout)] = i
	}
	return &Series{points: points, index: index}
}

// Len returns the number of observations.
func (s *Series) Len() int {
	return len(s.points)
}

// Points returns the observations in ascending date order.
func (s *Series) Points() []Observation {
	return s.points
}

// Latest returns the most recent observation.
func (s *Series) Latest() (Observation, bool) {
	if len(s.points) == 0 {
		return Observation{}, false
	}
	return s.points[len(s.points)-1], true
}

// VolumeOn returns the volume recorded for the given calendar date.
func (s *Series) VolumeOn(date time.Time) (int64, bool) {
	i, ok := s.index[date.Format(dateKeyLayout)]
	if !ok {
		return 0, false
	}
	return s.points[i].Volume, true
}

// ByYear groups observations by calendar year, each group ascending.
func (s *Series) ByYear() map[int][]Observation {
	groups := make(map[int][]Observation)
	for _, p := range s.points {
		year := p.Date.Year()
		groups[year] = append(groups[year], p)
	}
	return groups
}

// Years returns the calendar years present in the series, ascending.
func (s *Series) Years() []int {
	seen := make(map[int]bool)
	var years []int
	for _, p := range s.points {
		year := p.Date.Year()
		if !seen[year] {
			seen[year] = true
			years = append(years, year)
		}
	}
	sort.Ints(years)
	return years
}

// Range returns observations with start <= date <= end.
func (s *Series) Range(start, end time.Time) []Observation {
	var out []Observation
	for _, p := range s.points {
		if p.Date.Before(start) || p.Date.After(end) {
			continue
		}
		out = append(out, p)
	}
	return out
}

// Tail returns the last n observations, or all of them when fewer exist.
func (s *Series) Tail(n int) []Observation {
	if n <= 0 || len(s.points) == 0 {
		return nil
	}
	if n > len(s.points) {
		n = len(s.points)
	}
	return s.points[len(s.points)-n:]
}
