package report

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tsa-volume-tracker/internal/series"
)

func sampleEmailData() EmailData {
	yoy := 4.2
	ytd := -1.3
	return EmailData{
		Summary: &series.Summary{
			FirstDate:     date(2023, time.January, 1),
			LatestDate:    date(2025, time.March, 10),
			LatestVolume:  2456789,
			LatestYoYPct:  &yoy,
			ThirtyDayAvg:  2301456,
			YTDAvg:        2280119,
			PriorYearAvg:  2310522,
			YTDvsPriorPct: &ytd,
			TotalDays:     800,
		},
		GeneratedAt: date(2025, time.March, 11),
		SourceURL:   "https://www.tsa.gov/travel/passenger-volumes",
	}
}

func TestRenderEmailHTML(t *testing.T) {
	body, err := RenderEmailHTML(sampleEmailData())
	require.NoError(t, err)

	assert.Contains(t, body, "TSA Checkpoint Passenger Volumes")
	assert.Contains(t, body, "Mon Mar 10, 2025")
	assert.Contains(t, body, "2,456,789")
	assert.Contains(t, body, "+4.2%")
	assert.Contains(t, body, "-1.3%")
	assert.Contains(t, body, "https://www.tsa.gov/travel/passenger-volumes")
}

func TestRenderEmailHTML_MissingGrowth(t *testing.T) {
	data := sampleEmailData()
	data.Summary.LatestYoYPct = nil
	data.Summary.YTDvsPriorPct = nil

	body, err := RenderEmailHTML(data)
	require.NoError(t, err)
	assert.Contains(t, body, "n/a")
	assert.NotContains(t, body, "+4.2%")
}

func TestRenderEmailText(t *testing.T) {
	body, err := RenderEmailText(sampleEmailData())
	require.NoError(t, err)

	assert.Contains(t, body, "Latest day:")
	assert.Contains(t, body, "2,456,789")
	assert.Contains(t, body, "Year-over-year:")
	assert.Contains(t, body, "+4.2%")
	assert.False(t, strings.Contains(body, "<"), "plain text body should not contain markup")
}

func TestCommaFormat(t *testing.T) {
	tests := []struct {
		n    int64
		want string
	}{
		{0, "0"},
		{999, "999"},
		{1000, "1,000"},
		{2456789, "2,456,789"},
		{-1500, "-1,500"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, commaFormat(tt.n))
	}
}

func TestPctFormat(t *testing.T) {
	assert.Equal(t, "n/a", pctFormat(nil))

	up := 12.345
	assert.Equal(t, "+12.3%", pctFormat(&up))

	down := -3.0
	assert.Equal(t, "-3.0%", pctFormat(&down))
}
