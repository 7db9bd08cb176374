package report

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/draw"
	"image/png"
	"strconv"
	"time"

	"github.com/wcharczuk/go-chart/v2"
	"github.com/wcharczuk/go-chart/v2/drawing"

	"tsa-volume-tracker/internal/series"
)

// The report figure is two charts rendered separately and stacked into
// a single PNG: daily volumes per year on top, YoY growth below.
const (
	chartWidth        = 1200
	volumePanelHeight = 520
	growthPanelHeight = 380
)

var (
	growthGreen = drawing.Color{R: 44, G: 160, B: 44, A: 255}
	growthRed   = drawing.Color{R: 214, G: 39, B: 40, A: 255}
)

// RenderChart draws the report figure for the series and returns the
// encoded PNG. When no growth points exist (first year of data) the
// growth panel is omitted rather than rendered empty.
func RenderChart(s *series.Series, growth []series.GrowthPoint) ([]byte, error) {
	if s.Len() == 0 {
		return nil, errors.New("report: no observations to chart")
	}

	top, err := renderPanel(volumePanel(s))
	if err != nil {
		return nil, fmt.Errorf("report: render volume panel: %w", err)
	}
	panels := []image.Image{top}

	if len(growth) > 0 {
		bottom, err := renderPanel(growthPanel(growth))
		if err != nil {
			return nil, fmt.Errorf("report: render growth panel: %w", err)
		}
		panels = append(panels, bottom)
	}

	return stackVertically(panels)
}

// volumePanel charts one line per calendar year against day-of-year, so
// years overlay for direct comparison.
func volumePanel(s *series.Series) chart.Chart {
	byYear := s.ByYear()

	var maxVolume float64
	var lines []chart.Series
	for i, year := range s.Years() {
		obs := byYear[year]
		xs := make([]float64, len(obs))
		ys := make([]float64, len(obs))
		for j, o := range obs {
			xs[j] = float64(o.Date.YearDay())
			ys[j] = float64(o.Volume)
			if ys[j] > maxVolume {
				maxVolume = ys[j]
			}
		}
		// go-chart cannot render a single-point series; pad a second point.
		if len(obs) == 1 {
			xs = append(xs, xs[0]+1)
			ys = append(ys, ys[0])
		}
		lines = append(lines, chart.ContinuousSeries{
			Name:    strconv.Itoa(year),
			XValues: xs,
			YValues: ys,
			Style: chart.Style{
				StrokeColor: chart.GetDefaultColor(i),
				StrokeWidth: 1.5,
			},
		})
	}
	if maxVolume <= 0 {
		maxVolume = 1
	}

	ch := chart.Chart{
		Title:      "TSA Checkpoint Passenger Volume by Year",
		Width:      chartWidth,
		Height:     volumePanelHeight,
		Background: chart.Style{Padding: chart.Box{Top: 14, Left: 16, Right: 12, Bottom: 28}},
		XAxis: chart.XAxis{
			Ticks: monthTicks(),
			Range: &chart.ContinuousRange{Min: 1, Max: 366},
		},
		YAxis: chart.YAxis{
			Name: "Passengers",
			// Baseline at zero so years compare by magnitude, not offset.
			Range:          &chart.ContinuousRange{Min: 0, Max: maxVolume * 1.05},
			ValueFormatter: volumeTickFormat,
		},
		Series: lines,
	}
	ch.Elements = []chart.Renderable{chart.Legend(&ch)}
	return ch
}

// growthPanel charts YoY percentage over time, split at zero so growth
// fills green and contraction fills red, with a gray zero reference.
func growthPanel(growth []series.GrowthPoint) chart.Chart {
	times := make([]time.Time, len(growth))
	pos := make([]float64, len(growth))
	neg := make([]float64, len(growth))
	var minPct, maxPct float64
	for i, g := range growth {
		times[i] = g.Date
		if g.Pct >= 0 {
			pos[i] = g.Pct
		} else {
			neg[i] = g.Pct
		}
		if g.Pct < minPct {
			minPct = g.Pct
		}
		if g.Pct > maxPct {
			maxPct = g.Pct
		}
	}
	if len(times) == 1 {
		times = append(times, times[0].AddDate(0, 0, 1))
		pos = append(pos, pos[0])
		neg = append(neg, neg[0])
	}

	return chart.Chart{
		Title:      "Year-over-Year Growth",
		Width:      chartWidth,
		Height:     growthPanelHeight,
		Background: chart.Style{Padding: chart.Box{Top: 14, Left: 16, Right: 12, Bottom: 28}},
		XAxis: chart.XAxis{
			ValueFormatter: chart.TimeValueFormatterWithFormat("Jan 2006"),
		},
		YAxis: chart.YAxis{
			Name:  "% vs prior year",
			Range: &chart.ContinuousRange{Min: minPct - 5, Max: maxPct + 5},
		},
		Series: []chart.Series{
			chart.TimeSeries{
				XValues: times,
				YValues: pos,
				Style: chart.Style{
					StrokeColor: growthGreen,
					StrokeWidth: 1,
					FillColor:   growthGreen.WithAlpha(70),
				},
			},
			chart.TimeSeries{
				XValues: times,
				YValues: neg,
				Style: chart.Style{
					StrokeColor: growthRed,
					StrokeWidth: 1,
					FillColor:   growthRed.WithAlpha(70),
				},
			},
			chart.TimeSeries{
				XValues: []time.Time{times[0], times[len(times)-1]},
				YValues: []float64{0, 0},
				Style: chart.Style{
					StrokeColor: chart.ColorAlternateGray,
					StrokeWidth: 1,
				},
			},
		},
	}
}

// monthTicks labels the day-of-year axis with month starts, using a
// non-leap reference year, plus an unlabeled closing tick.
func monthTicks() []chart.Tick {
	ticks := make([]chart.Tick, 0, 13)
	for m := time.January; m <= time.December; m++ {
		day := time.Date(2001, m, 1, 0, 0, 0, 0, time.UTC).YearDay()
		ticks = append(ticks, chart.Tick{Value: float64(day), Label: m.String()[:3]})
	}
	ticks = append(ticks, chart.Tick{Value: 366, Label: ""})
	return ticks
}

func volumeTickFormat(v interface{}) string {
	f, ok := v.(float64)
	if !ok {
		return ""
	}
	switch {
	case f >= 1e6:
		return fmt.Sprintf("%.1fM", f/1e6)
	case f >= 1e3:
		return fmt.Sprintf("%.0fk", f/1e3)
	default:
		return fmt.Sprintf("%.0f", f)
	}
}

func renderPanel(ch chart.Chart) (image.Image, error) {
	var buf bytes.Buffer
	if err := ch.Render(chart.PNG, &buf); err != nil {
		return nil, err
	}
	return png.Decode(&buf)
}

// stackVertically composites the panels top to bottom onto one white
// canvas and encodes the result as PNG.
func stackVertically(panels []image.Image) ([]byte, error) {
	width, height := 0, 0
	for _, p := range panels {
		b := p.Bounds()
		if b.Dx() > width {
			width = b.Dx()
		}
		height += b.Dy()
	}

	canvas := image.NewRGBA(image.Rect(0, 0, width, height))
	draw.Draw(canvas, canvas.Bounds(), image.White, image.Point{}, draw.Src)

	y := 0
	for _, p := range panels {
		b := p.Bounds()
		draw.Draw(canvas, image.Rect(0, y, b.Dx(), y+b.Dy()), p, b.Min, draw.Src)
		y += b.Dy()
	}

	var out bytes.Buffer
	if err := png.Encode(&out, canvas); err != nil {
		return nil, fmt.Errorf("report: encode chart png: %w", err)
	}
	return out.Bytes(), nil
}
