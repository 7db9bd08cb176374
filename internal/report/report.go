package report

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"tsa-volume-tracker/internal/series"
)

// Artifacts lists the files produced by one report run.
type Artifacts struct {
	ChartPath      string
	VolumesCSVPath string
	GrowthCSVPath  string
}

// Generator writes report artifacts (chart PNG, CSV exports) into a
// data directory, one dated set per run. Re-running on the same day
// overwrites that day's set.
type Generator struct {
	dir    string
	logger *slog.Logger
}

func NewGenerator(dir string) *Generator {
	return &Generator{
		dir:    dir,
		logger: slog.Default().With("component", "report"),
	}
}

// Generate renders the chart and CSV exports for the series and writes
// them under the data directory, named by the run date.
func (g *Generator) Generate(s *series.Series, growth []series.GrowthPoint, runDate time.Time) (*Artifacts, error) {
	if err := os.MkdirAll(g.dir, 0o755); err != nil {
		return nil, fmt.Errorf("report: create data dir: %w", err)
	}

	stamp := runDate.Format("20060102")
	art := &Artifacts{
		ChartPath:      filepath.Join(g.dir, fmt.Sprintf("tsa_volumes_%s.png", stamp)),
		VolumesCSVPath: filepath.Join(g.dir, fmt.Sprintf("tsa_volumes_%s.csv", stamp)),
		GrowthCSVPath:  filepath.Join(g.dir, fmt.Sprintf("tsa_yoy_%s.csv", stamp)),
	}

	pngBytes, err := RenderChart(s, growth)
	if err != nil {
		return nil, err
	}
	if err := os.WriteFile(art.ChartPath, pngBytes, 0o644); err != nil {
		return nil, fmt.Errorf("report: write chart: %w", err)
	}

	if err := writeFileWith(art.VolumesCSVPath, func(w io.Writer) error {
		return WriteVolumesCSV(w, s.Points())
	}); err != nil {
		return nil, err
	}
	if err := writeFileWith(art.GrowthCSVPath, func(w io.Writer) error {
		return WriteGrowthCSV(w, growth)
	}); err != nil {
		return nil, err
	}

	g.logger.Info("report artifacts written",
		"chart", art.ChartPath,
		"volumes_csv", art.VolumesCSVPath,
		"growth_csv", art.GrowthCSVPath)
	return art, nil
}

func writeFileWith(path string, fn func(io.Writer) error) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("report: create %s: %w", filepath.Base(path), err)
	}
	if err := fn(f); err != nil {
		f.Close()
		return fmt.Errorf("report: write %s: %w", filepath.Base(path), err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("report: close %s: %w", filepath.Base(path), err)
	}
	return nil
}
