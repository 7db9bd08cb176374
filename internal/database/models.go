package database

import (
	"database/sql"
	"fmt"
	"time"

	"tsa-volume-tracker/internal/series"
)

const dateLayout = "2006-01-02"

// DailyVolume is one stored day of checkpoint passenger volume.
type DailyVolume struct {
	Date       time.Time `json:"date"`
	Volume     int64     `json:"volume"`
	SourceYear int       `json:"source_year"`
	ScrapedAt  time.Time `json:"scraped_at"`
}

// Observation converts the stored row to its in-memory series form.
func (d DailyVolume) Observation() series.Observation {
	return series.Observation{
		Date:       d.Date,
		Volume:     d.Volume,
		SourceYear: d.SourceYear,
	}
}

// AsObservations converts stored rows for series building.
func AsObservations(rows []DailyVolume) []series.Observation {
	obs := make([]series.Observation, len(rows))
	for i, r := range rows {
		obs[i] = r.Observation()
	}
	return obs
}

// Values for ReportRun.TriggeredBy.
const (
	TriggerScheduled = "scheduled"
	TriggerManual    = "manual"
	TriggerCLI       = "cli"
)

// ReportRun records one pipeline execution.
type ReportRun struct {
	ID             int64      `json:"id"`
	RunAt          time.Time  `json:"run_at"`
	TriggeredBy    string     `json:"triggered_by"`
	StatusCode     int        `json:"status_code"`
	Success        bool       `json:"success"`
	Message        string     `json:"message"`
	LatestDataDate *time.Time `json:"latest_data_date,omitempty"`
	RowsScraped    int        `json:"rows_scraped"`
	ChartPath      string     `json:"chart_path,omitempty"`
	Emailed        bool       `json:"emailed"`
}

// VolumeStore handles database operations for daily volumes
type VolumeStore struct {
	db *sql.DB
}

func NewVolumeStore(db *sql.DB) *VolumeStore {
	return &VolumeStore{db: db}
}

// UpsertBatch writes observations in one transaction, replacing any existing
// row for the same date. Returns the number of rows written.
func (v *VolumeStore) UpsertBatch(obs []series.Observation) (int, error) {
	if len(obs) == 0 {
		return 0, nil
	}

	tx, err := v.db.Begin()
	if err != nil {
		return 0, err
	}
	defer tx.Rollback() // Will be ignored if tx.Commit() succeeds

	stmt, err := tx.Prepare(`INSERT INTO daily_volumes (date, volume, source_year, scraped_at)
			  VALUES (?, ?, ?, CURRENT_TIMESTAMP)
			  ON CONFLICT(date) DO UPDATE SET
				  volume = excluded.volume,
				  source_year = excluded.source_year,
				  scraped_at = CURRENT_TIMESTAMP`)
	if err != nil {
		return 0, err
	}
	defer stmt.Close()

	for _, o := range obs {
		if _, err := stmt.Exec(o.Date.Format(dateLayout), o.Volume, o.SourceYear); err != nil {
			return 0, err
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, err
	}
	return len(obs), nil
}

// GetAll returns all stored volumes in ascending date order
func (v *VolumeStore) GetAll() ([]DailyVolume, error) {
	query := `SELECT date, volume, source_year, scraped_at
			  FROM daily_volumes ORDER BY date ASC`
	return v.queryVolumes(query)
}

// GetRange returns volumes with start <= date <= end, ascending
func (v *VolumeStore) GetRange(start, end time.Time) ([]DailyVolume, error) {
	query := `SELECT date, volume, source_year, scraped_at
			  FROM daily_volumes WHERE date >= ? AND date <= ? ORDER BY date ASC`
	return v.queryVolumes(query, start.Format(dateLayout), end.Format(dateLayout))
}

// GetByYear returns volumes whose date falls in the given calendar year
func (v *VolumeStore) GetByYear(year int) ([]DailyVolume, error) {
	query := `SELECT date, volume, source_year, scraped_at
			  FROM daily_volumes WHERE date >= ? AND date <= ? ORDER BY date ASC`
	first := fmt.Sprintf("%04d-01-01", year)
	last := fmt.Sprintf("%04d-12-31", year)
	return v.queryVolumes(query, first, last)
}

// GetLatest returns the most recent volume, or nil when the table is empty
func (v *VolumeStore) GetLatest() (*DailyVolume, error) {
	query := `SELECT date, volume, source_year, scraped_at
			  FROM daily_volumes ORDER BY date DESC LIMIT 1`

	var dv DailyVolume
	var dateStr string
	err := v.db.QueryRow(query).Scan(&dateStr, &dv.Volume, &dv.SourceYear, &dv.ScrapedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	if dv.Date, err = time.Parse(dateLayout, dateStr); err != nil {
		return nil, fmt.Errorf("invalid stored date %q: %w", dateStr, err)
	}
	return &dv, nil
}

// Count returns the number of stored volumes
func (v *VolumeStore) Count() (int, error) {
	var count int
	err := v.db.QueryRow("SELECT COUNT(*) FROM daily_volumes").Scan(&count)
	return count, err
}

func (v *VolumeStore) queryVolumes(query string, args ...interface{}) ([]DailyVolume, error) {
	rows, err := v.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var volumes []DailyVolume
	for rows.Next() {
		var dv DailyVolume
		var dateStr string
		if err := rows.Scan(&dateStr, &dv.Volume, &dv.SourceYear, &dv.ScrapedAt); err != nil {
			return nil, err
		}
		if dv.Date, err = time.Parse(dateLayout, dateStr); err != nil {
			return nil, fmt.Errorf("invalid stored date %q: %w", dateStr, err)
		}
		volumes = append(volumes, dv)
	}

	return volumes, rows.Err()
}

// ReportRunStore handles database operations for report runs
type ReportRunStore struct {
	db *sql.DB
}

func NewReportRunStore(db *sql.DB) *ReportRunStore {
	return &ReportRunStore{db: db}
}

// Create records a pipeline run and fills in the generated ID
func (r *ReportRunStore) Create(run *ReportRun) error {
	if run.RunAt.IsZero() {
		run.RunAt = time.Now().UTC()
	}

	var dataDate interface{}
	if run.LatestDataDate != nil {
		dataDate = run.LatestDataDate.Format(dateLayout)
	}

	query := `INSERT INTO report_runs
			  (run_at, triggered_by, status_code, success, message, latest_data_date, rows_scraped, chart_path, emailed)
			  VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`

	result, err := r.db.Exec(query, run.RunAt, run.TriggeredBy, run.StatusCode,
		run.Success, run.Message, dataDate, run.RowsScraped, run.ChartPath, run.Emailed)
	if err != nil {
		return err
	}

	id, err := result.LastInsertId()
	if err != nil {
		return err
	}
	run.ID = id
	return nil
}

// GetLatest returns the most recent run, or nil when none exist
func (r *ReportRunStore) GetLatest() (*ReportRun, error) {
	query := `SELECT id, run_at, triggered_by, status_code, success, message,
			  latest_data_date, rows_scraped, chart_path, emailed
			  FROM report_runs ORDER BY id DESC LIMIT 1`

	run, err := scanReportRun(r.db.QueryRow(query))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return run, err
}

// List returns the most recent runs, newest first
func (r *ReportRunStore) List(limit int) ([]ReportRun, error) {
	if limit <= 0 {
		limit = 20
	}
	if limit > 100 {
		limit = 100
	}

	query := `SELECT id, run_at, triggered_by, status_code, success, message,
			  latest_data_date, rows_scraped, chart_path, emailed
			  FROM report_runs ORDER BY id DESC LIMIT ?`

	rows, err := r.db.Query(query, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []ReportRun
	for rows.Next() {
		run, err := scanReportRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, *run)
	}

	return runs, rows.Err()
}

// HasSuccessSince reports whether any successful run was recorded at or
// after the given instant. The scheduler uses it to avoid re-reporting the
// same day.
func (r *ReportRunStore) HasSuccessSince(t time.Time) (bool, error) {
	var count int
	err := r.db.QueryRow(`SELECT COUNT(*) FROM report_runs WHERE success = 1 AND run_at >= ?`,
		t.UTC()).Scan(&count)
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanReportRun(row rowScanner) (*ReportRun, error) {
	var run ReportRun
	var dataDate sql.NullString

	err := row.Scan(&run.ID, &run.RunAt, &run.TriggeredBy, &run.StatusCode,
		&run.Success, &run.Message, &dataDate, &run.RowsScraped,
		&run.ChartPath, &run.Emailed)
	if err != nil {
		return nil, err
	}

	if dataDate.Valid {
		d, err := time.Parse(dateLayout, dataDate.String)
		if err != nil {
			return nil, fmt.Errorf("invalid latest_data_date %q: %w", dataDate.String, err)
		}
		run.LatestDataDate = &d
	}
	return &run, nil
}
