// Copyright 2025 TSA Volume Tracker
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package database

import (
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
)

// DB wraps the sql.DB connection and provides access to stores
type DB struct {
	*sql.DB
	Volumes   *VolumeStore
	Reports   *ReportRunStore
	PageCache *PageCacheStore
}

// Open opens a database connection and initializes stores
func Open(dbPath string) (*DB, error) {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Test the connection
	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	// Enable foreign key constraints in SQLite
	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	// The report worker and the HTTP handlers share this database
	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		return nil, fmt.Errorf("failed to set busy timeout: %w", err)
	}

	// Create the wrapper
	database := &DB{
		DB:        db,
		Volumes:   NewVolumeStore(db),
		Reports:   NewReportRunStore(db),
		PageCache: NewPageCacheStore(db),
	}

	// Run migrations
	if err := database.migrate(); err != nil {
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return database, nil
}

// migrate creates the database schema
func (db *DB) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS daily_volumes (
		date TEXT PRIMARY KEY,
		volume INTEGER NOT NULL,
		source_year INTEGER NOT NULL,
		scraped_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
	);

	CREATE TABLE IF NOT EXISTS report_runs (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		run_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
		triggered_by TEXT NOT NULL,
		status_code INTEGER NOT NULL,
		success BOOLEAN NOT NULL,
		message TEXT NOT NULL,
		latest_data_date TEXT,
		rows_scraped INTEGER NOT NULL DEFAULT 0,
		chart_path TEXT NOT NULL DEFAULT '',
		emailed BOOLEAN NOT NULL DEFAULT FALSE
	);

	CREATE TABLE IF NOT EXISTS page_cache (
		year INTEGER PRIMARY KEY,
		html TEXT NOT NULL,
		fetched_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
		expires_at DATETIME NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_daily_volumes_source_year ON daily_volumes(source_year);
	CREATE INDEX IF NOT EXISTS idx_report_runs_run_at ON report_runs(run_at);
	CREATE INDEX IF NOT EXISTS idx_report_runs_success ON report_runs(success, run_at);
	CREATE INDEX IF NOT EXISTS idx_page_cache_expires ON page_cache(expires_at);
	`

	if _, err := db.Exec(schema); err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}

	// Run additive migrations for databases created before artifact tracking
	return db.migrateArtifactFields()
}

// migrateArtifactFields adds chart/email tracking to existing databases
func (db *DB) migrateArtifactFields() error {
	// Check if columns already exist
	var columnExists int
	err := db.QueryRow(`
		SELECT COUNT(*)
		FROM pragma_table_info('report_runs')
		WHERE name = 'chart_path'
	`).Scan(&columnExists)
	if err != nil {
		return fmt.Errorf("failed to check column existence: %w", err)
	}

	// If columns don't exist, add them
	if columnExists == 0 {
		alterQueries := []string{
			"ALTER TABLE report_runs ADD COLUMN chart_path TEXT NOT NULL DEFAULT ''",
			"ALTER TABLE report_runs ADD COLUMN emailed BOOLEAN NOT NULL DEFAULT FALSE",
		}

		for _, query := range alterQueries {
			if _, err := db.Exec(query); err != nil {
				return fmt.Errorf("failed to execute migration query '%s': %w", query, err)
			}
		}
	}

	return nil
}

// IsHealthy checks if the database connection is healthy
func (db *DB) IsHealthy() error {
	return db.Ping()
}
