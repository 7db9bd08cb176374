package database

import (
	"database/sql"
	"fmt"
	"time"
)

// CachedPage is one year's fetched HTML with its expiry.
type CachedPage struct {
	Year      int       `json:"year"`
	HTML      string    `json:"-"`
	FetchedAt time.Time `json:"fetched_at"`
	ExpiresAt time.Time `json:"expires_at"`
}

// PageCacheStore handles database operations for the fetched-page cache
type PageCacheStore struct {
	db *sql.DB
}

// NewPageCacheStore creates a new page cache store
func NewPageCacheStore(db *sql.DB) *PageCacheStore {
	return &PageCacheStore{db: db}
}

// Get retrieves the cached page for a year. Expired entries are deleted and
// reported as a miss (nil, nil).
func (p *PageCacheStore) Get(year int) (*CachedPage, error) {
	query := `SELECT year, html, fetched_at, expires_at FROM page_cache WHERE year = ?`

	var page CachedPage
	err := p.db.QueryRow(query, year).Scan(&page.Year, &page.HTML, &page.FetchedAt, &page.ExpiresAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil // Cache miss
		}
		return nil, fmt.Errorf("failed to get cached page: %w", err)
	}

	if time.Now().After(page.ExpiresAt) {
		p.Delete(year)
		return nil, nil
	}

	return &page, nil
}

// Set stores a year's page HTML with the specified TTL
func (p *PageCacheStore) Set(year int, html string, ttl time.Duration) error {
	expiresAt := time.Now().Add(ttl)

	query := `INSERT OR REPLACE INTO page_cache (year, html, fetched_at, expires_at)
			  VALUES (?, ?, CURRENT_TIMESTAMP, ?)`

	if _, err := p.db.Exec(query, year, html, expiresAt); err != nil {
		return fmt.Errorf("failed to cache page: %w", err)
	}
	return nil
}

// Delete removes the cached page for a year
func (p *PageCacheStore) Delete(year int) error {
	if _, err := p.db.Exec(`DELETE FROM page_cache WHERE year = ?`, year); err != nil {
		return fmt.Errorf("failed to delete cached page: %w", err)
	}
	return nil
}

// DeleteAll clears the whole page cache (used by forced runs)
func (p *PageCacheStore) DeleteAll() error {
	if _, err := p.db.Exec(`DELETE FROM page_cache`); err != nil {
		return fmt.Errorf("failed to clear page cache: %w", err)
	}
	return nil
}

// DeleteExpired removes all expired cache entries, returning how many went
func (p *PageCacheStore) DeleteExpired() (int64, error) {
	result, err := p.db.Exec(`DELETE FROM page_cache WHERE expires_at <= ?`, time.Now())
	if err != nil {
		return 0, fmt.Errorf("failed to delete expired pages: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return 0, err
	}
	return rowsAffected, nil
}

// GetStats returns total and expired entry counts
func (p *PageCacheStore) GetStats() (int, int, error) {
	var total, expired int

	err := p.db.QueryRow("SELECT COUNT(*) FROM page_cache").Scan(&total)
	if err != nil {
		return 0, 0, fmt.Errorf("failed to get total cached pages: %w", err)
	}

	err = p.db.QueryRow("SELECT COUNT(*) FROM page_cache WHERE expires_at <= ?", time.Now()).Scan(&expired)
	if err != nil {
		return 0, 0, fmt.Errorf("failed to get expired cached pages: %w", err)
	}

	return total, expired, nil
}
