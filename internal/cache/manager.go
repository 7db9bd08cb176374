package cache

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"tsa-volume-tracker/internal/database"
	"tsa-volume-tracker/internal/scrape"
)

// Default TTLs. Archived year pages barely change, the current year gains a
// row each morning.
const (
	DefaultCurrentYearTTL = 6 * time.Hour
	DefaultPastYearTTL    = 7 * 24 * time.Hour

	cleanupInterval = 15 * time.Minute
)

// Manager layers an in-memory map over the persistent page cache and fetches
// through to the scraper on miss.
type Manager struct {
	store      *database.PageCacheStore
	fetcher    scrape.PageFetcher
	memory     sync.Map // map[int]*database.CachedPage
	disabled   bool
	currentTTL time.Duration
	pastTTL    time.Duration

	// Cleanup goroutine control
	ctx    context.Context
	cancel context.CancelFunc
	now    func() time.Time
}

// NewManager creates a new page cache manager. Zero TTLs select defaults.
func NewManager(store *database.PageCacheStore, fetcher scrape.PageFetcher, disabled bool, currentTTL, pastTTL time.Duration) *Manager {
	if currentTTL <= 0 {
		currentTTL = DefaultCurrentYearTTL
	}
	if pastTTL <= 0 {
		pastTTL = DefaultPastYearTTL
	}

	ctx, cancel := context.WithCancel(context.Background())
	manager := &Manager{
		store:      store,
		fetcher:    fetcher,
		disabled:   disabled,
		currentTTL: currentTTL,
		pastTTL:    pastTTL,
		ctx:        ctx,
		cancel:     cancel,
		now:        time.Now,
	}

	if !disabled {
		go manager.cleanupLoop()
	}
	return manager
}

// GetPage returns a year page's HTML, serving from cache when possible.
// force skips the cache read but still refreshes the stored copy. The second
// return value reports whether the page came from cache, so callers can
// decide whether a politeness delay is owed.
func (m *Manager) GetPage(ctx context.Context, year int, force bool) (string, bool, error) {
	if !m.disabled && !force {
		if html, ok := m.lookup(year); ok {
			return html, true, nil
		}
	}

	html, err := m.fetcher.FetchYearHTML(ctx, year)
	if err != nil {
		return "", false, err
	}

	if !m.disabled {
		if err := m.storePage(year, html); err != nil {
			log.Printf("WARN: Failed to cache page for year %d: %v", year, err)
		}
	}
	return html, false, nil
}

// Invalidate drops a year's page from both layers.
func (m *Manager) Invalidate(year int) error {
	if m.disabled {
		return nil
	}
	m.memory.Delete(year)
	if err := m.store.Delete(year); err != nil {
		return fmt.Errorf("failed to invalidate cached page: %w", err)
	}
	return nil
}

// IsEnabled returns true if caching is enabled
func (m *Manager) IsEnabled() bool {
	return !m.disabled
}

// lookup checks memory first, then the database, refilling memory on a
// database hit.
func (m *Manager) lookup(year int) (string, bool) {
	if value, ok := m.memory.Load(year); ok {
		page := value.(*database.CachedPage)
		if m.now().Before(page.ExpiresAt) {
			return page.HTML, true
		}
		m.memory.Delete(year)
	}

	page, err := m.store.Get(year)
	if err != nil {
		log.Printf("WARN: Failed to read page cache for year %d: %v", year, err)
		return "", false
	}
	if page == nil {
		return "", false
	}

	m.memory.Store(year, page)
	return page.HTML, true
}

func (m *Manager) storePage(year int, html string) error {
	ttl := m.ttlFor(year)
	if err := m.store.Set(year, html, ttl); err != nil {
		return err
	}
	m.memory.Store(year, &database.CachedPage{
		Year:      year,
		HTML:      html,
		FetchedAt: m.now(),
		ExpiresAt: m.now().Add(ttl),
	})
	return nil
}

// ttlFor picks the TTL by year: archives are near-immutable, the current
// year's page changes daily.
func (m *Manager) ttlFor(year int) time.Duration {
	if year < m.now().Year() {
		return m.pastTTL
	}
	return m.currentTTL
}

// cleanupLoop runs periodically to clean up expired entries
func (m *Manager) cleanupLoop() {
	ticker := time.NewTicker(cleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-m.ctx.Done():
			return
		case <-ticker.C:
			m.cleanup()
		}
	}
}

// cleanup removes expired entries from both memory and database
func (m *Manager) cleanup() {
	memoryCount := 0
	m.memory.Range(func(key, value interface{}) bool {
		page := value.(*database.CachedPage)
		if !m.now().Before(page.ExpiresAt) {
			m.memory.Delete(key)
			memoryCount++
		}
		return true
	})

	deleted, err := m.store.DeleteExpired()
	if err != nil {
		log.Printf("WARN: Failed to clean up expired page cache entries: %v", err)
	}

	if memoryCount > 0 || deleted > 0 {
		log.Printf("DEBUG: Cleaned up %d memory / %d database page cache entries", memoryCount, deleted)
	}
}

// GetStats returns cache statistics
func (m *Manager) GetStats() (Stats, error) {
	stats := Stats{
		Disabled:   m.disabled,
		CurrentTTL: m.currentTTL,
		PastTTL:    m.pastTTL,
	}
	if m.disabled {
		return stats, nil
	}

	m.memory.Range(func(key, value interface{}) bool {
		stats.MemoryTotal++
		page := value.(*database.CachedPage)
		if !m.now().Before(page.ExpiresAt) {
			stats.MemoryExpired++
		}
		return true
	})

	dbTotal, dbExpired, err := m.store.GetStats()
	if err != nil {
		return stats, fmt.Errorf("failed to get database stats: %w", err)
	}
	stats.DatabaseTotal = dbTotal
	stats.DatabaseExpired = dbExpired

	return stats, nil
}

// Close shuts down the cache manager and cleanup goroutine
func (m *Manager) Close() {
	if m.cancel != nil {
		m.cancel()
	}
}

// Stats represents cache statistics
type Stats struct {
	Disabled        bool          `json:"disabled"`
	CurrentTTL      time.Duration `json:"current_ttl"`
	PastTTL         time.Duration `json:"past_ttl"`
	MemoryTotal     int           `json:"memory_total"`
	MemoryExpired   int           `json:"memory_expired"`
	DatabaseTotal   int           `json:"database_total"`
	DatabaseExpired int           `json:"database_expired"`
}
