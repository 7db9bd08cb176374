package cache

import (
	"context"
	"errors"
	"testing"
	"time"

	"tsa-volume-tracker/internal/database"
)

type fakeFetcher struct {
	pages map[int]string
	err   error
	calls int
}

func (f *fakeFetcher) FetchYearHTML(ctx context.Context, year int) (string, error) {
	f.calls++
	if f.err != nil {
		return "", f.err
	}
	return f.pages[year], nil
}

func openTestStore(t *testing.T) *database.PageCacheStore {
	db, err := database.Open(":memory:")
	if err != nil {
		t.Fatalf("Failed to open database: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db.PageCache
}

func TestManager_FetchThroughAndHit(t *testing.T) {
	store := openTestStore(t)
	fetcher := &fakeFetcher{pages: map[int]string{2024: "<html>2024</html>"}}

	m := NewManager(store, fetcher, false, time.Hour, time.Hour)
	defer m.Close()

	html, fromCache, err := m.GetPage(context.Background(), 2024, false)
	if err != nil {
		t.Fatalf("GetPage() error = %v", err)
	}
	if fromCache {
		t.Error("first GetPage() reported a cache hit")
	}
	if html != "<html>2024</html>" {
		t.Errorf("GetPage() = %q", html)
	}

	html, fromCache, err = m.GetPage(context.Background(), 2024, false)
	if err != nil {
		t.Fatalf("second GetPage() error = %v", err)
	}
	if !fromCache {
		t.Error("second GetPage() missed the cache")
	}
	if html != "<html>2024</html>" {
		t.Errorf("cached GetPage() = %q", html)
	}
	if fetcher.calls != 1 {
		t.Errorf("fetcher called %d times, want 1", fetcher.calls)
	}
}

func TestManager_DatabaseSurvivesMemoryLoss(t *testing.T) {
	store := openTestStore(t)
	fetcher := &fakeFetcher{pages: map[int]string{2023: "<html>2023</html>"}}

	first := NewManager(store, fetcher, false, time.Hour, time.Hour)
	if _, _, err := first.GetPage(context.Background(), 2023, false); err != nil {
		t.Fatalf("GetPage() error = %v", err)
	}
	first.Close()

	// A fresh manager has an empty memory layer but shares the database.
	second := NewManager(store, fetcher, false, time.Hour, time.Hour)
	defer second.Close()

	html, fromCache, err := second.GetPage(context.Background(), 2023, false)
	if err != nil {
		t.Fatalf("GetPage() error = %v", err)
	}
	if !fromCache {
		t.Error("expected database cache hit after restart")
	}
	if html != "<html>2023</html>" {
		t.Errorf("GetPage() = %q", html)
	}
	if fetcher.calls != 1 {
		t.Errorf("fetcher called %d times, want 1", fetcher.calls)
	}
}

func TestManager_ForceBypassesRead(t *testing.T) {
	store := openTestStore(t)
	fetcher := &fakeFetcher{pages: map[int]string{2024: "fresh"}}

	m := NewManager(store, fetcher, false, time.Hour, time.Hour)
	defer m.Close()

	if _, _, err := m.GetPage(context.Background(), 2024, false); err != nil {
		t.Fatalf("GetPage() error = %v", err)
	}

	_, fromCache, err := m.GetPage(context.Background(), 2024, true)
	if err != nil {
		t.Fatalf("forced GetPage() error = %v", err)
	}
	if fromCache {
		t.Error("forced GetPage() served from cache")
	}
	if fetcher.calls != 2 {
		t.Errorf("fetcher called %d times, want 2", fetcher.calls)
	}

	// The forced fetch should still have refreshed the stored copy.
	_, fromCache, err = m.GetPage(context.Background(), 2024, false)
	if err != nil {
		t.Fatalf("GetPage() after force error = %v", err)
	}
	if !fromCache {
		t.Error("expected cache hit after forced refresh")
	}
}

func TestManager_DisabledAlwaysFetches(t *testing.T) {
	store := openTestStore(t)
	fetcher := &fakeFetcher{pages: map[int]string{2024: "x"}}

	m := NewManager(store, fetcher, true, time.Hour, time.Hour)
	defer m.Close()

	for i := 0; i < 2; i++ {
		_, fromCache, err := m.GetPage(context.Background(), 2024, false)
		if err != nil {
			t.Fatalf("GetPage() error = %v", err)
		}
		if fromCache {
			t.Error("disabled cache reported a hit")
		}
	}
	if fetcher.calls != 2 {
		t.Errorf("fetcher called %d times, want 2", fetcher.calls)
	}
	if m.IsEnabled() {
		t.Error("IsEnabled() = true for disabled manager")
	}
}

func TestManager_FetchErrorPropagates(t *testing.T) {
	store := openTestStore(t)
	wantErr := errors.New("boom")
	fetcher := &fakeFetcher{err: wantErr}

	m := NewManager(store, fetcher, false, time.Hour, time.Hour)
	defer m.Close()

	_, _, err := m.GetPage(context.Background(), 2024, false)
	if !errors.Is(err, wantErr) {
		t.Errorf("GetPage() error = %v, want %v", err, wantErr)
	}
}

func TestManager_TTLByYear(t *testing.T) {
	store := openTestStore(t)
	fetcher := &fakeFetcher{pages: map[int]string{}}

	m := NewManager(store, fetcher, false, time.Hour, 24*time.Hour)
	defer m.Close()
	m.now = func() time.Time {
		return time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)
	}

	if got := m.ttlFor(2025); got != time.Hour {
		t.Errorf("ttlFor(current year) = %v, want %v", got, time.Hour)
	}
	if got := m.ttlFor(2022); got != 24*time.Hour {
		t.Errorf("ttlFor(past year) = %v, want %v", got, 24*time.Hour)
	}
}

func TestManager_Invalidate(t *testing.T) {
	store := openTestStore(t)
	fetcher := &fakeFetcher{pages: map[int]string{2024: "x"}}

	m := NewManager(store, fetcher, false, time.Hour, time.Hour)
	defer m.Close()

	if _, _, err := m.GetPage(context.Background(), 2024, false); err != nil {
		t.Fatalf("GetPage() error = %v", err)
	}
	if err := m.Invalidate(2024); err != nil {
		t.Fatalf("Invalidate() error = %v", err)
	}

	_, fromCache, err := m.GetPage(context.Background(), 2024, false)
	if err != nil {
		t.Fatalf("GetPage() after invalidate error = %v", err)
	}
	if fromCache {
		t.Error("GetPage() hit cache after Invalidate()")
	}
	if fetcher.calls != 2 {
		t.Errorf("fetcher called %d times, want 2", fetcher.calls)
	}
}
