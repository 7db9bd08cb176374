package scrape

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"
)

func TestClient_FetchPage_BrowserHeaders(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("User-Agent"); got != defaultUserAgent {
			t.Errorf("User-Agent = %q, want default browser UA", got)
		}
		if got := r.Header.Get("Accept-Language"); got != "en-US,en;q=0.5" {
			t.Errorf("Accept-Language = %q", got)
		}
		if got := r.Header.Get("Upgrade-Insecure-Requests"); got != "1" {
			t.Errorf("Upgrade-Insecure-Requests = %q, want 1", got)
		}
		w.Write([]byte("<html>ok</html>"))
	}))
	defer server.Close()

	client := NewClient("tsa", "")
	html, err := client.FetchPage(context.Background(), server.URL)
	if err != nil {
		t.Fatalf("FetchPage() error = %v", err)
	}
	if html != "<html>ok</html>" {
		t.Errorf("FetchPage() = %q", html)
	}
}

func TestClient_FetchPage_RetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.Write([]byte("recovered"))
	}))
	defer server.Close()

	client := NewClient("tsa", "")
	client.retryDelay = time.Millisecond

	html, err := client.FetchPage(context.Background(), server.URL)
	if err != nil {
		t.Fatalf("FetchPage() error = %v", err)
	}
	if html != "recovered" {
		t.Errorf("FetchPage() = %q, want %q", html, "recovered")
	}
	if got := calls.Load(); got != 3 {
		t.Errorf("server saw %d requests, want 3", got)
	}
}

func TestClient_FetchPage_GivesUpAfterRetries(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	client := NewClient("tsa", "")
	client.retryDelay = time.Millisecond

	_, err := client.FetchPage(context.Background(), server.URL)
	if err == nil {
		t.Fatal("FetchPage() expected error")
	}
	if got := calls.Load(); got != int32(retryCount+1) {
		t.Errorf("server saw %d requests, want %d", got, retryCount+1)
	}
}

func TestClient_FetchPage_BlockedFailsFast(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusForbidden)
	}))
	defer server.Close()

	client := NewClient("tsa", "")
	client.retryDelay = time.Millisecond

	_, err := client.FetchPage(context.Background(), server.URL)
	if err == nil {
		t.Fatal("FetchPage() expected error")
	}
	if !IsBlocked(err) {
		t.Errorf("IsBlocked(%v) = false, want true", err)
	}
	if got := calls.Load(); got != 1 {
		t.Errorf("server saw %d requests, want 1 (no retries on 403)", got)
	}
}

func TestClient_FetchPage_RateLimitError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer server.Close()

	client := NewClient("tsa", "")
	client.retryDelay = time.Millisecond

	_, err := client.FetchPage(context.Background(), server.URL)
	var se *ScrapeError
	if !errors.As(err, &se) {
		t.Fatalf("FetchPage() error = %v, want *ScrapeError", err)
	}
	if se.Code != CodeRateLimit || !se.RateLimit {
		t.Errorf("error = %+v, want rate-limit error", se)
	}
}

func TestClient_FetchPage_NotFoundFailsFast(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	client := NewClient("tsa", "")
	client.retryDelay = time.Millisecond

	_, err := client.FetchPage(context.Background(), server.URL)
	if err == nil {
		t.Fatal("FetchPage() expected error")
	}
	if got := calls.Load(); got != 1 {
		t.Errorf("server saw %d requests, want 1 (no retries on 404)", got)
	}
}

func TestClient_BackoffDelayCapped(t *testing.T) {
	client := NewClient("tsa", "")

	if got := client.backoffDelay(1); got != baseRetryDelay {
		t.Errorf("backoffDelay(1) = %v, want %v", got, baseRetryDelay)
	}
	if got := client.backoffDelay(2); got != 2*baseRetryDelay {
		t.Errorf("backoffDelay(2) = %v, want %v", got, 2*baseRetryDelay)
	}

	client.retryDelay = 20 * time.Second
	if got := client.backoffDelay(5); got != maxRetryDelay {
		t.Errorf("backoffDelay(5) with large base = %v, want cap %v", got, maxRetryDelay)
	}
}
