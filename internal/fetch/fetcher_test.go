package fetch

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"
)

// TestFetch tests single-URL retrieval.
func TestFetch(t *testing.T) {
	t.Parallel()

	t.Run("returns the body on success", func(t *testing.T) {
		t.Parallel()

		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.Header().Set("Content-Type", "text/html; charset=utf-8")
			_, _ = w.Write([]byte("<html><body>ok</body></html>"))
		}))
		defer server.Close()

		f := New(server.Client())
		page, err := f.Fetch(context.Background(), server.URL)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if page.Body != "<html><body>ok</body></html>" {
			t.Errorf("unexpected body: %q", page.Body)
		}
		if page.StatusCode != http.StatusOK {
			t.Errorf("expected status 200, got %d", page.StatusCode)
		}
	})

	t.Run("sends browser-like headers", func(t *testing.T) {
		t.Parallel()

		headers := make(chan http.Header, 1)
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			headers <- r.Header.Clone()
			w.WriteHeader(http.StatusOK)
		}))
		defer server.Close()

		f := New(server.Client(), WithUserAgent("test-agent"))
		if _, err := f.Fetch(context.Background(), server.URL); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		got := <-headers
		if got.Get("User-Agent") != "test-agent" {
			t.Errorf("expected User-Agent 'test-agent', got %q", got.Get("User-Agent"))
		}
		if got.Get("Accept-Language") != "en-US,en;q=0.5" {
			t.Errorf("unexpected Accept-Language: %q", got.Get("Accept-Language"))
		}
		if got.Get("Accept") == "" {
			t.Error("expected Accept header to be set")
		}
	})

	t.Run("decodes a latin-1 body to UTF-8", func(t *testing.T) {
		t.Parallel()

		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.Header().Set("Content-Type", "text/html; charset=iso-8859-1")
			_, _ = w.Write([]byte{'c', 'a', 'f', 0xe9})
		}))
		defer server.Close()

		page, err := New(server.Client()).Fetch(context.Background(), server.URL)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if page.Body != "café" {
			t.Errorf("expected 'café', got %q", page.Body)
		}
	})

	t.Run("rejects bodies beyond the size limit without retrying", func(t *testing.T) {
		t.Parallel()

		var hits atomic.Int32
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			hits.Add(1)
			w.Header().Set("Content-Type", "text/plain; charset=utf-8")
			_, _ = w.Write([]byte("0123456789"))
		}))
		defer server.Close()

		f := New(server.Client(), WithMaxBodySize(4), WithRetryDelay(time.Millisecond))
		page, err := f.Fetch(context.Background(), server.URL)
		if !errors.Is(err, ErrBodyTooLarge) {
			t.Fatalf("expected ErrBodyTooLarge, got %v", err)
		}
		if !errors.Is(err, ErrFetchExhausted) {
			t.Errorf("expected the URL to be given up on, got %v", err)
		}
		if page != nil {
			t.Errorf("expected no page, got %q", page.Body)
		}
		if got := hits.Load(); got != 1 {
			t.Errorf("expected 1 attempt, got %d", got)
		}
	})

	t.Run("accepts a body exactly at the size limit", func(t *testing.T) {
		t.Parallel()

		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.Header().Set("Content-Type", "text/plain; charset=utf-8")
			_, _ = w.Write([]byte("0123"))
		}))
		defer server.Close()

		page, err := New(server.Client(), WithMaxBodySize(4)).Fetch(context.Background(), server.URL)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if page.Body != "0123" {
			t.Errorf("expected '0123', got %q", page.Body)
		}
	})

	t.Run("empty 200 response is an empty page", func(t *testing.T) {
		t.Parallel()

		var hits atomic.Int32
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			hits.Add(1)
			w.WriteHeader(http.StatusOK)
		}))
		defer server.Close()

		page, err := New(server.Client(), WithRetryDelay(time.Millisecond)).Fetch(context.Background(), server.URL)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if page.Body != "" {
			t.Errorf("expected empty body, got %q", page.Body)
		}
		if got := hits.Load(); got != 1 {
			t.Errorf("expected 1 attempt, got %d", got)
		}
	})
}

// TestFetchRetry tests the retry bound and exhaustion reporting.
func TestFetchRetry(t *testing.T) {
	t.Parallel()

	t.Run("always failing URL is attempted exactly MaxRetries times", func(t *testing.T) {
		t.Parallel()

		var hits atomic.Int32
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			hits.Add(1)
			w.WriteHeader(http.StatusInternalServerError)
		}))
		defer server.Close()

		f := New(server.Client(), WithMaxRetries(3), WithRetryDelay(time.Millisecond))
		_, err := f.Fetch(context.Background(), server.URL)
		if !errors.Is(err, ErrFetchExhausted) {
			t.Fatalf("expected ErrFetchExhausted, got %v", err)
		}
		if got := hits.Load(); got != 3 {
			t.Errorf("expected 3 attempts, got %d", got)
		}

		var statusErr *StatusError
		if !errors.As(err, &statusErr) {
			t.Fatalf("expected wrapped StatusError, got %v", err)
		}
		if statusErr.StatusCode != http.StatusInternalServerError {
			t.Errorf("expected status 500, got %d", statusErr.StatusCode)
		}
		if !IsExhausted(err) {
			t.Error("expected IsExhausted to report true")
		}
	})

	t.Run("single attempt when MaxRetries is 1", func(t *testing.T) {
		t.Parallel()

		var hits atomic.Int32
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			hits.Add(1)
			w.WriteHeader(http.StatusNotFound)
		}))
		defer server.Close()

		f := New(server.Client(), WithMaxRetries(1), WithRetryDelay(time.Millisecond))
		if _, err := f.Fetch(context.Background(), server.URL); !errors.Is(err, ErrFetchExhausted) {
			t.Fatalf("expected ErrFetchExhausted, got %v", err)
		}
		if got := hits.Load(); got != 1 {
			t.Errorf("expected 1 attempt, got %d", got)
		}
	})

	t.Run("recovers when a later attempt succeeds", func(t *testing.T) {
		t.Parallel()

		var hits atomic.Int32
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			if hits.Add(1) < 3 {
				w.WriteHeader(http.StatusServiceUnavailable)
				return
			}
			_, _ = w.Write([]byte("third time"))
		}))
		defer server.Close()

		f := New(server.Client(), WithRetryDelay(time.Millisecond))
		page, err := f.Fetch(context.Background(), server.URL)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if page.Body != "third time" {
			t.Errorf("expected 'third time', got %q", page.Body)
		}
		if got := hits.Load(); got != 3 {
			t.Errorf("expected 3 attempts, got %d", got)
		}
	})

	t.Run("cancelled context is not reported as exhaustion", func(t *testing.T) {
		t.Parallel()

		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusInternalServerError)
		}))
		defer server.Close()

		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		_, err := New(server.Client(), WithRetryDelay(time.Millisecond)).Fetch(ctx, server.URL)
		if !errors.Is(err, context.Canceled) {
			t.Errorf("expected context.Canceled, got %v", err)
		}
		if errors.Is(err, ErrFetchExhausted) {
			t.Error("cancellation should not wrap ErrFetchExhausted")
		}
	})
}

// TestLinearBackOff tests the delay schedule.
func TestLinearBackOff(t *testing.T) {
	t.Parallel()

	b := NewLinearBackOff(time.Second)
	want := []time.Duration{time.Second, 2 * time.Second, 3 * time.Second}
	for i, w := range want {
		if got := b.NextBackOff(); got != w {
			t.Errorf("step %d: expected %v, got %v", i+1, w, got)
		}
	}

	b.Reset()
	if got := b.NextBackOff(); got != time.Second {
		t.Errorf("expected reset to restart at 1s, got %v", got)
	}
}
