package transport

import (
	"context"
	"errors"
	"net"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

// TestNewHTTPClient tests client construction.
func TestNewHTTPClient(t *testing.T) {
	t.Parallel()

	t.Run("defaults to a cookie jar and the default timeout", func(t *testing.T) {
		t.Parallel()

		client, err := NewHTTPClient()
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if client.Jar == nil {
			t.Error("expected cookie jar to be set")
		}
		if client.Timeout != DefaultTimeout {
			t.Errorf("expected timeout %v, got %v", DefaultTimeout, client.Timeout)
		}
	})

	t.Run("custom timeout is applied", func(t *testing.T) {
		t.Parallel()

		client, err := NewHTTPClient(WithTimeout(3 * time.Second))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if client.Timeout != 3*time.Second {
			t.Errorf("expected 3s timeout, got %v", client.Timeout)
		}
	})

	t.Run("invalid proxy address returns ErrInvalidProxyAddress", func(t *testing.T) {
		t.Parallel()

		_, err := NewHTTPClient(WithProxy("127.0.0.1"))
		if !errors.Is(err, ErrInvalidProxyAddress) {
			t.Errorf("expected ErrInvalidProxyAddress, got %v", err)
		}
	})

	t.Run("valid proxy address builds a client", func(t *testing.T) {
		t.Parallel()

		client, err := NewHTTPClient(WithProxy("127.0.0.1:1080"))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if client == nil {
			t.Fatal("expected non-nil client")
		}
	})
}

// TestHeaderInjection tests that cookie and headers reach the server.
func TestHeaderInjection(t *testing.T) {
	t.Parallel()

	var gotCookie, gotHeader string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotCookie = r.Header.Get("Cookie")
		gotHeader = r.Header.Get("X-Test")
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	client, err := NewHTTPClient(
		WithCookie("session=abc"),
		WithHeaders(map[string]string{"X-Test": "yes"}),
	)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	req, err := http.NewRequestWithContext(context.Background(), http.MethodGet, server.URL, nil)
	if err != nil {
		t.Fatalf("failed to build request: %v", err)
	}
	resp, err := client.Do(req)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	resp.Body.Close()

	if gotCookie != "session=abc" {
		t.Errorf("expected cookie 'session=abc', got %q", gotCookie)
	}
	if gotHeader != "yes" {
		t.Errorf("expected X-Test header 'yes', got %q", gotHeader)
	}
}

// TestRedirectLimit tests that redirect loops stop at DefaultMaxRedirects.
func TestRedirectLimit(t *testing.T) {
	t.Parallel()

	hits := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits++
		http.Redirect(w, r, "/loop", http.StatusFound)
	}))
	defer server.Close()

	client, err := NewHTTPClient()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	req, err := http.NewRequestWithContext(context.Background(), http.MethodGet, server.URL, nil)
	if err != nil {
		t.Fatalf("failed to build request: %v", err)
	}
	resp, err := client.Do(req)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	resp.Body.Close()

	if resp.StatusCode != http.StatusFound {
		t.Errorf("expected last redirect response, got status %d", resp.StatusCode)
	}
	// The limit check fires once via holds DefaultMaxRedirects requests.
	if hits != DefaultMaxRedirects {
		t.Errorf("expected %d hits, got %d", DefaultMaxRedirects, hits)
	}
}

// TestIsValidProxyAddress tests address validation.
func TestIsValidProxyAddress(t *testing.T) {
	t.Parallel()

	tests := []struct {
		address string
		want    bool
	}{
		{"127.0.0.1:1080", true},
		{"localhost:9050", true},
		{"[::1]:1080", true},
		{"", false},
		{"127.0.0.1", false},
		{":1080", false},
		{"127.0.0.1:", false},
		{"127.0.0.1:0", false},
		{"127.0.0.1:65536", false},
		{"127.0.0.1:abc", false},
		{"127.0.0.1:+80", false},
	}

	for _, tt := range tests {
		t.Run(tt.address, func(t *testing.T) {
			t.Parallel()
			if got := IsValidProxyAddress(tt.address); got != tt.want {
				t.Errorf("IsValidProxyAddress(%q) = %v, expected %v", tt.address, got, tt.want)
			}
		})
	}
}

// TestCheckProxy tests the reachability probe.
func TestCheckProxy(t *testing.T) {
	t.Parallel()

	t.Run("listening address is OK", func(t *testing.T) {
		t.Parallel()

		ln, err := net.Listen("tcp", "127.0.0.1:0")
		if err != nil {
			t.Fatalf("failed to listen: %v", err)
		}
		defer ln.Close()

		status := CheckProxy(context.Background(), ln.Addr().String())
		if status != ProxyStatusOK {
			t.Errorf("expected OK, got %v", status)
		}
		if status.Err() != nil {
			t.Errorf("expected nil error, got %v", status.Err())
		}
	})

	t.Run("closed port cannot connect", func(t *testing.T) {
		t.Parallel()

		ln, err := net.Listen("tcp", "127.0.0.1:0")
		if err != nil {
			t.Fatalf("failed to listen: %v", err)
		}
		addr := ln.Addr().String()
		ln.Close()

		status := CheckProxy(context.Background(), addr)
		if status != ProxyStatusCannotConnect {
			t.Errorf("expected cannot connect, got %v", status)
		}
		if !errors.Is(status.Err(), ErrProxyCannotConnect) {
			t.Errorf("expected ErrProxyCannotConnect, got %v", status.Err())
		}
	})

	t.Run("invalid address is reported without dialing", func(t *testing.T) {
		t.Parallel()

		status := CheckProxy(context.Background(), "not-an-address")
		if status != ProxyStatusInvalidAddress {
			t.Errorf("expected invalid address, got %v", status)
		}
	})
}
