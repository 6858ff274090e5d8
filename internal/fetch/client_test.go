package fetch

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	sharedErrors "github.com/inkyvoxel/interrogate/internal/shared/errors"
	"go.uber.org/zap/zaptest"
)

func TestClientGet_Success(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("User-Agent"); got != "test-agent/1.0" {
			t.Errorf("unexpected user agent %q", got)
		}
		w.Header().Set("Server", "nginx/1.18.0")
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		fmt.Fprint(w, "<html><body>héllo</body></html>")
	}))
	defer server.Close()

	client := NewClient(Options{
		Timeout:   5 * time.Second,
		UserAgent: "test-agent/1.0",
		Logger:    zaptest.NewLogger(t),
	})

	resp, err := client.Get(context.Background(), server.URL)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Errorf("expected status 200, got %d", resp.StatusCode)
	}
	if resp.Header.Get("Server") != "nginx/1.18.0" {
		t.Errorf("expected Server header to be preserved, got %q", resp.Header.Get("Server"))
	}
	if resp.Body != "<html><body>héllo</body></html>" {
		t.Errorf("unexpected body %q", resp.Body)
	}
	if resp.Truncated {
		t.Error("did not expect truncation")
	}
}

func TestClientGet_FollowsRedirects(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/start", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/final", http.StatusFound)
	})
	mux.HandleFunc("/final", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, "done")
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	client := NewClient(Options{Timeout: 5 * time.Second})
	resp, err := client.Get(context.Background(), server.URL+"/start")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.FinalURL != server.URL+"/final" {
		t.Errorf("expected final URL %s/final, got %s", server.URL, resp.FinalURL)
	}
}

func TestClientGet_RedirectLimit(t *testing.T) {
	var server *httptest.Server
	server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, server.URL+r.URL.Path+"x", http.StatusFound)
	}))
	defer server.Close()

	client := NewClient(Options{Timeout: 5 * time.Second, MaxRedirects: 2})
	_, err := client.Get(context.Background(), server.URL+"/")
	if !errors.Is(err, sharedErrors.ErrFetchFailed) {
		t.Fatalf("expected ErrFetchFailed, got %v", err)
	}
}

func TestClientGet_RetriesOnceOnTransientStatus(t *testing.T) {
	tests := []struct {
		name   string
		status int
	}{
		{name: "too many requests", status: http.StatusTooManyRequests},
		{name: "service unavailable", status: http.StatusServiceUnavailable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var calls int32
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if atomic.AddInt32(&calls, 1) == 1 {
					w.WriteHeader(tt.status)
					return
				}
				fmt.Fprint(w, "ok")
			}))
			defer server.Close()

			client := NewClient(Options{Timeout: 5 * time.Second, RetryDelay: time.Millisecond})
			resp, err := client.Get(context.Background(), server.URL)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if resp.StatusCode != http.StatusOK {
				t.Errorf("expected retry to succeed, got %d", resp.StatusCode)
			}
			if got := atomic.LoadInt32(&calls); got != 2 {
				t.Errorf("expected 2 requests, got %d", got)
			}
		})
	}
}

func TestClientGet_DoesNotRetryTwice(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	client := NewClient(Options{Timeout: 5 * time.Second, RetryDelay: time.Millisecond})
	resp, err := client.Get(context.Background(), server.URL)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.StatusCode != http.StatusServiceUnavailable {
		t.Errorf("expected final 503, got %d", resp.StatusCode)
	}
	if got := atomic.LoadInt32(&calls); got != 2 {
		t.Errorf("expected exactly 2 requests, got %d", got)
	}
}

func TestClientGet_NoRetryOnOtherErrors(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	client := NewClient(Options{Timeout: 5 * time.Second, RetryDelay: time.Millisecond})
	if _, err := client.Get(context.Background(), server.URL); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := atomic.LoadInt32(&calls); got != 1 {
		t.Errorf("expected a single request, got %d", got)
	}
}

func TestClientGet_RetryHonoursCancellation(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer server.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	client := NewClient(Options{Timeout: 5 * time.Second, RetryDelay: time.Minute})
	_, err := client.Get(ctx, server.URL)
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline exceeded, got %v", err)
	}
	if !errors.Is(err, sharedErrors.ErrFetchFailed) {
		t.Fatalf("expected ErrFetchFailed wrapper, got %v", err)
	}
}

func TestClientGet_TruncatesBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain")
		fmt.Fprint(w, strings.Repeat("a", 100))
	}))
	defer server.Close()

	client := NewClient(Options{Timeout: 5 * time.Second, MaxBodyBytes: 10})
	resp, err := client.Get(context.Background(), server.URL)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !resp.Truncated {
		t.Error("expected body to be flagged as truncated")
	}
	if len(resp.Body) != 10 {
		t.Errorf("expected 10 bytes of body, got %d", len(resp.Body))
	}
}

func TestClientGet_NonTextBodyDropped(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "image/png")
		_, _ = w.Write([]byte{0x89, 'P', 'N', 'G', 0x0d, 0x0a, 0x1a, 0x0a})
	}))
	defer server.Close()

	client := NewClient(Options{Timeout: 5 * time.Second})
	resp, err := client.Get(context.Background(), server.URL)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.Body != "" {
		t.Errorf("expected empty body for binary content, got %q", resp.Body)
	}
}

func TestClientGetText_KeepsUTF8WhateverContentType(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/octet-stream")
		if r.URL.Path == "/binary" {
			_, _ = w.Write([]byte{0x89, 'P', 'N', 'G', 0xff, 0xfe})
			return
		}
		_, _ = w.Write([]byte("User-agent: *\nDisallow: /wp-admin/\n"))
	}))
	defer server.Close()

	client := NewClient(Options{Timeout: 5 * time.Second})

	resp, err := client.GetText(context.Background(), server.URL+"/robots.txt")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.Body != "User-agent: *\nDisallow: /wp-admin/\n" {
		t.Errorf("expected octet-stream text body to be kept, got %q", resp.Body)
	}

	resp, err = client.Get(context.Background(), server.URL+"/robots.txt")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.Body != "" {
		t.Errorf("expected Get to drop octet-stream body, got %q", resp.Body)
	}

	resp, err = client.GetText(context.Background(), server.URL+"/binary")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.Body != "" {
		t.Errorf("expected invalid UTF-8 to be dropped, got %q", resp.Body)
	}
}

func TestClientGet_DecodesDeclaredCharset(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=iso-8859-1")
		_, _ = w.Write([]byte("<html>caf\xe9</html>"))
	}))
	defer server.Close()

	client := NewClient(Options{Timeout: 5 * time.Second})
	resp, err := client.Get(context.Background(), server.URL)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.Body != "<html>café</html>" {
		t.Errorf("expected latin-1 body decoded to UTF-8, got %q", resp.Body)
	}
}

func TestClientGet_ConnectionError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := server.URL
	server.Close()

	client := NewClient(Options{Timeout: time.Second})
	_, err := client.Get(context.Background(), url)
	if !errors.Is(err, sharedErrors.ErrFetchFailed) {
		t.Fatalf("expected ErrFetchFailed, got %v", err)
	}
}

func TestTrimPartialRune(t *testing.T) {
	full := []byte("añb")
	if got := trimPartialRune(full); string(got) != "añb" {
		t.Errorf("complete input should be unchanged, got %q", got)
	}

	partial := []byte("a\xc3")
	if got := trimPartialRune(partial); string(got) != "a" {
		t.Errorf("expected dangling lead byte to be dropped, got %q", got)
	}

	euro := []byte("x\xe2\x82")
	if got := trimPartialRune(euro); string(got) != "x" {
		t.Errorf("expected partial 3-byte rune to be dropped, got %q", got)
	}
}

func TestIsTextContent(t *testing.T) {
	tests := []struct {
		contentType string
		data        string
		want        bool
	}{
		{"text/html; charset=utf-8", "", true},
		{"application/json", "", true},
		{"application/vnd.api+json", "", true},
		{"image/svg+xml", "", true},
		{"application/octet-stream", "", false},
		{"image/jpeg", "", false},
		{"", "<html><body>x</body></html>", true},
		{"", "\x00\x01\x02\x03", false},
	}

	for _, tt := range tests {
		if got := isTextContent(tt.contentType, []byte(tt.data)); got != tt.want {
			t.Errorf("isTextContent(%q) = %v, want %v", tt.contentType, got, tt.want)
		}
	}
}
