package middleware

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func serveWithID(t *testing.T, incoming string) (contextID, headerID string) {
	t.Helper()
	handler := RequestID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		contextID = GetRequestID(r.Context())
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/health", nil)
	if incoming != "" {
		req.Header.Set(RequestIDHeader, incoming)
	}
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return contextID, rec.Header().Get(RequestIDHeader)
}

func TestRequestID(t *testing.T) {
	t.Run("generates request ID when not provided", func(t *testing.T) {
		ctxID, headerID := serveWithID(t, "")
		if len(ctxID) != 16 {
			t.Errorf("expected 16 character request ID, got %q", ctxID)
		}
		if headerID != ctxID {
			t.Errorf("expected response header %q to match context %q", headerID, ctxID)
		}
	})

	t.Run("uses client-provided request ID", func(t *testing.T) {
		ctxID, headerID := serveWithID(t, "client-request_123.a")
		if ctxID != "client-request_123.a" || headerID != ctxID {
			t.Errorf("expected client ID to be kept, got context %q header %q", ctxID, headerID)
		}
	})

	t.Run("replaces unsafe client IDs", func(t *testing.T) {
		for _, bad := range []string{"has space", "line\nbreak", strings.Repeat("a", 65), `quote"id`} {
			ctxID, _ := serveWithID(t, bad)
			if ctxID == bad || len(ctxID) != 16 {
				t.Errorf("expected %q to be replaced, got %q", bad, ctxID)
			}
		}
	})

	t.Run("GetRequestID returns empty string when not set", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/test", nil)
		if id := GetRequestID(req.Context()); id != "" {
			t.Errorf("expected empty string, got %q", id)
		}
	})

	t.Run("generates unique IDs for different requests", func(t *testing.T) {
		ids := make(map[string]bool)
		for i := 0; i < 100; i++ {
			id, _ := serveWithID(t, "")
			ids[id] = true
		}
		if len(ids) != 100 {
			t.Errorf("expected 100 unique IDs, got %d", len(ids))
		}
	})
}

func TestNewRequestID(t *testing.T) {
	id := newRequestID()
	if len(id) != 16 {
		t.Fatalf("expected length 16, got %d", len(id))
	}
	for _, c := range id {
		if !((c >= '0' && c <= '9') || (c >= 'a' && c <= 'f')) {
			t.Errorf("expected hex character, got %c", c)
		}
	}
	if newRequestID() == id {
		t.Error("newRequestID returned same ID twice")
	}
}

func TestValidRequestID(t *testing.T) {
	tests := []struct {
		id   string
		want bool
	}{
		{"abc-123", true},
		{"A.b_C", true},
		{"", false},
		{"with/slash", false},
		{strings.Repeat("x", 64), true},
		{strings.Repeat("x", 65), false},
	}
	for _, tt := range tests {
		if got := validRequestID(tt.id); got != tt.want {
			t.Errorf("validRequestID(%q) = %v, want %v", tt.id, got, tt.want)
		}
	}
}
