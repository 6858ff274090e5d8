package cmd

import (
	"testing"

	"github.com/fatih/color"
)

func TestFormatStatusWithColor(t *testing.T) {
	original := color.NoColor
	color.NoColor = true
	t.Cleanup(func() {
		color.NoColor = original
	})

	tests := []struct {
		name   string
		status string
		want   string
	}{
		{name: "success", status: "OK", want: "OK"},
		{name: "allowed", status: "allowed", want: "allowed"},
		{name: "failure", status: "error", want: "error"},
		{name: "unknown", status: "pending", want: "pending"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := formatStatusWithColor(tt.status); got != tt.want {
				t.Fatalf("formatStatusWithColor(%q) = %q, want %q", tt.status, got, tt.want)
			}
		})
	}
}

func TestFormatStatusCode(t *testing.T) {
	original := color.NoColor
	color.NoColor = true
	t.Cleanup(func() {
		color.NoColor = original
	})

	for _, code := range []int{100, 200, 301, 404, 503} {
		want := map[int]string{100: "100", 200: "200", 301: "301", 404: "404", 503: "503"}[code]
		if got := formatStatusCode(code); got != want {
			t.Errorf("formatStatusCode(%d) = %q, want %q", code, got, want)
		}
	}
}
