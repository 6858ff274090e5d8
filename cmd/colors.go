package cmd

import (
	"strconv"
	"strings"

	"github.com/fatih/color"
)

var (
	colorSuccess = color.New(color.FgGreen).SprintFunc()
	colorInfo    = color.New(color.FgCyan).SprintFunc()
	colorWarn    = color.New(color.FgYellow).SprintFunc()
	colorError   = color.New(color.FgRed).SprintFunc()
	colorTitle   = color.New(color.Bold).SprintFunc()
)

func formatStatusWithColor(status string) string {
	switch strings.ToLower(status) {
	case "ok", "success", "pass", "allowed":
		return colorSuccess(status)
	case "error", "fail", "failed", "disallowed":
		return colorError(status)
	default:
		return status
	}
}

// formatStatusCode colours an HTTP status by class.
func formatStatusCode(code int) string {
	text := strconv.Itoa(code)
	switch {
	case code >= 200 && code < 300:
		return colorSuccess(text)
	case code >= 300 && code < 400:
		return colorInfo(text)
	case code >= 400 && code < 500:
		return colorWarn(text)
	case code >= 500:
		return colorError(text)
	default:
		return text
	}
}
