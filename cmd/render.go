package cmd

import (
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"

	"github.com/inkyvoxel/interrogate/internal/robots"
	"github.com/inkyvoxel/interrogate/internal/scan"
	jsoniter "github.com/json-iterator/go"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

const (
	formatJSON = "json"
	formatText = "text"
)

func validateFormat(format string) error {
	switch format {
	case formatJSON, formatText:
		return nil
	}
	return &UnsupportedFormatError{Format: format}
}

func writeJSONIndent(w io.Writer, v interface{}) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode output: %w", err)
	}
	_, err = fmt.Fprintln(w, string(data))
	return err
}

func renderReport(w io.Writer, format string, report *scan.Report) error {
	if format == formatText {
		writeReportText(w, report)
		return nil
	}
	return writeJSONIndent(w, report)
}

func renderBatch(w io.Writer, format string, results []scan.Result) error {
	if format != formatText {
		return writeJSONIndent(w, results)
	}
	for i, res := range results {
		if i > 0 {
			fmt.Fprintln(w)
		}
		if res.Error != "" {
			fmt.Fprintf(w, "%s %s: %s\n", formatStatusWithColor("error"), res.Target, res.Error)
			continue
		}
		fmt.Fprintf(w, "%s %s\n", formatStatusWithColor("ok"), res.Target)
		writeReportText(w, res.Report)
	}
	return nil
}

func writeReportText(w io.Writer, report *scan.Report) {
	if report == nil {
		return
	}
	fmt.Fprintf(w, "%s %s\n", colorTitle("URL:   "), report.FinalURL)
	fmt.Fprintf(w, "%s %s\n", colorTitle("Status:"), formatStatusCode(report.StatusCode))

	fmt.Fprintln(w, colorTitle("Technologies:"))
	if len(report.Technologies) == 0 {
		fmt.Fprintln(w, "  (none detected)")
	}
	for _, tech := range report.Technologies {
		fmt.Fprintf(w, "  - %s\n", colorInfo(tech.String()))
	}

	if len(report.Headers) > 0 {
		fmt.Fprintln(w, colorTitle("Headers:"))
		keys := make([]string, 0, len(report.Headers))
		for k := range report.Headers {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			fmt.Fprintf(w, "  %s: %s\n", k, report.Headers[k])
		}
	}

	if report.BodyPreview != nil {
		title := "Body preview:"
		if report.Truncated {
			title = "Body preview (truncated):"
		}
		fmt.Fprintln(w, colorTitle(title))
		for _, line := range strings.Split(*report.BodyPreview, "\n") {
			fmt.Fprintf(w, "  %s\n", line)
		}
	}

	if report.RobotsTxt != nil {
		writeRobotsText(w, report.RobotsTxt)
	}
}

func writeRobotsText(w io.Writer, info *robots.Info) {
	fmt.Fprintln(w, colorTitle("robots.txt:"))
	if info.Error != "" {
		fmt.Fprintf(w, "  %s\n", colorWarn(info.Error))
		return
	}
	writeList(w, "User agents", info.UserAgents)
	writeList(w, "Disallowed", info.Disallowed)
	writeList(w, "Sitemaps", info.Sitemaps)
	if info.CrawlDelay != nil {
		fmt.Fprintf(w, "  Crawl delay: %ss\n", strconv.FormatFloat(*info.CrawlDelay, 'f', -1, 64))
	}
	if info.TargetAllowed != nil {
		status := "disallowed"
		if *info.TargetAllowed {
			status = "allowed"
		}
		fmt.Fprintf(w, "  Target: %s\n", formatStatusWithColor(status))
	}
}

func writeList(w io.Writer, label string, items []string) {
	if len(items) == 0 {
		return
	}
	fmt.Fprintf(w, "  %s: %s\n", label, strings.Join(items, ", "))
}
