// Package scan ties retrieval, robots.txt parsing and detection together
// into a single interrogation of one URL, and runs many of them
// concurrently for batch mode.
package scan

import (
	"context"
	"net/http"
	"strings"
	"unicode/utf8"

	"github.com/inkyvoxel/interrogate/internal/detect"
	"github.com/inkyvoxel/interrogate/internal/fetch"
	"github.com/inkyvoxel/interrogate/internal/robots"
	consts "github.com/inkyvoxel/interrogate/internal/shared/constants"
	"go.uber.org/zap"
)

// Options selects the optional sections of a Report.
type Options struct {
	IncludeHeaders bool `json:"headers"`
	IncludeBody    bool `json:"body"`
	IncludeRobots  bool `json:"robots"`
	// PreviewBytes caps body_preview; zero uses BodyPreviewBytes.
	PreviewBytes int `json:"-"`
}

// All returns opts with every optional section enabled.
func (o Options) All() Options {
	o.IncludeHeaders = true
	o.IncludeBody = true
	o.IncludeRobots = true
	return o
}

// Report is the result of interrogating one URL.
type Report struct {
	StatusCode   int                `json:"status_code"`
	FinalURL     string             `json:"final_url"`
	Technologies []detect.Detection `json:"technologies"`
	Headers      map[string]string  `json:"headers,omitempty"`
	BodyPreview  *string            `json:"body_preview,omitempty"`
	Truncated    bool               `json:"body_truncated,omitempty"`
	RobotsTxt    *robots.Info       `json:"robots_txt,omitempty"`
}

// Interrogator is implemented by Scanner; the batch runner and API server
// depend on it so tests can substitute a fake.
type Interrogator interface {
	Scan(ctx context.Context, rawURL string, opts Options) (*Report, error)
}

// Scanner interrogates URLs with a shared fetch client.
type Scanner struct {
	client *fetch.Client
	logger *zap.Logger
}

// NewScanner builds a Scanner. A nil logger disables logging.
func NewScanner(client *fetch.Client, logger *zap.Logger) *Scanner {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Scanner{client: client, logger: logger}
}

// Scan validates rawURL, fetches the page and its robots.txt, and runs
// detection. Only an invalid URL or a failed page fetch returns an error;
// robots.txt problems are reported inside the Report.
func (s *Scanner) Scan(ctx context.Context, rawURL string, opts Options) (*Report, error) {
	if _, err := fetch.ValidateURL(rawURL); err != nil {
		return nil, err
	}

	resp, err := s.client.Get(ctx, rawURL)
	if err != nil {
		s.logger.Debug("page fetch failed", zap.String("url", rawURL), zap.Error(err))
		return nil, err
	}

	// robots.txt is always retrieved because the detector consumes it.
	robotsInfo := robots.Fetch(ctx, s.client, rawURL)
	if robotsInfo.Error != "" {
		s.logger.Debug("robots.txt unavailable", zap.String("url", rawURL), zap.String("reason", robotsInfo.Error))
	}

	report := &Report{
		StatusCode: resp.StatusCode,
		FinalURL:   resp.FinalURL,
		Technologies: detect.Detect(detect.SignalBundle{
			Headers: resp.Header,
			Body:    resp.Body,
			Robots:  robotsInfo,
		}),
	}

	if opts.IncludeHeaders {
		report.Headers = flattenHeaders(resp.Header)
	}
	if opts.IncludeBody {
		limit := opts.PreviewBytes
		if limit <= 0 {
			limit = consts.BodyPreviewBytes
		}
		preview := previewOf(resp.Body, limit)
		report.BodyPreview = &preview
		report.Truncated = resp.Truncated
	}
	if opts.IncludeRobots {
		report.RobotsTxt = robotsInfo
	}

	s.logger.Debug("interrogated",
		zap.String("url", rawURL),
		zap.Int("status", resp.StatusCode),
		zap.Strings("technologies", detect.Names(report.Technologies)),
	)
	return report, nil
}

// flattenHeaders joins repeated header values with ", ".
func flattenHeaders(h http.Header) map[string]string {
	out := make(map[string]string, len(h))
	for k, v := range h {
		out[k] = strings.Join(v, ", ")
	}
	return out
}

func previewOf(body string, limit int) string {
	if len(body) <= limit {
		return body
	}
	for limit > 0 && !utf8.RuneStart(body[limit]) {
		limit--
	}
	return body[:limit]
}
