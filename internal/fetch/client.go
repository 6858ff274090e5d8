package fetch

import (
	"bytes"
	"context"
	"crypto/tls"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strings"
	"time"
	"unicode/utf8"

	consts "github.com/inkyvoxel/interrogate/internal/shared/constants"
	sharedErrors "github.com/inkyvoxel/interrogate/internal/shared/errors"
	"go.uber.org/zap"
	"golang.org/x/net/html/charset"
)

// Options configures a Client. Zero values fall back to the package defaults.
type Options struct {
	Timeout      time.Duration
	MaxRedirects int
	MaxBodyBytes int64
	UserAgent    string
	RetryDelay   time.Duration
	Logger       *zap.Logger
}

// Response is a fully read HTTP response.
type Response struct {
	StatusCode  int
	FinalURL    string
	Header      http.Header
	ContentType string
	// Body is the UTF-8 decoded body, or empty when the content is not text
	// or could not be decoded.
	Body      string
	Truncated bool
}

// Client issues GET requests with a redirect ceiling, a body cap and a single
// retry on transient status codes.
type Client struct {
	opts   Options
	http   *http.Client
	logger *zap.Logger
}

// NewClient builds a Client from opts.
func NewClient(opts Options) *Client {
	if opts.Timeout <= 0 {
		opts.Timeout = consts.DefaultTimeout
	}
	if opts.MaxRedirects <= 0 {
		opts.MaxRedirects = consts.DefaultMaxRedirects
	}
	if opts.MaxBodyBytes <= 0 {
		opts.MaxBodyBytes = consts.MaxBodyBytes
	}
	if opts.UserAgent == "" {
		opts.UserAgent = consts.DefaultUserAgent
	}
	if opts.RetryDelay < 0 {
		opts.RetryDelay = 0
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	maxRedirects := opts.MaxRedirects
	httpClient := &http.Client{
		Timeout: opts.Timeout,
		Transport: &http.Transport{
			Proxy: http.ProxyFromEnvironment,
			TLSClientConfig: &tls.Config{
				InsecureSkipVerify: false,
				MinVersion:         tls.VersionTLS12,
			},
		},
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			if len(via) >= maxRedirects {
				return fmt.Errorf("stopped after %d redirects", maxRedirects)
			}
			return nil
		},
	}

	return &Client{opts: opts, http: httpClient, logger: logger}
}

// UserAgent returns the User-Agent sent with every request.
func (c *Client) UserAgent() string {
	return c.opts.UserAgent
}

// Get fetches target. A 429 or 503 answer is retried exactly once after
// RetryDelay. Transport failures are wrapped in ErrFetchFailed.
func (c *Client) Get(ctx context.Context, target string) (*Response, error) {
	return c.get(ctx, target, false)
}

// GetText is Get for resources that are plain text whatever media type the
// server declares, such as robots.txt. A body with a non-text Content-Type is
// kept when it is valid UTF-8.
func (c *Client) GetText(ctx context.Context, target string) (*Response, error) {
	return c.get(ctx, target, true)
}

func (c *Client) get(ctx context.Context, target string, anyType bool) (*Response, error) {
	resp, err := c.do(ctx, target, anyType)
	if err != nil {
		return nil, err
	}
	if !isTransientStatus(resp.StatusCode) {
		return resp, nil
	}

	c.logger.Debug("transient status, retrying once",
		zap.String("url", target),
		zap.Int("status", resp.StatusCode),
		zap.Duration("delay", c.opts.RetryDelay),
	)

	timer := time.NewTimer(c.opts.RetryDelay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%w: %w", sharedErrors.ErrFetchFailed, ctx.Err())
	case <-timer.C:
	}

	return c.do(ctx, target, anyType)
}

func (c *Client) do(ctx context.Context, target string, anyType bool) (*Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: create request: %w", sharedErrors.ErrFetchFailed, err)
	}
	req.Header.Set("User-Agent", c.opts.UserAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", sharedErrors.ErrFetchFailed, err)
	}
	defer resp.Body.Close()

	result := &Response{
		StatusCode:  resp.StatusCode,
		FinalURL:    resp.Request.URL.String(),
		Header:      resp.Header,
		ContentType: resp.Header.Get("Content-Type"),
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, c.opts.MaxBodyBytes+1))
	if err != nil {
		// Partial bodies are still useful for detection.
		c.logger.Warn("failed to read full response body",
			zap.String("url", target),
			zap.Int("bytes_read", len(data)),
			zap.Error(err),
		)
	}
	if int64(len(data)) > c.opts.MaxBodyBytes {
		data = data[:c.opts.MaxBodyBytes]
		result.Truncated = true
		c.logger.Debug("response body truncated",
			zap.String("url", target),
			zap.Int64("limit", c.opts.MaxBodyBytes),
		)
	}

	result.Body = c.decodeBody(target, data, result.ContentType, result.Truncated, anyType)
	return result, nil
}

func (c *Client) decodeBody(target string, data []byte, contentType string, truncated, anyType bool) string {
	if len(data) == 0 {
		return ""
	}
	if truncated {
		data = trimPartialRune(data)
	}
	if !isTextContent(contentType, data) {
		if !anyType || !utf8.Valid(data) {
			return ""
		}
		return string(data)
	}
	if utf8.Valid(data) && declaresUTF8(contentType) {
		return string(data)
	}

	reader, err := charset.NewReader(bytes.NewReader(data), contentType)
	if err != nil {
		c.logger.Debug("charset detection failed, using raw bytes",
			zap.String("url", target),
			zap.String("content_type", contentType),
			zap.Error(err),
		)
		reader = bytes.NewReader(data)
	}
	decoded, err := io.ReadAll(reader)
	if err != nil {
		decoded = data
	}
	if !utf8.Valid(decoded) {
		c.logger.Debug("response body is not valid UTF-8, dropping", zap.String("url", target))
		return ""
	}
	return string(decoded)
}

// trimPartialRune drops an incomplete UTF-8 sequence left at the end of a
// truncated buffer.
func trimPartialRune(b []byte) []byte {
	start := len(b) - 1
	for start >= 0 && len(b)-start < utf8.UTFMax && !utf8.RuneStart(b[start]) {
		start--
	}
	if start < 0 {
		return b
	}
	if !utf8.FullRune(b[start:]) {
		return b[:start]
	}
	return b
}

// declaresUTF8 reports whether contentType names UTF-8 or no charset at all.
func declaresUTF8(contentType string) bool {
	_, params, err := mime.ParseMediaType(contentType)
	if err != nil {
		return true
	}
	cs := strings.TrimSpace(params["charset"])
	return cs == "" || strings.EqualFold(cs, "utf-8") || strings.EqualFold(cs, "utf8")
}

func isTransientStatus(status int) bool {
	return status == http.StatusTooManyRequests || status == http.StatusServiceUnavailable
}

var textMediaTypes = map[string]struct{}{
	"application/json":       {},
	"application/ld+json":    {},
	"application/xml":        {},
	"application/xhtml+xml":  {},
	"application/javascript": {},
	"application/rss+xml":    {},
	"application/atom+xml":   {},
}

func isTextContent(contentType string, data []byte) bool {
	if strings.TrimSpace(contentType) == "" {
		contentType = http.DetectContentType(data)
	}
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		mediaType = strings.ToLower(strings.TrimSpace(strings.Split(contentType, ";")[0]))
	}
	if strings.HasPrefix(mediaType, "text/") {
		return true
	}
	if _, ok := textMediaTypes[mediaType]; ok {
		return true
	}
	return strings.HasSuffix(mediaType, "+xml") || strings.HasSuffix(mediaType, "+json")
}
