package fetch

import (
	"fmt"
	"net/url"
	"strings"

	sharedErrors "github.com/inkyvoxel/interrogate/internal/shared/errors"
)

// ValidateURL checks that raw is an absolute http(s) URL with a host.
// The returned error wraps ErrInvalidURL and the specific cause.
func ValidateURL(raw string) (*url.URL, error) {
	if strings.TrimSpace(raw) == "" {
		return nil, fmt.Errorf("%w: %w", sharedErrors.ErrInvalidURL, sharedErrors.ErrEmptyTarget)
	}

	parsed, err := url.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", sharedErrors.ErrInvalidURL, err)
	}
	if parsed.Scheme == "" {
		return nil, fmt.Errorf("%w: %w", sharedErrors.ErrInvalidURL, sharedErrors.ErrMissingScheme)
	}
	if parsed.Host == "" {
		return nil, fmt.Errorf("%w: %w", sharedErrors.ErrInvalidURL, sharedErrors.ErrMissingHost)
	}

	switch strings.ToLower(parsed.Scheme) {
	case "http", "https":
	default:
		return nil, fmt.Errorf("%w: %w %q", sharedErrors.ErrInvalidURL, sharedErrors.ErrUnsupportedScheme, parsed.Scheme)
	}

	return parsed, nil
}

// NormalizeTarget turns a batch-file entry into a URL. It handles various
// input formats:
//   - example.com
//   - example.com:8080/path
//   - http://example.com
//   - https://example.com:443/path
//
// Entries without a scheme are assumed to be https.
func NormalizeTarget(target string) string {
	target = strings.TrimSpace(target)
	if target == "" {
		return ""
	}

	parsed, err := url.Parse(target)

	// A scheme containing dots is really a host ("example.com:8080").
	if err != nil || parsed.Scheme == "" || strings.Contains(parsed.Scheme, ".") || parsed.Host == "" {
		parsed, err = url.Parse("https://" + strings.TrimPrefix(target, "//"))
		if err != nil {
			return target
		}
	}

	if parsed.Path == "" {
		parsed.Path = "/"
	}
	return parsed.String()
}

// RobotsURL resolves /robots.txt against a page URL.
func RobotsURL(pageURL string) (string, error) {
	base, err := url.Parse(pageURL)
	if err != nil {
		return "", err
	}
	return base.ResolveReference(&url.URL{Path: "/robots.txt"}).String(), nil
}
