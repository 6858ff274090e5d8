package detect

import (
	"net/http"
	"regexp"
	"sort"

	"github.com/inkyvoxel/interrogate/internal/robots"
)

// Detection is one identified technology. Version is nil when the signal
// did not carry one.
type Detection struct {
	Name    string  `json:"name"`
	Version *string `json:"version"`
}

// String renders "Name Version", or just the name when unversioned.
func (d Detection) String() string {
	if d.Version == nil {
		return d.Name
	}
	return d.Name + " " + *d.Version
}

// SignalBundle is the input to Detect.
type SignalBundle struct {
	Headers http.Header
	// Body is the decoded response text. Empty means absent.
	Body   string
	Robots *robots.Info
}

// HeadersFromMap builds canonical http.Header values from a plain map. When
// keys differ only in case, the value of the lowest key in byte order wins.
func HeadersFromMap(m map[string]string) http.Header {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	h := make(http.Header, len(m))
	for _, k := range keys {
		if _, ok := h[http.CanonicalHeaderKey(k)]; ok {
			continue
		}
		h.Set(k, m[k])
	}
	return h
}

func named(name string) Detection {
	return Detection{Name: name}
}

func versioned(name, version string) Detection {
	if version == "" {
		return Detection{Name: name}
	}
	return Detection{Name: name, Version: &version}
}

// versionPattern matches token followed by an optional "/", " " or " v"
// separator and an optional dotted numeric version.
//
//	nginx/1.18.0, Apache Tomcat/9.0.50, WordPress 5.8, PHP/7.4.3
func versionPattern(token string) *regexp.Regexp {
	return regexp.MustCompile(`(?i)` + token + `(?:[/ ]v?)?(\d+(?:\.\d+)*)?`)
}

// extractVersion returns the first capture group of the first match, or ""
// when the pattern matched without a version.
func extractVersion(match []string) string {
	if len(match) > 1 {
		return match[1]
	}
	return ""
}
