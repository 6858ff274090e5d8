// Package robots parses robots.txt files into the structured form reported
// alongside a scan and consumed by the robots signature detector.
package robots

import (
	"bufio"
	"net/url"
	"strconv"
	"strings"

	jsoniter "github.com/json-iterator/go"
	"github.com/temoto/robotstxt"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Info is a parsed robots.txt. A non-empty Error means the file could not
// be retrieved and every other field is zero.
type Info struct {
	Content       string   `json:"raw"`
	Disallowed    []string `json:"disallowed"`
	Sitemaps      []string `json:"sitemaps"`
	CrawlDelay    *float64 `json:"crawl_delay"`
	UserAgents    []string `json:"user_agents"`
	TargetAllowed *bool    `json:"target_allowed,omitempty"`
	Error         string   `json:"error,omitempty"`

	data *robotstxt.RobotsData
}

// Failed builds an Info that only carries an error message.
func Failed(msg string) *Info {
	return &Info{Error: msg}
}

// Parse extracts directives from raw robots.txt text. Directive names are
// matched case-insensitively; user agents and disallowed paths are reported
// lower-cased and de-duplicated in first-seen order.
func Parse(raw string) *Info {
	info := &Info{
		Content:    raw,
		Disallowed: []string{},
		Sitemaps:   []string{},
		UserAgents: []string{},
	}

	seenAgents := make(map[string]struct{})
	seenPaths := make(map[string]struct{})

	scanner := bufio.NewScanner(strings.NewReader(raw))
	scanner.Buffer(make([]byte, 0, 64*1024), len(raw)+1)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		key, value, ok := splitDirective(line)
		if !ok {
			continue
		}

		switch key {
		case "user-agent":
			agent := strings.ToLower(value)
			if _, dup := seenAgents[agent]; !dup {
				seenAgents[agent] = struct{}{}
				info.UserAgents = append(info.UserAgents, agent)
			}
		case "disallow":
			path := strings.ToLower(value)
			if path == "" {
				continue
			}
			if _, dup := seenPaths[path]; !dup {
				seenPaths[path] = struct{}{}
				info.Disallowed = append(info.Disallowed, path)
			}
		case "crawl-delay":
			if delay, err := strconv.ParseFloat(value, 64); err == nil {
				info.CrawlDelay = &delay
			}
		case "sitemap":
			if value != "" {
				info.Sitemaps = append(info.Sitemaps, value)
			}
		}
	}

	// Parse errors only affect Allows, which then permits everything.
	if data, err := robotstxt.FromString(raw); err == nil {
		info.data = data
	}
	return info
}

func splitDirective(line string) (key, value string, ok bool) {
	if line == "" || strings.HasPrefix(line, "#") {
		return "", "", false
	}
	idx := strings.IndexByte(line, ':')
	if idx < 0 {
		return "", "", false
	}
	key = strings.ToLower(strings.TrimSpace(line[:idx]))
	value = strings.TrimSpace(line[idx+1:])
	if hash := strings.Index(value, " #"); hash >= 0 {
		value = strings.TrimSpace(value[:hash])
	}
	return key, value, true
}

// Allows reports whether agent may fetch target (a path or absolute URL)
// according to the parsed rules.
func (i *Info) Allows(agent, target string) bool {
	if i == nil || i.data == nil {
		return true
	}

	path := target
	if u, err := url.Parse(target); err == nil && u.IsAbs() {
		path = u.EscapedPath()
		if u.RawQuery != "" {
			path += "?" + u.RawQuery
		}
	}
	if path == "" {
		path = "/"
	}
	return i.data.FindGroup(agent).Test(path)
}

// HasContent reports whether the file was retrieved and is non-empty.
func (i *Info) HasContent() bool {
	return i != nil && i.Error == "" && i.Content != ""
}

// MarshalJSON renders failures as a bare {"error": ...} object.
func (i Info) MarshalJSON() ([]byte, error) {
	if i.Error != "" {
		return json.Marshal(struct {
			Error string `json:"error"`
		}{Error: i.Error})
	}
	type plain Info
	return json.Marshal(plain(i))
}
