package detect

import (
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"
	consts "github.com/inkyvoxel/interrogate/internal/shared/constants"
)

var htmlMarkers = []string{"<!doctype html", "<html"}

var metaGeneratorRules = []headerRule{
	{"WordPress", versionPattern(`wordpress`)},
	{"Joomla", versionPattern(`joomla`)},
	{"Drupal", versionPattern(`drupal`)},
	{"Wix", regexp.MustCompile(`(?i)\bwix\b`)},
	{"Squarespace", regexp.MustCompile(`(?i)squarespace`)},
}

type scriptRule struct {
	name   string
	marker *regexp.Regexp
	// version is nil for products that are never versioned from a URL.
	version *regexp.Regexp
}

func libraryVersion(token string) *regexp.Regexp {
	return regexp.MustCompile(token + `[-@/](\d+(?:\.\d+)*)`)
}

// scriptRules match against lower-cased src attributes.
var scriptRules = []scriptRule{
	// jquery-3.6.0.min.js, jquery@3.6.0, ajax/libs/jquery/3.6.0/jquery.min.js
	{"jQuery", regexp.MustCompile(`jquery`), libraryVersion(`jquery`)},
	// react@18.2.0/umd/react.production.min.js, react-dom@18.2.0
	{"React", regexp.MustCompile(`react`), libraryVersion(`react(?:-dom)?`)},
	{"Vue.js", regexp.MustCompile(`vue`), libraryVersion(`vue`)},
	// angularjs/1.8.2/angular.min.js
	{"Angular", regexp.MustCompile(`angular`), libraryVersion(`angular(?:js)?`)},
	{"Alpine.js", regexp.MustCompile(`alpine`), libraryVersion(`alpine(?:js)?`)},
	{"Bootstrap", regexp.MustCompile(`bootstrap`), libraryVersion(`bootstrap`)},
	{"Google Analytics", regexp.MustCompile(`google-analytics\.com|/gtag/js|\banalytics\.js|\bga\.js`), nil},
	{"Google Tag Manager", regexp.MustCompile(`googletagmanager\.com/gtm\.js|\bgtm\.js`), nil},
	{"Facebook Pixel", regexp.MustCompile(`connect\.facebook\.net|fbevents\.js`), nil},
	{"Hotjar", regexp.MustCompile(`hotjar`), nil},
	{"Shopify", regexp.MustCompile(`shopify`), nil},
	{"Magento", regexp.MustCompile(`magento|/mage/`), nil},
	{"PrestaShop", regexp.MustCompile(`prestashop`), nil},
}

// reactBodyVersion is a heuristic: bundles often embed their package.json.
var reactBodyVersion = regexp.MustCompile(`"version"\s*:\s*"(\d+(?:\.\d+)*)"`)

// detectHTML parses the start of an HTML body and inspects generator meta
// tags and script sources.
func detectHTML(body string) []Detection {
	if !looksLikeHTML(body) {
		return nil
	}

	parsed := truncateBytes(body, consts.HTMLParseLimitBytes)
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(parsed))
	if err != nil {
		return nil
	}

	var found []Detection

	doc.Find("meta").Each(func(_ int, s *goquery.Selection) {
		name, _ := s.Attr("name")
		if !strings.EqualFold(strings.TrimSpace(name), "generator") {
			return
		}
		content, ok := s.Attr("content")
		if !ok {
			return
		}
		for _, rule := range metaGeneratorRules {
			if match := rule.pattern.FindStringSubmatch(content); match != nil {
				found = append(found, versioned(rule.name, extractVersion(match)))
			}
		}
	})

	doc.Find("script[src]").EachWithBreak(func(i int, s *goquery.Selection) bool {
		if i >= consts.MaxScriptSources {
			return false
		}
		src, _ := s.Attr("src")
		found = append(found, matchScript(strings.ToLower(src), parsed)...)
		return true
	})

	return found
}

func matchScript(src, body string) []Detection {
	if src == "" {
		return nil
	}

	var found []Detection
	for _, rule := range scriptRules {
		if !rule.marker.MatchString(src) {
			continue
		}
		if rule.version == nil {
			found = append(found, named(rule.name))
			continue
		}
		version := extractVersion(rule.version.FindStringSubmatch(src))
		if version == "" && rule.name == "React" {
			version = extractVersion(reactBodyVersion.FindStringSubmatch(body))
		}
		found = append(found, versioned(rule.name, version))
	}
	return found
}

// looksLikeHTML checks the first HTMLSniffChars characters for a doctype or
// root element.
func looksLikeHTML(body string) bool {
	if body == "" {
		return false
	}
	head := strings.ToLower(truncateRunes(body, consts.HTMLSniffChars))
	for _, marker := range htmlMarkers {
		if strings.Contains(head, marker) {
			return true
		}
	}
	return false
}

func truncateRunes(s string, n int) string {
	count := 0
	for i := range s {
		if count == n {
			return s[:i]
		}
		count++
	}
	return s
}

// truncateBytes cuts s to at most n bytes without splitting a rune.
func truncateBytes(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}
