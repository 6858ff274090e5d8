package detect

import (
	"net/http"
	"regexp"
)

type headerRule struct {
	name    string
	pattern *regexp.Regexp
}

// serverRules is ordered by specificity: "Apache Tomcat/9.0.50" must be
// reported as Tomcat, not Apache.
var serverRules = []headerRule{
	{"Tomcat", versionPattern(`tomcat`)},
	{"Apache", versionPattern(`apache`)},
	{"Nginx", versionPattern(`nginx`)},
	// Microsoft-IIS/10.0
	{"IIS", versionPattern(`iis`)},
	{"LiteSpeed", versionPattern(`litespeed`)},
	{"Caddy", versionPattern(`caddy`)},
}

var runtimeRules = []headerRule{
	{"PHP", versionPattern(`php`)},
	{"ASP.NET", versionPattern(`asp\.net`)},
	{"Node.js", versionPattern(`node\.js`)},
	{"Python", versionPattern(`python`)},
}

// generatorRules take the version directly after the name: "Drupal 10",
// "Joomla! 4.2" has none.
var generatorRules = []headerRule{
	{"WordPress", versionPattern(`wordpress`)},
	{"Drupal", versionPattern(`drupal`)},
	{"Joomla", versionPattern(`joomla`)},
}

var headerTables = []struct {
	header string
	rules  []headerRule
}{
	{"Server", serverRules},
	{"X-Powered-By", runtimeRules},
	{"X-Generator", generatorRules},
}

// detectHeaders reports at most one technology per identity header.
func detectHeaders(h http.Header) []Detection {
	var found []Detection
	for _, table := range headerTables {
		value := h.Get(table.header)
		if value == "" {
			continue
		}
		if d, ok := firstMatch(table.rules, value); ok {
			found = append(found, d)
		}
	}
	return found
}

func firstMatch(rules []headerRule, value string) (Detection, bool) {
	for _, rule := range rules {
		if match := rule.pattern.FindStringSubmatch(value); match != nil {
			return versioned(rule.name, extractVersion(match)), true
		}
	}
	return Detection{}, false
}
