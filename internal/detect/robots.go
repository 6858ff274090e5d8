package detect

import (
	"regexp"

	"github.com/inkyvoxel/interrogate/internal/robots"
)

// robotsRules match line-oriented against raw robots.txt text.
var robotsRules = []struct {
	name    string
	pattern *regexp.Regexp
}{
	{"WordPress", regexp.MustCompile(`(?im)^\s*disallow:\s*/wp-(?:admin|includes)`)},
	{"Joomla", regexp.MustCompile(`(?im)^\s*disallow:\s*/administrator/`)},
	// Disallow: /index.php/user/register/, Disallow: /?q=user/login/
	{"Drupal", regexp.MustCompile(`(?im)^\s*disallow:\s*(?:/index\.php)?/(?:\?q=)?user/(?:register|password|login)`)},
	{"Magento", regexp.MustCompile(`(?im)^\s*disallow:\s*(?:/\*)?/catalogsearch/`)},
	// Disallow: /checkouts/, Disallow: /*/checkouts
	{"Shopify", regexp.MustCompile(`(?im)^\s*disallow:\s*(?:/\*)?/checkouts`)},
	{"Sitecore", regexp.MustCompile(`(?im)^\s*disallow:\s*/sitecore`)},
	// # robots.txt automatically generated by PrestaShop e-commerce open-source solution
	{"PrestaShop", regexp.MustCompile(`(?im)^\s*#.*\bprestashop\b`)},
}

func detectRobots(info *robots.Info) []Detection {
	if !info.HasContent() {
		return nil
	}

	var found []Detection
	for _, rule := range robotsRules {
		if rule.pattern.MatchString(info.Content) {
			found = append(found, named(rule.name))
		}
	}
	return found
}
