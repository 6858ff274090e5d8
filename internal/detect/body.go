package detect

import "regexp"

// bodyRules run over the whole body, HTML or not. Word boundaries keep
// "reaction" from reporting React.
var bodyRules = []struct {
	name    string
	pattern *regexp.Regexp
}{
	{"jQuery", regexp.MustCompile(`(?i)\bjquery\b`)},
	{"WordPress", regexp.MustCompile(`(?i)\bwordpress\b|\bwp-content\b|\bwp-includes\b`)},
	{"Joomla", regexp.MustCompile(`(?i)\bjoomla\b`)},
	{"Drupal", regexp.MustCompile(`(?i)\bdrupal\b`)},
	{"Wix", regexp.MustCompile(`(?i)\bwix\b|\bwixstatic\b`)},
	{"Squarespace", regexp.MustCompile(`(?i)\bsquarespace\b`)},
	{"Bootstrap", regexp.MustCompile(`(?i)\bbootstrap\b`)},
	{"React", regexp.MustCompile(`(?i)\breact(?:js|-dom)?\b`)},
	{"Vue.js", regexp.MustCompile(`(?i)\bvue(?:js)?\b`)},
	{"Angular", regexp.MustCompile(`(?i)\bangular(?:js)?\b|\bng-app\b`)},
	{"Alpine.js", regexp.MustCompile(`(?i)\balpine(?:js)?\b|\bx-data\b`)},
	{"Django", regexp.MustCompile(`(?i)\bdjango\b|\bcsrfmiddlewaretoken\b`)},
	{"Flask", regexp.MustCompile(`(?i)\bflask\b`)},
	{"Laravel", regexp.MustCompile(`(?i)\blaravel(?:_session)?\b`)},
	{"Ruby on Rails", regexp.MustCompile(`(?i)\bruby on rails\b|\brails-ujs\b`)},
	{"Next.js", regexp.MustCompile(`(?i)\bnext\.js\b|\b__next_data__\b`)},
	{"Nuxt.js", regexp.MustCompile(`(?i)\bnuxt(?:\.js)?\b|\b__nuxt__\b`)},
	{"Shopify", regexp.MustCompile(`(?i)\bshopify\b`)},
	{"Magento", regexp.MustCompile(`(?i)\bmagento\b`)},
	{"PrestaShop", regexp.MustCompile(`(?i)\bprestashop\b`)},
	{"Google Analytics", regexp.MustCompile(`(?i)\bgoogle[- ]?analytics\b|\bgtag\(`)},
	{"Google Tag Manager", regexp.MustCompile(`(?i)\bgoogletagmanager\b|\bgoogle tag manager\b`)},
	{"Facebook Pixel", regexp.MustCompile(`(?i)\bfbq\(|\bfbevents\.js\b|\bfacebook pixel\b`)},
	{"Hotjar", regexp.MustCompile(`(?i)\bhotjar\b`)},
}

func detectBody(body string) []Detection {
	if body == "" {
		return nil
	}

	var found []Detection
	for _, rule := range bodyRules {
		if rule.pattern.MatchString(body) {
			found = append(found, named(rule.name))
		}
	}
	return found
}
