package detect

import (
	"net/http"
	"strings"
)

type headerCheck func(http.Header) bool

// present matches when the header exists, even with an empty value.
func present(key string) headerCheck {
	return func(h http.Header) bool {
		return len(h.Values(key)) > 0
	}
}

// serverContains matches a case-insensitive substring of the Server header.
func serverContains(sub string) headerCheck {
	return headerContainsFold("Server", sub)
}

func headerContainsFold(key, sub string) headerCheck {
	sub = strings.ToLower(sub)
	return func(h http.Header) bool {
		return strings.Contains(strings.ToLower(h.Get(key)), sub)
	}
}

func headerContains(key, sub string) headerCheck {
	return func(h http.Header) bool {
		return strings.Contains(h.Get(key), sub)
	}
}

// cacheStatus matches X-Cache values that are exactly HIT or MISS.
func cacheStatus(h http.Header) bool {
	switch strings.ToUpper(h.Get("X-Cache")) {
	case "HIT", "MISS":
		return true
	}
	return false
}

// cdnRules are independent: every provider whose checks match is reported.
var cdnRules = []struct {
	name   string
	checks []headerCheck
}{
	{"Fastly", []headerCheck{present("X-Served-By"), cacheStatus, serverContains("fastly")}},
	{"Cloudflare", []headerCheck{present("CF-RAY"), present("CF-IPCountry"), serverContains("cloudflare")}},
	{"Akamai", []headerCheck{present("X-Akamai-Transformed"), serverContains("akamai"), headerContains("X-Cache", "AkamaiGHost")}},
	{"AWS CloudFront", []headerCheck{present("X-Amz-Cf-Id"), headerContains("Via", "cloudfront.net"), headerContainsFold("X-Cache", "cloudfront")}},
	{"Azure CDN", []headerCheck{present("X-Azure-Ref"), present("X-Azure-RequestChain"), serverContains("azurecdn")}},
	// Shares the bare HIT/MISS check with Fastly.
	{"Google Cloud CDN", []headerCheck{cacheStatus, serverContains("google frontend")}},
	{"Bunny CDN", []headerCheck{serverContains("bunnycdn"), present("X-Bunny-Id")}},
	{"Imperva", []headerCheck{present("X-Iinfo")}},
	{"KeyCDN", []headerCheck{serverContains("keycdn"), present("X-Edge-Location")}},
	{"StackPath", []headerCheck{serverContains("stackpath"), present("X-HW")}},
	{"CDN77", []headerCheck{serverContains("cdn77"), present("X-Cache-Status")}},
}

func detectCDNs(h http.Header) []Detection {
	var found []Detection
	for _, rule := range cdnRules {
		for _, check := range rule.checks {
			if check(h) {
				found = append(found, named(rule.name))
				break
			}
		}
	}
	return found
}
