package constants

import "time"

const (
	// DefaultUserAgent identifies the tool on both the page and robots.txt requests.
	DefaultUserAgent = "Interrogate/1.0 (+https://github.com/inkyvoxel/interrogate)"
	// DefaultTimeout bounds a single HTTP exchange.
	DefaultTimeout = 10 * time.Second
	// DefaultRetryDelay is the pause before the single retry on 429/503.
	DefaultRetryDelay = 2 * time.Second
	// DefaultMaxRedirects mirrors net/http's own redirect ceiling.
	DefaultMaxRedirects = 10
)

const (
	// MaxBodyBytes caps how much of a response body is read into memory.
	MaxBodyBytes = 5 * 1024 * 1024
	// BodyPreviewBytes caps the body excerpt included in reports.
	BodyPreviewBytes = 2048
	// RobotsMaxBytes caps how much of robots.txt is read.
	RobotsMaxBytes = 512 * 1024
)

const (
	// HTMLSniffChars is how many leading characters are searched for an HTML marker.
	HTMLSniffChars = 1000
	// HTMLParseLimitBytes caps the body handed to the structural HTML parser.
	HTMLParseLimitBytes = 100 * 1024
	// MaxScriptSources is how many <script src> elements the structural pass inspects.
	MaxScriptSources = 30
)
