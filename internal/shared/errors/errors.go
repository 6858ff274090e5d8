package errors

import "errors"

// Domain errors
var (
	// Target errors
	ErrInvalidURL        = errors.New("invalid URL")
	ErrMissingScheme     = errors.New("missing protocol (e.g., http:// or https://)")
	ErrMissingHost       = errors.New("missing domain or network location")
	ErrUnsupportedScheme = errors.New("unsupported protocol")
	ErrEmptyTarget       = errors.New("target cannot be empty")

	// Retrieval errors
	ErrFetchFailed    = errors.New("failed to fetch URL")
	ErrRobotsNotFound = errors.New("robots.txt not found")
	ErrRobotsFetch    = errors.New("failed to fetch robots.txt")

	// Validation errors
	ErrInvalidInput    = errors.New("invalid input")
	ErrMissingRequired = errors.New("missing required field")
)
