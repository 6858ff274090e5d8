// Package constants centralizes limits and defaults shared across the CLI.
//
// Retrieval limits (timeouts, body caps, retry delay) and detection limits
// (HTML sniff window, parse cap, script scan count) live here so cmd/ and
// internal/ reference the same values without import cycles.
package constants
