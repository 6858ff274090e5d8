// Package detect is the interrogate fingerprinting engine.
//
// Architecture overview:
//
//   - A SignalBundle carries everything observed about one page: response
//     headers, the decoded body (empty when absent) and the parsed robots.txt.
//   - Detectors are pure functions over a bundle. They run in a fixed order:
//     server/runtime/generator headers, CDN providers, HTML structure, body
//     vocabulary, robots.txt signatures.
//   - Every rule table is an ordered slice, never a map, so the more specific
//     fingerprint (Tomcat) is always tried before the generic one (Apache).
//   - Detect concatenates detector output and keeps the first Detection seen
//     for each name, even when a later one carries a version.
//
// Nothing in this package performs I/O, logs or returns errors: garbage input
// degrades to an empty result.
package detect
