package usertrace

import (
	"net/http"
	"regexp"
	"strings"
)

// StatusCodeDetector is a [Detector] that decides from the HTTP status code
// alone, ignoring the response body and final URL.
//
// Status mapping:
//   - 200: [StatusFound]
//   - All other codes: [StatusNotFound]
//
// This matches the common case of profile pages that return 200 when the
// user exists and 404 (or a redirect to an error page) when not.
var StatusCodeDetector Detector = func(body []byte, statusCode int, finalURL string) Status {
	if statusCode == http.StatusOK {
		return StatusFound
	}
	return StatusNotFound
}

// BodyPatternDetector returns a [Detector] that matches the response body
// against a regular expression pattern.
//
// Many sites return 200 for unknown users and signal "not found" inside the
// page itself. The pattern is compiled case-insensitively with "." matching
// newlines, so it can span the whole document.
//
// Status mapping:
//   - Pattern matches the body: [StatusNotFound]
//   - No match: [StatusUnknown]
//
// Returning [StatusUnknown] on no match makes this detector composable with
// [FirstOf]; combine it with [StatusCodeDetector] as the final fallback.
//
// Returns an error if the pattern is invalid.
//
// Example:
//
//	detector, err := usertrace.BodyPatternDetector(`this page (isn't|is not) available`)
func BodyPatternDetector(pattern string) (Detector, error) {
	re, err := regexp.Compile("(?is)" + pattern)
	if err != nil {
		return nil, err
	}

	return func(body []byte, statusCode int, finalURL string) Status {
		if re.Match(body) {
			return StatusNotFound
		}
		return StatusUnknown
	}, nil
}

// MustBodyPatternDetector is like [BodyPatternDetector] but panics if the
// pattern is invalid.
//
// Use this for compile-time constant patterns where you want to fail fast
// on invalid regex. For runtime patterns, use [BodyPatternDetector] instead.
func MustBodyPatternDetector(pattern string) Detector {
	detector, err := BodyPatternDetector(pattern)
	if err != nil {
		panic("usertrace: invalid body pattern: " + err.Error())
	}
	return detector
}

// URLPatternDetector returns a [Detector] that matches the final request URL
// against a regular expression pattern.
//
// Sites that redirect unknown users to a landing or signup page are handled
// by inspecting the URL the request ended at. The pattern is compiled
// case-insensitively.
//
// Status mapping:
//   - Pattern matches the final URL: [StatusNotFound]
//   - No match: [StatusUnknown]
//
// Returns an error if the pattern is invalid.
//
// Example:
//
//	detector, err := usertrace.URLPatternDetector(`/accounts/login`)
func URLPatternDetector(pattern string) (Detector, error) {
	re, err := regexp.Compile("(?i)" + pattern)
	if err != nil {
		return nil, err
	}

	return func(body []byte, statusCode int, finalURL string) Status {
		if re.MatchString(finalURL) {
			return StatusNotFound
		}
		return StatusUnknown
	}, nil
}

// MustURLPatternDetector is like [URLPatternDetector] but panics if the
// pattern is invalid.
func MustURLPatternDetector(pattern string) Detector {
	detector, err := URLPatternDetector(pattern)
	if err != nil {
		panic("usertrace: invalid url pattern: " + err.Error())
	}
	return detector
}

// ContainsDetector returns a [Detector] that checks if the response body
// contains the specified text (case-insensitive).
//
// Status mapping:
//   - Body contains the text: [StatusNotFound]
//   - Body does not contain the text: [StatusUnknown]
//
// This is a cheaper alternative to [BodyPatternDetector] for plain
// "user not found" markers that need no regex.
//
// Example:
//
//	detector := usertrace.ContainsDetector("sorry, nobody here by that name")
func ContainsDetector(text string) Detector {
	lower := strings.ToLower(text)
	return func(body []byte, statusCode int, finalURL string) Status {
		if strings.Contains(strings.ToLower(string(body)), lower) {
			return StatusNotFound
		}
		return StatusUnknown
	}
}

// FirstOf returns a [Detector] that tries multiple detectors in order,
// returning the first result that is not [StatusUnknown].
//
// This is useful for composing detectors with fallback behavior. Each
// detector is tried in sequence until one returns a definitive status.
//
// If all detectors return [StatusUnknown], FirstOf returns [StatusUnknown].
//
// Example:
//
//	// Redirect check first, then page text, then the status code
//	detector := usertrace.FirstOf(
//	    usertrace.MustURLPatternDetector(`/signup`),
//	    usertrace.ContainsDetector("page not found"),
//	    usertrace.StatusCodeDetector,
//	)
func FirstOf(detectors ...Detector) Detector {
	return func(body []byte, statusCode int, finalURL string) Status {
		for _, detector := range detectors {
			status := detector(body, statusCode, finalURL)
			if status != StatusUnknown {
				return status
			}
		}
		return StatusUnknown
	}
}
