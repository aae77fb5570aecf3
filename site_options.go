package usertrace

import (
	"errors"
	"net/http"
	"regexp"
	"strings"
	"time"
)

// siteConfig holds mutable state during site construction.
type siteConfig struct {
	name            string
	profileTemplate string
	category        Category
	method          string
	headers         map[string]string
	timeout         time.Duration
	detector        Detector
	bodyPattern     *regexp.Regexp
	urlPattern      *regexp.Regexp
	ignoreStatus    bool
	rejectDots      bool
}

// SiteOption is a function that configures a [Site] during construction.
//
// SiteOption implements the functional options pattern, allowing optional
// configuration to be passed to [NewSite] in a type-safe, extensible way.
// Options return an error if validation fails.
//
// Built-in options: [WithName], [WithCategory], [WithProfileURL],
// [WithHeaders], [WithTimeout], [WithMethod], [WithDetector],
// [WithBodyPattern], [WithURLPattern], [WithIgnoreStatusCode],
// [WithRejectDots].
type SiteOption func(*siteConfig) error

// WithName overrides the site name derived from the domain.
//
// The name is the site's identity within a pool; two sites with different
// names are never considered equal.
//
// Returns an error if the name is empty.
func WithName(name string) SiteOption {
	return func(cfg *siteConfig) error {
		if strings.TrimSpace(name) == "" {
			return errors.New("site name cannot be empty")
		}
		cfg.name = name
		return nil
	}
}

// WithCategory assigns a [Category] to the site for grouping and filtering.
func WithCategory(c Category) SiteOption {
	return func(cfg *siteConfig) error {
		cfg.category = c
		return nil
	}
}

// WithProfileURL sets a separate URL template for the user-visible profile
// page, when it differs from the URL a probe must request.
//
// Like the probe template, it may contain the "{}" username placeholder.
// Returns an error if the template is not a valid http(s) URL.
//
// Example:
//
//	// probe an API endpoint, report the human-facing page
//	site, err := usertrace.NewSite("example.com", "https://api.example.com/users/{}",
//	    usertrace.WithProfileURL("https://example.com/@{}"),
//	)
func WithProfileURL(template string) SiteOption {
	return func(cfg *siteConfig) error {
		if err := validateTemplate(template); err != nil {
			return errors.New("invalid profile url template: " + err.Error())
		}
		cfg.profileTemplate = template
		return nil
	}
}

// WithHeaders adds custom HTTP headers to probe requests for this site.
//
// Use this for sites that require authentication tokens or specific Accept
// headers. Headers are sent with every probe request to this site.
//
// Accepts variadic key-value pairs. The number of arguments must be even.
//
// Example:
//
//	site, err := usertrace.NewSite("example.com", "https://example.com/{}",
//	    usertrace.WithHeaders("Accept", "text/html", "Accept-Language", "en"),
//	)
//
// Returns an error if an odd number of arguments is provided.
func WithHeaders(keyValues ...string) SiteOption {
	return func(cfg *siteConfig) error {
		if len(keyValues)%2 != 0 {
			return errors.New("WithHeaders requires an even number of arguments (key-value pairs)")
		}
		for i := 0; i < len(keyValues); i += 2 {
			cfg.headers[keyValues[i]] = keyValues[i+1]
		}
		return nil
	}
}

// WithTimeout sets the site's default per-probe timeout.
//
// An explicit timeout passed to [Site.Probe] or [Pool.Dispatch] takes
// precedence. Defaults to 10 seconds.
//
// Returns an error if the duration is zero or negative.
func WithTimeout(d time.Duration) SiteOption {
	return func(cfg *siteConfig) error {
		if d <= 0 {
			return errors.New("timeout must be positive")
		}
		cfg.timeout = d
		return nil
	}
}

// WithMethod sets the HTTP method for probe requests.
//
// Supported methods: GET, HEAD, POST. Defaults to GET.
// HEAD is useful for sites where the status code alone decides and the
// body would only waste bandwidth.
//
// Returns an error for unsupported methods.
func WithMethod(method string) SiteOption {
	return func(cfg *siteConfig) error {
		normalized := strings.ToUpper(method)
		switch normalized {
		case http.MethodGet, http.MethodHead, http.MethodPost:
			cfg.method = normalized
			return nil
		default:
			return errors.New("method must be GET, HEAD, or POST")
		}
	}
}

// WithDetector sets a custom [Detector] that decides the probe status.
//
// A custom detector replaces the built-in heuristic (status code plus the
// patterns configured via [WithBodyPattern] and [WithURLPattern]) entirely.
// See [FirstOf] for composing detectors.
//
// Returns an error if the detector is nil.
func WithDetector(d Detector) SiteOption {
	return func(cfg *siteConfig) error {
		if d == nil {
			return errors.New("detector cannot be nil")
		}
		cfg.detector = d
		return nil
	}
}

// WithBodyPattern sets a regular expression that marks the username as not
// found when it matches the response body.
//
// The pattern is compiled case-insensitively with "." matching newlines.
// Returns an error if the pattern is invalid.
func WithBodyPattern(pattern string) SiteOption {
	return func(cfg *siteConfig) error {
		re, err := regexp.Compile("(?is)" + pattern)
		if err != nil {
			return errors.New("invalid body pattern: " + err.Error())
		}
		cfg.bodyPattern = re
		return nil
	}
}

// WithURLPattern sets a regular expression that marks the username as not
// found when it matches the URL the request ended at after redirects.
//
// The pattern is compiled case-insensitively.
// Returns an error if the pattern is invalid.
func WithURLPattern(pattern string) SiteOption {
	return func(cfg *siteConfig) error {
		re, err := regexp.Compile("(?i)" + pattern)
		if err != nil {
			return errors.New("invalid url pattern: " + err.Error())
		}
		cfg.urlPattern = re
		return nil
	}
}

// WithIgnoreStatusCode makes the built-in heuristic skip the HTTP status
// code check.
//
// Some sites return 200 for every profile URL and signal "not found" only
// in the page body; configure those with this option plus a body pattern.
func WithIgnoreStatusCode() SiteOption {
	return func(cfg *siteConfig) error {
		cfg.ignoreStatus = true
		return nil
	}
}

// WithRejectDots marks the site as rejecting usernames that contain a dot.
//
// Probing such a site with a dotted username reports [StatusNotFound]
// immediately, without a network round-trip.
func WithRejectDots() SiteOption {
	return func(cfg *siteConfig) error {
		cfg.rejectDots = true
		return nil
	}
}
