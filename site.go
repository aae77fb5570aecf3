package usertrace

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"net/http"
	"net/url"
	"regexp"
	"runtime/debug"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/net/publicsuffix"
)

const defaultSiteTimeout = 10 * time.Second

// usernamePlaceholder marks where the username is substituted in URL
// templates, e.g. "https://example.com/user/{}".
const usernamePlaceholder = "{}"

// Site represents one remote website on which a username's existence can be
// checked.
//
// A site's identity (name, domain, URL templates, category, detection
// configuration) is immutable after creation via [NewSite]. The only mutable
// state is the username being searched for, set via [Site.SetUsername], and
// the last probe result, set internally by [Site.Probe] and read via
// [Site.Result]. Both are guarded by a mutex, so a Site is safe to share
// between a pool's dispatch goroutines and a consumer inspecting results.
//
// Sites are configured using the functional options pattern with
// [SiteOption] functions such as [WithCategory], [WithProfileURL],
// [WithBodyPattern], [WithURLPattern], [WithDetector], and [WithTimeout].
type Site struct {
	name            string
	domain          string
	urlTemplate     string
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

	mu       sync.RWMutex
	username string
	last     *Result
}

// NewSite creates a [Site] with the given domain, probe URL template, and
// options.
//
// The domain parameter identifies the website (e.g. "example.com"); unless
// overridden with [WithName], the site's name is derived from it by
// stripping the public suffix ("example.co.uk" becomes "example").
//
// The urlTemplate parameter is the URL requested during a probe. It must be
// a valid http:// or https:// URL and should contain the "{}" placeholder
// into which the username is substituted. When no separate profile URL is
// configured via [WithProfileURL], the same template is used for the URL
// reported in results.
//
// Options are applied in order using the functional options pattern.
//
// Returns an error if the domain is empty, the template is invalid, or any
// option fails.
//
// Example:
//
//	site, err := usertrace.NewSite("github.com", "https://github.com/{}",
//	    usertrace.WithCategory(usertrace.CategoryProgramming),
//	    usertrace.WithTimeout(5*time.Second),
//	)
func NewSite(domain, urlTemplate string, opts ...SiteOption) (*Site, error) {
	if strings.TrimSpace(domain) == "" {
		return nil, errors.New("site domain cannot be empty")
	}
	if err := validateTemplate(urlTemplate); err != nil {
		return nil, fmt.Errorf("invalid url template: %w", err)
	}

	cfg := &siteConfig{
		headers: make(map[string]string),
		timeout: defaultSiteTimeout,
	}

	for _, opt := range opts {
		if err := opt(cfg); err != nil {
			return nil, err
		}
	}

	name := cfg.name
	if name == "" {
		name = deriveName(domain)
	}

	profileTemplate := cfg.profileTemplate
	if profileTemplate == "" {
		profileTemplate = urlTemplate
	}

	return &Site{
		name:            name,
		domain:          domain,
		urlTemplate:     urlTemplate,
		profileTemplate: profileTemplate,
		category:        cfg.category,
		method:          cfg.method,
		headers:         cfg.headers,
		timeout:         cfg.timeout,
		detector:        cfg.detector,
		bodyPattern:     cfg.bodyPattern,
		urlPattern:      cfg.urlPattern,
		ignoreStatus:    cfg.ignoreStatus,
		rejectDots:      cfg.rejectDots,
	}, nil
}

// validateTemplate checks that a URL template parses as an http(s) URL once
// the placeholder is substituted.
func validateTemplate(tpl string) error {
	if strings.TrimSpace(tpl) == "" {
		return errors.New("template cannot be empty")
	}
	probe := strings.ReplaceAll(tpl, usernamePlaceholder, "probe")
	parsed, err := url.Parse(probe)
	if err != nil {
		return err
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return errors.New("template must have an http:// or https:// scheme")
	}
	return nil
}

// deriveName extracts a display name from a domain by stripping the public
// suffix: "example.co.uk" => "example".
func deriveName(domain string) string {
	host := strings.ToLower(strings.TrimSuffix(strings.TrimSpace(domain), "."))
	suffix, _ := publicsuffix.PublicSuffix(host)
	trimmed := strings.TrimSuffix(strings.TrimSuffix(host, suffix), ".")
	if trimmed == "" {
		return host
	}
	labels := strings.Split(trimmed, ".")
	return labels[len(labels)-1]
}

// Name returns the site's display name.
// The name is the site's identity within a pool: [Pool.GetByName] looks
// sites up by it.
func (s *Site) Name() string {
	return s.name
}

// Domain returns the site's domain, e.g. "example.com".
func (s *Site) Domain() string {
	return s.domain
}

// Category returns the site's [Category].
func (s *Site) Category() Category {
	return s.category
}

// Method returns the HTTP method used for probe requests.
// Returns empty string if not explicitly set, which means GET will be used.
func (s *Site) Method() string {
	return s.method
}

// Timeout returns the site's default per-probe timeout, used when
// [Site.Probe] is called without an explicit timeout.
func (s *Site) Timeout() time.Duration {
	return s.timeout
}

// Headers returns a copy of the site's custom HTTP headers.
// Returns nil if no custom headers are set.
func (s *Site) Headers() map[string]string {
	return copyMap(s.headers)
}

// Username returns the username currently set for this site, or the empty
// string if none was set.
func (s *Site) Username() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.username
}

// SetUsername sets the username whose existence is checked by the next probe.
//
// The username is trimmed of surrounding whitespace. Returns
// [ErrInvalidUsername] if the result is empty or contains whitespace; the
// previous username is kept in that case.
func (s *Site) SetUsername(username string) error {
	trimmed, err := normalizeUsername(username)
	if err != nil {
		return err
	}

	s.mu.Lock()
	s.username = trimmed
	s.mu.Unlock()
	return nil
}

// normalizeUsername trims surrounding whitespace and rejects usernames that
// are empty or contain inner whitespace.
func normalizeUsername(username string) (string, error) {
	trimmed := strings.TrimSpace(username)
	if trimmed == "" || strings.ContainsAny(trimmed, " \t\r\n") {
		return "", ErrInvalidUsername
	}
	return trimmed, nil
}

// URL returns the profile URL for the current username, i.e. the profile
// template with the username substituted. If no username is set, the raw
// template is returned.
func (s *Site) URL() string {
	return substitute(s.profileTemplate, s.Username())
}

// ProbeURL returns the URL that a probe actually requests, i.e. the probe
// template with the current username substituted.
func (s *Site) ProbeURL() string {
	return substitute(s.urlTemplate, s.Username())
}

// substitute fills the username placeholder in a template. The username is
// path-escaped so it cannot break the URL structure.
func substitute(tpl, username string) string {
	if username == "" {
		return tpl
	}
	return strings.ReplaceAll(tpl, usernamePlaceholder, url.PathEscape(username))
}

// Result returns the site's most recent probe result.
// The second return value is false if the site has not been probed yet.
func (s *Site) Result() (Result, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.last == nil {
		return Result{}, false
	}
	return *s.last, true
}

// Equal reports whether two sites have the same identity.
//
// Identity covers the immutable configuration: name, domain, URL templates,
// category, method, headers, timeout, detection patterns, and flags. The
// mutable username and last result are deliberately excluded, so mutating
// the search parameter never breaks a pool's uniqueness invariant. Custom
// [Detector] functions cannot be compared and are ignored.
func (s *Site) Equal(other *Site) bool {
	if s == other {
		return s != nil
	}
	if s == nil || other == nil {
		return false
	}
	return s.name == other.name &&
		s.domain == other.domain &&
		s.urlTemplate == other.urlTemplate &&
		s.profileTemplate == other.profileTemplate &&
		s.category == other.category &&
		s.method == other.method &&
		s.timeout == other.timeout &&
		s.ignoreStatus == other.ignoreStatus &&
		s.rejectDots == other.rejectDots &&
		patternSource(s.bodyPattern) == patternSource(other.bodyPattern) &&
		patternSource(s.urlPattern) == patternSource(other.urlPattern) &&
		maps.Equal(s.headers, other.headers)
}

func patternSource(re *regexp.Regexp) string {
	if re == nil {
		return ""
	}
	return re.String()
}

// Clone returns a copy of the site.
//
// A shallow clone (deep=false) shares the header map with the original:
// header mutations made through one are visible through the other. A deep
// clone copies all mutable substructure and is fully independent. Both
// variants carry over the current username and last result; compiled
// patterns and detectors are immutable and always shared.
func (s *Site) Clone(deep bool) *Site {
	s.mu.RLock()
	defer s.mu.RUnlock()

	cp := &Site{
		name:            s.name,
		domain:          s.domain,
		urlTemplate:     s.urlTemplate,
		profileTemplate: s.profileTemplate,
		category:        s.category,
		method:          s.method,
		headers:         s.headers,
		timeout:         s.timeout,
		detector:        s.detector,
		bodyPattern:     s.bodyPattern,
		urlPattern:      s.urlPattern,
		ignoreStatus:    s.ignoreStatus,
		rejectDots:      s.rejectDots,
		username:        s.username,
		last:            s.last,
	}
	if deep {
		cp.headers = copyMap(s.headers)
	}
	return cp
}

// cloneMemo deep-clones the site, reusing an already-made copy when the same
// site instance is reachable more than once. This keeps shared substructure
// shared: a site aliased in two pool slots clones to one shared copy.
func (s *Site) cloneMemo(memo map[*Site]*Site) *Site {
	if cp, ok := memo[s]; ok {
		return cp
	}
	cp := s.Clone(true)
	memo[s] = cp
	return cp
}

// String returns a compact representation of the site.
func (s *Site) String() string {
	return fmt.Sprintf("Site(name=%q, domain=%q, category=%s)", s.name, s.domain, s.category)
}

// Probe performs one request/response cycle checking whether the site's
// current username exists.
//
// The shared client is used for the HTTP request; timeout overrides the
// site's default per-probe timeout when positive. Every started probe
// produces exactly one [Result]: network failures, timeouts, and detector
// panics are reported as results with [StatusError] rather than being
// dropped. The result is retained on the site (see [Site.Result]) and then
// passed to onResult, if non-nil.
//
// A synchronous error is returned only for caller misuse — no username set
// ([ErrNoUsername]) or a nil client ([ErrNilClient]) — in which case no
// request is made and no result is emitted.
//
// Sites that reject usernames containing dots (see [WithRejectDots]) report
// [StatusNotFound] immediately, without a network round-trip.
func (s *Site) Probe(ctx context.Context, client *Client, timeout time.Duration, onResult func(Result)) error {
	if client == nil {
		return ErrNilClient
	}
	username := s.Username()
	if username == "" {
		return ErrNoUsername
	}
	if ctx == nil {
		ctx = context.Background()
	}
	if timeout <= 0 {
		timeout = s.timeout
	}

	if s.rejectDots && strings.Contains(username, ".") {
		r := s.newResult(username, StatusNotFound, http.StatusBadRequest, 0, false, nil)
		s.finish(r, onResult)
		return nil
	}

	resp := client.Fetch(ctx, s.method, substitute(s.urlTemplate, username), s.headers, timeout)

	var r Result
	if resp.Err != nil {
		timedOut := errors.Is(resp.Err, context.DeadlineExceeded)
		r = s.newResult(username, StatusError, resp.StatusCode, resp.Latency, timedOut, resp.Err)
	} else {
		status, err := s.detect(resp)
		r = s.newResult(username, status, resp.StatusCode, resp.Latency, false, err)
	}

	s.finish(r, onResult)
	return nil
}

// detect decides the probe status from a completed response.
//
// With a custom detector configured, the detector decides alone (inside a
// panic boundary). Otherwise the built-in heuristic applies: a non-200
// status means not found (unless the site ignores status codes), then the
// final URL and body are checked against the site's "not found" patterns,
// and a response that clears every check counts as found.
func (s *Site) detect(resp Response) (Status, error) {
	if s.detector != nil {
		return s.safeDetect(resp)
	}

	if !s.ignoreStatus && resp.StatusCode != http.StatusOK {
		return StatusNotFound, nil
	}
	if s.urlPattern != nil && s.urlPattern.MatchString(resp.FinalURL) {
		return StatusNotFound, nil
	}
	if s.bodyPattern != nil && s.bodyPattern.Match(resp.Body) {
		return StatusNotFound, nil
	}
	return StatusFound, nil
}

// safeDetect calls the custom detector with panic recovery.
// If the detector panics, the full stack trace is logged with a correlation
// ID and the probe reports StatusError with an error containing the ID.
func (s *Site) safeDetect(resp Response) (status Status, err error) {
	defer func() {
		if r := recover(); r != nil {
			correlationID := uuid.NewString()

			slog.Error("detector panic",
				"correlation_id", correlationID,
				"site", s.name,
				"panic", fmt.Sprintf("%v", r),
				"stack", string(debug.Stack()),
			)

			status = StatusError
			err = fmt.Errorf("detector panic (correlation_id: %s)", correlationID)
		}
	}()
	return s.detector(resp.Body, resp.StatusCode, resp.FinalURL), nil
}

// newResult assembles an immutable Result for this site.
func (s *Site) newResult(username string, status Status, statusCode int, latency time.Duration, timedOut bool, err error) Result {
	return Result{
		siteName:   s.name,
		domain:     s.domain,
		url:        substitute(s.profileTemplate, username),
		username:   username,
		status:     status,
		statusCode: statusCode,
		latency:    latency,
		checkedAt:  time.Now(),
		timeout:    timedOut,
		err:        err,
	}
}

// finish retains the result on the site and invokes the callback.
func (s *Site) finish(r Result, onResult func(Result)) {
	s.mu.Lock()
	s.last = &r
	s.mu.Unlock()

	if onResult != nil {
		onResult(r)
	}
}

// copyMap returns a shallow copy of the map.
func copyMap(m map[string]string) map[string]string {
	if m == nil {
		return nil
	}
	cp := make(map[string]string, len(m))
	for k, v := range m {
		cp[k] = v
	}
	return cp
}
