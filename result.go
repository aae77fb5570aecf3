package usertrace

import (
	"fmt"
	"time"
)

// Result holds the outcome of probing a single site for a username.
//
// Result is immutable after creation. All fields are private with getter
// methods, ensuring a result cannot be modified once a probe has produced
// it. Results are produced by [Site.Probe] and consumed from the channel
// returned by [Pool.Dispatch]; the site additionally retains its latest
// result, exposed via [Site.Result] and [Pool.Results].
type Result struct {
	siteName   string
	domain     string
	url        string
	username   string
	status     Status
	statusCode int
	latency    time.Duration
	checkedAt  time.Time
	timeout    bool
	err        error
}

// SiteName returns the display name of the probed site.
func (r Result) SiteName() string {
	return r.siteName
}

// Domain returns the domain of the probed site.
func (r Result) Domain() string {
	return r.domain
}

// URL returns the profile URL the result refers to, with the username
// already substituted into the site's template.
func (r Result) URL() string {
	return r.url
}

// Username returns the username the probe searched for.
func (r Result) Username() string {
	return r.username
}

// Status returns the determined [Status] of the probe.
func (r Result) Status() Status {
	return r.status
}

// StatusCode returns the HTTP status code returned by the site.
// Zero if the request failed before receiving a response.
func (r Result) StatusCode() int {
	return r.statusCode
}

// Latency returns the time taken to complete the HTTP request.
func (r Result) Latency() time.Duration {
	return r.latency
}

// CheckedAt returns the timestamp when the probe was performed.
func (r Result) CheckedAt() time.Time {
	return r.checkedAt
}

// Timeout reports whether the probe failed because the per-probe timeout
// expired. A timed-out result always has [StatusError].
func (r Result) Timeout() bool {
	return r.timeout
}

// Err returns the error that caused the probe to fail, or nil.
// A non-nil error always accompanies [StatusError].
func (r Result) Err() error {
	return r.err
}

// Found reports whether the username exists on the site.
// Shorthand for Status() == StatusFound.
func (r Result) Found() bool {
	return r.status == StatusFound
}

// String returns a compact representation of the result.
func (r Result) String() string {
	return fmt.Sprintf("Result(site=%q, status=%s, timeout=%t, error=%t)",
		r.siteName, r.status, r.timeout, r.err != nil)
}

// Verbose returns a log-friendly line with the key facts of the result:
// latency, domain, and HTTP status code.
func (r Result) Verbose() string {
	return fmt.Sprintf("%s <=> %s <=> %d", r.latency.Round(time.Millisecond), r.domain, r.statusCode)
}
