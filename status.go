package usertrace

// Status represents the outcome of probing a site for a username.
//
// Status is a string type that can hold one of four predefined values:
// [StatusFound], [StatusNotFound], [StatusUnknown], or [StatusError].
// Using a string type allows for easy JSON serialization and human-readable
// logging while maintaining type safety through the defined constants.
type Status string

const (
	// StatusFound indicates the username exists on the site.
	StatusFound Status = "found"

	// StatusNotFound indicates the site reports no such username.
	StatusNotFound Status = "not_found"

	// StatusUnknown indicates the response could not be interpreted.
	// This typically occurs when a detector cannot reach a decision.
	StatusUnknown Status = "unknown"

	// StatusError indicates the probe itself failed (network error,
	// timeout, detector panic). The username may or may not exist.
	StatusError Status = "error"
)

// String returns the string representation of the status.
// This implements the fmt.Stringer interface.
func (s Status) String() string {
	return string(s)
}

// Detector is a function type that decides the [Status] of a username on
// a site from the site's HTTP response.
//
// Detector follows functional programming principles: it is a pure function
// where the same inputs always produce the same output. This makes detectors
// easy to test, compose, and reason about.
//
// Parameters:
//   - body: The HTTP response body as bytes
//   - statusCode: The HTTP status code (e.g., 200, 404, 500)
//   - finalURL: The URL the request ended at after following redirects
//
// Returns the determined [Status] value.
//
// Several built-in detectors are provided: [StatusCodeDetector],
// [BodyPatternDetector], [URLPatternDetector], [ContainsDetector], and
// [FirstOf] for composition.
//
// # Panic Safety
//
// Detector functions are called within a panic recovery boundary. If a
// detector panics, the probe's result carries [StatusError] with an error
// containing a correlation ID. The full stack trace is logged so the
// failure can be traced. A misbehaving detector cannot crash a dispatch
// round.
type Detector func(body []byte, statusCode int, finalURL string) Status
