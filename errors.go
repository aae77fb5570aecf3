package usertrace

import "errors"

// Sentinel errors returned by pool and site operations. The dynamic-language
// original raised type errors for malformed arguments; with static typing the
// remaining misuse cases are nil values and invalid usernames, surfaced
// synchronously through these sentinels so callers can match with errors.Is.
var (
	// ErrNilSite is returned when a nil *Site is passed to a pool operation.
	ErrNilSite = errors.New("site cannot be nil")

	// ErrNilPool is returned when a nil *Pool is passed to [Pool.Extend].
	ErrNilPool = errors.New("pool cannot be nil")

	// ErrNilClient is returned by [Site.Probe] when no client is supplied.
	ErrNilClient = errors.New("client cannot be nil")

	// ErrNoUsername is returned by [Site.Probe] when the site has no
	// username set. The probe is not started and no result is emitted.
	ErrNoUsername = errors.New("no username set")

	// ErrInvalidUsername is returned by [Site.SetUsername] and
	// [Pool.SetUsernameAll] for empty usernames or usernames containing
	// whitespace. The target state is left unchanged.
	ErrInvalidUsername = errors.New("username must be non-empty and contain no whitespace")
)
