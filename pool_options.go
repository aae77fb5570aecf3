package usertrace

import (
	"errors"
	"log/slog"
)

// poolConfig holds mutable state during pool construction.
type poolConfig struct {
	name            string
	sites           []*Site
	allowDuplicates bool
	maxConcurrent   int
	logger          *slog.Logger
}

// PoolOption is a function that configures a [Pool] during construction.
//
// PoolOption implements the functional options pattern, allowing optional
// configuration to be passed to [NewPool] in a type-safe, extensible way.
// Options return an error if validation fails.
//
// Built-in options: [WithPoolName], [WithSites], [WithAllowDuplicates],
// [WithMaxConcurrent], [WithLogger].
type PoolOption func(*poolConfig) error

// WithPoolName sets the pool's name.
//
// The name has no behavioral effect; it identifies the pool in logs and
// in its string representation.
func WithPoolName(name string) PoolOption {
	return func(cfg *poolConfig) error {
		cfg.name = name
		return nil
	}
}

// WithSites seeds the pool with initial sites.
//
// Can be combined with further [Pool.Add] calls after construction. The
// sites pass through the pool's duplicate policy in order, exactly as if
// added one by one.
//
// Example:
//
//	pool, err := usertrace.NewPool(
//	    usertrace.WithSites(github, twitter, reddit),
//	)
func WithSites(sites ...*Site) PoolOption {
	return func(cfg *poolConfig) error {
		cfg.sites = append(cfg.sites, sites...)
		return nil
	}
}

// WithAllowDuplicates permits multiple equal sites in the pool.
//
// By default a pool rejects duplicates: adding a site equal to an existing
// member is a silent no-op.
func WithAllowDuplicates() PoolOption {
	return func(cfg *poolConfig) error {
		cfg.allowDuplicates = true
		return nil
	}
}

// WithMaxConcurrent caps the number of probes running simultaneously
// during a dispatch round.
//
// By default every probe starts at once, which suits the common case of
// one request per distinct host. Use a cap when probing through a shared
// egress (e.g. a proxy) that would otherwise be overwhelmed.
//
// Returns an error if the value is zero or negative.
func WithMaxConcurrent(n int) PoolOption {
	return func(cfg *poolConfig) error {
		if n <= 0 {
			return errors.New("max concurrent must be positive")
		}
		cfg.maxConcurrent = n
		return nil
	}
}

// WithLogger sets a custom [slog.Logger] for the pool.
//
// The pool logs only exceptional events (probes that could not start).
// If not specified, [slog.Default] is used.
//
// Returns an error if the logger is nil.
func WithLogger(logger *slog.Logger) PoolOption {
	return func(cfg *poolConfig) error {
		if logger == nil {
			return errors.New("logger cannot be nil")
		}
		cfg.logger = logger
		return nil
	}
}
