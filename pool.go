package usertrace

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/semaphore"
)

// Pool is an ordered collection of sites with concurrent dispatch capability.
//
// A pool preserves insertion order, optionally rejects duplicate sites (the
// default; see [WithAllowDuplicates]), and is a live, reusable container:
// it can be mutated between dispatch rounds and dispatched any number of
// times. All methods are safe for concurrent use.
//
// The typical lifecycle is:
//
//	pool, err := usertrace.NewPool(usertrace.WithSites(sites...))
//	if err != nil {
//	    slog.Error("failed to create pool", "error", err)
//	    os.Exit(1)
//	}
//
//	if err := pool.SetUsernameAll("alice"); err != nil {
//	    slog.Error("invalid username", "error", err)
//	    os.Exit(1)
//	}
//
//	client := usertrace.NewClient()
//	defer client.Close()
//
//	for result := range pool.Dispatch(ctx, client, 5*time.Second) {
//	    fmt.Println(result.SiteName(), result.Status())
//	}
type Pool struct {
	mu              sync.RWMutex
	name            string
	sites           []*Site
	allowDuplicates bool
	maxConcurrent   int
	logger          *slog.Logger
}

// NewPool creates a new [Pool] with the given options.
//
// A pool may start empty; sites can be supplied up front via [WithSites]
// or added later with [Pool.Add]. Initial sites pass through the same
// duplicate policy as Add.
//
// Returns an error if any option is invalid.
//
// Example:
//
//	pool, err := usertrace.NewPool(
//	    usertrace.WithPoolName("default"),
//	    usertrace.WithSites(github, twitter, reddit),
//	    usertrace.WithMaxConcurrent(20),
//	)
func NewPool(opts ...PoolOption) (*Pool, error) {
	cfg := &poolConfig{}

	for _, opt := range opts {
		if err := opt(cfg); err != nil {
			return nil, err
		}
	}

	logger := cfg.logger
	if logger == nil {
		logger = slog.Default()
	}

	p := &Pool{
		name:            cfg.name,
		allowDuplicates: cfg.allowDuplicates,
		maxConcurrent:   cfg.maxConcurrent,
		logger:          logger,
	}

	for _, site := range cfg.sites {
		if err := p.Add(site); err != nil {
			return nil, err
		}
	}

	return p, nil
}

// Name returns the pool's name, or the empty string if none was set.
func (p *Pool) Name() string {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.name
}

// SetName sets the pool's name.
func (p *Pool) SetName(name string) {
	p.mu.Lock()
	p.name = name
	p.mu.Unlock()
}

// Len returns the number of sites currently in the pool.
func (p *Pool) Len() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return len(p.sites)
}

// IsEmpty reports whether the pool contains no sites.
func (p *Pool) IsEmpty() bool {
	return p.Len() == 0
}

// Sites returns a snapshot of the pool's sites in insertion order.
//
// The returned slice is a copy; modifying it does not affect the pool.
// The *Site values themselves are the pool's instances, not copies.
func (p *Pool) Sites() []*Site {
	p.mu.RLock()
	defer p.mu.RUnlock()
	cp := make([]*Site, len(p.sites))
	copy(cp, p.sites)
	return cp
}

// Results returns the last known result of every site that has one, in
// pool order. Sites that have never been probed are skipped.
func (p *Pool) Results() []Result {
	sites := p.Sites()
	results := make([]Result, 0, len(sites))
	for _, s := range sites {
		if r, ok := s.Result(); ok {
			results = append(results, r)
		}
	}
	return results
}

// Add appends a site to the end of the pool.
//
// Under the default duplicate policy, adding a site that is [Site.Equal]
// to a member already present is a silent no-op. Returns [ErrNilSite] for
// a nil site; the pool is unchanged in that case.
func (p *Pool) Add(site *Site) error {
	if site == nil {
		return ErrNilSite
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.allowDuplicates && p.containsLocked(site) {
		return nil
	}
	p.sites = append(p.sites, site)
	return nil
}

// Contains reports whether a site equal to the given one (per [Site.Equal],
// not pointer identity) is in the pool.
func (p *Pool) Contains(site *Site) bool {
	if site == nil {
		return false
	}
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.containsLocked(site)
}

func (p *Pool) containsLocked(site *Site) bool {
	for _, s := range p.sites {
		if s.Equal(site) {
			return true
		}
	}
	return false
}

// Remove removes every site for which the predicate returns true.
//
// The predicate is evaluated over a snapshot, so removals never affect the
// evaluation itself. The relative order of surviving sites is unchanged.
// A nil predicate removes nothing.
func (p *Pool) Remove(predicate func(*Site) bool) {
	if predicate == nil {
		return
	}

	doomed := make(map[*Site]bool)
	for _, s := range p.Sites() {
		if predicate(s) {
			doomed[s] = true
		}
	}
	if len(doomed) == 0 {
		return
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	kept := make([]*Site, 0, len(p.sites))
	for _, s := range p.sites {
		if !doomed[s] {
			kept = append(kept, s)
		}
	}
	p.sites = kept
}

// Get returns the sites satisfying the predicate, in pool order.
//
// The returned slice is a snapshot; the pool is not mutated. A nil
// predicate returns every site.
func (p *Pool) Get(predicate func(*Site) bool) []*Site {
	sites := p.Sites()
	if predicate == nil {
		return sites
	}
	matched := make([]*Site, 0, len(sites))
	for _, s := range sites {
		if predicate(s) {
			matched = append(matched, s)
		}
	}
	return matched
}

// GetByName returns the first site whose name equals the given name.
// The second return value is false if no such site exists; a missing
// site is not an error.
func (p *Pool) GetByName(name string) (*Site, bool) {
	for _, s := range p.Sites() {
		if s.Name() == name {
			return s, true
		}
	}
	return nil, false
}

// Extend imports every site from another pool, applying the same duplicate
// policy as [Pool.Add].
//
// When deep is true each imported site is a fully independent copy; shared
// substructure in the source is preserved among the copies (a site aliased
// in two slots of the source imports as one shared copy). When deep is
// false the same site instances are referenced by both pools, so mutating
// a site through one pool is visible through the other.
//
// Returns [ErrNilPool] if other is nil. Extending a pool with itself is
// safe: the source membership is snapshotted first.
func (p *Pool) Extend(other *Pool, deep bool) error {
	if other == nil {
		return ErrNilPool
	}

	memo := make(map[*Site]*Site)
	for _, site := range other.Sites() {
		if deep {
			site = site.cloneMemo(memo)
		}
		if err := p.Add(site); err != nil {
			return err
		}
	}
	return nil
}

// SetUsernameAll sets the search username on every site currently in the
// pool. Sites added afterwards are unaffected.
//
// Returns [ErrInvalidUsername] without touching any site if the username
// is empty or contains whitespace.
func (p *Pool) SetUsernameAll(username string) error {
	trimmed, err := normalizeUsername(username)
	if err != nil {
		return err
	}

	for _, s := range p.Sites() {
		s.mu.Lock()
		s.username = trimmed
		s.mu.Unlock()
	}
	return nil
}

// Copy returns a shallow copy of the pool.
//
// The copy references the same *Site instances as the original: mutating a
// site (e.g. its username) through one pool is visible through the other.
// Top-level pool attributes such as the name are independent after the
// copy, and membership changes (Add/Remove) made to one pool do not affect
// the other.
func (p *Pool) Copy() *Pool {
	p.mu.RLock()
	defer p.mu.RUnlock()

	sites := make([]*Site, len(p.sites))
	copy(sites, p.sites)

	return &Pool{
		name:            p.name,
		sites:           sites,
		allowDuplicates: p.allowDuplicates,
		maxConcurrent:   p.maxConcurrent,
		logger:          p.logger,
	}
}

// Clone returns a deep copy of the pool.
//
// Every site is independently copied, so mutating a site in the clone never
// affects the original, and vice versa. Cloning is memoized per site
// instance: substructure shared inside the pool (the same site aliased in
// multiple slots under a permissive duplicate policy) stays shared in the
// clone instead of being duplicated.
func (p *Pool) Clone() *Pool {
	p.mu.RLock()
	defer p.mu.RUnlock()

	memo := make(map[*Site]*Site, len(p.sites))
	sites := make([]*Site, len(p.sites))
	for i, s := range p.sites {
		sites[i] = s.cloneMemo(memo)
	}

	return &Pool{
		name:            p.name,
		sites:           sites,
		allowDuplicates: p.allowDuplicates,
		maxConcurrent:   p.maxConcurrent,
		logger:          p.logger,
	}
}

// String returns a compact representation of the pool.
func (p *Pool) String() string {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return fmt.Sprintf("Pool(name=%q, sites=%d)", p.name, len(p.sites))
}

// Dispatch probes every site currently in the pool concurrently and streams
// the results as they complete.
//
// Dispatch snapshots the membership, starts one probe goroutine per site
// (all at once, unless capped via [WithMaxConcurrent]), and returns a
// channel that yields each site's [Result] in completion order — the first
// site to finish is the first observable result, regardless of pool order.
// The channel is closed once every probe has finished and delivered its
// result.
//
// Every site in the snapshot contributes exactly one result: probe faults
// (network errors, timeouts, detector panics) surface as results with
// [StatusError] rather than being dropped. The only exception is a site
// with no username set, which cannot be probed at all; it is skipped with
// a warning log.
//
// The channel is buffered to the size of the snapshot, so producers never
// block: a caller that stops receiving early leaks no goroutines, while
// the remaining probes run to completion in the background and record
// their results on their sites. Cancelling the context aborts in-flight
// requests; affected probes report [StatusError] results.
//
// timeout bounds each individual probe; zero or negative falls back to each
// site's own timeout. Concurrent pool mutation during a round affects only
// subsequent rounds, never the running one.
func (p *Pool) Dispatch(ctx context.Context, client *Client, timeout time.Duration) <-chan Result {
	if ctx == nil {
		ctx = context.Background()
	}

	sites := p.Sites()
	results := make(chan Result, len(sites))
	if len(sites) == 0 {
		close(results)
		return results
	}

	var sem *semaphore.Weighted
	if p.maxConcurrent > 0 {
		sem = semaphore.NewWeighted(int64(p.maxConcurrent))
	}

	var wg sync.WaitGroup
	for _, site := range sites {
		wg.Add(1)
		go func(s *Site) {
			defer wg.Done()

			if sem != nil {
				if err := sem.Acquire(ctx, 1); err == nil {
					defer sem.Release(1)
				}
				// on a cancelled context, fall through: the probe
				// observes the cancellation and reports an error result
			}

			err := s.Probe(ctx, client, timeout, func(r Result) {
				results <- r
			})
			if err != nil {
				p.logger.Warn("probe skipped",
					"site", s.Name(),
					"error", err,
				)
			}
		}(site)
	}

	go func() {
		wg.Wait()
		close(results)
	}()

	return results
}
