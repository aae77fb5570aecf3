package store

import (
	"sync"
	"time"
)

// ScanResult is the storage representation of one site's probe outcome.
//
// ScanResult is decoupled from the SDK's result type to allow independent
// evolution and easy JSON serialization of scan reports.
type ScanResult struct {
	// Site is the site's display name.
	Site string `json:"site"`

	// Domain is the site's domain.
	Domain string `json:"domain"`

	// URL is the profile URL the result refers to.
	URL string `json:"url"`

	// Username is the username that was searched for.
	Username string `json:"username"`

	// Status is the probe outcome (e.g., "found", "not_found", "error").
	Status string `json:"status"`

	// StatusCode is the HTTP status code returned by the site.
	StatusCode int `json:"status_code"`

	// LatencyMs is the request latency in milliseconds.
	LatencyMs int64 `json:"latency_ms"`

	// CheckedAt is the timestamp of the probe.
	CheckedAt time.Time `json:"checked_at"`

	// Error contains the error message if the probe failed.
	// nil indicates no error (though status may still be "not_found").
	Error *string `json:"error"`
}

// Store accumulates the latest result per site, preserving first-report
// order. Safe for concurrent use: dispatch consumers update it while a
// progress view reads snapshots.
type Store struct {
	mu      sync.RWMutex
	order   []string
	results map[string]ScanResult
}

// New creates an empty [Store], immediately ready for use.
func New() *Store {
	return &Store{
		results: make(map[string]ScanResult),
	}
}

// Update records a [ScanResult], keyed by its Site.
//
// The first result for a site fixes the site's position in snapshot order;
// subsequent updates for the same site replace the value in place.
func (s *Store) Update(result ScanResult) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, seen := s.results[result.Site]; !seen {
		s.order = append(s.order, result.Site)
	}
	s.results[result.Site] = result
}

// Get returns the latest result for a site.
// The second return value is false if the site has not reported yet.
func (s *Store) Get(site string) (ScanResult, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.results[site]
	return r, ok
}

// Snapshot returns all stored results in first-report order.
// The returned slice is a copy; modifications do not affect the store.
func (s *Store) Snapshot() []ScanResult {
	s.mu.RLock()
	defer s.mu.RUnlock()

	results := make([]ScanResult, 0, len(s.order))
	for _, site := range s.order {
		results = append(results, s.results[site])
	}
	return results
}

// Summary returns the number of stored results per status.
func (s *Store) Summary() map[string]int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	counts := make(map[string]int)
	for _, r := range s.results {
		counts[r.Status]++
	}
	return counts
}

// Len returns the number of sites that have reported.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.results)
}
