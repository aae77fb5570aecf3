// Package usertrace checks on which websites a username is in use, probing
// every configured site concurrently and streaming results as they become
// available.
//
// The library is SDK-first: sites and pools are built programmatically with
// immutable types and composable configuration via the functional options
// pattern. A YAML-driven CLI built on the same API lives in cmd/usertrace.
//
// # Quick Start
//
// Build a couple of sites, pool them, and dispatch:
//
//	github, _ := usertrace.NewSite("github.com", "https://github.com/{}")
//	reddit, _ := usertrace.NewSite("reddit.com", "https://www.reddit.com/user/{}")
//
//	pool, _ := usertrace.NewPool(usertrace.WithSites(github, reddit))
//	pool.SetUsernameAll("alice")
//
//	client := usertrace.NewClient()
//	defer client.Close()
//
//	for result := range pool.Dispatch(context.Background(), client, 5*time.Second) {
//	    if result.Found() {
//	        fmt.Println(result.URL())
//	    }
//	}
//
// Dispatch yields results in completion order: the fastest site is observable
// first, without waiting for the slowest. The channel closes once every probe
// has finished.
//
// # Configuration
//
// Pools and sites use the functional options pattern:
//
//	pool, err := usertrace.NewPool(
//	    usertrace.WithPoolName("socials"),
//	    usertrace.WithSites(sites...),
//	    usertrace.WithMaxConcurrent(20),
//	)
//
//	site, err := usertrace.NewSite("example.com", "https://example.com/user/{}",
//	    usertrace.WithCategory(usertrace.CategorySocialMedia),
//	    usertrace.WithBodyPattern(`user (not found|does not exist)`),
//	    usertrace.WithTimeout(5 * time.Second),
//	)
//
// # Detectors
//
// Detectors determine how a site's HTTP response is interpreted as a probe
// status. Without a custom detector, a built-in heuristic applies: the HTTP
// status code, then the site's URL and body "not found" patterns. Built-in
// detectors for custom composition:
//
//   - [StatusCodeDetector]: 200 means found, anything else not found
//   - [BodyPatternDetector]: regex on the response body marking "not found"
//   - [URLPatternDetector]: regex on the post-redirect URL marking "not found"
//   - [ContainsDetector]: plain substring check marking "not found"
//   - [FirstOf]: tries detectors in order, first definitive answer wins
//
// Custom detectors can be created by implementing the [Detector] function
// type.
//
// # Architecture
//
// The root package contains the whole probing core. Supporting packages:
//
//   - config: YAML site lists for the CLI
//   - internal/store: order-preserving result aggregation for the CLI
//   - cmd/usertrace: the command line interface
//
// The internal packages are not part of the public API and may change
// without notice.
package usertrace
