package usertrace

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func poolSite(t *testing.T, name, urlTemplate string, opts ...SiteOption) *Site {
	t.Helper()
	opts = append([]SiteOption{WithName(name)}, opts...)
	return mustSite(t, name+".test", urlTemplate, opts...)
}

func TestDispatch_OneResultPerSite(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, "profile page")
	}))
	defer server.Close()

	const n = 5
	sites := make([]*Site, n)
	for i := range sites {
		sites[i] = poolSite(t, fmt.Sprintf("site%d", i), server.URL+"/{}")
	}

	pool, err := NewPool(WithSites(sites...), WithLogger(discardLogger()))
	if err != nil {
		t.Fatalf("NewPool() error = %v", err)
	}
	if err := pool.SetUsernameAll("alice"); err != nil {
		t.Fatalf("SetUsernameAll() error = %v", err)
	}

	client := NewClient()
	defer client.Close()

	seen := make(map[string]int)
	for result := range pool.Dispatch(context.Background(), client, 5*time.Second) {
		seen[result.SiteName()]++
		if result.Status() != StatusFound {
			t.Errorf("%s Status() = %v, want %v", result.SiteName(), result.Status(), StatusFound)
		}
		if result.Username() != "alice" {
			t.Errorf("%s Username() = %v, want %v", result.SiteName(), result.Username(), "alice")
		}
	}

	if len(seen) != n {
		t.Fatalf("got results from %d sites, want %d", len(seen), n)
	}
	for name, count := range seen {
		if count != 1 {
			t.Errorf("site %s delivered %d results, want exactly 1", name, count)
		}
	}
}

func TestDispatch_EmptyPool(t *testing.T) {
	pool, err := NewPool(WithLogger(discardLogger()))
	if err != nil {
		t.Fatalf("NewPool() error = %v", err)
	}

	client := NewClient()
	defer client.Close()

	results := pool.Dispatch(context.Background(), client, time.Second)

	select {
	case _, ok := <-results:
		if ok {
			t.Error("empty dispatch yielded a result, want immediate close")
		}
	case <-time.After(time.Second):
		t.Error("empty dispatch did not close the channel")
	}
}

func TestDispatch_CompletionOrder(t *testing.T) {
	release := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/slow/alice" {
			<-release
		}
		fmt.Fprint(w, "ok")
	}))
	defer server.Close()

	slow := poolSite(t, "slow", server.URL+"/slow/{}")
	fast := poolSite(t, "fast", server.URL+"/fast/{}")

	pool, err := NewPool(WithSites(slow, fast), WithLogger(discardLogger()))
	if err != nil {
		t.Fatalf("NewPool() error = %v", err)
	}
	if err := pool.SetUsernameAll("alice"); err != nil {
		t.Fatalf("SetUsernameAll() error = %v", err)
	}

	client := NewClient()
	defer client.Close()

	results := pool.Dispatch(context.Background(), client, 5*time.Second)

	// the fast site must be observable before the slow one has even finished
	first := <-results
	if first.SiteName() != "fast" {
		t.Errorf("first result from %q, want %q", first.SiteName(), "fast")
	}

	close(release)
	second := <-results
	if second.SiteName() != "slow" {
		t.Errorf("second result from %q, want %q", second.SiteName(), "slow")
	}

	if _, ok := <-results; ok {
		t.Error("channel yielded a third result, want close after two")
	}
}

func TestDispatch_BodyPatternDetection(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/taken/alice":
			fmt.Fprint(w, "<h1>alice's profile</h1>")
		default:
			// some sites answer 200 with an error page
			fmt.Fprint(w, "<h1>User Not Found</h1>")
		}
	}))
	defer server.Close()

	taken := poolSite(t, "taken", server.URL+"/taken/{}", WithBodyPattern("user not found"))
	free := poolSite(t, "free", server.URL+"/free/{}", WithBodyPattern("user not found"))

	pool, err := NewPool(WithSites(taken, free), WithLogger(discardLogger()))
	if err != nil {
		t.Fatalf("NewPool() error = %v", err)
	}
	if err := pool.SetUsernameAll("alice"); err != nil {
		t.Fatalf("SetUsernameAll() error = %v", err)
	}

	client := NewClient()
	defer client.Close()

	statuses := make(map[string]Status)
	for result := range pool.Dispatch(context.Background(), client, 5*time.Second) {
		statuses[result.SiteName()] = result.Status()
	}

	if statuses["taken"] != StatusFound {
		t.Errorf("taken Status() = %v, want %v", statuses["taken"], StatusFound)
	}
	if statuses["free"] != StatusNotFound {
		t.Errorf("free Status() = %v, want %v", statuses["free"], StatusNotFound)
	}
}

func TestDispatch_ErrorResultOnUnreachableHost(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, "ok")
	}))
	// closed before dispatch: connections will be refused
	unreachableURL := server.URL
	server.Close()

	site := poolSite(t, "dead", unreachableURL+"/{}")
	pool, err := NewPool(WithSites(site), WithLogger(discardLogger()))
	if err != nil {
		t.Fatalf("NewPool() error = %v", err)
	}
	if err := pool.SetUsernameAll("alice"); err != nil {
		t.Fatalf("SetUsernameAll() error = %v", err)
	}

	client := NewClient()
	defer client.Close()

	var results []Result
	for result := range pool.Dispatch(context.Background(), client, 2*time.Second) {
		results = append(results, result)
	}

	if len(results) != 1 {
		t.Fatalf("got %d results, want 1 (faults must still produce a result)", len(results))
	}
	r := results[0]
	if r.Status() != StatusError {
		t.Errorf("Status() = %v, want %v", r.Status(), StatusError)
	}
	if r.Err() == nil {
		t.Error("Err() = nil for failed probe, want the transport error")
	}
}

func TestDispatch_DetectorPanicBecomesErrorResult(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, "ok")
	}))
	defer server.Close()

	panicky := Detector(func(body []byte, statusCode int, finalURL string) Status {
		panic("bad detector")
	})

	site := poolSite(t, "panics", server.URL+"/{}", WithDetector(panicky))
	pool, err := NewPool(WithSites(site), WithLogger(discardLogger()))
	if err != nil {
		t.Fatalf("NewPool() error = %v", err)
	}
	if err := pool.SetUsernameAll("alice"); err != nil {
		t.Fatalf("SetUsernameAll() error = %v", err)
	}

	client := NewClient()
	defer client.Close()

	var results []Result
	for result := range pool.Dispatch(context.Background(), client, 5*time.Second) {
		results = append(results, result)
	}

	if len(results) != 1 {
		t.Fatalf("got %d results, want 1 (panic must not swallow the result)", len(results))
	}
	if results[0].Status() != StatusError {
		t.Errorf("Status() = %v, want %v", results[0].Status(), StatusError)
	}
	if results[0].Err() == nil {
		t.Error("Err() = nil for panicking detector, want a correlation error")
	}
}

func TestDispatch_EarlyConsumerStop(t *testing.T) {
	var served atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		served.Add(1)
		fmt.Fprint(w, "ok")
	}))
	defer server.Close()

	const n = 8
	sites := make([]*Site, n)
	for i := range sites {
		sites[i] = poolSite(t, fmt.Sprintf("site%d", i), server.URL+"/{}")
	}

	pool, err := NewPool(WithSites(sites...), WithLogger(discardLogger()))
	if err != nil {
		t.Fatalf("NewPool() error = %v", err)
	}
	if err := pool.SetUsernameAll("alice"); err != nil {
		t.Fatalf("SetUsernameAll() error = %v", err)
	}

	client := NewClient()
	defer client.Close()

	results := pool.Dispatch(context.Background(), client, 5*time.Second)
	<-results // take one result, then walk away

	// the remaining probes must run to completion and record their results
	deadline := time.After(5 * time.Second)
	for int(served.Load()) < n || len(pool.Results()) < n {
		select {
		case <-deadline:
			t.Fatalf("served %d requests, recorded %d results, want %d each",
				served.Load(), len(pool.Results()), n)
		case <-time.After(10 * time.Millisecond):
		}
	}
}

func TestDispatch_ContextCancellation(t *testing.T) {
	started := make(chan struct{})
	release := make(chan struct{})
	defer close(release)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		close(started)
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer server.Close()

	site := poolSite(t, "hanging", server.URL+"/{}")
	pool, err := NewPool(WithSites(site), WithLogger(discardLogger()))
	if err != nil {
		t.Fatalf("NewPool() error = %v", err)
	}
	if err := pool.SetUsernameAll("alice"); err != nil {
		t.Fatalf("SetUsernameAll() error = %v", err)
	}

	client := NewClient()
	defer client.Close()

	ctx, cancel := context.WithCancel(context.Background())
	results := pool.Dispatch(ctx, client, 30*time.Second)

	<-started
	cancel()

	select {
	case result, ok := <-results:
		if !ok {
			t.Fatal("channel closed without delivering a result")
		}
		if result.Status() != StatusError {
			t.Errorf("Status() = %v after cancellation, want %v", result.Status(), StatusError)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("no result after context cancellation")
	}
}

func TestDispatch_TimeoutProducesErrorResult(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-time.After(5 * time.Second):
		case <-r.Context().Done():
		}
	}))
	defer server.Close()

	site := poolSite(t, "slowpoke", server.URL+"/{}")
	pool, err := NewPool(WithSites(site), WithLogger(discardLogger()))
	if err != nil {
		t.Fatalf("NewPool() error = %v", err)
	}
	if err := pool.SetUsernameAll("alice"); err != nil {
		t.Fatalf("SetUsernameAll() error = %v", err)
	}

	client := NewClient()
	defer client.Close()

	var results []Result
	for result := range pool.Dispatch(context.Background(), client, 50*time.Millisecond) {
		results = append(results, result)
	}

	if len(results) != 1 {
		t.Fatalf("got %d results, want 1", len(results))
	}
	r := results[0]
	if r.Status() != StatusError {
		t.Errorf("Status() = %v, want %v", r.Status(), StatusError)
	}
	if !r.Timeout() {
		t.Error("Timeout() = false for deadline-exceeded probe, want true")
	}
}

func TestDispatch_MaxConcurrent(t *testing.T) {
	var inFlight, peak atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := inFlight.Add(1)
		for {
			p := peak.Load()
			if n <= p || peak.CompareAndSwap(p, n) {
				break
			}
		}
		time.Sleep(30 * time.Millisecond)
		inFlight.Add(-1)
		fmt.Fprint(w, "ok")
	}))
	defer server.Close()

	const n = 10
	sites := make([]*Site, n)
	for i := range sites {
		sites[i] = poolSite(t, fmt.Sprintf("site%d", i), server.URL+"/{}")
	}

	pool, err := NewPool(
		WithSites(sites...),
		WithMaxConcurrent(2),
		WithLogger(discardLogger()),
	)
	if err != nil {
		t.Fatalf("NewPool() error = %v", err)
	}
	if err := pool.SetUsernameAll("alice"); err != nil {
		t.Fatalf("SetUsernameAll() error = %v", err)
	}

	client := NewClient()
	defer client.Close()

	count := 0
	for range pool.Dispatch(context.Background(), client, 5*time.Second) {
		count++
	}

	if count != n {
		t.Fatalf("got %d results, want %d", count, n)
	}
	if p := peak.Load(); p > 2 {
		t.Errorf("peak concurrency = %d, want at most 2", p)
	}
}

func TestDispatch_SkipsSitesWithoutUsername(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, "ok")
	}))
	defer server.Close()

	ready := poolSite(t, "ready", server.URL+"/{}")
	if err := ready.SetUsername("alice"); err != nil {
		t.Fatalf("SetUsername() error = %v", err)
	}
	bare := poolSite(t, "bare", server.URL+"/{}")

	pool, err := NewPool(WithSites(ready, bare), WithLogger(discardLogger()))
	if err != nil {
		t.Fatalf("NewPool() error = %v", err)
	}

	client := NewClient()
	defer client.Close()

	var results []Result
	for result := range pool.Dispatch(context.Background(), client, 5*time.Second) {
		results = append(results, result)
	}

	if len(results) != 1 {
		t.Fatalf("got %d results, want 1 (username-less site is skipped)", len(results))
	}
	if results[0].SiteName() != "ready" {
		t.Errorf("result from %q, want %q", results[0].SiteName(), "ready")
	}
}

func TestDispatch_RejectDots(t *testing.T) {
	var served atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		served.Add(1)
		fmt.Fprint(w, "ok")
	}))
	defer server.Close()

	site := poolSite(t, "nodots", server.URL+"/{}", WithRejectDots())
	pool, err := NewPool(WithSites(site), WithLogger(discardLogger()))
	if err != nil {
		t.Fatalf("NewPool() error = %v", err)
	}
	if err := pool.SetUsernameAll("alice.smith"); err != nil {
		t.Fatalf("SetUsernameAll() error = %v", err)
	}

	client := NewClient()
	defer client.Close()

	var results []Result
	for result := range pool.Dispatch(context.Background(), client, 5*time.Second) {
		results = append(results, result)
	}

	if len(results) != 1 {
		t.Fatalf("got %d results, want 1", len(results))
	}
	if results[0].Status() != StatusNotFound {
		t.Errorf("Status() = %v for dotted username, want %v", results[0].Status(), StatusNotFound)
	}
	if served.Load() != 0 {
		t.Errorf("server handled %d requests, want 0 (no network round-trip)", served.Load())
	}
}

func TestDispatch_ResultsRetainedOnSites(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, "ok")
	}))
	defer server.Close()

	a := poolSite(t, "alpha", server.URL+"/{}")
	b := poolSite(t, "beta", server.URL+"/{}")

	pool, err := NewPool(WithSites(a, b), WithLogger(discardLogger()))
	if err != nil {
		t.Fatalf("NewPool() error = %v", err)
	}
	if err := pool.SetUsernameAll("alice"); err != nil {
		t.Fatalf("SetUsernameAll() error = %v", err)
	}

	client := NewClient()
	defer client.Close()

	for range pool.Dispatch(context.Background(), client, 5*time.Second) {
	}

	// Results reports in pool order, regardless of completion order
	results := pool.Results()
	if len(results) != 2 {
		t.Fatalf("Results() returned %d entries, want 2", len(results))
	}
	if results[0].SiteName() != "alpha" || results[1].SiteName() != "beta" {
		t.Errorf("Results() order = [%s, %s], want [alpha, beta]",
			results[0].SiteName(), results[1].SiteName())
	}
}

func TestDispatch_Reusable(t *testing.T) {
	var paths []string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		paths = append(paths, r.URL.Path)
		fmt.Fprint(w, "ok")
	}))
	defer server.Close()

	site := poolSite(t, "alpha", server.URL+"/user/{}")
	pool, err := NewPool(WithSites(site), WithLogger(discardLogger()))
	if err != nil {
		t.Fatalf("NewPool() error = %v", err)
	}

	client := NewClient()
	defer client.Close()

	for _, username := range []string{"alice", "bob"} {
		if err := pool.SetUsernameAll(username); err != nil {
			t.Fatalf("SetUsernameAll(%q) error = %v", username, err)
		}
		for result := range pool.Dispatch(context.Background(), client, 5*time.Second) {
			if result.Username() != username {
				t.Errorf("Username() = %v, want %v", result.Username(), username)
			}
		}
	}

	if len(paths) != 2 || paths[0] != "/user/alice" || paths[1] != "/user/bob" {
		t.Errorf("requested paths = %v, want [/user/alice /user/bob]", paths)
	}
}
