package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jpalmerr/usertrace"
)

func main() {
	// start mock server (see mock_server.go)
	go StartMockSiteServer(":9999")
	time.Sleep(100 * time.Millisecond)

	codehub, err := usertrace.NewSite("codehub.test", "http://localhost:9999/codehub/{}",
		usertrace.WithName("codehub"),
		usertrace.WithCategory(usertrace.CategoryProgramming),
	)
	if err != nil {
		slog.Error("failed to create site", "error", err)
		os.Exit(1)
	}

	// chirper answers 200 for everyone; the page body carries the verdict
	chirper, err := usertrace.NewSite("chirper.test", "http://localhost:9999/chirper/{}",
		usertrace.WithName("chirper"),
		usertrace.WithCategory(usertrace.CategorySocialMedia),
		usertrace.WithBodyPattern("nobody here by that name"),
	)
	if err != nil {
		slog.Error("failed to create site", "error", err)
		os.Exit(1)
	}

	pixelfol, err := usertrace.NewSite("pixelfol.test", "http://localhost:9999/pixelfol/{}",
		usertrace.WithName("pixelfol"),
		usertrace.WithCategory(usertrace.CategoryArt),
	)
	if err != nil {
		slog.Error("failed to create site", "error", err)
		os.Exit(1)
	}

	pool, err := usertrace.NewPool(
		usertrace.WithPoolName("demo"),
		usertrace.WithSites(codehub, chirper, pixelfol),
	)
	if err != nil {
		slog.Error("failed to create pool", "error", err)
		os.Exit(1)
	}

	username := "alice"
	if len(os.Args) > 1 {
		username = os.Args[1]
	}
	if err := pool.SetUsernameAll(username); err != nil {
		slog.Error("invalid username", "error", err)
		os.Exit(1)
	}

	client := usertrace.NewClient()
	defer client.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	fmt.Printf("Scanning %d sites for %q...\n\n", pool.Len(), username)

	for result := range pool.Dispatch(ctx, client, 5*time.Second) {
		marker := " "
		if result.Found() {
			marker = "+"
		}
		fmt.Printf("  [%s] %-10s %-10s %s\n", marker, result.SiteName(), result.Status(), result.URL())
	}

	found := 0
	for _, r := range pool.Results() {
		if r.Found() {
			found++
		}
	}
	fmt.Printf("\n%q exists on %d of %d sites\n", username, found, pool.Len())
}
