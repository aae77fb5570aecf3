// Standalone mock profile server for testing the CLI.
//
// Usage:
//
//	go run ./example/cmd/mockserver
//
// Then in another terminal:
//
//	go run ./cmd/usertrace scan -c example/sites.yaml -u alice
package main

import (
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"strings"
)

var registeredUsers = map[string]map[string]bool{
	"codehub":  {"alice": true, "bob": true},
	"chirper":  {"alice": true},
	"pixelfol": {"bob": true},
}

func main() {
	fmt.Println("Mock profile server starting on :9999")
	fmt.Println("Sites: codehub, chirper, pixelfol")
	fmt.Println("Registered users: alice, bob")
	fmt.Println("Press Ctrl+C to stop")
	fmt.Println()

	http.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		parts := strings.SplitN(strings.Trim(r.URL.Path, "/"), "/", 2)
		if len(parts) != 2 {
			http.NotFound(w, r)
			return
		}
		site, username := parts[0], parts[1]

		users, ok := registeredUsers[site]
		if !ok {
			http.NotFound(w, r)
			return
		}

		if site == "chirper" {
			if users[username] {
				fmt.Fprintf(w, "<h1>@%s</h1><p>42 chirps</p>", username)
			} else {
				fmt.Fprint(w, "<h1>Sorry, nobody here by that name.</h1>")
			}
			return
		}

		if !users[username] {
			http.NotFound(w, r)
			return
		}
		fmt.Fprintf(w, "<h1>%s's profile on %s</h1>", username, site)
	})

	if err := http.ListenAndServe(":9999", nil); err != nil {
		slog.Error("server error", "error", err)
		os.Exit(1)
	}
}
