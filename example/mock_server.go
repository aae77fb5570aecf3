package main

import (
	"fmt"
	"log/slog"
	"net/http"
	"strings"
)

// registeredUsers maps a mock site path to the usernames that "exist" there.
var registeredUsers = map[string]map[string]bool{
	"codehub":  {"alice": true, "bob": true},
	"chirper":  {"alice": true},
	"pixelfol": {"bob": true},
}

// StartMockSiteServer runs a mock profile server hosting several fake sites
// under one port. /{site}/{username} answers 200 for registered usernames.
// The chirper site answers 200 for everyone and marks missing users in the
// page body instead, exercising body pattern detection.
// Call this in a goroutine before dispatching probes.
func StartMockSiteServer(addr string) {
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
			// always 200, the body carries the verdict
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

	if err := http.ListenAndServe(addr, nil); err != nil {
		slog.Error("mock server error", "error", err)
	}
}
