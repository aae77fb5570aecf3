// Package main is the entry point for the usertrace CLI.
//
// Usertrace can be used either as a library (SDK) or as a standalone binary
// with a YAML site list. This CLI provides the standalone binary approach.
//
// Usage:
//
//	usertrace scan -c sites.yaml -u alice   # Scan all sites for a username
//	usertrace validate -c sites.yaml        # Validate a site list
//	usertrace version                       # Show version info
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// Version information - set by GoReleaser at build time via ldflags.
// Example: go build -ldflags "-X main.version=1.0.0"
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

// rootCmd is the base command when called without subcommands.
// It just displays help - actual functionality is in subcommands.
var rootCmd = &cobra.Command{
	Use:   "usertrace",
	Short: "Find on which websites a username is in use",
	Long: `Usertrace checks a list of websites for the existence of a username.

All sites are probed concurrently and results stream in as each site
responds, so a scan is as fast as the slowest site, not the sum of all.

Quick start:
  1. Create a site list (sites.yaml)
  2. Run: usertrace scan -c sites.yaml -u alice

Example site list:
  timeout: 5s
  sites:
    - domain: github.com
      url: https://github.com/{}
      category: programming
    - domain: example.com
      url: https://example.com/user/{}
      body_pattern: "user not found"`,
	// No Run/RunE means this just shows help when called without subcommands
}

// Execute runs the root command.
// This is the main entry point called from main().
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		// Cobra already prints the error, just exit with code 1
		os.Exit(1)
	}
}

func main() {
	Execute()
}

// versionCmd prints version information.
var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Long:  `Print the version, commit hash, and build date of this usertrace binary.`,
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("usertrace %s\n", version)
		fmt.Printf("  commit: %s\n", commit)
		fmt.Printf("  built:  %s\n", date)
	},
}

func init() {
	// Register subcommands with root
	rootCmd.AddCommand(versionCmd)
}
