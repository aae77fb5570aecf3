package main

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"github.com/jpalmerr/usertrace/config"
)

// validateCmd validates a site list without starting a scan.
var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate a site list",
	Long: `Validate a usertrace site list without probing anything.

This command parses the YAML, expands environment variables, validates all
fields, and compiles every detection pattern. It's useful for CI pipelines
or before committing site list changes.

Exit codes:
  0 - Site list is valid
  1 - Site list is invalid (error details printed to stderr)

Example:
  usertrace validate -c sites.yaml
  usertrace validate --config /etc/usertrace/sites.yaml`,
	RunE: runValidate,
}

func init() {
	rootCmd.AddCommand(validateCmd)

	validateCmd.Flags().StringP("config", "c", "", "path to site list (required)")
	_ = validateCmd.MarkFlagRequired("config")
}

func runValidate(cmd *cobra.Command, args []string) error {
	configFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(configFile)
	if err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	// building sites compiles patterns and parses categories
	sites, err := config.BuildSites(cfg)
	if err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	byCategory := make(map[string]int)
	for _, s := range sites {
		byCategory[s.Category().String()]++
	}
	categories := make([]string, 0, len(byCategory))
	for name := range byCategory {
		categories = append(categories, name)
	}
	sort.Strings(categories)

	fmt.Printf("Config is valid!\n")
	fmt.Printf("  Sites:   %d\n", len(sites))
	fmt.Printf("  Timeout: %s\n", cfg.Timeout.Duration())
	for _, name := range categories {
		fmt.Printf("    %-14s %d\n", name+":", byCategory[name])
	}

	return nil
}
