package main

import (
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/jpalmerr/usertrace"
	"github.com/jpalmerr/usertrace/config"
	"github.com/jpalmerr/usertrace/internal/store"
)

// newLogger creates a JSON logger for CLI use.
func newLogger(verbose bool) *slog.Logger {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	}))
}

// scanCmd probes every configured site for a username.
var scanCmd = &cobra.Command{
	Use:   "scan",
	Short: "Scan all sites for a username",
	Long: `Scan every site in the configured list for the given username.

All sites are probed concurrently; each result is reported as soon as its
site responds. Profile URLs of matches are printed to stdout, logs go to
stderr, so output can be piped cleanly.

The scan runs until every site has answered or is interrupted (Ctrl+C).

Example:
  usertrace scan -c sites.yaml -u alice
  usertrace scan -c sites.yaml -u alice --category social_media --found-only`,
	RunE: runScan,
}

func init() {
	rootCmd.AddCommand(scanCmd)

	scanCmd.Flags().StringP("config", "c", "", "path to site list (required)")
	scanCmd.Flags().StringP("username", "u", "", "username to search for (required)")
	scanCmd.Flags().StringSlice("category", nil, "restrict the scan to these categories")
	scanCmd.Flags().Bool("found-only", false, "report only sites where the username exists")
	scanCmd.Flags().Duration("timeout", 0, "per-probe timeout (overrides config)")
	scanCmd.Flags().Int("concurrency", 0, "max simultaneous probes (overrides config, 0 = unlimited)")
	scanCmd.Flags().BoolP("verbose", "v", false, "log every probe, not just matches and errors")
	_ = scanCmd.MarkFlagRequired("config")
	_ = scanCmd.MarkFlagRequired("username")
}

func runScan(cmd *cobra.Command, args []string) error {
	configFile, _ := cmd.Flags().GetString("config")
	username, _ := cmd.Flags().GetString("username")
	categories, _ := cmd.Flags().GetStringSlice("category")
	foundOnly, _ := cmd.Flags().GetBool("found-only")
	timeoutFlag, _ := cmd.Flags().GetDuration("timeout")
	concurrency, _ := cmd.Flags().GetInt("concurrency")
	verbose, _ := cmd.Flags().GetBool("verbose")

	logger := newLogger(verbose)

	cfg, err := config.Load(configFile)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	sites, err := config.BuildSites(cfg)
	if err != nil {
		return fmt.Errorf("failed to build sites: %w", err)
	}

	poolOpts := []usertrace.PoolOption{
		usertrace.WithPoolName("scan"),
		usertrace.WithSites(sites...),
		usertrace.WithLogger(logger),
	}
	maxConcurrent := cfg.MaxConcurrent
	if concurrency > 0 {
		maxConcurrent = concurrency
	}
	if maxConcurrent > 0 {
		poolOpts = append(poolOpts, usertrace.WithMaxConcurrent(maxConcurrent))
	}

	pool, err := usertrace.NewPool(poolOpts...)
	if err != nil {
		return fmt.Errorf("failed to create pool: %w", err)
	}

	if len(categories) > 0 {
		wanted := make(map[usertrace.Category]bool, len(categories))
		for _, name := range categories {
			category, err := usertrace.ParseCategory(name)
			if err != nil {
				return err
			}
			wanted[category] = true
		}
		pool.Remove(func(s *usertrace.Site) bool {
			return !wanted[s.Category()]
		})
	}
	if pool.IsEmpty() {
		return fmt.Errorf("no sites to scan (check --category filters)")
	}

	if err := pool.SetUsernameAll(username); err != nil {
		return fmt.Errorf("invalid username: %w", err)
	}

	timeout := cfg.Timeout.Duration()
	if timeoutFlag > 0 {
		timeout = timeoutFlag
	}

	client := usertrace.NewClient(usertrace.WithUserAgent(cfg.RandomUserAgent()))
	defer client.Close()

	// set up context with signal handling - cancel on SIGINT/SIGTERM
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	runID := uuid.NewString()
	logger.Info("scan starting",
		"run_id", runID,
		"username", username,
		"sites", pool.Len(),
		"timeout", timeout.String(),
	)

	results := store.New()
	start := time.Now()

	for result := range pool.Dispatch(ctx, client, timeout) {
		results.Update(toScanResult(result))

		logAttrs := []any{
			"run_id", runID,
			"status", result.Status().String(),
			"site", result.SiteName(),
			"url", result.URL(),
			"latency_ms", result.Latency().Milliseconds(),
		}
		switch {
		case result.Err() != nil:
			logger.Warn("probe failed", append(logAttrs, "error", result.Err().Error())...)
		case result.Found():
			logger.Info("username found", logAttrs...)
		default:
			logger.Debug("probe completed", logAttrs...)
		}

		if result.Found() || (!foundOnly && result.Err() == nil) {
			fmt.Printf("[%s] %-16s %s\n", result.Status(), result.SiteName(), result.URL())
		}
	}

	summary := results.Summary()
	logger.Info("scan complete",
		"run_id", runID,
		"username", username,
		"found", summary[usertrace.StatusFound.String()],
		"not_found", summary[usertrace.StatusNotFound.String()],
		"errors", summary[usertrace.StatusError.String()],
		"elapsed", time.Since(start).Round(time.Millisecond).String(),
	)

	if ctx.Err() != nil {
		logger.Warn("scan interrupted", "run_id", runID)
	}

	fmt.Printf("\n%d of %d sites matched %q in %s\n",
		summary[usertrace.StatusFound.String()], results.Len(), username,
		time.Since(start).Round(time.Millisecond))

	return nil
}

// toScanResult converts an SDK result to its storage representation.
func toScanResult(r usertrace.Result) store.ScanResult {
	var errStr *string
	if r.Err() != nil {
		s := r.Err().Error()
		errStr = &s
	}

	return store.ScanResult{
		Site:       r.SiteName(),
		Domain:     r.Domain(),
		URL:        r.URL(),
		Username:   r.Username(),
		Status:     r.Status().String(),
		StatusCode: r.StatusCode(),
		LatencyMs:  r.Latency().Milliseconds(),
		CheckedAt:  r.CheckedAt(),
		Error:      errStr,
	}
}
