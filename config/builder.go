package config

import (
	"fmt"
	"sort"

	"github.com/jpalmerr/usertrace"
)

// BuildSites converts parsed configuration into SDK Site objects.
//
// The returned slice preserves config order. Pattern compilation and
// category parsing happen here, so invalid entries fail with an error
// naming the offending site.
func BuildSites(cfg *Config) ([]*usertrace.Site, error) {
	sites := make([]*usertrace.Site, 0, len(cfg.Sites))

	for i, sc := range cfg.Sites {
		site, err := buildSite(sc)
		if err != nil {
			return nil, fmt.Errorf("sites[%d] (%s): %w", i, sc.Domain, err)
		}
		sites = append(sites, site)
	}

	return sites, nil
}

// buildSite converts a single SiteConfig to an SDK Site.
func buildSite(sc SiteConfig) (*usertrace.Site, error) {
	var opts []usertrace.SiteOption

	if sc.Name != "" {
		opts = append(opts, usertrace.WithName(sc.Name))
	}

	if sc.Category != "" {
		category, err := usertrace.ParseCategory(sc.Category)
		if err != nil {
			return nil, err
		}
		opts = append(opts, usertrace.WithCategory(category))
	}

	if sc.ProfileURL != "" {
		opts = append(opts, usertrace.WithProfileURL(sc.ProfileURL))
	}

	if sc.Method != "" {
		opts = append(opts, usertrace.WithMethod(sc.Method))
	}

	if sc.Timeout != 0 {
		opts = append(opts, usertrace.WithTimeout(sc.Timeout.Duration()))
	}

	if len(sc.Headers) > 0 {
		opts = append(opts, usertrace.WithHeaders(mapToKeyValuePairs(sc.Headers)...))
	}

	if sc.IgnoreStatus {
		opts = append(opts, usertrace.WithIgnoreStatusCode())
	}

	if sc.BodyPattern != "" {
		opts = append(opts, usertrace.WithBodyPattern(sc.BodyPattern))
	}

	if sc.URLPattern != "" {
		opts = append(opts, usertrace.WithURLPattern(sc.URLPattern))
	}

	if sc.RejectDots {
		opts = append(opts, usertrace.WithRejectDots())
	}

	return usertrace.NewSite(sc.Domain, sc.URL, opts...)
}

// mapToKeyValuePairs converts a map to a sorted slice of key-value pairs.
func mapToKeyValuePairs(m map[string]string) []string {
	// sort keys for deterministic ordering
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	pairs := make([]string, 0, len(m)*2)
	for _, k := range keys {
		pairs = append(pairs, k, m[k])
	}
	return pairs
}
