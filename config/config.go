// Package config provides YAML configuration parsing for usertrace.
//
// This package enables running usertrace as a standalone binary with a
// site-list file, as an alternative to the programmatic SDK approach.
//
// Example configuration:
//
//	timeout: 5s
//	max_concurrent: 20
//
//	user_agents:
//	  - "Mozilla/5.0 (X11; Linux x86_64) Gecko/20100101 Firefox/121.0"
//
//	sites:
//	  - domain: github.com
//	    url: https://github.com/{}
//	    category: programming
//	  - domain: example.com
//	    url: https://example.com/user/{}
//	    body_pattern: "user (not found|does not exist)"
//	    reject_dots: true
package config

import (
	"errors"
	"fmt"
	"math/rand"
	"net/url"
	"os"
	"regexp"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// defaultTimeout is applied when the config does not set one.
const defaultTimeout = 10 * time.Second

// defaultUserAgent is used when no user_agents list is configured.
const defaultUserAgent = "usertrace/1.0 (+https://github.com/jpalmerr/usertrace)"

// usernamePlaceholder must appear in every probe URL so the scanned
// username can be substituted in.
const usernamePlaceholder = "{}"

// Config is the root configuration structure for usertrace.
//
// It maps directly to the YAML configuration file structure.
// Use [Load] or [Parse] to create a Config from YAML.
type Config struct {
	// Timeout is the per-probe timeout applied to every site that does
	// not set its own. Accepts duration strings like "10s", "500ms".
	// Defaults to 10s.
	Timeout Duration `yaml:"timeout"`

	// MaxConcurrent caps the number of simultaneous probes.
	// Zero (the default) means every probe starts at once.
	MaxConcurrent int `yaml:"max_concurrent"`

	// UserAgents is a list of User-Agent strings; one is picked at random
	// per scan. When empty, a built-in default is used.
	UserAgents []string `yaml:"user_agents"`

	// Sites defines the websites to probe.
	Sites []SiteConfig `yaml:"sites"`
}

// SiteConfig defines a single website to probe.
type SiteConfig struct {
	// Name overrides the display name derived from the domain.
	Name string `yaml:"name"`

	// Domain is the site's domain, e.g. "github.com". Required.
	Domain string `yaml:"domain"`

	// URL is the probe URL template with the "{}" username placeholder.
	// Supports environment variable substitution: ${VAR} or ${VAR:-default}.
	// Required.
	URL string `yaml:"url"`

	// ProfileURL is a separate template for the user-visible profile page,
	// when it differs from the probe URL.
	ProfileURL string `yaml:"profile_url"`

	// Category is the site category name, e.g. "social_media".
	Category string `yaml:"category"`

	// Method is the HTTP method (GET, HEAD, POST). Defaults to GET.
	Method string `yaml:"method"`

	// Timeout overrides the global per-probe timeout for this site.
	Timeout Duration `yaml:"timeout"`

	// Headers are custom HTTP headers sent with each probe request.
	// Values support environment variable substitution.
	Headers map[string]string `yaml:"headers"`

	// IgnoreStatus makes detection skip the HTTP status code check.
	IgnoreStatus bool `yaml:"ignore_status"`

	// BodyPattern is a regex marking the username as not found when it
	// matches the response body.
	BodyPattern string `yaml:"body_pattern"`

	// URLPattern is a regex marking the username as not found when it
	// matches the post-redirect URL.
	URLPattern string `yaml:"url_pattern"`

	// RejectDots marks the site as rejecting usernames containing a dot.
	RejectDots bool `yaml:"reject_dots"`
}

// Duration wraps time.Duration for YAML unmarshalling.
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler for Duration.
func (d *Duration) UnmarshalYAML(node *yaml.Node) error {
	var s string
	if err := node.Decode(&s); err != nil {
		return err
	}

	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", s, err)
	}

	*d = Duration(parsed)
	return nil
}

// Duration returns the underlying time.Duration value.
func (d Duration) Duration() time.Duration {
	return time.Duration(d)
}

// RandomUserAgent picks one of the configured User-Agent strings at random,
// or the built-in default when none are configured.
func (c *Config) RandomUserAgent() string {
	if len(c.UserAgents) == 0 {
		return defaultUserAgent
	}
	return c.UserAgents[rand.Intn(len(c.UserAgents))]
}

// envVarPattern matches ${VAR} and ${VAR:-default} patterns.
// Group 1: variable name
// Group 2: the ":-default" part (if present, indicates a default was specified)
// Group 3: the default value (may be empty for ${VAR:-})
var envVarPattern = regexp.MustCompile(`\$\{([^}:]+)(:-([^}]*))?\}`)

// expandEnvVars replaces ${VAR} and ${VAR:-default} patterns with environment values.
func expandEnvVars(s string) (string, error) {
	var firstErr error

	result := envVarPattern.ReplaceAllStringFunc(s, func(match string) string {
		// already have an error, skip processing
		if firstErr != nil {
			return match
		}

		submatches := envVarPattern.FindStringSubmatch(match)
		if len(submatches) < 2 {
			return match
		}

		varName := submatches[1]
		hasDefault := len(submatches) > 2 && submatches[2] != ""
		defaultVal := ""
		if hasDefault && len(submatches) > 3 {
			defaultVal = submatches[3]
		}

		value, exists := os.LookupEnv(varName)
		if !exists {
			if hasDefault {
				return defaultVal
			}
			firstErr = fmt.Errorf("environment variable %q is not set", varName)
			return match
		}
		return value
	})

	if firstErr != nil {
		return "", firstErr
	}
	return result, nil
}

// Load reads and parses a YAML configuration file.
//
// Environment variables in the file are expanded before validation.
// Returns an error if the file cannot be read or parsed.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	return Parse(data)
}

// Parse parses YAML configuration data.
//
// Environment variables are expanded in URL and header values. The global
// timeout defaults to 10s when unset.
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if cfg.Timeout == 0 {
		cfg.Timeout = Duration(defaultTimeout)
	}

	if err := cfg.expandAndValidate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// expandAndValidate expands environment variables and validates the config.
func (c *Config) expandAndValidate() error {
	if c.Timeout.Duration() < 0 {
		return fmt.Errorf("timeout cannot be negative, got %s", c.Timeout.Duration())
	}
	if c.MaxConcurrent < 0 {
		return fmt.Errorf("max_concurrent cannot be negative, got %d", c.MaxConcurrent)
	}

	if len(c.Sites) == 0 {
		return errors.New("at least one site must be defined")
	}

	seenURLs := make(map[string]int, len(c.Sites))
	for i := range c.Sites {
		sc := &c.Sites[i]

		if sc.Domain == "" {
			return fmt.Errorf("sites[%d]: domain is required", i)
		}

		if sc.URL == "" {
			return fmt.Errorf("sites[%d] (%s): url is required", i, sc.Domain)
		}
		expanded, err := expandEnvVars(sc.URL)
		if err != nil {
			return fmt.Errorf("sites[%d] (%s): url: %w", i, sc.Domain, err)
		}
		sc.URL = expanded

		if err := validateTemplate(sc.URL); err != nil {
			return fmt.Errorf("sites[%d] (%s): %w", i, sc.Domain, err)
		}
		if !strings.Contains(sc.URL, usernamePlaceholder) {
			return fmt.Errorf("sites[%d] (%s): url must contain the %q username placeholder",
				i, sc.Domain, usernamePlaceholder)
		}

		if prev, dup := seenURLs[sc.URL]; dup {
			return fmt.Errorf("sites[%d] (%s): url duplicates sites[%d]", i, sc.Domain, prev)
		}
		seenURLs[sc.URL] = i

		if sc.ProfileURL != "" {
			expanded, err := expandEnvVars(sc.ProfileURL)
			if err != nil {
				return fmt.Errorf("sites[%d] (%s): profile_url: %w", i, sc.Domain, err)
			}
			sc.ProfileURL = expanded

			if err := validateTemplate(sc.ProfileURL); err != nil {
				return fmt.Errorf("sites[%d] (%s): profile_url: %w", i, sc.Domain, err)
			}
		}

		for k, v := range sc.Headers {
			expanded, err := expandEnvVars(v)
			if err != nil {
				return fmt.Errorf("sites[%d] (%s): headers[%s]: %w", i, sc.Domain, k, err)
			}
			sc.Headers[k] = expanded
		}

		if sc.Method != "" && sc.Method != "GET" && sc.Method != "HEAD" && sc.Method != "POST" {
			return fmt.Errorf("sites[%d] (%s): method must be GET, HEAD, or POST", i, sc.Domain)
		}

		if sc.Timeout != 0 && sc.Timeout.Duration() < 0 {
			return fmt.Errorf("sites[%d] (%s): timeout cannot be negative, got %s",
				i, sc.Domain, sc.Timeout.Duration())
		}
	}

	return nil
}

// validateTemplate checks that a URL template parses as an http(s) URL once
// the placeholder is substituted.
func validateTemplate(tpl string) error {
	probe := strings.ReplaceAll(tpl, usernamePlaceholder, "probe")
	parsed, err := url.Parse(probe)
	if err != nil {
		return fmt.Errorf("invalid url: %w", err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return errors.New("url must have an http:// or https:// scheme")
	}
	return nil
}
