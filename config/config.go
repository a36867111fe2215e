// Package config holds watchtap's defaults and the optional YAML
// configuration file.
//
// Everything works with compiled-in defaults; the file exists so a pipeline
// can override them and declare the watch list that `watchtap seed` pushes
// into the service. Credentials are never read from or written to the file —
// they travel via flags and CHANGEDETECTION_API_KEY only.
package config

import (
	"errors"
	"fmt"
	"os"
	"sort"
	"time"

	"gopkg.in/yaml.v3"
)

// Compiled-in defaults for the changedetection.io sidecar the pipeline
// usually runs next to.
const (
	// DefaultServiceURL is where the watch service listens inside the
	// pipeline's compose network.
	DefaultServiceURL = "http://changedetection:5000"

	// DefaultContainerHint matches the service's container by name substring.
	DefaultContainerHint = "changedetection"

	// DefaultComposeService is the service name used for compose-label
	// discovery.
	DefaultComposeService = "changedetection"

	// DefaultRemotePath is the datastore document inside the container.
	DefaultRemotePath = "/datastore/url-watches.json"

	// DefaultSnapshotName is where the copied datastore lands locally.
	DefaultSnapshotName = "url-watches.json"

	// DefaultField is the credential field inside the datastore document.
	DefaultField = "api_access_token"
)

// Polling schedules. All loops are bounded and fixed-interval; the budget of
// each is simply attempts times interval.
const (
	DefaultWaitAttempts = 30
	DefaultWaitInterval = 5 * time.Second

	DefaultProbeTimeout = 10 * time.Second

	DefaultFileWaitAttempts = 12
	DefaultFileWaitInterval = 5 * time.Second

	DefaultSeedAttempts = 5
	DefaultSeedInterval = 10 * time.Second
)

// Environment overrides recognized across subcommands. The names come from
// the service's own ecosystem so existing pipelines keep working.
const (
	EnvServiceURL = "CHANGEDETECTION_URL"
	EnvAPIKey     = "CHANGEDETECTION_API_KEY"
)

// ServiceURL resolves the service URL: CHANGEDETECTION_URL when set,
// otherwise the compiled-in default.
func ServiceURL() string {
	if v := os.Getenv(EnvServiceURL); v != "" {
		return v
	}
	return DefaultServiceURL
}

// APIKey resolves a credential: an explicit flag value wins, then
// CHANGEDETECTION_API_KEY. Empty means no key available.
func APIKey(flagValue string) string {
	if flagValue != "" {
		return flagValue
	}
	return os.Getenv(EnvAPIKey)
}

// WatchEntry is one URL the pipeline wants monitored by the service.
type WatchEntry struct {
	URL      string `yaml:"url"`
	Title    string `yaml:"title,omitempty"`
	Tag      string `yaml:"tag,omitempty"`
	Type     string `yaml:"type,omitempty"`
	Priority int    `yaml:"priority,omitempty"`
	Interval int    `yaml:"interval,omitempty"` // seconds between checks
}

// EffectiveTag is the tag pushed to the service; entries without an explicit
// tag fall back to their type so related watches stay grouped.
func (w WatchEntry) EffectiveTag() string {
	if w.Tag != "" {
		return w.Tag
	}
	return w.Type
}

// Config is the optional YAML file.
type Config struct {
	ServiceURL    string       `yaml:"service_url,omitempty"`
	MonitoredURLs []WatchEntry `yaml:"monitored_urls,omitempty"`
}

// Load reads the config file at path. A missing file is not an error: it
// returns an empty Config so compiled-in defaults apply.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return &Config{}, nil
		}
		return nil, fmt.Errorf("read config: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	for i, w := range cfg.MonitoredURLs {
		if w.URL == "" {
			return nil, fmt.Errorf("parse config %s: monitored_urls[%d] has no url", path, i)
		}
	}
	return &cfg, nil
}

// EffectiveServiceURL layers the resolution order: file, then environment,
// then default.
func (c *Config) EffectiveServiceURL() string {
	if v := os.Getenv(EnvServiceURL); v != "" {
		return v
	}
	if c.ServiceURL != "" {
		return c.ServiceURL
	}
	return DefaultServiceURL
}

// Watches returns the monitored URLs ordered by priority (lower first),
// stable for equal priorities.
func (c *Config) Watches() []WatchEntry {
	out := make([]WatchEntry, len(c.MonitoredURLs))
	copy(out, c.MonitoredURLs)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Priority < out[j].Priority })
	return out
}
