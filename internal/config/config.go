// Package config defines pipeline configuration structures and loading.
//
// Conventions follow the rest of the module: defaults come from New, the
// loader layers an optional YAML file and EVENTFEEDS_-prefixed env vars on
// top, and external errors are wrapped via this package's sentinels.
package config

import "runtime"

// Source describes one configured event source.
type Source struct {
	// Name identifies the source in logs, metrics, and event records.
	Name string `koanf:"name"`

	// Kind selects the adapter: rss, ics, thrillshare, html, eventbrite,
	// macaronikid.
	Kind string `koanf:"kind"`

	// URL is the feed, export, or listing entry point.
	URL string `koanf:"url"`

	// Pages bounds paginated discovery crawls (eventbrite, macaronikid).
	Pages int `koanf:"pages"`

	// Selectors configures the generic HTML adapter: item, title, date,
	// time, location, description.
	Selectors map[string]string `koanf:"selectors"`

	// Parser names a site-specific parser hint (e.g. "freepress") that
	// overrides Selectors.
	Parser string `koanf:"parser"`

	// Headless enables the chromedp fallback crawl for this source.
	Headless bool `koanf:"headless"`

	// UserAgent overrides the global user agent for this source.
	UserAgent string `koanf:"user_agent"`
}

// Rule matches events by hostname, title, or location for routing and drops.
type Rule struct {
	Hosts         []string `koanf:"hosts"`
	TitleRegex    string   `koanf:"title_regex"`
	TitleGlob     string   `koanf:"title_glob"`
	LocationRegex string   `koanf:"location_regex"`
}

// ManualEvent is an operator-injected event merged after all sources.
type ManualEvent struct {
	Title       string `koanf:"title"`
	Description string `koanf:"description"`
	Location    string `koanf:"location"`
	Link        string `koanf:"link"`
	Start       string `koanf:"start"`
	End         string `koanf:"end"`
	Category    string `koanf:"category"`
}

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// Timezone is the default zone applied to naive timestamps.
	Timezone string `koanf:"timezone"`

	// HorizonDays bounds how far into the future events are kept.
	HorizonDays int `koanf:"horizon_days"`

	// GraceDays keeps recently-ended events for this many days.
	GraceDays int `koanf:"grace_days"`

	// FetchConcurrency bounds how many sources run at once.
	FetchConcurrency int `koanf:"fetch_concurrency"`

	// PolitenessMinSec and PolitenessMaxSec bound the randomized delay
	// applied after each successful fetch to a host.
	PolitenessMinSec int `koanf:"politeness_min_sec"`
	PolitenessMaxSec int `koanf:"politeness_max_sec"`

	// CachePath locates the sqlite HTTP cache database.
	CachePath string `koanf:"cache_path"`

	// OutputDir receives the per-category .ics files.
	OutputDir string `koanf:"output_dir"`

	// UserAgent is sent on every request unless a source overrides it.
	UserAgent string `koanf:"user_agent"`

	// HeadlessSessions bounds concurrent chromedp render sessions.
	HeadlessSessions int `koanf:"headless_sessions"`

	// Sources enumerates the inputs in processing order. Later sources win
	// dedup ties.
	Sources []Source `koanf:"sources"`

	// CategoryKeywords maps category name to its keyword bucket.
	CategoryKeywords map[string][]string `koanf:"category_keywords"`

	// FamilyHosts and FamilySources force the family category regardless of
	// keyword matches.
	FamilyHosts   []string `koanf:"family_hosts"`
	FamilySources []string `koanf:"family_sources"`

	// RouteRules force-reclassify matching events into the recurring
	// category after keyword categorization.
	RouteRules []Rule `koanf:"route_rules"`

	// DropRules remove matching events entirely, evaluated last.
	DropRules []Rule `koanf:"drop_rules"`

	// ManualEvents are injected after all sources.
	ManualEvents []ManualEvent `koanf:"manual_events"`
}

// New returns a Config populated with defaults.
func New() *Config {
	return &Config{
		LogLevel:         "info",
		Timezone:         "America/New_York",
		HorizonDays:      120,
		GraceDays:        2,
		FetchConcurrency: runtime.NumCPU(),
		PolitenessMinSec: 2,
		PolitenessMaxSec: 5,
		CachePath:        "data/cache.db",
		OutputDir:        "data/out",
		UserAgent:        "fxbg-event-bot/1.0",
		HeadlessSessions: 1,
		CategoryKeywords: map[string][]string{
			"recurring": {"every week", "weekly", "open mic", "trivia"},
			"family":    {"kids", "family", "children", "storytime"},
			"adult":     {"21+", "wine", "beer", "brewery"},
		},
	}
}
