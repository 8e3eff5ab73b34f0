// Package categorize assigns each event to an output partition by scanning
// keyword buckets in priority order, with host/source overrides.
package categorize

import (
	"net/url"
	"strings"

	"github.com/caymran/eventfeeds/internal/domain/model"
)

var weekdayWords = []string{
	"monday", "tuesday", "wednesday", "thursday", "friday", "saturday", "sunday",
}

// Categorizer classifies events. Construct with New and functional options.
type Categorizer struct {
	buckets       map[model.Category][]string
	familyHosts   []string
	familySources []string
}

// Option applies a configuration option to the Categorizer.
type Option func(*Categorizer)

// WithBuckets replaces the keyword buckets. Keys must belong to the fixed
// category set; unknown keys are ignored.
func WithBuckets(buckets map[string][]string) Option {
	return func(c *Categorizer) {
		if len(buckets) == 0 {
			return
		}
		next := make(map[model.Category][]string)
		for _, cat := range model.Categories() {
			for _, kw := range buckets[string(cat)] {
				kw = strings.ToLower(strings.TrimSpace(kw))
				if kw != "" {
					next[cat] = append(next[cat], kw)
				}
			}
		}
		c.buckets = next
	}
}

// WithFamilyHosts forces the family category for events whose link points
// at one of the given hosts (suffix match).
func WithFamilyHosts(hosts []string) Option {
	return func(c *Categorizer) {
		c.familyHosts = lowered(hosts)
	}
}

// WithFamilySources forces the family category for events from the named
// sources.
func WithFamilySources(sources []string) Option {
	return func(c *Categorizer) {
		c.familySources = lowered(sources)
	}
}

func lowered(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		s = strings.ToLower(strings.TrimSpace(s))
		if s != "" {
			out = append(out, s)
		}
	}
	return out
}

// New creates a Categorizer with empty buckets unless options provide them.
func New(opts ...Option) *Categorizer {
	c := &Categorizer{buckets: make(map[model.Category][]string)}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Categorize scans title+description against the buckets in fixed priority
// order (recurring, family, adult), applies the weekday+recurrence-word
// heuristic, then the forced family overrides. The catch-all is adult.
func (c *Categorizer) Categorize(ev model.Event) model.Category {
	if c.isForcedFamily(ev) {
		return model.CategoryFamily
	}

	blob := strings.ToLower(ev.Title + " " + ev.Description)
	for _, cat := range model.Categories() {
		for _, kw := range c.buckets[cat] {
			if strings.Contains(blob, kw) {
				return cat
			}
		}
	}

	if mentionsWeekday(blob) &&
		(strings.Contains(blob, "every") || strings.Contains(blob, "weekly")) {
		return model.CategoryRecurring
	}
	return model.CategoryAdult
}

func (c *Categorizer) isForcedFamily(ev model.Event) bool {
	src := strings.ToLower(ev.Source)
	for _, s := range c.familySources {
		if src == s {
			return true
		}
	}
	host := hostOf(ev.Link)
	if host == "" {
		host = hostOf(ev.Source)
	}
	for _, h := range c.familyHosts {
		if host == h || strings.HasSuffix(host, "."+h) {
			return true
		}
	}
	return false
}

func mentionsWeekday(blob string) bool {
	for _, w := range weekdayWords {
		if strings.Contains(blob, w) {
			return true
		}
	}
	return false
}

func hostOf(raw string) string {
	if raw == "" {
		return ""
	}
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return ""
	}
	return strings.ToLower(u.Hostname())
}
