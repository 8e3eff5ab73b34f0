package dedupe

import "time"

// Option applies a configuration option to the Router.
type Option func(*Router)

// WithRouteRules installs compiled rules that force-reclassify matching
// events into the recurring category.
func WithRouteRules(rules []Rule) Option {
	return func(r *Router) {
		r.routes = rules
	}
}

// WithDropRules installs compiled rules that remove matching events.
func WithDropRules(rules []Rule) Option {
	return func(r *Router) {
		r.drops = rules
	}
}

// WithGrace keeps events whose end is at most d in the past.
func WithGrace(d time.Duration) Option {
	return func(r *Router) {
		if d >= 0 {
			r.grace = d
		}
	}
}

// WithHorizon keeps events whose start is at most d in the future.
func WithHorizon(d time.Duration) Option {
	return func(r *Router) {
		if d > 0 {
			r.horizon = d
		}
	}
}

// WithNow overrides the clock; tests use this to pin the window.
func WithNow(now func() time.Time) Option {
	return func(r *Router) {
		if now != nil {
			r.now = now
		}
	}
}
