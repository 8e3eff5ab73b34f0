// Package dedupe provides stable event identity, last-write-wins
// deduplication, routing/drop rule evaluation, and the output time window.
package dedupe

import (
	"crypto/sha1"
	"encoding/hex"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/caymran/eventfeeds/internal/domain/model"
)

// ID computes the stable content hash identifying a real-world event.
// It must be computed after title/location cleanup so cosmetic differences
// do not create duplicate identities.
func ID(title string, start time.Time, location string) string {
	base := strings.TrimSpace(title) + "|" + start.Format(time.RFC3339) + "|" + strings.TrimSpace(location)
	sum := sha1.Sum([]byte(base))
	return hex.EncodeToString(sum[:])
}

// Router owns the identity map and the post-categorization rule chain.
// Add order is significant: a later Add with an equal id overwrites the
// earlier event (last write wins), so callers merge sources in
// configuration order to keep tie-breaks deterministic.
type Router struct {
	mu     sync.Mutex
	byID   map[string]model.Event
	routes []Rule
	drops  []Rule

	grace   time.Duration
	horizon time.Duration
	now     func() time.Time

	duplicates int
	dropped    int
}

// New creates a Router with a 2-day grace period and 120-day horizon
// unless options override them.
func New(opts ...Option) *Router {
	r := &Router{
		byID:    make(map[string]model.Event),
		grace:   48 * time.Hour,
		horizon: 120 * 24 * time.Hour,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Add assigns the event's id, applies route and drop rules, and inserts it
// into the identity map. It reports what happened: inserted, overwrote a
// duplicate, or dropped by rule.
func (r *Router) Add(ev model.Event) Outcome {
	ev.ID = ID(ev.Title, ev.Start, ev.Location)

	// Route overrides run after keyword categorization so they always win.
	for _, rule := range r.routes {
		if rule.matches(ev) {
			ev.Category = model.CategoryRecurring
			break
		}
	}
	for _, rule := range r.drops {
		if rule.matches(ev) {
			r.mu.Lock()
			r.dropped++
			r.mu.Unlock()
			return OutcomeDropped
		}
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	_, existed := r.byID[ev.ID]
	r.byID[ev.ID] = ev
	if existed {
		r.duplicates++
		return OutcomeOverwrote
	}
	return OutcomeInserted
}

// Outcome describes the result of an Add.
type Outcome int

const (
	OutcomeInserted Outcome = iota
	OutcomeOverwrote
	OutcomeDropped
)

// Events returns the surviving set filtered to the time window and sorted
// by start ascending. Both window boundaries are inclusive.
func (r *Router) Events() []model.Event {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()
	pastCutoff := now.Add(-r.grace)
	futureLimit := now.Add(r.horizon)

	out := make([]model.Event, 0, len(r.byID))
	for _, ev := range r.byID {
		if ev.End.Before(pastCutoff) {
			continue
		}
		if ev.Start.After(futureLimit) {
			continue
		}
		out = append(out, ev)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Start.Before(out[j].Start) })
	return out
}

// WindowDropCount reports how many stored events fall outside the current
// window; used for run diagnostics.
func (r *Router) WindowDropCount() int {
	r.mu.Lock()
	total := len(r.byID)
	r.mu.Unlock()
	return total - len(r.Events())
}

// DuplicateCount reports overwrites observed so far.
func (r *Router) DuplicateCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.duplicates
}

// DropCount reports rule-based removals observed so far.
func (r *Router) DropCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.dropped
}
