// Package model contains domain models passed between pipeline stages.
package model

import "time"

// Category partitions events into output calendars.
type Category string

// Fixed category set. Keyword buckets are checked in this priority order.
const (
	CategoryRecurring Category = "recurring"
	CategoryFamily    Category = "family"
	CategoryAdult     Category = "adult"
)

// Categories lists all output partitions in emit order.
func Categories() []Category {
	return []Category{CategoryRecurring, CategoryFamily, CategoryAdult}
}

// RawEvent is what a source adapter produces before normalization. No field
// is guaranteed well-formed; the normalizer is the sole consumer and may
// reject the record entirely.
type RawEvent struct {
	Title       string    // may carry a date prefix or a trailing venue clause
	Description string    // may be HTML
	Location    string    // may be site chrome rather than a place
	Link        string    // detail page or feed entry URL
	StartText   string    // free text or ISO timestamp, used when Start is zero
	EndText     string    // free text or ISO timestamp, used when End is zero
	Start       time.Time // set when the adapter already has an instant
	End         time.Time
	Source      string // adapter/source identifier
}

// Event is the canonical, deduplicated unit handed to the calendar writer.
type Event struct {
	ID          string // sha1(title|start|location), stable across runs
	Title       string // non-empty
	Description string // plain text, boilerplate removed
	Location    string // clean text, empty when unknown
	Link        string
	Start       time.Time // zone-aware, minute precision
	End         time.Time // always set; defaulted to Start+2h when absent
	Source      string
	Category    Category
}
