// Package normalize coerces raw adapter records into canonical events.
package normalize

import (
	"regexp"
	"time"

	"github.com/caymran/eventfeeds/internal/domain/model"
	"github.com/caymran/eventfeeds/internal/domain/text"
)

var (
	// datePrefixRE strips a leading "Oct 23, 2025: " from titles.
	datePrefixRE = regexp.MustCompile(`^[A-Za-z]{3}\s+\d{1,2},\s+\d{4}:\s+`)

	// trailingAtRE peels "... at The Tap Room" off a title when no
	// explicit location was supplied.
	trailingAtRE = regexp.MustCompile(`(?i)\s+at\s+(.+)$`)
)

// locationStops bound the "Location" label window when re-deriving a venue
// from chrome-contaminated text.
var locationStops = []string{"get directions", "tags", "view map", "about this event"}

// Normalizer turns RawEvents into canonical Events. It is stateless apart
// from the default timezone; Normalize is safe for concurrent use.
type Normalizer struct {
	loc *time.Location
}

// New creates a Normalizer that interprets naive timestamps in loc.
func New(loc *time.Location) *Normalizer {
	if loc == nil {
		loc = time.UTC
	}
	return &Normalizer{loc: loc}
}

// Normalize applies title/location cleanup, date resolution with fallback
// free-text parsing, and the end-time default. The boolean is false when
// the record lacks a usable title or start after all fallbacks; that is an
// expected outcome, not an error.
func (n *Normalizer) Normalize(raw model.RawEvent) (model.Event, bool) {
	title := text.CollapseSpace(raw.Title)
	title = datePrefixRE.ReplaceAllString(title, "")

	location := text.CollapseSpace(raw.Location)
	if location == "" {
		if m := trailingAtRE.FindStringSubmatch(title); m != nil {
			location = text.CollapseSpace(m[1])
			title = text.CollapseSpace(trailingAtRE.ReplaceAllString(title, ""))
		}
	}

	location = cleanLocation(location)
	if location == "" || text.LooksLikeChrome(location) {
		location = n.reDeriveLocation(raw)
	}

	description := text.StripBoilerplate(text.HTMLToText(raw.Description))

	start, end := n.resolveTimes(raw, title, description)
	if title == "" || start.IsZero() {
		return model.Event{}, false
	}
	if end.IsZero() || end.Before(start) {
		end = start.Add(text.DefaultEventDuration)
	}

	// Adapters occasionally shove the event's own time string into the
	// location field; such a value carries no venue information.
	if text.IsTimeOfDay(location) {
		location = ""
	}

	return model.Event{
		Title:       title,
		Description: description,
		Location:    location,
		Link:        raw.Link,
		Start:       start.Truncate(time.Minute),
		End:         end.Truncate(time.Minute),
		Source:      raw.Source,
	}, true
}

// cleanLocation flattens markup and trims punctuation; chrome-shaped
// results are discarded rather than trusted.
func cleanLocation(location string) string {
	if location == "" {
		return ""
	}
	location = text.TrimPunct(text.CollapseSpace(text.HTMLToText(location)))
	if text.LooksLikeChrome(location) {
		return ""
	}
	return location
}

// reDeriveLocation attempts address extraction from the contaminated
// location text itself, then from the description, then from a bounded
// "Location" label window.
func (n *Normalizer) reDeriveLocation(raw model.RawEvent) string {
	if v := text.ExtractVenueAddress(raw.Location); v != "" {
		return v
	}
	if v := text.ExtractVenueAddress(raw.Description); v != "" {
		return v
	}
	if between := text.ExtractBetween(text.HTMLToText(raw.Location), "Location", locationStops); between != "" {
		if !text.LooksLikeChrome(between) {
			return text.TrimPunct(between)
		}
	}
	return ""
}

// resolveTimes prefers structured instants, then timestamp text, then
// free-text range parsing over description+title.
func (n *Normalizer) resolveTimes(raw model.RawEvent, title, description string) (time.Time, time.Time) {
	start, end := raw.Start, raw.End

	if start.IsZero() && raw.StartText != "" {
		if t, ok := text.ParseInstant(raw.StartText, n.loc); ok {
			start = t
		} else if s, e, ok := text.ParseWhen(raw.StartText, n.loc); ok {
			start = s
			if end.IsZero() {
				end = e
			}
		}
	}
	if end.IsZero() && raw.EndText != "" {
		if t, ok := text.ParseInstant(raw.EndText, n.loc); ok {
			end = t
		}
	}
	if start.IsZero() {
		if s, e, ok := text.ParseWhen(description+" "+title, n.loc); ok {
			start = s
			if end.IsZero() {
				end = e
			}
		}
	}
	return start, end
}
