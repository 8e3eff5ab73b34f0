// Package icalout renders the final event partitions as iCalendar files,
// one per category.
package icalout

import (
	"context"
	"fmt"
	"html"
	"os"
	"path/filepath"
	"strings"
	"time"

	ics "github.com/arran4/golang-ical"
	"github.com/google/uuid"

	"github.com/caymran/eventfeeds/internal/domain/model"
	"github.com/caymran/eventfeeds/pkg/logger"
)

const productID = "-//eventfeeds//calendar//EN"

// Writer serializes per-category calendars into a directory. Every category
// gets a file each run, empty categories included, so subscribers see
// removals instead of stale data.
type Writer struct {
	dir string
	log logger.Logger
}

// New creates a Writer targeting dir.
func New(dir string) *Writer {
	return &Writer{dir: dir, log: logger.Named("icalout")}
}

// Write renders one .ics file per category. Events are assumed
// deduplicated and window-filtered already.
func (w *Writer) Write(ctx context.Context, byCategory map[model.Category][]model.Event) error {
	if err := os.MkdirAll(w.dir, 0o755); err != nil {
		return fmt.Errorf("icalout: create output dir: %w", err)
	}

	for _, cat := range model.Categories() {
		events := byCategory[cat]
		path := filepath.Join(w.dir, string(cat)+".ics")
		if err := os.WriteFile(path, []byte(render(cat, events)), 0o644); err != nil {
			return fmt.Errorf("icalout: write %s: %w", path, err)
		}
		w.log.Info(ctx, "calendar written",
			logger.String("category", string(cat)),
			logger.Int("events", len(events)),
			logger.String("path", path))
	}
	return nil
}

func render(cat model.Category, events []model.Event) string {
	cal := ics.NewCalendar()
	cal.SetMethod(ics.MethodPublish)
	cal.SetProductId(productID)
	cal.SetXWRCalName("Events: " + string(cat))

	stamp := time.Now().UTC()
	for _, ev := range events {
		entry := cal.AddEvent(eventUID(ev))
		entry.SetDtStampTime(stamp)
		entry.SetStartAt(ev.Start)
		entry.SetEndAt(ev.End)
		entry.SetSummary(ev.Title)
		if ev.Location != "" {
			entry.SetLocation(ev.Location)
		}
		if ev.Description != "" {
			entry.SetDescription(ev.Description)
			entry.SetProperty(ics.ComponentProperty("X-ALT-DESC"),
				htmlDescription(ev.Description),
				&ics.KeyValues{Key: "FMTTYPE", Value: []string{"text/html"}})
		}
		if ev.Link != "" && !strings.HasPrefix(ev.Link, "data:") {
			entry.SetURL(ev.Link)
		}
	}
	return cal.Serialize()
}

// eventUID derives a stable UID from the event's content identity, so
// calendar clients track an event across runs instead of re-adding it.
func eventUID(ev model.Event) string {
	return uuid.NewSHA1(uuid.NameSpaceURL, []byte(ev.ID)).String()
}

// htmlDescription renders the plain-text description as minimal HTML for
// clients that prefer the alternate representation.
func htmlDescription(desc string) string {
	escaped := html.EscapeString(desc)
	return "<html><body>" + strings.ReplaceAll(escaped, "\n", "<br/>") + "</body></html>"
}
