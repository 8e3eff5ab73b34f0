package app

import (
	"context"
	"os"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/caymran/eventfeeds/internal/adapters/fetch"
	"github.com/caymran/eventfeeds/internal/config"
	"github.com/caymran/eventfeeds/internal/domain/model"
	"github.com/caymran/eventfeeds/pkg/logger"
)

func TestMain(m *testing.M) {
	if err := logger.Init(); err != nil {
		panic(err)
	}
	os.Exit(m.Run())
}

type stubFetcher struct {
	pages map[string]string
}

func (f stubFetcher) Fetch(_ context.Context, url string, _ map[string]string) fetch.Result {
	if body, ok := f.pages[url]; ok {
		return fetch.Result{Class: fetch.ClassFresh, StatusCode: 200, Body: body}
	}
	return fetch.Result{Class: fetch.ClassClientError, StatusCode: 404}
}

type captureWriter struct {
	got map[model.Category][]model.Event
}

func (w *captureWriter) Write(_ context.Context, byCategory map[model.Category][]model.Event) error {
	w.got = byCategory
	return nil
}

func calendarBody(description string) string {
	return "BEGIN:VCALENDAR\r\n" +
		"BEGIN:VEVENT\r\n" +
		"SUMMARY:Trivia Night\r\n" +
		"LOCATION:The Tap Room\r\n" +
		"DESCRIPTION:" + description + "\r\n" +
		"DTSTART:20251023T190000\r\n" +
		"DTEND:20251023T210000\r\n" +
		"END:VEVENT\r\n" +
		"END:VCALENDAR\r\n"
}

func testConfig() *config.Config {
	cfg := config.New()
	cfg.FetchConcurrency = 2
	cfg.Sources = []config.Source{
		{Name: "first", Kind: "ics", URL: "https://a.test/cal.ics"},
		{Name: "second", Kind: "ics", URL: "https://b.test/cal.ics"},
	}
	return cfg
}

func pinnedNow() func() time.Time {
	now := time.Date(2025, 10, 1, 8, 0, 0, 0, time.UTC)
	return func() time.Time { return now }
}

func TestServiceRun(t *testing.T) {
	Convey("Given two sources publishing the same event", t, func() {
		cfg := testConfig()
		writer := &captureWriter{}
		svc, err := New(cfg,
			WithFetcher(stubFetcher{pages: map[string]string{
				"https://a.test/cal.ics": calendarBody("from the first source"),
				"https://b.test/cal.ics": calendarBody("from the second source"),
			}}),
			WithWriter(writer),
			WithNow(pinnedNow()),
		)
		So(err, ShouldBeNil)
		defer svc.Close()

		So(svc.Run(context.Background()), ShouldBeNil)

		Convey("Exactly one event survives and the later source wins", func() {
			events := writer.got[model.CategoryRecurring]
			So(len(events), ShouldEqual, 1)
			So(events[0].Title, ShouldEqual, "Trivia Night")
			So(events[0].Description, ShouldEqual, "from the second source")
			So(events[0].ID, ShouldNotBeEmpty)
		})

		Convey("Other categories stay empty", func() {
			So(len(writer.got[model.CategoryFamily]), ShouldEqual, 0)
			So(len(writer.got[model.CategoryAdult]), ShouldEqual, 0)
		})
	})
}

func TestServiceSourceFailureIsolation(t *testing.T) {
	Convey("A failing source does not sink the others", t, func() {
		cfg := testConfig()
		writer := &captureWriter{}
		svc, err := New(cfg,
			WithFetcher(stubFetcher{pages: map[string]string{
				// first source 404s; second serves normally
				"https://b.test/cal.ics": calendarBody("still here"),
			}}),
			WithWriter(writer),
			WithNow(pinnedNow()),
		)
		So(err, ShouldBeNil)
		defer svc.Close()

		So(svc.Run(context.Background()), ShouldBeNil)
		So(len(writer.got[model.CategoryRecurring]), ShouldEqual, 1)
		So(writer.got[model.CategoryRecurring][0].Description, ShouldEqual, "still here")
	})
}

func TestServiceManualEvents(t *testing.T) {
	Convey("Manual events are injected with their forced category", t, func() {
		cfg := testConfig()
		cfg.Sources = nil
		cfg.ManualEvents = []config.ManualEvent{{
			Title:    "Makers Market",
			Location: "Hurkamp Park",
			Start:    "2025-10-12T09:00:00",
			End:      "2025-10-12T14:00:00",
			Category: "family",
		}}
		writer := &captureWriter{}
		svc, err := New(cfg,
			WithFetcher(stubFetcher{}),
			WithWriter(writer),
			WithNow(pinnedNow()),
		)
		So(err, ShouldBeNil)
		defer svc.Close()

		So(svc.Run(context.Background()), ShouldBeNil)

		events := writer.got[model.CategoryFamily]
		So(len(events), ShouldEqual, 1)
		So(events[0].Title, ShouldEqual, "Makers Market")
		So(events[0].Source, ShouldEqual, "manual")
		So(events[0].End.Sub(events[0].Start), ShouldEqual, 5*time.Hour)
	})
}

func TestServiceRulesFromConfig(t *testing.T) {
	Convey("Drop rules from configuration remove events", t, func() {
		cfg := testConfig()
		cfg.Sources = cfg.Sources[:1]
		cfg.DropRules = []config.Rule{{TitleRegex: "trivia"}}
		writer := &captureWriter{}
		svc, err := New(cfg,
			WithFetcher(stubFetcher{pages: map[string]string{
				"https://a.test/cal.ics": calendarBody("doomed"),
			}}),
			WithWriter(writer),
			WithNow(pinnedNow()),
		)
		So(err, ShouldBeNil)
		defer svc.Close()

		So(svc.Run(context.Background()), ShouldBeNil)
		So(len(writer.got[model.CategoryRecurring]), ShouldEqual, 0)
	})

	Convey("A bad rule fails construction, not the run", t, func() {
		cfg := testConfig()
		cfg.RouteRules = []config.Rule{{TitleRegex: "("}}
		_, err := New(cfg, WithFetcher(stubFetcher{}), WithWriter(&captureWriter{}))
		So(err, ShouldNotBeNil)
	})
}
