package source

import (
	"context"
	"testing"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/caymran/eventfeeds/internal/config"
)

const ebListing = `<html><body>
	<a href="/e/fall-concert-tickets-12345?aff=search">Fall Concert</a>
	<a href="/e/fall-concert-tickets-12345?aff=banner">Fall Concert again</a>
	<a href="/o/venue-promoter-999">Promoter</a>
	<a href="https://ex.test/e/collections/best-of">Collection</a>
	<a href="/organizer/e/someone">Organizer</a>
</body></html>`

const ebDetail = `<html><head><script type="application/ld+json">
{"@type":"Event","name":"Fall Concert",
 "description":"An evening of live music.",
 "startDate":"2025-10-23T19:00:00-04:00","endDate":"2025-10-23T22:00:00-04:00",
 "location":{"@type":"Place","name":"The Amphitheater","address":"100 River Rd"}}
</script></head><body></body></html>`

func TestEventbriteSource(t *testing.T) {
	Convey("Given a discovery page and a structured detail page", t, func() {
		deps := testDeps(map[string]string{
			"https://ex.test/d/events?page=1":            ebListing,
			"https://ex.test/e/fall-concert-tickets-12345": ebDetail,
		})
		src, err := NewFromConfig(config.Source{
			Name: "eb", Kind: "eventbrite", URL: "https://ex.test/d/events", Pages: 1,
		}, deps)
		So(err, ShouldBeNil)

		events, err := src.Fetch(context.Background())
		So(err, ShouldBeNil)

		Convey("Organizer and collection links are filtered, duplicates collapse", func() {
			So(len(events), ShouldEqual, 1)
			So(events[0].Title, ShouldEqual, "Fall Concert")
			So(events[0].Link, ShouldEqual, "https://ex.test/e/fall-concert-tickets-12345")
			So(events[0].StartText, ShouldEqual, "2025-10-23T19:00:00-04:00")
			So(events[0].Location, ShouldEqual, "The Amphitheater - 100 River Rd")
			So(events[0].Source, ShouldEqual, "eb")
		})
	})

	Convey("No discovered links without a renderer is an error", t, func() {
		deps := testDeps(map[string]string{"https://ex.test/d/events?page=1": "<html></html>"})
		src, _ := NewFromConfig(config.Source{
			Name: "eb", Kind: "eventbrite", URL: "https://ex.test/d/events", Pages: 1,
		}, deps)
		_, err := src.Fetch(context.Background())
		So(err, ShouldNotBeNil)
	})
}

func TestParseEventbriteDetail(t *testing.T) {
	Convey("Without JSON-LD the tag fallbacks carry the page", t, func() {
		body := `<html><body>
			<h1>Cider Tasting</h1>
			<time datetime="2025-11-01T14:00:00-04:00">Nov 1</time>
			<div data-testid="location">Orchard Lane Farm</div>
		</body></html>`
		raw, ok := parseEventbriteDetail(body, "https://ex.test/e/cider", "eb")
		So(ok, ShouldBeTrue)
		So(raw.Title, ShouldEqual, "Cider Tasting")
		So(raw.StartText, ShouldEqual, "2025-11-01T14:00:00-04:00")
		So(raw.Location, ShouldEqual, "Orchard Lane Farm")
	})

	Convey("The labeled date block is the last resort", t, func() {
		body := `<html><body>
			<h1>Harvest Dinner</h1>
			<section><h2>Date and time</h2><p>Saturday, November 1, 2025 6:00 pm</p></section>
		</body></html>`
		raw, ok := parseEventbriteDetail(body, "https://ex.test/e/dinner", "eb")
		So(ok, ShouldBeTrue)
		So(raw.StartText, ShouldContainSubstring, "November 1, 2025")
	})

	Convey("A page without title or start is rejected", t, func() {
		_, ok := parseEventbriteDetail("<html><body><h1>Just a Title</h1></body></html>", "u", "eb")
		So(ok, ShouldBeFalse)
		_, ok = parseEventbriteDetail("<html><body></body></html>", "u", "eb")
		So(ok, ShouldBeFalse)
	})
}

func TestWithPage(t *testing.T) {
	Convey("The page parameter is set or replaced", t, func() {
		So(withPage("https://ex.test/d/events", 2), ShouldEqual, "https://ex.test/d/events?page=2")
		So(withPage("https://ex.test/d/events?page=1", 3), ShouldEqual, "https://ex.test/d/events?page=3")
	})
}
