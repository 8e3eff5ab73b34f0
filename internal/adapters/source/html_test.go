package source

import (
	"context"
	"testing"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/caymran/eventfeeds/internal/config"
)

func TestHTMLSourceGeneric(t *testing.T) {
	page := `<html><body><ul>
		<li class="event">
			<h3>Open Mic</h3>
			<a href="/events/open-mic">details</a>
			<time datetime="2025-10-23T19:00:00">Oct 23</time>
			<span class="location">The Taproom</span>
			<p>Sign up at the door.</p>
		</li>
		<li class="event">
			<h3>Newsletter</h3>
			<a href="/subscribe">subscribe</a>
		</li>
	</ul></body></html>`

	Convey("Given a listing with one real event and one chrome item", t, func() {
		deps := testDeps(map[string]string{"https://ex.test/calendar": page})
		src, err := NewFromConfig(config.Source{
			Name: "listing",
			Kind: "html",
			URL:  "https://ex.test/calendar",
			Selectors: map[string]string{
				"item":     "li.event",
				"title":    "h3",
				"location": ".location",
			},
		}, deps)
		So(err, ShouldBeNil)

		events, err := src.Fetch(context.Background())
		So(err, ShouldBeNil)

		Convey("Only the item with a machine timestamp survives", func() {
			So(len(events), ShouldEqual, 1)
			So(events[0].Title, ShouldEqual, "Open Mic")
			So(events[0].StartText, ShouldEqual, "2025-10-23T19:00:00")
			So(events[0].Location, ShouldEqual, "The Taproom")
			So(events[0].Link, ShouldEqual, "https://ex.test/events/open-mic")
		})
	})

	Convey("An item with only a textual time hint still passes", t, func() {
		hinted := `<div class="event"><h3>Car Show</h3><span class="date">Oct 25 from 9:00 am</span></div>`
		deps := testDeps(map[string]string{"https://ex.test/calendar": hinted})
		src, _ := NewFromConfig(config.Source{
			Name:      "listing",
			Kind:      "html",
			URL:       "https://ex.test/calendar",
			Selectors: map[string]string{"item": "div.event", "title": "h3", "date": ".date"},
		}, deps)

		events, err := src.Fetch(context.Background())
		So(err, ShouldBeNil)
		So(len(events), ShouldEqual, 1)
		So(events[0].StartText, ShouldEqual, "Oct 25 from 9:00 am")
	})
}

func TestHTMLSourceFreePress(t *testing.T) {
	Convey("Given a page with JSON-LD events", t, func() {
		page := `<html><head><script type="application/ld+json">
		{"@graph":[
			{"@type":"Event","name":"Harvest Festival",
			 "startDate":"2025-10-25T10:00:00-04:00",
			 "endDate":"2025-10-25T16:00:00-04:00",
			 "url":"/events/harvest",
			 "location":{"@type":"Place","name":"Old Mill Park",
			   "address":{"streetAddress":"2201 Caroline St","addressLocality":"Fredericksburg",
			              "addressRegion":"VA","postalCode":"22401"}}}
		]}
		</script></head><body></body></html>`
		deps := testDeps(map[string]string{"https://paper.test/calendar": page})
		src, _ := NewFromConfig(config.Source{
			Name: "paper", Kind: "html", URL: "https://paper.test/calendar", Parser: "freepress",
		}, deps)

		events, err := src.Fetch(context.Background())
		So(err, ShouldBeNil)
		So(len(events), ShouldEqual, 1)
		So(events[0].Title, ShouldEqual, "Harvest Festival")
		So(events[0].StartText, ShouldEqual, "2025-10-25T10:00:00-04:00")
		So(events[0].EndText, ShouldEqual, "2025-10-25T16:00:00-04:00")
		So(events[0].Link, ShouldEqual, "https://paper.test/events/harvest")
		So(events[0].Location, ShouldEqual,
			"Old Mill Park - 2201 Caroline St, Fredericksburg, VA 22401")
	})

	Convey("Without JSON-LD the microdata path is used", t, func() {
		page := `<div itemscope itemtype="https://schema.org/Event">
			<span itemprop="name">Book Sale</span>
			<meta itemprop="startDate" content="2025-10-26T09:00:00">
			<span itemprop="location">Library</span>
			<a href="/events/book-sale">more</a>
		</div>`
		deps := testDeps(map[string]string{"https://paper.test/calendar": page})
		src, _ := NewFromConfig(config.Source{
			Name: "paper", Kind: "html", URL: "https://paper.test/calendar", Parser: "freepress",
		}, deps)

		events, err := src.Fetch(context.Background())
		So(err, ShouldBeNil)
		So(len(events), ShouldEqual, 1)
		So(events[0].Title, ShouldEqual, "Book Sale")
		So(events[0].StartText, ShouldEqual, "2025-10-26T09:00:00")
		So(events[0].Location, ShouldEqual, "Library")
	})
}
