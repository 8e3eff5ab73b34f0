package source

import (
	"context"
	"testing"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/caymran/eventfeeds/internal/config"
)

const testRSS = `<?xml version="1.0"?>
<rss version="2.0"><channel><title>Town Events</title>
<item>
  <title>Trivia Night</title>
  <link>https://ex.test/e/1</link>
  <description>Weekly trivia at the taproom</description>
  <pubDate>Thu, 23 Oct 2025 19:00:00 -0400</pubDate>
</item>
<item>
  <title>Art Walk</title>
  <link>https://ex.test/e/2</link>
  <description>First Friday downtown</description>
</item>
</channel></rss>`

func TestFeedSource(t *testing.T) {
	Convey("Given a working RSS feed", t, func() {
		deps := testDeps(map[string]string{"https://ex.test/feed": testRSS})
		src, err := NewFromConfig(config.Source{Name: "town", Kind: "rss", URL: "https://ex.test/feed"}, deps)
		So(err, ShouldBeNil)

		events, err := src.Fetch(context.Background())
		So(err, ShouldBeNil)
		So(len(events), ShouldEqual, 2)

		Convey("Items with a pubDate carry a structured start", func() {
			So(events[0].Title, ShouldEqual, "Trivia Night")
			So(events[0].Link, ShouldEqual, "https://ex.test/e/1")
			So(events[0].Description, ShouldContainSubstring, "Weekly trivia")
			So(events[0].Start.IsZero(), ShouldBeFalse)
			So(events[0].Start.UTC().Hour(), ShouldEqual, 23)
			So(events[0].Source, ShouldEqual, "town")
		})

		Convey("Items without one still come through for the normalizer", func() {
			So(events[1].Title, ShouldEqual, "Art Walk")
			So(events[1].Start.IsZero(), ShouldBeTrue)
			So(events[1].StartText, ShouldEqual, "")
		})
	})

	Convey("A fetch failure is reported as an error, not a panic", t, func() {
		deps := testDeps(nil)
		src, _ := NewFromConfig(config.Source{Name: "town", Kind: "rss", URL: "https://ex.test/missing"}, deps)
		_, err := src.Fetch(context.Background())
		So(err, ShouldNotBeNil)
	})

	Convey("A non-feed body is a parse error", t, func() {
		deps := testDeps(map[string]string{"https://ex.test/feed": "<html>not a feed</html>"})
		src, _ := NewFromConfig(config.Source{Name: "town", Kind: "rss", URL: "https://ex.test/feed"}, deps)
		_, err := src.Fetch(context.Background())
		So(err, ShouldNotBeNil)
	})
}
