package source

import (
	"strings"
	"testing"

	"github.com/PuerkitoBio/goquery"
	. "github.com/smartystreets/goconvey/convey"
)

func docFrom(t *testing.T, html string) *goquery.Document {
	t.Helper()
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		t.Fatal(err)
	}
	return doc
}

func TestJSONLDEvents(t *testing.T) {
	Convey("Top-level arrays and type lists are handled", t, func() {
		doc := docFrom(t, `<script type="application/ld+json">
			[{"@type":["MusicEvent","Thing"],"name":"Concert","startDate":"2025-10-23T20:00:00"},
			 {"@type":"Organization","name":"Not An Event"}]
		</script>`)
		events := jsonLDEvents(doc)
		So(len(events), ShouldEqual, 1)
		So(events[0].Title, ShouldEqual, "Concert")
	})

	Convey("Festival is accepted alongside Event", t, func() {
		doc := docFrom(t, `<script type="application/ld+json">
			{"@type":"Festival","name":"Fall Fest","startDate":"2025-10-25"}
		</script>`)
		So(len(jsonLDEvents(doc)), ShouldEqual, 1)
	})

	Convey("Broken JSON in one script does not hide another", t, func() {
		doc := docFrom(t, `<script type="application/ld+json">{broken</script>
			<script type="application/ld+json">{"@type":"Event","name":"Good"}</script>`)
		events := jsonLDEvents(doc)
		So(len(events), ShouldEqual, 1)
		So(events[0].Title, ShouldEqual, "Good")
	})
}

func TestLDLocation(t *testing.T) {
	Convey("A bare string passes through", t, func() {
		So(ldLocation("Downtown"), ShouldEqual, "Downtown")
	})

	Convey("A Place with a string address joins name and address", t, func() {
		loc := map[string]any{"name": "The Mill", "address": "100 Mill Rd"}
		So(ldLocation(loc), ShouldEqual, "The Mill - 100 Mill Rd")
	})

	Convey("A PostalAddress object is flattened field by field", t, func() {
		loc := map[string]any{
			"name": "Old Mill Park",
			"address": map[string]any{
				"streetAddress":   "2201 Caroline St",
				"addressLocality": "Fredericksburg",
				"addressRegion":   "VA",
				"postalCode":      "22401",
			},
		}
		So(ldLocation(loc), ShouldEqual, "Old Mill Park - 2201 Caroline St, Fredericksburg, VA 22401")
	})

	Convey("A name-only Place stays a bare name", t, func() {
		So(ldLocation(map[string]any{"name": "The Mill"}), ShouldEqual, "The Mill")
	})

	Convey("Nil yields empty", t, func() {
		So(ldLocation(nil), ShouldEqual, "")
	})
}
