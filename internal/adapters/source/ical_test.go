package source

import (
	"context"
	"testing"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/caymran/eventfeeds/internal/config"
)

const testICS = "BEGIN:VCALENDAR\r\n" +
	"BEGIN:VEVENT\r\n" +
	"SUMMARY:School Play\r\n" +
	"LOCATION:Auditorium\r\n" +
	"DTSTART:20251023T190000\r\n" +
	"DTEND:20251023T210000\r\n" +
	"END:VEVENT\r\n" +
	"END:VCALENDAR\r\n"

func TestICSSource(t *testing.T) {
	Convey("Given a direct calendar export", t, func() {
		deps := testDeps(map[string]string{"https://school.test/cal.ics": testICS})
		src, err := NewFromConfig(config.Source{Name: "school", Kind: "ics", URL: "https://school.test/cal.ics"}, deps)
		So(err, ShouldBeNil)

		events, err := src.Fetch(context.Background())
		So(err, ShouldBeNil)
		So(len(events), ShouldEqual, 1)
		So(events[0].Title, ShouldEqual, "School Play")
		So(events[0].Source, ShouldEqual, "school")
	})

	Convey("An unreachable export is an error", t, func() {
		src, _ := NewFromConfig(config.Source{Name: "school", Kind: "ics", URL: "https://school.test/cal.ics"}, testDeps(nil))
		_, err := src.Fetch(context.Background())
		So(err, ShouldNotBeNil)
	})
}

func TestThrillshareSource(t *testing.T) {
	Convey("Given an events page advertising a calendar export", t, func() {
		page := `<html><body>
			<a href="/o/district/events/generate_ical">Download Calendar</a>
		</body></html>`
		deps := testDeps(map[string]string{
			"https://district.test/events":                    page,
			"https://district.test/o/district/events/generate_ical": testICS,
		})
		src, err := NewFromConfig(config.Source{Name: "district", Kind: "thrillshare", URL: "https://district.test/events"}, deps)
		So(err, ShouldBeNil)

		events, err := src.Fetch(context.Background())
		So(err, ShouldBeNil)
		So(len(events), ShouldEqual, 1)
		So(events[0].Title, ShouldEqual, "School Play")
	})

	Convey("A page without any export link is an error", t, func() {
		deps := testDeps(map[string]string{"https://district.test/events": "<html><a href='/about'>About</a></html>"})
		src, _ := NewFromConfig(config.Source{Name: "district", Kind: "thrillshare", URL: "https://district.test/events"}, deps)
		_, err := src.Fetch(context.Background())
		So(err, ShouldNotBeNil)
	})
}

func TestFindCalendarExport(t *testing.T) {
	Convey("The anchor label works when the href gives nothing away", t, func() {
		page := `<a href="/export/abc123">download calendar</a>`
		So(findCalendarExport(page, "https://d.test/events"),
			ShouldEqual, "https://d.test/export/abc123")
	})

	Convey("A bare .ics href works without a label", t, func() {
		page := `<a href="/feed.ics"></a>`
		So(findCalendarExport(page, "https://d.test/"),
			ShouldEqual, "https://d.test/feed.ics")
	})

	Convey("No candidates means empty", t, func() {
		So(findCalendarExport(`<a href="/about">About</a>`, "https://d.test/"), ShouldEqual, "")
	})
}
