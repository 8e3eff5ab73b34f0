package text

import (
	"testing"

	. "github.com/smartystreets/goconvey/convey"
)

func TestHTMLToText(t *testing.T) {
	Convey("Given markup with blocks, breaks, and scripts", t, func() {
		in := `<div><h1>Trivia Night</h1><p>Doors at 6pm.<br>Games at 7pm.</p>` +
			`<script>var x = 1;</script></div>`

		Convey("It flattens to clean lines and drops script content", func() {
			out := HTMLToText(in)
			So(out, ShouldContainSubstring, "Trivia Night")
			So(out, ShouldContainSubstring, "Doors at 6pm.")
			So(out, ShouldContainSubstring, "Games at 7pm.")
			So(out, ShouldNotContainSubstring, "var x")
		})
	})

	Convey("Given plain text with messy whitespace", t, func() {
		out := HTMLToText("hello \t  world\n\n\nagain")

		Convey("Whitespace collapses and blank lines disappear", func() {
			So(out, ShouldEqual, "hello world\nagain")
		})
	})

	Convey("Given non-breaking spaces", t, func() {
		So(HTMLToText("a b"), ShouldEqual, "a b")
	})

	Convey("Given an empty string", t, func() {
		So(HTMLToText(""), ShouldEqual, "")
	})
}

func TestCollapseSpace(t *testing.T) {
	Convey("Whitespace runs of any kind become single spaces", t, func() {
		So(CollapseSpace("  a \n b\t\tc  "), ShouldEqual, "a b c")
		So(CollapseSpace(""), ShouldEqual, "")
	})
}

func TestStripBoilerplate(t *testing.T) {
	Convey("Given text with chrome lines and repeats", t, func() {
		in := "Live music on the patio\nAdd to Calendar\nGet Directions\n" +
			"Live music on the patio\nBring a chair"

		Convey("Chrome lines and duplicates are removed, order preserved", func() {
			So(StripBoilerplate(in), ShouldEqual, "Live music on the patio\nBring a chair")
		})
	})

	Convey("Duplicate detection is case-insensitive", t, func() {
		So(StripBoilerplate("Hello\nHELLO\nworld"), ShouldEqual, "Hello\nworld")
	})
}

func TestLooksLikeChrome(t *testing.T) {
	Convey("A short blob with a hallmark pair is chrome", t, func() {
		So(LooksLikeChrome("Log In Sign Up"), ShouldBeTrue)
	})

	Convey("A long blob needs two hallmark phrases", t, func() {
		long := "Skip to main content here is a lot of page text that keeps going " +
			"and going until the blob is clearly not a venue name help center"
		So(len(long), ShouldBeGreaterThan, 100)
		So(LooksLikeChrome(long), ShouldBeTrue)
	})

	Convey("A long blob with a single hallmark is not chrome", t, func() {
		long := "The brewery invites everyone to skip to the front of the line " +
			"for this anniversary party with live music and food trucks all day"
		So(len(long), ShouldBeGreaterThan, 100)
		So(LooksLikeChrome(long), ShouldBeFalse)
	})

	Convey("A short venue name is never chrome", t, func() {
		So(LooksLikeChrome("The Tap Room"), ShouldBeFalse)
		So(LooksLikeChrome(""), ShouldBeFalse)
	})
}

func TestExtractBetween(t *testing.T) {
	Convey("Given a blob with a labeled location and trailing chrome", t, func() {
		in := "Location The Tap Room, 100 Main St Get Directions Tags music"

		Convey("Text between marker and first stop comes back", func() {
			out := ExtractBetween(in, "Location", []string{"get directions", "tags"})
			So(out, ShouldEqual, "The Tap Room, 100 Main St")
		})
	})

	Convey("Duplicate tokens collapse", t, func() {
		out := ExtractBetween("Location Downtown, Downtown, Riverfront", "Location", nil)
		So(out, ShouldEqual, "Downtown, Riverfront")
	})

	Convey("A missing marker yields nothing", t, func() {
		So(ExtractBetween("no marker here", "Location", nil), ShouldEqual, "")
	})
}

func TestIsTimeOfDay(t *testing.T) {
	Convey("Bare clock expressions are recognized", t, func() {
		So(IsTimeOfDay("7pm"), ShouldBeTrue)
		So(IsTimeOfDay("7:30 PM"), ShouldBeTrue)
		So(IsTimeOfDay("19:00"), ShouldBeTrue)
	})

	Convey("Venue names are not", t, func() {
		So(IsTimeOfDay("The Tap Room"), ShouldBeFalse)
		So(IsTimeOfDay(""), ShouldBeFalse)
	})
}

func TestTrimPunct(t *testing.T) {
	Convey("Leading and trailing punctuation goes away", t, func() {
		So(TrimPunct(" - The Tap Room, "), ShouldEqual, "The Tap Room")
		So(TrimPunct("plain"), ShouldEqual, "plain")
	})
}
