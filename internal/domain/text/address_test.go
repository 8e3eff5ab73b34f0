package text

import (
	"testing"

	. "github.com/smartystreets/goconvey/convey"
)

func TestExtractVenueAddress(t *testing.T) {
	Convey("Given prose with a venue name before the address", t, func() {
		in := "Join us at Old Mill Park, 3019 Embry Loop, Quantico, VA 22134, free parking"

		Convey("The venue and address are recombined", func() {
			So(ExtractVenueAddress(in),
				ShouldEqual, "Old Mill Park - 3019 Embry Loop, Quantico, VA 22134")
		})
	})

	Convey("Given an address with only connective words before it", t, func() {
		in := "Meet at 123 Main St, Fredericksburg, VA 22401 for the walk"

		Convey("The bare address comes back", func() {
			So(ExtractVenueAddress(in), ShouldEqual, "123 Main St, Fredericksburg, VA 22401")
		})
	})

	Convey("Zip+4 is accepted", t, func() {
		out := ExtractVenueAddress("at 500 Mill Rd, Richmond, VA 23220-1234 tonight")
		So(out, ShouldEqual, "500 Mill Rd, Richmond, VA 23220-1234")
	})

	Convey("Text without an address yields nothing", t, func() {
		So(ExtractVenueAddress("Trivia every Thursday at the brewery"), ShouldEqual, "")
		So(ExtractVenueAddress(""), ShouldEqual, "")
	})
}
