package wire

import (
	"testing"

	. "github.com/smartystreets/goconvey/convey"
)

func TestEventIDValid(t *testing.T) {
	Convey("Given the known event identifiers", t, func() {
		Convey("every id in KnownEvents reports itself valid", func() {
			for _, id := range KnownEvents {
				So(id.Valid(), ShouldBeTrue)
			}
		})

		Convey("an id outside the known set is invalid", func() {
			So(EventID(0xFF).Valid(), ShouldBeFalse)
		})
	})
}

func TestStringers(t *testing.T) {
	Convey("event and command ids stringify to their protocol names", t, func() {
		So(EventStart.String(), ShouldEqual, "START")
		So(EventLogMessage.String(), ShouldEqual, "LOG_MESSAGE")
		So(EventID(0xFF).String(), ShouldEqual, "UNKNOWN")

		So(CommandTurn.String(), ShouldEqual, "TURN")
		So(CommandDestinationReached.String(), ShouldEqual, "DESTINATION_REACHED")
		So(CommandID(0xFF).String(), ShouldEqual, "UNKNOWN")
	})
}
