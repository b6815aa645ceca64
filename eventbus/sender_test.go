package eventbus

import (
	"errors"
	"testing"

	. "github.com/smartystreets/goconvey/convey"

	"ufobrain/wire"
)

type fakeTransport struct {
	cmd     wire.CommandID
	payload []byte
	err     error
}

func (t *fakeTransport) Send(cmd wire.CommandID, payload []byte) error {
	t.cmd, t.payload = cmd, payload
	return t.err
}

func TestSenderMarshalsCommands(t *testing.T) {
	Convey("Given a sender over a fake transport", t, func() {
		bus := &fakeTransport{}
		s := NewSender(bus)

		Convey("Turn encodes the angle little-endian and appends the snap flag", func() {
			So(s.Turn(-90, true), ShouldBeNil)
			So(bus.cmd, ShouldEqual, wire.CommandTurn)
			So(bus.payload, ShouldResemble, []byte{0xA6, 0xFF, 1})
		})

		Convey("FollowLine sends no payload", func() {
			So(s.FollowLine(), ShouldBeNil)
			So(bus.cmd, ShouldEqual, wire.CommandFollowLine)
			So(bus.payload, ShouldBeNil)
		})

		Convey("SetDebugLogging encodes a single bool byte", func() {
			So(s.SetDebugLogging(true), ShouldBeNil)
			So(bus.payload, ShouldResemble, []byte{1})

			So(s.SetDebugLogging(false), ShouldBeNil)
			So(bus.payload, ShouldResemble, []byte{0})
		})

		Convey("SetSpeed encodes a signed byte", func() {
			So(s.SetSpeed(-5), ShouldBeNil)
			So(bus.cmd, ShouldEqual, wire.CommandSetSpeed)
			So(bus.payload, ShouldResemble, []byte{byte(int8(-5))})
		})

		Convey("DestinationReached sends no payload", func() {
			So(s.DestinationReached(), ShouldBeNil)
			So(bus.cmd, ShouldEqual, wire.CommandDestinationReached)
			So(bus.payload, ShouldBeNil)
		})

		Convey("transport errors propagate to the caller", func() {
			bus.err = errors.New("write failed")
			So(s.Turn(0, false), ShouldEqual, bus.err)
		})

		Convey("SetBus rewires the underlying transport", func() {
			other := &fakeTransport{}
			s.SetBus(other)
			So(s.FollowLine(), ShouldBeNil)
			So(other.cmd, ShouldEqual, wire.CommandFollowLine)
			So(bus.cmd, ShouldNotEqual, wire.CommandFollowLine)
		})
	})
}
