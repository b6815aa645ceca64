package listener

import (
	"testing"

	. "github.com/smartystreets/goconvey/convey"

	"ufobrain/codec"
	"ufobrain/eventbus"
	"ufobrain/graph"
	"ufobrain/wire"
)

// fakeBus captures the handler the receiver subscribes, so tests can
// dispatch synthetic frames without a real codec.
type fakeBus struct {
	handler codec.Handler
}

func (b *fakeBus) Subscribe(h codec.Handler) { b.handler = h }

// recorder implements Callbacks, recording the last call made to each
// method so tests can assert on both invocation and arguments.
type recorder struct {
	NoOp
	started        *graph.Node
	pointReached   bool
	noLineFound    bool
	nextBlocked    bool
	obstacle       bool
	alignedCalls   []bool
	returningCalls int
}

func (r *recorder) OnStart(target *graph.Node) { r.started = target }
func (r *recorder) OnPointReached()             { r.pointReached = true }
func (r *recorder) OnNoLineFound()              { r.noLineFound = true }
func (r *recorder) OnNextPointBlocked()         { r.nextBlocked = true }
func (r *recorder) OnObstacleDetected()         { r.obstacle = true }
func (r *recorder) OnAligned(hold bool)         { r.alignedCalls = append(r.alignedCalls, hold) }
func (r *recorder) OnReturning()                { r.returningCalls++ }

func TestWireDispatchesTypedCallbacks(t *testing.T) {
	Convey("Given a receiver wired against a recording Callbacks implementation", t, func() {
		bus := &fakeBus{}
		recv := eventbus.NewReceiver(bus, nil)
		net := graph.DefaultProvider()
		rec := &recorder{}

		Wire(recv, net, rec)

		Convey("a START frame resolves its END index to the matching node", func() {
			bus.handler(wire.EventStart, []byte{0})
			So(rec.started, ShouldNotBeNil)
			So(rec.started.Label, ShouldEqual, graph.LabelA)

			bus.handler(wire.EventStart, []byte{1})
			So(rec.started.Label, ShouldEqual, graph.LabelB)

			bus.handler(wire.EventStart, []byte{2})
			So(rec.started.Label, ShouldEqual, graph.LabelC)
		})

		Convey("an ALIGNED frame's payload byte selects hold true/false", func() {
			bus.handler(wire.EventAligned, []byte{1})
			bus.handler(wire.EventAligned, []byte{0})
			So(rec.alignedCalls, ShouldResemble, []bool{true, false})
		})

		Convey("no-arg frames dispatch to their matching callback", func() {
			bus.handler(wire.EventPointReached, nil)
			bus.handler(wire.EventNoLineFound, nil)
			bus.handler(wire.EventNextPointBlocked, nil)
			bus.handler(wire.EventObstacleDetected, nil)
			bus.handler(wire.EventReturning, nil)

			So(rec.pointReached, ShouldBeTrue)
			So(rec.noLineFound, ShouldBeTrue)
			So(rec.nextBlocked, ShouldBeTrue)
			So(rec.obstacle, ShouldBeTrue)
			So(rec.returningCalls, ShouldEqual, 1)
		})

		Convey("an out-of-range START index panics, isolated by the receiver", func() {
			So(func() { bus.handler(wire.EventStart, []byte{99}) }, ShouldNotPanic)
			So(rec.started, ShouldBeNil)
		})
	})
}
