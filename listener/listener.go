// Package listener demultiplexes raw wire events into the typed callbacks
// an algorithm implements.
package listener

import (
	"ufobrain/eventbus"
	"ufobrain/graph"
	"ufobrain/wire"
)

// endNodeByIndex maps a START payload's END index (0/1/2) to a graph label.
var endNodeByIndex = []graph.Label{graph.LabelA, graph.LabelB, graph.LabelC}

// Callbacks is the set of typed handlers an algorithm implements.
type Callbacks interface {
	OnStart(target *graph.Node)
	OnPointReached()
	OnNoLineFound()
	OnNextPointBlocked()
	OnObstacleDetected()
	OnAligned(hold bool)
	OnReturning()
}

// NoOp implements Callbacks with every method a no-op. Algorithms embed
// NoOp and override only the callbacks they care about, mirroring the
// pass-by-default base listener the wire events are demultiplexed against.
type NoOp struct{}

func (NoOp) OnStart(*graph.Node) {}
func (NoOp) OnPointReached()     {}
func (NoOp) OnNoLineFound()      {}
func (NoOp) OnNextPointBlocked() {}
func (NoOp) OnObstacleDetected() {}
func (NoOp) OnAligned(hold bool) {}
func (NoOp) OnReturning()        {}

// Wire registers cb's callbacks against recv, translating raw wire events
// into the typed calls Callbacks defines.
func Wire(recv *eventbus.Receiver, net *graph.Network, cb Callbacks) {
	recv.On(wire.EventStart, eventbus.PayloadHandler(func(_ wire.EventID, payload []byte) {
		index := int(payload[0])
		label := endNodeByIndex[index]
		target, err := net.GetNodeByLabel(label)
		if err != nil {
			// An out-of-range END index is a firmware/protocol bug, not a
			// recoverable runtime condition; the base listener has no
			// logger of its own, so this is surfaced by panicking the
			// dispatch goroutine, which the receiver isolates per-handler.
			panic(err)
		}
		cb.OnStart(target)
	}))
	recv.On(wire.EventAligned, eventbus.PayloadHandler(func(_ wire.EventID, payload []byte) {
		cb.OnAligned(payload[0] == 1)
	}))
	recv.On(wire.EventPointReached, eventbus.NoArgHandler(cb.OnPointReached))
	recv.On(wire.EventNoLineFound, eventbus.NoArgHandler(cb.OnNoLineFound))
	recv.On(wire.EventNextPointBlocked, eventbus.NoArgHandler(cb.OnNextPointBlocked))
	recv.On(wire.EventObstacleDetected, eventbus.NoArgHandler(cb.OnObstacleDetected))
	recv.On(wire.EventReturning, eventbus.NoArgHandler(cb.OnReturning))
}
