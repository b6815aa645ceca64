// Package eventbus provides the typed sender/receiver pair that sits
// between the framed codec and the algorithm: the sender marshals typed
// parameters into wire commands, and the receiver fans decoded event
// frames out to registered handlers.
package eventbus

import (
	"ufobrain/codec"
	"ufobrain/wire"
)

// transport is the subset of codec.Codec the sender needs, so tests can
// substitute a fake without standing up a real byte transport.
type transport interface {
	Send(cmd wire.CommandID, payload []byte) error
}

// Sender is a thin typed API over the codec that marshals calls into the
// wire formats described by the protocol.
type Sender struct {
	bus transport
}

// NewSender wraps bus (normally a *codec.Codec) as a typed command sender.
func NewSender(bus transport) *Sender {
	return &Sender{bus: bus}
}

// SetBus swaps the underlying transport, used when the engine rewires the
// sender to a freshly-initialized codec.
func (s *Sender) SetBus(bus transport) {
	s.bus = bus
}

// Turn commands the vehicle to turn by angle degrees, optionally snapping
// to the exact target heading.
func (s *Sender) Turn(angle int16, snap bool) error {
	payload := append(codec.PutInt16LE(angle), boolByte(snap))
	return s.bus.Send(wire.CommandTurn, payload)
}

// FollowLine commands the vehicle to follow the current line until the next
// event.
func (s *Sender) FollowLine() error {
	return s.bus.Send(wire.CommandFollowLine, nil)
}

// SetDebugLogging toggles firmware-side debug logging.
func (s *Sender) SetDebugLogging(enabled bool) error {
	return s.bus.Send(wire.CommandSetDebugLogging, []byte{boolByte(enabled)})
}

// SetSpeed sets the vehicle's target speed.
func (s *Sender) SetSpeed(speed int8) error {
	return s.bus.Send(wire.CommandSetSpeed, []byte{byte(speed)})
}

// DestinationReached signals that the mission's target has been reached.
func (s *Sender) DestinationReached() error {
	return s.bus.Send(wire.CommandDestinationReached, nil)
}

func boolByte(b bool) byte {
	if b {
		return 1
	}
	return 0
}
