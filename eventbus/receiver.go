package eventbus

import (
	"log"
	"strings"

	"ufobrain/codec"
	"ufobrain/wire"
)

// Callback is a sum type standing in for the three handler arities the
// original firmware-facing code supported via runtime introspection
// (no-arg, event-only, event+payload). Construct one with NoArgHandler,
// EventHandler, or PayloadHandler - never build a Callback by hand.
type Callback struct {
	noArg   func()
	event   func(wire.EventID)
	payload func(wire.EventID, []byte)
}

// NoArgHandler wraps a handler that ignores both the event kind and payload.
func NoArgHandler(fn func()) Callback { return Callback{noArg: fn} }

// EventHandler wraps a handler that wants the event kind but not the payload.
func EventHandler(fn func(wire.EventID)) Callback { return Callback{event: fn} }

// PayloadHandler wraps a handler that wants both the event kind and payload.
func PayloadHandler(fn func(wire.EventID, []byte)) Callback { return Callback{payload: fn} }

func (c Callback) call(event wire.EventID, payload []byte) {
	switch {
	case c.payload != nil:
		c.payload(event, payload)
	case c.event != nil:
		c.event(event)
	case c.noArg != nil:
		c.noArg()
	}
}

// Receiver owns a mapping from event kind to an ordered list of handlers
// and dispatches each incoming frame to every handler registered for that
// event, in registration order. A handler that panics is isolated (logged,
// not propagated) so one faulty listener cannot stall the loop.
type Receiver struct {
	logger   *log.Logger
	handlers map[wire.EventID][]Callback
}

// subscriber is the subset of codec.Codec the receiver needs, so tests can
// substitute a fake without standing up a real byte transport.
type subscriber interface {
	Subscribe(codec.Handler)
}

// NewReceiver returns a receiver wired to bus (normally a *codec.Codec via
// its Subscribe method). logger may be nil.
func NewReceiver(bus subscriber, logger *log.Logger) *Receiver {
	if logger == nil {
		logger = log.New(nilWriter{}, "", 0)
	}
	r := &Receiver{
		logger:   logger,
		handlers: make(map[wire.EventID][]Callback, len(wire.KnownEvents)),
	}
	for _, event := range wire.KnownEvents {
		r.handlers[event] = nil
	}
	bus.Subscribe(r.dispatch)
	return r
}

// On registers cb to run whenever event is received. Handlers for a single
// event run sequentially in registration order and complete before the
// next event is dispatched - the caller's goroutine (the codec's dispatch
// loop) blocks for the full call chain.
func (r *Receiver) On(event wire.EventID, cb Callback) {
	r.handlers[event] = append(r.handlers[event], cb)
}

func (r *Receiver) dispatch(event wire.EventID, payload []byte) {
	if event == wire.EventLogMessage {
		r.logMessage(payload)
	}

	for _, cb := range r.handlers[event] {
		r.callSafely(cb, event, payload)
	}
}

func (r *Receiver) callSafely(cb Callback, event wire.EventID, payload []byte) {
	defer func() {
		if rec := recover(); rec != nil {
			r.logger.Printf("error: handler for %s panicked: %v", event, rec)
		}
	}()
	cb.call(event, payload)
}

func (r *Receiver) logMessage(payload []byte) {
	msg := strings.TrimRight(string(payload), "\x00")
	r.logger.Printf("vehicle log: %s", msg)
}

type nilWriter struct{}

func (nilWriter) Write(p []byte) (int, error) { return len(p), nil }
