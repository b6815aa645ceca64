// Package codec frames and deframes command/event messages exchanged with
// the vehicle over a byte-stream transport (typically a UART), computing
// and verifying the trailing XOR checksum described by the wire protocol.
//
// The codec is the only component that touches raw bytes. It never raises
// errors to callers for malformed frames: a checksum mismatch or unknown
// event id is logged and the frame is dropped, and the reader resynchronizes
// by resuming at the next byte.
package codec

import (
	"bufio"
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"log"
	"sync"

	channerics "github.com/niceyeti/channerics/channels"

	"ufobrain/wire"
)

// ErrTransportClosed is returned by Start's read loop (via the Err channel)
// when the underlying transport is closed or returns EOF. It is fatal to the
// codec's read loop.
var ErrTransportClosed = errors.New("codec: transport closed")

// Handler is called once per decoded event frame, in the order frames are
// read off the wire. Handlers run on the codec's dispatch goroutine; a
// handler must not block on its own synchronous I/O.
type Handler func(event wire.EventID, payload []byte)

// Codec frames outgoing commands and deframes incoming events over a
// shared io.ReadWriter transport (e.g. a serial port).
type Codec struct {
	rw     io.ReadWriter
	reader *bufio.Reader
	logger *log.Logger

	mu       sync.Mutex
	handlers []Handler

	jobs chan func()
	errc chan error
}

// New wraps rw as a framed codec. rw is typically a serial port, but any
// io.ReadWriter (including an in-memory pipe, for tests) works.
func New(rw io.ReadWriter, logger *log.Logger) *Codec {
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	return &Codec{
		rw:     rw,
		reader: bufio.NewReader(rw),
		logger: logger,
		jobs:   make(chan func()),
		errc:   make(chan error, 1),
	}
}

// Subscribe registers h to be called for every decoded event frame.
// Subscribers are invoked in registration order.
func (c *Codec) Subscribe(h Handler) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.handlers = append(c.handlers, h)
}

// Send frames and writes a single command: [cmd_id][payload...][checksum].
func (c *Codec) Send(cmd wire.CommandID, payload []byte) error {
	msg := make([]byte, 0, len(payload)+1)
	msg = append(msg, byte(cmd))
	msg = append(msg, payload...)
	frame := append(msg, checksum(msg))

	if _, err := c.rw.Write(frame); err != nil {
		return fmt.Errorf("codec: send %s: %w", cmd, err)
	}
	c.logger.Printf("sent %s payload=%x", cmd, payload)
	return nil
}

// Start launches the read loop on a new goroutine. It returns immediately;
// the loop runs until ctx is cancelled or the transport closes.
// ctx cancellation is the only clean shutdown path - channerics.OrDone is
// used so a blocked read observes cancellation promptly between frames.
func (c *Codec) Start(ctx context.Context) {
	go c.readLoop(ctx)
}

// Err returns a channel that receives exactly one error when the read loop
// terminates (ErrTransportClosed on EOF/closed transport, ctx.Err() on
// cancellation).
func (c *Codec) Err() <-chan error {
	return c.errc
}

// Go schedules fn to run on the read loop's own goroutine, the same one
// that decodes and dispatches wire frames, so fn can never run concurrently
// with frame dispatch. It blocks until the loop picks fn up or ctx is
// cancelled. Callers outside the codec (e.g. a vision update funneled in by
// the engine) use this instead of a lock to serialize with frame handling.
func (c *Codec) Go(ctx context.Context, fn func()) error {
	select {
	case c.jobs <- fn:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (c *Codec) readLoop(ctx context.Context) {
	defer close(c.errc)

	readErrs := make(chan error, 1)

	go func() {
		for {
			frame, err := c.readFrame()
			if err != nil {
				readErrs <- err
				return
			}
			if frame == nil {
				// Malformed frame: already logged and dropped, keep reading.
				continue
			}
			f := *frame
			select {
			case c.jobs <- func() { c.dispatch(f) }:
			case <-ctx.Done():
				return
			}
		}
	}()

	jobs := channerics.OrDone(ctx.Done(), c.jobs)
	for {
		select {
		case <-ctx.Done():
			c.errc <- ctx.Err()
			return
		case err := <-readErrs:
			c.errc <- fmt.Errorf("%w: %v", ErrTransportClosed, err)
			return
		case job, ok := <-jobs:
			if ok {
				job()
			}
		}
	}
}

func (c *Codec) dispatch(frame wire.Frame) {
	c.mu.Lock()
	handlers := make([]Handler, len(c.handlers))
	copy(handlers, c.handlers)
	c.mu.Unlock()

	for _, h := range handlers {
		h(frame.Event, frame.Payload)
	}
}

// readFrame reads a single event frame. It returns (nil, nil) for a frame
// that was discarded due to checksum mismatch or an unrecognized event id -
// the caller should keep reading. A non-nil error means the transport is
// unusable.
func (c *Codec) readFrame() (*wire.Frame, error) {
	idByte, err := c.reader.ReadByte()
	if err != nil {
		return nil, err
	}
	event := wire.EventID(idByte)

	if !event.Valid() {
		c.logger.Printf("warning: unknown event id 0x%02x, skipping", idByte)
		return nil, nil
	}

	var payload []byte
	switch event {
	case wire.EventStart, wire.EventAligned:
		payload = make([]byte, 1)
		if _, err := io.ReadFull(c.reader, payload); err != nil {
			return nil, err
		}
	case wire.EventLogMessage:
		length, err := c.reader.ReadByte()
		if err != nil {
			return nil, err
		}
		payload = make([]byte, length)
		if _, err := io.ReadFull(c.reader, payload); err != nil {
			return nil, err
		}
	}

	sumByte, err := c.reader.ReadByte()
	if err != nil {
		return nil, err
	}

	msg := make([]byte, 0, len(payload)+1)
	msg = append(msg, idByte)
	msg = append(msg, payload...)
	if checksum(msg) != sumByte {
		c.logger.Printf("warning: checksum mismatch on %s frame, discarding", event)
		return nil, nil
	}

	return &wire.Frame{Event: event, Payload: payload}, nil
}

// checksum computes the XOR of every byte in data.
func checksum(data []byte) byte {
	var sum byte
	for _, b := range data {
		sum ^= b
	}
	return sum
}

// PutInt16LE encodes a little-endian signed 16-bit integer, used for the
// TURN command's angle field.
func PutInt16LE(v int16) []byte {
	buf := make([]byte, 2)
	binary.LittleEndian.PutUint16(buf, uint16(v))
	return buf
}
