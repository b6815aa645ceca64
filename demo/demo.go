// Package demo replays a canned event sequence through the engine instead
// of a real serial bus, for exercising the control plane and algorithm
// without hardware. Grounded on the original's main.py demo() coroutine.
package demo

import (
	"context"
	"io"
	"log"
	"time"

	"ufobrain/engine"
	"ufobrain/wire"
)

// Bus is an in-memory io.ReadWriter standing in for the vehicle: Run injects
// event frames into its read side, and anything the engine writes to it
// (commands) is logged and discarded, since no firmware is attached to
// react to them.
type Bus struct {
	pr     *io.PipeReader
	pw     *io.PipeWriter
	logger *log.Logger
}

// NewBus returns an unstarted demo bus.
func NewBus(logger *log.Logger) *Bus {
	if logger == nil {
		logger = log.New(log.Writer(), "demo: ", log.LstdFlags)
	}
	pr, pw := io.Pipe()
	return &Bus{pr: pr, pw: pw, logger: logger}
}

// Read satisfies io.Reader for the codec, blocking until a frame is injected
// or the bus is closed.
func (b *Bus) Read(p []byte) (int, error) { return b.pr.Read(p) }

// Write satisfies io.Writer for the codec. Commands sent to the vehicle are
// logged and dropped - there is no firmware to execute them.
func (b *Bus) Write(p []byte) (int, error) {
	b.logger.Printf("demo bus: vehicle received %x (no firmware attached, discarding)", p)
	return len(p), nil
}

// Close unblocks any pending Read with io.EOF, terminating the codec's read
// loop the way a disconnected serial port would.
func (b *Bus) Close() error {
	return b.pw.Close()
}

// inject frames a single event and writes it into the bus's read side,
// mirroring codec.Codec.Send's own framing so the codec's checksum check
// accepts it.
func (b *Bus) inject(event wire.EventID, payload []byte) error {
	msg := make([]byte, 0, len(payload)+1)
	msg = append(msg, byte(event))
	msg = append(msg, payload...)
	frame := append(msg, checksum(msg))
	_, err := b.pw.Write(frame)
	return err
}

func checksum(data []byte) byte {
	var sum byte
	for _, b := range data {
		sum ^= b
	}
	return sum
}

// scriptedEvent is one entry of the canned sequence Run replays, naming the
// wire event and its raw payload bytes.
type scriptedEvent struct {
	event   wire.EventID
	payload []byte
}

// script mirrors main.py's demo() event list: a START toward END node A,
// the vehicle reaching the physical START marker, an ALIGNED event released
// (not held), and an obstacle sighting - enough to drive RoadSense through
// path planning, its first turn and its first line follow. The script never
// reaches an END node: every replayed START begins the mission again, and
// RoadSense ignores OBSTACLE_DETECTED.
var script = []scriptedEvent{
	{wire.EventStart, []byte{0}},
	{wire.EventPointReached, nil},
	{wire.EventAligned, []byte{0}},
	{wire.EventObstacleDetected, nil},
}

// Interval is the delay between scripted events once the loop starts,
// adapted down from main.py's 10s (tuned for a demo, not hardware timing).
// A var, not a const, so tests can shrink it.
var Interval = 2 * time.Second

// SpeedPulse is how long the warm-up speed-50 command holds before dropping
// back to 0, mirroring main.py's asyncio.sleep(1) pulse. A var so tests can
// shrink it.
var SpeedPulse = 1 * time.Second

// Run initialises eng against a fresh demo bus and replays script on a
// repeating timer until ctx is cancelled, mirroring demo()'s warm-up
// commands (debug logging, a test turn and speed pulse) followed by an
// indefinite replay loop. Run blocks until ctx is done.
func Run(ctx context.Context, eng *engine.Engine, debug, manual bool, newRoadSense engine.Factory, logger *log.Logger) error {
	if logger == nil {
		logger = log.New(log.Writer(), "demo: ", log.LstdFlags)
	}
	bus := NewBus(logger)
	defer bus.Close()

	eng.Init(bus, manual, newRoadSense)

	sender := eng.Sender()
	if err := sender.SetDebugLogging(debug); err != nil {
		return err
	}
	if err := sender.Turn(90, false); err != nil {
		return err
	}
	if err := sender.SetSpeed(50); err != nil {
		return err
	}
	time.Sleep(SpeedPulse)
	if err := sender.SetSpeed(0); err != nil {
		return err
	}

	runErr := make(chan error, 1)
	go func() { runErr <- eng.Run(ctx) }()

	if err := bus.inject(script[0].event, script[0].payload); err != nil {
		return err
	}

	ticker := time.NewTicker(Interval)
	defer ticker.Stop()
	i := 0
	for {
		select {
		case <-ctx.Done():
			return <-runErr
		case err := <-runErr:
			return err
		case <-ticker.C:
			i = (i + 1) % len(script)
			ev := script[i]
			if err := bus.inject(ev.event, ev.payload); err != nil {
				logger.Printf("demo: inject %s failed: %v", ev.event, err)
			}
		}
	}
}
