package codec

import (
	"bytes"
	"context"
	"io"
	"sync"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"

	"ufobrain/wire"
)

// pipeTransport is an io.ReadWriter whose reads come from a controllable
// io.Reader (typically an io.PipeReader) and whose writes are captured for
// inspection, mirroring the read/write split of a real serial port without
// needing one.
type pipeTransport struct {
	io.Reader
	sent bytes.Buffer
}

func (t *pipeTransport) Write(p []byte) (int, error) { return t.sent.Write(p) }

func frame(idByte byte, payload ...byte) []byte {
	msg := append([]byte{idByte}, payload...)
	return append(msg, checksum(msg))
}

func TestSendEncodesFrameWithChecksum(t *testing.T) {
	Convey("Given a codec over a transport", t, func() {
		transport := &pipeTransport{Reader: bytes.NewReader(nil)}
		c := New(transport, nil)

		Convey("Send writes [cmd][payload][checksum]", func() {
			err := c.Send(wire.CommandSetSpeed, []byte{50})
			So(err, ShouldBeNil)
			So(transport.sent.Bytes(), ShouldResemble, []byte{byte(wire.CommandSetSpeed), 50, byte(wire.CommandSetSpeed) ^ 50})
		})

		Convey("Send with no payload still appends a checksum byte", func() {
			err := c.Send(wire.CommandFollowLine, nil)
			So(err, ShouldBeNil)
			So(transport.sent.Bytes(), ShouldResemble, []byte{byte(wire.CommandFollowLine), byte(wire.CommandFollowLine)})
		})
	})
}

// dispatched is a single recorded handler invocation.
type dispatched struct {
	event   wire.EventID
	payload []byte
}

func TestReadLoopDispatchesValidFrames(t *testing.T) {
	Convey("Given a codec reading from a live pipe", t, func() {
		pr, pw := io.Pipe()
		transport := &pipeTransport{Reader: pr}
		c := New(transport, nil)

		got := make(chan dispatched, 8)
		c.Subscribe(func(event wire.EventID, payload []byte) {
			got <- dispatched{event, payload}
		})

		ctx, cancel := context.WithCancel(context.Background())
		c.Start(ctx)
		defer cancel()

		Convey("a no-payload frame dispatches with a nil payload", func() {
			go pw.Write(frame(byte(wire.EventPointReached)))

			select {
			case d := <-got:
				So(d.event, ShouldEqual, wire.EventPointReached)
				So(len(d.payload), ShouldEqual, 0)
			case <-time.After(time.Second):
				t.Fatal("timed out waiting for dispatch")
			}
		})

		Convey("a START frame carries its one-byte index payload", func() {
			go pw.Write(frame(byte(wire.EventStart), 2))

			select {
			case d := <-got:
				So(d.event, ShouldEqual, wire.EventStart)
				So(d.payload, ShouldResemble, []byte{2})
			case <-time.After(time.Second):
				t.Fatal("timed out waiting for dispatch")
			}
		})

		Convey("a LOG_MESSAGE frame carries a length-prefixed payload", func() {
			msg := append([]byte{byte(wire.EventLogMessage), 3}, []byte("hi!")...)
			sum := checksum(append([]byte{byte(wire.EventLogMessage)}, []byte("hi!")...))
			go pw.Write(append(msg, sum))

			select {
			case d := <-got:
				So(d.event, ShouldEqual, wire.EventLogMessage)
				So(string(d.payload), ShouldEqual, "hi!")
			case <-time.After(time.Second):
				t.Fatal("timed out waiting for dispatch")
			}
		})

		Convey("a bad checksum is dropped, and the next good frame still decodes", func() {
			bad := frame(byte(wire.EventPointReached))
			bad[len(bad)-1] ^= 0xFF

			go func() {
				pw.Write(bad)
				pw.Write(frame(byte(wire.EventObstacleDetected)))
			}()

			select {
			case d := <-got:
				So(d.event, ShouldEqual, wire.EventObstacleDetected)
			case <-time.After(time.Second):
				t.Fatal("timed out waiting for dispatch")
			}
		})

		Convey("an unknown event id is skipped, resynchronizing on the next byte", func() {
			go func() {
				pw.Write([]byte{0xAA})
				pw.Write(frame(byte(wire.EventReturning)))
			}()

			select {
			case d := <-got:
				So(d.event, ShouldEqual, wire.EventReturning)
			case <-time.After(time.Second):
				t.Fatal("timed out waiting for dispatch")
			}
		})
	})
}

func TestReadLoopReportsTransportClosed(t *testing.T) {
	Convey("Given a codec whose transport is closed", t, func() {
		pr, pw := io.Pipe()
		transport := &pipeTransport{Reader: pr}
		c := New(transport, nil)

		ctx := context.Background()
		c.Start(ctx)
		pw.Close()

		select {
		case err := <-c.Err():
			So(err, ShouldNotBeNil)
		case <-time.After(time.Second):
			t.Fatal("timed out waiting for Err()")
		}
	})
}

func TestReadLoopStopsOnContextCancellation(t *testing.T) {
	Convey("Given a codec running against a context that gets cancelled", t, func() {
		pr, _ := io.Pipe()
		transport := &pipeTransport{Reader: pr}
		c := New(transport, nil)

		ctx, cancel := context.WithCancel(context.Background())
		c.Start(ctx)
		cancel()

		select {
		case err := <-c.Err():
			So(err, ShouldEqual, context.Canceled)
		case <-time.After(time.Second):
			t.Fatal("timed out waiting for Err()")
		}
	})
}

func TestGoSerializesWithFrameDispatch(t *testing.T) {
	Convey("Given a codec running its read loop", t, func() {
		pr, pw := io.Pipe()
		transport := &pipeTransport{Reader: pr}
		c := New(transport, nil)

		var order []string
		var mu sync.Mutex
		record := func(s string) {
			mu.Lock()
			order = append(order, s)
			mu.Unlock()
		}

		c.Subscribe(func(event wire.EventID, payload []byte) { record("frame") })

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		c.Start(ctx)

		done := make(chan struct{})
		go func() {
			c.Go(ctx, func() { record("job") })
			close(done)
		}()

		go pw.Write(frame(byte(wire.EventPointReached)))

		select {
		case <-done:
		case <-time.After(time.Second):
			t.Fatal("timed out waiting for Go to run")
		}

		Convey("both the frame and the job ran exactly once, never concurrently", func() {
			time.Sleep(10 * time.Millisecond)
			mu.Lock()
			defer mu.Unlock()
			So(len(order), ShouldEqual, 2)
		})
	})
}

func TestPutInt16LE(t *testing.T) {
	Convey("PutInt16LE encodes little-endian", t, func() {
		So(PutInt16LE(1), ShouldResemble, []byte{1, 0})
		So(PutInt16LE(-1), ShouldResemble, []byte{0xFF, 0xFF})
	})
}
