package controlplane

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	channerics "github.com/niceyeti/channerics/channels"
	"golang.org/x/sync/errgroup"
)

const (
	writeWait      = 1 * time.Second
	pingResolution = 200 * time.Millisecond
	pongWait       = pingResolution * 4
)

var upgrader = websocket.Upgrader{}

// ErrPongDeadlineExceeded signals that a monitoring client stopped
// responding to pings and should be dropped.
var ErrPongDeadlineExceeded = errors.New("monitoring client disconnect, pong deadline exceeded")

// serveMonitoring implements WS /monitoring: every connected client receives
// every subsequent log event broadcast on the hub, adapting the pump/ping
// pattern used for state publication elsewhere in the corpus.
func (s *Server) serveMonitoring(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Printf("monitoring: upgrade failed: %v", err)
		return
	}

	events, unsubscribe := s.hub.Subscribe()
	defer unsubscribe()

	client := &monitorClient{conn: conn, events: events, rootCtx: r.Context()}
	if err := client.sync(); err != nil {
		s.logger.Printf("monitoring: client disconnected: %v", err)
	}
	_ = conn.Close()
}

// monitorClient publishes hub events to a single websocket connection until
// the client disconnects, the context is cancelled, or the pong deadline is
// exceeded.
type monitorClient struct {
	conn    *websocket.Conn
	events  <-chan []byte
	rootCtx context.Context
}

func (c *monitorClient) sync() error {
	group, ctx := errgroup.WithContext(c.rootCtx)

	group.Go(func() error { return c.readMessages(ctx) })
	group.Go(func() error { return c.pingPong(ctx) })
	group.Go(func() error { return c.publish(ctx) })

	return group.Wait()
}

// readMessages discards anything the client sends - monitoring is a
// one-way feed - but must keep reading so the pong handler registered in
// pingPong actually fires.
func (c *monitorClient) readMessages(ctx context.Context) error {
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return err
		}
	}
}

func (c *monitorClient) pingPong(ctx context.Context) error {
	pong := make(chan struct{})
	defer close(pong)
	c.conn.SetPongHandler(func(string) error {
		select {
		case pong <- struct{}{}:
		case <-ctx.Done():
		}
		return nil
	})

	pinger := channerics.NewTicker(ctx.Done(), pingResolution)
	lastPong := time.Now()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-pinger:
			if time.Since(lastPong) > pongWait {
				return ErrPongDeadlineExceeded
			}
			if err := c.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				return fmt.Errorf("monitoring: ping failed: %w", err)
			}
		case <-pong:
			lastPong = time.Now()
		}
	}
}

func (c *monitorClient) publish(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-c.events:
			if !ok {
				return nil
			}
			if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
				return fmt.Errorf("monitoring: set write deadline: %w", err)
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return fmt.Errorf("monitoring: write failed: %w", err)
			}
		}
	}
}
