package controlplane

import (
	"encoding/json"
	"strings"
	"sync"
	"time"
)

// logEvent is the JSON envelope pushed to monitoring websocket clients:
// {"type": "log", "message": ..., "timestamp": ...}.
type logEvent struct {
	Type      string `json:"type"`
	Message   string `json:"message"`
	TimeStamp string `json:"timestamp"`
}

// Hub fans log output out to every connected monitoring client. It
// implements io.Writer so it can be installed as the log output for the
// engine, receiver, and codec loggers, turning their Printf calls directly
// into the WS /monitoring stream.
type Hub struct {
	mu          sync.Mutex
	subscribers map[chan []byte]struct{}
}

// NewHub returns an empty hub.
func NewHub() *Hub {
	return &Hub{subscribers: make(map[chan []byte]struct{})}
}

// Write implements io.Writer. Each call is broadcast to every subscriber as
// one JSON log event; slow subscribers have messages dropped rather than
// blocking the writer, since the core contract never promises delivery of
// every monitoring line.
func (h *Hub) Write(p []byte) (int, error) {
	msg, err := json.Marshal(logEvent{
		Type:      "log",
		Message:   strings.TrimRight(string(p), "\n"),
		TimeStamp: time.Now().UTC().Format(time.RFC3339Nano),
	})
	if err != nil {
		return 0, err
	}
	h.broadcast(msg)
	return len(p), nil
}

func (h *Hub) broadcast(msg []byte) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for ch := range h.subscribers {
		select {
		case ch <- msg:
		default:
		}
	}
}

// Subscribe registers a new listener and returns its message channel and an
// unsubscribe function. The channel is buffered so a burst of log lines
// doesn't stall the broadcaster.
func (h *Hub) Subscribe() (<-chan []byte, func()) {
	ch := make(chan []byte, 32)
	h.mu.Lock()
	h.subscribers[ch] = struct{}{}
	h.mu.Unlock()

	unsubscribe := func() {
		h.mu.Lock()
		delete(h.subscribers, ch)
		h.mu.Unlock()
	}
	return ch, unsubscribe
}
