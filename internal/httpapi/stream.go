package httpapi

import (
	"bytes"
	"sync"
)

// Hub fans out cycle log lines to every subscribed websocket connection
// (C14 progress stream, SPEC_FULL.md §4.14). There is no history: a
// subscriber only sees lines emitted after it joins.
type Hub struct {
	mu   sync.Mutex
	subs map[chan string]struct{}
}

// NewHub builds an empty hub.
func NewHub() *Hub {
	return &Hub{subs: make(map[chan string]struct{})}
}

// Subscribe registers a new listener; the caller must call Unsubscribe when
// done to avoid leaking the channel.
func (h *Hub) Subscribe() chan string {
	ch := make(chan string, 64)
	h.mu.Lock()
	h.subs[ch] = struct{}{}
	h.mu.Unlock()
	return ch
}

// Unsubscribe removes and closes a listener channel.
func (h *Hub) Unsubscribe(ch chan string) {
	h.mu.Lock()
	if _, ok := h.subs[ch]; ok {
		delete(h.subs, ch)
		close(ch)
	}
	h.mu.Unlock()
}

// Broadcast delivers line to every current subscriber, dropping it for any
// subscriber whose buffer is full rather than blocking the cycle.
func (h *Hub) Broadcast(line string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for ch := range h.subs {
		select {
		case ch <- line:
		default:
		}
	}
}

// broadcastWriter adapts a Hub to io.Writer so it can back a *log.Logger;
// each Write is split into lines and broadcast individually.
type broadcastWriter struct {
	hub *Hub
}

func newBroadcastWriter(hub *Hub) *broadcastWriter {
	return &broadcastWriter{hub: hub}
}

func (w *broadcastWriter) Write(p []byte) (int, error) {
	for _, line := range bytes.Split(bytes.TrimRight(p, "\n"), []byte("\n")) {
		if len(line) > 0 {
			w.hub.Broadcast(string(line))
		}
	}
	return len(p), nil
}
