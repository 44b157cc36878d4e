// internal/httpserver/sse.go
//
// Server-sent events broadcaster for word rotation. Each subscriber gets
// a buffered channel; a slow client drops events rather than blocking
// the publisher (the client refetches the day's state on reconnect, so a
// missed rotation event is harmless).
package httpserver

import (
	"fmt"
	"net/http"
	"sync"

	"github.com/rs/zerolog/log"
)

// Broadcaster fans one event stream out to all connected SSE clients.
type Broadcaster struct {
	mu     sync.Mutex
	subs   map[chan string]struct{}
	closed bool
}

// NewBroadcaster constructs an empty Broadcaster.
func NewBroadcaster() *Broadcaster {
	return &Broadcaster{subs: make(map[chan string]struct{})}
}

func (b *Broadcaster) subscribe() chan string {
	b.mu.Lock()
	defer b.mu.Unlock()
	ch := make(chan string, 4)
	if b.closed {
		close(ch)
		return ch
	}
	b.subs[ch] = struct{}{}
	log.Info().Int("clients", len(b.subs)).Msg("sse client connected")
	return ch
}

func (b *Broadcaster) unsubscribe(ch chan string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.subs[ch]; ok {
		delete(b.subs, ch)
		close(ch)
	}
}

// Publish sends a named event with a data payload to every subscriber.
func (b *Broadcaster) Publish(event, data string) {
	msg := "event: " + event + "\ndata: " + data + "\n\n"
	b.mu.Lock()
	defer b.mu.Unlock()
	for ch := range b.subs {
		select {
		case ch <- msg:
		default: // slow client, drop
		}
	}
}

// Close disconnects all subscribers; used during shutdown.
func (b *Broadcaster) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.closed = true
	for ch := range b.subs {
		delete(b.subs, ch)
		close(ch)
	}
}

// ServeHTTP streams events to one client until it disconnects.
func (b *Broadcaster) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	fl, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	ch := b.subscribe()
	defer b.unsubscribe(ch)

	// Initial comment so proxies and clients see bytes immediately.
	_, _ = fmt.Fprint(w, ": connected\n\n")
	fl.Flush()

	for {
		select {
		case <-r.Context().Done():
			return
		case msg, open := <-ch:
			if !open {
				return
			}
			_, _ = fmt.Fprint(w, msg)
			fl.Flush()
		}
	}
}
