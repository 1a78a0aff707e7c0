// Package sse streams workspace change events to HTTP clients as
// Server-Sent Events.
package sse

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync/atomic"
	"time"

	"github.com/starford/atrium/internal/notify"
)

// TreeUpdated follows structural changes, at most once per throttle window
// and project.
const TreeUpdated = "tree.updated"

// ErrClosed is returned by Publish after Close.
var ErrClosed = errors.New("sse: broker closed")

// Event is one change notification.
type Event struct {
	Type      string
	ProjectID string
	Data      any
}

type envelope struct {
	ProjectID string `json:"project_id"`
	Data      any    `json:"data"`
}

type subscription struct {
	ch        chan []byte
	projectID string
}

// Broker manages SSE client connections and broadcasts events.
//
// Concurrency model: a single internal event loop (goroutine) owns mutable state
// (clients + per-project tree throttle timestamps). Public methods communicate
// with this loop through channels, so no mutexes are required.
type Broker struct {
	treeMin time.Duration

	subscribeCh   chan subscription
	unsubscribeCh chan chan []byte
	publishCh     chan Event
	countReqCh    chan chan int

	stopCh  chan struct{}
	stopped chan struct{}
	closed  atomic.Bool
}

var _ notify.Sink = (*Broker)(nil)

// NewBroker creates a new SSE broker with the given tree.updated throttle.
func NewBroker(treeThrottle time.Duration) *Broker {
	if treeThrottle <= 0 {
		treeThrottle = 2 * time.Second
	}

	b := &Broker{
		treeMin:       treeThrottle,
		subscribeCh:   make(chan subscription),
		unsubscribeCh: make(chan chan []byte),
		publishCh:     make(chan Event, 256),
		countReqCh:    make(chan chan int),
		stopCh:        make(chan struct{}),
		stopped:       make(chan struct{}),
	}

	go b.run()
	return b
}

// structural reports whether an event changes the shape of a project tree.
func structural(eventType string) bool {
	return strings.HasPrefix(eventType, "file.") ||
		strings.HasPrefix(eventType, "files.") ||
		strings.HasPrefix(eventType, "dir.")
}

func (b *Broker) run() {
	defer close(b.stopped)

	clients := make(map[chan []byte]string)
	lastTree := make(map[string]time.Time)

	broadcast := func(event Event) {
		payload, err := json.Marshal(envelope{ProjectID: event.ProjectID, Data: event.Data})
		if err != nil {
			return
		}
		raw := []byte(fmt.Sprintf("event: %s\ndata: %s\n\n", event.Type, payload))

		for ch, filter := range clients {
			if filter != "" && filter != event.ProjectID {
				continue
			}
			select {
			case ch <- raw:
			default:
				// Client buffer full; skip to avoid blocking broker loop.
			}
		}
	}

	for {
		select {
		case <-b.stopCh:
			for ch := range clients {
				close(ch)
			}
			return

		case sub := <-b.subscribeCh:
			clients[sub.ch] = sub.projectID

		case ch := <-b.unsubscribeCh:
			if _, ok := clients[ch]; ok {
				delete(clients, ch)
				close(ch)
			}

		case event := <-b.publishCh:
			broadcast(event)
			if !structural(event.Type) {
				continue
			}
			now := time.Now()
			if now.Sub(lastTree[event.ProjectID]) >= b.treeMin {
				lastTree[event.ProjectID] = now
				broadcast(Event{Type: TreeUpdated, ProjectID: event.ProjectID, Data: map[string]string{}})
			}

		case resp := <-b.countReqCh:
			resp <- len(clients)
		}
	}
}

// Close gracefully stops broker loop and closes all client channels.
func (b *Broker) Close() {
	if b.closed.CompareAndSwap(false, true) {
		close(b.stopCh)
	}
	<-b.stopped
}

// Subscribe adds a client and returns its channel. A non-empty projectID
// limits delivery to that project's events.
func (b *Broker) Subscribe(projectID string) chan []byte {
	ch := make(chan []byte, 64)
	if b.closed.Load() {
		close(ch)
		return ch
	}

	select {
	case b.subscribeCh <- subscription{ch: ch, projectID: projectID}:
	case <-b.stopped:
		close(ch)
	}

	return ch
}

// Unsubscribe removes a client and closes its channel.
func (b *Broker) Unsubscribe(ch chan []byte) {
	if b.closed.Load() {
		return
	}
	select {
	case b.unsubscribeCh <- ch:
	case <-b.stopped:
	}
}

// ClientCount returns the number of connected clients.
func (b *Broker) ClientCount() int {
	if b.closed.Load() {
		return 0
	}

	resp := make(chan int, 1)
	select {
	case b.countReqCh <- resp:
	case <-b.stopped:
		return 0
	}

	select {
	case n := <-resp:
		return n
	case <-b.stopped:
		return 0
	}
}

// Send queues an event for broadcast.
func (b *Broker) Send(event Event) error {
	if b.closed.Load() {
		return ErrClosed
	}
	select {
	case b.publishCh <- event:
		return nil
	case <-b.stopped:
		return ErrClosed
	}
}

// Publish implements notify.Sink.
func (b *Broker) Publish(projectID, event string, payload any) error {
	return b.Send(Event{Type: event, ProjectID: projectID, Data: payload})
}

// ServeHTTP is the SSE endpoint handler (GET /api/events?project_id=).
func (b *Broker) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	ch := b.Subscribe(r.URL.Query().Get("project_id"))
	defer b.Unsubscribe(ch)

	ctx := r.Context()
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			_, _ = w.Write(msg)
			flusher.Flush()
		}
	}
}
