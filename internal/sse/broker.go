// Package sse implements a Server-Sent Events broker for pipeline and annotation updates.
package sse

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sync/atomic"
	"time"
)

// Event is an SSE event to broadcast.
//
// Events with an empty Topic reach every client; otherwise only clients subscribed to that topic (or to all
// topics) receive them.
type Event struct {
	Type  string `json:"type"`
	Topic string `json:"-"`
	Data  any    `json:"data"`
}

// Format renders a single SSE frame. An empty eventType omits the event line.
func Format(eventType string, data any) ([]byte, error) {
	payload, err := json.Marshal(data)
	if err != nil {
		return nil, err
	}
	if eventType == "" {
		return fmt.Appendf(nil, "data: %s\n\n", payload), nil
	}
	return fmt.Appendf(nil, "event: %s\ndata: %s\n\n", eventType, payload), nil
}

type subscription struct {
	ch    chan []byte
	topic string
}

// Broker manages SSE client connections and broadcasts events.
//
// A single internal event loop owns the client set. Public methods talk to it through channels.
type Broker struct {
	heartbeat time.Duration
	onCount   func(int)

	subscribeCh   chan subscription
	unsubscribeCh chan chan []byte
	publishCh     chan Event
	countReqCh    chan chan int

	stopCh  chan struct{}
	stopped chan struct{}
	closed  atomic.Bool
}

// Option configures a [Broker].
type Option func(*Broker)

// WithHeartbeat sends a comment frame to idle clients at the given interval. Zero disables heartbeats.
func WithHeartbeat(d time.Duration) Option {
	return func(b *Broker) { b.heartbeat = d }
}

// WithClientGauge calls fn with the client count every time it changes.
func WithClientGauge(fn func(int)) Option {
	return func(b *Broker) { b.onCount = fn }
}

// NewBroker creates a broker and starts its event loop.
func NewBroker(opts ...Option) *Broker {
	b := &Broker{
		subscribeCh:   make(chan subscription),
		unsubscribeCh: make(chan chan []byte),
		publishCh:     make(chan Event, 256),
		countReqCh:    make(chan chan int),
		stopCh:        make(chan struct{}),
		stopped:       make(chan struct{}),
	}
	for _, opt := range opts {
		opt(b)
	}

	go b.run()
	return b
}

func (b *Broker) run() {
	defer close(b.stopped)

	clients := make(map[chan []byte]string)
	report := func() {
		if b.onCount != nil {
			b.onCount(len(clients))
		}
	}

	broadcast := func(event Event) {
		raw, err := Format(event.Type, event.Data)
		if err != nil {
			return
		}

		for ch, topic := range clients {
			if event.Topic != "" && topic != "" && topic != event.Topic {
				continue
			}
			select {
			case ch <- raw:
			default:
				// Client buffer full; drop rather than stall the loop.
			}
		}
	}

	for {
		select {
		case <-b.stopCh:
			for ch := range clients {
				close(ch)
			}
			clear(clients)
			report()
			return

		case sub := <-b.subscribeCh:
			clients[sub.ch] = sub.topic
			report()

		case ch := <-b.unsubscribeCh:
			if _, ok := clients[ch]; ok {
				delete(clients, ch)
				close(ch)
				report()
			}

		case event := <-b.publishCh:
			broadcast(event)

		case resp := <-b.countReqCh:
			resp <- len(clients)
		}
	}
}

// Close gracefully stops the broker loop and closes all client channels.
func (b *Broker) Close() {
	if b.closed.CompareAndSwap(false, true) {
		close(b.stopCh)
	}
	<-b.stopped
}

// Subscribe adds a client for topic and returns its channel. An empty topic receives every event.
func (b *Broker) Subscribe(topic string) chan []byte {
	ch := make(chan []byte, 64)
	if b.closed.Load() {
		close(ch)
		return ch
	}

	select {
	case b.subscribeCh <- subscription{ch: ch, topic: topic}:
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

// Publish sends an event to matching clients.
func (b *Broker) Publish(event Event) {
	if b.closed.Load() {
		return
	}
	select {
	case b.publishCh <- event:
	case <-b.stopped:
	}
}

// Handler returns the SSE endpoint handler. topic selects the subscription for each request.
func (b *Broker) Handler(topic func(*http.Request) string) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var t string
		if topic != nil {
			t = topic(r)
		}
		b.serve(w, r, t)
	})
}

// ServeHTTP serves every event regardless of topic.
func (b *Broker) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	b.serve(w, r, "")
}

func (b *Broker) serve(w http.ResponseWriter, r *http.Request, topic string) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	SetHeaders(w)
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	ch := b.Subscribe(topic)
	defer b.Unsubscribe(ch)

	var tick <-chan time.Time
	if b.heartbeat > 0 {
		ticker := time.NewTicker(b.heartbeat)
		defer ticker.Stop()
		tick = ticker.C
	}

	ctx := r.Context()
	for {
		select {
		case <-ctx.Done():
			return
		case <-tick:
			_, _ = w.Write([]byte(": ping\n\n"))
			flusher.Flush()
		case msg, ok := <-ch:
			if !ok {
				return
			}
			_, _ = w.Write(msg)
			flusher.Flush()
		}
	}
}

// SetHeaders sets the response headers of an event stream.
func SetHeaders(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
}
