// Package sse streams Server-Sent Events. A Broker fans events out to
// every subscriber of a topic; a Stream writes them to one HTTP client.
//
//	broker := sse.NewBroker()
//	broker.Publish("store:"+storeID, "cart.paid", payload)
//
//	// in a handler
//	broker.Serve(c.W, c.R, "store:"+storeID)
package sse

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"
)

// Event is one message queued for a subscriber.
type Event struct {
	Name string
	Data []byte
}

// Stream represents an active SSE connection to one client.
type Stream struct {
	w       http.ResponseWriter
	r       *http.Request
	flusher http.Flusher
	closed  bool
}

// New sets the SSE headers and returns a stream, or nil (after writing a
// 500) when w cannot flush.
func New(w http.ResponseWriter, r *http.Request) *Stream {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming not supported", http.StatusInternalServerError)
		return nil
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	return &Stream{w: w, r: r, flusher: flusher}
}

// Send writes a named event with a JSON payload.
func (s *Stream) Send(event string, data any) error {
	payload, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("sse: marshal: %w", err)
	}
	return s.write(Event{Name: event, Data: payload})
}

func (s *Stream) write(e Event) error {
	if s == nil || s.IsClosed() {
		return nil
	}
	if _, err := fmt.Fprintf(s.w, "event: %s\ndata: %s\n\n", e.Name, e.Data); err != nil {
		s.closed = true
		return err
	}
	s.flusher.Flush()
	return nil
}

// Comment writes an SSE comment line, used as a heartbeat.
func (s *Stream) Comment(msg string) {
	if s == nil || s.IsClosed() {
		return
	}
	fmt.Fprintf(s.w, ": %s\n\n", msg)
	s.flusher.Flush()
}

// IsClosed reports whether the client has gone away.
func (s *Stream) IsClosed() bool {
	if s == nil {
		return true
	}
	select {
	case <-s.r.Context().Done():
		s.closed = true
	default:
	}
	return s.closed
}

// Broker keeps the subscribers of each topic.
type Broker struct {
	mu        sync.RWMutex
	topics    map[string]map[chan Event]struct{}
	heartbeat time.Duration
}

func NewBroker() *Broker {
	return &Broker{topics: map[string]map[chan Event]struct{}{}, heartbeat: 25 * time.Second}
}

// Subscribe registers a listener on topic. Call the returned func to stop.
func (b *Broker) Subscribe(topic string) (<-chan Event, func()) {
	ch := make(chan Event, 16)
	b.mu.Lock()
	if b.topics[topic] == nil {
		b.topics[topic] = map[chan Event]struct{}{}
	}
	b.topics[topic][ch] = struct{}{}
	b.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			b.mu.Lock()
			delete(b.topics[topic], ch)
			if len(b.topics[topic]) == 0 {
				delete(b.topics, topic)
			}
			b.mu.Unlock()
		})
	}
}

// Publish queues an event for every subscriber of topic. Subscribers whose
// buffer is full miss it.
func (b *Broker) Publish(topic, event string, data any) error {
	payload, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("sse: marshal: %w", err)
	}
	b.mu.RLock()
	defer b.mu.RUnlock()
	for ch := range b.topics[topic] {
		select {
		case ch <- Event{Name: event, Data: payload}:
		default:
		}
	}
	return nil
}

// Subscribers returns how many listeners topic has.
func (b *Broker) Subscribers(topic string) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.topics[topic])
}

// Serve streams topic to the client until it disconnects.
func (b *Broker) Serve(w http.ResponseWriter, r *http.Request, topic string) {
	stream := New(w, r)
	if stream == nil {
		return
	}
	events, cancel := b.Subscribe(topic)
	defer cancel()

	tick := time.NewTicker(b.heartbeat)
	defer tick.Stop()
	for {
		select {
		case <-r.Context().Done():
			return
		case e := <-events:
			if err := stream.write(e); err != nil {
				return
			}
		case <-tick.C:
			stream.Comment("ping")
		}
	}
}
