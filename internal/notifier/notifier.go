// Package notifier fans the backend's push channel out to in-process listeners.
//
// Delivery is at-most-once and best effort: there is no acknowledgement, no
// replay after a reconnect, and an event is dropped for any listener whose
// buffer is full. Listeners that need the full state re-fetch it.
package notifier

import (
	"context"
	"encoding/json"
	"sync"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"

	"entrepreneursim/internal/domain"
)

// Stream is an open upstream connection
type Stream interface {
	Next() (domain.Event, error)
	Close() error
}

// Source opens upstream connections
type Source interface {
	Open(ctx context.Context) (Stream, error)
}

// SourceFunc adapts a function to Source
type SourceFunc func(ctx context.Context) (Stream, error)

// Open calls f(ctx)
func (f SourceFunc) Open(ctx context.Context) (Stream, error) {
	return f(ctx)
}

type listener struct {
	events map[string]struct{}
	ch     chan domain.Event
}

func (l *listener) wants(name string) bool {
	if len(l.events) == 0 {
		return true
	}
	_, ok := l.events[name]
	return ok
}

// Notifier holds the single shared upstream connection and its listeners
type Notifier struct {
	source     Source
	log        *logrus.Entry
	minBackoff time.Duration
	maxBackoff time.Duration

	mu        sync.RWMutex
	listeners map[uint64]*listener
	nextID    uint64

	connected atomic.Bool
	dropped   atomic.Uint64
}

// Option configures a Notifier
type Option func(*Notifier)

// WithBackoff sets the reconnect delay bounds
func WithBackoff(min, max time.Duration) Option {
	return func(n *Notifier) {
		n.minBackoff = min
		n.maxBackoff = max
	}
}

// WithLogger sets the logger used for connection state changes
func WithLogger(log *logrus.Entry) Option {
	return func(n *Notifier) {
		n.log = log
	}
}

// New creates a Notifier reading from source. Call Run to connect.
func New(source Source, opts ...Option) *Notifier {
	n := &Notifier{
		source:     source,
		log:        logrus.WithField("component", "notifier"),
		minBackoff: time.Second,
		maxBackoff: 30 * time.Second,
		listeners:  make(map[uint64]*listener),
	}
	for _, opt := range opts {
		opt(n)
	}
	return n
}

// Run keeps the upstream connection open until ctx is cancelled,
// reconnecting with capped exponential backoff. Events missed while
// disconnected are lost.
func (n *Notifier) Run(ctx context.Context) {
	backoff := n.minBackoff
	for {
		connectedAt := time.Now()
		err := n.consume(ctx)
		if ctx.Err() != nil {
			return
		}

		// A connection that stayed up for a while resets the backoff.
		if time.Since(connectedAt) > n.maxBackoff {
			backoff = n.minBackoff
		}
		n.log.WithError(err).WithField("retry_in", backoff.String()).Warn("Event stream disconnected")

		select {
		case <-ctx.Done():
			return
		case <-time.After(backoff):
		}

		backoff *= 2
		if backoff > n.maxBackoff {
			backoff = n.maxBackoff
		}
	}
}

func (n *Notifier) consume(ctx context.Context) error {
	stream, err := n.source.Open(ctx)
	if err != nil {
		return err
	}
	defer stream.Close()

	// Unblock Next when ctx ends.
	stop := context.AfterFunc(ctx, func() { stream.Close() })
	defer stop()

	n.connected.Store(true)
	defer n.connected.Store(false)
	n.log.Info("Connected to event stream")
	n.Publish(domain.Event{Name: domain.EventConnect, Data: json.RawMessage(`{}`)})

	for {
		evt, err := stream.Next()
		if err != nil {
			return err
		}
		n.Publish(evt)
	}
}

// Subscribe registers a listener for the named events (all events when none are named).
// The returned cancel func detaches the listener and closes its channel; it is safe to call twice.
func (n *Notifier) Subscribe(buffer int, events ...string) (<-chan domain.Event, func()) {
	if buffer < 1 {
		buffer = 1
	}
	l := &listener{
		events: make(map[string]struct{}, len(events)),
		ch:     make(chan domain.Event, buffer),
	}
	for _, name := range events {
		l.events[name] = struct{}{}
	}

	n.mu.Lock()
	n.nextID++
	id := n.nextID
	n.listeners[id] = l
	n.mu.Unlock()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			n.mu.Lock()
			delete(n.listeners, id)
			n.mu.Unlock()
			close(l.ch)
		})
	}
	return l.ch, cancel
}

// Publish delivers evt to every interested listener without blocking
func (n *Notifier) Publish(evt domain.Event) {
	n.mu.RLock()
	defer n.mu.RUnlock()

	for _, l := range n.listeners {
		if !l.wants(evt.Name) {
			continue
		}
		select {
		case l.ch <- evt:
		default:
			n.dropped.Add(1)
			n.log.WithField("event", evt.Name).Debug("Listener buffer full, event dropped")
		}
	}
}

// Connected reports whether the upstream stream is currently open
func (n *Notifier) Connected() bool {
	return n.connected.Load()
}

// Listeners reports how many listeners are attached
func (n *Notifier) Listeners() int {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return len(n.listeners)
}

// Dropped reports how many deliveries were skipped because a listener was full
func (n *Notifier) Dropped() uint64 {
	return n.dropped.Load()
}

// LogEvents attaches an application-wide listener that logs every event until ctx ends
func (n *Notifier) LogEvents(ctx context.Context) {
	events, cancel := n.Subscribe(64)
	go func() {
		defer cancel()
		for {
			select {
			case <-ctx.Done():
				return
			case evt, ok := <-events:
				if !ok {
					return
				}
				n.log.WithFields(logrus.Fields{
					"event": evt.Name,
					"bytes": len(evt.Data),
				}).Info("Event received")
			}
		}
	}()
}
