package events

import (
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/rs/zerolog"

	"github.com/ozone/repmgr/pkg/log"
)

// ErrClosed is returned by Publish when the topic has already been closed.
var ErrClosed = errors.New("events: queue closed")

// Handler processes one message published to a topic. publisher is whatever
// string the caller of Publish supplies (e.g. "container-report", "notify"),
// carried through purely for logging.
type Handler func(payload any, publisher string) error

// Stats is a point-in-time snapshot of one topic's counters.
type Stats struct {
	Queued    uint64
	Scheduled uint64
	Done      uint64
	Failed    uint64
}

type message struct {
	payload   any
	publisher string
}

// Topic is a SingleThreadExecutor: one FIFO queue served by one worker
// goroutine. Handlers registered on the same topic never run concurrently.
type Topic struct {
	name    string
	handler Handler
	queue   chan message
	closed  chan struct{}
	once    sync.Once

	queued    atomic.Uint64
	scheduled atomic.Uint64
	done      atomic.Uint64
	failed    atomic.Uint64
}

// Bus is a typed registry of topic name -> worker. Publishing is a
// type-safe enqueue; there is no reflection or class-hint dispatch.
type Bus struct {
	mu     sync.RWMutex
	topics map[string]*Topic
}

// NewBus creates an empty event bus.
func NewBus() *Bus {
	return &Bus{topics: make(map[string]*Topic)}
}

// RegisterTopic creates a topic with the given name and handler and starts
// its worker goroutine. queueDepth bounds how many messages may be pending
// before Publish blocks.
func (b *Bus) RegisterTopic(name string, queueDepth int, handler Handler) *Topic {
	b.mu.Lock()
	defer b.mu.Unlock()

	t := &Topic{
		name:    name,
		handler: handler,
		queue:   make(chan message, queueDepth),
		closed:  make(chan struct{}),
	}
	b.topics[name] = t
	go t.run()
	return t
}

// GetTopic returns the registered topic by name, or nil if it was never
// registered.
func (b *Bus) GetTopic(name string) *Topic {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.topics[name]
}

// Publish enqueues payload on the named topic.
func (b *Bus) Publish(name string, payload any, publisher string) error {
	t := b.GetTopic(name)
	if t == nil {
		return fmt.Errorf("events: unknown topic %q", name)
	}
	return t.publish(payload, publisher)
}

// Close stops every topic from accepting new work and lets each drain.
func (b *Bus) Close() {
	b.mu.RLock()
	topics := make([]*Topic, 0, len(b.topics))
	for _, t := range b.topics {
		topics = append(topics, t)
	}
	b.mu.RUnlock()

	for _, t := range topics {
		t.close()
	}
}

// Stats returns the counters for one topic.
func (b *Bus) Stats(name string) (Stats, bool) {
	t := b.GetTopic(name)
	if t == nil {
		return Stats{}, false
	}
	return t.stats(), true
}

func (t *Topic) publish(payload any, publisher string) error {
	select {
	case <-t.closed:
		return ErrClosed
	default:
	}

	select {
	case t.queue <- message{payload: payload, publisher: publisher}:
		t.queued.Add(1)
		return nil
	case <-t.closed:
		return ErrClosed
	}
}

// run is the topic's single worker goroutine. It never ranges over t.queue
// directly: t.queue is never closed (only producer-visible via the separate
// t.closed signal), since a send case on a closed channel is ready to panic
// in a select, not excluded — closing the channel a concurrent Publish sends
// on would race Close(). Closing t.closed instead, and draining whatever is
// already buffered once it fires, gets the same shutdown behavior safely.
func (t *Topic) run() {
	logger := log.WithComponent("events." + t.name)
	for {
		select {
		case msg := <-t.queue:
			t.process(msg, logger)
		case <-t.closed:
			t.drain(logger)
			return
		}
	}
}

// drain runs every message already enqueued before close fired, then
// returns once the queue is empty.
func (t *Topic) drain(logger zerolog.Logger) {
	for {
		select {
		case msg := <-t.queue:
			t.process(msg, logger)
		default:
			return
		}
	}
}

func (t *Topic) process(msg message, logger zerolog.Logger) {
	t.scheduled.Add(1)
	if err := t.invoke(msg); err != nil {
		t.failed.Add(1)
		logger.Error().Err(err).Str("publisher", msg.publisher).Msg("handler failed")
		return
	}
	t.done.Add(1)
}

// invoke runs the handler, converting a panic into an error so a
// misbehaving handler never takes down the worker goroutine.
func (t *Topic) invoke(msg message) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("events: handler panic: %v", r)
		}
	}()
	return t.handler(msg.payload, msg.publisher)
}

// close stops accepting new messages and lets the queue drain. t.queue
// itself is never closed — see run()'s comment — so a racing Publish can
// never panic on a send to a closed channel.
func (t *Topic) close() {
	t.once.Do(func() {
		close(t.closed)
	})
}

// GetName returns the queue name used in metrics labels.
func (t *Topic) GetName() string {
	return t.name
}

func (t *Topic) stats() Stats {
	return Stats{
		Queued:    t.queued.Load(),
		Scheduled: t.scheduled.Load(),
		Done:      t.done.Load(),
		Failed:    t.failed.Load(),
	}
}
