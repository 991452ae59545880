// Package eventbus provides an in-memory, asynchronous event bus. Delivery
// outcomes are published here and consumed off the request path (metrics).
package eventbus

import (
	"log/slog"
	"sync"
	"time"
)

const (
	defaultWorkers    = 2
	defaultBufferSize = 256
)

// Bus is the interface for publishing events and managing subscribers.
type Bus interface {
	// Publish enqueues an event. It never blocks: if the buffer is full, the
	// event is dropped and a warning is logged. Events published after Close
	// are dropped.
	Publish(e Event)
	// Subscribe registers a listener that is called for every published event.
	Subscribe(listener Listener)
	// Close stops accepting new events and waits for pending ones to be processed.
	Close()
}

type inMemoryBus struct {
	ch        chan Event
	listeners []Listener
	mu        sync.RWMutex
	closed    bool
	closeOnce sync.Once
	wg        sync.WaitGroup
	logger    *slog.Logger
}

// New creates an in-memory Bus with the given number of worker goroutines.
// If workers is <= 0, defaultWorkers is used.
func New(workers int, logger *slog.Logger) Bus {
	if workers <= 0 {
		workers = defaultWorkers
	}
	if logger == nil {
		logger = slog.Default()
	}
	b := &inMemoryBus{
		ch:     make(chan Event, defaultBufferSize),
		logger: logger,
	}
	for i := 0; i < workers; i++ {
		b.wg.Add(1)
		go func() {
			defer b.wg.Done()
			for e := range b.ch {
				b.dispatch(e)
			}
		}()
	}
	return b
}

// dispatch calls all listeners; a panicking listener does not affect others.
func (b *inMemoryBus) dispatch(e Event) {
	b.mu.RLock()
	listeners := make([]Listener, len(b.listeners))
	copy(listeners, b.listeners)
	b.mu.RUnlock()

	for _, l := range listeners {
		func() {
			defer func() {
				if r := recover(); r != nil {
					b.logger.Error("eventbus listener panicked", "event_type", e.Type, "panic", r)
				}
			}()
			l(e)
		}()
	}
}

func (b *inMemoryBus) Publish(e Event) {
	if e.Timestamp.IsZero() {
		e.Timestamp = time.Now()
	}

	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.closed {
		return
	}
	select {
	case b.ch <- e:
	default:
		b.logger.Warn("eventbus buffer full, dropping event", "event_type", e.Type)
	}
}

func (b *inMemoryBus) Subscribe(listener Listener) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.listeners = append(b.listeners, listener)
}

func (b *inMemoryBus) Close() {
	b.closeOnce.Do(func() {
		b.mu.Lock()
		b.closed = true
		close(b.ch)
		b.mu.Unlock()
		b.wg.Wait()
	})
}
