package eventbus_test

import (
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shaharia-lab/inboxmailer/internal/eventbus"
)

func TestPublishAndReceive(t *testing.T) {
	bus := eventbus.New(2, nil)

	var received []eventbus.Event
	var mu sync.Mutex

	bus.Subscribe(func(e eventbus.Event) {
		mu.Lock()
		received = append(received, e)
		mu.Unlock()
	})

	bus.Publish(eventbus.Event{Type: eventbus.TypeEmailSent, Provider: "smtp"})
	bus.Close()

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, received, 1)
	assert.Equal(t, eventbus.TypeEmailSent, received[0].Type)
	assert.Equal(t, "smtp", received[0].Provider)
	assert.False(t, received[0].Timestamp.IsZero())
}

func TestMultipleListeners(t *testing.T) {
	bus := eventbus.New(2, nil)

	var count int32
	for i := 0; i < 3; i++ {
		bus.Subscribe(func(_ eventbus.Event) {
			atomic.AddInt32(&count, 1)
		})
	}

	bus.Publish(eventbus.Event{Type: "multi"})
	bus.Close()

	assert.EqualValues(t, 3, atomic.LoadInt32(&count))
}

func TestListenerPanicDoesNotCrash(t *testing.T) {
	bus := eventbus.New(1, nil)

	var goodCalled int32
	bus.Subscribe(func(_ eventbus.Event) {
		panic("intentional panic in listener")
	})
	bus.Subscribe(func(_ eventbus.Event) {
		atomic.AddInt32(&goodCalled, 1)
	})

	bus.Publish(eventbus.Event{Type: "panic.event"})
	bus.Close()

	assert.EqualValues(t, 1, atomic.LoadInt32(&goodCalled))
}

func TestClose_DrainsAndIsIdempotent(t *testing.T) {
	bus := eventbus.New(2, nil)

	var count int32
	bus.Subscribe(func(_ eventbus.Event) {
		atomic.AddInt32(&count, 1)
	})

	for i := 0; i < 5; i++ {
		bus.Publish(eventbus.Event{Type: "evt"})
	}

	bus.Close()
	bus.Close()
	assert.EqualValues(t, 5, atomic.LoadInt32(&count))

	// Publishing after close is a no-op rather than a panic.
	bus.Publish(eventbus.Event{Type: "late"})
	assert.EqualValues(t, 5, atomic.LoadInt32(&count))
}

func TestDefaultWorkers(t *testing.T) {
	bus := eventbus.New(0, nil)
	require.NotNil(t, bus)
	bus.Close()
}
