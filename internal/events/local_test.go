package events

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type recorder struct {
	mu     sync.Mutex
	events []Event
}

func (r *recorder) handle(e Event) {
	r.mu.Lock()
	r.events = append(r.events, e)
	r.mu.Unlock()
}

func (r *recorder) len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.events)
}

func TestLocalBus(t *testing.T) {
	bus := NewLocalBus(zap.NewNop())
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var rec recorder
	require.NoError(t, bus.Subscribe(ctx, StreamRegistrations, rec.handle))

	require.NoError(t, bus.Publish(context.Background(), StreamRegistrations, Event{
		Type:    EventRegistrationCompleted,
		Payload: map[string]any{"token_id": "1"},
	}))
	require.NoError(t, bus.Publish(context.Background(), "other", Event{Type: EventLinkFailed}))

	require.Eventually(t, func() bool { return rec.len() == 1 }, time.Second, 5*time.Millisecond)
	rec.mu.Lock()
	assert.Equal(t, EventRegistrationCompleted, rec.events[0].Type)
	assert.Equal(t, "1", rec.events[0].Payload["token_id"])
	rec.mu.Unlock()
}

func TestLocalBusRemovesCancelledSubscriptions(t *testing.T) {
	bus := NewLocalBus(zap.NewNop())

	for i := 0; i < 10; i++ {
		ctx, cancel := context.WithCancel(context.Background())
		require.NoError(t, bus.Subscribe(ctx, StreamRegistrations, func(Event) {}))
		cancel()
	}
	assert.Eventually(t, func() bool { return bus.subscriberCount(StreamRegistrations) == 0 },
		time.Second, 5*time.Millisecond)

	// publishing to a stream without subscribers is a no-op
	require.NoError(t, bus.Publish(context.Background(), StreamRegistrations, Event{Type: EventLinkFailed}))
}

func TestLocalBusSerializesHandler(t *testing.T) {
	bus := NewLocalBus(zap.NewNop())
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var running, maxRunning, delivered int32
	require.NoError(t, bus.Subscribe(ctx, StreamRegistrations, func(Event) {
		n := atomic.AddInt32(&running, 1)
		for {
			m := atomic.LoadInt32(&maxRunning)
			if n <= m || atomic.CompareAndSwapInt32(&maxRunning, m, n) {
				break
			}
		}
		time.Sleep(2 * time.Millisecond)
		atomic.AddInt32(&running, -1)
		atomic.AddInt32(&delivered, 1)
	}))

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = bus.Publish(context.Background(), StreamRegistrations, Event{Type: EventRegistrationCompleted})
		}()
	}
	wg.Wait()

	require.Eventually(t, func() bool { return atomic.LoadInt32(&delivered) == 8 }, 2*time.Second, 5*time.Millisecond)
	assert.Equal(t, int32(1), atomic.LoadInt32(&maxRunning))
}

func TestLocalBusPublishDoesNotWaitForHandler(t *testing.T) {
	bus := NewLocalBus(zap.NewNop())
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	release := make(chan struct{})
	defer close(release)
	require.NoError(t, bus.Subscribe(ctx, StreamRegistrations, func(Event) { <-release }))

	done := make(chan struct{})
	go func() {
		for i := 0; i < localBufferSize+5; i++ {
			_ = bus.Publish(context.Background(), StreamRegistrations, Event{Type: EventRegistrationCompleted})
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Publish blocked on a slow subscriber")
	}
}
