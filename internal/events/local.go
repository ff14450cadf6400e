package events

import (
	"context"
	"sync"

	"go.uber.org/zap"
)

// localBufferSize matches the go-redis pub/sub channel size.
const localBufferSize = 100

// LocalBus delivers events to subscribers in the same process. It is used
// when no Redis instance is configured. Like RedisSubscriber, each
// subscription is served by a single goroutine, so a handler never runs
// concurrently with itself and a slow handler never blocks Publish.
type LocalBus struct {
	log  *zap.Logger
	mu   sync.RWMutex
	subs map[string]map[*localSub]struct{}
}

type localSub struct {
	ch   chan Event
	done chan struct{}
}

var (
	_ Publisher  = (*LocalBus)(nil)
	_ Subscriber = (*LocalBus)(nil)
)

func NewLocalBus(log *zap.Logger) *LocalBus {
	return &LocalBus{log: log, subs: make(map[string]map[*localSub]struct{})}
}

// Publish queues event for every subscriber of stream. An event is dropped
// for a subscriber whose buffer is full.
func (b *LocalBus) Publish(_ context.Context, stream string, event Event) error {
	b.mu.RLock()
	defer b.mu.RUnlock()

	for sub := range b.subs[stream] {
		select {
		case sub.ch <- event:
		case <-sub.done:
		default:
			b.log.Warn("subscriber buffer full, event dropped",
				zap.String("stream", stream), zap.String("type", event.Type))
		}
	}
	return nil
}

// Subscribe delivers events to handler until ctx is done; the subscription
// is then removed.
func (b *LocalBus) Subscribe(ctx context.Context, stream string, handler func(Event)) error {
	sub := &localSub{
		ch:   make(chan Event, localBufferSize),
		done: make(chan struct{}),
	}

	b.mu.Lock()
	if b.subs[stream] == nil {
		b.subs[stream] = make(map[*localSub]struct{})
	}
	b.subs[stream][sub] = struct{}{}
	b.mu.Unlock()

	go func() {
		defer func() {
			b.mu.Lock()
			delete(b.subs[stream], sub)
			if len(b.subs[stream]) == 0 {
				delete(b.subs, stream)
			}
			b.mu.Unlock()
			close(sub.done)
		}()
		for {
			select {
			case <-ctx.Done():
				return
			case event := <-sub.ch:
				handler(event)
			}
		}
	}()
	return nil
}

// subscriberCount reports live subscriptions on stream.
func (b *LocalBus) subscriberCount(stream string) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs[stream])
}
