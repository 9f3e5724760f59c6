// Package bus implements the process-wide in-process event fan-out: a
// multimap from kiosk channel key to a set of bounded, ordered queues.
// There is no persistence and no cross-process delivery.
package bus

import (
	"context"
	"log/slog"
	"sync"

	logger "github.com/shortlink-org/go-sdk/logger"

	"github.com/shortlink-org/kiosk-oms/internal/domain/ports"
)

// queueCapacity bounds each subscriber's backlog before the oldest buffered
// event is dropped to make room for the newest.
const queueCapacity = 100

// subscription is one listener's bounded queue plus the bookkeeping needed
// to remove itself from its channel's subscriber set on unsubscribe.
type subscription struct {
	ch     chan ports.Event
	mu     sync.Mutex
	closed bool
}

// enqueue delivers event to the subscription's queue, dropping the oldest
// buffered item first if the queue is full. Never blocks.
func (s *subscription) enqueue(event ports.Event) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return
	}

	for {
		select {
		case s.ch <- event:
			return
		default:
			select {
			case <-s.ch:
			default:
			}
		}
	}
}

func (s *subscription) close() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return
	}

	s.closed = true
	close(s.ch)
}

// Bus is the single process-scoped event registry, protected by a single
// mutex, mirroring a connection-registry pattern keyed by channel rather
// than by customer, with a bounded oldest-drop queue per subscriber instead
// of a direct synchronous write.
type Bus struct {
	mu            sync.RWMutex
	subscriptions map[string]map[*subscription]struct{}
	log           logger.Logger
}

// New constructs an empty Bus.
func New(log logger.Logger) *Bus {
	return &Bus{
		subscriptions: make(map[string]map[*subscription]struct{}),
		log:           log,
	}
}

// Subscribe registers a new listener on channel and returns its stream plus
// an unsubscribe function. The stream closes when unsubscribe is called.
func (b *Bus) Subscribe(ctx context.Context, channel string) (<-chan ports.Event, func()) {
	sub := &subscription{ch: make(chan ports.Event, queueCapacity)}

	b.mu.Lock()
	if b.subscriptions[channel] == nil {
		b.subscriptions[channel] = make(map[*subscription]struct{})
	}
	b.subscriptions[channel][sub] = struct{}{}
	b.mu.Unlock()

	b.log.Info("bus subscriber registered", slog.String("channel", channel))

	unsubscribe := func() {
		b.mu.Lock()
		if set, ok := b.subscriptions[channel]; ok {
			delete(set, sub)
			if len(set) == 0 {
				delete(b.subscriptions, channel)
			}
		}
		b.mu.Unlock()

		sub.close()
		b.log.Info("bus subscriber unregistered", slog.String("channel", channel))
	}

	return sub.ch, unsubscribe
}

// Publish delivers event to every current subscriber of channel, in
// publish order for that publisher. A subscriber whose queue is full has
// its oldest buffered item dropped to make room; Publish itself never
// blocks and never returns an error from a slow consumer.
func (b *Bus) Publish(_ context.Context, channel string, event ports.Event) error {
	b.mu.RLock()
	set := b.subscriptions[channel]
	targets := make([]*subscription, 0, len(set))
	for sub := range set {
		targets = append(targets, sub)
	}
	b.mu.RUnlock()

	for _, sub := range targets {
		sub.enqueue(event)
	}

	return nil
}

var (
	_ ports.EventPublisher  = (*Bus)(nil)
	_ ports.EventSubscriber = (*Bus)(nil)
)
