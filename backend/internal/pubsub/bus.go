// Package pubsub fans out freshly written content to live subscribers.
//
// Delivery is at-most-once and nothing is persisted: a subscriber only sees
// what is published while it is registered. Each subscriber owns a bounded
// buffer; when it is full the payload is dropped for that subscriber alone.
package pubsub

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/threed-dev/threed/shared/logger"
)

const DefaultBuffer = 64

// Predicate decides whether a payload is delivered to one subscriber.
// An error or a panic drops that single delivery.
type Predicate func(payload any) (bool, error)

func All(any) (bool, error) { return true, nil }

type Bus struct {
	mu     sync.RWMutex
	topics map[string]map[*Subscription]struct{}
	buffer int
	log    *slog.Logger
}

func NewBus(buffer int) *Bus {
	if buffer <= 0 {
		buffer = DefaultBuffer
	}
	return &Bus{
		topics: make(map[string]map[*Subscription]struct{}),
		buffer: buffer,
		log:    logger.Component("pubsub"),
	}
}

type Subscription struct {
	topic     string
	ch        chan any
	predicate Predicate
	bus       *Bus
	once      sync.Once
	done      chan struct{}
	dropped   atomic.Uint64
}

// C yields matching payloads until the subscription is closed.
func (s *Subscription) C() <-chan any {
	return s.ch
}

func (s *Subscription) Topic() string {
	return s.topic
}

// Dropped counts payloads lost because the buffer was full.
func (s *Subscription) Dropped() uint64 {
	return s.dropped.Load()
}

func (s *Subscription) Close() {
	s.once.Do(func() {
		s.bus.remove(s)
		close(s.ch)
		close(s.done)
	})
}

// Subscribe registers a subscriber that lives until ctx is done or Close is called.
// A nil predicate accepts everything.
func (b *Bus) Subscribe(ctx context.Context, topic string, predicate Predicate) *Subscription {
	if predicate == nil {
		predicate = All
	}
	sub := &Subscription{
		topic:     topic,
		ch:        make(chan any, b.buffer),
		predicate: predicate,
		bus:       b,
		done:      make(chan struct{}),
	}

	b.mu.Lock()
	subs, ok := b.topics[topic]
	if !ok {
		subs = make(map[*Subscription]struct{})
		b.topics[topic] = subs
	}
	subs[sub] = struct{}{}
	b.mu.Unlock()

	activeSubscriptions.WithLabelValues(topic).Inc()

	go func() {
		select {
		case <-ctx.Done():
			sub.Close()
		case <-sub.done:
		}
	}()
	return sub
}

func (b *Bus) remove(sub *Subscription) {
	b.mu.Lock()
	defer b.mu.Unlock()

	subs := b.topics[sub.topic]
	if _, ok := subs[sub]; !ok {
		return
	}
	delete(subs, sub)
	if len(subs) == 0 {
		delete(b.topics, sub.topic)
	}
	activeSubscriptions.WithLabelValues(sub.topic).Dec()
}

// Publish never blocks on subscribers.
func (b *Bus) Publish(ctx context.Context, topic string, payload any) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	publishedTotal.WithLabelValues(topic).Inc()

	// Holding the read lock while sending keeps Close from closing a
	// channel under us. Sends never block, so this is short.
	b.mu.RLock()
	defer b.mu.RUnlock()

	for sub := range b.topics[topic] {
		ok, err := b.matches(sub, payload)
		if err != nil {
			predicateErrorsTotal.WithLabelValues(topic).Inc()
			b.log.Warn("predicate failed, delivery dropped", "topic", topic, "error", err)
			continue
		}
		if !ok {
			continue
		}
		select {
		case sub.ch <- payload:
			deliveredTotal.WithLabelValues(topic).Inc()
		default:
			sub.dropped.Add(1)
			droppedTotal.WithLabelValues(topic).Inc()
			b.log.Debug("subscriber buffer full, delivery dropped", "topic", topic)
		}
	}
	return nil
}

func (b *Bus) matches(sub *Subscription, payload any) (ok bool, err error) {
	defer func() {
		if r := recover(); r != nil {
			ok, err = false, fmt.Errorf("predicate panicked: %v", r)
		}
	}()
	return sub.predicate(payload)
}

// Subscribers is the number of live subscribers on topic.
func (b *Bus) Subscribers(topic string) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.topics[topic])
}
