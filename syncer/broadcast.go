// Copyright 2026 The Driftline Authors
// SPDX-License-Identifier: Apache-2.0

package syncer

import (
	"log/slog"
	"sync"
)

// defaultSubscriptionBuffer is the per-subscriber channel capacity used
// when Subscribe is called with a non-positive buffer size.
const defaultSubscriptionBuffer = 16

// Broadcaster fans values out to any number of subscribers without ever
// blocking the publisher. Each subscription has a bounded buffer; when
// a subscriber's buffer is full, the oldest undelivered value is
// dropped to make room for the newest one. A stuck subscriber loses
// values, never stalls the loop.
type Broadcaster[T any] struct {
	logger *slog.Logger

	mu            sync.Mutex
	subscriptions map[*Subscription[T]]struct{}
}

// NewBroadcaster creates a Broadcaster. A nil logger falls back to
// slog.Default.
func NewBroadcaster[T any](logger *slog.Logger) *Broadcaster[T] {
	if logger == nil {
		logger = slog.Default()
	}
	return &Broadcaster[T]{
		logger:        logger,
		subscriptions: make(map[*Subscription[T]]struct{}),
	}
}

// Subscription is one subscriber's view of a Broadcaster. Receive from
// C until it is closed; call Close to unsubscribe.
type Subscription[T any] struct {
	broadcaster *Broadcaster[T]
	channel     chan T
	closeOnce   sync.Once
}

// C returns the channel values are delivered on. The channel is closed
// when the subscription is closed or the broadcaster shuts down.
func (s *Subscription[T]) C() <-chan T { return s.channel }

// Close unsubscribes and closes the delivery channel. Idempotent.
func (s *Subscription[T]) Close() {
	s.closeOnce.Do(func() {
		s.broadcaster.remove(s)
		close(s.channel)
	})
}

// Subscribe registers a new subscriber with the given buffer capacity.
// A non-positive buffer selects a small default.
func (b *Broadcaster[T]) Subscribe(buffer int) *Subscription[T] {
	if buffer <= 0 {
		buffer = defaultSubscriptionBuffer
	}
	subscription := &Subscription[T]{
		broadcaster: b,
		channel:     make(chan T, buffer),
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if b.subscriptions == nil {
		// Broadcaster already closed; hand back a closed subscription.
		subscription.closeOnce.Do(func() { close(subscription.channel) })
		return subscription
	}
	b.subscriptions[subscription] = struct{}{}
	return subscription
}

// Publish delivers value to every current subscriber. Never blocks:
// for a subscriber with a full buffer, the oldest buffered value is
// discarded so the newest one fits.
func (b *Broadcaster[T]) Publish(value T) {
	b.mu.Lock()
	defer b.mu.Unlock()

	for subscription := range b.subscriptions {
		select {
		case subscription.channel <- value:
			continue
		default:
		}

		// Buffer full. Drop the oldest value, then retry once. The
		// second send can still lose the race against a concurrent
		// receiver draining the channel, in which case the plain send
		// succeeds anyway; if another publisher filled it back up we
		// drop this value instead.
		select {
		case <-subscription.channel:
			b.logger.Warn("subscriber falling behind, dropping oldest value")
		default:
		}
		select {
		case subscription.channel <- value:
		default:
			b.logger.Warn("subscriber falling behind, dropping value")
		}
	}
}

// Close closes every subscription and rejects future subscribers.
func (b *Broadcaster[T]) Close() {
	b.mu.Lock()
	subscriptions := b.subscriptions
	b.subscriptions = nil
	b.mu.Unlock()

	for subscription := range subscriptions {
		subscription.closeOnce.Do(func() { close(subscription.channel) })
	}
}

func (b *Broadcaster[T]) remove(s *Subscription[T]) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.subscriptions != nil {
		delete(b.subscriptions, s)
	}
}
