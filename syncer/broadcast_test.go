// Copyright 2026 The Driftline Authors
// SPDX-License-Identifier: Apache-2.0

package syncer

import (
	"io"
	"log/slog"
	"testing"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestBroadcasterDeliversToAllSubscribers(t *testing.T) {
	broadcaster := NewBroadcaster[int](quietLogger())
	first := broadcaster.Subscribe(4)
	second := broadcaster.Subscribe(4)
	defer first.Close()
	defer second.Close()

	broadcaster.Publish(7)

	if got := <-first.C(); got != 7 {
		t.Errorf("first subscriber got %d, want 7", got)
	}
	if got := <-second.C(); got != 7 {
		t.Errorf("second subscriber got %d, want 7", got)
	}
}

func TestBroadcasterDropsOldestWhenFull(t *testing.T) {
	broadcaster := NewBroadcaster[int](quietLogger())
	subscription := broadcaster.Subscribe(2)
	defer subscription.Close()

	// No receiver draining: the third publish must evict the oldest
	// value rather than block.
	broadcaster.Publish(1)
	broadcaster.Publish(2)
	broadcaster.Publish(3)

	if got := <-subscription.C(); got != 2 {
		t.Errorf("first received value = %d, want 2 (1 should be dropped)", got)
	}
	if got := <-subscription.C(); got != 3 {
		t.Errorf("second received value = %d, want 3", got)
	}
}

func TestBroadcasterStuckSubscriberDoesNotBlockOthers(t *testing.T) {
	broadcaster := NewBroadcaster[int](quietLogger())
	stuck := broadcaster.Subscribe(1)
	healthy := broadcaster.Subscribe(8)
	defer stuck.Close()
	defer healthy.Close()

	for value := 0; value < 5; value++ {
		broadcaster.Publish(value)
	}

	// The healthy subscriber saw everything despite the stuck one.
	for want := 0; want < 5; want++ {
		if got := <-healthy.C(); got != want {
			t.Fatalf("healthy subscriber got %d, want %d", got, want)
		}
	}
	// The stuck subscriber holds only the newest value.
	if got := <-stuck.C(); got != 4 {
		t.Errorf("stuck subscriber got %d, want 4", got)
	}
}

func TestSubscriptionCloseIsIdempotent(t *testing.T) {
	broadcaster := NewBroadcaster[int](quietLogger())
	subscription := broadcaster.Subscribe(1)
	subscription.Close()
	subscription.Close()

	// Publishing after unsubscribe must not panic on the closed channel.
	broadcaster.Publish(1)

	if _, open := <-subscription.C(); open {
		t.Error("closed subscription channel still open")
	}
}

func TestBroadcasterCloseClosesSubscribers(t *testing.T) {
	broadcaster := NewBroadcaster[int](quietLogger())
	subscription := broadcaster.Subscribe(1)
	broadcaster.Close()

	if _, open := <-subscription.C(); open {
		t.Error("subscription still open after broadcaster close")
	}

	// Late subscribers get an already-closed subscription.
	late := broadcaster.Subscribe(1)
	if _, open := <-late.C(); open {
		t.Error("subscription on closed broadcaster is open")
	}
}
