// Copyright 2026 The Driftline Authors
// SPDX-License-Identifier: Apache-2.0

package clock

import (
	"testing"
	"time"
)

func TestFakeAfterFiresOnAdvance(t *testing.T) {
	fake := Fake(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))

	ch := fake.After(5 * time.Second)
	select {
	case <-ch:
		t.Fatal("timer fired before Advance")
	default:
	}

	fake.Advance(4 * time.Second)
	select {
	case <-ch:
		t.Fatal("timer fired before its deadline")
	default:
	}

	fake.Advance(1 * time.Second)
	select {
	case fired := <-ch:
		want := time.Date(2026, 1, 1, 0, 0, 5, 0, time.UTC)
		if !fired.Equal(want) {
			t.Errorf("fired at %v, want %v", fired, want)
		}
	default:
		t.Fatal("timer did not fire at its deadline")
	}
}

func TestFakeAfterZeroFiresImmediately(t *testing.T) {
	fake := Fake(time.Unix(0, 0))
	select {
	case <-fake.After(0):
	default:
		t.Fatal("After(0) did not fire immediately")
	}
}

func TestFakeSleepUnblocksOnAdvance(t *testing.T) {
	fake := Fake(time.Unix(0, 0))

	done := make(chan struct{})
	go func() {
		fake.Sleep(time.Second)
		close(done)
	}()

	fake.WaitForWaiters(1)
	fake.Advance(time.Second)

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("Sleep did not unblock after Advance")
	}
}

func TestFakeMultipleWaitersFireInDeadlineOrder(t *testing.T) {
	fake := Fake(time.Unix(0, 0))

	late := fake.After(10 * time.Second)
	early := fake.After(1 * time.Second)

	fake.Advance(10 * time.Second)

	earlyTime := <-early
	lateTime := <-late
	if earlyTime.After(lateTime) {
		t.Errorf("early waiter fired at %v, after late waiter at %v", earlyTime, lateTime)
	}
}
