// Copyright 2026 The Driftline Authors
// SPDX-License-Identifier: Apache-2.0

// Package clock provides an injectable time abstraction for
// testability.
//
// Production code accepts a Clock parameter instead of calling
// time.Now, time.After, or time.Sleep directly. In production, Real()
// provides standard library behavior. In tests, Fake() provides a
// deterministic clock that advances only when Advance is called,
// which makes timer-driven paths — the sync loop's exponential
// backoff in particular — testable without wall-clock sleeps.
//
// When a goroutine calls After or Sleep on a FakeClock, it registers
// a pending waiter. Tests use WaitForWaiters to block until the
// goroutine under test has registered its timer, then call Advance to
// fire it deterministically.
package clock

import "time"

// Clock abstracts the time operations driftline uses. Production code
// injects Real(); tests inject Fake() with deterministic time control.
type Clock interface {
	// Now returns the current time.
	Now() time.Time

	// After returns a channel that receives the current time after
	// duration d elapses. Equivalent to time.After. If d <= 0, the
	// channel receives immediately.
	After(d time.Duration) <-chan time.Time

	// Sleep pauses the current goroutine for at least duration d.
	// Equivalent to time.Sleep.
	Sleep(d time.Duration)
}

// Real returns a Clock backed by the standard time package.
func Real() Clock { return realClock{} }

type realClock struct{}

func (realClock) Now() time.Time { return time.Now() }

func (realClock) After(d time.Duration) <-chan time.Time { return time.After(d) }

func (realClock) Sleep(d time.Duration) { time.Sleep(d) }
