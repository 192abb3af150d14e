// Copyright 2026 The Driftline Authors
// SPDX-License-Identifier: Apache-2.0

package syncer

import "time"

const (
	// backoffBase is the delay after the first consecutive failure.
	backoffBase = 1 * time.Second

	// backoffCap bounds the delay regardless of failure count.
	backoffCap = 60 * time.Second
)

// backoffDelay returns the reconnect delay after the given number of
// consecutive failures: 1s, 2s, 4s, ... capped at 60s. It is a pure
// function of the failure count, so retry timing is reproducible.
func backoffDelay(failures int) time.Duration {
	if failures <= 0 {
		return 0
	}
	// 1 << 6 seconds already exceeds the cap; clamping the shift also
	// guards against overflow for absurd failure counts.
	if failures > 7 {
		return backoffCap
	}
	delay := backoffBase << (failures - 1)
	if delay > backoffCap {
		return backoffCap
	}
	return delay
}
