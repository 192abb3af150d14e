// Copyright 2026 The Driftline Authors
// SPDX-License-Identifier: Apache-2.0

// Package rooms maintains the reconciled room cache.
//
// The Reconciler consumes normalized sync payloads and folds each
// room's delta into a long-lived Room aggregate: display name, topic,
// avatar, joined members, direct-message flag, and unread counters.
// After every payload it publishes a deep-copied snapshot of the whole
// cache, sorted by room ID, so consumers observe a consistent room set
// rather than per-room diffs.
//
// Reconciliation is single-writer: payloads are applied sequentially
// from one goroutine. Snapshots are safe to retain and mutate — they
// share no mutable state with the cache.
package rooms
