// Copyright 2026 The Driftline Authors
// SPDX-License-Identifier: Apache-2.0

// Package syncer runs the long-poll sync loop against a Matrix
// homeserver.
//
// The Loop owns the sync cursor and the retry policy. It performs one
// /sync request at a time, persists the next_batch cursor through a
// CursorStore, and fans the normalized payload out to subscribers
// through a non-blocking Broadcaster. Transient failures trigger
// exponential backoff and reconnection on a fresh TCP connection;
// authentication failures stop the loop permanently.
//
// Subscribers never block the loop: each subscription has a bounded
// buffer, and when a subscriber falls behind the oldest undelivered
// payload is dropped in its place. Room state correctness does not
// depend on seeing every payload because the reconciler in the rooms
// package republishes full snapshots.
package syncer
