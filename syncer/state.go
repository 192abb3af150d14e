// Copyright 2026 The Driftline Authors
// SPDX-License-Identifier: Apache-2.0

package syncer

// State describes where the sync loop is in its connection lifecycle.
type State int

const (
	// StateDisconnected is the initial state, and the terminal state
	// after a clean Stop.
	StateDisconnected State = iota

	// StateConnecting covers startup work before the first sync
	// request: loading the persisted cursor and negotiating the sync
	// filter.
	StateConnecting

	// StateSyncing means the initial sync request is in flight.
	StateSyncing

	// StateConnected is the steady state: incremental long-poll
	// requests completing normally.
	StateConnected

	// StateReconnecting means the last request failed and the loop is
	// waiting out a backoff delay before retrying.
	StateReconnecting

	// StateFailed is terminal: the loop hit an unrecoverable error
	// (authentication failure). Err reports the cause.
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateDisconnected:
		return "disconnected"
	case StateConnecting:
		return "connecting"
	case StateSyncing:
		return "syncing"
	case StateConnected:
		return "connected"
	case StateReconnecting:
		return "reconnecting"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}
