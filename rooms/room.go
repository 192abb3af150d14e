// Copyright 2026 The Driftline Authors
// SPDX-License-Identifier: Apache-2.0

package rooms

import (
	"maps"
	"slices"

	"github.com/driftline/driftline/lib/ref"
	"github.com/driftline/driftline/messaging"
)

// Member is a currently-joined room member.
type Member struct {
	UserID      ref.UserID
	DisplayName string
	AvatarURL   string
}

// stateRef identifies a current-state slot. A state event overwrites
// any earlier event with the same (type, state key) pair.
type stateRef struct {
	eventType ref.EventType
	stateKey  string
}

// Room is the reconciled, long-lived aggregate for one room. It is
// created on the first join or invite delta, mutated in place by
// subsequent deltas, and removed from the cache on leave or ban.
//
// Rooms handed out in snapshots are deep copies; mutating one never
// affects the cache. Event values inside (LastEvent, current state) are
// immutable by convention.
type Room struct {
	ID         ref.RoomID
	Membership messaging.Membership

	// Name is the display name: the explicit m.room.name if one is
	// set, otherwise derived from heroes and member counts. Never
	// empty.
	Name      string
	Topic     string
	AvatarURL string

	// IsDirect reports whether this room appears in the current
	// direct-message index.
	IsDirect bool

	// Members holds currently-joined users as far as lazy member
	// loading has revealed them.
	Members map[ref.UserID]Member

	// Heroes is the server-chosen member subset used for name
	// derivation when no explicit name is set.
	Heroes []ref.UserID

	JoinedMemberCount  int
	InvitedMemberCount int

	// LastEvent is the most recent timeline event observed for this
	// room, nil until one arrives.
	LastEvent *messaging.Event

	UnreadCount    int
	HighlightCount int

	// explicitName is the raw m.room.name value; Name is recomputed
	// from it on every delta.
	explicitName string

	// currentState holds the latest state event per (type, state key).
	currentState map[stateRef]messaging.Event
}

// StateEvent returns the latest state event with the given type and
// state key, if one has been observed.
func (r *Room) StateEvent(eventType ref.EventType, stateKey string) (messaging.Event, bool) {
	event, ok := r.currentState[stateRef{eventType: eventType, stateKey: stateKey}]
	return event, ok
}

// StateEventCount returns the number of distinct (type, state key)
// slots currently held.
func (r *Room) StateEventCount() int { return len(r.currentState) }

// copyRoom returns a deep copy sharing no mutable state with r.
func copyRoom(r *Room) Room {
	room := *r
	room.Members = maps.Clone(r.Members)
	room.Heroes = slices.Clone(r.Heroes)
	room.currentState = maps.Clone(r.currentState)
	if r.LastEvent != nil {
		last := *r.LastEvent
		room.LastEvent = &last
	}
	return room
}
