// Copyright 2026 The Driftline Authors
// SPDX-License-Identifier: Apache-2.0

package messaging

import (
	"github.com/driftline/driftline/lib/ref"
)

// Event types driftline consumes. Everything else in the stream is
// carried opaquely.
const (
	EventTypeMember         ref.EventType = "m.room.member"
	EventTypeMessage        ref.EventType = "m.room.message"
	EventTypeName           ref.EventType = "m.room.name"
	EventTypeTopic          ref.EventType = "m.room.topic"
	EventTypeAvatar         ref.EventType = "m.room.avatar"
	EventTypeCanonicalAlias ref.EventType = "m.room.canonical_alias"
	EventTypeTyping         ref.EventType = "m.typing"
	EventTypeReceipt        ref.EventType = "m.receipt"
	EventTypeDirect         ref.EventType = "m.direct"
	EventTypePresence       ref.EventType = "m.presence"
)

// Membership is the membership value carried in an m.room.member state
// event and in the grouping of the /sync rooms section.
type Membership string

// Membership states.
const (
	MembershipJoin   Membership = "join"
	MembershipInvite Membership = "invite"
	MembershipLeave  Membership = "leave"
	MembershipBan    Membership = "ban"
)

// Event represents a Matrix event from the server.
//
// Events are immutable after construction: edits and redactions arrive
// as new events, and nothing in driftline mutates an Event once it has
// been normalized. This is what allows snapshots and projections to
// share Event values across goroutines without copying.
//
// Derived facts — whether the event is a state event, the membership
// value, the display name embedded in a member event — are computed on
// read by the accessor methods rather than stored.
type Event struct {
	Type           ref.EventType  `json:"type"`
	EventID        ref.EventID    `json:"event_id,omitempty"`
	Sender         ref.UserID     `json:"sender,omitempty"`
	OriginServerTS int64          `json:"origin_server_ts,omitempty"`
	StateKey       *string        `json:"state_key,omitempty"`
	Content        map[string]any `json:"content"`
	Unsigned       *EventUnsigned `json:"unsigned,omitempty"`

	// RoomID is not sent by the server inside room sections — it is
	// filled in during normalization from the enclosing section key.
	RoomID ref.RoomID `json:"room_id,omitempty"`
}

// EventUnsigned holds the optional unsigned side-channel attached to
// events by the server.
type EventUnsigned struct {
	// Age is milliseconds since the event was sent, relative to the
	// serving homeserver.
	Age int64 `json:"age,omitempty"`
	// TransactionID echoes the client-generated transaction ID when
	// the event was sent by this session.
	TransactionID string `json:"transaction_id,omitempty"`
	// PrevContent carries the content the state event replaced.
	PrevContent map[string]any `json:"prev_content,omitempty"`
}

// IsState reports whether the event is a state event. Presence of the
// state key — even an empty one — is what marks an event as state.
func (e *Event) IsState() bool { return e.StateKey != nil }

// IsMessage reports whether the event is a room message.
func (e *Event) IsMessage() bool { return e.Type == EventTypeMessage }

// Membership returns the membership value of an m.room.member event,
// or "" when the event carries none.
func (e *Event) Membership() Membership {
	return Membership(e.stringContent("membership"))
}

// MemberDisplayName returns the display name embedded in an
// m.room.member event, or "" when absent.
func (e *Event) MemberDisplayName() string {
	return e.stringContent("displayname")
}

// MemberAvatarURL returns the avatar URL embedded in an m.room.member
// event, or "" when absent.
func (e *Event) MemberAvatarURL() string {
	return e.stringContent("avatar_url")
}

// RoomName returns the name carried by an m.room.name state event,
// or "" when absent.
func (e *Event) RoomName() string { return e.stringContent("name") }

// RoomTopic returns the topic carried by an m.room.topic state event,
// or "" when absent.
func (e *Event) RoomTopic() string { return e.stringContent("topic") }

// RoomAvatarURL returns the URL carried by an m.room.avatar state
// event, or "" when absent.
func (e *Event) RoomAvatarURL() string { return e.stringContent("url") }

// MessageBody returns the body of an m.room.message event, or ""
// when absent.
func (e *Event) MessageBody() string { return e.stringContent("body") }

// stringContent returns a string-typed content field. Wrong-typed or
// missing fields yield "" — malformed content degrades to the zero
// value, never a panic.
func (e *Event) stringContent(key string) string {
	if e.Content == nil {
		return ""
	}
	value, _ := e.Content[key].(string)
	return value
}
