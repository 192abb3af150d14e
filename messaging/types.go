// Copyright 2026 The Driftline Authors
// SPDX-License-Identifier: Apache-2.0

package messaging

import (
	"encoding/json"

	"github.com/driftline/driftline/lib/ref"
)

// SyncOptions controls the behavior of the /sync endpoint.
type SyncOptions struct {
	Since      string       // next_batch token from previous sync; empty for initial sync
	Timeout    int          // long-poll timeout in milliseconds; 0 for immediate return
	SetTimeout bool         // if true, send the timeout parameter (needed to distinguish "not set" from "0")
	Filter     ref.FilterID // server-side filter ID; zero for unfiltered sync
}

// SyncResponse is the raw top-level response from /sync. Room entries
// and events are held as json.RawMessage and decoded individually by
// Normalize, so one malformed entry never fails the whole response.
type SyncResponse struct {
	NextBatch   string        `json:"next_batch"`
	Rooms       RoomsSection  `json:"rooms"`
	AccountData EventsSection `json:"account_data"`
	Presence    EventsSection `json:"presence"`
	ToDevice    EventsSection `json:"to_device"`

	// DeviceLists and DeviceOneTimeKeysCount are opaque pass-through
	// for an encryption layer; driftline never interprets them.
	DeviceLists            json.RawMessage `json:"device_lists,omitempty"`
	DeviceOneTimeKeysCount map[string]int  `json:"device_one_time_keys_count,omitempty"`
}

// RoomsSection contains per-room sync data grouped by membership
// state. Keys are raw room ID strings; they are validated during
// normalization so that a single malformed entry is skipped rather
// than failing the decode of the entire response.
type RoomsSection struct {
	Join   map[string]json.RawMessage `json:"join,omitempty"`
	Invite map[string]json.RawMessage `json:"invite,omitempty"`
	Leave  map[string]json.RawMessage `json:"leave,omitempty"`
}

// EventsSection is a wrapper around a list of undecoded events, the
// shape Matrix uses for state, ephemeral, account-data, presence, and
// to-device sequences.
type EventsSection struct {
	Events []json.RawMessage `json:"events"`
}

// JoinedRoom contains sync data for a room the user has joined.
type JoinedRoom struct {
	Timeline            TimelineSection     `json:"timeline"`
	State               EventsSection       `json:"state"`
	Ephemeral           EventsSection       `json:"ephemeral"`
	AccountData         EventsSection       `json:"account_data"`
	Summary             RoomSummary         `json:"summary"`
	UnreadNotifications UnreadNotifications `json:"unread_notifications"`
}

// InvitedRoom contains sync data for a room the user was invited to.
// Invite rooms carry their state under invite_state; normalization
// folds it into the same State sequence joined rooms use.
type InvitedRoom struct {
	InviteState EventsSection `json:"invite_state"`
}

// LeftRoom contains sync data for a room the user has left or been
// banned from.
type LeftRoom struct {
	Timeline TimelineSection `json:"timeline"`
	State    EventsSection   `json:"state"`
}

// TimelineSection contains timeline events from a sync response.
type TimelineSection struct {
	Events    []json.RawMessage `json:"events"`
	PrevBatch string            `json:"prev_batch,omitempty"`
	Limited   bool              `json:"limited,omitempty"`
}

// RoomSummary carries the server-computed lazy-loading summary: the
// hero member IDs used for name derivation and the member counts.
// The counts are pointers because the server omits the summary (or
// individual fields) when nothing changed — absent is distinct from
// zero.
type RoomSummary struct {
	Heroes             []ref.UserID `json:"m.heroes,omitempty"`
	JoinedMemberCount  *int         `json:"m.joined_member_count,omitempty"`
	InvitedMemberCount *int         `json:"m.invited_member_count,omitempty"`
}

// UnreadNotifications carries the per-room unread counters.
type UnreadNotifications struct {
	NotificationCount int `json:"notification_count,omitempty"`
	HighlightCount    int `json:"highlight_count,omitempty"`
}

// MessageContent is the content body of an m.room.message event.
type MessageContent struct {
	MsgType string `json:"msgtype"`
	Body    string `json:"body"`
}

// NewTextMessage creates a plain text message.
func NewTextMessage(body string) MessageContent {
	return MessageContent{
		MsgType: "m.text",
		Body:    body,
	}
}

// SendEventResponse is returned by SendMessage, SendEvent, and
// SendStateEvent.
type SendEventResponse struct {
	EventID ref.EventID `json:"event_id"`
}

// WhoAmIResponse is returned by WhoAmI.
type WhoAmIResponse struct {
	UserID   ref.UserID `json:"user_id"`
	DeviceID string     `json:"device_id,omitempty"`
}

// JoinedRoomsResponse is returned by JoinedRooms.
type JoinedRoomsResponse struct {
	JoinedRooms []ref.RoomID `json:"joined_rooms"`
}

// ServerVersionsResponse is returned by Client.ServerVersions.
type ServerVersionsResponse struct {
	Versions         []string        `json:"versions"`
	UnstableFeatures map[string]bool `json:"unstable_features,omitempty"`
}

// RegisterFilterResponse is returned by the filter registration
// endpoint.
type RegisterFilterResponse struct {
	FilterID ref.FilterID `json:"filter_id"`
}
