// Copyright 2026 The Driftline Authors
// SPDX-License-Identifier: Apache-2.0

package messaging

import (
	"testing"
)

func TestEventDerivedAccessors(t *testing.T) {
	stateKey := "@bob:x"
	member := Event{
		Type:     EventTypeMember,
		StateKey: &stateKey,
		Content: map[string]any{
			"membership":  "join",
			"displayname": "Bob",
			"avatar_url":  "mxc://x/bob",
		},
	}

	if !member.IsState() {
		t.Error("member event with state key not recognized as state")
	}
	if member.IsMessage() {
		t.Error("member event recognized as message")
	}
	if member.Membership() != MembershipJoin {
		t.Errorf("Membership() = %q", member.Membership())
	}
	if member.MemberDisplayName() != "Bob" {
		t.Errorf("MemberDisplayName() = %q", member.MemberDisplayName())
	}
	if member.MemberAvatarURL() != "mxc://x/bob" {
		t.Errorf("MemberAvatarURL() = %q", member.MemberAvatarURL())
	}
}

func TestEventEmptyStateKeyIsState(t *testing.T) {
	// m.room.name uses an empty state key; presence of the key, not
	// its value, marks the event as state.
	emptyKey := ""
	name := Event{Type: EventTypeName, StateKey: &emptyKey, Content: map[string]any{"name": "Ops"}}
	if !name.IsState() {
		t.Error("event with empty state key not recognized as state")
	}
	if name.RoomName() != "Ops" {
		t.Errorf("RoomName() = %q", name.RoomName())
	}

	message := Event{Type: EventTypeMessage, Content: map[string]any{"body": "hi"}}
	if message.IsState() {
		t.Error("message without state key recognized as state")
	}
	if !message.IsMessage() {
		t.Error("m.room.message not recognized as message")
	}
}

func TestEventWrongTypedContentDegradesToZero(t *testing.T) {
	event := Event{
		Type: EventTypeMember,
		Content: map[string]any{
			"membership":  42,           // wrong type
			"displayname": []string{""}, // wrong type
		},
	}
	if event.Membership() != "" {
		t.Errorf("Membership() = %q, want empty", event.Membership())
	}
	if event.MemberDisplayName() != "" {
		t.Errorf("MemberDisplayName() = %q, want empty", event.MemberDisplayName())
	}

	var nilContent Event
	if nilContent.Membership() != "" {
		t.Error("nil content did not degrade to zero value")
	}
}
