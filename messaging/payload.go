// Copyright 2026 The Driftline Authors
// SPDX-License-Identifier: Apache-2.0

package messaging

import (
	"encoding/json"
	"log/slog"
	"sort"

	"github.com/driftline/driftline/lib/ref"
)

// SyncPayload is the normalized form of a /sync response: every event
// decoded, room IDs validated and stamped onto their events, invite
// state folded into the common shape, and malformed entries dropped.
// This is what the sync loop broadcasts to subscribers.
type SyncPayload struct {
	// NextBatch is the opaque cursor for the next sync request. Once a
	// payload is observed, the loop persists this token regardless of
	// whether downstream reconciliation succeeds.
	NextBatch string

	// Rooms holds one delta per room, join rooms first, then invite,
	// then leave/ban. Order across rooms carries no semantics; within
	// a category rooms are sorted by ID for determinism.
	Rooms []RoomSync

	AccountData []Event
	Presence    []Event
	ToDevice    []Event

	// Opaque pass-through for an encryption layer.
	DeviceLists            json.RawMessage
	DeviceOneTimeKeysCount map[string]int
}

// RoomSync is the incremental delta for one room in one sync cycle.
// It is transient: the reconciler consumes it and discards it.
type RoomSync struct {
	RoomID     ref.RoomID
	Membership Membership

	Timeline    []Event
	State       []Event
	Ephemeral   []Event
	AccountData []Event

	Summary RoomSummary
	Unread  UnreadNotifications
}

// Normalize decodes the raw response into a SyncPayload. Malformed
// room entries and events are skipped and logged; everything that
// parses is kept, so a single bad entry never costs the cycle
// (the cursor still advances and the rest of the payload is
// delivered).
//
// ownUserID is used to distinguish a ban from an ordinary leave: the
// server groups both under the leave section, and the caller's own
// m.room.member event carries the actual membership.
func (r *SyncResponse) Normalize(ownUserID ref.UserID, logger *slog.Logger) *SyncPayload {
	if logger == nil {
		logger = slog.Default()
	}

	payload := &SyncPayload{
		NextBatch:              r.NextBatch,
		AccountData:            decodeEvents(r.AccountData.Events, ref.RoomID{}, "account_data", logger),
		Presence:               decodeEvents(r.Presence.Events, ref.RoomID{}, "presence", logger),
		ToDevice:               decodeEvents(r.ToDevice.Events, ref.RoomID{}, "to_device", logger),
		DeviceLists:            r.DeviceLists,
		DeviceOneTimeKeysCount: r.DeviceOneTimeKeysCount,
	}

	for _, rawRoomID := range sortedKeys(r.Rooms.Join) {
		roomID, ok := parseRoomKey(rawRoomID, "join", logger)
		if !ok {
			continue
		}
		var room JoinedRoom
		if err := json.Unmarshal(r.Rooms.Join[rawRoomID], &room); err != nil {
			logger.Warn("skipping malformed room entry",
				"section", "join", "room_id", rawRoomID, "error", err)
			continue
		}
		payload.Rooms = append(payload.Rooms, RoomSync{
			RoomID:      roomID,
			Membership:  MembershipJoin,
			Timeline:    decodeEvents(room.Timeline.Events, roomID, "timeline", logger),
			State:       decodeEvents(room.State.Events, roomID, "state", logger),
			Ephemeral:   decodeEvents(room.Ephemeral.Events, roomID, "ephemeral", logger),
			AccountData: decodeEvents(room.AccountData.Events, roomID, "account_data", logger),
			Summary:     room.Summary,
			Unread:      room.UnreadNotifications,
		})
	}

	for _, rawRoomID := range sortedKeys(r.Rooms.Invite) {
		roomID, ok := parseRoomKey(rawRoomID, "invite", logger)
		if !ok {
			continue
		}
		var room InvitedRoom
		if err := json.Unmarshal(r.Rooms.Invite[rawRoomID], &room); err != nil {
			logger.Warn("skipping malformed room entry",
				"section", "invite", "room_id", rawRoomID, "error", err)
			continue
		}
		// Invite rooms carry stripped state under invite_state;
		// normalized to the State sequence joined rooms use so the
		// reconciler sees one shape.
		payload.Rooms = append(payload.Rooms, RoomSync{
			RoomID:     roomID,
			Membership: MembershipInvite,
			State:      decodeEvents(room.InviteState.Events, roomID, "invite_state", logger),
		})
	}

	for _, rawRoomID := range sortedKeys(r.Rooms.Leave) {
		roomID, ok := parseRoomKey(rawRoomID, "leave", logger)
		if !ok {
			continue
		}
		var room LeftRoom
		if err := json.Unmarshal(r.Rooms.Leave[rawRoomID], &room); err != nil {
			logger.Warn("skipping malformed room entry",
				"section", "leave", "room_id", rawRoomID, "error", err)
			continue
		}
		state := decodeEvents(room.State.Events, roomID, "state", logger)
		timeline := decodeEvents(room.Timeline.Events, roomID, "timeline", logger)
		payload.Rooms = append(payload.Rooms, RoomSync{
			RoomID:     roomID,
			Membership: leaveKind(state, timeline, ownUserID),
			Timeline:   timeline,
			State:      state,
		})
	}

	return payload
}

// leaveKind distinguishes a ban from an ordinary leave. The server
// groups both under the leave section; the caller's own m.room.member
// event in the delta carries the actual membership.
func leaveKind(state, timeline []Event, ownUserID ref.UserID) Membership {
	membership := MembershipLeave
	for _, events := range [][]Event{state, timeline} {
		for _, event := range events {
			if event.Type != EventTypeMember || event.StateKey == nil {
				continue
			}
			if *event.StateKey != ownUserID.String() {
				continue
			}
			if event.Membership() == MembershipBan {
				membership = MembershipBan
			}
		}
	}
	return membership
}

// decodeEvents decodes a raw event sequence, stamping roomID onto each
// event. Events that fail to decode or carry no type are skipped and
// logged — partial success is preferred over discarding the sequence.
func decodeEvents(raws []json.RawMessage, roomID ref.RoomID, section string, logger *slog.Logger) []Event {
	if len(raws) == 0 {
		return nil
	}
	events := make([]Event, 0, len(raws))
	for _, raw := range raws {
		var event Event
		if err := json.Unmarshal(raw, &event); err != nil {
			logger.Warn("skipping malformed event",
				"section", section, "room_id", roomID, "error", err)
			continue
		}
		if event.Type == "" {
			logger.Warn("skipping event without type",
				"section", section, "room_id", roomID)
			continue
		}
		event.RoomID = roomID
		events = append(events, event)
	}
	if len(events) == 0 {
		return nil
	}
	return events
}

func parseRoomKey(raw, section string, logger *slog.Logger) (ref.RoomID, bool) {
	roomID, err := ref.ParseRoomID(raw)
	if err != nil {
		logger.Warn("skipping room entry with malformed room ID",
			"section", section, "room_id", raw, "error", err)
		return ref.RoomID{}, false
	}
	return roomID, true
}

// sortedKeys returns the map keys in sorted order. Go map iteration
// order is random; sorting keeps payload room order deterministic for
// reconciliation snapshots and tests.
func sortedKeys(rooms map[string]json.RawMessage) []string {
	if len(rooms) == 0 {
		return nil
	}
	keys := make([]string, 0, len(rooms))
	for key := range rooms {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}
