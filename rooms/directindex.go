// Copyright 2026 The Driftline Authors
// SPDX-License-Identifier: Apache-2.0

package rooms

import (
	"github.com/driftline/driftline/lib/ref"
)

// DirectIndex maps users to the rooms marked as direct chats with
// them. It is rebuilt wholesale from each m.direct account-data event;
// the server sends the full mapping every time, never an increment.
//
// A room is direct if and only if it appears in any user's room set of
// the index in effect at evaluation time.
type DirectIndex struct {
	byUser map[ref.UserID][]ref.RoomID
	rooms  map[ref.RoomID]struct{}
}

// BuildDirectIndex constructs a DirectIndex from m.direct event
// content: a mapping of user ID to a list of room IDs. Entries that do
// not parse are skipped; the content comes off the wire and a single
// bad entry must not discard the mapping.
func BuildDirectIndex(content map[string]any) DirectIndex {
	index := DirectIndex{
		byUser: make(map[ref.UserID][]ref.RoomID),
		rooms:  make(map[ref.RoomID]struct{}),
	}
	for rawUser, rawRooms := range content {
		userID, err := ref.ParseUserID(rawUser)
		if err != nil {
			continue
		}
		list, ok := rawRooms.([]any)
		if !ok {
			continue
		}
		for _, rawRoom := range list {
			value, ok := rawRoom.(string)
			if !ok {
				continue
			}
			roomID, err := ref.ParseRoomID(value)
			if err != nil {
				continue
			}
			index.byUser[userID] = append(index.byUser[userID], roomID)
			index.rooms[roomID] = struct{}{}
		}
	}
	return index
}

// Contains reports whether roomID is flagged direct.
func (i DirectIndex) Contains(roomID ref.RoomID) bool {
	_, ok := i.rooms[roomID]
	return ok
}

// Rooms returns the direct rooms recorded for userID.
func (i DirectIndex) Rooms(userID ref.UserID) []ref.RoomID {
	return i.byUser[userID]
}

// Users returns the number of users with at least one direct room.
func (i DirectIndex) Users() int { return len(i.byUser) }
