// Copyright 2026 The Driftline Authors
// SPDX-License-Identifier: Apache-2.0

package feed

import (
	"context"

	"github.com/driftline/driftline/lib/ref"
	"github.com/driftline/driftline/messaging"
)

// RoomUpdates returns the payload's per-room deltas in payload order.
func RoomUpdates(payload *messaging.SyncPayload) []messaging.RoomSync {
	return payload.Rooms
}

// TimelineEvents flattens every room's timeline into one sequence, in
// payload order. Each event carries its room ID.
func TimelineEvents(payload *messaging.SyncPayload) []messaging.Event {
	var events []messaging.Event
	for _, room := range payload.Rooms {
		events = append(events, room.Timeline...)
	}
	return events
}

// RoomTimeline returns the timeline events for a single room. A room
// absent from the payload yields nil; callers replay the stream, not a
// cache.
func RoomTimeline(payload *messaging.SyncPayload, roomID ref.RoomID) []messaging.Event {
	for _, room := range payload.Rooms {
		if room.RoomID == roomID {
			return room.Timeline
		}
	}
	return nil
}

// StateEvents flattens every room's state sequence into one sequence,
// in payload order.
func StateEvents(payload *messaging.SyncPayload) []messaging.Event {
	var events []messaging.Event
	for _, room := range payload.Rooms {
		events = append(events, room.State...)
	}
	return events
}

// Messages returns the flattened timeline filtered to m.room.message
// events.
func Messages(payload *messaging.SyncPayload) []messaging.Event {
	var events []messaging.Event
	for _, room := range payload.Rooms {
		for _, event := range room.Timeline {
			if event.IsMessage() {
				events = append(events, event)
			}
		}
	}
	return events
}

// TypingUpdate reports who is currently typing in one room. Each
// m.typing event replaces the previous set for its room; an empty
// UserIDs means typing stopped.
type TypingUpdate struct {
	RoomID  ref.RoomID
	UserIDs []ref.UserID
}

// Typing extracts typing notifications from the payload's ephemeral
// sequences. Malformed user IDs inside an event are skipped, the rest
// of the event is kept.
func Typing(payload *messaging.SyncPayload) []TypingUpdate {
	var updates []TypingUpdate
	for _, room := range payload.Rooms {
		for _, event := range room.Ephemeral {
			if event.Type != messaging.EventTypeTyping {
				continue
			}
			update := TypingUpdate{RoomID: room.RoomID}
			if raw, ok := event.Content["user_ids"].([]any); ok {
				for _, entry := range raw {
					value, ok := entry.(string)
					if !ok {
						continue
					}
					userID, err := ref.ParseUserID(value)
					if err != nil {
						continue
					}
					update.UserIDs = append(update.UserIDs, userID)
				}
			}
			updates = append(updates, update)
		}
	}
	return updates
}

// Receipts returns the payload's m.receipt ephemeral events. Receipt
// content is a nested per-event, per-type, per-user mapping; it is
// passed through undecoded with the room ID attached.
func Receipts(payload *messaging.SyncPayload) []messaging.Event {
	var events []messaging.Event
	for _, room := range payload.Rooms {
		for _, event := range room.Ephemeral {
			if event.Type == messaging.EventTypeReceipt {
				events = append(events, event)
			}
		}
	}
	return events
}

// Presence returns the payload's top-level presence events.
func Presence(payload *messaging.SyncPayload) []messaging.Event {
	return payload.Presence
}

// Stream adapts a projection into a channel. It consumes payloads from
// the upstream channel, applies project to each, and forwards the
// items one at a time. The returned channel closes when upstream
// closes or the context is canceled.
//
// Stream applies no backpressure relief of its own: a consumer that
// stops receiving stalls only this stream's upstream subscription,
// whose broadcaster-side buffer then drops oldest payloads.
func Stream[T any](ctx context.Context, payloads <-chan *messaging.SyncPayload, project func(*messaging.SyncPayload) []T) <-chan T {
	out := make(chan T)
	go func() {
		defer close(out)
		for {
			select {
			case <-ctx.Done():
				return
			case payload, ok := <-payloads:
				if !ok {
					return
				}
				for _, item := range project(payload) {
					select {
					case <-ctx.Done():
						return
					case out <- item:
					}
				}
			}
		}
	}()
	return out
}
