// Copyright 2026 The Driftline Authors
// SPDX-License-Identifier: Apache-2.0

package rooms

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"

	"github.com/driftline/driftline/lib/ref"
	"github.com/driftline/driftline/messaging"
	"github.com/driftline/driftline/syncer"
)

// ReconcilerConfig configures a Reconciler. OwnUserID is required: the
// local user is excluded from hero lists during name derivation, and
// bans are told apart from leaves by the local user's member event.
type ReconcilerConfig struct {
	OwnUserID ref.UserID

	// Logger defaults to slog.Default.
	Logger *slog.Logger
}

// Reconciler folds sync payload deltas into the room cache and
// publishes a full-cache snapshot after every payload.
//
// Apply must not be called concurrently with itself. Run enforces this
// by consuming payloads sequentially from one channel; Snapshot and
// Subscribe are safe from any goroutine.
type Reconciler struct {
	ownUserID ref.UserID
	logger    *slog.Logger
	snapshots *syncer.Broadcaster[[]Room]

	mu     sync.Mutex
	cache  map[ref.RoomID]*Room
	direct DirectIndex
}

// NewReconciler creates an empty room cache.
func NewReconciler(config ReconcilerConfig) (*Reconciler, error) {
	if config.OwnUserID.IsZero() {
		return nil, fmt.Errorf("rooms: ReconcilerConfig.OwnUserID is required")
	}
	if config.Logger == nil {
		config.Logger = slog.Default()
	}
	return &Reconciler{
		ownUserID: config.OwnUserID,
		logger:    config.Logger,
		snapshots: syncer.NewBroadcaster[[]Room](config.Logger),
		cache:     make(map[ref.RoomID]*Room),
	}, nil
}

// Run consumes payloads until the channel closes or the context is
// canceled. Pass a sync loop subscription's channel.
func (r *Reconciler) Run(ctx context.Context, payloads <-chan *messaging.SyncPayload) {
	for {
		select {
		case <-ctx.Done():
			return
		case payload, ok := <-payloads:
			if !ok {
				return
			}
			r.Apply(payload)
		}
	}
}

// Subscribe registers a snapshot subscriber. Delivery follows
// Broadcaster semantics: a subscriber that falls behind loses older
// snapshots, which is harmless because every snapshot is complete.
func (r *Reconciler) Subscribe(buffer int) *syncer.Subscription[[]Room] {
	return r.snapshots.Subscribe(buffer)
}

// Snapshot returns a deep copy of the current room set, sorted by room
// ID.
func (r *Reconciler) Snapshot() []Room {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.snapshotLocked()
}

// Apply folds one payload into the cache and publishes a snapshot.
// The top-level m.direct account-data event is handled first so rooms
// arriving in the same payload see the fresh index.
func (r *Reconciler) Apply(payload *messaging.SyncPayload) {
	r.mu.Lock()

	for _, event := range payload.AccountData {
		if event.Type != messaging.EventTypeDirect {
			continue
		}
		// Full replacement: the event carries the entire mapping, so
		// every cached room's flag is re-evaluated, including rooms
		// with no delta in this payload.
		r.direct = BuildDirectIndex(event.Content)
		for _, room := range r.cache {
			room.IsDirect = r.direct.Contains(room.ID)
		}
		r.logger.Debug("direct message index replaced", "users", r.direct.Users())
	}

	for _, delta := range payload.Rooms {
		r.applyRoom(delta)
	}

	snapshot := r.snapshotLocked()
	r.mu.Unlock()

	r.snapshots.Publish(snapshot)
}

func (r *Reconciler) applyRoom(delta messaging.RoomSync) {
	switch delta.Membership {
	case messaging.MembershipLeave, messaging.MembershipBan:
		// Unconditional: deleting an uncached room is a no-op, not an
		// error.
		delete(r.cache, delta.RoomID)
		return
	}

	room, exists := r.cache[delta.RoomID]
	if !exists {
		room = &Room{
			ID:           delta.RoomID,
			Members:      make(map[ref.UserID]Member),
			currentState: make(map[stateRef]messaging.Event),
		}
		r.cache[delta.RoomID] = room
	}
	room.Membership = delta.Membership

	r.mergeState(room, delta.State)
	r.mergeSummary(room, delta.Summary)

	if len(delta.Timeline) > 0 {
		last := delta.Timeline[len(delta.Timeline)-1]
		room.LastEvent = &last
	}
	room.UnreadCount = delta.Unread.NotificationCount
	room.HighlightCount = delta.Unread.HighlightCount

	room.IsDirect = r.direct.Contains(room.ID)
	room.Name = deriveName(room.explicitName, room.Heroes, r.ownUserID, room.JoinedMemberCount)
}

// mergeState applies the delta's state sequence in order. Name, topic,
// and avatar move only on a non-empty incoming value; the member list
// and the current-state index are rebuilt from this delta, because
// under lazy loading the server resends the full applicable state set
// each time.
func (r *Reconciler) mergeState(room *Room, state []messaging.Event) {
	if len(state) == 0 {
		return
	}

	members := make(map[ref.UserID]Member)
	currentState := make(map[stateRef]messaging.Event, len(state))

	for _, event := range state {
		if event.StateKey == nil {
			continue
		}
		currentState[stateRef{eventType: event.Type, stateKey: *event.StateKey}] = event

		switch event.Type {
		case messaging.EventTypeName:
			if name := event.RoomName(); name != "" {
				room.explicitName = name
			}
		case messaging.EventTypeTopic:
			if topic := event.RoomTopic(); topic != "" {
				room.Topic = topic
			}
		case messaging.EventTypeAvatar:
			if avatar := event.RoomAvatarURL(); avatar != "" {
				room.AvatarURL = avatar
			}
		case messaging.EventTypeMember:
			userID, err := ref.ParseUserID(*event.StateKey)
			if err != nil {
				r.logger.Warn("skipping member event with malformed state key",
					"room_id", room.ID, "state_key", *event.StateKey, "error", err)
				continue
			}
			// Joined members only; within one delta a later event for
			// the same user wins.
			if event.Membership() != messaging.MembershipJoin {
				delete(members, userID)
				continue
			}
			members[userID] = Member{
				UserID:      userID,
				DisplayName: event.MemberDisplayName(),
				AvatarURL:   event.MemberAvatarURL(),
			}
		}
	}

	room.Members = members
	room.currentState = currentState
}

// mergeSummary replaces heroes and counts from the delta's summary.
// Absent summary fields mean "unchanged", not zero — the server omits
// the summary when nothing moved.
func (r *Reconciler) mergeSummary(room *Room, summary messaging.RoomSummary) {
	if summary.Heroes != nil {
		room.Heroes = summary.Heroes
	}
	if summary.JoinedMemberCount != nil {
		room.JoinedMemberCount = *summary.JoinedMemberCount
	}
	if summary.InvitedMemberCount != nil {
		room.InvitedMemberCount = *summary.InvitedMemberCount
	}
}

func (r *Reconciler) snapshotLocked() []Room {
	snapshot := make([]Room, 0, len(r.cache))
	for _, room := range r.cache {
		snapshot = append(snapshot, copyRoom(room))
	}
	sort.Slice(snapshot, func(i, j int) bool {
		return snapshot[i].ID.String() < snapshot[j].ID.String()
	})
	return snapshot
}
