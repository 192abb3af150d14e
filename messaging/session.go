// Copyright 2026 The Driftline Authors
// SPDX-License-Identifier: Apache-2.0

package messaging

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/driftline/driftline/lib/ref"
	"github.com/driftline/driftline/lib/secret"
)

// Session is an authenticated Matrix session. It wraps a Client with a
// bearer token for making authenticated API calls.
//
// The access token is stored in a secret.Buffer (mmap-backed, locked
// against swap, excluded from core dumps). The caller must call Close
// when the Session is no longer needed.
type Session struct {
	client      *Client
	accessToken *secret.Buffer
	userID      ref.UserID

	// transactionCounter generates unique transaction IDs for
	// idempotent sends.
	transactionCounter atomic.Int64
}

// UserID returns the fully-qualified Matrix user ID
// (e.g., "@alice:example.org").
func (s *Session) UserID() ref.UserID {
	return s.userID
}

// CloseIdleConnections closes idle HTTP connections in the underlying
// transport's connection pool. Call this after a sync error to force
// the next request to establish a fresh TCP connection.
func (s *Session) CloseIdleConnections() {
	s.client.CloseIdleConnections()
}

// Close releases the access token memory (zeros, unlocks, unmaps).
// Idempotent — safe to call multiple times.
func (s *Session) Close() error {
	if s.accessToken != nil {
		return s.accessToken.Close()
	}
	return nil
}

// WhoAmI validates the access token and returns the user ID. Useful
// for checking whether a stored token is still valid, and for learning
// the own-user ID when only a token was supplied.
func (s *Session) WhoAmI(ctx context.Context) (ref.UserID, error) {
	body, err := s.client.doRequest(ctx, http.MethodGet, "/_matrix/client/v3/account/whoami", s.accessToken, nil)
	if err != nil {
		return ref.UserID{}, fmt.Errorf("messaging: whoami failed: %w", err)
	}

	var response WhoAmIResponse
	if err := json.Unmarshal(body, &response); err != nil {
		return ref.UserID{}, fmt.Errorf("messaging: failed to parse whoami response: %w", err)
	}
	return response.UserID, nil
}

// Sync performs one incremental sync request with the homeserver.
// Sync is stateless: the since token travels as a query parameter, so
// any number of independent sync positions can be maintained over one
// Session. The sync loop in the syncer package owns the cursor and
// retry policy; call this directly only for one-shot position capture.
func (s *Session) Sync(ctx context.Context, options SyncOptions) (*SyncResponse, error) {
	query := url.Values{}
	if options.Since != "" {
		query.Set("since", options.Since)
	}
	if options.SetTimeout {
		query.Set("timeout", strconv.Itoa(options.Timeout))
	}
	if !options.Filter.IsZero() {
		query.Set("filter", options.Filter.String())
	}

	body, err := s.client.doRequest(ctx, http.MethodGet, "/_matrix/client/v3/sync", s.accessToken, nil, query)
	if err != nil {
		return nil, fmt.Errorf("messaging: sync failed: %w", err)
	}

	var response SyncResponse
	if err := json.Unmarshal(body, &response); err != nil {
		return nil, fmt.Errorf("messaging: failed to parse sync response: %w", err)
	}
	return &response, nil
}

// RegisterFilter uploads a sync filter definition and returns the
// server-assigned filter ID to reference in sync requests.
func (s *Session) RegisterFilter(ctx context.Context, filter *Filter) (ref.FilterID, error) {
	path := "/_matrix/client/v3/user/" + url.PathEscape(s.userID.String()) + "/filter"
	body, err := s.client.doRequest(ctx, http.MethodPost, path, s.accessToken, filter)
	if err != nil {
		return "", fmt.Errorf("messaging: filter registration failed: %w", err)
	}

	var response RegisterFilterResponse
	if err := json.Unmarshal(body, &response); err != nil {
		return "", fmt.Errorf("messaging: failed to parse filter response: %w", err)
	}
	if response.FilterID.IsZero() {
		return "", fmt.Errorf("messaging: filter response missing filter_id")
	}

	s.client.logger.Info("registered sync filter",
		"user_id", s.userID,
		"filter_id", response.FilterID,
	)
	return response.FilterID, nil
}

// SendMessage sends a message to a room. Returns the event ID.
func (s *Session) SendMessage(ctx context.Context, roomID ref.RoomID, content MessageContent) (ref.EventID, error) {
	return s.SendEvent(ctx, roomID, EventTypeMessage, content)
}

// SendEvent sends an event of any type to a room using an idempotent
// transaction ID. Returns the event ID.
func (s *Session) SendEvent(ctx context.Context, roomID ref.RoomID, eventType ref.EventType, content any) (ref.EventID, error) {
	path := "/_matrix/client/v3/rooms/" + url.PathEscape(roomID.String()) +
		"/send/" + url.PathEscape(eventType.String()) +
		"/" + url.PathEscape(s.nextTransactionID())
	body, err := s.client.doRequest(ctx, http.MethodPut, path, s.accessToken, content)
	if err != nil {
		return ref.EventID{}, fmt.Errorf("messaging: send %s to %s failed: %w", eventType, roomID, err)
	}

	var response SendEventResponse
	if err := json.Unmarshal(body, &response); err != nil {
		return ref.EventID{}, fmt.Errorf("messaging: failed to parse send response: %w", err)
	}
	return response.EventID, nil
}

// SendStateEvent sends a state event to a room. Returns the event ID.
func (s *Session) SendStateEvent(ctx context.Context, roomID ref.RoomID, eventType ref.EventType, stateKey string, content any) (ref.EventID, error) {
	path := "/_matrix/client/v3/rooms/" + url.PathEscape(roomID.String()) +
		"/state/" + url.PathEscape(eventType.String()) +
		"/" + url.PathEscape(stateKey)
	body, err := s.client.doRequest(ctx, http.MethodPut, path, s.accessToken, content)
	if err != nil {
		return ref.EventID{}, fmt.Errorf("messaging: send state %s to %s failed: %w", eventType, roomID, err)
	}

	var response SendEventResponse
	if err := json.Unmarshal(body, &response); err != nil {
		return ref.EventID{}, fmt.Errorf("messaging: failed to parse send response: %w", err)
	}
	return response.EventID, nil
}

// JoinRoom joins a room by room ID. Returns the room ID.
func (s *Session) JoinRoom(ctx context.Context, roomID ref.RoomID) (ref.RoomID, error) {
	path := "/_matrix/client/v3/join/" + url.PathEscape(roomID.String())
	body, err := s.client.doRequest(ctx, http.MethodPost, path, s.accessToken, struct{}{})
	if err != nil {
		return ref.RoomID{}, fmt.Errorf("messaging: join room %s failed: %w", roomID, err)
	}

	var response struct {
		RoomID ref.RoomID `json:"room_id"`
	}
	if err := json.Unmarshal(body, &response); err != nil {
		return ref.RoomID{}, fmt.Errorf("messaging: failed to parse join response: %w", err)
	}
	return response.RoomID, nil
}

// LeaveRoom leaves a room. The next sync cycle reports the room under
// the leave section and the reconciler drops it from the cache.
func (s *Session) LeaveRoom(ctx context.Context, roomID ref.RoomID) error {
	path := "/_matrix/client/v3/rooms/" + url.PathEscape(roomID.String()) + "/leave"
	if _, err := s.client.doRequest(ctx, http.MethodPost, path, s.accessToken, struct{}{}); err != nil {
		return fmt.Errorf("messaging: leave room %s failed: %w", roomID, err)
	}
	return nil
}

// JoinedRooms returns the list of room IDs the user has joined.
func (s *Session) JoinedRooms(ctx context.Context) ([]ref.RoomID, error) {
	body, err := s.client.doRequest(ctx, http.MethodGet, "/_matrix/client/v3/joined_rooms", s.accessToken, nil)
	if err != nil {
		return nil, fmt.Errorf("messaging: joined rooms failed: %w", err)
	}

	var response JoinedRoomsResponse
	if err := json.Unmarshal(body, &response); err != nil {
		return nil, fmt.Errorf("messaging: failed to parse joined rooms response: %w", err)
	}
	return response.JoinedRooms, nil
}

// nextTransactionID returns a transaction ID unique within this
// session's lifetime. Matrix deduplicates resent events by (token,
// transaction ID), which is what makes SendEvent safe to retry.
func (s *Session) nextTransactionID() string {
	return fmt.Sprintf("driftline.%d.%d", time.Now().UnixMilli(), s.transactionCounter.Add(1))
}
