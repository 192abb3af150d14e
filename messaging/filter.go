// Copyright 2026 The Driftline Authors
// SPDX-License-Identifier: Apache-2.0

package messaging

import (
	"encoding/json"
	"fmt"

	"github.com/tidwall/jsonc"
)

// Filter is a Matrix sync filter definition, uploaded once per session
// via Session.RegisterFilter and referenced by ID in sync requests.
type Filter struct {
	Room        *RoomFilter  `json:"room,omitempty"`
	AccountData *EventFilter `json:"account_data,omitempty"`
	Presence    *EventFilter `json:"presence,omitempty"`
}

// RoomFilter scopes the room portion of a sync filter.
type RoomFilter struct {
	State       *EventFilter `json:"state,omitempty"`
	Timeline    *EventFilter `json:"timeline,omitempty"`
	Ephemeral   *EventFilter `json:"ephemeral,omitempty"`
	AccountData *EventFilter `json:"account_data,omitempty"`
}

// EventFilter restricts one event sequence of a sync filter.
type EventFilter struct {
	Types           []string `json:"types,omitempty"`
	NotTypes        []string `json:"not_types,omitempty"`
	Limit           int      `json:"limit,omitempty"`
	LazyLoadMembers bool     `json:"lazy_load_members,omitempty"`
}

// defaultTimelineLimit keeps the per-room timeline page small; history
// is fetched on demand through pagination, not through /sync.
const defaultTimelineLimit = 20

// DefaultSyncFilter returns the filter the sync engine negotiates when
// no custom filter is configured: the state event types the reconciler
// consumes, lazy member loading (heroes instead of full member lists),
// a small timeline page, typing and receipt ephemeral events, and the
// m.direct account-data index.
func DefaultSyncFilter() *Filter {
	stateTypes := []string{
		EventTypeMember.String(),
		EventTypeName.String(),
		EventTypeTopic.String(),
		EventTypeAvatar.String(),
		EventTypeCanonicalAlias.String(),
	}
	return &Filter{
		Room: &RoomFilter{
			State: &EventFilter{
				Types:           stateTypes,
				LazyLoadMembers: true,
			},
			Timeline: &EventFilter{
				Limit:           defaultTimelineLimit,
				LazyLoadMembers: true,
			},
			Ephemeral: &EventFilter{
				Types: []string{EventTypeTyping.String(), EventTypeReceipt.String()},
			},
			AccountData: &EventFilter{
				Types: []string{EventTypeDirect.String()},
			},
		},
		AccountData: &EventFilter{
			Types: []string{EventTypeDirect.String()},
		},
	}
}

// ParseFilterDefinition parses a filter definition from JSONC (JSON
// with comments and trailing commas), the format driftline uses for
// on-disk filter files so they can be annotated.
func ParseFilterDefinition(data []byte) (*Filter, error) {
	stripped := jsonc.ToJSON(data)

	var filter Filter
	if err := json.Unmarshal(stripped, &filter); err != nil {
		return nil, fmt.Errorf("messaging: parsing filter definition: %w", err)
	}
	return &filter, nil
}
