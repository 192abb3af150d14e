// Copyright 2026 The Driftline Authors
// SPDX-License-Identifier: Apache-2.0

package messaging

import (
	"encoding/json"
	"testing"
)

func TestDefaultSyncFilterShape(t *testing.T) {
	data, err := json.Marshal(DefaultSyncFilter())
	if err != nil {
		t.Fatalf("marshaling filter: %v", err)
	}

	var decoded map[string]any
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("unmarshaling filter: %v", err)
	}

	room, ok := decoded["room"].(map[string]any)
	if !ok {
		t.Fatal("filter missing room section")
	}

	state, ok := room["state"].(map[string]any)
	if !ok {
		t.Fatal("filter missing room.state section")
	}
	if state["lazy_load_members"] != true {
		t.Error("state filter does not enable lazy member loading")
	}

	timeline, ok := room["timeline"].(map[string]any)
	if !ok {
		t.Fatal("filter missing room.timeline section")
	}
	if timeline["limit"] != float64(defaultTimelineLimit) {
		t.Errorf("timeline limit = %v, want %d", timeline["limit"], defaultTimelineLimit)
	}

	ephemeral, ok := room["ephemeral"].(map[string]any)
	if !ok {
		t.Fatal("filter missing room.ephemeral section")
	}
	types, _ := ephemeral["types"].([]any)
	if len(types) != 2 {
		t.Errorf("ephemeral types = %v, want typing and receipt", types)
	}

	accountData, ok := decoded["account_data"].(map[string]any)
	if !ok {
		t.Fatal("filter missing account_data section")
	}
	adTypes, _ := accountData["types"].([]any)
	if len(adTypes) != 1 || adTypes[0] != "m.direct" {
		t.Errorf("account_data types = %v, want [m.direct]", adTypes)
	}
}

func TestParseFilterDefinitionJSONC(t *testing.T) {
	definition := []byte(`{
		// Only messages, small pages.
		"room": {
			"timeline": {
				"types": ["m.room.message"],
				"limit": 5, // trailing comma below is fine too
			},
		},
	}`)

	filter, err := ParseFilterDefinition(definition)
	if err != nil {
		t.Fatalf("ParseFilterDefinition failed: %v", err)
	}
	if filter.Room == nil || filter.Room.Timeline == nil {
		t.Fatal("parsed filter missing room.timeline")
	}
	if filter.Room.Timeline.Limit != 5 {
		t.Errorf("timeline limit = %d, want 5", filter.Room.Timeline.Limit)
	}
	if len(filter.Room.Timeline.Types) != 1 {
		t.Errorf("timeline types = %v", filter.Room.Timeline.Types)
	}
}

func TestParseFilterDefinitionRejectsGarbage(t *testing.T) {
	if _, err := ParseFilterDefinition([]byte("{not json")); err == nil {
		t.Error("garbage filter definition parsed without error")
	}
}
