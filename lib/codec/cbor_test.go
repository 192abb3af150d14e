// Copyright 2026 The Driftline Authors
// SPDX-License-Identifier: Apache-2.0

package codec

import (
	"bytes"
	"testing"

	"github.com/driftline/driftline/lib/ref"
)

func TestRoundTripRefTypes(t *testing.T) {
	type state struct {
		Cursor string       `cbor:"cursor"`
		Room   ref.RoomID   `cbor:"room"`
		Filter ref.FilterID `cbor:"filter"`
	}
	original := state{
		Cursor: "s100",
		Room:   ref.MustParseRoomID("!room:example.org"),
		Filter: ref.FilterID("f1"),
	}

	data, err := Marshal(original)
	if err != nil {
		t.Fatalf("Marshal failed: %v", err)
	}

	var decoded state
	if err := Unmarshal(data, &decoded); err != nil {
		t.Fatalf("Unmarshal failed: %v", err)
	}
	if decoded != original {
		t.Errorf("round trip = %+v, want %+v", decoded, original)
	}
}

func TestEncodingIsDeterministic(t *testing.T) {
	value := map[string]int{"zebra": 1, "alpha": 2, "mid": 3}

	first, err := Marshal(value)
	if err != nil {
		t.Fatalf("Marshal failed: %v", err)
	}
	for i := 0; i < 10; i++ {
		again, err := Marshal(value)
		if err != nil {
			t.Fatalf("Marshal failed: %v", err)
		}
		if !bytes.Equal(first, again) {
			t.Fatal("same value encoded to different bytes")
		}
	}
}

func TestDecodeIntoAnyUsesStringKeyedMaps(t *testing.T) {
	data, err := Marshal(map[string]any{"outer": map[string]any{"inner": "value"}})
	if err != nil {
		t.Fatalf("Marshal failed: %v", err)
	}

	var decoded any
	if err := Unmarshal(data, &decoded); err != nil {
		t.Fatalf("Unmarshal failed: %v", err)
	}
	outer, ok := decoded.(map[string]any)
	if !ok {
		t.Fatalf("decoded type = %T, want map[string]any", decoded)
	}
	if _, ok := outer["outer"].(map[string]any); !ok {
		t.Fatalf("nested type = %T, want map[string]any", outer["outer"])
	}
}
