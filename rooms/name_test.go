// Copyright 2026 The Driftline Authors
// SPDX-License-Identifier: Apache-2.0

package rooms

import (
	"testing"

	"github.com/driftline/driftline/lib/ref"
)

func TestDeriveName(t *testing.T) {
	alice := ref.MustParseUserID("@alice:x")
	heroes := func(ids ...string) []ref.UserID {
		out := make([]ref.UserID, len(ids))
		for i, id := range ids {
			out[i] = ref.MustParseUserID(id)
		}
		return out
	}

	tests := []struct {
		name     string
		explicit string
		heroes   []ref.UserID
		joined   int
		want     string
	}{
		{"explicit name wins", "Ops Channel", heroes("@bob:x"), 5, "Ops Channel"},
		{"single hero", "", heroes("@bob:x"), 2, "bob"},
		{"two heroes comma joined", "", heroes("@bob:x", "@carol:x"), 3, "bob, carol"},
		{"three heroes comma joined", "", heroes("@bob:x", "@carol:x", "@dan:x"), 4, "bob, carol, dan"},
		{"four heroes fall back to count", "", heroes("@bob:x", "@carol:x", "@dan:x", "@erin:x"), 5, "Group (5 members)"},
		{"own user excluded", "", heroes("@alice:x", "@bob:x"), 2, "bob"},
		{"only own user left", "", heroes("@alice:x"), 2, "Direct Message"},
		{"no heroes small room", "", nil, 2, "Direct Message"},
		{"no heroes large room", "", nil, 7, "Group (7 members)"},
		{"empty everything", "", nil, 0, "Direct Message"},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			got := deriveName(test.explicit, test.heroes, alice, test.joined)
			if got != test.want {
				t.Errorf("deriveName = %q, want %q", got, test.want)
			}
			if got == "" {
				t.Error("deriveName returned empty string")
			}
		})
	}
}
