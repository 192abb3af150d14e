// Copyright 2026 The Driftline Authors
// SPDX-License-Identifier: Apache-2.0

package rooms

import (
	"fmt"
	"strings"

	"github.com/driftline/driftline/lib/ref"
)

// deriveName computes a room's display name. Priority order: the
// explicit name if non-empty; otherwise the heroes (excluding the local
// user) — one hero's localpart, or two to three comma-joined
// localparts; otherwise a count-based fallback. Never returns "".
func deriveName(explicit string, heroes []ref.UserID, ownUserID ref.UserID, joinedCount int) string {
	if explicit != "" {
		return explicit
	}

	others := make([]string, 0, len(heroes))
	for _, hero := range heroes {
		if hero == ownUserID {
			continue
		}
		others = append(others, hero.Localpart())
	}

	switch {
	case len(others) >= 1 && len(others) <= 3:
		return strings.Join(others, ", ")
	case len(others) > 3:
		return fmt.Sprintf("Group (%d members)", joinedCount)
	}

	if joinedCount <= 2 {
		return "Direct Message"
	}
	return fmt.Sprintf("Group (%d members)", joinedCount)
}
