// Copyright 2026 The Driftline Authors
// SPDX-License-Identifier: Apache-2.0

package ref

import (
	"fmt"
	"strings"
)

// parseSigilID splits a Matrix identifier of the form
// "<sigil>localpart:server" and validates its structure. The sigil is
// '@' for user IDs and '!' for room IDs. Returns the localpart and
// server name.
func parseSigilID(raw string, sigil byte, label string) (localpart, server string, err error) {
	if raw == "" {
		return "", "", fmt.Errorf("empty %s", label)
	}
	if raw[0] != sigil {
		return "", "", fmt.Errorf("%s must start with %q: %q", label, string(sigil), raw)
	}

	colonIndex := strings.IndexByte(raw[1:], ':')
	if colonIndex < 0 {
		return "", "", fmt.Errorf("%s missing ':server' suffix: %q", label, raw)
	}
	if colonIndex == 0 {
		return "", "", fmt.Errorf("%s has empty localpart: %q", label, raw)
	}

	localpart = raw[1 : 1+colonIndex]
	server = raw[1+colonIndex+1:]
	if err := validateServer(server, label); err != nil {
		return "", "", err
	}
	return localpart, server, nil
}

// validateServer checks that a Matrix server name is minimally valid:
// non-empty, no control characters, no Matrix sigils. Full DNS/IP
// grammar validation is left to the homeserver — these types only
// reject values that are structurally not identifiers.
func validateServer(server, label string) error {
	if server == "" {
		return fmt.Errorf("%s has empty server name", label)
	}
	for i := 0; i < len(server); i++ {
		c := server[i]
		if c < 0x21 || c == '@' || c == '!' || c == '#' || c == '$' {
			return fmt.Errorf("%s has invalid character %q in server name", label, c)
		}
	}
	return nil
}
