// Copyright 2026 The Driftline Authors
// SPDX-License-Identifier: Apache-2.0

// Package ref provides strongly typed, immutable identity references
// for Matrix protocol identifiers: user IDs, room IDs, event IDs,
// event types, and filter IDs.
//
// Driftline never constructs Matrix identifiers from raw strings deep
// inside the engine — identifiers arrive from the homeserver (login,
// /sync responses, configuration) and are parsed into these types at
// the boundary. All constructors validate the structural format
// defined by the Matrix specification (sigil prefix, localpart,
// server name) and return errors for invalid input.
//
// Once constructed, a ref is immutable. The zero value of each type
// is "unset"; use IsZero to check.
//
// JSON marshaling uses the canonical Matrix string form via
// encoding.TextMarshaler, which also makes the types usable as JSON
// object keys — the /sync rooms sections decode directly into
// map[ref.RoomID] values with validation applied per key.
package ref
