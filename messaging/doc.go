// Copyright 2026 The Driftline Authors
// SPDX-License-Identifier: Apache-2.0

// Package messaging wraps the Matrix client-server API for driftline's
// synchronization engine.
//
// The package provides two core types. [Client] is an unauthenticated
// Matrix client holding the homeserver URL and HTTP transport, shared
// across all Sessions derived from it. [Session] wraps a Client with a
// bearer token for authenticated operations: incremental sync with
// long-polling, sync filter registration, identity verification
// (WhoAmI), room membership control (join, leave, joined rooms), and
// event sending with idempotent transaction IDs.
//
// The wire model lives here too. [SyncResponse] is the raw /sync
// response with room entries and events held as json.RawMessage;
// [SyncResponse.Normalize] converts it into a [SyncPayload] of fully
// decoded [Event] and [RoomSync] values, skipping (and logging)
// malformed entries so that one bad event never discards an entire
// sync cycle. Events are immutable after construction — derived facts
// (state-ness, membership, embedded display names) are computed on
// read by accessor methods.
//
// All API errors are returned as [*MatrixError] with the standard
// Matrix error code (M_FORBIDDEN, M_UNKNOWN_TOKEN, etc.) and HTTP
// status code. [IsMatrixError] tests for a specific error code;
// [IsAuthError] classifies the fatal credential-rejection case that
// the sync loop must not retry. Request URLs are built by string
// concatenation rather than url.URL to avoid double-encoding of path
// segments that contain URL-encoded characters.
package messaging
