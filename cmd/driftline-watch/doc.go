// Copyright 2026 The Driftline Authors
// SPDX-License-Identifier: Apache-2.0

// driftline-watch runs the sync engine against a Matrix homeserver and
// logs what it sees: room snapshots after every reconciled payload,
// plus message, typing, and presence activity.
//
// Configuration comes from a YAML file named by the DRIFTLINE_CONFIG
// environment variable or the --config flag; individual settings can
// be overridden with flags. The access token is read from a file (or
// stdin with token_file "-") and held in locked memory for the life of
// the process.
//
//	driftline-watch --config driftline.yaml
//	driftline-watch --config driftline.yaml --log-level debug --timeline
package main
