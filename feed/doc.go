// Copyright 2026 The Driftline Authors
// SPDX-License-Identifier: Apache-2.0

// Package feed derives narrow views from the raw sync payload stream.
//
// Every projection is a stateless, pure function of one payload:
// flattened timeline events, state events, typing and receipt feeds,
// presence. Nothing here caches or deduplicates — the sync loop is
// sequential and never delivers a payload twice, so a projection's
// output is exactly its input reshaped.
//
// For push-style consumption, Stream adapts any projection into a
// channel fed from a sync loop subscription. Each Stream call consumes
// its own upstream channel; attach one loop subscription per stream.
package feed
