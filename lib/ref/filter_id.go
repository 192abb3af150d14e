// Copyright 2026 The Driftline Authors
// SPDX-License-Identifier: Apache-2.0

package ref

// FilterID is an opaque server-assigned sync filter identifier
// returned by the filter registration endpoint. The Matrix spec
// defines no structure for it, so unlike the sigil-prefixed ID types
// there is nothing to validate — the type exists for compile-time
// safety and for the IsZero "no filter negotiated" check.
//
// The zero value means "no filter": the sync loop omits the filter
// query parameter entirely when it holds a zero FilterID.
type FilterID string

// String returns the raw filter ID string.
func (f FilterID) String() string { return string(f) }

// IsZero reports whether no filter ID has been assigned.
func (f FilterID) IsZero() bool { return f == "" }
