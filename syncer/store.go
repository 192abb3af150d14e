// Copyright 2026 The Driftline Authors
// SPDX-License-Identifier: Apache-2.0

package syncer

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/driftline/driftline/lib/codec"
	"github.com/driftline/driftline/lib/ref"
)

// SessionState is the per-session sync position persisted across
// restarts: where to resume (NextBatch) and which registered filter to
// reuse (FilterID). A zero SessionState means "start from scratch".
type SessionState struct {
	NextBatch string       `cbor:"next_batch"`
	FilterID  ref.FilterID `cbor:"filter_id"`
}

// CursorStore persists SessionState between sync cycles. Load on a
// store that has never been saved returns a zero SessionState and no
// error.
type CursorStore interface {
	Load() (SessionState, error)
	Save(state SessionState) error
}

// MemoryCursorStore keeps the session state in memory. Restarting the
// process loses the cursor and forces a full initial sync.
type MemoryCursorStore struct {
	mu    sync.Mutex
	state SessionState
}

// NewMemoryCursorStore creates an empty in-memory store.
func NewMemoryCursorStore() *MemoryCursorStore {
	return &MemoryCursorStore{}
}

func (s *MemoryCursorStore) Load() (SessionState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state, nil
}

func (s *MemoryCursorStore) Save(state SessionState) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = state
	return nil
}

// FileCursorStore persists the session state to a single file as
// deterministic CBOR. Writes go through a temp file and rename, so a
// crash mid-write leaves the previous state intact rather than a
// truncated file.
type FileCursorStore struct {
	path string

	mu sync.Mutex
}

// NewFileCursorStore creates a store backed by the given path. The
// parent directory must exist.
func NewFileCursorStore(path string) *FileCursorStore {
	return &FileCursorStore{path: path}
}

func (s *FileCursorStore) Load() (SessionState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return SessionState{}, nil
	}
	if err != nil {
		return SessionState{}, fmt.Errorf("syncer: reading cursor file: %w", err)
	}

	var state SessionState
	if err := codec.Unmarshal(data, &state); err != nil {
		return SessionState{}, fmt.Errorf("syncer: decoding cursor file %s: %w", s.path, err)
	}
	return state, nil
}

func (s *FileCursorStore) Save(state SessionState) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := codec.Marshal(state)
	if err != nil {
		return fmt.Errorf("syncer: encoding cursor state: %w", err)
	}

	directory := filepath.Dir(s.path)
	temp, err := os.CreateTemp(directory, ".cursor-*")
	if err != nil {
		return fmt.Errorf("syncer: creating cursor temp file: %w", err)
	}
	tempPath := temp.Name()

	if _, err := temp.Write(data); err != nil {
		temp.Close()
		os.Remove(tempPath)
		return fmt.Errorf("syncer: writing cursor temp file: %w", err)
	}
	if err := temp.Close(); err != nil {
		os.Remove(tempPath)
		return fmt.Errorf("syncer: closing cursor temp file: %w", err)
	}
	if err := os.Rename(tempPath, s.path); err != nil {
		os.Remove(tempPath)
		return fmt.Errorf("syncer: replacing cursor file: %w", err)
	}
	return nil
}
