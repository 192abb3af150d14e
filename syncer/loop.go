// Copyright 2026 The Driftline Authors
// SPDX-License-Identifier: Apache-2.0

package syncer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/driftline/driftline/lib/clock"
	"github.com/driftline/driftline/lib/ref"
	"github.com/driftline/driftline/messaging"
)

const (
	// defaultLongPollTimeout is the server-side hold time requested on
	// every sync, in milliseconds. Initial syncs return immediately
	// regardless.
	defaultLongPollTimeout = 30000

	// requestGrace is added on top of the long-poll timeout to form the
	// client-side request deadline. The client must always outwait the
	// server, otherwise every idle poll looks like a failure.
	requestGrace = 5 * time.Second
)

// LoopConfig configures a sync Loop. Session is required; everything
// else has working defaults.
type LoopConfig struct {
	// Session is the authenticated session to sync with.
	Session *messaging.Session

	// Store persists the sync cursor and filter ID across restarts.
	// Defaults to an in-memory store.
	Store CursorStore

	// Filter is the sync filter to negotiate with the server. Defaults
	// to messaging.DefaultSyncFilter. Negotiation failure is not fatal:
	// the loop degrades to unfiltered syncs.
	Filter *messaging.Filter

	// LongPollTimeout is the requested server hold time for sync
	// requests, in milliseconds. Defaults to 30000.
	LongPollTimeout int

	// Clock is injected for testing. Defaults to clock.Real().
	Clock clock.Clock

	// Logger defaults to slog.Default.
	Logger *slog.Logger

	// OnState, if set, is called synchronously on every state
	// transition. Keep it fast; it runs on the loop goroutine.
	OnState func(State)
}

// Loop drives the long-poll sync cycle: request, normalize, persist
// cursor, publish, repeat. One Loop runs at most one request at a time,
// so payloads are published in server order.
type Loop struct {
	session         *messaging.Session
	store           CursorStore
	filter          *messaging.Filter
	longPollTimeout int
	clock           clock.Clock
	logger          *slog.Logger
	onState         func(State)

	payloads *Broadcaster[*messaging.SyncPayload]

	mu     sync.Mutex
	state  State
	err    error
	cancel context.CancelFunc
	done   chan struct{}
}

// NewLoop creates a sync loop. Call Start to begin syncing.
func NewLoop(config LoopConfig) (*Loop, error) {
	if config.Session == nil {
		return nil, fmt.Errorf("syncer: LoopConfig.Session is required")
	}
	if config.Store == nil {
		config.Store = NewMemoryCursorStore()
	}
	if config.Filter == nil {
		config.Filter = messaging.DefaultSyncFilter()
	}
	if config.LongPollTimeout <= 0 {
		config.LongPollTimeout = defaultLongPollTimeout
	}
	if config.Clock == nil {
		config.Clock = clock.Real()
	}
	if config.Logger == nil {
		config.Logger = slog.Default()
	}

	return &Loop{
		session:         config.Session,
		store:           config.Store,
		filter:          config.Filter,
		longPollTimeout: config.LongPollTimeout,
		clock:           config.Clock,
		logger:          config.Logger,
		onState:         config.OnState,
		payloads:        NewBroadcaster[*messaging.SyncPayload](config.Logger),
		state:           StateDisconnected,
	}, nil
}

// Subscribe registers a payload subscriber. Subscribe before Start to
// observe the initial sync. See Broadcaster for delivery semantics.
func (l *Loop) Subscribe(buffer int) *Subscription[*messaging.SyncPayload] {
	return l.payloads.Subscribe(buffer)
}

// State returns the loop's current lifecycle state.
func (l *Loop) State() State {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.state
}

// Err returns the error that moved the loop to StateFailed, or nil.
// For authentication failures the error matches messaging.ErrAuthFailed
// under errors.Is.
func (l *Loop) Err() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.err
}

// Start launches the sync loop goroutine. Calling Start on a running
// loop is a no-op. The context bounds the whole loop: canceling it is
// equivalent to Stop.
func (l *Loop) Start(ctx context.Context) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.done != nil {
		return
	}

	runCtx, cancel := context.WithCancel(ctx)
	l.cancel = cancel
	l.done = make(chan struct{})
	l.err = nil

	go l.run(runCtx, l.done)
}

// Stop cancels the loop and waits for the goroutine to exit. Calling
// Stop on a stopped loop is a no-op. Subscriptions stay open; a
// restarted loop publishes to the same subscribers.
func (l *Loop) Stop() {
	l.mu.Lock()
	cancel := l.cancel
	done := l.done
	l.cancel = nil
	l.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	<-done

	l.mu.Lock()
	l.done = nil
	l.mu.Unlock()
}

func (l *Loop) run(ctx context.Context, done chan struct{}) {
	defer close(done)

	l.setState(StateConnecting)

	cursor, err := l.store.Load()
	if err != nil {
		// A broken store costs the resume position, not the session.
		l.logger.Error("failed to load sync cursor, starting from scratch", "error", err)
		cursor = SessionState{}
	}
	if cursor.NextBatch != "" {
		l.logger.Info("resuming sync from persisted cursor")
	}

	if cursor.FilterID.IsZero() {
		filterID, err := l.negotiateFilter(ctx)
		if err != nil {
			if ctx.Err() != nil {
				l.setState(StateDisconnected)
				return
			}
			// Degrade to unfiltered syncs. Payloads are larger but
			// semantically identical. A rejected credential is not
			// special-cased here: the sync request that follows reports
			// it with the same classification.
			l.logger.Warn("sync filter negotiation failed, syncing unfiltered", "error", err)
		} else {
			cursor.FilterID = filterID
			l.saveCursor(cursor)
		}
	}

	l.setState(StateSyncing)

	failures := 0
	for {
		if ctx.Err() != nil {
			l.setState(StateDisconnected)
			return
		}

		response, err := l.syncOnce(ctx, cursor)
		if err != nil {
			if ctx.Err() != nil {
				l.setState(StateDisconnected)
				return
			}
			if messaging.IsAuthError(err) {
				l.fail(err)
				return
			}

			failures++
			delay := backoffDelay(failures)
			l.logger.Warn("sync request failed, backing off",
				"consecutive_failures", failures,
				"retry_in", delay,
				"error", err,
			)
			// A failed long poll may leave the pooled connection in a
			// bad state; force the retry onto a fresh one.
			l.session.CloseIdleConnections()
			l.setState(StateReconnecting)

			select {
			case <-ctx.Done():
				l.setState(StateDisconnected)
				return
			case <-l.clock.After(delay):
			}
			l.setState(StateSyncing)
			continue
		}

		failures = 0
		payload := response.Normalize(l.session.UserID(), l.logger)

		// The cursor advances before anything downstream sees the
		// payload: a crash between the two replays at most one batch,
		// and reconciliation errors never stall the stream.
		cursor.NextBatch = payload.NextBatch
		l.saveCursor(cursor)

		l.setState(StateConnected)
		l.payloads.Publish(payload)
	}
}

// syncOnce performs a single sync request with a client-side deadline
// slightly past the server's hold time.
func (l *Loop) syncOnce(ctx context.Context, cursor SessionState) (*messaging.SyncResponse, error) {
	options := messaging.SyncOptions{
		Since:      cursor.NextBatch,
		Filter:     cursor.FilterID,
		Timeout:    l.longPollTimeout,
		SetTimeout: true,
	}
	// The server answers an initial sync immediately regardless of the
	// requested hold time, but assembling a large account's first
	// snapshot can take longer than the grace margin alone, so the full
	// budget applies to every request.
	budget := time.Duration(l.longPollTimeout)*time.Millisecond + requestGrace

	requestCtx, cancel := context.WithTimeout(ctx, budget)
	defer cancel()
	return l.session.Sync(requestCtx, options)
}

func (l *Loop) negotiateFilter(ctx context.Context) (ref.FilterID, error) {
	return l.session.RegisterFilter(ctx, l.filter)
}

func (l *Loop) saveCursor(cursor SessionState) {
	if err := l.store.Save(cursor); err != nil {
		// The in-memory cursor keeps the loop correct for this run; the
		// next restart replays from the last successfully saved batch.
		l.logger.Error("failed to persist sync cursor", "error", err)
	}
}

func (l *Loop) setState(state State) {
	l.mu.Lock()
	changed := l.state != state
	previous := l.state
	l.state = state
	l.mu.Unlock()

	if !changed {
		return
	}
	l.logger.Debug("sync state changed", "from", previous, "to", state)
	if l.onState != nil {
		l.onState(state)
	}
}

func (l *Loop) fail(cause error) {
	if !errors.Is(cause, messaging.ErrAuthFailed) {
		cause = errors.Join(messaging.ErrAuthFailed, cause)
	}
	l.mu.Lock()
	l.err = cause
	l.mu.Unlock()

	l.logger.Error("sync loop stopped permanently", "error", cause)
	l.setState(StateFailed)
}
