// Copyright 2026 The Driftline Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/pflag"

	"github.com/driftline/driftline/feed"
	"github.com/driftline/driftline/lib/config"
	"github.com/driftline/driftline/lib/ref"
	"github.com/driftline/driftline/lib/secret"
	"github.com/driftline/driftline/messaging"
	"github.com/driftline/driftline/rooms"
	"github.com/driftline/driftline/syncer"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "driftline-watch: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	var (
		configPath string
		homeserver string
		userID     string
		tokenFile  string
		stateFile  string
		filterFile string
		logLevel   string
		timeline   bool
	)

	flagSet := pflag.NewFlagSet("driftline-watch", pflag.ContinueOnError)
	flagSet.StringVar(&configPath, "config", "", "path to driftline.yaml (default: $DRIFTLINE_CONFIG)")
	flagSet.StringVar(&homeserver, "homeserver", "", "homeserver base URL (overrides config)")
	flagSet.StringVar(&userID, "user", "", "fully-qualified user ID (overrides config)")
	flagSet.StringVar(&tokenFile, "token-file", "", "access token file, - for stdin (overrides config)")
	flagSet.StringVar(&stateFile, "state-file", "", "sync cursor file (overrides config)")
	flagSet.StringVar(&filterFile, "filter-file", "", "JSONC sync filter definition (overrides config)")
	flagSet.StringVar(&logLevel, "log-level", "", "debug, info, warn, or error (overrides config)")
	flagSet.BoolVar(&timeline, "timeline", false, "log individual timeline messages, not just room snapshots")
	if err := flagSet.Parse(os.Args[1:]); err != nil {
		return err
	}
	if args := flagSet.Args(); len(args) > 0 {
		return fmt.Errorf("unexpected argument: %s", args[0])
	}

	cfg, err := loadConfig(configPath)
	if err != nil {
		return err
	}
	applyOverride(&cfg.Homeserver, homeserver)
	applyOverride(&cfg.UserID, userID)
	applyOverride(&cfg.TokenFile, tokenFile)
	applyOverride(&cfg.StateFile, stateFile)
	applyOverride(&cfg.FilterFile, filterFile)
	applyOverride(&cfg.LogLevel, logLevel)
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	logger := newLogger(cfg.LogLevel)

	token, err := secret.ReadFromPath(cfg.TokenFile)
	if err != nil {
		return fmt.Errorf("reading access token: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	return watch(ctx, cfg, token, logger, timeline)
}

func watch(ctx context.Context, cfg *config.Config, token *secret.Buffer, logger *slog.Logger, timeline bool) error {
	client, err := messaging.NewClient(messaging.ClientConfig{
		HomeserverURL: cfg.Homeserver,
		Logger:        logger,
	})
	if err != nil {
		return err
	}
	defer client.CloseIdleConnections()

	probeCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	versions, err := client.ServerVersions(probeCtx)
	cancel()
	if err != nil {
		token.Close()
		return fmt.Errorf("homeserver unreachable: %w", err)
	}
	logger.Info("homeserver reachable",
		"homeserver", cfg.Homeserver,
		"versions", versions.Versions,
	)

	var ownUserID ref.UserID
	if cfg.UserID != "" {
		ownUserID = ref.MustParseUserID(cfg.UserID)
	}
	sessionCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	session, err := client.ResolveSession(sessionCtx, ownUserID, token)
	cancel()
	if err != nil {
		token.Close()
		return err
	}
	defer session.Close()
	logger.Info("session ready", "user_id", session.UserID())

	failed := make(chan struct{})
	loopConfig := syncer.LoopConfig{
		Session:         session,
		Logger:          logger,
		LongPollTimeout: cfg.LongPollTimeoutMS,
		OnState: func(state syncer.State) {
			logger.Info("sync state", "state", state.String())
			if state == syncer.StateFailed {
				close(failed)
			}
		},
	}
	if cfg.StateFile != "" {
		if err := cfg.EnsureStateDir(); err != nil {
			return err
		}
		loopConfig.Store = syncer.NewFileCursorStore(cfg.StateFile)
	}
	if cfg.FilterFile != "" {
		definition, err := os.ReadFile(cfg.FilterFile)
		if err != nil {
			return fmt.Errorf("reading filter definition: %w", err)
		}
		filter, err := messaging.ParseFilterDefinition(definition)
		if err != nil {
			return fmt.Errorf("parsing filter definition %s: %w", cfg.FilterFile, err)
		}
		loopConfig.Filter = filter
	}

	loop, err := syncer.NewLoop(loopConfig)
	if err != nil {
		return err
	}

	reconciler, err := rooms.NewReconciler(rooms.ReconcilerConfig{
		OwnUserID: session.UserID(),
		Logger:    logger,
	})
	if err != nil {
		return err
	}

	reconcilerFeed := loop.Subscribe(0)
	defer reconcilerFeed.Close()
	go reconciler.Run(ctx, reconcilerFeed.C())

	snapshots := reconciler.Subscribe(0)
	defer snapshots.Close()

	activityFeed := loop.Subscribe(0)
	defer activityFeed.Close()
	go logActivity(ctx, logger, activityFeed.C(), timeline)

	loop.Start(ctx)
	defer loop.Stop()

	for {
		select {
		case <-ctx.Done():
			logger.Info("shutting down")
			return nil
		case <-failed:
			return loop.Err()
		case snapshot, ok := <-snapshots.C():
			if !ok {
				return nil
			}
			logSnapshot(logger, snapshot)
		}
	}
}

// logSnapshot summarizes one reconciled room set.
func logSnapshot(logger *slog.Logger, snapshot []rooms.Room) {
	direct := 0
	unread := 0
	for _, room := range snapshot {
		if room.IsDirect {
			direct++
		}
		unread += room.UnreadCount
	}
	logger.Info("room snapshot",
		"rooms", len(snapshot),
		"direct", direct,
		"unread", unread,
	)
	for _, room := range snapshot {
		logger.Debug("room",
			"room_id", room.ID,
			"name", room.Name,
			"membership", room.Membership,
			"members", len(room.Members),
			"unread", room.UnreadCount,
			"direct", room.IsDirect,
		)
	}
}

// logActivity logs messages, typing, and presence from the raw payload
// stream.
func logActivity(ctx context.Context, logger *slog.Logger, payloads <-chan *messaging.SyncPayload, timeline bool) {
	for {
		select {
		case <-ctx.Done():
			return
		case payload, ok := <-payloads:
			if !ok {
				return
			}
			if timeline {
				for _, event := range feed.Messages(payload) {
					logger.Info("message",
						"room_id", event.RoomID,
						"sender", event.Sender,
						"body", event.MessageBody(),
					)
				}
			}
			for _, update := range feed.Typing(payload) {
				logger.Debug("typing",
					"room_id", update.RoomID,
					"users", len(update.UserIDs),
				)
			}
			for _, event := range feed.Presence(payload) {
				logger.Debug("presence", "user_id", event.Sender)
			}
		}
	}
}

func loadConfig(path string) (*config.Config, error) {
	if path != "" {
		return config.LoadFile(path)
	}
	return config.Load()
}

func applyOverride(target *string, value string) {
	if value != "" {
		*target = value
	}
}

func newLogger(level string) *slog.Logger {
	var slogLevel slog.Level
	switch level {
	case "debug":
		slogLevel = slog.LevelDebug
	case "warn":
		slogLevel = slog.LevelWarn
	case "error":
		slogLevel = slog.LevelError
	default:
		slogLevel = slog.LevelInfo
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slogLevel}))
}
