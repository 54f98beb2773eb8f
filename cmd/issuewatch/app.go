package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/fentz26/issuewatch/internal/checkpoint"
	"github.com/fentz26/issuewatch/internal/checkpoint/filekv"
	"github.com/fentz26/issuewatch/internal/checkpoint/rediskv"
	"github.com/fentz26/issuewatch/internal/config"
	"github.com/fentz26/issuewatch/internal/connectors"
	"github.com/fentz26/issuewatch/internal/connectors/chat"
	"github.com/fentz26/issuewatch/internal/connectors/execsink"
	"github.com/fentz26/issuewatch/internal/connectors/logsink"
	"github.com/fentz26/issuewatch/internal/connectors/redisqueue"
	"github.com/fentz26/issuewatch/internal/connectors/webhook"
	"github.com/fentz26/issuewatch/internal/controlplane"
	"github.com/fentz26/issuewatch/internal/models"
	"github.com/fentz26/issuewatch/internal/store"
)

// app holds everything opened at startup. Close releases it in reverse order.
type app struct {
	cfg         *config.Config
	logger      *slog.Logger
	kv          checkpoint.KV
	checkpoints *checkpoint.Store
	// backend is nil for the file backend, which has nothing to ping.
	backend controlplane.Pinger
	rdb     *redis.Client
	closers []func() error
}

// newApp loads the config, sets up logging and opens the checkpoint backend.
func newApp(ctx context.Context) (*app, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, fmt.Errorf("load config %s: %w", configPath, err)
	}
	return newAppFromConfig(ctx, cfg)
}

func newAppFromConfig(ctx context.Context, cfg *config.Config) (*app, error) {
	logger, err := cfg.Log.NewLogger(os.Stderr)
	if err != nil {
		return nil, err
	}
	slog.SetDefault(logger)

	a := &app{cfg: cfg, logger: logger}
	if err := a.openCheckpoints(ctx); err != nil {
		a.Close()
		return nil, err
	}
	return a, nil
}

func (a *app) openCheckpoints(ctx context.Context) error {
	switch a.cfg.Checkpoint.Backend {
	case config.BackendFile:
		kv, err := filekv.New(a.cfg.Checkpoint.Path)
		if err != nil {
			return fmt.Errorf("open checkpoint file: %w", err)
		}
		a.kv = kv
	case config.BackendSQLite:
		st, err := store.New(a.cfg.Checkpoint.DBPath)
		if err != nil {
			return fmt.Errorf("open checkpoint database: %w", err)
		}
		a.kv, a.backend = st, st
		a.closers = append(a.closers, st.Close)
	case config.BackendRedis:
		kv, err := rediskv.New(ctx, rediskv.Options{
			Addr:     a.cfg.Redis.Addr,
			Password: a.cfg.Redis.Password,
			DB:       a.cfg.Redis.DB,
			Prefix:   a.cfg.Redis.Prefix,
		})
		if err != nil {
			return err
		}
		a.kv, a.backend, a.rdb = kv, kv, kv.Client()
		a.closers = append(a.closers, kv.Close)
	default:
		return fmt.Errorf("%w: unknown checkpoint.backend %q", config.ErrInvalid, a.cfg.Checkpoint.Backend)
	}

	a.checkpoints = checkpoint.New(a.kv)
	a.logger.Debug("checkpoint backend ready", "backend", a.cfg.Checkpoint.Backend)
	return nil
}

// redisClient returns the shared client, connecting on first use.
func (a *app) redisClient(ctx context.Context) (*redis.Client, error) {
	if a.rdb != nil {
		return a.rdb, nil
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:     a.cfg.Redis.Addr,
		Password: a.cfg.Redis.Password,
		DB:       a.cfg.Redis.DB,
	})
	pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		rdb.Close()
		return nil, fmt.Errorf("connect to redis at %s: %w", a.cfg.Redis.Addr, err)
	}

	a.rdb = rdb
	a.closers = append(a.closers, rdb.Close)
	return rdb, nil
}

// openSink builds the notification sink. dryRun forces the log sink.
func (a *app) openSink(ctx context.Context, dryRun bool) (connectors.Sink, error) {
	kind := a.cfg.Chat.Kind
	if dryRun {
		kind = config.SinkLog
	}

	switch kind {
	case config.SinkChat:
		session, err := chat.Login(ctx, a.cfg.ChatCredentials())
		if err != nil {
			return nil, err
		}
		channel, err := session.OpenChannel(ctx, a.cfg.Chat.Invite)
		if err != nil {
			return nil, err
		}
		a.logger.Info("joined chat channel", "channel", channel.ChannelName)
		return channel, nil
	case config.SinkWebhook:
		return webhook.New(a.cfg.Chat.WebhookURL, a.cfg.Chat.Timeout), nil
	case config.SinkRedis:
		rdb, err := a.redisClient(ctx)
		if err != nil {
			return nil, err
		}
		return redisqueue.New(rdb, a.cfg.Chat.RedisKey), nil
	case config.SinkExec:
		workDir, _ := os.Getwd()
		sink, err := execsink.New(a.cfg.Chat.Command[0], a.cfg.Chat.Command[1:], workDir)
		if err != nil {
			return nil, err
		}
		return sink, nil
	case config.SinkLog:
		return logsink.New(a.logger), nil
	}
	return nil, fmt.Errorf("%w: unknown chat.kind %q", config.ErrInvalid, kind)
}

// readCheckpoint loads the starting checkpoint. A corrupt value is fatal.
func (a *app) readCheckpoint(ctx context.Context) (time.Time, error) {
	t, err := a.checkpoints.Read(ctx)
	if errors.Is(err, checkpoint.ErrCorruptCheckpoint) {
		return time.Time{}, fmt.Errorf("%w (reset it with: issuewatch checkpoint set \"YYYY-MM-DD HH:MM\")", err)
	}
	return t, err
}

// peekCheckpoint returns the checkpoint the next check would start from
// without persisting a default. stored is false when nothing is stored yet.
func (a *app) peekCheckpoint(ctx context.Context) (t time.Time, stored bool, err error) {
	raw, ok, err := a.kv.Get(ctx, checkpoint.Key)
	if err != nil {
		return time.Time{}, false, fmt.Errorf("read checkpoint: %w", err)
	}
	if !ok {
		return time.Now().Add(-models.DefaultLookback).Truncate(time.Minute), false, nil
	}
	t, err = checkpoint.Parse(raw)
	return t, true, err
}

// Close releases everything newApp and openSink opened.
func (a *app) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			a.logger.Warn("close failed", "error", err)
		}
	}
	a.closers = nil
}
