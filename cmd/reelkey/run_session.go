package main

import (
	"context"
	"log/slog"

	"github.com/google/uuid"

	"reelkey/internal/config"
	"reelkey/internal/episodes"
	"reelkey/internal/history"
	"reelkey/internal/logging"
	"reelkey/internal/runlock"
	"reelkey/internal/services"
)

// runSession holds what a pipeline command needs for one run: the run lock,
// a correlated logger, and an optional history row.
type runSession struct {
	ctx    context.Context
	cfg    *config.Config
	logger *slog.Logger
	lock   *runlock.Lock
	store  *history.Store
	run    *history.Run
}

func (c *commandContext) startRun(parent context.Context, kind string) (*runSession, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}
	logger, err := c.ensureLogger()
	if err != nil {
		return nil, err
	}

	lock, err := runlock.Acquire(cfg.LockPath())
	if err != nil {
		return nil, err
	}

	runID := uuid.NewString()
	ctx := services.WithRunID(parent, runID)
	session := &runSession{
		ctx:    ctx,
		cfg:    cfg,
		logger: logging.WithContext(ctx, logger),
		lock:   lock,
	}

	if cfg.History.Enabled {
		store, err := history.Open(cfg)
		if err != nil {
			logging.WarnWithContext(session.logger, "run history unavailable", "history_open_failed",
				logging.Error(err),
				logging.Hint("delete the history database or set history.enabled = false"),
				logging.Impact("this run will not be recorded"),
			)
		} else {
			session.store = store
			run, err := store.BeginRun(ctx, kind)
			if err != nil {
				logging.WarnWithContext(session.logger, "failed to record run start", "history_write_failed",
					logging.Error(err),
					logging.Impact("this run will not be recorded"),
				)
			}
			session.run = run
		}
	}
	return session, nil
}

func (s *runSession) finish(results []episodes.Result) {
	if s.store == nil || s.run == nil {
		return
	}
	if err := s.store.FinishRun(s.ctx, s.run, results); err != nil {
		logging.WarnWithContext(s.logger, "failed to record run results", "history_write_failed",
			logging.Error(err),
			logging.Impact("run history is incomplete"),
		)
	}
}

func (s *runSession) close() {
	if s.store != nil {
		_ = s.store.Close()
	}
	if err := s.lock.Release(); err != nil {
		s.logger.Warn("failed to release run lock", logging.Error(err))
	}
}

func (s *runSession) runID() string {
	id, _ := services.RunIDFromContext(s.ctx)
	return id
}
