// Package scheduler decides when the catalogue is reconciled: on a fixed
// interval while online, and immediately whenever connectivity returns.
package scheduler

import (
	"context"
	"errors"
	"time"

	"catalog-sync/internal/config"
	"catalog-sync/internal/model"
	"catalog-sync/internal/reconcile"

	"github.com/cenkalti/backoff/v4"
	"github.com/rs/zerolog"
)

// Syncer runs one reconciliation.
type Syncer interface {
	SyncData(ctx context.Context) (*reconcile.Report, error)
}

// Connectivity reports and streams reachability.
type Connectivity interface {
	IsConnected() bool
	Subscribe(ctx context.Context) <-chan bool
}

// Scheduler triggers Syncer runs.
type Scheduler struct {
	syncer Syncer
	conn   Connectivity
	cfg    config.SyncConfig
	logger zerolog.Logger
}

// New creates a scheduler.
func New(syncer Syncer, conn Connectivity, cfg config.SyncConfig, logger zerolog.Logger) *Scheduler {
	return &Scheduler{
		syncer: syncer,
		conn:   conn,
		cfg:    cfg,
		logger: logger.With().Str("component", "scheduler").Logger(),
	}
}

// Run blocks until ctx is cancelled. Starting while online counts as a
// connectivity transition and syncs straight away. Runs happen on the Run
// goroutine, so ticks and connectivity events wait while a retry sequence is
// backing off and are handled once it ends.
func (s *Scheduler) Run(ctx context.Context) error {
	ticker := time.NewTicker(s.cfg.Interval)
	defer ticker.Stop()

	states := s.conn.Subscribe(ctx)
	online := false

	s.logger.Info().Dur("interval", s.cfg.Interval).Msg("scheduler started")

	for {
		select {
		case <-ctx.Done():
			s.logger.Info().Msg("scheduler stopped")
			return nil

		case <-ticker.C:
			if !s.conn.IsConnected() {
				s.logger.Debug().Msg("periodic sync skipped: offline")
				continue
			}
			s.runWithRetry(ctx, "periodic")

		case state, ok := <-states:
			if !ok {
				return ctx.Err()
			}
			restored := state && !online
			online = state
			if restored {
				s.runWithRetry(ctx, "connectivity")
			}
		}
	}
}

// runWithRetry retries a failed run with linear backoff and blocks the caller
// until the sequence ends. An offline failure ends it early; the next
// connectivity transition triggers a fresh one.
func (s *Scheduler) runWithRetry(ctx context.Context, trigger string) {
	logger := s.logger.With().Str("trigger", trigger).Logger()

	var b backoff.BackOff = &LinearBackOff{Base: s.cfg.BackoffBase, Max: s.cfg.BackoffMax}
	b = backoff.WithMaxRetries(b, uint64(s.cfg.MaxRetries))
	b = backoff.WithContext(b, ctx)

	operation := func() error {
		report, err := s.syncer.SyncData(ctx)
		if errors.Is(err, model.ErrNoConnectivity) {
			return backoff.Permanent(err)
		}
		if err != nil {
			return err
		}
		logger.Debug().Int("failures", report.Failures()).Msg("sync finished")
		return nil
	}

	notify := func(err error, wait time.Duration) {
		logger.Warn().Err(err).Dur("retry_in", wait).Msg("sync failed, retrying")
	}

	if err := backoff.RetryNotify(operation, b, notify); err != nil {
		if errors.Is(err, model.ErrNoConnectivity) || ctx.Err() != nil {
			logger.Debug().Err(err).Msg("sync abandoned")
			return
		}
		logger.Error().Err(err).Int("max_retries", s.cfg.MaxRetries).Msg("sync failed after retries")
	}
}
