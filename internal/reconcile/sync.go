package reconcile

import (
	"context"
	"fmt"
	"time"

	"catalog-sync/internal/model"

	"github.com/rs/zerolog"
)

// KindReport counts the outcome of one kind's reconciliation. Failed rows stay
// pending and are retried by the next run. Superseded counts pushes whose row
// was edited locally while the push was in flight; the newer version stays
// pending.
type KindReport struct {
	Pushed       int   `json:"pushed"`
	PushFailed   int   `json:"pushFailed"`
	Deleted      int   `json:"deleted"`
	DeleteFailed int   `json:"deleteFailed"`
	Superseded   int   `json:"superseded"`
	Pulled       int   `json:"pulled"`
	PullSkipped  int   `json:"pullSkipped"`
	PullFailed   bool  `json:"pullFailed"`
	Purged       int64 `json:"purged"`
}

// Report summarises a SyncData run.
type Report struct {
	StartedAt  time.Time                  `json:"startedAt"`
	FinishedAt time.Time                  `json:"finishedAt"`
	Kinds      map[model.Kind]*KindReport `json:"kinds"`
}

// Failures returns the number of rows and fetches left for the next run.
func (r *Report) Failures() int {
	n := 0
	for _, k := range r.Kinds {
		n += k.PushFailed + k.DeleteFailed
		if k.PullFailed {
			n++
		}
	}
	return n
}

// SyncData pushes pending local changes, pulls the remote snapshot and purges
// confirmed tombstones, categories before products. It fails fast with
// model.ErrNoConnectivity when offline. Remote failures are counted in the
// report rather than returned; only a local store fault aborts the run.
//
// Overlapping calls share one run. A started run is not interrupted by the
// cancellation of ctx.
func (e *Engine) SyncData(ctx context.Context) (*Report, error) {
	if !e.conn.IsConnected() {
		return nil, model.ErrNoConnectivity
	}

	runCtx := context.WithoutCancel(ctx)
	v, err, shared := e.flight.Do("sync", func() (any, error) {
		return e.syncAll(runCtx)
	})
	if shared {
		e.logger.Debug().Msg("joined in-flight sync")
	}
	if err != nil {
		return nil, err
	}
	return v.(*Report), nil
}

func (e *Engine) syncAll(ctx context.Context) (*Report, error) {
	report := &Report{
		StartedAt: e.now(),
		Kinds:     make(map[model.Kind]*KindReport, len(model.Kinds)),
	}

	for _, kind := range model.Kinds {
		kr := &KindReport{}
		report.Kinds[kind] = kr

		if err := e.syncKind(ctx, kind, kr); err != nil {
			e.logger.Error().Err(err).Str("kind", string(kind)).Msg("sync aborted")
			return nil, err
		}
	}

	report.FinishedAt = e.now()
	e.logReport(report)
	return report, nil
}

// syncKind completes the push before the pull so a fetched snapshot never
// overwrites a change that was about to be sent.
func (e *Engine) syncKind(ctx context.Context, kind model.Kind, kr *KindReport) error {
	if err := e.pushUnsynced(ctx, kind, kr); err != nil {
		return err
	}
	if err := e.pushDeletes(ctx, kind, kr); err != nil {
		return err
	}
	if err := e.pull(ctx, kind, kr); err != nil {
		return err
	}

	purged, err := e.local.PurgeSyncedTombstones(ctx, kind)
	if err != nil {
		return fmt.Errorf("failed to purge %s tombstones: %w", kind, err)
	}
	kr.Purged = purged
	return nil
}

func (e *Engine) pushUnsynced(ctx context.Context, kind model.Kind, kr *KindReport) error {
	recs, err := e.local.ListUnsynced(ctx, kind)
	if err != nil {
		return fmt.Errorf("failed to list unsynced %s: %w", kind, err)
	}

	for _, rec := range recs {
		id := rec.Meta().ID
		if err := e.remote.Insert(ctx, rec); err != nil {
			kr.PushFailed++
			e.logger.Warn().Err(err).Str("kind", string(kind)).Str("id", id).Msg("push failed, will retry")
			continue
		}
		ok, err := e.local.MarkSynced(ctx, kind, *rec.Meta())
		if err != nil {
			return fmt.Errorf("failed to mark %s %s synced: %w", kind, id, err)
		}
		if !ok {
			kr.Superseded++
			e.logger.Debug().Str("kind", string(kind)).Str("id", id).Msg("row changed during push, keeping it pending")
			continue
		}
		kr.Pushed++
	}
	return nil
}

func (e *Engine) pushDeletes(ctx context.Context, kind model.Kind, kr *KindReport) error {
	recs, err := e.local.ListPendingDeletes(ctx, kind)
	if err != nil {
		return fmt.Errorf("failed to list pending %s deletes: %w", kind, err)
	}

	for _, rec := range recs {
		id := rec.Meta().ID
		if err := e.remote.Delete(ctx, kind, id); err != nil {
			kr.DeleteFailed++
			e.logger.Warn().Err(err).Str("kind", string(kind)).Str("id", id).Msg("delete push failed, will retry")
			continue
		}
		ok, err := e.local.MarkSynced(ctx, kind, *rec.Meta())
		if err != nil {
			return fmt.Errorf("failed to mark %s %s deletion synced: %w", kind, id, err)
		}
		if !ok {
			kr.Superseded++
			e.logger.Debug().Str("kind", string(kind)).Str("id", id).Msg("tombstone changed during push, keeping it pending")
			continue
		}
		kr.Deleted++
	}
	return nil
}

// pull stores the remote snapshot as synced rows. The store only overwrites
// rows that are already synced, so a local change that has not been delivered,
// including one made while this run was in flight, survives the pull.
func (e *Engine) pull(ctx context.Context, kind model.Kind, kr *KindReport) error {
	fetched, err := e.remote.FetchAll(ctx, kind)
	if err != nil {
		kr.PullFailed = true
		e.logger.Warn().Err(err).Str("kind", string(kind)).Msg("pull failed, keeping local rows")
		return nil
	}

	for _, rec := range fetched {
		m := rec.Meta()
		m.IsSynced = true
		m.IsDeleted = false
	}

	applied, err := e.local.ApplyRemote(ctx, fetched)
	if err != nil {
		return fmt.Errorf("failed to store pulled %s: %w", kind, err)
	}
	kr.Pulled = applied
	kr.PullSkipped = len(fetched) - applied
	return nil
}

func (e *Engine) logReport(r *Report) {
	ev := e.logger.Info()
	if r.Failures() > 0 {
		ev = e.logger.Warn().Int("failures", r.Failures())
	}
	for _, kind := range model.Kinds {
		k := r.Kinds[kind]
		ev = ev.Dict(string(kind), kindDict(k))
	}
	ev.Dur("duration", r.FinishedAt.Sub(r.StartedAt)).Msg("sync completed")
}

func kindDict(k *KindReport) *zerolog.Event {
	return zerolog.Dict().
		Int("pushed", k.Pushed).
		Int("push_failed", k.PushFailed).
		Int("deleted", k.Deleted).
		Int("delete_failed", k.DeleteFailed).
		Int("superseded", k.Superseded).
		Int("pulled", k.Pulled).
		Int("pull_skipped", k.PullSkipped).
		Bool("pull_failed", k.PullFailed).
		Int64("purged", k.Purged)
}
