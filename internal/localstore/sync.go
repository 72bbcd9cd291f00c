package localstore

import (
	"context"
	"fmt"

	"catalog-sync/internal/model"
)

// SoftDelete turns the active row into an unsynced tombstone stamped with ts.
// It reports false when no active row has that ID.
func (s *Store) SoftDelete(ctx context.Context, kind model.Kind, id string, ts int64) (bool, error) {
	tbl, err := table(kind)
	if err != nil {
		return false, err
	}

	res, err := s.db.ExecContext(ctx,
		`UPDATE `+tbl+` SET is_deleted = 1, is_synced = 0, updated_at = ? WHERE id = ? AND is_deleted = 0`, ts, id)
	if err != nil {
		return false, fmt.Errorf("failed to soft-delete %s %s: %w", kind, id, err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to soft-delete %s %s: %w", kind, id, err)
	}
	if n == 0 {
		return false, nil
	}

	s.broker.publish(kind)
	return true, nil
}

// MarkSynced confirms the version of a row described by m: it sets is_synced
// only while the stored row still has m's updated_at and is_deleted. It
// reports false when the row changed after m was read, leaving the newer
// version pending.
func (s *Store) MarkSynced(ctx context.Context, kind model.Kind, m model.Metadata) (bool, error) {
	tbl, err := table(kind)
	if err != nil {
		return false, err
	}

	res, err := s.db.ExecContext(ctx,
		`UPDATE `+tbl+` SET is_synced = 1 WHERE id = ? AND updated_at = ? AND is_deleted = ? AND is_synced = 0`,
		m.ID, m.UpdatedAt, m.IsDeleted)
	if err != nil {
		return false, fmt.Errorf("failed to mark %s %s synced: %w", kind, m.ID, err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to mark %s %s synced: %w", kind, m.ID, err)
	}
	if n == 0 {
		return false, nil
	}

	s.broker.publish(kind)
	return true, nil
}

// ListUnsynced returns active rows of kind whose changes have not reached the remote store.
func (s *Store) ListUnsynced(ctx context.Context, kind model.Kind) ([]model.Record, error) {
	return s.listRecords(ctx, kind, `WHERE is_deleted = 0 AND is_synced = 0 ORDER BY created_at, id`)
}

// ListPendingDeletes returns tombstones of kind whose deletion has not reached the remote store.
func (s *Store) ListPendingDeletes(ctx context.Context, kind model.Kind) ([]model.Record, error) {
	return s.listRecords(ctx, kind, `WHERE is_deleted = 1 AND is_synced = 0 ORDER BY created_at, id`)
}

func (s *Store) listRecords(ctx context.Context, kind model.Kind, where string) ([]model.Record, error) {
	switch kind {
	case model.KindCategory:
		categories, err := queryCategories(ctx, s.db, where)
		if err != nil {
			return nil, err
		}
		recs := make([]model.Record, len(categories))
		for i := range categories {
			recs[i] = &categories[i]
		}
		return recs, nil
	case model.KindProduct:
		products, err := queryProducts(ctx, s.db, where)
		if err != nil {
			return nil, err
		}
		recs := make([]model.Record, len(products))
		for i := range products {
			recs[i] = &products[i]
		}
		return recs, nil
	default:
		return nil, fmt.Errorf("unknown record kind %q", kind)
	}
}

// PurgeSyncedTombstones physically removes tombstones whose deletion is confirmed remotely.
func (s *Store) PurgeSyncedTombstones(ctx context.Context, kind model.Kind) (int64, error) {
	tbl, err := table(kind)
	if err != nil {
		return 0, err
	}

	res, err := s.db.ExecContext(ctx, `DELETE FROM `+tbl+` WHERE is_deleted = 1 AND is_synced = 1`)
	if err != nil {
		return 0, fmt.Errorf("failed to purge %s tombstones: %w", kind, err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to purge %s tombstones: %w", kind, err)
	}
	if n > 0 {
		s.logger.Debug().Str("kind", string(kind)).Int64("purged", n).Msg("purged synced tombstones")
		s.broker.publish(kind)
	}
	return n, nil
}

// KindStats summarises the sync state of one kind.
type KindStats struct {
	Active         int `json:"active"`
	Unsynced       int `json:"unsynced"`
	PendingDeletes int `json:"pendingDeletes"`
}

// Counts reports per-kind sync state for status displays.
func (s *Store) Counts(ctx context.Context) (map[model.Kind]KindStats, error) {
	out := make(map[model.Kind]KindStats, len(model.Kinds))
	for _, kind := range model.Kinds {
		tbl, _ := table(kind)

		var st KindStats
		err := s.db.QueryRowContext(ctx, `
			SELECT
				COALESCE(SUM(CASE WHEN is_deleted = 0 THEN 1 ELSE 0 END), 0),
				COALESCE(SUM(CASE WHEN is_deleted = 0 AND is_synced = 0 THEN 1 ELSE 0 END), 0),
				COALESCE(SUM(CASE WHEN is_deleted = 1 AND is_synced = 0 THEN 1 ELSE 0 END), 0)
			FROM `+tbl).Scan(&st.Active, &st.Unsynced, &st.PendingDeletes)
		if err != nil {
			return nil, fmt.Errorf("failed to count %s: %w", kind, err)
		}
		out[kind] = st
	}
	return out, nil
}
