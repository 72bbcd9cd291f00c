package reconcile

import (
	"context"
	"fmt"

	"catalog-sync/internal/model"
)

// CreateCategory stores a new category. An empty ID is replaced by a fresh UUID.
func (e *Engine) CreateCategory(ctx context.Context, c model.Category) (*model.Category, error) {
	if err := e.create(ctx, &c); err != nil {
		return nil, err
	}
	return &c, nil
}

// CreateProduct stores a new product. An empty ID is replaced by a fresh UUID.
func (e *Engine) CreateProduct(ctx context.Context, p model.Product) (*model.Product, error) {
	if err := e.create(ctx, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

// UpdateCategory replaces the editable fields of the active category with c.ID.
func (e *Engine) UpdateCategory(ctx context.Context, c model.Category) (*model.Category, error) {
	existing, err := e.local.GetCategory(ctx, c.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to load category: %w", err)
	}
	if existing == nil {
		return nil, model.ErrNotFound
	}

	c.Metadata = existing.Metadata
	if err := e.update(ctx, &c); err != nil {
		return nil, err
	}
	return &c, nil
}

// UpdateProduct replaces the editable fields of the active product with p.ID.
func (e *Engine) UpdateProduct(ctx context.Context, p model.Product) (*model.Product, error) {
	existing, err := e.local.GetProduct(ctx, p.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to load product: %w", err)
	}
	if existing == nil {
		return nil, model.ErrNotFound
	}

	p.Metadata = existing.Metadata
	if err := e.update(ctx, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

// DeleteCategory tombstones the active category with id.
func (e *Engine) DeleteCategory(ctx context.Context, id string) error {
	existing, err := e.local.GetCategory(ctx, id)
	if err != nil {
		return fmt.Errorf("failed to load category: %w", err)
	}
	if existing == nil {
		return model.ErrNotFound
	}
	return e.delete(ctx, model.KindCategory, existing.Metadata)
}

// DeleteProduct tombstones the active product with id.
func (e *Engine) DeleteProduct(ctx context.Context, id string) error {
	existing, err := e.local.GetProduct(ctx, id)
	if err != nil {
		return fmt.Errorf("failed to load product: %w", err)
	}
	if existing == nil {
		return model.ErrNotFound
	}
	return e.delete(ctx, model.KindProduct, existing.Metadata)
}

func (e *Engine) create(ctx context.Context, rec model.Record) error {
	if err := rec.Validate(); err != nil {
		return err
	}

	m := rec.Meta()
	if m.ID == "" {
		m.ID = e.newID()
	}
	now := e.nowMillis()
	m.CreatedAt, m.UpdatedAt = now, now
	m.IsDeleted = false
	m.IsSynced = false

	m.IsSynced = e.tryRemote(ctx, "insert", rec.Kind(), m.ID, func(ctx context.Context) error {
		return e.remote.Insert(ctx, rec)
	})

	if err := e.local.Upsert(ctx, rec); err != nil {
		return fmt.Errorf("failed to store new %s: %w", rec.Kind(), err)
	}
	return nil
}

// update expects rec to carry the stored metadata.
func (e *Engine) update(ctx context.Context, rec model.Record) error {
	if err := rec.Validate(); err != nil {
		return err
	}

	m := rec.Meta()
	m.UpdatedAt = e.nextStamp(m.UpdatedAt)
	m.IsSynced = false

	m.IsSynced = e.tryRemote(ctx, "update", rec.Kind(), m.ID, func(ctx context.Context) error {
		return e.remote.Update(ctx, rec)
	})

	if err := e.local.Upsert(ctx, rec); err != nil {
		return fmt.Errorf("failed to store updated %s: %w", rec.Kind(), err)
	}
	return nil
}

// delete tombstones the row described by stored, the metadata read by the caller.
func (e *Engine) delete(ctx context.Context, kind model.Kind, stored model.Metadata) error {
	id := stored.ID
	confirmed := e.tryRemote(ctx, "delete", kind, id, func(ctx context.Context) error {
		return e.remote.Delete(ctx, kind, id)
	})

	ts := e.nextStamp(stored.UpdatedAt)
	changed, err := e.local.SoftDelete(ctx, kind, id, ts)
	if err != nil {
		return fmt.Errorf("failed to delete %s: %w", kind, err)
	}
	if !changed {
		return model.ErrNotFound
	}

	if confirmed {
		tombstone := model.Metadata{ID: id, UpdatedAt: ts, IsDeleted: true}
		if _, err := e.local.MarkSynced(ctx, kind, tombstone); err != nil {
			return fmt.Errorf("failed to confirm %s deletion: %w", kind, err)
		}
	}
	return nil
}

// nextStamp returns the current time in milliseconds, or prev+1 when the clock
// has not moved past prev. Every local version of a row therefore carries a
// distinct updatedAt, which is what MarkSynced matches on.
func (e *Engine) nextStamp(prev int64) int64 {
	now := e.nowMillis()
	if now <= prev {
		return prev + 1
	}
	return now
}

// tryRemote makes one remote attempt when online and reports whether it succeeded.
// Failures are logged and otherwise absorbed.
func (e *Engine) tryRemote(ctx context.Context, op string, kind model.Kind, id string, call func(context.Context) error) bool {
	if !e.conn.IsConnected() {
		e.logger.Debug().Str("op", op).Str("kind", string(kind)).Str("id", id).Msg("offline, deferring to next sync")
		return false
	}

	if err := call(ctx); err != nil {
		e.logger.Warn().Err(err).Str("op", op).Str("kind", string(kind)).Str("id", id).Msg("remote write failed, deferring to next sync")
		return false
	}
	return true
}
