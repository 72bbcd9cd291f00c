package localstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"catalog-sync/internal/model"
)

const (
	categoryColumns = `id, name, description, created_at, updated_at, is_synced, is_deleted`
	productColumns  = `id, name, description, price, category_id, stock, created_at, updated_at, is_synced, is_deleted`

	upsertCategorySQL = `
		INSERT INTO categories (` + categoryColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			description = excluded.description,
			created_at = excluded.created_at,
			updated_at = excluded.updated_at,
			is_synced = excluded.is_synced,
			is_deleted = excluded.is_deleted`

	upsertProductSQL = `
		INSERT INTO products (` + productColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			description = excluded.description,
			price = excluded.price,
			category_id = excluded.category_id,
			stock = excluded.stock,
			created_at = excluded.created_at,
			updated_at = excluded.updated_at,
			is_synced = excluded.is_synced,
			is_deleted = excluded.is_deleted`
)

// The remote variants leave rows with unconfirmed local changes untouched.
var (
	applyRemoteCategorySQL = upsertCategorySQL + `
		WHERE categories.is_synced = 1`
	applyRemoteProductSQL = upsertProductSQL + `
		WHERE products.is_synced = 1`
)

type scanner interface {
	Scan(dest ...any) error
}

func scanCategory(row scanner) (model.Category, error) {
	var c model.Category
	err := row.Scan(&c.ID, &c.Name, &c.Description, &c.CreatedAt, &c.UpdatedAt, &c.IsSynced, &c.IsDeleted)
	return c, err
}

func scanProduct(row scanner) (model.Product, error) {
	var p model.Product
	err := row.Scan(&p.ID, &p.Name, &p.Description, &p.Price, &p.CategoryID, &p.Stock,
		&p.CreatedAt, &p.UpdatedAt, &p.IsSynced, &p.IsDeleted)
	return p, err
}

func writeRecord(ctx context.Context, q execer, rec model.Record) error {
	_, err := execRecord(ctx, q, rec, upsertCategorySQL, upsertProductSQL)
	return err
}

// execRecord runs the category or product statement for rec and returns the
// number of rows it changed.
func execRecord(ctx context.Context, q execer, rec model.Record, categorySQL, productSQL string) (int64, error) {
	var (
		res sql.Result
		err error
	)
	switch r := rec.(type) {
	case *model.Category:
		res, err = q.ExecContext(ctx, categorySQL,
			r.ID, r.Name, r.Description, r.CreatedAt, r.UpdatedAt, r.IsSynced, r.IsDeleted)
	case *model.Product:
		res, err = q.ExecContext(ctx, productSQL,
			r.ID, r.Name, r.Description, r.Price.String(), r.CategoryID, r.Stock,
			r.CreatedAt, r.UpdatedAt, r.IsSynced, r.IsDeleted)
	default:
		return 0, fmt.Errorf("unsupported record type %T", rec)
	}
	if err != nil {
		return 0, fmt.Errorf("failed to upsert %s %s: %w", rec.Kind(), rec.Meta().ID, err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to upsert %s %s: %w", rec.Kind(), rec.Meta().ID, err)
	}
	return n, nil
}

// Upsert inserts rec or replaces the row with the same ID.
func (s *Store) Upsert(ctx context.Context, rec model.Record) error {
	if err := writeRecord(ctx, s.db, rec); err != nil {
		s.logger.Error().Err(err).Msg("upsert failed")
		return err
	}

	s.broker.publish(rec.Kind())
	return nil
}

// ApplyRemote stores server copies in one transaction and returns how many
// were written. A row holding an unsynced change or an unconfirmed tombstone
// is skipped; the check runs inside the upsert statement itself.
// Subscribers are notified once per written kind.
func (s *Store) ApplyRemote(ctx context.Context, recs []model.Record) (int, error) {
	if len(recs) == 0 {
		return 0, nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	applied := 0
	touched := make(map[model.Kind]bool)
	for _, rec := range recs {
		n, err := execRecord(ctx, tx, rec, applyRemoteCategorySQL, applyRemoteProductSQL)
		if err != nil {
			s.logger.Error().Err(err).Int("count", len(recs)).Msg("applying remote rows failed")
			return 0, err
		}
		if n > 0 {
			applied++
			touched[rec.Kind()] = true
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit remote rows: %w", err)
	}

	for _, kind := range model.Kinds {
		if touched[kind] {
			s.broker.publish(kind)
		}
	}
	return applied, nil
}

// GetCategory returns the active category with id, or nil when there is none.
func (s *Store) GetCategory(ctx context.Context, id string) (*model.Category, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+categoryColumns+` FROM categories WHERE id = ? AND is_deleted = 0`, id)

	c, err := scanCategory(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get category %s: %w", id, err)
	}
	return &c, nil
}

// GetProduct returns the active product with id, or nil when there is none.
func (s *Store) GetProduct(ctx context.Context, id string) (*model.Product, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+productColumns+` FROM products WHERE id = ? AND is_deleted = 0`, id)

	p, err := scanProduct(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get product %s: %w", id, err)
	}
	return &p, nil
}

// ListCategories returns active categories, newest first.
func (s *Store) ListCategories(ctx context.Context) ([]model.Category, error) {
	return queryCategories(ctx, s.db, `WHERE is_deleted = 0 ORDER BY created_at DESC, id`)
}

// ListProducts returns active products, newest first.
func (s *Store) ListProducts(ctx context.Context) ([]model.Product, error) {
	return queryProducts(ctx, s.db, `WHERE is_deleted = 0 ORDER BY created_at DESC, id`)
}

// ListProductsByCategory returns active products in categoryID, newest first.
func (s *Store) ListProductsByCategory(ctx context.Context, categoryID string) ([]model.Product, error) {
	return queryProducts(ctx, s.db, `WHERE is_deleted = 0 AND category_id = ? ORDER BY created_at DESC, id`, categoryID)
}

func queryCategories(ctx context.Context, db *sql.DB, where string, args ...any) ([]model.Category, error) {
	rows, err := db.QueryContext(ctx, `SELECT `+categoryColumns+` FROM categories `+where, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query categories: %w", err)
	}
	defer rows.Close()

	categories := []model.Category{}
	for rows.Next() {
		c, err := scanCategory(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan category: %w", err)
		}
		categories = append(categories, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating categories: %w", err)
	}
	return categories, nil
}

func queryProducts(ctx context.Context, db *sql.DB, where string, args ...any) ([]model.Product, error) {
	rows, err := db.QueryContext(ctx, `SELECT `+productColumns+` FROM products `+where, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query products: %w", err)
	}
	defer rows.Close()

	products := []model.Product{}
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan product: %w", err)
		}
		products = append(products, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating products: %w", err)
	}
	return products, nil
}
