package repository

import (
	"context"
	"fmt"

	"catalog-sync/internal/model"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
)

// categoryRepository implements the CategoryRepository interface using PostgreSQL.
type categoryRepository struct {
	pool   *pgxpool.Pool
	logger zerolog.Logger
}

// NewCategoryRepository creates a new PostgreSQL-backed category repository.
func NewCategoryRepository(pool *pgxpool.Pool, logger zerolog.Logger) CategoryRepository {
	return &categoryRepository{
		pool:   pool,
		logger: logger.With().Str("repository", "category").Logger(),
	}
}

const upsertCategoryQuery = `
	INSERT INTO categories (id, name, description, created_at, updated_at)
	VALUES ($1, $2, $3, $4, $5)
	ON CONFLICT (id) DO UPDATE SET
		name = EXCLUDED.name,
		description = EXCLUDED.description,
		created_at = EXCLUDED.created_at,
		updated_at = EXCLUDED.updated_at
`

// List retrieves categories matching the filter, newest first.
// Categories can only be filtered by id.
func (r *categoryRepository) List(ctx context.Context, filter Filter) ([]model.Category, error) {
	query := `
		SELECT id, name, description, created_at, updated_at
		FROM categories
	`
	var args []interface{}

	if !filter.IsZero() {
		if filter.Field != "id" {
			r.logger.Warn().Str("field", filter.Field).Msg("unsupported category filter")
			return nil, model.ErrInvalidFilter
		}
		query += " WHERE id = $1"
		args = append(args, filter.Value)
	}
	query += " ORDER BY created_at DESC, id"

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		r.logger.Error().Err(err).Msg("failed to query categories")
		return nil, fmt.Errorf("failed to query categories: %w", err)
	}
	defer rows.Close()

	categories := []model.Category{}
	for rows.Next() {
		var c model.Category
		if err := rows.Scan(&c.ID, &c.Name, &c.Description, &c.CreatedAt, &c.UpdatedAt); err != nil {
			r.logger.Error().Err(err).Msg("failed to scan category row")
			return nil, fmt.Errorf("failed to scan category: %w", err)
		}
		categories = append(categories, c)
	}

	if err := rows.Err(); err != nil {
		r.logger.Error().Err(err).Msg("error iterating category rows")
		return nil, fmt.Errorf("error iterating categories: %w", err)
	}

	return categories, nil
}

// Upsert inserts a category, replacing any existing row with the same ID.
func (r *categoryRepository) Upsert(ctx context.Context, c *model.Category) error {
	if _, err := r.pool.Exec(ctx, upsertCategoryQuery, c.ID, c.Name, c.Description, c.CreatedAt, c.UpdatedAt); err != nil {
		r.logger.Error().Err(err).Str("category_id", c.ID).Msg("failed to upsert category")
		return fmt.Errorf("failed to upsert category: %w", err)
	}

	return nil
}

// UpsertMany upserts categories in a single batch.
func (r *categoryRepository) UpsertMany(ctx context.Context, categories []model.Category) error {
	if len(categories) == 0 {
		return nil
	}

	batch := &pgx.Batch{}
	for _, c := range categories {
		batch.Queue(upsertCategoryQuery, c.ID, c.Name, c.Description, c.CreatedAt, c.UpdatedAt)
	}

	if err := r.pool.SendBatch(ctx, batch).Close(); err != nil {
		r.logger.Error().Err(err).Int("count", len(categories)).Msg("failed to upsert category batch")
		return fmt.Errorf("failed to upsert categories: %w", err)
	}

	return nil
}

// Update overwrites an existing category. It reports false when no row has that ID.
func (r *categoryRepository) Update(ctx context.Context, c *model.Category) (bool, error) {
	query := `
		UPDATE categories
		SET name = $2, description = $3, updated_at = $4
		WHERE id = $1
	`

	tag, err := r.pool.Exec(ctx, query, c.ID, c.Name, c.Description, c.UpdatedAt)
	if err != nil {
		r.logger.Error().Err(err).Str("category_id", c.ID).Msg("failed to update category")
		return false, fmt.Errorf("failed to update category: %w", err)
	}

	if tag.RowsAffected() == 0 {
		r.logger.Debug().Str("category_id", c.ID).Msg("category not found for update")
		return false, nil
	}

	return true, nil
}

// Delete removes a category. Deleting a missing row is not an error.
func (r *categoryRepository) Delete(ctx context.Context, id string) error {
	if _, err := r.pool.Exec(ctx, `DELETE FROM categories WHERE id = $1`, id); err != nil {
		r.logger.Error().Err(err).Str("category_id", id).Msg("failed to delete category")
		return fmt.Errorf("failed to delete category: %w", err)
	}

	return nil
}
