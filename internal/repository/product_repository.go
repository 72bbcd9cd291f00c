package repository

import (
	"context"
	"fmt"

	"catalog-sync/internal/model"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
)

// productColumns maps filterable wire fields to columns.
var productColumns = map[string]string{
	"id":         "id",
	"categoryId": "category_id",
}

// productRepository implements the ProductRepository interface using PostgreSQL.
type productRepository struct {
	pool   *pgxpool.Pool
	logger zerolog.Logger
}

// NewProductRepository creates a new PostgreSQL-backed product repository.
func NewProductRepository(pool *pgxpool.Pool, logger zerolog.Logger) ProductRepository {
	return &productRepository{
		pool:   pool,
		logger: logger.With().Str("repository", "product").Logger(),
	}
}

const upsertProductQuery = `
	INSERT INTO products (id, name, description, price, category_id, stock, created_at, updated_at)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	ON CONFLICT (id) DO UPDATE SET
		name = EXCLUDED.name,
		description = EXCLUDED.description,
		price = EXCLUDED.price,
		category_id = EXCLUDED.category_id,
		stock = EXCLUDED.stock,
		created_at = EXCLUDED.created_at,
		updated_at = EXCLUDED.updated_at
`

// List retrieves products matching the filter, newest first.
func (r *productRepository) List(ctx context.Context, filter Filter) ([]model.Product, error) {
	query := `
		SELECT id, name, description, price, category_id, stock, created_at, updated_at
		FROM products
	`
	var args []interface{}

	if !filter.IsZero() {
		column, ok := productColumns[filter.Field]
		if !ok {
			r.logger.Warn().Str("field", filter.Field).Msg("unsupported product filter")
			return nil, model.ErrInvalidFilter
		}
		query += fmt.Sprintf(" WHERE %s = $1", column)
		args = append(args, filter.Value)
	}
	query += " ORDER BY created_at DESC, id"

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		r.logger.Error().Err(err).
			Str("field", filter.Field).
			Msg("failed to query products")
		return nil, fmt.Errorf("failed to query products: %w", err)
	}
	defer rows.Close()

	products := []model.Product{}
	for rows.Next() {
		var p model.Product
		err := rows.Scan(&p.ID, &p.Name, &p.Description, &p.Price, &p.CategoryID, &p.Stock, &p.CreatedAt, &p.UpdatedAt)
		if err != nil {
			r.logger.Error().Err(err).Msg("failed to scan product row")
			return nil, fmt.Errorf("failed to scan product: %w", err)
		}
		products = append(products, p)
	}

	if err := rows.Err(); err != nil {
		r.logger.Error().Err(err).Msg("error iterating product rows")
		return nil, fmt.Errorf("error iterating products: %w", err)
	}

	return products, nil
}

// Upsert inserts a product, replacing any existing row with the same ID.
func (r *productRepository) Upsert(ctx context.Context, p *model.Product) error {
	_, err := r.pool.Exec(ctx, upsertProductQuery,
		p.ID, p.Name, p.Description, p.Price, p.CategoryID, p.Stock, p.CreatedAt, p.UpdatedAt)
	if err != nil {
		r.logger.Error().Err(err).Str("product_id", p.ID).Msg("failed to upsert product")
		return fmt.Errorf("failed to upsert product: %w", err)
	}

	return nil
}

// UpsertMany upserts products in a single batch.
func (r *productRepository) UpsertMany(ctx context.Context, products []model.Product) error {
	if len(products) == 0 {
		return nil
	}

	batch := &pgx.Batch{}
	for _, p := range products {
		batch.Queue(upsertProductQuery,
			p.ID, p.Name, p.Description, p.Price, p.CategoryID, p.Stock, p.CreatedAt, p.UpdatedAt)
	}

	if err := r.pool.SendBatch(ctx, batch).Close(); err != nil {
		r.logger.Error().Err(err).Int("count", len(products)).Msg("failed to upsert product batch")
		return fmt.Errorf("failed to upsert products: %w", err)
	}

	return nil
}

// Update overwrites an existing product. It reports false when no row has that ID.
func (r *productRepository) Update(ctx context.Context, p *model.Product) (bool, error) {
	query := `
		UPDATE products
		SET name = $2, description = $3, price = $4, category_id = $5, stock = $6, updated_at = $7
		WHERE id = $1
	`

	tag, err := r.pool.Exec(ctx, query, p.ID, p.Name, p.Description, p.Price, p.CategoryID, p.Stock, p.UpdatedAt)
	if err != nil {
		r.logger.Error().Err(err).Str("product_id", p.ID).Msg("failed to update product")
		return false, fmt.Errorf("failed to update product: %w", err)
	}

	if tag.RowsAffected() == 0 {
		r.logger.Debug().Str("product_id", p.ID).Msg("product not found for update")
		return false, nil
	}

	return true, nil
}

// Delete removes a product. Deleting a missing row is not an error.
func (r *productRepository) Delete(ctx context.Context, id string) error {
	if _, err := r.pool.Exec(ctx, `DELETE FROM products WHERE id = $1`, id); err != nil {
		r.logger.Error().Err(err).Str("product_id", id).Msg("failed to delete product")
		return fmt.Errorf("failed to delete product: %w", err)
	}

	return nil
}
