package repository

import (
	"context"

	"catalog-sync/internal/model"
)

// Filter is a single equality predicate on a wire field name (e.g. "id", "categoryId").
// The zero value matches every row.
type Filter struct {
	Field string
	Value string
}

// IsZero reports whether the filter matches every row.
func (f Filter) IsZero() bool {
	return f.Field == ""
}

// CategoryRepository defines the interface for category data access operations.
type CategoryRepository interface {
	// List retrieves categories matching the filter, newest first.
	List(ctx context.Context, filter Filter) ([]model.Category, error)

	// Upsert inserts a category, replacing any existing row with the same ID.
	Upsert(ctx context.Context, category *model.Category) error

	// UpsertMany upserts categories in a single batch.
	UpsertMany(ctx context.Context, categories []model.Category) error

	// Update overwrites an existing category. It reports false when no row has that ID.
	Update(ctx context.Context, category *model.Category) (bool, error)

	// Delete removes a category. Deleting a missing row is not an error.
	Delete(ctx context.Context, id string) error
}

// ProductRepository defines the interface for product data access operations.
type ProductRepository interface {
	// List retrieves products matching the filter, newest first.
	List(ctx context.Context, filter Filter) ([]model.Product, error)

	// Upsert inserts a product, replacing any existing row with the same ID.
	Upsert(ctx context.Context, product *model.Product) error

	// UpsertMany upserts products in a single batch.
	UpsertMany(ctx context.Context, products []model.Product) error

	// Update overwrites an existing product. It reports false when no row has that ID.
	Update(ctx context.Context, product *model.Product) (bool, error)

	// Delete removes a product. Deleting a missing row is not an error.
	Delete(ctx context.Context, id string) error
}
