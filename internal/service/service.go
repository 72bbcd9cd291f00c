package service

import (
	"context"
	"time"

	"catalog-sync/internal/model"
	"catalog-sync/internal/repository"

	"github.com/google/uuid"
)

// CategoryService defines operations for category management.
type CategoryService interface {
	// List retrieves categories matching an optional equality filter.
	List(ctx context.Context, filter repository.Filter) ([]model.Category, error)

	// Insert stores a category, replacing any row with the same ID.
	Insert(ctx context.Context, category *model.Category) error

	// Update overwrites an existing category.
	Update(ctx context.Context, category *model.Category) error

	// Delete removes a category by ID.
	Delete(ctx context.Context, id string) error

	// Import bulk-upserts categories, typically from a snapshot.
	Import(ctx context.Context, categories []model.Category) error
}

// ProductService defines operations for product management.
type ProductService interface {
	// List retrieves products matching an optional equality filter.
	List(ctx context.Context, filter repository.Filter) ([]model.Product, error)

	// Insert stores a product, replacing any row with the same ID.
	Insert(ctx context.Context, product *model.Product) error

	// Update overwrites an existing product.
	Update(ctx context.Context, product *model.Product) error

	// Delete removes a product by ID.
	Delete(ctx context.Context, id string) error

	// Import bulk-upserts products, typically from a snapshot.
	Import(ctx context.Context, products []model.Product) error
}

// nowMillis is replaced in tests.
var nowMillis = func() int64 {
	return time.Now().UnixMilli()
}

// prepare fills server-side defaults for a record arriving over the wire.
// Sync flags are client bookkeeping and are never stored remotely.
func prepare(m *model.Metadata) {
	if m.ID == "" {
		m.ID = uuid.NewString()
	}
	if m.CreatedAt == 0 {
		m.CreatedAt = nowMillis()
	}
	if m.UpdatedAt == 0 {
		m.UpdatedAt = m.CreatedAt
	}
	m.IsSynced = false
	m.IsDeleted = false
}
