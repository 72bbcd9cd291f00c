package repository

import (
	"context"
	"sort"
	"sync"

	"catalog-sync/internal/model"
)

// memoryTable is a mutex-guarded map of rows keyed by ID.
type memoryTable[T any] struct {
	mu      sync.RWMutex
	rows    map[string]T
	meta    func(*T) *model.Metadata
	columns map[string]func(*T) string
}

func newMemoryTable[T any](meta func(*T) *model.Metadata, columns map[string]func(*T) string) *memoryTable[T] {
	return &memoryTable[T]{rows: make(map[string]T), meta: meta, columns: columns}
}

func (t *memoryTable[T]) list(filter Filter) ([]T, error) {
	var match func(*T) string
	if !filter.IsZero() {
		var ok bool
		if match, ok = t.columns[filter.Field]; !ok {
			return nil, model.ErrInvalidFilter
		}
	}

	t.mu.RLock()
	defer t.mu.RUnlock()

	out := []T{}
	for _, row := range t.rows {
		if match != nil && match(&row) != filter.Value {
			continue
		}
		out = append(out, row)
	}

	sort.Slice(out, func(i, j int) bool {
		a, b := t.meta(&out[i]), t.meta(&out[j])
		if a.CreatedAt != b.CreatedAt {
			return a.CreatedAt > b.CreatedAt
		}
		return a.ID < b.ID
	})
	return out, nil
}

func (t *memoryTable[T]) upsert(rows ...T) {
	t.mu.Lock()
	defer t.mu.Unlock()

	for _, row := range rows {
		t.rows[t.meta(&row).ID] = row
	}
}

// update keeps the stored createdAt, matching the SQL UPDATE.
func (t *memoryTable[T]) update(row T) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	id := t.meta(&row).ID
	existing, ok := t.rows[id]
	if !ok {
		return false
	}
	t.meta(&row).CreatedAt = t.meta(&existing).CreatedAt
	t.rows[id] = row
	return true
}

func (t *memoryTable[T]) delete(id string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	delete(t.rows, id)
}

// MemoryCategoryRepository is a process-local CategoryRepository.
type MemoryCategoryRepository struct {
	table *memoryTable[model.Category]
}

// NewMemoryCategoryRepository creates an empty in-memory category repository.
func NewMemoryCategoryRepository() *MemoryCategoryRepository {
	return &MemoryCategoryRepository{
		table: newMemoryTable(
			func(c *model.Category) *model.Metadata { return &c.Metadata },
			map[string]func(*model.Category) string{
				"id": func(c *model.Category) string { return c.ID },
			},
		),
	}
}

func (r *MemoryCategoryRepository) List(_ context.Context, filter Filter) ([]model.Category, error) {
	return r.table.list(filter)
}

func (r *MemoryCategoryRepository) Upsert(_ context.Context, category *model.Category) error {
	r.table.upsert(*category)
	return nil
}

func (r *MemoryCategoryRepository) UpsertMany(_ context.Context, categories []model.Category) error {
	r.table.upsert(categories...)
	return nil
}

func (r *MemoryCategoryRepository) Update(_ context.Context, category *model.Category) (bool, error) {
	return r.table.update(*category), nil
}

func (r *MemoryCategoryRepository) Delete(_ context.Context, id string) error {
	r.table.delete(id)
	return nil
}

// MemoryProductRepository is a process-local ProductRepository.
type MemoryProductRepository struct {
	table *memoryTable[model.Product]
}

// NewMemoryProductRepository creates an empty in-memory product repository.
func NewMemoryProductRepository() *MemoryProductRepository {
	return &MemoryProductRepository{
		table: newMemoryTable(
			func(p *model.Product) *model.Metadata { return &p.Metadata },
			map[string]func(*model.Product) string{
				"id":         func(p *model.Product) string { return p.ID },
				"categoryId": func(p *model.Product) string { return p.CategoryID },
			},
		),
	}
}

func (r *MemoryProductRepository) List(_ context.Context, filter Filter) ([]model.Product, error) {
	return r.table.list(filter)
}

func (r *MemoryProductRepository) Upsert(_ context.Context, product *model.Product) error {
	r.table.upsert(*product)
	return nil
}

func (r *MemoryProductRepository) UpsertMany(_ context.Context, products []model.Product) error {
	r.table.upsert(products...)
	return nil
}

func (r *MemoryProductRepository) Update(_ context.Context, product *model.Product) (bool, error) {
	return r.table.update(*product), nil
}

func (r *MemoryProductRepository) Delete(_ context.Context, id string) error {
	r.table.delete(id)
	return nil
}
