package localstore

import (
	"context"

	"catalog-sync/internal/model"
)

// WatchCategories streams the active categories: the current list first, then
// a fresh list after every change. The channel closes when ctx is done.
func (s *Store) WatchCategories(ctx context.Context) (<-chan []model.Category, error) {
	return watch(ctx, s, model.KindCategory, s.ListCategories)
}

// WatchProducts streams the active products like WatchCategories.
func (s *Store) WatchProducts(ctx context.Context) (<-chan []model.Product, error) {
	return watch(ctx, s, model.KindProduct, s.ListProducts)
}

// WatchProductsByCategory streams the active products in categoryID.
func (s *Store) WatchProductsByCategory(ctx context.Context, categoryID string) (<-chan []model.Product, error) {
	return watch(ctx, s, model.KindProduct, func(ctx context.Context) ([]model.Product, error) {
		return s.ListProductsByCategory(ctx, categoryID)
	})
}

// watch subscribes before the first query so no change between the initial
// snapshot and the subscription is lost.
func watch[T any](ctx context.Context, s *Store, kind model.Kind, query func(context.Context) ([]T, error)) (<-chan []T, error) {
	changes, unsubscribe := s.broker.subscribe(kind)

	initial, err := query(ctx)
	if err != nil {
		unsubscribe()
		return nil, err
	}

	out := make(chan []T, 1)
	out <- initial

	go func() {
		defer close(out)
		defer unsubscribe()

		for {
			select {
			case <-ctx.Done():
				return
			case _, ok := <-changes:
				if !ok {
					return
				}
			}

			snapshot, err := query(ctx)
			if err != nil {
				if ctx.Err() != nil {
					return
				}
				s.logger.Warn().Err(err).Str("kind", string(kind)).Msg("live query refresh failed")
				continue
			}

			select {
			case out <- snapshot:
			case <-ctx.Done():
				return
			}
		}
	}()

	return out, nil
}
