package service

import (
	"context"
	"fmt"

	"catalog-sync/internal/model"
	"catalog-sync/internal/repository"

	"github.com/rs/zerolog"
)

// productService implements ProductService.
type productService struct {
	productRepo repository.ProductRepository
	logger      zerolog.Logger
}

// NewProductService creates a new product service.
func NewProductService(productRepo repository.ProductRepository, logger zerolog.Logger) ProductService {
	return &productService{
		productRepo: productRepo,
		logger:      logger.With().Str("service", "product").Logger(),
	}
}

// List retrieves products matching an optional equality filter.
func (s *productService) List(ctx context.Context, filter repository.Filter) ([]model.Product, error) {
	products, err := s.productRepo.List(ctx, filter)
	if err != nil {
		if model.IsCode(err, model.ErrCodeInvalidFilter) {
			return nil, err
		}
		s.logger.Error().Err(err).Str("field", filter.Field).Msg("failed to list products")
		return nil, fmt.Errorf("failed to get products: %w", err)
	}

	s.logger.Debug().
		Int("count", len(products)).
		Str("field", filter.Field).
		Msg("retrieved products")

	return products, nil
}

// Insert stores a product, replacing any row with the same ID.
func (s *productService) Insert(ctx context.Context, product *model.Product) error {
	if err := product.Validate(); err != nil {
		s.logger.Warn().Err(err).Str("product_id", product.ID).Msg("rejected invalid product")
		return err
	}
	prepare(&product.Metadata)

	if err := s.productRepo.Upsert(ctx, product); err != nil {
		return fmt.Errorf("failed to insert product: %w", err)
	}

	s.logger.Debug().Str("product_id", product.ID).Msg("product stored")
	return nil
}

// Update overwrites an existing product.
func (s *productService) Update(ctx context.Context, product *model.Product) error {
	if product.ID == "" {
		return model.NewDomainError(model.ErrCodeInvalidInput, "product ID is required")
	}
	if err := product.Validate(); err != nil {
		s.logger.Warn().Err(err).Str("product_id", product.ID).Msg("rejected invalid product")
		return err
	}
	prepare(&product.Metadata)

	found, err := s.productRepo.Update(ctx, product)
	if err != nil {
		return fmt.Errorf("failed to update product: %w", err)
	}
	if !found {
		return model.ErrNotFound
	}

	return nil
}

// Delete removes a product by ID.
func (s *productService) Delete(ctx context.Context, id string) error {
	if id == "" {
		return model.NewDomainError(model.ErrCodeInvalidInput, "product ID is required")
	}

	if err := s.productRepo.Delete(ctx, id); err != nil {
		return fmt.Errorf("failed to delete product: %w", err)
	}

	s.logger.Debug().Str("product_id", id).Msg("product deleted")
	return nil
}

// Import bulk-upserts products, skipping invalid rows.
func (s *productService) Import(ctx context.Context, products []model.Product) error {
	valid := make([]model.Product, 0, len(products))
	for i := range products {
		p := products[i]
		if err := p.Validate(); err != nil {
			s.logger.Warn().Err(err).Str("product_id", p.ID).Msg("skipping invalid product in import")
			continue
		}
		prepare(&p.Metadata)
		valid = append(valid, p)
	}

	if err := s.productRepo.UpsertMany(ctx, valid); err != nil {
		return fmt.Errorf("failed to import products: %w", err)
	}

	s.logger.Info().
		Int("imported", len(valid)).
		Int("skipped", len(products)-len(valid)).
		Msg("products imported")

	return nil
}
