package service

import (
	"context"
	"fmt"

	"catalog-sync/internal/model"
	"catalog-sync/internal/repository"

	"github.com/rs/zerolog"
)

// categoryService implements CategoryService.
type categoryService struct {
	categoryRepo repository.CategoryRepository
	logger       zerolog.Logger
}

// NewCategoryService creates a new category service.
func NewCategoryService(categoryRepo repository.CategoryRepository, logger zerolog.Logger) CategoryService {
	return &categoryService{
		categoryRepo: categoryRepo,
		logger:       logger.With().Str("service", "category").Logger(),
	}
}

// List retrieves categories matching an optional equality filter.
func (s *categoryService) List(ctx context.Context, filter repository.Filter) ([]model.Category, error) {
	categories, err := s.categoryRepo.List(ctx, filter)
	if err != nil {
		if model.IsCode(err, model.ErrCodeInvalidFilter) {
			return nil, err
		}
		s.logger.Error().Err(err).Str("field", filter.Field).Msg("failed to list categories")
		return nil, fmt.Errorf("failed to get categories: %w", err)
	}

	s.logger.Debug().
		Int("count", len(categories)).
		Str("field", filter.Field).
		Msg("retrieved categories")

	return categories, nil
}

// Insert stores a category, replacing any row with the same ID.
func (s *categoryService) Insert(ctx context.Context, category *model.Category) error {
	if err := category.Validate(); err != nil {
		s.logger.Warn().Err(err).Str("category_id", category.ID).Msg("rejected invalid category")
		return err
	}
	prepare(&category.Metadata)

	if err := s.categoryRepo.Upsert(ctx, category); err != nil {
		return fmt.Errorf("failed to insert category: %w", err)
	}

	s.logger.Debug().Str("category_id", category.ID).Msg("category stored")
	return nil
}

// Update overwrites an existing category.
func (s *categoryService) Update(ctx context.Context, category *model.Category) error {
	if category.ID == "" {
		return model.NewDomainError(model.ErrCodeInvalidInput, "category ID is required")
	}
	if err := category.Validate(); err != nil {
		s.logger.Warn().Err(err).Str("category_id", category.ID).Msg("rejected invalid category")
		return err
	}
	prepare(&category.Metadata)

	found, err := s.categoryRepo.Update(ctx, category)
	if err != nil {
		return fmt.Errorf("failed to update category: %w", err)
	}
	if !found {
		return model.ErrNotFound
	}

	return nil
}

// Delete removes a category by ID.
func (s *categoryService) Delete(ctx context.Context, id string) error {
	if id == "" {
		return model.NewDomainError(model.ErrCodeInvalidInput, "category ID is required")
	}

	if err := s.categoryRepo.Delete(ctx, id); err != nil {
		return fmt.Errorf("failed to delete category: %w", err)
	}

	s.logger.Debug().Str("category_id", id).Msg("category deleted")
	return nil
}

// Import bulk-upserts categories, skipping invalid rows.
func (s *categoryService) Import(ctx context.Context, categories []model.Category) error {
	valid := make([]model.Category, 0, len(categories))
	for i := range categories {
		c := categories[i]
		if err := c.Validate(); err != nil {
			s.logger.Warn().Err(err).Str("category_id", c.ID).Msg("skipping invalid category in import")
			continue
		}
		prepare(&c.Metadata)
		valid = append(valid, c)
	}

	if err := s.categoryRepo.UpsertMany(ctx, valid); err != nil {
		return fmt.Errorf("failed to import categories: %w", err)
	}

	s.logger.Info().
		Int("imported", len(valid)).
		Int("skipped", len(categories)-len(valid)).
		Msg("categories imported")

	return nil
}
