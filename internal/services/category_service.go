package services

import (
	"context"
	"errors"

	"storefront/internal/cache"
	"storefront/internal/logging"
	"storefront/internal/models"
	"storefront/internal/repositories"
)

// CategoryService manages product categories.
type CategoryService struct {
	repo     repositories.CategoryRepository
	products repositories.ProductRepository
	cache    cache.Store
}

func NewCategoryService(repo repositories.CategoryRepository, products repositories.ProductRepository, store cache.Store) *CategoryService {
	return &CategoryService{repo: repo, products: products, cache: store}
}

// CategoryInput is the body of a category create or update.
type CategoryInput struct {
	Name     string  `json:"name" validate:"required,max=255"`
	ParentID *string `json:"parent_id"`
}

func (s *CategoryService) List(ctx context.Context) ([]models.Category, error) {
	return s.repo.GetAll(ctx)
}

func (s *CategoryService) Get(ctx context.Context, id string) (*models.Category, error) {
	c, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, lookupError("category", id, err)
	}
	return c, nil
}

func (s *CategoryService) Create(ctx context.Context, in CategoryInput) (*models.Category, error) {
	if err := s.validate(ctx, "", in); err != nil {
		return nil, err
	}
	c := &models.Category{Name: in.Name, ParentID: in.ParentID}
	if err := s.repo.Create(ctx, c); err != nil {
		return nil, writeError("category", err)
	}
	return c, nil
}

// Update renames or re-parents a category. The slug is kept so existing links stay valid.
func (s *CategoryService) Update(ctx context.Context, id string, in CategoryInput) (*models.Category, error) {
	if err := s.validate(ctx, id, in); err != nil {
		return nil, err
	}
	c, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	c.Name = in.Name
	c.ParentID = in.ParentID
	if err := s.repo.Update(ctx, c); err != nil {
		return nil, lookupError("category", id, writeError("category", err))
	}
	s.invalidateProducts(ctx, id)
	return c, nil
}

func (s *CategoryService) Delete(ctx context.Context, id string) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		return lookupError("category", id, writeError("category", err))
	}
	s.invalidateProducts(ctx, id)
	return nil
}

// invalidateProducts drops cached payloads of the category's products, which embed the category.
func (s *CategoryService) invalidateProducts(ctx context.Context, categoryID string) {
	products, err := s.products.GetByCategory(ctx, categoryID)
	if err != nil {
		logging.FromContext(ctx).Warn("product cache not invalidated", "category_id", categoryID, "error", err)
		s.cache.Delete(cache.ProductsList())
		return
	}
	ids := make([]string, 0, len(products))
	for _, p := range products {
		ids = append(ids, p.ID)
	}
	s.cache.Delete(cache.ProductKeys(ids...)...)
}

func (s *CategoryService) validate(ctx context.Context, id string, in CategoryInput) error {
	if err := Validate(in); err != nil {
		return err
	}
	if in.ParentID == nil {
		return nil
	}
	if *in.ParentID == id {
		return NewValidationError("parent_id", "a category cannot be its own parent")
	}
	if _, err := s.repo.GetByID(ctx, *in.ParentID); err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return NewValidationError("parent_id", "parent category does not exist")
		}
		return err
	}
	return nil
}
