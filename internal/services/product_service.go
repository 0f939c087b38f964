package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"storefront/internal/cache"
	"storefront/internal/logging"
	"storefront/internal/models"
	"storefront/internal/repositories"

	"github.com/shopspring/decimal"
)

// ProductService handles business logic related to products.
type ProductService struct {
	repo       repositories.ProductRepository
	categories repositories.CategoryRepository
	cache      cache.Store
	ttl        time.Duration
}

// NewProductService creates a new ProductService.
func NewProductService(repo repositories.ProductRepository, categories repositories.CategoryRepository, store cache.Store, ttl time.Duration) *ProductService {
	return &ProductService{
		repo:       repo,
		categories: categories,
		cache:      store,
		ttl:        ttl,
	}
}

// ProductInput is the body of a product create or update.
type ProductInput struct {
	Name        string          `json:"name" validate:"required,min=3,max=255"`
	Description string          `json:"description"`
	Price       decimal.Decimal `json:"price"`
	Stock       int             `json:"stock" validate:"gte=0"`
	CategoryID  string          `json:"category_id" validate:"required"`
}

// GetAllProducts retrieves all products.
func (s *ProductService) GetAllProducts(ctx context.Context) ([]models.Product, error) {
	return cache.Fetch(ctx, s.cache, cache.ProductsList(), s.ttl, func() ([]models.Product, error) {
		return s.repo.GetAll(ctx)
	})
}

// GetProductByID retrieves a single product by its ID.
func (s *ProductService) GetProductByID(ctx context.Context, id string) (*models.Product, error) {
	return cache.Fetch(ctx, s.cache, cache.ProductDetail(id), s.ttl, func() (*models.Product, error) {
		p, err := s.repo.GetByID(ctx, id)
		if err != nil {
			return nil, lookupError("product", id, err)
		}
		return p, nil
	})
}

// CreateProduct creates a new product.
func (s *ProductService) CreateProduct(ctx context.Context, in ProductInput) (*models.Product, error) {
	if err := s.validate(ctx, in); err != nil {
		return nil, err
	}
	product := &models.Product{
		Name:        in.Name,
		Description: in.Description,
		Price:       in.Price,
		Stock:       in.Stock,
		CategoryID:  in.CategoryID,
	}
	if err := s.repo.Create(ctx, product); err != nil {
		return nil, writeError("product", err)
	}
	s.cache.Delete(cache.ProductsList())
	logging.FromContext(ctx).Info("product created", "product_id", product.ID)
	return product, nil
}

// UpdateProduct replaces the editable fields of a product.
func (s *ProductService) UpdateProduct(ctx context.Context, id string, in ProductInput) (*models.Product, error) {
	if err := s.validate(ctx, in); err != nil {
		return nil, err
	}
	product, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, lookupError("product", id, err)
	}
	product.Name = in.Name
	product.Description = in.Description
	product.Price = in.Price
	product.Stock = in.Stock
	product.CategoryID = in.CategoryID
	product.Category = nil
	if err := s.repo.Update(ctx, product); err != nil {
		return nil, lookupError("product", id, writeError("product", err))
	}
	s.cache.Delete(cache.ProductKeys(id)...)
	return product, nil
}

// DeleteProduct deletes a product by its ID.
func (s *ProductService) DeleteProduct(ctx context.Context, id string) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		return lookupError("product", id, writeError("product", err))
	}
	s.cache.Delete(cache.ProductKeys(id)...)
	return nil
}

func (s *ProductService) validate(ctx context.Context, in ProductInput) error {
	if err := Validate(in); err != nil {
		return err
	}
	if !in.Price.IsPositive() {
		return NewValidationError("price", "must be greater than 0")
	}
	if !in.Price.Equal(in.Price.Round(2)) {
		return NewValidationError("price", "must have at most 2 decimal places")
	}
	if _, err := s.categories.GetByID(ctx, in.CategoryID); err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return NewValidationError("category_id", "category does not exist")
		}
		return fmt.Errorf("failed to check category: %w", err)
	}
	return nil
}
