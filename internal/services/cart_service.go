package services

import (
	"context"
	"errors"
	"fmt"

	"storefront/internal/models"
	"storefront/internal/repositories"
)

// CartService manages the current user's cart.
type CartService struct {
	carts repositories.CartRepository
	uow   repositories.UnitOfWork
}

func NewCartService(carts repositories.CartRepository, uow repositories.UnitOfWork) *CartService {
	return &CartService{carts: carts, uow: uow}
}

// AddItemRequest is the body of an add-to-cart call. Quantity defaults to 1.
type AddItemRequest struct {
	ProductID string `json:"product_id" validate:"required"`
	Quantity  int    `json:"quantity" validate:"gte=0"`
}

// UpdateItemRequest is the body of a cart item quantity change.
type UpdateItemRequest struct {
	Quantity int `json:"quantity" validate:"required,min=1"`
}

// GetCart returns the user's cart with its items, creating an empty cart on first access.
func (s *CartService) GetCart(ctx context.Context, userID string) (*models.Cart, error) {
	cart, err := s.carts.FindOrInsert(ctx, userID)
	if err != nil {
		return nil, err
	}
	items, err := s.carts.Items(ctx, cart.ID)
	if err != nil {
		return nil, err
	}
	cart.Items = items
	return cart, nil
}

// AddItem puts quantity units of a product in the cart. A product already in the cart has
// its quantity increased; the total may not exceed the product's stock.
func (s *CartService) AddItem(ctx context.Context, userID string, req AddItemRequest) (*models.Cart, error) {
	if req.Quantity == 0 {
		req.Quantity = 1
	}
	if err := Validate(req); err != nil {
		return nil, err
	}

	err := s.uow.Do(ctx, func(repos repositories.Repositories) error {
		cart, err := repos.Carts().FindOrInsert(ctx, userID)
		if err != nil {
			return err
		}
		product, err := repos.Products().GetForUpdate(ctx, req.ProductID)
		if err != nil {
			return lookupError("product", req.ProductID, err)
		}

		existing, err := repos.Carts().FindItemByProduct(ctx, cart.ID, product.ID)
		if err != nil && !errors.Is(err, repositories.ErrNotFound) {
			return err
		}
		total := req.Quantity
		if existing != nil {
			total += existing.Quantity
		}
		if product.Stock < total {
			return &InsufficientStockError{
				ProductID:   product.ID,
				ProductName: product.Name,
				Requested:   total,
				Available:   product.Stock,
			}
		}

		if existing != nil {
			return repos.Carts().UpdateItemQuantity(ctx, existing.ID, total)
		}
		return repos.Carts().CreateItem(ctx, &models.CartItem{
			CartID:    cart.ID,
			ProductID: product.ID,
			Quantity:  total,
		})
	})
	if err != nil {
		return nil, txError("add to cart", err)
	}
	return s.GetCart(ctx, userID)
}

// UpdateItem sets the quantity of one of the user's cart items.
func (s *CartService) UpdateItem(ctx context.Context, userID, itemID string, req UpdateItemRequest) (*models.Cart, error) {
	if err := Validate(req); err != nil {
		return nil, err
	}

	err := s.uow.Do(ctx, func(repos repositories.Repositories) error {
		cart, err := repos.Carts().FindOrInsert(ctx, userID)
		if err != nil {
			return err
		}
		item, err := repos.Carts().GetItem(ctx, cart.ID, itemID)
		if err != nil {
			return lookupError("cart item", itemID, err)
		}
		product, err := repos.Products().GetForUpdate(ctx, item.ProductID)
		if err != nil {
			return lookupError("product", item.ProductID, err)
		}
		if product.Stock < req.Quantity {
			return &InsufficientStockError{
				ProductID:   product.ID,
				ProductName: product.Name,
				Requested:   req.Quantity,
				Available:   product.Stock,
			}
		}
		return repos.Carts().UpdateItemQuantity(ctx, item.ID, req.Quantity)
	})
	if err != nil {
		return nil, txError("update cart item", err)
	}
	return s.GetCart(ctx, userID)
}

// RemoveItem deletes one of the user's cart items.
func (s *CartService) RemoveItem(ctx context.Context, userID, itemID string) error {
	cart, err := s.carts.FindOrInsert(ctx, userID)
	if err != nil {
		return err
	}
	if err := s.carts.DeleteItem(ctx, cart.ID, itemID); err != nil {
		return lookupError("cart item", itemID, err)
	}
	return nil
}

// Clear empties the user's cart. The cart itself is kept.
func (s *CartService) Clear(ctx context.Context, userID string) error {
	cart, err := s.carts.FindOrInsert(ctx, userID)
	if err != nil {
		return err
	}
	if _, err := s.carts.ClearItems(ctx, cart.ID); err != nil {
		return fmt.Errorf("failed to clear cart: %w", err)
	}
	return nil
}
