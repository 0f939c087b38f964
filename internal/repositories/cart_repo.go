package repositories

import (
	"context"

	"storefront/internal/models"
)

// CartRepository defines the interface for cart and cart item data access.
type CartRepository interface {
	// FindOrInsert returns the user's cart, creating it on first access. The unique
	// index on user_id guarantees one cart per user under concurrent first access.
	FindOrInsert(ctx context.Context, userID string) (*models.Cart, error)
	// Lock takes a row lock on the cart for the rest of the transaction.
	Lock(ctx context.Context, cartID string) error
	// Items returns the cart's items in insertion order with their products loaded.
	Items(ctx context.Context, cartID string) ([]models.CartItem, error)
	GetItem(ctx context.Context, cartID, itemID string) (*models.CartItem, error)
	FindItemByProduct(ctx context.Context, cartID, productID string) (*models.CartItem, error)
	CreateItem(ctx context.Context, item *models.CartItem) error
	UpdateItemQuantity(ctx context.Context, itemID string, quantity int) error
	DeleteItem(ctx context.Context, cartID, itemID string) error
	// ClearItems deletes every item of the cart; the cart row itself stays.
	ClearItems(ctx context.Context, cartID string) (int64, error)
}
