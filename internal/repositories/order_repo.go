package repositories

import (
	"context"

	"storefront/internal/models"
)

// OrderRepository defines the interface for order data access.
type OrderRepository interface {
	GetAll(ctx context.Context) ([]models.Order, error)
	GetByUser(ctx context.Context, userID string) ([]models.Order, error)
	// GetByID loads the order with its items and their products.
	GetByID(ctx context.Context, id string) (*models.Order, error)
	// GetForUpdate loads the order with its items and locks the order row.
	GetForUpdate(ctx context.Context, id string) (*models.Order, error)
	// Create inserts the order row only; items are added with CreateItem.
	Create(ctx context.Context, order *models.Order) error
	CreateItem(ctx context.Context, item *models.OrderItem) error
	// Update persists the order's own columns, never its items.
	Update(ctx context.Context, order *models.Order) error
}
