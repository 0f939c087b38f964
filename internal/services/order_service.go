package services

import (
	"context"
	"strings"
	"time"

	"storefront/internal/cache"
	"storefront/internal/logging"
	"storefront/internal/models"
	"storefront/internal/repositories"
)

// OrderService handles reads and lifecycle transitions of orders.
type OrderService struct {
	orderRepo repositories.OrderRepository
	uow       repositories.UnitOfWork
	cache     cache.Store
	ttl       time.Duration
}

// NewOrderService creates a new OrderService.
func NewOrderService(orderRepo repositories.OrderRepository, uow repositories.UnitOfWork, store cache.Store, ttl time.Duration) *OrderService {
	return &OrderService{
		orderRepo: orderRepo,
		uow:       uow,
		cache:     store,
		ttl:       ttl,
	}
}

// OrderUpdate carries the editable fields of a pending order; nil fields are left alone.
type OrderUpdate struct {
	ShippingAddress *string `json:"shipping_address" validate:"omitempty,notblank"`
	PaymentMethod   *string `json:"payment_method" validate:"omitempty,notblank"`
}

// List returns the actor's orders, or every order for staff.
func (s *OrderService) List(ctx context.Context, actor Actor) ([]models.Order, error) {
	if actor.IsStaff {
		return cache.Fetch(ctx, s.cache, cache.AllOrders(), s.ttl, func() ([]models.Order, error) {
			return s.orderRepo.GetAll(ctx)
		})
	}
	return cache.Fetch(ctx, s.cache, cache.OrdersList(actor.UserID), s.ttl, func() ([]models.Order, error) {
		return s.orderRepo.GetByUser(ctx, actor.UserID)
	})
}

// Get returns one order. Orders of other users are reported as not found unless the actor is staff.
func (s *OrderService) Get(ctx context.Context, actor Actor, id string) (*models.Order, error) {
	order, err := cache.Fetch(ctx, s.cache, cache.OrderDetail(id), s.ttl, func() (*models.Order, error) {
		o, err := s.orderRepo.GetByID(ctx, id)
		if err != nil {
			return nil, lookupError("order", id, err)
		}
		return o, nil
	})
	if err != nil {
		return nil, err
	}
	if !actor.CanAccess(order.UserID) {
		return nil, &NotFoundError{Resource: "order", ID: id}
	}
	return order, nil
}

// Cancel cancels a pending order and puts its items back in stock.
func (s *OrderService) Cancel(ctx context.Context, actor Actor, id string) (*models.Order, error) {
	return s.transition(ctx, actor, id, "cancel", func(repos repositories.Repositories, order *models.Order) ([]string, error) {
		switch order.Status {
		case models.OrderStatusPending:
		case models.OrderStatusCancelled:
			return nil, &AlreadyCancelledError{}
		default:
			return nil, &InvalidTransitionError{Status: order.Status, Action: "cancel"}
		}
		restocked := make([]string, 0, len(order.Items))
		for _, it := range order.Items {
			if err := repos.Products().IncrementStock(ctx, it.ProductID, it.Quantity); err != nil {
				return nil, err
			}
			if it.Product != nil {
				it.Product.Stock += it.Quantity
			}
			restocked = append(restocked, it.ProductID)
		}
		order.Status = models.OrderStatusCancelled
		return restocked, nil
	})
}

// Pay marks a pending order as paid.
func (s *OrderService) Pay(ctx context.Context, actor Actor, id string) (*models.Order, error) {
	return s.transition(ctx, actor, id, "pay", func(_ repositories.Repositories, order *models.Order) ([]string, error) {
		if order.Status != models.OrderStatusPending {
			return nil, &InvalidTransitionError{Status: order.Status, Action: "pay"}
		}
		order.Status = models.OrderStatusPaid
		order.PaymentStatus = models.PaymentStatusPaid
		return nil, nil
	})
}

// Update edits the shipping address or payment method of a pending order.
func (s *OrderService) Update(ctx context.Context, actor Actor, id string, upd OrderUpdate) (*models.Order, error) {
	if err := Validate(upd); err != nil {
		return nil, err
	}

	return s.transition(ctx, actor, id, "update", func(_ repositories.Repositories, order *models.Order) ([]string, error) {
		if order.Status != models.OrderStatusPending {
			return nil, &ImmutableOrderError{Status: order.Status}
		}
		if upd.ShippingAddress != nil {
			order.ShippingAddress = strings.TrimSpace(*upd.ShippingAddress)
		}
		if upd.PaymentMethod != nil {
			order.PaymentMethod = strings.TrimSpace(*upd.PaymentMethod)
		}
		return nil, nil
	})
}

// mutation changes a locked order in place and returns the ids of products whose stock it changed.
type mutation func(repos repositories.Repositories, order *models.Order) ([]string, error)

// transition locks the order, re-checks access, applies mutate and persists the order in
// one transaction, then drops every cached view of the order and of the touched products.
func (s *OrderService) transition(ctx context.Context, actor Actor, id, action string, mutate mutation) (*models.Order, error) {
	var (
		order   *models.Order
		touched []string
	)
	err := s.uow.Do(ctx, func(repos repositories.Repositories) error {
		o, err := repos.Orders().GetForUpdate(ctx, id)
		if err != nil {
			return lookupError("order", id, err)
		}
		if !actor.CanAccess(o.UserID) {
			return &NotFoundError{Resource: "order", ID: id}
		}
		if touched, err = mutate(repos, o); err != nil {
			return err
		}
		if err := repos.Orders().Update(ctx, o); err != nil {
			return err
		}
		order = o
		return nil
	})
	if err != nil {
		return nil, txError("order "+action, err)
	}

	keys := cache.OrderKeys(order.ID, actor.UserID, order.UserID)
	if len(touched) > 0 {
		keys = append(keys, cache.ProductKeys(touched...)...)
	}
	s.cache.Delete(keys...)
	logging.FromContext(ctx).Info("order changed", "action", action, "order_id", order.ID, "status", order.Status)
	return order, nil
}
