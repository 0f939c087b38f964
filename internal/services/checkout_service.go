package services

import (
	"context"
	"errors"
	"sort"
	"strings"

	"storefront/internal/cache"
	"storefront/internal/logging"
	"storefront/internal/models"
	"storefront/internal/notify"
	"storefront/internal/repositories"
	"storefront/pkg/metrics"

	"github.com/shopspring/decimal"
)

// CheckoutRequest is the body of a checkout.
type CheckoutRequest struct {
	ShippingAddress string `json:"shipping_address" validate:"required,notblank"`
	PaymentMethod   string `json:"payment_method" validate:"required,notblank"`
}

// CheckoutObserver records checkout outcomes.
type CheckoutObserver interface {
	ObserveCheckout(result string)
}

// CheckoutService converts a user's cart into an order.
type CheckoutService struct {
	uow      repositories.UnitOfWork
	users    repositories.UserRepository
	cache    cache.Store
	notifier notify.Dispatcher
	observer CheckoutObserver
}

func NewCheckoutService(uow repositories.UnitOfWork, users repositories.UserRepository, store cache.Store, notifier notify.Dispatcher, observer CheckoutObserver) *CheckoutService {
	return &CheckoutService{
		uow:      uow,
		users:    users,
		cache:    store,
		notifier: notifier,
		observer: observer,
	}
}

// Checkout turns the user's cart into a pending order. Stock of every line is checked
// and decremented under row locks, item prices are snapshotted and the cart is emptied,
// all in one transaction: on any error nothing is persisted and the cart is untouched.
// After commit the cached views of the order list and of the touched products are
// dropped and a confirmation email is dispatched; email failures never fail the checkout.
func (s *CheckoutService) Checkout(ctx context.Context, userID string, req CheckoutRequest) (*models.Order, error) {
	logger := logging.FromContext(ctx)

	var (
		order   *models.Order
		touched []string
	)
	err := s.uow.Do(ctx, func(repos repositories.Repositories) error {
		cart, err := repos.Carts().FindOrInsert(ctx, userID)
		if err != nil {
			return err
		}
		// Concurrent checkouts of the same cart queue here, so the cart is consumed once.
		if err := repos.Carts().Lock(ctx, cart.ID); err != nil {
			return err
		}
		items, err := repos.Carts().Items(ctx, cart.ID)
		if err != nil {
			return err
		}
		if len(items) == 0 {
			return &EmptyCartError{}
		}
		if err := Validate(req); err != nil {
			return err
		}
		// Lock products in id order so overlapping carts cannot deadlock.
		sort.SliceStable(items, func(i, j int) bool { return items[i].ProductID < items[j].ProductID })

		order = &models.Order{
			UserID:          userID,
			Status:          models.OrderStatusPending,
			PaymentStatus:   models.PaymentStatusUnpaid,
			ShippingAddress: strings.TrimSpace(req.ShippingAddress),
			PaymentMethod:   strings.TrimSpace(req.PaymentMethod),
			TotalPrice:      decimal.Zero,
		}
		if err := repos.Orders().Create(ctx, order); err != nil {
			return err
		}

		total := decimal.Zero
		touched = touched[:0]
		for _, ci := range items {
			line, err := s.purchase(ctx, repos, order.ID, ci)
			if err != nil {
				return err
			}
			total = total.Add(line.LineTotal())
			order.Items = append(order.Items, *line)
			touched = append(touched, ci.ProductID)
		}

		order.TotalPrice = total
		if err := repos.Orders().Update(ctx, order); err != nil {
			return err
		}
		_, err = repos.Carts().ClearItems(ctx, cart.ID)
		return err
	})
	if err != nil {
		s.observe(err)
		if KindOf(err) == KindInternal {
			logger.Error("checkout failed", "user_id", userID, "error", err)
		}
		return nil, txError("checkout", err)
	}
	s.observe(nil)
	logger.Info("order placed", "order_id", order.ID, "user_id", userID, "total", order.TotalPrice.StringFixed(2))

	s.cache.Delete(append(cache.OrderKeys(order.ID, userID), cache.ProductKeys(touched...)...)...)
	s.sendConfirmation(ctx, order)
	return order, nil
}

// purchase moves one cart line into the order: locks the product, checks and decrements
// its stock and records the line at the current price.
func (s *CheckoutService) purchase(ctx context.Context, repos repositories.Repositories, orderID string, ci models.CartItem) (*models.OrderItem, error) {
	product, err := repos.Products().GetForUpdate(ctx, ci.ProductID)
	if err != nil {
		return nil, lookupError("product", ci.ProductID, err)
	}
	shortage := &InsufficientStockError{
		ProductID:   product.ID,
		ProductName: product.Name,
		Requested:   ci.Quantity,
		Available:   product.Stock,
	}
	if product.Stock < ci.Quantity {
		return nil, shortage
	}

	line := &models.OrderItem{
		OrderID:   orderID,
		ProductID: product.ID,
		Quantity:  ci.Quantity,
		Price:     product.Price,
	}
	if err := repos.Orders().CreateItem(ctx, line); err != nil {
		return nil, err
	}
	if err := repos.Products().DecrementStock(ctx, product.ID, ci.Quantity); err != nil {
		if errors.Is(err, repositories.ErrInsufficientStock) {
			return nil, shortage
		}
		return nil, err
	}
	product.Stock -= ci.Quantity
	line.Product = product
	return line, nil
}

func (s *CheckoutService) sendConfirmation(ctx context.Context, order *models.Order) {
	logger := logging.FromContext(ctx)
	user, err := s.users.GetByID(ctx, order.UserID)
	if err != nil {
		logger.Error("order confirmation not sent", "order_id", order.ID, "error", err)
		return
	}
	if err := s.notifier.Dispatch(ctx, notify.OrderConfirmation(order, user)); err != nil {
		logger.Error("order confirmation not sent", "order_id", order.ID, "error", err)
	}
}

func (s *CheckoutService) observe(err error) {
	if s.observer == nil {
		return
	}
	switch {
	case err == nil:
		s.observer.ObserveCheckout(metrics.CheckoutSucceeded)
	case KindOf(err) == KindInternal:
		s.observer.ObserveCheckout(metrics.CheckoutFailed)
	default:
		s.observer.ObserveCheckout(metrics.CheckoutRejected)
	}
}
