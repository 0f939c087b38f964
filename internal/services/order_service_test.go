package services_test

import (
	"context"
	"testing"

	"storefront/internal/models"
	"storefront/internal/services"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// placeOrder checks out qty units of a fresh product for a fresh user.
func placeOrder(t *testing.T, f *fixture, username string, stock, qty int) (*models.User, *models.Product, *models.Order) {
	t.Helper()
	user := f.seedUser(t, username)
	p := f.seedProduct(t, "Product "+username, "10.00", stock)
	f.putInCart(t, user.ID, p.ID, qty)
	order, err := f.checkoutSvc.Checkout(context.Background(), user.ID, checkoutReq)
	require.NoError(t, err)
	return user, p, order
}

func TestOrderService_CancelRestoresStock(t *testing.T) {
	f := newFixture(t)
	user, p, order := placeOrder(t, f, "alice", 5, 2)
	require.Equal(t, 3, f.stockOf(t, p.ID))

	cancelled, err := f.orderSvc.Cancel(context.Background(), services.Actor{UserID: user.ID}, order.ID)
	require.NoError(t, err)
	assert.Equal(t, models.OrderStatusCancelled, cancelled.Status)
	assert.Equal(t, 5, f.stockOf(t, p.ID))

	_, err = f.orderSvc.Cancel(context.Background(), services.Actor{UserID: user.ID}, order.ID)
	var already *services.AlreadyCancelledError
	assert.ErrorAs(t, err, &already)
	assert.Equal(t, 5, f.stockOf(t, p.ID), "a second cancel must not restock again")
}

func TestOrderService_PayOnce(t *testing.T) {
	f := newFixture(t)
	user, p, order := placeOrder(t, f, "alice", 5, 1)
	actor := services.Actor{UserID: user.ID}

	paid, err := f.orderSvc.Pay(context.Background(), actor, order.ID)
	require.NoError(t, err)
	assert.Equal(t, models.OrderStatusPaid, paid.Status)
	assert.Equal(t, models.PaymentStatusPaid, paid.PaymentStatus)

	_, err = f.orderSvc.Pay(context.Background(), actor, order.ID)
	var transition *services.InvalidTransitionError
	require.ErrorAs(t, err, &transition)
	assert.Equal(t, models.OrderStatusPaid, transition.Status)

	_, err = f.orderSvc.Cancel(context.Background(), actor, order.ID)
	require.ErrorAs(t, err, &transition)
	assert.Contains(t, err.Error(), "paid")
	assert.Equal(t, 4, f.stockOf(t, p.ID))
}

func TestOrderService_PayCancelled(t *testing.T) {
	f := newFixture(t)
	user, _, order := placeOrder(t, f, "alice", 5, 1)
	actor := services.Actor{UserID: user.ID}

	_, err := f.orderSvc.Cancel(context.Background(), actor, order.ID)
	require.NoError(t, err)
	_, err = f.orderSvc.Pay(context.Background(), actor, order.ID)
	var transition *services.InvalidTransitionError
	assert.ErrorAs(t, err, &transition)
}

func TestOrderService_Update(t *testing.T) {
	f := newFixture(t)
	user, _, order := placeOrder(t, f, "alice", 5, 1)
	actor := services.Actor{UserID: user.ID}
	ctx := context.Background()

	updated, err := f.orderSvc.Update(ctx, actor, order.ID, services.OrderUpdate{ShippingAddress: ptr("  2 Side St ")})
	require.NoError(t, err)
	assert.Equal(t, "2 Side St", updated.ShippingAddress)
	assert.Equal(t, "card", updated.PaymentMethod)

	_, err = f.orderSvc.Update(ctx, actor, order.ID, services.OrderUpdate{PaymentMethod: ptr("  ")})
	var vErr *services.ValidationError
	require.ErrorAs(t, err, &vErr)
	assert.Contains(t, vErr.Fields, "payment_method")

	_, err = f.orderSvc.Pay(ctx, actor, order.ID)
	require.NoError(t, err)
	_, err = f.orderSvc.Update(ctx, actor, order.ID, services.OrderUpdate{ShippingAddress: ptr("3 Other St")})
	var immutable *services.ImmutableOrderError
	require.ErrorAs(t, err, &immutable)
	assert.Equal(t, models.OrderStatusPaid, immutable.Status)
}

func TestOrderService_OwnershipAndStaff(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	owner, p, order := placeOrder(t, f, "alice", 5, 2)
	stranger := f.seedUser(t, "mallory")
	staff := services.Actor{UserID: f.seedUser(t, "admin").ID, IsStaff: true}

	var notFound *services.NotFoundError
	_, err := f.orderSvc.Get(ctx, services.Actor{UserID: stranger.ID}, order.ID)
	assert.ErrorAs(t, err, &notFound)
	_, err = f.orderSvc.Cancel(ctx, services.Actor{UserID: stranger.ID}, order.ID)
	assert.ErrorAs(t, err, &notFound)
	_, err = f.orderSvc.Pay(ctx, services.Actor{UserID: stranger.ID}, order.ID)
	assert.ErrorAs(t, err, &notFound)
	assert.Equal(t, 3, f.stockOf(t, p.ID))

	strangerOrders, err := f.orderSvc.List(ctx, services.Actor{UserID: stranger.ID})
	require.NoError(t, err)
	assert.Empty(t, strangerOrders)

	all, err := f.orderSvc.List(ctx, staff)
	require.NoError(t, err)
	assert.Len(t, all, 1)

	got, err := f.orderSvc.Get(ctx, staff, order.ID)
	require.NoError(t, err)
	assert.Equal(t, owner.ID, got.UserID)

	_, err = f.orderSvc.Cancel(ctx, staff, order.ID)
	require.NoError(t, err)
	assert.Equal(t, 5, f.stockOf(t, p.ID))
}

func TestOrderService_UnknownOrder(t *testing.T) {
	f := newFixture(t)
	actor := services.Actor{UserID: f.seedUser(t, "alice").ID}

	var notFound *services.NotFoundError
	_, err := f.orderSvc.Get(context.Background(), actor, "missing")
	assert.ErrorAs(t, err, &notFound)
	_, err = f.orderSvc.Cancel(context.Background(), actor, "missing")
	assert.ErrorAs(t, err, &notFound)
	assert.Equal(t, services.KindNotFound, services.KindOf(err))
}

func TestOrderService_TransitionsInvalidateCache(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	user, p, order := placeOrder(t, f, "alice", 5, 2)
	actor := services.Actor{UserID: user.ID}
	staff := services.Actor{UserID: f.seedUser(t, "admin").ID, IsStaff: true}

	// Prime every cached view of the order and its product.
	_, err := f.orderSvc.Get(ctx, actor, order.ID)
	require.NoError(t, err)
	_, err = f.orderSvc.List(ctx, actor)
	require.NoError(t, err)
	_, err = f.orderSvc.List(ctx, staff)
	require.NoError(t, err)
	_, err = f.productSvc.GetProductByID(ctx, p.ID)
	require.NoError(t, err)

	_, err = f.orderSvc.Cancel(ctx, staff, order.ID)
	require.NoError(t, err)

	got, err := f.orderSvc.Get(ctx, actor, order.ID)
	require.NoError(t, err)
	assert.Equal(t, models.OrderStatusCancelled, got.Status)

	mine, err := f.orderSvc.List(ctx, actor)
	require.NoError(t, err)
	require.Len(t, mine, 1)
	assert.Equal(t, models.OrderStatusCancelled, mine[0].Status)

	all, err := f.orderSvc.List(ctx, staff)
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, models.OrderStatusCancelled, all[0].Status)

	product, err := f.productSvc.GetProductByID(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, 5, product.Stock)
}
