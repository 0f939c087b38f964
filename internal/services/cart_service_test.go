package services_test

import (
	"context"
	"testing"

	"storefront/internal/services"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCartService_AddItemMergesLines(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	user := f.seedUser(t, "alice")
	p := f.seedProduct(t, "Product A", "2.50", 5)

	cart, err := f.cartSvc.AddItem(ctx, user.ID, services.AddItemRequest{ProductID: p.ID})
	require.NoError(t, err)
	require.Len(t, cart.Items, 1)
	assert.Equal(t, 1, cart.Items[0].Quantity)

	cart, err = f.cartSvc.AddItem(ctx, user.ID, services.AddItemRequest{ProductID: p.ID, Quantity: 3})
	require.NoError(t, err)
	require.Len(t, cart.Items, 1)
	assert.Equal(t, 4, cart.Items[0].Quantity)
	assert.Equal(t, 4, cart.TotalItems())
	assert.Equal(t, "10.00", cart.TotalPrice().StringFixed(2))

	_, err = f.cartSvc.AddItem(ctx, user.ID, services.AddItemRequest{ProductID: p.ID, Quantity: 2})
	var stockErr *services.InsufficientStockError
	require.ErrorAs(t, err, &stockErr)
	assert.Equal(t, 6, stockErr.Requested)
	assert.Equal(t, 5, stockErr.Available)
	assert.Equal(t, 5, f.stockOf(t, p.ID), "adding to a cart never reserves stock")
}

func TestCartService_AddUnknownProduct(t *testing.T) {
	f := newFixture(t)
	user := f.seedUser(t, "alice")

	_, err := f.cartSvc.AddItem(context.Background(), user.ID, services.AddItemRequest{ProductID: "nope", Quantity: 1})
	var notFound *services.NotFoundError
	assert.ErrorAs(t, err, &notFound)

	_, err = f.cartSvc.AddItem(context.Background(), user.ID, services.AddItemRequest{})
	var vErr *services.ValidationError
	require.ErrorAs(t, err, &vErr)
	assert.Contains(t, vErr.Fields, "product_id")
}

func TestCartService_UpdateAndRemoveOwnItemsOnly(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	alice := f.seedUser(t, "alice")
	bob := f.seedUser(t, "bob")
	p := f.seedProduct(t, "Product A", "1.00", 3)

	cart, err := f.cartSvc.AddItem(ctx, alice.ID, services.AddItemRequest{ProductID: p.ID, Quantity: 1})
	require.NoError(t, err)
	itemID := cart.Items[0].ID

	cart, err = f.cartSvc.UpdateItem(ctx, alice.ID, itemID, services.UpdateItemRequest{Quantity: 3})
	require.NoError(t, err)
	assert.Equal(t, 3, cart.Items[0].Quantity)

	_, err = f.cartSvc.UpdateItem(ctx, alice.ID, itemID, services.UpdateItemRequest{Quantity: 4})
	var stockErr *services.InsufficientStockError
	assert.ErrorAs(t, err, &stockErr)

	_, err = f.cartSvc.UpdateItem(ctx, alice.ID, itemID, services.UpdateItemRequest{Quantity: 0})
	var vErr *services.ValidationError
	assert.ErrorAs(t, err, &vErr)

	var notFound *services.NotFoundError
	_, err = f.cartSvc.UpdateItem(ctx, bob.ID, itemID, services.UpdateItemRequest{Quantity: 1})
	assert.ErrorAs(t, err, &notFound)
	assert.ErrorAs(t, f.cartSvc.RemoveItem(ctx, bob.ID, itemID), &notFound)
	assert.Equal(t, 1, f.cartSize(t, alice.ID))

	require.NoError(t, f.cartSvc.RemoveItem(ctx, alice.ID, itemID))
	assert.Equal(t, 0, f.cartSize(t, alice.ID))
}

func TestCartService_ClearKeepsCart(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	user := f.seedUser(t, "alice")
	a := f.seedProduct(t, "Product A", "1.00", 3)
	b := f.seedProduct(t, "Product B", "1.00", 3)
	f.putInCart(t, user.ID, a.ID, 1)
	f.putInCart(t, user.ID, b.ID, 1)

	before, err := f.cartSvc.GetCart(ctx, user.ID)
	require.NoError(t, err)
	require.Len(t, before.Items, 2)
	assert.Equal(t, a.ID, before.Items[0].ProductID)

	require.NoError(t, f.cartSvc.Clear(ctx, user.ID))
	after, err := f.cartSvc.GetCart(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, before.ID, after.ID)
	assert.Empty(t, after.Items)
}
