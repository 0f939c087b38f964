package services_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"storefront/internal/cache"
	"storefront/internal/database"
	"storefront/internal/models"
	"storefront/internal/notify"
	"storefront/internal/repositories"
	"storefront/internal/services"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

// recordingDispatcher captures dispatched tasks and optionally fails.
type recordingDispatcher struct {
	mu    sync.Mutex
	tasks []notify.Task
	err   error
}

func (d *recordingDispatcher) Dispatch(_ context.Context, task notify.Task) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.tasks = append(d.tasks, task)
	return d.err
}

func (d *recordingDispatcher) Tasks() []notify.Task {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]notify.Task(nil), d.tasks...)
}

type recordingObserver struct {
	mu      sync.Mutex
	results []string
}

func (o *recordingObserver) ObserveCheckout(result string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.results = append(o.results, result)
}

// fixture wires the services against a private in-memory SQLite database.
type fixture struct {
	db       *gorm.DB
	store    *cache.MemoryStore
	notifier *recordingDispatcher
	observer *recordingObserver

	users    repositories.UserRepository
	products repositories.ProductRepository
	carts    repositories.CartRepository
	orderDB  repositories.OrderRepository

	productSvc  *services.ProductService
	cartSvc     *services.CartService
	checkoutSvc *services.CheckoutService
	orderSvc    *services.OrderService

	category *models.Category
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()
	db, err := database.OpenInMemory(ctx)
	require.NoError(t, err)
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	})

	f := &fixture{
		db:       db,
		store:    cache.NewMemoryStore(time.Minute, time.Minute),
		notifier: &recordingDispatcher{},
		observer: &recordingObserver{},
		users:    repositories.NewGORMUserRepository(db),
		products: repositories.NewGORMProductRepository(db),
		carts:    repositories.NewGORMCartRepository(db),
		orderDB:  repositories.NewGORMOrderRepository(db),
	}
	categories := repositories.NewGORMCategoryRepository(db)
	uow := repositories.NewGORMUnitOfWork(db)

	f.productSvc = services.NewProductService(f.products, categories, f.store, time.Minute)
	f.cartSvc = services.NewCartService(f.carts, uow)
	f.checkoutSvc = services.NewCheckoutService(uow, f.users, f.store, f.notifier, f.observer)
	f.orderSvc = services.NewOrderService(f.orderDB, uow, f.store, time.Minute)

	f.category = &models.Category{Name: "General"}
	require.NoError(t, categories.Create(ctx, f.category))
	return f
}

func (f *fixture) seedUser(t *testing.T, username string) *models.User {
	t.Helper()
	u := &models.User{
		Username:  username,
		Email:     username + "@example.com",
		FirstName: "Test",
		LastName:  username,
		Password:  "not-a-real-hash",
	}
	require.NoError(t, f.users.Create(context.Background(), u))
	return u
}

func (f *fixture) seedProduct(t *testing.T, name, price string, stock int) *models.Product {
	t.Helper()
	p := &models.Product{
		Name:       name,
		Price:      decimal.RequireFromString(price),
		Stock:      stock,
		CategoryID: f.category.ID,
	}
	require.NoError(t, f.products.Create(context.Background(), p))
	return p
}

// putInCart writes a cart line directly, without the stock check AddItem performs.
func (f *fixture) putInCart(t *testing.T, userID, productID string, qty int) {
	t.Helper()
	ctx := context.Background()
	cart, err := f.carts.FindOrInsert(ctx, userID)
	require.NoError(t, err)
	require.NoError(t, f.carts.CreateItem(ctx, &models.CartItem{CartID: cart.ID, ProductID: productID, Quantity: qty}))
	// Distinct created_at values keep cart order deterministic.
	time.Sleep(2 * time.Millisecond)
}

func (f *fixture) stockOf(t *testing.T, productID string) int {
	t.Helper()
	p, err := f.products.GetByID(context.Background(), productID)
	require.NoError(t, err)
	return p.Stock
}

func (f *fixture) cartSize(t *testing.T, userID string) int {
	t.Helper()
	cart, err := f.cartSvc.GetCart(context.Background(), userID)
	require.NoError(t, err)
	return len(cart.Items)
}

func (f *fixture) count(t *testing.T, model any) int64 {
	t.Helper()
	var n int64
	require.NoError(t, f.db.Model(model).Count(&n).Error)
	return n
}

func ptr[T any](v T) *T { return &v }

var checkoutReq = services.CheckoutRequest{ShippingAddress: "1 Main St", PaymentMethod: "card"}
