package handlers

import (
	"storefront/internal/middleware"
	"storefront/internal/services"

	"github.com/gofiber/fiber/v2"
)

// OrderHandler handles HTTP requests for orders.
type OrderHandler struct {
	service  *services.OrderService
	checkout *services.CheckoutService
}

// NewOrderHandler creates a new OrderHandler.
func NewOrderHandler(service *services.OrderService, checkout *services.CheckoutService) *OrderHandler {
	return &OrderHandler{
		service:  service,
		checkout: checkout,
	}
}

// RegisterRoutes registers the order routes behind the auth middleware.
func (h *OrderHandler) RegisterRoutes(router fiber.Router, auth fiber.Handler) {
	orderRoutes := router.Group("/orders", auth)
	orderRoutes.Get("/", h.HandleGetOrders)
	orderRoutes.Post("/checkout", h.HandleCheckout)
	orderRoutes.Get("/:id", h.HandleGetOrderByID)
	orderRoutes.Post("/:id/cancel", h.HandleCancel)
	orderRoutes.Post("/:id/pay", h.HandlePay)
	orderRoutes.Patch("/:id/update", h.HandleUpdate)
}

// HandleGetOrders lists the caller's orders, or all orders for staff.
func (h *OrderHandler) HandleGetOrders(c *fiber.Ctx) error {
	orders, err := h.service.List(c.UserContext(), middleware.CurrentActor(c))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(orders)
}

// HandleGetOrderByID retrieves a single order by its ID.
func (h *OrderHandler) HandleGetOrderByID(c *fiber.Ctx) error {
	order, err := h.service.Get(c.UserContext(), middleware.CurrentActor(c), c.Params("id"))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(order)
}

// HandleCheckout turns the caller's cart into an order.
func (h *OrderHandler) HandleCheckout(c *fiber.Ctx) error {
	var req services.CheckoutRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	order, err := h.checkout.Checkout(c.UserContext(), middleware.CurrentActor(c).UserID, req)
	if err != nil {
		return writeError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(order)
}

func (h *OrderHandler) HandleCancel(c *fiber.Ctx) error {
	order, err := h.service.Cancel(c.UserContext(), middleware.CurrentActor(c), c.Params("id"))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(order)
}

func (h *OrderHandler) HandlePay(c *fiber.Ctx) error {
	order, err := h.service.Pay(c.UserContext(), middleware.CurrentActor(c), c.Params("id"))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(order)
}

func (h *OrderHandler) HandleUpdate(c *fiber.Ctx) error {
	var upd services.OrderUpdate
	if err := parseBody(c, &upd); err != nil {
		return err
	}
	order, err := h.service.Update(c.UserContext(), middleware.CurrentActor(c), c.Params("id"), upd)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(order)
}
