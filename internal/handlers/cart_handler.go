package handlers

import (
	"storefront/internal/middleware"
	"storefront/internal/models"
	"storefront/internal/services"

	"github.com/gofiber/fiber/v2"
)

// CartHandler handles HTTP requests for the current user's cart.
type CartHandler struct {
	service *services.CartService
}

func NewCartHandler(service *services.CartService) *CartHandler {
	return &CartHandler{service: service}
}

// RegisterRoutes registers the cart routes behind the auth middleware.
func (h *CartHandler) RegisterRoutes(router fiber.Router, auth fiber.Handler) {
	cartRoutes := router.Group("/cart", auth)
	cartRoutes.Get("/", h.HandleGetCart)
	cartRoutes.Post("/add", h.HandleAddItem)
	cartRoutes.Patch("/items/:id", h.HandleUpdateItem)
	cartRoutes.Delete("/items/:id", h.HandleRemoveItem)
	cartRoutes.Delete("/clear", h.HandleClear)
}

func cartResponse(cart *models.Cart) fiber.Map {
	return fiber.Map{
		"id":          cart.ID,
		"user_id":     cart.UserID,
		"items":       cart.Items,
		"total_items": cart.TotalItems(),
		"total_price": cart.TotalPrice(),
	}
}

func (h *CartHandler) HandleGetCart(c *fiber.Ctx) error {
	cart, err := h.service.GetCart(c.UserContext(), middleware.CurrentActor(c).UserID)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(cartResponse(cart))
}

func (h *CartHandler) HandleAddItem(c *fiber.Ctx) error {
	var req services.AddItemRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	cart, err := h.service.AddItem(c.UserContext(), middleware.CurrentActor(c).UserID, req)
	if err != nil {
		return writeError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(cartResponse(cart))
}

func (h *CartHandler) HandleUpdateItem(c *fiber.Ctx) error {
	var req services.UpdateItemRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	cart, err := h.service.UpdateItem(c.UserContext(), middleware.CurrentActor(c).UserID, c.Params("id"), req)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(cartResponse(cart))
}

func (h *CartHandler) HandleRemoveItem(c *fiber.Ctx) error {
	if err := h.service.RemoveItem(c.UserContext(), middleware.CurrentActor(c).UserID, c.Params("id")); err != nil {
		return writeError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

func (h *CartHandler) HandleClear(c *fiber.Ctx) error {
	if err := h.service.Clear(c.UserContext(), middleware.CurrentActor(c).UserID); err != nil {
		return writeError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}
