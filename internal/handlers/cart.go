package handlers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/example/retailpulse/internal/services"
)

// CartHandler manages the shopping cart of the authenticated user.
type CartHandler struct {
	carts *services.CartService
}

func NewCartHandler(carts *services.CartService) *CartHandler {
	return &CartHandler{carts: carts}
}

type addToCartRequest struct {
	ProductID string `json:"productId" query:"productId"`
	Quantity  int    `json:"quantity" query:"quantity"`
}

// AddToCart accepts productId and quantity as query parameters or a JSON body.
func (h *CartHandler) AddToCart(c *fiber.Ctx) error {
	userID, err := currentUserID(c)
	if err != nil {
		return err
	}

	var req addToCartRequest
	if err := c.QueryParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid query parameters")
	}
	if err := parseOptionalBody(c, &req); err != nil {
		return err
	}

	productID, err := uuid.Parse(req.ProductID)
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid productId")
	}

	cart, err := h.carts.AddToCart(c.UserContext(), userID, productID, req.Quantity)
	if err != nil {
		return err
	}
	return respondData(c, cart)
}

func (h *CartHandler) GetCart(c *fiber.Ctx) error {
	userID, err := currentUserID(c)
	if err != nil {
		return err
	}

	cart, err := h.carts.GetCart(c.UserContext(), userID)
	if err != nil {
		return err
	}
	return respondData(c, cart)
}

func (h *CartHandler) RemoveItem(c *fiber.Ctx) error {
	userID, err := currentUserID(c)
	if err != nil {
		return err
	}
	productID, err := parseUUIDParam(c, "productId")
	if err != nil {
		return err
	}

	cart, err := h.carts.RemoveFromCart(c.UserContext(), userID, productID)
	if err != nil {
		return err
	}
	return respondData(c, cart)
}

func (h *CartHandler) ClearCart(c *fiber.Ctx) error {
	userID, err := currentUserID(c)
	if err != nil {
		return err
	}

	if err := h.carts.ClearCart(c.UserContext(), userID); err != nil {
		return err
	}
	return c.SendStatus(fiber.StatusNoContent)
}
