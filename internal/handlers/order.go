package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/example/retailpulse/internal/middleware"
	"github.com/example/retailpulse/internal/services"
	"github.com/example/retailpulse/internal/utils"
)

// OrderHandler manages order endpoints.
type OrderHandler struct {
	orders *services.OrderService
}

// NewOrderHandler constructs OrderHandler.
func NewOrderHandler(orders *services.OrderService) *OrderHandler {
	return &OrderHandler{orders: orders}
}

type createOrderRequest struct {
	Address     string `json:"address" query:"address"`
	PhoneNumber string `json:"phoneNumber" query:"phoneNumber"`
}

// CreateOrder turns the authenticated user's cart into an order.
func (h *OrderHandler) CreateOrder(c *fiber.Ctx) error {
	userID, err := currentUserID(c)
	if err != nil {
		return err
	}

	var req createOrderRequest
	if err := c.QueryParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid query parameters")
	}
	if err := parseOptionalBody(c, &req); err != nil {
		return err
	}

	order, err := h.orders.CreateOrder(c.UserContext(), userID, services.CreateOrderInput{
		Address:     req.Address,
		PhoneNumber: req.PhoneNumber,
	})
	if err != nil {
		return err
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"success": true, "data": order})
}

// ListOrders returns every order for administrators, optionally by ?status=.
func (h *OrderHandler) ListOrders(c *fiber.Ctx) error {
	pg := utils.ParsePagination(c)

	orders, total, err := h.orders.ListOrders(c.UserContext(), c.Query("status"), pg.Limit, pg.Offset)
	if err != nil {
		return err
	}

	return c.JSON(fiber.Map{
		"success":    true,
		"data":       orders,
		"pagination": pg.Meta(total),
	})
}

// ListUserOrders returns the orders of the authenticated user.
func (h *OrderHandler) ListUserOrders(c *fiber.Ctx) error {
	userID, err := currentUserID(c)
	if err != nil {
		return err
	}
	pg := utils.ParsePagination(c)

	orders, total, err := h.orders.ListUserOrders(c.UserContext(), userID, pg.Limit, pg.Offset)
	if err != nil {
		return err
	}

	return c.JSON(fiber.Map{
		"success":    true,
		"data":       orders,
		"pagination": pg.Meta(total),
	})
}

// GetOrder returns one order to its owner or an administrator.
func (h *OrderHandler) GetOrder(c *fiber.Ctx) error {
	userID, err := currentUserID(c)
	if err != nil {
		return err
	}
	orderID, err := parseUUIDParam(c, "id")
	if err != nil {
		return err
	}

	order, err := h.orders.GetOrder(c.UserContext(), userID, middleware.IsAdmin(c), orderID)
	if err != nil {
		return err
	}
	return respondData(c, order)
}

type updateStatusRequest struct {
	Status string `json:"status" query:"status"`
}

// UpdateOrderStatus sets the fulfilment status given by ?status= or JSON.
func (h *OrderHandler) UpdateOrderStatus(c *fiber.Ctx) error {
	orderID, err := parseUUIDParam(c, "id")
	if err != nil {
		return err
	}

	var req updateStatusRequest
	if err := c.QueryParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid query parameters")
	}
	if err := parseOptionalBody(c, &req); err != nil {
		return err
	}
	if req.Status == "" {
		return fiber.NewError(fiber.StatusBadRequest, "status is required")
	}

	order, err := h.orders.UpdateOrderStatus(c.UserContext(), orderID, req.Status)
	if err != nil {
		return err
	}
	return respondData(c, order)
}

type verifyPaymentRequest struct {
	RazorpayOrderID   string `json:"razorpayOrderId" query:"razorpayOrderId"`
	RazorpayPaymentID string `json:"razorpayPaymentId" query:"razorpayPaymentId"`
	RazorpaySignature string `json:"razorpaySignature" query:"razorpaySignature"`
}

// VerifyPayment checks the checkout signature returned to the client.
func (h *OrderHandler) VerifyPayment(c *fiber.Ctx) error {
	var req verifyPaymentRequest
	if err := c.QueryParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid query parameters")
	}
	if err := parseOptionalBody(c, &req); err != nil {
		return err
	}
	if req.RazorpayOrderID == "" || req.RazorpayPaymentID == "" || req.RazorpaySignature == "" {
		return fiber.NewError(fiber.StatusBadRequest, "razorpayOrderId, razorpayPaymentId and razorpaySignature are required")
	}

	if !h.orders.VerifyPayment(req.RazorpayOrderID, req.RazorpayPaymentID, req.RazorpaySignature) {
		return fiber.NewError(fiber.StatusBadRequest, "Payment verification failed")
	}
	return respondMessage(c, "Payment verified successfully")
}
