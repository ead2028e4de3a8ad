package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/example/retailpulse/internal/services"
)

const recentOrdersLimit = 5

// AdminHandler manages admin-only endpoints.
type AdminHandler struct {
	orders *services.OrderService
}

// NewAdminHandler constructs AdminHandler.
func NewAdminHandler(orders *services.OrderService) *AdminHandler {
	return &AdminHandler{orders: orders}
}

// DashboardStats returns aggregate statistics for the admin dashboard.
func (h *AdminHandler) DashboardStats(c *fiber.Ctx) error {
	stats, err := h.orders.Stats(c.UserContext())
	if err != nil {
		return err
	}
	return respondData(c, stats)
}

// RecentOrders returns the latest orders for the dashboard.
func (h *AdminHandler) RecentOrders(c *fiber.Ctx) error {
	orders, _, err := h.orders.ListOrders(c.UserContext(), "", recentOrdersLimit, 0)
	if err != nil {
		return err
	}
	return respondData(c, orders)
}
