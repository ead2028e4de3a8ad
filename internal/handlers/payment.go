package handlers

import (
	"encoding/json"
	"log"

	"github.com/gofiber/fiber/v2"

	"github.com/example/retailpulse/internal/services"
)

// PaymentHandler receives payment gateway webhooks.
type PaymentHandler struct {
	orders *services.OrderService
}

func NewPaymentHandler(orders *services.OrderService) *PaymentHandler {
	return &PaymentHandler{orders: orders}
}

// Webhook marks orders paid on order.paid events. The gateway only needs a 2xx
// to stop retrying, so unknown orders and other events are acknowledged.
func (h *PaymentHandler) Webhook(c *fiber.Ctx) error {
	var evt services.WebhookEvent
	if err := json.Unmarshal(c.Body(), &evt); err != nil {
		log.Printf("[Payment] failed to parse webhook body: %v", err)
		return c.Status(fiber.StatusInternalServerError).SendString("Webhook processing failed")
	}

	if err := h.orders.HandlePaymentWebhook(c.UserContext(), &evt); err != nil {
		log.Printf("[Payment] webhook %q failed: %v", evt.Event, err)
		return c.Status(fiber.StatusInternalServerError).SendString("Webhook processing failed")
	}

	return c.SendString("Webhook processed")
}
