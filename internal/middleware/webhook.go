package middleware

import (
	"log"

	"github.com/gofiber/fiber/v2"

	"github.com/example/retailpulse/internal/services"
)

// WebhookSignatureHeader carries the gateway's HMAC of the raw body.
const WebhookSignatureHeader = "X-Razorpay-Signature"

// WebhookSignatureMiddleware verifies gateway webhooks against secret.
// With an empty secret every payload is trusted.
func WebhookSignatureMiddleware(secret string) fiber.Handler {
	if secret == "" {
		log.Println("[Payment] webhook secret not configured, webhook payloads are not verified")
		return func(c *fiber.Ctx) error {
			return c.Next()
		}
	}

	return func(c *fiber.Ctx) error {
		if !services.VerifyWebhookSignature(c.Body(), secret, c.Get(WebhookSignatureHeader)) {
			return fiber.NewError(fiber.StatusBadRequest, "invalid webhook signature")
		}
		return c.Next()
	}
}
