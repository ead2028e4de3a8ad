package handlers

import (
	"errors"
	"log"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/example/retailpulse/internal/middleware"
	"github.com/example/retailpulse/internal/services"
)

var kindStatus = map[services.ErrorKind]int{
	services.KindResourceNotFound:                 fiber.StatusNotFound,
	services.KindInvalidCredentials:               fiber.StatusUnauthorized,
	services.KindInvalidOrExpiredConfirmationCode: fiber.StatusBadRequest,
	services.KindResendLimitExceeded:              fiber.StatusTooManyRequests,
	services.KindInsufficientStock:                fiber.StatusConflict,
	services.KindEmptyCart:                        fiber.StatusBadRequest,
	services.KindUnverifiedOtp:                    fiber.StatusForbidden,
	services.KindDuplicateUser:                    fiber.StatusConflict,
	services.KindInvalidInput:                     fiber.StatusBadRequest,
	services.KindPaymentGateway:                   fiber.StatusBadGateway,
}

// StatusForError maps an error returned by a handler to an HTTP status and message.
func StatusForError(err error) (int, string) {
	var svcErr *services.Error
	if errors.As(err, &svcErr) {
		if status, ok := kindStatus[svcErr.Kind]; ok {
			return status, svcErr.Error()
		}
	}

	var fiberErr *fiber.Error
	if errors.As(err, &fiberErr) {
		return fiberErr.Code, fiberErr.Message
	}

	return fiber.StatusInternalServerError, "internal server error"
}

// ErrorHandler renders every error as {"success": false, "error": msg}.
func ErrorHandler(c *fiber.Ctx, err error) error {
	status, msg := StatusForError(err)
	if status >= fiber.StatusInternalServerError {
		log.Printf("[HTTP] %s %s: %v", c.Method(), c.OriginalURL(), err)
	}
	return c.Status(status).JSON(fiber.Map{
		"success": false,
		"error":   msg,
	})
}

func currentUserID(c *fiber.Ctx) (uuid.UUID, error) {
	userID, ok := middleware.GetCurrentUserID(c)
	if !ok {
		return uuid.Nil, fiber.NewError(fiber.StatusUnauthorized, "unauthorized")
	}
	return userID, nil
}

func parseUUIDParam(c *fiber.Ctx, name string) (uuid.UUID, error) {
	id, err := uuid.Parse(c.Params(name))
	if err != nil {
		return uuid.Nil, fiber.NewError(fiber.StatusBadRequest, "invalid "+name)
	}
	return id, nil
}

// parseOptionalBody decodes the body into out when one was sent.
func parseOptionalBody(c *fiber.Ctx, out interface{}) error {
	if len(c.Body()) == 0 {
		return nil
	}
	if err := c.BodyParser(out); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}
	return nil
}

func respondData(c *fiber.Ctx, data interface{}) error {
	return c.JSON(fiber.Map{"success": true, "data": data})
}

func respondMessage(c *fiber.Ctx, msg string) error {
	return c.JSON(fiber.Map{"success": true, "message": msg})
}
