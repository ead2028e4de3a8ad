package handlers

import (
	"strconv"

	"github.com/gofiber/fiber/v2"

	"github.com/example/retailpulse/internal/services"
)

// UserHandler serves the account endpoints under /api/user.
type UserHandler struct {
	auth *services.AuthService
	otp  *services.OtpService
}

func NewUserHandler(auth *services.AuthService, otp *services.OtpService) *UserHandler {
	return &UserHandler{auth: auth, otp: otp}
}

// ResendOtp regenerates the email or SMS code named by ?identifier=&isPhoneOtp=.
func (h *UserHandler) ResendOtp(c *fiber.Ctx) error {
	identifier := c.Query("identifier")
	if identifier == "" {
		return fiber.NewError(fiber.StatusBadRequest, "identifier is required")
	}

	isPhone := false
	if raw := c.Query("isPhoneOtp"); raw != "" {
		parsed, err := strconv.ParseBool(raw)
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "isPhoneOtp must be true or false")
		}
		isPhone = parsed
	}

	if err := h.otp.Resend(c.UserContext(), identifier, isPhone); err != nil {
		return err
	}
	return respondMessage(c, "OTP resent successfully")
}

// Profile returns the authenticated user.
func (h *UserHandler) Profile(c *fiber.Ctx) error {
	userID, err := currentUserID(c)
	if err != nil {
		return err
	}

	user, err := h.auth.Profile(c.UserContext(), userID)
	if err != nil {
		return err
	}
	return respondData(c, user)
}
