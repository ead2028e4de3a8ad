package handlers

import (
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/example/retailpulse/internal/middleware"
	"github.com/example/retailpulse/internal/services"
)

// AuthHandler bundles dependencies for authentication endpoints.
type AuthHandler struct {
	auth *services.AuthService
	otp  *services.OtpService
}

// NewAuthHandler constructs an AuthHandler.
func NewAuthHandler(auth *services.AuthService, otp *services.OtpService) *AuthHandler {
	return &AuthHandler{auth: auth, otp: otp}
}

type registerRequest struct {
	Email       string `json:"email"`
	PhoneNumber string `json:"phoneNumber"`
	FirstName   string `json:"firstName"`
	LastName    string `json:"lastName"`
	Password    string `json:"password"`
}

// Register creates a new user account and sends the confirmation codes.
func (h *AuthHandler) Register(c *fiber.Ctx) error {
	var req registerRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}

	user, err := h.auth.Register(c.UserContext(), services.RegisterInput{
		Email:       req.Email,
		PhoneNumber: req.PhoneNumber,
		FirstName:   req.FirstName,
		LastName:    req.LastName,
		Password:    req.Password,
	})
	if err != nil {
		return err
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"success": true,
		"message": "Registration successful, check your email and phone for confirmation codes",
		"data":    user,
	})
}

type confirmEmailRequest struct {
	Email            string `json:"email"`
	ConfirmationCode string `json:"confirmationCode"`
}

func (h *AuthHandler) ConfirmEmail(c *fiber.Ctx) error {
	var req confirmEmailRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}
	if req.Email == "" || req.ConfirmationCode == "" {
		return fiber.NewError(fiber.StatusBadRequest, "email and confirmationCode are required")
	}

	if err := h.otp.ConfirmEmail(c.UserContext(), req.Email, req.ConfirmationCode); err != nil {
		return err
	}
	return respondMessage(c, "Email confirmed")
}

type confirmPhoneRequest struct {
	PhoneNumber string `json:"phoneNumber"`
	OtpCode     string `json:"otpCode"`
}

func (h *AuthHandler) ConfirmPhone(c *fiber.Ctx) error {
	var req confirmPhoneRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}
	if req.PhoneNumber == "" || req.OtpCode == "" {
		return fiber.NewError(fiber.StatusBadRequest, "phoneNumber and otpCode are required")
	}

	if err := h.otp.ConfirmPhone(c.UserContext(), req.PhoneNumber, req.OtpCode); err != nil {
		return err
	}
	return respondMessage(c, "Phone number confirmed")
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Login authenticates a verified user and issues a token plus session cookie.
func (h *AuthHandler) Login(c *fiber.Ctx) error {
	var req loginRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}

	result, err := h.auth.Login(c.UserContext(), req.Email, req.Password)
	if err != nil {
		return err
	}

	c.Cookie(&fiber.Cookie{
		Name:     middleware.SessionCookie,
		Value:    result.Token,
		Path:     "/",
		Expires:  result.ExpiresAt,
		HTTPOnly: true,
		SameSite: fiber.CookieSameSiteLaxMode,
	})

	return c.JSON(fiber.Map{
		"success":    true,
		"message":    "Login successful",
		"token":      result.Token,
		"expires_at": result.ExpiresAt,
		"user":       result.User,
	})
}

// Logout revokes the current token and clears the session cookie.
func (h *AuthHandler) Logout(c *fiber.Ctx) error {
	claims, ok := middleware.GetClaims(c)
	if !ok {
		return fiber.NewError(fiber.StatusUnauthorized, "unauthorized")
	}

	if err := h.auth.Logout(c.UserContext(), claims); err != nil {
		return err
	}

	c.Cookie(&fiber.Cookie{
		Name:     middleware.SessionCookie,
		Value:    "",
		Path:     "/",
		Expires:  time.Unix(0, 0),
		HTTPOnly: true,
		SameSite: fiber.CookieSameSiteLaxMode,
	})
	return respondMessage(c, "Logout successful")
}

type changePasswordRequest struct {
	CurrentPassword string `json:"currentPassword"`
	NewPassword     string `json:"newPassword"`
}

func (h *AuthHandler) ChangePassword(c *fiber.Ctx) error {
	userID, err := currentUserID(c)
	if err != nil {
		return err
	}

	var req changePasswordRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}
	if req.CurrentPassword == "" || req.NewPassword == "" {
		return fiber.NewError(fiber.StatusBadRequest, "currentPassword and newPassword are required")
	}

	if err := h.auth.ChangePassword(c.UserContext(), userID, req.CurrentPassword, req.NewPassword); err != nil {
		return err
	}
	return respondMessage(c, "Password changed successfully")
}
