package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"

	"github.com/example/retailpulse/internal/services"
)

func TestStatusForError(t *testing.T) {
	tests := []struct {
		err  error
		want int
		msg  string
	}{
		{&services.Error{Kind: services.KindResourceNotFound, Message: "order x not found"}, http.StatusNotFound, "order x not found"},
		{services.ErrInvalidCredentials, http.StatusUnauthorized, "InvalidCredentials"},
		{services.ErrInvalidOrExpiredConfirmationCode, http.StatusBadRequest, "InvalidOrExpiredConfirmationCode"},
		{services.ErrResendLimitExceeded, http.StatusTooManyRequests, "ResendLimitExceeded"},
		{services.ErrInsufficientStock, http.StatusConflict, "InsufficientStock"},
		{services.ErrEmptyCart, http.StatusBadRequest, "EmptyCart"},
		{services.ErrUnverifiedOtp, http.StatusForbidden, "UnverifiedOtp"},
		{services.ErrDuplicateUser, http.StatusConflict, "DuplicateUser"},
		{services.ErrPaymentGateway, http.StatusBadGateway, "PaymentGateway"},
		{fiber.NewError(http.StatusTeapot, "short and stout"), http.StatusTeapot, "short and stout"},
		{errors.New("db exploded"), http.StatusInternalServerError, "internal server error"},
	}
	for _, tt := range tests {
		status, msg := StatusForError(tt.err)
		if status != tt.want || msg != tt.msg {
			t.Errorf("StatusForError(%v) = %d %q, want %d %q", tt.err, status, msg, tt.want, tt.msg)
		}
	}
}

func TestErrorHandlerRendersEnvelope(t *testing.T) {
	app := fiber.New(fiber.Config{ErrorHandler: ErrorHandler})
	app.Get("/", func(c *fiber.Ctx) error {
		return &services.Error{Kind: services.KindEmptyCart, Message: "cart is empty"}
	})

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/", nil))
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.StatusCode)
	}
	var body map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body["success"] != false || body["error"] != "cart is empty" {
		t.Fatalf("unexpected body %v", body)
	}
}
