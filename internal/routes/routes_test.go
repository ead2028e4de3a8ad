package routes

import (
	"bytes"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"

	"github.com/example/retailpulse/internal/config"
	"github.com/example/retailpulse/internal/handlers"
	"github.com/example/retailpulse/internal/middleware"
	"github.com/example/retailpulse/internal/models"
	"github.com/example/retailpulse/internal/repository"
	"github.com/example/retailpulse/internal/services"
)

const webhookSecret = "whsec_test"

type testServer struct {
	app   *fiber.App
	store *repository.MemoryStore
	auth  *services.AuthService
}

func setupServer(t *testing.T) *testServer {
	t.Helper()

	var gatewayOrders int32
	gateway := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := atomic.AddInt32(&gatewayOrders, 1)
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{
			"id":     "order_gw_" + strconv.Itoa(int(n)),
			"status": "created",
		})
	}))
	t.Cleanup(gateway.Close)

	cfg := &config.Config{
		JWTSecret:             "test-secret",
		TokenExpires:          time.Hour,
		UploadDir:             t.TempDir(),
		RazorpayWebhookSecret: webhookSecret,
		PaymentCurrency:       "INR",
	}

	store := repository.NewMemoryStore()
	email := services.NewSMTPService(services.SMTPConfig{})
	sms := services.NewPlumService(services.PlumConfig{}, nil)
	telegram := services.NewTelegramService("", "")
	razorpay := services.NewRazorpayService(services.RazorpayConfig{
		BaseURL:   gateway.URL,
		KeyID:     "rzp_test",
		KeySecret: "rzp_secret",
		Currency:  cfg.PaymentCurrency,
	}, gateway.Client())

	otp := services.NewOtpService(store, email, sms)
	auth := services.NewAuthService(store, otp, cfg.JWTSecret, cfg.TokenExpires)

	app := fiber.New(fiber.Config{ErrorHandler: handlers.ErrorHandler})
	Register(app, cfg, Services{
		Auth:     auth,
		Otp:      otp,
		Carts:    services.NewCartService(store),
		Orders:   services.NewOrderService(store, razorpay, email, telegram, cfg.PaymentCurrency),
		Products: services.NewProductService(store, services.NewDiskImageStore(cfg.UploadDir)),
		Comments: services.NewCommentService(store),
	})

	return &testServer{app: app, store: store, auth: auth}
}

type apiResponse struct {
	Success    bool            `json:"success"`
	Error      string          `json:"error"`
	Message    string          `json:"message"`
	Token      string          `json:"token"`
	Data       json.RawMessage `json:"data"`
	Pagination map[string]int  `json:"pagination"`
}

func (s *testServer) do(t *testing.T, method, path, token string, body any, headers ...string) (int, apiResponse, []byte) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if raw, ok := body.([]byte); ok {
			buf.Write(raw)
		} else if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatal(err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}

	resp, err := s.app.Test(req, -1)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	defer resp.Body.Close()
	raw, _ := io.ReadAll(resp.Body)

	var out apiResponse
	json.Unmarshal(raw, &out)
	return resp.StatusCode, out, raw
}

func (s *testServer) login(t *testing.T, email, password string) string {
	t.Helper()
	code, resp, raw := s.do(t, http.MethodPost, "/api/auth/login", "", map[string]string{
		"email": email, "password": password,
	})
	if code != http.StatusOK || resp.Token == "" {
		t.Fatalf("login %s: %d %s", email, code, raw)
	}
	return resp.Token
}

func (s *testServer) registerVerified(t *testing.T, email, phone string) string {
	t.Helper()
	code, _, raw := s.do(t, http.MethodPost, "/api/auth/register", "", map[string]string{
		"email": email, "phoneNumber": phone, "firstName": "Ann", "password": "secret123",
	})
	if code != http.StatusCreated {
		t.Fatalf("register: %d %s", code, raw)
	}

	otp, err := s.store.GetOtpByEmail(context.Background(), email)
	if err != nil {
		t.Fatalf("otp lookup: %v", err)
	}
	code, _, raw = s.do(t, http.MethodPost, "/api/auth/confirm-email", "", map[string]string{
		"email": email, "confirmationCode": otp.EmailCode,
	})
	if code != http.StatusOK {
		t.Fatalf("confirm email: %d %s", code, raw)
	}
	return s.login(t, email, "secret123")
}

func (s *testServer) adminToken(t *testing.T) string {
	t.Helper()
	if err := s.auth.EnsureAdmin(context.Background(), "admin@example.com", "+19999999999", "adminpass"); err != nil {
		t.Fatalf("ensure admin: %v", err)
	}
	return s.login(t, "admin@example.com", "adminpass")
}

func decode[T any](t *testing.T, raw json.RawMessage) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(raw, &v); err != nil {
		t.Fatalf("decode %s: %v", raw, err)
	}
	return v
}

func TestRegistrationFlow(t *testing.T) {
	s := setupServer(t)

	code, _, _ := s.do(t, http.MethodPost, "/api/auth/register", "", map[string]string{
		"email": "ann@example.com", "phoneNumber": "+10000000001", "firstName": "Ann", "password": "secret123",
	})
	if code != http.StatusCreated {
		t.Fatalf("register code %d", code)
	}

	code, resp, _ := s.do(t, http.MethodPost, "/api/auth/register", "", map[string]string{
		"email": "ann@example.com", "phoneNumber": "+10000000002", "password": "secret123",
	})
	if code != http.StatusConflict || resp.Success {
		t.Fatalf("duplicate register: %d %+v", code, resp)
	}

	code, _, _ = s.do(t, http.MethodPost, "/api/auth/login", "", map[string]string{
		"email": "ann@example.com", "password": "secret123",
	})
	if code != http.StatusForbidden {
		t.Fatalf("unverified login: expected 403, got %d", code)
	}

	code, _, _ = s.do(t, http.MethodPost, "/api/auth/confirm-phone", "", map[string]string{
		"phoneNumber": "+10000000001", "otpCode": "not-it",
	})
	if code != http.StatusBadRequest {
		t.Fatalf("bad code: expected 400, got %d", code)
	}

	code, _, _ = s.do(t, http.MethodPost, "/api/user/resend-otp?identifier=%2B10000000001&isPhoneOtp=true", "", nil)
	if code != http.StatusOK {
		t.Fatalf("resend: expected 200, got %d", code)
	}
	otp, _ := s.store.GetOtpByPhone(context.Background(), "+10000000001")
	code, _, _ = s.do(t, http.MethodPost, "/api/auth/confirm-phone", "", map[string]string{
		"phoneNumber": "+10000000001", "otpCode": otp.SmsCode,
	})
	if code != http.StatusOK {
		t.Fatalf("confirm phone: expected 200, got %d", code)
	}

	token := s.login(t, "ann@example.com", "secret123")
	code, resp, _ = s.do(t, http.MethodGet, "/api/user/profile", token, nil)
	if code != http.StatusOK {
		t.Fatalf("profile: %d", code)
	}
	user := decode[models.User](t, resp.Data)
	if user.Email != "ann@example.com" || !user.OtpVerified {
		t.Fatalf("unexpected profile %+v", user)
	}
}

func TestLogoutRevokesToken(t *testing.T) {
	s := setupServer(t)
	token := s.registerVerified(t, "ann@example.com", "+10000000001")

	if code, _, _ := s.do(t, http.MethodPost, "/api/auth/logout", token, nil); code != http.StatusOK {
		t.Fatalf("logout: %d", code)
	}
	code, resp, _ := s.do(t, http.MethodGet, "/api/user/profile", token, nil)
	if code != http.StatusUnauthorized || resp.Error != "token has been revoked" {
		t.Fatalf("expected revoked token to be rejected, got %d %q", code, resp.Error)
	}

	code, _, _ = s.do(t, http.MethodGet, "/api/user/profile", "", nil)
	if code != http.StatusUnauthorized {
		t.Fatalf("missing token: expected 401, got %d", code)
	}
}

func TestCheckoutAndWebhookFlow(t *testing.T) {
	s := setupServer(t)
	admin := s.adminToken(t)
	user := s.registerVerified(t, "ann@example.com", "+10000000001")

	code, _, _ := s.do(t, http.MethodPost, "/api/products", user, map[string]any{
		"name": "Lamp", "price": "12.50", "quantity": 5,
	})
	if code != http.StatusForbidden {
		t.Fatalf("non-admin create product: expected 403, got %d", code)
	}

	code, resp, raw := s.do(t, http.MethodPost, "/api/products", admin, map[string]any{
		"name": "Lamp", "description": "Warm light", "price": "12.50", "quantity": 5,
	})
	if code != http.StatusCreated {
		t.Fatalf("create product: %d %s", code, raw)
	}
	product := decode[models.Product](t, resp.Data)

	code, _, raw = s.do(t, http.MethodPost, "/api/cart/add?productId="+product.ID.String()+"&quantity=2", user, nil)
	if code != http.StatusOK {
		t.Fatalf("add to cart: %d %s", code, raw)
	}
	code, _, _ = s.do(t, http.MethodPost, "/api/cart", user, map[string]any{
		"productId": product.ID.String(), "quantity": 9,
	})
	if code != http.StatusConflict {
		t.Fatalf("oversized add: expected 409, got %d", code)
	}

	code, resp, raw = s.do(t, http.MethodPost, "/api/orders", user, map[string]string{
		"address": "12 Main St", "phoneNumber": "+10000000001",
	})
	if code != http.StatusCreated {
		t.Fatalf("create order: %d %s", code, raw)
	}
	order := decode[models.Order](t, resp.Data)
	if !order.Amount.Equal(decimal.NewFromInt(25)) || order.GatewayOrderID == "" || order.Status != models.OrderStatusPreparing {
		t.Fatalf("unexpected order %+v", order)
	}

	code, _, _ = s.do(t, http.MethodPost, "/api/orders", user, map[string]string{
		"address": "12 Main St", "phoneNumber": "+10000000001",
	})
	if code != http.StatusBadRequest {
		t.Fatalf("empty cart order: expected 400, got %d", code)
	}

	code, resp, _ = s.do(t, http.MethodGet, "/api/products/"+product.ID.String(), "", nil)
	if code != http.StatusOK || decode[models.Product](t, resp.Data).Quantity != 3 {
		t.Fatalf("expected stock 3 after order, got %d %s", code, resp.Data)
	}

	body := []byte(`{"event":"order.paid","payload":{"payment":{"entity":{"id":"pay_1","order_id":"` + order.GatewayOrderID + `"}}}}`)
	code, _, _ = s.do(t, http.MethodPost, "/api/verify-payment", "", body, middleware.WebhookSignatureHeader, "deadbeef")
	if code != http.StatusBadRequest {
		t.Fatalf("bad webhook signature: expected 400, got %d", code)
	}
	sig := sign(string(body), webhookSecret)
	code, _, raw = s.do(t, http.MethodPost, "/api/verify-payment", "", body, middleware.WebhookSignatureHeader, sig)
	if code != http.StatusOK {
		t.Fatalf("webhook: %d %s", code, raw)
	}

	code, resp, _ = s.do(t, http.MethodGet, "/api/orders/"+order.ID.String(), user, nil)
	if code != http.StatusOK {
		t.Fatalf("get order: %d", code)
	}
	if paid := decode[models.Order](t, resp.Data); paid.PaymentStatus != models.PaymentStatusPaid || paid.PaymentID != "pay_1" {
		t.Fatalf("expected paid order, got %+v", paid)
	}

	checkoutSig := sign(order.GatewayOrderID+"|pay_1", "rzp_secret")
	code, _, _ = s.do(t, http.MethodPost, "/api/orders/verify-payment", user, map[string]string{
		"razorpayOrderId": order.GatewayOrderID, "razorpayPaymentId": "pay_1", "razorpaySignature": checkoutSig,
	})
	if code != http.StatusOK {
		t.Fatalf("verify payment: %d", code)
	}

	code, _, _ = s.do(t, http.MethodPut, "/api/orders/"+order.ID.String()+"/status?status=delivering", user, nil)
	if code != http.StatusForbidden {
		t.Fatalf("non-admin status update: expected 403, got %d", code)
	}
	code, resp, _ = s.do(t, http.MethodPut, "/api/orders/"+order.ID.String()+"/status?status=delivering", admin, nil)
	if code != http.StatusOK || decode[models.Order](t, resp.Data).Status != models.OrderStatusDelivering {
		t.Fatalf("status update: %d %s", code, resp.Data)
	}

	code, resp, _ = s.do(t, http.MethodGet, "/api/orders?status=DELIVERING", admin, nil)
	if code != http.StatusOK || resp.Pagination["total_items"] != 1 {
		t.Fatalf("admin list: %d %+v", code, resp.Pagination)
	}

	code, resp, _ = s.do(t, http.MethodGet, "/api/admin/stats", admin, nil)
	if code != http.StatusOK {
		t.Fatalf("stats: %d", code)
	}
	stats := decode[services.DashboardStats](t, resp.Data)
	if stats.TotalOrders != 1 || stats.PaidOrders != 1 || stats.TotalUsers != 2 {
		t.Fatalf("unexpected stats %+v", stats)
	}
}

func TestProductCommentsAndDelete(t *testing.T) {
	s := setupServer(t)
	admin := s.adminToken(t)
	user := s.registerVerified(t, "ann@example.com", "+10000000001")

	_, resp, _ := s.do(t, http.MethodPost, "/api/products", admin, map[string]any{
		"name": "Desk", "price": 100, "quantity": 1,
	})
	product := decode[models.Product](t, resp.Data)
	path := "/api/comments/product/" + product.ID.String()

	code, _, _ := s.do(t, http.MethodPost, path, user, map[string]any{"content": "Solid", "score": 4})
	if code != http.StatusCreated {
		t.Fatalf("add comment: %d", code)
	}
	code, _, _ = s.do(t, http.MethodPost, path, user, map[string]any{"content": "Too high", "score": 9})
	if code != http.StatusBadRequest {
		t.Fatalf("bad score: expected 400, got %d", code)
	}

	code, resp, _ = s.do(t, http.MethodGet, path, "", nil)
	if code != http.StatusOK || len(decode[[]models.Comment](t, resp.Data)) != 1 {
		t.Fatalf("list comments: %d %s", code, resp.Data)
	}

	code, resp, _ = s.do(t, http.MethodGet, "/api/products?search=des&limit=5", "", nil)
	if code != http.StatusOK || resp.Pagination["total_items"] != 1 || resp.Pagination["items_per_page"] != 5 {
		t.Fatalf("list products: %d %+v", code, resp.Pagination)
	}

	if code, _, _ = s.do(t, http.MethodDelete, "/api/products/"+product.ID.String(), admin, nil); code != http.StatusNoContent {
		t.Fatalf("delete product: %d", code)
	}
	if code, _, _ = s.do(t, http.MethodGet, path, "", nil); code != http.StatusNotFound {
		t.Fatalf("comments of deleted product: expected 404, got %d", code)
	}
	if code, _, _ = s.do(t, http.MethodGet, "/api/products/not-a-uuid", "", nil); code != http.StatusBadRequest {
		t.Fatalf("invalid id: expected 400, got %d", code)
	}
}

func TestHealth(t *testing.T) {
	s := setupServer(t)
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	resp, err := s.app.Test(req)
	if err != nil || resp.StatusCode != http.StatusOK {
		t.Fatalf("health: %v %v", resp, err)
	}
}

// sign returns the hex HMAC-SHA256 the gateway attaches to payload.
func sign(payload, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(payload))
	return hex.EncodeToString(mac.Sum(nil))
}
