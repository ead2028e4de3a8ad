package services

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/example/retailpulse/internal/models"
	"github.com/example/retailpulse/internal/repository"
)

type sentMessage struct {
	To   string
	Body string
}

type fakeEmail struct {
	mu   sync.Mutex
	sent []sentMessage
	err  error
}

func (f *fakeEmail) SendEmail(_ context.Context, to, _ string, body string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, sentMessage{To: to, Body: body})
	return f.err
}

func (f *fakeEmail) last() sentMessage {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.sent) == 0 {
		return sentMessage{}
	}
	return f.sent[len(f.sent)-1]
}

type fakeSMS struct {
	mu   sync.Mutex
	sent []sentMessage
}

func (f *fakeSMS) SendSMS(_ context.Context, phone, message string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, sentMessage{To: phone, Body: message})
	return nil
}

type fakeGateway struct {
	mu      sync.Mutex
	secret  string
	fail    bool
	created []decimal.Decimal
}

func (g *fakeGateway) CreateOrder(_ context.Context, amount decimal.Decimal, receipt string) (*GatewayOrder, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.fail {
		return nil, errors.New("gateway unavailable")
	}
	g.created = append(g.created, amount)
	return &GatewayOrder{
		ID:      fmt.Sprintf("order_test_%d", len(g.created)),
		Amount:  MinorUnits(amount),
		Receipt: receipt,
		Status:  "created",
	}, nil
}

func (g *fakeGateway) VerifyPaymentSignature(orderID, paymentID, signature string) bool {
	return hmac.Equal([]byte(sign(orderID+"|"+paymentID, g.secret)), []byte(signature))
}

// sign returns the hex HMAC-SHA256 the gateway attaches to payload.
func sign(payload, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(payload))
	return hex.EncodeToString(mac.Sum(nil))
}

type fakeNotifier struct {
	mu     sync.Mutex
	orders []*models.Order
}

func (n *fakeNotifier) NotifyNewOrder(_ context.Context, order *models.Order, _ *models.User) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.orders = append(n.orders, order)
	return nil
}

func createUser(t *testing.T, store repository.Store, email, phone string, verified bool) *models.User {
	t.Helper()
	u := &models.User{
		Email:       email,
		PhoneNumber: phone,
		FirstName:   "Test",
		Role:        models.RoleUser,
		OtpVerified: verified,
	}
	if err := store.CreateUser(context.Background(), u); err != nil {
		t.Fatalf("create user: %v", err)
	}
	return u
}

func createProduct(t *testing.T, store repository.Store, name string, price int64, qty int) *models.Product {
	t.Helper()
	p := &models.Product{Name: name, Price: decimal.NewFromInt(price), Quantity: qty}
	if err := store.CreateProduct(context.Background(), p); err != nil {
		t.Fatalf("create product: %v", err)
	}
	return p
}

func assertKind(t *testing.T, err error, want *Error) {
	t.Helper()
	if !errors.Is(err, want) {
		t.Fatalf("expected %s error, got %v", want.Kind, err)
	}
}
