package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strings"

	razorpay "github.com/razorpay/razorpay-go"
	razorpayutils "github.com/razorpay/razorpay-go/utils"
	"github.com/shopspring/decimal"
)

// GatewayOrder is the remote order created at the payment gateway.
type GatewayOrder struct {
	ID       string `json:"id"`
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
	Receipt  string `json:"receipt"`
	Status   string `json:"status"`
}

// PaymentGateway creates remote payment orders and checks checkout signatures.
type PaymentGateway interface {
	CreateOrder(ctx context.Context, amount decimal.Decimal, receipt string) (*GatewayOrder, error)
	VerifyPaymentSignature(orderID, paymentID, signature string) bool
}

// RazorpayConfig holds gateway credentials. BaseURL overrides the SDK's API host.
type RazorpayConfig struct {
	BaseURL   string
	KeyID     string
	KeySecret string
	Currency  string
}

// RazorpayService creates orders and checks signatures through the Razorpay SDK.
type RazorpayService struct {
	cfg    RazorpayConfig
	client *razorpay.Client
}

// NewRazorpayService creates a RazorpayService. A nil httpClient keeps the SDK default.
func NewRazorpayService(cfg RazorpayConfig, httpClient *http.Client) *RazorpayService {
	if cfg.Currency == "" {
		cfg.Currency = "INR"
	}
	client := razorpay.NewClient(cfg.KeyID, cfg.KeySecret)
	if base := strings.TrimSuffix(strings.TrimRight(cfg.BaseURL, "/"), "/v1"); base != "" {
		client.Order.Request.BaseURL = base
	}
	if httpClient != nil {
		client.Order.Request.HTTPClient = httpClient
	}
	return &RazorpayService{cfg: cfg, client: client}
}

// MinorUnits converts an amount to the smallest currency unit (paise, cents).
func MinorUnits(amount decimal.Decimal) int64 {
	return amount.Shift(2).Round(0).IntPart()
}

// CreateOrder registers a payment order for amount at the gateway.
// The SDK does not take a context, so ctx is only checked before the call.
func (s *RazorpayService) CreateOrder(ctx context.Context, amount decimal.Decimal, receipt string) (*GatewayOrder, error) {
	if s.cfg.KeyID == "" || s.cfg.KeySecret == "" {
		return nil, errors.New("razorpay credentials are not configured")
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	data := map[string]interface{}{
		"amount":          MinorUnits(amount),
		"currency":        s.cfg.Currency,
		"receipt":         receipt,
		"payment_capture": 1,
	}
	log.Printf("[Payment] creating gateway order: %v", data)

	body, err := s.client.Order.Create(data, nil)
	if err != nil {
		return nil, fmt.Errorf("razorpay create order: %w", err)
	}

	order := &GatewayOrder{
		ID:       stringField(body, "id"),
		Currency: stringField(body, "currency"),
		Receipt:  stringField(body, "receipt"),
		Status:   stringField(body, "status"),
	}
	if amount, ok := body["amount"].(float64); ok {
		order.Amount = int64(amount)
	}
	if order.ID == "" {
		return nil, errors.New("razorpay create order: empty order id")
	}
	return order, nil
}

func stringField(body map[string]interface{}, key string) string {
	v, _ := body[key].(string)
	return v
}

// VerifyPaymentSignature checks the checkout signature of orderID|paymentID.
func (s *RazorpayService) VerifyPaymentSignature(orderID, paymentID, signature string) bool {
	if s.cfg.KeySecret == "" || signature == "" {
		return false
	}
	params := map[string]interface{}{
		"razorpay_order_id":   orderID,
		"razorpay_payment_id": paymentID,
	}
	return razorpayutils.VerifyPaymentSignature(params, signature, s.cfg.KeySecret)
}

// WebhookEventOrderPaid is the gateway event that settles an order.
const WebhookEventOrderPaid = "order.paid"

// WebhookEvent is the subset of the gateway webhook body the service reads.
type WebhookEvent struct {
	Event   string `json:"event"`
	Payload struct {
		Payment struct {
			Entity struct {
				ID      string `json:"id"`
				OrderID string `json:"order_id"`
			} `json:"entity"`
		} `json:"payment"`
	} `json:"payload"`
}

// VerifyWebhookSignature checks the gateway signature of the raw webhook body.
func VerifyWebhookSignature(body []byte, secret, signature string) bool {
	if secret == "" || signature == "" {
		return false
	}
	return razorpayutils.VerifyWebhookSignature(string(body), signature, secret)
}
