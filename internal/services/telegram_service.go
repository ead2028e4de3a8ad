package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"html"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/example/retailpulse/internal/models"
)

// OrderNotifier tells administrators about new orders.
type OrderNotifier interface {
	NotifyNewOrder(ctx context.Context, order *models.Order, customer *models.User) error
}

const telegramAPIBase = "https://api.telegram.org"

// TelegramService handles sending notifications to Telegram.
type TelegramService struct {
	botToken    string
	adminChatID string
	apiBase     string
	client      *http.Client
}

// NewTelegramService creates a new TelegramService.
func NewTelegramService(botToken, adminChatID string) *TelegramService {
	return &TelegramService{
		botToken:    botToken,
		adminChatID: adminChatID,
		apiBase:     telegramAPIBase,
		client:      &http.Client{Timeout: 10 * time.Second},
	}
}

type telegramMessage struct {
	ChatID    string `json:"chat_id"`
	Text      string `json:"text"`
	ParseMode string `json:"parse_mode"`
}

// SendMessage sends a message to specified chat.
func (s *TelegramService) SendMessage(ctx context.Context, chatID, text string) error {
	if s.botToken == "" {
		log.Println("[Telegram] Bot token not configured")
		return nil
	}

	url := fmt.Sprintf("%s/bot%s/sendMessage", s.apiBase, s.botToken)

	body, err := json.Marshal(telegramMessage{
		ChatID:    chatID,
		Text:      text,
		ParseMode: "HTML",
	})
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		log.Printf("[Telegram] Failed to send message: %v", err)
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		log.Printf("[Telegram] Unexpected status: %d", resp.StatusCode)
		return fmt.Errorf("telegram returned status %d", resp.StatusCode)
	}

	return nil
}

// SendToAdmin sends a message to the admin chat.
func (s *TelegramService) SendToAdmin(ctx context.Context, text string) error {
	if s.adminChatID == "" {
		log.Println("[Telegram] Admin chat ID not configured")
		return nil
	}
	return s.SendMessage(ctx, s.adminChatID, text)
}

// FormatPrice formats an amount with two decimals, thousand separators and currency.
func FormatPrice(amount decimal.Decimal, currency string) string {
	str := amount.StringFixed(2)
	sign := ""
	if strings.HasPrefix(str, "-") {
		sign, str = "-", str[1:]
	}
	whole, frac, _ := strings.Cut(str, ".")

	var result strings.Builder
	for i, digit := range whole {
		if i > 0 && (len(whole)-i)%3 == 0 {
			result.WriteString(",")
		}
		result.WriteRune(digit)
	}

	out := sign + result.String() + "." + frac
	if currency != "" {
		out += " " + currency
	}
	return out
}

// NotifyNewOrder sends notification about new order to admin chat.
func (s *TelegramService) NotifyNewOrder(ctx context.Context, order *models.Order, customer *models.User) error {
	if s.adminChatID == "" {
		return nil
	}
	return s.SendToAdmin(ctx, formatOrderMessage(order, customer))
}

func formatOrderMessage(order *models.Order, customer *models.User) string {
	var itemsList strings.Builder
	for i, item := range order.Items {
		itemsList.WriteString(fmt.Sprintf("%d. <b>%s</b>\n   %d x %s = %s\n",
			i+1,
			html.EscapeString(item.ProductName),
			item.Quantity,
			FormatPrice(item.Price, order.Currency),
			FormatPrice(item.LineTotal(), order.Currency),
		))
	}

	name := ""
	if customer != nil {
		name = strings.TrimSpace(customer.FirstName + " " + customer.LastName)
	}

	message := fmt.Sprintf(`<b>🛒 NEW ORDER</b>
<b>📋 Order:</b> %s
<b>👤 Customer:</b> %s
<b>📞 Phone:</b> %s
<b>📍 Address:</b> %s
<b>📦 Items:</b>
%s
<b>💰 Total:</b> %s
<b>💳 Gateway order:</b> %s
━━━━━━━━━━━━━━━━━━`,
		order.ID,
		html.EscapeString(name),
		html.EscapeString(order.PhoneNumber),
		html.EscapeString(order.Address),
		itemsList.String(),
		FormatPrice(order.Amount, order.Currency),
		order.GatewayOrderID,
	)

	return strings.TrimSpace(message)
}
