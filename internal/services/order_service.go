package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/example/retailpulse/internal/models"
	"github.com/example/retailpulse/internal/repository"
)

// OrderService turns carts into orders and tracks their payment.
type OrderService struct {
	store    repository.Store
	gateway  PaymentGateway
	email    EmailSender
	notifier OrderNotifier
	currency string
	now      func() time.Time
}

func NewOrderService(store repository.Store, gateway PaymentGateway, email EmailSender, notifier OrderNotifier, currency string) *OrderService {
	if currency == "" {
		currency = "INR"
	}
	return &OrderService{
		store:    store,
		gateway:  gateway,
		email:    email,
		notifier: notifier,
		currency: currency,
		now:      time.Now,
	}
}

// CreateOrderInput is the delivery data of a new order.
type CreateOrderInput struct {
	Address     string
	PhoneNumber string
}

// CreateOrder converts the user's cart into an order in one transaction.
// Stock is decremented with a conditional update so concurrent orders cannot oversell.
func (s *OrderService) CreateOrder(ctx context.Context, userID uuid.UUID, in CreateOrderInput) (*models.Order, error) {
	in.Address = strings.TrimSpace(in.Address)
	in.PhoneNumber = strings.TrimSpace(in.PhoneNumber)
	if in.Address == "" || in.PhoneNumber == "" {
		return nil, newError(KindInvalidInput, "address and phone number are required")
	}

	var (
		user         *models.User
		order        *models.Order
		gatewayOrder *GatewayOrder
	)
	err := s.store.WithTransaction(ctx, func(ctx context.Context) error {
		var err error
		user, err = s.store.GetUserByID(ctx, userID)
		if err != nil {
			return notFoundOr(err, "user not found")
		}
		if !user.OtpVerified {
			return newError(KindUnverifiedOtp, "OTP not verified, please confirm your email or phone first")
		}

		cart, err := s.store.GetCartByUserID(ctx, userID)
		if errors.Is(err, repository.ErrNotFound) {
			return newError(KindEmptyCart, "cannot create an order with an empty cart")
		}
		if err != nil {
			return err
		}
		if len(cart.Items) == 0 {
			return newError(KindEmptyCart, "cannot create an order with an empty cart")
		}

		total := decimal.Zero
		for _, item := range cart.Items {
			if item.Product == nil {
				return newError(KindResourceNotFound, "product %s in cart no longer exists", item.ProductID)
			}
			total = total.Add(item.Product.Price.Mul(decimal.NewFromInt(int64(item.Quantity))))
		}

		receipt := fmt.Sprintf("order_receipt_%d", s.now().UnixMilli())
		gatewayOrder, err = s.gateway.CreateOrder(ctx, total, receipt)
		if err != nil {
			log.Printf("[Order] gateway order creation failed: %v", err)
			return newError(KindPaymentGateway, "failed to create payment order")
		}

		items := make([]models.OrderItem, 0, len(cart.Items))
		for _, line := range cart.Items {
			ok, err := s.store.DecrementStock(ctx, line.ProductID, line.Quantity)
			if err != nil {
				return err
			}
			if !ok {
				return newError(KindInsufficientStock, "not enough stock for %s", line.Product.Name)
			}
			product, err := s.store.GetProductByID(ctx, line.ProductID)
			if err != nil {
				return notFoundOr(err, "product %s not found", line.ProductID)
			}
			items = append(items, models.OrderItem{
				ProductID:   product.ID,
				ProductName: product.Name,
				Quantity:    line.Quantity,
				Price:       product.Price,
			})
		}

		order = &models.Order{
			UserID:         userID,
			Address:        in.Address,
			PhoneNumber:    in.PhoneNumber,
			Status:         models.OrderStatusPreparing,
			GatewayOrderID: gatewayOrder.ID,
			Amount:         total,
			Currency:       s.currency,
			PaymentStatus:  models.PaymentStatusCreated,
			Items:          items,
		}
		if err := s.store.CreateOrder(ctx, order); err != nil {
			return err
		}

		return s.store.ClearCartItems(ctx, cart.ID)
	})
	if err != nil {
		if gatewayOrder != nil {
			log.Printf("[Order] rolled back, gateway order %s left orphaned: %v", gatewayOrder.ID, err)
		}
		return nil, err
	}

	log.Printf("[Order] created order %s for user %s, amount %s %s", order.ID, userID, order.Amount.StringFixed(2), order.Currency)
	s.notifyCreated(ctx, order, user)
	return order, nil
}

func (s *OrderService) notifyCreated(ctx context.Context, order *models.Order, user *models.User) {
	if s.email != nil {
		body := "Your order has been confirmed. Order ID " + order.ID.String()
		if err := s.email.SendEmail(ctx, user.Email, "Order confirmation", body); err != nil {
			log.Printf("[Order] failed to send confirmation for order %s to %s: %v", order.ID, user.Email, err)
		}
	}
	if s.notifier != nil {
		if err := s.notifier.NotifyNewOrder(ctx, order, user); err != nil {
			log.Printf("[Order] failed to notify admins about order %s: %v", order.ID, err)
		}
	}
}

// ListOrders returns all orders, optionally filtered by status.
func (s *OrderService) ListOrders(ctx context.Context, status string, limit, offset int) ([]models.Order, int64, error) {
	filter := repository.OrderFilter{Limit: limit, Offset: offset}
	if status != "" {
		st := models.OrderStatus(strings.ToUpper(status))
		if !st.Valid() {
			return nil, 0, newError(KindInvalidInput, "unknown order status %q", status)
		}
		filter.Status = st
	}
	return s.store.ListOrders(ctx, filter)
}

// ListUserOrders returns the orders placed by userID.
func (s *OrderService) ListUserOrders(ctx context.Context, userID uuid.UUID, limit, offset int) ([]models.Order, int64, error) {
	return s.store.ListOrders(ctx, repository.OrderFilter{UserID: &userID, Limit: limit, Offset: offset})
}

// GetOrder returns an order to its owner or to an administrator.
// Other users get ResourceNotFound.
func (s *OrderService) GetOrder(ctx context.Context, userID uuid.UUID, isAdmin bool, orderID uuid.UUID) (*models.Order, error) {
	order, err := s.store.GetOrderByID(ctx, orderID)
	if err != nil {
		return nil, notFoundOr(err, "order %s not found", orderID)
	}
	if !isAdmin && order.UserID != userID {
		return nil, newError(KindResourceNotFound, "order %s not found", orderID)
	}
	return order, nil
}

// UpdateOrderStatus sets the fulfilment status. Setting the current status again is a no-op.
func (s *OrderService) UpdateOrderStatus(ctx context.Context, orderID uuid.UUID, status string) (*models.Order, error) {
	st := models.OrderStatus(strings.ToUpper(strings.TrimSpace(status)))
	if !st.Valid() {
		return nil, newError(KindInvalidInput, "unknown order status %q", status)
	}

	order, err := s.store.GetOrderByID(ctx, orderID)
	if err != nil {
		return nil, notFoundOr(err, "order %s not found", orderID)
	}
	if order.Status == st {
		return order, nil
	}

	order.Status = st
	if err := s.store.UpdateOrder(ctx, order); err != nil {
		return nil, notFoundOr(err, "order %s not found", orderID)
	}
	log.Printf("[Order] order %s moved to %s", order.ID, st)
	return order, nil
}

// DashboardStats summarizes users and orders for administrators.
type DashboardStats struct {
	TotalUsers     int64                        `json:"total_users"`
	TotalOrders    int64                        `json:"total_orders"`
	PaidOrders     int64                        `json:"paid_orders"`
	OrdersByStatus map[models.OrderStatus]int64 `json:"orders_by_status"`
	Revenue        decimal.Decimal              `json:"revenue"`
	Currency       string                       `json:"currency"`
}

func (s *OrderService) Stats(ctx context.Context) (*DashboardStats, error) {
	users, err := s.store.CountUsers(ctx)
	if err != nil {
		return nil, err
	}
	orders, err := s.store.OrderStats(ctx)
	if err != nil {
		return nil, err
	}
	for _, st := range []models.OrderStatus{
		models.OrderStatusPreparing,
		models.OrderStatusDelivering,
		models.OrderStatusDelivered,
		models.OrderStatusCanceled,
	} {
		if _, ok := orders.OrdersByStatus[st]; !ok {
			orders.OrdersByStatus[st] = 0
		}
	}
	return &DashboardStats{
		TotalUsers:     users,
		TotalOrders:    orders.TotalOrders,
		PaidOrders:     orders.PaidOrders,
		OrdersByStatus: orders.OrdersByStatus,
		Revenue:        orders.Revenue,
		Currency:       s.currency,
	}, nil
}

// VerifyPayment checks a checkout signature. It does not change any order.
func (s *OrderService) VerifyPayment(gatewayOrderID, paymentID, signature string) bool {
	return s.gateway.VerifyPaymentSignature(gatewayOrderID, paymentID, signature)
}

// HandlePaymentWebhook marks the matching order PAID on an order.paid event.
// Unknown orders and other events are ignored.
func (s *OrderService) HandlePaymentWebhook(ctx context.Context, evt *WebhookEvent) error {
	if evt.Event != WebhookEventOrderPaid {
		log.Printf("[Payment] ignoring webhook event %q", evt.Event)
		return nil
	}

	entity := evt.Payload.Payment.Entity
	if entity.OrderID == "" {
		return fmt.Errorf("webhook payload has no order id")
	}

	return s.store.WithTransaction(ctx, func(ctx context.Context) error {
		order, err := s.store.GetOrderByGatewayOrderID(ctx, entity.OrderID)
		if errors.Is(err, repository.ErrNotFound) {
			log.Printf("[Payment] webhook for unknown gateway order %s", entity.OrderID)
			return nil
		}
		if err != nil {
			return err
		}

		order.PaymentID = entity.ID
		order.PaymentStatus = models.PaymentStatusPaid
		if err := s.store.UpdateOrder(ctx, order); err != nil {
			return err
		}
		log.Printf("[Payment] order %s paid with payment %s", order.ID, entity.ID)
		return nil
	})
}
