package repository

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/example/retailpulse/internal/models"
)

// ErrNotFound is returned when the requested row does not exist.
var ErrNotFound = errors.New("not found")

// ErrDuplicate is returned when a unique constraint rejects a write.
var ErrDuplicate = errors.New("duplicate record")

type UserRepository interface {
	CreateUser(ctx context.Context, u *models.User) error
	GetUserByID(ctx context.Context, id uuid.UUID) (*models.User, error)
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
	GetUserByPhone(ctx context.Context, phone string) (*models.User, error)
	UserExists(ctx context.Context, email, phone string) (bool, error)
	UpdateUser(ctx context.Context, u *models.User) error
	CountUsers(ctx context.Context) (int64, error)
}

type OtpRepository interface {
	CreateOtp(ctx context.Context, o *models.Otp) error
	GetOtpByEmail(ctx context.Context, email string) (*models.Otp, error)
	GetOtpByPhone(ctx context.Context, phone string) (*models.Otp, error)
	GetOtpByUserID(ctx context.Context, userID uuid.UUID) (*models.Otp, error)
	UpdateOtp(ctx context.Context, o *models.Otp) error
	// DeleteExpiredOtps removes rows whose email and SMS codes have both expired.
	DeleteExpiredOtps(ctx context.Context, now time.Time) (int64, error)
}

type RevokedTokenRepository interface {
	RevokeToken(ctx context.Context, t *models.RevokedToken) error
	IsTokenRevoked(ctx context.Context, tokenID string) (bool, error)
	DeleteExpiredRevokedTokens(ctx context.Context, now time.Time) (int64, error)
}

type CartRepository interface {
	// GetCartByUserID loads the cart with its items and their products.
	GetCartByUserID(ctx context.Context, userID uuid.UUID) (*models.Cart, error)
	CreateCart(ctx context.Context, c *models.Cart) error
	SaveCartItem(ctx context.Context, item *models.CartItem) error
	DeleteCartItem(ctx context.Context, cartID, productID uuid.UUID) error
	ClearCartItems(ctx context.Context, cartID uuid.UUID) error
}

// ProductFilter narrows product listings.
type ProductFilter struct {
	Search string
	Limit  int
	Offset int
}

type ProductRepository interface {
	CreateProduct(ctx context.Context, p *models.Product) error
	GetProductByID(ctx context.Context, id uuid.UUID) (*models.Product, error)
	UpdateProduct(ctx context.Context, p *models.Product) error
	// DeleteProduct removes the product together with its cart lines and comments.
	DeleteProduct(ctx context.Context, id uuid.UUID) error
	ListProducts(ctx context.Context, f ProductFilter) ([]models.Product, int64, error)
	// DecrementStock subtracts qty only when enough stock is left.
	// It reports false without changing anything otherwise.
	DecrementStock(ctx context.Context, id uuid.UUID, qty int) (bool, error)
}

type CommentRepository interface {
	CreateComment(ctx context.Context, c *models.Comment) error
	ListCommentsByProduct(ctx context.Context, productID uuid.UUID) ([]models.Comment, error)
}

// OrderFilter narrows order listings. Zero values mean no restriction.
type OrderFilter struct {
	UserID *uuid.UUID
	Status models.OrderStatus
	Limit  int
	Offset int
}

// OrderStats aggregates orders for the admin dashboard.
// Revenue sums every order that was not canceled.
type OrderStats struct {
	TotalOrders    int64
	OrdersByStatus map[models.OrderStatus]int64
	PaidOrders     int64
	Revenue        decimal.Decimal
}

type OrderRepository interface {
	CreateOrder(ctx context.Context, o *models.Order) error
	GetOrderByID(ctx context.Context, id uuid.UUID) (*models.Order, error)
	GetOrderByGatewayOrderID(ctx context.Context, gatewayOrderID string) (*models.Order, error)
	ListOrders(ctx context.Context, f OrderFilter) ([]models.Order, int64, error)
	// UpdateOrder persists status and payment columns. Items are never rewritten.
	UpdateOrder(ctx context.Context, o *models.Order) error
	OrderStats(ctx context.Context) (*OrderStats, error)
}

// TxManager runs fn inside one database transaction.
// Repositories called with the ctx handed to fn join that transaction.
type TxManager interface {
	WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}

// Store bundles every repository behind one value.
type Store interface {
	UserRepository
	OtpRepository
	RevokedTokenRepository
	CartRepository
	ProductRepository
	CommentRepository
	OrderRepository
	TxManager
}
