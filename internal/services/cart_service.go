package services

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/example/retailpulse/internal/models"
	"github.com/example/retailpulse/internal/repository"
)

// CartService manages the single cart of each user. Stock is checked but never reserved.
type CartService struct {
	store repository.Store
}

func NewCartService(store repository.Store) *CartService {
	return &CartService{store: store}
}

// CartSummary is a cart with its computed total.
type CartSummary struct {
	*models.Cart
	Total decimal.Decimal `json:"total"`
}

func summarize(cart *models.Cart) *CartSummary {
	total := decimal.Zero
	for _, item := range cart.Items {
		if item.Product == nil {
			continue
		}
		total = total.Add(item.Product.Price.Mul(decimal.NewFromInt(int64(item.Quantity))))
	}
	return &CartSummary{Cart: cart, Total: total}
}

// cartFor returns the user's cart, creating it on first use. A concurrent
// first add may create it first, in which case that cart is used.
func (s *CartService) cartFor(ctx context.Context, userID uuid.UUID) (*models.Cart, error) {
	cart, err := s.store.GetCartByUserID(ctx, userID)
	if !errors.Is(err, repository.ErrNotFound) {
		return cart, err
	}

	cart = &models.Cart{UserID: userID}
	err = s.store.WithTransaction(ctx, func(ctx context.Context) error {
		return s.store.CreateCart(ctx, cart)
	})
	if errors.Is(err, repository.ErrDuplicate) {
		return s.store.GetCartByUserID(ctx, userID)
	}
	if err != nil {
		return nil, err
	}
	return cart, nil
}

// AddToCart adds quantity of a product, summing with an existing line.
// The resulting line may not exceed the product's current stock.
func (s *CartService) AddToCart(ctx context.Context, userID, productID uuid.UUID, quantity int) (*CartSummary, error) {
	if quantity <= 0 {
		return nil, newError(KindInvalidInput, "quantity must be positive")
	}

	var cart *models.Cart
	err := s.store.WithTransaction(ctx, func(ctx context.Context) error {
		if _, err := s.store.GetUserByID(ctx, userID); err != nil {
			return notFoundOr(err, "user not found")
		}
		product, err := s.store.GetProductByID(ctx, productID)
		if err != nil {
			return notFoundOr(err, "product %s not found", productID)
		}

		cart, err = s.cartFor(ctx, userID)
		if err != nil {
			return err
		}

		item := &models.CartItem{CartID: cart.ID, ProductID: productID}
		for i := range cart.Items {
			if cart.Items[i].ProductID == productID {
				item = &cart.Items[i]
				break
			}
		}

		if item.Quantity+quantity > product.Quantity {
			return newError(KindInsufficientStock, "only %d of %s in stock", product.Quantity, product.Name)
		}
		item.Quantity += quantity
		if err := s.store.SaveCartItem(ctx, item); err != nil {
			return err
		}

		cart, err = s.store.GetCartByUserID(ctx, userID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return summarize(cart), nil
}

// RemoveFromCart deletes the line of one product.
func (s *CartService) RemoveFromCart(ctx context.Context, userID, productID uuid.UUID) (*CartSummary, error) {
	cart, err := s.store.GetCartByUserID(ctx, userID)
	if err != nil {
		return nil, notFoundOr(err, "cart not found")
	}
	if err := s.store.DeleteCartItem(ctx, cart.ID, productID); err != nil {
		return nil, notFoundOr(err, "product %s is not in the cart", productID)
	}
	cart, err = s.store.GetCartByUserID(ctx, userID)
	if err != nil {
		return nil, err
	}
	return summarize(cart), nil
}

// GetCart returns the user's cart with products and total.
func (s *CartService) GetCart(ctx context.Context, userID uuid.UUID) (*CartSummary, error) {
	cart, err := s.store.GetCartByUserID(ctx, userID)
	if err != nil {
		return nil, notFoundOr(err, "cart not found")
	}
	return summarize(cart), nil
}

// ClearCart removes every line of the user's cart.
func (s *CartService) ClearCart(ctx context.Context, userID uuid.UUID) error {
	cart, err := s.store.GetCartByUserID(ctx, userID)
	if err != nil {
		return notFoundOr(err, "cart not found")
	}
	return s.store.ClearCartItems(ctx, cart.ID)
}
