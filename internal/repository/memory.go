package repository

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/example/retailpulse/internal/models"
)

type memTxKey struct{}

// MemoryStore is an in-process Store used by tests and local runs without a database.
// A transaction holds the store lock for its whole duration and restores the
// previous state when fn returns an error.
type MemoryStore struct {
	mu sync.Mutex

	users    map[uuid.UUID]models.User
	otps     map[uuid.UUID]models.Otp
	revoked  map[string]models.RevokedToken
	carts    map[uuid.UUID]models.Cart
	items    map[uuid.UUID]models.CartItem
	products map[uuid.UUID]models.Product
	comments map[uuid.UUID]models.Comment
	orders   map[uuid.UUID]models.Order

	now func() time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		users:    map[uuid.UUID]models.User{},
		otps:     map[uuid.UUID]models.Otp{},
		revoked:  map[string]models.RevokedToken{},
		carts:    map[uuid.UUID]models.Cart{},
		items:    map[uuid.UUID]models.CartItem{},
		products: map[uuid.UUID]models.Product{},
		comments: map[uuid.UUID]models.Comment{},
		orders:   map[uuid.UUID]models.Order{},
		now:      time.Now,
	}
}

func (s *MemoryStore) lock(ctx context.Context) func() {
	if ctx.Value(memTxKey{}) != nil {
		return func() {}
	}
	s.mu.Lock()
	return s.mu.Unlock
}

func (s *MemoryStore) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	if ctx.Value(memTxKey{}) != nil {
		return fn(ctx)
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	snap := s.snapshot()
	if err := fn(context.WithValue(ctx, memTxKey{}, true)); err != nil {
		s.restore(snap)
		return err
	}
	return nil
}

type memSnapshot struct {
	users    map[uuid.UUID]models.User
	otps     map[uuid.UUID]models.Otp
	revoked  map[string]models.RevokedToken
	carts    map[uuid.UUID]models.Cart
	items    map[uuid.UUID]models.CartItem
	products map[uuid.UUID]models.Product
	comments map[uuid.UUID]models.Comment
	orders   map[uuid.UUID]models.Order
}

func copyMap[K comparable, V any](m map[K]V) map[K]V {
	out := make(map[K]V, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

func (s *MemoryStore) snapshot() memSnapshot {
	return memSnapshot{
		users:    copyMap(s.users),
		otps:     copyMap(s.otps),
		revoked:  copyMap(s.revoked),
		carts:    copyMap(s.carts),
		items:    copyMap(s.items),
		products: copyMap(s.products),
		comments: copyMap(s.comments),
		orders:   copyMap(s.orders),
	}
}

func (s *MemoryStore) restore(snap memSnapshot) {
	s.users = snap.users
	s.otps = snap.otps
	s.revoked = snap.revoked
	s.carts = snap.carts
	s.items = snap.items
	s.products = snap.products
	s.comments = snap.comments
	s.orders = snap.orders
}

func (s *MemoryStore) stamp(b *models.BaseModel) {
	b.EnsureID()
	now := s.now()
	if b.CreatedAt.IsZero() {
		b.CreatedAt = now
	}
	b.UpdatedAt = now
}

// ---- users ----

func (s *MemoryStore) CreateUser(ctx context.Context, u *models.User) error {
	defer s.lock(ctx)()
	for _, existing := range s.users {
		if existing.Email == u.Email || existing.PhoneNumber == u.PhoneNumber {
			return ErrDuplicate
		}
	}
	s.stamp(&u.BaseModel)
	s.users[u.ID] = *u
	return nil
}

func (s *MemoryStore) GetUserByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	defer s.lock(ctx)()
	u, ok := s.users[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &u, nil
}

func (s *MemoryStore) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	defer s.lock(ctx)()
	for _, u := range s.users {
		if u.Email == email {
			return &u, nil
		}
	}
	return nil, ErrNotFound
}

func (s *MemoryStore) GetUserByPhone(ctx context.Context, phone string) (*models.User, error) {
	defer s.lock(ctx)()
	for _, u := range s.users {
		if u.PhoneNumber == phone {
			return &u, nil
		}
	}
	return nil, ErrNotFound
}

func (s *MemoryStore) UserExists(ctx context.Context, email, phone string) (bool, error) {
	defer s.lock(ctx)()
	for _, u := range s.users {
		if u.Email == email || u.PhoneNumber == phone {
			return true, nil
		}
	}
	return false, nil
}

func (s *MemoryStore) UpdateUser(ctx context.Context, u *models.User) error {
	defer s.lock(ctx)()
	if _, ok := s.users[u.ID]; !ok {
		return ErrNotFound
	}
	s.stamp(&u.BaseModel)
	s.users[u.ID] = *u
	return nil
}

func (s *MemoryStore) CountUsers(ctx context.Context) (int64, error) {
	defer s.lock(ctx)()
	return int64(len(s.users)), nil
}

// ---- otps ----

func (s *MemoryStore) CreateOtp(ctx context.Context, o *models.Otp) error {
	defer s.lock(ctx)()
	for _, existing := range s.otps {
		if existing.UserID == o.UserID {
			return ErrDuplicate
		}
	}
	s.stamp(&o.BaseModel)
	s.otps[o.ID] = *o
	return nil
}

func (s *MemoryStore) findOtp(match func(models.Otp) bool) (*models.Otp, error) {
	for _, o := range s.otps {
		if match(o) {
			return &o, nil
		}
	}
	return nil, ErrNotFound
}

func (s *MemoryStore) GetOtpByEmail(ctx context.Context, email string) (*models.Otp, error) {
	defer s.lock(ctx)()
	return s.findOtp(func(o models.Otp) bool { return o.Email == email })
}

func (s *MemoryStore) GetOtpByPhone(ctx context.Context, phone string) (*models.Otp, error) {
	defer s.lock(ctx)()
	return s.findOtp(func(o models.Otp) bool { return o.PhoneNumber == phone })
}

func (s *MemoryStore) GetOtpByUserID(ctx context.Context, userID uuid.UUID) (*models.Otp, error) {
	defer s.lock(ctx)()
	return s.findOtp(func(o models.Otp) bool { return o.UserID == userID })
}

func (s *MemoryStore) UpdateOtp(ctx context.Context, o *models.Otp) error {
	defer s.lock(ctx)()
	if _, ok := s.otps[o.ID]; !ok {
		return ErrNotFound
	}
	s.stamp(&o.BaseModel)
	s.otps[o.ID] = *o
	return nil
}

func (s *MemoryStore) DeleteExpiredOtps(ctx context.Context, now time.Time) (int64, error) {
	defer s.lock(ctx)()
	var n int64
	for id, o := range s.otps {
		if o.EmailExpiresAt.Before(now) && o.SmsExpiresAt.Before(now) {
			delete(s.otps, id)
			n++
		}
	}
	return n, nil
}

// ---- revoked tokens ----

func (s *MemoryStore) RevokeToken(ctx context.Context, t *models.RevokedToken) error {
	defer s.lock(ctx)()
	if _, ok := s.revoked[t.TokenID]; ok {
		return nil
	}
	s.stamp(&t.BaseModel)
	s.revoked[t.TokenID] = *t
	return nil
}

func (s *MemoryStore) IsTokenRevoked(ctx context.Context, tokenID string) (bool, error) {
	defer s.lock(ctx)()
	_, ok := s.revoked[tokenID]
	return ok, nil
}

func (s *MemoryStore) DeleteExpiredRevokedTokens(ctx context.Context, now time.Time) (int64, error) {
	defer s.lock(ctx)()
	var n int64
	for id, t := range s.revoked {
		if t.ExpiresAt.Before(now) {
			delete(s.revoked, id)
			n++
		}
	}
	return n, nil
}

// ---- carts ----

func (s *MemoryStore) GetCartByUserID(ctx context.Context, userID uuid.UUID) (*models.Cart, error) {
	defer s.lock(ctx)()
	for _, c := range s.carts {
		if c.UserID != userID {
			continue
		}
		c.Items = nil
		for _, item := range s.items {
			if item.CartID != c.ID {
				continue
			}
			if p, ok := s.products[item.ProductID]; ok {
				item.Product = &p
			}
			c.Items = append(c.Items, item)
		}
		sort.Slice(c.Items, func(i, j int) bool {
			return c.Items[i].CreatedAt.Before(c.Items[j].CreatedAt)
		})
		return &c, nil
	}
	return nil, ErrNotFound
}

func (s *MemoryStore) CreateCart(ctx context.Context, c *models.Cart) error {
	defer s.lock(ctx)()
	for _, existing := range s.carts {
		if existing.UserID == c.UserID {
			return ErrDuplicate
		}
	}
	s.stamp(&c.BaseModel)
	stored := *c
	stored.Items = nil
	s.carts[c.ID] = stored
	return nil
}

func (s *MemoryStore) SaveCartItem(ctx context.Context, item *models.CartItem) error {
	defer s.lock(ctx)()
	if _, ok := s.carts[item.CartID]; !ok {
		return ErrNotFound
	}
	if _, ok := s.products[item.ProductID]; !ok {
		return ErrNotFound
	}
	s.stamp(&item.BaseModel)
	stored := *item
	stored.Product = nil
	s.items[item.ID] = stored
	return nil
}

func (s *MemoryStore) DeleteCartItem(ctx context.Context, cartID, productID uuid.UUID) error {
	defer s.lock(ctx)()
	for id, item := range s.items {
		if item.CartID == cartID && item.ProductID == productID {
			delete(s.items, id)
			return nil
		}
	}
	return ErrNotFound
}

func (s *MemoryStore) ClearCartItems(ctx context.Context, cartID uuid.UUID) error {
	defer s.lock(ctx)()
	for id, item := range s.items {
		if item.CartID == cartID {
			delete(s.items, id)
		}
	}
	return nil
}

// ---- products ----

func (s *MemoryStore) CreateProduct(ctx context.Context, p *models.Product) error {
	defer s.lock(ctx)()
	s.stamp(&p.BaseModel)
	stored := *p
	stored.Comments = nil
	s.products[p.ID] = stored
	return nil
}

func (s *MemoryStore) GetProductByID(ctx context.Context, id uuid.UUID) (*models.Product, error) {
	defer s.lock(ctx)()
	p, ok := s.products[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &p, nil
}

func (s *MemoryStore) UpdateProduct(ctx context.Context, p *models.Product) error {
	defer s.lock(ctx)()
	existing, ok := s.products[p.ID]
	if !ok {
		return ErrNotFound
	}
	existing.Name = p.Name
	existing.Description = p.Description
	existing.Price = p.Price
	existing.Quantity = p.Quantity
	existing.Image = p.Image
	existing.UpdatedAt = s.now()
	s.products[p.ID] = existing
	return nil
}

func (s *MemoryStore) DeleteProduct(ctx context.Context, id uuid.UUID) error {
	defer s.lock(ctx)()
	if _, ok := s.products[id]; !ok {
		return ErrNotFound
	}
	for itemID, item := range s.items {
		if item.ProductID == id {
			delete(s.items, itemID)
		}
	}
	for commentID, c := range s.comments {
		if c.ProductID == id {
			delete(s.comments, commentID)
		}
	}
	delete(s.products, id)
	return nil
}

func (s *MemoryStore) ListProducts(ctx context.Context, f ProductFilter) ([]models.Product, int64, error) {
	defer s.lock(ctx)()
	term := strings.ToLower(strings.TrimSpace(f.Search))
	var out []models.Product
	for _, p := range s.products {
		if term != "" &&
			!strings.Contains(strings.ToLower(p.Name), term) &&
			!strings.Contains(strings.ToLower(p.Description), term) {
			continue
		}
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	total := int64(len(out))
	return page(out, f.Limit, f.Offset), total, nil
}

func (s *MemoryStore) DecrementStock(ctx context.Context, id uuid.UUID, qty int) (bool, error) {
	defer s.lock(ctx)()
	p, ok := s.products[id]
	if !ok || p.Quantity < qty {
		return false, nil
	}
	p.Quantity -= qty
	s.products[id] = p
	return true, nil
}

// ---- comments ----

func (s *MemoryStore) CreateComment(ctx context.Context, c *models.Comment) error {
	defer s.lock(ctx)()
	s.stamp(&c.BaseModel)
	s.comments[c.ID] = *c
	return nil
}

func (s *MemoryStore) ListCommentsByProduct(ctx context.Context, productID uuid.UUID) ([]models.Comment, error) {
	defer s.lock(ctx)()
	var out []models.Comment
	for _, c := range s.comments {
		if c.ProductID == productID {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

// ---- orders ----

func (s *MemoryStore) CreateOrder(ctx context.Context, o *models.Order) error {
	defer s.lock(ctx)()
	s.stamp(&o.BaseModel)
	items := make([]models.OrderItem, len(o.Items))
	for i := range o.Items {
		o.Items[i].OrderID = o.ID
		s.stamp(&o.Items[i].BaseModel)
		items[i] = o.Items[i]
	}
	stored := *o
	stored.Items = items
	s.orders[o.ID] = stored
	return nil
}

func (s *MemoryStore) cloneOrder(o models.Order) *models.Order {
	o.Items = append([]models.OrderItem(nil), o.Items...)
	return &o
}

func (s *MemoryStore) GetOrderByID(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	defer s.lock(ctx)()
	o, ok := s.orders[id]
	if !ok {
		return nil, ErrNotFound
	}
	return s.cloneOrder(o), nil
}

func (s *MemoryStore) GetOrderByGatewayOrderID(ctx context.Context, gatewayOrderID string) (*models.Order, error) {
	defer s.lock(ctx)()
	for _, o := range s.orders {
		if o.GatewayOrderID == gatewayOrderID {
			return s.cloneOrder(o), nil
		}
	}
	return nil, ErrNotFound
}

func (s *MemoryStore) ListOrders(ctx context.Context, f OrderFilter) ([]models.Order, int64, error) {
	defer s.lock(ctx)()
	var out []models.Order
	for _, o := range s.orders {
		if f.UserID != nil && o.UserID != *f.UserID {
			continue
		}
		if f.Status != "" && o.Status != f.Status {
			continue
		}
		out = append(out, *s.cloneOrder(o))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	total := int64(len(out))
	return page(out, f.Limit, f.Offset), total, nil
}

func (s *MemoryStore) UpdateOrder(ctx context.Context, o *models.Order) error {
	defer s.lock(ctx)()
	existing, ok := s.orders[o.ID]
	if !ok {
		return ErrNotFound
	}
	existing.Status = o.Status
	existing.PaymentID = o.PaymentID
	existing.PaymentStatus = o.PaymentStatus
	existing.UpdatedAt = s.now()
	s.orders[o.ID] = existing
	return nil
}

func (s *MemoryStore) OrderStats(ctx context.Context) (*OrderStats, error) {
	defer s.lock(ctx)()
	stats := &OrderStats{OrdersByStatus: map[models.OrderStatus]int64{}, Revenue: decimal.Zero}
	for _, o := range s.orders {
		stats.TotalOrders++
		stats.OrdersByStatus[o.Status]++
		if o.PaymentStatus == models.PaymentStatusPaid {
			stats.PaidOrders++
		}
		if o.Status != models.OrderStatusCanceled {
			stats.Revenue = stats.Revenue.Add(o.Amount)
		}
	}
	return stats, nil
}

func page[T any](items []T, limit, offset int) []T {
	if limit <= 0 {
		return items
	}
	if offset >= len(items) {
		return []T{}
	}
	end := offset + limit
	if end > len(items) {
		end = len(items)
	}
	return items[offset:end]
}
