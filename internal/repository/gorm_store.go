package repository

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/example/retailpulse/internal/models"
)

type txKey struct{}

// GormStore implements Store on top of a gorm connection.
type GormStore struct {
	db *gorm.DB
}

func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{db: db}
}

// conn returns the transaction carried by ctx, or the base connection.
func (s *GormStore) conn(ctx context.Context) *gorm.DB {
	if tx, ok := ctx.Value(txKey{}).(*gorm.DB); ok {
		return tx
	}
	return s.db.WithContext(ctx)
}

func (s *GormStore) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	return s.conn(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(context.WithValue(ctx, txKey{}, tx))
	})
}

// translate maps gorm sentinel errors onto the repository ones.
// Duplicate detection relies on gorm.Config.TranslateError.
func translate(err error) error {
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		return ErrNotFound
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return ErrDuplicate
	}
	return err
}

// ---- users ----

func (s *GormStore) CreateUser(ctx context.Context, u *models.User) error {
	return translate(s.conn(ctx).Create(u).Error)
}

func (s *GormStore) GetUserByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	var u models.User
	if err := s.conn(ctx).First(&u, "id = ?", id).Error; err != nil {
		return nil, translate(err)
	}
	return &u, nil
}

func (s *GormStore) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	var u models.User
	if err := s.conn(ctx).Where("email = ?", email).First(&u).Error; err != nil {
		return nil, translate(err)
	}
	return &u, nil
}

func (s *GormStore) GetUserByPhone(ctx context.Context, phone string) (*models.User, error) {
	var u models.User
	if err := s.conn(ctx).Where("phone_number = ?", phone).First(&u).Error; err != nil {
		return nil, translate(err)
	}
	return &u, nil
}

func (s *GormStore) UserExists(ctx context.Context, email, phone string) (bool, error) {
	var count int64
	err := s.conn(ctx).Model(&models.User{}).
		Where("email = ? OR phone_number = ?", email, phone).
		Count(&count).Error
	return count > 0, err
}

func (s *GormStore) UpdateUser(ctx context.Context, u *models.User) error {
	return translate(s.conn(ctx).Save(u).Error)
}

func (s *GormStore) CountUsers(ctx context.Context) (int64, error) {
	var count int64
	err := s.conn(ctx).Model(&models.User{}).Count(&count).Error
	return count, err
}

// ---- otps ----

func (s *GormStore) CreateOtp(ctx context.Context, o *models.Otp) error {
	return translate(s.conn(ctx).Create(o).Error)
}

func (s *GormStore) GetOtpByEmail(ctx context.Context, email string) (*models.Otp, error) {
	var o models.Otp
	if err := s.conn(ctx).Where("email = ?", email).First(&o).Error; err != nil {
		return nil, translate(err)
	}
	return &o, nil
}

func (s *GormStore) GetOtpByPhone(ctx context.Context, phone string) (*models.Otp, error) {
	var o models.Otp
	if err := s.conn(ctx).Where("phone_number = ?", phone).First(&o).Error; err != nil {
		return nil, translate(err)
	}
	return &o, nil
}

func (s *GormStore) GetOtpByUserID(ctx context.Context, userID uuid.UUID) (*models.Otp, error) {
	var o models.Otp
	if err := s.conn(ctx).Where("user_id = ?", userID).First(&o).Error; err != nil {
		return nil, translate(err)
	}
	return &o, nil
}

func (s *GormStore) UpdateOtp(ctx context.Context, o *models.Otp) error {
	return s.conn(ctx).Save(o).Error
}

func (s *GormStore) DeleteExpiredOtps(ctx context.Context, now time.Time) (int64, error) {
	res := s.conn(ctx).
		Where("email_expires_at < ? AND sms_expires_at < ?", now, now).
		Delete(&models.Otp{})
	return res.RowsAffected, res.Error
}

// ---- revoked tokens ----

func (s *GormStore) RevokeToken(ctx context.Context, t *models.RevokedToken) error {
	return s.conn(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(t).Error
}

func (s *GormStore) IsTokenRevoked(ctx context.Context, tokenID string) (bool, error) {
	var count int64
	err := s.conn(ctx).Model(&models.RevokedToken{}).Where("token_id = ?", tokenID).Count(&count).Error
	return count > 0, err
}

func (s *GormStore) DeleteExpiredRevokedTokens(ctx context.Context, now time.Time) (int64, error) {
	res := s.conn(ctx).Where("expires_at < ?", now).Delete(&models.RevokedToken{})
	return res.RowsAffected, res.Error
}

// ---- carts ----

func (s *GormStore) GetCartByUserID(ctx context.Context, userID uuid.UUID) (*models.Cart, error) {
	var c models.Cart
	err := s.conn(ctx).
		Preload("Items", func(db *gorm.DB) *gorm.DB { return db.Order("created_at ASC") }).
		Preload("Items.Product").
		Where("user_id = ?", userID).
		First(&c).Error
	if err != nil {
		return nil, translate(err)
	}
	return &c, nil
}

func (s *GormStore) CreateCart(ctx context.Context, c *models.Cart) error {
	return translate(s.conn(ctx).Omit(clause.Associations).Create(c).Error)
}

func (s *GormStore) SaveCartItem(ctx context.Context, item *models.CartItem) error {
	return translate(s.conn(ctx).Omit(clause.Associations).Save(item).Error)
}

func (s *GormStore) DeleteCartItem(ctx context.Context, cartID, productID uuid.UUID) error {
	res := s.conn(ctx).
		Where("cart_id = ? AND product_id = ?", cartID, productID).
		Delete(&models.CartItem{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *GormStore) ClearCartItems(ctx context.Context, cartID uuid.UUID) error {
	return s.conn(ctx).Where("cart_id = ?", cartID).Delete(&models.CartItem{}).Error
}

// ---- products ----

func (s *GormStore) CreateProduct(ctx context.Context, p *models.Product) error {
	return s.conn(ctx).Omit(clause.Associations).Create(p).Error
}

func (s *GormStore) GetProductByID(ctx context.Context, id uuid.UUID) (*models.Product, error) {
	var p models.Product
	if err := s.conn(ctx).First(&p, "id = ?", id).Error; err != nil {
		return nil, translate(err)
	}
	return &p, nil
}

func (s *GormStore) UpdateProduct(ctx context.Context, p *models.Product) error {
	res := s.conn(ctx).Model(&models.Product{}).Where("id = ?", p.ID).Updates(map[string]interface{}{
		"name":        p.Name,
		"description": p.Description,
		"price":       p.Price,
		"quantity":    p.Quantity,
		"image":       p.Image,
		"updated_at":  time.Now(),
	})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *GormStore) DeleteProduct(ctx context.Context, id uuid.UUID) error {
	return s.conn(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("product_id = ?", id).Delete(&models.CartItem{}).Error; err != nil {
			return err
		}
		if err := tx.Where("product_id = ?", id).Delete(&models.Comment{}).Error; err != nil {
			return err
		}
		res := tx.Where("id = ?", id).Delete(&models.Product{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrNotFound
		}
		return nil
	})
}

func (s *GormStore) ListProducts(ctx context.Context, f ProductFilter) ([]models.Product, int64, error) {
	query := s.conn(ctx).Model(&models.Product{})
	if term := strings.TrimSpace(f.Search); term != "" {
		like := "%" + strings.ToLower(term) + "%"
		query = query.Where("LOWER(name) LIKE ? OR LOWER(description) LIKE ?", like, like)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var items []models.Product
	q := query.Order("created_at DESC")
	if f.Limit > 0 {
		q = q.Limit(f.Limit).Offset(f.Offset)
	}
	if err := q.Find(&items).Error; err != nil {
		return nil, 0, err
	}
	return items, total, nil
}

func (s *GormStore) DecrementStock(ctx context.Context, id uuid.UUID, qty int) (bool, error) {
	res := s.conn(ctx).Model(&models.Product{}).
		Where("id = ? AND quantity >= ?", id, qty).
		UpdateColumn("quantity", gorm.Expr("quantity - ?", qty))
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

// ---- comments ----

func (s *GormStore) CreateComment(ctx context.Context, c *models.Comment) error {
	return s.conn(ctx).Create(c).Error
}

func (s *GormStore) ListCommentsByProduct(ctx context.Context, productID uuid.UUID) ([]models.Comment, error) {
	var comments []models.Comment
	err := s.conn(ctx).Where("product_id = ?", productID).Order("created_at DESC").Find(&comments).Error
	return comments, err
}

// ---- orders ----

func (s *GormStore) CreateOrder(ctx context.Context, o *models.Order) error {
	return s.conn(ctx).Create(o).Error
}

func (s *GormStore) GetOrderByID(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	var o models.Order
	if err := s.conn(ctx).Preload("Items").First(&o, "id = ?", id).Error; err != nil {
		return nil, translate(err)
	}
	return &o, nil
}

func (s *GormStore) GetOrderByGatewayOrderID(ctx context.Context, gatewayOrderID string) (*models.Order, error) {
	var o models.Order
	err := s.conn(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Preload("Items").
		Where("gateway_order_id = ?", gatewayOrderID).
		First(&o).Error
	if err != nil {
		return nil, translate(err)
	}
	return &o, nil
}

func (s *GormStore) ListOrders(ctx context.Context, f OrderFilter) ([]models.Order, int64, error) {
	query := s.conn(ctx).Model(&models.Order{})
	if f.UserID != nil {
		query = query.Where("user_id = ?", *f.UserID)
	}
	if f.Status != "" {
		query = query.Where("status = ?", f.Status)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var orders []models.Order
	q := query.Preload("Items").Order("created_at DESC")
	if f.Limit > 0 {
		q = q.Limit(f.Limit).Offset(f.Offset)
	}
	if err := q.Find(&orders).Error; err != nil {
		return nil, 0, err
	}
	return orders, total, nil
}

func (s *GormStore) UpdateOrder(ctx context.Context, o *models.Order) error {
	res := s.conn(ctx).Model(&models.Order{}).Where("id = ?", o.ID).Updates(map[string]interface{}{
		"status":         o.Status,
		"payment_id":     o.PaymentID,
		"payment_status": o.PaymentStatus,
		"updated_at":     time.Now(),
	})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *GormStore) OrderStats(ctx context.Context) (*OrderStats, error) {
	stats := &OrderStats{OrdersByStatus: map[models.OrderStatus]int64{}}

	var rows []struct {
		Status models.OrderStatus
		Count  int64
	}
	if err := s.conn(ctx).Model(&models.Order{}).
		Select("status, COUNT(*) AS count").
		Group("status").
		Scan(&rows).Error; err != nil {
		return nil, err
	}
	for _, r := range rows {
		stats.OrdersByStatus[r.Status] = r.Count
		stats.TotalOrders += r.Count
	}

	if err := s.conn(ctx).Model(&models.Order{}).
		Where("payment_status = ?", models.PaymentStatusPaid).
		Count(&stats.PaidOrders).Error; err != nil {
		return nil, err
	}

	var revenue decimal.NullDecimal
	if err := s.conn(ctx).Model(&models.Order{}).
		Select("SUM(amount)").
		Where("status <> ?", models.OrderStatusCanceled).
		Scan(&revenue).Error; err != nil {
		return nil, err
	}
	stats.Revenue = decimal.Zero
	if revenue.Valid {
		stats.Revenue = revenue.Decimal
	}
	return stats, nil
}
