package cart

import (
	"context"
	"database/sql"
	"errors"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/milanbhagat/vastra-backend/pkg/db/models"
)

// Repository defines persistence operations for cart lines.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	ListByUser(ctx context.Context, userID int64) ([]models.CartItem, error)
	FindLine(ctx context.Context, userID, productID int64) (*models.CartItem, error)
	Upsert(ctx context.Context, userID, productID, qty int64) error
	DeleteLine(ctx context.Context, userID, productID int64) (*models.CartItem, error)
	Clear(ctx context.Context, userID int64) error
	Total(ctx context.Context, userID int64) (decimal.Decimal, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository builds a cart repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) ListByUser(ctx context.Context, userID int64) ([]models.CartItem, error) {
	var items []models.CartItem
	err := r.db.WithContext(ctx).
		Preload("Product").
		Where("user_id = ?", userID).
		Order("created_at ASC").
		Find(&items).Error
	if err != nil {
		return nil, err
	}
	return items, nil
}

func (r *repository) FindLine(ctx context.Context, userID, productID int64) (*models.CartItem, error) {
	var item models.CartItem
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND product_id = ?", userID, productID).
		First(&item).Error
	if err != nil {
		return nil, err
	}
	return &item, nil
}

// Upsert adds qty to an existing line or inserts a fresh one.
func (r *repository) Upsert(ctx context.Context, userID, productID, qty int64) error {
	res := r.db.WithContext(ctx).
		Model(&models.CartItem{}).
		Where("user_id = ? AND product_id = ?", userID, productID).
		Update("quantity", gorm.Expr("quantity + ?", qty))
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected > 0 {
		return nil
	}
	return r.db.WithContext(ctx).Create(&models.CartItem{
		UserID:    userID,
		ProductID: productID,
		Quantity:  int(qty),
	}).Error
}

func (r *repository) DeleteLine(ctx context.Context, userID, productID int64) (*models.CartItem, error) {
	item, err := r.FindLine(ctx, userID, productID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, gorm.ErrRecordNotFound
		}
		return nil, err
	}
	if err := r.db.WithContext(ctx).Delete(&models.CartItem{}, item.ID).Error; err != nil {
		return nil, err
	}
	return item, nil
}

func (r *repository) Clear(ctx context.Context, userID int64) error {
	return r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Delete(&models.CartItem{}).Error
}

// Total sums quantity * price across the user's lines.
func (r *repository) Total(ctx context.Context, userID int64) (decimal.Decimal, error) {
	var raw sql.NullString
	err := r.db.WithContext(ctx).
		Model(&models.CartItem{}).
		Select("SUM(cart_items.quantity * products.price)").
		Joins("JOIN products ON products.id = cart_items.product_id").
		Where("cart_items.user_id = ?", userID).
		Scan(&raw).Error
	if err != nil {
		return decimal.Zero, err
	}
	if !raw.Valid {
		return decimal.Zero, nil
	}
	return decimal.NewFromString(raw.String)
}
