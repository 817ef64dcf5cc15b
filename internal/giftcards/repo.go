package giftcards

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/milanbhagat/vastra-backend/pkg/db/models"
)

// Repository defines persistence operations for gift cards.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, card *models.GiftCard) (*models.GiftCard, error)
	FindByCode(ctx context.Context, code string) (*models.GiftCard, error)
	ListByUser(ctx context.Context, userID int64) ([]models.GiftCard, error)
	MarkUsed(ctx context.Context, id int64, at time.Time) (int64, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository builds a gift card repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, card *models.GiftCard) (*models.GiftCard, error) {
	if err := r.db.WithContext(ctx).Create(card).Error; err != nil {
		return nil, err
	}
	return card, nil
}

func (r *repository) FindByCode(ctx context.Context, code string) (*models.GiftCard, error) {
	var card models.GiftCard
	err := r.db.WithContext(ctx).
		Where("code = ?", code).
		First(&card).Error
	if err != nil {
		return nil, err
	}
	return &card, nil
}

func (r *repository) ListByUser(ctx context.Context, userID int64) ([]models.GiftCard, error) {
	var cards []models.GiftCard
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Find(&cards).Error
	if err != nil {
		return nil, err
	}
	return cards, nil
}

// MarkUsed flips the card to used only when it is still fresh. The returned
// row count tells the caller whether it won the race.
func (r *repository) MarkUsed(ctx context.Context, id int64, at time.Time) (int64, error) {
	res := r.db.WithContext(ctx).
		Model(&models.GiftCard{}).
		Where("id = ? AND used = ?", id, false).
		Updates(map[string]any{"used": true, "used_at": at})
	return res.RowsAffected, res.Error
}
