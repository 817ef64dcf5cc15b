package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// GiftCard is a single-use store credit addressed by its code.
type GiftCard struct {
	ID        int64           `gorm:"column:id;primaryKey;autoIncrement"`
	UserID    int64           `gorm:"column:user_id;not null;index"`
	Code      string          `gorm:"column:code;not null;uniqueIndex"`
	Price     decimal.Decimal `gorm:"column:price;type:numeric(12,2);not null"`
	Used      bool            `gorm:"column:used;not null;default:false"`
	UsedAt    *time.Time      `gorm:"column:used_at"`
	CreatedAt time.Time       `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time       `gorm:"column:updated_at;autoUpdateTime"`
}
