package models

import (
	"time"

	"github.com/lib/pq"
	"github.com/shopspring/decimal"
)

// Product represents a single size variant of a catalog listing. Variants of
// the same listing share a UniqueID.
type Product struct {
	ID           int64           `gorm:"column:id;primaryKey;autoIncrement"`
	UniqueID     string          `gorm:"column:unique_id;not null;index"`
	Name         string          `gorm:"column:name;not null"`
	Description  *string         `gorm:"column:description"`
	Price        decimal.Decimal `gorm:"column:price;type:numeric(12,2);not null"`
	DisplayPrice decimal.Decimal `gorm:"column:display_price;type:numeric(12,2);not null"`
	Size         string          `gorm:"column:size;not null"`
	Stock        int             `gorm:"column:stock;not null;default:0"`
	Keywords     pq.StringArray  `gorm:"column:keywords;type:text[];not null;default:ARRAY[]::text[]"`
	ImageURL     *string         `gorm:"column:image_url"`
	IsActive     bool            `gorm:"column:is_active;not null;default:true"`
	CreatedAt    time.Time       `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt    time.Time       `gorm:"column:updated_at;autoUpdateTime"`
}

// StockUnlimited marks a product that never runs out.
const StockUnlimited = -1

// HasUnlimitedStock reports whether the variant uses the unlimited sentinel.
func (p Product) HasUnlimitedStock() bool {
	return p.Stock == StockUnlimited
}
