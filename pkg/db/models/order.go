package models

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/milanbhagat/vastra-backend/pkg/enums"
)

// Order is one product line snapshotted out of the cart at checkout.
type Order struct {
	ID             int64             `gorm:"column:id;primaryKey;autoIncrement"`
	UserID         int64             `gorm:"column:user_id;not null;index"`
	ProductID      int64             `gorm:"column:product_id;not null"`
	Quantity       int               `gorm:"column:quantity;not null"`
	TotalPrice     decimal.Decimal   `gorm:"column:total_price;type:numeric(12,2);not null"`
	Status         enums.OrderStatus `gorm:"column:status;type:text;not null;default:PEND"`
	GatewayOrderID *string           `gorm:"column:gateway_order_id;index"`
	Seen           bool              `gorm:"column:seen;not null;default:false"`
	Product        *Product          `gorm:"foreignKey:ProductID"`
	CreatedAt      time.Time         `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt      time.Time         `gorm:"column:updated_at;autoUpdateTime"`
}
