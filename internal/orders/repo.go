package orders

import (
	"context"

	"gorm.io/gorm"

	"github.com/milanbhagat/vastra-backend/pkg/db/models"
	"github.com/milanbhagat/vastra-backend/pkg/enums"
)

// Repository defines persistence operations for order rows.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	CreateBatch(ctx context.Context, orders []models.Order) error
	ListByUser(ctx context.Context, userID int64) ([]models.Order, error)
	FindByID(ctx context.Context, id int64) (*models.Order, error)
	FindByGatewayOrderID(ctx context.Context, gatewayOrderID string) ([]models.Order, error)
	FindUnpaidGatewayOrderID(ctx context.Context, userID int64) (string, error)
	ListFreshPending(ctx context.Context, userID int64) ([]models.Order, error)
	StampConfirmed(ctx context.Context, userID int64, gatewayOrderID string) (int64, error)
	MarkPaid(ctx context.Context, userID int64, gatewayOrderID string) (int64, error)
	DeletePending(ctx context.Context, id, userID int64) (int64, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository builds an orders repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) CreateBatch(ctx context.Context, orders []models.Order) error {
	if len(orders) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Create(&orders).Error
}

func (r *repository) ListByUser(ctx context.Context, userID int64) ([]models.Order, error) {
	var orders []models.Order
	err := r.db.WithContext(ctx).
		Preload("Product").
		Where("user_id = ?", userID).
		Order("created_at DESC, id DESC").
		Find(&orders).Error
	if err != nil {
		return nil, err
	}
	return orders, nil
}

func (r *repository) FindByID(ctx context.Context, id int64) (*models.Order, error) {
	var order models.Order
	err := r.db.WithContext(ctx).
		Preload("Product").
		Where("id = ?", id).
		First(&order).Error
	if err != nil {
		return nil, err
	}
	return &order, nil
}

func (r *repository) FindByGatewayOrderID(ctx context.Context, gatewayOrderID string) ([]models.Order, error) {
	var orders []models.Order
	err := r.db.WithContext(ctx).
		Where("gateway_order_id = ?", gatewayOrderID).
		Find(&orders).Error
	if err != nil {
		return nil, err
	}
	return orders, nil
}

// FindUnpaidGatewayOrderID returns the gateway order a user confirmed but
// never paid, so checkout can resume it instead of creating a duplicate.
func (r *repository) FindUnpaidGatewayOrderID(ctx context.Context, userID int64) (string, error) {
	var order models.Order
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND status = ? AND gateway_order_id IS NOT NULL", userID, enums.OrderStatusConfirmed).
		Order("created_at DESC").
		First(&order).Error
	if err != nil {
		return "", err
	}
	if order.GatewayOrderID == nil {
		return "", gorm.ErrRecordNotFound
	}
	return *order.GatewayOrderID, nil
}

// ListFreshPending returns pending rows not yet bound to any gateway order.
func (r *repository) ListFreshPending(ctx context.Context, userID int64) ([]models.Order, error) {
	var orders []models.Order
	err := r.db.WithContext(ctx).
		Preload("Product").
		Where("user_id = ? AND status = ? AND gateway_order_id IS NULL AND seen = ?",
			userID, enums.OrderStatusPending, false).
		Order("id ASC").
		Find(&orders).Error
	if err != nil {
		return nil, err
	}
	return orders, nil
}

// StampConfirmed binds the user's fresh pending rows to a gateway order in
// one conditional update. The predicate keeps already-stamped and already-seen
// rows out of the new batch.
func (r *repository) StampConfirmed(ctx context.Context, userID int64, gatewayOrderID string) (int64, error) {
	res := r.db.WithContext(ctx).
		Model(&models.Order{}).
		Where("user_id = ? AND status = ? AND gateway_order_id IS NULL AND seen = ?",
			userID, enums.OrderStatusPending, false).
		Updates(map[string]any{
			"gateway_order_id": gatewayOrderID,
			"status":           enums.OrderStatusConfirmed,
			"seen":             true,
		})
	return res.RowsAffected, res.Error
}

// MarkPaid settles the confirmed rows tied to a gateway order. Zero affected
// rows means the webhook is a replay or the rows never reached CONF.
func (r *repository) MarkPaid(ctx context.Context, userID int64, gatewayOrderID string) (int64, error) {
	res := r.db.WithContext(ctx).
		Model(&models.Order{}).
		Where("user_id = ? AND gateway_order_id = ? AND status = ?",
			userID, gatewayOrderID, enums.OrderStatusConfirmed).
		Update("status", enums.OrderStatusPaid)
	return res.RowsAffected, res.Error
}

func (r *repository) DeletePending(ctx context.Context, id, userID int64) (int64, error) {
	res := r.db.WithContext(ctx).
		Where("id = ? AND user_id = ? AND status = ?", id, userID, enums.OrderStatusPending).
		Delete(&models.Order{})
	return res.RowsAffected, res.Error
}
