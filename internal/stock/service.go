package stock

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/milanbhagat/vastra-backend/pkg/db/models"
	pkgerrors "github.com/milanbhagat/vastra-backend/pkg/errors"
)

// Service guards product stock with conditional updates. A stock value of -1
// marks an unlimited variant and is never decremented.
type Service interface {
	IsAvailable(ctx context.Context, db *gorm.DB, productID int64, qty int) (bool, error)
	Reserve(ctx context.Context, tx *gorm.DB, productID int64, qty int) error
	Release(ctx context.Context, tx *gorm.DB, productID int64, qty int) error
}

type service struct{}

// NewService builds the stock service.
func NewService() Service {
	return &service{}
}

func (s *service) IsAvailable(ctx context.Context, db *gorm.DB, productID int64, qty int) (bool, error) {
	if qty <= 0 {
		return false, pkgerrors.New(pkgerrors.CodeValidation, "quantity must be positive")
	}

	var product models.Product
	err := db.WithContext(ctx).
		Select("id", "stock").
		Where("id = ?", productID).
		First(&product).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return false, pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
		}
		return false, err
	}

	return product.HasUnlimitedStock() || product.Stock >= qty, nil
}

// Reserve decrements stock when enough is left. The guard and the decrement
// run in one statement so concurrent reservations cannot oversell.
func (s *service) Reserve(ctx context.Context, tx *gorm.DB, productID int64, qty int) error {
	if qty <= 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "quantity must be positive")
	}

	res := tx.WithContext(ctx).Exec(
		`UPDATE products
		 SET stock = CASE WHEN stock = ? THEN stock ELSE stock - ? END
		 WHERE id = ? AND (stock = ? OR stock >= ?)`,
		models.StockUnlimited, qty, productID, models.StockUnlimited, qty,
	)
	if res.Error != nil {
		return fmt.Errorf("reserving stock: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return pkgerrors.New(pkgerrors.CodeConflict, "insufficient stock")
	}
	return nil
}

// Release returns previously reserved quantity. Unlimited variants are left
// untouched.
func (s *service) Release(ctx context.Context, tx *gorm.DB, productID int64, qty int) error {
	if qty <= 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "quantity must be positive")
	}

	res := tx.WithContext(ctx).Exec(
		`UPDATE products SET stock = stock + ? WHERE id = ? AND stock <> ?`,
		qty, productID, models.StockUnlimited,
	)
	if res.Error != nil {
		return fmt.Errorf("releasing stock: %w", res.Error)
	}
	return nil
}
