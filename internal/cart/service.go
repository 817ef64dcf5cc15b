package cart

import (
	"context"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/milanbhagat/vastra-backend/internal/stock"
	"github.com/milanbhagat/vastra-backend/pkg/db/models"
	pkgerrors "github.com/milanbhagat/vastra-backend/pkg/errors"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// Service manages a user's cart. Adding a line reserves stock; removing a
// line releases it. Clearing after checkout leaves stock untouched because
// the pending orders still hold the reservation.
type Service interface {
	Add(ctx context.Context, userID, productID int64, qty int) error
	Remove(ctx context.Context, userID, productID int64) error
	Items(ctx context.Context, userID int64) ([]models.CartItem, decimal.Decimal, error)
}

type service struct {
	repo  Repository
	stock stock.Service
	tx    txRunner
}

// NewService builds a cart service with the required dependencies.
func NewService(repo Repository, stockSvc stock.Service, tx txRunner) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("cart repository required")
	}
	if stockSvc == nil {
		return nil, fmt.Errorf("stock service required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	return &service{repo: repo, stock: stockSvc, tx: tx}, nil
}

func (s *service) Add(ctx context.Context, userID, productID int64, qty int) error {
	if qty <= 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "quantity must be positive")
	}

	return s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		if err := s.stock.Reserve(ctx, tx, productID, qty); err != nil {
			return err
		}
		return s.repo.WithTx(tx).Upsert(ctx, userID, productID, int64(qty))
	})
}

func (s *service) Remove(ctx context.Context, userID, productID int64) error {
	return s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		line, err := s.repo.WithTx(tx).DeleteLine(ctx, userID, productID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "cart line not found")
			}
			return err
		}
		return s.stock.Release(ctx, tx, productID, line.Quantity)
	})
}

func (s *service) Items(ctx context.Context, userID int64) ([]models.CartItem, decimal.Decimal, error) {
	items, err := s.repo.ListByUser(ctx, userID)
	if err != nil {
		return nil, decimal.Zero, err
	}
	total, err := s.repo.Total(ctx, userID)
	if err != nil {
		return nil, decimal.Zero, err
	}
	return items, total, nil
}
