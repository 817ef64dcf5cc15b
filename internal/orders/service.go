package orders

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/milanbhagat/vastra-backend/pkg/db/models"
	pkgerrors "github.com/milanbhagat/vastra-backend/pkg/errors"
)

// Service exposes order history reads and pending-order cancellation.
type Service interface {
	History(ctx context.Context, userID int64) ([]models.Order, error)
	CancelPending(ctx context.Context, userID, orderID int64) error
}

type service struct {
	repo Repository
}

// NewService builds the orders service.
func NewService(repo Repository) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	return &service{repo: repo}, nil
}

func (s *service) History(ctx context.Context, userID int64) ([]models.Order, error) {
	return s.repo.ListByUser(ctx, userID)
}

// CancelPending removes a pending order line. Confirmed or paid rows are
// already bound to a gateway order and cannot be cancelled here.
func (s *service) CancelPending(ctx context.Context, userID, orderID int64) error {
	order, err := s.repo.FindByID(ctx, orderID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		return err
	}
	if order.UserID != userID {
		return pkgerrors.New(pkgerrors.CodeForbidden, "order belongs to another user")
	}

	affected, err := s.repo.DeletePending(ctx, orderID, userID)
	if err != nil {
		return err
	}
	if affected == 0 {
		return pkgerrors.New(pkgerrors.CodeStateConflict, "order is no longer pending")
	}
	return nil
}
