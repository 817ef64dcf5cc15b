package giftcards

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/milanbhagat/vastra-backend/pkg/db"
	"github.com/milanbhagat/vastra-backend/pkg/db/models"
	pkgerrors "github.com/milanbhagat/vastra-backend/pkg/errors"
)

const (
	codeLength = 16
	// Ambiguous characters (0/O, 1/I) are excluded so codes survive being
	// read aloud or retyped.
	codeAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"

	maxIssueAttempts = 5
)

// Service issues and redeems single-use gift cards.
type Service interface {
	Issue(ctx context.Context, userID int64, amount decimal.Decimal) (*models.GiftCard, error)
	Lookup(ctx context.Context, code string) (*models.GiftCard, error)
	ListByUser(ctx context.Context, userID int64) ([]models.GiftCard, error)
	Apply(ctx context.Context, tx *gorm.DB, cardID int64) error
}

type service struct {
	repo Repository
}

// NewService builds the gift card service.
func NewService(repo Repository) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("gift card repository required")
	}
	return &service{repo: repo}, nil
}

// Issue mints a fresh card. Code collisions are retried a few times before
// giving up.
func (s *service) Issue(ctx context.Context, userID int64, amount decimal.Decimal) (*models.GiftCard, error) {
	if amount.LessThanOrEqual(decimal.Zero) {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "gift card amount must be positive")
	}

	var lastErr error
	for attempt := 0; attempt < maxIssueAttempts; attempt++ {
		code, err := generateCode()
		if err != nil {
			return nil, err
		}
		card, err := s.repo.Create(ctx, &models.GiftCard{
			UserID: userID,
			Code:   code,
			Price:  amount,
		})
		if err == nil {
			return card, nil
		}
		if !db.IsUniqueViolation(err, "") {
			return nil, err
		}
		lastErr = err
	}
	return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, lastErr, "exhausted gift card code attempts")
}

func (s *service) Lookup(ctx context.Context, code string) (*models.GiftCard, error) {
	card, err := s.repo.FindByCode(ctx, code)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "gift card not found")
		}
		return nil, err
	}
	return card, nil
}

func (s *service) ListByUser(ctx context.Context, userID int64) ([]models.GiftCard, error) {
	return s.repo.ListByUser(ctx, userID)
}

// Apply consumes the card inside the caller's transaction. Losing the
// conditional update means another checkout already spent it.
func (s *service) Apply(ctx context.Context, tx *gorm.DB, cardID int64) error {
	affected, err := s.repo.WithTx(tx).MarkUsed(ctx, cardID, time.Now().UTC())
	if err != nil {
		return err
	}
	if affected == 0 {
		return pkgerrors.New(pkgerrors.CodeStateConflict, "gift card already used")
	}
	return nil
}

func generateCode() (string, error) {
	buf := make([]byte, codeLength)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generating gift card code: %w", err)
	}
	for i, b := range buf {
		buf[i] = codeAlphabet[int(b)%len(codeAlphabet)]
	}
	return string(buf), nil
}
