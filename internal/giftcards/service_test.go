package giftcards

import (
	"context"
	"strings"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/milanbhagat/vastra-backend/pkg/db/models"
	pkgerrors "github.com/milanbhagat/vastra-backend/pkg/errors"
)

func setupGiftCardTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{})
	require.NoError(t, err)

	giftCards := `
CREATE TABLE IF NOT EXISTS gift_cards (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  user_id INTEGER NOT NULL,
  code TEXT NOT NULL UNIQUE,
  price NUMERIC NOT NULL,
  used INTEGER NOT NULL DEFAULT 0,
  used_at DATETIME,
  created_at DATETIME,
  updated_at DATETIME
);`
	require.NoError(t, db.Exec(giftCards).Error)
	return db
}

func newGiftCardService(t *testing.T, db *gorm.DB) Service {
	t.Helper()

	svc, err := NewService(NewRepository(db))
	require.NoError(t, err)
	return svc
}

func TestIssueMintsCardWithWellFormedCode(t *testing.T) {
	db := setupGiftCardTestDB(t)
	svc := newGiftCardService(t, db)

	card, err := svc.Issue(context.Background(), 7, decimal.NewFromInt(500))
	require.NoError(t, err)
	assert.Len(t, card.Code, 16)
	assert.False(t, card.Used)
	for _, r := range card.Code {
		assert.True(t, strings.ContainsRune(codeAlphabet, r), "unexpected rune %q", r)
	}
}

func TestIssueRejectsNonPositiveAmount(t *testing.T) {
	db := setupGiftCardTestDB(t)
	svc := newGiftCardService(t, db)

	_, err := svc.Issue(context.Background(), 7, decimal.Zero)
	require.Error(t, err)
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeValidation, typed.Code())
}

func TestLookupUnknownCodeReturnsNotFound(t *testing.T) {
	db := setupGiftCardTestDB(t)
	svc := newGiftCardService(t, db)

	_, err := svc.Lookup(context.Background(), "NOPENOPENOPENOPE")
	require.Error(t, err)
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeNotFound, typed.Code())
}

func TestApplyConsumesCardExactlyOnce(t *testing.T) {
	db := setupGiftCardTestDB(t)
	svc := newGiftCardService(t, db)

	card, err := svc.Issue(context.Background(), 7, decimal.NewFromInt(500))
	require.NoError(t, err)

	require.NoError(t, svc.Apply(context.Background(), db, card.ID))

	var got models.GiftCard
	require.NoError(t, db.First(&got, card.ID).Error)
	assert.True(t, got.Used)
	assert.NotNil(t, got.UsedAt)

	err = svc.Apply(context.Background(), db, card.ID)
	require.Error(t, err)
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeStateConflict, typed.Code())
}
