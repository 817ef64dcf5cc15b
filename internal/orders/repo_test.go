package orders

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/milanbhagat/vastra-backend/pkg/db/models"
	"github.com/milanbhagat/vastra-backend/pkg/enums"
	pkgerrors "github.com/milanbhagat/vastra-backend/pkg/errors"
)

func setupOrdersTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{})
	require.NoError(t, err)

	orders := `
CREATE TABLE IF NOT EXISTS orders (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  user_id INTEGER NOT NULL,
  product_id INTEGER NOT NULL,
  quantity INTEGER NOT NULL,
  total_price NUMERIC NOT NULL,
  status TEXT NOT NULL DEFAULT 'PEND',
  gateway_order_id TEXT,
  seen INTEGER NOT NULL DEFAULT 0,
  created_at DATETIME,
  updated_at DATETIME
);`
	products := `
CREATE TABLE IF NOT EXISTS products (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  unique_id TEXT NOT NULL,
  name TEXT NOT NULL,
  description TEXT,
  price NUMERIC NOT NULL,
  display_price NUMERIC NOT NULL,
  size TEXT NOT NULL,
  stock INTEGER NOT NULL DEFAULT 0,
  keywords TEXT,
  image_url TEXT,
  is_active INTEGER NOT NULL DEFAULT 1,
  created_at DATETIME,
  updated_at DATETIME
);`
	require.NoError(t, db.Exec(orders).Error)
	require.NoError(t, db.Exec(products).Error)
	return db
}

func newOrder(t *testing.T, db *gorm.DB, userID int64, status enums.OrderStatus, gatewayOrderID *string, seen bool) *models.Order {
	t.Helper()

	order := &models.Order{
		UserID:         userID,
		ProductID:      1,
		Quantity:       2,
		TotalPrice:     decimal.NewFromInt(998),
		Status:         status,
		GatewayOrderID: gatewayOrderID,
		Seen:           seen,
	}
	require.NoError(t, db.Create(order).Error)
	return order
}

func strPtr(s string) *string { return &s }

func TestStampConfirmedBindsOnlyFreshPendingRows(t *testing.T) {
	db := setupOrdersTestDB(t)
	repo := NewRepository(db)

	fresh1 := newOrder(t, db, 1, enums.OrderStatusPending, nil, false)
	fresh2 := newOrder(t, db, 1, enums.OrderStatusPending, nil, false)
	stale := newOrder(t, db, 1, enums.OrderStatusConfirmed, strPtr("order_old"), true)
	seen := newOrder(t, db, 1, enums.OrderStatusPending, nil, true)
	other := newOrder(t, db, 2, enums.OrderStatusPending, nil, false)

	affected, err := repo.StampConfirmed(context.Background(), 1, "order_new")
	require.NoError(t, err)
	assert.EqualValues(t, 2, affected)

	for _, id := range []int64{fresh1.ID, fresh2.ID} {
		var got models.Order
		require.NoError(t, db.First(&got, id).Error)
		assert.Equal(t, enums.OrderStatusConfirmed, got.Status)
		require.NotNil(t, got.GatewayOrderID)
		assert.Equal(t, "order_new", *got.GatewayOrderID)
		assert.True(t, got.Seen)
	}

	var untouched models.Order
	require.NoError(t, db.First(&untouched, stale.ID).Error)
	assert.Equal(t, "order_old", *untouched.GatewayOrderID)

	untouched = models.Order{}
	require.NoError(t, db.First(&untouched, seen.ID).Error)
	assert.Nil(t, untouched.GatewayOrderID)

	untouched = models.Order{}
	require.NoError(t, db.First(&untouched, other.ID).Error)
	assert.Nil(t, untouched.GatewayOrderID)
}

func TestMarkPaidSettlesConfirmedRowsOnce(t *testing.T) {
	db := setupOrdersTestDB(t)
	repo := NewRepository(db)

	newOrder(t, db, 1, enums.OrderStatusConfirmed, strPtr("order_abc"), true)
	newOrder(t, db, 1, enums.OrderStatusConfirmed, strPtr("order_abc"), true)

	affected, err := repo.MarkPaid(context.Background(), 1, "order_abc")
	require.NoError(t, err)
	assert.EqualValues(t, 2, affected)

	// A replayed webhook finds nothing left in CONF.
	affected, err = repo.MarkPaid(context.Background(), 1, "order_abc")
	require.NoError(t, err)
	assert.Zero(t, affected)
}

func TestFindUnpaidGatewayOrderID(t *testing.T) {
	db := setupOrdersTestDB(t)
	repo := NewRepository(db)

	_, err := repo.FindUnpaidGatewayOrderID(context.Background(), 1)
	require.ErrorIs(t, err, gorm.ErrRecordNotFound)

	newOrder(t, db, 1, enums.OrderStatusConfirmed, strPtr("order_unpaid"), true)
	newOrder(t, db, 1, enums.OrderStatusPaid, strPtr("order_settled"), true)

	gatewayOrderID, err := repo.FindUnpaidGatewayOrderID(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, "order_unpaid", gatewayOrderID)
}

func TestDeletePendingGuardsStatus(t *testing.T) {
	db := setupOrdersTestDB(t)
	repo := NewRepository(db)

	pending := newOrder(t, db, 1, enums.OrderStatusPending, nil, false)
	confirmed := newOrder(t, db, 1, enums.OrderStatusConfirmed, strPtr("order_abc"), true)

	affected, err := repo.DeletePending(context.Background(), pending.ID, 1)
	require.NoError(t, err)
	assert.EqualValues(t, 1, affected)

	affected, err = repo.DeletePending(context.Background(), confirmed.ID, 1)
	require.NoError(t, err)
	assert.Zero(t, affected)
}

func TestCancelPendingService(t *testing.T) {
	db := setupOrdersTestDB(t)
	repo := NewRepository(db)
	svc, err := NewService(repo)
	require.NoError(t, err)

	pending := newOrder(t, db, 1, enums.OrderStatusPending, nil, false)
	confirmed := newOrder(t, db, 1, enums.OrderStatusConfirmed, strPtr("order_abc"), true)

	require.NoError(t, svc.CancelPending(context.Background(), 1, pending.ID))

	err = svc.CancelPending(context.Background(), 1, confirmed.ID)
	require.Error(t, err)
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeStateConflict, typed.Code())

	err = svc.CancelPending(context.Background(), 2, confirmed.ID)
	require.Error(t, err)
	typed = pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeForbidden, typed.Code())

	err = svc.CancelPending(context.Background(), 1, 99999)
	require.Error(t, err)
	typed = pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeNotFound, typed.Code())
}
