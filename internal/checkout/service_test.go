package checkout

import (
	"context"
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/milanbhagat/vastra-backend/internal/cart"
	"github.com/milanbhagat/vastra-backend/internal/giftcards"
	"github.com/milanbhagat/vastra-backend/internal/orders"
	"github.com/milanbhagat/vastra-backend/internal/users"
	"github.com/milanbhagat/vastra-backend/pkg/db/models"
	"github.com/milanbhagat/vastra-backend/pkg/enums"
	pkgerrors "github.com/milanbhagat/vastra-backend/pkg/errors"
	"github.com/milanbhagat/vastra-backend/pkg/logger"
	"github.com/milanbhagat/vastra-backend/pkg/razorpay"
	"github.com/rs/zerolog"
)

type testTxRunner struct {
	db *gorm.DB
}

func (r *testTxRunner) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	tx := r.db.WithContext(ctx).Begin()
	if tx.Error != nil {
		return tx.Error
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	return tx.Commit().Error
}

type stubGateway struct {
	created     []razorpay.OrderParams
	createOrder func(ctx context.Context, params razorpay.OrderParams) (*razorpay.Order, error)
	fetchOrder  func(ctx context.Context, orderID string) (*razorpay.Order, error)
}

func (g *stubGateway) CreateOrder(ctx context.Context, params razorpay.OrderParams) (*razorpay.Order, error) {
	g.created = append(g.created, params)
	if g.createOrder != nil {
		return g.createOrder(ctx, params)
	}
	return &razorpay.Order{
		ID:       fmt.Sprintf("order_test%d", len(g.created)),
		Amount:   params.Amount,
		Currency: params.Currency,
		Status:   "created",
		Notes:    params.Notes,
	}, nil
}

func (g *stubGateway) FetchOrder(ctx context.Context, orderID string) (*razorpay.Order, error) {
	if g.fetchOrder != nil {
		return g.fetchOrder(ctx, orderID)
	}
	return &razorpay.Order{ID: orderID, Status: "created"}, nil
}

func setupCheckoutTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file:checkout_"+uuid.NewString()+"?mode=memory&cache=shared"), &gorm.Config{})
	require.NoError(t, err)

	ddl := []string{
		`CREATE TABLE IF NOT EXISTS users (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  email TEXT NOT NULL UNIQUE,
  password_hash TEXT NOT NULL,
  name TEXT NOT NULL,
  phone TEXT,
  role TEXT NOT NULL DEFAULT 'customer',
  is_active INTEGER NOT NULL DEFAULT 1,
  last_login_at DATETIME,
  created_at DATETIME,
  updated_at DATETIME
);`,
		`CREATE TABLE IF NOT EXISTS products (
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
);`,
		`CREATE TABLE IF NOT EXISTS cart_items (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  user_id INTEGER NOT NULL,
  product_id INTEGER NOT NULL,
  quantity INTEGER NOT NULL,
  created_at DATETIME,
  updated_at DATETIME,
  UNIQUE (user_id, product_id)
);`,
		`CREATE TABLE IF NOT EXISTS orders (
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
);`,
		`CREATE TABLE IF NOT EXISTS gift_cards (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  user_id INTEGER NOT NULL,
  code TEXT NOT NULL UNIQUE,
  price NUMERIC NOT NULL,
  used INTEGER NOT NULL DEFAULT 0,
  used_at DATETIME,
  created_at DATETIME,
  updated_at DATETIME
);`,
	}
	for _, stmt := range ddl {
		require.NoError(t, db.Exec(stmt).Error)
	}
	return db
}

type checkoutFixture struct {
	db      *gorm.DB
	svc     Service
	gateway *stubGateway
	gifts   giftcards.Service
}

func newCheckoutFixture(t *testing.T) *checkoutFixture {
	t.Helper()

	db := setupCheckoutTestDB(t)
	gateway := &stubGateway{}
	gifts, err := giftcards.NewService(giftcards.NewRepository(db))
	require.NoError(t, err)

	logg := logger.New(logger.Options{ServiceName: "test", Level: zerolog.Disabled})

	svc, err := NewService(
		&testTxRunner{db: db},
		cart.NewRepository(db),
		orders.NewRepository(db),
		gifts,
		users.NewRepository(db),
		gateway,
		logg,
		"INR",
	)
	require.NoError(t, err)
	return &checkoutFixture{db: db, svc: svc, gateway: gateway, gifts: gifts}
}

func (f *checkoutFixture) newUser(t *testing.T, email string) *models.User {
	t.Helper()

	user := &models.User{
		Email:        email,
		PasswordHash: "x",
		Name:         "Asha Patel",
		Role:         enums.UserRoleCustomer,
		IsActive:     true,
	}
	require.NoError(t, f.db.Create(user).Error)
	return user
}

func (f *checkoutFixture) newProduct(t *testing.T, name string, price int64, stock int) *models.Product {
	t.Helper()

	product := &models.Product{
		UniqueID:     "fixture-" + name,
		Name:         name,
		Price:        decimal.NewFromInt(price),
		DisplayPrice: decimal.NewFromInt(price),
		Size:         "M",
		Stock:        stock,
		Keywords:     pq.StringArray{"fixture"},
		IsActive:     true,
	}
	require.NoError(t, f.db.Create(product).Error)
	return product
}

func (f *checkoutFixture) addCartLine(t *testing.T, userID, productID int64, qty int) {
	t.Helper()

	require.NoError(t, f.db.Create(&models.CartItem{
		UserID:    userID,
		ProductID: productID,
		Quantity:  qty,
	}).Error)
}

func TestPartialCheckoutSnapshotsCartAndClearsIt(t *testing.T) {
	f := newCheckoutFixture(t)
	user := f.newUser(t, "asha@example.com")
	kurta := f.newProduct(t, "Kurta", 1200, 10)
	saree := f.newProduct(t, "Saree", 3000, 10)
	f.addCartLine(t, user.ID, kurta.ID, 2)
	f.addCartLine(t, user.ID, saree.ID, 1)

	created, err := f.svc.PartialCheckout(context.Background(), user.ID, "", enums.OrderStatusPending)
	require.NoError(t, err)
	assert.Equal(t, 2, created)

	var rows []models.Order
	require.NoError(t, f.db.Order("id ASC").Find(&rows).Error)
	require.Len(t, rows, 2)
	assert.True(t, rows[0].TotalPrice.Equal(decimal.NewFromInt(2400)))
	assert.True(t, rows[1].TotalPrice.Equal(decimal.NewFromInt(3000)))
	assert.Equal(t, enums.OrderStatusPending, rows[0].Status)
	assert.False(t, rows[0].Seen)
	assert.Nil(t, rows[0].GatewayOrderID)

	var cartCount int64
	require.NoError(t, f.db.Model(&models.CartItem{}).Count(&cartCount).Error)
	assert.Zero(t, cartCount)
}

func TestPartialCheckoutAppliesGiftCardWithFloor(t *testing.T) {
	f := newCheckoutFixture(t)
	user := f.newUser(t, "asha@example.com")
	cheap := f.newProduct(t, "Dupatta", 100, 10)
	f.addCartLine(t, user.ID, cheap.ID, 1)

	card, err := f.gifts.Issue(context.Background(), user.ID, decimal.NewFromInt(500))
	require.NoError(t, err)

	created, err := f.svc.PartialCheckout(context.Background(), user.ID, card.Code, enums.OrderStatusPending)
	require.NoError(t, err)
	assert.Equal(t, 1, created)

	var row models.Order
	require.NoError(t, f.db.First(&row).Error)
	assert.True(t, row.TotalPrice.Equal(decimal.NewFromInt(1)), "total = %s", row.TotalPrice)

	var got models.GiftCard
	require.NoError(t, f.db.First(&got, card.ID).Error)
	assert.True(t, got.Used)
}

func TestPartialCheckoutIgnoresUnknownGiftCode(t *testing.T) {
	f := newCheckoutFixture(t)
	user := f.newUser(t, "asha@example.com")
	kurta := f.newProduct(t, "Kurta", 1200, 10)
	f.addCartLine(t, user.ID, kurta.ID, 1)

	created, err := f.svc.PartialCheckout(context.Background(), user.ID, "NOSUCHCODE123456", enums.OrderStatusPending)
	require.NoError(t, err)
	assert.Equal(t, 1, created)

	var row models.Order
	require.NoError(t, f.db.First(&row).Error)
	assert.True(t, row.TotalPrice.Equal(decimal.NewFromInt(1200)))
}

func TestPartialCheckoutRejectsUsedGiftCard(t *testing.T) {
	f := newCheckoutFixture(t)
	user := f.newUser(t, "asha@example.com")
	kurta := f.newProduct(t, "Kurta", 1200, 10)
	f.addCartLine(t, user.ID, kurta.ID, 1)

	card, err := f.gifts.Issue(context.Background(), user.ID, decimal.NewFromInt(500))
	require.NoError(t, err)
	require.NoError(t, f.gifts.Apply(context.Background(), f.db, card.ID))

	_, err = f.svc.PartialCheckout(context.Background(), user.ID, card.Code, enums.OrderStatusPending)
	require.Error(t, err)
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeStateConflict, typed.Code())

	// The transaction rolled back, so the cart survives.
	var cartCount int64
	require.NoError(t, f.db.Model(&models.CartItem{}).Count(&cartCount).Error)
	assert.EqualValues(t, 1, cartCount)
}

func TestFullCheckoutRegistersGatewayOrderAndStampsRows(t *testing.T) {
	f := newCheckoutFixture(t)
	user := f.newUser(t, "asha@example.com")
	kurta := f.newProduct(t, "Kurta", 1200, 10)
	saree := f.newProduct(t, "Saree", 3000, 10)
	f.addCartLine(t, user.ID, kurta.ID, 2)
	f.addCartLine(t, user.ID, saree.ID, 1)

	order, err := f.svc.FullCheckout(context.Background(), user.ID, "")
	require.NoError(t, err)

	// 5400 rupees in paise.
	assert.EqualValues(t, 540000, order.Amount)
	assert.Equal(t, "INR", order.Currency)
	require.Len(t, f.gateway.created, 1)
	params := f.gateway.created[0]
	require.Len(t, params.Notes.Products, 2)
	assert.Equal(t, "Kurta", params.Notes.Products[0].Name)
	assert.Equal(t, "2400.00", params.Notes.Products[0].Price)
	assert.Equal(t, user.ID, params.Notes.User.ID)
	assert.False(t, params.Notes.GiftCard)

	var rows []models.Order
	require.NoError(t, f.db.Find(&rows).Error)
	require.Len(t, rows, 2)
	for _, row := range rows {
		assert.Equal(t, enums.OrderStatusConfirmed, row.Status)
		require.NotNil(t, row.GatewayOrderID)
		assert.Equal(t, order.ID, *row.GatewayOrderID)
		assert.True(t, row.Seen)
	}
}

func TestFullCheckoutEmptyCartWithoutUnpaidOrderFails(t *testing.T) {
	f := newCheckoutFixture(t)
	user := f.newUser(t, "asha@example.com")

	_, err := f.svc.FullCheckout(context.Background(), user.ID, "")
	require.Error(t, err)
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeValidation, typed.Code())
	assert.Empty(t, f.gateway.created)
}

func TestFullCheckoutEmptyCartResumesUnpaidGatewayOrder(t *testing.T) {
	f := newCheckoutFixture(t)
	user := f.newUser(t, "asha@example.com")
	kurta := f.newProduct(t, "Kurta", 1200, 10)
	f.addCartLine(t, user.ID, kurta.ID, 1)

	first, err := f.svc.FullCheckout(context.Background(), user.ID, "")
	require.NoError(t, err)

	// Cart is now empty; a second finalize resumes the same gateway order.
	second, err := f.svc.FullCheckout(context.Background(), user.ID, "")
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)
	require.Len(t, f.gateway.created, 1)
}

func TestFullCheckoutEchoMismatchFailsLoudly(t *testing.T) {
	f := newCheckoutFixture(t)
	user := f.newUser(t, "asha@example.com")
	kurta := f.newProduct(t, "Kurta", 1200, 10)
	f.addCartLine(t, user.ID, kurta.ID, 1)

	f.gateway.createOrder = func(ctx context.Context, params razorpay.OrderParams) (*razorpay.Order, error) {
		return &razorpay.Order{
			ID:       "order_bad",
			Amount:   params.Amount + 1,
			Currency: params.Currency,
			Status:   "created",
		}, nil
	}

	_, err := f.svc.FullCheckout(context.Background(), user.ID, "")
	require.Error(t, err)
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeInternal, typed.Code())
}

func TestFullCheckoutTamperedNotesEchoFailsLoudly(t *testing.T) {
	f := newCheckoutFixture(t)
	user := f.newUser(t, "asha@example.com")
	kurta := f.newProduct(t, "Kurta", 1200, 10)
	f.addCartLine(t, user.ID, kurta.ID, 1)

	// Amount and currency echo fine but the purchaser in the notes does not.
	// The webhook reconciler trusts the notes, so this must fail the checkout.
	f.gateway.createOrder = func(ctx context.Context, params razorpay.OrderParams) (*razorpay.Order, error) {
		notes := params.Notes
		notes.User.ID = 999
		return &razorpay.Order{
			ID:       "order_bad",
			Amount:   params.Amount,
			Currency: params.Currency,
			Status:   "created",
			Notes:    notes,
		}, nil
	}

	_, err := f.svc.FullCheckout(context.Background(), user.ID, "")
	require.Error(t, err)
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeInternal, typed.Code())
}

func TestFullCheckoutGiftCard(t *testing.T) {
	f := newCheckoutFixture(t)
	user := f.newUser(t, "asha@example.com")

	order, err := f.svc.FullCheckoutGiftCard(context.Background(), user.ID, decimal.NewFromInt(750))
	require.NoError(t, err)
	assert.EqualValues(t, 75000, order.Amount)
	require.Len(t, f.gateway.created, 1)
	assert.True(t, f.gateway.created[0].Notes.GiftCard)
	assert.Empty(t, f.gateway.created[0].Notes.Products)

	var orderCount int64
	require.NoError(t, f.db.Model(&models.Order{}).Count(&orderCount).Error)
	assert.Zero(t, orderCount)
}

func TestCashCheckoutCreatesCODRows(t *testing.T) {
	f := newCheckoutFixture(t)
	user := f.newUser(t, "asha@example.com")
	kurta := f.newProduct(t, "Kurta", 1200, 10)
	f.addCartLine(t, user.ID, kurta.ID, 1)

	created, err := f.svc.PartialCheckout(context.Background(), user.ID, "", enums.OrderStatusCOD)
	require.NoError(t, err)
	assert.Equal(t, 1, created)

	var row models.Order
	require.NoError(t, f.db.First(&row).Error)
	assert.Equal(t, enums.OrderStatusCOD, row.Status)
	assert.Empty(t, f.gateway.created)
}
