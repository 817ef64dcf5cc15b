package products

import (
	"context"
	"testing"

	"github.com/lib/pq"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/milanbhagat/vastra-backend/pkg/db/models"
)

func setupProductsTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{})
	require.NoError(t, err)

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
	require.NoError(t, db.Exec(products).Error)
	return db
}

func newVariant(t *testing.T, db *gorm.DB, uniqueID, size string, stock int, active bool) *models.Product {
	t.Helper()

	product := &models.Product{
		UniqueID:     uniqueID,
		Name:         "Linen Saree",
		Price:        decimal.NewFromInt(2999),
		DisplayPrice: decimal.NewFromInt(3499),
		Size:         size,
		Stock:        stock,
		Keywords:     pq.StringArray{"saree", "linen"},
		IsActive:     active,
	}
	require.NoError(t, db.Create(product).Error)
	if !active {
		// The model tags is_active with default:true, so GORM drops a
		// zero-value false from the INSERT; persist it explicitly.
		require.NoError(t, db.Model(product).Update("is_active", false).Error)
	}
	return product
}

func TestListActiveSkipsInactiveAndSoldOut(t *testing.T) {
	db := setupProductsTestDB(t)
	repo := NewRepository(db)

	newVariant(t, db, "saree-linen", "S", 3, true)
	newVariant(t, db, "saree-linen", "M", 0, true)
	newVariant(t, db, "saree-linen", "L", models.StockUnlimited, true)
	newVariant(t, db, "saree-silk", "M", 5, false)

	products, err := repo.ListActive(context.Background())
	require.NoError(t, err)
	require.Len(t, products, 2)
	assert.Equal(t, "S", products[0].Size)
	assert.Equal(t, "L", products[1].Size)
}

func TestFindSiblingsReturnsAllSizes(t *testing.T) {
	db := setupProductsTestDB(t)
	repo := NewRepository(db)

	newVariant(t, db, "saree-linen", "S", 3, true)
	newVariant(t, db, "saree-linen", "M", 0, true)
	newVariant(t, db, "saree-silk", "M", 5, true)

	siblings, err := repo.FindSiblings(context.Background(), "saree-linen")
	require.NoError(t, err)
	require.Len(t, siblings, 2)
}

func TestListListingsGroupsByUniqueID(t *testing.T) {
	db := setupProductsTestDB(t)
	repo := NewRepository(db)
	svc, err := NewService(repo)
	require.NoError(t, err)

	newVariant(t, db, "saree-linen", "S", 3, true)
	newVariant(t, db, "saree-linen", "L", models.StockUnlimited, true)
	newVariant(t, db, "saree-silk", "M", 5, true)

	listings, err := svc.ListListings(context.Background())
	require.NoError(t, err)
	require.Len(t, listings, 2)

	assert.Equal(t, "saree-linen", listings[0].UniqueID)
	require.Len(t, listings[0].Variants, 2)
	assert.True(t, listings[0].Variants[1].InStock)
	require.Len(t, listings[1].Variants, 1)
}

func TestGetProductReturnsSiblingVariants(t *testing.T) {
	db := setupProductsTestDB(t)
	repo := NewRepository(db)
	svc, err := NewService(repo)
	require.NoError(t, err)

	small := newVariant(t, db, "saree-linen", "S", 3, true)
	newVariant(t, db, "saree-linen", "M", 0, true)

	product, variants, err := svc.GetProduct(context.Background(), small.ID)
	require.NoError(t, err)
	assert.Equal(t, small.ID, product.ID)
	require.Len(t, variants, 2)
	assert.True(t, variants[0].InStock)
	assert.False(t, variants[1].InStock)
}
