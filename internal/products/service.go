package products

import (
	"context"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/milanbhagat/vastra-backend/pkg/db/models"
	pkgerrors "github.com/milanbhagat/vastra-backend/pkg/errors"
)

// Listing groups the size variants of one catalog entry.
type Listing struct {
	UniqueID     string          `json:"unique_id"`
	Name         string          `json:"name"`
	Description  *string         `json:"description,omitempty"`
	Price        decimal.Decimal `json:"price"`
	DisplayPrice decimal.Decimal `json:"display_price"`
	ImageURL     *string         `json:"image_url,omitempty"`
	Keywords     []string        `json:"keywords"`
	Variants     []Variant       `json:"variants"`
}

// Variant is one purchasable size of a listing.
type Variant struct {
	ProductID int64  `json:"product_id"`
	Size      string `json:"size"`
	InStock   bool   `json:"in_stock"`
}

// Service exposes catalog reads for the storefront.
type Service interface {
	ListListings(ctx context.Context) ([]Listing, error)
	GetProduct(ctx context.Context, id int64) (*models.Product, []Variant, error)
}

type service struct {
	repo Repository
}

// NewService builds the catalog service.
func NewService(repo Repository) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("products repository required")
	}
	return &service{repo: repo}, nil
}

func (s *service) ListListings(ctx context.Context) ([]Listing, error) {
	products, err := s.repo.ListActive(ctx)
	if err != nil {
		return nil, err
	}

	index := map[string]int{}
	listings := []Listing{}
	for _, product := range products {
		pos, ok := index[product.UniqueID]
		if !ok {
			listings = append(listings, Listing{
				UniqueID:     product.UniqueID,
				Name:         product.Name,
				Description:  product.Description,
				Price:        product.Price,
				DisplayPrice: product.DisplayPrice,
				ImageURL:     product.ImageURL,
				Keywords:     product.Keywords,
			})
			pos = len(listings) - 1
			index[product.UniqueID] = pos
		}
		listings[pos].Variants = append(listings[pos].Variants, Variant{
			ProductID: product.ID,
			Size:      product.Size,
			InStock:   product.HasUnlimitedStock() || product.Stock > 0,
		})
	}
	return listings, nil
}

func (s *service) GetProduct(ctx context.Context, id int64) (*models.Product, []Variant, error) {
	product, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
		}
		return nil, nil, err
	}

	siblings, err := s.repo.FindSiblings(ctx, product.UniqueID)
	if err != nil {
		return nil, nil, err
	}

	variants := make([]Variant, 0, len(siblings))
	for _, sibling := range siblings {
		variants = append(variants, Variant{
			ProductID: sibling.ID,
			Size:      sibling.Size,
			InStock:   sibling.HasUnlimitedStock() || sibling.Stock > 0,
		})
	}
	return product, variants, nil
}
