package controllers

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/milanbhagat/vastra-backend/api/responses"
	productsvc "github.com/milanbhagat/vastra-backend/internal/products"
	"github.com/milanbhagat/vastra-backend/pkg/db/models"
	pkgerrors "github.com/milanbhagat/vastra-backend/pkg/errors"
	"github.com/milanbhagat/vastra-backend/pkg/logger"
)

// ProductList returns the in-stock catalog grouped into listings.
func ProductList(svc productsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "product service unavailable"))
			return
		}

		listings, err := svc.ListListings(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, map[string]any{"products": listings})
	}
}

// ProductDetail returns one variant together with its sibling sizes.
func ProductDetail(svc productsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "product service unavailable"))
			return
		}

		id, err := pathID(r, "productId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		product, variants, err := svc.GetProduct(r.Context(), id)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, newProductResponse(product, variants))
	}
}

// ProductSizes returns only the sibling size variants of one variant.
func ProductSizes(svc productsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "product service unavailable"))
			return
		}

		id, err := pathID(r, "productId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		_, variants, err := svc.GetProduct(r.Context(), id)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, map[string]any{"sizes": variants})
	}
}

type productResponse struct {
	ProductID    int64                `json:"product_id"`
	UniqueID     string               `json:"unique_id"`
	Name         string               `json:"name"`
	Description  *string              `json:"description,omitempty"`
	Price        decimal.Decimal      `json:"price"`
	DisplayPrice decimal.Decimal      `json:"display_price"`
	Size         string               `json:"size"`
	InStock      bool                 `json:"in_stock"`
	ImageURL     *string              `json:"image_url,omitempty"`
	Keywords     []string             `json:"keywords"`
	Sizes        []productsvc.Variant `json:"sizes"`
}

func newProductResponse(product *models.Product, variants []productsvc.Variant) productResponse {
	if product == nil {
		return productResponse{}
	}
	return productResponse{
		ProductID:    product.ID,
		UniqueID:     product.UniqueID,
		Name:         product.Name,
		Description:  product.Description,
		Price:        product.Price,
		DisplayPrice: product.DisplayPrice,
		Size:         product.Size,
		InStock:      product.Stock != 0,
		ImageURL:     product.ImageURL,
		Keywords:     product.Keywords,
		Sizes:        variants,
	}
}

func pathID(r *http.Request, param string) (int64, error) {
	raw := chi.URLParam(r, param)
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, pkgerrors.New(pkgerrors.CodeValidation, "invalid "+param)
	}
	return id, nil
}
