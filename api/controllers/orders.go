package controllers

import (
	"net/http"
	"time"

	"github.com/shopspring/decimal"

	"github.com/milanbhagat/vastra-backend/api/middleware"
	"github.com/milanbhagat/vastra-backend/api/responses"
	ordersvc "github.com/milanbhagat/vastra-backend/internal/orders"
	"github.com/milanbhagat/vastra-backend/pkg/db/models"
	pkgerrors "github.com/milanbhagat/vastra-backend/pkg/errors"
	"github.com/milanbhagat/vastra-backend/pkg/logger"
)

type orderResponse struct {
	OrderID        int64           `json:"order_id"`
	ProductID      int64           `json:"product_id"`
	ProductName    string          `json:"product_name,omitempty"`
	Size           string          `json:"size,omitempty"`
	Quantity       int             `json:"quantity"`
	TotalPrice     decimal.Decimal `json:"total_price"`
	Status         string          `json:"status"`
	GatewayOrderID *string         `json:"gateway_order_id,omitempty"`
	CreatedAt      time.Time       `json:"created_at"`
}

// OrderHistory lists the caller's orders, newest first.
func OrderHistory(svc ordersvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "order service unavailable"))
			return
		}

		userID := middleware.UserIDFromContext(r.Context())
		rows, err := svc.History(r.Context(), userID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		orders := make([]orderResponse, 0, len(rows))
		for _, row := range rows {
			orders = append(orders, newOrderResponse(row))
		}
		responses.WriteSuccess(w, map[string]any{"orders": orders})
	}
}

// OrderCancel deletes a still-pending order and nothing else.
func OrderCancel(svc ordersvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "order service unavailable"))
			return
		}

		orderID, err := pathID(r, "orderId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		userID := middleware.UserIDFromContext(r.Context())
		if err := svc.CancelPending(r.Context(), userID, orderID); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, map[string]string{"status": "cancelled"})
	}
}

func newOrderResponse(row models.Order) orderResponse {
	resp := orderResponse{
		OrderID:        row.ID,
		ProductID:      row.ProductID,
		Quantity:       row.Quantity,
		TotalPrice:     row.TotalPrice,
		Status:         string(row.Status),
		GatewayOrderID: row.GatewayOrderID,
		CreatedAt:      row.CreatedAt,
	}
	if row.Product != nil {
		resp.ProductName = row.Product.Name
		resp.Size = row.Product.Size
	}
	return resp
}
