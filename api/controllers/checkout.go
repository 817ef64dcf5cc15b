package controllers

import (
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/milanbhagat/vastra-backend/api/middleware"
	"github.com/milanbhagat/vastra-backend/api/responses"
	"github.com/milanbhagat/vastra-backend/api/validators"
	checkoutsvc "github.com/milanbhagat/vastra-backend/internal/checkout"
	"github.com/milanbhagat/vastra-backend/pkg/enums"
	pkgerrors "github.com/milanbhagat/vastra-backend/pkg/errors"
	"github.com/milanbhagat/vastra-backend/pkg/logger"
	"github.com/milanbhagat/vastra-backend/pkg/metrics"
	"github.com/milanbhagat/vastra-backend/pkg/razorpay"
)

type checkoutRequest struct {
	Method   string `json:"method" validate:"required,oneof=gateway cash"`
	GiftCode string `json:"gift_code,omitempty" validate:"omitempty,len=16"`
}

type gatewayOrderResponse struct {
	GatewayOrderID string `json:"gateway_order_id"`
	Amount         int64  `json:"amount"`
	Currency       string `json:"currency"`
	Status         string `json:"status"`
}

// CheckoutFinalize snapshots the caller's cart into orders. The gateway
// method answers with a Razorpay order the client pays against; cash settles
// immediately as COD rows.
func CheckoutFinalize(svc checkoutsvc.Service, payMetrics *metrics.PaymentMetrics, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "checkout service unavailable"))
			return
		}

		var payload checkoutRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		method, err := enums.ParsePaymentMethod(payload.Method)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid payment method"))
			return
		}

		userID := middleware.UserIDFromContext(r.Context())
		start := time.Now()

		switch method {
		case enums.PaymentMethodGateway:
			order, err := svc.FullCheckout(r.Context(), userID, payload.GiftCode)
			if err != nil {
				payMetrics.IncCheckoutFailure(string(method), failureReason(err))
				responses.WriteError(r.Context(), logg, w, err)
				return
			}
			payMetrics.ObserveCheckoutDuration(string(method), time.Since(start))
			responses.WriteSuccessStatus(w, http.StatusCreated, newGatewayOrderResponse(order))
		case enums.PaymentMethodCash:
			created, err := svc.PartialCheckout(r.Context(), userID, payload.GiftCode, enums.OrderStatusCOD)
			if err != nil {
				payMetrics.IncCheckoutFailure(string(method), failureReason(err))
				responses.WriteError(r.Context(), logg, w, err)
				return
			}
			if created == 0 {
				payMetrics.IncCheckoutFailure(string(method), "empty_cart")
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "nothing to checkout"))
				return
			}
			payMetrics.ObserveCheckoutDuration(string(method), time.Since(start))
			responses.WriteSuccessStatus(w, http.StatusCreated, map[string]any{"orders_created": created})
		}
	}
}

func failureReason(err error) string {
	if typed := pkgerrors.As(err); typed != nil {
		return string(typed.Code())
	}
	return "unknown"
}

// CheckoutPayNow re-fetches an unpaid gateway order so the client can retry
// payment without creating a duplicate.
func CheckoutPayNow(svc checkoutsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "checkout service unavailable"))
			return
		}

		gatewayOrderID := pathParam(r, "gatewayOrderId")
		if gatewayOrderID == "" {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "invalid gatewayOrderId"))
			return
		}

		userID := middleware.UserIDFromContext(r.Context())
		order, err := svc.ResumeGatewayOrder(r.Context(), userID, gatewayOrderID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, newGatewayOrderResponse(order))
	}
}

func pathParam(r *http.Request, param string) string {
	return strings.TrimSpace(chi.URLParam(r, param))
}

func newGatewayOrderResponse(order *razorpay.Order) gatewayOrderResponse {
	if order == nil {
		return gatewayOrderResponse{}
	}
	return gatewayOrderResponse{
		GatewayOrderID: order.ID,
		Amount:         order.Amount,
		Currency:       order.Currency,
		Status:         order.Status,
	}
}
