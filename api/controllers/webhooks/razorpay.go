package webhooks

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/milanbhagat/vastra-backend/api/responses"
	"github.com/milanbhagat/vastra-backend/api/validators"
	pkgerrors "github.com/milanbhagat/vastra-backend/pkg/errors"
	"github.com/milanbhagat/vastra-backend/pkg/logger"
	gateway "github.com/milanbhagat/vastra-backend/pkg/razorpay"
	"github.com/milanbhagat/vastra-backend/pkg/types"
)

type RazorpayWebhookService interface {
	HandlePayment(ctx context.Context, cb gateway.PaymentCallback) error
	HandleGiftCardPayment(ctx context.Context, cb gateway.PaymentCallback) error
}

// RazorpayPayment settles checkout orders from a payment callback.
func RazorpayPayment(svc RazorpayWebhookService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "webhook service unavailable"))
			return
		}

		var cb gateway.PaymentCallback
		if err := validators.DecodeJSONBody(r, &cb); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		if err := svc.HandlePayment(ctx, cb); err != nil {
			writeWebhookError(ctx, logg, w, err)
			return
		}

		responses.WriteSuccess(w, map[string]string{"status": "ok"})
	}
}

// RazorpayGiftCard mints a gift card from a gift-card purchase callback.
func RazorpayGiftCard(svc RazorpayWebhookService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "webhook service unavailable"))
			return
		}

		var cb gateway.PaymentCallback
		if err := validators.DecodeJSONBody(r, &cb); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		if err := svc.HandleGiftCardPayment(ctx, cb); err != nil {
			writeWebhookError(ctx, logg, w, err)
			return
		}

		responses.WriteSuccess(w, map[string]string{"status": "ok"})
	}
}

// writeWebhookError mirrors responses.WriteError except that signature
// rejections answer 400. Razorpay retries 401s with the same payload forever,
// a 400 tells it to stop.
func writeWebhookError(ctx context.Context, logg *logger.Logger, w http.ResponseWriter, err error) {
	typed := pkgerrors.As(err)
	if typed != nil && typed.Code() == pkgerrors.CodeUnauthorized {
		if logg != nil {
			logg.Warn(ctx, "webhook rejected: "+typed.Message())
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		payload := types.ErrorEnvelope{Error: types.APIError{
			Code:    string(typed.Code()),
			Message: typed.Message(),
		}}
		_ = json.NewEncoder(w).Encode(payload)
		return
	}
	responses.WriteError(ctx, logg, w, err)
}
