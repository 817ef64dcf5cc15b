package controllers

import (
	"net/http"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/milanbhagat/vastra-backend/api/middleware"
	"github.com/milanbhagat/vastra-backend/api/responses"
	"github.com/milanbhagat/vastra-backend/api/validators"
	checkoutsvc "github.com/milanbhagat/vastra-backend/internal/checkout"
	giftsvc "github.com/milanbhagat/vastra-backend/internal/giftcards"
	"github.com/milanbhagat/vastra-backend/pkg/db/models"
	pkgerrors "github.com/milanbhagat/vastra-backend/pkg/errors"
	"github.com/milanbhagat/vastra-backend/pkg/logger"
)

type giftCardBuyRequest struct {
	Amount decimal.Decimal `json:"amount" validate:"required"`
}

type adminGiftCardRequest struct {
	UserID int64           `json:"user_id" validate:"required,gt=0"`
	Amount decimal.Decimal `json:"amount" validate:"required"`
}

type giftCardResponse struct {
	Code      string          `json:"code"`
	Price     decimal.Decimal `json:"price"`
	Used      bool            `json:"used"`
	UsedAt    *time.Time      `json:"used_at,omitempty"`
	CreatedAt time.Time       `json:"created_at"`
}

// GiftCardBuy opens a flat-amount gateway order for a gift card purchase.
// The card itself is minted by the gift-card webhook once payment lands.
func GiftCardBuy(svc checkoutsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "checkout service unavailable"))
			return
		}

		var payload giftCardBuyRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if !payload.Amount.IsPositive() {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "amount must be positive"))
			return
		}

		userID := middleware.UserIDFromContext(r.Context())
		order, err := svc.FullCheckoutGiftCard(r.Context(), userID, payload.Amount)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, newGatewayOrderResponse(order))
	}
}

// GiftCardShow looks a card up by its code.
func GiftCardShow(svc giftsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "gift card service unavailable"))
			return
		}

		code := strings.ToUpper(pathParam(r, "code"))
		if code == "" {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "invalid code"))
			return
		}

		card, err := svc.Lookup(r.Context(), code)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, newGiftCardResponse(card))
	}
}

// GiftCardList returns the caller's cards.
func GiftCardList(svc giftsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "gift card service unavailable"))
			return
		}

		userID := middleware.UserIDFromContext(r.Context())
		cards, err := svc.ListByUser(r.Context(), userID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		out := make([]giftCardResponse, 0, len(cards))
		for _, card := range cards {
			out = append(out, newGiftCardResponse(&card))
		}
		responses.WriteSuccess(w, map[string]any{"gift_cards": out})
	}
}

// AdminGiftCardIssue mints a card for a user without a payment.
func AdminGiftCardIssue(svc giftsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "gift card service unavailable"))
			return
		}

		var payload adminGiftCardRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		card, err := svc.Issue(r.Context(), payload.UserID, payload.Amount)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, newGiftCardResponse(card))
	}
}

func newGiftCardResponse(card *models.GiftCard) giftCardResponse {
	if card == nil {
		return giftCardResponse{}
	}
	return giftCardResponse{
		Code:      card.Code,
		Price:     card.Price,
		Used:      card.Used,
		UsedAt:    card.UsedAt,
		CreatedAt: card.CreatedAt,
	}
}
