package controllers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/milanbhagat/vastra-backend/api/middleware"
	"github.com/milanbhagat/vastra-backend/pkg/enums"
	pkgerrors "github.com/milanbhagat/vastra-backend/pkg/errors"
	"github.com/milanbhagat/vastra-backend/pkg/razorpay"
)

type stubCheckoutService struct {
	order   *razorpay.Order
	created int
	err     error
}

func (s stubCheckoutService) PartialCheckout(ctx context.Context, userID int64, giftCode string, status enums.OrderStatus) (int, error) {
	return s.created, s.err
}

func (s stubCheckoutService) FullCheckout(ctx context.Context, userID int64, giftCode string) (*razorpay.Order, error) {
	return s.order, s.err
}

func (s stubCheckoutService) FullCheckoutGiftCard(ctx context.Context, userID int64, amount decimal.Decimal) (*razorpay.Order, error) {
	return s.order, s.err
}

func (s stubCheckoutService) ResumeGatewayOrder(ctx context.Context, userID int64, gatewayOrderID string) (*razorpay.Order, error) {
	return s.order, s.err
}

func finalizeRequest(body string) *http.Request {
	req := httptest.NewRequest(http.MethodPost, "/api/v1/checkout/finalize", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	return req.WithContext(middleware.WithUserID(req.Context(), 1))
}

func TestCheckoutFinalizeGateway(t *testing.T) {
	t.Parallel()

	order := &razorpay.Order{ID: "order_abc", Amount: 540000, Currency: "INR", Status: "created"}
	handler := CheckoutFinalize(stubCheckoutService{order: order}, nil, nil)

	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, finalizeRequest(`{"method":"gateway"}`))

	if resp.Code != http.StatusCreated {
		t.Fatalf("expected 201 got %d (%s)", resp.Code, resp.Body.String())
	}

	var envelope struct {
		Data gatewayOrderResponse `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if envelope.Data.GatewayOrderID != "order_abc" {
		t.Fatalf("unexpected gateway order id: %s", envelope.Data.GatewayOrderID)
	}
	if envelope.Data.Amount != 540000 {
		t.Fatalf("unexpected amount: %d", envelope.Data.Amount)
	}
}

func TestCheckoutFinalizeCash(t *testing.T) {
	t.Parallel()

	handler := CheckoutFinalize(stubCheckoutService{created: 3}, nil, nil)

	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, finalizeRequest(`{"method":"cash"}`))

	if resp.Code != http.StatusCreated {
		t.Fatalf("expected 201 got %d (%s)", resp.Code, resp.Body.String())
	}

	var envelope struct {
		Data struct {
			OrdersCreated int `json:"orders_created"`
		} `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if envelope.Data.OrdersCreated != 3 {
		t.Fatalf("expected 3 orders, got %d", envelope.Data.OrdersCreated)
	}
}

func TestCheckoutFinalizeEmptyCartCash(t *testing.T) {
	handler := CheckoutFinalize(stubCheckoutService{created: 0}, nil, nil)

	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, finalizeRequest(`{"method":"cash"}`))

	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", resp.Code)
	}
}

func TestCheckoutFinalizeRejectsUnknownMethod(t *testing.T) {
	handler := CheckoutFinalize(stubCheckoutService{}, nil, nil)

	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, finalizeRequest(`{"method":"barter"}`))

	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", resp.Code)
	}
}

func TestCheckoutFinalizeUsedGiftCard(t *testing.T) {
	handler := CheckoutFinalize(stubCheckoutService{
		err: pkgerrors.New(pkgerrors.CodeStateConflict, "gift card already used"),
	}, nil, nil)

	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, finalizeRequest(`{"method":"gateway","gift_code":"ABCDEFGHJKLMNPQR"}`))

	if resp.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422 got %d (%s)", resp.Code, resp.Body.String())
	}
}
