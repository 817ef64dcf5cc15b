package razorpay

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/milanbhagat/vastra-backend/internal/giftcards"
	"github.com/milanbhagat/vastra-backend/internal/orders"
	"github.com/milanbhagat/vastra-backend/pkg/db/models"
	pkgerrors "github.com/milanbhagat/vastra-backend/pkg/errors"
	"github.com/milanbhagat/vastra-backend/pkg/logger"
	"github.com/milanbhagat/vastra-backend/pkg/metrics"
	gateway "github.com/milanbhagat/vastra-backend/pkg/razorpay"
)

const (
	handlerPayment  = "payment"
	handlerGiftCard = "gift_card"

	outcomeSettled  = "settled"
	outcomeReplay   = "replay"
	outcomeRejected = "rejected"

	webhookIdempotencyTTL = 7 * 24 * time.Hour
)

type gatewayClient interface {
	FetchOrder(ctx context.Context, orderID string) (*gateway.Order, error)
	VerifyPaymentSignature(cb gateway.PaymentCallback) bool
}

type idempotencyStore interface {
	SetNX(ctx context.Context, key string, value any, ttl time.Duration) (bool, error)
	Del(ctx context.Context, keys ...string) error
	IdempotencyKey(scope, id string) string
}

// Service reconciles gateway payment callbacks with local order state.
type Service interface {
	HandlePayment(ctx context.Context, cb gateway.PaymentCallback) error
	HandleGiftCardPayment(ctx context.Context, cb gateway.PaymentCallback) error
}

type service struct {
	orders  orders.Repository
	gifts   giftcards.Service
	gateway gatewayClient
	idem    idempotencyStore
	logger  *logger.Logger
	metrics *metrics.PaymentMetrics
}

// NewService builds the webhook reconciler with the required dependencies.
func NewService(
	ordersRepo orders.Repository,
	gifts giftcards.Service,
	gatewayClient gatewayClient,
	idem idempotencyStore,
	logg *logger.Logger,
	payMetrics *metrics.PaymentMetrics,
) (Service, error) {
	if ordersRepo == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	if gifts == nil {
		return nil, fmt.Errorf("gift card service required")
	}
	if gatewayClient == nil {
		return nil, fmt.Errorf("gateway client required")
	}
	if idem == nil {
		return nil, fmt.Errorf("idempotency store required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &service{
		orders:  ordersRepo,
		gifts:   gifts,
		gateway: gatewayClient,
		idem:    idem,
		logger:  logg,
		metrics: payMetrics,
	}, nil
}

// HandlePayment settles the confirmed orders tied to a gateway order after
// the payment signature checks out. Replays are acknowledged without effect.
func (s *service) HandlePayment(ctx context.Context, cb gateway.PaymentCallback) error {
	ctx = s.logger.WithGatewayOrderID(ctx, cb.RazorpayOrderID)

	if !s.gateway.VerifyPaymentSignature(cb) {
		s.metrics.IncWebhookOutcome(handlerPayment, outcomeRejected)
		err := pkgerrors.New(pkgerrors.CodeUnauthorized, "payment signature verification failed")
		s.logger.Warn(ctx, "rejected payment callback with bad signature")
		return err
	}

	rows, err := s.orders.FindByGatewayOrderID(ctx, cb.RazorpayOrderID)
	if err != nil {
		return err
	}
	if len(rows) == 0 {
		s.metrics.IncWebhookOutcome(handlerPayment, outcomeRejected)
		return pkgerrors.New(pkgerrors.CodeNotFound, "no orders for gateway order")
	}
	userID := rows[0].UserID

	gatewayOrder, err := s.gateway.FetchOrder(ctx, cb.RazorpayOrderID)
	if err != nil {
		return err
	}
	if gatewayOrder.Notes.User.ID != userID {
		s.metrics.IncWebhookOutcome(handlerPayment, outcomeRejected)
		err := pkgerrors.New(pkgerrors.CodeUnauthorized, "gateway order owner mismatch")
		s.logger.Error(ctx, "payment callback owner does not match order rows", err)
		return err
	}

	affected, err := s.orders.MarkPaid(ctx, userID, cb.RazorpayOrderID)
	if err != nil {
		return err
	}
	if affected == 0 {
		s.metrics.IncWebhookOutcome(handlerPayment, outcomeReplay)
		s.logger.Info(ctx, "payment callback replayed, orders already settled")
		return nil
	}

	s.metrics.IncWebhookOutcome(handlerPayment, outcomeSettled)
	s.logger.Info(ctx, "orders settled from payment callback")
	return nil
}

// HandleGiftCardPayment mints a gift card worth the gateway order amount for
// the purchaser recorded in the order notes. A redis guard keyed on the
// payment id keeps replays from minting twice; the guard only stays set once
// the mint succeeds, so the gateway's redelivery can recover from a failure.
func (s *service) HandleGiftCardPayment(ctx context.Context, cb gateway.PaymentCallback) error {
	ctx = s.logger.WithGatewayOrderID(ctx, cb.RazorpayOrderID)

	if !s.gateway.VerifyPaymentSignature(cb) {
		s.metrics.IncWebhookOutcome(handlerGiftCard, outcomeRejected)
		err := pkgerrors.New(pkgerrors.CodeUnauthorized, "payment signature verification failed")
		s.logger.Warn(ctx, "rejected gift card callback with bad signature")
		return err
	}

	key := s.idem.IdempotencyKey("webhook:gift-card", cb.RazorpayPaymentID)
	fresh, err := s.idem.SetNX(ctx, key, cb.RazorpayOrderID, webhookIdempotencyTTL)
	if err != nil {
		return err
	}
	if !fresh {
		s.metrics.IncWebhookOutcome(handlerGiftCard, outcomeReplay)
		s.logger.Info(ctx, "gift card callback replayed, card already minted")
		return nil
	}

	gatewayOrder, err := s.gateway.FetchOrder(ctx, cb.RazorpayOrderID)
	if err != nil {
		s.releaseMintGuard(ctx, key)
		return err
	}
	if !gatewayOrder.Notes.GiftCard {
		s.metrics.IncWebhookOutcome(handlerGiftCard, outcomeRejected)
		s.releaseMintGuard(ctx, key)
		return pkgerrors.New(pkgerrors.CodeStateConflict, "gateway order is not a gift card purchase")
	}
	if gatewayOrder.Notes.User.ID <= 0 {
		s.metrics.IncWebhookOutcome(handlerGiftCard, outcomeRejected)
		s.releaseMintGuard(ctx, key)
		return pkgerrors.New(pkgerrors.CodeInternal, "gateway order notes missing purchaser")
	}

	amount := decimal.New(gatewayOrder.Amount, -2)
	card, err := s.gifts.Issue(ctx, gatewayOrder.Notes.User.ID, amount)
	if err != nil {
		s.releaseMintGuard(ctx, key)
		return err
	}

	s.metrics.IncWebhookOutcome(handlerGiftCard, outcomeSettled)
	s.logger.Info(ctx, fmt.Sprintf("gift card minted for %s", cardAmount(card)))
	return nil
}

// releaseMintGuard frees the replay guard after a failed mint attempt. If the
// DEL itself fails the key expires with its TTL and the card stays unminted
// until support re-triggers the webhook, so the failure is logged loudly.
func (s *service) releaseMintGuard(ctx context.Context, key string) {
	if err := s.idem.Del(ctx, key); err != nil {
		s.logger.Error(ctx, "failed to release gift card mint guard", err)
	}
}

func cardAmount(card *models.GiftCard) string {
	return card.Price.StringFixed(2)
}
