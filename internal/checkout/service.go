package checkout

import (
	"context"
	"errors"
	"fmt"
	"reflect"

	"github.com/shopspring/decimal"
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
)

const gatewayOrderStatusCreated = "created"

// Every order line settles for at least one rupee, even when a gift card
// covers more than the line total.
var minLineTotal = decimal.NewFromInt(1)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type gatewayClient interface {
	CreateOrder(ctx context.Context, params razorpay.OrderParams) (*razorpay.Order, error)
	FetchOrder(ctx context.Context, orderID string) (*razorpay.Order, error)
}

// Service snapshots carts into orders and registers them with the payment
// gateway.
type Service interface {
	PartialCheckout(ctx context.Context, userID int64, giftCode string, status enums.OrderStatus) (int, error)
	FullCheckout(ctx context.Context, userID int64, giftCode string) (*razorpay.Order, error)
	FullCheckoutGiftCard(ctx context.Context, userID int64, amount decimal.Decimal) (*razorpay.Order, error)
	ResumeGatewayOrder(ctx context.Context, userID int64, gatewayOrderID string) (*razorpay.Order, error)
}

type service struct {
	tx       txRunner
	cartRepo cart.Repository
	orders   orders.Repository
	gifts    giftcards.Service
	users    users.Repository
	gateway  gatewayClient
	logger   *logger.Logger
	currency string
}

// NewService builds the checkout orchestrator with the required dependencies.
func NewService(
	tx txRunner,
	cartRepo cart.Repository,
	ordersRepo orders.Repository,
	gifts giftcards.Service,
	usersRepo users.Repository,
	gateway gatewayClient,
	logg *logger.Logger,
	currency string,
) (Service, error) {
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if cartRepo == nil {
		return nil, fmt.Errorf("cart repository required")
	}
	if ordersRepo == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	if gifts == nil {
		return nil, fmt.Errorf("gift card service required")
	}
	if usersRepo == nil {
		return nil, fmt.Errorf("users repository required")
	}
	if gateway == nil {
		return nil, fmt.Errorf("gateway client required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	if currency == "" {
		currency = "INR"
	}
	return &service{
		tx:       tx,
		cartRepo: cartRepo,
		orders:   ordersRepo,
		gifts:    gifts,
		users:    usersRepo,
		gateway:  gateway,
		logger:   logg,
		currency: currency,
	}, nil
}

// PartialCheckout snapshots the cart into order rows, consumes the gift card,
// and clears the cart in one transaction. It returns the number of rows
// created; an empty cart creates none and is not an error here.
func (s *service) PartialCheckout(ctx context.Context, userID int64, giftCode string, status enums.OrderStatus) (int, error) {
	if !status.IsValid() {
		return 0, pkgerrors.New(pkgerrors.CodeValidation, "invalid order status")
	}

	created := 0
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		card, err := s.resolveGiftCard(ctx, giftCode)
		if err != nil {
			return err
		}

		items, err := s.cartRepo.WithTx(tx).ListByUser(ctx, userID)
		if err != nil {
			return err
		}
		if len(items) == 0 {
			return nil
		}

		discount := decimal.Zero
		if card != nil {
			discount = card.Price
		}

		rows := make([]models.Order, 0, len(items))
		for _, item := range items {
			if item.Product == nil {
				return pkgerrors.New(pkgerrors.CodeInternal, "cart line missing product")
			}
			lineTotal := item.Product.Price.Mul(decimal.NewFromInt(int64(item.Quantity)))
			if !discount.IsZero() {
				lineTotal = lineTotal.Sub(discount)
				if lineTotal.LessThan(minLineTotal) {
					lineTotal = minLineTotal
				}
			}
			rows = append(rows, models.Order{
				UserID:     userID,
				ProductID:  item.ProductID,
				Quantity:   item.Quantity,
				TotalPrice: lineTotal,
				Status:     status,
			})
		}

		if err := s.orders.WithTx(tx).CreateBatch(ctx, rows); err != nil {
			return err
		}

		if card != nil {
			if err := s.gifts.Apply(ctx, tx, card.ID); err != nil {
				return err
			}
		}

		if err := s.cartRepo.WithTx(tx).Clear(ctx, userID); err != nil {
			return err
		}

		created = len(rows)
		return nil
	})
	if err != nil {
		return 0, err
	}
	return created, nil
}

// FullCheckout runs the cart snapshot and registers the batch with the
// payment gateway. When the cart is empty it resumes the user's unpaid
// gateway order instead of creating a duplicate.
func (s *service) FullCheckout(ctx context.Context, userID int64, giftCode string) (*razorpay.Order, error) {
	created, err := s.PartialCheckout(ctx, userID, giftCode, enums.OrderStatusPending)
	if err != nil {
		return nil, err
	}

	if created == 0 {
		gatewayOrderID, err := s.orders.FindUnpaidGatewayOrderID(ctx, userID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, pkgerrors.New(pkgerrors.CodeValidation, "nothing to checkout")
			}
			return nil, err
		}
		return s.ResumeGatewayOrder(ctx, userID, gatewayOrderID)
	}

	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	pending, err := s.orders.ListFreshPending(ctx, userID)
	if err != nil {
		return nil, err
	}
	if len(pending) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeConflict, "pending orders vanished before gateway registration")
	}

	total := decimal.Zero
	notes := razorpay.Notes{User: userNote(user)}
	for _, row := range pending {
		total = total.Add(row.TotalPrice)
		name := ""
		if row.Product != nil {
			name = row.Product.Name
		}
		notes.Products = append(notes.Products, razorpay.ProductNote{
			Name:     name,
			Quantity: row.Quantity,
			Price:    row.TotalPrice.StringFixed(2),
		})
	}

	order, err := s.gateway.CreateOrder(ctx, razorpay.OrderParams{
		Amount:   total.Shift(2).IntPart(),
		Currency: s.currency,
		Notes:    notes,
	})
	if err != nil {
		return nil, err
	}

	affected, err := s.orders.StampConfirmed(ctx, userID, order.ID)
	if err != nil {
		return nil, err
	}
	if affected == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeConflict, "another checkout already claimed these orders")
	}

	if err := s.verifyEcho(ctx, order, total.Shift(2).IntPart(), notes); err != nil {
		return nil, err
	}
	return order, nil
}

// FullCheckoutGiftCard registers a flat-amount gateway order used to buy a
// gift card. No local order rows are created; the webhook mints the card.
func (s *service) FullCheckoutGiftCard(ctx context.Context, userID int64, amount decimal.Decimal) (*razorpay.Order, error) {
	if amount.LessThanOrEqual(decimal.Zero) {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "gift card amount must be positive")
	}

	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	notes := razorpay.Notes{
		User:     userNote(user),
		GiftCard: true,
	}
	order, err := s.gateway.CreateOrder(ctx, razorpay.OrderParams{
		Amount:   amount.Shift(2).IntPart(),
		Currency: s.currency,
		Notes:    notes,
	})
	if err != nil {
		return nil, err
	}

	if err := s.verifyEcho(ctx, order, amount.Shift(2).IntPart(), notes); err != nil {
		return nil, err
	}
	return order, nil
}

// ResumeGatewayOrder re-fetches an existing gateway order so the client can
// retry payment. The order must belong to the requesting user.
func (s *service) ResumeGatewayOrder(ctx context.Context, userID int64, gatewayOrderID string) (*razorpay.Order, error) {
	rows, err := s.orders.FindByGatewayOrderID(ctx, gatewayOrderID)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "gateway order not found")
	}
	if rows[0].UserID != userID {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "gateway order belongs to another user")
	}

	return s.gateway.FetchOrder(ctx, gatewayOrderID)
}

func (s *service) resolveGiftCard(ctx context.Context, giftCode string) (*models.GiftCard, error) {
	if giftCode == "" {
		return nil, nil
	}
	card, err := s.gifts.Lookup(ctx, giftCode)
	if err != nil {
		// Unknown codes are ignored so a typo does not block checkout.
		if typed := pkgerrors.As(err); typed != nil && typed.Code() == pkgerrors.CodeNotFound {
			return nil, nil
		}
		return nil, err
	}
	if card.Used {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "gift card already used")
	}
	return card, nil
}

// verifyEcho cross-checks what the gateway recorded against what was sent.
// A mismatch means the charge would disagree with the order book. The notes
// echo matters as much as the amount: the webhook reconciler trusts the notes
// for purchaser identity, so they must round-trip untouched.
func (s *service) verifyEcho(ctx context.Context, order *razorpay.Order, wantAmount int64, wantNotes razorpay.Notes) error {
	notesMatch := reflect.DeepEqual(order.Notes, wantNotes)
	if order.Amount == wantAmount && order.Currency == s.currency &&
		order.Status == gatewayOrderStatusCreated && notesMatch {
		return nil
	}
	ctx = s.logger.WithGatewayOrderID(ctx, order.ID)
	ctx = s.logger.WithFields(ctx, map[string]any{
		"want_amount":   wantAmount,
		"got_amount":    order.Amount,
		"want_currency": s.currency,
		"got_currency":  order.Currency,
		"got_status":    order.Status,
		"notes_match":   notesMatch,
	})
	err := pkgerrors.New(pkgerrors.CodeInternal, "gateway order echo mismatch")
	s.logger.Error(ctx, "gateway order does not match submitted checkout", err)
	return err
}

func userNote(user *models.User) razorpay.UserNote {
	phone := ""
	if user.Phone != nil {
		phone = *user.Phone
	}
	return razorpay.UserNote{
		ID:    user.ID,
		Name:  user.Name,
		Email: user.Email,
		Phone: phone,
	}
}
