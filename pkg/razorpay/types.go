package razorpay

// ProductNote is one cart line echoed through the gateway order notes.
type ProductNote struct {
	Name     string `json:"name"`
	Quantity int    `json:"quantity"`
	Price    string `json:"price"`
}

// UserNote identifies the purchaser inside the gateway order notes.
type UserNote struct {
	ID    int64  `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
	Phone string `json:"phone"`
}

// Notes is the structured metadata attached to a gateway order.
type Notes struct {
	Products []ProductNote `json:"products,omitempty"`
	User     UserNote      `json:"user"`
	GiftCard bool          `json:"gift_card"`
}

// OrderParams describes a gateway order to create.
type OrderParams struct {
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
	Receipt  string `json:"receipt,omitempty"`
	Notes    Notes  `json:"notes"`
}

// Order is the gateway's representation of a created order.
type Order struct {
	ID       string `json:"id"`
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
	Receipt  string `json:"receipt"`
	Status   string `json:"status"`
	Notes    Notes  `json:"notes"`
}

// PaymentCallback carries the signed triple returned by the hosted checkout
// and by payment webhooks.
type PaymentCallback struct {
	RazorpayOrderID   string `json:"razorpay_order_id" validate:"required"`
	RazorpayPaymentID string `json:"razorpay_payment_id" validate:"required"`
	RazorpaySignature string `json:"razorpay_signature" validate:"required"`
}

type apiError struct {
	Error struct {
		Code        string `json:"code"`
		Description string `json:"description"`
	} `json:"error"`
}
