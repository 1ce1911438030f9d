// Package gateway wraps the third-party installment payment provider.
// It translates internal requests into the provider's checkout, authorize,
// capture, cancel and refund calls and normalizes responses and errors.
package gateway

import "context"

// OrderStatus is the provider-side state of an order.
type OrderStatus string

const (
	StatusNew               OrderStatus = "new"
	StatusApproved          OrderStatus = "approved"
	StatusAuthorised        OrderStatus = "authorised"
	StatusFullyCaptured     OrderStatus = "fully_captured"
	StatusPartiallyCaptured OrderStatus = "partially_captured"
	StatusDeclined          OrderStatus = "declined"
	StatusFailed            OrderStatus = "failed"
	StatusCanceled          OrderStatus = "canceled"
	StatusFullyRefunded     OrderStatus = "fully_refunded"
	StatusPartiallyRefunded OrderStatus = "partially_refunded"
	StatusExpired           OrderStatus = "expired"
)

// Amount is a decimal-as-string value with an explicit currency code, the
// only money representation the provider accepts.
type Amount struct {
	Value    string `json:"value"`
	Currency string `json:"currency"`
}

type LineItem struct {
	Name       string `json:"name"`
	Quantity   int    `json:"quantity"`
	UnitPrice  Amount `json:"unit_price"`
	TotalPrice Amount `json:"total_price"`
}

type Consumer struct {
	FirstName   string `json:"first_name"`
	LastName    string `json:"last_name"`
	Email       string `json:"email"`
	PhoneNumber string `json:"phone_number"`
}

type MerchantURLs struct {
	Success      string `json:"success"`
	Failure      string `json:"failure"`
	Cancel       string `json:"cancel"`
	Notification string `json:"notification"`
}

// CheckoutRequest describes a new provider order. Reference is the caller's
// idempotency key: the provider returns the existing order for a repeated
// reference instead of creating a duplicate.
type CheckoutRequest struct {
	Reference   string       `json:"order_reference_id"`
	Description string       `json:"description"`
	TotalAmount Amount       `json:"total_amount"`
	Items       []LineItem   `json:"items"`
	Consumer    Consumer     `json:"consumer"`
	URLs        MerchantURLs `json:"merchant_url"`
}

type CheckoutResponse struct {
	OrderID     string `json:"order_id"`
	CheckoutURL string `json:"checkout_url"`
}

type AuthorizeResult struct {
	Status       OrderStatus `json:"status"`
	AutoCaptured bool        `json:"auto_captured"`
	Message      string      `json:"message,omitempty"`
}

// Client is the adapter contract. All calls are blocking network I/O with a
// configured timeout; a timeout or connection failure surfaces as
// ErrUnreachable, never as success.
type Client interface {
	CreateCheckout(ctx context.Context, req CheckoutRequest) (*CheckoutResponse, error)
	GetOrder(ctx context.Context, orderID string) (OrderStatus, error)
	Authorize(ctx context.Context, orderID string) (*AuthorizeResult, error)
	Capture(ctx context.Context, orderID string, amount Amount) (OrderStatus, error)
	CancelOrder(ctx context.Context, orderID string, amount Amount) (OrderStatus, error)
	Refund(ctx context.Context, orderID string, amount Amount, comment string) (OrderStatus, error)
	VerifyWebhookSignature(payload []byte, signature string) bool
}
