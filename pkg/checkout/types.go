package checkout

import (
	"context"
	"time"
)

// ProviderID identifies one of the integrated payment providers.
type ProviderID string

const (
	// ProviderPayPal is the redirect-based provider: the user leaves the
	// storefront for an approval page and comes back through /payment/return.
	ProviderPayPal ProviderID = "paypal"
	// ProviderTap is the in-page dialog provider: the storefront opens the
	// provider's dialog and reports the resulting charge back to us.
	ProviderTap ProviderID = "tap"
)

// Providers lists every integrated provider in display order.
var Providers = []ProviderID{ProviderPayPal, ProviderTap}

func (p ProviderID) Valid() bool {
	return p == ProviderPayPal || p == ProviderTap
}

// Label returns the human-readable provider name used in error messages.
func (p ProviderID) Label() string {
	switch p {
	case ProviderPayPal:
		return "PayPal"
	case ProviderTap:
		return "Tap"
	default:
		return string(p)
	}
}

// CheckoutContext is the in-flight checkout state. It is written to the
// continuity store immediately before the redirect provider takes over the
// browser, and read back when the user returns, so the flow can resume even
// though everything in memory is gone.
type CheckoutContext struct {
	SessionID       string           `json:"session_id"`
	PlanID          string           `json:"plan_id"`
	UserID          string           `json:"user_id"`
	AmountCents     int64            `json:"amount_cents"`
	Currency        string           `json:"currency"`
	OrderID         string           `json:"order_id,omitempty"`
	PaymentID       string           `json:"payment_id,omitempty"`
	AppliedDiscount *AppliedDiscount `json:"applied_discount,omitempty"`
	Timestamp       time.Time        `json:"timestamp"`
}

// AppliedDiscount is the accepted result of a discount-code validation.
type AppliedDiscount struct {
	ID    string `json:"id"`
	Code  string `json:"code"`
	Type  string `json:"type"` // percentage or fixed
	Value int64  `json:"value"`
}

// FinalAmountCents applies the discount to base and never goes below zero.
func (d *AppliedDiscount) FinalAmountCents(base int64) int64 {
	if d == nil {
		return base
	}
	var out int64
	switch d.Type {
	case "percentage":
		out = base - base*d.Value/100
	case "fixed":
		out = base - d.Value
	default:
		out = base
	}
	if out < 0 {
		out = 0
	}
	return out
}

// PaymentIntent is what a gateway hands back when a payment is initiated.
// The redirect provider fills ApprovalURL; the dialog provider fills
// DialogPayload with whatever its in-page widget needs.
type PaymentIntent struct {
	Provider      ProviderID
	OrderID       string
	ApprovalURL   string
	DialogPayload map[string]string
}

// IntentRequest carries everything a gateway needs to initiate a payment.
type IntentRequest struct {
	SessionID   string
	PlanID      string
	UserID      string
	AmountCents int64
	Currency    string
	Description string
	ReturnURL   string
	CancelURL   string
}

// VerifyParams identify the payment to check. OrderID correlates the
// redirect provider, PaymentID the dialog provider; PlanID and UserID are
// required and may have been recovered from the continuity store.
type VerifyParams struct {
	SessionID string
	OrderID   string
	PaymentID string
	PlanID    string
	UserID    string
}

// VerifyResult is one settlement-status answer from a gateway.
type VerifyResult struct {
	Status         string // COMPLETED, FAILED, CANCELLED, checking, approved, pending
	TransactionID  string
	SubscriptionID string
	Error          string
}

// Terminal statuses a verification can end in.
const (
	StatusCompleted = "COMPLETED"
	StatusFailed    = "FAILED"
	StatusCancelled = "CANCELLED"
	StatusTimeout   = "TIMEOUT"
)

// IsTerminalSuccess reports whether the status means the money settled.
func IsTerminalSuccess(status string) bool {
	return status == StatusCompleted
}

// IsTerminalFailure reports whether the status means the payment is dead.
func IsTerminalFailure(status string) bool {
	return status == StatusFailed || status == StatusCancelled
}

// Gateway is one payment provider integration. Init performs the credential
// handshake and must succeed before the other methods are used; the Loader
// owns that lifecycle.
type Gateway interface {
	Name() ProviderID
	Init(ctx context.Context) error
	CreatePayment(ctx context.Context, req IntentRequest) (*PaymentIntent, error)
	VerifyPayment(ctx context.Context, params VerifyParams) (*VerifyResult, error)
}

// DiscountValidator answers whether a discount code is valid for a plan.
type DiscountValidator interface {
	ValidateDiscountCode(ctx context.Context, code, planID, userID string) (*AppliedDiscount, error)
}

// DiscountRedeemer records one redemption of a discount once the payment it
// was applied to settles. Usage limits are enforced against this counter.
type DiscountRedeemer interface {
	IncrementUsage(ctx context.Context, discountID string) error
}
