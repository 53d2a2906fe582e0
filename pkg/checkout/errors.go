package checkout

import (
	"errors"
	"fmt"
	"strings"
)

// Error codes produced by Classify. They are the single source of truth for
// retry policy: the attempt tracker and the orchestrator branch on Retryable
// and Critical, never on raw error text.
const (
	ErrCodeNetwork       = "network"
	ErrCodeTimeout       = "timeout"
	ErrCodeClientLoad    = "client-load"
	ErrCodeConfiguration = "configuration"
	ErrCodeAuth          = "authentication"
	ErrCodeDeclined      = "payment-declined"
	ErrCodeUnknown       = "unknown"
)

// PaymentError is a classified payment failure with a user-facing message.
type PaymentError struct {
	Code        string
	Provider    ProviderID
	Message     string
	Retryable   bool
	Critical    bool
	Suggestions []string
	cause       error
}

func (e *PaymentError) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Provider.Label(), e.Code, e.cause)
	}
	return fmt.Sprintf("%s: %s: %s", e.Provider.Label(), e.Code, e.Message)
}

func (e *PaymentError) Unwrap() error { return e.cause }

type errorBucket struct {
	code      string
	keywords  []string
	retryable bool
	critical  bool
	message   string
}

// Buckets are checked in order; the first keyword hit wins.
var errorBuckets = []errorBucket{
	{
		code:      ErrCodeNetwork,
		keywords:  []string{"network", "connection", "connect", "unreachable", "dns", "refused"},
		retryable: true,
		message:   "A network problem interrupted the payment. Please check your connection and try again.",
	},
	{
		code:      ErrCodeClientLoad,
		keywords:  []string{"script", "load", "sdk", "not defined", "handshake"},
		retryable: true,
		message:   "The %s payment service did not load. Please try again.",
	},
	{
		code:      ErrCodeTimeout,
		keywords:  []string{"timeout", "timed out", "deadline exceeded"},
		retryable: true,
		message:   "The %s payment service took too long to respond. Please try again.",
	},
	{
		code:      ErrCodeConfiguration,
		keywords:  []string{"configuration", "misconfigured", "invalid client", "invalid key", "credential", "not configured"},
		retryable: false,
		critical:  true,
		message:   "%s is temporarily unavailable. Please use a different payment method.",
	},
	{
		code:      ErrCodeAuth,
		keywords:  []string{"unauthorized", "authentication", "forbidden", "token expired", "401", "403"},
		retryable: true,
		message:   "We could not authorize the request with %s. Please try again.",
	},
	{
		code:      ErrCodeDeclined,
		keywords:  []string{"declined", "insufficient", "expired card", "card was", "cancelled by", "canceled by", "denied"},
		retryable: false,
		message:   "Your payment was declined by %s.",
	},
}

var declineSuggestions = []string{
	"Check that your card has sufficient funds",
	"Make sure the card has not expired",
	"Try a different card or payment method",
	"Contact your bank if the problem persists",
}

// Classify maps any failure onto a fixed error taxonomy. It is pure: same
// input, same classification, no side effects.
func Classify(err error, provider ProviderID) *PaymentError {
	var pe *PaymentError
	if errors.As(err, &pe) {
		return pe
	}
	text := ""
	if err != nil {
		text = strings.ToLower(err.Error())
	}
	for _, b := range errorBuckets {
		for _, kw := range b.keywords {
			if strings.Contains(text, kw) {
				out := &PaymentError{
					Code:      b.code,
					Provider:  provider,
					Message:   bucketMessage(b.message, provider),
					Retryable: b.retryable,
					Critical:  b.critical,
					cause:     err,
				}
				if b.code == ErrCodeDeclined {
					out.Suggestions = declineSuggestions
				}
				return out
			}
		}
	}
	return &PaymentError{
		Code:      ErrCodeUnknown,
		Provider:  provider,
		Message:   fmt.Sprintf("Something went wrong with the %s payment. Please try again.", provider.Label()),
		Retryable: true,
		cause:     err,
	}
}

func bucketMessage(tmpl string, provider ProviderID) string {
	if strings.Contains(tmpl, "%s") {
		return fmt.Sprintf(tmpl, provider.Label())
	}
	return tmpl
}

// configurationError builds a pre-classified critical error, used by
// gateways when they detect missing credentials before any call is made.
func configurationError(provider ProviderID, detail string) *PaymentError {
	return &PaymentError{
		Code:      ErrCodeConfiguration,
		Provider:  provider,
		Message:   bucketMessage("%s is temporarily unavailable. Please use a different payment method.", provider),
		Retryable: false,
		Critical:  true,
		cause:     errors.New(detail),
	}
}
