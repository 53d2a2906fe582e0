package handler

import (
	"log"
	"net/url"

	"jojoprompts/internal/ws"
	"jojoprompts/pkg/checkout"
)

// StatusNotifier routes terminal outcomes to the storefront. It implements
// checkout.Navigator: outcomes go out over the session's WebSocket stream
// together with the destination URL the storefront should navigate to.
type StatusNotifier struct {
	hub        *ws.Hub
	successURL string
	failureURL string
}

func NewStatusNotifier(hub *ws.Hub, successURL, failureURL string) *StatusNotifier {
	return &StatusNotifier{hub: hub, successURL: successURL, failureURL: failureURL}
}

func (n *StatusNotifier) PaymentSucceeded(sessionID string, outcome checkout.Outcome) {
	dest, _ := url.Parse(n.successURL)
	q := dest.Query()
	if outcome.TransactionID != "" {
		q.Set("transaction_id", outcome.TransactionID)
	}
	if outcome.SubscriptionID != "" {
		q.Set("subscription_id", outcome.SubscriptionID)
	}
	dest.RawQuery = q.Encode()
	log.Printf("[Checkout] session %s completed, tx=%s", sessionID, outcome.TransactionID)
	n.hub.BroadcastToSession(sessionID, map[string]interface{}{
		"type":     "payment_succeeded",
		"outcome":  outcome,
		"redirect": dest.String(),
	})
}

func (n *StatusNotifier) PaymentFailed(sessionID string, outcome checkout.Outcome) {
	dest, _ := url.Parse(n.failureURL)
	q := dest.Query()
	if outcome.Reason != "" {
		q.Set("reason", outcome.Reason)
	}
	q.Set("status", outcome.Status)
	dest.RawQuery = q.Encode()
	log.Printf("[Checkout] session %s failed: %s (%s)", sessionID, outcome.Reason, outcome.Status)
	n.hub.BroadcastToSession(sessionID, map[string]interface{}{
		"type":     "payment_failed",
		"outcome":  outcome,
		"redirect": dest.String(),
	})
}

// PollProgress streams intermediate verification status to the watchers.
func (n *StatusNotifier) PollProgress(sessionID string, pollCount int, status string) {
	n.hub.BroadcastToSession(sessionID, map[string]interface{}{
		"type":       "verification_progress",
		"poll_count": pollCount,
		"status":     status,
	})
}
