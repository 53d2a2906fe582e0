package handler

import (
	"net/http"
	"strconv"

	"jojoprompts/internal/middleware"
	"jojoprompts/internal/repository"

	"github.com/gin-gonic/gin"
)

// BillingHandler serves the caller's payment history and current
// subscription.
type BillingHandler struct {
	payments      *repository.PaymentRepository
	subscriptions *repository.SubscriptionRepository
}

func NewBillingHandler(payments *repository.PaymentRepository, subscriptions *repository.SubscriptionRepository) *BillingHandler {
	return &BillingHandler{payments: payments, subscriptions: subscriptions}
}

// History lists the caller's most recent payments.
func (h *BillingHandler) History(c *gin.Context) {
	userID := middleware.GetUserID(c)
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
	payments, err := h.payments.ListByUser(userID, limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not load payments"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"payments": payments})
}

// Subscription returns the caller's active subscription, or null.
func (h *BillingHandler) Subscription(c *gin.Context) {
	userID := middleware.GetUserID(c)
	sub, err := h.subscriptions.GetActiveByUser(userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not load subscription"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"subscription": sub})
}
