package handler

import (
	"errors"
	"net/http"

	"jojoprompts/internal/middleware"
	"jojoprompts/internal/repository"
	"jojoprompts/pkg/checkout"

	"github.com/gin-gonic/gin"
)

type CheckoutHandler struct {
	orch     *checkout.Orchestrator
	planRepo *repository.PlanRepository
}

func NewCheckoutHandler(orch *checkout.Orchestrator, planRepo *repository.PlanRepository) *CheckoutHandler {
	return &CheckoutHandler{orch: orch, planRepo: planRepo}
}

// Start opens a checkout session for a plan.
func (h *CheckoutHandler) Start(c *gin.Context) {
	userID := middleware.GetUserID(c)
	var req struct {
		PlanID string `json:"plan_id" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	plan, err := h.planRepo.GetByID(req.PlanID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "plan lookup failed"})
		return
	}
	if plan == nil || !plan.IsActive {
		c.JSON(http.StatusNotFound, gin.H{"error": "plan not found"})
		return
	}
	session := h.orch.Begin(userID, plan.ID, plan.PriceCents, plan.Currency)
	c.JSON(http.StatusCreated, gin.H{
		"session_id":   session.ID,
		"plan_id":      plan.ID,
		"amount_cents": plan.PriceCents,
		"currency":     plan.Currency,
		"providers":    session.Tracker().States(),
	})
}

// session loads the caller's session or writes the error response.
func (h *CheckoutHandler) session(c *gin.Context) *checkout.Session {
	s := h.orch.Session(c.Param("id"))
	if s == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "checkout session not found"})
		return nil
	}
	if s.Snapshot().UserID != middleware.GetUserID(c) {
		c.JSON(http.StatusForbidden, gin.H{"error": "not your checkout session"})
		return nil
	}
	return s
}

// Status returns the session snapshot the storefront renders: per-provider
// attempt state, the applied discount and final amount, and the terminal
// outcome once there is one.
func (h *CheckoutHandler) Status(c *gin.Context) {
	s := h.session(c)
	if s == nil {
		return
	}
	snap := s.Snapshot()
	final := snap.AppliedDiscount.FinalAmountCents(snap.AmountCents)
	c.JSON(http.StatusOK, gin.H{
		"session_id":         snap.SessionID,
		"plan_id":            snap.PlanID,
		"amount_cents":       snap.AmountCents,
		"final_amount_cents": final,
		"currency":           snap.Currency,
		"applied_discount":   snap.AppliedDiscount,
		"providers":          s.Tracker().States(),
		"all_unavailable":    s.Tracker().AllUnavailable(),
		"outcome":            s.Outcome(),
	})
}

// ApplyDiscount runs a code through the session's one-shot gate.
func (h *CheckoutHandler) ApplyDiscount(c *gin.Context) {
	s := h.session(c)
	if s == nil {
		return
	}
	var req struct {
		Code string `json:"code" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	discount, final, err := h.orch.ApplyDiscount(c.Request.Context(), s.ID, req.Code)
	if err != nil {
		status := http.StatusBadRequest
		if errors.Is(err, checkout.ErrDiscountAlreadyApplied) {
			status = http.StatusConflict
		}
		c.JSON(status, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"discount":           discount,
		"final_amount_cents": final,
	})
}

func (h *CheckoutHandler) RemoveDiscount(c *gin.Context) {
	s := h.session(c)
	if s == nil {
		return
	}
	if err := h.orch.RemoveDiscount(s.ID); err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"removed": true})
}

// Pay starts a provider flow. The response carries either the provider
// intent (approval URL or dialog payload) or, when a full discount settled
// the session on the spot, the terminal outcome.
func (h *CheckoutHandler) Pay(c *gin.Context) {
	s := h.session(c)
	if s == nil {
		return
	}
	var req struct {
		Provider string `json:"provider" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	result, err := h.orch.StartPayment(c.Request.Context(), s.ID, checkout.ProviderID(req.Provider))
	if err != nil {
		h.writePaymentError(c, s, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// Confirm completes the dialog-provider flow with the finished charge.
func (h *CheckoutHandler) Confirm(c *gin.Context) {
	s := h.session(c)
	if s == nil {
		return
	}
	var req struct {
		ChargeID string `json:"charge_id" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := h.orch.ConfirmDialog(s.ID, req.ChargeID); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusAccepted, gin.H{"verifying": true})
}

// Retry re-enables a failed provider within its retry budget.
func (h *CheckoutHandler) Retry(c *gin.Context) {
	s := h.session(c)
	if s == nil {
		return
	}
	var req struct {
		Provider string `json:"provider" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	ok, err := h.orch.RetryProvider(s.ID, checkout.ProviderID(req.Provider))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}
	if !ok {
		c.JSON(http.StatusConflict, gin.H{"error": "retry limit reached for this payment method"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"providers": s.Tracker().States()})
}

// Dispose abandons the session: pending polls stop, the context backup for
// an unfinished redirect is left in place.
func (h *CheckoutHandler) Dispose(c *gin.Context) {
	s := h.session(c)
	if s == nil {
		return
	}
	h.orch.Dispose(s.ID)
	c.JSON(http.StatusOK, gin.H{"disposed": true})
}

func (h *CheckoutHandler) writePaymentError(c *gin.Context, s *checkout.Session, err error) {
	if errors.Is(err, checkout.ErrNoPaymentMethod) {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": err.Error()})
		return
	}
	var perr *checkout.PaymentError
	if errors.As(err, &perr) {
		c.JSON(http.StatusBadGateway, gin.H{
			"error":       perr.Message,
			"code":        perr.Code,
			"retryable":   perr.Retryable,
			"suggestions": perr.Suggestions,
			"providers":   s.Tracker().States(),
		})
		return
	}
	c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
}
