package handler

import (
	"net/http"
	"net/url"

	"jojoprompts/config"
	"jojoprompts/pkg/checkout"

	"github.com/gin-gonic/gin"
)

// ReturnHandler is the redirect provider's re-entry point. These routes are
// public: the provider sends the bare browser here, the only credentials
// are the correlation parameters on the URL.
type ReturnHandler struct {
	cfg  *config.ServerConfig
	orch *checkout.Orchestrator
}

func NewReturnHandler(cfg *config.ServerConfig, orch *checkout.Orchestrator) *ReturnHandler {
	return &ReturnHandler{cfg: cfg, orch: orch}
}

// Return handles the approved round trip. PayPal appends the order id as
// "token"; the session id is ours, planted on the return URL when the
// order was created. Verification runs server-side while the user waits on
// the storefront's processing page.
func (h *ReturnHandler) Return(c *gin.Context) {
	sessionID := c.Query("session_id")
	orderID := c.Query("token")
	if orderID == "" {
		orderID = c.Query("order_id")
	}
	if sessionID == "" {
		c.Redirect(http.StatusFound, h.failureRedirect("Missing checkout session"))
		return
	}
	h.orch.HandleReturn(sessionID, orderID, true)
	c.Redirect(http.StatusFound, h.processingRedirect(sessionID))
}

// Cancel handles the user backing out on the provider's approval page.
func (h *ReturnHandler) Cancel(c *gin.Context) {
	sessionID := c.Query("session_id")
	if sessionID != "" {
		h.orch.HandleReturn(sessionID, "", false)
	}
	c.Redirect(http.StatusFound, h.failureRedirect("Payment was cancelled"))
}

func (h *ReturnHandler) processingRedirect(sessionID string) string {
	dest, _ := url.Parse(h.cfg.ProcessingURL)
	q := dest.Query()
	q.Set("session_id", sessionID)
	dest.RawQuery = q.Encode()
	return dest.String()
}

func (h *ReturnHandler) failureRedirect(reason string) string {
	dest, _ := url.Parse(h.cfg.FailureURL)
	q := dest.Query()
	q.Set("reason", reason)
	dest.RawQuery = q.Encode()
	return dest.String()
}
