package checkout

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
	"time"
)

// TapGateway is the in-page dialog provider: CreatePayment opens a charge
// and hands the storefront the payload its dialog widget needs; the
// storefront reports the finished charge back through /confirm.
type TapGateway struct {
	BaseURL   string
	SecretKey string
	Currency  string
	client    *http.Client
}

func NewTapGateway(baseURL, secretKey, currency string) *TapGateway {
	if baseURL == "" {
		baseURL = "https://api.tap.company/v2"
	}
	if currency == "" {
		currency = "USD"
	}
	return &TapGateway{
		BaseURL:   baseURL,
		SecretKey: secretKey,
		Currency:  currency,
		client:    &http.Client{Timeout: 30 * time.Second},
	}
}

func (g *TapGateway) Name() ProviderID { return ProviderTap }

// Init verifies the API key with a minimal authenticated call. Tap has no
// ping endpoint, so a one-item charge listing serves as the handshake.
func (g *TapGateway) Init(ctx context.Context) error {
	if g.SecretKey == "" {
		return configurationError(ProviderTap, "tap secret key not configured")
	}
	payload := map[string]interface{}{"limit": 1}
	body, _ := json.Marshal(payload)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.BaseURL+"/charges/list", bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+g.SecretKey)
	resp, err := g.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)
	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		return configurationError(ProviderTap, fmt.Sprintf("tap key rejected: %d", resp.StatusCode))
	}
	if resp.StatusCode >= 500 {
		return fmt.Errorf("tap handshake: %d", resp.StatusCode)
	}
	return nil
}

type tapChargeReq struct {
	Amount      float64           `json:"amount"`
	Currency    string            `json:"currency"`
	Description string            `json:"description,omitempty"`
	Customer    tapCustomer       `json:"customer"`
	Source      tapSource         `json:"source"`
	Redirect    tapRedirect       `json:"redirect"`
	Reference   tapReference      `json:"reference"`
	Metadata    map[string]string `json:"metadata,omitempty"`
}

type tapCustomer struct {
	ID string `json:"id,omitempty"`
}

type tapSource struct {
	ID string `json:"id"`
}

type tapRedirect struct {
	URL string `json:"url"`
}

type tapReference struct {
	Transaction string `json:"transaction,omitempty"`
	Order       string `json:"order,omitempty"`
}

type tapChargeResp struct {
	ID          string `json:"id"`
	Status      string `json:"status"`
	Transaction struct {
		URL string `json:"url"`
	} `json:"transaction"`
	Response struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"response"`
	Reference tapReference `json:"reference"`
}

// CreatePayment opens a charge and returns the dialog payload.
func (g *TapGateway) CreatePayment(ctx context.Context, req IntentRequest) (*PaymentIntent, error) {
	payload := tapChargeReq{
		Amount:      float64(req.AmountCents) / 100,
		Currency:    g.Currency,
		Description: req.Description,
		Source:      tapSource{ID: "src_all"},
		Redirect:    tapRedirect{URL: req.ReturnURL},
		Reference:   tapReference{Transaction: req.SessionID, Order: req.SessionID},
		Metadata: map[string]string{
			"session_id": req.SessionID,
			"plan_id":    req.PlanID,
			"user_id":    req.UserID,
		},
	}
	var out tapChargeResp
	if err := g.call(ctx, http.MethodPost, "/charges", payload, &out); err != nil {
		return nil, err
	}
	if out.ID == "" {
		return nil, fmt.Errorf("tap charge response missing id")
	}
	log.Printf("[Tap] charge %s created for session %s status=%s", out.ID, req.SessionID, out.Status)
	return &PaymentIntent{
		Provider: ProviderTap,
		OrderID:  out.ID,
		DialogPayload: map[string]string{
			"charge_id": out.ID,
			"url":       out.Transaction.URL,
		},
	}, nil
}

// VerifyPayment retrieves the charge and maps Tap's status vocabulary onto
// the orchestrator's.
func (g *TapGateway) VerifyPayment(ctx context.Context, params VerifyParams) (*VerifyResult, error) {
	chargeID := params.PaymentID
	if chargeID == "" {
		chargeID = params.OrderID
	}
	if chargeID == "" {
		return nil, fmt.Errorf("tap verify: charge id is required")
	}
	var out tapChargeResp
	if err := g.call(ctx, http.MethodGet, "/charges/"+chargeID, nil, &out); err != nil {
		return nil, err
	}
	switch strings.ToUpper(out.Status) {
	case "CAPTURED":
		return &VerifyResult{Status: StatusCompleted, TransactionID: out.ID}, nil
	case "DECLINED", "RESTRICTED", "FAILED", "UNKNOWN":
		msg := out.Response.Message
		if msg == "" {
			msg = "Payment was declined"
		}
		return &VerifyResult{Status: StatusFailed, Error: msg}, nil
	case "CANCELLED", "ABANDONED", "VOID":
		return &VerifyResult{Status: StatusCancelled, Error: "Payment was cancelled"}, nil
	case "INITIATED", "IN_PROGRESS", "AUTHORIZED":
		return &VerifyResult{Status: "pending"}, nil
	default:
		return &VerifyResult{Status: "checking"}, nil
	}
}

func (g *TapGateway) call(ctx context.Context, method, path string, payload, out interface{}) error {
	var body io.Reader
	if payload != nil {
		raw, _ := json.Marshal(payload)
		body = bytes.NewReader(raw)
	}
	req, err := http.NewRequestWithContext(ctx, method, g.BaseURL+path, body)
	if err != nil {
		return err
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Authorization", "Bearer "+g.SecretKey)
	resp, err := g.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	respBody, _ := io.ReadAll(resp.Body)
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("tap %s %s: %d %s", method, path, resp.StatusCode, string(respBody))
	}
	if out != nil && len(respBody) > 0 {
		if err := json.Unmarshal(respBody, out); err != nil {
			return err
		}
	}
	return nil
}
