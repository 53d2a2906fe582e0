package checkout

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"
)

// PayPalGateway is the redirect-based provider: CreatePayment returns an
// approval URL the storefront sends the user to, and the user comes back
// through /payment/return with the order id and a success flag.
type PayPalGateway struct {
	BaseURL  string
	Currency string

	creds  *clientcredentials.Config
	client *http.Client
}

func NewPayPalGateway(baseURL, clientID, clientSecret, currency string) *PayPalGateway {
	if baseURL == "" {
		baseURL = "https://api-m.paypal.com"
	}
	if currency == "" {
		currency = "USD"
	}
	return &PayPalGateway{
		BaseURL:  baseURL,
		Currency: currency,
		creds: &clientcredentials.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			TokenURL:     baseURL + "/v1/oauth2/token",
		},
	}
}

func (g *PayPalGateway) Name() ProviderID { return ProviderPayPal }

// Init performs the credential handshake: it exchanges the client
// credentials for an access token, which both validates the configuration
// and warms the token source the other calls reuse.
func (g *PayPalGateway) Init(ctx context.Context) error {
	if g.creds.ClientID == "" || g.creds.ClientSecret == "" {
		return configurationError(ProviderPayPal, "paypal client credentials not configured")
	}
	base := &http.Client{Timeout: 30 * time.Second}
	tctx := context.WithValue(ctx, oauth2.HTTPClient, base)
	ts := g.creds.TokenSource(tctx)
	if _, err := ts.Token(); err != nil {
		return fmt.Errorf("paypal token handshake: %w", err)
	}
	g.client = oauth2.NewClient(tctx, ts)
	g.client.Timeout = 30 * time.Second
	return nil
}

type paypalAmount struct {
	CurrencyCode string `json:"currency_code"`
	Value        string `json:"value"`
}

type paypalPurchaseUnit struct {
	ReferenceID string       `json:"reference_id,omitempty"`
	CustomID    string       `json:"custom_id,omitempty"`
	Description string       `json:"description,omitempty"`
	Amount      paypalAmount `json:"amount"`
}

type paypalAppContext struct {
	ReturnURL    string `json:"return_url"`
	CancelURL    string `json:"cancel_url"`
	UserAction   string `json:"user_action"`
	BrandName    string `json:"brand_name,omitempty"`
	ShippingPref string `json:"shipping_preference"`
}

type paypalOrderReq struct {
	Intent             string               `json:"intent"`
	PurchaseUnits      []paypalPurchaseUnit `json:"purchase_units"`
	ApplicationContext paypalAppContext     `json:"application_context"`
}

type paypalLink struct {
	Href string `json:"href"`
	Rel  string `json:"rel"`
}

type paypalOrderResp struct {
	ID            string       `json:"id"`
	Status        string       `json:"status"`
	Links         []paypalLink `json:"links"`
	PurchaseUnits []struct {
		Payments struct {
			Captures []struct {
				ID     string `json:"id"`
				Status string `json:"status"`
			} `json:"captures"`
		} `json:"payments"`
	} `json:"purchase_units"`
}

// CreatePayment creates a CAPTURE order and returns its approval URL.
func (g *PayPalGateway) CreatePayment(ctx context.Context, req IntentRequest) (*PaymentIntent, error) {
	payload := paypalOrderReq{
		Intent: "CAPTURE",
		PurchaseUnits: []paypalPurchaseUnit{{
			ReferenceID: req.SessionID,
			CustomID:    req.SessionID,
			Description: req.Description,
			Amount: paypalAmount{
				CurrencyCode: g.Currency,
				Value:        centsToDecimal(req.AmountCents),
			},
		}},
		ApplicationContext: paypalAppContext{
			ReturnURL:    req.ReturnURL,
			CancelURL:    req.CancelURL,
			UserAction:   "PAY_NOW",
			BrandName:    "JojoPrompts",
			ShippingPref: "NO_SHIPPING",
		},
	}
	var out paypalOrderResp
	if err := g.post(ctx, "/v2/checkout/orders", payload, &out); err != nil {
		return nil, err
	}
	approval := ""
	for _, l := range out.Links {
		if l.Rel == "approve" || l.Rel == "payer-action" {
			approval = l.Href
			break
		}
	}
	if out.ID == "" || approval == "" {
		return nil, fmt.Errorf("paypal order response missing approval link")
	}
	log.Printf("[PayPal] order %s created for session %s amount=%s", out.ID, req.SessionID, payload.PurchaseUnits[0].Amount.Value)
	return &PaymentIntent{
		Provider:    ProviderPayPal,
		OrderID:     out.ID,
		ApprovalURL: approval,
	}, nil
}

// VerifyPayment retrieves the order and captures it once approved. An
// approved-but-uncaptured order is an intermediate state; the poller will
// come back for the capture result.
func (g *PayPalGateway) VerifyPayment(ctx context.Context, params VerifyParams) (*VerifyResult, error) {
	if params.OrderID == "" {
		return nil, fmt.Errorf("paypal verify: order id is required")
	}
	var order paypalOrderResp
	if err := g.get(ctx, "/v2/checkout/orders/"+params.OrderID, &order); err != nil {
		return nil, err
	}
	switch order.Status {
	case "COMPLETED":
		return &VerifyResult{Status: StatusCompleted, TransactionID: captureID(&order, params.OrderID)}, nil
	case "APPROVED":
		var captured paypalOrderResp
		if err := g.post(ctx, "/v2/checkout/orders/"+params.OrderID+"/capture", struct{}{}, &captured); err != nil {
			log.Printf("[PayPal] capture of %s failed: %v", params.OrderID, err)
			return &VerifyResult{Status: "approved"}, nil
		}
		if captured.Status == "COMPLETED" {
			return &VerifyResult{Status: StatusCompleted, TransactionID: captureID(&captured, params.OrderID)}, nil
		}
		return &VerifyResult{Status: "approved"}, nil
	case "VOIDED":
		return &VerifyResult{Status: StatusCancelled, Error: "Payment was voided"}, nil
	case "CREATED", "SAVED", "PAYER_ACTION_REQUIRED":
		return &VerifyResult{Status: "pending"}, nil
	default:
		return &VerifyResult{Status: "checking"}, nil
	}
}

func captureID(order *paypalOrderResp, fallback string) string {
	for _, pu := range order.PurchaseUnits {
		for _, c := range pu.Payments.Captures {
			if c.ID != "" {
				return c.ID
			}
		}
	}
	return fallback
}

func (g *PayPalGateway) post(ctx context.Context, path string, payload, out interface{}) error {
	body, _ := json.Marshal(payload)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.BaseURL+path, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	return g.do(req, out)
}

func (g *PayPalGateway) get(ctx context.Context, path string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, g.BaseURL+path, nil)
	if err != nil {
		return err
	}
	return g.do(req, out)
}

func (g *PayPalGateway) do(req *http.Request, out interface{}) error {
	if g.client == nil {
		return configurationError(ProviderPayPal, "paypal gateway used before handshake")
	}
	resp, err := g.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	respBody, _ := io.ReadAll(resp.Body)
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("paypal %s %s: %d %s", req.Method, req.URL.Path, resp.StatusCode, string(respBody))
	}
	if out != nil && len(respBody) > 0 {
		if err := json.Unmarshal(respBody, out); err != nil {
			return err
		}
	}
	return nil
}

// centsToDecimal renders an integer cent amount as the "49.00" style string
// the provider APIs expect.
func centsToDecimal(cents int64) string {
	return fmt.Sprintf("%d.%02d", cents/100, cents%100)
}
