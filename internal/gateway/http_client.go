package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// httpGateway talks to the payment provider's REST API.
type httpGateway struct {
	baseURL string
	apiKey  string
	client  *http.Client
}

// NewHTTPGateway builds a PaymentGateway backed by the provider's session API.
func NewHTTPGateway(baseURL, apiKey string) PaymentGateway {
	return &httpGateway{
		baseURL: baseURL,
		apiKey:  apiKey,
		client:  &http.Client{Timeout: 15 * time.Second},
	}
}

type sessionRequest struct {
	Amount    string `json:"amount"`
	Currency  string `json:"currency"`
	OrderRef  string `json:"order_ref"`
	ReturnURL string `json:"return_url"`
	CancelURL string `json:"cancel_url"`
	NotifyURL string `json:"notify_url"`
}

type sessionResponse struct {
	SessionID  string `json:"session_id"`
	PaymentURL string `json:"payment_url"`
}

type sessionStatusResponse struct {
	Status        string     `json:"status"`
	TransactionID string     `json:"transaction_id"`
	PaidAt        *time.Time `json:"paid_at"`
}

func (g *httpGateway) Initiate(ctx context.Context, req InitiateRequest) (InitiateResult, error) {
	payload, err := json.Marshal(sessionRequest{
		Amount:    req.Amount.StringFixed(2),
		Currency:  req.Currency,
		OrderRef:  req.OrderRef,
		ReturnURL: req.ReturnURL,
		CancelURL: req.CancelURL,
		NotifyURL: req.NotifyURL,
	})
	if err != nil {
		return InitiateResult{}, fmt.Errorf("failed to encode session request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, g.baseURL+"/v1/sessions", bytes.NewReader(payload))
	if err != nil {
		return InitiateResult{}, fmt.Errorf("failed to build session request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+g.apiKey)

	resp, err := g.client.Do(httpReq)
	if err != nil {
		return InitiateResult{}, fmt.Errorf("gateway unreachable: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return InitiateResult{}, fmt.Errorf("gateway returned status %d", resp.StatusCode)
	}

	var body sessionResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return InitiateResult{}, fmt.Errorf("failed to decode session response: %w", err)
	}

	return InitiateResult{SessionID: body.SessionID, PaymentURL: body.PaymentURL}, nil
}

func (g *httpGateway) Verify(ctx context.Context, sessionID string) (VerifyResult, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, g.baseURL+"/v1/sessions/"+sessionID, nil)
	if err != nil {
		return VerifyResult{}, fmt.Errorf("failed to build verify request: %w", err)
	}
	httpReq.Header.Set("Authorization", "Bearer "+g.apiKey)

	resp, err := g.client.Do(httpReq)
	if err != nil {
		return VerifyResult{}, fmt.Errorf("gateway unreachable: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return VerifyResult{}, fmt.Errorf("gateway returned status %d", resp.StatusCode)
	}

	var body sessionStatusResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return VerifyResult{}, fmt.Errorf("failed to decode verify response: %w", err)
	}

	return VerifyResult{Status: body.Status, TransactionID: body.TransactionID, PaidAt: body.PaidAt}, nil
}
