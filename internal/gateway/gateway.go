package gateway

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// Gateway-side session statuses as reported by Verify.
const (
	StatusCompleted = "completed"
	StatusFailed    = "failed"
	StatusCancelled = "cancelled"
	StatusPending   = "pending"
)

// InitiateRequest carries everything the gateway needs to open a hosted
// payment session.
type InitiateRequest struct {
	Amount    decimal.Decimal
	Currency  string
	OrderRef  string
	ReturnURL string
	CancelURL string
	NotifyURL string
}

// InitiateResult is the gateway's session handle plus the URL the customer
// is redirected to.
type InitiateResult struct {
	SessionID  string
	PaymentURL string
}

// VerifyResult is the authoritative session state fetched from the gateway.
type VerifyResult struct {
	Status        string
	TransactionID string
	PaidAt        *time.Time
}

// PaymentGateway is the external card-payment provider. Verify may be called
// repeatedly for the same session; it is a read, not a mutation.
type PaymentGateway interface {
	Initiate(ctx context.Context, req InitiateRequest) (InitiateResult, error)
	Verify(ctx context.Context, sessionID string) (VerifyResult, error)
}
