package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// PaymentMethod enum constants
const (
	PaymentMethodCard         = "card"
	PaymentMethodBankTransfer = "bank_transfer"
	PaymentMethodCOD          = "cod"
)

// PaymentStatus enum constants
const (
	PaymentStatusPending   = "pending"
	PaymentStatusCompleted = "completed"
	PaymentStatusFailed    = "failed"
)

// Payment is one payment attempt against an order. Retries create new rows;
// a row is never recycled. The idempotency key guards side effects: one key
// maps to at most one successful application.
type Payment struct {
	ID             uuid.UUID       `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	OrderID        uuid.UUID       `gorm:"type:uuid;not null;index" json:"order_id"`
	Method         string          `gorm:"type:varchar(20);not null" json:"method"`
	Status         string          `gorm:"type:varchar(20);not null;default:'pending';index" json:"status"`
	Amount         decimal.Decimal `gorm:"type:decimal(18,4);not null" json:"amount"`
	Currency       string          `gorm:"type:varchar(8);not null;default:'USD'" json:"currency"`
	ExternalID     string          `gorm:"type:varchar(128);index" json:"external_id"` // gateway session/transaction ref
	ExternalStatus string          `gorm:"type:varchar(32)" json:"external_status"`
	IdempotencyKey string          `gorm:"type:varchar(64);uniqueIndex;not null" json:"idempotency_key"`
	FailureReason  string          `gorm:"type:text" json:"failure_reason"`
	ProcessedAt    *time.Time      `json:"processed_at"`
	CreatedAt      time.Time       `json:"created_at"`
	UpdatedAt      time.Time       `json:"updated_at"`
}

// BankTransferProof is customer-uploaded evidence for a bank-transfer payment.
// Verification fields are stamped once by staff review and never changed after.
type BankTransferProof struct {
	ID             uuid.UUID  `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	PaymentID      uuid.UUID  `gorm:"type:uuid;not null;index" json:"payment_id"`
	FileURL        string     `gorm:"type:varchar(512);not null" json:"file_url"`
	Notes          string     `gorm:"type:text" json:"notes"`
	Approved       *bool      `json:"approved"` // nil until reviewed
	VerifiedAt     *time.Time `json:"verified_at"`
	VerifiedBy     string     `gorm:"type:varchar(100)" json:"verified_by"`
	VerificationNotes string  `gorm:"type:text" json:"verification_notes"`
	CreatedAt      time.Time  `json:"created_at"`
}
