package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// OrderStatus constants — lifecycle states of an order
const (
	OrderStatusDraft          = "draft"
	OrderStatusPendingPayment = "pending_payment"
	OrderStatusPaid           = "paid"
	OrderStatusProcessing     = "processing"
	OrderStatusPacking        = "packing"
	OrderStatusShipped        = "shipped"
	OrderStatusDelivered      = "delivered"
	OrderStatusCancelled      = "cancelled"
	OrderStatusRefunded       = "refunded"
)

// ShippingMethod constants
const (
	ShippingStandard = "standard"
	ShippingExpress  = "express"
)

// Order is one checkout. Addresses are frozen JSON snapshots so later edits
// to the customer's address book never rewrite history. Orders are never
// physically deleted; cancellation is a status.
type Order struct {
	ID              uuid.UUID       `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	OrderNumber     string          `gorm:"type:varchar(30);uniqueIndex;not null" json:"order_number"`
	UserID          *uuid.UUID      `gorm:"type:uuid;index" json:"user_id"` // nullable: guest checkout
	Status          string          `gorm:"type:varchar(20);not null;default:'draft';index" json:"status"`
	CustomerName    string          `gorm:"type:varchar(255);not null" json:"customer_name"`
	CustomerEmail   string          `gorm:"type:varchar(255);not null" json:"customer_email"`
	CustomerPhone   string          `gorm:"type:varchar(30)" json:"customer_phone"`
	ShippingAddress string          `gorm:"type:jsonb;not null" json:"shipping_address"`
	BillingAddress  string          `gorm:"type:jsonb" json:"billing_address"`
	ShippingMethod  string          `gorm:"type:varchar(20);not null;default:'standard'" json:"shipping_method"`
	Subtotal        decimal.Decimal `gorm:"type:decimal(18,4);not null" json:"subtotal"`
	ShippingCost    decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0" json:"shipping_cost"`
	TaxAmount       decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0" json:"tax_amount"`
	DiscountAmount  decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0" json:"discount_amount"`
	Total           decimal.Decimal `gorm:"type:decimal(18,4);not null" json:"total"`
	CustomerNotes   string          `gorm:"type:text" json:"customer_notes"`
	Items           []OrderItem     `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE" json:"items"`
	StatusHistory   []OrderStatusHistory `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE" json:"status_history,omitempty"`
	CreatedAt       time.Time       `gorm:"index" json:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at"`
}

// OrderItem is a line item with product/variant/price copied at order time.
// Immutable after creation even if the catalog row is edited or removed.
type OrderItem struct {
	ID          uuid.UUID       `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	OrderID     uuid.UUID       `gorm:"type:uuid;not null;index" json:"order_id"`
	VariantID   *uuid.UUID      `gorm:"type:uuid;index" json:"variant_id"` // convenience link, nullable if variant later removed
	ProductName string          `gorm:"type:varchar(255);not null" json:"product_name"`
	VariantName string          `gorm:"type:varchar(255)" json:"variant_name"`
	SKU         string          `gorm:"type:varchar(100);not null" json:"sku"`
	UnitPrice   decimal.Decimal `gorm:"type:decimal(18,4);not null" json:"unit_price"`
	Quantity    int             `gorm:"type:int;not null" json:"quantity"`
	Subtotal    decimal.Decimal `gorm:"type:decimal(18,4);not null" json:"subtotal"`
	CreatedAt   time.Time       `json:"created_at"`
}

// OrderStatusHistory is one append-only audit row per transition attempt.
// Rows are never updated; repeated attempts at the same target status are
// recorded as additional rows.
type OrderStatusHistory struct {
	ID         uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	OrderID    uuid.UUID `gorm:"type:uuid;not null;index" json:"order_id"`
	FromStatus string    `gorm:"type:varchar(20)" json:"from_status"` // empty on creation
	ToStatus   string    `gorm:"type:varchar(20);not null" json:"to_status"`
	Notes      string    `gorm:"type:text" json:"notes"`
	ChangedBy  string    `gorm:"type:varchar(100)" json:"changed_by"`
	CreatedAt  time.Time `gorm:"index" json:"created_at"`
}

// AddressSnapshot is the denormalized shape frozen into Order address columns.
type AddressSnapshot struct {
	Recipient  string `json:"recipient"`
	Phone      string `json:"phone"`
	Line1      string `json:"line1"`
	Line2      string `json:"line2,omitempty"`
	City       string `json:"city"`
	Province   string `json:"province"`
	PostalCode string `json:"postal_code"`
}
