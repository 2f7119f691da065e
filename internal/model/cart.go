package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Cart holds a customer's pending selection. The cart row survives checkout;
// only its items are cleared.
type Cart struct {
	ID         uuid.UUID  `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	UserID     *uuid.UUID `gorm:"type:uuid;index" json:"user_id"` // nullable for guest sessions
	SessionKey string     `gorm:"type:varchar(64);index" json:"session_key"`
	Items      []CartItem `gorm:"foreignKey:CartID;constraint:OnDelete:CASCADE" json:"items"`
	CreatedAt  time.Time  `json:"created_at"`
	UpdatedAt  time.Time  `json:"updated_at"`
}

// CartItem is one variant selection. PriceAtAdd is informational only; the
// checkout always reprices from the live catalog.
type CartItem struct {
	ID         uuid.UUID       `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	CartID     uuid.UUID       `gorm:"type:uuid;not null;index" json:"cart_id"`
	VariantID  uuid.UUID       `gorm:"type:uuid;not null;index" json:"variant_id"`
	Quantity   int             `gorm:"type:int;not null" json:"quantity"`
	PriceAtAdd decimal.Decimal `gorm:"type:decimal(18,4);not null" json:"price_at_add"`
	CreatedAt  time.Time       `json:"created_at"`
	UpdatedAt  time.Time       `json:"updated_at"`
}

// CustomerAddress is an address-book entry. Orders copy a frozen snapshot of
// one of these at checkout time rather than referencing it.
type CustomerAddress struct {
	ID         uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	UserID     uuid.UUID `gorm:"type:uuid;not null;index" json:"user_id"`
	Label      string    `gorm:"type:varchar(50)" json:"label"`
	Recipient  string    `gorm:"type:varchar(255);not null" json:"recipient"`
	Phone      string    `gorm:"type:varchar(30)" json:"phone"`
	Line1      string    `gorm:"type:varchar(255);not null" json:"line1"`
	Line2      string    `gorm:"type:varchar(255)" json:"line2"`
	City       string    `gorm:"type:varchar(100);not null" json:"city"`
	Province   string    `gorm:"type:varchar(100)" json:"province"`
	PostalCode string    `gorm:"type:varchar(20)" json:"postal_code"`
	IsDefault  bool      `gorm:"not null;default:false" json:"is_default"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}
