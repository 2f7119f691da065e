package model

import (
	"time"

	"github.com/google/uuid"
)

// MovementType enum constants. "reserved" and "released" move the hold
// counter only; every other type moves physical stock.
const (
	MovementPurchase   = "purchase"
	MovementSale       = "sale"
	MovementAdjustment = "adjustment"
	MovementReturn     = "return"
	MovementTransfer   = "transfer"
	MovementDamaged    = "damaged"
	MovementReserved   = "reserved"
	MovementReleased   = "released"
)

// Reference types linking a movement back to the event that caused it
const (
	MovementRefOrder   = "order"
	MovementRefPayment = "payment"
	MovementRefManual  = "manual"
)

// InventoryItem is the current-state stock row for one purchasable variant.
// It is a materialized cache over the movement ledger: never written outside
// the ledger operations, and 0 <= reserved_quantity <= quantity must hold.
type InventoryItem struct {
	ID                uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	VariantID         uuid.UUID `gorm:"type:uuid;uniqueIndex;not null" json:"variant_id"`
	Quantity          int       `gorm:"type:int;not null;default:0" json:"quantity"`
	ReservedQuantity  int       `gorm:"type:int;not null;default:0" json:"reserved_quantity"`
	LowStockThreshold int       `gorm:"type:int;not null;default:5" json:"low_stock_threshold"`
	CreatedAt         time.Time `json:"created_at"`
	UpdatedAt         time.Time `json:"updated_at"`
}

// Available returns the quantity still open for sale.
func (i InventoryItem) Available() int {
	return i.Quantity - i.ReservedQuantity
}

// InventoryMovement is one append-only ledger entry. Rows are created exactly
// once per stock-affecting event and never updated or deleted; replaying them
// from zero reproduces the owning item's counters.
type InventoryMovement struct {
	ID               uuid.UUID  `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	InventoryItemID  uuid.UUID  `gorm:"type:uuid;not null;index" json:"inventory_item_id"`
	Type             string     `gorm:"type:varchar(20);not null;index" json:"type"`
	Quantity         int        `gorm:"type:int;not null" json:"quantity"` // signed delta
	PreviousQuantity int        `gorm:"type:int;not null" json:"previous_quantity"`
	NewQuantity      int        `gorm:"type:int;not null" json:"new_quantity"`
	ReferenceType    string     `gorm:"type:varchar(20);index" json:"reference_type"`
	ReferenceID      *uuid.UUID `gorm:"type:uuid;index" json:"reference_id"`
	Notes            string     `gorm:"type:text" json:"notes"`
	CreatedBy        string     `gorm:"type:varchar(100)" json:"created_by"`
	CreatedAt        time.Time  `gorm:"index" json:"created_at"`
}
