package service

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
)

var (
	ErrEmptyCart        = errors.New("cart is empty")
	ErrCartInvalid      = errors.New("cart failed validation")
	ErrOrderNotFound    = errors.New("order not found")
	ErrPaymentNotFound  = errors.New("payment not found")
	ErrAlreadyReviewed  = errors.New("transfer proof has already been reviewed")
	ErrRejectNeedsNotes = errors.New("rejection requires a reason")
)

// InsufficientStockError reports a reservation or sale that would drive
// available stock negative. The surrounding transaction is expected to roll
// back entirely; the attempt is safely retryable.
type InsufficientStockError struct {
	VariantID uuid.UUID
	Requested int
	Available int
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("insufficient stock for variant %s (requested: %d, available: %d)",
		e.VariantID, e.Requested, e.Available)
}

// InvalidTransitionError names an order status change outside the allowed set.
type InvalidTransitionError struct {
	From string
	To   string
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("invalid order transition %q -> %q", e.From, e.To)
}

// Notifier is the fire-and-forget event sink (websocket hub in production).
// Publishing must never block or fail a business transaction.
type Notifier interface {
	Publish(event string, data map[string]interface{})
}

// Event names published to the hub
const (
	EventOrderCreated   = "order.created"
	EventOrderPaid      = "order.paid"
	EventOrderShipped   = "order.shipped"
	EventOrderDelivered = "order.delivered"
	EventOrderCancelled = "order.cancelled"
	EventPaymentFailed  = "payment.failed"
	EventLowStock       = "inventory.low_stock"
)

// noopNotifier is used when no hub is wired (tests, scripts).
type noopNotifier struct{}

func (noopNotifier) Publish(string, map[string]interface{}) {}

// NopNotifier returns a Notifier that drops every event.
func NopNotifier() Notifier { return noopNotifier{} }
