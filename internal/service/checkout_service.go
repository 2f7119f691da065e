package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"storefront/internal/model"
	"storefront/internal/repository"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

const orderNumberAttempts = 3

// CheckoutRequest is the validated checkout form.
type CheckoutRequest struct {
	CustomerName    string                 `json:"customer_name" binding:"required"`
	CustomerEmail   string                 `json:"customer_email" binding:"required,email"`
	CustomerPhone   string                 `json:"customer_phone"`
	ShippingAddress model.AddressSnapshot  `json:"shipping_address" binding:"required"`
	BillingAddress  *model.AddressSnapshot `json:"billing_address"`
	ShippingMethod  string                 `json:"shipping_method" binding:"required,oneof=standard express"`
	PaymentMethod   string                 `json:"payment_method" binding:"required,oneof=card bank_transfer cod"`
	DiscountAmount  decimal.Decimal        `json:"discount_amount"`
	CustomerNotes   string                 `json:"customer_notes"`
	SaveAddress     bool                   `json:"save_address"`
	ReturnURL       string                 `json:"return_url"`
	CancelURL       string                 `json:"cancel_url"`

	UserID *uuid.UUID `json:"-"` // from session, nil for guests
}

// CheckoutResult is returned to the storefront after a successful checkout.
type CheckoutResult struct {
	OrderID     uuid.UUID `json:"order_id"`
	OrderNumber string    `json:"order_number"`
	PaymentID   uuid.UUID `json:"payment_id,omitempty"`
	PaymentURL  string    `json:"payment_url,omitempty"`
	// PaymentError is set when the order was created but payment initiation
	// failed; the customer retries initiation against the existing order.
	PaymentError string `json:"payment_error,omitempty"`
}

// CheckoutService turns a validated cart into a persisted order: totals,
// order + line snapshots, inventory reservations, history and cart clearing
// all succeed or fail as one transaction.
type CheckoutService interface {
	Checkout(ctx context.Context, cartID uuid.UUID, req CheckoutRequest) (*CheckoutResult, error)
}

type checkoutService struct {
	cartSvc     CartService
	payments    PaymentService
	inventory   InventoryService
	orderRepo   repository.OrderRepository
	cartRepo    repository.CartRepository
	addressRepo repository.AddressRepository
	shipping    ShippingPolicy
	taxes       TaxPolicy
	txManager   repository.TransactionManager
	notifier    Notifier
}

func NewCheckoutService(
	cartSvc CartService,
	payments PaymentService,
	inventory InventoryService,
	orderRepo repository.OrderRepository,
	cartRepo repository.CartRepository,
	addressRepo repository.AddressRepository,
	shipping ShippingPolicy,
	taxes TaxPolicy,
	txManager repository.TransactionManager,
	notifier Notifier,
) CheckoutService {
	if notifier == nil {
		notifier = NopNotifier()
	}
	return &checkoutService{
		cartSvc:     cartSvc,
		payments:    payments,
		inventory:   inventory,
		orderRepo:   orderRepo,
		cartRepo:    cartRepo,
		addressRepo: addressRepo,
		shipping:    shipping,
		taxes:       taxes,
		txManager:   txManager,
		notifier:    notifier,
	}
}

func (s *checkoutService) Checkout(ctx context.Context, cartID uuid.UUID, req CheckoutRequest) (*CheckoutResult, error) {
	if req.DiscountAmount.IsNegative() {
		return nil, fmt.Errorf("discount amount cannot be negative")
	}

	actor := "guest"
	if req.UserID != nil {
		actor = req.UserID.String()
	}

	var order *model.Order
	var validation *CartValidationResult

	// Order-number collisions abort the whole transaction; retry with a
	// fresh number rather than overwriting anything.
	var err error
	for attempt := 0; attempt < orderNumberAttempts; attempt++ {
		orderNumber := generateOrderNumber()

		err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
			// Re-validate inside the transaction: prices and stock may have
			// changed since the cart page was rendered.
			v, err := s.cartSvc.Validate(txCtx, cartID)
			if err != nil {
				return err
			}
			if !v.OK {
				validation = v
				return ErrCartInvalid
			}
			validation = v

			// Discount can zero out the goods but never exceed them: with
			// shipping and tax both non-negative the stored total stays >= 0.
			if req.DiscountAmount.GreaterThan(v.Subtotal) {
				return &CheckoutValidationError{Problems: []string{"discount amount exceeds the cart subtotal"}}
			}

			shippingCost := s.shipping.Cost(req.ShippingMethod, v.Subtotal)
			taxable := v.Subtotal.Sub(req.DiscountAmount)
			if taxable.IsNegative() {
				taxable = decimal.Zero
			}
			taxAmount := s.taxes.Tax(txCtx, taxable)
			total := v.Subtotal.Add(shippingCost).Add(taxAmount).Sub(req.DiscountAmount)

			shippingJSON, err := json.Marshal(req.ShippingAddress)
			if err != nil {
				return fmt.Errorf("failed to snapshot shipping address: %w", err)
			}
			billing := req.ShippingAddress
			if req.BillingAddress != nil {
				billing = *req.BillingAddress
			}
			billingJSON, err := json.Marshal(billing)
			if err != nil {
				return fmt.Errorf("failed to snapshot billing address: %w", err)
			}

			order = &model.Order{
				OrderNumber:     orderNumber,
				UserID:          req.UserID,
				Status:          model.OrderStatusDraft,
				CustomerName:    req.CustomerName,
				CustomerEmail:   req.CustomerEmail,
				CustomerPhone:   req.CustomerPhone,
				ShippingAddress: string(shippingJSON),
				BillingAddress:  string(billingJSON),
				ShippingMethod:  req.ShippingMethod,
				Subtotal:        v.Subtotal,
				ShippingCost:    shippingCost,
				TaxAmount:       taxAmount,
				DiscountAmount:  req.DiscountAmount,
				Total:           total,
				CustomerNotes:   req.CustomerNotes,
			}
			if err := s.orderRepo.Create(txCtx, order); err != nil {
				return fmt.Errorf("failed to create order: %w", err)
			}

			for _, line := range v.Items {
				variantID := line.VariantID
				item := &model.OrderItem{
					OrderID:     order.ID,
					VariantID:   &variantID,
					ProductName: line.ProductName,
					VariantName: line.VariantName,
					SKU:         line.SKU,
					UnitPrice:   line.UnitPrice,
					Quantity:    line.Quantity,
					Subtotal:    line.Subtotal,
				}
				if err := s.orderRepo.CreateItem(txCtx, item); err != nil {
					return fmt.Errorf("failed to create order item: %w", err)
				}

				// Any failed reservation aborts the transaction, rolling
				// back the order and every earlier reservation with it.
				if err := s.inventory.Reserve(txCtx, line.VariantID, line.Quantity, order.ID, actor); err != nil {
					return err
				}
			}

			if err := s.orderRepo.CreateStatusHistory(txCtx, &model.OrderStatusHistory{
				OrderID:   order.ID,
				ToStatus:  model.OrderStatusDraft,
				Notes:     "order created at checkout",
				ChangedBy: actor,
			}); err != nil {
				return fmt.Errorf("failed to create status history: %w", err)
			}

			if err := s.cartRepo.DeleteItems(txCtx, cartID); err != nil {
				return fmt.Errorf("failed to clear cart: %w", err)
			}

			if req.SaveAddress && req.UserID != nil {
				addr := &model.CustomerAddress{
					UserID:     *req.UserID,
					Recipient:  req.ShippingAddress.Recipient,
					Phone:      req.ShippingAddress.Phone,
					Line1:      req.ShippingAddress.Line1,
					Line2:      req.ShippingAddress.Line2,
					City:       req.ShippingAddress.City,
					Province:   req.ShippingAddress.Province,
					PostalCode: req.ShippingAddress.PostalCode,
				}
				if err := s.addressRepo.Create(txCtx, addr); err != nil {
					return fmt.Errorf("failed to save address: %w", err)
				}
			}

			return nil
		})

		if err == nil {
			break
		}
		if !errors.Is(err, gorm.ErrDuplicatedKey) {
			break
		}
		log.Printf("checkout: order number collision on %s, retrying", orderNumber)
	}

	if err != nil {
		if errors.Is(err, ErrCartInvalid) && validation != nil {
			return nil, &CheckoutValidationError{Problems: validation.Problems}
		}
		return nil, err
	}

	result := &CheckoutResult{OrderID: order.ID, OrderNumber: order.OrderNumber}

	s.notifier.Publish(EventOrderCreated, map[string]interface{}{
		"order_id":     order.ID.String(),
		"order_number": order.OrderNumber,
		"total":        order.Total.StringFixed(2),
	})

	// Payment initiation is deliberately outside the checkout transaction: a
	// gateway outage must not destroy the created order. The customer can
	// retry initiation against the existing order.
	initiated, err := s.payments.Initiate(ctx, order.ID, req.PaymentMethod, InitiateOptions{
		ReturnURL: req.ReturnURL,
		CancelURL: req.CancelURL,
		Actor:     actor,
	})
	if err != nil {
		log.Printf("checkout: payment initiation failed for order %s: %v", order.OrderNumber, err)
		result.PaymentError = "failed to initiate payment, please retry"
		return result, nil
	}

	result.PaymentID = initiated.PaymentID
	result.PaymentURL = initiated.PaymentURL
	return result, nil
}

// CheckoutValidationError carries the per-item problems found during the
// in-transaction revalidation.
type CheckoutValidationError struct {
	Problems []string
}

func (e *CheckoutValidationError) Error() string {
	return "cart failed validation: " + strings.Join(e.Problems, "; ")
}

// generateOrderNumber builds a human-readable order number from the date and
// a random suffix. Uniqueness is enforced by the database constraint, not
// here; callers retry on collision.
func generateOrderNumber() string {
	suffix := strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:8])
	return fmt.Sprintf("ORD-%s-%s", time.Now().Format("20060102"), suffix)
}
