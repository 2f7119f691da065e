package service

import (
	"context"
	"errors"
	"fmt"

	"storefront/internal/model"
	"storefront/internal/repository"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// orderTransitions is the single source of truth for legal status changes.
// draft -> processing is the cash-on-delivery fast path (no payment gate
// blocks fulfillment); draft -> paid covers card sessions verified before the
// order ever reached pending_payment.
var orderTransitions = map[string][]string{
	model.OrderStatusDraft:          {model.OrderStatusPendingPayment, model.OrderStatusProcessing, model.OrderStatusPaid, model.OrderStatusCancelled},
	model.OrderStatusPendingPayment: {model.OrderStatusPaid, model.OrderStatusCancelled},
	model.OrderStatusPaid:           {model.OrderStatusProcessing, model.OrderStatusRefunded, model.OrderStatusCancelled},
	model.OrderStatusProcessing:     {model.OrderStatusPacking, model.OrderStatusCancelled, model.OrderStatusRefunded},
	model.OrderStatusPacking:        {model.OrderStatusShipped, model.OrderStatusRefunded},
	model.OrderStatusShipped:        {model.OrderStatusDelivered, model.OrderStatusRefunded},
	model.OrderStatusDelivered:      {model.OrderStatusRefunded},
	model.OrderStatusCancelled:      {},
	model.OrderStatusRefunded:       {},
}

// CanTransition reports whether from -> to is in the allowed set.
func CanTransition(from, to string) bool {
	for _, allowed := range orderTransitions[from] {
		if allowed == to {
			return true
		}
	}
	return false
}

// OrderDetail bundles an order with its payment attempts.
type OrderDetail struct {
	Order    *model.Order    `json:"order"`
	Payments []model.Payment `json:"payments"`
}

type OrderService interface {
	// Transition moves an order to a new status, applying inventory side
	// effects and the history row atomically. Re-invoking with the current
	// status is a benign no-op (another history row records the attempt).
	Transition(ctx context.Context, orderID uuid.UUID, toStatus, actor, notes string) error
	Get(ctx context.Context, orderID uuid.UUID) (*OrderDetail, error)
	GetByNumber(ctx context.Context, orderNumber string) (*model.Order, error)
	List(ctx context.Context, page, limit int, status string) ([]model.Order, int64, error)
}

type orderService struct {
	orderRepo   repository.OrderRepository
	paymentRepo repository.PaymentRepository
	inventory   InventoryService
	txManager   repository.TransactionManager
	notifier    Notifier
}

func NewOrderService(
	orderRepo repository.OrderRepository,
	paymentRepo repository.PaymentRepository,
	inventory InventoryService,
	txManager repository.TransactionManager,
	notifier Notifier,
) OrderService {
	if notifier == nil {
		notifier = NopNotifier()
	}
	return &orderService{
		orderRepo:   orderRepo,
		paymentRepo: paymentRepo,
		inventory:   inventory,
		txManager:   txManager,
		notifier:    notifier,
	}
}

func (s *orderService) Transition(ctx context.Context, orderID uuid.UUID, toStatus, actor, notes string) error {
	if _, known := orderTransitions[toStatus]; !known {
		return fmt.Errorf("unknown order status %q", toStatus)
	}
	// paid is owned by the payment engine; staff cannot set it directly
	if toStatus == model.OrderStatusPaid {
		return &InvalidTransitionError{From: "manual", To: model.OrderStatusPaid}
	}

	var fromStatus string
	err := s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		order, err := s.orderRepo.FindByIDForUpdate(txCtx, orderID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrOrderNotFound
			}
			return fmt.Errorf("failed to load order: %w", err)
		}
		fromStatus = order.Status

		if order.Status == toStatus {
			// Repeated attempt: record it, change nothing
			return s.orderRepo.CreateStatusHistory(txCtx, &model.OrderStatusHistory{
				OrderID:    order.ID,
				FromStatus: order.Status,
				ToStatus:   toStatus,
				Notes:      "repeated transition attempt: " + notes,
				ChangedBy:  actor,
			})
		}

		if !CanTransition(order.Status, toStatus) {
			return &InvalidTransitionError{From: order.Status, To: toStatus}
		}

		if toStatus == model.OrderStatusCancelled {
			if err := s.releaseIfUncommitted(txCtx, order, actor); err != nil {
				return err
			}
		}

		if err := s.orderRepo.UpdateStatus(txCtx, order.ID, toStatus); err != nil {
			return fmt.Errorf("failed to update order status: %w", err)
		}

		return s.orderRepo.CreateStatusHistory(txCtx, &model.OrderStatusHistory{
			OrderID:    order.ID,
			FromStatus: order.Status,
			ToStatus:   toStatus,
			Notes:      notes,
			ChangedBy:  actor,
		})
	})
	if err != nil {
		return err
	}

	if fromStatus != toStatus {
		switch toStatus {
		case model.OrderStatusShipped:
			s.notifier.Publish(EventOrderShipped, map[string]interface{}{"order_id": orderID.String()})
		case model.OrderStatusDelivered:
			s.notifier.Publish(EventOrderDelivered, map[string]interface{}{"order_id": orderID.String()})
		case model.OrderStatusCancelled:
			s.notifier.Publish(EventOrderCancelled, map[string]interface{}{"order_id": orderID.String()})
		}
	}

	return nil
}

// releaseIfUncommitted returns the order's reservations to the pool unless a
// completed payment already converted them into a sale. Cancelling a paid
// order leaves inventory alone: the units are sold, and putting them back on
// the shelf is a deliberate manual adjustment.
func (s *orderService) releaseIfUncommitted(ctx context.Context, order *model.Order, actor string) error {
	payments, err := s.paymentRepo.ListByOrder(ctx, order.ID)
	if err != nil {
		return fmt.Errorf("failed to load payments for order: %w", err)
	}
	for _, p := range payments {
		if p.Status == model.PaymentStatusCompleted {
			return nil
		}
	}

	for _, item := range order.Items {
		if item.VariantID == nil {
			continue
		}
		if err := s.inventory.Release(ctx, *item.VariantID, item.Quantity, order.ID, actor, "order cancelled"); err != nil {
			return fmt.Errorf("failed to release reservation: %w", err)
		}
	}
	return nil
}

func (s *orderService) Get(ctx context.Context, orderID uuid.UUID) (*OrderDetail, error) {
	order, err := s.orderRepo.FindByIDWithDetails(ctx, orderID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrOrderNotFound
		}
		return nil, fmt.Errorf("failed to load order: %w", err)
	}

	payments, err := s.paymentRepo.ListByOrder(ctx, orderID)
	if err != nil {
		return nil, fmt.Errorf("failed to load payments: %w", err)
	}

	return &OrderDetail{Order: order, Payments: payments}, nil
}

func (s *orderService) GetByNumber(ctx context.Context, orderNumber string) (*model.Order, error) {
	order, err := s.orderRepo.FindByNumber(ctx, orderNumber)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrOrderNotFound
		}
		return nil, fmt.Errorf("failed to load order: %w", err)
	}
	return order, nil
}

func (s *orderService) List(ctx context.Context, page, limit int, status string) ([]model.Order, int64, error) {
	if page <= 0 {
		page = 1
	}
	if limit <= 0 {
		limit = 20
	}
	return s.orderRepo.List(ctx, page, limit, status)
}
