package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"storefront/internal/gateway"
	"storefront/internal/model"
	"storefront/internal/repository"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// InitiateOptions carries the per-request parts of payment initiation.
type InitiateOptions struct {
	ReturnURL string
	CancelURL string
	Actor     string
}

// PaymentInitiation is the handle returned to the customer. PaymentURL is
// only set for card payments (gateway redirect).
type PaymentInitiation struct {
	PaymentID   uuid.UUID `json:"payment_id"`
	Method      string    `json:"method"`
	PaymentURL  string    `json:"payment_url,omitempty"`
	OrderStatus string    `json:"order_status"`
}

// PaymentStatusResult reports the reconciled state after a verification call.
type PaymentStatusResult struct {
	PaymentID     uuid.UUID `json:"payment_id"`
	PaymentStatus string    `json:"payment_status"`
	OrderID       uuid.UUID `json:"order_id"`
}

// PaymentService tracks a payment's lifecycle per method and reconciles the
// outcome against the order and the inventory ledger. All success/failure
// application is idempotent: gateway webhooks are at-least-once and staff
// double-clicks happen.
type PaymentService interface {
	Initiate(ctx context.Context, orderID uuid.UUID, method string, opts InitiateOptions) (*PaymentInitiation, error)
	// VerifyCard fetches the authoritative session state from the gateway
	// and applies the outcome. Return-URL handling and webhooks both land
	// here; calling it twice for the same session is a benign no-op.
	VerifyCard(ctx context.Context, sessionID string) (*PaymentStatusResult, error)
	SubmitProof(ctx context.Context, paymentID uuid.UUID, fileURL, notes string) (*model.BankTransferProof, error)
	ReviewProof(ctx context.Context, proofID uuid.UUID, approve bool, reviewer, notes string) error
	CollectCOD(ctx context.Context, orderID uuid.UUID, actor string) error
}

type paymentService struct {
	paymentRepo repository.PaymentRepository
	orderRepo   repository.OrderRepository
	inventory   InventoryService
	gateway     gateway.PaymentGateway
	txManager   repository.TransactionManager
	notifier    Notifier
	currency    string
	notifyURL   string
}

// NewPaymentService builds the reconciliation engine. notifyURL is this
// service's publicly reachable webhook endpoint, handed to the gateway so
// server-to-server notifications arrive independently of the customer's
// browser.
func NewPaymentService(
	paymentRepo repository.PaymentRepository,
	orderRepo repository.OrderRepository,
	inventory InventoryService,
	gw gateway.PaymentGateway,
	txManager repository.TransactionManager,
	notifier Notifier,
	currency string,
	notifyURL string,
) PaymentService {
	if notifier == nil {
		notifier = NopNotifier()
	}
	if currency == "" {
		currency = "USD"
	}
	return &paymentService{
		paymentRepo: paymentRepo,
		orderRepo:   orderRepo,
		inventory:   inventory,
		gateway:     gw,
		txManager:   txManager,
		notifier:    notifier,
		currency:    currency,
		notifyURL:   notifyURL,
	}
}

func (s *paymentService) Initiate(ctx context.Context, orderID uuid.UUID, method string, opts InitiateOptions) (*PaymentInitiation, error) {
	order, err := s.orderRepo.FindByID(ctx, orderID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrOrderNotFound
		}
		return nil, fmt.Errorf("failed to load order: %w", err)
	}

	if order.Status != model.OrderStatusDraft && order.Status != model.OrderStatusPendingPayment {
		return nil, fmt.Errorf("cannot initiate payment for order in status %q", order.Status)
	}

	payment := &model.Payment{
		OrderID:        order.ID,
		Method:         method,
		Status:         model.PaymentStatusPending,
		Amount:         order.Total,
		Currency:       s.currency,
		IdempotencyKey: uuid.NewString(),
	}

	switch method {
	case model.PaymentMethodCard:
		return s.initiateCard(ctx, order, payment, opts)
	case model.PaymentMethodBankTransfer:
		return s.initiateOffGateway(ctx, order, payment, model.OrderStatusPendingPayment,
			"awaiting bank transfer", opts.Actor)
	case model.PaymentMethodCOD:
		// No payment gate blocks fulfilment: the order moves straight to
		// processing while inventory stays merely reserved.
		return s.initiateOffGateway(ctx, order, payment, model.OrderStatusProcessing,
			"cash on delivery, fulfilment proceeds", opts.Actor)
	default:
		return nil, fmt.Errorf("unsupported payment method %q", method)
	}
}

func (s *paymentService) initiateCard(ctx context.Context, order *model.Order, payment *model.Payment, opts InitiateOptions) (*PaymentInitiation, error) {
	if err := s.paymentRepo.Create(ctx, payment); err != nil {
		return nil, fmt.Errorf("failed to create payment: %w", err)
	}

	session, err := s.gateway.Initiate(ctx, gateway.InitiateRequest{
		Amount:    order.Total,
		Currency:  payment.Currency,
		OrderRef:  order.OrderNumber,
		ReturnURL: opts.ReturnURL,
		CancelURL: opts.CancelURL,
		NotifyURL: s.notifyURL,
	})
	if err != nil {
		// Order stays where it is; customer can retry initiation.
		payment.Status = model.PaymentStatusFailed
		payment.FailureReason = err.Error()
		if updErr := s.paymentRepo.Update(ctx, payment); updErr != nil {
			return nil, fmt.Errorf("failed to record gateway failure: %w", updErr)
		}
		return nil, fmt.Errorf("payment gateway unavailable: %w", err)
	}

	newStatus := order.Status
	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		payment.ExternalID = session.SessionID
		payment.ExternalStatus = gateway.StatusPending
		if err := s.paymentRepo.Update(txCtx, payment); err != nil {
			return fmt.Errorf("failed to attach gateway session: %w", err)
		}

		if order.Status == model.OrderStatusDraft {
			if err := s.orderRepo.UpdateStatus(txCtx, order.ID, model.OrderStatusPendingPayment); err != nil {
				return fmt.Errorf("failed to advance order: %w", err)
			}
			newStatus = model.OrderStatusPendingPayment
			return s.orderRepo.CreateStatusHistory(txCtx, &model.OrderStatusHistory{
				OrderID:    order.ID,
				FromStatus: order.Status,
				ToStatus:   model.OrderStatusPendingPayment,
				Notes:      "card payment session " + session.SessionID,
				ChangedBy:  opts.Actor,
			})
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return &PaymentInitiation{
		PaymentID:   payment.ID,
		Method:      model.PaymentMethodCard,
		PaymentURL:  session.PaymentURL,
		OrderStatus: newStatus,
	}, nil
}

// initiateOffGateway handles the methods with no external session: bank
// transfer and cash on delivery. Payment creation and the order advance are
// one transaction.
func (s *paymentService) initiateOffGateway(ctx context.Context, order *model.Order, payment *model.Payment, toStatus, note, actor string) (*PaymentInitiation, error) {
	newStatus := order.Status
	err := s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		if err := s.paymentRepo.Create(txCtx, payment); err != nil {
			return fmt.Errorf("failed to create payment: %w", err)
		}

		if order.Status == toStatus {
			return nil
		}
		if !CanTransition(order.Status, toStatus) {
			return &InvalidTransitionError{From: order.Status, To: toStatus}
		}
		if err := s.orderRepo.UpdateStatus(txCtx, order.ID, toStatus); err != nil {
			return fmt.Errorf("failed to advance order: %w", err)
		}
		newStatus = toStatus
		return s.orderRepo.CreateStatusHistory(txCtx, &model.OrderStatusHistory{
			OrderID:    order.ID,
			FromStatus: order.Status,
			ToStatus:   toStatus,
			Notes:      note,
			ChangedBy:  actor,
		})
	})
	if err != nil {
		return nil, err
	}

	return &PaymentInitiation{
		PaymentID:   payment.ID,
		Method:      payment.Method,
		OrderStatus: newStatus,
	}, nil
}

func (s *paymentService) VerifyCard(ctx context.Context, sessionID string) (*PaymentStatusResult, error) {
	payment, err := s.paymentRepo.FindByExternalID(ctx, sessionID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrPaymentNotFound
		}
		return nil, fmt.Errorf("failed to load payment: %w", err)
	}

	// Duplicate webhook or repeated return-URL hit after success: nothing
	// left to do, and no gateway round-trip needed.
	if payment.Status == model.PaymentStatusCompleted {
		return &PaymentStatusResult{PaymentID: payment.ID, PaymentStatus: payment.Status, OrderID: payment.OrderID}, nil
	}

	verified, err := s.gateway.Verify(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("gateway verification failed: %w", err)
	}

	switch verified.Status {
	case gateway.StatusCompleted:
		var paid bool
		err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
			paid, err = s.applySuccess(txCtx, payment.ID, true, verified, "gateway")
			return err
		})
		if err != nil {
			return nil, err
		}
		if paid {
			s.notifier.Publish(EventOrderPaid, map[string]interface{}{
				"order_id":   payment.OrderID.String(),
				"payment_id": payment.ID.String(),
			})
		}
		payment.Status = model.PaymentStatusCompleted
	case gateway.StatusFailed, gateway.StatusCancelled:
		// The customer may retry or abandon; the order is left alone.
		err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
			return s.applyFailure(txCtx, payment.ID, "gateway reported "+verified.Status, false, "gateway")
		})
		if err != nil {
			return nil, err
		}
		s.notifier.Publish(EventPaymentFailed, map[string]interface{}{
			"order_id":   payment.OrderID.String(),
			"payment_id": payment.ID.String(),
			"reason":     verified.Status,
		})
		payment.Status = model.PaymentStatusFailed
	case gateway.StatusPending:
		// Not resolved yet; a later verification call will settle it.
	default:
		return nil, fmt.Errorf("unknown gateway status %q", verified.Status)
	}

	return &PaymentStatusResult{PaymentID: payment.ID, PaymentStatus: payment.Status, OrderID: payment.OrderID}, nil
}

func (s *paymentService) SubmitProof(ctx context.Context, paymentID uuid.UUID, fileURL, notes string) (*model.BankTransferProof, error) {
	payment, err := s.paymentRepo.FindByID(ctx, paymentID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrPaymentNotFound
		}
		return nil, fmt.Errorf("failed to load payment: %w", err)
	}

	if payment.Method != model.PaymentMethodBankTransfer {
		return nil, fmt.Errorf("transfer proof only applies to bank transfer payments")
	}
	if payment.Status != model.PaymentStatusPending {
		return nil, fmt.Errorf("payment is already %s", payment.Status)
	}

	proof := &model.BankTransferProof{
		PaymentID: payment.ID,
		FileURL:   fileURL,
		Notes:     notes,
	}
	if err := s.paymentRepo.CreateProof(ctx, proof); err != nil {
		return nil, fmt.Errorf("failed to store transfer proof: %w", err)
	}

	// Uploading alone changes nothing on the order; staff review does.
	return proof, nil
}

func (s *paymentService) ReviewProof(ctx context.Context, proofID uuid.UUID, approve bool, reviewer, notes string) error {
	if !approve && notes == "" {
		return ErrRejectNeedsNotes
	}

	proof, err := s.paymentRepo.FindProof(ctx, proofID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("transfer proof not found: %w", err)
		}
		return fmt.Errorf("failed to load transfer proof: %w", err)
	}
	if proof.VerifiedAt != nil {
		return ErrAlreadyReviewed
	}

	var paid bool
	var orderID uuid.UUID
	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		payment, err := s.paymentRepo.FindByIDForUpdate(txCtx, proof.PaymentID)
		if err != nil {
			return fmt.Errorf("failed to load payment: %w", err)
		}
		orderID = payment.OrderID

		// Re-read under the payment lock: two concurrent reviews both pass
		// the unlocked check above, but they serialize here and the loser
		// must not restamp a verified proof.
		proof, err = s.paymentRepo.FindProof(txCtx, proof.ID)
		if err != nil {
			return fmt.Errorf("failed to load transfer proof: %w", err)
		}
		if proof.VerifiedAt != nil {
			return ErrAlreadyReviewed
		}

		now := time.Now()
		approved := approve
		proof.Approved = &approved
		proof.VerifiedAt = &now
		proof.VerifiedBy = reviewer
		proof.VerificationNotes = notes
		if err := s.paymentRepo.UpdateProof(txCtx, proof); err != nil {
			return fmt.Errorf("failed to stamp transfer proof: %w", err)
		}

		if approve {
			paid, err = s.applySuccess(txCtx, payment.ID, true, gateway.VerifyResult{Status: gateway.StatusCompleted}, reviewer)
			return err
		}
		// Rejection cancels the order and returns the reservation.
		return s.applyFailure(txCtx, payment.ID, "transfer proof rejected: "+notes, true, reviewer)
	})
	if err != nil {
		return err
	}

	if paid {
		s.notifier.Publish(EventOrderPaid, map[string]interface{}{"order_id": orderID.String()})
	} else if !approve {
		s.notifier.Publish(EventOrderCancelled, map[string]interface{}{"order_id": orderID.String()})
	}
	return nil
}

func (s *paymentService) CollectCOD(ctx context.Context, orderID uuid.UUID, actor string) error {
	payment, err := s.paymentRepo.FindPendingByOrderAndMethod(ctx, orderID, model.PaymentMethodCOD)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrPaymentNotFound
		}
		return fmt.Errorf("failed to load COD payment: %w", err)
	}

	// Collection converts the reservation into a committed sale; the order
	// keeps its fulfilment status. Cash changes hands at the door, so the
	// order must have left the warehouse first.
	return s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		order, err := s.orderRepo.FindByIDForUpdate(txCtx, orderID)
		if err != nil {
			return fmt.Errorf("failed to lock order: %w", err)
		}
		if order.Status != model.OrderStatusShipped && order.Status != model.OrderStatusDelivered {
			return fmt.Errorf("cannot collect COD for order in status %q", order.Status)
		}

		_, err = s.applySuccess(txCtx, payment.ID, false, gateway.VerifyResult{Status: gateway.StatusCompleted}, actor)
		return err
	})
}

// applySuccess is the shared success core: payment completed, inventory
// committed, order advanced to paid (when markPaid), history written — all in
// the caller's transaction. Safe to call more than once per payment: an
// already-completed payment short-circuits to a no-op, and an order already
// paid by another payment never double-commits inventory.
func (s *paymentService) applySuccess(txCtx context.Context, paymentID uuid.UUID, markPaid bool, verified gateway.VerifyResult, actor string) (bool, error) {
	payment, err := s.paymentRepo.FindByIDForUpdate(txCtx, paymentID)
	if err != nil {
		return false, fmt.Errorf("failed to lock payment: %w", err)
	}

	if payment.Status == model.PaymentStatusCompleted {
		return false, nil
	}
	if payment.Status == model.PaymentStatusFailed {
		return false, fmt.Errorf("payment %s already failed and cannot complete", payment.ID)
	}

	order, err := s.orderRepo.FindByIDForUpdate(txCtx, payment.OrderID)
	if err != nil {
		return false, fmt.Errorf("failed to lock order: %w", err)
	}

	// If a different payment row already settled this order, the inventory
	// was committed then; committing again would double-decrement stock.
	alreadySettled, err := s.orderSettled(txCtx, order.ID, payment.ID)
	if err != nil {
		return false, err
	}
	if !alreadySettled {
		for _, item := range order.Items {
			if item.VariantID == nil {
				continue
			}
			if err := s.inventory.CommitSale(txCtx, *item.VariantID, item.Quantity, order.ID, actor); err != nil {
				return false, err
			}
		}
	}

	now := time.Now()
	payment.Status = model.PaymentStatusCompleted
	payment.ExternalStatus = verified.Status
	payment.ProcessedAt = &now
	if err := s.paymentRepo.Update(txCtx, payment); err != nil {
		return false, fmt.Errorf("failed to update payment: %w", err)
	}

	historyNotes := "payment " + payment.Method + " confirmed"
	if verified.TransactionID != "" {
		historyNotes += " (gateway transaction " + verified.TransactionID + ")"
	}

	if markPaid && order.Status != model.OrderStatusPaid {
		if !CanTransition(order.Status, model.OrderStatusPaid) {
			return false, &InvalidTransitionError{From: order.Status, To: model.OrderStatusPaid}
		}
		if err := s.orderRepo.UpdateStatus(txCtx, order.ID, model.OrderStatusPaid); err != nil {
			return false, fmt.Errorf("failed to mark order paid: %w", err)
		}
		if err := s.orderRepo.CreateStatusHistory(txCtx, &model.OrderStatusHistory{
			OrderID:    order.ID,
			FromStatus: order.Status,
			ToStatus:   model.OrderStatusPaid,
			Notes:      historyNotes,
			ChangedBy:  actor,
		}); err != nil {
			return false, fmt.Errorf("failed to write status history: %w", err)
		}
		return true, nil
	}

	// COD collection: no status change, still an auditable event.
	if err := s.orderRepo.CreateStatusHistory(txCtx, &model.OrderStatusHistory{
		OrderID:    order.ID,
		FromStatus: order.Status,
		ToStatus:   order.Status,
		Notes:      historyNotes,
		ChangedBy:  actor,
	}); err != nil {
		return false, fmt.Errorf("failed to write status history: %w", err)
	}
	return false, nil
}

// applyFailure marks the payment failed and, when cancelOrder is set (bank
// transfer rejection), cancels the order and releases its reservations.
func (s *paymentService) applyFailure(txCtx context.Context, paymentID uuid.UUID, reason string, cancelOrder bool, actor string) error {
	payment, err := s.paymentRepo.FindByIDForUpdate(txCtx, paymentID)
	if err != nil {
		return fmt.Errorf("failed to lock payment: %w", err)
	}

	if payment.Status == model.PaymentStatusCompleted {
		// A success already applied wins over a late failure report.
		return nil
	}
	if payment.Status != model.PaymentStatusFailed {
		now := time.Now()
		payment.Status = model.PaymentStatusFailed
		payment.FailureReason = reason
		payment.ProcessedAt = &now
		if err := s.paymentRepo.Update(txCtx, payment); err != nil {
			return fmt.Errorf("failed to update payment: %w", err)
		}
	}

	if !cancelOrder {
		return nil
	}

	order, err := s.orderRepo.FindByIDForUpdate(txCtx, payment.OrderID)
	if err != nil {
		return fmt.Errorf("failed to lock order: %w", err)
	}
	if order.Status == model.OrderStatusCancelled {
		return nil
	}
	if !CanTransition(order.Status, model.OrderStatusCancelled) {
		return &InvalidTransitionError{From: order.Status, To: model.OrderStatusCancelled}
	}

	for _, item := range order.Items {
		if item.VariantID == nil {
			continue
		}
		if err := s.inventory.Release(txCtx, *item.VariantID, item.Quantity, order.ID, actor, reason); err != nil {
			return fmt.Errorf("failed to release reservation: %w", err)
		}
	}

	if err := s.orderRepo.UpdateStatus(txCtx, order.ID, model.OrderStatusCancelled); err != nil {
		return fmt.Errorf("failed to cancel order: %w", err)
	}
	return s.orderRepo.CreateStatusHistory(txCtx, &model.OrderStatusHistory{
		OrderID:    order.ID,
		FromStatus: order.Status,
		ToStatus:   model.OrderStatusCancelled,
		Notes:      reason,
		ChangedBy:  actor,
	})
}

// orderSettled reports whether any payment other than exclude has already
// completed for the order.
func (s *paymentService) orderSettled(ctx context.Context, orderID, exclude uuid.UUID) (bool, error) {
	payments, err := s.paymentRepo.ListByOrder(ctx, orderID)
	if err != nil {
		return false, fmt.Errorf("failed to list payments: %w", err)
	}
	for _, p := range payments {
		if p.ID != exclude && p.Status == model.PaymentStatusCompleted {
			return true, nil
		}
	}
	return false, nil
}
