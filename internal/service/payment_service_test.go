package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"storefront/internal/gateway"
	"storefront/internal/model"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type paymentFixture struct {
	paymentRepo   *mockPaymentRepo
	orderRepo     *mockOrderRepo
	inventoryRepo *mockInventoryRepo
	gw            *mockGateway
	notifier      *recordingNotifier
	tx            *fakeTxManager
	svc           PaymentService
}

func newPaymentFixture() *paymentFixture {
	f := &paymentFixture{
		paymentRepo:   new(mockPaymentRepo),
		orderRepo:     new(mockOrderRepo),
		inventoryRepo: new(mockInventoryRepo),
		gw:            new(mockGateway),
		notifier:      &recordingNotifier{},
		tx:            &fakeTxManager{},
	}
	inventory := NewInventoryService(f.inventoryRepo, f.tx, nil)
	f.svc = NewPaymentService(f.paymentRepo, f.orderRepo, inventory, f.gw, f.tx, f.notifier, "USD",
		"https://shop.example/api/webhooks/payment")
	return f
}

// expectCommit wires the inventory mocks for a successful CommitSale of qty
// units against variantID.
func (f *paymentFixture) expectCommit(variantID uuid.UUID, qty int) {
	f.inventoryRepo.On("FindByVariantForUpdate", mock.Anything, variantID).
		Return(&model.InventoryItem{ID: uuid.New(), VariantID: variantID, Quantity: 50, ReservedQuantity: qty, LowStockThreshold: 1}, nil)
	f.inventoryRepo.On("CreateMovement", mock.Anything, mock.MatchedBy(func(mv *model.InventoryMovement) bool {
		return mv.Type == model.MovementSale && mv.Quantity == -qty
	})).Return(nil)
	f.inventoryRepo.On("UpdateCounters", mock.Anything, mock.Anything).Return(nil)
}

func TestInitiateCardHappyPath(t *testing.T) {
	f := newPaymentFixture()
	orderID := uuid.New()
	order := &model.Order{ID: orderID, OrderNumber: "ORD-20260830-AAAA1111", Status: model.OrderStatusDraft, Total: d("71.00")}

	f.orderRepo.On("FindByID", mock.Anything, orderID).Return(order, nil)
	f.paymentRepo.On("Create", mock.Anything, mock.MatchedBy(func(p *model.Payment) bool {
		return p.OrderID == orderID &&
			p.Method == model.PaymentMethodCard &&
			p.Status == model.PaymentStatusPending &&
			p.Amount.Equal(d("71.00")) &&
			p.IdempotencyKey != ""
	})).Return(nil)
	f.gw.On("Initiate", mock.Anything, mock.MatchedBy(func(req gateway.InitiateRequest) bool {
		// The webhook endpoint goes over as the notify URL, never the
		// customer's return page.
		return req.Amount.Equal(d("71.00")) &&
			req.OrderRef == order.OrderNumber &&
			req.NotifyURL == "https://shop.example/api/webhooks/payment"
	})).Return(gateway.InitiateResult{SessionID: "sess_123", PaymentURL: "https://pay.example/sess_123"}, nil)
	f.paymentRepo.On("Update", mock.Anything, mock.MatchedBy(func(p *model.Payment) bool {
		return p.ExternalID == "sess_123" && p.ExternalStatus == gateway.StatusPending
	})).Return(nil)
	f.orderRepo.On("UpdateStatus", mock.Anything, orderID, model.OrderStatusPendingPayment).Return(nil)
	f.orderRepo.On("CreateStatusHistory", mock.Anything, mock.MatchedBy(func(h *model.OrderStatusHistory) bool {
		return h.FromStatus == model.OrderStatusDraft && h.ToStatus == model.OrderStatusPendingPayment
	})).Return(nil)

	initiation, err := f.svc.Initiate(context.Background(), orderID, model.PaymentMethodCard, InitiateOptions{Actor: "guest"})
	require.NoError(t, err)

	assert.Equal(t, "https://pay.example/sess_123", initiation.PaymentURL)
	assert.Equal(t, model.OrderStatusPendingPayment, initiation.OrderStatus)
	f.paymentRepo.AssertExpectations(t)
	f.orderRepo.AssertExpectations(t)
}

func TestInitiateCardGatewayFailure(t *testing.T) {
	f := newPaymentFixture()
	orderID := uuid.New()
	order := &model.Order{ID: orderID, Status: model.OrderStatusDraft, Total: d("10.00")}

	f.orderRepo.On("FindByID", mock.Anything, orderID).Return(order, nil)
	f.paymentRepo.On("Create", mock.Anything, mock.Anything).Return(nil)
	f.gw.On("Initiate", mock.Anything, mock.Anything).
		Return(gateway.InitiateResult{}, errors.New("connection refused"))
	f.paymentRepo.On("Update", mock.Anything, mock.MatchedBy(func(p *model.Payment) bool {
		return p.Status == model.PaymentStatusFailed && p.FailureReason != ""
	})).Return(nil)

	_, err := f.svc.Initiate(context.Background(), orderID, model.PaymentMethodCard, InitiateOptions{})
	require.Error(t, err)

	// Order stays at draft so the customer can retry.
	f.orderRepo.AssertNotCalled(t, "UpdateStatus", mock.Anything, mock.Anything, mock.Anything)
	f.paymentRepo.AssertExpectations(t)
}

func TestInitiateCODMovesOrderToProcessing(t *testing.T) {
	f := newPaymentFixture()
	orderID := uuid.New()
	order := &model.Order{ID: orderID, Status: model.OrderStatusDraft, Total: d("20.00")}

	f.orderRepo.On("FindByID", mock.Anything, orderID).Return(order, nil)
	f.paymentRepo.On("Create", mock.Anything, mock.MatchedBy(func(p *model.Payment) bool {
		return p.Method == model.PaymentMethodCOD && p.Status == model.PaymentStatusPending
	})).Return(nil)
	f.orderRepo.On("UpdateStatus", mock.Anything, orderID, model.OrderStatusProcessing).Return(nil)
	f.orderRepo.On("CreateStatusHistory", mock.Anything, mock.MatchedBy(func(h *model.OrderStatusHistory) bool {
		return h.ToStatus == model.OrderStatusProcessing
	})).Return(nil)

	initiation, err := f.svc.Initiate(context.Background(), orderID, model.PaymentMethodCOD, InitiateOptions{Actor: "guest"})
	require.NoError(t, err)

	assert.Equal(t, model.OrderStatusProcessing, initiation.OrderStatus)
	assert.Empty(t, initiation.PaymentURL)
}

func TestInitiateBankTransferAwaitsPayment(t *testing.T) {
	f := newPaymentFixture()
	orderID := uuid.New()
	order := &model.Order{ID: orderID, Status: model.OrderStatusDraft, Total: d("20.00")}

	f.orderRepo.On("FindByID", mock.Anything, orderID).Return(order, nil)
	f.paymentRepo.On("Create", mock.Anything, mock.Anything).Return(nil)
	f.orderRepo.On("UpdateStatus", mock.Anything, orderID, model.OrderStatusPendingPayment).Return(nil)
	f.orderRepo.On("CreateStatusHistory", mock.Anything, mock.Anything).Return(nil)

	initiation, err := f.svc.Initiate(context.Background(), orderID, model.PaymentMethodBankTransfer, InitiateOptions{})
	require.NoError(t, err)
	assert.Equal(t, model.OrderStatusPendingPayment, initiation.OrderStatus)
}

func TestInitiateRejectsWrongOrderStatus(t *testing.T) {
	f := newPaymentFixture()
	orderID := uuid.New()
	f.orderRepo.On("FindByID", mock.Anything, orderID).
		Return(&model.Order{ID: orderID, Status: model.OrderStatusShipped}, nil)

	_, err := f.svc.Initiate(context.Background(), orderID, model.PaymentMethodCard, InitiateOptions{})
	require.Error(t, err)
	f.paymentRepo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestVerifyCardCompleted(t *testing.T) {
	f := newPaymentFixture()
	orderID := uuid.New()
	paymentID := uuid.New()
	variantID := uuid.New()

	payment := &model.Payment{ID: paymentID, OrderID: orderID, Method: model.PaymentMethodCard, Status: model.PaymentStatusPending, ExternalID: "sess_123"}
	order := &model.Order{
		ID: orderID, Status: model.OrderStatusPendingPayment,
		Items: []model.OrderItem{{VariantID: &variantID, Quantity: 2}},
	}

	f.paymentRepo.On("FindByExternalID", mock.Anything, "sess_123").Return(payment, nil)
	f.gw.On("Verify", mock.Anything, "sess_123").
		Return(gateway.VerifyResult{Status: gateway.StatusCompleted, TransactionID: "txn_9"}, nil)
	f.paymentRepo.On("FindByIDForUpdate", mock.Anything, paymentID).Return(payment, nil)
	f.orderRepo.On("FindByIDForUpdate", mock.Anything, orderID).Return(order, nil)
	f.paymentRepo.On("ListByOrder", mock.Anything, orderID).Return([]model.Payment{*payment}, nil)
	f.expectCommit(variantID, 2)
	f.paymentRepo.On("Update", mock.Anything, mock.MatchedBy(func(p *model.Payment) bool {
		return p.Status == model.PaymentStatusCompleted && p.ProcessedAt != nil
	})).Return(nil)
	f.orderRepo.On("UpdateStatus", mock.Anything, orderID, model.OrderStatusPaid).Return(nil)
	f.orderRepo.On("CreateStatusHistory", mock.Anything, mock.MatchedBy(func(h *model.OrderStatusHistory) bool {
		return h.ToStatus == model.OrderStatusPaid
	})).Return(nil)

	result, err := f.svc.VerifyCard(context.Background(), "sess_123")
	require.NoError(t, err)

	assert.Equal(t, model.PaymentStatusCompleted, result.PaymentStatus)
	assert.Contains(t, f.notifier.published(), EventOrderPaid)
	f.inventoryRepo.AssertExpectations(t)
	f.orderRepo.AssertExpectations(t)
}

func TestVerifyCardIdempotentAfterSuccess(t *testing.T) {
	f := newPaymentFixture()
	paymentID := uuid.New()
	orderID := uuid.New()

	f.paymentRepo.On("FindByExternalID", mock.Anything, "sess_123").
		Return(&model.Payment{ID: paymentID, OrderID: orderID, Status: model.PaymentStatusCompleted, ExternalID: "sess_123"}, nil)

	result, err := f.svc.VerifyCard(context.Background(), "sess_123")
	require.NoError(t, err)

	assert.Equal(t, model.PaymentStatusCompleted, result.PaymentStatus)
	// Duplicate webhook: no gateway round-trip, no writes.
	f.gw.AssertNotCalled(t, "Verify", mock.Anything, mock.Anything)
	f.paymentRepo.AssertNotCalled(t, "Update", mock.Anything, mock.Anything)
	assert.Equal(t, 0, f.tx.calls)
}

func TestVerifyCardFailureLeavesOrderAlone(t *testing.T) {
	f := newPaymentFixture()
	paymentID := uuid.New()
	orderID := uuid.New()
	payment := &model.Payment{ID: paymentID, OrderID: orderID, Status: model.PaymentStatusPending, ExternalID: "sess_123"}

	f.paymentRepo.On("FindByExternalID", mock.Anything, "sess_123").Return(payment, nil)
	f.gw.On("Verify", mock.Anything, "sess_123").
		Return(gateway.VerifyResult{Status: gateway.StatusFailed}, nil)
	f.paymentRepo.On("FindByIDForUpdate", mock.Anything, paymentID).Return(payment, nil)
	f.paymentRepo.On("Update", mock.Anything, mock.MatchedBy(func(p *model.Payment) bool {
		return p.Status == model.PaymentStatusFailed
	})).Return(nil)

	result, err := f.svc.VerifyCard(context.Background(), "sess_123")
	require.NoError(t, err)

	assert.Equal(t, model.PaymentStatusFailed, result.PaymentStatus)
	assert.Contains(t, f.notifier.published(), EventPaymentFailed)
	// The customer may retry with a new payment; the order is untouched.
	f.orderRepo.AssertNotCalled(t, "UpdateStatus", mock.Anything, mock.Anything, mock.Anything)
	f.inventoryRepo.AssertNotCalled(t, "FindByVariantForUpdate", mock.Anything, mock.Anything)
}

func TestVerifyCardUnknownSession(t *testing.T) {
	f := newPaymentFixture()
	f.paymentRepo.On("FindByExternalID", mock.Anything, "sess_unknown").Return(nil, gorm.ErrRecordNotFound)

	_, err := f.svc.VerifyCard(context.Background(), "sess_unknown")
	assert.True(t, errors.Is(err, ErrPaymentNotFound))
}

func TestVerifyCardPendingIsNoOp(t *testing.T) {
	f := newPaymentFixture()
	payment := &model.Payment{ID: uuid.New(), OrderID: uuid.New(), Status: model.PaymentStatusPending, ExternalID: "sess_123"}

	f.paymentRepo.On("FindByExternalID", mock.Anything, "sess_123").Return(payment, nil)
	f.gw.On("Verify", mock.Anything, "sess_123").
		Return(gateway.VerifyResult{Status: gateway.StatusPending}, nil)

	result, err := f.svc.VerifyCard(context.Background(), "sess_123")
	require.NoError(t, err)

	assert.Equal(t, model.PaymentStatusPending, result.PaymentStatus)
	assert.Equal(t, 0, f.tx.calls)
}

func TestSuccessNeverDoubleCommitsInventory(t *testing.T) {
	f := newPaymentFixture()
	orderID := uuid.New()
	paymentID := uuid.New()
	variantID := uuid.New()

	payment := &model.Payment{ID: paymentID, OrderID: orderID, Status: model.PaymentStatusPending, ExternalID: "sess_2"}
	order := &model.Order{
		ID: orderID, Status: model.OrderStatusPaid,
		Items: []model.OrderItem{{VariantID: &variantID, Quantity: 2}},
	}

	f.paymentRepo.On("FindByExternalID", mock.Anything, "sess_2").Return(payment, nil)
	f.gw.On("Verify", mock.Anything, "sess_2").
		Return(gateway.VerifyResult{Status: gateway.StatusCompleted}, nil)
	f.paymentRepo.On("FindByIDForUpdate", mock.Anything, paymentID).Return(payment, nil)
	f.orderRepo.On("FindByIDForUpdate", mock.Anything, orderID).Return(order, nil)
	// A different payment already settled this order.
	f.paymentRepo.On("ListByOrder", mock.Anything, orderID).Return([]model.Payment{
		{ID: uuid.New(), OrderID: orderID, Status: model.PaymentStatusCompleted},
		*payment,
	}, nil)
	f.paymentRepo.On("Update", mock.Anything, mock.Anything).Return(nil)
	f.orderRepo.On("CreateStatusHistory", mock.Anything, mock.Anything).Return(nil)

	_, err := f.svc.VerifyCard(context.Background(), "sess_2")
	require.NoError(t, err)

	f.inventoryRepo.AssertNotCalled(t, "FindByVariantForUpdate", mock.Anything, mock.Anything)
}

func TestSubmitProofValidations(t *testing.T) {
	f := newPaymentFixture()

	cardID := uuid.New()
	f.paymentRepo.On("FindByID", mock.Anything, cardID).
		Return(&model.Payment{ID: cardID, Method: model.PaymentMethodCard, Status: model.PaymentStatusPending}, nil)
	_, err := f.svc.SubmitProof(context.Background(), cardID, "https://files.example/p.png", "")
	assert.Error(t, err, "proof only applies to bank transfers")

	settledID := uuid.New()
	f.paymentRepo.On("FindByID", mock.Anything, settledID).
		Return(&model.Payment{ID: settledID, Method: model.PaymentMethodBankTransfer, Status: model.PaymentStatusCompleted}, nil)
	_, err = f.svc.SubmitProof(context.Background(), settledID, "https://files.example/p.png", "")
	assert.Error(t, err, "settled payment accepts no further proof")
}

func TestSubmitProofHappyPath(t *testing.T) {
	f := newPaymentFixture()
	paymentID := uuid.New()

	f.paymentRepo.On("FindByID", mock.Anything, paymentID).
		Return(&model.Payment{ID: paymentID, Method: model.PaymentMethodBankTransfer, Status: model.PaymentStatusPending}, nil)
	f.paymentRepo.On("CreateProof", mock.Anything, mock.MatchedBy(func(p *model.BankTransferProof) bool {
		return p.PaymentID == paymentID && p.FileURL == "https://files.example/slip.png" && p.Approved == nil
	})).Return(nil)

	proof, err := f.svc.SubmitProof(context.Background(), paymentID, "https://files.example/slip.png", "paid from acct 001")
	require.NoError(t, err)

	assert.Nil(t, proof.VerifiedAt, "upload alone must not verify anything")
	// No order movement on upload.
	f.orderRepo.AssertNotCalled(t, "UpdateStatus", mock.Anything, mock.Anything, mock.Anything)
}

func TestReviewProofRejectionNeedsNotes(t *testing.T) {
	f := newPaymentFixture()

	err := f.svc.ReviewProof(context.Background(), uuid.New(), false, "staff-1", "")
	assert.True(t, errors.Is(err, ErrRejectNeedsNotes))
}

func TestReviewProofAlreadyReviewed(t *testing.T) {
	f := newPaymentFixture()
	proofID := uuid.New()
	now := time.Now()

	f.paymentRepo.On("FindProof", mock.Anything, proofID).
		Return(&model.BankTransferProof{ID: proofID, VerifiedAt: &now}, nil)

	err := f.svc.ReviewProof(context.Background(), proofID, true, "staff-1", "")
	assert.True(t, errors.Is(err, ErrAlreadyReviewed))
	assert.Equal(t, 0, f.tx.calls)
}

func TestReviewProofSecondReviewerLosesUnderLock(t *testing.T) {
	f := newPaymentFixture()
	orderID := uuid.New()
	paymentID := uuid.New()
	proofID := uuid.New()
	now := time.Now()
	approved := true

	payment := &model.Payment{ID: paymentID, OrderID: orderID, Method: model.PaymentMethodBankTransfer, Status: model.PaymentStatusCompleted}

	// Both reviewers read the proof before either commits: the unlocked
	// pre-check sees it unreviewed, the re-read under the payment lock sees
	// the first verdict already stamped.
	f.paymentRepo.On("FindProof", mock.Anything, proofID).
		Return(&model.BankTransferProof{ID: proofID, PaymentID: paymentID}, nil).Once()
	f.paymentRepo.On("FindByIDForUpdate", mock.Anything, paymentID).Return(payment, nil)
	f.paymentRepo.On("FindProof", mock.Anything, proofID).
		Return(&model.BankTransferProof{
			ID: proofID, PaymentID: paymentID,
			Approved: &approved, VerifiedAt: &now, VerifiedBy: "staff-1",
		}, nil).Once()

	err := f.svc.ReviewProof(context.Background(), proofID, false, "staff-2", "amount mismatch")

	assert.True(t, errors.Is(err, ErrAlreadyReviewed))
	// The approved verdict stands untouched; no restamp, no order movement.
	f.paymentRepo.AssertNotCalled(t, "UpdateProof", mock.Anything, mock.Anything)
	f.paymentRepo.AssertNotCalled(t, "Update", mock.Anything, mock.Anything)
	f.orderRepo.AssertNotCalled(t, "FindByIDForUpdate", mock.Anything, mock.Anything)
}

func TestReviewProofApproveMarksPaid(t *testing.T) {
	f := newPaymentFixture()
	orderID := uuid.New()
	paymentID := uuid.New()
	proofID := uuid.New()
	variantID := uuid.New()

	payment := &model.Payment{ID: paymentID, OrderID: orderID, Method: model.PaymentMethodBankTransfer, Status: model.PaymentStatusPending}
	order := &model.Order{
		ID: orderID, Status: model.OrderStatusPendingPayment,
		Items: []model.OrderItem{{VariantID: &variantID, Quantity: 1}},
	}

	f.paymentRepo.On("FindProof", mock.Anything, proofID).
		Return(&model.BankTransferProof{ID: proofID, PaymentID: paymentID}, nil)
	f.paymentRepo.On("FindByIDForUpdate", mock.Anything, paymentID).Return(payment, nil)
	f.paymentRepo.On("UpdateProof", mock.Anything, mock.MatchedBy(func(p *model.BankTransferProof) bool {
		return p.Approved != nil && *p.Approved && p.VerifiedAt != nil && p.VerifiedBy == "staff-1"
	})).Return(nil)
	f.orderRepo.On("FindByIDForUpdate", mock.Anything, orderID).Return(order, nil)
	f.paymentRepo.On("ListByOrder", mock.Anything, orderID).Return([]model.Payment{*payment}, nil)
	f.expectCommit(variantID, 1)
	f.paymentRepo.On("Update", mock.Anything, mock.MatchedBy(func(p *model.Payment) bool {
		return p.Status == model.PaymentStatusCompleted
	})).Return(nil)
	f.orderRepo.On("UpdateStatus", mock.Anything, orderID, model.OrderStatusPaid).Return(nil)
	f.orderRepo.On("CreateStatusHistory", mock.Anything, mock.MatchedBy(func(h *model.OrderStatusHistory) bool {
		return h.ToStatus == model.OrderStatusPaid
	})).Return(nil)

	err := f.svc.ReviewProof(context.Background(), proofID, true, "staff-1", "matched bank statement")
	require.NoError(t, err)

	assert.Contains(t, f.notifier.published(), EventOrderPaid)
	f.paymentRepo.AssertExpectations(t)
	f.orderRepo.AssertExpectations(t)
}

func TestReviewProofRejectCancelsAndReleases(t *testing.T) {
	f := newPaymentFixture()
	orderID := uuid.New()
	paymentID := uuid.New()
	proofID := uuid.New()
	variantID := uuid.New()

	payment := &model.Payment{ID: paymentID, OrderID: orderID, Method: model.PaymentMethodBankTransfer, Status: model.PaymentStatusPending}
	order := &model.Order{
		ID: orderID, Status: model.OrderStatusPendingPayment,
		Items: []model.OrderItem{{VariantID: &variantID, Quantity: 3}},
	}

	f.paymentRepo.On("FindProof", mock.Anything, proofID).
		Return(&model.BankTransferProof{ID: proofID, PaymentID: paymentID}, nil)
	f.paymentRepo.On("FindByIDForUpdate", mock.Anything, paymentID).Return(payment, nil)
	f.paymentRepo.On("UpdateProof", mock.Anything, mock.MatchedBy(func(p *model.BankTransferProof) bool {
		return p.Approved != nil && !*p.Approved && p.VerificationNotes == "amount mismatch"
	})).Return(nil)
	f.paymentRepo.On("Update", mock.Anything, mock.MatchedBy(func(p *model.Payment) bool {
		return p.Status == model.PaymentStatusFailed
	})).Return(nil)
	f.orderRepo.On("FindByIDForUpdate", mock.Anything, orderID).Return(order, nil)
	f.inventoryRepo.On("FindByVariantForUpdate", mock.Anything, variantID).
		Return(&model.InventoryItem{ID: uuid.New(), VariantID: variantID, Quantity: 10, ReservedQuantity: 3}, nil)
	f.inventoryRepo.On("CreateMovement", mock.Anything, mock.MatchedBy(func(mv *model.InventoryMovement) bool {
		return mv.Type == model.MovementReleased && mv.Quantity == -3
	})).Return(nil)
	f.inventoryRepo.On("UpdateCounters", mock.Anything, mock.Anything).Return(nil)
	f.orderRepo.On("UpdateStatus", mock.Anything, orderID, model.OrderStatusCancelled).Return(nil)
	f.orderRepo.On("CreateStatusHistory", mock.Anything, mock.MatchedBy(func(h *model.OrderStatusHistory) bool {
		return h.ToStatus == model.OrderStatusCancelled
	})).Return(nil)

	err := f.svc.ReviewProof(context.Background(), proofID, false, "staff-1", "amount mismatch")
	require.NoError(t, err)

	assert.Contains(t, f.notifier.published(), EventOrderCancelled)
	f.inventoryRepo.AssertExpectations(t)
	f.orderRepo.AssertExpectations(t)
}

func TestCollectCODCommitsWithoutStatusChange(t *testing.T) {
	f := newPaymentFixture()
	orderID := uuid.New()
	paymentID := uuid.New()
	variantID := uuid.New()

	payment := &model.Payment{ID: paymentID, OrderID: orderID, Method: model.PaymentMethodCOD, Status: model.PaymentStatusPending}
	order := &model.Order{
		ID: orderID, Status: model.OrderStatusShipped,
		Items: []model.OrderItem{{VariantID: &variantID, Quantity: 1}},
	}

	f.paymentRepo.On("FindPendingByOrderAndMethod", mock.Anything, orderID, model.PaymentMethodCOD).Return(payment, nil)
	f.paymentRepo.On("FindByIDForUpdate", mock.Anything, paymentID).Return(payment, nil)
	f.orderRepo.On("FindByIDForUpdate", mock.Anything, orderID).Return(order, nil)
	f.paymentRepo.On("ListByOrder", mock.Anything, orderID).Return([]model.Payment{*payment}, nil)
	f.expectCommit(variantID, 1)
	f.paymentRepo.On("Update", mock.Anything, mock.MatchedBy(func(p *model.Payment) bool {
		return p.Status == model.PaymentStatusCompleted
	})).Return(nil)
	// Fulfilment status is untouched; an audit row still lands.
	f.orderRepo.On("CreateStatusHistory", mock.Anything, mock.MatchedBy(func(h *model.OrderStatusHistory) bool {
		return h.FromStatus == model.OrderStatusShipped && h.ToStatus == model.OrderStatusShipped
	})).Return(nil)

	err := f.svc.CollectCOD(context.Background(), orderID, "courier-7")
	require.NoError(t, err)

	f.orderRepo.AssertNotCalled(t, "UpdateStatus", mock.Anything, mock.Anything, mock.Anything)
	f.paymentRepo.AssertExpectations(t)
	f.inventoryRepo.AssertExpectations(t)
}

func TestCollectCODRejectsUndeliveredOrder(t *testing.T) {
	f := newPaymentFixture()
	orderID := uuid.New()
	paymentID := uuid.New()

	payment := &model.Payment{ID: paymentID, OrderID: orderID, Method: model.PaymentMethodCOD, Status: model.PaymentStatusPending}
	order := &model.Order{ID: orderID, Status: model.OrderStatusProcessing}

	f.paymentRepo.On("FindPendingByOrderAndMethod", mock.Anything, orderID, model.PaymentMethodCOD).Return(payment, nil)
	f.orderRepo.On("FindByIDForUpdate", mock.Anything, orderID).Return(order, nil)

	err := f.svc.CollectCOD(context.Background(), orderID, "courier-7")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "cannot collect COD")
	f.paymentRepo.AssertNotCalled(t, "Update", mock.Anything, mock.Anything)
	f.inventoryRepo.AssertNotCalled(t, "UpdateCounters", mock.Anything, mock.Anything)
}

func TestCollectCODWithoutPendingPayment(t *testing.T) {
	f := newPaymentFixture()
	orderID := uuid.New()

	f.paymentRepo.On("FindPendingByOrderAndMethod", mock.Anything, orderID, model.PaymentMethodCOD).
		Return(nil, gorm.ErrRecordNotFound)

	err := f.svc.CollectCOD(context.Background(), orderID, "courier-7")
	assert.True(t, errors.Is(err, ErrPaymentNotFound))
}
