package repository

import (
	"context"

	"storefront/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type PaymentRepository interface {
	Create(ctx context.Context, payment *model.Payment) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.Payment, error)
	FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*model.Payment, error)
	FindByExternalID(ctx context.Context, externalID string) (*model.Payment, error)
	FindPendingByOrderAndMethod(ctx context.Context, orderID uuid.UUID, method string) (*model.Payment, error)
	Update(ctx context.Context, payment *model.Payment) error
	ListByOrder(ctx context.Context, orderID uuid.UUID) ([]model.Payment, error)
	CreateProof(ctx context.Context, proof *model.BankTransferProof) error
	FindProof(ctx context.Context, id uuid.UUID) (*model.BankTransferProof, error)
	UpdateProof(ctx context.Context, proof *model.BankTransferProof) error
	ListProofsByPayment(ctx context.Context, paymentID uuid.UUID) ([]model.BankTransferProof, error)
}

type paymentRepository struct {
	db *gorm.DB
}

func NewPaymentRepository(db *gorm.DB) PaymentRepository {
	return &paymentRepository{db: db}
}

func (r *paymentRepository) Create(ctx context.Context, payment *model.Payment) error {
	return GetDB(ctx, r.db).Create(payment).Error
}

func (r *paymentRepository) FindByID(ctx context.Context, id uuid.UUID) (*model.Payment, error) {
	var payment model.Payment
	if err := GetDB(ctx, r.db).First(&payment, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &payment, nil
}

// FindByIDForUpdate locks the payment row; duplicate webhook deliveries for
// the same payment serialize on this lock.
func (r *paymentRepository) FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*model.Payment, error) {
	var payment model.Payment
	if err := GetDB(ctx, r.db).Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&payment, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &payment, nil
}

func (r *paymentRepository) FindByExternalID(ctx context.Context, externalID string) (*model.Payment, error) {
	var payment model.Payment
	if err := GetDB(ctx, r.db).Where("external_id = ?", externalID).First(&payment).Error; err != nil {
		return nil, err
	}
	return &payment, nil
}

func (r *paymentRepository) FindPendingByOrderAndMethod(ctx context.Context, orderID uuid.UUID, method string) (*model.Payment, error) {
	var payment model.Payment
	if err := GetDB(ctx, r.db).
		Where("order_id = ? AND method = ? AND status = ?", orderID, method, model.PaymentStatusPending).
		Order("created_at DESC").
		First(&payment).Error; err != nil {
		return nil, err
	}
	return &payment, nil
}

func (r *paymentRepository) Update(ctx context.Context, payment *model.Payment) error {
	return GetDB(ctx, r.db).Save(payment).Error
}

func (r *paymentRepository) ListByOrder(ctx context.Context, orderID uuid.UUID) ([]model.Payment, error) {
	var payments []model.Payment
	if err := GetDB(ctx, r.db).Where("order_id = ?", orderID).
		Order("created_at ASC").Find(&payments).Error; err != nil {
		return nil, err
	}
	return payments, nil
}

func (r *paymentRepository) CreateProof(ctx context.Context, proof *model.BankTransferProof) error {
	return GetDB(ctx, r.db).Create(proof).Error
}

func (r *paymentRepository) FindProof(ctx context.Context, id uuid.UUID) (*model.BankTransferProof, error) {
	var proof model.BankTransferProof
	if err := GetDB(ctx, r.db).First(&proof, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &proof, nil
}

func (r *paymentRepository) UpdateProof(ctx context.Context, proof *model.BankTransferProof) error {
	return GetDB(ctx, r.db).Save(proof).Error
}

func (r *paymentRepository) ListProofsByPayment(ctx context.Context, paymentID uuid.UUID) ([]model.BankTransferProof, error) {
	var proofs []model.BankTransferProof
	if err := GetDB(ctx, r.db).Where("payment_id = ?", paymentID).
		Order("created_at ASC").Find(&proofs).Error; err != nil {
		return nil, err
	}
	return proofs, nil
}
