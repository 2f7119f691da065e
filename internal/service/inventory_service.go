package service

import (
	"context"
	"fmt"

	"storefront/internal/model"
	"storefront/internal/repository"

	"github.com/google/uuid"
)

// AdjustRequest is a staff stock correction (restock, damage, stocktake).
type AdjustRequest struct {
	VariantID    uuid.UUID
	Delta        int
	MovementType string // purchase, adjustment, return, transfer, damaged
	Reason       string
	Actor        string
}

// AdjustResult reports the counter change applied by an adjustment.
type AdjustResult struct {
	PreviousQuantity int `json:"previous_quantity"`
	NewQuantity      int `json:"new_quantity"`
}

// InventoryService is the stock ledger. Every mutation row-locks the
// inventory item, writes an append-only movement with before/after snapshots
// and updates the cached counters, all in one transaction. Reserve,
// CommitSale and Release expect to run inside the caller's transaction
// context; Adjust opens its own.
type InventoryService interface {
	Reserve(ctx context.Context, variantID uuid.UUID, qty int, orderID uuid.UUID, actor string) error
	CommitSale(ctx context.Context, variantID uuid.UUID, qty int, orderID uuid.UUID, actor string) error
	Release(ctx context.Context, variantID uuid.UUID, qty int, orderID uuid.UUID, actor, notes string) error
	Adjust(ctx context.Context, req AdjustRequest) (*AdjustResult, error)
	GetByVariant(ctx context.Context, variantID uuid.UUID) (*model.InventoryItem, error)
	ListStock(ctx context.Context, page, limit int, lowStockOnly bool) ([]model.InventoryItem, int64, error)
	ListMovements(ctx context.Context, variantID uuid.UUID, page, limit int) ([]model.InventoryMovement, int64, error)
}

type inventoryService struct {
	inventoryRepo repository.InventoryRepository
	txManager     repository.TransactionManager
	notifier      Notifier
}

func NewInventoryService(
	inventoryRepo repository.InventoryRepository,
	txManager repository.TransactionManager,
	notifier Notifier,
) InventoryService {
	if notifier == nil {
		notifier = NopNotifier()
	}
	return &inventoryService{
		inventoryRepo: inventoryRepo,
		txManager:     txManager,
		notifier:      notifier,
	}
}

// Reserve places a hold for an unconfirmed order: reserved_quantity grows,
// physical quantity is untouched, available stock shrinks immediately.
func (s *inventoryService) Reserve(ctx context.Context, variantID uuid.UUID, qty int, orderID uuid.UUID, actor string) error {
	if qty <= 0 {
		return fmt.Errorf("reserve quantity must be positive, got %d", qty)
	}

	item, err := s.inventoryRepo.FindByVariantForUpdate(ctx, variantID)
	if err != nil {
		return fmt.Errorf("inventory item not found for variant %s: %w", variantID, err)
	}

	if item.Available() < qty {
		return &InsufficientStockError{VariantID: variantID, Requested: qty, Available: item.Available()}
	}

	previous := item.ReservedQuantity
	item.ReservedQuantity += qty

	movement := &model.InventoryMovement{
		InventoryItemID:  item.ID,
		Type:             model.MovementReserved,
		Quantity:         qty,
		PreviousQuantity: previous,
		NewQuantity:      item.ReservedQuantity,
		ReferenceType:    model.MovementRefOrder,
		ReferenceID:      &orderID,
		Notes:            "reserved at checkout",
		CreatedBy:        actor,
	}
	if err := s.inventoryRepo.CreateMovement(ctx, movement); err != nil {
		return fmt.Errorf("failed to record reservation movement: %w", err)
	}

	if err := s.inventoryRepo.UpdateCounters(ctx, item); err != nil {
		return fmt.Errorf("failed to update inventory counters: %w", err)
	}

	return nil
}

// CommitSale converts a reservation into a permanent deduction on payment
// success: quantity and reserved_quantity drop together, so available stock
// is unchanged at this step.
func (s *inventoryService) CommitSale(ctx context.Context, variantID uuid.UUID, qty int, orderID uuid.UUID, actor string) error {
	if qty <= 0 {
		return fmt.Errorf("commit quantity must be positive, got %d", qty)
	}

	item, err := s.inventoryRepo.FindByVariantForUpdate(ctx, variantID)
	if err != nil {
		return fmt.Errorf("inventory item not found for variant %s: %w", variantID, err)
	}

	if item.ReservedQuantity < qty {
		return fmt.Errorf("cannot commit sale of %d units for variant %s: only %d reserved", qty, variantID, item.ReservedQuantity)
	}

	previous := item.Quantity
	item.Quantity -= qty
	item.ReservedQuantity -= qty

	movement := &model.InventoryMovement{
		InventoryItemID:  item.ID,
		Type:             model.MovementSale,
		Quantity:         -qty,
		PreviousQuantity: previous,
		NewQuantity:      item.Quantity,
		ReferenceType:    model.MovementRefOrder,
		ReferenceID:      &orderID,
		Notes:            "sale committed on payment confirmation",
		CreatedBy:        actor,
	}
	if err := s.inventoryRepo.CreateMovement(ctx, movement); err != nil {
		return fmt.Errorf("failed to record sale movement: %w", err)
	}

	if err := s.inventoryRepo.UpdateCounters(ctx, item); err != nil {
		return fmt.Errorf("failed to update inventory counters: %w", err)
	}

	if item.Quantity <= item.LowStockThreshold {
		s.notifier.Publish(EventLowStock, map[string]interface{}{
			"variant_id": variantID.String(),
			"quantity":   item.Quantity,
			"threshold":  item.LowStockThreshold,
		})
	}

	return nil
}

// Release returns a reservation to the available pool on cancellation or
// payment failure. Physical quantity is untouched.
func (s *inventoryService) Release(ctx context.Context, variantID uuid.UUID, qty int, orderID uuid.UUID, actor, notes string) error {
	if qty <= 0 {
		return fmt.Errorf("release quantity must be positive, got %d", qty)
	}

	item, err := s.inventoryRepo.FindByVariantForUpdate(ctx, variantID)
	if err != nil {
		return fmt.Errorf("inventory item not found for variant %s: %w", variantID, err)
	}

	if item.ReservedQuantity < qty {
		return fmt.Errorf("cannot release %d units for variant %s: only %d reserved", qty, variantID, item.ReservedQuantity)
	}

	previous := item.ReservedQuantity
	item.ReservedQuantity -= qty

	if notes == "" {
		notes = "reservation released"
	}
	movement := &model.InventoryMovement{
		InventoryItemID:  item.ID,
		Type:             model.MovementReleased,
		Quantity:         -qty,
		PreviousQuantity: previous,
		NewQuantity:      item.ReservedQuantity,
		ReferenceType:    model.MovementRefOrder,
		ReferenceID:      &orderID,
		Notes:            notes,
		CreatedBy:        actor,
	}
	if err := s.inventoryRepo.CreateMovement(ctx, movement); err != nil {
		return fmt.Errorf("failed to record release movement: %w", err)
	}

	if err := s.inventoryRepo.UpdateCounters(ctx, item); err != nil {
		return fmt.Errorf("failed to update inventory counters: %w", err)
	}

	return nil
}

var physicalMovementTypes = map[string]bool{
	model.MovementPurchase:   true,
	model.MovementAdjustment: true,
	model.MovementReturn:     true,
	model.MovementTransfer:   true,
	model.MovementDamaged:    true,
}

// Adjust applies a staff stock correction in its own transaction and reports
// the before/after quantity.
func (s *inventoryService) Adjust(ctx context.Context, req AdjustRequest) (*AdjustResult, error) {
	if req.Delta == 0 {
		return nil, fmt.Errorf("adjustment delta must be non-zero")
	}
	if req.MovementType == "" {
		req.MovementType = model.MovementAdjustment
	}
	if !physicalMovementTypes[req.MovementType] {
		return nil, fmt.Errorf("movement type %q cannot be applied as a manual adjustment", req.MovementType)
	}

	var result AdjustResult
	err := s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		item, err := s.inventoryRepo.FindByVariantForUpdate(txCtx, req.VariantID)
		if err != nil {
			return fmt.Errorf("inventory item not found for variant %s: %w", req.VariantID, err)
		}

		newQuantity := item.Quantity + req.Delta
		if newQuantity < item.ReservedQuantity {
			return &InsufficientStockError{
				VariantID: req.VariantID,
				Requested: -req.Delta,
				Available: item.Available(),
			}
		}

		previous := item.Quantity
		item.Quantity = newQuantity

		movement := &model.InventoryMovement{
			InventoryItemID:  item.ID,
			Type:             req.MovementType,
			Quantity:         req.Delta,
			PreviousQuantity: previous,
			NewQuantity:      newQuantity,
			ReferenceType:    model.MovementRefManual,
			Notes:            req.Reason,
			CreatedBy:        req.Actor,
		}
		if err := s.inventoryRepo.CreateMovement(txCtx, movement); err != nil {
			return fmt.Errorf("failed to record adjustment movement: %w", err)
		}

		if err := s.inventoryRepo.UpdateCounters(txCtx, item); err != nil {
			return fmt.Errorf("failed to update inventory counters: %w", err)
		}

		result = AdjustResult{PreviousQuantity: previous, NewQuantity: newQuantity}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return &result, nil
}

func (s *inventoryService) GetByVariant(ctx context.Context, variantID uuid.UUID) (*model.InventoryItem, error) {
	return s.inventoryRepo.FindByVariant(ctx, variantID)
}

func (s *inventoryService) ListStock(ctx context.Context, page, limit int, lowStockOnly bool) ([]model.InventoryItem, int64, error) {
	if page <= 0 {
		page = 1
	}
	if limit <= 0 {
		limit = 20
	}
	return s.inventoryRepo.List(ctx, page, limit, lowStockOnly)
}

func (s *inventoryService) ListMovements(ctx context.Context, variantID uuid.UUID, page, limit int) ([]model.InventoryMovement, int64, error) {
	if page <= 0 {
		page = 1
	}
	if limit <= 0 {
		limit = 20
	}
	item, err := s.inventoryRepo.FindByVariant(ctx, variantID)
	if err != nil {
		return nil, 0, fmt.Errorf("inventory item not found for variant %s: %w", variantID, err)
	}
	return s.inventoryRepo.ListMovements(ctx, item.ID, page, limit)
}
