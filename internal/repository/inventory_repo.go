package repository

import (
	"context"

	"storefront/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type InventoryRepository interface {
	FindByVariant(ctx context.Context, variantID uuid.UUID) (*model.InventoryItem, error)
	// FindByVariantForUpdate acquires a row lock (SELECT ... FOR UPDATE) so
	// concurrent reserve/commit/release calls for the same variant serialize.
	FindByVariantForUpdate(ctx context.Context, variantID uuid.UUID) (*model.InventoryItem, error)
	UpdateCounters(ctx context.Context, item *model.InventoryItem) error
	CreateMovement(ctx context.Context, movement *model.InventoryMovement) error
	ListMovements(ctx context.Context, itemID uuid.UUID, page, limit int) ([]model.InventoryMovement, int64, error)
	List(ctx context.Context, page, limit int, lowStockOnly bool) ([]model.InventoryItem, int64, error)
}

type inventoryRepository struct {
	db *gorm.DB
}

func NewInventoryRepository(db *gorm.DB) InventoryRepository {
	return &inventoryRepository{db: db}
}

func (r *inventoryRepository) FindByVariant(ctx context.Context, variantID uuid.UUID) (*model.InventoryItem, error) {
	var item model.InventoryItem
	if err := GetDB(ctx, r.db).Where("variant_id = ?", variantID).First(&item).Error; err != nil {
		return nil, err
	}
	return &item, nil
}

func (r *inventoryRepository) FindByVariantForUpdate(ctx context.Context, variantID uuid.UUID) (*model.InventoryItem, error) {
	var item model.InventoryItem
	if err := GetDB(ctx, r.db).Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("variant_id = ?", variantID).First(&item).Error; err != nil {
		return nil, err
	}
	return &item, nil
}

// UpdateCounters persists quantity/reserved_quantity. Only the ledger service
// may call this, and only inside the same transaction as the movement write.
func (r *inventoryRepository) UpdateCounters(ctx context.Context, item *model.InventoryItem) error {
	return GetDB(ctx, r.db).Model(&model.InventoryItem{}).Where("id = ?", item.ID).
		Updates(map[string]interface{}{
			"quantity":          item.Quantity,
			"reserved_quantity": item.ReservedQuantity,
		}).Error
}

func (r *inventoryRepository) CreateMovement(ctx context.Context, movement *model.InventoryMovement) error {
	return GetDB(ctx, r.db).Create(movement).Error
}

func (r *inventoryRepository) ListMovements(ctx context.Context, itemID uuid.UUID, page, limit int) ([]model.InventoryMovement, int64, error) {
	var movements []model.InventoryMovement
	var total int64

	db := GetDB(ctx, r.db).Model(&model.InventoryMovement{}).Where("inventory_item_id = ?", itemID)
	if err := db.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	offset := (page - 1) * limit
	if err := db.Order("created_at DESC").Offset(offset).Limit(limit).Find(&movements).Error; err != nil {
		return nil, 0, err
	}

	return movements, total, nil
}

func (r *inventoryRepository) List(ctx context.Context, page, limit int, lowStockOnly bool) ([]model.InventoryItem, int64, error) {
	var items []model.InventoryItem
	var total int64

	db := GetDB(ctx, r.db).Model(&model.InventoryItem{})
	if lowStockOnly {
		db = db.Where("quantity - reserved_quantity <= low_stock_threshold")
	}

	if err := db.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	offset := (page - 1) * limit
	if err := db.Order("updated_at DESC").Offset(offset).Limit(limit).Find(&items).Error; err != nil {
		return nil, 0, err
	}

	return items, total, nil
}
