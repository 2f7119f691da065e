package repository

import (
	"context"

	"storefront/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type CartRepository interface {
	FindByIDWithItems(ctx context.Context, id uuid.UUID) (*model.Cart, error)
	DeleteItems(ctx context.Context, cartID uuid.UUID) error
}

type cartRepository struct {
	db *gorm.DB
}

func NewCartRepository(db *gorm.DB) CartRepository {
	return &cartRepository{db: db}
}

func (r *cartRepository) FindByIDWithItems(ctx context.Context, id uuid.UUID) (*model.Cart, error) {
	var cart model.Cart
	if err := GetDB(ctx, r.db).Preload("Items").First(&cart, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &cart, nil
}

// DeleteItems empties the cart after a successful checkout. The cart row
// itself stays for reuse.
func (r *cartRepository) DeleteItems(ctx context.Context, cartID uuid.UUID) error {
	return GetDB(ctx, r.db).Where("cart_id = ?", cartID).Delete(&model.CartItem{}).Error
}
