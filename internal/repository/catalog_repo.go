package repository

import (
	"context"

	"storefront/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// CatalogRepository exposes the read-only slice of catalog data the order
// core consumes: variant price/activity and the owning product's status.
type CatalogRepository interface {
	FindVariant(ctx context.Context, id uuid.UUID) (*model.ProductVariant, error)
	FindVariants(ctx context.Context, ids []uuid.UUID) ([]model.ProductVariant, error)
}

type catalogRepository struct {
	db *gorm.DB
}

func NewCatalogRepository(db *gorm.DB) CatalogRepository {
	return &catalogRepository{db: db}
}

func (r *catalogRepository) FindVariant(ctx context.Context, id uuid.UUID) (*model.ProductVariant, error) {
	var variant model.ProductVariant
	if err := GetDB(ctx, r.db).Preload("Product").First(&variant, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &variant, nil
}

func (r *catalogRepository) FindVariants(ctx context.Context, ids []uuid.UUID) ([]model.ProductVariant, error) {
	var variants []model.ProductVariant
	if err := GetDB(ctx, r.db).Preload("Product").Where("id IN ?", ids).Find(&variants).Error; err != nil {
		return nil, err
	}
	return variants, nil
}
