package repository

import (
	"context"

	"storefront/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type AddressRepository interface {
	Create(ctx context.Context, address *model.CustomerAddress) error
	ListByUser(ctx context.Context, userID uuid.UUID) ([]model.CustomerAddress, error)
}

type addressRepository struct {
	db *gorm.DB
}

func NewAddressRepository(db *gorm.DB) AddressRepository {
	return &addressRepository{db: db}
}

func (r *addressRepository) Create(ctx context.Context, address *model.CustomerAddress) error {
	return GetDB(ctx, r.db).Create(address).Error
}

func (r *addressRepository) ListByUser(ctx context.Context, userID uuid.UUID) ([]model.CustomerAddress, error) {
	var addresses []model.CustomerAddress
	if err := GetDB(ctx, r.db).Where("user_id = ?", userID).
		Order("is_default DESC, created_at DESC").Find(&addresses).Error; err != nil {
		return nil, err
	}
	return addresses, nil
}
