package repository

import (
	"context"
	"time"

	"storefront/internal/model"

	"gorm.io/gorm"
)

type TaxRuleRepository interface {
	// FindEffective returns the rule whose validity window covers at.
	FindEffective(ctx context.Context, at time.Time) (*model.TaxRule, error)
}

type taxRuleRepository struct {
	db *gorm.DB
}

func NewTaxRuleRepository(db *gorm.DB) TaxRuleRepository {
	return &taxRuleRepository{db: db}
}

func (r *taxRuleRepository) FindEffective(ctx context.Context, at time.Time) (*model.TaxRule, error) {
	var rule model.TaxRule
	if err := GetDB(ctx, r.db).
		Where("effective_from <= ? AND (effective_to IS NULL OR effective_to >= ?)", at, at).
		Order("effective_from DESC").
		First(&rule).Error; err != nil {
		return nil, err
	}
	return &rule, nil
}
