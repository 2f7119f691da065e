package service

import (
	"context"
	"errors"
	"fmt"

	"storefront/internal/model"
	"storefront/internal/repository"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// ValidatedItem is a cart line that passed validation, repriced from the
// live catalog.
type ValidatedItem struct {
	VariantID   uuid.UUID       `json:"variant_id"`
	ProductName string          `json:"product_name"`
	VariantName string          `json:"variant_name"`
	SKU         string          `json:"sku"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
	Quantity    int             `json:"quantity"`
	Subtotal    decimal.Decimal `json:"subtotal"`
}

// CartValidationResult collects every problem in the cart at once rather
// than failing on the first, so the storefront can show them all.
type CartValidationResult struct {
	OK        bool            `json:"ok"`
	Items     []ValidatedItem `json:"items"`
	Subtotal  decimal.Decimal `json:"subtotal"`
	ItemCount int             `json:"item_count"`
	Problems  []string        `json:"problems,omitempty"`
}

type CartService interface {
	Validate(ctx context.Context, cartID uuid.UUID) (*CartValidationResult, error)
}

type cartService struct {
	cartRepo      repository.CartRepository
	catalogRepo   repository.CatalogRepository
	inventoryRepo repository.InventoryRepository
}

func NewCartService(
	cartRepo repository.CartRepository,
	catalogRepo repository.CatalogRepository,
	inventoryRepo repository.InventoryRepository,
) CartService {
	return &cartService{
		cartRepo:      cartRepo,
		catalogRepo:   catalogRepo,
		inventoryRepo: inventoryRepo,
	}
}

// Validate checks every cart line against catalog availability and current
// stock. An empty cart is a validation failure, not an empty success.
func (s *cartService) Validate(ctx context.Context, cartID uuid.UUID) (*CartValidationResult, error) {
	cart, err := s.cartRepo.FindByIDWithItems(ctx, cartID)
	if err != nil {
		return nil, fmt.Errorf("cart not found: %w", err)
	}

	result := &CartValidationResult{Subtotal: decimal.Zero}

	if len(cart.Items) == 0 {
		result.Problems = append(result.Problems, ErrEmptyCart.Error())
		return result, nil
	}

	for _, line := range cart.Items {
		variant, err := s.catalogRepo.FindVariant(ctx, line.VariantID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				result.Problems = append(result.Problems, "an item in your cart is no longer available")
				continue
			}
			return nil, fmt.Errorf("failed to look up variant %s: %w", line.VariantID, err)
		}

		label := variant.SKU
		if variant.Product != nil && variant.Product.Name != "" {
			label = variant.Product.Name
			if variant.Name != "" {
				label += " (" + variant.Name + ")"
			}
		}

		if variant.Product == nil || variant.Product.Status != model.ProductStatusActive {
			result.Problems = append(result.Problems, fmt.Sprintf("%s has been discontinued", label))
			continue
		}
		if !variant.IsActive {
			result.Problems = append(result.Problems, fmt.Sprintf("%s is no longer offered in this option", label))
			continue
		}

		available := 0
		if item, err := s.inventoryRepo.FindByVariant(ctx, line.VariantID); err == nil {
			available = item.Available()
		} else if !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("failed to look up stock for variant %s: %w", line.VariantID, err)
		}

		if available <= 0 {
			result.Problems = append(result.Problems, fmt.Sprintf("%s is out of stock", label))
			continue
		}
		if available < line.Quantity {
			result.Problems = append(result.Problems, fmt.Sprintf("only %d of %s left (you requested %d)", available, label, line.Quantity))
			continue
		}

		productName := ""
		if variant.Product != nil {
			productName = variant.Product.Name
		}
		lineSubtotal := variant.Price.Mul(decimal.NewFromInt(int64(line.Quantity)))
		result.Items = append(result.Items, ValidatedItem{
			VariantID:   variant.ID,
			ProductName: productName,
			VariantName: variant.Name,
			SKU:         variant.SKU,
			UnitPrice:   variant.Price,
			Quantity:    line.Quantity,
			Subtotal:    lineSubtotal,
		})
		result.Subtotal = result.Subtotal.Add(lineSubtotal)
		result.ItemCount += line.Quantity
	}

	result.OK = len(result.Problems) == 0
	return result, nil
}
