package service

import (
	"context"
	"time"

	"storefront/internal/model"
	"storefront/internal/repository"

	"github.com/shopspring/decimal"
)

// ShippingPolicy computes the shipping fee for a chosen method. The business
// rule is store configuration, so it lives behind an interface rather than in
// the checkout itself.
type ShippingPolicy interface {
	Cost(method string, subtotal decimal.Decimal) decimal.Decimal
}

// TaxPolicy computes the tax amount on a taxable base.
type TaxPolicy interface {
	Tax(ctx context.Context, taxable decimal.Decimal) decimal.Decimal
}

// TieredShippingPolicy charges a flat express fee, and a standard fee waived
// above a free-shipping threshold.
type TieredShippingPolicy struct {
	StandardFee decimal.Decimal
	ExpressFee  decimal.Decimal
	FreeOver    decimal.Decimal
}

func (p TieredShippingPolicy) Cost(method string, subtotal decimal.Decimal) decimal.Decimal {
	if method == model.ShippingExpress {
		return p.ExpressFee
	}
	if subtotal.GreaterThanOrEqual(p.FreeOver) {
		return decimal.Zero
	}
	return p.StandardFee
}

// TableTaxPolicy applies the tax rule effective at calculation time, falling
// back to a configured default rate when no rule matches.
type TableTaxPolicy struct {
	Rules        repository.TaxRuleRepository
	FallbackRate decimal.Decimal
}

func (p TableTaxPolicy) Tax(ctx context.Context, taxable decimal.Decimal) decimal.Decimal {
	rate := p.FallbackRate
	if p.Rules != nil {
		if rule, err := p.Rules.FindEffective(ctx, time.Now()); err == nil {
			rate = rule.Rate
		}
	}
	return taxable.Mul(rate).Round(4)
}
