package pricing

import (
	"github.com/shopspring/decimal"

	"github.com/omarserrano/dishpatch-backend/pkg/config"
)

// Totals is the derived money breakdown for a cart or order.
type Totals struct {
	SubtotalCents    int64
	TaxCents         int64
	DeliveryFeeCents int64
	TotalCents       int64
}

// Policy computes derived totals from a subtotal. Implementations must be
// pure: the same subtotal always yields the same totals.
type Policy interface {
	Compute(subtotalCents int64) Totals
}

// FlatRatePolicy applies a configured tax rate (basis points) and a flat
// delivery fee. Tax is rounded half-even on the cent.
type FlatRatePolicy struct {
	taxRateBps       decimal.Decimal
	deliveryFeeCents int64
}

// NewFlatRatePolicy builds the standard policy from configuration.
func NewFlatRatePolicy(cfg config.PricingConfig) *FlatRatePolicy {
	return &FlatRatePolicy{
		taxRateBps:       decimal.NewFromInt(cfg.TaxRateBps),
		deliveryFeeCents: cfg.DeliveryFeeCents,
	}
}

var tenThousand = decimal.NewFromInt(10000)

// Compute recalculates tax and total from scratch. An empty subtotal still
// carries no fee: a cart with no items owes nothing.
func (p *FlatRatePolicy) Compute(subtotalCents int64) Totals {
	if subtotalCents <= 0 {
		return Totals{}
	}

	tax := decimal.NewFromInt(subtotalCents).
		Mul(p.taxRateBps).
		Div(tenThousand).
		RoundBank(0).
		IntPart()

	return Totals{
		SubtotalCents:    subtotalCents,
		TaxCents:         tax,
		DeliveryFeeCents: p.deliveryFeeCents,
		TotalCents:       subtotalCents + tax + p.deliveryFeeCents,
	}
}
