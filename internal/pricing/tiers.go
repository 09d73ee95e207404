package pricing

import (
	"github.com/angelmondragon/storefront-engine/pkg/money"
	"github.com/shopspring/decimal"
)

// Tier is one bulk-quantity price band derived from a product's base
// discounted price. MaxQty of zero means the band is unbounded.
type Tier struct {
	RangeLabel     string          `json:"range_label"`
	MinQty         int             `json:"min_qty"`
	MaxQty         int             `json:"max_qty,omitempty"`
	DiscountFactor decimal.Decimal `json:"discount_factor"`
	UnitPrice      decimal.Decimal `json:"unit_price"`
}

type tierSpec struct {
	label  string
	minQty int
	maxQty int
	factor string
}

// The tier table is fixed product-wide; the per-unit price is recomputed
// whenever the product's base price changes.
var tierSpecs = []tierSpec{
	{label: "5-10", minQty: 5, maxQty: 10, factor: "0.95"},
	{label: "10-20", minQty: 10, maxQty: 20, factor: "0.90"},
	{label: "20-50", minQty: 20, maxQty: 50, factor: "0.85"},
	{label: "50-100", minQty: 50, maxQty: 100, factor: "0.80"},
	{label: "100+", minQty: 100, maxQty: 0, factor: "0.75"},
}

// BulkTiers derives the five-tier wholesale price table from a base price.
func BulkTiers(basePrice decimal.Decimal) []Tier {
	tiers := make([]Tier, 0, len(tierSpecs))
	for _, spec := range tierSpecs {
		factor := money.Require(spec.factor)
		tiers = append(tiers, Tier{
			RangeLabel:     spec.label,
			MinQty:         spec.minQty,
			MaxQty:         spec.maxQty,
			DiscountFactor: factor,
			UnitPrice:      money.Round2(basePrice.Mul(factor)),
		})
	}
	return tiers
}

// TierForRange returns the tier matching a range label, if any.
func TierForRange(basePrice decimal.Decimal, rangeLabel string) (Tier, bool) {
	for _, tier := range BulkTiers(basePrice) {
		if tier.RangeLabel == rangeLabel {
			return tier, true
		}
	}
	return Tier{}, false
}
