// Package pricing computes every money figure the storefront shows. All
// functions are pure; callers pass cart lines and inputs and get rounded
// decimal amounts back.
package pricing

import (
	"github.com/angelmondragon/storefront-engine/pkg/money"
	"github.com/angelmondragon/storefront-engine/pkg/types"
	"github.com/shopspring/decimal"
)

// TaxRate is the fixed GST rate applied at checkout.
var TaxRate = money.Require("0.18")

// FlatCodeDiscount is the fixed cart-page promo deduction. The cart page and
// the checkout page intentionally use different discount mechanisms; see
// CartPageTotal vs CheckoutTotal.
var FlatCodeDiscount = money.FromInt(15)

// TotalMRP sums list prices: bulk lines fall back to their pre-discount unit
// price when one was snapshotted.
func TotalMRP(lines []types.CartLine) decimal.Decimal {
	total := decimal.Zero
	for _, line := range lines {
		unit := line.UnitPrice
		if line.IsBulkOrder && line.OriginalUnitPrice != nil {
			unit = *line.OriginalUnitPrice
		}
		total = total.Add(unit.Mul(decimal.NewFromInt(int64(line.Quantity))))
	}
	return money.Round2(total)
}

// TotalDiscounted sums the snapshotted selling prices.
func TotalDiscounted(lines []types.CartLine) decimal.Decimal {
	total := decimal.Zero
	for _, line := range lines {
		total = total.Add(line.UnitPrice.Mul(decimal.NewFromInt(int64(line.Quantity))))
	}
	return money.Round2(total)
}

// CheckoutTotal is the checkout-page figure: the coupon discount comes off
// the subtotal before tax, shipping is added after tax, and the result never
// goes below zero.
//
//	max(0, (subtotal - coupon) * (1 + TaxRate) + shipping)
func CheckoutTotal(subtotal, couponDiscount, shippingFee decimal.Decimal) decimal.Decimal {
	taxed := subtotal.Sub(couponDiscount).Mul(decimal.NewFromInt(1).Add(TaxRate))
	return money.Round2(money.ClampZero(taxed.Add(shippingFee)))
}

// TaxAmount is the tax component of the checkout total.
func TaxAmount(subtotal, couponDiscount decimal.Decimal) decimal.Decimal {
	return money.Round2(money.ClampZero(subtotal.Sub(couponDiscount)).Mul(TaxRate))
}

// CartPageTotal is the simpler cart-page figure: no tax, a fixed promo code
// deduction instead of a coupon amount.
//
//	max(0, subtotal + shipping - FlatCodeDiscount)
//
// This deliberately disagrees with CheckoutTotal; the two pages have always
// used different discount mechanisms and unifying them is a product call,
// not an engineering one.
func CartPageTotal(subtotal, shippingFee decimal.Decimal) decimal.Decimal {
	return money.Round2(money.ClampZero(subtotal.Add(shippingFee).Sub(FlatCodeDiscount)))
}

// Totals derives the cart read-model figures from the lines.
func Totals(lines []types.CartLine) types.CartTotals {
	items := 0
	for _, line := range lines {
		items += line.Quantity
	}
	return types.CartTotals{
		TotalItems:      items,
		UniqueLineCount: len(lines),
		TotalAmount:     TotalDiscounted(lines),
		TotalMRP:        TotalMRP(lines),
	}
}
