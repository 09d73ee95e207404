package checkout

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/angelmondragon/storefront-engine/internal/pricing"
	"github.com/angelmondragon/storefront-engine/pkg/shiprate"
	"github.com/angelmondragon/storefront-engine/pkg/types"
)

// RateSource is the courier rate surface the orchestrator depends on.
type RateSource interface {
	Check(ctx context.Context, req shiprate.Request) (*shiprate.Quote, error)
}

// Parcel fallbacks for catalog records that carry no shipping attributes.
const (
	defaultLineWeightKG = 0.1
	defaultLengthCM     = 10
	defaultWidthCM      = 10
	defaultHeightCM     = 5
)

// RefreshRate prices shipping for the current cart and selected address.
// Concurrent refreshes may run; only the one holding the latest generation
// stamp publishes its result, so the displayed fee always matches the
// currently selected address. Lookup failure is non-fatal: the fee falls
// back to zero and checkout proceeds.
func (o *Orchestrator) RefreshRate(ctx context.Context) {
	addr, ok := o.book.Selected()
	lines := o.cart.Lines()

	o.mu.Lock()
	o.rateGen++
	gen := o.rateGen
	if !ok || len(lines) == 0 {
		o.shippingFee = decimal.Zero
		o.expectedDelivery = ""
		if o.state == StateRateLookup || o.state == StateFailed {
			o.state = StateAddressReady
		}
		o.mu.Unlock()
		return
	}
	if o.state == StateAddressReady || o.state == StateFailed {
		o.state = StateRateLookup
	}
	o.mu.Unlock()

	start := time.Now()
	rate, expected, err := o.lookupRate(ctx, addr, lines)
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	o.metrics.ObserveRateLookup(outcome, time.Since(start))

	o.mu.Lock()
	defer o.mu.Unlock()
	if gen != o.rateGen {
		o.metrics.IncRateStale()
		return
	}
	if o.state == StateRateLookup {
		o.state = StateAddressReady
	}
	if err != nil {
		o.metrics.IncRateFallback()
		if o.logg != nil {
			o.logg.Warn(ctx, fmt.Sprintf("rate lookup failed, defaulting shipping fee to zero: %v", err))
		}
		o.shippingFee = decimal.Zero
		o.expectedDelivery = ""
		return
	}
	o.shippingFee = rate
	o.expectedDelivery = expected
}

// ShippingFee returns the last published rate.
func (o *Orchestrator) ShippingFee() decimal.Decimal {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.shippingFee
}

func (o *Orchestrator) lookupRate(ctx context.Context, addr types.Address, lines []types.CartLine) (decimal.Decimal, string, error) {
	if o.rates == nil {
		return decimal.Zero, "", fmt.Errorf("rate client not configured")
	}

	req := parcelFor(lines)
	req.FromPincode = o.rateCfg.OriginPincode
	req.ToPincode = addr.PostalCode

	quote, err := o.rates.Check(ctx, req)
	if err != nil {
		return decimal.Zero, "", err
	}
	rate, ok := quote.Pick(o.rateCfg.PreferredCourier, o.rateCfg.PreferredService)
	if !ok {
		return decimal.Zero, "", fmt.Errorf("no courier rates offered")
	}
	return rate.Rate, quote.ExpectedDeliveryDate, nil
}

// parcelFor aggregates cart lines into one parcel: weights sum per line,
// lengths stack, width and height take the largest line.
func parcelFor(lines []types.CartLine) shiprate.Request {
	var req shiprate.Request
	for _, line := range lines {
		weight := line.WeightKG * float64(line.Quantity)
		if line.WeightKG == 0 {
			weight = defaultLineWeightKG
		}
		req.WeightKG += weight

		length := line.LengthCM
		if length == 0 {
			length = defaultLengthCM
		}
		req.LengthCM += length

		width := line.WidthCM
		if width == 0 {
			width = defaultWidthCM
		}
		if width > req.WidthCM {
			req.WidthCM = width
		}

		height := line.HeightCM
		if height == 0 {
			height = defaultHeightCM
		}
		if height > req.HeightCM {
			req.HeightCM = height
		}
	}
	req.ProductMRP = pricing.TotalMRP(lines)
	return req
}
