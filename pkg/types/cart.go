package types

import (
	"time"

	"github.com/shopspring/decimal"
)

// CartLine is a single cart entry. Two lines are the same entry when their
// composite key (ProductID, IsBulkOrder, BulkRange) matches; UnitPrice is a
// snapshot taken when the line was added, never recomputed from the catalog.
type CartLine struct {
	ProductID         string           `json:"product_id"`
	Name              string           `json:"name,omitempty"`
	Quantity          int              `json:"quantity"`
	UnitPrice         decimal.Decimal  `json:"unit_price"`
	IsBulkOrder       bool             `json:"is_bulk_order"`
	BulkRange         string           `json:"bulk_range,omitempty"`
	OriginalUnitPrice *decimal.Decimal `json:"original_unit_price,omitempty"`
	StockCeiling      *int             `json:"stock_ceiling,omitempty"`

	// Parcel attributes snapshotted from the catalog; zero values fall back
	// to the shipping defaults at rate-lookup time.
	WeightKG float64 `json:"weight_kg,omitempty"`
	LengthCM float64 `json:"length_cm,omitempty"`
	WidthCM  float64 `json:"width_cm,omitempty"`
	HeightCM float64 `json:"height_cm,omitempty"`
}

// Key identifies the line for merge purposes.
func (l CartLine) Key() CartLineKey {
	return CartLineKey{ProductID: l.ProductID, IsBulkOrder: l.IsBulkOrder, BulkRange: l.BulkRange}
}

// CartLineKey is the composite merge key for cart lines.
type CartLineKey struct {
	ProductID   string
	IsBulkOrder bool
	BulkRange   string
}

// Cart is the durable snapshot shape stored under the cart key.
type Cart struct {
	Lines []CartLine `json:"lines"`
}

// CartTotals carries the derived figures recomputed on every read.
type CartTotals struct {
	TotalItems      int             `json:"total_items"`
	UniqueLineCount int             `json:"unique_line_count"`
	TotalAmount     decimal.Decimal `json:"total_amount"`
	TotalMRP        decimal.Decimal `json:"total_mrp"`
}

// PendingPayment is the marker written before redirecting to a gateway so
// the return flow can reconcile the outcome.
type PendingPayment struct {
	OrderID   string          `json:"orderId"`
	PaymentID string          `json:"paymentId"`
	Amount    decimal.Decimal `json:"amount"`
	Timestamp time.Time       `json:"timestamp"`
}
