package controllers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/angelmondragon/storefront-engine/api/responses"
	"github.com/angelmondragon/storefront-engine/api/validators"
	"github.com/angelmondragon/storefront-engine/internal/engine"
	"github.com/angelmondragon/storefront-engine/internal/pricing"
	"github.com/angelmondragon/storefront-engine/pkg/backend"
	pkgerrors "github.com/angelmondragon/storefront-engine/pkg/errors"
	"github.com/angelmondragon/storefront-engine/pkg/logger"
	"github.com/angelmondragon/storefront-engine/pkg/types"
)

type cartAddRequest struct {
	ProductID   string `json:"product_id" validate:"required"`
	Quantity    int    `json:"quantity" validate:"min=0"`
	IsBulkOrder bool   `json:"is_bulk_order"`
	BulkRange   string `json:"bulk_range"`
}

type cartView struct {
	Lines  []types.CartLine `json:"lines"`
	Totals types.CartTotals `json:"totals"`
}

func viewOf(session *engine.Session) cartView {
	return cartView{Lines: session.Cart.Lines(), Totals: session.Cart.Totals()}
}

// CartFetch returns the cart lines and derived totals.
func CartFetch(svc *engine.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		session, _, err := sessionFrom(r, svc)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, viewOf(session))
	}
}

// CartAdd snapshots the product's current price into a new or merged cart
// line. Bulk lines take the tier price for the requested range.
func CartAdd(svc *engine.Service, catalog *backend.Client, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		session, _, err := sessionFrom(r, svc)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload cartAddRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		product, err := catalog.GetProduct(r.Context(), payload.ProductID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		line := types.CartLine{
			ProductID:    product.ID,
			Name:         product.Name,
			Quantity:     payload.Quantity,
			UnitPrice:    product.DiscountedPrice,
			IsBulkOrder:  payload.IsBulkOrder,
			BulkRange:    payload.BulkRange,
			StockCeiling: &product.Stock,
			WeightKG:     product.WeightKG,
			LengthCM:     product.LengthCM,
			WidthCM:      product.WidthCM,
			HeightCM:     product.HeightCM,
		}
		if line.UnitPrice.IsZero() {
			line.UnitPrice = product.Price
		}
		if payload.IsBulkOrder {
			base := line.UnitPrice
			tier, ok := pricing.TierForRange(base, payload.BulkRange)
			if !ok {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "unknown bulk range").
					WithDetails(map[string]string{"bulk_range": payload.BulkRange}))
				return
			}
			line.UnitPrice = tier.UnitPrice
			line.OriginalUnitPrice = &base
		}

		if err := session.Cart.Add(r.Context(), line); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, viewOf(session))
	}
}

// CartRemove drops every line for the product, bulk variants included.
func CartRemove(svc *engine.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		session, _, err := sessionFrom(r, svc)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if err := session.Cart.Remove(r.Context(), chi.URLParam(r, "productId")); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, viewOf(session))
	}
}

// CartIncrease bumps the product's quantity, bounded by its stock ceiling.
func CartIncrease(svc *engine.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		session, _, err := sessionFrom(r, svc)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if err := session.Cart.IncreaseQuantity(r.Context(), chi.URLParam(r, "productId")); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, viewOf(session))
	}
}

// CartDecrease lowers the product's quantity, never below one.
func CartDecrease(svc *engine.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		session, _, err := sessionFrom(r, svc)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if err := session.Cart.DecreaseQuantity(r.Context(), chi.URLParam(r, "productId")); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, viewOf(session))
	}
}

// CartClear empties the cart and its durable snapshot.
func CartClear(svc *engine.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		session, _, err := sessionFrom(r, svc)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if err := session.Cart.Clear(r.Context()); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, viewOf(session))
	}
}
