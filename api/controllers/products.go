package controllers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/angelmondragon/storefront-engine/api/responses"
	"github.com/angelmondragon/storefront-engine/api/validators"
	"github.com/angelmondragon/storefront-engine/internal/pricing"
	"github.com/angelmondragon/storefront-engine/pkg/backend"
	pkgerrors "github.com/angelmondragon/storefront-engine/pkg/errors"
	"github.com/angelmondragon/storefront-engine/pkg/logger"
)

type productListRequest struct {
	PageNum  int            `json:"pageNum" validate:"min=0"`
	PageSize int            `json:"pageSize" validate:"min=0,max=100"`
	Filters  map[string]any `json:"filters"`
}

// ProductList proxies a catalog page from the backend.
func ProductList(catalog *backend.Client, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if catalog == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "catalog unavailable"))
			return
		}

		var payload productListRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if payload.PageSize == 0 {
			payload.PageSize = 20
		}

		page, err := catalog.ListProducts(r.Context(), backend.ProductListRequest{
			PageNum:  payload.PageNum,
			PageSize: payload.PageSize,
			Filters:  payload.Filters,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, page)
	}
}

// ProductDetail returns one product with its derived bulk price table.
func ProductDetail(catalog *backend.Client, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if catalog == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "catalog unavailable"))
			return
		}

		product, err := catalog.GetProduct(r.Context(), chi.URLParam(r, "productId"))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, map[string]any{
			"product":    product,
			"bulk_tiers": pricing.BulkTiers(product.DiscountedPrice),
		})
	}
}
