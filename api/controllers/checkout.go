package controllers

import (
	"net/http"

	"github.com/shopspring/decimal"

	"github.com/angelmondragon/storefront-engine/api/middleware"
	"github.com/angelmondragon/storefront-engine/api/responses"
	"github.com/angelmondragon/storefront-engine/api/validators"
	"github.com/angelmondragon/storefront-engine/internal/checkout"
	"github.com/angelmondragon/storefront-engine/internal/engine"
	pkgerrors "github.com/angelmondragon/storefront-engine/pkg/errors"
	"github.com/angelmondragon/storefront-engine/pkg/logger"
)

type couponRequest struct {
	Discount decimal.Decimal `json:"discount" validate:"required"`
}

type checkoutView struct {
	State      string           `json:"state"`
	Processing bool             `json:"processing"`
	Summary    checkout.Summary `json:"summary"`
	OrderID    string           `json:"order_id,omitempty"`
	LastError  string           `json:"last_error,omitempty"`
}

func checkoutViewOf(session *engine.Session) checkoutView {
	view := checkoutView{
		State:      session.Checkout.State().String(),
		Processing: session.Checkout.Processing(),
		Summary:    session.Checkout.Summarize(),
		OrderID:    session.Checkout.OrderID(),
	}
	if err := session.Checkout.LastError(); err != nil {
		view.LastError = err.Error()
	}
	return view
}

// CheckoutSummary reports the live state machine and pricing summary.
func CheckoutSummary(svc *engine.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		session, _, err := sessionFrom(r, svc)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, checkoutViewOf(session))
	}
}

// CheckoutCoupon applies a flat coupon discount to the running totals.
func CheckoutCoupon(svc *engine.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		session, _, err := sessionFrom(r, svc)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload couponRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if err := session.Checkout.ApplyCoupon(payload.Discount); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, checkoutViewOf(session))
	}
}

// CheckoutRefreshRate forces a shipping rate lookup for the selected address.
func CheckoutRefreshRate(svc *engine.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		session, _, err := sessionFrom(r, svc)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		session.Checkout.RefreshRate(r.Context())
		responses.WriteSuccess(w, checkoutViewOf(session))
	}
}

// CheckoutSubmit runs the full pipeline: stock, order creation, payment.
func CheckoutSubmit(svc *engine.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		session, token, err := sessionFrom(r, svc)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := session.Checkout.Submit(r.Context(), token)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}

// CheckoutRetry re-initiates payment for an already created order.
func CheckoutRetry(svc *engine.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		session, token, err := sessionFrom(r, svc)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := session.Checkout.RetryPayment(r.Context(), token)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}

// pendingUser resolves the caller identity without forcing a full session,
// so a returning browser can check its marker before the session rebuilds.
func pendingUser(r *http.Request, svc *engine.Service) (string, error) {
	if svc == nil {
		return "", pkgerrors.New(pkgerrors.CodeInternal, "engine unavailable")
	}
	userID := middleware.UserIDFromContext(r.Context())
	if userID == "" {
		return "", pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	return userID, nil
}

// PendingPaymentFetch returns the marker stored before a payment redirect.
func PendingPaymentFetch(svc *engine.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, err := pendingUser(r, svc)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		marker, err := svc.PendingPayment(r.Context(), userID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]any{"pending_payment": marker})
	}
}

// PendingPaymentClear removes the marker once the client resolves the payment.
func PendingPaymentClear(svc *engine.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, err := pendingUser(r, svc)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if err := svc.ClearPendingPayment(r.Context(), userID); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]string{"status": "cleared"})
	}
}
