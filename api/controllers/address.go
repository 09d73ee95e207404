package controllers

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/angelmondragon/storefront-engine/api/responses"
	"github.com/angelmondragon/storefront-engine/api/validators"
	"github.com/angelmondragon/storefront-engine/internal/address"
	"github.com/angelmondragon/storefront-engine/internal/engine"
	pkgerrors "github.com/angelmondragon/storefront-engine/pkg/errors"
	"github.com/angelmondragon/storefront-engine/pkg/logger"
	"github.com/angelmondragon/storefront-engine/pkg/types"
)

type addressRequest struct {
	StreetAddress string `json:"street_address" validate:"required"`
	City          string `json:"city" validate:"required"`
	State         string `json:"state"`
	PostalCode    string `json:"postal_code"`
}

func (a addressRequest) input() address.Input {
	return address.Input{
		StreetAddress: a.StreetAddress,
		City:          a.City,
		State:         a.State,
		PostalCode:    a.PostalCode,
	}
}

type addressBookView struct {
	Addresses  []types.Address `json:"addresses"`
	SelectedID int             `json:"selected_id,omitempty"`
}

func bookViewOf(session *engine.Session) addressBookView {
	view := addressBookView{Addresses: session.Book.Addresses()}
	if selected, ok := session.Book.Selected(); ok {
		view.SelectedID = selected.ID
	}
	return view
}

func addressID(r *http.Request) (int, error) {
	id, err := strconv.Atoi(chi.URLParam(r, "addressId"))
	if err != nil || id <= 0 {
		return 0, pkgerrors.New(pkgerrors.CodeValidation, "invalid address id")
	}
	return id, nil
}

// AddressList returns the address book with the current selection.
func AddressList(svc *engine.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		session, _, err := sessionFrom(r, svc)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, bookViewOf(session))
	}
}

// AddressAdd validates and stores a new delivery address.
func AddressAdd(svc *engine.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		session, token, err := sessionFrom(r, svc)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload addressRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		added, err := session.Book.Add(r.Context(), token, payload.input())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, added)
	}
}

// AddressEdit rewrites an existing address in place.
func AddressEdit(svc *engine.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		session, token, err := sessionFrom(r, svc)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		id, err := addressID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload addressRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		edited, err := session.Book.Edit(r.Context(), token, id, payload.input())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, edited)
	}
}

// AddressRemove empties the address's backend slot and drops it locally.
func AddressRemove(svc *engine.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		session, token, err := sessionFrom(r, svc)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		id, err := addressID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if err := session.Book.Remove(r.Context(), token, id); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, bookViewOf(session))
	}
}

// AddressSelect marks the delivery address and kicks off a rate refresh.
func AddressSelect(svc *engine.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		session, _, err := sessionFrom(r, svc)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		id, err := addressID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if err := session.Book.Select(id); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, bookViewOf(session))
	}
}
