package controllers

import (
	"net/http"

	"github.com/angelmondragon/storefront-engine/api/middleware"
	"github.com/angelmondragon/storefront-engine/internal/engine"
	pkgerrors "github.com/angelmondragon/storefront-engine/pkg/errors"
)

// sessionFrom resolves the caller's commerce session, building it on first
// use. The auth token travels with the request and is forwarded verbatim to
// the backend.
func sessionFrom(r *http.Request, svc *engine.Service) (*engine.Session, string, error) {
	if svc == nil {
		return nil, "", pkgerrors.New(pkgerrors.CodeInternal, "engine unavailable")
	}
	userID := middleware.UserIDFromContext(r.Context())
	if userID == "" {
		return nil, "", pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	token := middleware.TokenFromContext(r.Context())
	session, err := svc.Session(r.Context(), userID, token)
	if err != nil {
		return nil, "", err
	}
	return session, token, nil
}
