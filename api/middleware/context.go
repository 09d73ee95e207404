package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/angelmondragon/storefront-engine/api/responses"
	pkgerrors "github.com/angelmondragon/storefront-engine/pkg/errors"
	"github.com/angelmondragon/storefront-engine/pkg/logger"
)

type contextKey string

const (
	ctxUserID contextKey = "user_id"
	ctxToken  contextKey = "auth_token"

	userIDHeader = "X-User-Id"
)

// UserContext lifts the caller's identity headers into the request context.
// Token issuance and verification live in the storefront backend; this
// service only forwards what it was handed.
func UserContext(logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()

			if userID := strings.TrimSpace(r.Header.Get(userIDHeader)); userID != "" {
				ctx = context.WithValue(ctx, ctxUserID, userID)
				if logg != nil {
					ctx = logg.WithUserID(ctx, userID)
				}
			}
			if token := bearerToken(r); token != "" {
				ctx = context.WithValue(ctx, ctxToken, token)
			}

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireUser rejects requests that carry no user identity.
func RequireUser(logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if UserIDFromContext(r.Context()) == "" {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing"))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func UserIDFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if v, ok := ctx.Value(ctxUserID).(string); ok {
		return v
	}
	return ""
}

func TokenFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if v, ok := ctx.Value(ctxToken).(string); ok {
		return v
	}
	return ""
}

func bearerToken(r *http.Request) string {
	header := strings.TrimSpace(r.Header.Get("Authorization"))
	if header == "" {
		return ""
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) == 2 && strings.EqualFold(parts[0], "Bearer") {
		return strings.TrimSpace(parts[1])
	}
	return header
}
