package controllers

import (
	"net/http"

	"github.com/angelmondragon/storefront-engine/api/responses"
)

// PublicPing is the unauthenticated liveness probe.
func PublicPing() http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		responses.WriteSuccess(w, map[string]string{"message": "pong"})
	}
}
