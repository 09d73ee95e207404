package controllers

import (
	"context"
	"net/http"
	"time"

	"github.com/angelmondragon/storefront-engine/api/responses"
	"github.com/angelmondragon/storefront-engine/pkg/config"
	pkgerrors "github.com/angelmondragon/storefront-engine/pkg/errors"
	"github.com/angelmondragon/storefront-engine/pkg/logger"
	"github.com/angelmondragon/storefront-engine/pkg/redis"
)

const readinessTimeout = 2 * time.Second

// HealthLive reports process liveness.
func HealthLive(cfg *config.Config) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		responses.WriteSuccess(w, map[string]string{
			"status": "ok",
			"env":    cfg.App.Env,
		})
	}
}

// HealthReady verifies the engine can reach its dependencies.
func HealthReady(logg *logger.Logger, store redis.Pinger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), readinessTimeout)
		defer cancel()

		if store == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeDependency, "redis not configured"))
			return
		}
		if err := store.Ping(ctx); err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "redis not reachable"))
			return
		}

		responses.WriteSuccess(w, map[string]string{"status": "ready"})
	}
}
