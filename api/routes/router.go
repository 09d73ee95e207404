package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/angelmondragon/storefront-engine/api/controllers"
	"github.com/angelmondragon/storefront-engine/api/middleware"
	"github.com/angelmondragon/storefront-engine/internal/engine"
	"github.com/angelmondragon/storefront-engine/pkg/backend"
	"github.com/angelmondragon/storefront-engine/pkg/config"
	"github.com/angelmondragon/storefront-engine/pkg/logger"
	"github.com/angelmondragon/storefront-engine/pkg/redis"
)

func NewRouter(
	cfg *config.Config,
	logg *logger.Logger,
	redisClient *redis.Client,
	catalog *backend.Client,
	svc *engine.Service,
	registry *prometheus.Registry,
) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(),
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(logg, redisClient))
	})

	if registry != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
	}

	r.Route("/api/public", func(r chi.Router) {
		r.Get("/ping", controllers.PublicPing())
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.UserContext(logg))
		r.Use(middleware.RequireUser(logg))

		r.Route("/products", func(r chi.Router) {
			r.Post("/search", controllers.ProductList(catalog, logg))
			r.Get("/{productId}", controllers.ProductDetail(catalog, logg))
		})

		r.Route("/cart", func(r chi.Router) {
			r.Get("/", controllers.CartFetch(svc, logg))
			r.Post("/", controllers.CartAdd(svc, catalog, logg))
			r.Delete("/", controllers.CartClear(svc, logg))
			r.Delete("/{productId}", controllers.CartRemove(svc, logg))
			r.Post("/{productId}/increase", controllers.CartIncrease(svc, logg))
			r.Post("/{productId}/decrease", controllers.CartDecrease(svc, logg))
		})

		r.Route("/addresses", func(r chi.Router) {
			r.Get("/", controllers.AddressList(svc, logg))
			r.Post("/", controllers.AddressAdd(svc, logg))
			r.Put("/{addressId}", controllers.AddressEdit(svc, logg))
			r.Delete("/{addressId}", controllers.AddressRemove(svc, logg))
			r.Post("/{addressId}/select", controllers.AddressSelect(svc, logg))
		})

		r.Route("/checkout", func(r chi.Router) {
			r.Get("/", controllers.CheckoutSummary(svc, logg))
			r.Post("/coupon", controllers.CheckoutCoupon(svc, logg))
			r.Post("/refresh-rate", controllers.CheckoutRefreshRate(svc, logg))
			r.Post("/submit", controllers.CheckoutSubmit(svc, logg))
			r.Post("/retry", controllers.CheckoutRetry(svc, logg))
			r.Get("/pending-payment", controllers.PendingPaymentFetch(svc, logg))
			r.Delete("/pending-payment", controllers.PendingPaymentClear(svc, logg))
		})
	})

	return r
}
