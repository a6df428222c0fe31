package routes

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/angelmondragon/shopcore-backend/api/controllers"
	cartcontrollers "github.com/angelmondragon/shopcore-backend/api/controllers/cart"
	couponcontrollers "github.com/angelmondragon/shopcore-backend/api/controllers/coupons"
	ordercontrollers "github.com/angelmondragon/shopcore-backend/api/controllers/orders"
	webhookcontrollers "github.com/angelmondragon/shopcore-backend/api/controllers/webhooks"
	"github.com/angelmondragon/shopcore-backend/api/middleware"
	"github.com/angelmondragon/shopcore-backend/internal/cart"
	"github.com/angelmondragon/shopcore-backend/internal/catalog"
	"github.com/angelmondragon/shopcore-backend/internal/checkout"
	"github.com/angelmondragon/shopcore-backend/internal/coupons"
	"github.com/angelmondragon/shopcore-backend/internal/orders"
	stripewebhook "github.com/angelmondragon/shopcore-backend/internal/webhooks/stripe"
	"github.com/angelmondragon/shopcore-backend/pkg/config"
	"github.com/angelmondragon/shopcore-backend/pkg/enums"
	"github.com/angelmondragon/shopcore-backend/pkg/logger"
	"github.com/angelmondragon/shopcore-backend/pkg/redis"
)

type stripeSigner interface {
	SigningSecret() string
}

type stripeWebhookGuard interface {
	Claim(ctx context.Context, eventID string) (bool, error)
	Release(ctx context.Context, eventID string) error
}

// Dependencies carries everything the HTTP surface is wired to.
type Dependencies struct {
	Readiness          map[string]controllers.Pinger
	IdempotencyStore   redis.IdempotencyStore
	MetricsGatherer    prometheus.Gatherer
	CatalogService     catalog.Service
	CartService        cart.Service
	CouponService      coupons.Service
	OrderService       orders.Service
	CheckoutService    checkout.Service
	StripeClient       stripeSigner
	StripeWebhooks     webhookcontrollers.StripeWebhookService
	StripeWebhookGuard stripeWebhookGuard
}

var _ stripeWebhookGuard = (*stripewebhook.IdempotencyGuard)(nil)

func NewRouter(cfg *config.Config, logg *logger.Logger, deps Dependencies) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(cfg.App.CORSOrigins),
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, deps.Readiness, logg))
	})

	if deps.MetricsGatherer != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(deps.MetricsGatherer, promhttp.HandlerOpts{}))
	}

	r.Get("/api/v1/products/{productId}", controllers.ProductDetail(deps.CatalogService, logg))

	r.Route("/api/v1/webhooks", func(r chi.Router) {
		r.Post("/stripe", webhookcontrollers.StripeWebhook(deps.StripeWebhooks, deps.StripeClient, deps.StripeWebhookGuard, logg))
	})

	staff := middleware.RequireRoles(logg, enums.UserRoleAdmin, enums.UserRoleManager)
	adminOnly := middleware.RequireRoles(logg, enums.UserRoleAdmin)

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, logg))
		r.Use(middleware.Idempotency(deps.IdempotencyStore, logg))

		r.With(staff).Post("/products", controllers.ProductCreate(deps.CatalogService, logg))

		r.Route("/cart", func(r chi.Router) {
			r.Get("/", cartcontrollers.CartFetch(deps.CartService, logg))
			r.Post("/", cartcontrollers.CartAddItem(deps.CartService, logg))
			r.Delete("/", cartcontrollers.CartClear(deps.CartService, logg))
			r.Put("/apply-coupon", cartcontrollers.CartApplyCoupon(deps.CartService, logg))
			r.Put("/{sku}", cartcontrollers.CartUpdateItem(deps.CartService, logg))
			r.Delete("/{sku}", cartcontrollers.CartRemoveItem(deps.CartService, logg))
		})

		r.Route("/orders", func(r chi.Router) {
			r.Get("/", ordercontrollers.List(deps.OrderService, logg))
			r.Post("/checkout-session/{cartId}", ordercontrollers.CreateCheckoutSession(deps.CheckoutService, logg))
			r.Post("/{cartId}", ordercontrollers.CreateCashOrder(deps.OrderService, logg))
			r.Get("/{orderId}", ordercontrollers.Detail(deps.OrderService, logg))
			r.With(staff).Patch("/{orderId}/pay", ordercontrollers.MarkPaid(deps.OrderService, logg))
			r.With(adminOnly).Patch("/{orderId}/deliver", ordercontrollers.MarkDelivered(deps.OrderService, logg))
		})

		r.Route("/coupons", func(r chi.Router) {
			r.Use(staff)
			r.Post("/", couponcontrollers.Create(deps.CouponService, logg))
			r.Get("/", couponcontrollers.List(deps.CouponService, logg))
			r.Get("/{couponId}", couponcontrollers.Get(deps.CouponService, logg))
			r.Put("/{couponId}", couponcontrollers.Update(deps.CouponService, logg))
			r.Delete("/{couponId}", couponcontrollers.Delete(deps.CouponService, logg))
		})
	})

	return r
}
