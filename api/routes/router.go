package routes

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/angelmondragon/crumbly-backend/api/controllers"
	ordercontrollers "github.com/angelmondragon/crumbly-backend/api/controllers/orders"
	webhookcontrollers "github.com/angelmondragon/crumbly-backend/api/controllers/webhooks"
	"github.com/angelmondragon/crumbly-backend/api/middleware"
	"github.com/angelmondragon/crumbly-backend/internal/calendar"
	"github.com/angelmondragon/crumbly-backend/internal/checkout"
	"github.com/angelmondragon/crumbly-backend/internal/discounts"
	"github.com/angelmondragon/crumbly-backend/internal/orders"
	"github.com/angelmondragon/crumbly-backend/internal/payments"
	"github.com/angelmondragon/crumbly-backend/internal/pricing"
	"github.com/angelmondragon/crumbly-backend/internal/shippingrules"
	gatewaywebhook "github.com/angelmondragon/crumbly-backend/internal/webhooks/gateway"
	"github.com/angelmondragon/crumbly-backend/pkg/config"
	"github.com/angelmondragon/crumbly-backend/pkg/db"
	"github.com/angelmondragon/crumbly-backend/pkg/logger"
	"github.com/angelmondragon/crumbly-backend/pkg/metrics"
	"github.com/angelmondragon/crumbly-backend/pkg/redis"
)

func NewRouter(
	cfg *config.Config,
	logg *logger.Logger,
	dbP db.Pinger,
	redisClient *redis.Client,
	gatherer prometheus.Gatherer,
	calendarService *calendar.Service,
	checkoutService checkout.Service,
	pricingResolver *pricing.Resolver,
	ordersService orders.Service,
	paymentsService *payments.Service,
	reconciler *gatewaywebhook.Service,
	webhookGuard *gatewaywebhook.IdempotencyGuard,
	settlementMetrics *metrics.SettlementMetrics,
	discountService *discounts.Service,
	shippingRulesService *shippingrules.Service,
) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(cfg.CORS.AllowedOrigins),
	)

	deps := map[string]controllers.Pinger{}
	if dbP != nil {
		deps["db"] = dbP
	}
	// A nil *redis.Client must not leak into the interfaces below.
	var (
		idempotencyStore redis.IdempotencyStore
		rateStore        *redis.Client
	)
	if redisClient != nil {
		deps["redis"] = redisClient
		idempotencyStore = redisClient
		rateStore = redisClient
	}

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg.App.Env))
		r.Get("/ready", controllers.HealthReady(cfg.App.Env, deps, logg))
	})
	if gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	}

	discountPolicy := middleware.NewRateLimitPolicy(
		"discount_validate",
		cfg.RateLimit.DiscountWindow,
		cfg.RateLimit.DiscountIPLimit,
		cfg.RateLimit.DiscountEmailLimit,
	)
	discountLimiter := func(next http.Handler) http.Handler { return next }
	if rateStore != nil {
		discountLimiter = middleware.RateLimit(discountPolicy, rateStore, logg)
	}

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Idempotency(idempotencyStore, cfg.Checkout.IdempotencyTTL, logg))

		r.Post("/delivery/quote", controllers.DeliveryQuote(checkoutService, logg))
		r.Get("/delivery/window", controllers.DeliveryWindow(calendarService, time.Now, logg))
		r.With(discountLimiter).Post("/discounts/validate", controllers.ValidateDiscount(pricingResolver, time.Now, logg))

		r.Post("/orders", ordercontrollers.Create(ordersService, logg))
		r.Get("/orders/{orderId}", ordercontrollers.Get(ordersService, logg))
		r.Post("/payments/initiate", controllers.InitiatePayment(paymentsService, logg))

		r.Post("/webhooks/gateway", webhookcontrollers.GatewayWebhook(reconciler, cfg.Gateway.EventsSecret, webhookGuard, settlementMetrics, logg))
	})

	r.Route("/api/admin/v1", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, logg))
		r.Use(middleware.RequireRole(cfg.JWT.AdminRole, logg))
		r.Use(middleware.Idempotency(idempotencyStore, cfg.Checkout.IdempotencyTTL, logg))

		r.Route("/orders", func(r chi.Router) {
			r.Get("/", ordercontrollers.AdminList(ordersService, logg))
			r.Get("/{orderId}", ordercontrollers.Get(ordersService, logg))
			r.Patch("/{orderId}/status", ordercontrollers.AdminUpdateStatus(ordersService, logg))
		})
		r.Route("/blocked-dates", func(r chi.Router) {
			r.Post("/", controllers.AdminBlockDates(calendarService, logg))
			r.Get("/", controllers.AdminListBlockedDates(calendarService, logg))
			r.Delete("/{date}", controllers.AdminUnblockDate(calendarService, logg))
		})
		r.Route("/holidays/{year}", func(r chi.Router) {
			r.Get("/", controllers.AdminHolidays(calendarService, logg))
			r.Put("/", controllers.AdminReplaceHolidays(calendarService, logg))
		})
		r.Route("/discount-codes", func(r chi.Router) {
			r.Post("/", controllers.AdminCreateDiscountCode(discountService, logg))
			r.Get("/", controllers.AdminListDiscountCodes(discountService, logg))
			r.Post("/{id}/activate", controllers.AdminActivateDiscountCode(discountService, logg))
			r.Post("/{id}/deactivate", controllers.AdminDeactivateDiscountCode(discountService, logg))
			r.Delete("/{id}", controllers.AdminDeleteDiscountCode(discountService, logg))
		})
		r.Route("/free-shipping-rules", func(r chi.Router) {
			r.Post("/", controllers.AdminCreateShippingRule(shippingRulesService, logg))
			r.Get("/", controllers.AdminListShippingRules(shippingRulesService, logg))
			r.Put("/{id}", controllers.AdminUpdateShippingRule(shippingRulesService, logg))
			r.Delete("/{id}", controllers.AdminDeleteShippingRule(shippingRulesService, logg))
		})
	})

	return r
}
