package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/milanbhagat/vastra-backend/api/controllers"
	webhookcontrollers "github.com/milanbhagat/vastra-backend/api/controllers/webhooks"
	"github.com/milanbhagat/vastra-backend/api/middleware"
	cartsvc "github.com/milanbhagat/vastra-backend/internal/cart"
	checkoutsvc "github.com/milanbhagat/vastra-backend/internal/checkout"
	giftsvc "github.com/milanbhagat/vastra-backend/internal/giftcards"
	ordersvc "github.com/milanbhagat/vastra-backend/internal/orders"
	productsvc "github.com/milanbhagat/vastra-backend/internal/products"
	razorpaywebhook "github.com/milanbhagat/vastra-backend/internal/webhooks/razorpay"
	"github.com/milanbhagat/vastra-backend/pkg/auth/session"
	"github.com/milanbhagat/vastra-backend/pkg/config"
	"github.com/milanbhagat/vastra-backend/pkg/db"
	"github.com/milanbhagat/vastra-backend/pkg/enums"
	"github.com/milanbhagat/vastra-backend/pkg/logger"
	"github.com/milanbhagat/vastra-backend/pkg/metrics"
	"github.com/milanbhagat/vastra-backend/pkg/redis"
)

func NewRouter(
	cfg *config.Config,
	logg *logger.Logger,
	dbP db.Pinger,
	redisClient *redis.Client,
	sessionChecker session.AccessSessionChecker,
	productService productsvc.Service,
	cartService cartsvc.Service,
	checkoutService checkoutsvc.Service,
	orderService ordersvc.Service,
	giftCardService giftsvc.Service,
	webhookService razorpaywebhook.Service,
	payMetrics *metrics.PaymentMetrics,
) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, dbP, redisClient))
	})

	r.Handle("/metrics", promhttp.Handler())

	// Signature-verified, so mounted outside the auth and idempotency groups.
	r.Route("/webhooks/razorpay", func(r chi.Router) {
		r.Post("/payment", webhookcontrollers.RazorpayPayment(webhookService, logg))
		r.Post("/gift-card", webhookcontrollers.RazorpayGiftCard(webhookService, logg))
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, sessionChecker, logg))
		r.Use(middleware.Idempotency(redisClient, logg))

		r.Route("/products", func(r chi.Router) {
			r.Get("/", controllers.ProductList(productService, logg))
			r.Get("/{productId}", controllers.ProductDetail(productService, logg))
			r.Get("/{productId}/sizes", controllers.ProductSizes(productService, logg))
		})

		r.Route("/cart", func(r chi.Router) {
			r.Get("/", controllers.CartFetch(cartService, logg))
			r.Post("/", controllers.CartAdd(cartService, logg))
			r.Delete("/{productId}", controllers.CartRemove(cartService, logg))
		})

		r.Post("/checkout/finalize", controllers.CheckoutFinalize(checkoutService, payMetrics, logg))

		r.Route("/orders", func(r chi.Router) {
			r.Get("/", controllers.OrderHistory(orderService, logg))
			r.Get("/pay-now/{gatewayOrderId}", controllers.CheckoutPayNow(checkoutService, logg))
			r.Delete("/{orderId}", controllers.OrderCancel(orderService, logg))
		})

		r.Route("/gift-cards", func(r chi.Router) {
			r.Get("/", controllers.GiftCardList(giftCardService, logg))
			r.Post("/buy", controllers.GiftCardBuy(checkoutService, logg))
			r.Get("/{code}", controllers.GiftCardShow(giftCardService, logg))
		})
	})

	r.Route("/api/admin/v1", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, sessionChecker, logg))
		r.Use(middleware.RequireRole(string(enums.UserRoleAdmin), logg))
		r.Use(middleware.Idempotency(redisClient, logg))
		r.Post("/gift-cards", controllers.AdminGiftCardIssue(giftCardService, logg))
	})

	return r
}
