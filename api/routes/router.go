package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/angelmondragon/vendorportal/api/controllers"
	inventorycontrollers "github.com/angelmondragon/vendorportal/api/controllers/inventory"
	"github.com/angelmondragon/vendorportal/api/middleware"
	"github.com/angelmondragon/vendorportal/internal/auth"
	"github.com/angelmondragon/vendorportal/internal/checkout"
	"github.com/angelmondragon/vendorportal/internal/inventory"
	"github.com/angelmondragon/vendorportal/internal/session"
	"github.com/angelmondragon/vendorportal/internal/uploads"
	"github.com/angelmondragon/vendorportal/pkg/config"
	"github.com/angelmondragon/vendorportal/pkg/db"
	"github.com/angelmondragon/vendorportal/pkg/logger"
	"github.com/angelmondragon/vendorportal/pkg/paystack"
	"github.com/angelmondragon/vendorportal/pkg/redis"
	"github.com/angelmondragon/vendorportal/pkg/upstream"
)

var (
	readMethods   = []string{http.MethodGet}
	createMethods = []string{http.MethodGet, http.MethodPost}
	recordMethods = []string{http.MethodGet, http.MethodPut, http.MethodPatch, http.MethodDelete}
)

// Params carries everything the HTTP surface depends on. Optional collaborators
// (Redis, Paystack, Uploads) may be nil; their routes degrade accordingly.
type Params struct {
	Config    *config.Config
	Logger    *logger.Logger
	DB        db.Pinger
	Redis     *redis.Client
	Backend   *upstream.Client
	Paystack  *paystack.Client
	Cookies   *session.Cookies
	Auth      auth.Service
	Inventory inventory.Service
	Checkout  checkout.Service
	Uploads   uploads.Service
	Metrics   http.Handler
}

func NewRouter(p Params) http.Handler {
	cfg := p.Config
	logg := p.Logger

	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(cfg.CORS.AllowedOrigins),
		middleware.RateLimit(middleware.NewIPRateLimiter(cfg.RateLimit.RequestsPerSecond, cfg.RateLimit.Burst), logg),
	)

	loginPolicy := middleware.NewAuthRateLimitPolicy(
		"login",
		cfg.RateLimit.LoginWindow,
		cfg.RateLimit.LoginIPLimit,
		cfg.RateLimit.LoginEmailLimit,
	)
	registerPolicy := middleware.NewAuthRateLimitPolicy(
		"register",
		cfg.RateLimit.RegisterWindow,
		cfg.RateLimit.RegisterIPLimit,
		cfg.RateLimit.RegisterEmailLimit,
	)
	resetPolicy := middleware.NewAuthRateLimitPolicy(
		"reset",
		cfg.RateLimit.ResetWindow,
		cfg.RateLimit.ResetIPLimit,
		cfg.RateLimit.ResetEmailLimit,
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, p.DB, p.Redis, logg))
	})
	if p.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", p.Metrics)
	}

	proxy := controllers.Proxy(p.Backend, cfg.Upstream.MaxBodyBytes, logg)
	requireSession := middleware.RequireSession(logg)
	requireVendor := middleware.RequireVendor(p.Auth, logg)
	idempotency := middleware.Idempotency(p.Redis, logg)

	r.Route("/api/vendors", func(r chi.Router) {
		r.With(middleware.AuthRateLimit(loginPolicy, p.Redis, logg)).Post("/login", controllers.AuthLogin(p.Auth, p.Cookies, logg))
		r.With(middleware.AuthRateLimit(registerPolicy, p.Redis, logg)).Post("/register", controllers.AuthRegister(p.Auth, p.Cookies, logg))
		r.Post("/logout", controllers.AuthLogout(p.Auth, p.Cookies, logg))
		r.Post("/refresh", controllers.AuthRefresh(p.Auth, p.Cookies, logg))
		r.With(middleware.AuthRateLimit(resetPolicy, p.Redis, logg)).Post("/forgot-password", controllers.AuthForgotPassword(p.Auth, logg))
		r.Post("/reset-password", controllers.AuthResetPassword(p.Auth, logg))
		r.Post("/verify-email", controllers.AuthVerifyEmail(p.Auth, logg))
		r.With(middleware.AuthRateLimit(resetPolicy, p.Redis, logg)).Post("/resend-verification", controllers.AuthResendVerification(p.Auth, logg))

		r.Group(func(r chi.Router) {
			r.Use(requireSession)
			r.Get("/me", controllers.VendorMe(p.Auth, logg))
			r.Patch("/me", controllers.VendorUpdateProfile(p.Auth, logg))
		})
	})

	r.Route("/api/public/inventory", func(r chi.Router) {
		public := controllers.PublicInventory(p.Backend, p.Redis, cfg.Cache.PublicInventoryTTL, logg)
		r.Get("/{slug}", public)
		r.Get("/{slug}/products/{productId}", public)
	})

	paystackRoutes := controllers.NewPaystackRoutes(p.Paystack, proxy, cfg.Paystack.Currency, cfg.Paystack.CallbackURL, logg)
	r.Post("/api/paystack/webhook", controllers.PaystackWebhook(p.Checkout, p.Paystack, logg))

	r.Group(func(r chi.Router) {
		r.Use(requireSession)

		r.Route("/api/vendor", func(r chi.Router) {
			r.Group(func(r chi.Router) {
				r.Use(idempotency)
				for _, resource := range []string{"/products", "/events", "/bookings", "/invoices", "/inventory/links"} {
					mount(r, resource, proxy, createMethods...)
					mount(r, resource+"/{id}", proxy, recordMethods...)
				}
				mount(r, "/bookings/{id}/status", proxy, http.MethodPut, http.MethodPatch)
				mount(r, "/wallet", proxy, readMethods...)
				mount(r, "/wallet/transactions", proxy, readMethods...)
				mount(r, "/wallet/withdraw", proxy, http.MethodPost)
				mount(r, "/dashboard", proxy, readMethods...)
			})

			r.Route("/stock", func(r chi.Router) {
				r.Use(requireVendor, idempotency)
				r.Get("/", inventorycontrollers.List(p.Inventory, logg))
				r.Post("/", inventorycontrollers.Create(p.Inventory, logg))
				r.Get("/summary", inventorycontrollers.Summary(p.Inventory, logg))
				r.Post("/reservations/{reservationId}/commit", inventorycontrollers.Commit(p.Inventory, logg))
				r.Post("/reservations/{reservationId}/release", inventorycontrollers.Release(p.Inventory, logg))
				r.Route("/{id}", func(r chi.Router) {
					r.Get("/", inventorycontrollers.Get(p.Inventory, logg))
					r.Put("/", inventorycontrollers.Update(p.Inventory, logg))
					r.Patch("/", inventorycontrollers.AdjustStock(p.Inventory, logg))
					r.Delete("/", inventorycontrollers.Delete(p.Inventory, logg))
					r.Get("/preview", inventorycontrollers.Preview(p.Inventory, logg))
					r.Patch("/variants/{variantId}", inventorycontrollers.AdjustVariantStock(p.Inventory, logg))
					r.Post("/reservations", inventorycontrollers.Reserve(p.Inventory, logg))
				})
			})
		})

		r.Route("/api/paystack", func(r chi.Router) {
			r.Use(idempotency)
			r.Get("/banks", paystackRoutes.Banks())
			r.Get("/resolve", paystackRoutes.Resolve())
			r.Post("/initialize", paystackRoutes.Initialize())
			r.Get("/verify/{reference}", paystackRoutes.Verify())
		})

		r.Route("/api/checkout", func(r chi.Router) {
			r.Use(requireVendor, idempotency)
			r.Post("/initialize", controllers.CheckoutInitialize(p.Checkout, logg))
			r.Get("/verify/{reference}", controllers.CheckoutVerify(p.Checkout, logg))
		})

		r.With(requireVendor).Post("/api/upload", controllers.Upload(p.Uploads, logg))
	})

	return r
}

func mount(r chi.Router, pattern string, h http.HandlerFunc, methods ...string) {
	for _, method := range methods {
		r.MethodFunc(method, pattern, h)
	}
}
