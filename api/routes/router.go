package routes

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/librisvault/librisvault-backend/api/controllers"
	"github.com/librisvault/librisvault-backend/api/middleware"
	"github.com/librisvault/librisvault-backend/internal/analytics"
	"github.com/librisvault/librisvault-backend/internal/auth"
	"github.com/librisvault/librisvault-backend/internal/books"
	"github.com/librisvault/librisvault-backend/internal/cart"
	"github.com/librisvault/librisvault-backend/internal/complaints"
	"github.com/librisvault/librisvault-backend/internal/orders"
	"github.com/librisvault/librisvault-backend/internal/promotions"
	"github.com/librisvault/librisvault-backend/internal/reviews"
	"github.com/librisvault/librisvault-backend/internal/stores"
	"github.com/librisvault/librisvault-backend/internal/users"
	"github.com/librisvault/librisvault-backend/pkg/auth/session"
	"github.com/librisvault/librisvault-backend/pkg/config"
	"github.com/librisvault/librisvault-backend/pkg/enums"
	"github.com/librisvault/librisvault-backend/pkg/logger"
	"github.com/librisvault/librisvault-backend/pkg/metrics"
)

type rateLimiter interface {
	FixedWindowAllow(ctx context.Context, scope string, limit int64, window time.Duration) (bool, int64, error)
}

// Deps carries everything the HTTP surface needs. Nil services answer 500.
type Deps struct {
	Config   *config.Config
	Logger   *logger.Logger
	Sessions session.AccessSessionChecker
	Limiter  rateLimiter
	// Ready lists the dependencies checked by /health/ready.
	Ready    map[string]controllers.Pinger
	Gatherer prometheus.Gatherer
	Metrics  *metrics.HTTPMetrics

	Auth       auth.Service
	Register   auth.RegisterService
	Users      users.Service
	Stores     stores.Service
	Books      books.Service
	Promotions promotions.Service
	Cart       cart.Service
	Orders     orders.Service
	Reviews    reviews.Service
	Complaints complaints.Service
	Analytics  analytics.Service
}

func NewRouter(d Deps) http.Handler {
	cfg, logg := d.Config, d.Logger

	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg, d.Metrics),
		middleware.CORS(cfg.App.CORSOrigins),
	)

	loginPolicy := middleware.RateLimitPolicy{Name: "login", Window: cfg.AuthRateLimit.LoginWindow, Limit: cfg.AuthRateLimit.LoginIPLimit}
	registerPolicy := middleware.RateLimitPolicy{Name: "register", Window: cfg.AuthRateLimit.RegisterWindow, Limit: cfg.AuthRateLimit.RegisterIPLimit}

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, d.Ready))
	})
	if d.Gatherer != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(d.Gatherer, promhttp.HandlerOpts{}))
	}

	authn := middleware.Auth(cfg.JWT, d.Sessions, logg)
	sellerOrAdmin := middleware.RequireRole(logg, enums.RoleSeller, enums.RoleAdmin)
	adminOnly := middleware.RequireRole(logg, enums.RoleAdmin)

	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/auth", func(r chi.Router) {
			r.With(middleware.IPRateLimit(loginPolicy, d.Limiter, logg)).Post("/login", controllers.AuthLogin(d.Auth, logg))
			r.With(middleware.IPRateLimit(registerPolicy, d.Limiter, logg)).Post("/register", controllers.AuthRegister(d.Register, d.Auth, logg))
			r.Post("/refresh", controllers.AuthRefresh(d.Auth, logg))
			if !cfg.App.IsProd() {
				r.Post("/admin/register", controllers.AdminAuthRegister(d.Register, logg))
			}
			r.Group(func(r chi.Router) {
				r.Use(authn)
				r.Post("/logout", controllers.AuthLogout(d.Auth, logg))
				r.Post("/otp/request", controllers.AuthRequestOTP(d.Auth, logg))
				r.Post("/otp/verify", controllers.AuthVerifyOTP(d.Auth, logg))
			})
		})

		// Public catalog.
		r.Get("/books", controllers.BookList(d.Books, logg))
		r.Get("/books/{bookId}", controllers.BookGet(d.Books, logg))
		r.Get("/books/{bookId}/price", controllers.BookPrice(d.Books, logg))
		r.Get("/books/{bookId}/reviews", controllers.ReviewList(d.Reviews, logg))
		r.Get("/stores/{storeId}", controllers.StoreGet(d.Stores, logg))
		r.Get("/promotions/active", controllers.PromotionListActive(d.Promotions, logg))

		r.Group(func(r chi.Router) {
			r.Use(authn)

			r.Get("/me", controllers.Me(d.Users, logg))

			r.Post("/books/{bookId}/reviews", controllers.ReviewCreate(d.Reviews, logg))
			r.Delete("/reviews/{reviewId}", controllers.ReviewDelete(d.Reviews, logg))

			r.Route("/cart", func(r chi.Router) {
				r.Get("/", controllers.CartFetch(d.Cart, logg))
				r.Delete("/", controllers.CartClear(d.Cart, logg))
				r.Post("/lines", controllers.CartAddLine(d.Cart, logg))
				r.Delete("/lines/{bookId}", controllers.CartRemoveLine(d.Cart, logg))
			})

			r.Route("/orders", func(r chi.Router) {
				r.Get("/", controllers.OrderList(d.Orders, logg))
				r.Post("/buy-now", controllers.OrderBuyNow(d.Orders, logg))
				r.Post("/checkout", controllers.OrderCheckout(d.Orders, logg))
				r.Get("/{orderId}", controllers.OrderGet(d.Orders, logg))
				r.Patch("/{orderId}/status", controllers.OrderUpdateStatus(d.Orders, logg))
			})

			r.Route("/complaints", func(r chi.Router) {
				r.Post("/", controllers.ComplaintFile(d.Complaints, logg))
				r.Get("/", controllers.ComplaintList(d.Complaints, logg))
				r.Get("/{complaintId}", controllers.ComplaintGet(d.Complaints, logg))
				r.With(adminOnly).Patch("/{complaintId}", controllers.ComplaintTransition(d.Complaints, logg))
			})

			r.Group(func(r chi.Router) {
				r.Use(sellerOrAdmin)

				r.Post("/stores", controllers.StoreCreate(d.Stores, logg))
				r.Get("/stores/me", controllers.StoreMine(d.Stores, logg))
				r.Patch("/stores/{storeId}", controllers.StoreUpdate(d.Stores, logg))
				r.Delete("/stores/{storeId}", controllers.StoreDelete(d.Stores, logg))

				r.Post("/books", controllers.BookCreate(d.Books, logg))
				r.Patch("/books/{bookId}", controllers.BookUpdate(d.Books, logg))
				r.Delete("/books/{bookId}", controllers.BookDelete(d.Books, logg))

				r.Post("/promotions", controllers.PromotionCreate(d.Promotions, logg))
				r.Get("/promotions", controllers.PromotionList(d.Promotions, logg))
				r.Get("/promotions/{promotionId}", controllers.PromotionGet(d.Promotions, logg))
				r.Delete("/promotions/{promotionId}", controllers.PromotionDelete(d.Promotions, logg))

				r.Get("/analytics/sales", controllers.AnalyticsSales(d.Analytics, logg))
			})

			r.Group(func(r chi.Router) {
				r.Use(adminOnly)
				r.Get("/books/all", controllers.BookListAll(d.Books, logg))
				r.Post("/promotions/{promotionId}/approve", controllers.PromotionApprove(d.Promotions, logg))
				r.Post("/promotions/{promotionId}/reject", controllers.PromotionReject(d.Promotions, logg))
			})
		})
	})

	return r
}
