package main

import (
	"fmt"

	"github.com/librisvault/librisvault-backend/api/controllers"
	"github.com/librisvault/librisvault-backend/api/routes"
	"github.com/librisvault/librisvault-backend/internal/analytics"
	"github.com/librisvault/librisvault-backend/internal/analytics/query"
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
	"github.com/librisvault/librisvault-backend/pkg/db"
	"github.com/librisvault/librisvault-backend/pkg/logger"
	"github.com/librisvault/librisvault-backend/pkg/metrics"
	"github.com/librisvault/librisvault-backend/pkg/otp"
	"github.com/librisvault/librisvault-backend/pkg/outbox"
	"github.com/librisvault/librisvault-backend/pkg/redis"
	"github.com/librisvault/librisvault-backend/pkg/storage/gcs"
)

// buildDeps constructs repositories and services bottom-up. A nil gcsClient
// leaves uploads disabled.
func buildDeps(
	cfg *config.Config,
	logg *logger.Logger,
	dbClient *db.Client,
	redisClient *redis.Client,
	gcsClient *gcs.Client,
	pricingMetrics *metrics.PricingMetrics,
) (routes.Deps, error) {
	gormDB := dbClient.DB()

	userRepo := users.NewRepository(gormDB)
	storeRepo := stores.NewRepository(gormDB)
	bookRepo := books.NewRepository(gormDB)
	promoRepo := promotions.NewRepository(gormDB)
	cartRepo := cart.NewRepository(gormDB)
	orderRepo := orders.NewRepository(gormDB)
	reviewRepo := reviews.NewRepository(gormDB)
	complaintRepo := complaints.NewRepository(gormDB)
	emitter := outbox.NewService(outbox.NewRepository(gormDB), logg)

	var objects books.ObjectStore
	ready := map[string]controllers.Pinger{"db": dbClient, "redis": redisClient}
	if gcsClient != nil {
		objects = gcsClient
		ready["gcs"] = gcsClient
	}

	resolver := promotions.NewResolver(promoRepo)

	sessions, err := session.NewManager(redisClient, cfg.JWT)
	if err != nil {
		return routes.Deps{}, fmt.Errorf("session manager: %w", err)
	}

	authSvc, err := auth.NewService(auth.ServiceParams{
		UserRepo:        userRepo,
		StoreRepo:       storeRepo,
		SessionManager:  sessions,
		RateLimiter:     redisClient,
		OTPStore:        otp.NewRedisStore(redisClient, cfg.OTP),
		JWTConfig:       cfg.JWT,
		RateLimitConfig: cfg.AuthRateLimit,
		OTPConfig:       cfg.OTP,
		ExposeOTP:       cfg.App.IsDev(),
		Logger:          logg,
	})
	if err != nil {
		return routes.Deps{}, fmt.Errorf("auth service: %w", err)
	}

	registerSvc, err := auth.NewRegisterService(auth.RegisterServiceParams{
		Users:          userRepo,
		Tx:             dbClient,
		PasswordConfig: cfg.Password,
	})
	if err != nil {
		return routes.Deps{}, fmt.Errorf("register service: %w", err)
	}

	usersSvc, err := users.NewService(userRepo, storeRepo)
	if err != nil {
		return routes.Deps{}, fmt.Errorf("users service: %w", err)
	}

	annotator, err := books.NewAnnotator(books.AnnotatorParams{
		Repo:      bookRepo,
		Resolver:  resolver,
		Metrics:   pricingMetrics,
		BatchSize: cfg.Pricing.RefreshBatchSize,
		Logger:    logg,
	})
	if err != nil {
		return routes.Deps{}, fmt.Errorf("pricing annotator: %w", err)
	}

	bookSvc, err := books.NewService(books.ServiceParams{
		Repo:      bookRepo,
		Annotator: annotator,
		Objects:   objects,
		Logger:    logg,
	})
	if err != nil {
		return routes.Deps{}, fmt.Errorf("book service: %w", err)
	}

	promoSvc, err := promotions.NewService(promotions.ServiceParams{
		Repo:            promoRepo,
		Tx:              dbClient,
		Outbox:          emitter,
		Refresher:       annotator,
		RefreshOnChange: cfg.Pricing.RefreshOnPromotionChange,
		Logger:          logg,
	})
	if err != nil {
		return routes.Deps{}, fmt.Errorf("promotion service: %w", err)
	}

	storeSvc, err := stores.NewService(stores.ServiceParams{
		Repo:       storeRepo,
		Users:      userRepo,
		Books:      bookRepo,
		Promotions: promoRepo,
		Cart:       cartRepo,
		Objects:    objects,
		Tx:         dbClient,
		Outbox:     emitter,
		Logger:     logg,
	})
	if err != nil {
		return routes.Deps{}, fmt.Errorf("store service: %w", err)
	}

	cartSvc, err := cart.NewService(cart.ServiceParams{
		Repo:     cartRepo,
		Books:    bookRepo,
		Resolver: resolver,
		Tx:       dbClient,
		Logger:   logg,
	})
	if err != nil {
		return routes.Deps{}, fmt.Errorf("cart service: %w", err)
	}

	orderSvc, err := orders.NewService(orders.ServiceParams{
		Repo:     orderRepo,
		Books:    bookRepo,
		Cart:     cartRepo,
		Resolver: resolver,
		Tx:       dbClient,
		Outbox:   emitter,
		Logger:   logg,
	})
	if err != nil {
		return routes.Deps{}, fmt.Errorf("order service: %w", err)
	}

	reviewSvc, err := reviews.NewService(reviews.ServiceParams{Repo: reviewRepo, Books: bookRepo, Logger: logg})
	if err != nil {
		return routes.Deps{}, fmt.Errorf("review service: %w", err)
	}

	complaintSvc, err := complaints.NewService(complaints.ServiceParams{Repo: complaintRepo, Orders: orderRepo, Logger: logg})
	if err != nil {
		return routes.Deps{}, fmt.Errorf("complaint service: %w", err)
	}

	sales, err := query.NewSalesService(gormDB)
	if err != nil {
		return routes.Deps{}, fmt.Errorf("sales query: %w", err)
	}
	analyticsSvc, err := analytics.NewService(sales, nil)
	if err != nil {
		return routes.Deps{}, fmt.Errorf("analytics service: %w", err)
	}

	return routes.Deps{
		Config:     cfg,
		Logger:     logg,
		Sessions:   sessions,
		Limiter:    redisClient,
		Ready:      ready,
		Auth:       authSvc,
		Register:   registerSvc,
		Users:      usersSvc,
		Stores:     storeSvc,
		Books:      bookSvc,
		Promotions: promoSvc,
		Cart:       cartSvc,
		Orders:     orderSvc,
		Reviews:    reviewSvc,
		Complaints: complaintSvc,
		Analytics:  analyticsSvc,
	}, nil
}
