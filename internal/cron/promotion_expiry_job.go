package cron

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/multierr"
	"gorm.io/gorm"

	"github.com/librisvault/librisvault-backend/internal/books"
	"github.com/librisvault/librisvault-backend/internal/promotions"
	"github.com/librisvault/librisvault-backend/pkg/db/models"
	"github.com/librisvault/librisvault-backend/pkg/enums"
	"github.com/librisvault/librisvault-backend/pkg/logger"
	"github.com/librisvault/librisvault-backend/pkg/metrics"
	"github.com/librisvault/librisvault-backend/pkg/outbox"
)

const promotionExpiryJobName = "promotion-expiry"

// PromotionExpiryJobParams wires the expiry sweep.
type PromotionExpiryJobParams struct {
	Logger     *logger.Logger
	DB         txRunner
	Promotions promotions.Repository
	Books      books.Repository
	Outbox     outboxEmitter
	Metrics    *metrics.PricingMetrics
	Now        func() time.Time
}

type promotionExpiryJob struct {
	logg       *logger.Logger
	db         txRunner
	promotions promotions.Repository
	books      books.Repository
	outbox     outboxEmitter
	metrics    *metrics.PricingMetrics
	now        func() time.Time
}

// NewPromotionExpiryJob builds the job that removes promotions whose window
// has closed and clears the catalog annotations that still point at them.
func NewPromotionExpiryJob(params PromotionExpiryJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.DB == nil {
		return nil, fmt.Errorf("db runner required")
	}
	if params.Promotions == nil {
		return nil, fmt.Errorf("promotions repository required")
	}
	if params.Books == nil {
		return nil, fmt.Errorf("books repository required")
	}
	if params.Outbox == nil {
		return nil, fmt.Errorf("outbox emitter required")
	}
	if params.Now == nil {
		params.Now = time.Now
	}
	return &promotionExpiryJob{
		logg:       params.Logger,
		db:         params.DB,
		promotions: params.Promotions,
		books:      params.Books,
		outbox:     params.Outbox,
		metrics:    params.Metrics,
		now:        params.Now,
	}, nil
}

func (j *promotionExpiryJob) Name() string { return promotionExpiryJobName }

// Run handles each expired promotion in its own transaction. A failed promotion
// is left in place for the next run; the others still proceed.
func (j *promotionExpiryJob) Run(ctx context.Context) error {
	now := j.now().UTC()
	expired, err := j.promotions.FindExpired(ctx, now)
	if err != nil {
		return fmt.Errorf("find expired promotions: %w", err)
	}
	if len(expired) == 0 {
		j.logg.Info(ctx, "no expired promotions")
		return nil
	}

	var (
		errs    error
		removed int
		cleared int64
	)
	for _, promo := range expired {
		promoCtx := j.logg.WithFields(ctx, map[string]any{
			"promotion_id": promo.ID.String(),
			"scope":        string(promo.Scope),
			"ends_at":      promo.EndsAt,
		})
		rows, err := j.expire(promoCtx, promo)
		if err != nil {
			j.logg.Error(promoCtx, "promotion expiry failed", err)
			j.metrics.IncSweepFailure()
			errs = multierr.Append(errs, fmt.Errorf("promotion %s: %w", promo.ID, err))
			continue
		}
		j.metrics.IncPromotionExpired(string(promo.Scope))
		removed++
		cleared += rows
	}

	j.logg.Info(j.logg.WithFields(ctx, map[string]any{
		"expired_found":       len(expired),
		"expired_removed":     removed,
		"annotations_cleared": cleared,
	}), "promotion expiry sweep complete")
	return errs
}

func (j *promotionExpiryJob) expire(ctx context.Context, promo models.Promotion) (int64, error) {
	var cleared int64
	err := j.db.WithTx(ctx, func(tx *gorm.DB) error {
		promoRepo := j.promotions.WithTx(tx)
		scope := books.AnnotationScope{}

		if promo.Scope.IsSellerOwned() && promo.StoreID != nil {
			if err := promoRepo.DetachFromSeller(ctx, *promo.StoreID, promo.ID); err != nil {
				return fmt.Errorf("detach from store: %w", err)
			}
			scope.StoreID = promo.StoreID
			if len(promo.ApplicableBookIDs) > 0 {
				scope.BookIDs = promo.ApplicableBookIDs
			}
		}

		rows, err := j.books.WithTx(tx).ClearAnnotations(ctx, promo.ID, scope)
		if err != nil {
			return fmt.Errorf("clear annotations: %w", err)
		}
		cleared = rows

		if err := promoRepo.Delete(ctx, promo.ID); err != nil {
			return fmt.Errorf("delete promotion: %w", err)
		}

		return j.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventPromotionExpired,
			AggregateType: enums.AggregatePromotion,
			AggregateID:   promo.ID,
			Data: outbox.PromotionStatusEvent{
				PromotionID: promo.ID,
				Scope:       string(promo.Scope),
				StoreID:     promo.StoreID,
				Status:      string(enums.PromotionStatusExpired),
			},
		})
	})
	return cleared, err
}
