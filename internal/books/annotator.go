package books

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/multierr"

	"github.com/librisvault/librisvault-backend/internal/promotions"
	"github.com/librisvault/librisvault-backend/pkg/db/models"
	pkgerrors "github.com/librisvault/librisvault-backend/pkg/errors"
	"github.com/librisvault/librisvault-backend/pkg/logger"
	"github.com/librisvault/librisvault-backend/pkg/metrics"
)

const defaultRefreshBatchSize = 500

// AnnotatorParams wires the catalog price annotator.
type AnnotatorParams struct {
	Repo      Repository
	Resolver  PriceResolver
	Metrics   *metrics.PricingMetrics
	BatchSize int
	Logger    *logger.Logger
	Now       func() time.Time
}

// Annotator applies the promotion resolver across catalog rows. Reads project
// pricing without writing; RefreshPersisted keeps the cached columns current.
type Annotator struct {
	repo      Repository
	resolver  PriceResolver
	metrics   *metrics.PricingMetrics
	batchSize int
	logg      *logger.Logger
	now       func() time.Time
}

func NewAnnotator(params AnnotatorParams) (*Annotator, error) {
	if params.Repo == nil {
		return nil, fmt.Errorf("books repository required")
	}
	if params.Resolver == nil {
		return nil, fmt.Errorf("price resolver required")
	}
	if params.BatchSize <= 0 {
		params.BatchSize = defaultRefreshBatchSize
	}
	if params.Logger == nil {
		params.Logger = logger.Nop()
	}
	if params.Now == nil {
		params.Now = time.Now
	}
	return &Annotator{
		repo:      params.Repo,
		resolver:  params.Resolver,
		metrics:   params.Metrics,
		batchSize: params.BatchSize,
		logg:      params.Logger,
		now:       params.Now,
	}, nil
}

// AnnotateAll resolves the promotion state once and prices every item against it.
func (a *Annotator) AnnotateAll(ctx context.Context, items []models.Book) ([]AnnotatedBook, error) {
	set, err := a.resolver.ResolveActivePromotions(ctx, a.now().UTC())
	if err != nil {
		return nil, pkgerrors.Ensure(err, pkgerrors.CodeDependency, "resolve active promotions")
	}
	return annotate(set, items), nil
}

// Resolve prices a single book live.
func (a *Annotator) Resolve(ctx context.Context, book models.Book) (promotions.Resolution, time.Time, error) {
	now := a.now().UTC()
	set, err := a.resolver.ResolveActivePromotions(ctx, now)
	if err != nil {
		return promotions.Resolution{}, now, pkgerrors.Ensure(err, pkgerrors.CodeDependency, "resolve active promotions")
	}
	return set.PriceFor(book), now, nil
}

func annotate(set promotions.ActiveSet, items []models.Book) []AnnotatedBook {
	out := make([]AnnotatedBook, 0, len(items))
	for _, item := range items {
		out = append(out, AnnotatedBook{Book: item, Resolution: set.PriceFor(item)})
	}
	return out
}

// RefreshPersisted walks the whole catalog and writes the discount cache of
// every book whose annotation changed. A failed row is logged and skipped; the
// combined error is returned after the walk.
func (a *Annotator) RefreshPersisted(ctx context.Context) (int, error) {
	now := a.now().UTC()
	set, err := a.resolver.ResolveActivePromotions(ctx, now)
	if err != nil {
		return 0, pkgerrors.Ensure(err, pkgerrors.CodeDependency, "resolve active promotions")
	}

	var (
		written int
		errs    error
		after   = uuid.Nil
	)
	for {
		batch, err := a.repo.ListBatch(ctx, after, a.batchSize)
		if err != nil {
			errs = multierr.Append(errs, fmt.Errorf("list catalog batch after %s: %w", after, err))
			break
		}
		for _, book := range batch {
			next := annotationFor(set.PriceFor(book), now)
			if sameAnnotation(book, next) {
				continue
			}
			if err := a.repo.SavePricing(ctx, book.ID, next); err != nil {
				a.logg.Error(a.logg.WithField(ctx, "book_id", book.ID.String()), "persist book pricing failed", err)
				errs = multierr.Append(errs, fmt.Errorf("book %s: %w", book.ID, err))
				continue
			}
			written++
		}
		if len(batch) < a.batchSize {
			break
		}
		after = batch[len(batch)-1].ID
	}

	a.metrics.AddAnnotationsWritten(written)
	if errs != nil {
		return written, pkgerrors.Wrap(pkgerrors.CodeDependency, errs, "refresh catalog pricing")
	}
	return written, nil
}

func annotationFor(res promotions.Resolution, now time.Time) Annotation {
	if !res.Discounted() {
		return Annotation{RefreshedAt: now}
	}
	return Annotation{
		Price:       decimal.NewNullDecimal(res.Price),
		Label:       res.Label,
		PromotionID: res.PromotionID,
		RefreshedAt: now,
	}
}

func sameAnnotation(book models.Book, next Annotation) bool {
	if book.DiscountedPrice.Valid != next.Price.Valid {
		return false
	}
	if next.Price.Valid && !book.DiscountedPrice.Decimal.Equal(next.Price.Decimal) {
		return false
	}
	return equalString(book.ActivePromotionLabel, next.Label) && equalUUID(book.ActivePromotionID, next.PromotionID)
}

func equalString(a, b *string) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

func equalUUID(a, b *uuid.UUID) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}
