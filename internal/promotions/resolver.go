package promotions

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/librisvault/librisvault-backend/pkg/db/models"
	"github.com/librisvault/librisvault-backend/pkg/enums"
	pkgerrors "github.com/librisvault/librisvault-backend/pkg/errors"
	"github.com/librisvault/librisvault-backend/pkg/pricing"
)

// ActiveSet is the promotion state at a point in time. System is nil when no
// system-wide promotion is eligible.
type ActiveSet struct {
	System     *models.Promotion
	Seller     []models.Promotion
	ResolvedAt time.Time
}

// PriceFor resolves the book's price against this set.
func (a ActiveSet) PriceFor(book models.Book) Resolution {
	return ComputeDiscountedPrice(book, a.System, a.Seller)
}

// Resolution is the outcome of pricing one book. Label and PromotionID are nil
// when no promotion applies, in which case Price equals BasePrice.
type Resolution struct {
	BasePrice   decimal.Decimal
	Price       decimal.Decimal
	Percentage  decimal.Decimal
	Label       *string
	PromotionID *uuid.UUID
	Scope       enums.PromotionScope
}

// Discounted reports whether a promotion was applied.
func (r Resolution) Discounted() bool {
	return r.PromotionID != nil
}

type activeFinder interface {
	FindActiveSystemWide(ctx context.Context, now time.Time) (*models.Promotion, error)
	FindActiveSellerSpecific(ctx context.Context, now time.Time) ([]models.Promotion, error)
}

// Resolver loads the active promotion state from the repository.
type Resolver struct {
	repo activeFinder
}

func NewResolver(repo activeFinder) *Resolver {
	return &Resolver{repo: repo}
}

// ResolveActivePromotions returns the system-wide promotion (if any) and every
// seller promotion eligible at now.
func (r *Resolver) ResolveActivePromotions(ctx context.Context, now time.Time) (ActiveSet, error) {
	system, err := r.repo.FindActiveSystemWide(ctx, now)
	if err != nil {
		return ActiveSet{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load system-wide promotion")
	}
	seller, err := r.repo.FindActiveSellerSpecific(ctx, now)
	if err != nil {
		return ActiveSet{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load seller promotions")
	}
	return ActiveSet{System: system, Seller: seller, ResolvedAt: now}, nil
}

// ComputeDiscountedPrice applies precedence: the newest seller promotion that
// covers the book wins, then the system-wide promotion, then the base price.
func ComputeDiscountedPrice(book models.Book, system *models.Promotion, seller []models.Promotion) Resolution {
	if match := newestCovering(book, seller); match != nil {
		return apply(book.Price, match)
	}
	if system != nil && system.Scope == enums.PromotionScopeSystemWide {
		return apply(book.Price, system)
	}
	return Resolution{BasePrice: book.Price, Price: book.Price, Percentage: decimal.Zero}
}

func newestCovering(book models.Book, seller []models.Promotion) *models.Promotion {
	var best *models.Promotion
	for i := range seller {
		candidate := &seller[i]
		if !candidate.Covers(book.StoreID, book.ID) {
			continue
		}
		if best == nil || newer(candidate, best) {
			best = candidate
		}
	}
	return best
}

// newer orders by created_at, falling back to id so equal timestamps stay deterministic.
func newer(a, b *models.Promotion) bool {
	if !a.CreatedAt.Equal(b.CreatedAt) {
		return a.CreatedAt.After(b.CreatedAt)
	}
	return a.ID.String() > b.ID.String()
}

func apply(base decimal.Decimal, promo *models.Promotion) Resolution {
	label := promo.Title
	id := promo.ID
	return Resolution{
		BasePrice:   base,
		Price:       pricing.ApplyDiscount(base, promo.DiscountPercentage),
		Percentage:  promo.DiscountPercentage,
		Label:       &label,
		PromotionID: &id,
		Scope:       promo.Scope,
	}
}
