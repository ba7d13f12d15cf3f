package promotions

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/librisvault/librisvault-backend/pkg/db/models"
	"github.com/librisvault/librisvault-backend/pkg/enums"
	"github.com/librisvault/librisvault-backend/pkg/pagination"
)

// Repository defines persistence for promotions and the store promotion list.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, promo *models.Promotion) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.Promotion, error)
	FindActiveSystemWide(ctx context.Context, now time.Time) (*models.Promotion, error)
	FindActiveSellerSpecific(ctx context.Context, now time.Time) ([]models.Promotion, error)
	FindExpired(ctx context.Context, now time.Time) ([]models.Promotion, error)
	Delete(ctx context.Context, id uuid.UUID) error
	DeleteByStore(ctx context.Context, storeID uuid.UUID) ([]uuid.UUID, error)
	AttachToSeller(ctx context.Context, storeID, promotionID uuid.UUID) error
	DetachFromSeller(ctx context.Context, storeID, promotionID uuid.UUID) error
	UpdateStatus(ctx context.Context, id uuid.UUID, from, to enums.PromotionStatus) (bool, error)
	List(ctx context.Context, filter ListFilter) ([]models.Promotion, error)
	CountStoreBooks(ctx context.Context, storeID uuid.UUID, ids []uuid.UUID) (int64, error)
	StoreExists(ctx context.Context, storeID uuid.UUID) (bool, error)
}

// ListFilter narrows the management listing.
type ListFilter struct {
	Scope   *enums.PromotionScope
	Status  *enums.PromotionStatus
	StoreID *uuid.UUID
	Limit   int
	Cursor  *pagination.Cursor
}

// PricingRefresher re-persists catalog annotations after promotion state changes.
type PricingRefresher interface {
	RefreshPersisted(ctx context.Context) (int, error)
}

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}
