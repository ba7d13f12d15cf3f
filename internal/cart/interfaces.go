package cart

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/librisvault/librisvault-backend/internal/promotions"
	"github.com/librisvault/librisvault-backend/pkg/db/models"
)

// Repository defines the persistence surface required by the cart service.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	ListLines(ctx context.Context, userID uuid.UUID) ([]models.CartLine, error)
	AddGuarded(ctx context.Context, userID, bookID uuid.UUID, delta int, unitPrice decimal.Decimal) (bool, error)
	Decrement(ctx context.Context, userID, bookID uuid.UUID, delta int) (bool, error)
	DeleteLine(ctx context.Context, userID, bookID uuid.UUID) (bool, error)
	Clear(ctx context.Context, userID uuid.UUID) error
	DeleteByStore(ctx context.Context, storeID uuid.UUID) (int64, error)
}

type bookLoader interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.Book, error)
	FindByIDs(ctx context.Context, ids []uuid.UUID) ([]models.Book, error)
}

type priceResolver interface {
	ResolveActivePromotions(ctx context.Context, now time.Time) (promotions.ActiveSet, error)
}

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}
