package orders

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/librisvault/librisvault-backend/internal/promotions"
	"github.com/librisvault/librisvault-backend/pkg/db/models"
	"github.com/librisvault/librisvault-backend/pkg/enums"
	"github.com/librisvault/librisvault-backend/pkg/pagination"
)

// Repository defines persistence operations for orders and their line items.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, order *models.Order) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.Order, error)
	List(ctx context.Context, filter ListFilter) ([]models.Order, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, from, to enums.OrderStatus, payment enums.PaymentStatus) (bool, error)
}

// ListFilter narrows order listings. A nil UserID and StoreID lists everything.
type ListFilter struct {
	UserID  *uuid.UUID
	StoreID *uuid.UUID
	Status  *enums.OrderStatus
	Limit   int
	Cursor  *pagination.Cursor
}

type priceResolver interface {
	ResolveActivePromotions(ctx context.Context, now time.Time) (promotions.ActiveSet, error)
}

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}
