package books

import (
	"context"
	"io"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/librisvault/librisvault-backend/internal/promotions"
	"github.com/librisvault/librisvault-backend/pkg/db/models"
	"github.com/librisvault/librisvault-backend/pkg/pagination"
)

// Repository defines persistence for catalog items.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, book *models.Book) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.Book, error)
	FindByIDs(ctx context.Context, ids []uuid.UUID) ([]models.Book, error)
	Update(ctx context.Context, book *models.Book) error
	Delete(ctx context.Context, id uuid.UUID) error
	List(ctx context.Context, filter ListFilter) ([]models.Book, error)
	ListAll(ctx context.Context) ([]models.Book, error)
	ListBatch(ctx context.Context, afterID uuid.UUID, limit int) ([]models.Book, error)
	SavePricing(ctx context.Context, id uuid.UUID, annotation Annotation) error
	ClearAnnotations(ctx context.Context, promotionID uuid.UUID, scope AnnotationScope) (int64, error)
	DeleteByStore(ctx context.Context, storeID uuid.UUID) (int64, []string, error)
	DecrementStock(ctx context.Context, id uuid.UUID, qty int) (remaining int, ok bool, err error)
	RestoreStock(ctx context.Context, id uuid.UUID, qty int) error
	StoreExists(ctx context.Context, storeID uuid.UUID) (bool, error)
}

// ListFilter narrows the catalog listing. Search matches title, author or isbn.
type ListFilter struct {
	StoreID *uuid.UUID
	Genre   string
	Author  string
	Search  string
	Limit   int
	Cursor  *pagination.Cursor
}

// Annotation is the persisted pricing cache of one book. An invalid Price means
// no promotion applied at the last refresh.
type Annotation struct {
	Price       decimal.NullDecimal
	Label       *string
	PromotionID *uuid.UUID
	RefreshedAt time.Time
}

// AnnotationScope restricts which books ClearAnnotations touches. The zero
// value means every book that still carries the promotion.
type AnnotationScope struct {
	StoreID *uuid.UUID
	BookIDs []uuid.UUID
}

// PriceResolver loads the active promotion state.
type PriceResolver interface {
	ResolveActivePromotions(ctx context.Context, now time.Time) (promotions.ActiveSet, error)
}

// ObjectStore holds cover images.
type ObjectStore interface {
	Upload(ctx context.Context, object, contentType string, body io.Reader) error
	Delete(ctx context.Context, object string) error
	PublicURL(object string) string
}

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}
