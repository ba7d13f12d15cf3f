package reviews

import (
	"context"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/librisvault/librisvault-backend/pkg/db/models"
	"github.com/librisvault/librisvault-backend/pkg/pagination"
)

// Repository persists book reviews.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, review *models.Review) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.Review, error)
	ListByBook(ctx context.Context, bookID uuid.UUID, limit int, cursor *pagination.Cursor) ([]models.Review, error)
	Summary(ctx context.Context, bookID uuid.UUID) (Summary, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

// Summary aggregates the ratings of one book. Average is zero without reviews.
type Summary struct {
	Count   int64
	Average decimal.Decimal
}

type repository struct {
	db *gorm.DB
}

// NewRepository binds a review repository to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, review *models.Review) error {
	return r.db.WithContext(ctx).Create(review).Error
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Review, error) {
	var review models.Review
	if err := r.db.WithContext(ctx).First(&review, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &review, nil
}

func (r *repository) ListByBook(ctx context.Context, bookID uuid.UUID, limit int, cursor *pagination.Cursor) ([]models.Review, error) {
	q := r.db.WithContext(ctx).Model(&models.Review{}).Where("book_id = ?", bookID)
	if cursor != nil {
		q = q.Where("(created_at, id) < (?, ?)", cursor.CreatedAt, cursor.ID)
	}
	var rows []models.Review
	err := q.Order("created_at DESC").
		Order("id DESC").
		Limit(pagination.LimitWithBuffer(limit)).
		Find(&rows).Error
	return rows, err
}

func (r *repository) Summary(ctx context.Context, bookID uuid.UUID) (Summary, error) {
	var row struct {
		Count   int64
		Average decimal.NullDecimal
	}
	err := r.db.WithContext(ctx).
		Model(&models.Review{}).
		Select("COUNT(*) AS count, AVG(rating) AS average").
		Where("book_id = ?", bookID).
		Scan(&row).Error
	if err != nil {
		return Summary{}, err
	}
	summary := Summary{Count: row.Count, Average: decimal.Zero}
	if row.Average.Valid {
		summary.Average = row.Average.Decimal.Round(2)
	}
	return summary, nil
}

func (r *repository) Delete(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Delete(&models.Review{}, "id = ?", id).Error
}
