package books

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/librisvault/librisvault-backend/pkg/db/models"
	"github.com/librisvault/librisvault-backend/pkg/pagination"
)

type repository struct {
	db *gorm.DB
}

// NewRepository builds a books repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, book *models.Book) error {
	return r.db.WithContext(ctx).Create(book).Error
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Book, error) {
	var book models.Book
	if err := r.db.WithContext(ctx).First(&book, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &book, nil
}

func (r *repository) FindByIDs(ctx context.Context, ids []uuid.UUID) ([]models.Book, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var books []models.Book
	err := r.db.WithContext(ctx).Where("id IN ?", ids).Find(&books).Error
	return books, err
}

// Update writes the descriptive and authoritative columns. The pricing cache
// columns are owned by SavePricing and ClearAnnotations.
func (r *repository) Update(ctx context.Context, book *models.Book) error {
	return r.db.WithContext(ctx).
		Model(&models.Book{}).
		Where("id = ?", book.ID).
		Updates(map[string]any{
			"title":        book.Title,
			"author":       book.Author,
			"isbn":         book.ISBN,
			"description":  book.Description,
			"genre":        book.Genre,
			"price":        book.Price,
			"stock":        book.Stock,
			"cover_object": book.CoverObject,
			"updated_at":   time.Now().UTC(),
		}).Error
}

func (r *repository) Delete(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Delete(&models.Book{}, "id = ?", id).Error
}

func (r *repository) List(ctx context.Context, filter ListFilter) ([]models.Book, error) {
	q := r.db.WithContext(ctx).Model(&models.Book{})
	if filter.StoreID != nil {
		q = q.Where("store_id = ?", *filter.StoreID)
	}
	if genre := strings.TrimSpace(filter.Genre); genre != "" {
		q = q.Where("lower(genre) = ?", strings.ToLower(genre))
	}
	if author := strings.TrimSpace(filter.Author); author != "" {
		q = q.Where("author ILIKE ?", "%"+author+"%")
	}
	if search := strings.TrimSpace(filter.Search); search != "" {
		pattern := "%" + search + "%"
		q = q.Where("(title ILIKE ? OR author ILIKE ? OR isbn = ?)", pattern, pattern, search)
	}
	if filter.Cursor != nil {
		q = q.Where("(created_at, id) < (?, ?)", filter.Cursor.CreatedAt, filter.Cursor.ID)
	}

	var books []models.Book
	err := q.Order("created_at DESC").
		Order("id DESC").
		Limit(pagination.LimitWithBuffer(filter.Limit)).
		Find(&books).Error
	return books, err
}

func (r *repository) ListAll(ctx context.Context) ([]models.Book, error) {
	var books []models.Book
	err := r.db.WithContext(ctx).Order("created_at DESC").Order("id DESC").Find(&books).Error
	return books, err
}

// ListBatch walks the catalog in id order for the pricing refresh.
func (r *repository) ListBatch(ctx context.Context, afterID uuid.UUID, limit int) ([]models.Book, error) {
	var books []models.Book
	err := r.db.WithContext(ctx).
		Where("id > ?", afterID).
		Order("id ASC").
		Limit(limit).
		Find(&books).Error
	return books, err
}

func (r *repository) SavePricing(ctx context.Context, id uuid.UUID, annotation Annotation) error {
	return r.db.WithContext(ctx).
		Model(&models.Book{}).
		Where("id = ?", id).
		UpdateColumns(map[string]any{
			"discounted_price":       annotation.Price,
			"active_promotion_label": annotation.Label,
			"active_promotion_id":    annotation.PromotionID,
			"pricing_refreshed_at":   annotation.RefreshedAt,
		}).Error
}

// ClearAnnotations drops the cached discount from books that still reference
// promotionID, optionally limited to a store or a set of books.
func (r *repository) ClearAnnotations(ctx context.Context, promotionID uuid.UUID, scope AnnotationScope) (int64, error) {
	q := r.db.WithContext(ctx).
		Model(&models.Book{}).
		Where("active_promotion_id = ?", promotionID)
	if scope.StoreID != nil {
		q = q.Where("store_id = ?", *scope.StoreID)
	}
	if len(scope.BookIDs) > 0 {
		q = q.Where("id IN ?", scope.BookIDs)
	}
	res := q.UpdateColumns(map[string]any{
		"discounted_price":       nil,
		"active_promotion_label": nil,
		"active_promotion_id":    nil,
		"pricing_refreshed_at":   time.Now().UTC(),
	})
	return res.RowsAffected, res.Error
}

// DeleteByStore removes every book of the store and returns the cover objects
// that should be removed from storage after commit.
func (r *repository) DeleteByStore(ctx context.Context, storeID uuid.UUID) (int64, []string, error) {
	var covers []string
	if err := r.db.WithContext(ctx).
		Model(&models.Book{}).
		Where("store_id = ? AND cover_object IS NOT NULL", storeID).
		Pluck("cover_object", &covers).Error; err != nil {
		return 0, nil, err
	}
	res := r.db.WithContext(ctx).Delete(&models.Book{}, "store_id = ?", storeID)
	if res.Error != nil {
		return 0, nil, res.Error
	}
	return res.RowsAffected, covers, nil
}

// DecrementStock takes qty units only when enough stock remains and returns
// the stock left by this same statement. ok is false when the guard failed.
func (r *repository) DecrementStock(ctx context.Context, id uuid.UUID, qty int) (int, bool, error) {
	var row models.Book
	res := r.db.WithContext(ctx).
		Model(&row).
		Clauses(clause.Returning{Columns: []clause.Column{{Name: "stock"}}}).
		Where("id = ? AND stock >= ?", id, qty).
		UpdateColumns(map[string]any{
			"stock":      gorm.Expr("stock - ?", qty),
			"updated_at": time.Now().UTC(),
		})
	if res.Error != nil {
		return 0, false, res.Error
	}
	if res.RowsAffected != 1 {
		return 0, false, nil
	}
	return row.Stock, true, nil
}

// RestoreStock returns units taken by a cancelled order.
func (r *repository) RestoreStock(ctx context.Context, id uuid.UUID, qty int) error {
	return r.db.WithContext(ctx).
		Model(&models.Book{}).
		Where("id = ?", id).
		UpdateColumns(map[string]any{
			"stock":      gorm.Expr("stock + ?", qty),
			"updated_at": time.Now().UTC(),
		}).Error
}

func (r *repository) StoreExists(ctx context.Context, storeID uuid.UUID) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.Store{}).
		Where("id = ?", storeID).
		Count(&count).Error
	return count > 0, err
}
