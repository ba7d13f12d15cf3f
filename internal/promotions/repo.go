package promotions

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/librisvault/librisvault-backend/pkg/db/models"
	"github.com/librisvault/librisvault-backend/pkg/enums"
	"github.com/librisvault/librisvault-backend/pkg/pagination"
)

var sellerScopes = []enums.PromotionScope{
	enums.PromotionScopeSellerSpecific,
	enums.PromotionScopeBookSpecific,
}

type repository struct {
	db *gorm.DB
}

// NewRepository builds a promotions repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, promo *models.Promotion) error {
	return r.db.WithContext(ctx).Create(promo).Error
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Promotion, error) {
	var promo models.Promotion
	if err := r.db.WithContext(ctx).First(&promo, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &promo, nil
}

// FindActiveSystemWide returns the newest eligible system-wide promotion, or
// nil when none is active at now.
func (r *repository) FindActiveSystemWide(ctx context.Context, now time.Time) (*models.Promotion, error) {
	var promo models.Promotion
	err := r.active(ctx, now).
		Where("scope = ?", enums.PromotionScopeSystemWide).
		Order("created_at DESC").
		Order("id DESC").
		Take(&promo).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &promo, nil
}

// FindActiveSellerSpecific returns every eligible store-owned promotion,
// seller-wide and book-specific alike, newest first.
func (r *repository) FindActiveSellerSpecific(ctx context.Context, now time.Time) ([]models.Promotion, error) {
	var promos []models.Promotion
	err := r.active(ctx, now).
		Where("scope IN ?", sellerScopes).
		Order("created_at DESC").
		Order("id DESC").
		Find(&promos).Error
	return promos, err
}

func (r *repository) active(ctx context.Context, now time.Time) *gorm.DB {
	return r.db.WithContext(ctx).
		Model(&models.Promotion{}).
		Where("status = ?", enums.PromotionStatusActive).
		Where("starts_at <= ? AND ends_at >= ?", now, now)
}

// FindExpired returns promotions whose window closed before now, regardless of status.
func (r *repository) FindExpired(ctx context.Context, now time.Time) ([]models.Promotion, error) {
	var promos []models.Promotion
	err := r.db.WithContext(ctx).
		Where("ends_at < ?", now).
		Order("ends_at ASC").
		Find(&promos).Error
	return promos, err
}

// Delete hard-deletes the promotion. Deleting a missing row is not an error.
func (r *repository) Delete(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Delete(&models.Promotion{}, "id = ?", id).Error
}

// DeleteByStore removes all promotions owned by the store and returns their ids.
func (r *repository) DeleteByStore(ctx context.Context, storeID uuid.UUID) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	if err := r.db.WithContext(ctx).
		Model(&models.Promotion{}).
		Where("store_id = ?", storeID).
		Pluck("id", &ids).Error; err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return nil, nil
	}
	if err := r.db.WithContext(ctx).Delete(&models.Promotion{}, "id IN ?", ids).Error; err != nil {
		return nil, err
	}
	return ids, nil
}

// AttachToSeller appends promotionID to the store's promotion list once.
func (r *repository) AttachToSeller(ctx context.Context, storeID, promotionID uuid.UUID) error {
	return r.db.WithContext(ctx).Exec(
		`UPDATE stores
		 SET promotion_ids = array_append(promotion_ids, ?::uuid), updated_at = now()
		 WHERE id = ? AND NOT (promotion_ids @> ARRAY[?::uuid])`,
		promotionID, storeID, promotionID,
	).Error
}

// DetachFromSeller removes promotionID from the store's promotion list.
func (r *repository) DetachFromSeller(ctx context.Context, storeID, promotionID uuid.UUID) error {
	return r.db.WithContext(ctx).Exec(
		`UPDATE stores
		 SET promotion_ids = array_remove(promotion_ids, ?::uuid), updated_at = now()
		 WHERE id = ? AND promotion_ids @> ARRAY[?::uuid]`,
		promotionID, storeID, promotionID,
	).Error
}

// UpdateStatus moves the promotion from one status to another. It reports false
// when the row was not in the expected status anymore.
func (r *repository) UpdateStatus(ctx context.Context, id uuid.UUID, from, to enums.PromotionStatus) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&models.Promotion{}).
		Where("id = ? AND status = ?", id, from).
		Updates(map[string]any{"status": to, "updated_at": time.Now().UTC()})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func (r *repository) List(ctx context.Context, filter ListFilter) ([]models.Promotion, error) {
	q := r.db.WithContext(ctx).Model(&models.Promotion{})
	if filter.Scope != nil {
		q = q.Where("scope = ?", *filter.Scope)
	}
	if filter.Status != nil {
		q = q.Where("status = ?", *filter.Status)
	}
	if filter.StoreID != nil {
		q = q.Where("store_id = ?", *filter.StoreID)
	}
	if filter.Cursor != nil {
		q = q.Where("(created_at, id) < (?, ?)", filter.Cursor.CreatedAt, filter.Cursor.ID)
	}

	var promos []models.Promotion
	err := q.Order("created_at DESC").
		Order("id DESC").
		Limit(pagination.LimitWithBuffer(filter.Limit)).
		Find(&promos).Error
	return promos, err
}

// CountStoreBooks counts how many of ids belong to the store.
func (r *repository) CountStoreBooks(ctx context.Context, storeID uuid.UUID, ids []uuid.UUID) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.Book{}).
		Where("store_id = ? AND id IN ?", storeID, ids).
		Count(&count).Error
	return count, err
}

func (r *repository) StoreExists(ctx context.Context, storeID uuid.UUID) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.Store{}).
		Where("id = ?", storeID).
		Count(&count).Error
	return count > 0, err
}
