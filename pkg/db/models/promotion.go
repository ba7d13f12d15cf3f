package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	dbtypes "github.com/librisvault/librisvault-backend/pkg/db/types"
	"github.com/librisvault/librisvault-backend/pkg/enums"
)

// Promotion is a percentage discount. StoreID is set iff Scope is seller owned.
// An empty ApplicableBookIDs means every book of the owning store.
type Promotion struct {
	ID                 uuid.UUID             `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	Scope              enums.PromotionScope  `gorm:"column:scope;type:text;not null"`
	StoreID            *uuid.UUID            `gorm:"column:store_id;type:uuid;index"`
	Title              string                `gorm:"column:title;not null"`
	Description        *string               `gorm:"column:description"`
	DiscountPercentage decimal.Decimal       `gorm:"column:discount_percentage;type:numeric(5,2);not null"`
	StartsAt           time.Time             `gorm:"column:starts_at;not null"`
	EndsAt             time.Time             `gorm:"column:ends_at;not null;index"`
	ApplicableBookIDs  dbtypes.UUIDArray     `gorm:"column:applicable_book_ids;type:uuid[];not null;default:ARRAY[]::uuid[]"`
	Status             enums.PromotionStatus `gorm:"column:status;type:text;not null"`
	CreatedByUserID    *uuid.UUID            `gorm:"column:created_by_user_id;type:uuid"`
	CreatedAt          time.Time             `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt          time.Time             `gorm:"column:updated_at;autoUpdateTime"`
}

// IsEligible reports whether the promotion can discount anything at now.
func (p Promotion) IsEligible(now time.Time) bool {
	if p.Status != enums.PromotionStatusActive {
		return false
	}
	return !now.Before(p.StartsAt) && !now.After(p.EndsAt)
}

// Covers reports whether a seller-owned promotion applies to the book.
func (p Promotion) Covers(storeID, bookID uuid.UUID) bool {
	if !p.Scope.IsSellerOwned() || p.StoreID == nil || *p.StoreID != storeID {
		return false
	}
	return len(p.ApplicableBookIDs) == 0 || p.ApplicableBookIDs.Contains(bookID)
}
