package promotions

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/librisvault/librisvault-backend/pkg/db/models"
	"github.com/librisvault/librisvault-backend/pkg/enums"
)

// CreateInput is the validated payload to create a promotion.
type CreateInput struct {
	Scope              enums.PromotionScope
	StoreID            *uuid.UUID
	Title              string
	Description        *string
	DiscountPercentage decimal.Decimal
	StartsAt           time.Time
	EndsAt             time.Time
	ApplicableBookIDs  []uuid.UUID
}

// ListInput drives the management listing.
type ListInput struct {
	Scope   *enums.PromotionScope
	Status  *enums.PromotionStatus
	StoreID *uuid.UUID
	Limit   int
	Cursor  string
}

// PromotionDTO is the API representation of a promotion.
type PromotionDTO struct {
	ID                 uuid.UUID             `json:"id"`
	Scope              enums.PromotionScope  `json:"scope"`
	StoreID            *uuid.UUID            `json:"store_id,omitempty"`
	Title              string                `json:"title"`
	Description        *string               `json:"description,omitempty"`
	DiscountPercentage decimal.Decimal       `json:"discount_percentage"`
	StartsAt           time.Time             `json:"starts_at"`
	EndsAt             time.Time             `json:"ends_at"`
	ApplicableBookIDs  []uuid.UUID           `json:"applicable_book_ids"`
	Status             enums.PromotionStatus `json:"status"`
	CreatedAt          time.Time             `json:"created_at"`
	UpdatedAt          time.Time             `json:"updated_at"`
}

// ListResult is one page of promotions.
type ListResult struct {
	Promotions []PromotionDTO `json:"promotions"`
	NextCursor string         `json:"next_cursor,omitempty"`
}

func NewPromotionDTO(p *models.Promotion) *PromotionDTO {
	if p == nil {
		return nil
	}
	ids := make([]uuid.UUID, len(p.ApplicableBookIDs))
	copy(ids, p.ApplicableBookIDs)
	return &PromotionDTO{
		ID:                 p.ID,
		Scope:              p.Scope,
		StoreID:            p.StoreID,
		Title:              p.Title,
		Description:        p.Description,
		DiscountPercentage: p.DiscountPercentage,
		StartsAt:           p.StartsAt,
		EndsAt:             p.EndsAt,
		ApplicableBookIDs:  ids,
		Status:             p.Status,
		CreatedAt:          p.CreatedAt,
		UpdatedAt:          p.UpdatedAt,
	}
}
