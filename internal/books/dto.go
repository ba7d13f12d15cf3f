package books

import (
	"io"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/librisvault/librisvault-backend/internal/promotions"
	"github.com/librisvault/librisvault-backend/pkg/db/models"
)

// CreateInput holds the validated payload to create a book.
type CreateInput struct {
	StoreID     *uuid.UUID
	Title       string
	Author      string
	ISBN        string
	Description *string
	Genre       string
	Price       decimal.Decimal
	Stock       int
	Cover       *CoverUpload
}

// CoverUpload is an image sent along with a create request.
type CoverUpload struct {
	Filename    string
	ContentType string
	Body        io.Reader
}

// UpdateInput holds optional mutations for a book.
type UpdateInput struct {
	Title       *string
	Author      *string
	ISBN        *string
	Description *string
	Genre       *string
	Price       *decimal.Decimal
	Stock       *int
}

// ListInput drives the catalog listing.
type ListInput struct {
	StoreID *uuid.UUID
	Genre   string
	Author  string
	Search  string
	Limit   int
	Cursor  string
}

// BookDTO is a catalog item with the pricing of the moment it was read.
type BookDTO struct {
	ID                   uuid.UUID       `json:"id"`
	StoreID              uuid.UUID       `json:"store_id"`
	Title                string          `json:"title"`
	Author               string          `json:"author"`
	ISBN                 string          `json:"isbn"`
	Description          *string         `json:"description,omitempty"`
	Genre                string          `json:"genre"`
	Price                decimal.Decimal `json:"price"`
	DiscountedPrice      decimal.Decimal `json:"discounted_price"`
	ActivePromotionLabel *string         `json:"active_promotion_label,omitempty"`
	ActivePromotionID    *uuid.UUID      `json:"active_promotion_id,omitempty"`
	Stock                int             `json:"stock"`
	CoverURL             *string         `json:"cover_url,omitempty"`
	CreatedAt            time.Time       `json:"created_at"`
	UpdatedAt            time.Time       `json:"updated_at"`
}

// ListResult is one page of the catalog.
type ListResult struct {
	Books      []BookDTO `json:"books"`
	NextCursor string    `json:"next_cursor,omitempty"`
}

// PriceDTO answers the per-item price lookup.
type PriceDTO struct {
	BookID             uuid.UUID       `json:"book_id"`
	BasePrice          decimal.Decimal `json:"base_price"`
	Price              decimal.Decimal `json:"price"`
	DiscountPercentage decimal.Decimal `json:"discount_percentage"`
	PromotionID        *uuid.UUID      `json:"promotion_id,omitempty"`
	PromotionLabel     *string         `json:"promotion_label,omitempty"`
	PromotionScope     *string         `json:"promotion_scope,omitempty"`
	ResolvedAt         time.Time       `json:"resolved_at"`
}

// AnnotatedBook pairs a catalog row with its live resolution.
type AnnotatedBook struct {
	Book       models.Book
	Resolution promotions.Resolution
}

func newBookDTO(item AnnotatedBook, coverURL func(string) string) BookDTO {
	b := item.Book
	dto := BookDTO{
		ID:                   b.ID,
		StoreID:              b.StoreID,
		Title:                b.Title,
		Author:               b.Author,
		ISBN:                 b.ISBN,
		Description:          b.Description,
		Genre:                b.Genre,
		Price:                b.Price,
		DiscountedPrice:      item.Resolution.Price,
		ActivePromotionLabel: item.Resolution.Label,
		ActivePromotionID:    item.Resolution.PromotionID,
		Stock:                b.Stock,
		CreatedAt:            b.CreatedAt,
		UpdatedAt:            b.UpdatedAt,
	}
	if b.CoverObject != nil && coverURL != nil {
		url := coverURL(*b.CoverObject)
		dto.CoverURL = &url
	}
	return dto
}

func newPriceDTO(bookID uuid.UUID, res promotions.Resolution, resolvedAt time.Time) *PriceDTO {
	dto := &PriceDTO{
		BookID:             bookID,
		BasePrice:          res.BasePrice,
		Price:              res.Price,
		DiscountPercentage: res.Percentage,
		PromotionID:        res.PromotionID,
		PromotionLabel:     res.Label,
		ResolvedAt:         resolvedAt,
	}
	if res.Discounted() {
		scope := string(res.Scope)
		dto.PromotionScope = &scope
	}
	return dto
}
