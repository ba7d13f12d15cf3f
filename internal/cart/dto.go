package cart

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Totals are recomputed live from the current promotion state on every read.
type Totals struct {
	OriginalTotal   decimal.Decimal `json:"original_total"`
	DiscountedTotal decimal.Decimal `json:"discounted_total"`
	DiscountTotal   decimal.Decimal `json:"discount_total"`
	ItemCount       int             `json:"item_count"`
}

// LineDTO shows the unit price persisted at the last add, not the live one.
type LineDTO struct {
	BookID    uuid.UUID       `json:"book_id"`
	StoreID   uuid.UUID       `json:"store_id"`
	Title     string          `json:"title"`
	Quantity  int             `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unit_price"`
	LinePrice decimal.Decimal `json:"line_price"`
	Stock     int             `json:"stock"`
}

// CartDTO is the cart returned by every cart operation.
type CartDTO struct {
	UserID uuid.UUID `json:"user_id"`
	Lines  []LineDTO `json:"lines"`
	Totals Totals    `json:"totals"`
}
