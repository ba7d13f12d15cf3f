package outbox

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// OrderPlacedEvent is emitted once per order created by a placement.
type OrderPlacedEvent struct {
	OrderID  uuid.UUID         `json:"orderId"`
	UserID   uuid.UUID         `json:"userId"`
	StoreID  uuid.UUID         `json:"storeId"`
	Total    decimal.Decimal   `json:"total"`
	Lines    []OrderPlacedLine `json:"lines"`
	FromCart bool              `json:"fromCart"`
	PlacedAt time.Time         `json:"placedAt"`
}

type OrderPlacedLine struct {
	BookID    uuid.UUID       `json:"bookId"`
	Quantity  int             `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unitPrice"`
}

// OrderStatusChangedEvent records a fulfillment transition.
type OrderStatusChangedEvent struct {
	OrderID uuid.UUID `json:"orderId"`
	From    string    `json:"from"`
	To      string    `json:"to"`
}

// PromotionStatusEvent covers approval, rejection and expiry.
type PromotionStatusEvent struct {
	PromotionID uuid.UUID  `json:"promotionId"`
	Scope       string     `json:"scope"`
	StoreID     *uuid.UUID `json:"storeId,omitempty"`
	Status      string     `json:"status"`
	Reason      string     `json:"reason,omitempty"`
}

// StoreDeletedEvent is emitted when a seller account is removed.
type StoreDeletedEvent struct {
	StoreID       uuid.UUID `json:"storeId"`
	OwnerUserID   uuid.UUID `json:"ownerUserId"`
	BooksRemoved  int64     `json:"booksRemoved"`
	PromosRemoved int64     `json:"promotionsRemoved"`
}

// BookStockDepletedEvent fires when a placement takes a book's stock to zero.
type BookStockDepletedEvent struct {
	BookID  uuid.UUID `json:"bookId"`
	StoreID uuid.UUID `json:"storeId"`
}
