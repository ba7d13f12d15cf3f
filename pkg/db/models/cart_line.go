package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// CartLine is one book in a user's cart. UnitPrice is the resolved price at the
// last mutation; LinePrice = Quantity * UnitPrice.
type CartLine struct {
	UserID    uuid.UUID       `gorm:"column:user_id;type:uuid;primaryKey"`
	BookID    uuid.UUID       `gorm:"column:book_id;type:uuid;primaryKey"`
	Quantity  int             `gorm:"column:quantity;not null"`
	UnitPrice decimal.Decimal `gorm:"column:unit_price;type:numeric(12,2);not null"`
	LinePrice decimal.Decimal `gorm:"column:line_price;type:numeric(12,2);not null"`
	CreatedAt time.Time       `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time       `gorm:"column:updated_at;autoUpdateTime"`
}
