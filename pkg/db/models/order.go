package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/librisvault/librisvault-backend/pkg/enums"
)

// Order groups the lines bought from a single store in one placement.
type Order struct {
	ID              uuid.UUID           `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	UserID          uuid.UUID           `gorm:"column:user_id;type:uuid;not null;index"`
	StoreID         uuid.UUID           `gorm:"column:store_id;type:uuid;not null;index"`
	Total           decimal.Decimal     `gorm:"column:total;type:numeric(12,2);not null"`
	Status          enums.OrderStatus   `gorm:"column:status;type:text;not null"`
	PaymentStatus   enums.PaymentStatus `gorm:"column:payment_status;type:text;not null"`
	ShippingAddress *string             `gorm:"column:shipping_address"`
	LineItems       []OrderLineItem     `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`
	CreatedAt       time.Time           `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt       time.Time           `gorm:"column:updated_at;autoUpdateTime"`
}

// OrderLineItem captures the price at placement time. It is never re-priced.
type OrderLineItem struct {
	ID             uuid.UUID       `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	OrderID        uuid.UUID       `gorm:"column:order_id;type:uuid;not null;index"`
	BookID         uuid.UUID       `gorm:"column:book_id;type:uuid;not null"`
	Title          string          `gorm:"column:title;not null"`
	Quantity       int             `gorm:"column:quantity;not null"`
	BasePrice      decimal.Decimal `gorm:"column:base_price;type:numeric(12,2);not null"`
	UnitPrice      decimal.Decimal `gorm:"column:unit_price;type:numeric(12,2);not null"`
	LineTotal      decimal.Decimal `gorm:"column:line_total;type:numeric(12,2);not null"`
	PromotionLabel *string         `gorm:"column:promotion_label"`
	CreatedAt      time.Time       `gorm:"column:created_at;autoCreateTime"`
}
