package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Book is a catalog item. Price and Stock are authoritative. DiscountedPrice,
// ActivePromotionLabel and ActivePromotionID cache the last persisted pricing
// refresh and are advisory only.
type Book struct {
	ID                   uuid.UUID           `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	StoreID              uuid.UUID           `gorm:"column:store_id;type:uuid;not null;index"`
	Title                string              `gorm:"column:title;not null"`
	Author               string              `gorm:"column:author;not null"`
	ISBN                 string              `gorm:"column:isbn;not null;uniqueIndex"`
	Description          *string             `gorm:"column:description"`
	Genre                string              `gorm:"column:genre;not null;default:''"`
	Price                decimal.Decimal     `gorm:"column:price;type:numeric(12,2);not null"`
	Stock                int                 `gorm:"column:stock;not null;default:0"`
	CoverObject          *string             `gorm:"column:cover_object"`
	DiscountedPrice      decimal.NullDecimal `gorm:"column:discounted_price;type:numeric(12,2)"`
	ActivePromotionLabel *string             `gorm:"column:active_promotion_label"`
	ActivePromotionID    *uuid.UUID          `gorm:"column:active_promotion_id;type:uuid"`
	PricingRefreshedAt   *time.Time          `gorm:"column:pricing_refreshed_at"`
	CreatedAt            time.Time           `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt            time.Time           `gorm:"column:updated_at;autoUpdateTime"`
}
