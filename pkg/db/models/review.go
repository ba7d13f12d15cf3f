package models

import (
	"time"

	"github.com/google/uuid"
)

// Review is a customer's rating of a book; one per (book, user).
type Review struct {
	ID        uuid.UUID `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	BookID    uuid.UUID `gorm:"column:book_id;type:uuid;not null;uniqueIndex:reviews_book_user_key"`
	UserID    uuid.UUID `gorm:"column:user_id;type:uuid;not null;uniqueIndex:reviews_book_user_key"`
	Rating    int       `gorm:"column:rating;not null"`
	Body      *string   `gorm:"column:body"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime"`
}
