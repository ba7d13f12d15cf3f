package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/librisvault/librisvault-backend/pkg/enums"
)

// User is the canonical identity for customers, sellers and operators.
type User struct {
	ID              uuid.UUID  `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	Email           string     `gorm:"column:email;type:text;not null;uniqueIndex"`
	Phone           *string    `gorm:"column:phone;uniqueIndex"`
	PasswordHash    string     `gorm:"column:password_hash;not null"`
	Role            enums.Role `gorm:"column:role;type:text;not null"`
	FirstName       string     `gorm:"column:first_name;not null"`
	LastName        string     `gorm:"column:last_name;not null"`
	PhoneVerifiedAt *time.Time `gorm:"column:phone_verified_at"`
	LastLoginAt     *time.Time `gorm:"column:last_login_at"`
	CreatedAt       time.Time  `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt       time.Time  `gorm:"column:updated_at;autoUpdateTime"`
}
