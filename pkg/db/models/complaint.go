package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/librisvault/librisvault-backend/pkg/enums"
)

type Complaint struct {
	ID         uuid.UUID             `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	UserID     uuid.UUID             `gorm:"column:user_id;type:uuid;not null;index"`
	OrderID    *uuid.UUID            `gorm:"column:order_id;type:uuid"`
	Subject    string                `gorm:"column:subject;not null"`
	Body       string                `gorm:"column:body;not null"`
	Status     enums.ComplaintStatus `gorm:"column:status;type:text;not null"`
	Resolution *string               `gorm:"column:resolution"`
	CreatedAt  time.Time             `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt  time.Time             `gorm:"column:updated_at;autoUpdateTime"`
}
