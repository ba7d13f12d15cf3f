package models

import (
	"time"

	"github.com/google/uuid"

	dbtypes "github.com/librisvault/librisvault-backend/pkg/db/types"
)

// Store is a seller account. PromotionIDs lists the promotions the seller owns.
type Store struct {
	ID           uuid.UUID         `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	OwnerUserID  uuid.UUID         `gorm:"column:owner_user_id;type:uuid;not null;uniqueIndex"`
	Name         string            `gorm:"column:name;not null"`
	Description  *string           `gorm:"column:description"`
	PromotionIDs dbtypes.UUIDArray `gorm:"column:promotion_ids;type:uuid[];not null;default:ARRAY[]::uuid[]"`
	LogoObject   *string           `gorm:"column:logo_object"`
	CreatedAt    time.Time         `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt    time.Time         `gorm:"column:updated_at;autoUpdateTime"`
}
