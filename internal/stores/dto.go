package stores

import (
	"io"
	"time"

	"github.com/google/uuid"

	"github.com/librisvault/librisvault-backend/pkg/db/models"
)

// StoreDTO is the public store shape.
type StoreDTO struct {
	ID           uuid.UUID   `json:"id"`
	OwnerUserID  uuid.UUID   `json:"owner_user_id"`
	Name         string      `json:"name"`
	Description  *string     `json:"description,omitempty"`
	PromotionIDs []uuid.UUID `json:"promotion_ids"`
	LogoURL      *string     `json:"logo_url,omitempty"`
	CreatedAt    time.Time   `json:"created_at"`
	UpdatedAt    time.Time   `json:"updated_at"`
}

type CreateStoreInput struct {
	Name        string
	Description *string
}

// UpdateStoreInput captures the allowed store fields for mutation.
type UpdateStoreInput struct {
	Name        *string
	Description *string
	Logo        *LogoUpload
}

type LogoUpload struct {
	Filename    string
	ContentType string
	Body        io.Reader
}

// DeletionResult summarizes what a store deletion removed.
type DeletionResult struct {
	StoreID           uuid.UUID `json:"store_id"`
	BooksRemoved      int       `json:"books_removed"`
	PromotionsRemoved int       `json:"promotions_removed"`
	CartLinesRemoved  int64     `json:"cart_lines_removed"`
	MediaRemoved      int       `json:"media_removed"`
}

func newStoreDTO(store *models.Store, publicURL func(string) string) *StoreDTO {
	dto := &StoreDTO{
		ID:           store.ID,
		OwnerUserID:  store.OwnerUserID,
		Name:         store.Name,
		Description:  store.Description,
		PromotionIDs: append([]uuid.UUID{}, store.PromotionIDs...),
		CreatedAt:    store.CreatedAt,
		UpdatedAt:    store.UpdatedAt,
	}
	if store.LogoObject != nil && publicURL != nil {
		url := publicURL(*store.LogoObject)
		dto.LogoURL = &url
	}
	return dto
}
