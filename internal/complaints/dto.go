package complaints

import (
	"time"

	"github.com/google/uuid"

	"github.com/librisvault/librisvault-backend/pkg/db/models"
	"github.com/librisvault/librisvault-backend/pkg/enums"
)

type FileInput struct {
	OrderID *uuid.UUID `json:"order_id,omitempty"`
	Subject string     `json:"subject" validate:"required,max=200"`
	Body    string     `json:"body" validate:"required,max=8000"`
}

type TransitionInput struct {
	Status     enums.ComplaintStatus `json:"status" validate:"required"`
	Resolution *string               `json:"resolution,omitempty"`
}

type ListInput struct {
	Status *enums.ComplaintStatus
	Limit  int
	Cursor string
}

type ComplaintDTO struct {
	ID         uuid.UUID             `json:"id"`
	UserID     uuid.UUID             `json:"user_id"`
	OrderID    *uuid.UUID            `json:"order_id,omitempty"`
	Subject    string                `json:"subject"`
	Body       string                `json:"body"`
	Status     enums.ComplaintStatus `json:"status"`
	Resolution *string               `json:"resolution,omitempty"`
	CreatedAt  time.Time             `json:"created_at"`
	UpdatedAt  time.Time             `json:"updated_at"`
}

type ListResult struct {
	Complaints []ComplaintDTO `json:"complaints"`
	NextCursor string         `json:"next_cursor,omitempty"`
}

func newComplaintDTO(c models.Complaint) ComplaintDTO {
	return ComplaintDTO{
		ID:         c.ID,
		UserID:     c.UserID,
		OrderID:    c.OrderID,
		Subject:    c.Subject,
		Body:       c.Body,
		Status:     c.Status,
		Resolution: c.Resolution,
		CreatedAt:  c.CreatedAt,
		UpdatedAt:  c.UpdatedAt,
	}
}
