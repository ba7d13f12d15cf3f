package reviews

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/librisvault/librisvault-backend/pkg/db/models"
)

// CreateReviewInput is the body of a new review.
type CreateReviewInput struct {
	Rating int     `json:"rating" validate:"required,min=1,max=5"`
	Body   *string `json:"body,omitempty" validate:"omitempty,max=4000"`
}

// ListInput pages through a book's reviews.
type ListInput struct {
	Limit  int
	Cursor string
}

type ReviewDTO struct {
	ID        uuid.UUID `json:"id"`
	BookID    uuid.UUID `json:"book_id"`
	UserID    uuid.UUID `json:"user_id"`
	Rating    int       `json:"rating"`
	Body      *string   `json:"body,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// ListResult is one page of reviews plus the book's rating summary.
type ListResult struct {
	Reviews       []ReviewDTO     `json:"reviews"`
	ReviewCount   int64           `json:"review_count"`
	AverageRating decimal.Decimal `json:"average_rating"`
	NextCursor    string          `json:"next_cursor,omitempty"`
}

func newReviewDTO(r models.Review) ReviewDTO {
	return ReviewDTO{
		ID:        r.ID,
		BookID:    r.BookID,
		UserID:    r.UserID,
		Rating:    r.Rating,
		Body:      r.Body,
		CreatedAt: r.CreatedAt,
	}
}
