package reviews

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/librisvault/librisvault-backend/pkg/auth"
	"github.com/librisvault/librisvault-backend/pkg/db"
	"github.com/librisvault/librisvault-backend/pkg/db/models"
	"github.com/librisvault/librisvault-backend/pkg/enums"
	pkgerrors "github.com/librisvault/librisvault-backend/pkg/errors"
	"github.com/librisvault/librisvault-backend/pkg/logger"
	"github.com/librisvault/librisvault-backend/pkg/pagination"
)

const uniqueConstraint = "reviews_book_user_key"

// Service manages book reviews.
type Service interface {
	Create(ctx context.Context, actor auth.Actor, bookID uuid.UUID, input CreateReviewInput) (*ReviewDTO, error)
	List(ctx context.Context, bookID uuid.UUID, input ListInput) (*ListResult, error)
	Delete(ctx context.Context, actor auth.Actor, reviewID uuid.UUID) error
}

type bookLookup interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.Book, error)
}

type ServiceParams struct {
	Repo   Repository
	Books  bookLookup
	Logger *logger.Logger
}

type service struct {
	repo  Repository
	books bookLookup
	logg  *logger.Logger
}

func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, fmt.Errorf("review repository required")
	}
	if params.Books == nil {
		return nil, fmt.Errorf("book lookup required")
	}
	if params.Logger == nil {
		params.Logger = logger.Nop()
	}
	return &service{repo: params.Repo, books: params.Books, logg: params.Logger}, nil
}

// Create records the actor's review. Sellers may not review books of their own
// store and admins do not review at all.
func (s *service) Create(ctx context.Context, actor auth.Actor, bookID uuid.UUID, input CreateReviewInput) (*ReviewDTO, error) {
	if actor.UserID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "authentication required")
	}
	if input.Rating < 1 || input.Rating > 5 {
		return nil, pkgerrors.New(pkgerrors.CodeInvalidRange, "rating must be between 1 and 5").
			WithDetails(map[string]any{"rating": input.Rating})
	}

	book, err := s.books.FindByID(ctx, bookID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "book not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load book")
	}

	_, err = enums.MatchRole(actor.Role, enums.RoleCases[struct{}]{
		Customer: func() (struct{}, error) { return struct{}{}, nil },
		Seller: func() (struct{}, error) {
			if actor.OwnsStore(book.StoreID) {
				return struct{}{}, pkgerrors.New(pkgerrors.CodeForbidden, "sellers cannot review their own books")
			}
			return struct{}{}, nil
		},
		Admin: func() (struct{}, error) {
			return struct{}{}, pkgerrors.New(pkgerrors.CodeForbidden, "admins cannot post reviews")
		},
	})
	if err != nil {
		return nil, pkgerrors.Ensure(err, pkgerrors.CodeValidation, "invalid role")
	}

	review := &models.Review{
		BookID: bookID,
		UserID: actor.UserID,
		Rating: input.Rating,
		Body:   trimmed(input.Body),
	}
	if err := s.repo.Create(ctx, review); err != nil {
		if db.IsUniqueViolation(err, uniqueConstraint) {
			return nil, pkgerrors.New(pkgerrors.CodeConflict, "book already reviewed")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create review")
	}
	s.logg.Info(s.logg.WithFields(ctx, map[string]any{"book_id": bookID.String(), "rating": review.Rating}), "review created")

	dto := newReviewDTO(*review)
	return &dto, nil
}

func (s *service) List(ctx context.Context, bookID uuid.UUID, input ListInput) (*ListResult, error) {
	cursor, err := pagination.ParseCursor(input.Cursor)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
	}
	if _, err := s.books.FindByID(ctx, bookID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "book not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load book")
	}

	rows, err := s.repo.ListByBook(ctx, bookID, input.Limit, cursor)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list reviews")
	}
	summary, err := s.repo.Summary(ctx, bookID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "summarize reviews")
	}

	rows, next := pagination.Trim(rows, input.Limit, func(r models.Review) pagination.Cursor {
		return pagination.Cursor{CreatedAt: r.CreatedAt, ID: r.ID}
	})
	out := make([]ReviewDTO, 0, len(rows))
	for _, row := range rows {
		out = append(out, newReviewDTO(row))
	}
	return &ListResult{
		Reviews:       out,
		ReviewCount:   summary.Count,
		AverageRating: summary.Average,
		NextCursor:    next,
	}, nil
}

// Delete lets the author or an admin remove a review.
func (s *service) Delete(ctx context.Context, actor auth.Actor, reviewID uuid.UUID) error {
	review, err := s.repo.FindByID(ctx, reviewID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return pkgerrors.New(pkgerrors.CodeNotFound, "review not found")
		}
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load review")
	}
	if review.UserID != actor.UserID && !actor.IsAdmin() {
		return pkgerrors.New(pkgerrors.CodeForbidden, "cannot delete this review")
	}
	if err := s.repo.Delete(ctx, reviewID); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete review")
	}
	return nil
}

func trimmed(value *string) *string {
	if value == nil {
		return nil
	}
	v := strings.TrimSpace(*value)
	if v == "" {
		return nil
	}
	return &v
}
