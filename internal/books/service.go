package books

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/librisvault/librisvault-backend/pkg/auth"
	"github.com/librisvault/librisvault-backend/pkg/db"
	"github.com/librisvault/librisvault-backend/pkg/db/models"
	"github.com/librisvault/librisvault-backend/pkg/enums"
	pkgerrors "github.com/librisvault/librisvault-backend/pkg/errors"
	"github.com/librisvault/librisvault-backend/pkg/logger"
	"github.com/librisvault/librisvault-backend/pkg/pagination"
)

const isbnConstraint = "books_isbn_key"

// Service exposes catalog management and priced reads.
type Service interface {
	Create(ctx context.Context, actor auth.Actor, input CreateInput) (*BookDTO, error)
	Get(ctx context.Context, id uuid.UUID) (*BookDTO, error)
	Update(ctx context.Context, actor auth.Actor, id uuid.UUID, input UpdateInput) (*BookDTO, error)
	Delete(ctx context.Context, actor auth.Actor, id uuid.UUID) error
	List(ctx context.Context, input ListInput) (*ListResult, error)
	ListWithPricing(ctx context.Context) ([]BookDTO, error)
	ResolvePriceForItem(ctx context.Context, id uuid.UUID) (*PriceDTO, error)
	RefreshPersisted(ctx context.Context) (int, error)
}

// ServiceParams wires the books service. Objects is optional; without it
// cover uploads are rejected.
type ServiceParams struct {
	Repo      Repository
	Annotator *Annotator
	Objects   ObjectStore
	Logger    *logger.Logger
}

type service struct {
	repo      Repository
	annotator *Annotator
	objects   ObjectStore
	logg      *logger.Logger
}

func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, fmt.Errorf("books repository required")
	}
	if params.Annotator == nil {
		return nil, fmt.Errorf("price annotator required")
	}
	if params.Logger == nil {
		params.Logger = logger.Nop()
	}
	return &service{
		repo:      params.Repo,
		annotator: params.Annotator,
		objects:   params.Objects,
		logg:      params.Logger,
	}, nil
}

// Create inserts the book. When a cover is attached it is uploaded first and
// removed again, best-effort, if the insert fails.
func (s *service) Create(ctx context.Context, actor auth.Actor, input CreateInput) (*BookDTO, error) {
	if err := validateCreate(input); err != nil {
		return nil, err
	}
	storeID, err := s.targetStore(ctx, actor, input.StoreID)
	if err != nil {
		return nil, err
	}

	book := &models.Book{
		StoreID:     storeID,
		Title:       strings.TrimSpace(input.Title),
		Author:      strings.TrimSpace(input.Author),
		ISBN:        normalizeISBN(input.ISBN),
		Description: input.Description,
		Genre:       strings.TrimSpace(input.Genre),
		Price:       input.Price.Round(2),
		Stock:       input.Stock,
	}

	var uploaded string
	if input.Cover != nil {
		if s.objects == nil {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "cover uploads are not enabled")
		}
		object, err := coverObjectName(storeID, input.Cover)
		if err != nil {
			return nil, err
		}
		if err := s.objects.Upload(ctx, object, input.Cover.ContentType, input.Cover.Body); err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "upload cover")
		}
		uploaded = object
		book.CoverObject = &uploaded
	}

	if err := s.repo.Create(ctx, book); err != nil {
		if uploaded != "" {
			s.discardObject(ctx, uploaded)
		}
		if db.IsUniqueViolation(err, isbnConstraint) {
			return nil, pkgerrors.New(pkgerrors.CodeConflict, "a book with this isbn already exists")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "insert book")
	}

	return s.priced(ctx, *book)
}

// targetStore resolves which store a write lands in for the actor's role.
func (s *service) targetStore(ctx context.Context, actor auth.Actor, requested *uuid.UUID) (uuid.UUID, error) {
	storeID, err := enums.MatchRole(actor.Role, enums.RoleCases[uuid.UUID]{
		Customer: func() (uuid.UUID, error) {
			return uuid.Nil, pkgerrors.New(pkgerrors.CodeForbidden, "customers cannot sell books")
		},
		Seller: func() (uuid.UUID, error) {
			if actor.StoreID == nil {
				return uuid.Nil, pkgerrors.New(pkgerrors.CodeForbidden, "seller has no store")
			}
			if requested != nil && *requested != *actor.StoreID {
				return uuid.Nil, pkgerrors.New(pkgerrors.CodeForbidden, "cannot add books to another store")
			}
			return *actor.StoreID, nil
		},
		Admin: func() (uuid.UUID, error) {
			if requested == nil {
				return uuid.Nil, pkgerrors.New(pkgerrors.CodeValidation, "store_id is required")
			}
			exists, err := s.repo.StoreExists(ctx, *requested)
			if err != nil {
				return uuid.Nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load store")
			}
			if !exists {
				return uuid.Nil, pkgerrors.New(pkgerrors.CodeNotFound, "store not found")
			}
			return *requested, nil
		},
	})
	if err != nil {
		return uuid.Nil, pkgerrors.Ensure(err, pkgerrors.CodeValidation, "invalid role")
	}
	return storeID, nil
}

func (s *service) discardObject(ctx context.Context, object string) {
	if err := s.objects.Delete(ctx, object); err != nil {
		s.logg.Error(s.logg.WithField(ctx, "object", object), "cover cleanup after failed insert failed", err)
		return
	}
	s.logg.Warn(s.logg.WithField(ctx, "object", object), "cover removed after failed insert")
}

func (s *service) Get(ctx context.Context, id uuid.UUID) (*BookDTO, error) {
	book, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.priced(ctx, *book)
}

func (s *service) Update(ctx context.Context, actor auth.Actor, id uuid.UUID, input UpdateInput) (*BookDTO, error) {
	if err := validateUpdate(input); err != nil {
		return nil, err
	}
	book, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if !actor.CanManageStore(book.StoreID) {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "book does not belong to your store")
	}

	applyUpdate(book, input)
	if err := s.repo.Update(ctx, book); err != nil {
		if db.IsUniqueViolation(err, isbnConstraint) {
			return nil, pkgerrors.New(pkgerrors.CodeConflict, "a book with this isbn already exists")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update book")
	}
	return s.priced(ctx, *book)
}

func (s *service) Delete(ctx context.Context, actor auth.Actor, id uuid.UUID) error {
	book, err := s.load(ctx, id)
	if err != nil {
		return err
	}
	if !actor.CanManageStore(book.StoreID) {
		return pkgerrors.New(pkgerrors.CodeForbidden, "book does not belong to your store")
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete book")
	}
	if book.CoverObject != nil && s.objects != nil {
		if err := s.objects.Delete(ctx, *book.CoverObject); err != nil {
			s.logg.Error(s.logg.WithField(ctx, "object", *book.CoverObject), "delete cover failed", err)
		}
	}
	return nil
}

func (s *service) List(ctx context.Context, input ListInput) (*ListResult, error) {
	cursor, err := pagination.ParseCursor(input.Cursor)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
	}
	rows, err := s.repo.List(ctx, ListFilter{
		StoreID: input.StoreID,
		Genre:   input.Genre,
		Author:  input.Author,
		Search:  input.Search,
		Limit:   input.Limit,
		Cursor:  cursor,
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list books")
	}
	rows, next := pagination.Trim(rows, input.Limit, func(b models.Book) pagination.Cursor {
		return pagination.Cursor{CreatedAt: b.CreatedAt, ID: b.ID}
	})

	annotated, err := s.annotator.AnnotateAll(ctx, rows)
	if err != nil {
		return nil, err
	}
	return &ListResult{Books: s.toDTOs(annotated), NextCursor: next}, nil
}

// ListWithPricing returns the full catalog priced against the current
// promotion state. Nothing is written.
func (s *service) ListWithPricing(ctx context.Context) ([]BookDTO, error) {
	rows, err := s.repo.ListAll(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list catalog")
	}
	annotated, err := s.annotator.AnnotateAll(ctx, rows)
	if err != nil {
		return nil, err
	}
	return s.toDTOs(annotated), nil
}

func (s *service) ResolvePriceForItem(ctx context.Context, id uuid.UUID) (*PriceDTO, error) {
	book, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	res, resolvedAt, err := s.annotator.Resolve(ctx, *book)
	if err != nil {
		return nil, err
	}
	return newPriceDTO(book.ID, res, resolvedAt), nil
}

func (s *service) RefreshPersisted(ctx context.Context) (int, error) {
	return s.annotator.RefreshPersisted(ctx)
}

func (s *service) priced(ctx context.Context, book models.Book) (*BookDTO, error) {
	res, _, err := s.annotator.Resolve(ctx, book)
	if err != nil {
		return nil, err
	}
	dto := newBookDTO(AnnotatedBook{Book: book, Resolution: res}, s.coverURL())
	return &dto, nil
}

func (s *service) toDTOs(items []AnnotatedBook) []BookDTO {
	out := make([]BookDTO, 0, len(items))
	coverURL := s.coverURL()
	for _, item := range items {
		out = append(out, newBookDTO(item, coverURL))
	}
	return out
}

func (s *service) coverURL() func(string) string {
	if s.objects == nil {
		return nil
	}
	return s.objects.PublicURL
}

func (s *service) load(ctx context.Context, id uuid.UUID) (*models.Book, error) {
	book, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "book not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load book")
	}
	return book, nil
}

func validateCreate(input CreateInput) error {
	if strings.TrimSpace(input.Title) == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "title is required")
	}
	if strings.TrimSpace(input.Author) == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "author is required")
	}
	if normalizeISBN(input.ISBN) == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "isbn is required")
	}
	if err := validatePrice(input.Price); err != nil {
		return err
	}
	return validateStock(input.Stock)
}

func validateUpdate(input UpdateInput) error {
	if input.Title != nil && strings.TrimSpace(*input.Title) == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "title cannot be empty")
	}
	if input.Author != nil && strings.TrimSpace(*input.Author) == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "author cannot be empty")
	}
	if input.ISBN != nil && normalizeISBN(*input.ISBN) == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "isbn cannot be empty")
	}
	if input.Price != nil {
		if err := validatePrice(*input.Price); err != nil {
			return err
		}
	}
	if input.Stock != nil {
		return validateStock(*input.Stock)
	}
	return nil
}

func validatePrice(price decimal.Decimal) error {
	if price.IsNegative() {
		return pkgerrors.New(pkgerrors.CodeInvalidRange, "price must be non-negative")
	}
	return nil
}

func validateStock(stock int) error {
	if stock < 0 {
		return pkgerrors.New(pkgerrors.CodeInvalidRange, "stock must be non-negative")
	}
	return nil
}

func applyUpdate(book *models.Book, input UpdateInput) {
	if input.Title != nil {
		book.Title = strings.TrimSpace(*input.Title)
	}
	if input.Author != nil {
		book.Author = strings.TrimSpace(*input.Author)
	}
	if input.ISBN != nil {
		book.ISBN = normalizeISBN(*input.ISBN)
	}
	if input.Description != nil {
		book.Description = input.Description
	}
	if input.Genre != nil {
		book.Genre = strings.TrimSpace(*input.Genre)
	}
	if input.Price != nil {
		book.Price = input.Price.Round(2)
	}
	if input.Stock != nil {
		book.Stock = *input.Stock
	}
}

// normalizeISBN strips separators so 978-0-13 and 978013 collide on the unique index.
func normalizeISBN(raw string) string {
	return strings.Map(func(r rune) rune {
		if r == '-' || r == ' ' {
			return -1
		}
		return r
	}, strings.ToUpper(strings.TrimSpace(raw)))
}
