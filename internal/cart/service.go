package cart

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/librisvault/librisvault-backend/internal/promotions"
	"github.com/librisvault/librisvault-backend/pkg/db/models"
	pkgerrors "github.com/librisvault/librisvault-backend/pkg/errors"
	"github.com/librisvault/librisvault-backend/pkg/logger"
	"github.com/librisvault/librisvault-backend/pkg/pricing"
)

// Service exposes the cart aggregator.
type Service interface {
	AddLine(ctx context.Context, userID, bookID uuid.UUID, delta int) (*CartDTO, error)
	RemoveLine(ctx context.Context, userID, bookID uuid.UUID, delta int) (*CartDTO, error)
	GetCart(ctx context.Context, userID uuid.UUID) (*CartDTO, error)
	ComputeTotals(ctx context.Context, lines []models.CartLine) (Totals, error)
	Clear(ctx context.Context, userID uuid.UUID) error
}

// ServiceParams wires the cart service.
type ServiceParams struct {
	Repo     Repository
	Books    bookLoader
	Resolver priceResolver
	Tx       txRunner
	Logger   *logger.Logger
	Now      func() time.Time
}

type service struct {
	repo     Repository
	books    bookLoader
	resolver priceResolver
	tx       txRunner
	logg     *logger.Logger
	now      func() time.Time
}

func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, fmt.Errorf("cart repository required")
	}
	if params.Books == nil {
		return nil, fmt.Errorf("book loader required")
	}
	if params.Resolver == nil {
		return nil, fmt.Errorf("price resolver required")
	}
	if params.Tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if params.Logger == nil {
		params.Logger = logger.Nop()
	}
	if params.Now == nil {
		params.Now = time.Now
	}
	return &service{
		repo:     params.Repo,
		books:    params.Books,
		resolver: params.Resolver,
		tx:       params.Tx,
		logg:     params.Logger,
		now:      params.Now,
	}, nil
}

// AddLine prices the book live and grows the line by delta. The stock check
// and the write happen in a single conditional statement.
func (s *service) AddLine(ctx context.Context, userID, bookID uuid.UUID, delta int) (*CartDTO, error) {
	delta, err := normalizeDelta(delta)
	if err != nil {
		return nil, err
	}
	book, err := s.loadBook(ctx, bookID)
	if err != nil {
		return nil, err
	}
	if delta > book.Stock {
		return nil, insufficientStock(book, delta)
	}

	set, err := s.resolver.ResolveActivePromotions(ctx, s.now().UTC())
	if err != nil {
		return nil, pkgerrors.Ensure(err, pkgerrors.CodeDependency, "resolve active promotions")
	}
	unit := set.PriceFor(*book).Price

	ok, err := s.repo.AddGuarded(ctx, userID, bookID, delta, unit)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "add cart line")
	}
	if !ok {
		return nil, insufficientStock(book, delta)
	}
	return s.GetCart(ctx, userID)
}

// RemoveLine shrinks the line by delta and deletes it once nothing would remain.
func (s *service) RemoveLine(ctx context.Context, userID, bookID uuid.UUID, delta int) (*CartDTO, error) {
	delta, err := normalizeDelta(delta)
	if err != nil {
		return nil, err
	}

	if err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		still, err := repo.Decrement(ctx, userID, bookID, delta)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decrement cart line")
		}
		if still {
			return nil
		}
		deleted, err := repo.DeleteLine(ctx, userID, bookID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete cart line")
		}
		if !deleted {
			return pkgerrors.New(pkgerrors.CodeNotFound, "book is not in the cart")
		}
		return nil
	}); err != nil {
		return nil, pkgerrors.Ensure(err, pkgerrors.CodeDependency, "remove cart line")
	}
	return s.GetCart(ctx, userID)
}

func (s *service) GetCart(ctx context.Context, userID uuid.UUID) (*CartDTO, error) {
	lines, err := s.repo.ListLines(ctx, userID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load cart")
	}
	books, err := s.booksFor(ctx, lines)
	if err != nil {
		return nil, err
	}
	totals, err := s.totals(ctx, lines, books)
	if err != nil {
		return nil, err
	}

	out := &CartDTO{UserID: userID, Lines: make([]LineDTO, 0, len(lines)), Totals: totals}
	for _, line := range lines {
		dto := LineDTO{
			BookID:    line.BookID,
			Quantity:  line.Quantity,
			UnitPrice: line.UnitPrice,
			LinePrice: line.LinePrice,
		}
		if book, ok := books[line.BookID]; ok {
			dto.StoreID = book.StoreID
			dto.Title = book.Title
			dto.Stock = book.Stock
		}
		out.Lines = append(out.Lines, dto)
	}
	return out, nil
}

// ComputeTotals re-resolves every line against the current promotion state.
// Sums are kept exact and each total is rounded on its own at the end.
func (s *service) ComputeTotals(ctx context.Context, lines []models.CartLine) (Totals, error) {
	books, err := s.booksFor(ctx, lines)
	if err != nil {
		return Totals{}, err
	}
	return s.totals(ctx, lines, books)
}

func (s *service) totals(ctx context.Context, lines []models.CartLine, books map[uuid.UUID]models.Book) (Totals, error) {
	if len(lines) == 0 {
		return Totals{OriginalTotal: decimal.Zero, DiscountedTotal: decimal.Zero, DiscountTotal: decimal.Zero}, nil
	}
	set, err := s.resolver.ResolveActivePromotions(ctx, s.now().UTC())
	if err != nil {
		return Totals{}, pkgerrors.Ensure(err, pkgerrors.CodeDependency, "resolve active promotions")
	}
	return sumLines(set, lines, books), nil
}

func sumLines(set promotions.ActiveSet, lines []models.CartLine, books map[uuid.UUID]models.Book) Totals {
	original, discounted := decimal.Zero, decimal.Zero
	count := 0
	for _, line := range lines {
		book, ok := books[line.BookID]
		if !ok {
			continue
		}
		qty := decimal.NewFromInt(int64(line.Quantity))
		res := set.PriceFor(book)
		original = original.Add(res.BasePrice.Mul(qty))
		discounted = discounted.Add(res.Price.Mul(qty))
		count += line.Quantity
	}
	return Totals{
		OriginalTotal:   pricing.Round(original),
		DiscountedTotal: pricing.Round(discounted),
		DiscountTotal:   pricing.Round(original.Sub(discounted)),
		ItemCount:       count,
	}
}

func (s *service) Clear(ctx context.Context, userID uuid.UUID) error {
	if err := s.repo.Clear(ctx, userID); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "clear cart")
	}
	return nil
}

func (s *service) booksFor(ctx context.Context, lines []models.CartLine) (map[uuid.UUID]models.Book, error) {
	ids := make([]uuid.UUID, 0, len(lines))
	for _, line := range lines {
		ids = append(ids, line.BookID)
	}
	rows, err := s.books.FindByIDs(ctx, ids)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load cart books")
	}
	out := make(map[uuid.UUID]models.Book, len(rows))
	for _, row := range rows {
		out[row.ID] = row
	}
	return out, nil
}

func (s *service) loadBook(ctx context.Context, id uuid.UUID) (*models.Book, error) {
	book, err := s.books.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "book not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load book")
	}
	return book, nil
}

func normalizeDelta(delta int) (int, error) {
	if delta == 0 {
		return 1, nil
	}
	if delta < 0 {
		return 0, pkgerrors.New(pkgerrors.CodeValidation, "quantity must be positive")
	}
	return delta, nil
}

func insufficientStock(book *models.Book, requested int) error {
	return pkgerrors.New(pkgerrors.CodeInsufficientStock, "not enough stock for this book").
		WithDetails(map[string]any{
			"book_id":   book.ID,
			"available": book.Stock,
			"requested": requested,
		})
}
