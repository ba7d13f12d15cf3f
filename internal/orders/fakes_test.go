package orders

import (
	"context"
	"errors"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/librisvault/librisvault-backend/internal/books"
	"github.com/librisvault/librisvault-backend/internal/cart"
	"github.com/librisvault/librisvault-backend/internal/promotions"
	"github.com/librisvault/librisvault-backend/pkg/db/models"
	"github.com/librisvault/librisvault-backend/pkg/enums"
	"github.com/librisvault/librisvault-backend/pkg/outbox"
)

// world holds every table the placement touches so the fake transaction can
// snapshot and roll it back as a unit.
type world struct {
	books  map[uuid.UUID]models.Book
	lines  map[uuid.UUID][]models.CartLine
	orders map[uuid.UUID]models.Order
	events []outbox.DomainEvent

	// concurrentTake is stock another buyer claims after the books are read
	// and before this placement decrements.
	concurrentTake map[uuid.UUID]int

	createErr error
	emitErr   error
	clock     time.Time
}

func newWorld() *world {
	return &world{
		books:  map[uuid.UUID]models.Book{},
		lines:  map[uuid.UUID][]models.CartLine{},
		orders: map[uuid.UUID]models.Order{},
		clock:  time.Date(2026, 6, 1, 8, 0, 0, 0, time.UTC),
	}
}

func (w *world) snapshot() *world {
	cp := *w
	cp.books = make(map[uuid.UUID]models.Book, len(w.books))
	for k, v := range w.books {
		cp.books[k] = v
	}
	cp.lines = make(map[uuid.UUID][]models.CartLine, len(w.lines))
	for k, v := range w.lines {
		cp.lines[k] = append([]models.CartLine(nil), v...)
	}
	cp.orders = make(map[uuid.UUID]models.Order, len(w.orders))
	for k, v := range w.orders {
		cp.orders[k] = v
	}
	cp.events = append([]outbox.DomainEvent(nil), w.events...)
	return &cp
}

func (w *world) restore(from *world) {
	w.books, w.lines, w.orders, w.events = from.books, from.lines, from.orders, from.events
}

func (w *world) addBook(storeID uuid.UUID, title, price string, stock int) models.Book {
	book := models.Book{ID: uuid.New(), StoreID: storeID, Title: title, Price: decimal.RequireFromString(price), Stock: stock}
	w.books[book.ID] = book
	return book
}

type worldTx struct {
	w         *world
	rollbacks int
}

func (t *worldTx) WithTx(_ context.Context, fn func(tx *gorm.DB) error) error {
	saved := t.w.snapshot()
	if err := fn(nil); err != nil {
		t.w.restore(saved)
		t.rollbacks++
		return err
	}
	return nil
}

type fakeOrders struct{ w *world }

func (f fakeOrders) WithTx(*gorm.DB) Repository { return f }

func (f fakeOrders) Create(_ context.Context, order *models.Order) error {
	if f.w.createErr != nil {
		return f.w.createErr
	}
	order.ID = uuid.New()
	f.w.clock = f.w.clock.Add(time.Minute)
	order.CreatedAt = f.w.clock
	for i := range order.LineItems {
		order.LineItems[i].ID = uuid.New()
		order.LineItems[i].OrderID = order.ID
	}
	f.w.orders[order.ID] = *order
	return nil
}

func (f fakeOrders) FindByID(_ context.Context, id uuid.UUID) (*models.Order, error) {
	order, ok := f.w.orders[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return &order, nil
}

func (f fakeOrders) List(_ context.Context, filter ListFilter) ([]models.Order, error) {
	var out []models.Order
	for _, order := range f.w.orders {
		if filter.UserID != nil && order.UserID != *filter.UserID {
			continue
		}
		if filter.StoreID != nil && order.StoreID != *filter.StoreID {
			continue
		}
		if filter.Status != nil && order.Status != *filter.Status {
			continue
		}
		out = append(out, order)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (f fakeOrders) UpdateStatus(_ context.Context, id uuid.UUID, from, to enums.OrderStatus, payment enums.PaymentStatus) (bool, error) {
	order, ok := f.w.orders[id]
	if !ok || order.Status != from {
		return false, nil
	}
	order.Status = to
	order.PaymentStatus = payment
	f.w.orders[id] = order
	return true, nil
}

// fakeBooks implements the stock surface; other catalog methods are unused here.
type fakeBooks struct {
	books.Repository
	w *world
}

func (f fakeBooks) WithTx(*gorm.DB) books.Repository { return f }

func (f fakeBooks) FindByIDs(_ context.Context, ids []uuid.UUID) ([]models.Book, error) {
	var out []models.Book
	for _, id := range ids {
		if book, ok := f.w.books[id]; ok {
			out = append(out, book)
		}
	}
	return out, nil
}

func (f fakeBooks) DecrementStock(_ context.Context, id uuid.UUID, qty int) (int, bool, error) {
	book, ok := f.w.books[id]
	if !ok {
		return 0, false, nil
	}
	if taken := f.w.concurrentTake[id]; taken > 0 {
		book.Stock -= taken
		delete(f.w.concurrentTake, id)
	}
	if book.Stock < qty {
		f.w.books[id] = book
		return 0, false, nil
	}
	book.Stock -= qty
	f.w.books[id] = book
	return book.Stock, true, nil
}

func (f fakeBooks) RestoreStock(_ context.Context, id uuid.UUID, qty int) error {
	book := f.w.books[id]
	book.Stock += qty
	f.w.books[id] = book
	return nil
}

type fakeCart struct {
	cart.Repository
	w *world
}

func (f fakeCart) WithTx(*gorm.DB) cart.Repository { return f }

func (f fakeCart) ListLines(_ context.Context, userID uuid.UUID) ([]models.CartLine, error) {
	return append([]models.CartLine(nil), f.w.lines[userID]...), nil
}

func (f fakeCart) Clear(_ context.Context, userID uuid.UUID) error {
	delete(f.w.lines, userID)
	return nil
}

type fakeEmitter struct{ w *world }

func (f fakeEmitter) Emit(_ context.Context, _ *gorm.DB, event outbox.DomainEvent) error {
	if f.w.emitErr != nil {
		return f.w.emitErr
	}
	f.w.events = append(f.w.events, event)
	return nil
}

type stubResolver struct {
	set promotions.ActiveSet
	err error
}

func (s *stubResolver) ResolveActivePromotions(context.Context, time.Time) (promotions.ActiveSet, error) {
	return s.set, s.err
}

var errBoom = errors.New("boom")
