package orders

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/librisvault/librisvault-backend/internal/books"
	"github.com/librisvault/librisvault-backend/internal/cart"
	"github.com/librisvault/librisvault-backend/pkg/auth"
	"github.com/librisvault/librisvault-backend/pkg/db/models"
	"github.com/librisvault/librisvault-backend/pkg/enums"
	pkgerrors "github.com/librisvault/librisvault-backend/pkg/errors"
	"github.com/librisvault/librisvault-backend/pkg/logger"
	"github.com/librisvault/librisvault-backend/pkg/outbox"
	"github.com/librisvault/librisvault-backend/pkg/pagination"
	"github.com/librisvault/librisvault-backend/pkg/pricing"
)

// Service places and manages orders.
type Service interface {
	BuyNow(ctx context.Context, actor auth.Actor, input BuyNowInput) (*PlacementResult, error)
	PlaceFromCart(ctx context.Context, actor auth.Actor, shippingAddress *string) (*PlacementResult, error)
	Get(ctx context.Context, actor auth.Actor, id uuid.UUID) (*OrderDTO, error)
	List(ctx context.Context, actor auth.Actor, input ListInput) (*ListResult, error)
	UpdateStatus(ctx context.Context, actor auth.Actor, id uuid.UUID, to enums.OrderStatus) (*OrderDTO, error)
}

// ServiceParams wires the orders service.
type ServiceParams struct {
	Repo     Repository
	Books    books.Repository
	Cart     cart.Repository
	Resolver priceResolver
	Tx       txRunner
	Outbox   outbox.Emitter
	Logger   *logger.Logger
	Now      func() time.Time
}

type service struct {
	repo     Repository
	books    books.Repository
	cart     cart.Repository
	resolver priceResolver
	tx       txRunner
	outbox   outbox.Emitter
	logg     *logger.Logger
	now      func() time.Time
}

func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	if params.Books == nil {
		return nil, fmt.Errorf("books repository required")
	}
	if params.Cart == nil {
		return nil, fmt.Errorf("cart repository required")
	}
	if params.Resolver == nil {
		return nil, fmt.Errorf("price resolver required")
	}
	if params.Tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if params.Outbox == nil {
		return nil, fmt.Errorf("outbox emitter required")
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
		cart:     params.Cart,
		resolver: params.Resolver,
		tx:       params.Tx,
		outbox:   params.Outbox,
		logg:     params.Logger,
		now:      params.Now,
	}, nil
}

type request struct {
	bookID   uuid.UUID
	quantity int
}

func (s *service) BuyNow(ctx context.Context, actor auth.Actor, input BuyNowInput) (*PlacementResult, error) {
	if err := requireBuyer(actor); err != nil {
		return nil, err
	}
	if input.BookID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "book_id is required")
	}
	qty := input.Quantity
	if qty == 0 {
		qty = 1
	}
	if qty < 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "quantity must be positive")
	}

	var placed []models.Order
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		var err error
		placed, err = s.place(ctx, tx, actor, []request{{bookID: input.BookID, quantity: qty}}, normalizeAddress(input.ShippingAddress), false)
		return err
	})
	if err != nil {
		return nil, pkgerrors.Ensure(err, pkgerrors.CodeDependency, "place order")
	}
	return newPlacementResult(placed), nil
}

// PlaceFromCart converts the whole cart into orders and empties it. Prices are
// re-derived at placement; the cart's stored unit prices are not trusted.
func (s *service) PlaceFromCart(ctx context.Context, actor auth.Actor, shippingAddress *string) (*PlacementResult, error) {
	if err := requireBuyer(actor); err != nil {
		return nil, err
	}

	var placed []models.Order
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		cartRepo := s.cart.WithTx(tx)
		lines, err := cartRepo.ListLines(ctx, actor.UserID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load cart")
		}
		if len(lines) == 0 {
			return pkgerrors.New(pkgerrors.CodeValidation, "cart is empty")
		}
		requests := make([]request, 0, len(lines))
		for _, line := range lines {
			requests = append(requests, request{bookID: line.BookID, quantity: line.Quantity})
		}

		placed, err = s.place(ctx, tx, actor, requests, normalizeAddress(shippingAddress), true)
		if err != nil {
			return err
		}
		if err := cartRepo.Clear(ctx, actor.UserID); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "clear cart")
		}
		return nil
	})
	if err != nil {
		return nil, pkgerrors.Ensure(err, pkgerrors.CodeDependency, "place order from cart")
	}
	return newPlacementResult(placed), nil
}

// place runs inside the caller's transaction. It prices every request live,
// takes stock under the stock >= qty guard, writes one order per store and
// queues the placement events.
func (s *service) place(ctx context.Context, tx *gorm.DB, actor auth.Actor, requests []request, address *string, fromCart bool) ([]models.Order, error) {
	booksRepo := s.books.WithTx(tx)
	ordersRepo := s.repo.WithTx(tx)

	sort.Slice(requests, func(i, j int) bool {
		return strings.Compare(requests[i].bookID.String(), requests[j].bookID.String()) < 0
	})

	ids := make([]uuid.UUID, 0, len(requests))
	for _, req := range requests {
		ids = append(ids, req.bookID)
	}
	rows, err := booksRepo.FindByIDs(ctx, ids)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load books")
	}
	byID := make(map[uuid.UUID]models.Book, len(rows))
	for _, row := range rows {
		byID[row.ID] = row
	}

	now := s.now().UTC()
	set, err := s.resolver.ResolveActivePromotions(ctx, now)
	if err != nil {
		return nil, pkgerrors.Ensure(err, pkgerrors.CodeDependency, "resolve active promotions")
	}

	var depleted []models.Book
	var storeOrder []uuid.UUID
	grouped := map[uuid.UUID]*models.Order{}
	for _, req := range requests {
		book, ok := byID[req.bookID]
		if !ok {
			return nil, pkgerrors.Newf(pkgerrors.CodeNotFound, "book %s not found", req.bookID)
		}
		remaining, taken, err := booksRepo.DecrementStock(ctx, book.ID, req.quantity)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decrement stock")
		}
		if !taken {
			return nil, pkgerrors.New(pkgerrors.CodeInsufficientStock, "not enough stock for this book").
				WithDetails(map[string]any{
					"book_id":   book.ID,
					"available": book.Stock,
					"requested": req.quantity,
				})
		}
		if remaining == 0 {
			depleted = append(depleted, book)
		}

		order, ok := grouped[book.StoreID]
		if !ok {
			order = &models.Order{
				UserID:          actor.UserID,
				StoreID:         book.StoreID,
				Total:           decimal.Zero,
				Status:          enums.OrderStatusPending,
				PaymentStatus:   enums.PaymentStatusUnpaid,
				ShippingAddress: address,
			}
			grouped[book.StoreID] = order
			storeOrder = append(storeOrder, book.StoreID)
		}

		res := set.PriceFor(book)
		item := models.OrderLineItem{
			BookID:    book.ID,
			Title:     book.Title,
			Quantity:  req.quantity,
			BasePrice: res.BasePrice,
			UnitPrice: res.Price,
			LineTotal: pricing.LineTotal(res.Price, req.quantity),
		}
		if res.Discounted() {
			item.PromotionLabel = res.Label
		}
		order.LineItems = append(order.LineItems, item)
		order.Total = order.Total.Add(item.LineTotal)
	}

	out := make([]models.Order, 0, len(storeOrder))
	for _, storeID := range storeOrder {
		order := grouped[storeID]
		if err := ordersRepo.Create(ctx, order); err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "insert order")
		}
		if err := s.outbox.Emit(ctx, tx, placedEvent(actor, order, fromCart, now)); err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "emit order placed")
		}
		out = append(out, *order)
	}

	for _, book := range depleted {
		event := outbox.DomainEvent{
			EventType:     enums.EventBookStockDepleted,
			AggregateType: enums.AggregateBook,
			AggregateID:   book.ID,
			Data:          outbox.BookStockDepletedEvent{BookID: book.ID, StoreID: book.StoreID},
		}
		if err := s.outbox.Emit(ctx, tx, event); err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "emit stock depleted")
		}
	}
	return out, nil
}

func placedEvent(actor auth.Actor, order *models.Order, fromCart bool, now time.Time) outbox.DomainEvent {
	lines := make([]outbox.OrderPlacedLine, 0, len(order.LineItems))
	for _, item := range order.LineItems {
		lines = append(lines, outbox.OrderPlacedLine{BookID: item.BookID, Quantity: item.Quantity, UnitPrice: item.UnitPrice})
	}
	return outbox.DomainEvent{
		EventType:     enums.EventOrderPlaced,
		AggregateType: enums.AggregateOrder,
		AggregateID:   order.ID,
		Actor:         &outbox.ActorRef{UserID: actor.UserID, Role: string(actor.Role)},
		Data: outbox.OrderPlacedEvent{
			OrderID:  order.ID,
			UserID:   order.UserID,
			StoreID:  order.StoreID,
			Total:    order.Total,
			Lines:    lines,
			FromCart: fromCart,
			PlacedAt: now,
		},
	}
}

func (s *service) Get(ctx context.Context, actor auth.Actor, id uuid.UUID) (*OrderDTO, error) {
	order, err := s.load(ctx, s.repo, id)
	if err != nil {
		return nil, err
	}
	if !canView(actor, order) {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
	}
	dto := newOrderDTO(order)
	return &dto, nil
}

func canView(actor auth.Actor, order *models.Order) bool {
	return order.UserID == actor.UserID || actor.CanManageStore(order.StoreID)
}

// List shows customers their purchases, sellers their store's orders and
// operators everything.
func (s *service) List(ctx context.Context, actor auth.Actor, input ListInput) (*ListResult, error) {
	cursor, err := pagination.ParseCursor(input.Cursor)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
	}
	filter, err := enums.MatchRole(actor.Role, enums.RoleCases[ListFilter]{
		Customer: func() (ListFilter, error) {
			userID := actor.UserID
			return ListFilter{UserID: &userID}, nil
		},
		Seller: func() (ListFilter, error) {
			if actor.StoreID == nil {
				userID := actor.UserID
				return ListFilter{UserID: &userID}, nil
			}
			return ListFilter{StoreID: actor.StoreID}, nil
		},
		Admin: func() (ListFilter, error) {
			return ListFilter{}, nil
		},
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid role")
	}
	filter.Status = input.Status
	filter.Limit = input.Limit
	filter.Cursor = cursor

	rows, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list orders")
	}
	rows, next := pagination.Trim(rows, input.Limit, func(o models.Order) pagination.Cursor {
		return pagination.Cursor{CreatedAt: o.CreatedAt, ID: o.ID}
	})
	result := &ListResult{Orders: make([]OrderDTO, 0, len(rows)), NextCursor: next}
	for i := range rows {
		result.Orders = append(result.Orders, newOrderDTO(&rows[i]))
	}
	return result, nil
}

// UpdateStatus advances fulfillment. The store owner and operators drive the
// flow; the buyer may only cancel. Cancelling returns the stock.
func (s *service) UpdateStatus(ctx context.Context, actor auth.Actor, id uuid.UUID, to enums.OrderStatus) (*OrderDTO, error) {
	if !to.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid order status")
	}

	var updated *models.Order
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		order, err := s.load(ctx, repo, id)
		if err != nil {
			return err
		}
		if !canView(actor, order) {
			return pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		if !actor.CanManageStore(order.StoreID) && to != enums.OrderStatusCancelled {
			return pkgerrors.New(pkgerrors.CodeForbidden, "buyers can only cancel orders")
		}
		from := order.Status
		if !from.CanTransitionTo(to) {
			return pkgerrors.Newf(pkgerrors.CodeStateConflict, "cannot move order from %s to %s", from, to)
		}

		payment := order.PaymentStatus
		if to == enums.OrderStatusDelivered {
			payment = enums.PaymentStatusPaid
		}
		ok, err := repo.UpdateStatus(ctx, id, from, to, payment)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update order status")
		}
		if !ok {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "order status changed concurrently")
		}

		if to == enums.OrderStatusCancelled {
			booksRepo := s.books.WithTx(tx)
			for _, item := range order.LineItems {
				if err := booksRepo.RestoreStock(ctx, item.BookID, item.Quantity); err != nil {
					return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "restore stock")
				}
			}
		}

		event := outbox.DomainEvent{
			EventType:     enums.EventOrderStatusChanged,
			AggregateType: enums.AggregateOrder,
			AggregateID:   order.ID,
			Actor:         &outbox.ActorRef{UserID: actor.UserID, Role: string(actor.Role)},
			Data:          outbox.OrderStatusChangedEvent{OrderID: order.ID, From: string(from), To: string(to)},
		}
		if err := s.outbox.Emit(ctx, tx, event); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "emit order status changed")
		}
		order.Status = to
		order.PaymentStatus = payment
		updated = order
		return nil
	})
	if err != nil {
		return nil, pkgerrors.Ensure(err, pkgerrors.CodeDependency, "update order status")
	}
	dto := newOrderDTO(updated)
	return &dto, nil
}

func (s *service) load(ctx context.Context, repo Repository, id uuid.UUID) (*models.Order, error) {
	order, err := repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
	}
	return order, nil
}

func requireBuyer(actor auth.Actor) error {
	if actor.UserID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeUnauthorized, "authentication required")
	}
	if actor.IsAdmin() {
		return pkgerrors.New(pkgerrors.CodeForbidden, "operators cannot place orders")
	}
	return nil
}

func normalizeAddress(address *string) *string {
	if address == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*address)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}

func newPlacementResult(placed []models.Order) *PlacementResult {
	result := &PlacementResult{Orders: make([]OrderDTO, 0, len(placed)), GrandTotal: decimal.Zero}
	for i := range placed {
		result.Orders = append(result.Orders, newOrderDTO(&placed[i]))
		result.GrandTotal = result.GrandTotal.Add(placed[i].Total)
	}
	return result
}
