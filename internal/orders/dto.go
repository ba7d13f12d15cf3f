package orders

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/librisvault/librisvault-backend/pkg/db/models"
	"github.com/librisvault/librisvault-backend/pkg/enums"
)

// BuyNowInput places a single-book order without touching the cart.
type BuyNowInput struct {
	BookID          uuid.UUID
	Quantity        int
	ShippingAddress *string
}

// ListInput carries listing filters from the controller.
type ListInput struct {
	Status *enums.OrderStatus
	Limit  int
	Cursor string
}

type LineItemDTO struct {
	BookID         uuid.UUID       `json:"book_id"`
	Title          string          `json:"title"`
	Quantity       int             `json:"quantity"`
	BasePrice      decimal.Decimal `json:"base_price"`
	UnitPrice      decimal.Decimal `json:"unit_price"`
	LineTotal      decimal.Decimal `json:"line_total"`
	PromotionLabel *string         `json:"promotion_label,omitempty"`
}

type OrderDTO struct {
	ID              uuid.UUID           `json:"id"`
	UserID          uuid.UUID           `json:"user_id"`
	StoreID         uuid.UUID           `json:"store_id"`
	Total           decimal.Decimal     `json:"total"`
	Status          enums.OrderStatus   `json:"status"`
	PaymentStatus   enums.PaymentStatus `json:"payment_status"`
	ShippingAddress *string             `json:"shipping_address,omitempty"`
	Lines           []LineItemDTO       `json:"lines"`
	CreatedAt       time.Time           `json:"created_at"`
}

// PlacementResult lists the orders created by one placement, one per store.
type PlacementResult struct {
	Orders     []OrderDTO      `json:"orders"`
	GrandTotal decimal.Decimal `json:"grand_total"`
}

type ListResult struct {
	Orders     []OrderDTO `json:"orders"`
	NextCursor string     `json:"next_cursor,omitempty"`
}

func newOrderDTO(order *models.Order) OrderDTO {
	dto := OrderDTO{
		ID:              order.ID,
		UserID:          order.UserID,
		StoreID:         order.StoreID,
		Total:           order.Total,
		Status:          order.Status,
		PaymentStatus:   order.PaymentStatus,
		ShippingAddress: order.ShippingAddress,
		Lines:           make([]LineItemDTO, 0, len(order.LineItems)),
		CreatedAt:       order.CreatedAt,
	}
	for _, item := range order.LineItems {
		dto.Lines = append(dto.Lines, LineItemDTO{
			BookID:         item.BookID,
			Title:          item.Title,
			Quantity:       item.Quantity,
			BasePrice:      item.BasePrice,
			UnitPrice:      item.UnitPrice,
			LineTotal:      item.LineTotal,
			PromotionLabel: item.PromotionLabel,
		})
	}
	return dto
}
