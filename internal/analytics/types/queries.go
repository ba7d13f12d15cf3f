package types

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// SalesQueryRequest selects one store's orders created in [Start, End).
type SalesQueryRequest struct {
	StoreID uuid.UUID
	Start   time.Time
	End     time.Time
	TopN    int
}

// TimeSeriesPoint is one UTC day of sales.
type TimeSeriesPoint struct {
	Date    string          `json:"date"`
	Orders  int64           `json:"orders"`
	Revenue decimal.Decimal `json:"revenue"`
}

// BookSales ranks a book by units sold within the window.
type BookSales struct {
	BookID  uuid.UUID       `json:"book_id"`
	Title   string          `json:"title"`
	Units   int64           `json:"units"`
	Revenue decimal.Decimal `json:"revenue"`
}

// Totals are the headline figures of the window. Cancelled orders are excluded.
type Totals struct {
	OrderCount     int64           `json:"order_count"`
	Units          int64           `json:"units"`
	Revenue        decimal.Decimal `json:"revenue"`
	DiscountsGiven decimal.Decimal `json:"discounts_given"`
}

// SalesSummaryResponse is the seller dashboard payload.
type SalesSummaryResponse struct {
	StoreID           uuid.UUID         `json:"store_id"`
	Start             time.Time         `json:"start"`
	End               time.Time         `json:"end"`
	Totals            Totals            `json:"totals"`
	AverageOrderValue decimal.Decimal   `json:"average_order_value"`
	Daily             []TimeSeriesPoint `json:"daily"`
	TopBooks          []BookSales       `json:"top_books"`
}
