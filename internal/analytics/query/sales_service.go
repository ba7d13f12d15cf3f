package query

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/librisvault/librisvault-backend/internal/analytics/types"
	"github.com/librisvault/librisvault-backend/pkg/enums"
)

const (
	totalsSQL = `
SELECT
  COUNT(DISTINCT o.id) AS order_count,
  COALESCE(SUM(li.quantity), 0) AS units,
  COALESCE(SUM(li.line_total), 0) AS revenue,
  COALESCE(SUM((li.base_price - li.unit_price) * li.quantity), 0) AS discounts_given
FROM orders o
JOIN order_line_items li ON li.order_id = o.id
WHERE o.store_id = @storeID
  AND o.status <> @cancelled
  AND o.created_at >= @start
  AND o.created_at < @end
`

	dailySQL = `
SELECT
  to_char(date_trunc('day', o.created_at AT TIME ZONE 'UTC'), 'YYYY-MM-DD') AS day,
  COUNT(*) AS orders,
  COALESCE(SUM(o.total), 0) AS revenue
FROM orders o
WHERE o.store_id = @storeID
  AND o.status <> @cancelled
  AND o.created_at >= @start
  AND o.created_at < @end
GROUP BY day
ORDER BY day ASC
`

	topBooksSQL = `
SELECT
  li.book_id AS book_id,
  MAX(li.title) AS title,
  SUM(li.quantity) AS units,
  SUM(li.line_total) AS revenue
FROM orders o
JOIN order_line_items li ON li.order_id = o.id
WHERE o.store_id = @storeID
  AND o.status <> @cancelled
  AND o.created_at >= @start
  AND o.created_at < @end
GROUP BY li.book_id
ORDER BY units DESC, revenue DESC
LIMIT @limit
`
)

// SalesService aggregates the orders table for store dashboards.
type SalesService interface {
	Totals(ctx context.Context, req types.SalesQueryRequest) (types.Totals, error)
	Daily(ctx context.Context, req types.SalesQueryRequest) ([]types.TimeSeriesPoint, error)
	TopBooks(ctx context.Context, req types.SalesQueryRequest) ([]types.BookSales, error)
}

type salesService struct {
	db *gorm.DB
}

// NewSalesService builds a SQL-backed sales query service.
func NewSalesService(db *gorm.DB) (SalesService, error) {
	if db == nil {
		return nil, fmt.Errorf("db required")
	}
	return &salesService{db: db}, nil
}

func params(req types.SalesQueryRequest) map[string]any {
	return map[string]any{
		"storeID":   req.StoreID,
		"cancelled": enums.OrderStatusCancelled,
		"start":     req.Start,
		"end":       req.End,
		"limit":     req.TopN,
	}
}

func (s *salesService) Totals(ctx context.Context, req types.SalesQueryRequest) (types.Totals, error) {
	var row struct {
		OrderCount     int64
		Units          int64
		Revenue        decimal.Decimal
		DiscountsGiven decimal.Decimal
	}
	if err := s.db.WithContext(ctx).Raw(totalsSQL, params(req)).Scan(&row).Error; err != nil {
		return types.Totals{}, fmt.Errorf("query totals: %w", err)
	}
	return types.Totals{
		OrderCount:     row.OrderCount,
		Units:          row.Units,
		Revenue:        row.Revenue.Round(2),
		DiscountsGiven: row.DiscountsGiven.Round(2),
	}, nil
}

func (s *salesService) Daily(ctx context.Context, req types.SalesQueryRequest) ([]types.TimeSeriesPoint, error) {
	var rows []struct {
		Day     string
		Orders  int64
		Revenue decimal.Decimal
	}
	if err := s.db.WithContext(ctx).Raw(dailySQL, params(req)).Scan(&rows).Error; err != nil {
		return nil, fmt.Errorf("query daily series: %w", err)
	}
	points := make([]types.TimeSeriesPoint, 0, len(rows))
	for _, row := range rows {
		points = append(points, types.TimeSeriesPoint{Date: row.Day, Orders: row.Orders, Revenue: row.Revenue.Round(2)})
	}
	return points, nil
}

func (s *salesService) TopBooks(ctx context.Context, req types.SalesQueryRequest) ([]types.BookSales, error) {
	var rows []struct {
		BookID  uuid.UUID
		Title   string
		Units   int64
		Revenue decimal.Decimal
	}
	if err := s.db.WithContext(ctx).Raw(topBooksSQL, params(req)).Scan(&rows).Error; err != nil {
		return nil, fmt.Errorf("query top books: %w", err)
	}
	out := make([]types.BookSales, 0, len(rows))
	for _, row := range rows {
		out = append(out, types.BookSales{BookID: row.BookID, Title: row.Title, Units: row.Units, Revenue: row.Revenue.Round(2)})
	}
	return out, nil
}

