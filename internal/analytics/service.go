package analytics

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/librisvault/librisvault-backend/internal/analytics/query"
	"github.com/librisvault/librisvault-backend/internal/analytics/types"
	"github.com/librisvault/librisvault-backend/pkg/auth"
	"github.com/librisvault/librisvault-backend/pkg/enums"
	pkgerrors "github.com/librisvault/librisvault-backend/pkg/errors"
)

const (
	defaultWindow = 30 * 24 * time.Hour
	maxWindow     = 366 * 24 * time.Hour
	defaultTopN   = 5
	maxTopN       = 50
)

// Service provides store sales reports.
type Service interface {
	// SalesSummary reports one store's sales. Sellers may only read their own
	// store; admins pass any store id.
	SalesSummary(ctx context.Context, actor auth.Actor, req SummaryInput) (*types.SalesSummaryResponse, error)
}

// SummaryInput is the raw dashboard request. Zero times default to the last 30 days.
type SummaryInput struct {
	StoreID *uuid.UUID
	Start   time.Time
	End     time.Time
	TopN    int
}

type service struct {
	sales query.SalesService
	now   func() time.Time
}

// NewService builds an analytics service over the sales query layer.
func NewService(sales query.SalesService, now func() time.Time) (Service, error) {
	if sales == nil {
		return nil, fmt.Errorf("sales query service required")
	}
	if now == nil {
		now = time.Now
	}
	return &service{sales: sales, now: now}, nil
}

func (s *service) SalesSummary(ctx context.Context, actor auth.Actor, in SummaryInput) (*types.SalesSummaryResponse, error) {
	storeID, err := enums.MatchRole(actor.Role, enums.RoleCases[uuid.UUID]{
		Customer: func() (uuid.UUID, error) {
			return uuid.Nil, pkgerrors.New(pkgerrors.CodeForbidden, "analytics are available to sellers and admins")
		},
		Seller: func() (uuid.UUID, error) {
			if actor.StoreID == nil {
				return uuid.Nil, pkgerrors.New(pkgerrors.CodeForbidden, "seller has no store")
			}
			if in.StoreID != nil && *in.StoreID != *actor.StoreID {
				return uuid.Nil, pkgerrors.New(pkgerrors.CodeForbidden, "cannot read another store's analytics")
			}
			return *actor.StoreID, nil
		},
		Admin: func() (uuid.UUID, error) {
			if in.StoreID == nil {
				return uuid.Nil, pkgerrors.New(pkgerrors.CodeValidation, "store_id is required")
			}
			return *in.StoreID, nil
		},
	})
	if err != nil {
		return nil, pkgerrors.Ensure(err, pkgerrors.CodeValidation, "invalid role")
	}

	req, err := s.buildRequest(storeID, in)
	if err != nil {
		return nil, err
	}

	totals, err := s.sales.Totals(ctx, req)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load sales totals")
	}
	daily, err := s.sales.Daily(ctx, req)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load daily sales")
	}
	top, err := s.sales.TopBooks(ctx, req)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load top books")
	}

	aov := decimal.Zero
	if totals.OrderCount > 0 {
		aov = totals.Revenue.Div(decimal.NewFromInt(totals.OrderCount)).Round(2)
	}
	return &types.SalesSummaryResponse{
		StoreID:           storeID,
		Start:             req.Start,
		End:               req.End,
		Totals:            totals,
		AverageOrderValue: aov,
		Daily:             daily,
		TopBooks:          top,
	}, nil
}

func (s *service) buildRequest(storeID uuid.UUID, in SummaryInput) (types.SalesQueryRequest, error) {
	end := in.End.UTC()
	if in.End.IsZero() {
		end = s.now().UTC()
	}
	start := in.Start.UTC()
	if in.Start.IsZero() {
		start = end.Add(-defaultWindow)
	}
	if !end.After(start) {
		return types.SalesQueryRequest{}, pkgerrors.New(pkgerrors.CodeInvalidRange, "end must be after start")
	}
	if end.Sub(start) > maxWindow {
		return types.SalesQueryRequest{}, pkgerrors.New(pkgerrors.CodeInvalidRange, "window cannot exceed 366 days")
	}

	topN := in.TopN
	switch {
	case topN <= 0:
		topN = defaultTopN
	case topN > maxTopN:
		topN = maxTopN
	}
	return types.SalesQueryRequest{StoreID: storeID, Start: start, End: end, TopN: topN}, nil
}
