package cron

import (
	"context"
	"fmt"

	"github.com/librisvault/librisvault-backend/pkg/logger"
)

const catalogPricingJobName = "catalog-pricing-refresh"

type pricingRefresher interface {
	RefreshPersisted(ctx context.Context) (int, error)
}

// NewCatalogPricingRefreshJob re-persists discounted prices and labels for the
// whole catalog. Registered after the expiry sweep so books that lost a seller
// promotion pick up the system-wide one in the same cycle.
func NewCatalogPricingRefreshJob(logg *logger.Logger, refresher pricingRefresher) (Job, error) {
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	if refresher == nil {
		return nil, fmt.Errorf("pricing refresher required")
	}
	return &catalogPricingJob{logg: logg, refresher: refresher}, nil
}

type catalogPricingJob struct {
	logg      *logger.Logger
	refresher pricingRefresher
}

func (j *catalogPricingJob) Name() string { return catalogPricingJobName }

func (j *catalogPricingJob) Run(ctx context.Context) error {
	written, err := j.refresher.RefreshPersisted(ctx)
	j.logg.Info(j.logg.WithField(ctx, "rows_written", written), "catalog pricing refresh finished")
	if err != nil {
		return fmt.Errorf("catalog pricing refresh: %w", err)
	}
	return nil
}
