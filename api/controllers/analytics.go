package controllers

import (
	"net/http"

	"github.com/librisvault/librisvault-backend/api/responses"
	"github.com/librisvault/librisvault-backend/api/validators"
	"github.com/librisvault/librisvault-backend/internal/analytics"
	"github.com/librisvault/librisvault-backend/pkg/logger"
)

// AnalyticsSales serves the seller dashboard. Admins pass ?store_id.
func AnalyticsSales(svc analytics.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			unavailable(w, r, logg, "analytics")
			return
		}
		actor, ok := requireActor(w, r, logg)
		if !ok {
			return
		}

		storeID, err := validators.ParseQueryUUID(r, "store_id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		start, err := validators.ParseQueryTime(r, "start")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		end, err := validators.ParseQueryTime(r, "end")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		topN, err := validators.ParseQueryInt(r, "top", 5, 1, 50)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		summary, err := svc.SalesSummary(r.Context(), actor, analytics.SummaryInput{
			StoreID: storeID,
			Start:   start,
			End:     end,
			TopN:    topN,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, summary)
	}
}
