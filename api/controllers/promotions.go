package controllers

import (
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/librisvault/librisvault-backend/api/responses"
	"github.com/librisvault/librisvault-backend/api/validators"
	"github.com/librisvault/librisvault-backend/internal/promotions"
	pkgAuth "github.com/librisvault/librisvault-backend/pkg/auth"
	"github.com/librisvault/librisvault-backend/pkg/enums"
	pkgerrors "github.com/librisvault/librisvault-backend/pkg/errors"
	"github.com/librisvault/librisvault-backend/pkg/logger"
)

type promotionCreateRequest struct {
	Scope              string          `json:"scope" validate:"required"`
	StoreID            *uuid.UUID      `json:"store_id,omitempty"`
	Title              string          `json:"title" validate:"required,max=200"`
	Description        *string         `json:"description,omitempty" validate:"omitempty,max=2000"`
	DiscountPercentage decimal.Decimal `json:"discount_percentage"`
	StartsAt           time.Time       `json:"starts_at" validate:"required"`
	EndsAt             time.Time       `json:"ends_at" validate:"required"`
	ApplicableBookIDs  []uuid.UUID     `json:"applicable_book_ids,omitempty"`
}

type promotionRejectRequest struct {
	Reason string `json:"reason" validate:"max=1000"`
}

// PromotionCreate lets sellers draft store promotions and admins publish
// system-wide ones.
func PromotionCreate(svc promotions.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			unavailable(w, r, logg, "promotion")
			return
		}
		actor, ok := requireActor(w, r, logg)
		if !ok {
			return
		}

		var body promotionCreateRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		scope, err := enums.ParsePromotionScope(body.Scope)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid scope"))
			return
		}

		promo, err := svc.Create(r.Context(), actor, promotions.CreateInput{
			Scope:              scope,
			StoreID:            body.StoreID,
			Title:              body.Title,
			Description:        body.Description,
			DiscountPercentage: body.DiscountPercentage,
			StartsAt:           body.StartsAt,
			EndsAt:             body.EndsAt,
			ApplicableBookIDs:  body.ApplicableBookIDs,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, promo)
	}
}

func PromotionList(svc promotions.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			unavailable(w, r, logg, "promotion")
			return
		}
		actor, ok := requireActor(w, r, logg)
		if !ok {
			return
		}
		page, err := parsePage(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		input := promotions.ListInput{Limit: page.Limit, Cursor: page.Cursor}
		if raw := validators.QueryString(r, "scope", 32); raw != "" {
			scope, err := enums.ParsePromotionScope(raw)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid scope"))
				return
			}
			input.Scope = &scope
		}
		if raw := validators.QueryString(r, "status", 32); raw != "" {
			status, err := enums.ParsePromotionStatus(raw)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid status"))
				return
			}
			input.Status = &status
		}
		if input.StoreID, err = validators.ParseQueryUUID(r, "store_id"); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.List(r.Context(), actor, input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}

// PromotionListActive is the public feed of promotions currently in effect.
func PromotionListActive(svc promotions.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			unavailable(w, r, logg, "promotion")
			return
		}
		active, err := svc.ListActive(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]any{"promotions": active})
	}
}

func PromotionGet(svc promotions.Service, logg *logger.Logger) http.HandlerFunc {
	return promotionAction(svc, logg, func(r *http.Request, actor pkgAuth.Actor, id uuid.UUID) (any, error) {
		return svc.Get(r.Context(), actor, id)
	})
}

func PromotionApprove(svc promotions.Service, logg *logger.Logger) http.HandlerFunc {
	return promotionAction(svc, logg, func(r *http.Request, actor pkgAuth.Actor, id uuid.UUID) (any, error) {
		return svc.Approve(r.Context(), actor, id)
	})
}

func PromotionReject(svc promotions.Service, logg *logger.Logger) http.HandlerFunc {
	return promotionAction(svc, logg, func(r *http.Request, actor pkgAuth.Actor, id uuid.UUID) (any, error) {
		var body promotionRejectRequest
		if r.ContentLength != 0 {
			if err := validators.DecodeJSONBody(r, &body); err != nil {
				return nil, err
			}
		}
		return svc.Reject(r.Context(), actor, id, body.Reason)
	})
}

func PromotionDelete(svc promotions.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			unavailable(w, r, logg, "promotion")
			return
		}
		actor, ok := requireActor(w, r, logg)
		if !ok {
			return
		}
		id, err := validators.ParseUUIDParam(r, "promotionId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if err := svc.Delete(r.Context(), actor, id); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteNoContent(w)
	}
}

func promotionAction(svc promotions.Service, logg *logger.Logger, fn func(*http.Request, pkgAuth.Actor, uuid.UUID) (any, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			unavailable(w, r, logg, "promotion")
			return
		}
		actor, ok := requireActor(w, r, logg)
		if !ok {
			return
		}
		id, err := validators.ParseUUIDParam(r, "promotionId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		out, err := fn(r, actor, id)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, out)
	}
}
