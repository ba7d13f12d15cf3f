package promotions

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/librisvault/librisvault-backend/pkg/auth"
	"github.com/librisvault/librisvault-backend/pkg/db/models"
	dbtypes "github.com/librisvault/librisvault-backend/pkg/db/types"
	"github.com/librisvault/librisvault-backend/pkg/enums"
	pkgerrors "github.com/librisvault/librisvault-backend/pkg/errors"
	"github.com/librisvault/librisvault-backend/pkg/logger"
	"github.com/librisvault/librisvault-backend/pkg/outbox"
	"github.com/librisvault/librisvault-backend/pkg/pagination"
	"github.com/librisvault/librisvault-backend/pkg/pricing"
)

// Service exposes promotion management.
type Service interface {
	Create(ctx context.Context, actor auth.Actor, input CreateInput) (*PromotionDTO, error)
	Get(ctx context.Context, actor auth.Actor, id uuid.UUID) (*PromotionDTO, error)
	List(ctx context.Context, actor auth.Actor, input ListInput) (*ListResult, error)
	ListActive(ctx context.Context) ([]PromotionDTO, error)
	Approve(ctx context.Context, actor auth.Actor, id uuid.UUID) (*PromotionDTO, error)
	Reject(ctx context.Context, actor auth.Actor, id uuid.UUID, reason string) (*PromotionDTO, error)
	Delete(ctx context.Context, actor auth.Actor, id uuid.UUID) error
}

// ServiceParams wires the promotion service.
type ServiceParams struct {
	Repo      Repository
	Tx        txRunner
	Outbox    outbox.Emitter
	Refresher PricingRefresher
	// RefreshOnChange re-persists catalog annotations after approve, reject,
	// delete and active system-wide creation.
	RefreshOnChange bool
	Logger          *logger.Logger
	Now             func() time.Time
}

type service struct {
	repo            Repository
	tx              txRunner
	outbox          outbox.Emitter
	refresher       PricingRefresher
	refreshOnChange bool
	logg            *logger.Logger
	now             func() time.Time
}

func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, fmt.Errorf("promotions repository required")
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
		repo:            params.Repo,
		tx:              params.Tx,
		outbox:          params.Outbox,
		refresher:       params.Refresher,
		refreshOnChange: params.RefreshOnChange,
		logg:            params.Logger,
		now:             params.Now,
	}, nil
}

func (s *service) Create(ctx context.Context, actor auth.Actor, input CreateInput) (*PromotionDTO, error) {
	if err := validateCreate(input); err != nil {
		return nil, err
	}

	promo, err := enums.MatchRole(actor.Role, enums.RoleCases[*models.Promotion]{
		Customer: func() (*models.Promotion, error) {
			return nil, pkgerrors.New(pkgerrors.CodeForbidden, "customers cannot create promotions")
		},
		Seller: func() (*models.Promotion, error) {
			return s.sellerDraft(actor, input)
		},
		Admin: func() (*models.Promotion, error) {
			return s.adminDraft(ctx, input)
		},
	})
	if err != nil {
		return nil, pkgerrors.Ensure(err, pkgerrors.CodeValidation, "invalid role")
	}

	if promo.Scope == enums.PromotionScopeBookSpecific || len(promo.ApplicableBookIDs) > 0 {
		owned, err := s.repo.CountStoreBooks(ctx, *promo.StoreID, promo.ApplicableBookIDs)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check applicable books")
		}
		if owned != int64(len(promo.ApplicableBookIDs)) {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "applicable_book_ids must all belong to the store")
		}
	}

	createdBy := actor.UserID
	promo.CreatedByUserID = &createdBy

	if err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		if err := repo.Create(ctx, promo); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "insert promotion")
		}
		if promo.StoreID != nil {
			if err := repo.AttachToSeller(ctx, *promo.StoreID, promo.ID); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "attach promotion to store")
			}
		}
		return nil
	}); err != nil {
		return nil, pkgerrors.Ensure(err, pkgerrors.CodeDependency, "create promotion")
	}

	if promo.Status == enums.PromotionStatusActive {
		s.refreshPricing(ctx, promo.ID)
	}
	return NewPromotionDTO(promo), nil
}

func validateCreate(input CreateInput) error {
	if strings.TrimSpace(input.Title) == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "title is required")
	}
	if !input.Scope.IsValid() {
		return pkgerrors.New(pkgerrors.CodeValidation, "invalid promotion scope")
	}
	if !pricing.ValidPercentage(input.DiscountPercentage) {
		return pkgerrors.New(pkgerrors.CodeInvalidRange, "discount_percentage must be between 0 and 100")
	}
	if !input.EndsAt.After(input.StartsAt) {
		return pkgerrors.New(pkgerrors.CodeInvalidRange, "ends_at must be after starts_at")
	}
	if input.Scope == enums.PromotionScopeBookSpecific && len(input.ApplicableBookIDs) == 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "book-specific promotions need applicable_book_ids")
	}
	if input.Scope == enums.PromotionScopeSystemWide && len(input.ApplicableBookIDs) > 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "system-wide promotions cannot list applicable_book_ids")
	}
	return nil
}

// sellerDraft builds an INACTIVE promotion owned by the seller's own store.
func (s *service) sellerDraft(actor auth.Actor, input CreateInput) (*models.Promotion, error) {
	if !input.Scope.IsSellerOwned() {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "sellers can only create store promotions")
	}
	if actor.StoreID == nil {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "seller has no store")
	}
	if input.StoreID != nil && *input.StoreID != *actor.StoreID {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "cannot create promotions for another store")
	}
	storeID := *actor.StoreID
	return draft(input, &storeID, enums.PromotionStatusInactive), nil
}

// adminDraft builds an ACTIVE system-wide promotion, or an INACTIVE store
// promotion on behalf of a seller.
func (s *service) adminDraft(ctx context.Context, input CreateInput) (*models.Promotion, error) {
	if input.Scope == enums.PromotionScopeSystemWide {
		if input.StoreID != nil {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "system-wide promotions cannot target a store")
		}
		return draft(input, nil, enums.PromotionStatusActive), nil
	}
	if input.StoreID == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "store_id is required for store promotions")
	}
	exists, err := s.repo.StoreExists(ctx, *input.StoreID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load store")
	}
	if !exists {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "store not found")
	}
	storeID := *input.StoreID
	return draft(input, &storeID, enums.PromotionStatusInactive), nil
}

func draft(input CreateInput, storeID *uuid.UUID, status enums.PromotionStatus) *models.Promotion {
	return &models.Promotion{
		Scope:              input.Scope,
		StoreID:            storeID,
		Title:              strings.TrimSpace(input.Title),
		Description:        input.Description,
		DiscountPercentage: input.DiscountPercentage,
		StartsAt:           input.StartsAt.UTC(),
		EndsAt:             input.EndsAt.UTC(),
		ApplicableBookIDs:  dedupe(input.ApplicableBookIDs),
		Status:             status,
	}
}

func dedupe(ids []uuid.UUID) dbtypes.UUIDArray {
	out := dbtypes.UUIDArray{}
	for _, id := range ids {
		if !out.Contains(id) {
			out = append(out, id)
		}
	}
	return out
}

func (s *service) Get(ctx context.Context, actor auth.Actor, id uuid.UUID) (*PromotionDTO, error) {
	promo, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if !canView(actor, promo) {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "promotion not found")
	}
	return NewPromotionDTO(promo), nil
}

// canView hides non-active promotions from everyone but operators and their owner.
func canView(actor auth.Actor, promo *models.Promotion) bool {
	if actor.IsAdmin() || promo.Status == enums.PromotionStatusActive {
		return true
	}
	return promo.StoreID != nil && actor.OwnsStore(*promo.StoreID)
}

func (s *service) List(ctx context.Context, actor auth.Actor, input ListInput) (*ListResult, error) {
	cursor, err := pagination.ParseCursor(input.Cursor)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
	}
	filter := ListFilter{
		Scope:   input.Scope,
		Status:  input.Status,
		StoreID: input.StoreID,
		Limit:   input.Limit,
		Cursor:  cursor,
	}

	switch {
	case actor.IsAdmin():
	case actor.Role == enums.RoleSeller && actor.StoreID != nil:
		if filter.StoreID != nil && *filter.StoreID != *actor.StoreID {
			return nil, pkgerrors.New(pkgerrors.CodeForbidden, "cannot list another store's promotions")
		}
		filter.StoreID = actor.StoreID
	default:
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "promotion management requires a seller or admin")
	}

	rows, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list promotions")
	}
	rows, next := pagination.Trim(rows, input.Limit, func(p models.Promotion) pagination.Cursor {
		return pagination.Cursor{CreatedAt: p.CreatedAt, ID: p.ID}
	})

	result := &ListResult{Promotions: make([]PromotionDTO, 0, len(rows)), NextCursor: next}
	for i := range rows {
		result.Promotions = append(result.Promotions, *NewPromotionDTO(&rows[i]))
	}
	return result, nil
}

func (s *service) ListActive(ctx context.Context) ([]PromotionDTO, error) {
	set, err := NewResolver(s.repo).ResolveActivePromotions(ctx, s.now().UTC())
	if err != nil {
		return nil, err
	}
	out := make([]PromotionDTO, 0, len(set.Seller)+1)
	if set.System != nil {
		out = append(out, *NewPromotionDTO(set.System))
	}
	for i := range set.Seller {
		out = append(out, *NewPromotionDTO(&set.Seller[i]))
	}
	return out, nil
}

func (s *service) Approve(ctx context.Context, actor auth.Actor, id uuid.UUID) (*PromotionDTO, error) {
	return s.transition(ctx, actor, id, enums.PromotionStatusActive, enums.EventPromotionApproved, "")
}

func (s *service) Reject(ctx context.Context, actor auth.Actor, id uuid.UUID, reason string) (*PromotionDTO, error) {
	return s.transition(ctx, actor, id, enums.PromotionStatusRejected, enums.EventPromotionRejected, strings.TrimSpace(reason))
}

func (s *service) transition(ctx context.Context, actor auth.Actor, id uuid.UUID, to enums.PromotionStatus, eventType enums.OutboxEventType, reason string) (*PromotionDTO, error) {
	if !actor.IsAdmin() {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "only operators can review promotions")
	}

	var updated *models.Promotion
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		promo, err := repo.FindByID(ctx, id)
		if err != nil {
			return notFoundOr(err, "load promotion")
		}
		from := promo.Status
		if !from.CanTransitionTo(to) {
			return pkgerrors.Newf(pkgerrors.CodeStateConflict, "cannot move promotion from %s to %s", from, to)
		}
		ok, err := repo.UpdateStatus(ctx, id, from, to)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update promotion status")
		}
		if !ok {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "promotion status changed concurrently")
		}
		promo.Status = to

		event := outbox.DomainEvent{
			EventType:     eventType,
			AggregateType: enums.AggregatePromotion,
			AggregateID:   promo.ID,
			Actor:         &outbox.ActorRef{UserID: actor.UserID, Role: string(actor.Role)},
			Data: outbox.PromotionStatusEvent{
				PromotionID: promo.ID,
				Scope:       string(promo.Scope),
				StoreID:     promo.StoreID,
				Status:      string(to),
				Reason:      reason,
			},
		}
		if err := s.outbox.Emit(ctx, tx, event); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "emit promotion event")
		}
		updated = promo
		return nil
	})
	if err != nil {
		return nil, pkgerrors.Ensure(err, pkgerrors.CodeDependency, "review promotion")
	}

	if to == enums.PromotionStatusActive {
		s.refreshPricing(ctx, updated.ID)
	}
	return NewPromotionDTO(updated), nil
}

func (s *service) Delete(ctx context.Context, actor auth.Actor, id uuid.UUID) error {
	promo, err := s.load(ctx, id)
	if err != nil {
		return err
	}
	if promo.StoreID == nil {
		if !actor.IsAdmin() {
			return pkgerrors.New(pkgerrors.CodeForbidden, "only operators can delete system-wide promotions")
		}
	} else if !actor.CanManageStore(*promo.StoreID) {
		return pkgerrors.New(pkgerrors.CodeForbidden, "cannot delete another store's promotion")
	}

	if err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		if promo.StoreID != nil {
			if err := repo.DetachFromSeller(ctx, *promo.StoreID, promo.ID); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "detach promotion from store")
			}
		}
		if err := repo.Delete(ctx, promo.ID); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete promotion")
		}
		return nil
	}); err != nil {
		return pkgerrors.Ensure(err, pkgerrors.CodeDependency, "delete promotion")
	}

	if promo.Status == enums.PromotionStatusActive {
		s.refreshPricing(ctx, promo.ID)
	}
	return nil
}

func (s *service) load(ctx context.Context, id uuid.UUID) (*models.Promotion, error) {
	promo, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, notFoundOr(err, "load promotion")
	}
	return promo, nil
}

// refreshPricing re-persists catalog annotations. Failures are logged only; the
// cron refresh converges the cache and reads never depend on it.
func (s *service) refreshPricing(ctx context.Context, promotionID uuid.UUID) {
	if !s.refreshOnChange || s.refresher == nil {
		return
	}
	ctx = s.logg.WithField(ctx, "promotion_id", promotionID.String())
	written, err := s.refresher.RefreshPersisted(ctx)
	if err != nil {
		s.logg.Error(ctx, "catalog pricing refresh after promotion change failed", err)
		return
	}
	s.logg.Info(s.logg.WithField(ctx, "rows_written", written), "catalog pricing refreshed")
}

func notFoundOr(err error, msg string) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return pkgerrors.New(pkgerrors.CodeNotFound, "promotion not found")
	}
	return pkgerrors.Wrap(pkgerrors.CodeDependency, err, msg)
}
