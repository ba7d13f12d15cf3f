package stores

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/librisvault/librisvault-backend/internal/books"
	"github.com/librisvault/librisvault-backend/internal/cart"
	"github.com/librisvault/librisvault-backend/internal/promotions"
	"github.com/librisvault/librisvault-backend/internal/users"
	"github.com/librisvault/librisvault-backend/pkg/auth"
	"github.com/librisvault/librisvault-backend/pkg/db"
	"github.com/librisvault/librisvault-backend/pkg/db/models"
	dbtypes "github.com/librisvault/librisvault-backend/pkg/db/types"
	"github.com/librisvault/librisvault-backend/pkg/enums"
	pkgerrors "github.com/librisvault/librisvault-backend/pkg/errors"
	"github.com/librisvault/librisvault-backend/pkg/logger"
	"github.com/librisvault/librisvault-backend/pkg/outbox"
)

const ownerConstraint = "stores_owner_user_id_key"

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// Service exposes store operations.
type Service interface {
	Create(ctx context.Context, actor auth.Actor, input CreateStoreInput) (*StoreDTO, error)
	GetByID(ctx context.Context, id uuid.UUID) (*StoreDTO, error)
	GetByOwner(ctx context.Context, ownerUserID uuid.UUID) (*StoreDTO, error)
	Update(ctx context.Context, actor auth.Actor, storeID uuid.UUID, input UpdateStoreInput) (*StoreDTO, error)
	Delete(ctx context.Context, actor auth.Actor, storeID uuid.UUID) (*DeletionResult, error)
}

// ServiceParams wires the store service. Objects is optional; without it logo
// uploads are rejected and media cleanup is skipped.
type ServiceParams struct {
	Repo       Repository
	Users      users.Repository
	Books      books.Repository
	Promotions promotions.Repository
	Cart       cart.Repository
	Objects    books.ObjectStore
	Tx         txRunner
	Outbox     outbox.Emitter
	Logger     *logger.Logger
}

type service struct {
	repo       Repository
	users      users.Repository
	books      books.Repository
	promotions promotions.Repository
	cart       cart.Repository
	objects    books.ObjectStore
	tx         txRunner
	outbox     outbox.Emitter
	logg       *logger.Logger
}

// NewService builds a store service with the provided repositories.
func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, fmt.Errorf("store repository required")
	}
	if params.Users == nil {
		return nil, fmt.Errorf("users repository required")
	}
	if params.Books == nil {
		return nil, fmt.Errorf("books repository required")
	}
	if params.Promotions == nil {
		return nil, fmt.Errorf("promotions repository required")
	}
	if params.Cart == nil {
		return nil, fmt.Errorf("cart repository required")
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
	return &service{
		repo:       params.Repo,
		users:      params.Users,
		books:      params.Books,
		promotions: params.Promotions,
		cart:       params.Cart,
		objects:    params.Objects,
		tx:         params.Tx,
		outbox:     params.Outbox,
		logg:       params.Logger,
	}, nil
}

// Create opens the seller's store. A seller owns at most one.
func (s *service) Create(ctx context.Context, actor auth.Actor, input CreateStoreInput) (*StoreDTO, error) {
	if actor.Role != enums.RoleSeller {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "only sellers can open a store")
	}
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "name is required")
	}

	store := &models.Store{
		OwnerUserID:  actor.UserID,
		Name:         name,
		Description:  trimmed(input.Description),
		PromotionIDs: dbtypes.UUIDArray{},
	}
	if err := s.repo.Create(ctx, store); err != nil {
		if db.IsUniqueViolation(err, ownerConstraint) {
			return nil, pkgerrors.New(pkgerrors.CodeConflict, "seller already has a store")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create store")
	}
	return newStoreDTO(store, s.publicURL()), nil
}

func (s *service) GetByID(ctx context.Context, id uuid.UUID) (*StoreDTO, error) {
	store, err := s.load(ctx, s.repo, id)
	if err != nil {
		return nil, err
	}
	return newStoreDTO(store, s.publicURL()), nil
}

func (s *service) GetByOwner(ctx context.Context, ownerUserID uuid.UUID) (*StoreDTO, error) {
	store, err := s.repo.FindByOwner(ctx, ownerUserID)
	if err != nil {
		return nil, notFoundOr(err, "load store")
	}
	return newStoreDTO(store, s.publicURL()), nil
}

func (s *service) Update(ctx context.Context, actor auth.Actor, storeID uuid.UUID, input UpdateStoreInput) (*StoreDTO, error) {
	if !actor.CanManageStore(storeID) {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "cannot manage this store")
	}
	store, err := s.load(ctx, s.repo, storeID)
	if err != nil {
		return nil, err
	}

	if input.Name != nil {
		name := strings.TrimSpace(*input.Name)
		if name == "" {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "name cannot be empty")
		}
		store.Name = name
	}
	if input.Description != nil {
		store.Description = trimmed(input.Description)
	}

	var previousLogo, uploaded string
	if input.Logo != nil {
		if s.objects == nil {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "logo uploads are not enabled")
		}
		contentType, ext, err := books.ImageType(input.Logo.ContentType, input.Logo.Filename)
		if err != nil {
			return nil, err
		}
		uploaded = fmt.Sprintf("logos/%s/%s%s", storeID, uuid.NewString(), ext)
		if err := s.objects.Upload(ctx, uploaded, contentType, input.Logo.Body); err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "upload logo")
		}
		if store.LogoObject != nil {
			previousLogo = *store.LogoObject
		}
		store.LogoObject = &uploaded
	}

	if err := s.repo.Update(ctx, store); err != nil {
		if uploaded != "" {
			s.removeMedia(ctx, []string{uploaded})
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update store")
	}
	if previousLogo != "" {
		s.removeMedia(ctx, []string{previousLogo})
	}
	return newStoreDTO(store, s.publicURL()), nil
}

// Delete removes the seller account in one transaction: promotions, books,
// cart lines referencing them and the store itself, then demotes the owner to
// customer. Media objects are removed after commit and failures are only logged.
func (s *service) Delete(ctx context.Context, actor auth.Actor, storeID uuid.UUID) (*DeletionResult, error) {
	if !actor.CanManageStore(storeID) {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "cannot delete this store")
	}

	result := &DeletionResult{StoreID: storeID}
	var media []string
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		storeRepo := s.repo.WithTx(tx)
		store, err := s.load(ctx, storeRepo, storeID)
		if err != nil {
			return err
		}

		promoIDs, err := s.promotions.WithTx(tx).DeleteByStore(ctx, storeID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete store promotions")
		}
		cartLines, err := s.cart.WithTx(tx).DeleteByStore(ctx, storeID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete cart lines")
		}
		booksRemoved, covers, err := s.books.WithTx(tx).DeleteByStore(ctx, storeID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete store books")
		}
		if err := storeRepo.Delete(ctx, storeID); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete store")
		}
		if err := s.users.WithTx(tx).UpdateRole(ctx, store.OwnerUserID, enums.RoleCustomer); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "demote store owner")
		}

		event := outbox.DomainEvent{
			EventType:     enums.EventStoreDeleted,
			AggregateType: enums.AggregateStore,
			AggregateID:   storeID,
			Actor:         &outbox.ActorRef{UserID: actor.UserID, Role: string(actor.Role)},
			Data: outbox.StoreDeletedEvent{
				StoreID:       storeID,
				OwnerUserID:   store.OwnerUserID,
				BooksRemoved:  booksRemoved,
				PromosRemoved: int64(len(promoIDs)),
			},
		}
		if err := s.outbox.Emit(ctx, tx, event); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "emit store deleted")
		}

		result.BooksRemoved = int(booksRemoved)
		result.PromotionsRemoved = len(promoIDs)
		result.CartLinesRemoved = cartLines
		for _, cover := range covers {
			if cover != "" {
				media = append(media, cover)
			}
		}
		if store.LogoObject != nil {
			media = append(media, *store.LogoObject)
		}
		return nil
	})
	if err != nil {
		return nil, pkgerrors.Ensure(err, pkgerrors.CodeDependency, "delete store")
	}

	result.MediaRemoved = s.removeMedia(ctx, media)
	return result, nil
}

// removeMedia deletes objects best-effort and returns how many were removed.
func (s *service) removeMedia(ctx context.Context, objects []string) int {
	if s.objects == nil {
		return 0
	}
	removed := 0
	for _, object := range objects {
		if err := s.objects.Delete(ctx, object); err != nil {
			s.logg.Error(s.logg.WithField(ctx, "object", object), "store media cleanup failed", err)
			continue
		}
		removed++
	}
	return removed
}

func (s *service) publicURL() func(string) string {
	if s.objects == nil {
		return nil
	}
	return s.objects.PublicURL
}

func (s *service) load(ctx context.Context, repo Repository, id uuid.UUID) (*models.Store, error) {
	store, err := repo.FindByID(ctx, id)
	if err != nil {
		return nil, notFoundOr(err, "load store")
	}
	return store, nil
}

func notFoundOr(err error, msg string) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return pkgerrors.New(pkgerrors.CodeNotFound, "store not found")
	}
	return pkgerrors.Wrap(pkgerrors.CodeDependency, err, msg)
}

func trimmed(value *string) *string {
	if value == nil {
		return nil
	}
	v := strings.TrimSpace(*value)
	if v == "" {
		return nil
	}
	return &v
}
