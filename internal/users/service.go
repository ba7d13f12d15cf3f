package users

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/librisvault/librisvault-backend/pkg/db/models"
	"github.com/librisvault/librisvault-backend/pkg/enums"
	pkgerrors "github.com/librisvault/librisvault-backend/pkg/errors"
)

// ProfileDTO is the signed-in user plus their role-specific profile.
type ProfileDTO struct {
	User    *UserDTO   `json:"user"`
	StoreID *uuid.UUID `json:"store_id,omitempty"`
}

type Service interface {
	Profile(ctx context.Context, userID uuid.UUID) (*ProfileDTO, error)
}

type storeLookup interface {
	FindByOwner(ctx context.Context, ownerUserID uuid.UUID) (*models.Store, error)
}

type service struct {
	users  Repository
	stores storeLookup
}

func NewService(repo Repository, stores storeLookup) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("user repository required")
	}
	if stores == nil {
		return nil, fmt.Errorf("store lookup required")
	}
	return &service{users: repo, stores: stores}, nil
}

func (s *service) Profile(ctx context.Context, userID uuid.UUID) (*ProfileDTO, error) {
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "user not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load user")
	}

	storeID, err := enums.MatchRole(user.Role, enums.RoleCases[*uuid.UUID]{
		Customer: func() (*uuid.UUID, error) { return nil, nil },
		Admin:    func() (*uuid.UUID, error) { return nil, nil },
		Seller: func() (*uuid.UUID, error) {
			store, err := s.stores.FindByOwner(ctx, user.ID)
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, nil
			}
			if err != nil {
				return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load store")
			}
			return &store.ID, nil
		},
	})
	if err != nil {
		return nil, pkgerrors.Ensure(err, pkgerrors.CodeValidation, "unknown role")
	}
	return &ProfileDTO{User: FromModel(user), StoreID: storeID}, nil
}
