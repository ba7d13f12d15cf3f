package users

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/librisvault/librisvault-backend/pkg/db/models"
	"github.com/librisvault/librisvault-backend/pkg/enums"
	pkgerrors "github.com/librisvault/librisvault-backend/pkg/errors"
)

type memUsers struct {
	Repository
	byID map[uuid.UUID]*models.User
}

func (m memUsers) FindByID(_ context.Context, id uuid.UUID) (*models.User, error) {
	u, ok := m.byID[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return u, nil
}

type memStores map[uuid.UUID]uuid.UUID

func (m memStores) FindByOwner(_ context.Context, owner uuid.UUID) (*models.Store, error) {
	id, ok := m[owner]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return &models.Store{ID: id, OwnerUserID: owner}, nil
}

func TestProfileLoadsSellerStore(t *testing.T) {
	seller := &models.User{ID: uuid.New(), Email: "s@example.com", Role: enums.RoleSeller}
	customer := &models.User{ID: uuid.New(), Email: "c@example.com", Role: enums.RoleCustomer}
	storeID := uuid.New()

	svc, err := NewService(memUsers{byID: map[uuid.UUID]*models.User{seller.ID: seller, customer.ID: customer}}, memStores{seller.ID: storeID})
	require.NoError(t, err)

	profile, err := svc.Profile(context.Background(), seller.ID)
	require.NoError(t, err)
	require.NotNil(t, profile.StoreID)
	require.Equal(t, storeID, *profile.StoreID)

	profile, err = svc.Profile(context.Background(), customer.ID)
	require.NoError(t, err)
	require.Nil(t, profile.StoreID)
}

func TestProfileSellerWithoutStore(t *testing.T) {
	seller := &models.User{ID: uuid.New(), Role: enums.RoleSeller}
	svc, err := NewService(memUsers{byID: map[uuid.UUID]*models.User{seller.ID: seller}}, memStores{})
	require.NoError(t, err)

	profile, err := svc.Profile(context.Background(), seller.ID)
	require.NoError(t, err)
	require.Nil(t, profile.StoreID)
}

func TestProfileUnknownUser(t *testing.T) {
	svc, err := NewService(memUsers{byID: map[uuid.UUID]*models.User{}}, memStores{})
	require.NoError(t, err)

	_, err = svc.Profile(context.Background(), uuid.New())
	require.Equal(t, pkgerrors.CodeNotFound, pkgerrors.CodeOf(err))
}
