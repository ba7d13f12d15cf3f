package stores

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/librisvault/librisvault-backend/internal/books"
	"github.com/librisvault/librisvault-backend/internal/cart"
	"github.com/librisvault/librisvault-backend/internal/promotions"
	"github.com/librisvault/librisvault-backend/internal/users"
	"github.com/librisvault/librisvault-backend/pkg/auth"
	"github.com/librisvault/librisvault-backend/pkg/db/models"
	"github.com/librisvault/librisvault-backend/pkg/enums"
	pkgerrors "github.com/librisvault/librisvault-backend/pkg/errors"
	"github.com/librisvault/librisvault-backend/pkg/outbox"
)

type fakeStores struct {
	rows      map[uuid.UUID]*models.Store
	createErr error
}

func (f *fakeStores) WithTx(*gorm.DB) Repository { return f }

func (f *fakeStores) Create(_ context.Context, store *models.Store) error {
	if f.createErr != nil {
		return f.createErr
	}
	store.ID = uuid.New()
	store.CreatedAt = time.Now().UTC()
	cp := *store
	f.rows[store.ID] = &cp
	return nil
}

func (f *fakeStores) FindByID(_ context.Context, id uuid.UUID) (*models.Store, error) {
	store, ok := f.rows[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	cp := *store
	return &cp, nil
}

func (f *fakeStores) FindByOwner(_ context.Context, owner uuid.UUID) (*models.Store, error) {
	for _, store := range f.rows {
		if store.OwnerUserID == owner {
			cp := *store
			return &cp, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (f *fakeStores) Update(_ context.Context, store *models.Store) error {
	cp := *store
	f.rows[store.ID] = &cp
	return nil
}

func (f *fakeStores) Delete(_ context.Context, id uuid.UUID) error {
	delete(f.rows, id)
	return nil
}

type fakeUsers struct {
	users.Repository
	roles map[uuid.UUID]enums.Role
	err   error
}

func (f *fakeUsers) WithTx(*gorm.DB) users.Repository { return f }

func (f *fakeUsers) UpdateRole(_ context.Context, id uuid.UUID, role enums.Role) error {
	if f.err != nil {
		return f.err
	}
	f.roles[id] = role
	return nil
}

type fakeBooks struct {
	books.Repository
	counts  map[uuid.UUID]int64
	covers  map[uuid.UUID][]string
	deleted []uuid.UUID
}

func (f *fakeBooks) WithTx(*gorm.DB) books.Repository { return f }

func (f *fakeBooks) DeleteByStore(_ context.Context, storeID uuid.UUID) (int64, []string, error) {
	f.deleted = append(f.deleted, storeID)
	return f.counts[storeID], f.covers[storeID], nil
}

type fakePromotions struct {
	promotions.Repository
	byStore map[uuid.UUID][]uuid.UUID
}

func (f *fakePromotions) WithTx(*gorm.DB) promotions.Repository { return f }

func (f *fakePromotions) DeleteByStore(_ context.Context, storeID uuid.UUID) ([]uuid.UUID, error) {
	ids := f.byStore[storeID]
	delete(f.byStore, storeID)
	return ids, nil
}

type fakeCart struct {
	cart.Repository
	removed int64
}

func (f *fakeCart) WithTx(*gorm.DB) cart.Repository { return f }

func (f *fakeCart) DeleteByStore(context.Context, uuid.UUID) (int64, error) {
	return f.removed, nil
}

type fakeObjects struct {
	uploaded  map[string]string
	deleted   []string
	deleteErr map[string]error
}

func (f *fakeObjects) Upload(_ context.Context, object, contentType string, body io.Reader) error {
	if _, err := io.ReadAll(body); err != nil {
		return err
	}
	f.uploaded[object] = contentType
	return nil
}

func (f *fakeObjects) Delete(_ context.Context, object string) error {
	if err := f.deleteErr[object]; err != nil {
		return err
	}
	f.deleted = append(f.deleted, object)
	return nil
}

func (f *fakeObjects) PublicURL(object string) string {
	return "https://cdn.example.com/" + object
}

type recordingTx struct{ calls int }

func (r *recordingTx) WithTx(_ context.Context, fn func(tx *gorm.DB) error) error {
	r.calls++
	return fn(nil)
}

type recordingEmitter struct{ events []outbox.DomainEvent }

func (r *recordingEmitter) Emit(_ context.Context, _ *gorm.DB, event outbox.DomainEvent) error {
	r.events = append(r.events, event)
	return nil
}

type fixture struct {
	stores  *fakeStores
	users   *fakeUsers
	books   *fakeBooks
	promos  *fakePromotions
	cart    *fakeCart
	objects *fakeObjects
	emitter *recordingEmitter
	svc     Service
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		stores:  &fakeStores{rows: map[uuid.UUID]*models.Store{}},
		users:   &fakeUsers{roles: map[uuid.UUID]enums.Role{}},
		books:   &fakeBooks{counts: map[uuid.UUID]int64{}, covers: map[uuid.UUID][]string{}},
		promos:  &fakePromotions{byStore: map[uuid.UUID][]uuid.UUID{}},
		cart:    &fakeCart{},
		objects: &fakeObjects{uploaded: map[string]string{}, deleteErr: map[string]error{}},
		emitter: &recordingEmitter{},
	}
	svc, err := NewService(ServiceParams{
		Repo:       f.stores,
		Users:      f.users,
		Books:      f.books,
		Promotions: f.promos,
		Cart:       f.cart,
		Objects:    f.objects,
		Tx:         &recordingTx{},
		Outbox:     f.emitter,
	})
	require.NoError(t, err)
	f.svc = svc
	return f
}

func seller() auth.Actor {
	return auth.Actor{UserID: uuid.New(), Role: enums.RoleSeller}
}

func TestCreateStore(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	actor := seller()
	desc := "  second-hand classics  "

	dto, err := f.svc.Create(context.Background(), actor, CreateStoreInput{Name: " Folio ", Description: &desc})
	require.NoError(t, err)
	require.Equal(t, "Folio", dto.Name)
	require.Equal(t, "second-hand classics", *dto.Description)
	require.Equal(t, actor.UserID, dto.OwnerUserID)
	require.Empty(t, dto.PromotionIDs)

	_, err = f.svc.Create(context.Background(), auth.Actor{UserID: uuid.New(), Role: enums.RoleCustomer}, CreateStoreInput{Name: "x"})
	require.Equal(t, pkgerrors.CodeForbidden, pkgerrors.CodeOf(err))

	_, err = f.svc.Create(context.Background(), actor, CreateStoreInput{Name: "  "})
	require.Equal(t, pkgerrors.CodeValidation, pkgerrors.CodeOf(err))
}

func TestCreateStoreSecondStoreConflicts(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	f.stores.createErr = &pgconn.PgError{Code: "23505", ConstraintName: ownerConstraint}

	_, err := f.svc.Create(context.Background(), seller(), CreateStoreInput{Name: "Folio"})
	require.Equal(t, pkgerrors.CodeConflict, pkgerrors.CodeOf(err))
}

func TestUpdateStoreReplacesLogo(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	actor := seller()
	dto, err := f.svc.Create(context.Background(), actor, CreateStoreInput{Name: "Folio"})
	require.NoError(t, err)
	storeID := dto.ID
	actor.StoreID = &storeID

	first, err := f.svc.Update(context.Background(), actor, storeID, UpdateStoreInput{
		Logo: &LogoUpload{Filename: "logo.png", Body: strings.NewReader("png")},
	})
	require.NoError(t, err)
	require.NotNil(t, first.LogoURL)
	require.True(t, strings.HasPrefix(*first.LogoURL, "https://cdn.example.com/logos/"+storeID.String()+"/"))
	require.Empty(t, f.objects.deleted)

	_, err = f.svc.Update(context.Background(), actor, storeID, UpdateStoreInput{
		Logo: &LogoUpload{ContentType: "image/jpeg", Body: strings.NewReader("jpg")},
	})
	require.NoError(t, err)
	require.Len(t, f.objects.uploaded, 2)
	require.Len(t, f.objects.deleted, 1)
	require.Equal(t, strings.TrimPrefix(*first.LogoURL, "https://cdn.example.com/"), f.objects.deleted[0])

	other := seller()
	otherStore := uuid.New()
	other.StoreID = &otherStore
	_, err = f.svc.Update(context.Background(), other, storeID, UpdateStoreInput{})
	require.Equal(t, pkgerrors.CodeForbidden, pkgerrors.CodeOf(err))

	_, err = f.svc.Update(context.Background(), actor, storeID, UpdateStoreInput{
		Logo: &LogoUpload{ContentType: "application/pdf", Body: strings.NewReader("%PDF")},
	})
	require.Equal(t, pkgerrors.CodeValidation, pkgerrors.CodeOf(err))
}

func TestDeleteStoreCascadesAndDemotesOwner(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	owner := seller()
	dto, err := f.svc.Create(context.Background(), owner, CreateStoreInput{Name: "Folio"})
	require.NoError(t, err)
	storeID := dto.ID
	owner.StoreID = &storeID

	logo := "logos/" + storeID.String() + "/a.png"
	f.stores.rows[storeID].LogoObject = &logo
	// Five books, only two with a cover.
	f.books.counts[storeID] = 5
	f.books.covers[storeID] = []string{"covers/1.jpg", "covers/2.jpg"}
	f.promos.byStore[storeID] = []uuid.UUID{uuid.New(), uuid.New()}
	f.cart.removed = 4
	f.objects.deleteErr["covers/2.jpg"] = errors.New("bucket unavailable")

	res, err := f.svc.Delete(context.Background(), owner, storeID)
	require.NoError(t, err)
	require.Equal(t, 5, res.BooksRemoved)
	require.Equal(t, 2, res.PromotionsRemoved)
	require.Equal(t, int64(4), res.CartLinesRemoved)
	require.Equal(t, 2, res.MediaRemoved)
	require.ElementsMatch(t, []string{"covers/1.jpg", logo}, f.objects.deleted)

	require.NotContains(t, f.stores.rows, storeID)
	require.Equal(t, enums.RoleCustomer, f.users.roles[owner.UserID])
	require.Len(t, f.emitter.events, 1)
	require.Equal(t, enums.EventStoreDeleted, f.emitter.events[0].EventType)
	payload, ok := f.emitter.events[0].Data.(outbox.StoreDeletedEvent)
	require.True(t, ok)
	require.Equal(t, int64(5), payload.BooksRemoved)
	require.Equal(t, int64(2), payload.PromosRemoved)
}

func TestDeleteStoreFailureKeepsMedia(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	owner := seller()
	dto, err := f.svc.Create(context.Background(), owner, CreateStoreInput{Name: "Folio"})
	require.NoError(t, err)
	f.books.covers[dto.ID] = []string{"covers/1.jpg"}
	f.users.err = errors.New("db down")

	_, err = f.svc.Delete(context.Background(), auth.Actor{UserID: uuid.New(), Role: enums.RoleAdmin}, dto.ID)
	require.Equal(t, pkgerrors.CodeDependency, pkgerrors.CodeOf(err))
	require.Empty(t, f.objects.deleted)
	require.Empty(t, f.emitter.events)
}

func TestDeleteStoreRequiresOwnership(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	_, err := f.svc.Delete(context.Background(), seller(), uuid.New())
	require.Equal(t, pkgerrors.CodeForbidden, pkgerrors.CodeOf(err))

	_, err = f.svc.Delete(context.Background(), auth.Actor{UserID: uuid.New(), Role: enums.RoleAdmin}, uuid.New())
	require.Equal(t, pkgerrors.CodeNotFound, pkgerrors.CodeOf(err))
}

func TestGetByOwner(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	owner := seller()
	_, err := f.svc.GetByOwner(context.Background(), owner.UserID)
	require.Equal(t, pkgerrors.CodeNotFound, pkgerrors.CodeOf(err))

	_, err = f.svc.Create(context.Background(), owner, CreateStoreInput{Name: "Folio"})
	require.NoError(t, err)
	dto, err := f.svc.GetByOwner(context.Background(), owner.UserID)
	require.NoError(t, err)
	require.Equal(t, "Folio", dto.Name)
}
