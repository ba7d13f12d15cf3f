package promotions

import (
	"context"
	"sort"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/librisvault/librisvault-backend/pkg/db/models"
	dbtypes "github.com/librisvault/librisvault-backend/pkg/db/types"
	"github.com/librisvault/librisvault-backend/pkg/enums"
	"github.com/librisvault/librisvault-backend/pkg/outbox"
)

type fakeRepo struct {
	promos     map[uuid.UUID]*models.Promotion
	stores     map[uuid.UUID]dbtypes.UUIDArray
	bookStores map[uuid.UUID]uuid.UUID
	err        error
	clock      time.Time
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{
		promos:     map[uuid.UUID]*models.Promotion{},
		stores:     map[uuid.UUID]dbtypes.UUIDArray{},
		bookStores: map[uuid.UUID]uuid.UUID{},
		clock:      time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
	}
}

func (f *fakeRepo) WithTx(*gorm.DB) Repository { return f }

func (f *fakeRepo) Create(_ context.Context, promo *models.Promotion) error {
	if f.err != nil {
		return f.err
	}
	if promo.ID == uuid.Nil {
		promo.ID = uuid.New()
	}
	f.clock = f.clock.Add(time.Minute)
	promo.CreatedAt = f.clock
	cp := *promo
	f.promos[promo.ID] = &cp
	return nil
}

func (f *fakeRepo) FindByID(_ context.Context, id uuid.UUID) (*models.Promotion, error) {
	if f.err != nil {
		return nil, f.err
	}
	promo, ok := f.promos[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	cp := *promo
	return &cp, nil
}

func (f *fakeRepo) sorted(keep func(models.Promotion) bool) []models.Promotion {
	var out []models.Promotion
	for _, p := range f.promos {
		if keep(*p) {
			out = append(out, *p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out
}

func (f *fakeRepo) FindActiveSystemWide(_ context.Context, now time.Time) (*models.Promotion, error) {
	if f.err != nil {
		return nil, f.err
	}
	rows := f.sorted(func(p models.Promotion) bool {
		return p.Scope == enums.PromotionScopeSystemWide && p.IsEligible(now)
	})
	if len(rows) == 0 {
		return nil, nil
	}
	return &rows[0], nil
}

func (f *fakeRepo) FindActiveSellerSpecific(_ context.Context, now time.Time) ([]models.Promotion, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.sorted(func(p models.Promotion) bool {
		return p.Scope.IsSellerOwned() && p.IsEligible(now)
	}), nil
}

func (f *fakeRepo) FindExpired(_ context.Context, now time.Time) ([]models.Promotion, error) {
	return f.sorted(func(p models.Promotion) bool { return p.EndsAt.Before(now) }), nil
}

func (f *fakeRepo) Delete(_ context.Context, id uuid.UUID) error {
	delete(f.promos, id)
	return nil
}

func (f *fakeRepo) DeleteByStore(_ context.Context, storeID uuid.UUID) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	for id, p := range f.promos {
		if p.StoreID != nil && *p.StoreID == storeID {
			ids = append(ids, id)
			delete(f.promos, id)
		}
	}
	return ids, nil
}

func (f *fakeRepo) AttachToSeller(_ context.Context, storeID, promotionID uuid.UUID) error {
	if !f.stores[storeID].Contains(promotionID) {
		f.stores[storeID] = append(f.stores[storeID], promotionID)
	}
	return nil
}

func (f *fakeRepo) DetachFromSeller(_ context.Context, storeID, promotionID uuid.UUID) error {
	f.stores[storeID] = f.stores[storeID].Without(promotionID)
	return nil
}

func (f *fakeRepo) UpdateStatus(_ context.Context, id uuid.UUID, from, to enums.PromotionStatus) (bool, error) {
	promo, ok := f.promos[id]
	if !ok || promo.Status != from {
		return false, nil
	}
	promo.Status = to
	return true, nil
}

func (f *fakeRepo) List(_ context.Context, filter ListFilter) ([]models.Promotion, error) {
	return f.sorted(func(p models.Promotion) bool {
		if filter.StoreID != nil && (p.StoreID == nil || *p.StoreID != *filter.StoreID) {
			return false
		}
		if filter.Status != nil && p.Status != *filter.Status {
			return false
		}
		return filter.Scope == nil || p.Scope == *filter.Scope
	}), nil
}

func (f *fakeRepo) CountStoreBooks(_ context.Context, storeID uuid.UUID, ids []uuid.UUID) (int64, error) {
	var n int64
	for _, id := range ids {
		if f.bookStores[id] == storeID {
			n++
		}
	}
	return n, nil
}

func (f *fakeRepo) StoreExists(_ context.Context, storeID uuid.UUID) (bool, error) {
	_, ok := f.stores[storeID]
	return ok, nil
}

type fakeTx struct{ calls int }

func (f *fakeTx) WithTx(_ context.Context, fn func(tx *gorm.DB) error) error {
	f.calls++
	return fn(nil)
}

type captureEmitter struct {
	events []outbox.DomainEvent
	err    error
}

func (c *captureEmitter) Emit(_ context.Context, _ *gorm.DB, event outbox.DomainEvent) error {
	if c.err != nil {
		return c.err
	}
	c.events = append(c.events, event)
	return nil
}

type countingRefresher struct{ calls int }

func (c *countingRefresher) RefreshPersisted(context.Context) (int, error) {
	c.calls++
	return 0, nil
}
