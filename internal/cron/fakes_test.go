package cron

import (
	"bytes"
	"context"
	"errors"
	"sort"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/librisvault/librisvault-backend/internal/books"
	"github.com/librisvault/librisvault-backend/internal/promotions"
	"github.com/librisvault/librisvault-backend/pkg/db/models"
	"github.com/librisvault/librisvault-backend/pkg/enums"
	"github.com/librisvault/librisvault-backend/pkg/outbox"
)

type passTx struct{}

func (passTx) WithTx(_ context.Context, fn func(tx *gorm.DB) error) error { return fn(nil) }

type memPromotions struct {
	promotions.Repository
	byID      map[uuid.UUID]models.Promotion
	storeList map[uuid.UUID][]uuid.UUID
	deleteErr map[uuid.UUID]error
}

func newMemPromotions(seed ...models.Promotion) *memPromotions {
	m := &memPromotions{
		byID:      map[uuid.UUID]models.Promotion{},
		storeList: map[uuid.UUID][]uuid.UUID{},
		deleteErr: map[uuid.UUID]error{},
	}
	for _, p := range seed {
		m.byID[p.ID] = p
		if p.StoreID != nil {
			m.storeList[*p.StoreID] = append(m.storeList[*p.StoreID], p.ID)
		}
	}
	return m
}

func (m *memPromotions) WithTx(*gorm.DB) promotions.Repository { return m }

func (m *memPromotions) sorted() []models.Promotion {
	out := make([]models.Promotion, 0, len(m.byID))
	for _, p := range m.byID {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out
}

func (m *memPromotions) FindExpired(_ context.Context, now time.Time) ([]models.Promotion, error) {
	var out []models.Promotion
	for _, p := range m.sorted() {
		if p.EndsAt.Before(now) {
			out = append(out, p)
		}
	}
	return out, nil
}

func (m *memPromotions) FindActiveSystemWide(_ context.Context, now time.Time) (*models.Promotion, error) {
	for _, p := range m.sorted() {
		if p.Scope == enums.PromotionScopeSystemWide && p.IsEligible(now) {
			cp := p
			return &cp, nil
		}
	}
	return nil, nil
}

func (m *memPromotions) FindActiveSellerSpecific(_ context.Context, now time.Time) ([]models.Promotion, error) {
	var out []models.Promotion
	for _, p := range m.sorted() {
		if p.Scope.IsSellerOwned() && p.IsEligible(now) {
			out = append(out, p)
		}
	}
	return out, nil
}

func (m *memPromotions) DetachFromSeller(_ context.Context, storeID, promotionID uuid.UUID) error {
	ids := m.storeList[storeID]
	kept := ids[:0]
	for _, id := range ids {
		if id != promotionID {
			kept = append(kept, id)
		}
	}
	m.storeList[storeID] = kept
	return nil
}

func (m *memPromotions) Delete(_ context.Context, id uuid.UUID) error {
	if err := m.deleteErr[id]; err != nil {
		return err
	}
	delete(m.byID, id)
	return nil
}

type memBooks struct {
	books.Repository
	byID    map[uuid.UUID]*models.Book
	cleared int64
}

func newMemBooks(seed ...models.Book) *memBooks {
	m := &memBooks{byID: map[uuid.UUID]*models.Book{}}
	for _, b := range seed {
		cp := b
		m.byID[b.ID] = &cp
	}
	return m
}

func (m *memBooks) WithTx(*gorm.DB) books.Repository { return m }

func (m *memBooks) ListBatch(_ context.Context, afterID uuid.UUID, limit int) ([]models.Book, error) {
	all := make([]models.Book, 0, len(m.byID))
	for _, b := range m.byID {
		all = append(all, *b)
	}
	sort.Slice(all, func(i, j int) bool { return bytes.Compare(all[i].ID[:], all[j].ID[:]) < 0 })
	var out []models.Book
	for _, b := range all {
		if bytes.Compare(b.ID[:], afterID[:]) <= 0 {
			continue
		}
		out = append(out, b)
		if len(out) == limit {
			break
		}
	}
	return out, nil
}

func (m *memBooks) SavePricing(_ context.Context, id uuid.UUID, a books.Annotation) error {
	b, ok := m.byID[id]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	b.DiscountedPrice = a.Price
	b.ActivePromotionLabel = a.Label
	b.ActivePromotionID = a.PromotionID
	at := a.RefreshedAt
	b.PricingRefreshedAt = &at
	return nil
}

func (m *memBooks) ClearAnnotations(_ context.Context, promotionID uuid.UUID, scope books.AnnotationScope) (int64, error) {
	var n int64
	for _, b := range m.byID {
		if b.ActivePromotionID == nil || *b.ActivePromotionID != promotionID {
			continue
		}
		if scope.StoreID != nil && b.StoreID != *scope.StoreID {
			continue
		}
		if len(scope.BookIDs) > 0 && !containsID(scope.BookIDs, b.ID) {
			continue
		}
		b.DiscountedPrice.Valid = false
		b.ActivePromotionLabel = nil
		b.ActivePromotionID = nil
		n++
	}
	m.cleared += n
	return n, nil
}

func (m *memBooks) snapshot() map[uuid.UUID]models.Book {
	out := make(map[uuid.UUID]models.Book, len(m.byID))
	for id, b := range m.byID {
		out[id] = *b
	}
	return out
}

func containsID(ids []uuid.UUID, id uuid.UUID) bool {
	for _, candidate := range ids {
		if candidate == id {
			return true
		}
	}
	return false
}

type recordingOutbox struct {
	events []outbox.DomainEvent
	err    error
}

func (r *recordingOutbox) Emit(_ context.Context, _ *gorm.DB, event outbox.DomainEvent) error {
	if r.err != nil {
		return r.err
	}
	r.events = append(r.events, event)
	return nil
}

var errBoom = errors.New("boom")
