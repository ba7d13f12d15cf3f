package books

import (
	"bytes"
	"context"
	"errors"
	"io"
	"sort"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/librisvault/librisvault-backend/internal/promotions"
	"github.com/librisvault/librisvault-backend/pkg/db/models"
)

type fakeRepo struct {
	books     map[uuid.UUID]*models.Book
	stores    map[uuid.UUID]bool
	createErr error
	saveErr   map[uuid.UUID]error
	saves     int
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{
		books:   map[uuid.UUID]*models.Book{},
		stores:  map[uuid.UUID]bool{},
		saveErr: map[uuid.UUID]error{},
	}
}

func (f *fakeRepo) add(book models.Book) models.Book {
	if book.ID == uuid.Nil {
		book.ID = uuid.New()
	}
	cp := book
	f.books[book.ID] = &cp
	return book
}

func (f *fakeRepo) WithTx(*gorm.DB) Repository { return f }

func (f *fakeRepo) Create(_ context.Context, book *models.Book) error {
	if f.createErr != nil {
		return f.createErr
	}
	book.ID = uuid.New()
	book.CreatedAt = time.Now().UTC()
	f.add(*book)
	return nil
}

func (f *fakeRepo) FindByID(_ context.Context, id uuid.UUID) (*models.Book, error) {
	book, ok := f.books[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	cp := *book
	return &cp, nil
}

func (f *fakeRepo) FindByIDs(_ context.Context, ids []uuid.UUID) ([]models.Book, error) {
	var out []models.Book
	for _, id := range ids {
		if book, ok := f.books[id]; ok {
			out = append(out, *book)
		}
	}
	return out, nil
}

func (f *fakeRepo) Update(_ context.Context, book *models.Book) error {
	cp := *book
	f.books[book.ID] = &cp
	return nil
}

func (f *fakeRepo) Delete(_ context.Context, id uuid.UUID) error {
	delete(f.books, id)
	return nil
}

func (f *fakeRepo) byID() []models.Book {
	out := make([]models.Book, 0, len(f.books))
	for _, book := range f.books {
		out = append(out, *book)
	}
	sort.Slice(out, func(i, j int) bool { return bytes.Compare(out[i].ID[:], out[j].ID[:]) < 0 })
	return out
}

func (f *fakeRepo) List(_ context.Context, filter ListFilter) ([]models.Book, error) {
	var out []models.Book
	for _, book := range f.byID() {
		if filter.StoreID != nil && book.StoreID != *filter.StoreID {
			continue
		}
		if filter.Genre != "" && book.Genre != filter.Genre {
			continue
		}
		out = append(out, book)
	}
	return out, nil
}

func (f *fakeRepo) ListAll(context.Context) ([]models.Book, error) {
	return f.byID(), nil
}

func (f *fakeRepo) ListBatch(_ context.Context, afterID uuid.UUID, limit int) ([]models.Book, error) {
	var out []models.Book
	for _, book := range f.byID() {
		if bytes.Compare(book.ID[:], afterID[:]) <= 0 {
			continue
		}
		out = append(out, book)
		if len(out) == limit {
			break
		}
	}
	return out, nil
}

func (f *fakeRepo) SavePricing(_ context.Context, id uuid.UUID, annotation Annotation) error {
	if err := f.saveErr[id]; err != nil {
		return err
	}
	book := f.books[id]
	book.DiscountedPrice = annotation.Price
	book.ActivePromotionLabel = annotation.Label
	book.ActivePromotionID = annotation.PromotionID
	refreshed := annotation.RefreshedAt
	book.PricingRefreshedAt = &refreshed
	f.saves++
	return nil
}

func (f *fakeRepo) ClearAnnotations(_ context.Context, promotionID uuid.UUID, scope AnnotationScope) (int64, error) {
	var n int64
	for _, book := range f.books {
		if book.ActivePromotionID == nil || *book.ActivePromotionID != promotionID {
			continue
		}
		if scope.StoreID != nil && book.StoreID != *scope.StoreID {
			continue
		}
		book.DiscountedPrice.Valid = false
		book.ActivePromotionLabel = nil
		book.ActivePromotionID = nil
		n++
	}
	return n, nil
}

func (f *fakeRepo) DeleteByStore(_ context.Context, storeID uuid.UUID) (int64, []string, error) {
	var covers []string
	var n int64
	for id, book := range f.books {
		if book.StoreID == storeID {
			if book.CoverObject != nil {
				covers = append(covers, *book.CoverObject)
			}
			delete(f.books, id)
			n++
		}
	}
	return n, covers, nil
}

func (f *fakeRepo) DecrementStock(_ context.Context, id uuid.UUID, qty int) (int, bool, error) {
	book, ok := f.books[id]
	if !ok || book.Stock < qty {
		return 0, false, nil
	}
	book.Stock -= qty
	return book.Stock, true, nil
}

func (f *fakeRepo) RestoreStock(_ context.Context, id uuid.UUID, qty int) error {
	if book, ok := f.books[id]; ok {
		book.Stock += qty
	}
	return nil
}

func (f *fakeRepo) StoreExists(_ context.Context, storeID uuid.UUID) (bool, error) {
	return f.stores[storeID], nil
}

type fakeResolver struct {
	set   promotions.ActiveSet
	err   error
	calls int
}

func (f *fakeResolver) ResolveActivePromotions(_ context.Context, now time.Time) (promotions.ActiveSet, error) {
	f.calls++
	if f.err != nil {
		return promotions.ActiveSet{}, f.err
	}
	set := f.set
	set.ResolvedAt = now
	return set, nil
}

type fakeObjects struct {
	uploaded  map[string][]byte
	deleted   []string
	uploadErr error
	deleteErr error
}

func newFakeObjects() *fakeObjects {
	return &fakeObjects{uploaded: map[string][]byte{}}
}

func (f *fakeObjects) Upload(_ context.Context, object, _ string, body io.Reader) error {
	if f.uploadErr != nil {
		return f.uploadErr
	}
	data, err := io.ReadAll(body)
	if err != nil {
		return err
	}
	f.uploaded[object] = data
	return nil
}

func (f *fakeObjects) Delete(_ context.Context, object string) error {
	f.deleted = append(f.deleted, object)
	if f.deleteErr != nil {
		return f.deleteErr
	}
	delete(f.uploaded, object)
	return nil
}

func (f *fakeObjects) PublicURL(object string) string {
	return "https://cdn.example.com/" + object
}

var errBoom = errors.New("boom")
