package controllers

import (
	"bytes"
	"context"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/librisvault/librisvault-backend/api/middleware"
	"github.com/librisvault/librisvault-backend/internal/books"
	pkgAuth "github.com/librisvault/librisvault-backend/pkg/auth"
)

type stubBookService struct {
	books.Service
	listInput   books.ListInput
	created     books.CreateInput
	coverBytes  []byte
	updated     books.UpdateInput
	deletedID   uuid.UUID
	price       *books.PriceDTO
	createActor pkgAuth.Actor
	catalog     []books.BookDTO
}

func (s *stubBookService) List(_ context.Context, in books.ListInput) (*books.ListResult, error) {
	s.listInput = in
	return &books.ListResult{Books: []books.BookDTO{}, NextCursor: "next"}, nil
}

func (s *stubBookService) Create(_ context.Context, actor pkgAuth.Actor, in books.CreateInput) (*books.BookDTO, error) {
	s.createActor = actor
	s.created = in
	if in.Cover != nil {
		s.coverBytes, _ = io.ReadAll(in.Cover.Body)
	}
	return &books.BookDTO{ID: uuid.New(), Title: in.Title, Price: in.Price}, nil
}

func (s *stubBookService) Update(_ context.Context, _ pkgAuth.Actor, id uuid.UUID, in books.UpdateInput) (*books.BookDTO, error) {
	s.updated = in
	return &books.BookDTO{ID: id}, nil
}

func (s *stubBookService) Delete(_ context.Context, _ pkgAuth.Actor, id uuid.UUID) error {
	s.deletedID = id
	return nil
}

func (s *stubBookService) ResolvePriceForItem(_ context.Context, id uuid.UUID) (*books.PriceDTO, error) {
	return s.price, nil
}

func (s *stubBookService) ListWithPricing(context.Context) ([]books.BookDTO, error) {
	return s.catalog, nil
}

func TestBookListAllReturnsPricedCatalog(t *testing.T) {
	label := "Spring Sale"
	svc := &stubBookService{catalog: []books.BookDTO{
		{ID: uuid.New(), Title: "Dune", Price: decimal.NewFromInt(20), DiscountedPrice: decimal.NewFromInt(16), ActivePromotionLabel: &label},
		{ID: uuid.New(), Title: "Emma", Price: decimal.NewFromInt(9), DiscountedPrice: decimal.NewFromInt(9)},
	}}
	req := httptest.NewRequest(http.MethodGet, "/books/all", nil)
	resp := serve(t, http.MethodGet, "/books/all", BookListAll(svc, nil), req)
	require.Equal(t, http.StatusOK, resp.Code)

	var got []books.BookDTO
	decodeData(t, resp, &got)
	require.Len(t, got, 2)
	require.Equal(t, "Dune", got[0].Title)
	require.True(t, got[0].DiscountedPrice.Equal(decimal.NewFromInt(16)))
	require.NotNil(t, got[0].ActivePromotionLabel)
	require.Equal(t, label, *got[0].ActivePromotionLabel)
	require.True(t, got[1].DiscountedPrice.Equal(got[1].Price))
	require.Nil(t, got[1].ActivePromotionLabel)
}

func TestBookListParsesFilters(t *testing.T) {
	svc := &stubBookService{}
	storeID := uuid.New()
	req := httptest.NewRequest(http.MethodGet, "/books?store_id="+storeID.String()+"&genre=Fantasy&author=Le+Guin&q=earthsea&limit=5&cursor=abc", nil)
	resp := serve(t, http.MethodGet, "/books", BookList(svc, nil), req)

	require.Equal(t, http.StatusOK, resp.Code)
	require.NotNil(t, svc.listInput.StoreID)
	require.Equal(t, storeID, *svc.listInput.StoreID)
	require.Equal(t, "Fantasy", svc.listInput.Genre)
	require.Equal(t, "Le Guin", svc.listInput.Author)
	require.Equal(t, "earthsea", svc.listInput.Search)
	require.Equal(t, 5, svc.listInput.Limit)
	require.Equal(t, "abc", svc.listInput.Cursor)
}

func TestBookListRejectsOutOfRangeLimit(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/books?limit=1000", nil)
	resp := serve(t, http.MethodGet, "/books", BookList(&stubBookService{}, nil), req)
	require.Equal(t, http.StatusBadRequest, resp.Code)
}

func TestBookCreateJSON(t *testing.T) {
	svc := &stubBookService{}
	actor := seller(uuid.New())
	req := jsonRequest(t, http.MethodPost, "/books", `{"title":"Dune","author":"Frank Herbert","isbn":"9780441013593","genre":"SF","price":"19.99","stock":4}`, &actor)
	resp := serve(t, http.MethodPost, "/books", BookCreate(svc, nil), req)

	require.Equal(t, http.StatusCreated, resp.Code)
	require.Equal(t, "Dune", svc.created.Title)
	require.True(t, svc.created.Price.Equal(decimal.RequireFromString("19.99")))
	require.Equal(t, 4, svc.created.Stock)
	require.Nil(t, svc.created.Cover)
	require.Equal(t, actor.UserID, svc.createActor.UserID)
}

func TestBookCreateMultipartWithCover(t *testing.T) {
	svc := &stubBookService{}
	actor := seller(uuid.New())

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for k, v := range map[string]string{
		"title": "Dune", "author": "Frank Herbert", "isbn": "9780441013593", "price": "19.99", "stock": "2",
	} {
		require.NoError(t, mw.WriteField(k, v))
	}
	header := textproto.MIMEHeader{}
	header.Set("Content-Disposition", `form-data; name="cover"; filename="dune.png"`)
	header.Set("Content-Type", "image/png")
	part, err := mw.CreatePart(header)
	require.NoError(t, err)
	_, err = part.Write([]byte("png-bytes"))
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/books", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req = req.WithContext(middleware.WithActor(req.Context(), actor))
	resp := serve(t, http.MethodPost, "/books", BookCreate(svc, nil), req)

	require.Equal(t, http.StatusCreated, resp.Code)
	require.NotNil(t, svc.created.Cover)
	require.Equal(t, "dune.png", svc.created.Cover.Filename)
	require.Equal(t, "image/png", svc.created.Cover.ContentType)
	require.Equal(t, []byte("png-bytes"), svc.coverBytes)
	require.Equal(t, 2, svc.created.Stock)
}

func TestBookCreateRequiresActor(t *testing.T) {
	req := jsonRequest(t, http.MethodPost, "/books", `{"title":"Dune"}`, nil)
	resp := serve(t, http.MethodPost, "/books", BookCreate(&stubBookService{}, nil), req)
	require.Equal(t, http.StatusUnauthorized, resp.Code)
}

func TestBookUpdatePassesPointers(t *testing.T) {
	svc := &stubBookService{}
	actor := seller(uuid.New())
	id := uuid.New()
	req := jsonRequest(t, http.MethodPatch, "/books/"+id.String(), `{"stock":0,"price":"12.50"}`, &actor)
	resp := serve(t, http.MethodPatch, "/books/{bookId}", BookUpdate(svc, nil), req)

	require.Equal(t, http.StatusOK, resp.Code)
	require.NotNil(t, svc.updated.Stock)
	require.Equal(t, 0, *svc.updated.Stock)
	require.Nil(t, svc.updated.Title)
	require.True(t, svc.updated.Price.Equal(decimal.RequireFromString("12.50")))
}

func TestBookDeleteInvalidID(t *testing.T) {
	actor := seller(uuid.New())
	req := jsonRequest(t, http.MethodDelete, "/books/not-a-uuid", nil, &actor)
	resp := serve(t, http.MethodDelete, "/books/{bookId}", BookDelete(&stubBookService{}, nil), req)
	require.Equal(t, http.StatusBadRequest, resp.Code)
}

func TestBookPrice(t *testing.T) {
	id := uuid.New()
	label := "Spring sale"
	svc := &stubBookService{price: &books.PriceDTO{
		BookID:         id,
		BasePrice:      decimal.RequireFromString("100"),
		Price:          decimal.RequireFromString("80"),
		PromotionLabel: &label,
	}}
	req := httptest.NewRequest(http.MethodGet, "/books/"+id.String()+"/price", nil)
	resp := serve(t, http.MethodGet, "/books/{bookId}/price", BookPrice(svc, nil), req)

	require.Equal(t, http.StatusOK, resp.Code)
	var got books.PriceDTO
	decodeData(t, resp, &got)
	require.True(t, got.Price.Equal(decimal.RequireFromString("80")))
	require.Equal(t, "Spring sale", *got.PromotionLabel)
}
