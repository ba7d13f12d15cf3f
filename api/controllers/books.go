package controllers

import (
	"net/http"
	"strconv"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/librisvault/librisvault-backend/api/responses"
	"github.com/librisvault/librisvault-backend/api/validators"
	"github.com/librisvault/librisvault-backend/internal/books"
	pkgerrors "github.com/librisvault/librisvault-backend/pkg/errors"
	"github.com/librisvault/librisvault-backend/pkg/logger"
)

type bookCreateRequest struct {
	StoreID     *uuid.UUID      `json:"store_id,omitempty"`
	Title       string          `json:"title" validate:"required,max=300"`
	Author      string          `json:"author" validate:"required,max=200"`
	ISBN        string          `json:"isbn" validate:"required,max=20"`
	Description *string         `json:"description,omitempty" validate:"omitempty,max=8000"`
	Genre       string          `json:"genre" validate:"max=80"`
	Price       decimal.Decimal `json:"price"`
	Stock       int             `json:"stock" validate:"gte=0"`
}

func (b bookCreateRequest) toInput() books.CreateInput {
	return books.CreateInput{
		StoreID:     b.StoreID,
		Title:       b.Title,
		Author:      b.Author,
		ISBN:        b.ISBN,
		Description: b.Description,
		Genre:       b.Genre,
		Price:       b.Price,
		Stock:       b.Stock,
	}
}

type bookUpdateRequest struct {
	Title       *string          `json:"title,omitempty" validate:"omitempty,max=300"`
	Author      *string          `json:"author,omitempty" validate:"omitempty,max=200"`
	ISBN        *string          `json:"isbn,omitempty" validate:"omitempty,max=20"`
	Description *string          `json:"description,omitempty" validate:"omitempty,max=8000"`
	Genre       *string          `json:"genre,omitempty" validate:"omitempty,max=80"`
	Price       *decimal.Decimal `json:"price,omitempty"`
	Stock       *int             `json:"stock,omitempty" validate:"omitempty,gte=0"`
}

// BookList pages through the catalog with live pricing.
func BookList(svc books.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			unavailable(w, r, logg, "book")
			return
		}
		page, err := parsePage(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		storeID, err := validators.ParseQueryUUID(r, "store_id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.List(r.Context(), books.ListInput{
			StoreID: storeID,
			Genre:   validators.QueryString(r, "genre", 80),
			Author:  validators.QueryString(r, "author", 200),
			Search:  validators.QueryString(r, "q", 200),
			Limit:   page.Limit,
			Cursor:  page.Cursor,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}

func BookGet(svc books.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			unavailable(w, r, logg, "book")
			return
		}
		id, err := validators.ParseUUIDParam(r, "bookId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		book, err := svc.Get(r.Context(), id)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, book)
	}
}

// BookListAll returns the whole catalog priced at request time, unpaginated.
func BookListAll(svc books.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			unavailable(w, r, logg, "book")
			return
		}
		rows, err := svc.ListWithPricing(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, rows)
	}
}

// BookPrice resolves the price a buyer would pay right now.
func BookPrice(svc books.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			unavailable(w, r, logg, "book")
			return
		}
		id, err := validators.ParseUUIDParam(r, "bookId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		price, err := svc.ResolvePriceForItem(r.Context(), id)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, price)
	}
}

// BookCreate accepts JSON, or multipart with an optional cover file.
func BookCreate(svc books.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			unavailable(w, r, logg, "book")
			return
		}
		actor, ok := requireActor(w, r, logg)
		if !ok {
			return
		}

		var input books.CreateInput
		if isMultipart(r) {
			file, header, err := formFile(r, "cover")
			if err != nil {
				responses.WriteError(r.Context(), logg, w, err)
				return
			}
			if file != nil {
				defer file.Close()
			}
			body, err := bookCreateFromForm(r)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, err)
				return
			}
			input = body.toInput()
			if file != nil {
				input.Cover = &books.CoverUpload{
					Filename:    header.Filename,
					ContentType: header.Header.Get("Content-Type"),
					Body:        file,
				}
			}
		} else {
			var body bookCreateRequest
			if err := validators.DecodeJSONBody(r, &body); err != nil {
				responses.WriteError(r.Context(), logg, w, err)
				return
			}
			input = body.toInput()
		}

		book, err := svc.Create(r.Context(), actor, input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, book)
	}
}

func bookCreateFromForm(r *http.Request) (bookCreateRequest, error) {
	var body bookCreateRequest
	if v := formValue(r, "store_id"); v != nil && *v != "" {
		id, err := uuid.Parse(*v)
		if err != nil {
			return body, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid store_id")
		}
		body.StoreID = &id
	}
	for field, dest := range map[string]*string{
		"title":  &body.Title,
		"author": &body.Author,
		"isbn":   &body.ISBN,
		"genre":  &body.Genre,
	} {
		if v := formValue(r, field); v != nil {
			*dest = *v
		}
	}
	body.Description = formValue(r, "description")
	if v := formValue(r, "price"); v != nil {
		price, err := decimal.NewFromString(*v)
		if err != nil {
			return body, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid price")
		}
		body.Price = price
	}
	if v := formValue(r, "stock"); v != nil {
		stock, err := strconv.Atoi(*v)
		if err != nil {
			return body, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid stock")
		}
		body.Stock = stock
	}
	if err := validators.ValidateStruct(&body); err != nil {
		return body, err
	}
	return body, nil
}

func BookUpdate(svc books.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			unavailable(w, r, logg, "book")
			return
		}
		actor, ok := requireActor(w, r, logg)
		if !ok {
			return
		}
		id, err := validators.ParseUUIDParam(r, "bookId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var body bookUpdateRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		book, err := svc.Update(r.Context(), actor, id, books.UpdateInput{
			Title:       body.Title,
			Author:      body.Author,
			ISBN:        body.ISBN,
			Description: body.Description,
			Genre:       body.Genre,
			Price:       body.Price,
			Stock:       body.Stock,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, book)
	}
}

func BookDelete(svc books.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			unavailable(w, r, logg, "book")
			return
		}
		actor, ok := requireActor(w, r, logg)
		if !ok {
			return
		}
		id, err := validators.ParseUUIDParam(r, "bookId")
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
