package controllers

import (
	"mime/multipart"
	"net/http"
	"strings"

	"github.com/librisvault/librisvault-backend/api/middleware"
	"github.com/librisvault/librisvault-backend/api/responses"
	"github.com/librisvault/librisvault-backend/api/validators"
	pkgAuth "github.com/librisvault/librisvault-backend/pkg/auth"
	pkgerrors "github.com/librisvault/librisvault-backend/pkg/errors"
	"github.com/librisvault/librisvault-backend/pkg/logger"
)

const (
	maxUploadBytes = 5 << 20
	defaultPage    = 20
	maxPage        = 100
)

func unavailable(w http.ResponseWriter, r *http.Request, logg *logger.Logger, name string) {
	responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, name+" service unavailable"))
}

func requireActor(w http.ResponseWriter, r *http.Request, logg *logger.Logger) (pkgAuth.Actor, bool) {
	actor, ok := middleware.ActorFromContext(r.Context())
	if !ok {
		responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "user context missing"))
		return pkgAuth.Actor{}, false
	}
	return actor, true
}

type pageParams struct {
	Limit  int
	Cursor string
}

func parsePage(r *http.Request) (pageParams, error) {
	limit, err := validators.ParseQueryInt(r, "limit", defaultPage, 1, maxPage)
	if err != nil {
		return pageParams{}, err
	}
	return pageParams{Limit: limit, Cursor: validators.QueryString(r, "cursor", 512)}, nil
}

func isMultipart(r *http.Request) bool {
	return strings.HasPrefix(strings.ToLower(r.Header.Get("Content-Type")), "multipart/form-data")
}

// formFile returns the named upload if present. The caller closes the file.
func formFile(r *http.Request, field string) (multipart.File, *multipart.FileHeader, error) {
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		return nil, nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid multipart form")
	}
	file, header, err := r.FormFile(field)
	if err == http.ErrMissingFile {
		return nil, nil, nil
	}
	if err != nil {
		return nil, nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid "+field+" upload")
	}
	if header.Size > maxUploadBytes {
		_ = file.Close()
		return nil, nil, pkgerrors.New(pkgerrors.CodeValidation, field+" exceeds 5MB")
	}
	return file, header, nil
}

func formValue(r *http.Request, key string) *string {
	if r.MultipartForm == nil {
		return nil
	}
	values, ok := r.MultipartForm.Value[key]
	if !ok || len(values) == 0 {
		return nil
	}
	v := strings.TrimSpace(values[0])
	return &v
}
