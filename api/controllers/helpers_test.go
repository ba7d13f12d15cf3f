package controllers

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/librisvault/librisvault-backend/api/middleware"
	"github.com/librisvault/librisvault-backend/api/responses"
	pkgAuth "github.com/librisvault/librisvault-backend/pkg/auth"
	"github.com/librisvault/librisvault-backend/pkg/enums"
)

func customer() pkgAuth.Actor {
	return pkgAuth.Actor{UserID: uuid.New(), Role: enums.RoleCustomer}
}

func seller(storeID uuid.UUID) pkgAuth.Actor {
	return pkgAuth.Actor{UserID: uuid.New(), StoreID: &storeID, Role: enums.RoleSeller}
}

func admin() pkgAuth.Actor {
	return pkgAuth.Actor{UserID: uuid.New(), Role: enums.RoleAdmin}
}

// serve mounts h on pattern so chi URL params resolve, then performs req.
func serve(t *testing.T, method, pattern string, h http.HandlerFunc, req *http.Request) *httptest.ResponseRecorder {
	t.Helper()
	r := chi.NewRouter()
	r.Method(method, pattern, h)
	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, req)
	return resp
}

func jsonRequest(t *testing.T, method, target string, body any, actor *pkgAuth.Actor) *http.Request {
	t.Helper()
	var reader io.Reader
	if body != nil {
		switch b := body.(type) {
		case string:
			reader = bytes.NewBufferString(b)
		default:
			raw, err := json.Marshal(b)
			require.NoError(t, err)
			reader = bytes.NewReader(raw)
		}
	}
	req := httptest.NewRequest(method, target, reader)
	req.Header.Set("Content-Type", "application/json")
	if actor != nil {
		req = req.WithContext(middleware.WithActor(req.Context(), *actor))
	}
	return req
}

func decodeData(t *testing.T, resp *httptest.ResponseRecorder, dest any) {
	t.Helper()
	envelope := struct {
		Data json.RawMessage `json:"data"`
	}{}
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &envelope))
	require.NoError(t, json.Unmarshal(envelope.Data, dest))
}

func errorCode(t *testing.T, resp *httptest.ResponseRecorder) string {
	t.Helper()
	var envelope responses.ErrorEnvelope
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &envelope))
	return envelope.Error.Code
}

func ptr[T any](v T) *T { return &v }
