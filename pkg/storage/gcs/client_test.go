package gcs

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/librisvault/librisvault-backend/pkg/config"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return newClient(srv.Client(), srv.URL, config.GCSConfig{
		BucketName:    "libris-covers",
		PublicBaseURL: "https://cdn.example.com/",
	}, nil)
}

func TestUploadSendsMediaUpload(t *testing.T) {
	var gotMethod, gotPath, gotName, gotType, gotBody string
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotMethod = r.Method
		gotPath = r.URL.Path
		gotName = r.URL.Query().Get("name")
		gotType = r.Header.Get("Content-Type")
		b, _ := io.ReadAll(r.Body)
		gotBody = string(b)
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"name":"covers/a.png"}`))
	})

	err := client.Upload(context.Background(), "covers/a.png", "image/png", strings.NewReader("png-bytes"))

	require.NoError(t, err)
	require.Equal(t, http.MethodPost, gotMethod)
	require.Equal(t, "/upload/storage/v1/b/libris-covers/o", gotPath)
	require.Equal(t, "covers/a.png", gotName)
	require.Equal(t, "image/png", gotType)
	require.Equal(t, "png-bytes", gotBody)
}

func TestUploadSurfacesServerErrors(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "quota exceeded", http.StatusTooManyRequests)
	})

	err := client.Upload(context.Background(), "covers/a.png", "", strings.NewReader("x"))

	require.Error(t, err)
	require.Contains(t, err.Error(), "quota exceeded")
	require.Error(t, client.Upload(context.Background(), " ", "", strings.NewReader("x")))
}

func TestDeleteMapsNotFound(t *testing.T) {
	var deleted, methods []string
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		methods = append(methods, r.Method)
		deleted = append(deleted, r.URL.EscapedPath())
		if strings.Contains(r.URL.EscapedPath(), "missing") {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	})

	require.NoError(t, client.Delete(context.Background(), "covers/a.png"))
	require.ErrorIs(t, client.Delete(context.Background(), "covers/missing.png"), ErrObjectNotFound)
	require.Equal(t, "/storage/v1/b/libris-covers/o/covers%2Fa.png", deleted[0])
	require.Equal(t, []string{http.MethodDelete, http.MethodDelete}, methods)
}

func TestPingAndPublicURL(t *testing.T) {
	var maxResults string
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		maxResults = r.URL.Query().Get("maxResults")
		w.WriteHeader(http.StatusOK)
	})

	require.NoError(t, client.Ping(context.Background()))
	require.Equal(t, "1", maxResults)
	require.Equal(t, "https://cdn.example.com/libris-covers/covers/my%20book.png", client.PublicURL("covers/my book.png"))
}
