package api

import (
	"context"
	"database/sql"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"portrait-pipeline/internal/api/handler"
	"portrait-pipeline/internal/model"
	"portrait-pipeline/internal/pipeline"
	"portrait-pipeline/internal/store"
	"portrait-pipeline/pkg/router"
)

type stubPresigner struct{}

func (stubPresigner) PresignUpload(_ context.Context, key, _ string, _ time.Duration) (string, error) {
	return "https://gallery.s3.test/" + key, nil
}

func (stubPresigner) PresignDownload(_ context.Context, key string, _ time.Duration) (string, error) {
	return "https://gallery.s3.test/" + key, nil
}

func newGatewayServer(t *testing.T) (http.Handler, string) {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "api.db")
	s, err := store.OpenSQLite(dbPath)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	require.NoError(t, s.PutBaseResource(context.Background(), &model.BaseResource{
		ResourceID: "r1", Theme: "Edo", Gender: "female", Skin: "light", BaseImageKey: "base/edo.jpeg", Story: "story",
	}))

	log := zap.NewNop()
	opts := pipeline.Options{Bucket: "gallery"}
	h := handler.NewGatewayHandler(
		pipeline.NewRequestGateway(s, s, stubPresigner{}, opts, log),
		pipeline.NewResultGateway(s, stubPresigner{}, opts),
		pipeline.NewStatusReader(s),
		log)

	r := router.New(log)
	RegisterGatewayRoutes(r, h, []string{"*"})
	return r.Handler(), dbPath
}

func do(h http.Handler, method, path, body string, headers map[string]string) *httptest.ResponseRecorder {
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestGatewayRoutes(t *testing.T) {
	h, _ := newGatewayServer(t)
	origin := map[string]string{"Origin": "https://gallery.example.com"}

	rec := do(h, http.MethodPost, "/apis/images/upload", `{"userId":"user1","theme":"Edo","gender":"female","skin":"light"}`, origin)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
	assert.Contains(t, rec.Body.String(), `"uploadUrl":"https://gallery.s3.test/face-images/`)

	rec = do(h, http.MethodGet, "/apis/images/user1", "", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = do(h, http.MethodGet, "/apis/images/", "", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(h, http.MethodGet, "/api/v1/requests/unknown", "", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = do(h, http.MethodGet, "/healthz", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestGatewayMissingFieldCreatesNothing(t *testing.T) {
	h, dbPath := newGatewayServer(t)

	rec := do(h, http.MethodPost, "/apis/images/upload", `{"userId":"user1","theme":"Edo","gender":"female"}`, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(h, http.MethodPost, "/apis/images/upload", `{"userId":"user1","theme":"Edo","gender":"male","skin":"light"}`, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	db, err := sql.Open("sqlite3", dbPath)
	require.NoError(t, err)
	defer db.Close()

	var n int
	require.NoError(t, db.QueryRow(`SELECT COUNT(*) FROM process_records`).Scan(&n))
	assert.Zero(t, n)
}

func TestGatewayPreflightAndMethods(t *testing.T) {
	h, _ := newGatewayServer(t)

	rec := do(h, http.MethodOptions, "/apis/images/upload", "", map[string]string{
		"Origin":                        "https://gallery.example.com",
		"Access-Control-Request-Method": "POST",
	})
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
	assert.Empty(t, rec.Body.String())

	rec = do(h, http.MethodOptions, "/apis/images/user1", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, rec.Body.String())

	rec = do(h, http.MethodPut, "/apis/images/upload", "{}", nil)
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)

	rec = do(h, http.MethodDelete, "/apis/images/user1", "", nil)
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)

	// GET on the submit path is not a fetch for a user called "upload".
	rec = do(h, http.MethodGet, "/apis/images/upload", "", nil)
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestEventRoutes(t *testing.T) {
	var got []model.ObjectCreated
	d := pipeline.HandlerFunc(func(_ context.Context, ev model.ObjectCreated) error {
		got = append(got, ev)
		return nil
	})

	r := router.New(zap.NewNop())
	RegisterEventRoutes(r, handler.NewEventHandler(d, zap.NewNop()))

	rec := do(r.Handler(), http.MethodPost, "/api/v1/events",
		`{"Records":[{"s3":{"bucket":{"name":"gallery"},"object":{"key":"result-images/a+b.jpeg"}}}]}`, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []model.ObjectCreated{{Bucket: "gallery", Key: "result-images/a b.jpeg"}}, got)

	rec = do(r.Handler(), http.MethodGet, "/api/v1/events", "", nil)
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}
