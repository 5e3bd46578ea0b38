package router

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

func text(body string) HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte(body))
	}
}

func serve(r *Router, method, path string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	r.Handler().ServeHTTP(rec, httptest.NewRequest(method, path, nil))
	return rec
}

func TestExactAndWildcardRoutes(t *testing.T) {
	r := New(zap.NewNop())
	r.POST("/apis/images/upload", text("upload"))
	r.GET("/apis/images/*", text("fetch"))
	r.GET("/api/v1/requests/*/debug", text("debug"))
	r.GET("/api/v1/requests/*", text("status"))
	r.GET("/swagger/*", text("swagger"))

	cases := []struct {
		method, path, body string
		status             int
	}{
		{http.MethodPost, "/apis/images/upload", "upload", http.StatusOK},
		{http.MethodGet, "/apis/images/user1", "fetch", http.StatusOK},
		{http.MethodGet, "/api/v1/requests/abc/debug", "debug", http.StatusOK},
		{http.MethodGet, "/api/v1/requests/abc", "status", http.StatusOK},
		{http.MethodGet, "/swagger/index.html", "swagger", http.StatusOK},
		{http.MethodGet, "/swagger/a/b/c", "swagger", http.StatusOK},
		{http.MethodGet, "/apis/images/", "fetch", http.StatusOK},
		{http.MethodGet, "/apis/other/x", "", http.StatusNotFound},
		{http.MethodGet, "/nowhere", "", http.StatusNotFound},
	}
	for _, tc := range cases {
		rec := serve(r, tc.method, tc.path)
		assert.Equal(t, tc.status, rec.Code, tc.path)
		if tc.body != "" {
			assert.Equal(t, tc.body, rec.Body.String(), tc.path)
		}
	}
}

func TestMethodNotAllowed(t *testing.T) {
	r := New(zap.NewNop())
	r.POST("/apis/images/upload", text("upload"))
	r.GET("/apis/images/*", text("fetch"))

	assert.Equal(t, http.StatusMethodNotAllowed, serve(r, http.MethodPut, "/apis/images/upload").Code)
	assert.Equal(t, http.StatusMethodNotAllowed, serve(r, http.MethodDelete, "/apis/images/user1").Code)

	rec := serve(r, http.MethodGet, "/apis/images/upload")
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
	assert.NotEqual(t, "fetch", rec.Body.String())
}

func TestPanicBecomes500(t *testing.T) {
	r := New(zap.NewNop())
	r.GET("/boom", func(http.ResponseWriter, *http.Request) { panic("boom") })

	rec := serve(r, http.MethodGet, "/boom")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.JSONEq(t, `{"error":"Internal server error"}`, rec.Body.String())
}

func TestMiddlewareOrder(t *testing.T) {
	r := New(zap.NewNop())
	r.GET("/healthz", text("ok"))

	var order []string
	mark := func(name string) Middleware {
		return func(next http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
				order = append(order, name)
				next.ServeHTTP(w, req)
			})
		}
	}
	r.Use(mark("outer"))
	r.Use(mark("inner"))

	assert.Equal(t, "ok", serve(r, http.MethodGet, "/healthz").Body.String())
	assert.Equal(t, []string{"outer", "inner"}, order)
}

func TestRegisterTracksRoutes(t *testing.T) {
	r := New(zap.NewNop())
	r.GET("/a/*", text("get"))
	r.OPTIONS("/a/*", text("options"))

	assert.Len(t, r.Routes(), 2)
	assert.True(t, r.Paths()["/a/*"])
	assert.Equal(t, []string{"/a/*"}, r.wildcards)
	assert.Equal(t, "options", serve(r, http.MethodOptions, "/a/x").Body.String())
}

func TestMatchWildcardRoute(t *testing.T) {
	assert.True(t, matchWildcardRoute("/a/b/c", "/a/*/c"))
	assert.False(t, matchWildcardRoute("/a//c", "/a/*/c"))
	assert.False(t, matchWildcardRoute("/a/b", "/a/*/c"))
	assert.True(t, matchWildcardRoute("/a", "/a/*"))
	assert.False(t, matchWildcardRoute("/b/c", "/a/*"))
}
