package router

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func reply(body string) HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		io.WriteString(w, body)
	}
}

func newTestRouter() *Router {
	log, _ := test.NewNullLogger()
	r := New(log)
	r.GET("/api/v1/jobs", reply("list"))
	r.GET("/api/v1/jobs/*/errors", reply("errors"))
	r.GET("/api/v1/jobs/*", reply("one"))
	return r
}

func TestMatchWildcardRoute(t *testing.T) {
	tests := []struct {
		path, pattern string
		want          bool
	}{
		{"/api/v1/jobs/a", "/api/v1/jobs/*", true},
		{"/api/v1/jobs/a/b", "/api/v1/jobs/*", true},
		{"/api/v1/jobs/", "/api/v1/jobs/*", false},
		{"/api/v1/jobs", "/api/v1/jobs/*", false},
		{"/api/v1/jobs/a/errors", "/api/v1/jobs/*/errors", true},
		{"/api/v1/jobs/a/logs", "/api/v1/jobs/*/errors", false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, matchWildcardRoute(tt.path, tt.pattern), "%s ~ %s", tt.path, tt.pattern)
	}
}

func TestRouterDispatch(t *testing.T) {
	h := newTestRouter().Handler()

	tests := []struct {
		method, path string
		status       int
		body         string
	}{
		{http.MethodGet, "/api/v1/jobs", http.StatusOK, "list"},
		{http.MethodGet, "/api/v1/jobs/x/errors", http.StatusOK, "errors"},
		{http.MethodGet, "/api/v1/jobs/x", http.StatusOK, "one"},
		{http.MethodPost, "/api/v1/jobs", http.StatusMethodNotAllowed, ""},
		{http.MethodPost, "/api/v1/jobs/x", http.StatusMethodNotAllowed, ""},
		{http.MethodGet, "/nope", http.StatusNotFound, ""},
	}
	for _, tt := range tests {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(tt.method, tt.path, nil))
		assert.Equal(t, tt.status, rec.Code, "%s %s", tt.method, tt.path)
		if tt.body != "" {
			assert.Equal(t, tt.body, rec.Body.String())
		}
	}
}

func TestServe(t *testing.T) {
	srv, err := newTestRouter().Serve("127.0.0.1:0")
	require.NoError(t, err)

	resp, err := http.Get("http://" + srv.Addr() + "/api/v1/jobs")
	require.NoError(t, err)
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	assert.Equal(t, "list", string(body))

	require.NoError(t, srv.Shutdown(context.Background()))
}
