package handler

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/icap-edu/icap-portal-gateway/internal/middleware"
	"github.com/icap-edu/icap-portal-gateway/internal/models"
	"github.com/icap-edu/icap-portal-gateway/internal/search"
	"github.com/icap-edu/icap-portal-gateway/internal/session"
	"github.com/icap-edu/icap-portal-gateway/internal/upstream"
	"github.com/icap-edu/icap-portal-gateway/pkg/config"
)

func newSearchFixture(t *testing.T, backend http.HandlerFunc) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	srv := httptest.NewServer(backend)
	t.Cleanup(srv.Close)

	client := upstream.New(config.UpstreamConfig{BaseURL: srv.URL, Timeout: 5 * time.Second}, nil)
	store := session.NewMemoryStore()
	manager := session.NewManager(store, client, nil, nil, nil, config.SessionConfig{
		CookieName: "icap_session",
		TTL:        time.Hour,
	})
	require.NoError(t, store.Save(context.Background(), &models.Session{
		ID: "s-admin", Token: "tok",
		User:  &models.User{ID: "u-1", Role: models.RoleAdmin},
		State: models.SessionAuthenticated,
	}))

	h := NewSearchHandler(search.NewService(client, nil, 5))

	router := gin.New()
	router.GET("/admin/search", middleware.Session(manager), h.Search)
	return router
}

func searchRequest(router *gin.Engine, query string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/admin/search"+query, nil)
	req.AddCookie(&http.Cookie{Name: "icap_session", Value: "s-admin"})
	router.ServeHTTP(w, req)
	return w
}

func TestSearchAggregatesModules(t *testing.T) {
	router := newSearchFixture(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "garcia", r.URL.Query().Get("q"))
		w.Write([]byte(`{"success":true,"data":[{"id":"1","label":"Ana García","route":"/detalle/1"}]}`)) //nolint:errcheck
	})

	w := searchRequest(router, "?q=garcia")
	require.Equal(t, http.StatusOK, w.Code)
	// the admin fan-out covers all seven modules
	body := w.Body.String()
	assert.Contains(t, body, `"module":"estudiantes"`)
	assert.Contains(t, body, `"module":"docentes"`)
	assert.Contains(t, body, `"module":"pagos"`)
	assert.Contains(t, body, "Ana García")
}

func TestSearchPartialFailureIsReported(t *testing.T) {
	router := newSearchFixture(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/grupos/search" {
			w.WriteHeader(http.StatusInternalServerError)
			w.Write([]byte(`{"success":false}`)) //nolint:errcheck
			return
		}
		w.Write([]byte(`{"success":true,"data":[]}`)) //nolint:errcheck
	})

	w := searchRequest(router, "?q=garcia")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"error":"error interno del servidor"`)
}

func TestSearchEmptyQueryShortCircuits(t *testing.T) {
	backendHit := false
	router := newSearchFixture(t, func(w http.ResponseWriter, r *http.Request) {
		backendHit = true
	})

	w := searchRequest(router, "?q=++")
	require.Equal(t, http.StatusOK, w.Code)
	assert.False(t, backendHit)
}

func TestSearchRequiresAuthentication(t *testing.T) {
	router := newSearchFixture(t, func(w http.ResponseWriter, r *http.Request) {})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/admin/search?q=garcia", nil)
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}
