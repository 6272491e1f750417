package requestid

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func serve(t *testing.T, inbound string) (*httptest.ResponseRecorder, string) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	var seen string
	r := gin.New()
	r.Use(Middleware())
	r.GET("/", func(c *gin.Context) {
		seen = Value(c)
		c.Status(http.StatusOK)
	})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if inbound != "" {
		req.Header.Set("X-Request-ID", inbound)
	}
	r.ServeHTTP(w, req)
	return w, seen
}

func TestEchoesCallerSuppliedID(t *testing.T) {
	w, seen := serve(t, "req-browser-42")

	assert.Equal(t, "req-browser-42", seen)
	assert.Equal(t, "req-browser-42", w.Header().Get("X-Request-ID"))
}

func TestGeneratesIDWhenMissing(t *testing.T) {
	w, seen := serve(t, "")

	require.NotEmpty(t, seen)
	assert.Equal(t, seen, w.Header().Get("X-Request-ID"))
}

func TestReplacesOversizedInboundID(t *testing.T) {
	oversized := strings.Repeat("x", 200)
	w, seen := serve(t, oversized)

	require.NotEmpty(t, seen)
	assert.NotEqual(t, oversized, seen)
	assert.NotEqual(t, oversized, w.Header().Get("X-Request-ID"))
}
