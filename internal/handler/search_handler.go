package handler

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/icap-edu/icap-portal-gateway/internal/search"
	appErrors "github.com/icap-edu/icap-portal-gateway/pkg/errors"
	"github.com/icap-edu/icap-portal-gateway/pkg/response"
)

// SearchHandler exposes the cross-module global search.
type SearchHandler struct {
	service *search.Service
}

// NewSearchHandler creates a new handler.
func NewSearchHandler(svc *search.Service) *SearchHandler {
	return &SearchHandler{service: svc}
}

// Search godoc
// @Summary Search across modules
// @Description Fans out the query to every module the caller may access and returns the joined results
// @Tags Search
// @Produce json
// @Param q query string true "Search term"
// @Success 200 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /admin/search [get]
func (h *SearchHandler) Search(c *gin.Context) {
	sess := sessionFromContext(c)
	if sess == nil || !sess.IsAuthenticated() {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	query := strings.TrimSpace(c.Query("q"))
	if query == "" {
		response.JSON(c, http.StatusOK, gin.H{"results": []interface{}{}}, nil)
		return
	}

	results, err := h.service.Search(c.Request.Context(), sess.ID, sess.Token, sess.User.Role, query)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, gin.H{"query": query, "results": results}, nil)
}
