package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/icap-edu/icap-portal-gateway/internal/models"
	"github.com/icap-edu/icap-portal-gateway/internal/resource"
	"github.com/icap-edu/icap-portal-gateway/internal/search"
	appErrors "github.com/icap-edu/icap-portal-gateway/pkg/errors"
	"github.com/icap-edu/icap-portal-gateway/pkg/response"
)

// DashboardHandler serves each portal's landing payload: the signed-in user
// plus the navigation the role may reach.
type DashboardHandler struct {
	registry *resource.Registry
}

// NewDashboardHandler creates a new handler.
func NewDashboardHandler(registry *resource.Registry) *DashboardHandler {
	return &DashboardHandler{registry: registry}
}

// Dashboard godoc
// @Summary Portal landing payload
// @Tags Portals
// @Produce json
// @Success 200 {object} response.Envelope
// @Failure 401 {object} response.Envelope
// @Router /admin/dashboard [get]
func (h *DashboardHandler) Dashboard(portal models.Portal) gin.HandlerFunc {
	return func(c *gin.Context) {
		sess := sessionFromContext(c)
		if sess == nil || !sess.IsAuthenticated() {
			response.Error(c, appErrors.ErrUnauthorized)
			return
		}

		payload := gin.H{
			"portal":         string(portal),
			"user":           sess.User,
			"search_modules": search.Modules(sess.User.Role),
		}
		if portal == models.PortalAdmin {
			payload["resources"] = h.registry.Names()
		}

		response.JSON(c, http.StatusOK, payload, nil)
	}
}
