package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/icap-edu/icap-portal-gateway/internal/middleware"
	"github.com/icap-edu/icap-portal-gateway/internal/models"
	"github.com/icap-edu/icap-portal-gateway/internal/session"
	appErrors "github.com/icap-edu/icap-portal-gateway/pkg/errors"
	"github.com/icap-edu/icap-portal-gateway/pkg/response"
)

// AuthHandler wires the three portal login entry points and the session
// lifecycle endpoints to the session manager.
type AuthHandler struct {
	manager *session.Manager
}

// NewAuthHandler creates a new handler.
func NewAuthHandler(manager *session.Manager) *AuthHandler {
	return &AuthHandler{manager: manager}
}

// Login godoc
// @Summary Authenticate against a portal
// @Description Forwards credentials to the portal's upstream endpoint and establishes the gateway session
// @Tags Authentication
// @Accept json
// @Produce json
// @Param payload body models.LoginRequest true "Credentials"
// @Success 200 {object} response.Envelope
// @Failure 401 {object} response.Envelope
// @Router /auth/login [post]
func (h *AuthHandler) Login(portal models.Portal) gin.HandlerFunc {
	return func(c *gin.Context) {
		sess := sessionFromContext(c)
		if sess == nil {
			response.Error(c, appErrors.ErrInternal)
			return
		}

		var req models.LoginRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			response.Error(c, appErrors.Clone(appErrors.ErrValidation, "cuerpo de la petición inválido"))
			return
		}

		result := h.manager.Login(c.Request.Context(), sess, portal, req)
		if !result.Success {
			c.JSON(http.StatusUnauthorized, response.Envelope{Success: false, Message: result.Message})
			return
		}

		response.JSON(c, http.StatusOK, gin.H{
			"user":     result.User,
			"redirect": models.DashboardRoute(result.User.Role),
		}, nil)
	}
}

// Logout godoc
// @Summary End the session
// @Description Revokes the upstream token best-effort, purges the session record and cache, expires the cookie and sends the browser back to the login entry point
// @Tags Authentication
// @Produce json
// @Success 302 {string} string "redirect to login"
// @Router /auth/logout [post]
func (h *AuthHandler) Logout(c *gin.Context) {
	sess := sessionFromContext(c)
	if sess == nil {
		c.Redirect(http.StatusFound, "/login")
		return
	}

	target := "/login"
	if sess.User != nil {
		target = models.PortalForRole(sess.User.Role).LoginRoute()
	}

	h.manager.Logout(c.Request.Context(), sess)
	middleware.ExpireSessionCookie(c, h.manager)
	c.Redirect(http.StatusFound, target)
}

// Refresh godoc
// @Summary Refresh the session token
// @Tags Authentication
// @Produce json
// @Success 200 {object} response.Envelope
// @Failure 401 {object} response.Envelope
// @Router /auth/refresh [post]
func (h *AuthHandler) Refresh(c *gin.Context) {
	sess := sessionFromContext(c)
	if sess == nil || !sess.IsAuthenticated() {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	h.manager.RefreshToken(c.Request.Context(), sess)
	if !sess.IsAuthenticated() {
		middleware.ExpireSessionCookie(c, h.manager)
		response.Error(c, appErrors.Clone(appErrors.ErrUnauthorized, "la sesión expiró"))
		return
	}

	response.JSON(c, http.StatusOK, gin.H{"refreshed": true}, nil)
}

// Me godoc
// @Summary Current session user
// @Tags Authentication
// @Produce json
// @Success 200 {object} response.Envelope
// @Failure 401 {object} response.Envelope
// @Router /auth/me [get]
func (h *AuthHandler) Me(c *gin.Context) {
	sess := sessionFromContext(c)
	if sess == nil || !sess.IsAuthenticated() {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	response.JSON(c, http.StatusOK, gin.H{"user": sess.User}, nil)
}

// UpdateProfile godoc
// @Summary Update the current user's profile
// @Tags Authentication
// @Accept json
// @Produce json
// @Param payload body models.ProfileUpdateRequest true "Profile fields"
// @Success 200 {object} response.Envelope
// @Failure 422 {object} response.Envelope
// @Router /auth/profile [put]
func (h *AuthHandler) UpdateProfile(c *gin.Context) {
	sess := sessionFromContext(c)
	if sess == nil || !sess.IsAuthenticated() {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	var req models.ProfileUpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "cuerpo de la petición inválido"))
		return
	}

	result := h.manager.UpdateProfile(c.Request.Context(), sess, req)
	if !result.Success {
		c.JSON(http.StatusUnprocessableEntity, response.Envelope{Success: false, Message: result.Message})
		return
	}

	response.JSON(c, http.StatusOK, gin.H{"user": result.User}, nil)
}

// ClearError godoc
// @Summary Clear the recorded session error
// @Tags Authentication
// @Produce json
// @Success 204 {object} response.Envelope
// @Router /auth/error [delete]
func (h *AuthHandler) ClearError(c *gin.Context) {
	sess := sessionFromContext(c)
	if sess != nil {
		h.manager.ClearError(c.Request.Context(), sess)
	}
	response.NoContent(c)
}
