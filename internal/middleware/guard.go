package middleware

import (
	"net/http"
	"net/url"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/icap-edu/icap-portal-gateway/internal/models"
	"github.com/icap-edu/icap-portal-gateway/internal/session"
	"github.com/icap-edu/icap-portal-gateway/pkg/response"
)

// Protected gates a portal root: it requires an established session and,
// when a role list is given, membership in it. An unauthenticated request is
// sent to the generic login route carrying the original target; a wrong role
// gets an in-place denial payload, never a redirect.
func Protected(manager *session.Manager, requiredRoles ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		sess := resolveSettled(c, manager)

		if !sess.IsAuthenticated() {
			redirectToLogin(c, "/login")
			return
		}

		if len(requiredRoles) > 0 && !sess.User.HasAnyRole(requiredRoles...) {
			c.JSON(http.StatusForbidden, response.Envelope{
				Success: false,
				Message: "no tienes permisos para acceder a esta sección",
				Data: gin.H{
					"back": models.DashboardRoute(sess.User.Role),
				},
			})
			c.Abort()
			return
		}

		c.Next()
	}
}

// RoleGate gates individual routes inside a portal. A wrong-role user who is
// otherwise authenticated made a navigation mistake, not a security breach,
// so they are steered silently to their own dashboard instead of shown an
// error. An empty allow-list means no role restriction was requested.
func RoleGate(manager *session.Manager, allowedRoles ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		sess := resolveSettled(c, manager)

		if !sess.IsAuthenticated() {
			redirectToLogin(c, loginRouteFor(c.Request.URL.Path, allowedRoles))
			return
		}

		if len(allowedRoles) == 0 {
			c.Next()
			return
		}

		if !sess.User.HasAnyRole(allowedRoles...) {
			c.Redirect(http.StatusFound, models.DashboardRoute(sess.User.Role))
			c.Abort()
			return
		}

		c.Next()
	}
}

// resolveSettled returns the request's session, verified. Guards never act
// on an unsettled session: when the Session middleware is absent the guard
// resolves and verifies on the spot before judging anything.
func resolveSettled(c *gin.Context, manager *session.Manager) *models.Session {
	sess := SessionFromContext(c)
	if sess == nil {
		sid := ""
		if cookie, err := c.Cookie(manager.CookieName()); err == nil {
			sid = cookie
		}
		sess = manager.Resolve(c.Request.Context(), sid)
		c.Set(ContextSessionKey, sess)
	}
	if sess.State == models.SessionUnknown {
		manager.Verify(c.Request.Context(), sess)
	}
	return sess
}

func redirectToLogin(c *gin.Context, loginRoute string) {
	target := loginRoute + "?redirect=" + url.QueryEscape(c.Request.URL.RequestURI())
	c.Redirect(http.StatusFound, target)
	c.Abort()
}

// loginRouteFor picks the login entry point for an unauthenticated request:
// the URL's portal prefix wins, then the first allowed role's portal, then
// the generic route.
func loginRouteFor(path string, allowedRoles []string) string {
	switch {
	case strings.HasPrefix(path, "/estudiante"):
		return models.PortalEstudiante.LoginRoute()
	case strings.HasPrefix(path, "/docente"):
		return models.PortalDocente.LoginRoute()
	}
	if len(allowedRoles) > 0 {
		role := models.NormalizeRole(allowedRoles[0])
		return models.PortalForRole(role).LoginRoute()
	}
	return "/login"
}
