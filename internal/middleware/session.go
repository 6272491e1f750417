package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/icap-edu/icap-portal-gateway/internal/models"
	"github.com/icap-edu/icap-portal-gateway/internal/session"
)

// ContextSessionKey is the gin context key storing the resolved session.
const ContextSessionKey = "currentSession"

// Session resolves the browser session from its cookie and settles its
// verification before any guard or handler runs. This ordering is what
// guarantees a guard never judges an unverified session.
func Session(manager *session.Manager) gin.HandlerFunc {
	return func(c *gin.Context) {
		sid := ""
		if cookie, err := c.Cookie(manager.CookieName()); err == nil {
			sid = cookie
		}

		sess := manager.Resolve(c.Request.Context(), sid)
		manager.Verify(c.Request.Context(), sess)

		c.Set(ContextSessionKey, sess)
		c.Request = c.Request.WithContext(session.NewContext(c.Request.Context(), sess))
		writeSessionCookie(c, manager, sess.ID)

		c.Next()
	}
}

// SessionFromContext returns the session placed by the Session middleware.
func SessionFromContext(c *gin.Context) *models.Session {
	value, exists := c.Get(ContextSessionKey)
	if !exists {
		return nil
	}
	sess, ok := value.(*models.Session)
	if !ok {
		return nil
	}
	return sess
}

func writeSessionCookie(c *gin.Context, manager *session.Manager, id string) {
	http.SetCookie(c.Writer, &http.Cookie{
		Name:     manager.CookieName(),
		Value:    id,
		Path:     "/",
		MaxAge:   int(manager.TTL().Seconds()),
		HttpOnly: true,
		Secure:   manager.CookieSecure(),
		SameSite: http.SameSiteLaxMode,
	})
}

// ExpireSessionCookie clears the cookie; used on logout.
func ExpireSessionCookie(c *gin.Context, manager *session.Manager) {
	http.SetCookie(c.Writer, &http.Cookie{
		Name:     manager.CookieName(),
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   manager.CookieSecure(),
		SameSite: http.SameSiteLaxMode,
	})
}
