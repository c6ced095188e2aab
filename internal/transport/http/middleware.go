package httptransport

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"papla-server-go/internal/domain/session"
	"papla-server-go/internal/domain/session/model"
)

// ContextSessionKey is where the session middleware stores the resolved
// session on the gin context.
const ContextSessionKey = "session"

// SessionMiddleware resolves the bearer token (or X-Session-Token
// header) into a session and aborts unauthenticated requests.
func SessionMiddleware(manager *session.Manager) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := extractToken(c)
		if token == "" {
			RespondError(c, http.StatusUnauthorized, "missing session token", nil)
			c.Abort()
			return
		}

		info, err := manager.Resolve(c.Request.Context(), token)
		if err != nil {
			RespondError(c, http.StatusUnauthorized, "session is invalid or expired; create a new session", nil)
			c.Abort()
			return
		}

		c.Set(ContextSessionKey, info)
		c.Next()
	}
}

// SessionFromContext retrieves the session placed by the middleware.
func SessionFromContext(c *gin.Context) (model.Info, bool) {
	value, ok := c.Get(ContextSessionKey)
	if !ok {
		return model.Info{}, false
	}
	info, ok := value.(model.Info)
	return info, ok
}

func extractToken(c *gin.Context) string {
	auth := c.GetHeader("Authorization")
	if strings.HasPrefix(auth, "Bearer ") {
		return strings.TrimPrefix(auth, "Bearer ")
	}
	if token := c.GetHeader("X-Session-Token"); token != "" {
		return token
	}
	// download links cannot set headers
	return c.Query("token")
}
