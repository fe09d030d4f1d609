package auth

import (
	"net/http"

	"todoweb/internal/logger"

	"github.com/gin-gonic/gin"
)

const contextKeySession = "session"

// Session is the per-request view of the authenticated user.
type Session struct {
	ID     string
	UserID string
}

// SessionFromContext returns the session set by LoadSession.
func SessionFromContext(c *gin.Context) (Session, bool) {
	v, ok := c.Get(contextKeySession)
	if !ok {
		return Session{}, false
	}
	s, ok := v.(Session)
	return s, ok
}

// UserIDFromContext returns the current user ID set by LoadSession. "" if not set.
func UserIDFromContext(c *gin.Context) string {
	s, _ := SessionFromContext(c)
	return s.UserID
}

// LoadSession resolves the session cookie, if present, and stores the session
// in context. Requests without a valid session continue unauthenticated.
func LoadSession(m *Manager) gin.HandlerFunc {
	return func(c *gin.Context) {
		s, ok, err := m.load(c)
		if err != nil {
			logger.Errorf(c.Request.Context(), "load session: %v", err)
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "server error"})
			return
		}
		if ok {
			c.Set(contextKeySession, s)
		}
		c.Next()
	}
}

// RequireSession responds with 401 unless LoadSession found a session.
func RequireSession() gin.HandlerFunc {
	return func(c *gin.Context) {
		if _, ok := SessionFromContext(c); !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "login required"})
			return
		}
		c.Next()
	}
}
