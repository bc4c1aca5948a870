package auth

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"visionchat/internal/session"
)

const (
	sessionContextKey    = "visionchat_session"
	newSessionContextKey = "visionchat_session_new"
)

// Middleware resolves the session context of the :app route. The id comes
// from the app cookie or the X-Session-ID header; missing, expired or
// foreign ids start a new session. New sessions are not stored: they reach
// the store when their first turn is committed.
func (s *Service) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		app := c.Param(sessionParamName)
		if s.known != nil && !s.known(app) {
			c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": "unknown app"})
			return
		}
		ctx := c.Request.Context()

		var sc *session.Context
		if id := s.extractSessionID(c, app); id != "" {
			loaded, err := s.store.Load(ctx, id)
			switch {
			case err == nil && loaded.App == app:
				sc = loaded
			case err != nil && !errors.Is(err, session.ErrNotFound):
				c.AbortWithStatusJSON(http.StatusServiceUnavailable, gin.H{"error": "session store unavailable"})
				return
			}
		}
		if sc == nil {
			sc = session.New(app)
			c.Set(newSessionContextKey, true)
		}
		s.setSessionCookie(c, app, sc.ID)
		c.Header(sessionHeader, sc.ID)
		c.Set(sessionContextKey, sc)
		c.Next()
	}
}

// IsNewSession reports whether Middleware started the session on this
// request rather than resuming a stored one.
func IsNewSession(c *gin.Context) bool {
	return c.GetBool(newSessionContextKey)
}

// SessionFromContext retrieves the session context stored by Middleware.
func SessionFromContext(c *gin.Context) (*session.Context, bool) {
	val, ok := c.Get(sessionContextKey)
	if !ok {
		return nil, false
	}
	sc, ok := val.(*session.Context)
	return sc, ok
}

func (s *Service) extractSessionID(c *gin.Context, app string) string {
	if id, err := c.Cookie(CookieName(app)); err == nil && id != "" {
		return id
	}
	return c.GetHeader(sessionHeader)
}
