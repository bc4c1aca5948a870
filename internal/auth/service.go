package auth

import (
	"crypto/rand"
	"encoding/hex"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"visionchat/internal/session"
)

const (
	cookiePrefix     = "visionchat_"
	sessionHeader    = "X-Session-ID"
	csrfCookieName   = "visionchat_csrf"
	csrfHeaderName   = "X-CSRF-Token"
	csrfFormField    = "csrf_token"
	sessionParamName = "app"
)

// Service binds browser sessions to session contexts through cookies and
// guards cookie-carrying form posts with a double-submit CSRF token.
type Service struct {
	store  session.Store
	ttl    time.Duration
	secure bool
	known  func(app string) bool
}

// NewService builds the cookie layer. known reports whether an app name is
// served; unknown apps get a 404 before any session is created.
func NewService(store session.Store, ttl time.Duration, secure bool, known func(string) bool) *Service {
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &Service{store: store, ttl: ttl, secure: secure, known: known}
}

// CookieName is the session cookie of app. Each app keeps its own session.
func CookieName(app string) string {
	return cookiePrefix + app
}

func SessionHeader() string { return sessionHeader }

func CSRFFormField() string { return csrfFormField }

func CSRFHeader() string { return csrfHeaderName }

// CSRFToken returns the CSRF token of the browser, issuing the cookie when
// it is missing.
func (s *Service) CSRFToken(c *gin.Context) string {
	if token, err := c.Cookie(csrfCookieName); err == nil && token != "" {
		return token
	}
	token := randomToken()
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(csrfCookieName, token, 0, "/", "", s.secure, false)
	return token
}

// ClearSession removes the session cookie of app.
func (s *Service) ClearSession(c *gin.Context, app string) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(CookieName(app), "", -1, "/", "", s.secure, true)
}

func (s *Service) setSessionCookie(c *gin.Context, app, id string) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(CookieName(app), id, int(s.ttl.Seconds()), "/", "", s.secure, true)
}

func randomToken() string {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		panic(err)
	}
	return hex.EncodeToString(buf)
}
