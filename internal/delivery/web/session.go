package web

import (
	"errors"
	"log"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"blog-service/internal/application/common"
	"blog-service/internal/application/services"
)

const (
	sessionCookie     = "sessionid"
	sessionContextKey = "session"
	loginURL          = "/accounts/login/"
)

// sessionMiddleware attaches the authenticated user, if any, to the context.
// An invalid or revoked cookie is cleared and the request continues
// anonymously.
func (h *Handler) sessionMiddleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		cookie, err := c.Cookie(sessionCookie)
		if err != nil || cookie.Value == "" {
			return next(c)
		}

		session, err := h.users.Authenticate(c.Request().Context(), cookie.Value)
		switch {
		case err == nil:
			c.Set(sessionContextKey, session)
		case errors.Is(err, services.ErrUnauthenticated):
			h.clearSessionCookie(c)
		default:
			log.Printf("Session lookup failed: %v", err)
		}
		return next(c)
	}
}

// loginRequired sends anonymous visitors to the login page, remembering
// where they were going.
func loginRequired(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		if currentUser(c) == nil {
			return redirectToLogin(c)
		}
		return next(c)
	}
}

func currentSession(c echo.Context) *common.SessionResult {
	session, _ := c.Get(sessionContextKey).(*common.SessionResult)
	return session
}

func currentUser(c echo.Context) *common.UserResult {
	if session := currentSession(c); session != nil {
		return session.User
	}
	return nil
}

func currentUserID(c echo.Context) uint {
	if user := currentUser(c); user != nil {
		return user.Id
	}
	return 0
}

func redirectToLogin(c echo.Context) error {
	next := c.Request().URL.RequestURI()
	return c.Redirect(http.StatusFound, loginURL+"?next="+url.QueryEscape(next))
}

// safeRedirect returns target when it is a local path, otherwise fallback.
func safeRedirect(target, fallback string) string {
	if target == "" || !strings.HasPrefix(target, "/") || strings.HasPrefix(target, "//") || strings.HasPrefix(target, "/\\") {
		return fallback
	}
	return target
}

func (h *Handler) setSessionCookie(c echo.Context, token string, maxAge int) {
	c.SetCookie(&http.Cookie{
		Name:     sessionCookie,
		Value:    token,
		Path:     "/",
		MaxAge:   maxAge,
		Expires:  time.Now().Add(time.Duration(maxAge) * time.Second),
		HttpOnly: true,
		Secure:   h.cfg.SecureCookies,
		SameSite: http.SameSiteLaxMode,
	})
}

func (h *Handler) clearSessionCookie(c echo.Context) {
	c.SetCookie(&http.Cookie{
		Name:     sessionCookie,
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.cfg.SecureCookies,
		SameSite: http.SameSiteLaxMode,
	})
}
