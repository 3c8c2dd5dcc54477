package web

import (
	"context"
	"log"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"golang.org/x/time/rate"
)

type ServerConfig struct {
	MediaRoot         string
	MaxUploadBytes    int64
	RequestsPerSecond int
	SecureCookies     bool
}

// Server wires the handler into an echo instance.
type Server struct {
	echo *echo.Echo
}

func NewServer(h *Handler, cfg ServerConfig) (*Server, error) {
	renderer, err := NewRenderer()
	if err != nil {
		return nil, err
	}

	e := echo.New()
	e.HideBanner = true
	e.Renderer = renderer
	e.HTTPErrorHandler = errorHandler(e, h)

	e.Pre(middleware.AddTrailingSlashWithConfig(middleware.TrailingSlashConfig{
		RedirectCode: http.StatusMovedPermanently,
		Skipper: func(c echo.Context) bool {
			return strings.HasPrefix(c.Request().URL.Path, "/media/")
		},
	}))
	e.Use(middleware.Recover())
	e.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogMethod:  true,
		LogURI:     true,
		LogStatus:  true,
		LogLatency: true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			log.Printf("%s %s %d %s", v.Method, v.URI, v.Status, v.Latency)
			return nil
		},
	}))
	e.Use(middleware.BodyLimitWithConfig(middleware.BodyLimitConfig{
		Limit: strconv.FormatInt(cfg.MaxUploadBytes, 10) + "B",
	}))
	if cfg.RequestsPerSecond > 0 {
		e.Use(middleware.RateLimiterWithConfig(middleware.RateLimiterConfig{
			Store: middleware.NewRateLimiterMemoryStoreWithConfig(middleware.RateLimiterMemoryStoreConfig{
				Rate:      rate.Limit(cfg.RequestsPerSecond),
				Burst:     cfg.RequestsPerSecond * 2,
				ExpiresIn: 3 * time.Minute,
			}),
		}))
	}
	e.Use(middleware.CSRFWithConfig(middleware.CSRFConfig{
		TokenLookup:    "form:csrfmiddlewaretoken",
		CookieName:     "csrftoken",
		CookiePath:     "/",
		CookieHTTPOnly: true,
		CookieSecure:   cfg.SecureCookies,
		CookieSameSite: http.SameSiteLaxMode,
		Skipper: func(c echo.Context) bool {
			return strings.HasPrefix(c.Request().URL.Path, "/media/")
		},
	}))
	e.Use(h.sessionMiddleware)

	e.Static("/media", cfg.MediaRoot)
	registerRoutes(e, h)

	return &Server{echo: e}, nil
}

var getPost = []string{http.MethodGet, http.MethodPost}

func registerRoutes(e *echo.Echo, h *Handler) {
	e.GET("/", h.Home)

	e.GET("/posts/", h.PostList)
	e.Match(getPost, "/posts/new/", h.PostCreate, loginRequired)
	e.Match(getPost, "/posts/:id/", h.PostDetail)
	e.Match(getPost, "/posts/:id/update/", h.PostUpdate, loginRequired)
	e.Match(getPost, "/posts/:id/delete/", h.PostDelete, loginRequired)
	e.Match(getPost, "/categories/new/", h.CategoryCreate, loginRequired)

	accounts := e.Group("/accounts")
	accounts.Match(getPost, "/register/", h.Register)
	accounts.Match(getPost, "/login/", h.Login)
	accounts.Match(getPost, "/logout/", h.Logout)
	accounts.GET("/profile/:id/", h.Profile, loginRequired)
	accounts.Match(getPost, "/profile/:id/update/", h.ProfileUpdate, loginRequired)
	accounts.Match(getPost, "/password-reset/", h.PasswordReset)
	accounts.GET("/password-reset/done/", h.PasswordResetDone)
	accounts.Match(getPost, "/password-reset-confirm/:uidb64/:token/", h.PasswordResetConfirm)
	accounts.GET("/password-reset-complete/", h.PasswordResetComplete)
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.echo.ServeHTTP(w, r)
}

func (s *Server) Start(addr string) error {
	return s.echo.Start(addr)
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.echo.Shutdown(ctx)
}
