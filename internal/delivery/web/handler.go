package web

import (
	"errors"
	"log"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"blog-service/internal/application/common"
	"blog-service/internal/application/interfaces"
	"blog-service/internal/application/services"
	"blog-service/internal/domain/entities"
)

type HandlerConfig struct {
	SecureCookies bool
}

// Handler serves every page of the site.
type Handler struct {
	users      interfaces.UserService
	posts      interfaces.PostService
	categories interfaces.CategoryService
	cfg        HandlerConfig
}

func NewHandler(
	users interfaces.UserService,
	posts interfaces.PostService,
	categories interfaces.CategoryService,
	cfg HandlerConfig,
) *Handler {
	return &Handler{users: users, posts: posts, categories: categories, cfg: cfg}
}

// page builds template data with the values every page needs.
func (h *Handler) page(c echo.Context, title string, data map[string]any) map[string]any {
	if data == nil {
		data = map[string]any{}
	}
	data["Title"] = title
	data["User"] = currentUser(c)
	data["Flashes"] = popFlashes(c)
	data["CSRF"], _ = c.Get(middleware.DefaultCSRFConfig.ContextKey).(string)
	return data
}

func (h *Handler) render(c echo.Context, status int, name, title string, data map[string]any) error {
	return c.Render(status, name, h.page(c, title, data))
}

// serviceError maps application errors onto HTTP errors.
func serviceError(err error) error {
	switch {
	case errors.Is(err, services.ErrNotFound):
		return echo.ErrNotFound
	case errors.Is(err, services.ErrForbidden):
		return echo.ErrForbidden
	}
	return err
}

func validationErrors(err error) (entities.FieldErrors, bool) {
	var verr *services.ValidationError
	if errors.As(err, &verr) {
		return verr.Fields, true
	}
	return nil, false
}

func pathID(c echo.Context, name string) (uint, error) {
	id, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil || id == 0 {
		return 0, echo.ErrNotFound
	}
	return uint(id), nil
}

// formUpload returns the file posted under field, or nil when none was
// chosen. The returned closer must be called once the upload is consumed.
func formUpload(c echo.Context, field string) (*common.Upload, func(), error) {
	header, err := c.FormFile(field)
	if errors.Is(err, http.ErrMissingFile) || errors.Is(err, http.ErrNotMultipart) || (err == nil && header.Filename == "") {
		return nil, func() {}, nil
	}
	if err != nil {
		return nil, func() {}, err
	}

	file, err := header.Open()
	if err != nil {
		return nil, func() {}, err
	}
	return &common.Upload{
		Filename:    header.Filename,
		ContentType: header.Header.Get("Content-Type"),
		Content:     file,
	}, closeFile(file), nil
}

func closeFile(f multipart.File) func() {
	return func() {
		if err := f.Close(); err != nil {
			log.Printf("Failed to close upload: %v", err)
		}
	}
}

func checkbox(c echo.Context, field string) bool {
	switch strings.ToLower(c.FormValue(field)) {
	case "on", "true", "1", "yes":
		return true
	}
	return false
}

// errorHandler renders error pages through the site layout and falls back
// to echo's handler when rendering fails.
func errorHandler(e *echo.Echo, h *Handler) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}

		code := http.StatusInternalServerError
		message := http.StatusText(code)
		var he *echo.HTTPError
		if errors.As(err, &he) {
			code = he.Code
			if m, ok := he.Message.(string); ok {
				message = m
			}
		}
		if code >= http.StatusInternalServerError {
			log.Printf("%s %s: %v", c.Request().Method, c.Request().URL.Path, err)
			message = http.StatusText(code)
		}

		if c.Request().Method == http.MethodHead {
			_ = c.NoContent(code)
			return
		}
		if rerr := h.render(c, code, "error", http.StatusText(code), map[string]any{
			"Code":    code,
			"Message": message,
		}); rerr != nil {
			log.Printf("Failed to render error page: %v", rerr)
			e.DefaultHTTPErrorHandler(err, c)
		}
	}
}
