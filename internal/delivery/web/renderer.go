package web

import (
	"embed"
	"fmt"
	"html/template"
	"io"
	"io/fs"
	"net/url"
	"path"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"blog-service/internal/domain/entities"
)

//go:embed templates/*.html
var templateFS embed.FS

const layoutTemplate = "templates/layout.html"

// Renderer executes a page template inside the shared layout. Every page is
// parsed together with the layout so each may define its own "content".
type Renderer struct {
	pages map[string]*template.Template
}

func NewRenderer() (*Renderer, error) {
	files, err := fs.Glob(templateFS, "templates/*.html")
	if err != nil {
		return nil, err
	}

	r := &Renderer{pages: make(map[string]*template.Template)}
	for _, file := range files {
		if file == layoutTemplate {
			continue
		}
		name := strings.TrimSuffix(path.Base(file), ".html")
		t, err := template.New(name).Funcs(templateFuncs).ParseFS(templateFS, layoutTemplate, file)
		if err != nil {
			return nil, fmt.Errorf("parse template %s: %w", file, err)
		}
		r.pages[name] = t
	}
	return r, nil
}

func (r *Renderer) Render(w io.Writer, name string, data interface{}, c echo.Context) error {
	t, ok := r.pages[name]
	if !ok {
		return fmt.Errorf("template %q not found", name)
	}
	return t.ExecuteTemplate(w, "layout", data)
}

var templateFuncs = template.FuncMap{
	"mediaURL": func(rel string) string {
		return "/media/" + strings.TrimPrefix(rel, "/")
	},
	"date": func(t time.Time) string {
		return t.Format("January 2, 2006")
	},
	"datetime": func(t time.Time) string {
		return t.Format("January 2, 2006, 3:04 PM")
	},
	"truncate": func(n int, s string) string {
		runes := []rune(s)
		if len(runes) <= n {
			return s
		}
		return strings.TrimSpace(string(runes[:n])) + "…"
	},
	"fieldErrors": func(fields entities.FieldErrors, name string) []string {
		if fields == nil {
			return nil
		}
		return fields[name]
	},
	"selected": func(values []string, id uint) bool {
		want := strconv.FormatUint(uint64(id), 10)
		for _, v := range values {
			if v == want {
				return true
			}
		}
		return false
	},
	"pageURL": func(category, search string, page int) string {
		q := url.Values{}
		if category != "" {
			q.Set("category", category)
		}
		if search != "" {
			q.Set("search", search)
		}
		q.Set("page", strconv.Itoa(page))
		return "/posts/?" + q.Encode()
	},
	"idString": func(id uint) string {
		return strconv.FormatUint(uint64(id), 10)
	},
}
