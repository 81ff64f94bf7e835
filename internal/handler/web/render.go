package web

import (
	"embed"
	"fmt"
	"html/template"
	"io"
	"path"

	"BrokerConsole/pkg/util"

	"github.com/labstack/echo/v4"
)

//go:embed templates/*.html
var templateFS embed.FS

const layoutFile = "templates/layout.html"

// Page names accepted by Renderer.
const (
	pageLogin        = "login"
	pageDashboard    = "dashboard"
	pageRegisterUser = "register_user"
	pagePlaceOrder   = "place_order"
	pageTrades       = "trades"
	pageChart        = "chart"
)

var pages = []string{pageLogin, pageDashboard, pageRegisterUser, pagePlaceOrder, pageTrades, pageChart}

var funcs = template.FuncMap{
	"timestamp": util.FormatTimestamp,
	"inc":       func(i int) int { return i + 1 },
}

// Renderer renders console pages. Every page is parsed together with the
// shared layout.
type Renderer struct {
	pages map[string]*template.Template
}

// NewRenderer parses the embedded templates.
func NewRenderer() (*Renderer, error) {
	r := &Renderer{pages: make(map[string]*template.Template, len(pages))}
	for _, name := range pages {
		t, err := template.New(path.Base(layoutFile)).Funcs(funcs).ParseFS(templateFS, layoutFile, "templates/"+name+".html")
		if err != nil {
			return nil, fmt.Errorf("parse template %s: %w", name, err)
		}
		r.pages[name] = t
	}
	return r, nil
}

// Render implements echo.Renderer.
func (r *Renderer) Render(w io.Writer, name string, data interface{}, _ echo.Context) error {
	t, ok := r.pages[name]
	if !ok {
		return fmt.Errorf("unknown page %q", name)
	}
	return t.ExecuteTemplate(w, "layout", data)
}
