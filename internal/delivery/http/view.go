package http

import (
	"embed"
	"fmt"
	"html/template"
	"io"
	"io/fs"
	"path"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"

	"entrepreneursim/internal/domain"
	"entrepreneursim/internal/session"
	"entrepreneursim/internal/usecase"
	"entrepreneursim/internal/utils"
)

//go:embed templates/*.html
var templateFS embed.FS

const (
	layoutFile   = "templates/layout.html"
	partialsFile = "templates/partials.html"
)

// Page is the data every full page renders with
type Page struct {
	Title   string
	Nav     string
	User    *domain.User
	Flashes []session.Flash
	// Error is shown in place of data that failed to load
	Error string
	// Errors holds per-field form validation messages
	Errors map[string]string
	Data   interface{}
}

// Renderer renders embedded html/template pages and fragments. It satisfies echo.Renderer.
type Renderer struct {
	pages    map[string]*template.Template
	partials *template.Template
}

var templateFuncs = template.FuncMap{
	"money":    usecase.FormatMoney,
	"signed":   func(d decimal.Decimal) string { return usecase.FormatSigned(d, 2) },
	"negative": func(d decimal.Decimal) bool { return d.IsNegative() },
	"abs":      func(d decimal.Decimal) decimal.Decimal { return d.Abs() },
	"date":     utils.FormatDate,
	"datetime": utils.FormatDateTime,
	"ago":      utils.RelativeTime,
	"inc":      func(i int) int { return i + 1 },
	"buyLabel": func(p domain.Product, balance decimal.Decimal) string {
		label, _ := usecase.PurchaseButton(p, balance)
		return label
	},
	"buyDisabled": func(p domain.Product, balance decimal.Decimal) bool {
		_, disabled := usecase.PurchaseButton(p, balance)
		return disabled
	},
}

// NewRenderer parses every page under templates/ against the shared layout
func NewRenderer() (*Renderer, error) {
	partials, err := template.New("partials").Funcs(templateFuncs).ParseFS(templateFS, partialsFile)
	if err != nil {
		return nil, fmt.Errorf("failed to parse partials: %w", err)
	}

	files, err := fs.Glob(templateFS, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("failed to list templates: %w", err)
	}

	r := &Renderer{pages: make(map[string]*template.Template), partials: partials}
	for _, file := range files {
		if file == layoutFile || file == partialsFile {
			continue
		}
		name := strings.TrimSuffix(path.Base(file), ".html")
		t, err := template.New(name).Funcs(templateFuncs).ParseFS(templateFS, layoutFile, partialsFile, file)
		if err != nil {
			return nil, fmt.Errorf("failed to parse template %s: %w", name, err)
		}
		r.pages[name] = t
	}
	return r, nil
}

// Render writes a full page when name is a page, else the named fragment from partials
func (r *Renderer) Render(w io.Writer, name string, data interface{}, c echo.Context) error {
	if t, ok := r.pages[name]; ok {
		return t.ExecuteTemplate(w, "layout", data)
	}
	if t := r.partials.Lookup(name); t != nil {
		return t.Execute(w, data)
	}
	return fmt.Errorf("template %q not found", name)
}
