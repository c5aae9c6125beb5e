package web

import (
	"embed"
	"fmt"
	"io/fs"
	"net/http"

	"autoparts/internal/inventory"

	"github.com/gofiber/template/html/v2"
)

//go:embed templates
var templateFS embed.FS

// layout wraps every page; pages are named "pages/<name>".
const layout = "layout"

var funcs = map[string]interface{}{
	"stockBadge":    inventory.StockBadge,
	"stockText":     inventory.StockText,
	"categoryBadge": inventory.CategoryBadge,
	"money":         func(v float64) string { return fmt.Sprintf("$%.2f", v) },
	"deref": func(s *string) string {
		if s == nil {
			return ""
		}
		return *s
	},
	"truncate": func(s string, n int) string {
		r := []rune(s)
		if len(r) <= n {
			return s
		}
		return string(r[:n]) + "..."
	},
}

// NewViews returns the html template engine over the embedded templates,
// already parsed.
func NewViews() (*html.Engine, error) {
	sub, err := fs.Sub(templateFS, "templates")
	if err != nil {
		return nil, err
	}
	engine := html.NewFileSystem(http.FS(sub), ".html")
	engine.AddFuncMap(funcs)
	if err := engine.Load(); err != nil {
		return nil, fmt.Errorf("failed to parse templates: %w", err)
	}
	return engine, nil
}
