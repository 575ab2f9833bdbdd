// Package web provides the embedded expression playground UI.
package web

import (
	"bytes"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"html/template"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/utils"

	"github.com/lemonberrylabs/eggexpr/pkg/engine"
	"github.com/lemonberrylabs/eggexpr/pkg/expr"
	"github.com/lemonberrylabs/eggexpr/pkg/store"
	"github.com/lemonberrylabs/eggexpr/pkg/types"
)

//go:embed templates/*.html
var templateFS embed.FS

// Handler serves the web UI pages.
type Handler struct {
	engine  *engine.Engine
	store   store.Store
	funcMap template.FuncMap
}

// pageData wraps all page-specific data with common fields.
type pageData struct {
	NavActive string
	Mode      string
	Data      any
}

// New creates a new web UI handler.
func New(eng *engine.Engine, st store.Store) *Handler {
	return &Handler{
		engine: eng,
		store:  st,
		funcMap: template.FuncMap{
			"timeAgo":    timeAgo,
			"formatTime": formatTime,
			"truncate":   truncate,
			"typeClass":  typeClass,
			"join":       strings.Join,
		},
	}
}

func (h *Handler) render(c *fiber.Ctx, page string, navActive string, data any) error {
	// Parse templates fresh each time for the page-specific template
	// This avoids the Go template issue where define blocks conflict across pages
	tmpl := template.Must(
		template.New("").Funcs(h.funcMap).ParseFS(templateFS, "templates/layout.html", "templates/"+page),
	)

	pd := pageData{
		NavActive: navActive,
		Mode:      h.engine.Mode().String(),
		Data:      data,
	}

	var buf bytes.Buffer
	if err := tmpl.ExecuteTemplate(&buf, page, pd); err != nil {
		return c.Status(500).SendString(fmt.Sprintf("template error: %v", err))
	}

	c.Set("Content-Type", "text/html; charset=utf-8")
	return c.Send(buf.Bytes())
}

// Register adds web UI routes to the Fiber app.
func (h *Handler) Register(app *fiber.App) {
	app.Get("/ui", h.playground)
	app.Get("/ui/", h.playground)
	app.Post("/ui/eval", h.eval)
	app.Get("/ui/cache", h.cache)
	app.Get("/ui/scopes", h.scopes)

	// Redirect root to UI
	app.Get("/", func(c *fiber.Ctx) error {
		return c.Redirect("/ui")
	})
}

// --- Page Data Types ---

type playgroundContent struct {
	Expression string
	Variables  string
	Scope      string
	Expand     bool

	Evaluated bool
	Result    string
	Type      string
	Tree      string
	Warnings  []string
	Written   bool
	Error     string
	ErrorTags []string
}

type cacheContent struct {
	Stats   engine.CacheStats
	Entries []engine.CacheEntry
}

type scopesContent struct {
	Scopes []scopeView
}

type scopeView struct {
	store.Scope
	Summary string
}

// --- Page Handlers ---

func (h *Handler) playground(c *fiber.Ctx) error {
	return h.render(c, "playground.html", "playground", playgroundContent{
		Variables: "{}",
	})
}

// eval evaluates or expands the submitted form and re-renders the playground
// with the outcome. Expression failures are shown on the page, not returned
// as HTTP errors. Form values are copied because they outlive the request as
// cache keys and scope names.
func (h *Handler) eval(c *fiber.Ctx) error {
	content := playgroundContent{
		Expression: utils.CopyString(c.FormValue("expression")),
		Variables:  utils.CopyString(c.FormValue("variables", "{}")),
		Scope:      utils.CopyString(strings.TrimSpace(c.FormValue("scope"))),
		Expand:     c.FormValue("action") == "expand",
		Evaluated:  true,
	}
	ctx := c.UserContext()

	vars := types.Null
	if strings.TrimSpace(content.Variables) != "" {
		v, err := types.ParseJSON([]byte(content.Variables))
		if err != nil {
			content.Error = "variables: " + err.Error()
			return h.render(c, "playground.html", "playground", content)
		}
		vars = v
	}

	sess, err := store.OpenSession(ctx, h.store, content.Scope, vars)
	if err != nil {
		content.Error = err.Error()
		return h.render(c, "playground.html", "playground", content)
	}

	if content.Expand {
		text, warnings, err := h.engine.Expand(ctx, content.Expression, sess.Scope)
		if err != nil {
			content.setError(err)
		} else {
			content.Result = text
			content.Type = "string"
			for _, w := range warnings {
				content.Warnings = append(content.Warnings, w.Error())
			}
		}
	} else {
		tree, err := h.engine.Parse(ctx, content.Expression)
		if err != nil {
			content.setError(err)
			return h.render(c, "playground.html", "playground", content)
		}
		if b, err := json.MarshalIndent(expr.DescribeTree(tree), "", "  "); err == nil {
			content.Tree = string(b)
		}
		v, err := h.engine.Evaluate(ctx, tree, sess.Scope)
		if err != nil {
			content.setError(err)
		} else {
			content.Result = v.String()
			content.Type = v.Type().String()
		}
	}

	if content.Error == "" {
		written, err := sess.Commit(ctx)
		if err != nil {
			content.Error = err.Error()
		}
		content.Written = written
	}
	return h.render(c, "playground.html", "playground", content)
}

func (p *playgroundContent) setError(err error) {
	p.Error = err.Error()
	var exprErr *types.ExprError
	if errors.As(err, &exprErr) {
		p.ErrorTags = exprErr.Tags
	}
}

func (h *Handler) cache(c *fiber.Ctx) error {
	cache := h.engine.Cache()
	return h.render(c, "cache.html", "cache", cacheContent{
		Stats:   cache.Stats(),
		Entries: cache.Entries(),
	})
}

func (h *Handler) scopes(c *fiber.Ctx) error {
	list, err := h.store.List(c.UserContext())
	if err != nil {
		return c.Status(500).SendString(fmt.Sprintf("listing scopes: %v", err))
	}
	views := make([]scopeView, len(list))
	for i, sc := range list {
		views[i] = scopeView{Scope: sc, Summary: truncate(sc.Variables.String(), 80)}
	}
	return h.render(c, "scopes.html", "scopes", scopesContent{Scopes: views})
}

// --- Template Helpers ---

func timeAgo(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	d := time.Since(t)
	switch {
	case d < time.Minute:
		return "just now"
	case d < time.Hour:
		m := int(d.Minutes())
		if m == 1 {
			return "1 minute ago"
		}
		return fmt.Sprintf("%d minutes ago", m)
	case d < 24*time.Hour:
		h := int(d.Hours())
		if h == 1 {
			return "1 hour ago"
		}
		return fmt.Sprintf("%d hours ago", h)
	default:
		days := int(d.Hours() / 24)
		if days == 1 {
			return "1 day ago"
		}
		return fmt.Sprintf("%d days ago", days)
	}
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.Format("2006-01-02 15:04:05")
}

func typeClass(typ string) string {
	switch typ {
	case "null":
		return "type-null"
	case "bool":
		return "type-bool"
	case "int", "double":
		return "type-number"
	case "string":
		return "type-string"
	case "list", "map":
		return "type-collection"
	default:
		return ""
	}
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
