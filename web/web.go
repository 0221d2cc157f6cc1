// Package web provides the embedded web UI: an evaluate form with session
// history and a browser for the unit registry.
package web

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/lemonberrylabs/unitcalc/pkg/store"
	"github.com/lemonberrylabs/unitcalc/pkg/types"
)

//go:embed templates/*.html
var templateFS embed.FS

// Handler serves the web UI pages.
type Handler struct {
	session *store.Session
	funcMap template.FuncMap
}

// pageData wraps all page-specific data with common fields.
type pageData struct {
	NavActive string
	Data      any
}

// New creates a new web UI handler.
func New(s *store.Session) *Handler {
	return &Handler{
		session: s,
		funcMap: template.FuncMap{
			"timeAgo":    timeAgo,
			"formatTime": formatTime,
			"truncate":   truncate,
			"kindOf":     kindOf,
		},
	}
}

func (h *Handler) render(c *fiber.Ctx, page string, navActive string, data any) error {
	// Each page defines "content", so pages are parsed separately with the layout.
	tmpl, err := template.New("").Funcs(h.funcMap).ParseFS(templateFS, "templates/layout.html", "templates/"+page)
	if err != nil {
		return c.Status(500).SendString(fmt.Sprintf("template error: %v", err))
	}

	pd := pageData{
		NavActive: navActive,
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
	app.Get("/ui", h.dashboard)
	app.Get("/ui/units", h.unitList)
	app.Get("/ui/units/:symbol", h.unitDetail)
	app.Get("/ui/prefixes", h.prefixList)

	// Redirect root to UI
	app.Get("/", func(c *fiber.Ctx) error {
		return c.Redirect("/ui")
	})
}

// --- Page Data Types ---

type dashboardContent struct {
	Expression  string
	Canonical   string
	Result      string
	Error       string
	History     []store.Entry
	UnitCount   int
	PrefixCount int
}

type definitionView struct {
	Symbol     string
	Definition string
}

type unitListContent struct {
	Units []definitionView
}

type unitDetailContent struct {
	Symbol     string
	Definition string
	Dependents []string
}

type prefixListContent struct {
	Prefixes []definitionView
}

type notFoundContent struct {
	Kind   string
	Symbol string
}

// --- Handlers ---

func (h *Handler) dashboard(c *fiber.Ctx) error {
	content := dashboardContent{
		Expression:  strings.Clone(c.Query("q")),
		UnitCount:   len(h.session.Units()),
		PrefixCount: len(h.session.Prefixes()),
	}
	if content.Expression != "" {
		res, err := h.session.Evaluate(content.Expression)
		content.Canonical = res.Canonical
		if err != nil {
			content.Error = err.Error()
		} else {
			content.Result = res.Quantity.String()
		}
	}

	// Newest first
	history := h.session.History()
	for i, j := 0, len(history)-1; i < j; i, j = i+1, j-1 {
		history[i], history[j] = history[j], history[i]
	}
	content.History = history

	return h.render(c, "dashboard.html", "dashboard", content)
}

func (h *Handler) unitList(c *fiber.Ctx) error {
	var content unitListContent
	for _, sym := range h.session.Units() {
		def, err := h.session.UnitDefinition(sym)
		if err != nil {
			continue
		}
		content.Units = append(content.Units, definitionView{Symbol: sym, Definition: def})
	}
	return h.render(c, "units.html", "units", content)
}

func (h *Handler) unitDetail(c *fiber.Ctx) error {
	sym := c.Params("symbol")
	def, err := h.session.UnitDefinition(sym)
	if err != nil {
		c.Status(fiber.StatusNotFound)
		return h.render(c, "notfound.html", "units", notFoundContent{Kind: "Unit", Symbol: sym})
	}
	return h.render(c, "unit.html", "units", unitDetailContent{
		Symbol:     sym,
		Definition: def,
		Dependents: h.session.Dependents(sym),
	})
}

func (h *Handler) prefixList(c *fiber.Ctx) error {
	var content prefixListContent
	for _, sym := range h.session.Prefixes() {
		def, err := h.session.PrefixDefinition(sym)
		if err != nil {
			continue
		}
		content.Prefixes = append(content.Prefixes, definitionView{Symbol: sym, Definition: def})
	}
	return h.render(c, "prefixes.html", "prefixes", content)
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

func truncate(s string, maxLen int) string {
	r := []rune(s)
	if len(r) <= maxLen {
		return s
	}
	return string(r[:maxLen]) + "..."
}

// kindOf extracts the error kind from a rendered error message such as
// "UnitError: cannot add m and s".
func kindOf(msg string) string {
	for _, kind := range []types.ErrorKind{
		types.KindLex, types.KindAggregation, types.KindSyntax,
		types.KindUnit, types.KindRegistry, types.KindFileFormat,
	} {
		if len(msg) > len(kind) && msg[:len(kind)] == string(kind) {
			return string(kind)
		}
	}
	return "Error"
}
