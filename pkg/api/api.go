// Package api implements the REST API over a calculator session: expression
// evaluation, unit conversion, and registry inspection and mutation.
package api

import (
	"errors"
	"fmt"
	"time"

	"github.com/charmbracelet/log"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"

	"github.com/lemonberrylabs/unitcalc/pkg/metrics"
	"github.com/lemonberrylabs/unitcalc/pkg/parser"
	"github.com/lemonberrylabs/unitcalc/pkg/store"
	"github.com/lemonberrylabs/unitcalc/pkg/types"
)

// Server is the REST API server.
type Server struct {
	app     *fiber.App
	session *store.Session
	logger  *log.Logger
}

// New creates a new API server.
func New(s *store.Session, logger *log.Logger) *Server {
	if logger == nil {
		logger = log.Default()
	}
	srv := &Server{session: s, logger: logger}

	app := fiber.New(fiber.Config{
		DisableStartupMessage: true,
		Immutable:             true,
		ReadTimeout:           30 * time.Second,
		WriteTimeout:          30 * time.Second,
		BodyLimit:             parser.MaxSourceSize,
	})
	app.Use(srv.logRequests)

	// Calculator API
	app.Post("/v1/evaluate", srv.evaluate)
	app.Post("/v1/convert", srv.convert)
	app.Get("/v1/history", srv.listHistory)
	app.Delete("/v1/history", srv.clearHistory)

	// Registry API
	app.Get("/v1/units", srv.listUnits)
	app.Post("/v1/units", srv.createUnit)
	app.Get("/v1/units/:symbol", srv.getUnit)
	app.Delete("/v1/units/:symbol", srv.deleteUnit)
	app.Get("/v1/prefixes", srv.listPrefixes)
	app.Post("/v1/prefixes", srv.createPrefix)
	app.Get("/v1/prefixes/:symbol", srv.getPrefix)
	app.Delete("/v1/prefixes/:symbol", srv.deletePrefix)
	app.Get("/v1/registry", srv.exportRegistry)
	app.Put("/v1/registry", srv.importRegistry)

	app.Get("/metrics", adaptor.HTTPHandler(metrics.Handler()))
	app.Get("/healthz", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})

	srv.app = app
	return srv
}

// Listen starts the HTTP server on the given address.
func (s *Server) Listen(addr string) error {
	return s.app.Listen(addr)
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown() error {
	return s.app.Shutdown()
}

// App returns the underlying Fiber app (useful for testing).
func (s *Server) App() *fiber.App {
	return s.app
}

func (s *Server) logRequests(c *fiber.Ctx) error {
	start := time.Now()
	err := c.Next()
	status := c.Response().StatusCode()
	switch {
	case status >= 500:
		s.logger.Error("request failed", "method", c.Method(), "path", c.Path(), "status", status, "elapsed", time.Since(start))
	case status >= 400:
		s.logger.Warn("request rejected", "method", c.Method(), "path", c.Path(), "status", status)
	default:
		s.logger.Debug("request", "method", c.Method(), "path", c.Path(), "status", status, "elapsed", time.Since(start))
	}
	return err
}

// --- Calculator Handlers ---

type evaluateRequest struct {
	Expression string `json:"expression"`
}

func (s *Server) evaluate(c *fiber.Ctx) error {
	var req evaluateRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, fmt.Sprintf("invalid request body: %v", err))
	}
	if req.Expression == "" {
		return badRequest(c, "expression is required")
	}

	res, err := s.session.Evaluate(req.Expression)
	if err != nil {
		return errorResponse(c, err)
	}
	out := quantityToJSON(res.Quantity)
	out["input"] = req.Expression
	out["canonical"] = res.Canonical
	return c.JSON(out)
}

type convertRequest struct {
	Value *float64 `json:"value"`
	From  string   `json:"from"`
	To    string   `json:"to"`
}

func (s *Server) convert(c *fiber.Ctx) error {
	var req convertRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, fmt.Sprintf("invalid request body: %v", err))
	}
	value := 1.0
	if req.Value != nil {
		value = *req.Value
	}

	q, err := s.session.Convert(value, req.From, req.To)
	if err != nil {
		return errorResponse(c, err)
	}
	return c.JSON(quantityToJSON(q))
}

func (s *Server) listHistory(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"entries": s.session.History()})
}

func (s *Server) clearHistory(c *fiber.Ctx) error {
	s.session.ClearHistory()
	return c.SendStatus(fiber.StatusNoContent)
}

// --- Registry Handlers ---

func (s *Server) listUnits(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"units": s.session.Units()})
}

type createUnitRequest struct {
	Symbol     string   `json:"symbol"`
	Scale      *float64 `json:"scale"`
	Definition string   `json:"definition"`
}

func (s *Server) createUnit(c *fiber.Ctx) error {
	var req createUnitRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, fmt.Sprintf("invalid request body: %v", err))
	}
	if req.Symbol == "" {
		return badRequest(c, "symbol is required")
	}
	scale := 1.0
	if req.Scale != nil {
		scale = *req.Scale
	}

	if err := s.session.AddUnit(req.Symbol, scale, req.Definition); err != nil {
		return errorResponse(c, err)
	}
	def, err := s.session.UnitDefinition(req.Symbol)
	if err != nil {
		return errorResponse(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"symbol": req.Symbol, "definition": def})
}

func (s *Server) getUnit(c *fiber.Ctx) error {
	sym := c.Params("symbol")
	def, err := s.session.UnitDefinition(sym)
	if err != nil {
		return errorResponse(c, err)
	}
	return c.JSON(fiber.Map{
		"symbol":     sym,
		"definition": def,
		"dependents": s.session.Dependents(sym),
	})
}

func (s *Server) deleteUnit(c *fiber.Ctx) error {
	removed, err := s.session.DelUnit(c.Params("symbol"))
	if err != nil {
		return errorResponse(c, err)
	}
	return c.JSON(fiber.Map{"removed": removed})
}

func (s *Server) listPrefixes(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"prefixes": s.session.Prefixes()})
}

type createPrefixRequest struct {
	Symbol   string  `json:"symbol"`
	Base     float64 `json:"base"`
	Exponent float64 `json:"exponent"`
}

func (s *Server) createPrefix(c *fiber.Ctx) error {
	var req createPrefixRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, fmt.Sprintf("invalid request body: %v", err))
	}
	if req.Symbol == "" {
		return badRequest(c, "symbol is required")
	}

	if err := s.session.AddPrefix(req.Symbol, req.Base, req.Exponent); err != nil {
		return errorResponse(c, err)
	}
	def, err := s.session.PrefixDefinition(req.Symbol)
	if err != nil {
		return errorResponse(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"symbol": req.Symbol, "definition": def})
}

func (s *Server) getPrefix(c *fiber.Ctx) error {
	sym := c.Params("symbol")
	def, err := s.session.PrefixDefinition(sym)
	if err != nil {
		return errorResponse(c, err)
	}
	return c.JSON(fiber.Map{"symbol": sym, "definition": def})
}

func (s *Server) deletePrefix(c *fiber.Ctx) error {
	removed, err := s.session.DelPrefix(c.Params("symbol"))
	if err != nil {
		return errorResponse(c, err)
	}
	return c.JSON(fiber.Map{"removed": removed})
}

func (s *Server) exportRegistry(c *fiber.Ctx) error {
	format, err := parser.ParseFormat(c.Query("format", "yaml"))
	if err != nil {
		return badRequest(c, err.Error())
	}
	data, err := parser.Encode(s.session.Registry(), format)
	if err != nil {
		return errorResponse(c, err)
	}
	c.Set(fiber.HeaderContentType, contentType(format))
	return c.Send(data)
}

func (s *Server) importRegistry(c *fiber.Ctx) error {
	format, err := parser.ParseFormat(c.Query("format", "yaml"))
	if err != nil {
		return badRequest(c, err.Error())
	}
	reg, err := parser.Decode(c.Body(), format)
	if err != nil {
		return errorResponse(c, err)
	}
	if err := s.session.Replace(reg); err != nil {
		return errorResponse(c, err)
	}
	return c.JSON(fiber.Map{
		"units":    len(s.session.Units()),
		"prefixes": len(s.session.Prefixes()),
	})
}

// --- Helpers ---

func quantityToJSON(q types.Quantity) fiber.Map {
	return fiber.Map{
		"value":  q.Value,
		"unit":   q.Unit.String(),
		"result": q.String(),
	}
}

func contentType(f parser.Format) string {
	switch f {
	case parser.FormatJSON:
		return fiber.MIMEApplicationJSONCharsetUTF8
	case parser.FormatYAML:
		return "application/yaml; charset=utf-8"
	default:
		return fiber.MIMETextPlainCharsetUTF8
	}
}

// StatusFor maps an error to an HTTP status code and status name.
func StatusFor(err error) (int, string) {
	switch {
	case store.IsNotFound(err):
		return fiber.StatusNotFound, "NOT_FOUND"
	case store.IsConflict(err):
		return fiber.StatusConflict, "ALREADY_EXISTS"
	case errors.Is(err, types.ErrRegistry):
		return fiber.StatusBadRequest, "FAILED_PRECONDITION"
	case types.KindOf(err) != "":
		return fiber.StatusBadRequest, "INVALID_ARGUMENT"
	default:
		return fiber.StatusInternalServerError, "INTERNAL"
	}
}

func errorResponse(c *fiber.Ctx, err error) error {
	code, status := StatusFor(err)
	body := fiber.Map{
		"code":    code,
		"message": err.Error(),
		"status":  status,
	}
	if kind := types.KindOf(err); kind != "" {
		body["kind"] = kind
	}
	return c.Status(code).JSON(fiber.Map{"error": body})
}

func badRequest(c *fiber.Ctx, msg string) error {
	return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
		"error": fiber.Map{
			"code":    fiber.StatusBadRequest,
			"message": msg,
			"status":  "INVALID_ARGUMENT",
		},
	})
}
