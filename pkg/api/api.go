// Package api implements the REST API for parsing and evaluating expressions
// and for managing named variable scopes.
package api

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gofiber/fiber/v2"
	fiberrecover "github.com/gofiber/fiber/v2/middleware/recover"

	"github.com/lemonberrylabs/eggexpr/pkg/engine"
	"github.com/lemonberrylabs/eggexpr/pkg/expr"
	"github.com/lemonberrylabs/eggexpr/pkg/store"
	"github.com/lemonberrylabs/eggexpr/pkg/types"
)

// Server is the REST API server.
type Server struct {
	app    *fiber.App
	engine *engine.Engine
	store  store.Store
	logger *slog.Logger
}

// New creates a new API server. A nil logger uses slog.Default().
func New(eng *engine.Engine, st store.Store, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	srv := &Server{
		engine: eng,
		store:  st,
		logger: logger,
	}

	// Immutable: request strings become scope names and cache keys that
	// outlive the request.
	app := fiber.New(fiber.Config{
		DisableStartupMessage: true,
		Immutable:             true,
		ReadTimeout:           30 * time.Second,
		WriteTimeout:          30 * time.Second,
	})
	app.Use(fiberrecover.New(fiberrecover.Config{
		EnableStackTrace: true,
		StackTraceHandler: func(c *fiber.Ctx, e any) {
			logger.Error("panic in handler", "method", c.Method(), "path", c.Path(), "panic", e)
		},
	}))

	app.Get("/healthz", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})

	// Expressions
	app.Post("/v1/parse", srv.parse)
	app.Post("/v1/evaluate", srv.evaluate)
	app.Post("/v1/expand", srv.expand)

	// Scopes
	app.Get("/v1/scopes", srv.listScopes)
	app.Get("/v1/scopes/:name", srv.getScope)
	app.Put("/v1/scopes/:name", srv.putScope)
	app.Delete("/v1/scopes/:name", srv.deleteScope)

	// Introspection
	app.Get("/v1/functions", srv.listFunctions)
	app.Get("/v1/cache", srv.cacheStats)
	app.Delete("/v1/cache", srv.purgeCache)

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

// App returns the underlying Fiber app (useful for testing and for mounting
// the web UI).
func (s *Server) App() *fiber.App {
	return s.app
}

// --- Expressions ---

type parseRequest struct {
	Expression string `json:"expression"`
	Fold       *bool  `json:"fold"`
}

func (s *Server) parse(c *fiber.Ctx) error {
	var req parseRequest
	if err := c.BodyParser(&req); err != nil {
		return errorResponse(c, http.StatusBadRequest, "INVALID_ARGUMENT", "invalid request body: "+err.Error(), nil)
	}

	// The engine cache holds folded trees when folding is on, so an unfolded
	// view is parsed directly.
	var (
		tree *expr.Tree
		err  error
	)
	fold := req.Fold == nil || *req.Fold
	if fold {
		tree, err = s.engine.Parse(c.UserContext(), req.Expression)
		if err == nil {
			tree = s.engine.Fold(tree)
		}
	} else {
		tree, err = expr.Parse(req.Expression)
	}
	if err != nil {
		return exprErrorResponse(c, err)
	}

	resp := fiber.Map{
		"tree":   expr.DescribeTree(tree),
		"folded": fold,
	}
	if m := tree.Marker(); m != nil {
		resp["marker"] = m.Delimiter
	}
	return c.JSON(resp)
}

type evaluateRequest struct {
	Expression string      `json:"expression"`
	Variables  types.Value `json:"variables"`
	Scope      string      `json:"scope"`
}

// evaluate runs an expression. When a named scope is given, its stored
// variables are loaded first, request variables are laid over them, and the
// result is saved back if the expression changed anything.
func (s *Server) evaluate(c *fiber.Ctx) error {
	var req evaluateRequest
	if err := c.BodyParser(&req); err != nil {
		return errorResponse(c, http.StatusBadRequest, "INVALID_ARGUMENT", "invalid request body: "+err.Error(), nil)
	}
	ctx := c.UserContext()

	sess, apiErr := s.openSession(c, req.Scope, req.Variables)
	if apiErr != nil {
		return apiErr.send(c)
	}

	v, err := s.engine.Eval(ctx, req.Expression, sess.Scope)
	if err != nil {
		return exprErrorResponse(c, err)
	}

	resp := fiber.Map{
		"value": v,
		"type":  v.Type().String(),
	}
	if sess.Named() {
		written, err := sess.Commit(ctx)
		if err != nil {
			return errorResponse(c, http.StatusInternalServerError, "INTERNAL", err.Error(), nil)
		}
		if written {
			s.logger.Debug("scope updated", "scope", req.Scope)
		}
		resp["written"] = written
	}
	return c.JSON(resp)
}

type expandRequest struct {
	Template  string      `json:"template"`
	Variables types.Value `json:"variables"`
	Scope     string      `json:"scope"`
}

func (s *Server) expand(c *fiber.Ctx) error {
	var req expandRequest
	if err := c.BodyParser(&req); err != nil {
		return errorResponse(c, http.StatusBadRequest, "INVALID_ARGUMENT", "invalid request body: "+err.Error(), nil)
	}

	sess, apiErr := s.openSession(c, req.Scope, req.Variables)
	if apiErr != nil {
		return apiErr.send(c)
	}

	text, warnings, err := s.engine.Expand(c.UserContext(), req.Template, sess.Scope)
	if err != nil {
		return exprErrorResponse(c, err)
	}

	msgs := make([]string, len(warnings))
	for i, w := range warnings {
		msgs[i] = w.Error()
	}
	return c.JSON(fiber.Map{
		"text":     text,
		"warnings": msgs,
	})
}

func (s *Server) openSession(c *fiber.Ctx, name string, vars types.Value) (*store.Session, *apiError) {
	sess, err := store.OpenSession(c.UserContext(), s.store, name, vars)
	if err != nil {
		if errors.Is(err, store.ErrInvalidScope) {
			return nil, &apiError{http.StatusBadRequest, "INVALID_ARGUMENT", "variables must be an object"}
		}
		return nil, &apiError{http.StatusInternalServerError, "INTERNAL", err.Error()}
	}
	return sess, nil
}

// --- Scopes ---

func (s *Server) listScopes(c *fiber.Ctx) error {
	scopes, err := s.store.List(c.UserContext())
	if err != nil {
		return errorResponse(c, http.StatusInternalServerError, "INTERNAL", err.Error(), nil)
	}
	if scopes == nil {
		scopes = []store.Scope{}
	}
	return c.JSON(fiber.Map{"scopes": scopes})
}

func (s *Server) getScope(c *fiber.Ctx) error {
	name := c.Params("name")
	sc, found, err := s.store.Get(c.UserContext(), name)
	if err != nil {
		return errorResponse(c, http.StatusInternalServerError, "INTERNAL", err.Error(), nil)
	}
	if !found {
		return errorResponse(c, http.StatusNotFound, "NOT_FOUND", "scope "+name+" not found", nil)
	}
	return c.JSON(sc)
}

type putScopeRequest struct {
	Variables types.Value `json:"variables"`
}

func (s *Server) putScope(c *fiber.Ctx) error {
	var req putScopeRequest
	if err := c.BodyParser(&req); err != nil {
		return errorResponse(c, http.StatusBadRequest, "INVALID_ARGUMENT", "invalid request body: "+err.Error(), nil)
	}
	if req.Variables.IsNull() {
		req.Variables = types.NewMap(types.NewOrderedMap())
	}

	sc, err := s.store.Put(c.UserContext(), c.Params("name"), req.Variables)
	if err != nil {
		if errors.Is(err, store.ErrInvalidScope) {
			return errorResponse(c, http.StatusBadRequest, "INVALID_ARGUMENT", err.Error(), nil)
		}
		return errorResponse(c, http.StatusInternalServerError, "INTERNAL", err.Error(), nil)
	}
	return c.JSON(sc)
}

func (s *Server) deleteScope(c *fiber.Ctx) error {
	name := c.Params("name")
	if err := s.store.Delete(c.UserContext(), name); err != nil {
		if errors.Is(err, store.ErrScopeNotFound) {
			return errorResponse(c, http.StatusNotFound, "NOT_FOUND", "scope "+name+" not found", nil)
		}
		return errorResponse(c, http.StatusInternalServerError, "INTERNAL", err.Error(), nil)
	}
	return c.SendStatus(http.StatusNoContent)
}

// --- Introspection ---

// namer is implemented by function tables that can list their keys.
type namer interface {
	Names() []string
}

func (s *Server) listFunctions(c *fiber.Ctx) error {
	names := []string{}
	if n, ok := s.engine.Functions().(namer); ok {
		names = n.Names()
	}
	return c.JSON(fiber.Map{"functions": names})
}

func (s *Server) cacheStats(c *fiber.Ctx) error {
	cache := s.engine.Cache()
	return c.JSON(fiber.Map{
		"stats":   cache.Stats(),
		"entries": cache.Entries(),
	})
}

func (s *Server) purgeCache(c *fiber.Ctx) error {
	s.engine.Cache().Purge()
	return c.SendStatus(http.StatusNoContent)
}

// --- Helpers ---

type apiError struct {
	code    int
	status  string
	message string
}

func (e *apiError) send(c *fiber.Ctx) error {
	return errorResponse(c, e.code, e.status, e.message, nil)
}

func errorResponse(c *fiber.Ctx, code int, status, message string, tags []string) error {
	body := fiber.Map{
		"code":    code,
		"status":  status,
		"message": message,
	}
	if len(tags) > 0 {
		body["tags"] = tags
	}
	return c.Status(code).JSON(fiber.Map{"error": body})
}

// exprErrorResponse maps an expression error onto an HTTP status by its
// primary tag.
func exprErrorResponse(c *fiber.Ctx, err error) error {
	var exprErr *types.ExprError
	if !errors.As(err, &exprErr) {
		return errorResponse(c, http.StatusInternalServerError, "INTERNAL", err.Error(), nil)
	}
	code, status := http.StatusUnprocessableEntity, "FAILED_PRECONDITION"
	switch {
	case exprErr.HasTag(types.TagSyntaxError):
		code, status = http.StatusBadRequest, "INVALID_ARGUMENT"
	case exprErr.HasTag(types.TagUnknownFunction):
		code, status = http.StatusNotFound, "NOT_FOUND"
	}
	return errorResponse(c, code, status, exprErr.Error(), exprErr.Tags)
}
