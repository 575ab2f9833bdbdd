// Package engine wraps parsing, folding and evaluation behind a parse cache,
// structured logging and OpenTelemetry instrumentation.
package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/lemonberrylabs/eggexpr/pkg/capability"
	"github.com/lemonberrylabs/eggexpr/pkg/expr"
	"github.com/lemonberrylabs/eggexpr/pkg/stdlib"
	"github.com/lemonberrylabs/eggexpr/pkg/types"
)

// maxSourceAttr caps the expression text recorded on spans.
const maxSourceAttr = 256

// Options configures an Engine. The zero value is usable.
type Options struct {
	// Whitelist gates host accessors and intrinsics. Defaults to
	// capability.Default().
	Whitelist *capability.Whitelist

	// Mode selects fail-soft or strict variable resolution.
	Mode expr.Mode

	// DisableFold turns off constant folding of parsed trees.
	DisableFold bool

	// CacheSize bounds the parse cache. Zero selects DefaultCacheSize.
	CacheSize int

	// Functions serves calls. Defaults to the full standard library.
	Functions expr.Functions

	Logger         *slog.Logger
	TracerProvider trace.TracerProvider
	MeterProvider  metric.MeterProvider
}

// Engine parses and evaluates expressions. It is safe for concurrent use.
type Engine struct {
	eval   *expr.Evaluator
	funcs  expr.Functions
	fold   bool
	cache  *Cache
	logger *slog.Logger
	tracer trace.Tracer
	inst   *instruments
}

// New creates an engine.
func New(opts Options) (*Engine, error) {
	if opts.Whitelist == nil {
		opts.Whitelist = capability.Default()
	}
	if opts.Functions == nil {
		opts.Functions = stdlib.NewRegistry()
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.TracerProvider == nil {
		opts.TracerProvider = otel.GetTracerProvider()
	}
	if opts.MeterProvider == nil {
		opts.MeterProvider = otel.GetMeterProvider()
	}

	inst, err := newInstruments(opts.MeterProvider.Meter(instrumentationName))
	if err != nil {
		return nil, fmt.Errorf("creating instruments: %w", err)
	}

	ev := expr.NewEvaluator(opts.Whitelist, opts.Mode)
	ev.Logger = opts.Logger

	return &Engine{
		eval:   ev,
		funcs:  opts.Functions,
		fold:   !opts.DisableFold,
		cache:  NewCache(opts.CacheSize),
		logger: opts.Logger,
		tracer: opts.TracerProvider.Tracer(instrumentationName),
		inst:   inst,
	}, nil
}

// Cache returns the engine's parse cache.
func (e *Engine) Cache() *Cache { return e.cache }

// Functions returns the function table calls are resolved against.
func (e *Engine) Functions() expr.Functions { return e.funcs }

// Whitelist returns the accessor whitelist.
func (e *Engine) Whitelist() *capability.Whitelist { return e.eval.Whitelist }

// Mode returns the variable resolution mode.
func (e *Engine) Mode() expr.Mode { return e.eval.Mode }

// Parse returns the tree for source, folded unless folding is disabled.
// Results are cached; the returned tree must not be modified.
func (e *Engine) Parse(ctx context.Context, source string) (*expr.Tree, error) {
	_, span := e.tracer.Start(ctx, "expr.parse",
		trace.WithAttributes(attribute.String("expr.source", truncate(source))),
	)
	defer span.End()

	tree, hit, err := e.cache.Get(source, e.parse)

	outcome := "miss"
	if hit {
		outcome = "hit"
	} else {
		e.logger.Debug("parse cache miss", "source", source)
	}
	span.SetAttributes(attribute.Bool("expr.cache_hit", hit))
	e.inst.parses.Add(ctx, 1, metric.WithAttributes(attribute.String("cache", outcome)))

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	return tree, nil
}

func (e *Engine) parse(source string) (*expr.Tree, error) {
	tree, err := expr.Parse(source)
	if err != nil {
		return nil, err
	}
	if e.fold {
		tree = expr.FoldTree(tree)
	}
	return tree, nil
}

// Fold constant-folds tree without touching the cache.
func (e *Engine) Fold(tree *expr.Tree) *expr.Tree {
	return expr.FoldTree(tree)
}

// Evaluate evaluates a parsed tree against scope. A nil scope is empty.
func (e *Engine) Evaluate(ctx context.Context, tree *expr.Tree, scope expr.Scope) (types.Value, error) {
	var source string
	if tree != nil {
		source = tree.Source
	}
	ctx, span := e.tracer.Start(ctx, "expr.evaluate",
		trace.WithAttributes(
			attribute.String("expr.source", truncate(source)),
			attribute.String("expr.mode", e.eval.Mode.String()),
		),
	)
	defer span.End()

	start := time.Now()
	v, err := e.eval.EvaluateTree(tree, scope, e.funcs)
	elapsed := time.Since(start).Seconds()

	outcome := "ok"
	if err != nil {
		outcome = "error"
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		var exprErr *types.ExprError
		if errors.As(err, &exprErr) {
			span.SetAttributes(attribute.String("expr.error_kind", exprErr.Kind()))
		}
	} else {
		span.SetAttributes(attribute.String("expr.result_type", v.Type().String()))
	}
	attrs := metric.WithAttributes(attribute.String("outcome", outcome))
	e.inst.evaluations.Add(ctx, 1, attrs)
	e.inst.duration.Record(ctx, elapsed, attrs)
	return v, err
}

// Eval parses (through the cache) and evaluates source.
func (e *Engine) Eval(ctx context.Context, source string, scope expr.Scope) (types.Value, error) {
	tree, err := e.Parse(ctx, source)
	if err != nil {
		return types.Null, err
	}
	return e.Evaluate(ctx, tree, scope)
}

// Expand renders text with ${expr} sections substituted. Sections that fail
// render as empty text and are returned as warnings; err is set only when
// the template itself is malformed.
func (e *Engine) Expand(ctx context.Context, text string, scope expr.Scope) (string, []error, error) {
	ctx, span := e.tracer.Start(ctx, "expr.expand")
	defer span.End()

	tpl, err := expr.ParseTemplate(text, func(src string) (*expr.Tree, error) {
		return e.Parse(ctx, src)
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return "", nil, err
	}

	out, warnings := e.eval.Render(tpl, scope, e.funcs)
	for _, w := range warnings {
		e.logger.Warn("expression in template failed", "template", truncate(text), "error", w)
	}
	span.SetAttributes(attribute.Int("expr.sections", len(tpl.Expressions())), attribute.Int("expr.warnings", len(warnings)))
	return out, warnings, nil
}

func truncate(s string) string {
	if len(s) <= maxSourceAttr {
		return s
	}
	return s[:maxSourceAttr] + "..."
}
