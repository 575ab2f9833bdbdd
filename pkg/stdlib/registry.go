// Package stdlib implements the built-in function library callable from
// expressions.
package stdlib

import (
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"

	"github.com/sahilm/fuzzy"

	"github.com/lemonberrylabs/eggexpr/pkg/expr"
	"github.com/lemonberrylabs/eggexpr/pkg/types"
)

// Func is a library function that ignores the name it was called under.
type Func func(args []types.Value) (types.Value, error)

// Call implements expr.Handler.
func (f Func) Call(_ string, args []types.Value) (types.Value, error) {
	return f(args)
}

// maxSuggestions caps the "did you mean" list for unknown functions.
const maxSuggestions = 3

// Registry maps "ns:name" keys, and "ns:" catch-all keys, to handlers. It
// implements expr.Functions.
type Registry struct {
	mu       sync.RWMutex
	handlers map[string]expr.Handler
	logger   *slog.Logger
}

// NewRegistry creates a registry with every built-in bundle registered.
func NewRegistry() *Registry {
	r := NewEmptyRegistry()
	r.registerBasics()
	r.registerExpressionHelpers()
	r.registerText()
	r.registerMath()
	r.registerList()
	r.registerMapFuncs()
	r.registerJSON()
	r.registerBase64()
	r.registerHash()
	r.registerUUID()
	r.registerTime()
	r.registerSys()
	return r
}

// NewEmptyRegistry creates a registry with no functions.
func NewEmptyRegistry() *Registry {
	return &Registry{handlers: make(map[string]expr.Handler)}
}

// SetLogger sets the logger used by sys:log. A nil logger restores
// slog.Default().
func (r *Registry) SetLogger(l *slog.Logger) {
	r.mu.Lock()
	r.logger = l
	r.mu.Unlock()
}

func (r *Registry) log() *slog.Logger {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.logger != nil {
		return r.logger
	}
	return slog.Default()
}

// Register adds a function. A key without a namespace, like "length", is
// registered in the root namespace as ":length".
func (r *Registry) Register(key string, fn Func) {
	r.RegisterHandler(qualify(key), fn)
}

// RegisterHandler adds h under an exact key.
func (r *Registry) RegisterHandler(key string, h expr.Handler) {
	r.mu.Lock()
	r.handlers[key] = h
	r.mu.Unlock()
}

// Handle routes every call in namespace ns to h, unless a more specific
// "ns:name" key is registered.
func (r *Registry) Handle(ns string, h expr.Handler) {
	r.RegisterHandler(ns+":", h)
}

// RegisterNamespace routes only the listed names in namespace ns to h.
func (r *Registry) RegisterNamespace(ns string, names []string, h expr.Handler) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, name := range names {
		r.handlers[ns+":"+name] = h
	}
}

// Lookup implements expr.Functions.
func (r *Registry) Lookup(key string) (expr.Handler, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	h, ok := r.handlers[key]
	return h, ok
}

// Names returns every registered key in sorted order. Root functions are
// listed without their leading colon.
func (r *Registry) Names() []string {
	r.mu.RLock()
	names := make([]string, 0, len(r.handlers))
	for k := range r.handlers {
		names = append(names, strings.TrimPrefix(k, ":"))
	}
	r.mu.RUnlock()
	sort.Strings(names)
	return names
}

// Suggest returns registered names that fuzzily match key, best first.
func (r *Registry) Suggest(key string) []string {
	pattern := strings.TrimPrefix(key, ":")
	if pattern == "" {
		return nil
	}
	matches := fuzzy.Find(pattern, r.Names())
	var out []string
	for _, m := range matches {
		if len(out) == maxSuggestions {
			break
		}
		out = append(out, m.Str)
	}
	return out
}

func qualify(key string) string {
	if strings.Contains(key, ":") {
		return key
	}
	return ":" + key
}

// requireArgs checks that the number of args is in range. A negative max
// means no upper bound.
func requireArgs(name string, args []types.Value, min, max int) error {
	if len(args) >= min && (max < 0 || len(args) <= max) {
		return nil
	}
	switch {
	case min == max:
		return types.NewArgumentError(fmt.Sprintf("%s expects %d argument(s), got %d", name, min, len(args)))
	case max < 0:
		return types.NewArgumentError(fmt.Sprintf("%s expects at least %d argument(s), got %d", name, min, len(args)))
	default:
		return types.NewArgumentError(fmt.Sprintf("%s expects %d-%d arguments, got %d", name, min, max, len(args)))
	}
}

func stringArg(name string, args []types.Value, i int) (string, error) {
	if args[i].Type() != types.TypeString {
		return "", types.NewArgumentError(fmt.Sprintf("%s: argument %d must be a string, got %s", name, i+1, args[i].Type()))
	}
	return args[i].AsString(), nil
}

func intArg(name string, args []types.Value, i int) (int64, error) {
	switch args[i].Type() {
	case types.TypeInt:
		return args[i].AsInt(), nil
	case types.TypeDouble:
		return int64(args[i].AsDouble()), nil
	}
	return 0, types.NewArgumentError(fmt.Sprintf("%s: argument %d must be a number, got %s", name, i+1, args[i].Type()))
}

func listArg(name string, args []types.Value, i int) ([]types.Value, error) {
	if args[i].Type() != types.TypeList {
		return nil, types.NewArgumentError(fmt.Sprintf("%s: argument %d must be a list, got %s", name, i+1, args[i].Type()))
	}
	return args[i].AsList(), nil
}

func mapArg(name string, args []types.Value, i int) (*types.OrderedMap, error) {
	if args[i].Type() != types.TypeMap {
		return nil, types.NewArgumentError(fmt.Sprintf("%s: argument %d must be a map, got %s", name, i+1, args[i].Type()))
	}
	return args[i].AsMap(), nil
}

func stringList(items []string) types.Value {
	out := make([]types.Value, len(items))
	for i, s := range items {
		out[i] = types.NewString(s)
	}
	return types.NewList(out)
}
