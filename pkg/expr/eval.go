package expr

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/lemonberrylabs/eggexpr/pkg/capability"
	"github.com/lemonberrylabs/eggexpr/pkg/types"
)

// Scope is the variable store an expression reads from and assigns into.
type Scope interface {
	// Get returns the value bound to name.
	Get(name string) (types.Value, bool)

	// Set binds name to v and reports whether the scope accepted the write.
	Set(name string, v types.Value) bool
}

// Handler serves function calls routed to it.
type Handler interface {
	// Call invokes the function name (without namespace) with evaluated arguments.
	Call(name string, args []types.Value) (types.Value, error)
}

// HandlerFunc adapts a plain function to Handler.
type HandlerFunc func(name string, args []types.Value) (types.Value, error)

// Call implements Handler.
func (f HandlerFunc) Call(name string, args []types.Value) (types.Value, error) {
	return f(name, args)
}

// Functions resolves "ns:name" and "ns:" keys to handlers.
type Functions interface {
	Lookup(key string) (Handler, bool)
}

// suggester is implemented by function tables that can propose close matches
// for an unknown key.
type suggester interface {
	Suggest(key string) []string
}

// FuncMap is a static function table.
type FuncMap map[string]Handler

// Lookup implements Functions.
func (m FuncMap) Lookup(key string) (Handler, bool) {
	h, ok := m[key]
	return h, ok
}

// MapScope is a flat, unordered scope backed by a Go map.
type MapScope map[string]types.Value

// Get implements Scope.
func (s MapScope) Get(name string) (types.Value, bool) {
	v, ok := s[name]
	return v, ok
}

// Set implements Scope.
func (s MapScope) Set(name string, v types.Value) bool {
	s[name] = v
	return true
}

// Mode selects how unresolvable variable paths behave.
type Mode int

const (
	// ModeSoft reads unresolvable paths as null.
	ModeSoft Mode = iota
	// ModeStrict reports unresolvable paths as UndefinedVariable errors.
	ModeStrict
)

func (m Mode) String() string {
	if m == ModeStrict {
		return "strict"
	}
	return "soft"
}

// ParseMode parses "soft" or "strict".
func ParseMode(s string) (Mode, error) {
	switch s {
	case "", "soft":
		return ModeSoft, nil
	case "strict":
		return ModeStrict, nil
	}
	return ModeSoft, fmt.Errorf("unknown resolution mode %q", s)
}

// Evaluator walks expression trees. The zero value evaluates with an empty
// whitelist in soft mode.
type Evaluator struct {
	Whitelist *capability.Whitelist
	Mode      Mode
	Logger    *slog.Logger
}

// NewEvaluator creates an evaluator using the given whitelist.
func NewEvaluator(wl *capability.Whitelist, mode Mode) *Evaluator {
	return &Evaluator{Whitelist: wl, Mode: mode}
}

var defaultEvaluator = &Evaluator{Whitelist: capability.Default()}

// Evaluate evaluates node with the default evaluator: soft mode and the
// built-in intrinsics whitelist. A nil scope is treated as empty.
func Evaluate(node Node, scope Scope, funcs Functions) (types.Value, error) {
	return defaultEvaluator.Evaluate(node, scope, funcs)
}

// EvaluateTree evaluates the expression of a parsed tree with the default
// evaluator.
func EvaluateTree(tree *Tree, scope Scope, funcs Functions) (types.Value, error) {
	return defaultEvaluator.EvaluateTree(tree, scope, funcs)
}

// Evaluate evaluates node against scope and funcs.
func (e *Evaluator) Evaluate(node Node, scope Scope, funcs Functions) (types.Value, error) {
	if scope == nil {
		scope = MapScope{}
	}
	return e.eval(node, scope, funcs)
}

// EvaluateTree evaluates tree.Expr(). An empty tree evaluates to null.
func (e *Evaluator) EvaluateTree(tree *Tree, scope Scope, funcs Functions) (types.Value, error) {
	return e.Evaluate(tree.Expr(), scope, funcs)
}

func (e *Evaluator) logger() *slog.Logger {
	if e.Logger != nil {
		return e.Logger
	}
	return slog.Default()
}

func (e *Evaluator) eval(node Node, scope Scope, funcs Functions) (types.Value, error) {
	switch n := node.(type) {
	case nil:
		return types.Null, nil
	case *Literal:
		// Constant containers are shared by every evaluation of the tree.
		return n.Value.Clone(), nil
	case *Variable:
		v, _, err := e.Read(n.Path, scope, funcs)
		return v, err
	case *Array:
		return e.evalArray(n, scope, funcs)
	case *Map:
		return e.evalMap(n, scope, funcs)
	case *BinaryOp:
		return e.evalBinary(n, scope, funcs)
	case *Ternary:
		cond, err := e.eval(n.Cond, scope, funcs)
		if err != nil {
			return types.Null, err
		}
		if cond.Truthy() {
			return e.eval(n.IfTrue, scope, funcs)
		}
		return e.eval(n.IfFalse, scope, funcs)
	case *Call:
		return e.evalCall(n, scope, funcs)
	case *BraceOpenMarker:
		return types.Null, nil
	default:
		return types.Null, fmt.Errorf("unsupported expression node type: %T", node)
	}
}

func (e *Evaluator) evalArray(n *Array, scope Scope, funcs Functions) (types.Value, error) {
	if !n.Dynamic {
		return n.Value.Clone(), nil
	}
	items := n.Value.Clone().AsList()
	for _, i := range n.DynamicIndices {
		v, err := e.eval(n.Elements[i], scope, funcs)
		if err != nil {
			return types.Null, err
		}
		items[i] = v
	}
	return types.NewList(items), nil
}

func (e *Evaluator) evalMap(n *Map, scope Scope, funcs Functions) (types.Value, error) {
	if !n.Dynamic {
		return n.Value.Clone(), nil
	}
	if len(n.DynamicEntries) > 0 {
		return e.evalMapInOrder(n, scope, funcs)
	}
	m := n.Value.Clone().AsMap()

	pending := make(map[string]bool, len(n.DynamicKeys))
	for _, k := range n.DynamicKeys {
		pending[k] = true
	}
	for _, entry := range n.Entries {
		key, ok := constKey(entry.Key)
		if !ok || !pending[key] {
			continue
		}
		v, err := e.eval(entry.Value, scope, funcs)
		if err != nil {
			return types.Null, err
		}
		m.Set(key, v)
	}
	return types.NewMap(m), nil
}

// evalMapInOrder builds a map whose keys are not all known before
// evaluation. Entries are applied in source order so a key keeps the
// position of its first occurrence and the value of its last.
func (e *Evaluator) evalMapInOrder(n *Map, scope Scope, funcs Functions) (types.Value, error) {
	m := types.NewOrderedMap()
	for _, entry := range n.Entries {
		key, ok := constKey(entry.Key)
		if !ok {
			kv, err := e.eval(entry.Key, scope, funcs)
			if err != nil {
				return types.Null, err
			}
			if key, ok = keyString(kv); !ok {
				return types.Null, types.NewOperatorTypeError(fmt.Sprintf("map key must be a scalar, got %s", kv.Type()))
			}
		}
		v, err := e.eval(entry.Value, scope, funcs)
		if err != nil {
			return types.Null, err
		}
		m.Set(key, v)
	}
	return types.NewMap(m), nil
}

func (e *Evaluator) evalBinary(n *BinaryOp, scope Scope, funcs Functions) (types.Value, error) {
	switch n.Op {
	case "&&", "||":
		left, err := e.eval(n.Left, scope, funcs)
		if err != nil {
			return types.Null, err
		}
		if left.Truthy() == (n.Op == "||") {
			return left, nil
		}
		return e.eval(n.Right, scope, funcs)

	case "=":
		return e.assign(n, scope, funcs)

	case "==", "!=":
		other, ok := emptyOperand(n)
		if !ok {
			break
		}
		v, err := e.eval(other, scope, funcs)
		if err != nil {
			return types.Null, err
		}
		return types.NewBool(v.IsEmpty() == (n.Op == "==")), nil
	}

	left, err := e.eval(n.Left, scope, funcs)
	if err != nil {
		return types.Null, err
	}
	right, err := e.eval(n.Right, scope, funcs)
	if err != nil {
		return types.Null, err
	}
	return ApplyOperator(n.Op, left, right)
}

// emptyOperand returns the other side of a comparison against the bare
// identifier empty.
func emptyOperand(n *BinaryOp) (Node, bool) {
	if isEmptyWord(n.Right) {
		return n.Left, true
	}
	if isEmptyWord(n.Left) {
		return n.Right, true
	}
	return nil, false
}

func isEmptyWord(n Node) bool {
	v, ok := n.(*Variable)
	return ok && v.Path.Root == "empty" && len(v.Path.Segments) == 0
}

func (e *Evaluator) assign(n *BinaryOp, scope Scope, funcs Functions) (types.Value, error) {
	target, ok := n.Left.(*Variable)
	if !ok {
		return types.Null, types.NewOperatorTypeError(fmt.Sprintf("cannot assign to %s", NodeType(n.Left)))
	}
	v, err := e.eval(n.Right, scope, funcs)
	if err != nil {
		return types.Null, err
	}
	written, err := e.Write(target.Path, scope, funcs, v)
	if err != nil {
		return types.Null, err
	}
	return types.NewBool(written), nil
}

func (e *Evaluator) evalCall(n *Call, scope Scope, funcs Functions) (types.Value, error) {
	key := n.Key()
	h, ok := lookup(funcs, key, n.Namespace+":")
	if !ok {
		err := types.NewUnknownFunctionError(key)
		if s, ok := funcs.(suggester); ok {
			err.Suggestions = s.Suggest(key)
		}
		e.logger().Debug("unknown function", "function", key)
		return types.Null, err
	}

	args := make([]types.Value, len(n.Args))
	for i, arg := range n.Args {
		v, err := e.eval(arg, scope, funcs)
		if err != nil {
			return types.Null, err
		}
		args[i] = v
	}

	result, err := h.Call(n.Name, args)
	if err != nil {
		var exprErr *types.ExprError
		if errors.As(err, &exprErr) {
			return types.Null, err
		}
		return types.Null, fmt.Errorf("%s: %w", key, err)
	}
	return result, nil
}

func lookup(funcs Functions, keys ...string) (Handler, bool) {
	if funcs == nil {
		return nil, false
	}
	for _, k := range keys {
		if h, ok := funcs.Lookup(k); ok && h != nil {
			return h, true
		}
	}
	return nil, false
}

// constKey returns the map key of a constant key node.
func constKey(n Node) (string, bool) {
	lit, ok := n.(*Literal)
	if !ok {
		return "", false
	}
	return keyString(lit.Value)
}
