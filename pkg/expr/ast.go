package expr

import (
	"github.com/lemonberrylabs/eggexpr/pkg/types"
)

// Node is an expression tree node. The set of node types is closed.
type Node interface {
	nodeType() string
}

// Literal is a self-evaluating value. After folding it may hold a constant
// list or map.
type Literal struct {
	Value types.Value
}

func (n *Literal) nodeType() string { return "Literal" }

// Variable is a reference resolved at evaluation time.
type Variable struct {
	Path *Path
}

func (n *Variable) nodeType() string { return "Variable" }

// Array is a list literal. Value holds the constant elements with null in
// the positions listed by DynamicIndices.
type Array struct {
	Elements       []Node
	Dynamic        bool
	DynamicIndices []int
	Value          types.Value
}

func (n *Array) nodeType() string { return "Array" }

// MapEntry is one key/value pair of a map literal.
type MapEntry struct {
	Key   Node
	Value Node
}

// Map is a map literal. Value holds every entry whose key is constant, in
// source order; entries whose value is dynamic hold null there and their keys
// are listed in DynamicKeys. Entries whose key is itself dynamic are listed by
// index in DynamicEntries and are applied after the template.
type Map struct {
	Entries        []MapEntry
	Dynamic        bool
	DynamicKeys    []string
	DynamicEntries []int
	Value          types.Value
}

func (n *Map) nodeType() string { return "Map" }

// BinaryOp applies Op to Left and Right. Grouped marks a parenthesized
// expression; operator insertion never looks inside it.
type BinaryOp struct {
	Op      string
	Left    Node
	Right   Node
	Grouped bool
}

func (n *BinaryOp) nodeType() string { return "BinaryOp" }

// Ternary is cond ? IfTrue : IfFalse.
type Ternary struct {
	Cond    Node
	IfTrue  Node
	IfFalse Node
}

func (n *Ternary) nodeType() string { return "Ternary" }

// Call invokes the handler registered for Namespace:Name. The root namespace
// is the empty string.
type Call struct {
	Namespace string
	Name      string
	Args      []Node
}

func (n *Call) nodeType() string { return "Call" }

// Key returns the function table key, "ns:name".
func (n *Call) Key() string {
	return n.Namespace + ":" + n.Name
}

// BraceOpenMarker trails a top-level call that opens a block with an
// unbalanced '{'. Delimiter is the raw remainder of the source starting at
// the brace. It is never evaluated.
type BraceOpenMarker struct {
	Delimiter string
}

func (n *BraceOpenMarker) nodeType() string { return "BraceOpenMarker" }

// Tree is the result of parsing one source string.
type Tree struct {
	Source string
	Nodes  []Node
}

// Expr returns the expression to evaluate, or nil for empty input.
func (t *Tree) Expr() Node {
	if t == nil {
		return nil
	}
	for _, n := range t.Nodes {
		if _, ok := n.(*BraceOpenMarker); !ok {
			return n
		}
	}
	return nil
}

// Marker returns the trailing brace-open marker, if any.
func (t *Tree) Marker() *BraceOpenMarker {
	if t == nil {
		return nil
	}
	for _, n := range t.Nodes {
		if m, ok := n.(*BraceOpenMarker); ok {
			return m
		}
	}
	return nil
}

// NodeType returns the variant name of a node.
func NodeType(n Node) string {
	if n == nil {
		return ""
	}
	return n.nodeType()
}
