package expr

import (
	"github.com/lemonberrylabs/eggexpr/pkg/types"
)

// Describe renders a node as a map value for display and transport. Every
// map carries a "type" key naming the node variant.
func Describe(n Node) types.Value {
	m := types.NewOrderedMap()
	m.Set("type", types.NewString(NodeType(n)))
	switch n := n.(type) {
	case nil:
		return types.Null
	case *Literal:
		m.Set("value", n.Value)
	case *Variable:
		m.Set("path", types.NewString(n.Path.String()))
	case *Array:
		m.Set("dynamic", types.NewBool(n.Dynamic))
		m.Set("elements", describeAll(n.Elements))
	case *Map:
		m.Set("dynamic", types.NewBool(n.Dynamic))
		entries := make([]types.Value, len(n.Entries))
		for i, e := range n.Entries {
			entries[i] = types.NewMap(types.NewOrderedMapFromPairs(
				"key", Describe(e.Key),
				"value", Describe(e.Value),
			))
		}
		m.Set("entries", types.NewList(entries))
	case *BinaryOp:
		m.Set("op", types.NewString(n.Op))
		m.Set("left", Describe(n.Left))
		m.Set("right", Describe(n.Right))
		if n.Grouped {
			m.Set("grouped", types.NewBool(true))
		}
	case *Ternary:
		m.Set("cond", Describe(n.Cond))
		m.Set("then", Describe(n.IfTrue))
		m.Set("else", Describe(n.IfFalse))
	case *Call:
		m.Set("namespace", types.NewString(n.Namespace))
		m.Set("name", types.NewString(n.Name))
		m.Set("args", describeAll(n.Args))
	case *BraceOpenMarker:
		m.Set("delimiter", types.NewString(n.Delimiter))
	}
	return types.NewMap(m)
}

// DescribeTree describes the expression of tree, or returns null for empty
// input.
func DescribeTree(tree *Tree) types.Value {
	if e := tree.Expr(); e != nil {
		return Describe(e)
	}
	return types.Null
}

func describeAll(nodes []Node) types.Value {
	out := make([]types.Value, len(nodes))
	for i, n := range nodes {
		out[i] = Describe(n)
	}
	return types.NewList(out)
}
