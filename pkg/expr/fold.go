package expr

import (
	"github.com/lemonberrylabs/eggexpr/pkg/types"
)

// NewArray builds an array node, recording which elements are not literals.
func NewArray(elements []Node) *Array {
	values := make([]types.Value, len(elements))
	a := &Array{Elements: elements}
	for i, el := range elements {
		if lit, ok := el.(*Literal); ok {
			values[i] = lit.Value
			continue
		}
		values[i] = types.Null
		a.DynamicIndices = append(a.DynamicIndices, i)
	}
	a.Dynamic = len(a.DynamicIndices) > 0
	a.Value = types.NewList(values)
	return a
}

// NewMap builds a map node. Constant entries are collected into the template
// value in source order; a later constant entry for a key replaces any
// earlier dynamic one. Maps with computed keys are rebuilt in source order
// at evaluation and do not use the template.
func NewMap(entries []MapEntry) *Map {
	m := &Map{Entries: entries}
	tpl := types.NewOrderedMap()
	for i, entry := range entries {
		key, ok := constKey(entry.Key)
		if !ok {
			m.DynamicEntries = append(m.DynamicEntries, i)
			continue
		}
		if lit, ok := entry.Value.(*Literal); ok {
			tpl.Set(key, lit.Value)
			m.DynamicKeys = removeKey(m.DynamicKeys, key)
			continue
		}
		tpl.Set(key, types.Null)
		if !containsKey(m.DynamicKeys, key) {
			m.DynamicKeys = append(m.DynamicKeys, key)
		}
	}
	m.Dynamic = len(m.DynamicKeys) > 0 || len(m.DynamicEntries) > 0
	m.Value = types.NewMap(tpl)
	return m
}

// Fold pre-evaluates the parts of node that depend on no variable or
// function. It returns a new tree; node is not modified. dynamic reports
// whether the result still needs evaluation.
func Fold(node Node) (result Node, dynamic bool) {
	switch n := node.(type) {
	case nil:
		return nil, false

	case *Literal:
		return n, false

	case *Variable, *BraceOpenMarker:
		_, marker := n.(*BraceOpenMarker)
		return n, !marker

	case *BinaryOp:
		return foldBinary(n)

	case *Ternary:
		cond, _ := Fold(n.Cond)
		if lit, ok := cond.(*Literal); ok {
			if lit.Value.Truthy() {
				return Fold(n.IfTrue)
			}
			return Fold(n.IfFalse)
		}
		t, _ := Fold(n.IfTrue)
		f, _ := Fold(n.IfFalse)
		return &Ternary{Cond: cond, IfTrue: t, IfFalse: f}, true

	case *Call:
		args := make([]Node, len(n.Args))
		for i, arg := range n.Args {
			args[i], _ = Fold(arg)
		}
		return &Call{Namespace: n.Namespace, Name: n.Name, Args: args}, true

	case *Array:
		elements := make([]Node, len(n.Elements))
		for i, el := range n.Elements {
			elements[i], _ = Fold(el)
		}
		a := NewArray(elements)
		if !a.Dynamic {
			return &Literal{Value: a.Value}, false
		}
		return a, true

	case *Map:
		entries := make([]MapEntry, len(n.Entries))
		for i, entry := range n.Entries {
			k, _ := Fold(entry.Key)
			v, _ := Fold(entry.Value)
			entries[i] = MapEntry{Key: k, Value: v}
		}
		m := NewMap(entries)
		if !m.Dynamic {
			return &Literal{Value: m.Value}, false
		}
		return m, true
	}
	return node, true
}

func foldBinary(n *BinaryOp) (Node, bool) {
	if n.Op == "=" {
		right, _ := Fold(n.Right)
		return &BinaryOp{Op: n.Op, Left: n.Left, Right: right, Grouped: n.Grouped}, true
	}

	left, _ := Fold(n.Left)
	right, _ := Fold(n.Right)
	l, lok := left.(*Literal)
	r, rok := right.(*Literal)

	if (n.Op == "&&" || n.Op == "||") && lok {
		if l.Value.Truthy() == (n.Op == "||") {
			return l, false
		}
		_, isLit := right.(*Literal)
		return right, !isLit
	}

	if lok && rok {
		v, err := ApplyOperator(n.Op, l.Value, r.Value)
		if err == nil {
			return &Literal{Value: v}, false
		}
	}
	return &BinaryOp{Op: n.Op, Left: left, Right: right, Grouped: n.Grouped}, true
}

// FoldTree folds every node of tree into a new tree.
func FoldTree(tree *Tree) *Tree {
	if tree == nil {
		return nil
	}
	out := &Tree{Source: tree.Source, Nodes: make([]Node, len(tree.Nodes))}
	for i, n := range tree.Nodes {
		out.Nodes[i], _ = Fold(n)
	}
	return out
}

func containsKey(keys []string, key string) bool {
	for _, k := range keys {
		if k == key {
			return true
		}
	}
	return false
}

func removeKey(keys []string, key string) []string {
	out := keys[:0]
	for _, k := range keys {
		if k != key {
			out = append(out, k)
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}
