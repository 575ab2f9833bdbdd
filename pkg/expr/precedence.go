package expr

// Precedence levels; higher binds tighter.
const (
	precAssign = iota + 1
	precTernary
	precOr
	precAnd
	precBitOr
	precBitXor
	precBitAnd
	precEquality
	precCompare
	precAdditive
	precShift
	precMultiplicative
)

var precedence = map[string]int{
	"*": precMultiplicative, "/": precMultiplicative, "%": precMultiplicative,
	"<<": precShift, ">>": precShift,
	"+": precAdditive, "-": precAdditive,
	"<": precCompare, ">": precCompare, "<=": precCompare, ">=": precCompare,
	"==": precEquality, "===": precEquality, "!=": precEquality, "=~": precEquality, "!=~": precEquality,
	"&":  precBitAnd,
	"^":  precBitXor,
	"|":  precBitOr,
	"&&": precAnd,
	"||": precOr,
	"?":  precTernary,
	"=":  precAssign,
}

// Precedence returns the binding strength of op, or 0 if op is unknown.
func Precedence(op string) int {
	return precedence[op]
}

func rightAssociative(op string) bool {
	return op == "="
}

// binds reports whether op placed to the right of existing takes existing's
// right operand as its own left operand.
func binds(op, existing string) bool {
	p, q := Precedence(op), Precedence(existing)
	return p > q || (p == q && rightAssociative(op))
}

// InsertOperator adds op to tree with operand as its right-hand side
// (operand may be nil while the parser waits for it). It walks the right
// spine of ungrouped BinaryOps, descending while op binds tighter than the
// node it meets, and splices BinaryOp(op, subtree, operand) in place of the
// subtree where the walk stopped. A looser or equal operator therefore wraps
// the whole spine. Grouped nodes are opaque.
//
// It returns the new root and the inserted node.
func InsertOperator(tree Node, op string, operand Node) (Node, *BinaryOp) {
	var parent *BinaryOp
	cur := tree
	for {
		b, ok := cur.(*BinaryOp)
		if !ok || b.Grouped || b.Right == nil || !binds(op, b.Op) {
			break
		}
		parent = b
		cur = b.Right
	}

	inserted := &BinaryOp{Op: op, Left: cur, Right: operand}
	if parent == nil {
		return inserted, inserted
	}
	parent.Right = inserted
	return tree, inserted
}

// spineSlot finds where a ternary '?' attaches: the deepest right-spine
// position reached by descending through operators looser than the ternary.
// It returns the BinaryOp whose Right is the condition, or nil if the whole
// tree is the condition.
func spineSlot(tree Node) *BinaryOp {
	var parent *BinaryOp
	cur := tree
	for {
		b, ok := cur.(*BinaryOp)
		if !ok || b.Grouped || b.Right == nil || !binds("?", b.Op) {
			return parent
		}
		parent = b
		cur = b.Right
	}
}
