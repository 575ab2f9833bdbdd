package expr

import (
	"fmt"
	"math"
	"regexp"
	"strings"

	"github.com/lemonberrylabs/eggexpr/pkg/types"
)

// ApplyOperator applies a binary operator to two evaluated operands. The
// short-circuit operators and assignment are handled by the evaluator and are
// not accepted here.
func ApplyOperator(op string, left, right types.Value) (types.Value, error) {
	switch op {
	case "==":
		return types.NewBool(left.Equal(right)), nil
	case "!=":
		return types.NewBool(!left.Equal(right)), nil
	case "===":
		return types.NewBool(left.StrictEqual(right)), nil
	case "=~", "!=~":
		return regexMatch(op, left, right)
	case "<", ">", "<=", ">=":
		return compareOp(op, left, right)
	case "+":
		return addOp(left, right)
	case "-":
		return subOp(left, right)
	case "*":
		return mulOp(left, right)
	case "/", "%", "<<", ">>":
		return arith(op, left, right)
	case "&", "|", "^":
		if left.Type() == types.TypeBool && right.Type() == types.TypeBool {
			return boolBitwise(op, left.AsBool(), right.AsBool()), nil
		}
		return arith(op, left, right)
	}
	return types.Null, types.NewOperatorTypeError(fmt.Sprintf("unknown operator %q", op))
}

func typeError(op string, left, right types.Value) error {
	return types.NewOperatorTypeError(fmt.Sprintf("operator %q not supported between %s and %s", op, left.Type(), right.Type()))
}

func addOp(left, right types.Value) (types.Value, error) {
	switch left.Type() {
	case types.TypeString:
		return types.NewString(left.AsString() + right.String()), nil
	case types.TypeList:
		if right.Type() != types.TypeList {
			return types.Null, typeError("+", left, right)
		}
		out := make([]types.Value, 0, len(left.AsList())+len(right.AsList()))
		out = append(out, left.AsList()...)
		out = append(out, right.AsList()...)
		return types.NewList(out), nil
	}
	return arith("+", left, right)
}

func subOp(left, right types.Value) (types.Value, error) {
	if left.Type() == types.TypeList {
		if right.Type() != types.TypeList {
			return types.Null, typeError("-", left, right)
		}
		var out []types.Value
		for _, item := range left.AsList() {
			if !containsValue(right.AsList(), item) {
				out = append(out, item)
			}
		}
		if out == nil {
			out = []types.Value{}
		}
		return types.NewList(out), nil
	}
	return arith("-", left, right)
}

// MaxRepeatLen bounds the length of a repeated string (in bytes) or list (in
// elements).
const MaxRepeatLen = 1 << 24

func mulOp(left, right types.Value) (types.Value, error) {
	switch left.Type() {
	case types.TypeString, types.TypeList:
		if right.Type() != types.TypeInt || right.AsInt() < 0 {
			return types.Null, typeError("*", left, right)
		}
		n := right.AsInt()
		var size int64
		if left.Type() == types.TypeString {
			size = int64(len(left.AsString()))
		} else {
			size = int64(len(left.AsList()))
		}
		if size > 0 && n > MaxRepeatLen/size {
			return types.Null, types.NewOperatorTypeError(fmt.Sprintf("repeating %s of length %d by %d exceeds %d", left.Type(), size, n, MaxRepeatLen))
		}
		if size == 0 || n == 0 {
			if left.Type() == types.TypeString {
				return types.NewString(""), nil
			}
			return types.NewList([]types.Value{}), nil
		}
		if left.Type() == types.TypeString {
			return types.NewString(strings.Repeat(left.AsString(), int(n))), nil
		}
		items := left.AsList()
		out := make([]types.Value, 0, size*n)
		for range n {
			out = append(out, items...)
		}
		return types.NewList(out), nil
	}
	return arith("*", left, right)
}

// arith applies a numeric operator. Two ints stay integral; any double
// operand makes the result a double.
func arith(op string, left, right types.Value) (types.Value, error) {
	if !left.IsNumber() || !right.IsNumber() {
		return types.Null, typeError(op, left, right)
	}

	if left.Type() == types.TypeInt && right.Type() == types.TypeInt {
		a, b := left.AsInt(), right.AsInt()
		switch op {
		case "+":
			return types.NewInt(a + b), nil
		case "-":
			return types.NewInt(a - b), nil
		case "*":
			return types.NewInt(a * b), nil
		case "/", "%":
			if b == 0 {
				return types.Null, types.NewDivideByZeroError(op)
			}
			if op == "/" {
				return types.NewInt(a / b), nil
			}
			return types.NewInt(a % b), nil
		case "<<", ">>":
			if b < 0 {
				return types.Null, types.NewOperatorTypeError(fmt.Sprintf("negative shift count %d", b))
			}
			if op == "<<" {
				return types.NewInt(a << uint64(b)), nil
			}
			return types.NewInt(a >> uint64(b)), nil
		case "&":
			return types.NewInt(a & b), nil
		case "|":
			return types.NewInt(a | b), nil
		case "^":
			return types.NewInt(a ^ b), nil
		}
		return types.Null, typeError(op, left, right)
	}

	a, _ := left.AsNumber()
	b, _ := right.AsNumber()
	switch op {
	case "+":
		return types.NewDouble(a + b), nil
	case "-":
		return types.NewDouble(a - b), nil
	case "*":
		return types.NewDouble(a * b), nil
	case "/":
		if b == 0 {
			return types.Null, types.NewDivideByZeroError(op)
		}
		return types.NewDouble(a / b), nil
	case "%":
		if b == 0 {
			return types.Null, types.NewDivideByZeroError(op)
		}
		return types.NewDouble(math.Mod(a, b)), nil
	}
	// Shifts and bitwise operators are integral only.
	return types.Null, typeError(op, left, right)
}

func boolBitwise(op string, a, b bool) types.Value {
	switch op {
	case "&":
		return types.NewBool(a && b)
	case "|":
		return types.NewBool(a || b)
	default:
		return types.NewBool(a != b)
	}
}

func compareOp(op string, left, right types.Value) (types.Value, error) {
	var c int
	switch {
	case left.IsNumber() && right.IsNumber():
		a, _ := left.AsNumber()
		b, _ := right.AsNumber()
		switch {
		case a < b:
			c = -1
		case a > b:
			c = 1
		}
	case left.Type() == types.TypeString && right.Type() == types.TypeString:
		c = strings.Compare(left.AsString(), right.AsString())
	default:
		return types.Null, typeError(op, left, right)
	}

	switch op {
	case "<":
		return types.NewBool(c < 0), nil
	case ">":
		return types.NewBool(c > 0), nil
	case "<=":
		return types.NewBool(c <= 0), nil
	default:
		return types.NewBool(c >= 0), nil
	}
}

// regexMatch implements =~ and !=~. The right operand is a regular
// expression; if it does not compile it is searched for as a plain substring.
// =~ yields the byte offset of the first match or null.
func regexMatch(op string, left, right types.Value) (types.Value, error) {
	if right.Type() != types.TypeString {
		return types.Null, typeError(op, left, right)
	}
	idx := -1
	switch left.Type() {
	case types.TypeNull:
	case types.TypeString:
		idx = matchIndex(left.AsString(), right.AsString())
	default:
		return types.Null, typeError(op, left, right)
	}

	if op == "!=~" {
		return types.NewBool(idx < 0), nil
	}
	if idx < 0 {
		return types.Null, nil
	}
	return types.NewInt(int64(idx)), nil
}

func matchIndex(s, pattern string) int {
	re, err := regexp.Compile(pattern)
	if err != nil {
		return strings.Index(s, pattern)
	}
	loc := re.FindStringIndex(s)
	if loc == nil {
		return -1
	}
	return loc[0]
}

func containsValue(list []types.Value, v types.Value) bool {
	for _, item := range list {
		if item.Equal(v) {
			return true
		}
	}
	return false
}
