package expr

import (
	"reflect"
	"testing"

	"github.com/lemonberrylabs/eggexpr/pkg/types"
)

func TestFoldConstants(t *testing.T) {
	tests := []struct {
		input    string
		want     string
		nodeType string
	}{
		{"1 + 2 * 3", "7", "Literal"},
		{"'a' + 'b'", `"ab"`, "Literal"},
		{"-5", "-5", "Literal"},
		{"(1 + 2) * 3", "9", "Literal"},
		{"1 > 2 ? 'x' : 'y'", `"y"`, "Literal"},
		{"true ? 1 : x", "1", "Literal"},
		{"false ? x : 2 + 2", "4", "Literal"},
		{"true && x", "x", "Variable"},
		{"false && x", "false", "Literal"},
		{"null || x", "x", "Variable"},
		{"[1, 2 + 3]", "[1, 5]", "Literal"},
		{"{a: 1 + 1}", "{a: 2}", "Literal"},
		{"x + 1 * 2", "(+ x 2)", "BinaryOp"},
		{"1 / 0", "(/ 1 0)", "BinaryOp"},
		{"f(1 + 1, x)", ":f(2, x)", "Call"},
		{"x = 1 + 1", "(= x 2)", "BinaryOp"},
		{"c ? 1 + 1 : x", "(? c 2 x)", "Ternary"},
		{"'' == empty", `(== "" empty)`, "BinaryOp"},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			folded, _ := Fold(mustParse(t, tt.input))
			if got := NodeType(folded); got != tt.nodeType {
				t.Errorf("node type = %s, want %s", got, tt.nodeType)
			}
			got := sexpr(folded)
			if lit, ok := folded.(*Literal); ok && lit.Value.Type() != types.TypeString {
				got = lit.Value.String()
			}
			if got != tt.want {
				t.Errorf("got %s, want %s", got, tt.want)
			}
		})
	}
}

func TestFoldDynamicTracking(t *testing.T) {
	folded, dynamic := Fold(mustParse(t, "[1, x, 2 + 2, f()]"))
	if !dynamic {
		t.Fatal("array with variables reported constant")
	}
	arr := folded.(*Array)
	if !arr.Dynamic || !reflect.DeepEqual(arr.DynamicIndices, []int{1, 3}) {
		t.Errorf("dynamic indices = %v", arr.DynamicIndices)
	}
	if v := arr.Value.AsList()[2]; !v.Equal(types.NewInt(4)) {
		t.Errorf("template[2] = %v, want 4", v)
	}

	folded, _ = Fold(mustParse(t, "{a: 1, b: x, (k): 2, c: [y]}"))
	m := folded.(*Map)
	if !reflect.DeepEqual(m.DynamicKeys, []string{"b", "c"}) {
		t.Errorf("dynamic keys = %v", m.DynamicKeys)
	}
	if !reflect.DeepEqual(m.DynamicEntries, []int{2}) {
		t.Errorf("dynamic entries = %v", m.DynamicEntries)
	}

	_, dynamic = Fold(mustParse(t, "[1, [2, {a: 3}]]"))
	if dynamic {
		t.Error("nested constant containers reported dynamic")
	}
}

func TestFoldEquivalence(t *testing.T) {
	constant := []string{
		"1 + 5 * 3",
		"6 * (2 + 5 * 2 - 1 + (10/2))",
		"(6*3) > (2*5)",
		"'' == empty",
		"('aa' =~ 'a') != empty",
		"'ab' =~ 'c'",
		"[1, 2] + [3] - [1]",
		"{a: [1, 2 * 3], b: 'x' * 2}",
		"1 == 1.0 && 1 === 1.0 || true",
		"true ? 1 << 3 : 0",
		"-(2 + 3) * -2",
		"7 % 3 ^ 6 | 8",
	}
	for _, src := range constant {
		t.Run(src, func(t *testing.T) {
			tree, err := Parse(src)
			if err != nil {
				t.Fatal(err)
			}
			want, err := EvaluateTree(tree, nil, nil)
			if err != nil {
				t.Fatal(err)
			}
			folded := FoldTree(tree)
			got, err := EvaluateTree(folded, MapScope{}, FuncMap{})
			if err != nil {
				t.Fatal(err)
			}
			if !got.StrictEqual(want) {
				t.Errorf("folded = %v, unfolded = %v", got, want)
			}
		})
	}

	scope := MapScope{
		"x": types.NewInt(4),
		"s": types.NewString("str"),
		"m": types.NewMap(types.NewOrderedMapFromPairs("k", types.NewInt(1))),
	}
	funcs := FuncMap{":twice": HandlerFunc(func(_ string, args []types.Value) (types.Value, error) {
		return ApplyOperator("*", args[0], types.NewInt(2))
	})}
	dynamicExprs := []string{
		"x * (2 + 3)",
		"twice(x + 1) - 1",
		"[x, 1 + 1, s + '!']",
		"{a: x, b: 2 * 2, (s): m.k}",
		"x > 3 ? s : 'no'",
		"m[s == 'str' ? 'k' : 'j']",
		"s =~ 't' == 1",
	}
	for _, src := range dynamicExprs {
		t.Run(src, func(t *testing.T) {
			tree, err := Parse(src)
			if err != nil {
				t.Fatal(err)
			}
			want, err := EvaluateTree(tree, scope, funcs)
			if err != nil {
				t.Fatal(err)
			}
			got, err := EvaluateTree(FoldTree(tree), scope, funcs)
			if err != nil {
				t.Fatal(err)
			}
			if !got.StrictEqual(want) {
				t.Errorf("folded = %v, unfolded = %v", got, want)
			}
		})
	}
}

func TestFoldIdempotent(t *testing.T) {
	for _, src := range []string{
		"1 + 2",
		"x + 1 * 2",
		"[1, x, {a: y, b: 2}]",
		"f(1 + 1) ? a : b",
		"{(k): 1, k: v}",
	} {
		once, _ := Fold(mustParse(t, src))
		twice, _ := Fold(once)
		if !reflect.DeepEqual(once, twice) {
			t.Errorf("%s: folding twice changed the tree: %s vs %s", src, sexpr(once), sexpr(twice))
		}
	}
}

func TestFoldDoesNotMutate(t *testing.T) {
	n := mustParse(t, "[1 + 1, x]")
	before := sexpr(n)
	Fold(n)
	if after := sexpr(n); after != before {
		t.Errorf("input changed from %s to %s", before, after)
	}
}
