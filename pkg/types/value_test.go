package types

import (
	"errors"
	"fmt"
	"strings"
	"testing"
)

func TestEquality(t *testing.T) {
	list := func(vs ...Value) Value { return NewList(vs) }
	tests := []struct {
		a, b          Value
		equal, strict bool
	}{
		{NewInt(1), NewDouble(1), true, false},
		{NewInt(1), NewString("1"), false, false},
		{Null, Null, true, true},
		{NewBool(false), Null, false, false},
		{list(NewInt(1), NewDouble(2)), list(NewDouble(1), NewInt(2)), true, false},
		{
			NewMap(NewOrderedMapFromPairs("a", NewInt(1), "b", NewInt(2))),
			NewMap(NewOrderedMapFromPairs("b", NewInt(2), "a", NewInt(1))),
			true, true,
		},
	}
	for _, tt := range tests {
		t.Run(fmt.Sprintf("%v/%v", tt.a, tt.b), func(t *testing.T) {
			if got := tt.a.Equal(tt.b); got != tt.equal {
				t.Errorf("Equal = %v, want %v", got, tt.equal)
			}
			if got := tt.a.StrictEqual(tt.b); got != tt.strict {
				t.Errorf("StrictEqual = %v, want %v", got, tt.strict)
			}
		})
	}
}

func TestStringAndEmpty(t *testing.T) {
	tests := []struct {
		v     Value
		str   string
		empty bool
	}{
		{Null, "null", true},
		{NewBool(false), "false", true},
		{NewString(""), "", true},
		{NewInt(0), "0", false},
		{NewDouble(2), "2.0", false},
		{NewDouble(0.25), "0.25", false},
		{NewList([]Value{NewInt(1), NewString("a")}), "[1, a]", false},
		{NewMap(NewOrderedMapFromPairs("k", NewBool(true))), "{k: true}", false},
	}
	for _, tt := range tests {
		if got := tt.v.String(); got != tt.str {
			t.Errorf("String() = %q, want %q", got, tt.str)
		}
		if got := tt.v.IsEmpty(); got != tt.empty {
			t.Errorf("%q IsEmpty = %v, want %v", tt.str, got, tt.empty)
		}
	}
}

func TestCloneIsDeep(t *testing.T) {
	inner := NewOrderedMapFromPairs("x", NewInt(1))
	orig := NewList([]Value{NewMap(inner)})
	c := orig.Clone()
	c.AsList()[0].AsMap().Set("x", NewInt(2))
	if v, _ := inner.Get("x"); !v.Equal(NewInt(1)) {
		t.Errorf("clone shared nested map: x = %v", v)
	}
}

func TestParseJSON(t *testing.T) {
	v, err := ParseJSON([]byte(`{"z": 1, "a": [true, null, 2.5, "s"], "m": {"y": 1, "b": 2}}`))
	if err != nil {
		t.Fatal(err)
	}
	if got := strings.Join(v.AsMap().Keys(), ","); got != "z,a,m" {
		t.Errorf("keys = %s", got)
	}
	if got := v.String(); got != "{z: 1, a: [true, null, 2.5, s], m: {y: 1, b: 2}}" {
		t.Errorf("String = %s", got)
	}
	z, _ := v.AsMap().Get("z")
	if z.Type() != TypeInt {
		t.Errorf("z type = %s", z.Type())
	}

	b, err := v.MarshalJSON()
	if err != nil {
		t.Fatal(err)
	}
	if string(b) != `{"z":1,"a":[true,null,2.5,"s"],"m":{"y":1,"b":2}}` {
		t.Errorf("MarshalJSON = %s", b)
	}

	for _, bad := range []string{`{`, `[1,]`, `1 2`, ``} {
		if _, err := ParseJSON([]byte(bad)); err == nil {
			t.Errorf("ParseJSON(%q) succeeded", bad)
		}
	}
}

func TestExprError(t *testing.T) {
	err := NewSyntaxError(4, "unexpected %q", ")")
	if got := err.Error(); got != `SyntaxError: unexpected ")" (at offset 4)` {
		t.Errorf("Error() = %s", got)
	}

	dz := NewDivideByZeroError("/")
	if dz.Kind() != TagOperatorTypeError || !dz.HasTag(TagDivideByZero) {
		t.Errorf("tags = %v", dz.Tags)
	}

	uf := NewUnknownFunctionError(":lenght")
	uf.Suggestions = []string{"length"}
	if !strings.HasSuffix(uf.Error(), "did you mean length?") {
		t.Errorf("Error() = %s", uf.Error())
	}

	var wrapped error = fmt.Errorf("outer: %w", NewArgumentError("bad"))
	var exprErr *ExprError
	if !errors.As(wrapped, &exprErr) || exprErr.Kind() != TagArgumentError {
		t.Errorf("errors.As failed for %v", wrapped)
	}

	m := dz.ToValue().AsMap()
	if _, ok := m.Get("pos"); ok {
		t.Error("non-syntax error carries a pos")
	}
}
