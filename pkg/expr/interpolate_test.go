package expr

import (
	"reflect"
	"testing"

	"github.com/lemonberrylabs/eggexpr/pkg/types"
)

func TestRender(t *testing.T) {
	scope := MapScope{
		"name": types.NewString("World"),
		"n":    types.NewInt(3),
		"m":    types.NewMap(types.NewOrderedMapFromPairs("}", types.NewString("brace"))),
	}
	e := NewEvaluator(nil, ModeSoft)

	tests := []struct {
		input string
		want  string
		errs  int
	}{
		{"Hello ${name}!", "Hello World!", 0},
		{"${n} + 1 = ${n + 1}", "3 + 1 = 4", 0},
		{"plain text", "plain text", 0},
		{`\${name}`, "${name}", 0},
		{`a\b ${name}`, `a\b World`, 0},
		{"[${missing}]", "[]", 0},
		{"${null}", "", 0},
		{"${m['}']}", "brace", 0},
		{"${'{' + 'x'}", "{x", 0},
		{"${ {a: 1}.length }", "", 1},
		{"${n > 2 ? 'big' : 'small'}", "big", 0},
		{"${1 / 0} ok", " ok", 1},
		{"${nope()}${name}", "World", 1},
		{"${}", "", 0},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			tpl, err := ParseTemplate(tt.input, nil)
			if err != nil {
				t.Fatal(err)
			}
			got, errs := e.Render(tpl, scope, nil)
			if got != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
			if len(errs) != tt.errs {
				t.Errorf("got %d errors %v, want %d", len(errs), errs, tt.errs)
			}
		})
	}
}

func TestParseTemplateErrors(t *testing.T) {
	if _, err := ParseTemplate("a ${b", nil); err == nil {
		t.Error("unclosed section accepted")
	}
	if _, err := ParseTemplate("${'}", nil); err == nil {
		t.Error("section closed inside a string")
	}
}

func TestTemplateExpressions(t *testing.T) {
	tpl, err := ParseTemplate("x ${a} y ${ b + 1 } ${'c'}", nil)
	if err != nil {
		t.Fatal(err)
	}
	want := []string{"a", "b + 1", "'c'"}
	if got := tpl.Expressions(); !reflect.DeepEqual(got, want) {
		t.Errorf("got %v, want %v", got, want)
	}
}

func TestTemplateUsesParseFunc(t *testing.T) {
	var seen []string
	parse := func(src string) (*Tree, error) {
		seen = append(seen, src)
		return Parse(src)
	}
	if _, err := ParseTemplate("${a}${b}", parse); err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(seen, []string{"a", "b"}) {
		t.Errorf("parse called with %v", seen)
	}
}
