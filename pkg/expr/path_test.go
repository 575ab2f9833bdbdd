package expr

import (
	"errors"
	"testing"

	"github.com/lemonberrylabs/eggexpr/pkg/capability"
	"github.com/lemonberrylabs/eggexpr/pkg/types"
)

// varTest is a host object with one whitelisted getter/setter pair, a
// prefixed accessor pair and one accessor that is never whitelisted.
type varTest struct {
	value string
	name  string
}

func (v *varTest) HostType() string { return "VarTest" }

func (v *varTest) Get(name string) (types.Value, bool) {
	switch name {
	case "some_getter":
		return types.NewString(v.value), true
	case "get_name":
		return types.NewString(v.name), true
	case "length":
		return types.NewInt(int64(len(v.value))), true
	case "secret":
		return types.NewString("hidden"), true
	}
	return types.Null, false
}

func (v *varTest) Set(name string, val types.Value) bool {
	switch name {
	case "some_setter":
		v.value = val.String()
		return true
	case "set_name":
		v.name = val.String()
		return true
	case "secret":
		return true
	}
	return false
}

func hostFixture() (*Evaluator, MapScope, *varTest) {
	wl := capability.Default()
	wl.Register("VarTest", []string{"some_getter", "get_name"}, []string{"some_setter", "set_name"})
	wl.Register("Text", []string{"length"}, nil)
	wl.Alias("VarTest", "Text")

	vt := &varTest{value: "default_var"}
	scope := MapScope{
		"map": types.NewMap(types.NewOrderedMapFromPairs(
			"key1", types.NewString("val1"),
			"key2", types.NewString("val2"),
			"vartest", types.NewHost(vt),
		)),
	}
	return NewEvaluator(wl, ModeSoft), scope, vt
}

func TestHostAccess(t *testing.T) {
	e, scope, vt := hostFixture()

	read := func(src string) types.Value {
		t.Helper()
		v, err := e.Evaluate(mustParse(t, src), scope, nil)
		if err != nil {
			t.Fatalf("%s: %v", src, err)
		}
		return v
	}

	if got := read("map['vartest'].some_getter"); !got.Equal(types.NewString("default_var")) {
		t.Errorf("some_getter = %v", got)
	}

	if got := read("map['vartest'].some_setter = '!!!'"); !got.AsBool() {
		t.Fatal("some_setter write failed")
	}
	if vt.value != "!!!" {
		t.Errorf("value = %q, want !!!", vt.value)
	}
	if got := read("map['vartest'].some_getter"); !got.Equal(types.NewString("!!!")) {
		t.Errorf("some_getter after set = %v", got)
	}

	t.Run("alias grants inherited accessors", func(t *testing.T) {
		if got := read("map.vartest.length"); !got.Equal(types.NewInt(3)) {
			t.Errorf("length = %v, want 3", got)
		}
	})

	t.Run("prefixed accessors", func(t *testing.T) {
		if got := read("map.vartest.name = 'egg'"); !got.AsBool() {
			t.Fatal("set_name write failed")
		}
		if vt.name != "egg" {
			t.Errorf("name = %q", vt.name)
		}
		if got := read("map.vartest.name"); !got.Equal(types.NewString("egg")) {
			t.Errorf("name = %v", got)
		}
	})

	t.Run("unlisted accessors fail", func(t *testing.T) {
		if got := read("map.vartest.secret"); !got.IsNull() {
			t.Errorf("secret = %v, want null", got)
		}
		if got := read("map.vartest.secret = 1"); got.AsBool() {
			t.Error("write to unlisted setter succeeded")
		}
		if got := read("map.vartest.some_getter = 'x'"); got.AsBool() {
			t.Error("getter accepted a write")
		}
	})

	t.Run("strict mode", func(t *testing.T) {
		strict := NewEvaluator(e.Whitelist, ModeStrict)
		_, err := strict.Evaluate(mustParse(t, "map.vartest.secret"), scope, nil)
		var exprErr *types.ExprError
		if !errors.As(err, &exprErr) || !exprErr.HasTag(types.TagUndefinedVariable) {
			t.Errorf("error = %v, want UndefinedVariable", err)
		}
	})
}

func TestReadWriteDirect(t *testing.T) {
	e, scope, _ := hostFixture()

	p, err := ParsePath("map.key1")
	if err != nil {
		t.Fatal(err)
	}
	v, found, err := e.Read(p, scope, nil)
	if err != nil || !found || !v.Equal(types.NewString("val1")) {
		t.Errorf("Read = %v, %v, %v", v, found, err)
	}

	ok, err := e.Write(p, scope, nil, types.NewInt(7))
	if err != nil || !ok {
		t.Fatalf("Write = %v, %v", ok, err)
	}
	v, _, _ = e.Read(p, scope, nil)
	if !v.Equal(types.NewInt(7)) {
		t.Errorf("after write = %v", v)
	}

	missing, _ := ParsePath("map.nope.deeper")
	v, found, err = e.Read(missing, scope, nil)
	if err != nil || found || !v.IsNull() {
		t.Errorf("missing Read = %v, %v, %v", v, found, err)
	}
	ok, err = e.Write(missing, scope, nil, types.NewInt(1))
	if err != nil || ok {
		t.Errorf("missing Write = %v, %v", ok, err)
	}
	if scope["map"].AsMap().Has("nope") {
		t.Error("write created an intermediate container")
	}
}

func TestIntrinsicsFollowWhitelist(t *testing.T) {
	scope := MapScope{"s": types.NewString("abc")}
	e := NewEvaluator(capability.New(), ModeSoft)
	v, err := e.Evaluate(mustParse(t, "s.length"), scope, nil)
	if err != nil || !v.IsNull() {
		t.Errorf("length without whitelist = %v, %v", v, err)
	}
	v, _ = e.Evaluate(mustParse(t, "s[0]"), scope, nil)
	if !v.Equal(types.NewString("a")) {
		t.Errorf("s[0] = %v", v)
	}
}

func TestStringsIndexByCharacter(t *testing.T) {
	scope := MapScope{"s": types.NewString("héllo, 世界")}
	e := NewEvaluator(capability.Default(), ModeSoft)
	tests := []struct {
		src  string
		want types.Value
	}{
		{"s[1]", types.NewString("é")},
		{"s[7]", types.NewString("世")},
		{"s[8]", types.NewString("界")},
		{"s[9]", types.Null},
		{"s.length", types.NewInt(9)},
	}
	for _, tt := range tests {
		t.Run(tt.src, func(t *testing.T) {
			v, err := e.Evaluate(mustParse(t, tt.src), scope, nil)
			if err != nil {
				t.Fatal(err)
			}
			if !v.StrictEqual(tt.want) {
				t.Errorf("got %v, want %v", v, tt.want)
			}
		})
	}
}
