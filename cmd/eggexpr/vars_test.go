package main

import (
	"reflect"
	"testing"

	"github.com/lemonberrylabs/eggexpr/pkg/types"
)

func TestLoadVarsKeepsOrder(t *testing.T) {
	tests := []struct {
		name    string
		file    string
		content string
		keys    []string
	}{
		{"yaml", "v.yaml", "zeta: 1\nalpha: 2\nmid: {b: 1, a: 2}\n", []string{"zeta", "alpha", "mid"}},
		{"json", "v.json", `{"zeta": 1, "alpha": 2, "mid": {"b": 1}}`, []string{"zeta", "alpha", "mid"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v, err := loadVars(writeFile(t, tt.file, tt.content))
			if err != nil {
				t.Fatal(err)
			}
			if got := v.AsMap().Keys(); !reflect.DeepEqual(got, tt.keys) {
				t.Errorf("keys = %v, want %v", got, tt.keys)
			}
		})
	}
}

func TestLoadVarsScalars(t *testing.T) {
	v, err := loadVars(writeFile(t, "v.yaml", "i: 3\nf: 1.5\ns: hi\nb: true\nn: null\nl: [1, two]\n"))
	if err != nil {
		t.Fatal(err)
	}
	m := v.AsMap()
	want := map[string]types.ValueType{
		"i": types.TypeInt,
		"f": types.TypeDouble,
		"s": types.TypeString,
		"b": types.TypeBool,
		"n": types.TypeNull,
		"l": types.TypeList,
	}
	for k, typ := range want {
		got, ok := m.Get(k)
		if !ok {
			t.Errorf("%s missing", k)
			continue
		}
		if got.Type() != typ {
			t.Errorf("%s: type %s, want %s", k, got.Type(), typ)
		}
	}
}

func TestLoadVarsAliases(t *testing.T) {
	v, err := loadVars(writeFile(t, "v.yaml", "base: &b {x: 1}\ncopy: *b\n"))
	if err != nil {
		t.Fatal(err)
	}
	if got := v.String(); got != "{base: {x: 1}, copy: {x: 1}}" {
		t.Errorf("got %s", got)
	}
}

func TestLoadVarsEmpty(t *testing.T) {
	for _, path := range []string{"", writeFile(t, "empty.yaml", "\n")} {
		v, err := loadVars(path)
		if err != nil {
			t.Fatalf("%q: %v", path, err)
		}
		if v.Type() != types.TypeMap || v.AsMap().Len() != 0 {
			t.Errorf("%q: got %s, want empty map", path, v)
		}
	}
}

func TestLoadVarsErrors(t *testing.T) {
	tests := []struct {
		name, file, content string
	}{
		{"sequence", "v.yaml", "- a\n"},
		{"scalar json", "v.json", "42"},
		{"bad yaml", "v.yaml", "a: [1\n"},
		{"bad json", "v.json", "{"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := loadVars(writeFile(t, tt.file, tt.content)); err == nil {
				t.Error("expected error")
			}
		})
	}
}
