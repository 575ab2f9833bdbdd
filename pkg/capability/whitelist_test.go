package capability

import (
	"reflect"
	"sync"
	"testing"
)

func TestAllowedDirect(t *testing.T) {
	w := New()
	w.Register("vartest", []string{"some_getter"}, []string{"some_setter"})

	tests := []struct {
		name string
		mode Mode
		want bool
	}{
		{"some_getter", Read, true},
		{"some_getter", Write, false},
		{"some_setter", Write, true},
		{"some_setter", Read, false},
		{"other", Read, false},
	}
	for _, tt := range tests {
		t.Run(tt.name+"/"+tt.mode.String(), func(t *testing.T) {
			if got := w.Allowed("vartest", tt.name, tt.mode); got != tt.want {
				t.Errorf("Allowed(vartest, %s, %s) = %v, want %v", tt.name, tt.mode, got, tt.want)
			}
		})
	}
}

func TestAllowedThroughAlias(t *testing.T) {
	w := New()
	w.Register("string", []string{"length"}, nil)
	w.Register("vartest", []string{"some_getter"}, []string{"some_setter"})
	w.Alias("vartest", "string")

	if !w.Allowed("vartest", "length", Read) {
		t.Error("vartest should inherit length from string")
	}
	if w.Allowed("string", "some_getter", Read) {
		t.Error("aliases must not flow from child to parent")
	}
}

func TestAliasCycleTerminates(t *testing.T) {
	w := New()
	w.Register("a", []string{"x"}, nil)
	w.Alias("a", "b")
	w.Alias("b", "a")

	if !w.Allowed("b", "x", Read) {
		t.Error("b should see a's getter")
	}
	if w.Allowed("b", "missing", Read) {
		t.Error("unexpected grant")
	}
}

func TestAliasSkipsSelfAndDuplicates(t *testing.T) {
	w := New()
	w.Alias("a", "a", "b", "b")
	w.Alias("a", "b", "c")

	if got, want := w.Aliases("a"), []string{"b", "c"}; !reflect.DeepEqual(got, want) {
		t.Errorf("Aliases = %v, want %v", got, want)
	}
}

func TestNilWhitelistDeniesEverything(t *testing.T) {
	var w *Whitelist
	if w.Allowed("string", "length", Read) {
		t.Error("nil whitelist must deny")
	}
}

func TestDefaultIntrinsics(t *testing.T) {
	w := Default()
	if !w.Allowed("list", "last", Read) {
		t.Error("list.last should be allowed")
	}
	if got := w.Names("list", Read); !reflect.DeepEqual(got, []string{"first", "last", "length"}) {
		t.Errorf("Names = %v", got)
	}
	if got := w.Types(); !reflect.DeepEqual(got, []string{"list", "map", "string"}) {
		t.Errorf("Types = %v", got)
	}
}

func TestConcurrentRegisterAndCheck(t *testing.T) {
	w := New()
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			w.Register("host", []string{"name"}, nil)
		}()
		go func() {
			defer wg.Done()
			_ = w.Allowed("host", "name", Read)
		}()
	}
	wg.Wait()
	if !w.Allowed("host", "name", Read) {
		t.Error("registration lost")
	}
}
