package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// run executes the command tree with args and returns what it printed.
func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	root := newRootCmd()
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(append([]string{"--log-level", "error"}, args...))
	err := root.Execute()
	return strings.TrimSpace(out.String()), err
}

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestEvalCommand(t *testing.T) {
	yamlVars := writeFile(t, "vars.yaml", "user:\n  name: ann\n  age: 41\ntags: [a, b]\n")
	jsonVars := writeFile(t, "vars.json", `{"n": 2.5}`)

	tests := []struct {
		name string
		args []string
		want string
	}{
		{"arithmetic", []string{"eval", "1 + 2 * 3"}, "7"},
		{"string", []string{"eval", "'a' + 'b'"}, "ab"},
		{"json output", []string{"eval", "--json", "'a' + 'b'"}, `"ab"`},
		{"yaml vars", []string{"eval", "--vars", yamlVars, "user.name + ':' + string(user.age)"}, "ann:41"},
		{"yaml list", []string{"eval", "--vars", yamlVars, "length(tags)"}, "2"},
		{"json vars", []string{"eval", "--vars", jsonVars, "n * 2"}, "5.0"},
		{"no fold", []string{"eval", "--no-fold", "2 * 2"}, "4"},
		{"soft missing", []string{"eval", "missing"}, "null"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := run(t, tt.args...)
			if err != nil {
				t.Fatalf("eval: %v (%s)", err, got)
			}
			if got != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}
}

func TestEvalStrict(t *testing.T) {
	if _, err := run(t, "eval", "--strict", "missing"); err == nil || !strings.Contains(err.Error(), "UndefinedVariable") {
		t.Errorf("err = %v, want UndefinedVariable", err)
	}
}

func TestExpandCommand(t *testing.T) {
	vars := writeFile(t, "vars.yml", "who: world\n")

	got, err := run(t, "expand", "--vars", vars, "hello ${text:to_upper(who)}")
	if err != nil {
		t.Fatal(err)
	}
	if got != "hello WORLD" {
		t.Errorf("got %q", got)
	}

	if _, err := run(t, "expand", "${unclosed"); err == nil {
		t.Error("expected error for an unclosed section")
	}
}

func TestBadVarsFile(t *testing.T) {
	list := writeFile(t, "list.yaml", "- 1\n- 2\n")
	if _, err := run(t, "eval", "--vars", list, "1"); err == nil {
		t.Error("expected error for a non-mapping variables file")
	}
	if _, err := run(t, "eval", "--vars", filepath.Join(t.TempDir(), "nope.yaml"), "1"); err == nil {
		t.Error("expected error for a missing variables file")
	}
}

func TestInvalidLogLevel(t *testing.T) {
	if _, err := run(t, "--log-level", "loud", "eval", "1"); err == nil {
		t.Error("expected error for an invalid log level")
	}
}
