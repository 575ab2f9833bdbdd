package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/lemonberrylabs/eggexpr/pkg/capability"
	"github.com/lemonberrylabs/eggexpr/pkg/expr"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "eggexpr.yaml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Addr() != "0.0.0.0:8787" || cfg.GRPCAddr() != "0.0.0.0:8788" {
		t.Errorf("addrs = %s, %s", cfg.Addr(), cfg.GRPCAddr())
	}
	if !cfg.Fold || cfg.ResolutionMode() != expr.ModeSoft || cfg.CacheSize != 1024 {
		t.Errorf("cfg = %+v", cfg)
	}
}

func TestLoadFile(t *testing.T) {
	path := writeConfig(t, `
server:
  port: 9000
database: /tmp/scopes.db
mode: strict
fold: false
cache_size: 64
log:
  level: debug
  format: json
whitelist:
  - type: Widget
    get: [name, size]
    set: [name]
    aliases: [string]
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Server.Port != 9000 || cfg.Server.GRPCPort != 8788 {
		t.Errorf("server = %+v", cfg.Server)
	}
	if cfg.Database != "/tmp/scopes.db" || cfg.Fold || cfg.ResolutionMode() != expr.ModeStrict || cfg.CacheSize != 64 {
		t.Errorf("cfg = %+v", cfg)
	}

	wl := cfg.BuildWhitelist()
	tests := []struct {
		name string
		mode capability.Mode
		want bool
	}{
		{"name", capability.Write, true},
		{"size", capability.Read, true},
		{"size", capability.Write, false},
		{"length", capability.Read, true},
	}
	for _, tt := range tests {
		if got := wl.Allowed("Widget", tt.name, tt.mode); got != tt.want {
			t.Errorf("Allowed(Widget, %s, %s) = %v, want %v", tt.name, tt.mode, got, tt.want)
		}
	}
}

func TestEnvOverrides(t *testing.T) {
	path := writeConfig(t, "server:\n  port: 9000\nmode: strict\n")
	t.Setenv("EGGEXPR_PORT", "9100")
	t.Setenv("EGGEXPR_MODE", "soft")
	t.Setenv("EGGEXPR_FOLD", "false")
	t.Setenv("EGGEXPR_DB", "env.db")
	t.Setenv("EGGEXPR_CACHE_SIZE", "10")

	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Server.Port != 9100 || cfg.Mode != "soft" || cfg.Fold || cfg.Database != "env.db" || cfg.CacheSize != 10 {
		t.Errorf("cfg = %+v", cfg)
	}

	t.Setenv("EGGEXPR_GRPC_PORT", "many")
	if _, err := Load(path); err == nil || !strings.Contains(err.Error(), "EGGEXPR_GRPC_PORT") {
		t.Errorf("err = %v", err)
	}
}

func TestValidate(t *testing.T) {
	cfg := Default()
	cfg.Mode = "lenient"
	cfg.Log.Format = "xml"
	cfg.Server.Port = 70000
	cfg.CacheSize = -5
	cfg.Whitelist = []WhitelistEntry{{Get: []string{"x"}}}

	err := cfg.Validate()
	if err == nil {
		t.Fatal("expected errors")
	}
	for _, want := range []string{"lenient", "xml", "70000", "cache_size -5", "type is required"} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("error %q missing %q", err, want)
		}
	}

	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("missing file accepted")
	}
	if _, err := Load(writeConfig(t, "server: [")); err == nil {
		t.Error("bad YAML accepted")
	}
}
