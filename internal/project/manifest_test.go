package project

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestParseConfigDefaults(t *testing.T) {
	cfg, err := ParseConfig("starling.toml", []byte(`
[package]
name = "demo"
`))
	if err != nil {
		t.Fatalf("ParseConfig: %v", err)
	}
	if got := cfg.Build.MaxDiagnosticsOrDefault(); got != DefaultMaxDiagnostics {
		t.Fatalf("max-diagnostics default = %d, want %d", got, DefaultMaxDiagnostics)
	}
	if got := cfg.Build.InlineThresholdOrDefault(); got != DefaultInlineThreshold {
		t.Fatalf("inline-threshold default = %d, want %d", got, DefaultInlineThreshold)
	}
	if !PassEnabled(cfg.Build.ConstProp) || !PassEnabled(cfg.Build.Inline) || !PassEnabled(cfg.Build.DCE) {
		t.Fatalf("passes should default to enabled")
	}
}

func TestParseConfigFull(t *testing.T) {
	cfg, err := ParseConfig("starling.toml", []byte(`
[package]
name = "demo"
version = "0.2.1"
compiler = ">= 0.3.0"

[build]
max-diagnostics = 32
inline-threshold = 8
inline = false
`))
	if err != nil {
		t.Fatalf("ParseConfig: %v", err)
	}
	if cfg.Build.MaxDiagnosticsOrDefault() != 32 {
		t.Fatalf("max-diagnostics = %d", cfg.Build.MaxDiagnostics)
	}
	if cfg.Build.InlineThresholdOrDefault() != 8 {
		t.Fatalf("inline-threshold = %d", cfg.Build.InlineThreshold)
	}
	if PassEnabled(cfg.Build.Inline) {
		t.Fatalf("inline = false not honored")
	}
	if PassEnabled(cfg.Build.ConstProp) != true {
		t.Fatalf("unset const-prop should stay enabled")
	}
}

func TestParseConfigRejects(t *testing.T) {
	cases := []struct {
		name string
		doc  string
		want string
	}{
		{"missing package", `[build]`, "missing [package]"},
		{"missing name", "[package]\nversion = \"1.0.0\"", "missing [package].name"},
		{"bad version", "[package]\nname = \"x\"\nversion = \"not-semver\"", "invalid [package].version"},
		{"bad constraint", "[package]\nname = \"x\"\ncompiler = \"wat ==\"", "invalid [package].compiler"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := ParseConfig("starling.toml", []byte(tc.doc))
			if err == nil || !strings.Contains(err.Error(), tc.want) {
				t.Fatalf("error = %v, want substring %q", err, tc.want)
			}
		})
	}
}

func TestCheckCompiler(t *testing.T) {
	cfg, err := ParseConfig("starling.toml", []byte(`
[package]
name = "demo"
compiler = ">= 0.3.0, < 1.0.0"
`))
	if err != nil {
		t.Fatalf("ParseConfig: %v", err)
	}
	if err := cfg.CheckCompiler("0.4.2"); err != nil {
		t.Fatalf("0.4.2 should satisfy the constraint: %v", err)
	}
	if err := cfg.CheckCompiler("0.2.0"); err == nil {
		t.Fatalf("0.2.0 should violate the constraint")
	}
	if err := cfg.CheckCompiler("v0.3.0"); err != nil {
		t.Fatalf("leading v must be accepted: %v", err)
	}
	if err := cfg.CheckCompiler("0.3.0-dev"); err != nil {
		t.Fatalf("dev builds count as their release core: %v", err)
	}
}

func TestLoadWalksUp(t *testing.T) {
	root := t.TempDir()
	nested := filepath.Join(root, "a", "b")
	if err := os.MkdirAll(nested, 0o755); err != nil {
		t.Fatal(err)
	}
	doc := "[package]\nname = \"demo\"\n"
	if err := os.WriteFile(filepath.Join(root, ManifestName), []byte(doc), 0o644); err != nil {
		t.Fatal(err)
	}

	m, ok, err := Load(nested)
	if err != nil || !ok {
		t.Fatalf("Load: ok=%v err=%v", ok, err)
	}
	if m.Root != root {
		t.Fatalf("root = %q, want %q", m.Root, root)
	}
	if m.Config.Package.Name != "demo" {
		t.Fatalf("package name = %q", m.Config.Package.Name)
	}
}

func TestLoadMissing(t *testing.T) {
	_, ok, err := Load(t.TempDir())
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if ok {
		t.Fatalf("found a manifest in an empty tree")
	}
}
