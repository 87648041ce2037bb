// Package project loads and validates starling.toml, the per-project
// manifest that names the package and tunes the middle-end.
package project

import (
	"fmt"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/Masterminds/semver/v3"
)

// ManifestName is the file looked up from the working directory upward.
const ManifestName = "starling.toml"

// Manifest is a parsed starling.toml plus its location.
type Manifest struct {
	Path   string
	Root   string
	Config Config
}

// Config mirrors the TOML document.
type Config struct {
	Package PackageConfig `toml:"package"`
	Build   BuildConfig   `toml:"build"`
}

// PackageConfig is the [package] table.
type PackageConfig struct {
	Name    string `toml:"name"`
	Version string `toml:"version"`
	// Compiler is a semver constraint the running compiler must satisfy,
	// e.g. ">= 0.3.0". Empty accepts any compiler.
	Compiler string `toml:"compiler"`
}

// BuildConfig is the [build] table. Zero values mean "use the default".
type BuildConfig struct {
	MaxDiagnostics  int    `toml:"max-diagnostics"`
	InlineThreshold int    `toml:"inline-threshold"`
	ConstProp       *bool  `toml:"const-prop"`
	Inline          *bool  `toml:"inline"`
	DCE             *bool  `toml:"dce"`
	CacheDir        string `toml:"cache-dir"`
	Workers         int    `toml:"workers"`
}

// Build defaults.
const (
	DefaultMaxDiagnostics  = 256
	DefaultInlineThreshold = 24
)

// MaxDiagnosticsOrDefault resolves the diagnostic cap.
func (b BuildConfig) MaxDiagnosticsOrDefault() int {
	if b.MaxDiagnostics > 0 {
		return b.MaxDiagnostics
	}
	return DefaultMaxDiagnostics
}

// InlineThresholdOrDefault resolves the inline budget.
func (b BuildConfig) InlineThresholdOrDefault() int {
	if b.InlineThreshold > 0 {
		return b.InlineThreshold
	}
	return DefaultInlineThreshold
}

// PassEnabled resolves an optional pass toggle, defaulting to on.
func PassEnabled(v *bool) bool {
	return v == nil || *v
}

// ParseConfig decodes and validates a manifest document.
func ParseConfig(path string, data []byte) (Config, error) {
	var cfg Config
	meta, err := toml.Decode(string(data), &cfg)
	if err != nil {
		return Config{}, fmt.Errorf("%s: failed to parse TOML: %w", path, err)
	}
	if !meta.IsDefined("package") {
		return Config{}, fmt.Errorf("%s: missing [package]", path)
	}
	if !meta.IsDefined("package", "name") || strings.TrimSpace(cfg.Package.Name) == "" {
		return Config{}, fmt.Errorf("%s: missing [package].name", path)
	}
	if cfg.Package.Version != "" {
		if _, err := semver.NewVersion(cfg.Package.Version); err != nil {
			return Config{}, fmt.Errorf("%s: invalid [package].version %q: %w", path, cfg.Package.Version, err)
		}
	}
	if cfg.Package.Compiler != "" {
		if _, err := semver.NewConstraint(cfg.Package.Compiler); err != nil {
			return Config{}, fmt.Errorf("%s: invalid [package].compiler constraint %q: %w", path, cfg.Package.Compiler, err)
		}
	}
	if cfg.Build.MaxDiagnostics < 0 {
		return Config{}, fmt.Errorf("%s: [build].max-diagnostics must be positive", path)
	}
	if cfg.Build.InlineThreshold < 0 {
		return Config{}, fmt.Errorf("%s: [build].inline-threshold must be positive", path)
	}
	if cfg.Build.Workers < 0 {
		return Config{}, fmt.Errorf("%s: [build].workers must be positive", path)
	}
	return cfg, nil
}

// CheckCompiler verifies the running compiler version against the
// manifest constraint.
func (c Config) CheckCompiler(compilerVersion string) error {
	if c.Package.Compiler == "" {
		return nil
	}
	constraint, err := semver.NewConstraint(c.Package.Compiler)
	if err != nil {
		return fmt.Errorf("invalid compiler constraint %q: %w", c.Package.Compiler, err)
	}
	v, err := semver.NewVersion(strings.TrimPrefix(compilerVersion, "v"))
	if err != nil {
		return fmt.Errorf("invalid compiler version %q: %w", compilerVersion, err)
	}
	// Dev builds count as their release core, otherwise a -dev compiler
	// would satisfy no plain constraint at all.
	if core, coreErr := v.SetPrerelease(""); coreErr == nil {
		v = &core
	}
	if !constraint.Check(v) {
		return fmt.Errorf("package %s requires compiler %q, this is %s",
			c.Package.Name, c.Package.Compiler, compilerVersion)
	}
	return nil
}
