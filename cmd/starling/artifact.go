package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"starling/internal/ast"
	"starling/internal/astfile"
	"starling/internal/driver"
	"starling/internal/observ"
	"starling/internal/project"
	"starling/internal/types"
)

// loadArtifact decodes a resolved module artifact produced by the
// frontend.
func loadArtifact(path string) (*ast.Module, *types.Interner, error) {
	// #nosec G304 -- path is provided by the caller
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open artifact: %w", err)
	}
	defer f.Close()

	m, in, err := astfile.Read(f)
	if err != nil {
		return nil, nil, fmt.Errorf("%s: %w", path, err)
	}
	return m, in, nil
}

// compileOptions builds driver options from the nearest manifest above
// the artifact, then applies CLI overrides. The manifest is optional.
func compileOptions(cmd *cobra.Command, artifactPath string) (driver.Options, *project.Manifest, error) {
	manifest, found, err := project.Load(filepath.Dir(artifactPath))
	if err != nil {
		return driver.Options{}, nil, fmt.Errorf("failed to load manifest: %w", err)
	}

	var opts driver.Options
	if found {
		opts = driver.OptionsFromManifest(manifest)
	} else {
		manifest = nil
	}

	maxDiags, err := cmd.Root().PersistentFlags().GetInt("max-diagnostics")
	if err != nil {
		return driver.Options{}, nil, fmt.Errorf("failed to get max-diagnostics flag: %w", err)
	}
	if maxDiags > 0 {
		opts.MaxDiagnostics = maxDiags
	}

	timings, err := cmd.Root().PersistentFlags().GetBool("timings")
	if err != nil {
		return driver.Options{}, nil, fmt.Errorf("failed to get timings flag: %w", err)
	}
	if timings {
		opts.Timer = observ.NewTimer()
	}
	return opts, manifest, nil
}
