package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"starling/internal/project"
)

var initCmd = &cobra.Command{
	Use:   "init [directory]",
	Short: "Create a starling.toml manifest",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runInit,
}

func runInit(cmd *cobra.Command, args []string) error {
	dir := "."
	if len(args) == 1 {
		dir = args[0]
	}
	abs, err := filepath.Abs(dir)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(abs, 0o755); err != nil {
		return err
	}

	path := filepath.Join(abs, project.ManifestName)
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("%s already exists", path)
	}

	content := fmt.Sprintf(`[package]
name = %q
version = "0.1.0"
compiler = "^0.3"

[build]
# max_diagnostics = %d
# inline_threshold = %d
`, filepath.Base(abs), project.DefaultMaxDiagnostics, project.DefaultInlineThreshold)

	if err := os.WriteFile(path, []byte(content), 0o644); err != nil { //nolint:gosec // manifest is world-readable
		return err
	}
	if !beQuiet(cmd) {
		fmt.Fprintf(cmd.OutOrStdout(), "created %s\n", path)
	}
	return nil
}
