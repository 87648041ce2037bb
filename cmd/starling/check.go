package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"starling/internal/diag"
	"starling/internal/diagfmt"
	"starling/internal/driver"
	"starling/internal/mir"
)

var checkCmd = &cobra.Command{
	Use:   "check [flags] <module.stlb>",
	Short: "Verify a resolved module artifact",
	Long:  `Check runs ownership and borrow verification, monomorphization and MIR validation on a frontend artifact without producing output`,
	Args:  cobra.ExactArgs(1),
	RunE:  runCheck,
}

func init() {
	checkCmd.Flags().String("format", "pretty", "output format (pretty|json)")
	checkCmd.Flags().Bool("with-notes", false, "include diagnostic notes in output")
	checkCmd.Flags().Bool("dump-mir", false, "print the optimized MIR after a clean check")
}

func runCheck(cmd *cobra.Command, args []string) error {
	colored, err := useColor(cmd)
	if err != nil {
		return err
	}
	format, err := cmd.Flags().GetString("format")
	if err != nil {
		return fmt.Errorf("failed to get format flag: %w", err)
	}
	withNotes, err := cmd.Flags().GetBool("with-notes")
	if err != nil {
		return fmt.Errorf("failed to get with-notes flag: %w", err)
	}
	dumpMIR, err := cmd.Flags().GetBool("dump-mir")
	if err != nil {
		return fmt.Errorf("failed to get dump-mir flag: %w", err)
	}

	astMod, typesIn, err := loadArtifact(args[0])
	if err != nil {
		return err
	}
	opts, _, err := compileOptions(cmd, args[0])
	if err != nil {
		return err
	}

	res, err := driver.Compile(cmd.Context(), astMod, typesIn, opts)
	if err != nil {
		return err
	}
	if opts.Timer != nil {
		fmt.Fprint(cmd.ErrOrStderr(), opts.Timer.Summary())
	}
	res.Bag.Sort()

	out := cmd.OutOrStdout()
	switch format {
	case "pretty":
		diagfmt.Pretty(out, res.Bag, nil, diagfmt.PrettyOpts{Color: colored, ShowNotes: withNotes})
	case "json":
		if err := diagfmt.WriteJSON(out, res.Bag, nil, diagfmt.JSONOpts{}); err != nil {
			return err
		}
	default:
		return fmt.Errorf("unknown format %q (must be pretty or json)", format)
	}

	if n := errorCount(res.Bag); n > 0 {
		return fmt.Errorf("%d error(s) found", n)
	}
	if dumpMIR {
		mir.DumpModule(out, res.Module, typesIn)
	}
	if !beQuiet(cmd) && format == "pretty" {
		fmt.Fprintf(out, "ok: %s (%d functions)\n", astMod.Name, len(res.Module.Funcs))
	}
	return nil
}

func errorCount(bag *diag.Bag) int {
	n := 0
	for _, d := range bag.Items() {
		if d.Severity >= diag.SevError {
			n++
		}
	}
	return n
}
