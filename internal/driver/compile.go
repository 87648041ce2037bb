// Package driver wires the middle-end phases into one pipeline: contract
// recording, ownership verification, lowering, monomorphization and the
// optimization passes. The CLI and tests call into this package only.
package driver

import (
	"context"
	"fmt"

	"starling/internal/ast"
	"starling/internal/contracts"
	"starling/internal/diag"
	"starling/internal/mir"
	"starling/internal/mono"
	"starling/internal/observ"
	"starling/internal/opt"
	"starling/internal/project"
	"starling/internal/sema"
	"starling/internal/types"
)

// Options tunes one Compile invocation.
type Options struct {
	MaxDiagnostics int
	MonoMaxDepth   int
	Opt            opt.Options

	// Jobs bounds the per-function optimization workers. <= 0 means one
	// worker per CPU.
	Jobs int

	// Instances may be shared between invocations to reuse monomorphized
	// bodies; each invocation's module gets its own copy of any body
	// adopted from the cache. Nil gets a private cache.
	Instances *mono.Cache

	// Timer, when non-nil, collects per-phase durations.
	Timer *observ.Timer
}

func (o *Options) normalize() {
	if o.MaxDiagnostics <= 0 {
		o.MaxDiagnostics = project.DefaultMaxDiagnostics
	}
	if o.Opt == (opt.Options{}) {
		o.Opt = opt.Default()
	}
	if o.Opt.InlineThreshold <= 0 {
		o.Opt.InlineThreshold = opt.DefaultInlineThreshold
	}
}

// OptionsFromManifest maps a loaded starling.toml onto driver options.
func OptionsFromManifest(m *project.Manifest) Options {
	if m == nil {
		return Options{}
	}
	b := m.Config.Build
	return Options{
		MaxDiagnostics: b.MaxDiagnosticsOrDefault(),
		Jobs:           b.Workers,
		Opt: opt.Options{
			ConstProp:       project.PassEnabled(b.ConstProp),
			Inline:          project.PassEnabled(b.Inline),
			DCE:             project.PassEnabled(b.DCE),
			InlineThreshold: b.InlineThresholdOrDefault(),
		},
	}
}

// Result is what one Compile produces. Module is nil when diagnostics
// stopped the pipeline before IR could be finalized.
type Result struct {
	Module   *mir.Module
	Bag      *diag.Bag
	Recorder *contracts.Recorder
}

// Compile runs the full middle-end over one resolved module. A returned
// error is an internal failure; user-facing problems land in Result.Bag.
func Compile(ctx context.Context, astMod *ast.Module, typesIn *types.Interner, opts Options) (*Result, error) {
	opts.normalize()
	bag := diag.NewBag(opts.MaxDiagnostics)
	reporter := diag.BagReporter{Bag: bag}
	res := &Result{Bag: bag, Recorder: contracts.NewRecorder()}

	recordContracts(res.Recorder, astMod)

	stop := opts.Timer.Start("ownership")
	sema.VerifyModule(astMod, typesIn, reporter)
	stop("")

	stop = opts.Timer.Start("lower")
	lowered, err := mir.LowerModule(astMod, typesIn, reporter)
	if err != nil {
		return res, fmt.Errorf("lowering: %w", err)
	}
	if err := mir.Validate(lowered); err != nil {
		return res, fmt.Errorf("lowering produced invalid IR: %w", err)
	}
	stop(fmt.Sprintf("%d funcs", len(lowered.Funcs)))
	if bag.HasErrors() {
		return res, nil
	}

	stop = opts.Timer.Start("mono")
	monoed, err := mono.Monomorphize(astMod, lowered, typesIn, reporter, res.Recorder,
		opts.Instances, mono.Options{MaxDepth: opts.MonoMaxDepth})
	if err != nil {
		return res, fmt.Errorf("monomorphization: %w", err)
	}
	stop(fmt.Sprintf("%d instances", len(res.Recorder.Instantiations())))
	if bag.HasErrors() {
		return res, nil
	}
	if err := mono.CheckConcrete(monoed, typesIn); err != nil {
		return res, fmt.Errorf("monomorphization leaked generics: %w", err)
	}

	stop = opts.Timer.Start("optimize")
	if err := optimizeModule(ctx, monoed, opts); err != nil {
		return res, err
	}
	if err := mir.Validate(monoed); err != nil {
		return res, fmt.Errorf("optimization produced invalid IR: %w", err)
	}
	stop("")

	res.Module = monoed
	return res, nil
}

// recordContracts captures every requires/ensures clause and trait axiom
// before any transformation can rewrite the bodies they talk about.
func recordContracts(rec *contracts.Recorder, m *ast.Module) {
	for _, fn := range m.Funcs {
		if fn != nil {
			rec.RecordFunc(fn.Name, fn)
		}
	}
	for _, im := range m.Impls {
		if im == nil {
			continue
		}
		for _, fn := range im.Methods {
			if fn != nil {
				rec.RecordFunc(fn.Name, fn)
			}
		}
	}
	for _, tr := range m.Traits {
		if tr != nil {
			rec.RecordAxioms(tr)
		}
	}
}
