package driver

import (
	"context"
	"runtime"
	"sort"

	"golang.org/x/sync/errgroup"

	"starling/internal/mir"
	"starling/internal/opt"
)

// optimizeModule runs the optimization pipeline over every function.
// Inlining reads callee bodies across function boundaries, so it runs
// serially first; the remaining passes mutate only their own function
// (constant propagation reads callee parameter modes, which no pass
// writes) and fan out over an errgroup. Function order is sorted by
// name, which keeps the output identical across worker counts.
func optimizeModule(ctx context.Context, m *mir.Module, opts Options) error {
	names := make([]string, 0, len(m.Funcs))
	for _, f := range m.Funcs {
		if f != nil {
			names = append(names, f.Name)
		}
	}
	sort.Strings(names)

	if opts.Opt.Inline {
		for _, name := range names {
			opt.Inline(m.ByName(name), m, opts.Opt.InlineThreshold)
		}
	}

	local := opts.Opt
	local.Inline = false

	jobs := opts.Jobs
	if jobs <= 0 {
		jobs = runtime.GOMAXPROCS(0)
	}
	if jobs == 1 || len(names) <= 1 {
		for _, name := range names {
			opt.Run(m.ByName(name), m, local)
		}
		return nil
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(min(jobs, len(names)))
	for _, name := range names {
		f := m.ByName(name)
		g.Go(func() error {
			select {
			case <-gctx.Done():
				return gctx.Err()
			default:
			}
			opt.Run(f, m, local)
			return nil
		})
	}
	return g.Wait()
}
