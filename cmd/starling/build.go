package main

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"starling/internal/diagfmt"
	"starling/internal/driver"
	"starling/internal/prof"
	"starling/internal/project"
	"starling/internal/version"
)

var buildCmd = &cobra.Command{
	Use:   "build [flags] <module.stlb>",
	Short: "Compile a resolved module artifact and cache the result",
	Long:  `Build runs the full middle-end pipeline and records the outcome in the disk cache so unchanged modules skip recompilation`,
	Args:  cobra.ExactArgs(1),
	RunE:  runBuild,
}

func init() {
	buildCmd.Flags().Bool("force", false, "recompile even when the cache is current")
	buildCmd.Flags().Bool("no-cache", false, "skip the disk cache entirely")
	buildCmd.Flags().String("cpuprofile", "", "write a CPU profile to this path")
	buildCmd.Flags().String("memprofile", "", "write a heap profile to this path")
	buildCmd.Flags().String("runtime-trace", "", "write a runtime trace to this path")
}

func runBuild(cmd *cobra.Command, args []string) error {
	colored, err := useColor(cmd)
	if err != nil {
		return err
	}
	force, err := cmd.Flags().GetBool("force")
	if err != nil {
		return fmt.Errorf("failed to get force flag: %w", err)
	}
	noCache, err := cmd.Flags().GetBool("no-cache")
	if err != nil {
		return fmt.Errorf("failed to get no-cache flag: %w", err)
	}
	cpuProfile, err := cmd.Flags().GetString("cpuprofile")
	if err != nil {
		return fmt.Errorf("failed to get cpuprofile flag: %w", err)
	}
	memProfile, err := cmd.Flags().GetString("memprofile")
	if err != nil {
		return fmt.Errorf("failed to get memprofile flag: %w", err)
	}
	runtimeTrace, err := cmd.Flags().GetString("runtime-trace")
	if err != nil {
		return fmt.Errorf("failed to get runtime-trace flag: %w", err)
	}

	session, err := prof.Start(cpuProfile, runtimeTrace)
	if err != nil {
		return fmt.Errorf("failed to start profiling: %w", err)
	}
	defer session.Stop()

	astMod, typesIn, err := loadArtifact(args[0])
	if err != nil {
		return err
	}
	opts, manifest, err := compileOptions(cmd, args[0])
	if err != nil {
		return err
	}
	if manifest != nil {
		if err := manifest.Config.CheckCompiler(version.Version); err != nil {
			return err
		}
	}

	out := cmd.OutOrStdout()
	quiet := beQuiet(cmd)

	var cache *driver.DiskCache
	key := driver.Fingerprint(astMod)
	if !noCache {
		cache, err = openCache(manifest)
		if err != nil {
			return err
		}
	}
	if cache != nil && !force {
		var cached driver.DiskPayload
		hit, err := cache.Get(key, &cached)
		if err != nil {
			return err
		}
		if hit && !cached.HasErrors {
			if !quiet {
				fmt.Fprintf(out, "%s is up to date (%d functions, %d instances)\n",
					cached.Name, len(cached.FuncNames), len(cached.Instances))
			}
			return nil
		}
	}

	res, err := driver.Compile(cmd.Context(), astMod, typesIn, opts)
	if err != nil {
		return err
	}
	if opts.Timer != nil {
		fmt.Fprint(cmd.ErrOrStderr(), opts.Timer.Summary())
	}
	res.Bag.Sort()
	diagfmt.Pretty(out, res.Bag, nil, diagfmt.PrettyOpts{Color: colored, ShowNotes: true})
	if n := errorCount(res.Bag); n > 0 {
		return fmt.Errorf("%d error(s) found", n)
	}

	if cache != nil {
		if err := cache.Put(key, driver.PayloadFromResult(astMod, res)); err != nil {
			return fmt.Errorf("failed to update cache: %w", err)
		}
	}
	if !quiet {
		fmt.Fprintf(out, "built %s: %d functions, %d instances\n",
			astMod.Name, len(res.Module.Funcs), len(res.Recorder.Instantiations()))
	}
	if memProfile != "" {
		if err := prof.WriteHeap(memProfile); err != nil {
			return fmt.Errorf("failed to write heap profile: %w", err)
		}
	}
	return nil
}

// openCache prefers the manifest's cache directory and falls back to
// the per-user cache.
func openCache(manifest *project.Manifest) (*driver.DiskCache, error) {
	if manifest != nil && manifest.Config.Build.CacheDir != "" {
		dir := manifest.Config.Build.CacheDir
		if !filepath.IsAbs(dir) {
			dir = filepath.Join(manifest.Root, dir)
		}
		return driver.OpenDiskCacheAt(dir)
	}
	return driver.OpenDiskCache("starling")
}
