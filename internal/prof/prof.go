// Package prof owns the profiling outputs of one CLI invocation.
package prof

import (
	"os"
	"runtime"
	"runtime/pprof"
	"runtime/trace"
)

// Session holds the files behind an active CPU profile and runtime
// trace. Either path may be empty to skip that output.
type Session struct {
	cpu *os.File
	trc *os.File
}

// Start opens the requested profiles. On error nothing stays active.
func Start(cpuPath, tracePath string) (*Session, error) {
	s := &Session{}
	if cpuPath != "" {
		f, err := os.Create(cpuPath) // #nosec G304 -- path is provided by the caller
		if err != nil {
			return nil, err
		}
		if err := pprof.StartCPUProfile(f); err != nil {
			_ = f.Close()
			return nil, err
		}
		s.cpu = f
	}
	if tracePath != "" {
		f, err := os.Create(tracePath) // #nosec G304 -- path is provided by the caller
		if err != nil {
			s.Stop()
			return nil, err
		}
		if err := trace.Start(f); err != nil {
			_ = f.Close()
			s.Stop()
			return nil, err
		}
		s.trc = f
	}
	return s, nil
}

// Stop flushes and closes whatever Start opened. Safe to call twice.
func (s *Session) Stop() {
	if s == nil {
		return
	}
	if s.cpu != nil {
		pprof.StopCPUProfile()
		_ = s.cpu.Close()
		s.cpu = nil
	}
	if s.trc != nil {
		trace.Stop()
		_ = s.trc.Close()
		s.trc = nil
	}
}

// WriteHeap captures a heap profile after a forced GC.
func WriteHeap(path string) error {
	f, err := os.Create(path) // #nosec G304 -- path is provided by the caller
	if err != nil {
		return err
	}
	runtime.GC()
	if err := pprof.WriteHeapProfile(f); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}
