package querychange

import (
	"sync/atomic"

	"github.com/go-logr/logr"
)

// Process-wide switches for detectors built with Default. Both start off so
// the optimized path stays opt-in until it has been validated against the
// exhaustive one. Prefer an explicit Config where test isolation matters.
var (
	optimizationEnabled atomic.Bool
	traceEnabled        atomic.Bool
)

// EnableOptimization switches the incremental path on or off process-wide.
func EnableOptimization(on bool) { optimizationEnabled.Store(on) }

// EnableTrace switches decision tracing on or off process-wide.
func EnableTrace(on bool) { traceEnabled.Store(on) }

// OptimizationEnabled reports the process-wide optimization switch.
func OptimizationEnabled() bool { return optimizationEnabled.Load() }

// TraceEnabled reports the process-wide trace switch.
func TraceEnabled() bool { return traceEnabled.Load() }

// Default creates a detector that captures the current process-wide switches.
func Default(logger logr.Logger) *Detector {
	return New(Config{
		Optimize: optimizationEnabled.Load(),
		Trace:    traceEnabled.Load(),
		Logger:   logger,
	})
}
