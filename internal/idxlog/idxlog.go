// Package idxlog is the indexing core's minimal logging shim. The
// teacher carries no third-party structured logger for this concern —
// its internal/debug package is a thin wrapper over the standard log
// package with a toggle — so this core follows the same convention
// rather than introducing one (see DESIGN.md).
package idxlog

import (
	"fmt"
	"log"
	"os"
	"sync"
)

var (
	mu      sync.Mutex
	verbose bool
	out     = log.New(os.Stderr, "", log.LstdFlags)
)

// SetVerbose toggles Debugf output. Disabled by default so that normal
// operation (query/indexing) stays quiet on stderr.
func SetVerbose(v bool) {
	mu.Lock()
	defer mu.Unlock()
	verbose = v
}

// Debugf logs only when verbose mode is enabled.
func Debugf(format string, args ...interface{}) {
	mu.Lock()
	v := verbose
	mu.Unlock()
	if !v {
		return
	}
	out.Output(2, fmt.Sprintf("[debug] "+format, args...))
}

// Infof always logs; used for lifecycle events (job completion, merge,
// watch start/stop) that operators expect to see.
func Infof(format string, args ...interface{}) {
	out.Output(2, fmt.Sprintf("[info] "+format, args...))
}

// Warnf logs recoverable problems: transient job failures, filesystem
// errors during dirty propagation, persistence failures (spec §7).
func Warnf(format string, args ...interface{}) {
	out.Output(2, fmt.Sprintf("[warn] "+format, args...))
}

// Errorf logs fatal/invariant conditions.
func Errorf(format string, args ...interface{}) {
	out.Output(2, fmt.Sprintf("[error] "+format, args...))
}
