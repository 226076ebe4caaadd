// Package lciconfig holds the process-wide configuration options of
// spec §6 and their KDL-backed loader, following the pack's own config
// convention (a plain struct plus a `.kdl` file loader, see
// DESIGN.md).
package lciconfig

import (
	"time"

	"github.com/indexcore/engine/internal/types"
)

// Config is the process-wide configuration of spec §6, plus the project
// scoping needed to run the pipeline end to end.
type Config struct {
	Project Project
	Index   Index
}

type Project struct {
	Root string
	Name string
}

type Index struct {
	// Parallelism bounds simultaneous parse jobs (spec §6 "parallelism").
	// Zero means "use logical core count" (spec §4.4 default).
	Parallelism int

	// DirtyCoalesceWindow batches dirty notifications before scheduling
	// (spec §6 "dirtyCoalesceWindow", §4.7 default 250ms).
	DirtyCoalesceWindow time.Duration

	// SystemHeaderPolicy controls indexing of headers outside the
	// project root (spec §6 "systemHeaderPolicy").
	SystemHeaderPolicy types.SystemHeaderPolicy

	// MaxCursorDepth is loaded from configuration but not applied: no
	// parse limits cursor nesting, and no IndexResult is ever marked
	// Partial.
	MaxCursorDepth int

	// FixItsEnabled toggles collection of diagnostics' replacement
	// hints (spec §6 "fixItsEnabled").
	FixItsEnabled bool

	// Include/Exclude are doublestar glob patterns (relative to
	// Project.Root) scoping which files the Scheduler/Watcher consider.
	Include []string
	Exclude []string

	// RespectGitignore additionally excludes files matched by the
	// project's .gitignore.
	RespectGitignore bool

	// InternTableShards bounds contention on the USR/File registries
	// (see internal/interning); values that are not a power of two are
	// rounded up to the next one.
	InternTableShards int
}

// Default returns the configuration defaults, matching spec §4.4/§4.7's
// documented defaults (logical-core parallelism, 250ms dirty window).
func Default() *Config {
	return &Config{
		Project: Project{Root: "."},
		Index: Index{
			Parallelism:         0,
			DirtyCoalesceWindow: 250 * time.Millisecond,
			SystemHeaderPolicy:  types.SystemHeaderIndexOnce,
			MaxCursorDepth:      0,
			FixItsEnabled:       true,
			Exclude:             []string{".git/**", "build/**", "**/*.o", "**/*.a"},
			InternTableShards:   16,
		},
	}
}
