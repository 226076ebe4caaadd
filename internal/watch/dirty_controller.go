package watch

import (
	"sync"

	"github.com/indexcore/engine/internal/graph"
	"github.com/indexcore/engine/internal/idxlog"
	"github.com/indexcore/engine/internal/interning"
	"github.com/indexcore/engine/internal/scheduler"
	"github.com/indexcore/engine/internal/types"
)

// DirtyController implements spec §4.7's reindex-set computation: on
// notification that a file changed, it resolves the dirtied path to a
// FileId, computes the reflexive transitive reverse-dependency closure
// (the dirtied file and every TU that transitively includes it), and
// submits a Dirty Parse Job for every member of that closure that has
// a registered primary SourceInformation. A header with no known
// primary only propagates — spec §4.7 step 3's "Headers without a
// primary source do not produce jobs directly".
type DirtyController struct {
	graph     *graph.SymbolGraph
	fileReg   *interning.FileRegistry
	scheduler *scheduler.Scheduler

	mu      sync.RWMutex
	sources map[string]types.SourceInformation
}

// NewDirtyController builds a DirtyController over the given graph,
// file registry, and Scheduler.
// Use RegisterSource for every primary TU that has been submitted at
// least once, before relying on OnDirty to resubmit it.
func NewDirtyController(g *graph.SymbolGraph, fileReg *interning.FileRegistry, sched *scheduler.Scheduler) *DirtyController {
	return &DirtyController{
		graph:     g,
		fileReg:   fileReg,
		scheduler: sched,
		sources:   make(map[string]types.SourceInformation),
	}
}

// RegisterSource records source as a known primary TU, so a future
// dirty event against it (or against a header it depends on) can be
// resubmitted with the same argument vector.
func (c *DirtyController) RegisterSource(source types.SourceInformation) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sources[source.Path] = source
}

// Forget removes a primary's registered SourceInformation, e.g. after
// Scheduler.Remove(path) — a removed file should not be resurrected by
// a later dirty event against one of its former dependencies.
func (c *DirtyController) Forget(path string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.sources, path)
}

// OnDirty is the Watcher's onDirty callback: paths is one coalesced
// burst of changed files (spec §4.7 step 4 has already run by the time
// this is called). For each, it resolves the path to a FileId, computes
// the reindex set, and submits Dirty jobs for every primary in it. No
// per-FileId dirty mark is kept: a path that cannot be interned is
// logged and skipped.
func (c *DirtyController) OnDirty(paths []string) {
	affected := make(map[types.FileID]struct{})
	for _, p := range paths {
		fileID, err := c.fileReg.Intern(p)
		if err != nil {
			idxlog.Warnf("watch: intern dirty path %s: %v", p, err)
			continue
		}
		// Reflexive: a directly-edited primary must reindex itself even
		// though it has no incoming dependency edge to traverse.
		affected[fileID] = struct{}{}
		for _, dependent := range c.graph.ReverseDependencyClosure(fileID) {
			affected[dependent] = struct{}{}
		}
	}

	c.mu.RLock()
	defer c.mu.RUnlock()
	for fileID := range affected {
		path, ok := c.fileReg.Path(fileID)
		if !ok {
			continue
		}
		source, ok := c.sources[path]
		if !ok {
			continue
		}
		if _, err := c.scheduler.Submit(source, types.IndexDirty); err != nil {
			idxlog.Warnf("watch: submit dirty job for %s: %v", path, err)
		}
	}
}
