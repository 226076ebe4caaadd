package graph

import (
	"github.com/indexcore/engine/internal/interning"
	"github.com/indexcore/engine/internal/types"
)

// Snapshot bundles the read-only views the Query Engine (internal/query)
// needs under a single lock acquisition, avoiding repeated RLock/RUnlock
// churn per accessor call. Callers must not mutate the returned maps —
// they alias the graph's live storage for the duration of the snapshot.
type Snapshot struct {
	Decls           map[types.UsrID]map[types.Location]struct{}
	Defs            map[types.UsrID]map[types.Location]struct{}
	Refs            map[types.UsrID]map[types.Location]struct{}
	Virtuals        map[types.UsrID]map[types.UsrID]struct{}
	Names           map[string]map[types.UsrID]struct{}
	LocationCursors map[types.Location]types.CursorInfo
	FixIts          map[types.FileID][]types.FixIt
	Depends         map[types.FileID]map[types.FileID]struct{}
	ReverseDepends  map[types.FileID]map[types.FileID]struct{}
	// Includes maps an inclusion directive's Location to the FileID it
	// names. The Query Engine never reads it directly (Depends already
	// answers dependencies()); it rides along on Snapshot so
	// internal/persist can serialize it without a second lock
	// acquisition.
	Includes map[types.Location]types.FileID
}

// WithReadLock runs fn with the graph's shared lock held, passing a
// Snapshot view. Queries in internal/query are built on this rather
// than exposing the lock itself, keeping lock discipline entirely
// inside this package (spec §5: "queries take the reader side").
func (g *SymbolGraph) WithReadLock(fn func(Snapshot)) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	fn(Snapshot{
		Decls:           g.decls,
		Defs:            g.defs,
		Refs:            g.refs,
		Virtuals:        g.virtuals,
		Names:           g.names,
		LocationCursors: g.locationCursors,
		FixIts:          g.fixIts,
		Depends:         g.depends,
		ReverseDepends:  g.reverseDepends,
		Includes:        g.includes,
	})
}

// RestoreSnapshot repopulates an empty graph from a previously
// persisted Snapshot (internal/persist's Reader). Unlike Merge, it
// performs no retraction — there is nothing to retract on a cold
// load — and it does not reconstruct per-header fact provenance
// (headerOwners), which is not persisted: a primary that re-merges
// after a restore simply unions its own contribution with whatever a
// restored header already has, exactly as it would for a header a
// still-live TU contributed to. It never owned the restored facts, so
// it cannot mistakenly retract them either; a full reindex after
// restore is what actually cleans up any drift this leaves behind.
func (g *SymbolGraph) RestoreSnapshot(s Snapshot) {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.decls = s.Decls
	g.defs = s.Defs
	g.refs = s.Refs
	g.virtuals = s.Virtuals
	g.names = s.Names
	g.locationCursors = s.LocationCursors
	g.fixIts = s.FixIts
	g.depends = s.Depends
	g.reverseDepends = s.ReverseDepends
	g.includes = s.Includes

	g.usrSpelling = make(map[types.UsrID]string, len(g.names))
	for spelling, usrs := range g.names {
		for usr := range usrs {
			g.usrSpelling[usr] = spelling
		}
	}
}

// FileRegistry exposes the bound File Registry for components that
// need Path<->FileID translation alongside graph reads (e.g. the Dirty
// Controller's reindex-set expansion).
func (g *SymbolGraph) FileRegistry() *interning.FileRegistry { return g.fileReg }

// UsrTable exposes the bound USR Interning Table, read-only use only.
func (g *SymbolGraph) UsrTable() *interning.UsrTable { return g.usrTab }
