// Package graph implements the Symbol Graph & Merger and the
// Dependency Graph of spec §4.5/§4.6: the single authoritative,
// cross-unit store, guarded by one readers-writer lock, mutated only by
// Merge. The map+RWMutex+stats shape follows the pack's
// internal/core/reference_tracker.go; the single-writer discipline
// follows internal/core/index_coordinator.go's lock-acquisition
// pattern, simplified down to the one lock this core actually needs.
package graph

import (
	"sort"
	"sync"

	"github.com/indexcore/engine/internal/idxerrors"
	"github.com/indexcore/engine/internal/interning"
	"github.com/indexcore/engine/internal/types"
)

type factBucket uint8

const (
	bucketDecl factBucket = iota
	bucketDef
	bucketRef
)

// factKey identifies one (bucket, UsrID, Location) fact for header
// provenance tracking — the mechanism behind the "ownership-of-header
// rule" of spec §4.5: header facts are unioned across contributing
// TUs, not replaced, so we must know which primary FileID asserted
// which fact before we can safely retract just one TU's contribution.
type factKey struct {
	bucket factBucket
	usr    types.UsrID
	loc    types.Location
}

// SymbolGraph is the cross-unit store of spec §3 "SymbolGraph". All
// reads take the shared side of mu; Merge takes the exclusive side.
type SymbolGraph struct {
	mu sync.RWMutex

	fileReg *interning.FileRegistry
	usrTab  *interning.UsrTable

	decls map[types.UsrID]map[types.Location]struct{}
	defs  map[types.UsrID]map[types.Location]struct{}
	refs  map[types.UsrID]map[types.Location]struct{}

	virtuals map[types.UsrID]map[types.UsrID]struct{}

	names       map[string]map[types.UsrID]struct{}
	usrSpelling map[types.UsrID]string

	locationCursors map[types.Location]types.CursorInfo
	includes        map[types.Location]types.FileID

	fixIts map[types.FileID][]types.FixIt

	depends        map[types.FileID]map[types.FileID]struct{}
	reverseDepends map[types.FileID]map[types.FileID]struct{}

	// headerOwners tracks, for facts whose Location.File is not the
	// contributing job's primary, which primaries currently assert
	// them (spec §4.5's union-not-replace nuance).
	headerOwners map[factKey]map[types.FileID]struct{}

	// postMerge holds callbacks registered by queries waiting on a
	// given primary FileID's next merge (spec §4.5 step 4).
	postMerge map[types.FileID][]func()
}

// New creates an empty graph bound to the given File Registry and USR
// Interning Table. Those tables outlive any single graph generation —
// they use their own locking discipline and are never locked while mu
// is held (spec §5).
func New(fileReg *interning.FileRegistry, usrTab *interning.UsrTable) *SymbolGraph {
	return &SymbolGraph{
		fileReg:         fileReg,
		usrTab:          usrTab,
		decls:           make(map[types.UsrID]map[types.Location]struct{}),
		defs:            make(map[types.UsrID]map[types.Location]struct{}),
		refs:            make(map[types.UsrID]map[types.Location]struct{}),
		virtuals:        make(map[types.UsrID]map[types.UsrID]struct{}),
		names:           make(map[string]map[types.UsrID]struct{}),
		usrSpelling:     make(map[types.UsrID]string),
		locationCursors: make(map[types.Location]types.CursorInfo),
		includes:        make(map[types.Location]types.FileID),
		fixIts:          make(map[types.FileID][]types.FixIt),
		depends:         make(map[types.FileID]map[types.FileID]struct{}),
		reverseDepends:  make(map[types.FileID]map[types.FileID]struct{}),
		headerOwners:    make(map[factKey]map[types.FileID]struct{}),
		postMerge:       make(map[types.FileID][]func()),
	}
}

// OnMerged registers a callback invoked once, after the next
// successful Merge whose primary is fileID. Callers must not hold the
// graph's reader lock when calling this (spec §5 "no re-entrancy").
func (g *SymbolGraph) OnMerged(fileID types.FileID, cb func()) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.postMerge[fileID] = append(g.postMerge[fileID], cb)
}

// validateLocation enforces invariant 1: every Location stored in the
// graph references a known FileID. Violations are fatal per spec §7.
func (g *SymbolGraph) validateLocation(loc types.Location) {
	if !g.fileReg.Known(loc.File) {
		panic(idxerrors.NewInvariantError("location-file-known", loc.String()))
	}
}

func (g *SymbolGraph) validateUsr(id types.UsrID) {
	if _, ok := g.usrTab.Reverse(id); !ok {
		panic(idxerrors.NewInvariantError("usr-known", "unknown UsrID in graph mutation"))
	}
}

// Merge is the single mutating entry point (spec §4.5). It is intended
// to be called from exactly one actor (see internal/scheduler's runMerger)
// so that "merge order follows job completion order" (spec §5) holds
// structurally rather than by convention.
func (g *SymbolGraph) Merge(result *IndexResult) {
	g.mu.Lock()
	g.retractPriorFacts(result)
	g.insertFacts(result)
	g.recomputeReverseDepends(result)
	cbs := g.postMerge[result.Primary]
	delete(g.postMerge, result.Primary)
	g.mu.Unlock()

	// Callbacks run outside the lock: spec §5 forbids a query from
	// re-entering submit() while holding the reader lock, and a
	// callback firing here is exactly such a caller-supplied hook.
	for _, cb := range cbs {
		cb()
	}
}

// retractPriorFacts implements spec §4.5 step 1. For the job's primary
// file it is a hard whole-file delete (invariant 5: exact replace over
// the primary). For every other visited file (a header), it retracts
// only the facts this primary previously contributed, leaving other
// TUs' contributions to that header untouched (the ownership-of-header
// rule).
func (g *SymbolGraph) retractPriorFacts(result *IndexResult) {
	g.deleteAllFactsForFile(result.Primary)

	for v := range result.VisitedFiles {
		if v == result.Primary {
			continue
		}
		g.retractHeaderContribution(result.Primary, v)
	}
}

func (g *SymbolGraph) deleteAllFactsForFile(f types.FileID) {
	for _, bucket := range []map[types.UsrID]map[types.Location]struct{}{g.decls, g.defs, g.refs} {
		g.deleteBucketFactsForFile(bucket, f)
	}

	for loc := range g.locationCursors {
		if loc.File == f {
			delete(g.locationCursors, loc)
		}
	}
	delete(g.fixIts, f)
	for loc := range g.includes {
		if loc.File == f {
			delete(g.includes, loc)
		}
	}

	for to := range g.depends[f] {
		if set := g.reverseDepends[to]; set != nil {
			delete(set, f)
			if len(set) == 0 {
				delete(g.reverseDepends, to)
			}
		}
	}
	delete(g.depends, f)

	// Drop any header-ownership entries this primary held directly
	// (defensive — normally handled via retractHeaderContribution, but
	// a primary's own facts never go through headerOwners).
	for key, owners := range g.headerOwners {
		if key.loc.File != f {
			continue
		}
		delete(owners, f)
		if len(owners) == 0 {
			g.removeFactCompletely(key)
		}
	}
}

func (g *SymbolGraph) deleteBucketFactsForFile(bucket map[types.UsrID]map[types.Location]struct{}, f types.FileID) {
	for usr, locs := range bucket {
		for loc := range locs {
			if loc.File == f {
				delete(locs, loc)
			}
		}
		if len(locs) == 0 {
			delete(bucket, usr)
			g.scrubNameIfOrphaned(usr)
		}
	}
}

// retractHeaderContribution removes exactly the facts `primary`
// previously asserted about header file `header`, via the headerOwners
// provenance index.
func (g *SymbolGraph) retractHeaderContribution(primary, header types.FileID) {
	for key, owners := range g.headerOwners {
		if key.loc.File != header {
			continue
		}
		if _, contributed := owners[primary]; !contributed {
			continue
		}
		delete(owners, primary)
		if len(owners) == 0 {
			g.removeFactCompletely(key)
		}
	}
}

// retractAllHeaderContributions removes every header-fact contribution
// owner ever made, regardless of which header it landed in — the
// RemoveFile counterpart to retractHeaderContribution, which Merge can
// target at a specific header via result.VisitedFiles but RemoveFile
// cannot: the file being removed is gone, so every header it
// contributed to must be found by scanning ownership instead.
func (g *SymbolGraph) retractAllHeaderContributions(owner types.FileID) {
	for key, owners := range g.headerOwners {
		if _, contributed := owners[owner]; !contributed {
			continue
		}
		delete(owners, owner)
		if len(owners) == 0 {
			g.removeFactCompletely(key)
		}
	}
}

func (g *SymbolGraph) removeFactCompletely(key factKey) {
	delete(g.headerOwners, key)
	bucket := g.bucketOf(key.bucket)
	if set, ok := bucket[key.usr]; ok {
		delete(set, key.loc)
		if len(set) == 0 {
			delete(bucket, key.usr)
			g.scrubNameIfOrphaned(key.usr)
		}
	}
	delete(g.locationCursors, key.loc)
}

func (g *SymbolGraph) bucketOf(b factBucket) map[types.UsrID]map[types.Location]struct{} {
	switch b {
	case bucketDecl:
		return g.decls
	case bucketDef:
		return g.defs
	default:
		return g.refs
	}
}

// scrubNameIfOrphaned removes usr from names[spelling] once it has no
// remaining location in decls/defs/refs, keeping the names index from
// accumulating stale entries across reparses (invariant 5's spirit
// applied to the names index, which the spec does not key by Location
// directly).
func (g *SymbolGraph) scrubNameIfOrphaned(usr types.UsrID) {
	if len(g.decls[usr]) > 0 || len(g.defs[usr]) > 0 || len(g.refs[usr]) > 0 {
		return
	}
	spelling, ok := g.usrSpelling[usr]
	if !ok {
		return
	}
	if set, ok := g.names[spelling]; ok {
		delete(set, usr)
		if len(set) == 0 {
			delete(g.names, spelling)
		}
	}
	delete(g.usrSpelling, usr)
}

// insertFacts implements spec §4.5 step 2, applying replace semantics
// for primary-file locations (already cleared by retractPriorFacts)
// and union-with-provenance semantics for header locations.
func (g *SymbolGraph) insertFacts(result *IndexResult) {
	g.insertBucket(bucketDecl, result.Decls, result.Primary)
	g.insertBucket(bucketDef, result.Defs, result.Primary)
	g.insertBucket(bucketRef, result.Refs, result.Primary)

	for loc, info := range result.LocationCursors {
		g.validateLocation(loc)
		g.locationCursors[loc] = info
	}

	for child, parents := range result.Virtuals {
		g.validateUsr(child)
		set, ok := g.virtuals[child]
		if !ok {
			set = make(map[types.UsrID]struct{})
			g.virtuals[child] = set
		}
		for parent := range parents {
			g.validateUsr(parent)
			set[parent] = struct{}{}
		}
	}

	for loc, included := range result.Includes {
		g.validateLocation(loc)
		g.includes[loc] = included
		g.addDependency(result.Primary, included)
	}

	for spelling, usrs := range result.Names {
		set, ok := g.names[spelling]
		if !ok {
			set = make(map[types.UsrID]struct{})
			g.names[spelling] = set
		}
		for usr := range usrs {
			set[usr] = struct{}{}
			g.usrSpelling[usr] = spelling
		}
	}

	for fileID, fixits := range result.FixIts {
		merged := append(g.fixIts[fileID], fixits...)
		sort.Slice(merged, func(i, j int) bool { return merged[i].Start < merged[j].Start })
		g.fixIts[fileID] = merged
	}
}

func (g *SymbolGraph) insertBucket(b factBucket, src map[types.UsrID]map[types.Location]struct{}, primary types.FileID) {
	dst := g.bucketOf(b)
	for usr, locs := range src {
		g.validateUsr(usr)
		set, ok := dst[usr]
		if !ok {
			set = make(map[types.Location]struct{})
			dst[usr] = set
		}
		for loc := range locs {
			g.validateLocation(loc)
			set[loc] = struct{}{}
			if loc.File != primary {
				key := factKey{bucket: b, usr: usr, loc: loc}
				owners, ok := g.headerOwners[key]
				if !ok {
					owners = make(map[types.FileID]struct{})
					g.headerOwners[key] = owners
				}
				owners[primary] = struct{}{}
			}
		}
	}
}

func (g *SymbolGraph) addDependency(from, to types.FileID) {
	set, ok := g.depends[from]
	if !ok {
		set = make(map[types.FileID]struct{})
		g.depends[from] = set
	}
	set[to] = struct{}{}
}

// recomputeReverseDepends implements spec §4.5 step 3, restoring
// invariant 4 (b ∈ depends[a] ⇔ a ∈ reverseDepends[b]) for the edges
// this merge touched.
func (g *SymbolGraph) recomputeReverseDepends(result *IndexResult) {
	for to := range g.depends[result.Primary] {
		set, ok := g.reverseDepends[to]
		if !ok {
			set = make(map[types.FileID]struct{})
			g.reverseDepends[to] = set
		}
		set[result.Primary] = struct{}{}
	}
}

// RemoveFile erases every fact whose primary is fileID (spec §4.4
// "remove(path)": "erase all facts whose primary is this FileId, then
// clean orphans").
func (g *SymbolGraph) RemoveFile(fileID types.FileID) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.deleteAllFactsForFile(fileID)
	g.retractAllHeaderContributions(fileID)
}
