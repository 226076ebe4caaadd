package graph

import "github.com/indexcore/engine/internal/types"

// IndexResult is the per-unit value object of spec §3/§4.3: everything
// one Parse Job extracted from one translation unit. It is created by
// the Parse Job, consumed exactly once by the Merger, and then
// discarded — it never outlives a single merge.
type IndexResult struct {
	Primary types.FileID

	Decls map[types.UsrID]map[types.Location]struct{}
	Defs  map[types.UsrID]map[types.Location]struct{}
	Refs  map[types.UsrID]map[types.Location]struct{}

	// Virtuals is stored pre-symmetrized: Virtuals[child] contains
	// parent and Virtuals[parent] contains child (spec §4.3 step 2).
	Virtuals map[types.UsrID]map[types.UsrID]struct{}

	// Includes maps an inclusion directive's Location (in the
	// including file) to the FileID it names.
	Includes map[types.Location]types.FileID

	Names map[string]map[types.UsrID]struct{}

	LocationCursors map[types.Location]types.CursorInfo

	FixIts map[types.FileID][]types.FixIt

	// VisitedFiles is the primary plus every transitively-included
	// header this job is considered to "own" (spec §4.3 step 5 /
	// §4.5 step 1): the set over which whole-TU replace applies for
	// the primary, and provenance-tracked union applies for headers.
	VisitedFiles map[types.FileID]struct{}

	// Partial marks a result whose job did not visit the whole TU. No
	// Parse Job in this repository sets it (MaxCursorDepth is not
	// enforced), so every merged result has it false.
	Partial bool
}

// NewIndexResult returns an IndexResult with all maps initialized and
// ready for a Parse Job to populate.
func NewIndexResult(primary types.FileID) *IndexResult {
	return &IndexResult{
		Primary:         primary,
		Decls:           make(map[types.UsrID]map[types.Location]struct{}),
		Defs:            make(map[types.UsrID]map[types.Location]struct{}),
		Refs:            make(map[types.UsrID]map[types.Location]struct{}),
		Virtuals:        make(map[types.UsrID]map[types.UsrID]struct{}),
		Includes:        make(map[types.Location]types.FileID),
		Names:           make(map[string]map[types.UsrID]struct{}),
		LocationCursors: make(map[types.Location]types.CursorInfo),
		FixIts:          make(map[types.FileID][]types.FixIt),
		VisitedFiles:    map[types.FileID]struct{}{primary: {}},
	}
}

func (r *IndexResult) bucketFor(kind types.CursorKind) map[types.UsrID]map[types.Location]struct{} {
	switch {
	case kind.IsDefinitionKind():
		return r.Defs
	case kind.IsDeclarationKind():
		return r.Decls
	default:
		return r.Refs
	}
}

// AddCursor records one visited cursor, applying the Parse Job's
// tie-break rule (spec §4.3: "If two cursors produce the same Location
// with different UsrIds, the one whose kind has higher precedence
// wins... Equal kinds: first wins") and the name/spelling bookkeeping.
func (r *IndexResult) AddCursor(usr types.UsrID, spelling string, loc types.Location, kind types.CursorKind) {
	if existing, ok := r.LocationCursors[loc]; ok {
		if !kind.Outranks(existing.Kind) {
			return
		}
		r.removeFromBucket(existing.Usr, loc)
	}

	r.LocationCursors[loc] = types.CursorInfo{Usr: usr, Start: loc.Start, End: loc.End, Kind: kind}

	bucket := r.bucketFor(kind)
	set, ok := bucket[usr]
	if !ok {
		set = make(map[types.Location]struct{})
		bucket[usr] = set
	}
	set[loc] = struct{}{}

	if spelling != "" {
		names, ok := r.Names[spelling]
		if !ok {
			names = make(map[types.UsrID]struct{})
			r.Names[spelling] = names
		}
		names[usr] = struct{}{}
	}
}

func (r *IndexResult) removeFromBucket(usr types.UsrID, loc types.Location) {
	for _, bucket := range []map[types.UsrID]map[types.Location]struct{}{r.Decls, r.Defs, r.Refs} {
		if set, ok := bucket[usr]; ok {
			delete(set, loc)
			if len(set) == 0 {
				delete(bucket, usr)
			}
		}
	}
}

// AddOverride records a symmetric virtual-override edge between a
// member function and the cursor(s) it overrides (spec §4.3 step 2).
func (r *IndexResult) AddOverride(child, parent types.UsrID) {
	addSymmetricEdge(r.Virtuals, child, parent)
}

func addSymmetricEdge(m map[types.UsrID]map[types.UsrID]struct{}, a, b types.UsrID) {
	for _, pair := range [2][2]types.UsrID{{a, b}, {b, a}} {
		set, ok := m[pair[0]]
		if !ok {
			set = make(map[types.UsrID]struct{})
			m[pair[0]] = set
		}
		set[pair[1]] = struct{}{}
	}
}

// AddInclude records an inclusion directive edge and marks includedFile
// as visited (subject to the caller's system-header policy filtering,
// applied before this call per spec §4.3 "Filtering policy").
func (r *IndexResult) AddInclude(directive types.Location, includedFile types.FileID) {
	r.Includes[directive] = includedFile
	r.VisitedFiles[includedFile] = struct{}{}
}

// AddFixIt appends a fix-it for fileID; the Merger is responsible for
// the final sort-by-start (spec invariant 6).
func (r *IndexResult) AddFixIt(fileID types.FileID, f types.FixIt) {
	r.FixIts[fileID] = append(r.FixIts[fileID], f)
}
