package persist

import (
	"bufio"
	"encoding/json"
	"io"

	"github.com/indexcore/engine/internal/graph"
	"github.com/indexcore/engine/internal/idxerrors"
	"github.com/indexcore/engine/internal/interning"
	"github.com/indexcore/engine/internal/types"
)

// readerScanBufferSize caps one NDJSON line; generous for a names
// record listing every USR sharing a spelling.
const readerScanBufferSize = 16 * 1024 * 1024

// ReadGraph decodes a dump written by Writer, returning a freshly
// built graph plus the File Registry and USR Interning Table it was
// restored against. FileIds/UsrIds are exactly what the dump recorded
// (SPEC_FULL.md §6/§8 property 7's "round-trip = identity modulo
// renumbering" is satisfied by FileRegistry.Restore/UsrTable.Restore
// reseeding their allocation counters past the max id seen — ids
// themselves are never renumbered, only new ones are guaranteed not to
// collide with them).
func ReadGraph(r io.Reader) (*graph.SymbolGraph, *interning.FileRegistry, *interning.UsrTable, error) {
	files := make(map[types.FileID]string)
	usrs := make(map[types.UsrID]string)

	decls := make(map[types.UsrID]map[types.Location]struct{})
	defs := make(map[types.UsrID]map[types.Location]struct{})
	refs := make(map[types.UsrID]map[types.Location]struct{})
	virtuals := make(map[types.UsrID]map[types.UsrID]struct{})
	names := make(map[string]map[types.UsrID]struct{})
	locationCursors := make(map[types.Location]types.CursorInfo)
	includes := make(map[types.Location]types.FileID)
	fixIts := make(map[types.FileID][]types.FixIt)
	depends := make(map[types.FileID]map[types.FileID]struct{})
	reverseDepends := make(map[types.FileID]map[types.FileID]struct{})

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), readerScanBufferSize)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		var rec record
		if err := json.Unmarshal(line, &rec); err != nil {
			return nil, nil, nil, idxerrors.NewPersistenceError("decode", err)
		}

		switch rec.Kind {
		case kindFile:
			files[types.FileID(rec.FileID)] = rec.Path
		case kindUsr:
			usrs[types.UsrID(rec.UsrID)] = rec.Usr
		case kindDecl, kindDef, kindRef:
			loc := types.Location{File: types.FileID(rec.LocationFileID), Start: rec.Start, End: rec.End}
			usr := types.UsrID(rec.FactUsrID)
			locationCursors[loc] = types.CursorInfo{Usr: usr, Start: loc.Start, End: loc.End, Kind: rec.CursorKind}
			addFact(bucketFor(rec.Kind, decls, defs, refs), usr, loc)
		case kindVirtual:
			addEdge(virtuals, types.UsrID(rec.Child), types.UsrID(rec.Parent))
		case kindInclude:
			loc := types.Location{File: types.FileID(rec.LocationFileID), Start: rec.Start, End: rec.End}
			includes[loc] = types.FileID(rec.Included)
			addEdge(depends, types.FileID(rec.LocationFileID), types.FileID(rec.Included))
			addEdge(reverseDepends, types.FileID(rec.Included), types.FileID(rec.LocationFileID))
		case kindNames:
			set := make(map[types.UsrID]struct{}, len(rec.Usrs))
			for _, id := range rec.Usrs {
				set[types.UsrID(id)] = struct{}{}
			}
			names[rec.Spelling] = set
		case kindFixit:
			fileID := types.FileID(rec.FileID)
			fixIts[fileID] = append(fixIts[fileID], types.FixIt{Start: rec.Start, End: rec.End, Replacement: rec.Replacement})
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, nil, nil, idxerrors.NewPersistenceError("scan", err)
	}

	fileReg := interning.NewFileRegistry(16, "")
	fileReg.Restore(files)
	usrTab := interning.NewUsrTable(16)
	usrTab.Restore(usrs)

	g := graph.New(fileReg, usrTab)
	g.RestoreSnapshot(graph.Snapshot{
		Decls:           decls,
		Defs:            defs,
		Refs:            refs,
		Virtuals:        virtuals,
		Names:           names,
		LocationCursors: locationCursors,
		FixIts:          fixIts,
		Depends:         depends,
		ReverseDepends:  reverseDepends,
		Includes:        includes,
	})

	return g, fileReg, usrTab, nil
}

func bucketFor(k kind, decls, defs, refs map[types.UsrID]map[types.Location]struct{}) map[types.UsrID]map[types.Location]struct{} {
	switch k {
	case kindDef:
		return defs
	case kindRef:
		return refs
	default:
		return decls
	}
}

func addFact(bucket map[types.UsrID]map[types.Location]struct{}, usr types.UsrID, loc types.Location) {
	set, ok := bucket[usr]
	if !ok {
		set = make(map[types.Location]struct{})
		bucket[usr] = set
	}
	set[loc] = struct{}{}
}

func addEdge[K comparable](m map[K]map[K]struct{}, from, to K) {
	set, ok := m[from]
	if !ok {
		set = make(map[K]struct{})
		m[from] = set
	}
	set[to] = struct{}{}
}
