// Package query implements the Query Engine of spec §4.6: read-only
// accessors layered on the Symbol Graph, none of which block on
// indexing (spec §6 "Query API... none block on indexing" — they take
// only the graph's reader lock, which a Merge in progress briefly
// holds exclusively, never the Scheduler's queue).
package query

import (
	"fmt"
	"sort"
	"strings"

	"github.com/indexcore/engine/internal/graph"
	"github.com/indexcore/engine/internal/interning"
	"github.com/indexcore/engine/internal/pathutil"
	"github.com/indexcore/engine/internal/types"
)

// Engine is a thin, stateless wrapper over a SymbolGraph plus the
// registries needed to translate between paths and ids for callers
// (the RPC surface in internal/rpcapi speaks paths, the graph speaks
// ids).
type Engine struct {
	g       *graph.SymbolGraph
	fileReg *interning.FileRegistry
	usrTab  *interning.UsrTable
}

func New(g *graph.SymbolGraph, fileReg *interning.FileRegistry, usrTab *interning.UsrTable) *Engine {
	return &Engine{g: g, fileReg: fileReg, usrTab: usrTab}
}

// FileID translates a path to its interned FileId, for callers (the
// RPC surface in internal/rpcapi) that need to build a types.Location
// themselves, e.g. for CursorAt. A path never seen by the File
// Registry has no FileId yet — not an error, just nothing to resolve.
func (e *Engine) FileID(path string) (types.FileID, bool) {
	return e.fileReg.Lookup(path)
}

// Cursor is a resolved query result carrying both ids and the strings
// callers generally want (path, USR), resolved while still under the
// graph's lock so the snapshot is self-consistent.
type Cursor struct {
	Usr      types.UsrID
	UsrStr   string
	Path     string
	Location types.Location
	Kind     types.CursorKind
}

// CursorAt implements spec §4.6 "cursor(location)": exact match first,
// then the narrowest enclosing CursorInfo, then an empty cursor (never
// an error — spec scenario S6).
func (e *Engine) CursorAt(loc types.Location) Cursor {
	var result Cursor
	e.g.WithReadLock(func(s graph.Snapshot) {
		if info, ok := s.LocationCursors[loc]; ok {
			result = e.toCursor(info, loc.File)
			return
		}

		var best types.CursorInfo
		var bestLoc types.Location
		found := false
		for candidateLoc, info := range s.LocationCursors {
			candidate := info.Location(candidateLoc.File)
			if candidate.File != loc.File || !candidate.Contains(loc) {
				continue
			}
			if !found || candidate.Len() < bestLoc.Len() {
				best, bestLoc, found = info, candidateLoc, true
			}
		}
		if found {
			result = e.toCursor(best, bestLoc.File)
		}
	})
	return result
}

func (e *Engine) toCursor(info types.CursorInfo, file types.FileID) Cursor {
	usrStr, _ := e.usrTab.Reverse(info.Usr)
	path, _ := e.fileReg.Path(file)
	return Cursor{
		Usr:      info.Usr,
		UsrStr:   usrStr,
		Path:     path,
		Location: info.Location(file),
		Kind:     info.Kind,
	}
}

// ReferenceKinds selects which buckets References additionally unions
// in, beyond refs itself (spec §4.6: "refs[U] ∪ optionally decls[U] ∪
// defs[U]").
type ReferenceKinds struct {
	IncludeDecls bool
	IncludeDefs  bool
}

// References implements spec §4.6 "references(location, flags,
// pathFilter)". It resolves the UsrId at location first.
func (e *Engine) References(loc types.Location, kinds ReferenceKinds, pathFilter string) []Cursor {
	at := e.CursorAt(loc)
	if at.Usr == types.InvalidUsrID {
		return nil
	}

	var out []Cursor
	e.g.WithReadLock(func(s graph.Snapshot) {
		e.collectLocations(s.Refs[at.Usr], at.Usr, pathFilter, &out)
		if kinds.IncludeDecls {
			e.collectLocations(s.Decls[at.Usr], at.Usr, pathFilter, &out)
		}
		if kinds.IncludeDefs {
			e.collectLocations(s.Defs[at.Usr], at.Usr, pathFilter, &out)
		}
	})
	return out
}

func (e *Engine) collectLocations(locs map[types.Location]struct{}, usr types.UsrID, pathFilter string, out *[]Cursor) {
	usrStr, _ := e.usrTab.Reverse(usr)
	for loc := range locs {
		path, ok := e.fileReg.Path(loc.File)
		if !ok || !pathutil.HasPrefix(path, pathFilter) {
			continue
		}
		*out = append(*out, Cursor{Usr: usr, UsrStr: usrStr, Path: path, Location: loc})
	}
}

// FindCursors implements spec §4.6 "findCursors(name, pathFilter)":
// iterate names[name] -> UsrIds -> decls/defs/refs, filtered by path.
func (e *Engine) FindCursors(name, pathFilter string) []Cursor {
	var out []Cursor
	e.g.WithReadLock(func(s graph.Snapshot) {
		for usr := range s.Names[name] {
			e.collectLocations(s.Decls[usr], usr, pathFilter, &out)
			e.collectLocations(s.Defs[usr], usr, pathFilter, &out)
			e.collectLocations(s.Refs[usr], usr, pathFilter, &out)
		}
	})
	return out
}

// ListSymbols implements spec §4.6 "listSymbols(prefix, pathFilter)":
// a lexicographic scan of names whose key starts with prefix. pathFilter
// restricts to names that have at least one decl/def/ref under it.
func (e *Engine) ListSymbols(prefix, pathFilter string) []string {
	var out []string
	e.g.WithReadLock(func(s graph.Snapshot) {
		for name, usrs := range s.Names {
			if !strings.HasPrefix(name, prefix) {
				continue
			}
			if pathFilter != "" && !e.anyUnderPath(s, usrs, pathFilter) {
				continue
			}
			out = append(out, name)
		}
	})
	sort.Strings(out)
	return out
}

func (e *Engine) anyUnderPath(s graph.Snapshot, usrs map[types.UsrID]struct{}, pathFilter string) bool {
	for usr := range usrs {
		for _, bucket := range []map[types.UsrID]map[types.Location]struct{}{s.Decls, s.Defs, s.Refs} {
			for loc := range bucket[usr] {
				if path, ok := e.fileReg.Path(loc.File); ok && pathutil.HasPrefix(path, pathFilter) {
					return true
				}
			}
		}
	}
	return false
}

// CursorsInFile implements spec §4.6 "cursors(path)": all
// locationCursors with FileId = path's id.
func (e *Engine) CursorsInFile(path string) []Cursor {
	fileID, ok := e.fileReg.Lookup(path)
	if !ok {
		return nil
	}
	var out []Cursor
	e.g.WithReadLock(func(s graph.Snapshot) {
		for loc, info := range s.LocationCursors {
			if loc.File != fileID {
				continue
			}
			out = append(out, e.cursorFromSnapshot(info, loc, path))
		}
	})
	sort.Slice(out, func(i, j int) bool { return out[i].Location.Start < out[j].Location.Start })
	return out
}

func (e *Engine) cursorFromSnapshot(info types.CursorInfo, loc types.Location, path string) Cursor {
	usrStr, _ := e.usrTab.Reverse(info.Usr)
	return Cursor{Usr: info.Usr, UsrStr: usrStr, Path: path, Location: loc, Kind: info.Kind}
}

// Dependencies implements spec §4.6 "dependencies(path, mode)".
func (e *Engine) Dependencies(path string, mode types.DependencyMode) []string {
	fileID, ok := e.fileReg.Lookup(path)
	if !ok {
		return nil
	}
	ids := e.g.Dependencies(fileID, mode)
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if p, ok := e.fileReg.Path(id); ok {
			out = append(out, p)
		}
	}
	sort.Strings(out)
	return out
}

// FixIts implements spec §4.6 "fixits(path) -> ordered text block":
// serialize fixIts[file] sorted by start, one per line, as
// "start-end\treplacement" (replacement has embedded tabs/newlines
// escaped so the line-oriented format stays unambiguous).
func (e *Engine) FixIts(path string) string {
	fileID, ok := e.fileReg.Lookup(path)
	if !ok {
		return ""
	}
	var sb strings.Builder
	e.g.WithReadLock(func(s graph.Snapshot) {
		for _, fi := range s.FixIts[fileID] {
			fmt.Fprintf(&sb, "%d-%d\t%s\n", fi.Start, fi.End, escapeFixIt(fi.Replacement))
		}
	})
	return sb.String()
}

func escapeFixIt(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	s = strings.ReplaceAll(s, "\t", `\t`)
	s = strings.ReplaceAll(s, "\n", `\n`)
	return s
}
