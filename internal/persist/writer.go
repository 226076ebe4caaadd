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

// writerBufferSize mirrors the pack's own buffered-writer size for the
// same line-oriented JSON emission pattern.
const writerBufferSize = 4096

// Writer serializes one graph generation to newline-delimited JSON.
type Writer struct {
	buffered *bufio.Writer
	encoder  *json.Encoder
	err      error
}

// NewWriter wraps w.
func NewWriter(w io.Writer) *Writer {
	buffered := bufio.NewWriterSize(w, writerBufferSize)
	return &Writer{buffered: buffered, encoder: json.NewEncoder(buffered)}
}

func (jw *Writer) write(r record) {
	if jw.err != nil {
		return
	}
	if err := jw.encoder.Encode(r); err != nil {
		jw.err = err
	}
}

// WriteGraph emits fileReg's and usrTab's id<->string tables, then
// every fact in g, one record per line (SPEC_FULL.md §4.10). Flush
// must be called afterward to guarantee the bytes reached w.
func (jw *Writer) WriteGraph(g *graph.SymbolGraph, fileReg *interning.FileRegistry, usrTab *interning.UsrTable) error {
	for id, path := range fileReg.Snapshot() {
		jw.write(record{Kind: kindFile, FileID: uint32(id), Path: path})
	}
	for id, usr := range usrTab.Snapshot() {
		jw.write(record{Kind: kindUsr, UsrID: uint32(id), Usr: usr})
	}

	g.WithReadLock(func(snap graph.Snapshot) {
		for loc, info := range snap.LocationCursors {
			jw.write(record{
				Kind:           factKind(info.Kind),
				LocationFileID: uint32(loc.File),
				Start:          loc.Start,
				End:            loc.End,
				FactUsrID:      uint32(info.Usr),
				CursorKind:     info.Kind,
			})
		}

		for child, parents := range snap.Virtuals {
			for parent := range parents {
				jw.write(record{Kind: kindVirtual, Child: uint32(child), Parent: uint32(parent)})
			}
		}

		for loc, included := range snap.Includes {
			jw.write(record{
				Kind:           kindInclude,
				LocationFileID: uint32(loc.File),
				Start:          loc.Start,
				End:            loc.End,
				Included:       uint32(included),
			})
		}

		for spelling, usrs := range snap.Names {
			ids := make([]uint32, 0, len(usrs))
			for usr := range usrs {
				ids = append(ids, uint32(usr))
			}
			jw.write(record{Kind: kindNames, Spelling: spelling, Usrs: ids})
		}

		for fileID, fixits := range snap.FixIts {
			for _, f := range fixits {
				jw.write(record{
					Kind:        kindFixit,
					FileID:      uint32(fileID),
					Start:       f.Start,
					End:         f.End,
					Replacement: f.Replacement,
				})
			}
		}
	})

	if jw.err != nil {
		return idxerrors.NewPersistenceError("write", jw.err)
	}
	return nil
}

// Flush ensures every written record reached the underlying writer.
func (jw *Writer) Flush() error {
	if jw.err != nil {
		return idxerrors.NewPersistenceError("write", jw.err)
	}
	if err := jw.buffered.Flush(); err != nil {
		return idxerrors.NewPersistenceError("flush", err)
	}
	return nil
}

func factKind(k types.CursorKind) kind {
	switch {
	case k.IsDefinitionKind():
		return kindDef
	case k.IsDeclarationKind():
		return kindDecl
	default:
		return kindRef
	}
}
