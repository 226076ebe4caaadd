// Package frontend is the concrete cursor source the Parse Job drives
// (spec.md §4.3's "assumed to deliver a cursor stream with kind,
// extent, spelling, USR, and semantic parent"). It parses C/C++ with
// the tree-sitter grammar and walks the resulting tree into a flat
// RawCursor stream; the core never imports tree-sitter directly, only
// the CursorSource interface below.
package frontend

import "context"

// CursorKind mirrors types.CursorKind's recognised variants at the
// frontend boundary, kept distinct from internal/types so this package
// has no core dependency beyond what RawCursor needs to carry.
type CursorKind uint8

const (
	KindUnknown CursorKind = iota
	KindDeclaration
	KindDefinition
	KindReference
	KindMemberFunctionDeclaration
	KindMemberFunctionDefinition
)

// RawCursor is one visited AST node, translated into the shape the
// Parse Job's algorithm (spec.md §4.3 step 2) expects: a USR, a
// spelling, an extent, a kind, and — for member functions — the
// overrides it participates in.
type RawCursor struct {
	Kind            CursorKind
	USR             string
	Spelling        string
	StartByte       uint32
	EndByte         uint32
	IsMemberFunction bool
	// Overrides holds the spellings of methods this member function's
	// "override" specifier claims to override. Tree-sitter has no
	// base-class resolution, so this is a name match, not a USR — the
	// Parse Job (internal/scheduler's resolveOverrideTargets) resolves
	// each spelling against the member-function USRs actually emitted
	// by this TU, falling back to the same-spelled member functions
	// already present in the graph when the base class lives elsewhere.
	Overrides []string
	// SemanticParent is the enclosing class/struct/namespace path used
	// to synthesize this cursor's USR (see synthesizeUSR).
	SemanticParent string
}

// Include is one inclusion directive found while walking a
// translation unit (spec.md §4.3 step 3).
type Include struct {
	DirectiveStartByte uint32
	DirectiveEndByte   uint32
	Path               string // as written, e.g. "widget.h" or <vector>
	IsSystem           bool   // angle-bracket form
}

// FixIt is a diagnostic-attached suggested edit (spec.md §4.3 step 4).
type FixIt struct {
	StartByte   uint32
	EndByte     uint32
	Replacement string
}

// ParseResult is everything one invocation of a CursorSource extracted
// from a translation unit, in byte-offset space; the Parse Job is
// responsible for turning byte offsets into the core's Location type
// (which needs a FileId it, not the frontend, must intern).
type ParseResult struct {
	Cursors  []RawCursor
	Includes []Include
	FixIts   []FixIt
}

// CursorSource is the swappable boundary spec.md §1 calls out as an
// external collaborator. TreeSitterCursorSource is the one concrete
// implementation this repository ships.
type CursorSource interface {
	// Parse drives the parser over content (the primary TU's source
	// text) using args as the compiler argument vector, returning a
	// ParseResult or a parse failure. ctx cancellation must stop the
	// walk between cursor visits, per spec.md §4.3 "may be cancelled
	// between cursor visits".
	Parse(ctx context.Context, path string, content []byte, args []string) (*ParseResult, error)
}
