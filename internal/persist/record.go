// Package persist implements the graph serialize/deserialize layer of
// SPEC_FULL.md §4.10/§6: a newline-delimited JSON dump and restore of
// the Symbol Graph plus its File Registry and USR Interning Table.
// Grounded on the pack's sourcegraph-lsif-semanticdb writer
// (internal/index/writer.go): a bufio.Writer wrapping a json.Encoder,
// one value written per line, generalized here from LSIF
// vertices/edges to this core's own fact kinds.
package persist

import "github.com/indexcore/engine/internal/types"

// kind tags which fields of a record are populated, mirroring
// SPEC_FULL.md §4.10's named record kinds: file, usr, decl, def, ref,
// virtual, include, names, fixit.
type kind string

const (
	kindFile    kind = "file"
	kindUsr     kind = "usr"
	kindDecl    kind = "decl"
	kindDef     kind = "def"
	kindRef     kind = "ref"
	kindVirtual kind = "virtual"
	kindInclude kind = "include"
	kindNames   kind = "names"
	kindFixit   kind = "fixit"
)

// record is the one-line-per-fact wire shape. Fields are grouped by
// which kind populates them; omitempty keeps each line to only the
// fields its kind actually needs.
type record struct {
	Kind kind `json:"kind"`

	// file
	FileID uint32 `json:"file_id,omitempty"`
	Path   string `json:"path,omitempty"`

	// usr
	UsrID uint32 `json:"usr_id,omitempty"`
	Usr   string `json:"usr,omitempty"`

	// decl/def/ref: a Location (FileID/Start/End) attributed to UsrID,
	// with the exact CursorKind so a member-function declaration isn't
	// collapsed into a plain declaration on restore.
	LocationFileID uint32          `json:"loc_file,omitempty"`
	Start          uint32          `json:"start,omitempty"`
	End            uint32          `json:"end,omitempty"`
	FactUsrID      uint32          `json:"fact_usr,omitempty"`
	CursorKind     types.CursorKind `json:"cursor_kind,omitempty"`

	// virtual: a symmetric override edge, written once per direction.
	Child  uint32 `json:"child,omitempty"`
	Parent uint32 `json:"parent,omitempty"`

	// include: directive Location (LocationFileID/Start/End) -> Included.
	Included uint32 `json:"included,omitempty"`

	// names: one spelling and every UsrID interned under it.
	Spelling string   `json:"spelling,omitempty"`
	Usrs     []uint32 `json:"usrs,omitempty"`

	// fixit: one suggested edit attributed to FileID.
	Replacement string `json:"replacement,omitempty"`
}
