// Package types holds the value types shared across the indexing core:
// dense identifiers, source locations, cursor facts and fix-its. None of
// these types carry behavior beyond simple accessors — they are the
// vocabulary the rest of the core is written in.
package types

import "fmt"

// FileID is a dense, process-lifetime-stable identifier for an absolute
// path. IDs are allocated by the File Registry on first sighting and are
// never reused.
type FileID uint32

// InvalidFileID is the zero value; no real file is ever assigned it.
const InvalidFileID FileID = 0

// UsrID is a dense, process-lifetime-stable identifier for a USR string.
// Like FileID, it is allocated on first sighting and never reused.
type UsrID uint32

// InvalidUsrID is the zero value; no real USR is ever assigned it.
const InvalidUsrID UsrID = 0

// Location is a half-open byte range within one file. The zero value is
// not a valid location (FileID is InvalidFileID).
type Location struct {
	File  FileID
	Start uint32
	End   uint32
}

// Contains reports whether l fully encloses other (used to find the
// narrowest enclosing cursor when an exact location lookup misses).
func (l Location) Contains(other Location) bool {
	return l.File == other.File && l.Start <= other.Start && l.End >= other.End
}

// Len returns the byte length of the location.
func (l Location) Len() uint32 {
	if l.End < l.Start {
		return 0
	}
	return l.End - l.Start
}

func (l Location) String() string {
	return fmt.Sprintf("file#%d[%d:%d]", l.File, l.Start, l.End)
}

// CursorKind tags what a CursorInfo represents. Declaration/Definition
// precedence is used by the Parse Job's tie-breaking rule (spec §4.3).
type CursorKind uint8

const (
	CursorUnknown CursorKind = iota
	CursorDeclaration
	CursorDefinition
	CursorReference
	CursorMemberFunctionDeclaration
	CursorMemberFunctionDefinition
)

func (k CursorKind) String() string {
	switch k {
	case CursorDeclaration:
		return "declaration"
	case CursorDefinition:
		return "definition"
	case CursorReference:
		return "reference"
	case CursorMemberFunctionDeclaration:
		return "member_function_declaration"
	case CursorMemberFunctionDefinition:
		return "member_function_definition"
	default:
		return "unknown"
	}
}

// IsDefinitionKind reports whether the kind belongs in the defs bucket.
func (k CursorKind) IsDefinitionKind() bool {
	return k == CursorDefinition || k == CursorMemberFunctionDefinition
}

// IsDeclarationKind reports whether the kind belongs in the decls bucket.
func (k CursorKind) IsDeclarationKind() bool {
	return k == CursorDeclaration || k == CursorMemberFunctionDeclaration
}

// IsMemberFunction reports whether the kind participates in virtual
// override tracking.
func (k CursorKind) IsMemberFunction() bool {
	return k == CursorMemberFunctionDeclaration || k == CursorMemberFunctionDefinition
}

// precedence implements the tie-break rule of spec §4.3: Definition >
// Declaration > Reference. Higher wins.
func (k CursorKind) precedence() int {
	switch k {
	case CursorDefinition, CursorMemberFunctionDefinition:
		return 3
	case CursorDeclaration, CursorMemberFunctionDeclaration:
		return 2
	case CursorReference:
		return 1
	default:
		return 0
	}
}

// Outranks reports whether k should win a same-Location tie against
// other. Equal precedence means the existing (first) cursor wins.
func (k CursorKind) Outranks(other CursorKind) bool {
	return k.precedence() > other.precedence()
}

// CursorInfo is the fact recorded for a single visited cursor.
type CursorInfo struct {
	Usr   UsrID
	Start uint32
	End   uint32
	Kind  CursorKind
}

// Location reconstructs the Location this cursor was recorded under,
// given the FileID it belongs to (CursorInfo itself is stored keyed by
// Location in the graph and does not carry its own FileID).
func (c CursorInfo) Location(file FileID) Location {
	return Location{File: file, Start: c.Start, End: c.End}
}

// FixIt is a suggested textual edit attached to a diagnostic. FixIts
// within one file are kept totally ordered by Start (spec invariant 6).
type FixIt struct {
	Start       uint32
	End         uint32
	Replacement string
}

// SourceInformation describes one translation unit's primary input: the
// file to parse, the compiler-style argument vector, and the working
// directory those arguments are relative to.
type SourceInformation struct {
	Path       string
	Args       []string
	WorkingDir string
	// ContentHash is a slot for a digest of the primary file's bytes.
	// Nothing in this repository sets or reads it: there is no reparse
	// cache, and dirty bursts are deduplicated by path in internal/watch.
	ContentHash uint64
}

// IndexType distinguishes why a parse job was submitted.
type IndexType uint8

const (
	IndexInitial IndexType = iota
	IndexDirty
	IndexReindex
)

func (t IndexType) String() string {
	switch t {
	case IndexInitial:
		return "initial"
	case IndexDirty:
		return "dirty"
	case IndexReindex:
		return "reindex"
	default:
		return "unknown"
	}
}

// JobState is the ParseJob lifecycle state (spec §4.8).
type JobState uint8

const (
	JobQueued JobState = iota
	JobParsing
	JobMerging
	JobDone
	JobCancelled
)

func (s JobState) String() string {
	switch s {
	case JobQueued:
		return "queued"
	case JobParsing:
		return "parsing"
	case JobMerging:
		return "merging"
	case JobDone:
		return "done"
	case JobCancelled:
		return "cancelled"
	default:
		return "unknown"
	}
}

// ProjectState is the coarse project lifecycle of spec §4.8.
type ProjectState uint8

const (
	ProjectUnloaded ProjectState = iota
	ProjectInited
	ProjectLoading
	ProjectLoaded
	ProjectSyncing
)

func (s ProjectState) String() string {
	switch s {
	case ProjectUnloaded:
		return "unloaded"
	case ProjectInited:
		return "inited"
	case ProjectLoading:
		return "loading"
	case ProjectLoaded:
		return "loaded"
	case ProjectSyncing:
		return "syncing"
	default:
		return "unknown"
	}
}

// AcceptsIndexing reports whether the state allows index()/remove()/dirty()
// submissions (spec §4.8: "Indexing is accepted only in Loaded and Syncing").
func (s ProjectState) AcceptsIndexing() bool {
	return s == ProjectLoaded || s == ProjectSyncing
}

// SystemHeaderPolicy controls how headers outside the project root are
// indexed (spec §6).
type SystemHeaderPolicy uint8

const (
	SystemHeaderIndex SystemHeaderPolicy = iota
	SystemHeaderSkip
	SystemHeaderIndexOnce
)

func (p SystemHeaderPolicy) String() string {
	switch p {
	case SystemHeaderIndex:
		return "index"
	case SystemHeaderSkip:
		return "skip"
	case SystemHeaderIndexOnce:
		return "index_once"
	default:
		return "unknown"
	}
}

// DependencyMode selects traversal direction for Query Engine's
// dependencies() accessor (spec §4.6).
type DependencyMode uint8

const (
	DependsOnArg  DependencyMode = iota // forward: what does this file include
	ArgDependsOn                        // backward: what includes this file
)
