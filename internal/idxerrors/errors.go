// Package idxerrors defines the error taxonomy of the indexing core
// (spec §7): transient job errors that never reach the graph, a
// cancellation sentinel that is explicitly not an error, and a fatal
// invariant-violation kind that marks the graph corrupted.
package idxerrors

import (
	"errors"
	"fmt"
	"time"

	"github.com/indexcore/engine/internal/types"
)

// Kind enumerates the taxonomy of spec §7.
type Kind string

const (
	KindParserInvocationFailed Kind = "parser_invocation_failed"
	KindSyntaxFatal            Kind = "syntax_fatal"
	KindCancelled              Kind = "cancelled"
	KindFilesystem             Kind = "filesystem"
	KindPersistence            Kind = "persistence"
	KindInvariantViolation     Kind = "invariant_violation"
	KindConfig                 Kind = "config"
)

// ErrCancelled is returned by a Parse Job that was cancelled between
// cursor visits. Callers must treat it as silent, not logged as failure
// (spec §7: "Cancellation: not an error; silent").
var ErrCancelled = errors.New("parse job cancelled")

// JobError carries the context spec §7 requires for per-job errors: the
// kind, the primary file, and whether prior facts for that file were
// retained (they always are, for transient kinds).
type JobError struct {
	Kind       Kind
	FileID     types.FileID
	Path       string
	Op         string
	Underlying error
	At         time.Time
	Retained   bool
}

func NewJobError(kind Kind, op string, err error) *JobError {
	return &JobError{
		Kind:       kind,
		Op:         op,
		Underlying: err,
		At:         time.Now(),
		Retained:   kind != KindInvariantViolation,
	}
}

func (e *JobError) WithFile(id types.FileID, path string) *JobError {
	e.FileID = id
	e.Path = path
	return e
}

func (e *JobError) Error() string {
	if e.Underlying != nil {
		return fmt.Sprintf("%s: %s (%s): %v", e.Kind, e.Op, e.Path, e.Underlying)
	}
	return fmt.Sprintf("%s: %s (%s)", e.Kind, e.Op, e.Path)
}

func (e *JobError) Unwrap() error { return e.Underlying }

// IsCancelled reports whether err is (or wraps) ErrCancelled.
func IsCancelled(err error) bool {
	return errors.Is(err, ErrCancelled)
}

// InvariantError is fatal: per spec §7 the recovery policy is "discard
// and re-index from scratch". Callers of the graph must not attempt to
// keep serving reads once this is raised from a mutating path.
type InvariantError struct {
	Invariant string
	Detail    string
}

func NewInvariantError(invariant, detail string) *InvariantError {
	return &InvariantError{Invariant: invariant, Detail: detail}
}

func (e *InvariantError) Error() string {
	return fmt.Sprintf("invariant violated (%s): %s", e.Invariant, e.Detail)
}

// PersistenceError wraps a save/restore failure. Per spec §7 it is
// surfaced to the caller and never corrupts the in-memory graph.
type PersistenceError struct {
	Op         string
	Underlying error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("persistence %s failed: %v", e.Op, e.Underlying)
}

func (e *PersistenceError) Unwrap() error { return e.Underlying }

func NewPersistenceError(op string, err error) *PersistenceError {
	return &PersistenceError{Op: op, Underlying: err}
}
