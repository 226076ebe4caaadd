// Package scheduler implements the Scheduler and Merger of spec §4.4/
// §4.5: a bounded worker pool that drives Parse Jobs concurrently, and
// a single actor goroutine that serializes every mutation into the
// Symbol Graph so "merge order follows job completion order" (spec §5)
// holds structurally. The worker-pool/channel shape follows the pack's
// internal/indexing/pipeline_processor.go; the single-writer discipline
// follows internal/indexing/index_locks.go, simplified down to the one
// lock internal/graph actually needs.
package scheduler

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"sync"

	"golang.org/x/sync/semaphore"

	"github.com/indexcore/engine/internal/frontend"
	"github.com/indexcore/engine/internal/graph"
	"github.com/indexcore/engine/internal/idxerrors"
	"github.com/indexcore/engine/internal/idxlog"
	"github.com/indexcore/engine/internal/interning"
	"github.com/indexcore/engine/internal/lciconfig"
	"github.com/indexcore/engine/internal/types"
)

// mergeRequest is one unit of work handed to the Merger actor: either
// an IndexResult to merge, or a FileId whose facts should be erased
// (spec §4.4 "remove(path)"). ackDone is closed once the actor has
// applied it, so the submitting goroutine can observe completion
// before transitioning its Job to Done.
type mergeRequest struct {
	result       *graph.IndexResult
	removeFileID types.FileID
	ackDone      chan struct{}
}

// Scheduler is the bounded worker pool of spec §4.4. One Scheduler owns
// exactly one Merger actor goroutine for the graph it was built with.
type Scheduler struct {
	graph   *graph.SymbolGraph
	fileReg *interning.FileRegistry
	usrTab  *interning.UsrTable
	source  frontend.CursorSource
	policy  types.SystemHeaderPolicy
	fixIts  bool

	sem *semaphore.Weighted

	mu        sync.Mutex
	byPrimary map[types.FileID]*Job

	mergeCh chan *mergeRequest
	jobsWG  sync.WaitGroup
	mergeWG sync.WaitGroup

	ctx    context.Context
	cancel context.CancelFunc
}

// New builds a Scheduler bound to g, using source as the Parse Job's
// cursor stream and cfg.Index.Parallelism/SystemHeaderPolicy to bound
// concurrency (spec §4.4 "default = logical-core count"). The Merger
// actor starts immediately and runs until Close.
func New(g *graph.SymbolGraph, fileReg *interning.FileRegistry, usrTab *interning.UsrTable, source frontend.CursorSource, cfg *lciconfig.Config) *Scheduler {
	parallelism := cfg.Index.Parallelism
	if parallelism <= 0 {
		parallelism = runtime.NumCPU()
	}

	ctx, cancel := context.WithCancel(context.Background())
	s := &Scheduler{
		graph:     g,
		fileReg:   fileReg,
		usrTab:    usrTab,
		source:    source,
		policy:    cfg.Index.SystemHeaderPolicy,
		fixIts:    cfg.Index.FixItsEnabled,
		sem:       semaphore.NewWeighted(int64(parallelism)),
		byPrimary: make(map[types.FileID]*Job),
		mergeCh:   make(chan *mergeRequest, parallelism*2),
		ctx:       ctx,
		cancel:    cancel,
	}

	s.mergeWG.Add(1)
	go s.runMerger()
	return s
}

// Submit enqueues a Parse Job for source (spec §4.4 "submit(job)"). A
// prior job still Queued or Parsing for the same primary FileId is
// cancelled and superseded; a job already Merging is left to finish —
// merges are atomic (spec §4.8).
func (s *Scheduler) Submit(source types.SourceInformation, typ types.IndexType) (*Job, error) {
	if s.ctx.Err() != nil {
		return nil, idxerrors.NewJobError(idxerrors.KindCancelled, "submit", s.ctx.Err()).WithFile(types.InvalidFileID, source.Path)
	}

	fileID, err := s.fileReg.Intern(source.Path)
	if err != nil {
		return nil, idxerrors.NewJobError(idxerrors.KindFilesystem, "submit", err).WithFile(types.InvalidFileID, source.Path)
	}

	job := newJob(source, typ, fileID)

	s.mu.Lock()
	if prior, ok := s.byPrimary[fileID]; ok {
		prior.cancelIfPending()
	}
	s.byPrimary[fileID] = job
	s.mu.Unlock()

	s.jobsWG.Add(1)
	go s.runJob(job)
	return job, nil
}

// Remove cancels any in-flight job for path and enqueues a Removal
// event the Merger applies as "erase all facts whose primary is this
// FileId, then clean orphans" (spec §4.4 "remove(path)"). A path never
// interned is a no-op: nothing was ever indexed under it.
func (s *Scheduler) Remove(path string) error {
	fileID, ok := s.fileReg.Lookup(path)
	if !ok {
		return nil
	}

	s.mu.Lock()
	if prior, ok := s.byPrimary[fileID]; ok {
		prior.cancelIfPending()
		delete(s.byPrimary, fileID)
	}
	s.mu.Unlock()

	req := &mergeRequest{removeFileID: fileID, ackDone: make(chan struct{})}
	select {
	case s.mergeCh <- req:
	case <-s.ctx.Done():
		return s.ctx.Err()
	}
	<-req.ackDone
	return nil
}

// IsIndexing reports whether any tracked job is Queued, Parsing, or
// Merging (spec §4.4 "isIndexing()").
func (s *Scheduler) IsIndexing() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, job := range s.byPrimary {
		switch job.State() {
		case types.JobQueued, types.JobParsing, types.JobMerging:
			return true
		}
	}
	return false
}

// Close cancels every outstanding job, waits for their goroutines to
// reach a terminal state, then stops the Merger actor (spec §5: "On
// project unload, all queued jobs are cancelled and the merger
// drains").
func (s *Scheduler) Close() {
	s.mu.Lock()
	for _, job := range s.byPrimary {
		job.cancelIfPending()
	}
	s.mu.Unlock()

	s.cancel()
	s.jobsWG.Wait()
	close(s.mergeCh)
	s.mergeWG.Wait()
}

// runMerger is the single mutation actor of spec §4.5: it is the only
// goroutine that ever calls graph.Merge or graph.RemoveFile, so "merge
// order follows job completion order" (spec §5) is structural.
func (s *Scheduler) runMerger() {
	defer s.mergeWG.Done()
	for req := range s.mergeCh {
		if req.result != nil {
			s.graph.Merge(req.result)
		} else {
			s.graph.RemoveFile(req.removeFileID)
		}
		close(req.ackDone)
	}
}

// runJob drives one Job through Queued -> Parsing -> Merging -> Done,
// or to Cancelled at any point before the handoff to the Merger (spec
// §4.8). It always unblocks job.Wait callers on return.
func (s *Scheduler) runJob(job *Job) {
	defer s.jobsWG.Done()
	defer close(job.done)

	ctx, cancel := context.WithCancel(s.ctx)
	defer cancel()
	job.mu.Lock()
	job.cancel = cancel
	job.mu.Unlock()

	if err := s.sem.Acquire(ctx, 1); err != nil {
		job.cancelIfPending()
		return
	}
	defer s.sem.Release(1)

	job.mu.Lock()
	if job.state == types.JobCancelled {
		job.mu.Unlock()
		return
	}
	job.state = types.JobParsing
	job.mu.Unlock()

	result, err := s.parse(ctx, job)
	if err != nil {
		if !idxerrors.IsCancelled(err) {
			idxlog.Warnf("scheduler: job for %s failed: %v", job.Source.Path, err)
		}
		job.cancelIfPending()
		return
	}

	job.mu.Lock()
	if job.state == types.JobCancelled {
		job.mu.Unlock()
		return
	}
	job.state = types.JobMerging
	job.mu.Unlock()

	req := &mergeRequest{result: result, ackDone: make(chan struct{})}
	select {
	case s.mergeCh <- req:
	case <-s.ctx.Done():
		// Scheduler is closing; the merger actor is draining mergeCh
		// for requests already sent, but nothing new may be enqueued.
		job.setState(types.JobCancelled)
		return
	}
	<-req.ackDone

	job.setState(types.JobDone)
}

// parse implements the Parse Job algorithm of spec §4.3 against s.source,
// translating the frontend's byte-offset RawCursor stream into the
// graph's interned Location space.
func (s *Scheduler) parse(ctx context.Context, job *Job) (*graph.IndexResult, error) {
	content, err := os.ReadFile(job.Source.Path)
	if err != nil {
		return nil, idxerrors.NewJobError(idxerrors.KindFilesystem, "read", err).WithFile(job.FileID, job.Source.Path)
	}

	parsed, err := s.source.Parse(ctx, job.Source.Path, content, job.Source.Args)
	if err != nil {
		if ctx.Err() != nil {
			return nil, idxerrors.ErrCancelled
		}
		return nil, idxerrors.NewJobError(idxerrors.KindParserInvocationFailed, "parse", err).WithFile(job.FileID, job.Source.Path)
	}

	result := graph.NewIndexResult(job.FileID)

	memberUsrsBySpelling := make(map[string][]types.UsrID)
	for _, c := range parsed.Cursors {
		if c.Kind != frontend.KindMemberFunctionDeclaration && c.Kind != frontend.KindMemberFunctionDefinition {
			continue
		}
		usr := s.usrTab.Intern(c.USR)
		memberUsrsBySpelling[c.Spelling] = append(memberUsrsBySpelling[c.Spelling], usr)
	}

	for _, c := range parsed.Cursors {
		if ctx.Err() != nil {
			return nil, idxerrors.ErrCancelled
		}
		usr := s.usrTab.Intern(c.USR)
		loc := types.Location{File: job.FileID, Start: c.StartByte, End: c.EndByte}
		result.AddCursor(usr, c.Spelling, loc, coreKind(c.Kind))

		for _, overridden := range c.Overrides {
			for _, parentUsr := range s.resolveOverrideTargets(overridden, usr, memberUsrsBySpelling) {
				result.AddOverride(usr, parentUsr)
			}
		}
	}

	for _, inc := range parsed.Includes {
		if inc.IsSystem && s.policy == types.SystemHeaderSkip {
			continue
		}
		resolved := s.resolveInclude(job.Source.Path, inc)
		includedID, err := s.fileReg.Intern(resolved)
		if err != nil {
			continue
		}
		directive := types.Location{File: job.FileID, Start: inc.DirectiveStartByte, End: inc.DirectiveEndByte}
		result.AddInclude(directive, includedID)
	}

	if s.fixIts {
		for _, f := range parsed.FixIts {
			result.AddFixIt(job.FileID, types.FixIt{Start: f.StartByte, End: f.EndByte, Replacement: f.Replacement})
		}
	}

	return result, nil
}

// resolveInclude turns an as-written #include path into the string the
// File Registry interns it under. Quoted includes resolve relative to
// the including file's directory, matching compiler behavior; angle-
// bracket includes have no real search path available without running
// a compiler, so they are interned under a stable "system:" namespace —
// good enough to track the dependency edge, not to locate real header
// content (a known limitation of a tree-sitter-only front end, see
// DESIGN.md).
func (s *Scheduler) resolveInclude(primaryPath string, inc frontend.Include) string {
	if inc.IsSystem {
		return "system:" + inc.Path
	}
	return filepath.Join(filepath.Dir(primaryPath), inc.Path)
}

// resolveOverrideTargets finds the UsrIds an "override"-specified
// method actually overrides, matched by spelling (tree-sitter has no
// base-class resolution, so spelling is all it knows — see
// frontend.RawCursor.Overrides). local holds every member function
// this TU emits; when the overridden method's base class lives in
// another already-merged TU instead, the same-spelled member function
// is looked up in the live graph. A spelling with no member-function
// match anywhere is dropped rather than linked to a fabricated USR, so
// an override edge never points at a UsrId no cursor ever emits.
func (s *Scheduler) resolveOverrideTargets(spelling string, self types.UsrID, local map[string][]types.UsrID) []types.UsrID {
	var targets []types.UsrID
	for _, usr := range local[spelling] {
		if usr != self {
			targets = append(targets, usr)
		}
	}
	if len(targets) > 0 {
		return targets
	}

	s.graph.WithReadLock(func(snap graph.Snapshot) {
		for usr := range snap.Names[spelling] {
			if usr == self {
				continue
			}
			if isMemberFunctionUsr(snap, usr) {
				targets = append(targets, usr)
			}
		}
	})
	return targets
}

// isMemberFunctionUsr reports whether usr has any decl/def location
// whose recorded kind is a member-function kind.
func isMemberFunctionUsr(snap graph.Snapshot, usr types.UsrID) bool {
	for loc := range snap.Decls[usr] {
		if isMemberFunctionKind(snap.LocationCursors[loc].Kind) {
			return true
		}
	}
	for loc := range snap.Defs[usr] {
		if isMemberFunctionKind(snap.LocationCursors[loc].Kind) {
			return true
		}
	}
	return false
}

func isMemberFunctionKind(k types.CursorKind) bool {
	return k == types.CursorMemberFunctionDeclaration || k == types.CursorMemberFunctionDefinition
}

func coreKind(k frontend.CursorKind) types.CursorKind {
	switch k {
	case frontend.KindDeclaration:
		return types.CursorDeclaration
	case frontend.KindDefinition:
		return types.CursorDefinition
	case frontend.KindReference:
		return types.CursorReference
	case frontend.KindMemberFunctionDeclaration:
		return types.CursorMemberFunctionDeclaration
	case frontend.KindMemberFunctionDefinition:
		return types.CursorMemberFunctionDefinition
	default:
		return types.CursorUnknown
	}
}
