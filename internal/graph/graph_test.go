package graph

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/indexcore/engine/internal/interning"
	"github.com/indexcore/engine/internal/types"
)

func newTestFixture(t *testing.T) (*SymbolGraph, *interning.FileRegistry, *interning.UsrTable) {
	t.Helper()
	fileReg := interning.NewFileRegistry(4, "/repo")
	usrTab := interning.NewUsrTable(4)
	return New(fileReg, usrTab), fileReg, usrTab
}

// TestMerge_Idempotent covers spec §8.4: merging the same IndexResult
// twice must leave the graph in the same state as merging it once.
func TestMerge_Idempotent(t *testing.T) {
	g, fileReg, usrTab := newTestFixture(t)

	fileID, err := fileReg.Intern("/repo/widget.cpp")
	require.NoError(t, err)
	usr := usrTab.Intern("c:@F@render#")

	build := func() *IndexResult {
		result := NewIndexResult(fileID)
		loc := types.Location{File: fileID, Start: 10, End: 16}
		result.AddCursor(usr, "render", loc, types.CursorDefinition)
		return result
	}

	g.Merge(build())
	first := snapshotCounts(g)

	g.Merge(build())
	second := snapshotCounts(g)

	assert.Equal(t, first, second)
}

// TestMerge_ReindexIsolation covers spec §8.5: two translation units
// sharing a header each contribute to the header's facts; reindexing
// one must not erase the other's contribution.
func TestMerge_ReindexIsolation(t *testing.T) {
	g, fileReg, usrTab := newTestFixture(t)

	headerID, err := fileReg.Intern("/repo/shared.h")
	require.NoError(t, err)
	aID, err := fileReg.Intern("/repo/a.cpp")
	require.NoError(t, err)
	bID, err := fileReg.Intern("/repo/b.cpp")
	require.NoError(t, err)

	usr := usrTab.Intern("c:@F@helper#")
	headerLoc := types.Location{File: headerID, Start: 0, End: 10}

	resultA := NewIndexResult(aID)
	resultA.AddCursor(usr, "helper", headerLoc, types.CursorDeclaration)
	resultA.VisitedFiles[headerID] = struct{}{}
	g.Merge(resultA)

	resultB := NewIndexResult(bID)
	resultB.AddCursor(usr, "helper", headerLoc, types.CursorDeclaration)
	resultB.VisitedFiles[headerID] = struct{}{}
	g.Merge(resultB)

	g.WithReadLock(func(snap Snapshot) {
		require.Contains(t, snap.Decls[usr], headerLoc)
	})

	// Reindexing A (e.g. a formatting-only change, still referencing the
	// same header declaration) must not disturb B's contribution.
	resultA2 := NewIndexResult(aID)
	resultA2.AddCursor(usr, "helper", headerLoc, types.CursorDeclaration)
	resultA2.VisitedFiles[headerID] = struct{}{}
	g.Merge(resultA2)

	g.WithReadLock(func(snap Snapshot) {
		assert.Contains(t, snap.Decls[usr], headerLoc, "B's contribution to the shared header must survive A's reindex")
	})
}

// TestRemoveFile_HeaderContributionSurvivesForOtherOwners covers spec
// §4.4/S5: removing a primary that contributed a fact to a header also
// asserted by another primary must drop only the removed primary's
// ownership, leaving the header fact intact for the surviving owner.
func TestRemoveFile_HeaderContributionSurvivesForOtherOwners(t *testing.T) {
	g, fileReg, usrTab := newTestFixture(t)

	headerID, err := fileReg.Intern("/repo/shared.h")
	require.NoError(t, err)
	aID, err := fileReg.Intern("/repo/a.cpp")
	require.NoError(t, err)
	bID, err := fileReg.Intern("/repo/b.cpp")
	require.NoError(t, err)

	usr := usrTab.Intern("c:@F@helper#")
	headerLoc := types.Location{File: headerID, Start: 0, End: 10}

	resultA := NewIndexResult(aID)
	resultA.AddCursor(usr, "helper", headerLoc, types.CursorDeclaration)
	resultA.VisitedFiles[headerID] = struct{}{}
	g.Merge(resultA)

	resultB := NewIndexResult(bID)
	resultB.AddCursor(usr, "helper", headerLoc, types.CursorDeclaration)
	resultB.VisitedFiles[headerID] = struct{}{}
	g.Merge(resultB)

	g.RemoveFile(aID)

	g.WithReadLock(func(snap Snapshot) {
		assert.Contains(t, snap.Decls[usr], headerLoc, "B still asserts the header fact after A is removed")
	})

	g.RemoveFile(bID)

	g.WithReadLock(func(snap Snapshot) {
		assert.NotContains(t, snap.Decls[usr], headerLoc, "no owner remains, so the header fact must be gone")
		assert.Empty(t, snap.Names["helper"], "the orphaned USR must be scrubbed from the names index")
	})
}

// TestRemoveFile_OwnPrimaryFactsAreErased is the direct case spec §4.4
// names: removing a file erases every fact whose primary is that file.
func TestRemoveFile_OwnPrimaryFactsAreErased(t *testing.T) {
	g, fileReg, usrTab := newTestFixture(t)

	fileID, err := fileReg.Intern("/repo/widget.cpp")
	require.NoError(t, err)
	usr := usrTab.Intern("c:@F@render#")

	result := NewIndexResult(fileID)
	loc := types.Location{File: fileID, Start: 10, End: 16}
	result.AddCursor(usr, "render", loc, types.CursorDefinition)
	g.Merge(result)

	g.RemoveFile(fileID)

	g.WithReadLock(func(snap Snapshot) {
		assert.Empty(t, snap.Defs[usr])
		assert.NotContains(t, snap.LocationCursors, loc)
	})
}

func snapshotCounts(g *SymbolGraph) map[string]int {
	var counts map[string]int
	g.WithReadLock(func(snap Snapshot) {
		counts = map[string]int{
			"decls":    countLocs(snap.Decls),
			"defs":     countLocs(snap.Defs),
			"refs":     countLocs(snap.Refs),
			"names":    len(snap.Names),
			"cursors":  len(snap.LocationCursors),
			"depends":  len(snap.Depends),
			"reverses": len(snap.ReverseDepends),
		}
	})
	return counts
}

func countLocs(bucket map[types.UsrID]map[types.Location]struct{}) int {
	n := 0
	for _, locs := range bucket {
		n += len(locs)
	}
	return n
}
