package persist

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/indexcore/engine/internal/graph"
	"github.com/indexcore/engine/internal/interning"
	"github.com/indexcore/engine/internal/types"
)

func buildFixture(t *testing.T) (*graph.SymbolGraph, *interning.FileRegistry, *interning.UsrTable) {
	t.Helper()
	fileReg := interning.NewFileRegistry(4, "")
	usrTab := interning.NewUsrTable(4)
	g := graph.New(fileReg, usrTab)

	headerID, err := fileReg.Intern("/proj/widget.h")
	require.NoError(t, err)
	primaryID, err := fileReg.Intern("/proj/widget.cpp")
	require.NoError(t, err)

	declUsr := usrTab.Intern("c:@S@Widget@F@render#")
	baseUsr := usrTab.Intern("c:@S@Base@F@render#")

	result := graph.NewIndexResult(primaryID)
	result.VisitedFiles[headerID] = struct{}{}
	result.AddCursor(declUsr, "render", types.Location{File: headerID, Start: 10, End: 16}, types.CursorMemberFunctionDeclaration)
	result.AddCursor(declUsr, "render", types.Location{File: primaryID, Start: 100, End: 140}, types.CursorMemberFunctionDefinition)
	result.AddOverride(declUsr, baseUsr)
	result.AddInclude(types.Location{File: primaryID, Start: 0, End: 20}, headerID)
	result.AddFixIt(primaryID, types.FixIt{Start: 100, End: 104, Replacement: "void"})

	g.Merge(result)
	return g, fileReg, usrTab
}

func TestWriteReadGraph_RoundTrip(t *testing.T) {
	g, fileReg, usrTab := buildFixture(t)

	var buf bytes.Buffer
	w := NewWriter(&buf)
	require.NoError(t, w.WriteGraph(g, fileReg, usrTab))
	require.NoError(t, w.Flush())

	restored, restoredFiles, restoredUsrs, err := ReadGraph(&buf)
	require.NoError(t, err)

	headerID, ok := restoredFiles.Lookup("/proj/widget.h")
	require.True(t, ok)
	primaryID, ok := restoredFiles.Lookup("/proj/widget.cpp")
	require.True(t, ok)
	declUsr, ok := restoredUsrs.Lookup("c:@S@Widget@F@render#")
	require.True(t, ok)
	baseUsr, ok := restoredUsrs.Lookup("c:@S@Base@F@render#")
	require.True(t, ok)

	restored.WithReadLock(func(snap graph.Snapshot) {
		_, hasDecl := snap.Decls[declUsr][types.Location{File: headerID, Start: 10, End: 16}]
		assert.True(t, hasDecl)

		_, hasDef := snap.Defs[declUsr][types.Location{File: primaryID, Start: 100, End: 140}]
		assert.True(t, hasDef)

		_, overrides := snap.Virtuals[declUsr][baseUsr]
		assert.True(t, overrides)
		_, overriddenBy := snap.Virtuals[baseUsr][declUsr]
		assert.True(t, overriddenBy)

		included, hasInclude := snap.Includes[types.Location{File: primaryID, Start: 0, End: 20}]
		assert.True(t, hasInclude)
		assert.Equal(t, headerID, included)

		_, dependsOnHeader := snap.Depends[primaryID][headerID]
		assert.True(t, dependsOnHeader)
		_, reverseFromPrimary := snap.ReverseDepends[headerID][primaryID]
		assert.True(t, reverseFromPrimary)

		usrs := snap.Names["render"]
		assert.Contains(t, usrs, declUsr)

		fixits := snap.FixIts[primaryID]
		require.Len(t, fixits, 1)
		assert.Equal(t, "void", fixits[0].Replacement)
	})
}

func TestWriteReadGraph_EmptyGraph(t *testing.T) {
	fileReg := interning.NewFileRegistry(4, "")
	usrTab := interning.NewUsrTable(4)
	g := graph.New(fileReg, usrTab)

	var buf bytes.Buffer
	w := NewWriter(&buf)
	require.NoError(t, w.WriteGraph(g, fileReg, usrTab))
	require.NoError(t, w.Flush())
	assert.Empty(t, buf.Bytes())

	restored, _, _, err := ReadGraph(&buf)
	require.NoError(t, err)
	restored.WithReadLock(func(snap graph.Snapshot) {
		assert.Empty(t, snap.Decls)
		assert.Empty(t, snap.Includes)
	})
}

func TestWriteReadGraph_IdsSurviveVerbatim(t *testing.T) {
	g, fileReg, usrTab := buildFixture(t)

	var buf bytes.Buffer
	w := NewWriter(&buf)
	require.NoError(t, w.WriteGraph(g, fileReg, usrTab))
	require.NoError(t, w.Flush())

	_, restoredFiles, _, err := ReadGraph(&buf)
	require.NoError(t, err)

	// A fresh Intern on the restored registry must not collide with
	// any id the dump already assigned.
	newID, err := restoredFiles.Intern("/proj/new_file.cpp")
	require.NoError(t, err)
	oldHeaderID, ok := restoredFiles.Lookup("/proj/widget.h")
	require.True(t, ok)
	oldPrimaryID, ok := restoredFiles.Lookup("/proj/widget.cpp")
	require.True(t, ok)
	assert.NotEqual(t, oldHeaderID, newID)
	assert.NotEqual(t, oldPrimaryID, newID)
}
