package query

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/indexcore/engine/internal/graph"
	"github.com/indexcore/engine/internal/interning"
	"github.com/indexcore/engine/internal/types"
)

func newFixture(t *testing.T) (*Engine, types.FileID, types.UsrID) {
	t.Helper()
	fileReg := interning.NewFileRegistry(4, "/repo")
	usrTab := interning.NewUsrTable(4)
	g := graph.New(fileReg, usrTab)

	fileID, err := fileReg.Intern("/repo/widget.h")
	require.NoError(t, err)
	usr := usrTab.Intern("c:@S@Widget@F@render#")

	result := graph.NewIndexResult(fileID)
	defLoc := types.Location{File: fileID, Start: 100, End: 110}
	result.AddCursor(usr, "render", defLoc, types.CursorDefinition)
	refLoc := types.Location{File: fileID, Start: 200, End: 210}
	result.AddCursor(usr, "render", refLoc, types.CursorReference)
	g.Merge(result)

	return New(g, fileReg, usrTab), fileID, usr
}

func TestEngine_CursorAt_ExactMatch(t *testing.T) {
	e, fileID, usr := newFixture(t)

	c := e.CursorAt(types.Location{File: fileID, Start: 100, End: 110})
	assert.Equal(t, usr, c.Usr)
	assert.Equal(t, types.CursorDefinition, c.Kind)
	assert.Equal(t, "/repo/widget.h", c.Path)
}

func TestEngine_CursorAt_NoMatch(t *testing.T) {
	e, fileID, _ := newFixture(t)

	c := e.CursorAt(types.Location{File: fileID, Start: 9000, End: 9010})
	assert.Equal(t, types.InvalidUsrID, c.Usr)
}

func TestEngine_References_IncludesDefOptionally(t *testing.T) {
	e, fileID, _ := newFixture(t)

	refsOnly := e.References(types.Location{File: fileID, Start: 100, End: 110}, ReferenceKinds{}, "")
	require.Len(t, refsOnly, 1)
	assert.Equal(t, uint32(200), refsOnly[0].Location.Start)

	withDefs := e.References(types.Location{File: fileID, Start: 100, End: 110}, ReferenceKinds{IncludeDefs: true}, "")
	assert.Len(t, withDefs, 2)
}

func TestEngine_FindCursors_ByName(t *testing.T) {
	e, _, usr := newFixture(t)

	cursors := e.FindCursors("render", "")
	require.Len(t, cursors, 2)
	for _, c := range cursors {
		assert.Equal(t, usr, c.Usr)
	}
}

func TestEngine_ListSymbols_PrefixMatch(t *testing.T) {
	e, _, _ := newFixture(t)

	assert.Equal(t, []string{"render"}, e.ListSymbols("ren", ""))
	assert.Empty(t, e.ListSymbols("zzz", ""))
}

func TestEngine_CursorsInFile_SortedByStart(t *testing.T) {
	e, _, _ := newFixture(t)

	cursors := e.CursorsInFile("/repo/widget.h")
	require.Len(t, cursors, 2)
	assert.Less(t, cursors[0].Location.Start, cursors[1].Location.Start)
}

func TestEngine_FixIts_UnknownPathEmpty(t *testing.T) {
	e, _, _ := newFixture(t)
	assert.Equal(t, "", e.FixIts("/repo/does-not-exist.h"))
}

func TestEngine_ListSymbolsFuzzy_DisabledMatchesExact(t *testing.T) {
	e, _, _ := newFixture(t)

	matches := e.ListSymbolsFuzzy("ren", "", FuzzyOptions{})
	require.Len(t, matches, 1)
	assert.Equal(t, "render", matches[0].Name)
}

func TestEngine_ListSymbolsFuzzy_TyposMatchAboveThreshold(t *testing.T) {
	e, _, _ := newFixture(t)

	matches := e.ListSymbolsFuzzy("rendr", "", FuzzyOptions{Enabled: true, Threshold: 0.80})
	require.NotEmpty(t, matches)
	assert.Equal(t, "render", matches[0].Name)
}
