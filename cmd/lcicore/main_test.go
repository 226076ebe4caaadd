package main

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/indexcore/engine/internal/frontend"
	"github.com/indexcore/engine/internal/graph"
	"github.com/indexcore/engine/internal/interning"
	"github.com/indexcore/engine/internal/lciconfig"
	"github.com/indexcore/engine/internal/query"
	"github.com/indexcore/engine/internal/scheduler"
	"github.com/indexcore/engine/internal/types"
	"github.com/indexcore/engine/internal/watch"
)

type stubSource struct{}

func (stubSource) Parse(ctx context.Context, path string, content []byte, args []string) (*frontend.ParseResult, error) {
	return &frontend.ParseResult{}, nil
}

func TestIndexProject_SubmitsAndRegistersDiscoveredFiles(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, "widget.cpp"), []byte("void f() {}"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(root, "README.md"), []byte("n/a"), 0o644))

	cfg := lciconfig.Default()
	cfg.Project.Root = root
	cfg.Index.Include = defaultCursorExtensions

	fileReg := interning.NewFileRegistry(4, root)
	usrTab := interning.NewUsrTable(4)
	g := graph.New(fileReg, usrTab)
	sched := scheduler.New(g, fileReg, usrTab, stubSource{}, cfg)
	t.Cleanup(sched.Close)

	dirty := watch.NewDirtyController(g, fileReg, sched)
	require.NoError(t, indexProject(sched, dirty, cfg))

	_, ok := fileReg.Lookup(filepath.Join(root, "widget.cpp"))
	assert.True(t, ok, "widget.cpp should have been interned by the submitted job")

	_, ok = fileReg.Lookup(filepath.Join(root, "README.md"))
	assert.False(t, ok, "README.md does not match the configured include globs")

	assert.False(t, sched.IsIndexing(), "all jobs should have completed before indexProject returns")
}

func TestLoadOrCreateGraph_NoSnapshotFileStartsEmpty(t *testing.T) {
	cfg := lciconfig.Default()
	cfg.Project.Root = t.TempDir()

	g, fileReg, usrTab, restored, err := loadOrCreateGraph(filepath.Join(cfg.Project.Root, "missing.ndjson"), cfg)
	require.NoError(t, err)
	assert.False(t, restored)
	assert.NotNil(t, g)
	assert.Equal(t, 0, fileReg.Len())
	assert.Equal(t, 0, usrTab.Len())
}

func TestSaveSnapshotThenLoadOrCreateGraph_Restores(t *testing.T) {
	root := t.TempDir()
	cfg := lciconfig.Default()
	cfg.Project.Root = root

	fileReg := interning.NewFileRegistry(4, root)
	usrTab := interning.NewUsrTable(4)
	g := graph.New(fileReg, usrTab)

	fileID, err := fileReg.Intern(filepath.Join(root, "widget.h"))
	require.NoError(t, err)
	usr := usrTab.Intern("c:@S@Widget@F@render#")
	result := graph.NewIndexResult(fileID)
	result.AddCursor(usr, "render", types.Location{File: fileID, Start: 1, End: 5}, types.CursorDeclaration)
	g.Merge(result)

	snapshotPath := filepath.Join(root, "snapshot.ndjson")
	saveSnapshot(snapshotPath, g, fileReg, usrTab)

	restoredGraph, restoredFileReg, restoredUsrTab, restored, err := loadOrCreateGraph(snapshotPath, cfg)
	require.NoError(t, err)
	assert.True(t, restored)

	restoredFileID, ok := restoredFileReg.Lookup(filepath.Join(root, "widget.h"))
	require.True(t, ok)

	engine := query.New(restoredGraph, restoredFileReg, restoredUsrTab)
	cursor := engine.CursorAt(types.Location{File: restoredFileID, Start: 1, End: 5})
	assert.Equal(t, "c:@S@Widget@F@render#", cursor.UsrStr)
	assert.Equal(t, types.CursorDeclaration, cursor.Kind)
}
