package watch

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/indexcore/engine/internal/frontend"
	"github.com/indexcore/engine/internal/graph"
	"github.com/indexcore/engine/internal/interning"
	"github.com/indexcore/engine/internal/lciconfig"
	"github.com/indexcore/engine/internal/scheduler"
	"github.com/indexcore/engine/internal/types"
)

// countingSource records how many times, and for which path, it was
// asked to parse, standing in for the tree-sitter front end.
type countingSource struct {
	calls     []string
	resultFor func(path string) *frontend.ParseResult
}

func (c *countingSource) Parse(ctx context.Context, path string, content []byte, args []string) (*frontend.ParseResult, error) {
	c.calls = append(c.calls, path)
	if c.resultFor != nil {
		return c.resultFor(path), nil
	}
	return &frontend.ParseResult{}, nil
}

func TestDirtyController_OnDirty_ResubmitsRegisteredPrimary(t *testing.T) {
	dir := t.TempDir()
	primaryPath := filepath.Join(dir, "widget.cpp")
	require.NoError(t, os.WriteFile(primaryPath, []byte("void render() {}\n"), 0o644))

	fileReg := interning.NewFileRegistry(4, dir)
	usrTab := interning.NewUsrTable(4)
	g := graph.New(fileReg, usrTab)

	cfg := lciconfig.Default()
	cfg.Project.Root = dir
	cfg.Index.Parallelism = 1

	source := &countingSource{}
	sched := scheduler.New(g, fileReg, usrTab, source, cfg)
	t.Cleanup(sched.Close)

	dc := NewDirtyController(g, fileReg, sched)
	dc.RegisterSource(types.SourceInformation{Path: primaryPath})

	dc.OnDirty([]string{primaryPath})

	require.Eventually(t, func() bool { return len(source.calls) >= 1 }, time.Second, time.Millisecond)
	assert.Contains(t, source.calls, primaryPath)
}

func TestDirtyController_OnDirty_HeaderWithNoPrimaryDoesNotSubmit(t *testing.T) {
	dir := t.TempDir()
	fileReg := interning.NewFileRegistry(4, dir)
	usrTab := interning.NewUsrTable(4)
	g := graph.New(fileReg, usrTab)

	cfg := lciconfig.Default()
	cfg.Project.Root = dir
	cfg.Index.Parallelism = 1

	source := &countingSource{}
	sched := scheduler.New(g, fileReg, usrTab, source, cfg)
	t.Cleanup(sched.Close)

	dc := NewDirtyController(g, fileReg, sched)

	headerPath := filepath.Join(dir, "widget.h")
	dc.OnDirty([]string{headerPath})

	time.Sleep(20 * time.Millisecond)
	assert.Empty(t, source.calls)
}

func TestDirtyController_OnDirty_PropagatesToIncludingPrimary(t *testing.T) {
	dir := t.TempDir()
	primaryPath := filepath.Join(dir, "widget.cpp")
	headerPath := filepath.Join(dir, "widget.h")
	require.NoError(t, os.WriteFile(primaryPath, []byte("#include \"widget.h\"\n"), 0o644))
	require.NoError(t, os.WriteFile(headerPath, []byte("void render();\n"), 0o644))

	fileReg := interning.NewFileRegistry(4, dir)
	usrTab := interning.NewUsrTable(4)
	g := graph.New(fileReg, usrTab)

	primaryID, err := fileReg.Intern(primaryPath)
	require.NoError(t, err)
	headerID, err := fileReg.Intern(headerPath)
	require.NoError(t, err)

	// Seed the dependency edge directly, standing in for a prior merge
	// that recorded widget.cpp's #include of widget.h.
	seed := graph.NewIndexResult(primaryID)
	seed.AddInclude(types.Location{File: primaryID, Start: 0, End: 10}, headerID)
	g.Merge(seed)

	cfg := lciconfig.Default()
	cfg.Project.Root = dir
	cfg.Index.Parallelism = 1

	source := &countingSource{}
	sched := scheduler.New(g, fileReg, usrTab, source, cfg)
	t.Cleanup(sched.Close)

	dc := NewDirtyController(g, fileReg, sched)
	dc.RegisterSource(types.SourceInformation{Path: primaryPath})

	dc.OnDirty([]string{headerPath})

	require.Eventually(t, func() bool { return len(source.calls) >= 1 }, time.Second, time.Millisecond)
	assert.Contains(t, source.calls, primaryPath)
}
