package watch

import (
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/indexcore/engine/internal/lciconfig"
)

type dirtyCollector struct {
	mu    sync.Mutex
	bursts [][]string
}

func (c *dirtyCollector) onDirty(paths []string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.bursts = append(c.bursts, paths)
}

func (c *dirtyCollector) all() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	var out []string
	for _, b := range c.bursts {
		out = append(out, b...)
	}
	return out
}

func newTestWatcher(t *testing.T, root string, include, exclude []string) (*Watcher, *dirtyCollector) {
	t.Helper()
	cfg := lciconfig.Default()
	cfg.Project.Root = root
	cfg.Index.Include = include
	cfg.Index.Exclude = exclude
	cfg.Index.DirtyCoalesceWindow = 30 * time.Millisecond

	collector := &dirtyCollector{}
	w, err := New(cfg, collector.onDirty)
	require.NoError(t, err)
	require.NoError(t, w.Start())
	t.Cleanup(func() { _ = w.Stop() })
	return w, collector
}

func TestWatcher_WriteTriggersDirty(t *testing.T) {
	root := t.TempDir()
	path := filepath.Join(root, "widget.cpp")
	require.NoError(t, os.WriteFile(path, []byte("void render() {}\n"), 0o644))

	_, collector := newTestWatcher(t, root, nil, nil)

	require.NoError(t, os.WriteFile(path, []byte("void render() { /* changed */ }\n"), 0o644))

	require.Eventually(t, func() bool {
		for _, p := range collector.all() {
			if p == path {
				return true
			}
		}
		return false
	}, 2*time.Second, 10*time.Millisecond)
}

func TestWatcher_ExcludedPathNeverDirtied(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.Mkdir(filepath.Join(root, "build"), 0o755))
	path := filepath.Join(root, "build", "generated.cpp")
	require.NoError(t, os.WriteFile(path, []byte("// generated\n"), 0o644))

	_, collector := newTestWatcher(t, root, nil, []string{"build/**"})

	require.NoError(t, os.WriteFile(path, []byte("// changed\n"), 0o644))
	time.Sleep(200 * time.Millisecond)

	assert.Empty(t, collector.all())
}

func TestWatcher_IncludeFilterOnlyMatchingExtension(t *testing.T) {
	root := t.TempDir()
	cppPath := filepath.Join(root, "widget.cpp")
	txtPath := filepath.Join(root, "notes.txt")
	require.NoError(t, os.WriteFile(cppPath, []byte("void render() {}\n"), 0o644))
	require.NoError(t, os.WriteFile(txtPath, []byte("notes\n"), 0o644))

	_, collector := newTestWatcher(t, root, []string{"**/*.cpp"}, nil)

	require.NoError(t, os.WriteFile(txtPath, []byte("more notes\n"), 0o644))
	require.NoError(t, os.WriteFile(cppPath, []byte("void render() { /* changed */ }\n"), 0o644))

	require.Eventually(t, func() bool {
		for _, p := range collector.all() {
			if p == cppPath {
				return true
			}
		}
		return false
	}, 2*time.Second, 10*time.Millisecond)

	for _, p := range collector.all() {
		assert.NotEqual(t, txtPath, p)
	}
}
