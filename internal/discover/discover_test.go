package discover

import (
	"os"
	"path/filepath"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/indexcore/engine/internal/lciconfig"
)

func writeFile(t *testing.T, root, rel, content string) {
	t.Helper()
	path := filepath.Join(root, rel)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func TestFiles_IncludeExcludeGlobs(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "widget.cpp", "")
	writeFile(t, root, "widget.h", "")
	writeFile(t, root, "README.md", "")
	writeFile(t, root, "build/generated.cpp", "")

	cfg := lciconfig.Default()
	cfg.Project.Root = root
	cfg.Index.Include = []string{"**/*.cpp", "**/*.h"}
	cfg.Index.Exclude = []string{"build/**"}

	got, err := Files(cfg)
	require.NoError(t, err)

	rels := make([]string, len(got))
	for i, p := range got {
		rel, err := filepath.Rel(root, p)
		require.NoError(t, err)
		rels[i] = filepath.ToSlash(rel)
	}
	sort.Strings(rels)
	assert.Equal(t, []string{"widget.cpp", "widget.h"}, rels)
}

func TestFiles_RespectsGitignore(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, ".gitignore", "vendor/\n*.generated.cpp\n")
	writeFile(t, root, "widget.cpp", "")
	writeFile(t, root, "vendor/lib.cpp", "")
	writeFile(t, root, "widget.generated.cpp", "")

	cfg := lciconfig.Default()
	cfg.Project.Root = root
	cfg.Index.RespectGitignore = true

	got, err := Files(cfg)
	require.NoError(t, err)

	rels := make([]string, len(got))
	for i, p := range got {
		rel, err := filepath.Rel(root, p)
		require.NoError(t, err)
		rels[i] = filepath.ToSlash(rel)
	}
	assert.Equal(t, []string{"widget.cpp"}, rels)
}

func TestFiles_NoIncludeMeansEverything(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "a.txt", "")
	writeFile(t, root, "b.cpp", "")

	cfg := lciconfig.Default()
	cfg.Project.Root = root

	got, err := Files(cfg)
	require.NoError(t, err)
	assert.Len(t, got, 2)
}
