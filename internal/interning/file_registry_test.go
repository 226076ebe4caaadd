package interning

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFileRegistry_InternNormalizesPath(t *testing.T) {
	reg := NewFileRegistry(4, "/proj")

	id1, err := reg.Intern("/proj/a/../a/main.c")
	require.NoError(t, err)
	id2, err := reg.Intern("/proj/a/main.c")
	require.NoError(t, err)
	assert.Equal(t, id1, id2, "normalized equivalent paths must share a FileID")

	p, ok := reg.Path(id1)
	require.True(t, ok)
	assert.Equal(t, filepath.Clean("/proj/a/main.c"), p)
}

func TestFileRegistry_InternMonotonicNeverReused(t *testing.T) {
	reg := NewFileRegistry(2, "/proj")

	idA, _ := reg.Intern("/proj/a.c")
	idB, _ := reg.Intern("/proj/b.c")
	assert.NotEqual(t, idA, idB)

	// Re-interning a still returns the same id, not a fresh one.
	idAAgain, _ := reg.Intern("/proj/a.c")
	assert.Equal(t, idA, idAAgain)
}

func TestFileRegistry_KnownAndLookup(t *testing.T) {
	reg := NewFileRegistry(2, "/proj")
	assert.False(t, reg.Known(1))

	id, _ := reg.Intern("/proj/x.c")
	assert.True(t, reg.Known(id))

	_, ok := reg.Lookup("/proj/missing.c")
	assert.False(t, ok)
}

func TestFileRegistry_SnapshotRestoreRoundTrip(t *testing.T) {
	src := NewFileRegistry(4, "/proj")
	ids := make(map[string]uint32)
	for _, p := range []string{"/proj/a.c", "/proj/b.c", "/proj/sub/c.c"} {
		id, _ := src.Intern(p)
		ids[p] = uint32(id)
	}

	snap := src.Snapshot()
	dst := NewFileRegistry(4, "/proj")
	dst.Restore(snap)

	for p, id := range ids {
		got, ok := dst.Lookup(p)
		require.True(t, ok)
		assert.Equal(t, id, uint32(got))
	}
}
