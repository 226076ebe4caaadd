package interning

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUsrTable_InternDeterministic(t *testing.T) {
	tab := NewUsrTable(4)

	id1 := tab.Intern("c:@F@foo#")
	id2 := tab.Intern("c:@F@foo#")
	require.Equal(t, id1, id2, "repeated intern of the same string must yield the same id")

	id3 := tab.Intern("c:@F@bar#")
	assert.NotEqual(t, id1, id3, "distinct strings must yield distinct ids")
}

func TestUsrTable_InternConcurrentRace(t *testing.T) {
	tab := NewUsrTable(8)
	const n = 64

	results := make([]uint32, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(idx int) {
			defer wg.Done()
			id := tab.Intern("c:@F@shared#")
			results[idx] = uint32(id)
		}(i)
	}
	wg.Wait()

	first := results[0]
	for _, r := range results {
		assert.Equal(t, first, r, "racing callers on the same string must see the same id")
	}
}

func TestUsrTable_LookupNonInserting(t *testing.T) {
	tab := NewUsrTable(2)
	_, ok := tab.Lookup("c:@F@never_interned#")
	assert.False(t, ok)
	assert.Equal(t, 0, tab.Len())

	id := tab.Intern("c:@F@now_interned#")
	got, ok := tab.Lookup("c:@F@now_interned#")
	require.True(t, ok)
	assert.Equal(t, id, got)
}

func TestUsrTable_Reverse(t *testing.T) {
	tab := NewUsrTable(4)
	id := tab.Intern("c:@F@reversible#")
	s, ok := tab.Reverse(id)
	require.True(t, ok)
	assert.Equal(t, "c:@F@reversible#", s)

	_, ok = tab.Reverse(id + 1000)
	assert.False(t, ok)
}

func TestUsrTable_SnapshotRestoreRoundTrip(t *testing.T) {
	src := NewUsrTable(4)
	src.Intern("c:@F@a#")
	src.Intern("c:@F@b#")
	src.Intern("c:@F@c#")

	snap := src.Snapshot()
	dst := NewUsrTable(4)
	dst.Restore(snap)

	for id, s := range snap {
		got, ok := dst.Lookup(s)
		require.True(t, ok)
		assert.Equal(t, id, got)
	}

	// Allocation continues past the restored high-water mark.
	next := dst.Intern("c:@F@new#")
	assert.Greater(t, uint32(next), uint32(0))
	for existing := range snap {
		assert.NotEqual(t, existing, next)
	}
}
