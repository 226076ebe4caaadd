// Package interning implements the process-wide, sharded USR Interning
// Table and File Registry of spec §4.1/§4.2: concurrent, insert-or-get
// maps from string to a dense, monotonically-allocated id, never
// reused. Sharding generalizes the pack's single-RWMutex map pattern
// (internal/core/symbol.go) so that the many parse-job goroutines
// hitting this table concurrently don't serialize on one lock.
package interning

import (
	"sync"
	"sync/atomic"

	"github.com/cespare/xxhash/v2"

	"github.com/indexcore/engine/internal/types"
)

type usrShard struct {
	mu    sync.RWMutex
	byStr map[string]types.UsrID
	byID  map[types.UsrID]string
}

// UsrTable is the USR Interning Table: intern/lookup/reverse, never
// fails except via the fatal exhaustion panic documented on Intern.
type UsrTable struct {
	shards []usrShard
	mask   uint64
	nextID atomic.Uint32
}

// NewUsrTable creates a table with shardCount shards (rounded up to the
// next power of two, minimum 1).
func NewUsrTable(shardCount int) *UsrTable {
	n := nextPow2(shardCount)
	t := &UsrTable{
		shards: make([]usrShard, n),
		mask:   uint64(n - 1),
	}
	for i := range t.shards {
		t.shards[i].byStr = make(map[string]types.UsrID)
		t.shards[i].byID = make(map[types.UsrID]string)
	}
	return t
}

func nextPow2(n int) int {
	if n < 1 {
		n = 1
	}
	p := 1
	for p < n {
		p <<= 1
	}
	return p
}

func (t *UsrTable) shardFor(s string) *usrShard {
	h := xxhash.Sum64String(s)
	return &t.shards[h&t.mask]
}

// Intern returns the existing id for s if present; otherwise it
// allocates the next id atomically and records the reverse mapping.
// Multiple callers racing on the same string observe the same result
// (testable property 1). Exhaustion of the uint32 id space is fatal —
// spec §4.1 treats it as unrecoverable, so Intern panics rather than
// silently wrapping around and aliasing two distinct USRs.
func (t *UsrTable) Intern(s string) types.UsrID {
	shard := t.shardFor(s)

	shard.mu.RLock()
	if id, ok := shard.byStr[s]; ok {
		shard.mu.RUnlock()
		return id
	}
	shard.mu.RUnlock()

	shard.mu.Lock()
	defer shard.mu.Unlock()
	if id, ok := shard.byStr[s]; ok {
		return id
	}

	next := t.nextID.Add(1)
	if next == 0 {
		panic("interning: USR id space exhausted")
	}
	id := types.UsrID(next)
	shard.byStr[s] = id
	shard.byID[id] = s
	return id
}

// Lookup is the non-inserting variant of Intern.
func (t *UsrTable) Lookup(s string) (types.UsrID, bool) {
	shard := t.shardFor(s)
	shard.mu.RLock()
	defer shard.mu.RUnlock()
	id, ok := shard.byStr[s]
	return id, ok
}

// Reverse returns the USR string for id, used only by queries (spec
// §4.1).
func (t *UsrTable) Reverse(id types.UsrID) (string, bool) {
	for i := range t.shards {
		t.shards[i].mu.RLock()
		s, ok := t.shards[i].byID[id]
		t.shards[i].mu.RUnlock()
		if ok {
			return s, true
		}
	}
	return "", false
}

// Len returns the total number of interned USRs, for diagnostics/tests.
func (t *UsrTable) Len() int {
	n := 0
	for i := range t.shards {
		t.shards[i].mu.RLock()
		n += len(t.shards[i].byStr)
		t.shards[i].mu.RUnlock()
	}
	return n
}

// Snapshot returns a copy of the id->string map, used by
// internal/persist to serialize the table explicitly (spec §6:
// "persistence... encodes... the USR Interning Table explicitly").
func (t *UsrTable) Snapshot() map[types.UsrID]string {
	out := make(map[types.UsrID]string, t.Len())
	for i := range t.shards {
		t.shards[i].mu.RLock()
		for id, s := range t.shards[i].byID {
			out[id] = s
		}
		t.shards[i].mu.RUnlock()
	}
	return out
}

// Restore repopulates the table from a previously-serialized snapshot,
// preserving the ids it names and advancing the allocation counter past
// the highest one seen. Used by internal/persist on load.
func (t *UsrTable) Restore(snapshot map[types.UsrID]string) {
	var maxID types.UsrID
	for id, s := range snapshot {
		shard := t.shardFor(s)
		shard.mu.Lock()
		shard.byStr[s] = id
		shard.byID[id] = s
		shard.mu.Unlock()
		if id > maxID {
			maxID = id
		}
	}
	for {
		cur := t.nextID.Load()
		if uint32(maxID) <= cur {
			break
		}
		if t.nextID.CompareAndSwap(cur, uint32(maxID)) {
			break
		}
	}
}
