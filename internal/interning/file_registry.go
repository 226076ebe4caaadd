package interning

import (
	"sync"
	"sync/atomic"

	"github.com/cespare/xxhash/v2"

	"github.com/indexcore/engine/internal/pathutil"
	"github.com/indexcore/engine/internal/types"
)

type fileShard struct {
	mu      sync.RWMutex
	byPath  map[string]types.FileID
	byID    map[types.FileID]string
}

// FileRegistry is the bidirectional Path<->FileID mapping of spec §4.2.
// It uses the same sharded-lock discipline as UsrTable and must never
// be taken while holding the Symbol Graph's lock (spec §5).
type FileRegistry struct {
	shards []fileShard
	mask   uint64
	nextID atomic.Uint32
	base   string // resolution base for relative inputs
}

func NewFileRegistry(shardCount int, base string) *FileRegistry {
	n := nextPow2(shardCount)
	r := &FileRegistry{
		shards: make([]fileShard, n),
		mask:   uint64(n - 1),
		base:   base,
	}
	for i := range r.shards {
		r.shards[i].byPath = make(map[string]types.FileID)
		r.shards[i].byID = make(map[types.FileID]string)
	}
	return r
}

func (r *FileRegistry) shardFor(p string) *fileShard {
	h := xxhash.Sum64String(p)
	return &r.shards[h&r.mask]
}

// Intern normalizes p (absolute, cleaned) and returns its FileID,
// allocating a new one on first sighting. IDs are monotonic and never
// reused (spec §3 "FileId" lifecycle).
func (r *FileRegistry) Intern(p string) (types.FileID, error) {
	norm, err := pathutil.Normalize(p, r.base)
	if err != nil {
		return types.InvalidFileID, err
	}

	shard := r.shardFor(norm)

	shard.mu.RLock()
	if id, ok := shard.byPath[norm]; ok {
		shard.mu.RUnlock()
		return id, nil
	}
	shard.mu.RUnlock()

	shard.mu.Lock()
	defer shard.mu.Unlock()
	if id, ok := shard.byPath[norm]; ok {
		return id, nil
	}

	next := r.nextID.Add(1)
	if next == 0 {
		panic("interning: FileID space exhausted")
	}
	id := types.FileID(next)
	shard.byPath[norm] = id
	shard.byID[id] = norm
	return id, nil
}

// Lookup is the non-inserting variant; p is normalized before lookup.
func (r *FileRegistry) Lookup(p string) (types.FileID, bool) {
	norm, err := pathutil.Normalize(p, r.base)
	if err != nil {
		return types.InvalidFileID, false
	}
	shard := r.shardFor(norm)
	shard.mu.RLock()
	defer shard.mu.RUnlock()
	id, ok := shard.byPath[norm]
	return id, ok
}

// Path returns the normalized path for id, or "" if unknown. Spec
// invariant 1 requires every Location's FileID to resolve here.
func (r *FileRegistry) Path(id types.FileID) (string, bool) {
	for i := range r.shards {
		r.shards[i].mu.RLock()
		p, ok := r.shards[i].byID[id]
		r.shards[i].mu.RUnlock()
		if ok {
			return p, true
		}
	}
	return "", false
}

// Known reports whether id has been allocated — used to enforce
// invariant 1 before inserting a Location into the graph.
func (r *FileRegistry) Known(id types.FileID) bool {
	_, ok := r.Path(id)
	return ok
}

func (r *FileRegistry) Len() int {
	n := 0
	for i := range r.shards {
		r.shards[i].mu.RLock()
		n += len(r.shards[i].byPath)
		r.shards[i].mu.RUnlock()
	}
	return n
}

// Snapshot returns the id->path map for persistence.
func (r *FileRegistry) Snapshot() map[types.FileID]string {
	out := make(map[types.FileID]string, r.Len())
	for i := range r.shards {
		r.shards[i].mu.RLock()
		for id, p := range r.shards[i].byID {
			out[id] = p
		}
		r.shards[i].mu.RUnlock()
	}
	return out
}

// Restore repopulates the registry from a serialized snapshot.
func (r *FileRegistry) Restore(snapshot map[types.FileID]string) {
	var maxID types.FileID
	for id, p := range snapshot {
		shard := r.shardFor(p)
		shard.mu.Lock()
		shard.byPath[p] = id
		shard.byID[id] = p
		shard.mu.Unlock()
		if id > maxID {
			maxID = id
		}
	}
	for {
		cur := r.nextID.Load()
		if uint32(maxID) <= cur {
			break
		}
		if r.nextID.CompareAndSwap(cur, uint32(maxID)) {
			break
		}
	}
}
