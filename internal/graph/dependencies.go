package graph

import "github.com/indexcore/engine/internal/types"

// Dependencies returns the transitive closure of fileID's dependency
// edges, per spec §4.6 "dependencies(path, mode)". DependsOnArg walks
// forward (what fileID includes); ArgDependsOn walks backward (what
// includes fileID). fileID itself is never included in the result.
func (g *SymbolGraph) Dependencies(fileID types.FileID, mode types.DependencyMode) []types.FileID {
	g.mu.RLock()
	defer g.mu.RUnlock()

	edges := g.depends
	if mode == types.ArgDependsOn {
		edges = g.reverseDepends
	}
	return bfsClosure(fileID, edges)
}

// ReverseDependencyClosure is the dirty-set computation of spec §4.6
// and §4.7: the transitive reverse-dependency closure of a dirtied
// file, i.e. every TU that (transitively) includes it.
func (g *SymbolGraph) ReverseDependencyClosure(fileID types.FileID) []types.FileID {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return bfsClosure(fileID, g.reverseDepends)
}

func bfsClosure(start types.FileID, edges map[types.FileID]map[types.FileID]struct{}) []types.FileID {
	visited := map[types.FileID]struct{}{start: {}}
	queue := []types.FileID{start}
	var out []types.FileID

	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		for next := range edges[cur] {
			if _, seen := visited[next]; seen {
				continue
			}
			visited[next] = struct{}{}
			out = append(out, next)
			queue = append(queue, next)
		}
	}
	return out
}
