package module

import "github.com/nylonring/corert/internal/errs"

// graph is the module dependency DAG: nodes are ModuleIDs, edges
// encode "from imports a symbol exported by to". It is acyclic by
// construction — load_set rejects any batch whose edges would close a
// cycle, and add_dependency rejects any addition that would.
type graph struct {
	// deps[from][to] = kind: the set of modules `from` depends on.
	deps map[ModuleID]map[ModuleID]DependencyKind
	// dependents[to][from] = struct{}: the reverse index, modules
	// that depend on `to` — used to block unload and to cascade it.
	dependents map[ModuleID]map[ModuleID]struct{}
}

func newGraph() *graph {
	return &graph{
		deps:       make(map[ModuleID]map[ModuleID]DependencyKind),
		dependents: make(map[ModuleID]map[ModuleID]struct{}),
	}
}

func (g *graph) addEdge(from, to ModuleID, kind DependencyKind) {
	if g.deps[from] == nil {
		g.deps[from] = make(map[ModuleID]DependencyKind)
	}
	g.deps[from][to] = kind
	if g.dependents[to] == nil {
		g.dependents[to] = make(map[ModuleID]struct{})
	}
	g.dependents[to][from] = struct{}{}
}

func (g *graph) removeEdge(from, to ModuleID) {
	if m, ok := g.deps[from]; ok {
		delete(m, to)
		if len(m) == 0 {
			delete(g.deps, from)
		}
	}
	if m, ok := g.dependents[to]; ok {
		delete(m, from)
		if len(m) == 0 {
			delete(g.dependents, to)
		}
	}
}

func (g *graph) removeNode(id ModuleID) {
	for to := range g.deps[id] {
		g.removeEdge(id, to)
	}
	for from := range g.dependents[id] {
		g.removeEdge(from, id)
	}
	delete(g.deps, id)
	delete(g.dependents, id)
}

func (g *graph) dependencyKind(from, to ModuleID) DependencyKind {
	if m, ok := g.deps[from]; ok {
		return m[to]
	}
	return DepNone
}

func (g *graph) hasDependents(id ModuleID) bool {
	return len(g.dependents[id]) > 0
}

// wouldCycle reports whether adding edge from->to would create a
// cycle, i.e. whether to can already reach from.
func (g *graph) wouldCycle(from, to ModuleID) bool {
	if from == to {
		return true
	}
	visited := map[ModuleID]bool{}
	var dfs func(ModuleID) bool
	dfs = func(n ModuleID) bool {
		if n == from {
			return true
		}
		if visited[n] {
			return false
		}
		visited[n] = true
		for next := range g.deps[n] {
			if dfs(next) {
				return true
			}
		}
		return false
	}
	return dfs(to)
}

// topoSortPending computes a construction order for a pending batch's
// edges layered on top of the already-committed graph: nodes outside
// `pending` are treated as already satisfied (they are either already
// loaded, or not part of this batch) and excluded from the output
// order, which only ever needs to cover `pending`.
func topoSortPending(pending []ModuleID, edgesFrom func(ModuleID) []ModuleID) ([]ModuleID, error) {
	const (
		white = 0
		gray  = 1
		black = 2
	)
	color := make(map[ModuleID]int, len(pending))
	for _, id := range pending {
		color[id] = white
	}
	order := make([]ModuleID, 0, len(pending))

	var visit func(ModuleID) error
	visit = func(n ModuleID) error {
		switch color[n] {
		case black:
			return nil
		case gray:
			return errs.E("module.topoSort", errs.FailedPrecondition, nil)
		}
		color[n] = gray
		for _, to := range edgesFrom(n) {
			if _, inBatch := color[to]; !inBatch {
				continue // dependency already loaded outside this batch
			}
			if err := visit(to); err != nil {
				return err
			}
		}
		color[n] = black
		order = append(order, n)
		return nil
	}

	for _, id := range pending {
		if color[id] == white {
			if err := visit(id); err != nil {
				return nil, err
			}
		}
	}
	return order, nil
}
