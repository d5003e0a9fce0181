// Package genealogy implements ancestor-set traversal over the parent DAG
// and the triplet-desirability check the merge proposer uses to filter
// candidate common ancestors.
package genealogy

import "github.com/gepa-run/gepa-engine/internal/gepa/core"

// Graph is a read-only view over a genealogy list: Graph[k] gives the
// parent ProgramIdx values of program k (empty for the seed).
type Graph []core.ParentIDs

// Ancestors returns every ProgramIdx reachable by following parent edges
// from start, using an iterative DFS with a visited set so a program that
// appears along multiple paths (the DAG, not a tree) is only counted once.
// start itself is never included in its own ancestor set.
func (g Graph) Ancestors(start core.ProgramIdx) map[core.ProgramIdx]struct{} {
	visited := make(map[core.ProgramIdx]struct{})
	stack := make([]core.ProgramIdx, 0, len(g[start]))
	stack = append(stack, g[start]...)
	for len(stack) > 0 {
		n := len(stack) - 1
		p := stack[n]
		stack = stack[:n]
		if _, seen := visited[p]; seen {
			continue
		}
		visited[p] = struct{}{}
		if int(p) < len(g) {
			stack = append(stack, g[p]...)
		}
	}
	return visited
}

// IsAncestor reports whether candidate is an ancestor of of_.
func (g Graph) IsAncestor(candidate, of_ core.ProgramIdx) bool {
	_, ok := g.Ancestors(of_)[candidate]
	return ok
}

// CommonAncestors intersects the ancestor sets of id1 and id2.
func (g Graph) CommonAncestors(id1, id2 core.ProgramIdx) map[core.ProgramIdx]struct{} {
	a1 := g.Ancestors(id1)
	a2 := g.Ancestors(id2)
	out := make(map[core.ProgramIdx]struct{})
	for p := range a1 {
		if _, ok := a2[p]; ok {
			out[p] = struct{}{}
		}
	}
	return out
}

// IsDesirableTriplet implements the desirability check from spec 4.K/4.B:
// there must exist at least one component c such that exactly one of
// id1[c], id2[c] equals ancestor[c], and id1[c] != id2[c]. Without this, a
// three-way merge of the triplet would be a no-op (every component would
// fall to the "all equal" or "both descendants agree" case).
func IsDesirableTriplet(ancestor, id1, id2 core.Candidate) bool {
	for _, c := range ancestor.ComponentNames() {
		av, iv1, iv2 := ancestor[c], id1[c], id2[c]
		if iv1 == iv2 {
			continue
		}
		oneMatchesAncestor := (iv1 == av) != (iv2 == av)
		if oneMatchesAncestor {
			return true
		}
	}
	return false
}
