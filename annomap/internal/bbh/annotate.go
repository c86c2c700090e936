package bbh

import (
	"github.com/Doomsbay/AnnoMap/annomap/internal/graph"
)

// Edge is a gene edge with its reciprocal-best-hit confidence.
type Edge struct {
	graph.GeneEdge
	BBH      bool
	Identity float64
	Coverage float64
}

// Annotate attaches pairs to the matching edges by (old, new) key. Pairs
// whose genes share no edge are returned separately: the alignment supports
// a relationship the tracking table does not.
func Annotate(edges []graph.GeneEdge, pairs []Pair) ([]Edge, []Pair) {
	byKey := make(map[graph.EdgeKey]Pair, len(pairs))
	for _, p := range pairs {
		byKey[graph.EdgeKey{Old: p.Old, New: p.New}] = p
	}

	out := make([]Edge, len(edges))
	used := make(map[graph.EdgeKey]bool, len(pairs))
	for i, e := range edges {
		out[i] = Edge{GeneEdge: e}
		if p, ok := byKey[e.Key()]; ok {
			out[i].BBH = true
			out[i].Identity = p.Identity
			out[i].Coverage = p.Coverage
			used[e.Key()] = true
		}
	}

	var unmatched []Pair
	for _, p := range pairs {
		if !used[graph.EdgeKey{Old: p.Old, New: p.New}] {
			unmatched = append(unmatched, p)
		}
	}
	return out, unmatched
}
