// Package multiplicity counts, for every linked gene, how many distinct genes
// it maps to on the other annotation and where the multiplicity lives.
package multiplicity

import (
	"github.com/Doomsbay/AnnoMap/annomap/internal/graph"
)

// Flag describes the multiplicity of a gene and its partner.
type Flag int

const (
	// Exclusive: one partner, and that partner has only this gene.
	Exclusive Flag = 0
	// Multiple: the gene itself has more than one partner.
	Multiple Flag = 1
	// PartnerMultiple: one partner, which has other partners too.
	PartnerMultiple Flag = 2
)

func (f Flag) String() string {
	switch f {
	case Exclusive:
		return "exclusive"
	case Multiple:
		return "multiple"
	case PartnerMultiple:
		return "partner_multiple"
	}
	return "unknown"
}

// Entry is the multiplicity of one gene.
type Entry struct {
	Gene         string
	Side         graph.Side
	PartnerCount int
	Flag         Flag
}

// Analysis holds the entries of both sides. Genes without edges have none.
type Analysis struct {
	entries [2]map[string]Entry
}

// Analyze computes an entry for every linked gene of g.
func Analyze(g *graph.Graph) Analysis {
	var a Analysis
	for _, side := range []graph.Side{graph.Old, graph.New} {
		linked := g.Linked(side)
		a.entries[side] = make(map[string]Entry, len(linked))
		for _, id := range linked {
			partners := g.Partners(side, id)
			e := Entry{Gene: id, Side: side, PartnerCount: len(partners)}
			switch {
			case len(partners) > 1:
				e.Flag = Multiple
			case len(g.Partners(side.Other(), partners[0])) > 1:
				e.Flag = PartnerMultiple
			default:
				e.Flag = Exclusive
			}
			a.entries[side][id] = e
		}
	}
	return a
}

// Get returns the entry of gene on side s.
func (a Analysis) Get(s graph.Side, gene string) (Entry, bool) {
	e, ok := a.entries[s][gene]
	return e, ok
}

// PartnerCount returns the number of partners of gene, 0 when unlinked.
func (a Analysis) PartnerCount(s graph.Side, gene string) int {
	return a.entries[s][gene].PartnerCount
}

// Counts tallies the entries of side s by flag.
func (a Analysis) Counts(s graph.Side) map[Flag]int {
	out := make(map[Flag]int, 3)
	for _, e := range a.entries[s] {
		out[e.Flag]++
	}
	return out
}
