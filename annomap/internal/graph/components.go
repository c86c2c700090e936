package graph

import (
	"fmt"
	"sort"
	"strings"

	gonum "gonum.org/v1/gonum/graph"
	"gonum.org/v1/gonum/graph/encoding"
	"gonum.org/v1/gonum/graph/encoding/dot"
	"gonum.org/v1/gonum/graph/simple"
	"gonum.org/v1/gonum/graph/topo"
)

// Component is a maximal set of old and new genes connected through gene
// edges. Both gene lists are sorted.
type Component struct {
	ID  int
	Old []string
	New []string
}

// Size returns the number of genes in c.
func (c Component) Size() int {
	return len(c.Old) + len(c.New)
}

type geneNode struct {
	id   int64
	side Side
	gene string
}

func (n geneNode) ID() int64     { return n.id }
func (n geneNode) DOTID() string { return n.side.String() + ":" + n.gene }
func (n geneNode) Attributes() []encoding.Attribute {
	shape := "box"
	if n.side == New {
		shape = "ellipse"
	}
	return []encoding.Attribute{{Key: "shape", Value: shape}}
}

type geneLink struct {
	f, t gonum.Node
	edge *GeneEdge
}

func (e geneLink) From() gonum.Node         { return e.f }
func (e geneLink) To() gonum.Node           { return e.t }
func (e geneLink) ReversedEdge() gonum.Edge { return geneLink{f: e.t, t: e.f, edge: e.edge} }
func (e geneLink) Attributes() []encoding.Attribute {
	return []encoding.Attribute{
		{Key: "label", Value: fmt.Sprintf("%q", e.edge.CodeString())},
		{Key: "weight", Value: fmt.Sprint(e.edge.Transcripts)},
	}
}

// undirected lays the linked genes out as a gonum graph. Node IDs follow the
// sorted gene order so that repeated calls agree.
func (g *Graph) undirected() *simple.UndirectedGraph {
	ug := simple.NewUndirectedGraph()
	nodes := [2]map[string]geneNode{make(map[string]geneNode), make(map[string]geneNode)}
	var next int64
	for _, s := range []Side{Old, New} {
		for _, id := range g.Linked(s) {
			n := geneNode{id: next, side: s, gene: id}
			next++
			nodes[s][id] = n
			ug.AddNode(n)
		}
	}
	for _, e := range g.Edges() {
		ptr := g.edges[e.Key()]
		ug.SetEdge(geneLink{f: nodes[Old][e.Old], t: nodes[New][e.New], edge: ptr})
	}
	return ug
}

// Components partitions the linked genes into connected components. Genes
// without edges are not included. Components are ordered by their first old
// gene, then first new gene, and numbered from 1 in that order.
func (g *Graph) Components() []Component {
	ug := g.undirected()
	parts := topo.ConnectedComponents(ug)

	out := make([]Component, 0, len(parts))
	for _, part := range parts {
		var c Component
		for _, n := range part {
			gn := n.(geneNode)
			if gn.side == Old {
				c.Old = append(c.Old, gn.gene)
			} else {
				c.New = append(c.New, gn.gene)
			}
		}
		sort.Strings(c.Old)
		sort.Strings(c.New)
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool {
		a, b := first(out[i].Old), first(out[j].Old)
		if a != b {
			return a < b
		}
		return first(out[i].New) < first(out[j].New)
	})
	for i := range out {
		out[i].ID = i + 1
	}
	return out
}

func first(ids []string) string {
	if len(ids) == 0 {
		return ""
	}
	return ids[0]
}

// DOT renders the linked part of the graph in Graphviz format. Edge labels
// carry the correspondence codes.
func (g *Graph) DOT(name string) ([]byte, error) {
	if name == "" {
		name = "correspondence"
	}
	b, err := dot.Marshal(g.undirected(), strings.ReplaceAll(name, " ", "_"), "", "\t")
	if err != nil {
		return nil, fmt.Errorf("marshal dot: %w", err)
	}
	return b, nil
}
