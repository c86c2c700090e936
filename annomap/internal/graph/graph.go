package graph

import (
	"sort"
	"strings"

	"go.uber.org/zap"
)

// EdgeKey identifies a gene pair.
type EdgeKey struct {
	Old string
	New string
}

// GeneEdge aggregates every transcript record linking one old gene to one
// new gene.
type GeneEdge struct {
	Old         string
	New         string
	Codes       []string // distinct correspondence codes, sorted
	Transcripts int      // number of records linking the pair
}

// Key returns the pair key of e.
func (e GeneEdge) Key() EdgeKey {
	return EdgeKey{Old: e.Old, New: e.New}
}

// CodeString joins the codes with commas.
func (e GeneEdge) CodeString() string {
	return strings.Join(e.Codes, ",")
}

// Graph is the bipartite old-gene/new-gene correspondence graph. It is not
// modified after Build returns.
type Graph struct {
	edges    map[EdgeKey]*GeneEdge
	adj      [2]map[string][]string
	universe Universe

	// Orphans are records with a gene on only one side.
	Orphans []TranscriptRecord
	// Failures holds a *MalformedRecordError for every rejected record.
	Failures []error
}

// Option configures Build.
type Option func(*builder)

type builder struct {
	logger *zap.Logger
}

// WithLogger sets the logger used for build diagnostics.
func WithLogger(l *zap.Logger) Option {
	return func(b *builder) {
		if l != nil {
			b.logger = l
		}
	}
}

// Build collapses records into gene edges. Genes named by a record but
// missing from u are added to the graph's universe; u itself is not modified.
// Malformed records are collected in Failures and do not stop the build.
func Build(records []TranscriptRecord, u Universe, opts ...Option) *Graph {
	b := builder{logger: zap.NewNop()}
	for _, opt := range opts {
		opt(&b)
	}

	g := &Graph{
		edges:    make(map[EdgeKey]*GeneEdge),
		universe: u.clone(),
	}
	g.adj[Old] = make(map[string][]string)
	g.adj[New] = make(map[string][]string)

	codes := make(map[EdgeKey]map[string]struct{})
	var added [2]int
	for i, rec := range records {
		if !rec.Mapped() {
			if rec.OldGene == "" && rec.NewGene == "" {
				if strings.TrimSpace(rec.Code) != "" {
					line := rec.Line
					if line == 0 {
						line = int64(i + 1)
					}
					g.Failures = append(g.Failures, &MalformedRecordError{Line: line, Record: rec})
				}
				continue
			}
			if rec.OldGene != "" && g.universe.add(Old, rec.OldGene) {
				added[Old]++
			}
			if rec.NewGene != "" && g.universe.add(New, rec.NewGene) {
				added[New]++
			}
			g.Orphans = append(g.Orphans, rec)
			continue
		}

		if g.universe.add(Old, rec.OldGene) {
			added[Old]++
		}
		if g.universe.add(New, rec.NewGene) {
			added[New]++
		}
		key := EdgeKey{Old: rec.OldGene, New: rec.NewGene}
		e, ok := g.edges[key]
		if !ok {
			e = &GeneEdge{Old: rec.OldGene, New: rec.NewGene}
			g.edges[key] = e
			codes[key] = make(map[string]struct{})
			g.adj[Old][rec.OldGene] = append(g.adj[Old][rec.OldGene], rec.NewGene)
			g.adj[New][rec.NewGene] = append(g.adj[New][rec.NewGene], rec.OldGene)
		}
		e.Transcripts++
		if c := strings.TrimSpace(rec.Code); c != "" {
			codes[key][c] = struct{}{}
		}
	}

	for key, set := range codes {
		e := g.edges[key]
		e.Codes = make([]string, 0, len(set))
		for c := range set {
			e.Codes = append(e.Codes, c)
		}
		sort.Strings(e.Codes)
	}
	for s := range g.adj {
		for id := range g.adj[s] {
			sort.Strings(g.adj[s][id])
		}
	}

	if len(records) == 0 {
		b.logger.Warn("no tracking records; every gene will be unmapped")
	}
	if u.Len(Old)+u.Len(New) > 0 && added[Old]+added[New] > 0 {
		b.logger.Warn("tracking records name genes outside the supplied universe",
			zap.Int("old", added[Old]), zap.Int("new", added[New]))
	}
	b.logger.Debug("graph built",
		zap.Int("records", len(records)),
		zap.Int("edges", len(g.edges)),
		zap.Int("orphans", len(g.Orphans)),
		zap.Int("malformed", len(g.Failures)))
	return g
}

// Universe returns the gene universe, including genes first seen in records.
func (g *Graph) Universe() Universe {
	return g.universe
}

// Len returns the number of gene edges.
func (g *Graph) Len() int {
	return len(g.edges)
}

// Edge returns the edge between oldGene and newGene.
func (g *Graph) Edge(oldGene, newGene string) (GeneEdge, bool) {
	e, ok := g.edges[EdgeKey{Old: oldGene, New: newGene}]
	if !ok {
		return GeneEdge{}, false
	}
	return *e, true
}

// Edges returns every edge sorted by old then new gene.
func (g *Graph) Edges() []GeneEdge {
	out := make([]GeneEdge, 0, len(g.edges))
	for _, e := range g.edges {
		out = append(out, *e)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Old != out[j].Old {
			return out[i].Old < out[j].Old
		}
		return out[i].New < out[j].New
	})
	return out
}

// Partners returns the sorted genes on the other side linked to gene.
func (g *Graph) Partners(s Side, gene string) []string {
	return g.adj[s][gene]
}

// Linked returns the sorted genes of side s that have at least one edge.
func (g *Graph) Linked(s Side) []string {
	out := make([]string, 0, len(g.adj[s]))
	for id := range g.adj[s] {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

// Unlinked returns the sorted universe genes of side s without any edge.
func (g *Graph) Unlinked(s Side) []string {
	var out []string
	for _, id := range g.universe.Genes(s) {
		if len(g.adj[s][id]) == 0 {
			out = append(out, id)
		}
	}
	return out
}
