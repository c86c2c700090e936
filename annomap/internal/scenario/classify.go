package scenario

import (
	"context"
	"runtime"
	"sort"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/Doomsbay/AnnoMap/annomap/internal/graph"
	"github.com/Doomsbay/AnnoMap/annomap/internal/multiplicity"
)

// Group is a connected component, or a single unmapped gene, with its label.
type Group struct {
	ID    int
	Label Label
	Old   []string
	New   []string
}

// Assignment is the scenario of one gene.
type Assignment struct {
	Gene         string
	Side         graph.Side
	Label        Label
	GroupID      int
	Partners     []string
	PartnerCount int
	// Flag is meaningful only when PartnerCount > 0.
	Flag multiplicity.Flag
}

// Result is the full classification. Groups are ordered by ID; Genes follow
// group order, old genes before new genes.
type Result struct {
	Groups   []Group
	Genes    []Assignment
	Failures []error

	index [2]map[string]int
}

// Options configures Classify.
type Options struct {
	Workers int
	Logger  *zap.Logger
}

// DefaultOptions classifies components on GOMAXPROCS workers.
func DefaultOptions() Options {
	return Options{Workers: runtime.GOMAXPROCS(0), Logger: zap.NewNop()}
}

// Classify labels every component of g and every gene of u (or of the graph's
// own universe) that has no edge. Components are labelled independently; a
// component that matches no rule is reported in Failures and its genes are
// left out. Only ctx cancellation returns an error.
func Classify(ctx context.Context, g *graph.Graph, m multiplicity.Analysis, u graph.Universe, opts Options) (Result, error) {
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.Workers <= 0 {
		opts.Workers = runtime.GOMAXPROCS(0)
	}

	comps := g.Components()
	labels := make([]Label, len(comps))
	errs := make([]error, len(comps))

	eg, ctx := errgroup.WithContext(ctx)
	eg.SetLimit(opts.Workers)
	for i, c := range comps {
		eg.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			l, ok := Rule(len(c.Old), len(c.New))
			if !ok {
				errs[i] = &ShapeError{Component: c.ID, Old: len(c.Old), New: len(c.New)}
				return nil
			}
			labels[i] = l
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return Result{}, err
	}

	var res Result
	for i, c := range comps {
		if errs[i] != nil {
			opts.Logger.Warn("component not classified", zap.Error(errs[i]))
			res.Failures = append(res.Failures, errs[i])
			continue
		}
		res.Groups = append(res.Groups, Group{ID: c.ID, Label: labels[i], Old: c.Old, New: c.New})
	}

	next := len(comps) + 1
	for _, side := range []graph.Side{graph.Old, graph.New} {
		label := UnmappedOld
		if side == graph.New {
			label = UnmappedNew
		}
		for _, id := range unlinked(g, u, side) {
			grp := Group{ID: next, Label: label}
			if side == graph.Old {
				grp.Old = []string{id}
			} else {
				grp.New = []string{id}
			}
			res.Groups = append(res.Groups, grp)
			next++
		}
	}

	res.assign(g, m)
	if len(comps) == 0 {
		opts.Logger.Warn("no gene edges; only unmapped scenarios assigned")
	}
	opts.Logger.Debug("classified",
		zap.Int("components", len(comps)),
		zap.Int("groups", len(res.Groups)),
		zap.Int("failures", len(res.Failures)))
	return res, nil
}

// unlinked merges the edge-less genes of the graph universe and of u.
func unlinked(g *graph.Graph, u graph.Universe, side graph.Side) []string {
	seen := make(map[string]struct{})
	var out []string
	for _, id := range g.Unlinked(side) {
		seen[id] = struct{}{}
		out = append(out, id)
	}
	for _, id := range u.Genes(side) {
		if _, ok := seen[id]; ok || len(g.Partners(side, id)) > 0 {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

func (r *Result) assign(g *graph.Graph, m multiplicity.Analysis) {
	r.index[graph.Old] = make(map[string]int)
	r.index[graph.New] = make(map[string]int)
	for _, grp := range r.Groups {
		for _, side := range []graph.Side{graph.Old, graph.New} {
			ids := grp.Old
			if side == graph.New {
				ids = grp.New
			}
			for _, id := range ids {
				a := Assignment{
					Gene:     id,
					Side:     side,
					Label:    grp.Label,
					GroupID:  grp.ID,
					Partners: g.Partners(side, id),
				}
				if e, ok := m.Get(side, id); ok {
					a.PartnerCount = e.PartnerCount
					a.Flag = e.Flag
				} else {
					a.PartnerCount = len(a.Partners)
				}
				r.index[side][id] = len(r.Genes)
				r.Genes = append(r.Genes, a)
			}
		}
	}
}

// Lookup returns the assignment of gene on side s.
func (r Result) Lookup(s graph.Side, gene string) (Assignment, bool) {
	i, ok := r.index[s][gene]
	if !ok {
		return Assignment{}, false
	}
	return r.Genes[i], true
}

// Counts returns the number of groups per label.
func (r Result) Counts() map[Label]int {
	out := make(map[Label]int)
	for _, grp := range r.Groups {
		out[grp.Label]++
	}
	return out
}

// GeneCounts returns the number of genes per label and side.
func (r Result) GeneCounts(s graph.Side) map[Label]int {
	out := make(map[Label]int)
	for _, a := range r.Genes {
		if a.Side == s {
			out[a.Label]++
		}
	}
	return out
}
