// Package bbh finds reciprocal best hits between the genes of two annotation
// versions from the two directional similarity-search tables.
package bbh

import (
	"sort"

	"go.uber.org/zap"
)

// Hit is one row of a directional similarity search.
type Hit struct {
	Query    string
	Subject  string
	Identity float64 // percent, 0-100
	Coverage float64 // percent, 0-100
	EValue   float64
	BitScore float64
}

// Thresholds drops hits below the given identity or coverage. Zero values
// keep everything.
type Thresholds struct {
	MinIdentity float64
	MinCoverage float64
}

// Pass reports whether h meets both thresholds.
func (t Thresholds) Pass(h Hit) bool {
	return h.Identity >= t.MinIdentity && h.Coverage >= t.MinCoverage
}

// IDMap renames sequence IDs, e.g. protein to gene. IDs without an entry are
// kept as they are.
type IDMap map[string]string

// Resolve returns the mapped ID of id.
func (m IDMap) Resolve(id string) string {
	if to, ok := m[id]; ok && to != "" {
		return to
	}
	return id
}

// Better reports whether a ranks above b for the same query: lower e-value,
// then higher bit score, then the lexicographically smaller subject. Several
// HSPs of one query/subject pair are ordered by identity and coverage so the
// chosen hit never depends on input order.
func Better(a, b Hit) bool {
	if a.EValue != b.EValue {
		return a.EValue < b.EValue
	}
	if a.BitScore != b.BitScore {
		return a.BitScore > b.BitScore
	}
	if a.Subject != b.Subject {
		return a.Subject < b.Subject
	}
	if a.Identity != b.Identity {
		return a.Identity > b.Identity
	}
	return a.Coverage > b.Coverage
}

// BestHits keeps the best passing hit of every query.
func BestHits(hits []Hit, t Thresholds) map[string]Hit {
	best := make(map[string]Hit)
	for _, h := range hits {
		if !t.Pass(h) {
			continue
		}
		if cur, ok := best[h.Query]; !ok || Better(h, cur) {
			best[h.Query] = h
		}
	}
	return best
}

// Pair is a reciprocal best hit between an old and a new gene.
type Pair struct {
	Old      string
	New      string
	Identity float64 // mean of both directions
	Coverage float64 // mean of both directions
	Forward  Hit
	Reverse  Hit
}

// Options configures Match.
type Options struct {
	Thresholds Thresholds
	// OldIDs and NewIDs map sequence IDs to gene IDs for the old and new
	// annotation.
	OldIDs IDMap
	NewIDs IDMap
	Logger *zap.Logger
}

// Result is the outcome of Match.
type Result struct {
	Pairs []Pair // sorted by old then new gene
	// Best hit per query, after ID mapping and filtering.
	Forward map[string]Hit
	Reverse map[string]Hit
	// Hits removed by the thresholds, forward and reverse.
	Filtered [2]int
}

// Match computes reciprocal best hits. forward holds old genes queried
// against new ones, reverse the opposite direction. A pair (a, b) is kept iff
// the best forward hit of a is b and the best reverse hit of b is a.
func Match(forward, reverse []Hit, opts Options) Result {
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}
	if len(forward) == 0 || len(reverse) == 0 {
		log.Warn("empty hit table; no reciprocal best hits possible",
			zap.Int("forward", len(forward)), zap.Int("reverse", len(reverse)))
	}

	fwd := remap(forward, opts.OldIDs, opts.NewIDs)
	rev := remap(reverse, opts.NewIDs, opts.OldIDs)

	res := Result{
		Forward:  BestHits(fwd, opts.Thresholds),
		Reverse:  BestHits(rev, opts.Thresholds),
		Filtered: [2]int{countFiltered(fwd, opts.Thresholds), countFiltered(rev, opts.Thresholds)},
	}

	for a, fh := range res.Forward {
		rh, ok := res.Reverse[fh.Subject]
		if !ok || rh.Subject != a {
			continue
		}
		res.Pairs = append(res.Pairs, Pair{
			Old:      a,
			New:      fh.Subject,
			Identity: (fh.Identity + rh.Identity) / 2,
			Coverage: (fh.Coverage + rh.Coverage) / 2,
			Forward:  fh,
			Reverse:  rh,
		})
	}
	sort.Slice(res.Pairs, func(i, j int) bool {
		if res.Pairs[i].Old != res.Pairs[j].Old {
			return res.Pairs[i].Old < res.Pairs[j].Old
		}
		return res.Pairs[i].New < res.Pairs[j].New
	})

	log.Debug("reciprocal best hits",
		zap.Int("forward_queries", len(res.Forward)),
		zap.Int("reverse_queries", len(res.Reverse)),
		zap.Int("pairs", len(res.Pairs)))
	return res
}

func remap(hits []Hit, queries, subjects IDMap) []Hit {
	if len(queries) == 0 && len(subjects) == 0 {
		return hits
	}
	out := make([]Hit, len(hits))
	for i, h := range hits {
		h.Query = queries.Resolve(h.Query)
		h.Subject = subjects.Resolve(h.Subject)
		out[i] = h
	}
	return out
}

func countFiltered(hits []Hit, t Thresholds) int {
	n := 0
	for _, h := range hits {
		if !t.Pass(h) {
			n++
		}
	}
	return n
}
