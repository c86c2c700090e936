package bbh

import (
	"fmt"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Doomsbay/AnnoMap/annomap/internal/graph"
)

func hit(q, s string, e, bits float64) Hit {
	return Hit{Query: q, Subject: s, Identity: 90, Coverage: 90, EValue: e, BitScore: bits}
}

func TestMatchBasic(t *testing.T) {
	forward := []Hit{hit("A", "X", 1e-10, 200), hit("A", "Y", 1e-5, 100)}
	reverse := []Hit{hit("X", "A", 1e-12, 210)}

	res := Match(forward, reverse, Options{})
	require.Len(t, res.Pairs, 1)
	assert.Equal(t, "A", res.Pairs[0].Old)
	assert.Equal(t, "X", res.Pairs[0].New)
	assert.Equal(t, "X", res.Forward["A"].Subject)
	_, ok := res.Reverse["Y"]
	assert.False(t, ok)
}

func TestBestHitTieBreaks(t *testing.T) {
	tests := []struct {
		name string
		hits []Hit
		want string
	}{
		{"lowest evalue", []Hit{hit("Q", "S1", 1e-5, 500), hit("Q", "S2", 1e-9, 10)}, "S2"},
		{"bitscore on equal evalue", []Hit{hit("Q", "S1", 0, 100), hit("Q", "S2", 0, 120)}, "S2"},
		{"subject id on full tie", []Hit{hit("Q", "Sb", 1e-3, 50), hit("Q", "Sa", 1e-3, 50)}, "Sa"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			best := BestHits(tt.hits, Thresholds{})
			assert.Equal(t, tt.want, best["Q"].Subject)

			// order of the input does not matter
			rev := make([]Hit, len(tt.hits))
			for i, h := range tt.hits {
				rev[len(rev)-1-i] = h
			}
			assert.Equal(t, tt.want, BestHits(rev, Thresholds{})["Q"].Subject)
		})
	}
}

func TestThresholdsDropHits(t *testing.T) {
	forward := []Hit{
		{Query: "A", Subject: "X", Identity: 30, Coverage: 95, EValue: 1e-50, BitScore: 300},
		{Query: "A", Subject: "Y", Identity: 80, Coverage: 90, EValue: 1e-20, BitScore: 150},
	}
	reverse := []Hit{
		{Query: "X", Subject: "A", Identity: 30, Coverage: 95, EValue: 1e-50, BitScore: 300},
		{Query: "Y", Subject: "A", Identity: 82, Coverage: 70, EValue: 1e-20, BitScore: 150},
	}

	res := Match(forward, reverse, Options{})
	require.Len(t, res.Pairs, 1)
	assert.Equal(t, "X", res.Pairs[0].New)

	res = Match(forward, reverse, Options{Thresholds: Thresholds{MinIdentity: 50, MinCoverage: 60}})
	require.Len(t, res.Pairs, 1)
	assert.Equal(t, "Y", res.Pairs[0].New)
	assert.InDelta(t, 81, res.Pairs[0].Identity, 1e-9)
	assert.InDelta(t, 80, res.Pairs[0].Coverage, 1e-9)
	assert.Equal(t, [2]int{1, 1}, res.Filtered)
}

func TestOneWayBestIsNotPair(t *testing.T) {
	// A's best is X, but X's best is B.
	forward := []Hit{hit("A", "X", 1e-10, 100), hit("B", "X", 1e-30, 300)}
	reverse := []Hit{hit("X", "A", 1e-10, 100), hit("X", "B", 1e-30, 300)}
	res := Match(forward, reverse, Options{})
	require.Len(t, res.Pairs, 1)
	assert.Equal(t, Pair{Old: "B", New: "X", Identity: 90, Coverage: 90, Forward: forward[1], Reverse: reverse[1]}, res.Pairs[0])
}

func TestIDMapCollapsesProteins(t *testing.T) {
	forward := []Hit{hit("p1.a", "q1.a", 1e-8, 80), hit("p1.b", "q2.a", 1e-40, 400)}
	reverse := []Hit{hit("q2.a", "p1.b", 1e-40, 400)}
	opts := Options{
		OldIDs: IDMap{"p1.a": "G1", "p1.b": "G1"},
		NewIDs: IDMap{"q1.a": "H1", "q2.a": "H2"},
	}
	res := Match(forward, reverse, opts)
	require.Len(t, res.Pairs, 1)
	assert.Equal(t, "G1", res.Pairs[0].Old)
	assert.Equal(t, "H2", res.Pairs[0].New)
	// input slices untouched
	assert.Equal(t, "p1.a", forward[0].Query)
}

func TestMatchEmpty(t *testing.T) {
	res := Match(nil, []Hit{hit("X", "A", 0, 1)}, Options{})
	assert.Empty(t, res.Pairs)
}

func TestReciprocityAndDeterminism(t *testing.T) {
	r := rand.New(rand.NewSource(42))
	gen := func(n int, qp, sp string) []Hit {
		hits := make([]Hit, n)
		for i := range hits {
			hits[i] = Hit{
				Query:    fmt.Sprintf("%s%d", qp, r.Intn(40)),
				Subject:  fmt.Sprintf("%s%d", sp, r.Intn(40)),
				Identity: float64(r.Intn(100)),
				Coverage: float64(r.Intn(100)),
				EValue:   []float64{0, 1e-30, 1e-10, 1e-3}[r.Intn(4)],
				BitScore: float64(r.Intn(5) * 50),
			}
		}
		return hits
	}
	forward, reverse := gen(400, "A", "B"), gen(400, "B", "A")
	th := Thresholds{MinIdentity: 20, MinCoverage: 10}

	res := Match(forward, reverse, Options{Thresholds: th})
	fb, rb := BestHits(forward, th), BestHits(reverse, th)
	for _, p := range res.Pairs {
		assert.Equal(t, p.New, fb[p.Old].Subject)
		assert.Equal(t, p.Old, rb[p.New].Subject)
	}
	n := 0
	for a, h := range fb {
		if rb[h.Subject].Subject == a {
			n++
		}
	}
	assert.Len(t, res.Pairs, n)

	shuffled := append([]Hit(nil), forward...)
	r.Shuffle(len(shuffled), func(i, j int) { shuffled[i], shuffled[j] = shuffled[j], shuffled[i] })
	again := Match(shuffled, reverse, Options{Thresholds: th})
	assert.Equal(t, res.Pairs, again.Pairs)
}

func TestAnnotate(t *testing.T) {
	g := graph.Build([]graph.TranscriptRecord{
		{OldGene: "O1", NewGene: "N1", Code: "="},
		{OldGene: "O1", NewGene: "N2", Code: "j"},
	}, graph.Universe{})
	pairs := []Pair{
		{Old: "O1", New: "N1", Identity: 97.5, Coverage: 99},
		{Old: "O7", New: "N7", Identity: 60, Coverage: 80},
	}
	edges, unmatched := Annotate(g.Edges(), pairs)
	require.Len(t, edges, 2)
	assert.True(t, edges[0].BBH)
	assert.Equal(t, 97.5, edges[0].Identity)
	assert.False(t, edges[1].BBH)
	require.Len(t, unmatched, 1)
	assert.Equal(t, "O7", unmatched[0].Old)
}
