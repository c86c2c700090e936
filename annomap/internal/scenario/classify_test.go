package scenario

import (
	"context"
	"fmt"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Doomsbay/AnnoMap/annomap/internal/graph"
	"github.com/Doomsbay/AnnoMap/annomap/internal/multiplicity"
)

func classify(t *testing.T, records []graph.TranscriptRecord, u graph.Universe) Result {
	t.Helper()
	g := graph.Build(records, u)
	res, err := Classify(context.Background(), g, multiplicity.Analyze(g), u, DefaultOptions())
	require.NoError(t, err)
	return res
}

func link(oldTx, oldGene, newTx, newGene, code string) graph.TranscriptRecord {
	return graph.TranscriptRecord{OldTranscript: oldTx, OldGene: oldGene, NewTranscript: newTx, NewGene: newGene, Code: code}
}

func TestRule(t *testing.T) {
	tests := []struct {
		nOld, nNew int
		want       Label
		ok         bool
	}{
		{1, 1, OneToOne, true},
		{1, 2, OneToTwo, true},
		{1, 3, OneToMany, true},
		{1, 9, OneToMany, true},
		{2, 1, ManyToOne, true},
		{5, 1, ManyToOne, true},
		{2, 2, Complex, true},
		{3, 2, Complex, true},
		{0, 1, 0, false},
		{1, 0, 0, false},
	}
	for _, tt := range tests {
		t.Run(fmt.Sprintf("%dx%d", tt.nOld, tt.nNew), func(t *testing.T) {
			got, ok := Rule(tt.nOld, tt.nNew)
			assert.Equal(t, tt.ok, ok)
			if ok {
				assert.Equal(t, tt.want, got)
			}
		})
	}
}

func TestManyToOneScenario(t *testing.T) {
	res := classify(t, []graph.TranscriptRecord{
		link("T1o", "O1", "T1n", "N1", "="),
		link("T2o", "O2", "T2n", "N1", "="),
	}, graph.Universe{})

	require.Len(t, res.Groups, 1)
	assert.Equal(t, ManyToOne, res.Groups[0].Label)
	assert.Equal(t, []string{"O1", "O2"}, res.Groups[0].Old)
	assert.Equal(t, []string{"N1"}, res.Groups[0].New)

	n1, ok := res.Lookup(graph.New, "N1")
	require.True(t, ok)
	assert.Equal(t, 2, n1.PartnerCount)
	assert.Equal(t, multiplicity.Multiple, n1.Flag)
	assert.Equal(t, []string{"O1", "O2"}, n1.Partners)
}

func TestOneToTwoScenario(t *testing.T) {
	res := classify(t, []graph.TranscriptRecord{
		link("T1o", "O1", "T1n", "N1", "="),
		link("T1o", "O1", "T2n", "N2", "p"),
	}, graph.Universe{})

	require.Len(t, res.Groups, 1)
	assert.Equal(t, OneToTwo, res.Groups[0].Label)
	for _, id := range []string{"N1", "N2"} {
		a, ok := res.Lookup(graph.New, id)
		require.True(t, ok)
		assert.Equal(t, OneToTwo, a.Label)
	}
}

func TestUnmappedScenario(t *testing.T) {
	u := graph.NewUniverse([]string{"O1", "O2"}, []string{"N1"})
	res := classify(t, []graph.TranscriptRecord{link("T1o", "O1", "T1n", "N1", "=")}, u)

	o2, ok := res.Lookup(graph.Old, "O2")
	require.True(t, ok)
	assert.Equal(t, UnmappedOld, o2.Label)
	assert.Zero(t, o2.PartnerCount)

	o1, _ := res.Lookup(graph.Old, "O1")
	assert.Equal(t, OneToOne, o1.Label)
	assert.Equal(t, multiplicity.Exclusive, o1.Flag)
	assert.Equal(t, map[Label]int{OneToOne: 1, UnmappedOld: 1}, res.Counts())
}

func TestComplexTakesPriority(t *testing.T) {
	// O1 and N3 look 1:1 locally but sit in a many-to-many component.
	res := classify(t, []graph.TranscriptRecord{
		link("a", "O1", "a", "N1", "="),
		link("b", "O2", "b", "N1", "c"),
		link("c", "O2", "c", "N2", "j"),
		link("d", "O3", "d", "N2", "j"),
		link("e", "O3", "e", "N3", "="),
	}, graph.Universe{})

	require.Len(t, res.Groups, 1)
	assert.Equal(t, Complex, res.Groups[0].Label)
	for _, a := range res.Genes {
		assert.Equal(t, Complex, a.Label, a.Gene)
		assert.Equal(t, res.Groups[0].ID, a.GroupID)
	}
}

func TestOrphanRecordGeneIsUnmapped(t *testing.T) {
	res := classify(t, []graph.TranscriptRecord{
		link("a", "O1", "a", "N1", "="),
		link("b", "", "b", "N5", "u"),
	}, graph.Universe{})
	n5, ok := res.Lookup(graph.New, "N5")
	require.True(t, ok)
	assert.Equal(t, UnmappedNew, n5.Label)
}

func TestPositionalSwapNeverAssigned(t *testing.T) {
	res := classify(t, randomRecords(rand.New(rand.NewSource(3)), 200), graph.NewUniverse([]string{"O999"}, []string{"N999"}))
	for _, grp := range res.Groups {
		assert.NotEqual(t, PositionalSwap, grp.Label)
	}
	assert.Equal(t, "positional_swap", PositionalSwap.String())
}

func randomRecords(r *rand.Rand, n int) []graph.TranscriptRecord {
	records := make([]graph.TranscriptRecord, n)
	for i := range records {
		records[i] = link(
			fmt.Sprintf("to%d", i), fmt.Sprintf("O%d", r.Intn(n/2)),
			fmt.Sprintf("tn%d", i), fmt.Sprintf("N%d", r.Intn(n/2)),
			"=",
		)
	}
	return records
}

func TestPartitionProperty(t *testing.T) {
	r := rand.New(rand.NewSource(11))
	for round := 0; round < 20; round++ {
		records := randomRecords(r, 10+r.Intn(120))
		var oldIDs, newIDs []string
		for i := 0; i < 80; i++ {
			oldIDs = append(oldIDs, fmt.Sprintf("O%d", i))
			newIDs = append(newIDs, fmt.Sprintf("N%d", i))
		}
		u := graph.NewUniverse(oldIDs, newIDs)
		g := graph.Build(records, u)
		res, err := Classify(context.Background(), g, multiplicity.Analyze(g), u, Options{Workers: 3})
		require.NoError(t, err)
		require.Empty(t, res.Failures)

		seen := make(map[string]int)
		for _, a := range res.Genes {
			seen[a.Side.String()+":"+a.Gene]++
		}
		for _, side := range []graph.Side{graph.Old, graph.New} {
			for _, id := range g.Universe().Genes(side) {
				assert.Equal(t, 1, seen[side.String()+":"+id], "gene %s:%s", side, id)
			}
		}
		assert.Len(t, seen, g.Universe().Len(graph.Old)+g.Universe().Len(graph.New))

		for _, e := range g.Edges() {
			a, _ := res.Lookup(graph.Old, e.Old)
			b, _ := res.Lookup(graph.New, e.New)
			assert.Equal(t, a.GroupID, b.GroupID)
			assert.Equal(t, a.Label, b.Label)
		}
	}
}

func TestClassifyDeterministic(t *testing.T) {
	records := randomRecords(rand.New(rand.NewSource(5)), 150)
	a := classify(t, records, graph.Universe{})
	b := classify(t, records, graph.Universe{})
	assert.Equal(t, a.Groups, b.Groups)
	assert.Equal(t, a.Genes, b.Genes)
}

func TestClassifyEmpty(t *testing.T) {
	res := classify(t, nil, graph.Universe{})
	assert.Empty(t, res.Groups)
	assert.Empty(t, res.Genes)
}

func TestParseLabel(t *testing.T) {
	for _, l := range append(Labels(), PositionalSwap) {
		got, err := ParseLabel(l.String())
		require.NoError(t, err)
		assert.Equal(t, l, got)
	}
	_, err := ParseLabel("nope")
	assert.Error(t, err)
}
