package graph

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func rec(oldTx, oldGene, newTx, newGene, code string) TranscriptRecord {
	return TranscriptRecord{OldTranscript: oldTx, OldGene: oldGene, NewTranscript: newTx, NewGene: newGene, Code: code}
}

func TestBuildCollapsesTranscripts(t *testing.T) {
	records := []TranscriptRecord{
		rec("T1o", "O1", "T1n", "N1", "="),
		rec("T2o", "O1", "T2n", "N1", "j"),
		rec("T3o", "O1", "T3n", "N1", "="),
		rec("T4o", "O2", "T4n", "N1", "c"),
	}
	g := Build(records, Universe{})

	require.Equal(t, 2, g.Len())
	e, ok := g.Edge("O1", "N1")
	require.True(t, ok)
	assert.Equal(t, []string{"=", "j"}, e.Codes)
	assert.Equal(t, 3, e.Transcripts)
	assert.Equal(t, "=,j", e.CodeString())

	assert.Equal(t, []string{"O1", "O2"}, g.Partners(New, "N1"))
	assert.Equal(t, []string{"N1"}, g.Partners(Old, "O2"))
	assert.Empty(t, g.Failures)

	edges := g.Edges()
	require.Len(t, edges, 2)
	assert.Equal(t, EdgeKey{Old: "O1", New: "N1"}, edges[0].Key())
	assert.Equal(t, EdgeKey{Old: "O2", New: "N1"}, edges[1].Key())
}

func TestBuildOrderIndependent(t *testing.T) {
	records := []TranscriptRecord{
		rec("a", "O1", "b", "N2", "k"),
		rec("c", "O1", "d", "N1", "="),
		rec("e", "O3", "f", "N2", "c"),
	}
	reversed := []TranscriptRecord{records[2], records[1], records[0]}
	assert.Equal(t, Build(records, Universe{}).Edges(), Build(reversed, Universe{}).Edges())
	assert.Equal(t, Build(records, Universe{}).Components(), Build(reversed, Universe{}).Components())
}

func TestBuildOrphansAndMalformed(t *testing.T) {
	records := []TranscriptRecord{
		rec("T1o", "O1", "T1n", "N1", "="),
		rec("T2o", "O2", "", "", "u"),
		{Line: 17, OldTranscript: "T3o", Code: "x"},
		rec("", "", "", "", ""),
	}
	u := NewUniverse([]string{"O1", "O2", "O3"}, []string{"N1"})
	g := Build(records, u)

	assert.Equal(t, 1, g.Len())
	require.Len(t, g.Orphans, 1)
	assert.Equal(t, "O2", g.Orphans[0].OldGene)

	require.Len(t, g.Failures, 1)
	var me *MalformedRecordError
	require.True(t, errors.As(g.Failures[0], &me))
	assert.EqualValues(t, 17, me.Line)
	assert.Contains(t, me.Error(), "row 17")

	assert.Equal(t, []string{"O2", "O3"}, g.Unlinked(Old))
	assert.Empty(t, g.Unlinked(New))
}

func TestBuildGrowsUniverseWithoutMutatingInput(t *testing.T) {
	u := NewUniverse([]string{"O1"}, []string{"N1"})
	g := Build([]TranscriptRecord{rec("t", "O9", "t", "N9", "=")}, u)
	assert.True(t, g.Universe().Contains(Old, "O9"))
	assert.True(t, g.Universe().Contains(New, "N9"))
	assert.False(t, u.Contains(Old, "O9"))
	assert.Equal(t, 1, u.Len(Old))
}

func TestBuildEmpty(t *testing.T) {
	g := Build(nil, NewUniverse([]string{"O1"}, nil))
	assert.Zero(t, g.Len())
	assert.Empty(t, g.Components())
	assert.Equal(t, []string{"O1"}, g.Unlinked(Old))
}

func TestComponents(t *testing.T) {
	records := []TranscriptRecord{
		// many-to-many chain O1-N1-O2-N2
		rec("a", "O1", "a", "N1", "="),
		rec("b", "O2", "b", "N1", "c"),
		rec("c", "O2", "c", "N2", "j"),
		// separate 1:1
		rec("d", "O3", "d", "N3", "="),
	}
	comps := Build(records, Universe{}).Components()
	require.Len(t, comps, 2)

	assert.Equal(t, Component{ID: 1, Old: []string{"O1", "O2"}, New: []string{"N1", "N2"}}, comps[0])
	assert.Equal(t, Component{ID: 2, Old: []string{"O3"}, New: []string{"N3"}}, comps[1])
	assert.Equal(t, 4, comps[0].Size())
}

func TestComponentConsistency(t *testing.T) {
	records := []TranscriptRecord{
		rec("a", "O1", "a", "N1", "="),
		rec("b", "O1", "b", "N2", "="),
		rec("c", "O4", "c", "N2", "="),
		rec("d", "O5", "d", "N7", "="),
		rec("e", "O6", "e", "N7", "="),
	}
	g := Build(records, Universe{})
	member := make(map[string]int)
	for _, c := range g.Components() {
		for _, id := range c.Old {
			member["old:"+id] = c.ID
		}
		for _, id := range c.New {
			member["new:"+id] = c.ID
		}
	}
	for _, e := range g.Edges() {
		assert.Equal(t, member["old:"+e.Old], member["new:"+e.New], "edge %v", e.Key())
	}
}

func TestDOT(t *testing.T) {
	g := Build([]TranscriptRecord{rec("a", "O1", "b", "N1", "=")}, Universe{})
	b, err := g.DOT("run 1")
	require.NoError(t, err)
	out := string(b)
	assert.Contains(t, out, "graph run_1")
	assert.Contains(t, out, "old:O1")
	assert.Contains(t, out, "new:N1")
}
