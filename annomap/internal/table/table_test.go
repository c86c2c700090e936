package table

import (
	"bytes"
	"strings"
	"testing"

	"github.com/apache/arrow/go/v18/arrow/ipc"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Doomsbay/AnnoMap/annomap/internal/bbh"
	"github.com/Doomsbay/AnnoMap/annomap/internal/coverage"
	"github.com/Doomsbay/AnnoMap/annomap/internal/graph"
	"github.com/Doomsbay/AnnoMap/annomap/internal/multiplicity"
	"github.com/Doomsbay/AnnoMap/annomap/internal/scenario"
)

func scenarioRows() []scenario.Assignment {
	return []scenario.Assignment{
		{Gene: "O1", Side: graph.Old, Label: scenario.ManyToOne, GroupID: 1, Partners: []string{"N1"}, PartnerCount: 1, Flag: multiplicity.PartnerMultiple},
		{Gene: "N1", Side: graph.New, Label: scenario.ManyToOne, GroupID: 1, Partners: []string{"O1", "O2"}, PartnerCount: 2, Flag: multiplicity.Multiple},
		{Gene: "O9", Side: graph.Old, Label: scenario.UnmappedOld, GroupID: 2},
	}
}

func TestScenarioTSV(t *testing.T) {
	rec := Scenarios(scenarioRows())
	defer rec.Release()

	var buf bytes.Buffer
	require.NoError(t, Write(&buf, TSV, rec))
	got := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	assert.Equal(t, []string{
		"gene_id\tside\tscenario_label\tgroup_id\tpartner_gene_ids\tpartner_count\tmultiplicity_flag",
		"O1\told\tmany_to_one\t1\tN1\t1\tpartner_multiple",
		"N1\tnew\tmany_to_one\t1\tO1,O2\t2\tmultiple",
		"O9\told\tunmapped_old\t2\t\t0\t",
	}, got)
}

func TestEdgesNullsWithoutBBH(t *testing.T) {
	rec := Edges([]bbh.Edge{
		{GeneEdge: graph.GeneEdge{Old: "O1", New: "N1", Codes: []string{"=", "j"}, Transcripts: 2}, BBH: true, Identity: 97.5, Coverage: 100},
		{GeneEdge: graph.GeneEdge{Old: "O2", New: "N1", Codes: []string{"c"}, Transcripts: 1}},
	})
	defer rec.Release()
	require.EqualValues(t, 2, rec.NumRows())
	assert.True(t, rec.Column(5).IsValid(0))
	assert.True(t, rec.Column(5).IsNull(1))

	var buf bytes.Buffer
	require.NoError(t, Write(&buf, TSV, rec))
	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	require.Len(t, lines, 3)
	assert.True(t, strings.HasPrefix(lines[1], "O1\tN1\t"), lines[1])
	assert.Contains(t, lines[1], "\ttrue\t97.5\t")
	assert.True(t, strings.HasSuffix(lines[2], "\tfalse\t\t"), lines[2])
}

func TestCoverageRecord(t *testing.T) {
	rec := Coverage([]coverage.Result{
		{Key: "g1", Length: 161, Raw: 212, Merged: []coverage.Interval{{Start: 1, End: 100}, {Start: 120, End: 180}}},
		{Key: "g2", Length: 0},
	})
	defer rec.Release()

	var buf bytes.Buffer
	require.NoError(t, Write(&buf, TSV, rec))
	assert.Contains(t, buf.String(), "g1\t161\t212\t1-100,120-180\n")
	assert.Contains(t, buf.String(), "g2\t0\t0\t\n")
}

func TestArrowRoundTrip(t *testing.T) {
	rec := Pairs([]bbh.Pair{{Old: "A", New: "X", Identity: 90, Coverage: 85}})
	defer rec.Release()

	var buf bytes.Buffer
	require.NoError(t, Write(&buf, Arrow, rec))

	r, err := ipc.NewFileReader(bytes.NewReader(buf.Bytes()))
	require.NoError(t, err)
	defer r.Close()
	assert.True(t, r.Schema().Equal(BBHSchema))
	require.Equal(t, 1, r.NumRecords())
	got, err := r.Record(0)
	require.NoError(t, err)
	assert.EqualValues(t, 1, got.NumRows())
}

// closeTracker is a buffer that records Close calls.
type closeTracker struct {
	bytes.Buffer
	closed int
}

func (c *closeTracker) Close() error {
	c.closed++
	return nil
}

func TestParquetWrite(t *testing.T) {
	rec := Scenarios(scenarioRows())
	defer rec.Release()

	var out closeTracker
	require.NoError(t, Write(&out, Parquet, rec))
	b := out.Bytes()
	require.Greater(t, len(b), 8)
	assert.Equal(t, "PAR1", string(b[:4]))
	assert.Equal(t, "PAR1", string(b[len(b)-4:]))
	assert.Zero(t, out.closed, "writer must leave the sink open")
}

func TestWriteLeavesSinkOpen(t *testing.T) {
	for _, f := range []Format{TSV, Arrow, Parquet} {
		t.Run(f.String(), func(t *testing.T) {
			rec := Pairs([]bbh.Pair{{Old: "A", New: "X", Identity: 90, Coverage: 85}})
			defer rec.Release()

			var out closeTracker
			require.NoError(t, Write(&out, f, rec))
			assert.NotZero(t, out.Len())
			assert.Zero(t, out.closed)
		})
	}
}

func TestParseFormat(t *testing.T) {
	for _, f := range []Format{TSV, Arrow, Parquet} {
		got, err := ParseFormat(f.String())
		require.NoError(t, err)
		assert.Equal(t, f, got)
	}
	assert.Equal(t, ".parquet", Parquet.Ext())
	_, err := ParseFormat("xlsx")
	assert.Error(t, err)
}
