package tsv

import (
	"errors"
	"fmt"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type counter struct{ n int64 }

func (c *counter) Increment() { atomic.AddInt64(&c.n, 1) }

func TestParseOrderAcrossBatches(t *testing.T) {
	var b strings.Builder
	for i := 0; i < 5000; i++ {
		fmt.Fprintf(&b, "g%d\t%d\n", i, i)
	}

	opts := DefaultOptions()
	opts.ChunkSize = 512
	opts.BatchLines = 7
	opts.Workers = 4
	prog := &counter{}
	opts.Progress = prog

	var got []string
	err := Parse(strings.NewReader(b.String()), opts, func(row Row) error {
		got = append(got, row.Field(0))
		return nil
	})
	require.NoError(t, err)
	require.Len(t, got, 5000)
	for i, id := range got {
		assert.Equal(t, fmt.Sprintf("g%d", i), id)
	}
	assert.EqualValues(t, 5000, prog.n)
}

func TestParseSkipsCommentsAndBlanks(t *testing.T) {
	in := "# header comment\r\na\tb\r\n\r\nc\td"
	rows, err := Collect(strings.NewReader(in), DefaultOptions())
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "b", rows[0].Field(1))
	assert.EqualValues(t, 2, rows[0].Line)
	assert.Equal(t, "d", rows[1].Field(1))
	assert.EqualValues(t, 4, rows[1].Line)
	assert.Equal(t, "", rows[1].Field(9))
}

func TestParseStrictColumns(t *testing.T) {
	opts := DefaultOptions()
	opts.StrictColumns = true
	err := Parse(strings.NewReader("a\tb\nc\n"), opts, func(Row) error { return nil })
	require.Error(t, err)
	assert.Contains(t, err.Error(), "line 2")
}

func TestParseCallbackErrorStops(t *testing.T) {
	var b strings.Builder
	for i := 0; i < 10000; i++ {
		fmt.Fprintf(&b, "%d\n", i)
	}
	stop := errors.New("stop")
	opts := DefaultOptions()
	opts.ChunkSize = 256
	opts.BatchLines = 8
	seen := 0
	err := Parse(strings.NewReader(b.String()), opts, func(Row) error {
		seen++
		if seen == 10 {
			return stop
		}
		return nil
	})
	assert.ErrorIs(t, err, stop)
	assert.Equal(t, 10, seen)
}

func TestHeaderRequire(t *testing.T) {
	h := NewHeader([][]byte{[]byte("Query_ID"), []byte("subject_id"), []byte("evalue")})
	idx, err := h.Require([]string{"query_id"}, []string{"e_value", "evalue"})
	require.NoError(t, err)
	assert.Equal(t, []int{0, 2}, idx)

	_, err = h.Require([]string{"bit_score", "bitscore"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "bit_score")
}

func TestNullable(t *testing.T) {
	for _, v := range []string{"", "-", ".", "None", "NA"} {
		assert.True(t, IsNull([]byte(v)), v)
	}
	assert.Equal(t, "gene1", Nullable([]byte("gene1")))
	assert.Equal(t, "", Nullable([]byte("None")))
}
